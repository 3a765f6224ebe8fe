package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/internal/utils"
	"github.com/nocap-app/nocap-backend/pkg/token"
)

const rewardRetries = 3

var pexelsQueries = []string{
	"nature", "city", "ocean", "wildlife", "technology", "people",
	"architecture", "food", "sports", "space", "mountains", "beach",
	"forest", "sunset", "abstract", "animals", "travel", "landscape",
}

type (
	GameService interface {
		// SubmitGuess records a round outcome. A correct guess earns one
		// point; crossing the ten-point threshold converts the streak into
		// one free scan and wraps the counter.
		SubmitGuess(ctx context.Context, req domain.SubmitGuessRequest, userID string) (*domain.SubmitGuessResponse, error)
		GetGameMedia(ctx context.Context) ([]domain.GameMediaItem, error)
	}

	gameService struct {
		gameRepository  GameRepository
		tokenRepository token.TokenRepository
		httpClient      *http.Client
	}

	pexelsVideoFile struct {
		Link    string `json:"link"`
		Quality string `json:"quality"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	}

	pexelsVideo struct {
		ID         int               `json:"id"`
		VideoFiles []pexelsVideoFile `json:"video_files"`
	}

	pexelsSearchResponse struct {
		Videos []pexelsVideo `json:"videos"`
	}
)

func NewGameService(gameRepository GameRepository, tokenRepository token.TokenRepository) GameService {
	return &gameService{
		gameRepository:  gameRepository,
		tokenRepository: tokenRepository,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *gameService) SubmitGuess(ctx context.Context, req domain.SubmitGuessRequest, userID string) (*domain.SubmitGuessResponse, error) {
	if !req.Correct {
		balance, err := s.tokenRepository.GetOrCreateBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &domain.SubmitGuessResponse{
			GamePoints:         balance.GamePoints,
			EarnedFreeScan:     false,
			FreeScansUsed:      balance.FreeScansUsed,
			FreeScansRemaining: domain.FreeScansLimit - balance.FreeScansUsed,
		}, nil
	}

	for attempt := 0; attempt < rewardRetries; attempt++ {
		balance, err := s.tokenRepository.GetOrCreateBalance(ctx, userID)
		if err != nil {
			return nil, err
		}

		newPoints := balance.GamePoints + 1
		earnedFreeScan := newPoints >= domain.PointsPerFreeScan && balance.GamePoints < domain.PointsPerFreeScan

		update := token.BalanceUpdate{
			Balance:       balance.Balance,
			FreeScansUsed: balance.FreeScansUsed,
			GamePoints:    newPoints,
			TotalScans:    balance.TotalScans,
		}
		if earnedFreeScan {
			update.GamePoints = newPoints % domain.PointsPerFreeScan
			if balance.FreeScansUsed > 0 {
				update.FreeScansUsed = balance.FreeScansUsed - 1
			}
		}

		applied, err := s.tokenRepository.UpdateBalanceCAS(ctx, balance, update)
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		return &domain.SubmitGuessResponse{
			GamePoints:         update.GamePoints,
			EarnedFreeScan:     earnedFreeScan,
			FreeScansUsed:      update.FreeScansUsed,
			FreeScansRemaining: domain.FreeScansLimit - update.FreeScansUsed,
		}, nil
	}

	return nil, domain.ErrBalanceConflict
}

// GetGameMedia mixes curated rows from the game_media table with fresh
// videos from the Pexels search API, shuffled together.
func (s *gameService) GetGameMedia(ctx context.Context) ([]domain.GameMediaItem, error) {
	var items []domain.GameMediaItem

	photos, err := s.gameRepository.GetActiveMedia(ctx, "image", 1000)
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(photos), func(i, j int) {
		photos[i], photos[j] = photos[j], photos[i]
	})
	if len(photos) > 25 {
		photos = photos[:25]
	}
	for _, photo := range photos {
		items = append(items, domain.GameMediaItem{
			URL:  photo.URL,
			Type: "image",
			IsAI: photo.IsAI,
		})
	}

	videos, err := s.fetchPexelsVideos(ctx)
	if err == nil {
		items = append(items, videos...)
	}

	if len(items) == 0 {
		return nil, domain.ErrNoGameMedia
	}

	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	return items, nil
}

func (s *gameService) fetchPexelsVideos(ctx context.Context) ([]domain.GameMediaItem, error) {
	apiKey := utils.GetConfig("PEXELS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("PEXELS_API_KEY not configured")
	}

	query := pexelsQueries[rand.Intn(len(pexelsQueries))]
	page := rand.Intn(20) + 1

	searchURL := fmt.Sprintf("https://api.pexels.com/videos/search?query=%s&per_page=40&page=%d", query, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels API error: %s", resp.Status)
	}

	var search pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, err
	}

	var items []domain.GameMediaItem
	for _, video := range search.Videos {
		if len(video.VideoFiles) == 0 {
			continue
		}
		file := video.VideoFiles[0]
		for _, f := range video.VideoFiles {
			if f.Quality == "hd" && f.Width <= 1920 {
				file = f
				break
			}
		}
		items = append(items, domain.GameMediaItem{
			URL:  file.Link,
			Type: "video",
			IsAI: rand.Float64() < 0.3,
		})
		if len(items) == 25 {
			break
		}
	}

	return items, nil
}
