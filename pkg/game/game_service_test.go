package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocap-app/nocap-backend/entities"
	"github.com/nocap-app/nocap-backend/pkg/token"

	"github.com/nocap-app/nocap-backend/domain"
)

type fakeTokenRepository struct {
	balance       *entities.TokenBalance
	conflictsLeft int
}

func newFakeTokenRepository(balance, freeScansUsed, gamePoints int) *fakeTokenRepository {
	return &fakeTokenRepository{
		balance: &entities.TokenBalance{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			Balance:       balance,
			FreeScansUsed: freeScansUsed,
			GamePoints:    gamePoints,
		},
	}
}

func (f *fakeTokenRepository) GetOrCreateBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	snapshot := *f.balance
	return &snapshot, nil
}

func (f *fakeTokenRepository) GetBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	snapshot := *f.balance
	return &snapshot, nil
}

func (f *fakeTokenRepository) UpdateBalanceCAS(ctx context.Context, snapshot *entities.TokenBalance, update token.BalanceUpdate) (bool, error) {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return false, nil
	}
	f.balance.Balance = update.Balance
	f.balance.FreeScansUsed = update.FreeScansUsed
	f.balance.GamePoints = update.GamePoints
	f.balance.TotalScans = update.TotalScans
	return true, nil
}

func (f *fakeTokenRepository) CreateTransaction(ctx context.Context, tx *entities.TokenTransaction) error {
	return nil
}

func (f *fakeTokenRepository) GetTransactionByPaymentID(ctx context.Context, paymentID string) (*entities.TokenTransaction, error) {
	return nil, nil
}

func (f *fakeTokenRepository) GetUserTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.TokenTransaction, int64, error) {
	return nil, 0, nil
}

type fakeGameRepository struct {
	media []*entities.GameMedia
}

func (f *fakeGameRepository) GetActiveMedia(ctx context.Context, mediaType string, limit int) ([]*entities.GameMedia, error) {
	return f.media, nil
}

func TestSubmitGuessIncorrectLeavesLedgerAlone(t *testing.T) {
	repo := newFakeTokenRepository(500, 1, 7)
	service := NewGameService(&fakeGameRepository{}, repo)

	resp, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: false}, uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, 7, resp.GamePoints)
	assert.False(t, resp.EarnedFreeScan)
	assert.Equal(t, 7, repo.balance.GamePoints)
}

func TestSubmitGuessCorrectAddsPoint(t *testing.T) {
	repo := newFakeTokenRepository(500, 1, 4)
	service := NewGameService(&fakeGameRepository{}, repo)

	resp, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: true}, uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, 5, resp.GamePoints)
	assert.False(t, resp.EarnedFreeScan)
	assert.Equal(t, 1, resp.FreeScansUsed)
}

func TestSubmitGuessTenthPointEarnsFreeScan(t *testing.T) {
	repo := newFakeTokenRepository(500, 2, 9)
	service := NewGameService(&fakeGameRepository{}, repo)

	resp, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: true}, uuid.New().String())
	require.NoError(t, err)

	assert.True(t, resp.EarnedFreeScan)
	assert.Equal(t, 0, resp.GamePoints, "the counter wraps when the reward fires")
	assert.Equal(t, 1, resp.FreeScansUsed)
	assert.Equal(t, domain.FreeScansLimit-1, resp.FreeScansRemaining)
}

func TestSubmitGuessRewardFloorsAtZeroUsedScans(t *testing.T) {
	repo := newFakeTokenRepository(500, 0, 9)
	service := NewGameService(&fakeGameRepository{}, repo)

	resp, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: true}, uuid.New().String())
	require.NoError(t, err)

	assert.True(t, resp.EarnedFreeScan)
	assert.Equal(t, 0, resp.FreeScansUsed)
	assert.Equal(t, domain.FreeScansLimit, resp.FreeScansRemaining)
}

func TestSubmitGuessRetriesLostRace(t *testing.T) {
	repo := newFakeTokenRepository(500, 1, 3)
	repo.conflictsLeft = 2
	service := NewGameService(&fakeGameRepository{}, repo)

	resp, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: true}, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, 4, resp.GamePoints)
}

func TestSubmitGuessGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := newFakeTokenRepository(500, 1, 3)
	repo.conflictsLeft = rewardRetries
	service := NewGameService(&fakeGameRepository{}, repo)

	_, err := service.SubmitGuess(context.Background(), domain.SubmitGuessRequest{Correct: true}, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrBalanceConflict)
}

func TestGetGameMediaUsesCuratedPool(t *testing.T) {
	gameRepo := &fakeGameRepository{
		media: []*entities.GameMedia{
			{ID: uuid.New(), URL: "https://cdn.example.com/real.jpg", Type: "image", IsAI: false, IsActive: true},
			{ID: uuid.New(), URL: "https://cdn.example.com/fake.jpg", Type: "image", IsAI: true, IsActive: true},
		},
	}
	service := NewGameService(gameRepo, newFakeTokenRepository(0, 0, 0))

	items, err := service.GetGameMedia(context.Background())
	require.NoError(t, err)
	// Pexels is not configured in tests, so only the curated rows come back.
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "image", item.Type)
		assert.NotEmpty(t, item.URL)
	}
}

func TestGetGameMediaEmptyPool(t *testing.T) {
	service := NewGameService(&fakeGameRepository{}, newFakeTokenRepository(0, 0, 0))

	_, err := service.GetGameMedia(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoGameMedia)
}
