package domain

import (
	"errors"
)

var (
	MessageSuccessSubmitGuess  = "guess recorded successfully"
	MessageSuccessGetGameMedia = "game media retrieved successfully"

	MessageFailedSubmitGuess  = "failed to record guess"
	MessageFailedGetGameMedia = "failed to retrieve game media"

	ErrNoGameMedia = errors.New("no game media available")
)

type (
	SubmitGuessRequest struct {
		Correct bool `json:"correct"`
	}

	SubmitGuessResponse struct {
		GamePoints         int  `json:"game_points"`
		EarnedFreeScan     bool `json:"earned_free_scan"`
		FreeScansUsed      int  `json:"free_scans_used"`
		FreeScansRemaining int  `json:"free_scans_remaining"`
	}

	GameMediaItem struct {
		URL  string `json:"url"`
		Type string `json:"type"` // "image", "video"
		IsAI bool   `json:"isAI"`
	}
)
