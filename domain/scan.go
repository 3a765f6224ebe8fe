package domain

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessUploadScan  = "scan uploaded successfully"
	MessageSuccessAnalyzeScan = "scan analyzed successfully"
	MessageSuccessGetScans    = "scans retrieved successfully"
	MessageSuccessDeleteScan  = "scan deleted successfully"

	MessageFailedUploadScan  = "failed to upload scan"
	MessageFailedAnalyzeScan = "failed to analyze scan"
	MessageFailedGetScans    = "failed to retrieve scans"
	MessageFailedDeleteScan  = "failed to delete scan"

	ErrScanNotFound      = errors.New("scan not found")
	ErrInvalidMediaType  = errors.New("file type must be an image or a video")
	ErrMediaTooLarge     = errors.New("file exceeds the maximum upload size")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrInsufficientToken = errors.New("insufficient tokens")
)

const (
	ScanStatusPending    = "pending"
	ScanStatusProcessing = "processing"
	ScanStatusCompleted  = "completed"
	ScanStatusFailed     = "failed"

	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// InsufficientTokensError carries the balance snapshot the client needs to
// render the purchase prompt on a 402 response.
type InsufficientTokensError struct {
	CurrentBalance int
	Required       int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: have %d, need %d", e.CurrentBalance, e.Required)
}

func (e *InsufficientTokensError) Is(target error) bool {
	return target == ErrInsufficientToken
}

type (
	Artifact struct {
		Type        string          `json:"type"`
		Description string          `json:"description"`
		Severity    string          `json:"severity"` // "low", "medium", "high"
		Models      []DetectedModel `json:"models,omitempty"`
	}

	DetectedModel struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	}

	AnalysisResult struct {
		ConfidenceScore float64         `json:"confidenceScore"`
		IsAiGenerated   bool            `json:"isAiGenerated"`
		Artifacts       []Artifact      `json:"artifacts"`
		DetectedModels  []DetectedModel `json:"detectedModels"`
	}

	ScanMetadata struct {
		AnalyzedAt         time.Time `json:"analyzed_at"`
		FileType           string    `json:"file_type"`
		AnalysisVersion    string    `json:"analysis_version"`
		TokensUsed         int       `json:"tokens_used"`
		WasFreeScan        bool      `json:"was_free_scan"`
		FreeScansRemaining int       `json:"free_scans_remaining"`
		DetectionMethod    string    `json:"detection_method"`
	}

	UploadScanRequest struct {
		File *multipart.FileHeader `json:"-" validate:"required"`
	}

	UploadScanResponse struct {
		ScanID   string `json:"scanId"`
		FileURL  string `json:"fileUrl"`
		FileType string `json:"fileType"`
	}

	AnalyzeScanRequest struct {
		ScanID   string `json:"scanId" validate:"required,uuid"`
		FileURL  string `json:"fileUrl" validate:"required,url"`
		FileType string `json:"fileType" validate:"required,oneof=image video"`
	}

	AnalyzeScanResponse struct {
		Success            bool   `json:"success"`
		ScanID             string `json:"scanId"`
		TokensRemaining    int    `json:"tokensRemaining"`
		WasFreeScans       bool   `json:"wasFreeScans"`
		FreeScansRemaining int    `json:"freeScansRemaining"`
	}

	ScanResponse struct {
		ID              string     `json:"id"`
		FileName        string     `json:"file_name"`
		FileType        string     `json:"file_type"`
		FileURL         string     `json:"file_url"`
		FileSize        int64      `json:"file_size"`
		Status          string     `json:"status"`
		ConfidenceScore *float64   `json:"confidence_score,omitempty"`
		IsAiGenerated   *bool      `json:"is_ai_generated,omitempty"`
		Artifacts       []Artifact `json:"artifacts,omitempty"`
		ErrorMessage    *string    `json:"error_message,omitempty"`
		CreatedAt       time.Time  `json:"created_at"`
	}
)
