package domain

import (
	"errors"
)

var (
	MessageSuccessExtractMedia = "media url extracted successfully"
	MessageFailedExtractMedia  = "failed to extract media url"

	ErrMediaURLRequired = errors.New("url is required")
)

// MediaExtractionError marks a failure the user can act on, e.g. the platform
// blocked the request and the file should be uploaded directly instead.
type MediaExtractionError struct {
	Reason string
}

func (e *MediaExtractionError) Error() string {
	return e.Reason
}

type (
	ExtractMediaRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	ExtractMediaResponse struct {
		MediaURL string `json:"mediaUrl"`
	}
)
