// Package client is a small HTTP client for the NoCap API: it submits a scan
// and polls its status until a terminal state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

const (
	// PollInterval matches the app's 2-second status poll.
	PollInterval = 2 * time.Second
	// MaxPollAttempts caps the wait so a stuck scan surfaces as an error
	// instead of polling forever.
	MaxPollAttempts = 60
)

var (
	ErrInsufficientTokens = fmt.Errorf("insufficient tokens")
	ErrScanTimeout        = fmt.Errorf("scan did not reach a terminal status in time")
)

type (
	Client struct {
		BaseURL      string
		Token        string
		HTTPClient   *http.Client
		PollInterval time.Duration
	}

	UploadResult struct {
		ScanID   string `json:"scanId"`
		FileURL  string `json:"fileUrl"`
		FileType string `json:"fileType"`
	}

	AnalyzeResult struct {
		Success            bool   `json:"success"`
		ScanID             string `json:"scanId"`
		TokensRemaining    int    `json:"tokensRemaining"`
		WasFreeScans       bool   `json:"wasFreeScans"`
		FreeScansRemaining int    `json:"freeScansRemaining"`
	}

	ScanStatus struct {
		ID              string   `json:"id"`
		Status          string   `json:"status"`
		ConfidenceScore *float64 `json:"confidence_score"`
		IsAiGenerated   *bool    `json:"is_ai_generated"`
		ErrorMessage    *string  `json:"error_message"`
	}

	envelope struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
)

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:      baseURL,
		Token:        token,
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		PollInterval: PollInterval,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	return c.HTTPClient.Do(req)
}

// Upload sends the media file and returns the pending scan.
func (c *Client) Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(fileName)),
	}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/scans/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	var result UploadResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Analyze kicks off detection for an uploaded scan.
func (c *Client) Analyze(ctx context.Context, scanID, fileURL, fileType string) (*AnalyzeResult, error) {
	body, err := json.Marshal(map[string]string{
		"scanId":   scanID,
		"fileUrl":  fileURL,
		"fileType": fileType,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/scans/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, ErrInsufficientTokens
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze failed: %s", resp.Status)
	}

	var result AnalyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetScan fetches the current scan record.
func (c *Client) GetScan(ctx context.Context, scanID string) (*ScanStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/scans/"+scanID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get scan failed: %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	var status ScanStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// WaitForResult polls the scan until it completes or fails.
func (c *Client) WaitForResult(ctx context.Context, scanID string) (*ScanStatus, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.GetScan(ctx, scanID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case "completed":
			return status, nil
		case "failed":
			msg := "analysis failed"
			if status.ErrorMessage != nil {
				msg = *status.ErrorMessage
			}
			return status, fmt.Errorf("%s", msg)
		}
	}

	return nil, ErrScanTimeout
}
