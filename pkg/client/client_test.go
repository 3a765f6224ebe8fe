package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPollingClient(baseURL string) *Client {
	c := New(baseURL, "test-token")
	c.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	c.PollInterval = 10 * time.Millisecond
	return c
}

func TestAnalyzeSurfacesInsufficientTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":"Insufficient tokens","code":"INSUFFICIENT_TOKENS","currentBalance":0,"required":100}`)
	}))
	defer server.Close()

	c := newPollingClient(server.URL)
	_, err := c.Analyze(context.Background(), "scan-1", "https://cdn.example.com/a.jpg", "image")
	assert.ErrorIs(t, err, ErrInsufficientTokens)
}

func TestAnalyzeDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"scanId":"scan-1","tokensRemaining":400,"wasFreeScans":false,"freeScansRemaining":0}`)
	}))
	defer server.Close()

	c := newPollingClient(server.URL)
	result, err := c.Analyze(context.Background(), "scan-1", "https://cdn.example.com/a.jpg", "image")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 400, result.TokensRemaining)
}

func TestWaitForResultStopsOnTerminalStatus(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if atomic.AddInt32(&polls, 1) >= 3 {
			status = "completed"
		}
		fmt.Fprintf(w, `{"status":true,"message":"ok","data":{"id":"scan-1","status":"%s"}}`, status)
	}))
	defer server.Close()

	c := newPollingClient(server.URL)

	result, err := c.WaitForResult(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(&polls))
}

func TestWaitForResultReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"message":"ok","data":{"id":"scan-1","status":"failed","error_message":"analysis failed"}}`)
	}))
	defer server.Close()

	c := newPollingClient(server.URL)

	result, err := c.WaitForResult(context.Background(), "scan-1")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "failed", result.Status)
	assert.EqualError(t, err, "analysis failed")
}

func TestWaitForResultHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"message":"ok","data":{"id":"scan-1","status":"processing"}}`)
	}))
	defer server.Close()

	c := newPollingClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.WaitForResult(ctx, "scan-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
