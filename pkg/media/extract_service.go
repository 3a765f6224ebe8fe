package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nocap-app/nocap-backend/domain"
)

// Extraction is best-effort scraping of social platforms. Each host gets a
// chain of attempts; the platforms actively block non-browser clients, so a
// failure here is surfaced as a user-actionable message rather than hardened
// against.
type (
	ExtractService interface {
		ExtractMediaURL(ctx context.Context, rawURL string) (string, error)
	}

	extractService struct {
		httpClient *http.Client
	}
)

func NewExtractService() ExtractService {
	return &extractService{
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

var instagramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"video_url":"([^"]+)"`),
	regexp.MustCompile(`"display_url":"([^"]+)"`),
	regexp.MustCompile(`<meta property="og:video" content="([^"]+)"`),
	regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`),
	regexp.MustCompile(`"thumbnail_src":"([^"]+)"`),
	regexp.MustCompile(`<meta property="og:video:secure_url" content="([^"]+)"`),
}

var (
	ogVideoPattern      = regexp.MustCompile(`<meta property="og:video" content="([^"]+)"`)
	ogImagePattern      = regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`)
	twitterImagePattern = regexp.MustCompile(`<meta name="twitter:image" content="([^"]+)"`)
)

func (s *extractService) ExtractMediaURL(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", domain.ErrMediaURLRequired
	}

	switch {
	case strings.Contains(rawURL, "instagram.com"):
		return s.extractInstagram(ctx, rawURL)
	case strings.Contains(rawURL, "twitter.com"), strings.Contains(rawURL, "x.com"):
		return s.extractTwitter(ctx, rawURL)
	case strings.Contains(rawURL, "tiktok.com"):
		return s.extractTikTok(ctx, rawURL)
	default:
		return rawURL, nil
	}
}

func (s *extractService) fetchHTML(ctx context.Context, pageURL, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *extractService) extractInstagram(ctx context.Context, pageURL string) (string, error) {
	attempts := []func() (string, bool){
		func() (string, bool) { return s.tryInstagramOembed(ctx, pageURL) },
		func() (string, bool) { return s.tryInstagramEmbed(ctx, pageURL) },
		func() (string, bool) { return s.tryInstagramDirect(ctx, pageURL) },
	}

	for _, attempt := range attempts {
		if mediaURL, ok := attempt(); ok {
			return mediaURL, nil
		}
	}

	return "", &domain.MediaExtractionError{
		Reason: "Instagram blocked the request. Please download the image/video and upload the file directly instead.",
	}
}

func (s *extractService) tryInstagramOembed(ctx context.Context, pageURL string) (string, bool) {
	oembedURL := "https://graph.instagram.com/oembed?url=" + url.QueryEscape(pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return "", false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var data struct {
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.ThumbnailURL == "" {
		return "", false
	}
	return data.ThumbnailURL, true
}

func (s *extractService) tryInstagramEmbed(ctx context.Context, pageURL string) (string, bool) {
	embedURL := pageURL
	if !strings.Contains(embedURL, "/embed") {
		embedURL = strings.TrimSuffix(embedURL, "/") + "/embed/"
	}

	html, err := s.fetchHTML(ctx, embedURL,
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	if err != nil {
		return "", false
	}

	if strings.Contains(html, "Sorry, this page") || strings.Contains(html, "Login") || len(html) < 1000 {
		return "", false
	}

	for _, pattern := range instagramPatterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			mediaURL := strings.ReplaceAll(match[1], `\u0026`, "&")
			mediaURL = strings.ReplaceAll(mediaURL, `\`, "")
			return mediaURL, true
		}
	}
	return "", false
}

func (s *extractService) tryInstagramDirect(ctx context.Context, pageURL string) (string, bool) {
	html, err := s.fetchHTML(ctx, pageURL, "facebookexternalhit/1.1")
	if err != nil {
		return "", false
	}

	if match := ogImagePattern.FindStringSubmatch(html); match != nil {
		return match[1], true
	}
	return "", false
}

func (s *extractService) extractTwitter(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetchHTML(ctx, pageURL,
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if err != nil {
		return "", &domain.MediaExtractionError{Reason: "Could not extract media URL from Twitter/X post"}
	}

	for _, pattern := range []*regexp.Regexp{ogVideoPattern, ogImagePattern, twitterImagePattern} {
		if match := pattern.FindStringSubmatch(html); match != nil {
			return match[1], nil
		}
	}

	return "", &domain.MediaExtractionError{Reason: "Could not extract media URL from Twitter/X post"}
}

func (s *extractService) extractTikTok(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetchHTML(ctx, pageURL,
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if err != nil {
		return "", &domain.MediaExtractionError{Reason: "Could not extract media URL from TikTok post"}
	}

	for _, pattern := range []*regexp.Regexp{ogVideoPattern, ogImagePattern} {
		if match := pattern.FindStringSubmatch(html); match != nil {
			return match[1], nil
		}
	}

	return "", &domain.MediaExtractionError{Reason: "Could not extract media URL from TikTok post"}
}
