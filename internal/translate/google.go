package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleURL is the public Google Translate endpoint.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

// Backend translates a single chunk of text.
type Backend interface {
	TranslateChunk(ctx context.Context, text, target string) (string, error)
}

// Google calls the public Google Translate endpoint with automatic source
// detection.
type Google struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogle constructs a Google backend. An empty baseURL selects DefaultGoogleURL.
func NewGoogle(baseURL string, timeout time.Duration) *Google {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGoogleURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Google{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

// TranslateChunk implements Backend.
func (g *Google) TranslateChunk(ctx context.Context, text, target string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", target)
	query.Set("dt", "t")
	form := url.Values{}
	form.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"?"+query.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("google translate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google translate: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseGoogleResponse(body)
}

// parseGoogleResponse concatenates the translated segments of a gtx reply.
// The reply is a nested array whose first element lists
// [translated, original, ...] pairs.
func parseGoogleResponse(body []byte) (string, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("google translate: decode response: %w", err)
	}
	if len(envelope) == 0 {
		return "", errors.New("google translate: empty response")
	}
	var segments [][]any
	if err := json.Unmarshal(envelope[0], &segments); err != nil {
		return "", fmt.Errorf("google translate: decode segments: %w", err)
	}
	var out strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if text, ok := seg[0].(string); ok {
			out.WriteString(text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("google translate: no translated text")
	}
	return out.String(), nil
}
