package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	fetchTimeout  = 10 * time.Second
	fetchMaxBytes = 10 * 1024
)

// WebFetchTool fetches the text content of a URL. GET only, 10 KiB cap,
// redirects followed.
type WebFetchTool struct {
	client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{client: &http.Client{Timeout: fetchTimeout}}
}

func (t *WebFetchTool) Name() string        { return "web_fetch" }
func (t *WebFetchTool) Description() string { return "Fetch the text content of a URL (GET only, 10KB cap)." }
func (t *WebFetchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string", "description": "URL to fetch"},
			"headers": map[string]any{"type": "object", "description": "Optional HTTP headers"},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	rawURL := argString(args, "url", "")
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return Errorf("Only http/https URLs allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Errorf("%v", err)
	}
	for key, val := range argMap(args, "headers") {
		if s, ok := val.(string); ok {
			req.Header.Set(key, s)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Errorf("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Errorf("HTTP %d: %s", resp.StatusCode, rawURL)
	}

	// Read one byte past the cap to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes+1))
	if err != nil {
		return Errorf("read body: %v", err)
	}
	truncated := len(body) > fetchMaxBytes
	if truncated {
		body = body[:fetchMaxBytes]
	}
	return map[string]any{
		"result":      lossyString(body),
		"status_code": resp.StatusCode,
		"url":         resp.Request.URL.String(),
		"truncated":   truncated,
	}
}
