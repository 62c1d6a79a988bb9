// Package automation triggers external n8n workflows over webhooks. The
// runtime decides, n8n executes; retries and scheduling live on the n8n
// side.
package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout  = 10 * time.Second
	maxResponseSize = 1024
)

// Client posts workflow triggers to an n8n webhook base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given webhook base URL. An empty
// base URL yields a client whose Trigger always reports unconfigured.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// TriggerResult reports the outcome of one webhook call.
type TriggerResult struct {
	Status   int
	Response string
}

// Trigger POSTs the payload as JSON to {base}/{workflow} and returns
// the response body truncated to 1 KiB.
func (c *Client) Trigger(workflow string, payload map[string]any) (*TriggerResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("n8n webhook base not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	url := c.baseURL + "/" + workflow
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Error("n8n.trigger_failed", "workflow", workflow, "error", err)
		return nil, fmt.Errorf("trigger %s: %w", workflow, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("n8n.webhook_error", "workflow", workflow, "status", resp.StatusCode)
		return nil, fmt.Errorf("trigger %s: HTTP %d", workflow, resp.StatusCode)
	}
	return &TriggerResult{Status: resp.StatusCode, Response: string(data)}, nil
}
