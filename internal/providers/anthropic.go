package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

var anthropicPricing = map[string]modelPrice{
	"claude-sonnet-4-5-20250929": {0.003, 0.015},
	"claude-haiku-4-5-20251001":  {0.00025, 0.00125},
	"claude-opus-4-6":            {0.015, 0.075},
}

// AnthropicProvider adapts the Anthropic Messages API. The system
// message is lifted out of the message list into the dedicated field.
type AnthropicProvider struct {
	latencyTracker
	apiKey  string
	apiURL  string
	limiter *rate.Limiter
	client  *http.Client
}

func NewAnthropic(opts Options) *AnthropicProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicProvider{
		apiKey:  opts.APIKey,
		apiURL:  anthropicAPIURL,
		limiter: opts.limiter(),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }
func (p *AnthropicProvider) Models() []string {
	return modelNames(anthropicPricing, []string{
		"claude-sonnet-4-5-20250929", "claude-haiku-4-5-20251001", "claude-opus-4-6",
	})
}
func (p *AnthropicProvider) DefaultModel() string { return "claude-haiku-4-5-20251001" }

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	var system string
	filtered := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		filtered = append(filtered, m)
	}

	body := map[string]any{
		"model":      model,
		"messages":   filtered,
		"max_tokens": maxTokens,
	}
	if system != "" {
		body["system"] = system
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Provider: "anthropic", Status: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	latency := int(time.Since(start).Milliseconds())
	p.record(latency)

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("anthropic: empty content in response")
	}

	inp, out := parsed.Usage.InputTokens, parsed.Usage.OutputTokens
	return &Response{
		Content:      parsed.Content[0].Text,
		InputTokens:  inp,
		OutputTokens: out,
		CostUSD:      calcCost(anthropicPricing, modelPrice{0.003, 0.015}, model, inp, out),
		LatencyMS:    latency,
		Model:        model,
		Provider:     "anthropic",
	}, nil
}
