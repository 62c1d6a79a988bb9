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

// Options configures a provider adapter.
type Options struct {
	APIKey            string
	Timeout           time.Duration // 0 = adapter default
	RequestsPerMinute int           // 0 = unlimited
}

func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(o.RequestsPerMinute)/60), 1)
}

// openAICore implements the chat-completions wire format shared by
// OpenAI, Groq, Mistral, and OpenRouter.
type openAICore struct {
	latencyTracker
	name         string
	apiKey       string
	apiURL       string
	defaultModel string
	models       []string
	pricing      map[string]modelPrice
	fallback     modelPrice
	extraHeaders map[string]string
	limiter      *rate.Limiter
	client       *http.Client
}

func (p *openAICore) Name() string         { return p.name }
func (p *openAICore) Models() []string     { return p.models }
func (p *openAICore) DefaultModel() string { return p.defaultModel }

type oaChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAICore) Complete(ctx context.Context, req Request) (*Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	body := map[string]any{
		"model":       model,
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
		body["tool_choice"] = "auto"
	}

	start := time.Now()
	data, err := p.post(ctx, p.apiURL, body)
	if err != nil {
		return nil, err
	}
	latency := int(time.Since(start).Milliseconds())
	p.record(latency)

	var parsed oaChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices in response", p.name)
	}

	inp, out := parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens
	return &Response{
		Content:      parsed.Choices[0].Message.Content,
		InputTokens:  inp,
		OutputTokens: out,
		CostUSD:      calcCost(p.pricing, p.fallback, model, inp, out),
		LatencyMS:    latency,
		Model:        model,
		Provider:     p.name,
	}, nil
}

func (p *openAICore) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", p.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Provider: p.name, Status: resp.StatusCode, Body: truncate(string(data), 256)}
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
