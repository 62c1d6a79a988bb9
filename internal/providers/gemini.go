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

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

var geminiPricing = map[string]modelPrice{
	"gemini-2.0-flash": {0.0001, 0.0004},
	"gemini-1.5-pro":   {0.00125, 0.005},
	"gemini-1.5-flash": {0.000075, 0.0003},
}

// GeminiProvider adapts the Google generateContent API: messages become
// contents/parts, the assistant role maps to "model", and the system
// message becomes systemInstruction.
type GeminiProvider struct {
	latencyTracker
	apiKey  string
	apiBase string
	limiter *rate.Limiter
	client  *http.Client
}

func NewGemini(opts Options) *GeminiProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiProvider{
		apiKey:  opts.APIKey,
		apiBase: geminiAPIBase,
		limiter: opts.limiter(),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Name() string { return "google" }
func (p *GeminiProvider) Models() []string {
	return modelNames(geminiPricing, []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"})
}
func (p *GeminiProvider) DefaultModel() string { return "gemini-2.0-flash" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
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
	var contents []geminiContent
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	body := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
			"temperature":     req.Temperature,
		},
	}
	if system != "" {
		body["systemInstruction"] = map[string]any{"parts": []geminiPart{{Text: system}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("google: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.apiBase, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("google: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Provider: "google", Status: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	latency := int(time.Since(start).Milliseconds())
	p.record(latency)

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("google: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("google: no candidates in response")
	}

	inp := parsed.UsageMetadata.PromptTokenCount
	out := parsed.UsageMetadata.CandidatesTokenCount
	return &Response{
		Content:      parsed.Candidates[0].Content.Parts[0].Text,
		InputTokens:  inp,
		OutputTokens: out,
		CostUSD:      calcCost(geminiPricing, modelPrice{0.0001, 0.0004}, model, inp, out),
		LatencyMS:    latency,
		Model:        model,
		Provider:     "google",
	}, nil
}
