package providers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestOpenAICore_Complete verifies the chat-completions round trip:
// auth header, payload shape, usage extraction, and cost calculation.
func TestOpenAICore_Complete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "hello"}}},
			"usage":   map[string]any{"prompt_tokens": 1000, "completion_tokens": 500},
		})
	}))
	defer srv.Close()

	p := &openAICore{
		name:         "openai",
		apiKey:       "sk-test",
		apiURL:       srv.URL,
		defaultModel: "gpt-4o-mini",
		pricing:      openAIPricing,
		fallback:     modelPrice{0.002, 0.002},
		client:       srv.Client(),
	}

	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "gpt-4o",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Errorf("model sent = %v", gotBody["model"])
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	// 1000 in @ 0.0025 + 500 out @ 0.010 per 1k = 0.0025 + 0.005
	want := 0.0075
	if math.Abs(resp.CostUSD-want) > 1e-9 {
		t.Errorf("cost = %v, want %v", resp.CostUSD, want)
	}
	if resp.LatencyMS < 0 {
		t.Errorf("latency = %d", resp.LatencyMS)
	}
}

// TestOpenAICore_HTTPError verifies non-2xx becomes a typed error.
func TestOpenAICore_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &openAICore{name: "groq", apiURL: srv.URL, defaultModel: "m", client: srv.Client()}
	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want HTTPError 429", err)
	}
}

// TestAnthropic_SystemSplit verifies the system message moves out of
// the message list into the dedicated field, with versioned headers.
func TestAnthropic_SystemSplit(t *testing.T) {
	var gotBody map[string]any
	var gotVersion, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"text": "ok"}},
			"usage":   map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	p := NewAnthropic(Options{APIKey: "ak-test"})
	p.apiURL = srv.URL
	p.client = srv.Client()

	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotVersion != anthropicAPIVersion || gotKey != "ak-test" {
		t.Errorf("headers: version=%q key=%q", gotVersion, gotKey)
	}
	if gotBody["system"] != "be brief" {
		t.Errorf("system field = %v", gotBody["system"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("messages sent = %v, want system stripped", msgs)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
}

// TestGemini_MessageMapping verifies the contents/parts conversion and
// the assistant-to-model role mapping.
func TestGemini_MessageMapping(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": "pong"}}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 3, "candidatesTokenCount": 2},
		})
	}))
	defer srv.Close()

	p := NewGemini(Options{APIKey: "gk"})
	p.apiBase = srv.URL
	p.client = srv.Client()

	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "ping"},
			{Role: "assistant", Content: "earlier"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if _, ok := gotBody["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
	contents, _ := gotBody["contents"].([]any)
	if len(contents) != 2 {
		t.Fatalf("contents = %v, want 2 entries", contents)
	}
	second, _ := contents[1].(map[string]any)
	if second["role"] != "model" {
		t.Errorf("assistant role mapped to %v, want model", second["role"])
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q", resp.Content)
	}
}

// TestLatencyTracker verifies the default and the rolling window.
func TestLatencyTracker(t *testing.T) {
	var lt latencyTracker
	if got := lt.AvgLatencyMS(); got != defaultLatencyMS {
		t.Errorf("empty avg = %d, want %d", got, defaultLatencyMS)
	}
	// 15 samples: average covers only the last 10.
	for i := 1; i <= 15; i++ {
		lt.record(i * 100)
	}
	// last 10 samples are 600..1500, avg 1050
	if got := lt.AvgLatencyMS(); got != 1050 {
		t.Errorf("avg = %d, want 1050", got)
	}
}

// TestCalcCost_UnknownModel verifies the fallback price applies.
func TestCalcCost_UnknownModel(t *testing.T) {
	got := calcCost(openAIPricing, modelPrice{0.002, 0.002}, "mystery-model", 1000, 1000)
	if math.Abs(got-0.004) > 1e-9 {
		t.Errorf("cost = %v, want 0.004", got)
	}
}

// TestOptionsLimiter verifies rate limiter construction from RPM.
func TestOptionsLimiter(t *testing.T) {
	if l := (Options{}).limiter(); l != nil {
		t.Error("zero RPM should produce no limiter")
	}
	l := (Options{RequestsPerMinute: 60}).limiter()
	if l == nil {
		t.Fatal("expected limiter")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Errorf("first Wait should pass immediately: %v", err)
	}
}
