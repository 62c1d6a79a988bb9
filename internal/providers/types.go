// Package providers holds the LLM provider adapters. Every adapter
// implements Provider; the router ranks and calls them.
package providers

import "context"

// Provider is implemented by each LLM backend adapter.
type Provider interface {
	// Complete makes one completion call. Errors propagate to the
	// router, which penalizes the provider and falls back.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string

	// Models lists the models this adapter knows pricing for.
	Models() []string

	// DefaultModel returns the adapter's default model name.
	DefaultModel() string

	// AvgLatencyMS reports the rolling average latency used by the
	// router's scoring formula.
	AvgLatencyMS() int
}

// Request contains the input for one completion call.
type Request struct {
	Messages    []Message        `json:"messages"`
	Model       string           `json:"model,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
}

// Message is one conversation message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
}

// Response is the result of a completion call, including the cost and
// latency the router logs.
type Response struct {
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMS    int     `json:"latency_ms"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the schema for a function tool.
type ToolFunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
