package providers

import (
	"net/http"
	"time"
)

var openAIPricing = map[string]modelPrice{
	"gpt-4o":      {0.0025, 0.010},
	"gpt-4o-mini": {0.00015, 0.0006},
	"gpt-4-turbo": {0.010, 0.030},
}

// NewOpenAI builds the OpenAI adapter.
func NewOpenAI(opts Options) Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAICore{
		name:         "openai",
		apiKey:       opts.APIKey,
		apiURL:       "https://api.openai.com/v1/chat/completions",
		defaultModel: "gpt-4o-mini",
		models:       modelNames(openAIPricing, []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"}),
		pricing:      openAIPricing,
		fallback:     modelPrice{0.002, 0.002},
		limiter:      opts.limiter(),
		client:       &http.Client{Timeout: timeout},
	}
}

var groqPricing = map[string]modelPrice{
	"llama-3.3-70b-versatile": {0.00059, 0.00079},
	"llama-3.1-8b-instant":    {0.00005, 0.00008},
	"mixtral-8x7b-32768":      {0.00024, 0.00024},
}

// NewGroq builds the Groq adapter. Same wire format as OpenAI with a
// shorter timeout; Groq is the fast lane.
func NewGroq(opts Options) Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &openAICore{
		name:         "groq",
		apiKey:       opts.APIKey,
		apiURL:       "https://api.groq.com/openai/v1/chat/completions",
		defaultModel: "llama-3.1-8b-instant",
		models:       modelNames(groqPricing, []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant", "mixtral-8x7b-32768"}),
		pricing:      groqPricing,
		fallback:     modelPrice{0.0005, 0.0005},
		limiter:      opts.limiter(),
		client:       &http.Client{Timeout: timeout},
	}
}

var mistralPricing = map[string]modelPrice{
	"mistral-large-latest": {0.002, 0.006},
	"mistral-small-latest": {0.0002, 0.0006},
	"open-mistral-nemo":    {0.00015, 0.00015},
}

// NewMistral builds the Mistral adapter.
func NewMistral(opts Options) Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAICore{
		name:         "mistral",
		apiKey:       opts.APIKey,
		apiURL:       "https://api.mistral.ai/v1/chat/completions",
		defaultModel: "mistral-small-latest",
		models:       modelNames(mistralPricing, []string{"mistral-large-latest", "mistral-small-latest", "open-mistral-nemo"}),
		pricing:      mistralPricing,
		fallback:     modelPrice{0.002, 0.006},
		limiter:      opts.limiter(),
		client:       &http.Client{Timeout: timeout},
	}
}
