package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Free-tier models carry zero cost; rate limits apply on the API side.
var openRouterModels = []string{
	"google/gemma-3-27b-it:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"qwen/qwen-2.5-72b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
	"microsoft/phi-3-mini-128k-instruct:free",
}

// openRouterCore overrides cost calculation: ":free" models are $0,
// everything else gets the flat fallback price.
type openRouterCore struct {
	openAICore
}

func (p *openRouterCore) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.openAICore.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(resp.Model, ":free") {
		resp.CostUSD = 0
	}
	return resp, nil
}

// NewOpenRouter builds the OpenRouter adapter. Free models can be slow,
// so the timeout is generous.
func NewOpenRouter(opts Options) Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &openRouterCore{openAICore: openAICore{
		name:         "openrouter",
		apiKey:       opts.APIKey,
		apiURL:       "https://openrouter.ai/api/v1/chat/completions",
		defaultModel: "mistralai/mistral-7b-instruct:free",
		models:       openRouterModels,
		pricing:      map[string]modelPrice{},
		fallback:     modelPrice{0.001, 0.001},
		extraHeaders: map[string]string{
			"HTTP-Referer": "https://github.com/nextlevelbuilder/teamclaw",
			"X-Title":      "TeamClaw",
		},
		limiter: opts.limiter(),
		client:  &http.Client{Timeout: timeout},
	}}
}
