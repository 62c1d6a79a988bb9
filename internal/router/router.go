// Package router selects the best LLM provider per call, falls back
// down a ranked chain on failure, and enforces the dollar budget.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// ErrProviderExhausted is returned when no provider is configured,
// every provider in the chain failed, or the daily budget is reached.
var ErrProviderExhausted = errors.New("provider exhausted")

// taskModelMap maps task tier to the preferred model per provider.
var taskModelMap = map[string]map[string]string{
	"complex": {
		"openai": "gpt-4o", "anthropic": "claude-sonnet-4-5-20250929",
		"google": "gemini-1.5-pro", "groq": "llama-3.3-70b-versatile",
		"mistral":    "mistral-large-latest",
		"openrouter": "qwen/qwen-2.5-72b-instruct:free",
	},
	"simple": {
		"openai": "gpt-4o-mini", "anthropic": "claude-haiku-4-5-20251001",
		"google": "gemini-2.0-flash", "groq": "llama-3.1-8b-instant",
		"mistral":    "mistral-small-latest",
		"openrouter": "google/gemma-3-27b-it:free",
	},
	"fast": {
		"openai": "gpt-4o-mini", "anthropic": "claude-haiku-4-5-20251001",
		"google": "gemini-2.0-flash", "groq": "llama-3.1-8b-instant",
		"mistral":    "open-mistral-nemo",
		"openrouter": "mistralai/mistral-7b-instruct:free",
	},
}

const (
	fallbackDepth = 3
	quotaPenalty  = 0.3
)

// Router ranks providers by a weighted score and walks the top of the
// chain until one call succeeds.
type Router struct {
	cfg       *config.Config
	store     *store.Store
	providers map[string]providers.Provider
	tracer    trace.Tracer

	mu    sync.Mutex
	quota map[string]float64
}

// New builds a router over the providers enabled in config. The store
// is optional; without it cost logging and budget checks are skipped.
func New(cfg *config.Config, st *store.Store) *Router {
	loaded := make(map[string]providers.Provider)
	for _, name := range cfg.EnabledProviders() {
		pcfg := cfg.Provider(name)
		opts := providers.Options{
			APIKey:            pcfg.APIKey,
			RequestsPerMinute: pcfg.MaxRequestsPerMinute,
		}
		var p providers.Provider
		switch name {
		case "openai":
			p = providers.NewOpenAI(opts)
		case "anthropic":
			p = providers.NewAnthropic(opts)
		case "google":
			p = providers.NewGemini(opts)
		case "groq":
			p = providers.NewGroq(opts)
		case "mistral":
			p = providers.NewMistral(opts)
		case "openrouter":
			p = providers.NewOpenRouter(opts)
		default:
			continue
		}
		loaded[name] = p
		slog.Info("router.provider_loaded", "provider", name)
	}
	if len(loaded) == 0 {
		slog.Warn("router.no_providers", "hint", "set API keys in env or config.yaml")
	}
	return newWith(cfg, st, loaded)
}

// NewWithProviders builds a router over an explicit provider set.
func NewWithProviders(cfg *config.Config, st *store.Store, provs map[string]providers.Provider) *Router {
	return newWith(cfg, st, provs)
}

func newWith(cfg *config.Config, st *store.Store, provs map[string]providers.Provider) *Router {
	quota := make(map[string]float64, len(provs))
	for name := range provs {
		quota[name] = 1.0
	}
	return &Router{
		cfg:       cfg,
		store:     st,
		providers: provs,
		quota:     quota,
		tracer:    otel.Tracer("teamclaw/router"),
	}
}

// CompleteOptions parameterizes one routed completion call.
type CompleteOptions struct {
	Messages         []providers.Message
	AgentRole        string
	TaskType         string // "complex", "simple", "fast"
	MaxTokens        int
	Temperature      float64
	ProviderOverride string
	ModelOverride    string
}

// Complete routes to the best provider and returns the content string.
func (r *Router) Complete(ctx context.Context, opts CompleteOptions) (string, error) {
	resp, err := r.CompleteFull(ctx, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteFull routes to the best provider, falls back on failure, logs
// the cost, and enforces the daily budget both before and after.
func (r *Router) CompleteFull(ctx context.Context, opts CompleteOptions) (*providers.Response, error) {
	ctx, span := r.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("agent.role", opts.AgentRole),
		attribute.String("task.type", opts.TaskType),
	))
	defer span.End()

	if len(r.providers) == 0 {
		return nil, fmt.Errorf("%w: no LLM providers available, configure API keys", ErrProviderExhausted)
	}

	// Pre-flight: refuse outright when the budget is already spent.
	if err := r.checkBudgetPreflight(); err != nil {
		return nil, err
	}

	var ordered []string
	if opts.ProviderOverride != "" {
		if _, ok := r.providers[opts.ProviderOverride]; ok {
			ordered = []string{opts.ProviderOverride}
		}
	}
	if ordered == nil {
		ordered = r.ranked()
		if len(ordered) > fallbackDepth {
			ordered = ordered[:fallbackDepth]
		}
	}

	modelMap, ok := taskModelMap[opts.TaskType]
	if !ok {
		modelMap = taskModelMap["simple"]
	}

	var lastErr error = ErrProviderExhausted
	for _, name := range ordered {
		prov := r.providers[name]
		model := opts.ModelOverride
		if model == "" {
			if m, ok := modelMap[name]; ok {
				model = m
			} else {
				model = prov.DefaultModel()
			}
		}

		resp, err := prov.Complete(ctx, providers.Request{
			Messages:    opts.Messages,
			Model:       model,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		})
		if err != nil {
			slog.Warn("router.provider_failed", "provider", name, "error", err)
			r.penalize(name)
			lastErr = err
			continue
		}

		span.SetAttributes(
			attribute.String("llm.provider", name),
			attribute.String("llm.model", model),
			attribute.Int("llm.input_tokens", resp.InputTokens),
			attribute.Int("llm.output_tokens", resp.OutputTokens),
			attribute.Float64("llm.cost_usd", resp.CostUSD),
		)

		if err := r.recordAndCheckBudget(opts.AgentRole, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	return nil, fmt.Errorf("all providers exhausted: %w", lastErr)
}

// checkBudgetPreflight refuses a new call when daily spend has already
// reached the daily budget.
func (r *Router) checkBudgetPreflight() error {
	if r.store == nil || r.cfg.Budget.DailyUSD <= 0 {
		return nil
	}
	daily, err := r.store.GetDailyCost()
	if err != nil {
		return fmt.Errorf("read daily cost: %w", err)
	}
	if daily >= r.cfg.Budget.DailyUSD {
		return fmt.Errorf("%w: daily budget exhausted: $%.4f / $%.2f",
			ErrProviderExhausted, daily, r.cfg.Budget.DailyUSD)
	}
	return nil
}

// recordAndCheckBudget logs the cost row, then trips the budget if the
// new total crossed the line; the cost of the tripping call is kept.
func (r *Router) recordAndCheckBudget(agentRole string, resp *providers.Response) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.LogCost(agentRole, resp.Provider, resp.Model,
		resp.InputTokens, resp.OutputTokens, resp.CostUSD, resp.LatencyMS); err != nil {
		slog.Warn("router.cost_log_failed", "error", err)
	}

	limit := r.cfg.Budget.DailyUSD
	if limit <= 0 {
		return nil
	}
	daily, err := r.store.GetDailyCost()
	if err != nil {
		return nil
	}
	if daily >= limit {
		return fmt.Errorf("%w: daily budget exhausted: $%.4f / $%.2f", ErrProviderExhausted, daily, limit)
	}
	if pct := daily / limit * 100; pct >= r.cfg.Budget.AlertThresholdPercent {
		slog.Warn("router.budget_alert", "used_percent", fmt.Sprintf("%.1f", pct),
			"daily_usd", daily, "limit_usd", limit)
	}
	return nil
}

// score implements the routing formula:
// priority*0.3 + (1-norm_cost)*0.3 + (1-norm_latency)*0.2 + quota*0.2.
func (r *Router) score(name string) float64 {
	pcfg := r.cfg.Provider(name)

	maxCost := 0.0
	for pname := range r.providers {
		if c := r.cfg.Provider(pname).CostPer1KInput; c > maxCost {
			maxCost = c
		}
	}
	normCost := 0.0
	if maxCost > 0 {
		normCost = pcfg.CostPer1KInput / maxCost
	}

	maxLat := 0
	for _, p := range r.providers {
		if l := p.AvgLatencyMS(); l > maxLat {
			maxLat = l
		}
	}
	normLat := 0.0
	if maxLat > 0 {
		normLat = float64(r.providers[name].AvgLatencyMS()) / float64(maxLat)
	}

	return pcfg.Priority*0.3 + (1-normCost)*0.3 + (1-normLat)*0.2 + r.quotaFor(name)*0.2
}

// ranked returns provider names sorted by descending score. The sort
// is stable over registration order, so equal scores resolve to the
// earlier-registered provider.
func (r *Router) ranked() []string {
	names := make([]string, 0, len(r.providers))
	seen := make(map[string]bool, len(r.providers))
	for _, name := range config.ProviderOrder() {
		if _, ok := r.providers[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	extra := make([]string, 0)
	for name := range r.providers {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	sort.SliceStable(names, func(i, j int) bool {
		return r.score(names[i]) > r.score(names[j])
	})
	return names
}

func (r *Router) penalize(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.quota[name] - quotaPenalty
	if q < 0 {
		q = 0
	}
	r.quota[name] = q
}

func (r *Router) quotaFor(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quota[name]
}

// AvailableProviders lists the loaded provider names, ranked.
func (r *Router) AvailableProviders() []string {
	return r.ranked()
}
