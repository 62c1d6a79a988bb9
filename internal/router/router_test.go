package router

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// fakeProvider returns canned responses or a fixed error.
type fakeProvider struct {
	name    string
	latency int
	cost    float64
	err     error
	calls   int
}

func (f *fakeProvider) Complete(ctx context.Context, req providers.Request) (*providers.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Response{
		Content:      "ok from " + f.name,
		InputTokens:  100,
		OutputTokens: 50,
		CostUSD:      f.cost,
		LatencyMS:    f.latency,
		Model:        req.Model,
		Provider:     f.name,
	}, nil
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) Models() []string     { return []string{"m"} }
func (f *fakeProvider) DefaultModel() string { return "m" }
func (f *fakeProvider) AvgLatencyMS() int {
	if f.latency == 0 {
		return 1000
	}
	return f.latency
}

func testConfig(t *testing.T, daily float64) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Budget.DailyUSD = daily
	cfg.Budget.AlertThresholdPercent = 80
	for _, name := range []string{"alpha", "beta", "gamma"} {
		cfg.Providers[name] = &config.ProviderConfig{
			Enabled: true, APIKey: "k", Priority: 0.5, CostPer1KInput: 0.001,
		}
	}
	return cfg
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 20)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestFallbackChain verifies a failing provider is skipped, penalized,
// and the next in the chain serves the call.
func TestFallbackChain(t *testing.T) {
	cfg := testConfig(t, 5)
	cfg.Providers["alpha"].Priority = 1.0 // ranks first
	cfg.Providers["beta"].Priority = 0.5

	alpha := &fakeProvider{name: "alpha", err: errors.New("upstream down")}
	beta := &fakeProvider{name: "beta", cost: 0.0001}
	r := NewWithProviders(cfg, nil, map[string]providers.Provider{
		"alpha": alpha, "beta": beta,
	})

	resp, err := r.CompleteFull(context.Background(), CompleteOptions{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
		TaskType: "simple",
	})
	if err != nil {
		t.Fatalf("CompleteFull() error = %v", err)
	}
	if resp.Provider != "beta" {
		t.Errorf("served by %q, want beta", resp.Provider)
	}
	if alpha.calls != 1 {
		t.Errorf("alpha calls = %d, want 1", alpha.calls)
	}
	if q := r.quotaFor("alpha"); q != 0.7 {
		t.Errorf("alpha quota = %v, want 0.7 after one penalty", q)
	}
}

// TestAllProvidersFail verifies the exhausted error wraps the sentinel.
func TestAllProvidersFail(t *testing.T) {
	cfg := testConfig(t, 5)
	r := NewWithProviders(cfg, nil, map[string]providers.Provider{
		"alpha": &fakeProvider{name: "alpha", err: errors.New("down")},
		"beta":  &fakeProvider{name: "beta", err: errors.New("down")},
	})

	_, err := r.CompleteFull(context.Background(), CompleteOptions{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

// TestNoProviders verifies the sentinel error without any provider.
func TestNoProviders(t *testing.T) {
	cfg := testConfig(t, 5)
	r := NewWithProviders(cfg, nil, map[string]providers.Provider{})
	_, err := r.CompleteFull(context.Background(), CompleteOptions{})
	if !errors.Is(err, ErrProviderExhausted) {
		t.Errorf("error = %v, want ErrProviderExhausted", err)
	}
}

// TestBudgetTrip verifies the call that crosses the daily budget keeps
// its cost row but returns the exhausted error, and the next call is
// refused before any provider fires.
func TestBudgetTrip(t *testing.T) {
	cfg := testConfig(t, 0.001)
	st := testStore(t)

	prov := &fakeProvider{name: "alpha", cost: 0.0008}
	r := NewWithProviders(cfg, st, map[string]providers.Provider{"alpha": prov})

	opts := CompleteOptions{
		Messages:  []providers.Message{{Role: "user", Content: "hi"}},
		AgentRole: "ceo",
		TaskType:  "simple",
	}

	// First call: 0.0008 spent, under budget.
	if _, err := r.CompleteFull(context.Background(), opts); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	// Second call crosses 0.001: cost logged, then tripped.
	_, err := r.CompleteFull(context.Background(), opts)
	if !errors.Is(err, ErrProviderExhausted) {
		t.Fatalf("second call error = %v, want budget trip", err)
	}
	if !strings.Contains(err.Error(), "daily budget exhausted") {
		t.Errorf("error = %v", err)
	}

	daily, err := st.GetDailyCost()
	if err != nil {
		t.Fatal(err)
	}
	if daily < 0.0015 || daily > 0.0017 {
		t.Errorf("daily cost = %v, want both rows kept", daily)
	}

	// Third call: refused pre-flight, provider never called.
	before := prov.calls
	_, err = r.CompleteFull(context.Background(), opts)
	if !errors.Is(err, ErrProviderExhausted) {
		t.Fatalf("third call error = %v, want pre-flight refusal", err)
	}
	if prov.calls != before {
		t.Errorf("provider called %d times after trip, want none", prov.calls-before)
	}
}

// TestProviderOverride verifies the override bypasses ranking.
func TestProviderOverride(t *testing.T) {
	cfg := testConfig(t, 5)
	cfg.Providers["alpha"].Priority = 1.0

	beta := &fakeProvider{name: "beta"}
	r := NewWithProviders(cfg, nil, map[string]providers.Provider{
		"alpha": &fakeProvider{name: "alpha"},
		"beta":  beta,
	})

	resp, err := r.CompleteFull(context.Background(), CompleteOptions{
		Messages:         []providers.Message{{Role: "user", Content: "hi"}},
		ProviderOverride: "beta",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Provider != "beta" || beta.calls != 1 {
		t.Errorf("override not honored: %+v", resp)
	}
}

// TestScoring_PriorityWins verifies a higher-priority provider ranks
// first when cost, latency, and quota are equal.
func TestScoring_PriorityWins(t *testing.T) {
	cfg := testConfig(t, 5)
	cfg.Providers["alpha"].Priority = 0.9
	cfg.Providers["beta"].Priority = 0.2

	r := NewWithProviders(cfg, nil, map[string]providers.Provider{
		"alpha": &fakeProvider{name: "alpha"},
		"beta":  &fakeProvider{name: "beta"},
	})
	ranked := r.ranked()
	if ranked[0] != "alpha" {
		t.Errorf("ranked = %v, want alpha first", ranked)
	}
}

// TestScoring_TieBreaksByRegistrationOrder verifies equal scores
// resolve by canonical provider order, not alphabetically. openai
// registers before anthropic but sorts after it.
func TestScoring_TieBreaksByRegistrationOrder(t *testing.T) {
	cfg := testConfig(t, 5)
	for _, name := range []string{"openai", "anthropic"} {
		cfg.Providers[name] = &config.ProviderConfig{
			Enabled: true, APIKey: "k", Priority: 0.5, CostPer1KInput: 0.001,
		}
	}

	r := NewWithProviders(cfg, nil, map[string]providers.Provider{
		"openai":    &fakeProvider{name: "openai"},
		"anthropic": &fakeProvider{name: "anthropic"},
	})
	ranked := r.ranked()
	if ranked[0] != "openai" {
		t.Errorf("ranked = %v, want openai first on a tie", ranked)
	}
}

// TestTaskModelMap verifies tier lookup falls back to simple for an
// unknown tier.
func TestTaskModelMap(t *testing.T) {
	cfg := testConfig(t, 5)
	prov := &fakeProvider{name: "alpha"}
	r := NewWithProviders(cfg, nil, map[string]providers.Provider{"alpha": prov})

	resp, err := r.CompleteFull(context.Background(), CompleteOptions{
		Messages: []providers.Message{{Role: "user", Content: "x"}},
		TaskType: "nonsense",
	})
	if err != nil {
		t.Fatal(err)
	}
	// alpha is not in the tier maps, so its default model is used.
	if resp.Model != "m" {
		t.Errorf("model = %q, want provider default", resp.Model)
	}
}
