package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nextlevelbuilder/teamclaw/internal/agent"
	"github.com/nextlevelbuilder/teamclaw/internal/automation"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
	"github.com/nextlevelbuilder/teamclaw/internal/telemetry"
	"github.com/nextlevelbuilder/teamclaw/internal/tools"
)

// runtime bundles the components an in-process coordinator needs.
type runtime struct {
	cfg      *config.Config
	store    *store.Store
	router   *router.Router
	registry *tools.Registry
	ceo      *agent.CEO

	shutdownTracing func(context.Context) error
}

// newRuntime wires store, router, tools, and the CEO coordinator.
// Fatal when no provider is configured: the coordinator cannot answer
// anything without a model.
func newRuntime(cfg *config.Config) *runtime {
	if len(cfg.EnabledProviders()) == 0 {
		fmt.Fprintln(os.Stderr, "No LLM provider configured. Run `teamclaw onboard` or set an API key (e.g. OPENAI_API_KEY).")
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry.init_failed", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	st := openStore(cfg)
	rt := router.New(cfg, st)
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, cfg.Workspace, automation.NewClient(cfg.N8NWebhookBase))
	ceo := agent.NewCEO(cfg, st, rt, reg)

	return &runtime{
		cfg:             cfg,
		store:           st,
		router:          rt,
		registry:        reg,
		ceo:             ceo,
		shutdownTracing: shutdownTracing,
	}
}

func (r *runtime) close() {
	r.ceo.Close()
	r.shutdownTracing(context.Background())
	r.store.Close()
}

// handleMessage runs one Chairman message through the CEO and returns
// the reply text.
func (r *runtime) handleMessage(ctx context.Context, sessionID, message string) (string, error) {
	out, err := r.ceo.HandleTask(ctx, map[string]any{
		"message":    message,
		"session_id": sessionID,
	})
	if err != nil {
		return "", err
	}
	result, _ := out["result"].(string)
	return result, nil
}
