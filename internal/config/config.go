package config

// Config is the root configuration for the TeamClaw runtime.
// Loaded once at the entry point and threaded explicitly through
// constructors; no package-level mutable state.
type Config struct {
	// Paths
	Workspace  string `yaml:"workspace"`
	DataDir    string `yaml:"data_dir"`
	LogDir     string `yaml:"log_dir"`
	PresetsDir string `yaml:"presets_dir"`

	// System
	LogLevel string `yaml:"log_level"`

	// Components
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Memory    MemoryConfig    `yaml:"memory"`
	Budget    BudgetConfig    `yaml:"budget"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Per-role token budgets
	AgentBudgets map[string]AgentBudget `yaml:"agent_budgets"`

	// Providers
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// Interface
	TelegramToken        string  `yaml:"telegram_token"`
	TelegramAllowedUsers []int64 `yaml:"telegram_allowed_users"`
	N8NWebhookBase       string  `yaml:"n8n_webhook_base"`

	// Agent defaults
	DefaultModelTask      string `yaml:"default_model_task"` // complex | simple | fast
	MaxToolIterations     int    `yaml:"max_tool_iterations"`
	SandboxTimeoutSeconds int    `yaml:"sandbox_timeout_seconds"`
}

// ProviderConfig configures one LLM provider.
type ProviderConfig struct {
	Enabled              bool     `yaml:"enabled"`
	APIKey               string   `yaml:"api_key"`
	Models               []string `yaml:"models"`
	Priority             float64  `yaml:"priority"`
	CostPer1KInput       float64  `yaml:"cost_per_1k_input"`
	CostPer1KOutput      float64  `yaml:"cost_per_1k_output"`
	MaxRequestsPerMinute int      `yaml:"max_requests_per_minute"`
	TimeoutSeconds       int      `yaml:"timeout_seconds"`
}

// WatchdogConfig tunes the process supervisor.
type WatchdogConfig struct {
	PollIntervalSeconds     int     `yaml:"poll_interval_seconds"`
	CPUKillThresholdPercent float64 `yaml:"cpu_kill_threshold_percent"`
	CPUKillSustainedSeconds int     `yaml:"cpu_kill_sustained_seconds"`
	RAMKillThresholdMB      int     `yaml:"ram_kill_threshold_mb"`
	HeartbeatTimeoutSeconds int     `yaml:"heartbeat_timeout_seconds"`
	RestartBackoffSeconds   []int   `yaml:"restart_backoff_seconds"`
	MaxRestarts             int     `yaml:"max_restarts"`
	// MaintenanceSchedule is a cron expression gating housekeeping in the
	// supervisor's poll loop. Empty disables scheduled maintenance.
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// MemoryConfig tunes the layered memory system.
type MemoryConfig struct {
	DBPath                  string  `yaml:"db_path"`
	ShortTermMaxLen         int     `yaml:"short_term_maxlen"`
	SummarizeEveryNTurns    int     `yaml:"summarize_every_n_turns"`
	SummaryCompressionRatio float64 `yaml:"summary_compression_ratio"`
}

// BudgetConfig is the hard dollar ceiling for LLM spend.
type BudgetConfig struct {
	DailyUSD              float64 `yaml:"daily_usd"`
	WeeklyUSD             float64 `yaml:"weekly_usd"`
	AlertThresholdPercent float64 `yaml:"alert_threshold_percent"`
}

// AgentBudget is the per-role token allowance.
type AgentBudget struct {
	MaxInputTokens  int `yaml:"max_input_tokens"`
	MaxOutputTokens int `yaml:"max_output_tokens"`
	ContextTurns    int `yaml:"context_turns"`
}

// TelemetryConfig configures OpenTelemetry export for traces.
// When disabled the tracer is a no-op.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`     // e.g. "localhost:4317"
	Protocol    string `yaml:"protocol"`     // "grpc" (default) or "http"
	Insecure    bool   `yaml:"insecure"`     // skip TLS (local dev)
	ServiceName string `yaml:"service_name"` // default "teamclaw"
}

// Provider returns the config for a named provider, defaulting to a
// disabled zero-value entry when absent.
func (c *Config) Provider(name string) *ProviderConfig {
	if p, ok := c.Providers[name]; ok && p != nil {
		return p
	}
	return &ProviderConfig{}
}

// AgentBudgetFor returns the token budget for a role, falling back to
// the CEO's defaults for unknown roles.
func (c *Config) AgentBudgetFor(role string) AgentBudget {
	if b, ok := c.AgentBudgets[role]; ok {
		return b
	}
	return AgentBudget{MaxInputTokens: 4096, MaxOutputTokens: 1024, ContextTurns: 10}
}

// EnabledProviders returns the names of providers with a key configured,
// in deterministic registration order.
func (c *Config) EnabledProviders() []string {
	var names []string
	for _, name := range providerOrder {
		if p, ok := c.Providers[name]; ok && p != nil && p.Enabled && p.APIKey != "" {
			names = append(names, name)
		}
	}
	return names
}

// providerOrder fixes iteration order over the providers map; ties in
// router scoring break by this order.
var providerOrder = []string{"openai", "anthropic", "google", "groq", "mistral", "openrouter"}

// ProviderOrder returns the canonical provider registration order.
func ProviderOrder() []string {
	out := make([]string, len(providerOrder))
	copy(out, providerOrder)
	return out
}
