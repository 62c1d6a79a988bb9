package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default returns a Config with sensible defaults. Paths live under
// ~/.teamclaw; the workspace is created on first use.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".teamclaw")
	return &Config{
		Workspace:  filepath.Join(base, "workspace"),
		DataDir:    filepath.Join(base, "data"),
		LogDir:     filepath.Join(base, "logs"),
		PresetsDir: filepath.Join(base, "presets"),
		LogLevel:   "info",
		Watchdog: WatchdogConfig{
			PollIntervalSeconds:     5,
			CPUKillThresholdPercent: 90.0,
			CPUKillSustainedSeconds: 10,
			RAMKillThresholdMB:      512,
			HeartbeatTimeoutSeconds: 15,
			RestartBackoffSeconds:   []int{5, 15, 60},
			MaxRestarts:             3,
		},
		Memory: MemoryConfig{
			DBPath:                  filepath.Join(base, "data", "teamclaw.db"),
			ShortTermMaxLen:         20,
			SummarizeEveryNTurns:    15,
			SummaryCompressionRatio: 0.33,
		},
		Budget: BudgetConfig{
			DailyUSD:              1.0,
			WeeklyUSD:             5.0,
			AlertThresholdPercent: 80.0,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "teamclaw",
		},
		AgentBudgets: map[string]AgentBudget{
			"ceo":          {MaxInputTokens: 4096, MaxOutputTokens: 1024, ContextTurns: 10},
			"researcher":   {MaxInputTokens: 3000, MaxOutputTokens: 1500, ContextTurns: 6},
			"coder":        {MaxInputTokens: 3000, MaxOutputTokens: 2048, ContextTurns: 4},
			"communicator": {MaxInputTokens: 2000, MaxOutputTokens: 512, ContextTurns: 4},
		},
		Providers:             map[string]*ProviderConfig{},
		DefaultModelTask:      "complex",
		MaxToolIterations:     5,
		SandboxTimeoutSeconds: 5,
	}
}

// Load reads config from a YAML file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to a YAML file, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnvOverrides overlays env vars onto the config. A provider key in
// the environment both sets the key and enables the provider.
func (c *Config) applyEnvOverrides() {
	providerKeys := map[string]string{
		"OPENAI_API_KEY":     "openai",
		"ANTHROPIC_API_KEY":  "anthropic",
		"GOOGLE_API_KEY":     "google",
		"GROQ_API_KEY":       "groq",
		"MISTRAL_API_KEY":    "mistral",
		"OPENROUTER_API_KEY": "openrouter",
	}
	for env, name := range providerKeys {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		p, ok := c.Providers[name]
		if !ok || p == nil {
			p = &ProviderConfig{}
			if c.Providers == nil {
				c.Providers = map[string]*ProviderConfig{}
			}
			c.Providers[name] = p
		}
		p.APIKey = v
		p.Enabled = true
	}

	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("TELEGRAM_BOT_TOKEN", &c.TelegramToken)
	envStr("N8N_WEBHOOK_BASE", &c.N8NWebhookBase)
	envStr("TEAMCLAW_WORKSPACE", &c.Workspace)
	envStr("TEAMCLAW_DB_PATH", &c.Memory.DBPath)
	envStr("TEAMCLAW_LOG_LEVEL", &c.LogLevel)

	envStr("TEAMCLAW_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("TEAMCLAW_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	if v := os.Getenv("TEAMCLAW_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
}

// EnsureDirs creates the workspace, data, log, and preset directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Workspace, c.DataDir, c.LogDir, c.PresetsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
