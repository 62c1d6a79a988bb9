// Package cmd is the CLI surface. Every subcommand loads config, opens
// the store, and wires the components it needs; nothing global beyond
// the cobra tree itself.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/bootstrap"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/teamclaw/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "teamclaw",
	Short: "TeamClaw — local multi-agent assistant runtime",
	Long: `TeamClaw runs a small team of LLM agents on one machine:
a CEO coordinator that delegates to specialist workers under
budget and security governance, with SQLite-backed memory.`,
	Run: func(cmd *cobra.Command, args []string) {
		runChat("")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.teamclaw/config.yaml or $TEAMCLAW_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchdogCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(presetCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("teamclaw %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("TEAMCLAW_CONFIG"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".teamclaw", "config.yaml")
}

// loadConfig loads config, applies logging, and creates the runtime
// directories. Fatal on error: no command can run without it.
func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}
	if created, err := bootstrap.EnsureWorkspaceFiles(cfg.Workspace, cfg.PresetsDir); err != nil {
		slog.Warn("workspace.seed_failed", "error", err)
	} else if len(created) > 0 {
		slog.Info("workspace.seeded", "files", created)
	}
	return cfg
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.Memory.DBPath, cfg.Memory.ShortTermMaxLen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return st
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
