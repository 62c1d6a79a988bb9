package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/telemetry"
	"github.com/nextlevelbuilder/teamclaw/internal/watchdog"
)

// workerRoles is the fleet the supervisor manages. The CEO stays
// enabled so it can pick up queued work; specialists spawn alongside.
var workerRoles = []string{"ceo", "researcher", "coder", "communicator"}

func watchdogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watchdog",
		Short: "Run the process supervisor in the foreground",
		Long: `Spawns one child process per agent role and supervises them:
heartbeat timeouts, RAM and CPU kill thresholds, restart with backoff,
and scheduled database maintenance.`,
		Run: func(cmd *cobra.Command, args []string) {
			runWatchdog()
		},
	}
}

func runWatchdog() {
	cfg := loadConfig()

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry.init_failed", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	st := openStore(cfg)
	defer st.Close()

	w := watchdog.New(cfg, st)
	for _, role := range workerRoles {
		w.Register(role, watchdog.ExecFactory(role, "--config", resolveConfigPath()), true)
	}
	w.StartAll()
	fmt.Println("Watchdog running. Ctrl-C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Stopping fleet...")
	w.StopAll()
}
