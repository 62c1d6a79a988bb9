package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/agent"
	"github.com/nextlevelbuilder/teamclaw/internal/automation"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/tools"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "agent",
		Short:  "Worker process entry points",
		Hidden: true,
	}
	cmd.AddCommand(agentRunCmd())
	return cmd
}

// agentRunCmd is the child-process entry the supervisor re-execs. It
// speaks JSON-line signals over stdin/stdout and must print nothing
// else to stdout.
func agentRunCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:    "run",
		Short:  "Run one worker over stdio (spawned by the watchdog)",
		Hidden: true,
		Run: func(cmd *cobra.Command, args []string) {
			runAgent(role)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "worker role to run")
	cmd.MarkFlagRequired("role")
	return cmd
}

func runAgent(role string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	rt := router.New(cfg, st)
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, cfg.Workspace, automation.NewClient(cfg.N8NWebhookBase))

	var worker agent.Worker
	switch role {
	case "ceo":
		ceo := agent.NewCEO(cfg, st, rt, reg)
		defer ceo.Close()
		worker = ceo
	case "researcher":
		worker = agent.NewResearcher(cfg, st, rt, reg)
	case "coder":
		worker = agent.NewCoder(cfg, st, rt)
	case "communicator":
		worker = agent.NewCommunicator(cfg, st, rt)
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", role)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := agent.NewChassis(worker, cfg, st, nil, nil)
	if err := agent.RunStdio(ctx, c, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "worker exited: %v\n", err)
		os.Exit(1)
	}
}
