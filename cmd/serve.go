package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram front-end against an in-process coordinator",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfg := loadConfig()
	if cfg.TelegramToken == "" {
		fmt.Fprintln(os.Stderr, "No telegram_token configured (or TELEGRAM_BOT_TOKEN set).")
		os.Exit(1)
	}

	rt := newRuntime(cfg)
	defer rt.close()

	handler := func(ctx context.Context, platform, userID, text string) (string, error) {
		sessionID := store.MakeSessionID(platform, userID, "")
		return rt.handleMessage(ctx, sessionID, text)
	}

	ch, err := telegram.New(cfg.TelegramToken, cfg.TelegramAllowedUsers, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating telegram channel: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting telegram channel: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Telegram channel running. Ctrl-C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	ch.Stop(context.Background())
}
