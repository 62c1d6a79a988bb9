package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive first-run setup",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

func runOnboard() {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var (
		provider  string
		apiKey    string
		tgToken   = cfg.TelegramToken
		budgetStr = strconv.FormatFloat(cfg.Budget.DailyUSD, 'f', 2, 64)
		save      = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("LLM provider").
				Description("Which provider should the router use first?").
				Options(huh.NewOptions(config.ProviderOrder()...)...).
				Value(&provider),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Leave empty to skip the Telegram front-end.").
				Value(&tgToken),
			huh.NewInput().
				Title("Daily budget (USD)").
				Validate(validateFloat).
				Value(&budgetStr),
			huh.NewConfirm().
				Title("Save configuration?").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Onboarding aborted: %v\n", err)
		os.Exit(1)
	}
	if !save {
		fmt.Println("Nothing saved.")
		return
	}

	if apiKey != "" {
		if cfg.Providers == nil {
			cfg.Providers = map[string]*config.ProviderConfig{}
		}
		p, ok := cfg.Providers[provider]
		if !ok || p == nil {
			p = &config.ProviderConfig{}
			cfg.Providers[provider] = p
		}
		p.APIKey = apiKey
		p.Enabled = true
	}
	cfg.TelegramToken = tgToken
	if v, err := strconv.ParseFloat(budgetStr, 64); err == nil {
		cfg.Budget.DailyUSD = v
	}

	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %s. Try `teamclaw chat`.\n", path)
}

func validateFloat(s string) error {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("not a number")
	}
	return nil
}
