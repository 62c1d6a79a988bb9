package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/board"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

func costCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cost",
		Short: "Show LLM spend against the configured budget",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st := openStore(cfg)
			defer st.Close()
			printCostReport(cfg, st)
		},
	}
}

func printCostReport(cfg *config.Config, st *store.Store) {
	report := board.NewCFO(cfg, st).Report()
	rows := [][]string{
		{"Today", formatUSD(report.DailyUsed), formatUSD(report.DailyLimit), fmt.Sprintf("%.1f%%", report.DailyPct)},
		{"This week", formatUSD(report.WeeklyUsed), formatUSD(cfg.Budget.WeeklyUSD), ""},
	}
	fmt.Print(renderTable([]string{"PERIOD", "SPENT", "LIMIT", "USED"}, rows))
	fmt.Printf("Status: %s\n", report.Status)
}
