package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// migrateCmd applies pending schema migrations. Opening the store
// already migrates; this exists for running migrations without
// starting anything else, e.g. after an upgrade.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st, err := store.Open(cfg.Memory.DBPath, cfg.Memory.ShortTermMaxLen)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
			st.Close()
			fmt.Printf("Schema up to date at %s\n", cfg.Memory.DBPath)
		},
	}
}
