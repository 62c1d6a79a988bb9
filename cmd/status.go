package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent fleet state",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st := openStore(cfg)
			defer st.Close()
			printAgentStates(st)
		},
	}
}

func printAgentStates(st *store.Store) {
	states, err := st.GetAllAgentStates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading agent state: %v\n", err)
		return
	}
	if len(states) == 0 {
		fmt.Println("No agents have run yet.")
		return
	}
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		pid := "-"
		if s.PID > 0 {
			pid = strconv.Itoa(s.PID)
		}
		task := s.LastTaskID
		if task == "" {
			task = "-"
		}
		rows = append(rows, []string{s.AgentRole, s.Status, pid, task, s.UpdatedAt})
	}
	fmt.Print(renderTable([]string{"ROLE", "STATUS", "PID", "LAST TASK", "UPDATED"}, rows))
}
