package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const cliUserID = "local_user"

func chatCmd() *cobra.Command {
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the CEO coordinator in a terminal REPL",
		Long: `Interactive REPL against an in-process coordinator. A returning
user resumes their most recent session unless --session says otherwise.

Commands inside the REPL:
  /status   show agent states
  /cost     show budget usage
  /clear    drop the short-term context window
  /exit     leave (also /quit or Ctrl-D)`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(sessionKey)
		},
	}
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "session id (default: resume latest)")
	return cmd
}

func runChat(sessionKey string) {
	cfg := loadConfig()
	rt := newRuntime(cfg)
	defer rt.close()

	sessionID := sessionKey
	if sessionID == "" {
		if latest, err := rt.store.FindLatestSession(cliUserID); err == nil && latest != "" {
			sessionID = latest
		} else {
			sessionID = store.MakeSessionID("cli", cliUserID, "")
		}
	}

	fmt.Printf("TeamClaw %s — session %s\n", Version, sessionID)
	fmt.Println("Type a message, or /exit to quit.")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if handleSlashCommand(rt, sessionID, line) {
				return
			}
			continue
		}

		reply, err := rt.handleMessage(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}

// handleSlashCommand runs a REPL command; reports whether to exit.
func handleSlashCommand(rt *runtime, sessionID, line string) bool {
	switch line {
	case "/exit", "/quit":
		fmt.Println("Bye.")
		return true
	case "/status":
		printAgentStates(rt.store)
	case "/cost":
		printCostReport(rt.cfg, rt.store)
	case "/clear":
		rt.store.ClearShortTerm(sessionID)
		fmt.Println("Short-term context cleared.")
	default:
		fmt.Printf("Unknown command %s (try /status, /cost, /clear, /exit)\n", line)
	}
	return false
}
