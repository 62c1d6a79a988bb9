package tools

import (
	"context"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/sandbox"
)

// ShellExecTool runs a single command line inside the workspace through
// the bounded subprocess runner.
type ShellExecTool struct {
	workspace string
}

func NewShellExecTool(workspace string) *ShellExecTool {
	return &ShellExecTool{workspace: workspace}
}

func (t *ShellExecTool) Name() string { return "shell_exec" }
func (t *ShellExecTool) Description() string {
	return "Execute a shell command inside the workspace sandbox (5s timeout, no network)."
}
func (t *ShellExecTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Shell command to run"},
			"cwd":     map[string]any{"type": "string", "description": "Working dir (relative to workspace)"},
			"timeout": map[string]any{"type": "integer", "description": "Timeout in seconds (max 30)"},
		},
		"required": []string{"command"},
	}
}

func (t *ShellExecTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	command := argString(args, "command", "")
	if command == "" {
		return Errorf("command is required")
	}

	argv, err := sandbox.Tokenize(command)
	if err != nil {
		return Errorf("Invalid command: %v", err)
	}
	if len(argv) == 0 {
		return Errorf("command is empty")
	}

	dir := t.workspace
	if cwd := argString(args, "cwd", ""); cwd != "" {
		dir, err = sandbox.SafePath(t.workspace, cwd)
		if err != nil {
			return Errorf("%v", err)
		}
	}

	timeout := time.Duration(argInt(args, "timeout", 5)) * time.Second
	res, err := sandbox.Run(ctx, argv, dir, timeout)
	if err != nil {
		return Errorf("%v", err)
	}
	return execResultMap(res)
}

func execResultMap(res *sandbox.ExecResult) map[string]any {
	return map[string]any{
		"returncode": res.ExitCode,
		"stdout":     res.Stdout,
		"stderr":     res.Stderr,
		"timed_out":  res.TimedOut,
	}
}
