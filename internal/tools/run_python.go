package tools

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/sandbox"
)

const scratchScript = "_tc_run.py"

// RunPythonTool executes Python code in the workspace sandbox. The code
// is written to a scratch file, run through the subprocess runner, and
// the file is removed in all cases.
type RunPythonTool struct {
	workspace string
	python    string
}

func NewRunPythonTool(workspace string) *RunPythonTool {
	return &RunPythonTool{workspace: workspace, python: "python3"}
}

func (t *RunPythonTool) Name() string { return "run_python" }
func (t *RunPythonTool) Description() string {
	return "Execute Python code in the workspace sandbox. Returns stdout, stderr, and returncode. " +
		"Timeout default 10s, max 30s. No network access from sandboxed code."
}
func (t *RunPythonTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":    map[string]any{"type": "string", "description": "Python source code to execute"},
			"timeout": map[string]any{"type": "integer", "description": "Max execution seconds (default 10, max 30)", "default": 10},
		},
		"required": []string{"code"},
	}
}

func (t *RunPythonTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	code, ok := args["code"].(string)
	if !ok || code == "" {
		return Errorf("code is required")
	}
	timeout := time.Duration(argInt(args, "timeout", 10)) * time.Second

	script := filepath.Join(t.workspace, scratchScript)
	if err := os.WriteFile(script, []byte(code), 0o644); err != nil {
		return Errorf("write script: %v", err)
	}
	defer os.Remove(script)

	res, err := sandbox.Run(ctx, []string{t.python, script}, t.workspace, timeout)
	if err != nil {
		return map[string]any{"returncode": -1, "stdout": "", "stderr": err.Error(), "timed_out": false}
	}
	return execResultMap(res)
}
