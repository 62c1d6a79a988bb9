// Package agent holds the worker chassis and the agent roles that run
// on it: the CEO coordinator and the specialist experts it delegates
// to. Every agent is a Worker hosted by a Chassis; the chassis owns the
// signal loop, heartbeats, crash recovery, and task bookkeeping so the
// roles only implement HandleTask.
package agent

import (
	"context"

	"github.com/nextlevelbuilder/teamclaw/internal/router"
)

// Worker is one agent role. HandleTask returns a result payload; an
// error marks the task failed and is reported as {"error": ...}.
type Worker interface {
	Role() string
	Description() string
	HandleTask(ctx context.Context, task map[string]any) (map[string]any, error)
	// RecoverState rebuilds in-memory state from the store after a
	// restart. Most roles keep nothing outside SQLite and no-op.
	RecoverState(ctx context.Context) error
}

// LLM is the completion surface workers need from the router. Narrow
// so tests can substitute a scripted model.
type LLM interface {
	Complete(ctx context.Context, opts router.CompleteOptions) (string, error)
}

// cfoParams reads the coordinator-injected model parameters from a
// task payload. Zero values mean the worker's own defaults apply.
func cfoParams(task map[string]any) (taskType string, maxTokens int) {
	taskType, _ = task["_task_type"].(string)
	switch v := task["_max_tokens"].(type) {
	case int:
		maxTokens = v
	case float64:
		maxTokens = int(v)
	}
	return taskType, maxTokens
}

// taskString reads the first non-empty string among the given keys.
func taskString(task map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := task[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
