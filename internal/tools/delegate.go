package tools

import "context"

// Dispatcher routes a delegated sub-task to an expert role and blocks
// until the result comes back. The registry does not know the dispatch
// mechanism; the coordinator injects it at startup.
type Dispatcher func(ctx context.Context, agentRole string, task map[string]any) map[string]any

// DelegateTaskTool hands a task to a specialist agent through the
// injected dispatcher. Without one it returns an error result.
type DelegateTaskTool struct {
	dispatcher Dispatcher
}

func NewDelegateTaskTool() *DelegateTaskTool {
	return &DelegateTaskTool{}
}

// SetDispatcher wires the coordinator's dispatch closure.
func (t *DelegateTaskTool) SetDispatcher(d Dispatcher) {
	t.dispatcher = d
}

func (t *DelegateTaskTool) Name() string { return "delegate_task" }
func (t *DelegateTaskTool) Description() string {
	return "Delegate a task to a specialist agent. Use agent='researcher' for web research, " +
		"'coder' for code/files, 'communicator' for message drafting."
}
func (t *DelegateTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{
				"type":        "string",
				"enum":        []string{"researcher", "coder", "communicator"},
				"description": "Target agent role",
			},
			"task": map[string]any{
				"type":        "object",
				"description": "Task payload. Include 'message' or role-specific keys.",
			},
		},
		"required": []string{"agent", "task"},
	}
}

func (t *DelegateTaskTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	if t.dispatcher == nil {
		return Errorf("delegate_task has no dispatcher")
	}
	agent := argString(args, "agent", "")
	task := argMap(args, "task")
	if agent == "" || task == nil {
		return Errorf("agent and task are required")
	}
	return t.dispatcher(ctx, agent, task)
}
