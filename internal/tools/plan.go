package tools

import (
	"context"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// CreatePlanTool breaks a goal into ordered pending tasks with chained
// dependency edges, so later steps wait for their predecessors.
type CreatePlanTool struct {
	store *store.Store
}

func NewCreatePlanTool(st *store.Store) *CreatePlanTool {
	return &CreatePlanTool{store: st}
}

func (t *CreatePlanTool) Name() string { return "create_plan" }
func (t *CreatePlanTool) Description() string {
	return "Break a complex goal into ordered subtasks for expert agents. " +
		"Each step specifies agent (cto/cko/communicator) and task payload. " +
		"Dependency links prevent steps from running before predecessors complete."
}
func (t *CreatePlanTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"goal": map[string]any{"type": "string"},
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"agent":           map[string]any{"type": "string", "description": "cto | cko | communicator"},
						"task":            map[string]any{"type": "object"},
						"depends_on_step": map[string]any{"type": "integer"},
					},
					"required": []string{"agent", "task"},
				},
			},
		},
		"required": []string{"goal", "steps"},
	}
}

func (t *CreatePlanTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	if t.store == nil {
		return Errorf("create_plan has no store")
	}
	goal := argString(args, "goal", "")
	rawSteps, ok := args["steps"].([]any)
	if !ok || len(rawSteps) == 0 {
		return Errorf("steps are required")
	}

	var taskIDs []string
	for _, raw := range rawSteps {
		step, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		agent := argString(step, "agent", "")
		payload := argMap(step, "task")
		if agent == "" || payload == nil {
			continue
		}
		taskID, err := t.store.CreateTask(agent, payload, "")
		if err != nil {
			return Errorf("create task: %v", err)
		}
		taskIDs = append(taskIDs, taskID)

		if depRaw, present := step["depends_on_step"]; present {
			depIdx := argInt(map[string]any{"i": depRaw}, "i", -1)
			if depIdx >= 0 && depIdx < len(taskIDs)-1 {
				if err := t.store.AddTaskDependency(taskID, taskIDs[depIdx]); err != nil {
					return Errorf("link dependency: %v", err)
				}
			}
		}
	}
	return map[string]any{"goal": goal, "tasks_created": len(taskIDs), "task_ids": taskIDs}
}
