package tools

import (
	"context"

	"github.com/nextlevelbuilder/teamclaw/internal/automation"
)

// N8nTriggerTool fires an external n8n workflow by name.
type N8nTriggerTool struct {
	client *automation.Client
}

func NewN8nTriggerTool(client *automation.Client) *N8nTriggerTool {
	return &N8nTriggerTool{client: client}
}

func (t *N8nTriggerTool) Name() string { return "n8n_trigger" }
func (t *N8nTriggerTool) Description() string {
	return "Trigger an n8n workflow by webhook name with a JSON payload."
}
func (t *N8nTriggerTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflow": map[string]any{"type": "string", "description": "Webhook workflow name"},
			"payload":  map[string]any{"type": "object", "description": "JSON payload to send"},
		},
		"required": []string{"workflow"},
	}
}

func (t *N8nTriggerTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	workflow := argString(args, "workflow", "")
	if workflow == "" {
		return Errorf("workflow is required")
	}
	payload := argMap(args, "payload")
	if payload == nil {
		payload = map[string]any{}
	}
	res, err := t.client.Trigger(workflow, payload)
	if err != nil {
		return Errorf("%v", err)
	}
	return map[string]any{"result": "triggered", "status": res.Status, "response": res.Response}
}
