package tools

import "github.com/nextlevelbuilder/teamclaw/internal/automation"

// RegisterBuiltins fills a registry with every stock tool. Coordinator
// tools that need wiring (delegate_task dispatcher, send_message sender,
// create_plan store) are registered separately by the coordinator.
func RegisterBuiltins(reg *Registry, workspace string, n8n *automation.Client) {
	reg.Register(NewFileReadTool(workspace))
	reg.Register(NewFileWriteTool(workspace))
	reg.Register(NewFileListTool(workspace))
	reg.Register(NewShellExecTool(workspace))
	reg.Register(NewRunPythonTool(workspace))
	reg.Register(NewWebFetchTool())
	reg.Register(NewDelegateTaskTool())
	reg.Register(NewSendMessageTool())
	if n8n != nil {
		reg.Register(NewN8nTriggerTool(n8n))
	}
}
