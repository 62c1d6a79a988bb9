package tools

import "context"

// Sender delivers an out-of-band message through the active channel
// adapter (Telegram, CLI). Injected at startup like the dispatcher.
type Sender func(ctx context.Context, userID, text string) error

// SendMessageTool pushes a message to the Chairman outside the normal
// request/response turn.
type SendMessageTool struct {
	sender Sender
}

func NewSendMessageTool() *SendMessageTool {
	return &SendMessageTool{}
}

func (t *SendMessageTool) SetSender(s Sender) {
	t.sender = s
}

func (t *SendMessageTool) Name() string { return "send_message" }
func (t *SendMessageTool) Description() string {
	return "Send a message to the user through the active channel (notification, status update)."
}
func (t *SendMessageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":    map[string]any{"type": "string", "description": "Message text to deliver"},
			"user_id": map[string]any{"type": "string", "description": "Target user (default: current)"},
		},
		"required": []string{"text"},
	}
}

func (t *SendMessageTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	text := argString(args, "text", "")
	if text == "" {
		return Errorf("text is required")
	}
	if t.sender == nil {
		return Errorf("send_message has no channel sender")
	}
	if err := t.sender(ctx, argString(args, "user_id", ""), text); err != nil {
		return Errorf("send failed: %v", err)
	}
	return map[string]any{"result": "sent"}
}
