package agent

import (
	"context"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const coderSystem = `You are a Coder agent. Your job is to write, modify, and execute code.
Use file_read/file_write for files. Use shell_exec for running code (5s timeout).
Write production-ready code. No TODOs, no placeholders. Every file must be runnable.`

// Coder answers technical tasks in a single complex-tier completion.
type Coder struct {
	cfg   *config.Config
	store *store.Store
	llm   LLM
}

func NewCoder(cfg *config.Config, st *store.Store, llm LLM) *Coder {
	return &Coder{cfg: cfg, store: st, llm: llm}
}

func (c *Coder) Role() string { return "coder" }
func (c *Coder) Description() string {
	return "Code writing, file operations, and shell execution specialist"
}
func (c *Coder) RecoverState(context.Context) error { return nil }

func (c *Coder) HandleTask(ctx context.Context, task map[string]any) (map[string]any, error) {
	instruction := taskString(task, "instruction", "message")
	if hint, ok := task["_retry_hint"].(string); ok && hint != "" {
		instruction = instruction + "\n\n" + hint
	}
	taskType, maxTokens := cfoParams(task)
	if taskType == "" {
		taskType = "complex"
	}

	content, err := c.llm.Complete(ctx, router.CompleteOptions{
		Messages: []providers.Message{
			{Role: "system", Content: coderSystem},
			{Role: "user", Content: instruction},
		},
		AgentRole: c.Role(),
		TaskType:  taskType,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": content, "instruction": instruction}, nil
}
