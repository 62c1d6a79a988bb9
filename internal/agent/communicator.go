package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const communicatorSystem = `You are a Communicator agent. Your job is to draft, format, and relay messages.
Write clear, concise, human-friendly content. Adapt tone to context (formal/casual).`

// Communicator drafts outbound text on the fast tier.
type Communicator struct {
	cfg   *config.Config
	store *store.Store
	llm   LLM
}

func NewCommunicator(cfg *config.Config, st *store.Store, llm LLM) *Communicator {
	return &Communicator{cfg: cfg, store: st, llm: llm}
}

func (c *Communicator) Role() string { return "communicator" }
func (c *Communicator) Description() string {
	return "Message drafting and notification relay specialist"
}
func (c *Communicator) RecoverState(context.Context) error { return nil }

func (c *Communicator) HandleTask(ctx context.Context, task map[string]any) (map[string]any, error) {
	request := taskString(task, "content", "message")
	sessionID := taskString(task, "session_id")
	if sessionID == "" {
		sessionID = "communicator:default"
	}
	tone := taskString(task, "tone")
	if tone == "" {
		tone = "professional"
	}
	taskType, maxTokens := cfoParams(task)
	if taskType == "" {
		taskType = "fast"
	}

	content, err := c.llm.Complete(ctx, router.CompleteOptions{
		Messages: []providers.Message{
			{Role: "system", Content: communicatorSystem},
			{Role: "user", Content: fmt.Sprintf("Tone: %s\n\n%s", tone, request)},
		},
		AgentRole: c.Role(),
		TaskType:  taskType,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}

	if content != "" {
		summary := strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
		if len(summary) > 150 {
			summary = summary[:150]
		}
		c.store.PushAgentInsight(sessionID, c.Role(), "task_result",
			fmt.Sprintf("Message drafted (tone=%s): %s", tone, summary))
	}

	return map[string]any{"result": content}, nil
}
