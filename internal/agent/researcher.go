package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
	"github.com/nextlevelbuilder/teamclaw/internal/tools"
)

const researcherSystem = `You are a Researcher agent. Your job is to gather, verify, and summarize information.
Use web_fetch to retrieve URLs. Use file_read to read local files.
Return structured, factual summaries. Cite sources. Be concise.

To use a tool, respond with JSON only (no other text):
{"tool": "web_fetch", "args": {"url": "https://example.com"}}

When done, respond with plain text (your final answer).`

// Researcher gathers and condenses information through a small react
// loop over its read-only tool set.
type Researcher struct {
	cfg      *config.Config
	store    *store.Store
	llm      LLM
	registry *tools.Registry
}

func NewResearcher(cfg *config.Config, st *store.Store, llm LLM, reg *tools.Registry) *Researcher {
	return &Researcher{cfg: cfg, store: st, llm: llm, registry: reg}
}

func (r *Researcher) Role() string { return "researcher" }
func (r *Researcher) Description() string {
	return "Web research and information gathering specialist"
}
func (r *Researcher) RecoverState(context.Context) error { return nil }

func (r *Researcher) HandleTask(ctx context.Context, task map[string]any) (map[string]any, error) {
	query := taskString(task, "query", "message")
	if hint, ok := task["_retry_hint"].(string); ok && hint != "" {
		query = query + "\n\n" + hint
	}
	sessionID := taskString(task, "session_id")
	if sessionID == "" {
		sessionID = "researcher:default"
	}
	taskType, maxTokens := cfoParams(task)
	if taskType == "" {
		taskType = "simple"
	}
	if maxTokens == 0 {
		maxTokens = r.cfg.AgentBudgetFor(r.Role()).MaxOutputTokens
	}

	messages := []providers.Message{
		{Role: "system", Content: researcherSystem},
		{Role: "user", Content: query},
	}
	allowed := tools.ToolsForRole(r.Role())
	content := ""

	iterations := r.cfg.MaxToolIterations
	if iterations <= 0 {
		iterations = 10
	}
	for i := 0; i < iterations; i++ {
		var err error
		content, err = r.llm.Complete(ctx, router.CompleteOptions{
			Messages:  messages,
			AgentRole: r.Role(),
			TaskType:  taskType,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, providers.Message{Role: "assistant", Content: content})

		name, args, ok := parseToolCall(content)
		if !ok {
			break
		}
		result := r.registry.Execute(ctx, name, args, r.Role(), allowed, r.store.Audit)
		messages = append(messages, providers.Message{Role: "tool", Content: encodeToolResult(result)})
	}

	if content != "" {
		summary := strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
		if len(summary) > 200 {
			summary = summary[:200]
		}
		preview := query
		if len(preview) > 80 {
			preview = preview[:80]
		}
		r.store.PushAgentInsight(sessionID, r.Role(), "task_result",
			fmt.Sprintf("Research complete — %q: %s", preview, summary))
	}

	return map[string]any{"result": content, "query": query}, nil
}

// parseToolCall detects the JSON tool-call protocol the agents speak:
// a bare object with "tool" and optional "args".
func parseToolCall(content string) (name string, args map[string]any, ok bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") || !strings.Contains(trimmed, `"tool"`) {
		return "", nil, false
	}
	var call struct {
		Tool string         `json:"tool"`
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal([]byte(trimmed), &call); err != nil || call.Tool == "" {
		return "", nil, false
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return call.Tool, call.Args, true
}

func encodeToolResult(result map[string]any) string {
	b, err := json.Marshal(result)
	if err != nil {
		return `{"error":"unencodable tool result"}`
	}
	return string(b)
}
