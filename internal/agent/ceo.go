package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/teamclaw/internal/board"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/memory"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
	"github.com/nextlevelbuilder/teamclaw/internal/tools"
)

const ceoSystem = `You are the CEO of TeamClaw — Chief of Staff in a Boardroom structure.

Hierarchy:
  Chairman (User) → CEO (You) → CTO | CKO | Communicator

Your exact protocol for every request:
1. INTERPRET: State your understanding. If ambiguous, ask exactly ONE clarifying question.
2. PLAN: For complex tasks (3+ steps), use create_plan first. For simple tasks, go to step 3.
3. DELEGATE: Use delegate_task to assign work — CTO for code/files, CKO for research.
4. WAIT: Block until expert returns result. You do not execute code yourself.
5. REPORT: Synthesize results clearly for the Chairman.

Expert roster:
- cto:          Code writing, debugging, file I/O, shell commands, technical architecture
- cko:          Web research, URL fetching, information gathering, knowledge synthesis
- communicator: Drafting messages, documentation, reports, notifications

Rules:
- You NEVER run code or fetch URLs yourself
- If an expert fails twice (2-Strike Rule), report to Chairman with error details
- CFO manages your model/budget; CSO enforces security — both are already active
- Be concise. Chairman is busy. One paragraph max unless detail was requested.`

const maxStrikes = 2

// expertAliases maps boardroom titles to worker roles.
var expertAliases = map[string]string{
	"cto":          "coder",
	"coder":        "coder",
	"cko":          "researcher",
	"researcher":   "researcher",
	"communicator": "communicator",
}

// CEO is the coordinator: it interprets the Chairman's request, clears
// delegations through the CFO and CSO, dispatches experts in-process,
// and reports back. Expert failures follow the 2-Strike Rule before
// escalating.
type CEO struct {
	cfg        *config.Config
	store      *store.Store
	llm        LLM
	registry   *tools.Registry
	cfo        *board.CFO
	cso        *board.CSO
	coo        *board.COO
	retriever  *memory.Retriever
	summarizer *memory.Summarizer

	mu          sync.Mutex
	retryCounts map[string]int
}

func NewCEO(cfg *config.Config, st *store.Store, llm LLM, reg *tools.Registry) *CEO {
	c := &CEO{
		cfg:         cfg,
		store:       st,
		llm:         llm,
		registry:    reg,
		cfo:         board.NewCFO(cfg, st),
		cso:         board.NewCSO(st),
		coo:         board.NewCOO(cfg.Workspace, st),
		retriever:   memory.NewRetriever(st),
		summarizer:  memory.NewSummarizer(st, llm, cfg.Workspace, cfg.Memory.SummarizeEveryNTurns),
		retryCounts: make(map[string]int),
	}

	reg.Register(tools.NewCreatePlanTool(st))
	if dt, ok := reg.Get("delegate_task").(*tools.DelegateTaskTool); ok {
		dt.SetDispatcher(c.inlineDispatch)
	}
	c.setupMemoryWatch()
	return c
}

func (c *CEO) Role() string { return "ceo" }
func (c *CEO) Description() string {
	return "Chief of Staff — Boardroom orchestrator with CFO/CSO governance"
}
func (c *CEO) RecoverState(context.Context) error { return nil }

// Close stops the COO's filesystem watchers.
func (c *CEO) Close() { c.coo.StopAll() }

// setupMemoryWatch reindexes the durable memory file whenever the
// Chairman edits it directly.
func (c *CEO) setupMemoryWatch() {
	memoryFile := memory.MemoryFilePath(c.cfg.Workspace)
	active := c.coo.Watch(filepath.Dir(memoryFile), memory.MemoryFileName,
		"durable memory auto-reindex",
		func(eventType, path string) {
			if eventType != "modified" && eventType != "created" {
				return
			}
			count, err := memory.ReindexFile(c.store, path)
			if err != nil {
				slog.Warn("ceo.memory_reindex_failed", "error", err)
				return
			}
			if count > 0 {
				slog.Info("ceo.memory_reindexed", "new_chunks", count)
			}
		})
	if !active {
		slog.Warn("ceo.memory_watch_inactive")
	}
}

func (c *CEO) HandleTask(ctx context.Context, task map[string]any) (map[string]any, error) {
	sessionID := taskString(task, "session_id")
	if sessionID == "" {
		sessionID = "ceo:default:session"
	}
	userMsg := taskString(task, "message", "content")
	if userMsg == "" {
		return map[string]any{"result": "No message provided"}, nil
	}

	c.store.PushTurn(sessionID, "user", userMsg, c.Role(), memory.EstimateTokens(userMsg))

	budget := c.cfg.AgentBudgetFor(c.Role())
	summaries, err := c.store.LoadLatestSummaries(sessionID, 3)
	if err != nil {
		slog.Warn("ceo.summaries_load_failed", "error", err)
	}
	shortTerm, err := c.store.GetContext(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	durable := memory.LoadDurableMemory(c.cfg.Workspace)
	dailyLog, _ := memory.LoadRecentDailyLogs(c.cfg.Workspace, 2)
	retrieved := c.retriever.SearchAllContext(userMsg, sessionID).MemoryChunks
	teamContext, _ := c.store.GetTeamContext(sessionID)

	taskCtx, tcErr := memory.NewTaskContext(c.cfg.Workspace, sessionID)
	if tcErr == nil {
		note := userMsg
		if len(note) > 120 {
			note = note[:120]
		}
		taskCtx.Append("chairman", "Chairman request: "+note)
	}

	systemPrompt := ceoSystem
	if teamContext != "" {
		systemPrompt += "\n\n" + teamContext
	}
	if tcErr == nil {
		if block := taskCtx.AsSystemBlock(); block != "" {
			systemPrompt += "\n\n" + block
		}
	}

	messages, _ := memory.BuildContext(systemPrompt, summaries, shortTerm, budget, memory.BuildInput{
		DailyLog:        dailyLog,
		DurableMemory:   durable,
		RetrievedChunks: retrieved,
	})

	allowed := tools.ToolsForRole(c.Role())
	iterations := c.cfg.MaxToolIterations
	if iterations <= 0 {
		iterations = 10
	}

	for i := 0; i < iterations; i++ {
		content, err := c.llm.Complete(ctx, router.CompleteOptions{
			Messages:  messages,
			AgentRole: c.Role(),
			TaskType:  "complex",
			MaxTokens: budget.MaxOutputTokens,
		})
		if err != nil {
			return nil, err
		}

		if name, args, ok := parseToolCall(content); ok {
			result := c.executeToolCall(ctx, name, args, allowed)
			messages = append(messages,
				providers.Message{Role: "assistant", Content: content},
				providers.Message{Role: "tool", Content: encodeToolResult(result)},
			)
			continue
		}

		// Final answer: persist, share the decision, and maybe compact.
		c.store.PushTurn(sessionID, "assistant", content, c.Role(), memory.EstimateTokens(content))

		decision := strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
		if len(decision) > 200 {
			decision = decision[:200]
		}
		c.store.PushAgentInsight(sessionID, c.Role(), "decision", decision)

		if tcErr == nil {
			note := strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
			if len(note) > 150 {
				note = note[:150]
			}
			taskCtx.Append("ceo", note)
		}

		if _, err := c.summarizer.MaybeSummarize(ctx, sessionID, c.Role()); err != nil {
			slog.Warn("ceo.summarize_failed", "error", err)
		}
		return map[string]any{"result": content, "session_id": sessionID}, nil
	}

	return map[string]any{
		"result":     "Max iterations reached without final answer",
		"session_id": sessionID,
	}, nil
}

// executeToolCall routes one tool call from the react loop: high-risk
// tools pass the CSO gate, delegations go through the 2-strike wrapper,
// everything else hits the registry directly.
func (c *CEO) executeToolCall(ctx context.Context, name string, args map[string]any, allowed []string) map[string]any {
	if board.HighRiskTools[name] {
		if d := c.cso.ReviewToolArgs(name, args, c.Role()); !d.Approved {
			return map[string]any{
				"error": "CSO blocked: " + strings.Join(d.Findings, "; "),
				"risk":  d.RiskLevel,
			}
		}
	}

	if name == "delegate_task" {
		agentTarget, _ := args["agent"].(string)
		subTask, _ := args["task"].(map[string]any)
		if subTask == nil {
			subTask = map[string]any{}
		}
		return c.dispatchWithRetry(ctx, agentTarget, subTask, taskKey(agentTarget, subTask))
	}

	return c.registry.Execute(ctx, name, args, c.Role(), allowed, c.store.Audit)
}

// inlineDispatch sends a task to an expert and blocks for the result.
// The CFO sizes the model tier and can veto on budget; the CSO can veto
// on policy. Approved tasks carry the CFO's parameters to the expert.
func (c *CEO) inlineDispatch(ctx context.Context, agentRole string, task map[string]any) map[string]any {
	role, ok := expertAliases[agentRole]
	if !ok {
		return map[string]any{
			"error": fmt.Sprintf("Unknown expert: '%s'. Available: cto, cko, communicator", agentRole),
		}
	}

	taskText := encodeToolResult(task)

	cfoDecision := c.cfo.Allocate(taskText, role)
	if !cfoDecision.Approved {
		return map[string]any{
			"error":      "CFO veto: " + cfoDecision.Reason,
			"cfo_action": "budget_exceeded",
		}
	}

	csoDecision := c.cso.Review(taskText, "", role)
	if !csoDecision.Approved {
		return map[string]any{
			"error":      "CSO veto: " + strings.Join(csoDecision.Findings, "; "),
			"cso_action": "security_violation",
			"risk_level": csoDecision.RiskLevel,
		}
	}

	expert := c.buildExpert(role)

	withParams := make(map[string]any, len(task)+2)
	for k, v := range task {
		withParams[k] = v
	}
	withParams["_task_type"] = cfoDecision.TaskType
	withParams["_max_tokens"] = cfoDecision.MaxTokens

	result, err := expert.HandleTask(ctx, withParams)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if result == nil {
		result = map[string]any{}
	}
	return result
}

func (c *CEO) buildExpert(role string) Worker {
	switch role {
	case "coder":
		return NewCoder(c.cfg, c.store, c.llm)
	case "communicator":
		return NewCommunicator(c.cfg, c.store, c.llm)
	default:
		return NewResearcher(c.cfg, c.store, c.llm, c.registry)
	}
}

// dispatchWithRetry applies the 2-Strike Rule: one normal attempt, one
// retry with a reframing hint, then an escalation payload the Chairman
// sees verbatim.
func (c *CEO) dispatchWithRetry(ctx context.Context, agentRole string, task map[string]any, key string) map[string]any {
	attempts := c.strikes(key)

	result := c.inlineDispatch(ctx, agentRole, task)
	if _, failed := result["error"]; !failed {
		c.clearStrikes(key)
		return result
	}

	attempts++
	c.setStrikes(key, attempts)

	if attempts < maxStrikes {
		retryTask := make(map[string]any, len(task)+1)
		for k, v := range task {
			retryTask[k] = v
		}
		retryTask["_retry_hint"] = "Previous attempt failed. Try alternative approach."

		second := c.inlineDispatch(ctx, agentRole, retryTask)
		if _, failed := second["error"]; !failed {
			c.clearStrikes(key)
			return second
		}
		c.setStrikes(key, maxStrikes)
	}

	strikes := c.strikes(key)
	errMsg, _ := result["error"].(string)
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	return map[string]any{
		"error":      errMsg,
		"escalate":   true,
		"agent_role": agentRole,
		"strikes":    strikes,
		"message": fmt.Sprintf("[Boardroom Escalation] %s failed after %d attempt(s). Chairman intervention required.",
			strings.ToUpper(agentRole), strikes),
	}
}

func (c *CEO) strikes(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCounts[key]
}

func (c *CEO) setStrikes(key string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCounts[key] = n
}

func (c *CEO) clearStrikes(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.retryCounts, key)
}

// taskKey identifies a delegation for strike counting: same expert and
// same payload share a key across react iterations.
func taskKey(agentRole string, task map[string]any) string {
	b, err := json.Marshal(task) // map keys marshal sorted
	if err != nil {
		b = []byte(fmt.Sprint(task))
	}
	sum := sha256.Sum256(b)
	return agentRole + ":" + hex.EncodeToString(sum[:8])
}
