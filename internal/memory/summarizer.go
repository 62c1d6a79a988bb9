package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Completer is the one router method compaction needs. Kept narrow so
// tests can substitute a canned model.
type Completer interface {
	Complete(ctx context.Context, opts router.CompleteOptions) (string, error)
}

const compactionPrompt = `You are a memory compactor. Summarize the conversation below into
concise, factual notes. Output markdown with exactly these sections,
leaving a section empty if nothing applies:

## KEY FACTS
## USER PREFERENCES
## OPEN TASKS
## CONCLUSIONS

Keep each bullet short. Do not invent information.`

const turnExcerptLen = 600

// Summarizer runs threshold-triggered compaction: when enough turns
// accumulate unsummarized, it condenses them through the fast model
// tier and merges the result into the L2 daily log and L3 MEMORY.md.
type Summarizer struct {
	store     *store.Store
	llm       Completer
	workspace string
	everyN    int
}

func NewSummarizer(st *store.Store, llm Completer, workspace string, everyN int) *Summarizer {
	if everyN <= 0 {
		everyN = 20
	}
	return &Summarizer{store: st, llm: llm, workspace: workspace, everyN: everyN}
}

// MaybeSummarize compacts the session if the unsummarized turn count
// reached the threshold. Returns whether compaction ran. Failures in
// the daily log or durable merge steps are logged, not fatal; the
// summary row and the summarized marks are the source of truth.
func (s *Summarizer) MaybeSummarize(ctx context.Context, sessionID, agentRole string) (bool, error) {
	count, err := s.store.CountUnsummarized(sessionID)
	if err != nil {
		return false, err
	}
	if count < s.everyN {
		return false, nil
	}

	turns, err := s.store.GetUnsummarized(sessionID, s.everyN)
	if err != nil {
		return false, err
	}
	if len(turns) == 0 {
		return false, nil
	}

	summary, err := s.llm.Complete(ctx, router.CompleteOptions{
		Messages: []providers.Message{
			{Role: "system", Content: compactionPrompt},
			{Role: "user", Content: renderTurns(turns)},
		},
		AgentRole: agentRole,
		TaskType:  "fast",
	})
	if err != nil {
		return false, fmt.Errorf("compaction completion: %w", err)
	}

	turnRange := fmt.Sprintf("%d-%d", turns[0].ID, turns[len(turns)-1].ID)
	if err := s.store.SaveSummary(sessionID, summary, turnRange); err != nil {
		return false, err
	}
	ids := make([]int64, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
	}
	if err := s.store.MarkSummarized(sessionID, ids); err != nil {
		return false, err
	}

	heading := "Session " + store.SessionSuffix(sessionID)
	if err := AppendDailyLog(s.workspace, summary, heading); err != nil {
		slog.Warn("memory.daily_log_failed", "session", sessionID, "error", err)
	}
	if _, err := MergeCompactionResult(s.workspace, summary); err != nil {
		slog.Warn("memory.durable_merge_failed", "session", sessionID, "error", err)
	}

	slog.Info("memory.compacted", "session", sessionID, "turns", len(turns), "range", turnRange)
	return true, nil
}

// renderTurns formats turns for the compaction prompt, each clipped so
// a single huge turn cannot dominate the window.
func renderTurns(turns []store.TurnRow) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		content := t.Content
		if len(content) > turnExcerptLen {
			content = content[:turnExcerptLen]
		}
		lines[i] = fmt.Sprintf("[%s]: %s", strings.ToUpper(t.Role), content)
	}
	return strings.Join(lines, "\n")
}
