package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{strings.Repeat("x", 40), 10},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestBuildContext_FillOrder(t *testing.T) {
	budget := config.AgentBudget{MaxInputTokens: 4000, ContextTurns: 10}
	turns := []store.Turn{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}
	msgs, used := BuildContext("you are helpful", []string{"older summary", "latest summary"}, turns, budget, BuildInput{
		DurableMemory:   "## KEY FACTS\n\n- remembers things",
		DailyLog:        "## [10:00] Compaction\n\nnotes",
		RetrievedChunks: []string{"chunk one", "chunk two"},
	})

	if msgs[0].Role != "system" || msgs[0].Content != "you are helpful" {
		t.Fatalf("first message must be the system prompt, got %+v", msgs[0])
	}
	var order []string
	for _, m := range msgs {
		switch {
		case strings.HasPrefix(m.Content, "LONG-TERM MEMORY:"):
			order = append(order, "durable")
		case strings.HasPrefix(m.Content, "RECENT DAILY LOG:"):
			order = append(order, "daily")
		case strings.HasPrefix(m.Content, "RETRIEVED CONTEXT:"):
			order = append(order, "retrieved")
		case strings.HasPrefix(m.Content, "MEMORY SUMMARY:"):
			order = append(order, "summary")
			if !strings.Contains(m.Content, "latest summary") {
				t.Errorf("summary block should carry the latest summary, got %q", m.Content)
			}
		}
	}
	want := []string{"durable", "daily", "retrieved", "summary"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("block order = %v, want %v", order, want)
	}

	last := msgs[len(msgs)-1]
	if last.Content != "first answer" {
		t.Errorf("turns must be emitted chronologically, last = %q", last.Content)
	}
	if used <= 0 || used > budget.MaxInputTokens {
		t.Errorf("used tokens = %d out of range", used)
	}
}

func TestBuildContext_OversizedSystemPrompt(t *testing.T) {
	budget := config.AgentBudget{MaxInputTokens: 50, ContextTurns: 10}
	huge := strings.Repeat("word ", 100) // ~125 tokens
	msgs, _ := BuildContext(huge, []string{"summary"}, []store.Turn{
		{Role: "user", Content: "hi"},
	}, budget, BuildInput{DurableMemory: "facts"})

	if len(msgs) != 1 {
		t.Fatalf("expected only the system prompt when it exceeds the budget, got %d messages", len(msgs))
	}
}

func TestBuildContext_ContextTurnsCap(t *testing.T) {
	budget := config.AgentBudget{MaxInputTokens: 8000, ContextTurns: 2}
	turns := []store.Turn{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	msgs, _ := BuildContext("sys", nil, turns, budget, BuildInput{})
	if len(msgs) != 3 { // system + 2 capped turns
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[1].Content != "two" || msgs[2].Content != "three" {
		t.Errorf("cap must keep the newest turns, got %q then %q", msgs[1].Content, msgs[2].Content)
	}
}

func TestChunkMarkdown(t *testing.T) {
	doc := "# Title\n\nintro text\n\n## Section A\n\nbody a\n\n## Section B\n\nbody b"
	chunks := ChunkMarkdown(doc)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1].Heading != "Section A" {
		t.Errorf("heading = %q, want Section A", chunks[1].Heading)
	}
	for _, c := range chunks {
		if len(c.ID) != 16 {
			t.Errorf("chunk id %q not 16 hex chars", c.ID)
		}
	}
	// Same content must hash to the same id.
	again := ChunkMarkdown(doc)
	for i := range chunks {
		if chunks[i].ID != again[i].ID {
			t.Errorf("chunk %d id not stable: %q vs %q", i, chunks[i].ID, again[i].ID)
		}
	}
}

func TestIndexMarkdown_Idempotent(t *testing.T) {
	st := testStore(t)
	doc := "## Notes\n\nsome indexed content here"
	n, err := IndexMarkdown(st, doc, "test.md")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("first index inserted %d chunks, want 1", n)
	}
	n, err = IndexMarkdown(st, doc, "test.md")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("reindex inserted %d chunks, want 0", n)
	}
}

func TestUpsertMemorySection(t *testing.T) {
	ws := t.TempDir()
	changed, err := UpsertMemorySection(ws, "KEY FACTS", "- the sky is blue")
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("first upsert should change the file")
	}
	changed, err = UpsertMemorySection(ws, "KEY FACTS", "- the sky is blue")
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("identical content should be a no-op")
	}

	if _, err := UpsertMemorySection(ws, "OPEN TASKS", "- finish report"); err != nil {
		t.Fatal(err)
	}
	text := LoadDurableMemory(ws)
	facts := strings.Index(text, "## KEY FACTS")
	tasks := strings.Index(text, "## OPEN TASKS")
	if facts < 0 || tasks < 0 || facts > tasks {
		t.Errorf("standard section order violated:\n%s", text)
	}
}

func TestMergeCompactionResult(t *testing.T) {
	ws := t.TempDir()
	out := "## KEY FACTS\n\n- fact one\n\n## USER PREFERENCES\n\n\n\n## CONCLUSIONS\n\n- done"
	results, err := MergeCompactionResult(ws, out)
	if err != nil {
		t.Fatal(err)
	}
	if !results["KEY FACTS"] || !results["CONCLUSIONS"] {
		t.Errorf("expected KEY FACTS and CONCLUSIONS changed, got %v", results)
	}
	if _, ok := results["USER PREFERENCES"]; ok {
		t.Error("empty section should be skipped")
	}
}

func TestDailyLog_AppendAndLoad(t *testing.T) {
	ws := t.TempDir()
	if err := AppendDailyLog(ws, "first note", "Session abc"); err != nil {
		t.Fatal(err)
	}
	if err := AppendDailyLog(ws, "second note", ""); err != nil {
		t.Fatal(err)
	}
	text, err := LoadRecentDailyLogs(ws, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Session abc") || !strings.Contains(text, "second note") {
		t.Errorf("daily log missing entries:\n%s", text)
	}
	if !strings.Contains(text, "Compaction") {
		t.Errorf("empty heading should default to Compaction:\n%s", text)
	}
}

func TestTaskContext_AppendAndTrim(t *testing.T) {
	ws := t.TempDir()
	tc, err := NewTaskContext(ws, "telegram:u1:default")
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Append("ceo", "kickoff note"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		if err := tc.Append("researcher", strings.Repeat("finding ", 10)); err != nil {
			t.Fatal(err)
		}
	}
	text := tc.Load()
	if len(text) > taskContextCap {
		t.Errorf("task context %d chars, cap is %d", len(text), taskContextCap)
	}
	if !strings.HasPrefix(text, "# Task Context") {
		t.Errorf("header must survive trimming:\n%.100s", text)
	}
	if strings.Contains(text, "kickoff note") {
		t.Error("oldest bullet should have been evicted")
	}

	block := tc.AsSystemBlock()
	if !strings.HasPrefix(block, "---\n## Current Task Context") {
		t.Errorf("unexpected system block prefix: %.60q", block)
	}

	if err := tc.Clear(); err != nil {
		t.Fatal(err)
	}
	if tc.Load() != "" {
		t.Error("Clear should remove the file")
	}
}

func TestTaskContext_UpdateSection(t *testing.T) {
	ws := t.TempDir()
	tc, err := NewTaskContext(ws, "cli:local_user:default")
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.UpdateSection("Plan", "step one"); err != nil {
		t.Fatal(err)
	}
	if err := tc.UpdateSection("Plan", "step two"); err != nil {
		t.Fatal(err)
	}
	text := tc.Load()
	if strings.Count(text, "## Plan") != 1 {
		t.Fatalf("section duplicated:\n%s", text)
	}
	if !strings.Contains(text, "step two") || strings.Contains(text, "step one") {
		t.Errorf("section not replaced:\n%s", text)
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", `"hello" "world"`},
		{`drop "table"; --`, `"drop" "table"`},
		{"!!!", `""`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := sanitizeQuery(tt.in); got != tt.want {
			t.Errorf("sanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	long := strings.Repeat("term ", 15)
	if got := sanitizeQuery(long); strings.Count(got, `"term"`) != 10 {
		t.Errorf("query not capped at 10 terms: %q", got)
	}
}

func TestRetriever_SearchTurns(t *testing.T) {
	st := testStore(t)
	session := "cli:local_user:default"
	seed := []string{
		"the quarterly report is due friday",
		"remember to email the quarterly numbers",
		"lunch plans for tomorrow",
	}
	for _, c := range seed {
		if _, err := st.PushTurn(session, "user", c, "ceo", EstimateTokens(c)); err != nil {
			t.Fatal(err)
		}
	}
	r := NewRetriever(st)
	hits := r.SearchTurns("quarterly report", session, 5)
	if len(hits) == 0 {
		t.Fatal("expected hits for quarterly report")
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted by score: %v", hits)
		}
	}
	if !strings.Contains(hits[0].Content, "quarterly") {
		t.Errorf("top hit unrelated: %q", hits[0].Content)
	}

	if got := r.SearchTurns("   ", session, 5); got != nil {
		t.Errorf("blank query should return nil, got %v", got)
	}
}

type fakeCompleter struct {
	reply string
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ router.CompleteOptions) (string, error) {
	f.calls++
	return f.reply, nil
}

func TestSummarizer_Threshold(t *testing.T) {
	st := testStore(t)
	ws := t.TempDir()
	session := "cli:local_user:default"
	llm := &fakeCompleter{reply: "## KEY FACTS\n\n- user likes short answers\n\n## CONCLUSIONS\n\n- report sent"}
	s := NewSummarizer(st, llm, ws, 4)

	for i := 0; i < 3; i++ {
		if _, err := st.PushTurn(session, "user", "turn content", "ceo", 3); err != nil {
			t.Fatal(err)
		}
	}
	ran, err := s.MaybeSummarize(context.Background(), session, "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if ran || llm.calls != 0 {
		t.Fatal("compaction must not run below the threshold")
	}

	if _, err := st.PushTurn(session, "assistant", "fourth turn", "ceo", 3); err != nil {
		t.Fatal(err)
	}
	ran, err = s.MaybeSummarize(context.Background(), session, "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if !ran || llm.calls != 1 {
		t.Fatalf("compaction should run at the threshold (ran=%v calls=%d)", ran, llm.calls)
	}

	sums, err := st.LoadLatestSummaries(session, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || !strings.Contains(sums[0], "KEY FACTS") {
		t.Fatalf("summary not persisted: %v", sums)
	}

	count, err := st.CountUnsummarized(session)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("all turns should be marked summarized, %d left", count)
	}

	mem := LoadDurableMemory(ws)
	if !strings.Contains(mem, "user likes short answers") {
		t.Errorf("compaction output not merged into durable memory:\n%s", mem)
	}
	logs, err := LoadRecentDailyLogs(ws, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs, "report sent") {
		t.Errorf("compaction output not appended to the daily log:\n%s", logs)
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "mem.db"), 50)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
