package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), 5)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestPushTurn_RoundTrip verifies that writing turns and reading the
// short-term window back yields the same content and order.
func TestPushTurn_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	session := MakeSessionID("cli", "alice", "")

	contents := []string{"first", "second", "third"}
	for i, c := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if _, err := s.PushTurn(session, role, c, "ceo", 0); err != nil {
			t.Fatalf("PushTurn(%q) error = %v", c, err)
		}
	}

	turns, err := s.GetContext(session)
	if err != nil {
		t.Fatalf("GetContext() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("GetContext() returned %d turns, want 3", len(turns))
	}
	for i, c := range contents {
		if turns[i].Content != c {
			t.Errorf("turn[%d] = %q, want %q", i, turns[i].Content, c)
		}
	}
}

// TestRing_Bounded verifies the short-term ring keeps only the last N.
func TestRing_Bounded(t *testing.T) {
	s := openTestStore(t) // maxlen 5
	session := "cli:bob:default"

	for i := 0; i < 8; i++ {
		if _, err := s.PushTurn(session, "user", string(rune('a'+i)), "", 0); err != nil {
			t.Fatal(err)
		}
	}
	turns, err := s.GetContext(session)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 5 {
		t.Fatalf("ring holds %d, want 5", len(turns))
	}
	if turns[0].Content != "d" || turns[4].Content != "h" {
		t.Errorf("ring window = %v, want d..h", turns)
	}
}

// TestRebuildShortTerm verifies the ring rehydrates from the log after a
// simulated restart.
func TestRebuildShortTerm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s1, err := Open(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	session := "telegram:42:default"
	for _, c := range []string{"one", "two", "three"} {
		if _, err := s1.PushTurn(session, "user", c, "", 0); err != nil {
			t.Fatal(err)
		}
	}
	s1.Close()

	s2, err := Open(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	turns, err := s2.GetContext(session)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 3 || turns[0].Content != "one" || turns[2].Content != "three" {
		t.Errorf("rehydrated window = %v, want [one two three]", turns)
	}
}

// TestSummarizedFlag verifies summarized ids form a prefix of the turn
// sequence after marking, and that counting reflects the flag.
func TestSummarizedFlag(t *testing.T) {
	s := openTestStore(t)
	session := "cli:carol:default"

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := s.PushTurn(session, "user", "msg", "", 0)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	n, err := s.CountUnsummarized(session)
	if err != nil || n != 4 {
		t.Fatalf("CountUnsummarized = %d, %v; want 4", n, err)
	}

	if err := s.MarkSummarized(session, ids[:2]); err != nil {
		t.Fatal(err)
	}
	n, _ = s.CountUnsummarized(session)
	if n != 2 {
		t.Errorf("CountUnsummarized after mark = %d, want 2", n)
	}

	rest, err := s.GetUnsummarized(session, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 || rest[0].ID != ids[2] {
		t.Errorf("GetUnsummarized = %v, want the last two ids", rest)
	}
}

// TestSummaries_LatestOrder verifies newest-N retrieval returns
// chronological order.
func TestSummaries_LatestOrder(t *testing.T) {
	s := openTestStore(t)
	session := "cli:dave:default"
	for _, c := range []string{"s1", "s2", "s3", "s4"} {
		if err := s.SaveSummary(session, c, "1-4"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.LoadLatestSummaries(session, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"s2", "s3", "s4"}
	if len(got) != 3 {
		t.Fatalf("LoadLatestSummaries len = %d, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("summaries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestClaimReadyTask verifies dependency gating: a task is claimable
// only when every dependency is done.
func TestClaimReadyTask(t *testing.T) {
	s := openTestStore(t)

	dep, err := s.CreateTask("coder", map[string]any{"step": 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	blocked, err := s.CreateTask("coder", map[string]any{"step": 2}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddTaskDependency(blocked, dep); err != nil {
		t.Fatal(err)
	}

	// Only the dependency-free task is ready.
	got, err := s.ClaimReadyTask("coder")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != dep {
		t.Fatalf("ClaimReadyTask = %v, want the dependency task %s", got, dep)
	}

	// Dependency is running, not done, so nothing else is ready.
	got, err = s.ClaimReadyTask("coder")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("ClaimReadyTask returned %v while dependency unfinished", got)
	}

	if err := s.CompleteTask(dep, map[string]any{"ok": true}, true); err != nil {
		t.Fatal(err)
	}
	got, err = s.ClaimReadyTask("coder")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != blocked {
		t.Fatalf("ClaimReadyTask = %v, want %s after dependency done", got, blocked)
	}
}

// TestFailWithRetry verifies retry accounting: retries reset the task to
// pending until max_retries is exceeded, then it is terminal.
func TestFailWithRetry(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateTask("researcher", map[string]any{}, "")
	if err != nil {
		t.Fatal(err)
	}

	// Default max_retries is 2: two scheduled retries, then terminal.
	for attempt := 1; attempt <= 2; attempt++ {
		retrying, err := s.FailWithRetry(id, "boom")
		if err != nil {
			t.Fatal(err)
		}
		if !retrying {
			t.Fatalf("attempt %d: expected retry to be scheduled", attempt)
		}
		task, _ := s.GetTask(id)
		if task.Status != TaskPending {
			t.Fatalf("attempt %d: status = %s, want pending", attempt, task.Status)
		}
	}

	retrying, err := s.FailWithRetry(id, "boom")
	if err != nil {
		t.Fatal(err)
	}
	if retrying {
		t.Error("expected terminal failure after max retries")
	}
	task, _ := s.GetTask(id)
	if task.Status != TaskFailed {
		t.Errorf("status = %s, want failed", task.Status)
	}
	if task.RetryCount != 3 {
		t.Errorf("retry_count = %d, want 3", task.RetryCount)
	}
}

// TestCostAccounting verifies that the daily total equals the sum of
// logged rows.
func TestCostAccounting(t *testing.T) {
	s := openTestStore(t)

	costs := []float64{0.001, 0.002, 0.0035}
	for _, c := range costs {
		if err := s.LogCost("ceo", "groq", "llama-3.1-8b-instant", 100, 50, c, 120); err != nil {
			t.Fatal(err)
		}
	}
	daily, err := s.GetDailyCost()
	if err != nil {
		t.Fatal(err)
	}
	want := 0.0065
	if diff := daily - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("GetDailyCost = %v, want %v", daily, want)
	}

	weekly, err := s.GetWeeklyCost()
	if err != nil {
		t.Fatal(err)
	}
	if weekly < daily {
		t.Errorf("weekly %v < daily %v", weekly, daily)
	}
}

// TestAgentStateUpsert verifies conflict semantics: status and pid
// replace, an empty last task id preserves the previous value.
func TestAgentStateUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertAgentState("coder", AgentIdle, 100, "task-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertAgentState("coder", AgentWorking, 100, ""); err != nil {
		t.Fatal(err)
	}

	st, err := s.GetAgentState("coder")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != AgentWorking {
		t.Errorf("status = %s, want working", st.Status)
	}
	if st.LastTaskID != "task-1" {
		t.Errorf("last_task_id = %q, want preserved task-1", st.LastTaskID)
	}
}

// TestSessionBinding verifies session id construction and latest-session
// lookup across platforms.
func TestSessionBinding(t *testing.T) {
	s := openTestStore(t)

	if got := MakeSessionID("telegram", "42", ""); got != "telegram:42:default" {
		t.Errorf("MakeSessionID = %q", got)
	}
	if got := SessionSuffix("telegram:42:default"); got != ":default" {
		t.Errorf("SessionSuffix = %q, want :default", got)
	}

	older := MakeSessionID("cli", "42", "")
	newer := MakeSessionID("telegram", "42", "")
	if _, err := s.PushTurn(older, "user", "hi", "", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PushTurn(newer, "user", "hello again", "", 0); err != nil {
		t.Fatal(err)
	}

	found, err := s.FindLatestSession("42")
	if err != nil {
		t.Fatal(err)
	}
	if found != newer {
		t.Errorf("FindLatestSession = %q, want %q", found, newer)
	}

	missing, err := s.FindLatestSession("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "" {
		t.Errorf("FindLatestSession(nobody) = %q, want empty", missing)
	}
}

// TestInsights verifies team context rendering from insight rows.
func TestInsights(t *testing.T) {
	s := openTestStore(t)
	session := "cli:erin:default"

	empty, err := s.GetTeamContext(session)
	if err != nil {
		t.Fatal(err)
	}
	if empty != "" {
		t.Errorf("GetTeamContext on empty session = %q, want empty", empty)
	}

	for i := 0; i < 7; i++ {
		if err := s.PushAgentInsight(session, "researcher", "task_result", "finding"); err != nil {
			t.Fatal(err)
		}
	}
	ctx, err := s.GetTeamContext(session)
	if err != nil {
		t.Fatal(err)
	}
	if ctx == "" {
		t.Fatal("GetTeamContext returned empty after inserts")
	}
	lines := 0
	for _, r := range ctx {
		if r == '\n' {
			lines++
		}
	}
	// Heading plus 5 newest bullets.
	if lines != 5 {
		t.Errorf("team context has %d newlines, want 5: %q", lines, ctx)
	}
}

// TestChunkIndex verifies content-addressed chunk insert is idempotent
// and FTS search finds indexed sections.
func TestChunkIndex(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.HasChunk("abc123")
	if err != nil || ok {
		t.Fatalf("HasChunk on empty = %v, %v", ok, err)
	}
	if err := s.InsertChunk("abc123", "KEY FACTS", "the deployment target is a raspberry pi", "MEMORY.md"); err != nil {
		t.Fatal(err)
	}
	ok, err = s.HasChunk("abc123")
	if err != nil || !ok {
		t.Fatalf("HasChunk after insert = %v, %v", ok, err)
	}

	hits, err := s.SearchChunksFTS(`"deployment"`, 5)
	if err != nil {
		t.Fatalf("SearchChunksFTS error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("SearchChunksFTS hits = %d, want 1", len(hits))
	}
}

// TestSearchTurnsLike verifies the degraded conjunctive LIKE path.
func TestSearchTurnsLike(t *testing.T) {
	s := openTestStore(t)
	session := "cli:frank:default"
	for _, c := range []string{"apples and oranges", "just apples", "bananas"} {
		if _, err := s.PushTurn(session, "user", c, "", 0); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.SearchTurnsLike([]string{"apples", "oranges"}, session, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "apples and oranges" {
		t.Errorf("SearchTurnsLike = %v", got)
	}
}
