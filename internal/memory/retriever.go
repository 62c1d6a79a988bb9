package memory

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const (
	bm25Weight    = 0.7
	recencyWeight = 0.3
	maxQueryTerms = 10
)

// Retriever does hybrid keyword search: BM25 over the turn index and
// the durable-memory chunks, reranked with a recency component. No
// embeddings; plain SQLite FTS5 keeps the footprint small.
type Retriever struct {
	store *store.Store
}

func NewRetriever(st *store.Store) *Retriever {
	return &Retriever{store: st}
}

// ScoredHit is one retrieval result; higher score is better.
type ScoredHit struct {
	Content string
	Score   float64
}

// SearchTurns finds turns related to the query within a session. Falls
// back to a conjunctive LIKE scan when FTS is unavailable.
func (r *Retriever) SearchTurns(query, sessionID string, topK int) []ScoredHit {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	hits, err := r.store.SearchTurnsFTS(sanitizeQuery(query), sessionID, topK*3)
	if err != nil {
		slog.Warn("retriever.fts_unavailable", "error", err)
		return r.fallbackLike(query, sessionID, topK)
	}
	reranked := rerank(hits)
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

// SearchDurableMemory finds MEMORY.md sections related to the query.
func (r *Retriever) SearchDurableMemory(query string, topK int) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	hits, err := r.store.SearchChunksFTS(sanitizeQuery(query), topK)
	if err != nil {
		slog.Warn("retriever.chunk_search_failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Content)
	}
	return out
}

// AllContext is the combined result the context builder consumes.
type AllContext struct {
	Turns        []ScoredHit
	MemoryChunks []string
}

// SearchAllContext runs the turn and chunk searches concurrently.
// Both swallow their own errors, so the group never fails.
func (r *Retriever) SearchAllContext(query, sessionID string) AllContext {
	var (
		g   errgroup.Group
		out AllContext
	)
	g.Go(func() error {
		out.Turns = r.SearchTurns(query, sessionID, 5)
		return nil
	})
	g.Go(func() error {
		out.MemoryChunks = r.SearchDurableMemory(query, 3)
		return nil
	})
	g.Wait()
	return out
}

// rerank normalizes BM25 rank (lower is better) into [0,1], inverts it,
// and blends in a rank-position recency component.
func rerank(hits []store.FTSHit) []ScoredHit {
	if len(hits) == 0 {
		return nil
	}
	minS, maxS := hits[0].Rank, hits[0].Rank
	for _, h := range hits {
		if h.Rank < minS {
			minS = h.Rank
		}
		if h.Rank > maxS {
			maxS = h.Rank
		}
	}
	scoreRange := maxS - minS
	if scoreRange == 0 {
		scoreRange = 1
	}

	denom := float64(len(hits) - 1)
	if denom == 0 {
		denom = 1
	}
	scored := make([]ScoredHit, len(hits))
	for i, h := range hits {
		relevance := 1 - (h.Rank-minS)/scoreRange
		recency := 1 - float64(i)/denom
		scored[i] = ScoredHit{
			Content: h.Content,
			Score:   relevance*bm25Weight + recency*recencyWeight,
		}
	}
	sortByScore(scored)
	return scored
}

func sortByScore(hits []ScoredHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

// fallbackLike runs a conjunctive LIKE over up to three query terms,
// newest first, with a flat mid score.
func (r *Retriever) fallbackLike(query, sessionID string, limit int) []ScoredHit {
	terms := strings.Fields(query)
	if len(terms) > 3 {
		terms = terms[:3]
	}
	if len(terms) == 0 {
		return nil
	}
	rows, err := r.store.SearchTurnsLike(terms, sessionID, limit)
	if err != nil {
		return nil
	}
	out := make([]ScoredHit, 0, len(rows))
	for _, content := range rows {
		out = append(out, ScoredHit{Content: content, Score: 0.5})
	}
	return out
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// sanitizeQuery strips FTS5 operators and quotes each term, capped at
// ten terms, so user text cannot inject query syntax.
func sanitizeQuery(query string) string {
	safe := nonWord.ReplaceAllString(query, " ")
	words := strings.Fields(safe)
	if len(words) == 0 {
		return `""`
	}
	if len(words) > maxQueryTerms {
		words = words[:maxQueryTerms]
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " ")
}
