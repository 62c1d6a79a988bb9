// Package memory implements the layered memory system: token-budgeted
// context assembly, agentic compaction, hybrid retrieval, the L2 daily
// log, the L3 durable memory file, and per-session task context notes.
package memory

// EstimateTokens gives a rough token count: 4 chars per token, floor 1.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
