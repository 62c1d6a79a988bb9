package memory

import (
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Budget shares of max_input_tokens for the optional memory layers.
const (
	durableShare   = 0.25
	dailyLogShare  = 0.20
	retrievedShare = 0.16
	summaryBuffer  = 150
)

// BuildInput carries the optional memory layers for context assembly.
type BuildInput struct {
	DailyLog        string
	DurableMemory   string
	RetrievedChunks []string
}

// BuildContext assembles the ordered message list for a completion call
// within budget.MaxInputTokens. Fill order: system prompt, L3 durable
// memory (≤25%), L2 daily log (≤20%), retrieved context (≤16%), latest
// summary (with a 150-token buffer), then recent turns newest-first
// while space remains, emitted in chronological order.
// Returns the messages and the estimated token count used.
func BuildContext(systemPrompt string, summaries []string, shortTerm []store.Turn,
	budget config.AgentBudget, in BuildInput) ([]providers.Message, int) {

	remaining := budget.MaxInputTokens
	var messages []providers.Message

	messages = append(messages, providers.Message{Role: "system", Content: systemPrompt})
	remaining -= EstimateTokens(systemPrompt)

	if in.DurableMemory != "" && remaining > summaryBuffer {
		block := boundedBlock("LONG-TERM MEMORY:\n"+in.DurableMemory,
			int(float64(budget.MaxInputTokens)*durableShare))
		if t := EstimateTokens(block); t <= remaining-summaryBuffer {
			messages = append(messages, providers.Message{Role: "system", Content: block})
			remaining -= t
		}
	}

	if in.DailyLog != "" && remaining > summaryBuffer {
		block := boundedBlock("RECENT DAILY LOG:\n"+in.DailyLog,
			int(float64(budget.MaxInputTokens)*dailyLogShare))
		if t := EstimateTokens(block); t <= remaining-summaryBuffer {
			messages = append(messages, providers.Message{Role: "system", Content: block})
			remaining -= t
		}
	}

	if len(in.RetrievedChunks) > 0 && remaining > summaryBuffer {
		block := boundedBlock("RETRIEVED CONTEXT:\n"+strings.Join(in.RetrievedChunks, "\n---\n"),
			int(float64(budget.MaxInputTokens)*retrievedShare))
		if t := EstimateTokens(block); t <= remaining-summaryBuffer {
			messages = append(messages, providers.Message{Role: "system", Content: block})
			remaining -= t
		}
	}

	if len(summaries) > 0 && remaining > 100 {
		text := "MEMORY SUMMARY:\n" + summaries[len(summaries)-1]
		if t := EstimateTokens(text); t <= remaining-summaryBuffer {
			messages = append(messages, providers.Message{Role: "system", Content: text})
			remaining -= t
		}
	}

	// Newest turns get priority; the emitted list stays chronological.
	capped := shortTerm
	if budget.ContextTurns > 0 && len(capped) > budget.ContextTurns {
		capped = capped[len(capped)-budget.ContextTurns:]
	}
	var turns []providers.Message
	for i := len(capped) - 1; i >= 0; i-- {
		t := EstimateTokens(capped[i].Content)
		if t > remaining {
			break
		}
		turns = append([]providers.Message{{Role: capped[i].Role, Content: capped[i].Content}}, turns...)
		remaining -= t
	}
	messages = append(messages, turns...)

	return messages, budget.MaxInputTokens - remaining
}

// boundedBlock truncates text to roughly maxTokens, appending a marker
// when content was dropped.
func boundedBlock(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "\n[... truncated]"
}
