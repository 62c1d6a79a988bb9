package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Chunk is one markdown section with a content-addressed id.
type Chunk struct {
	ID      string
	Heading string
	Text    string
}

// ChunkMarkdown splits a document on level 1-3 headings. Each section
// gets id = first 16 hex digits of SHA-256 over its text, so reindexing
// unchanged content is idempotent.
func ChunkMarkdown(text string) []Chunk {
	var chunks []Chunk
	for _, section := range splitOnHeadings(text) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		firstLine, _, _ := strings.Cut(section, "\n")
		heading := ""
		if strings.HasPrefix(firstLine, "#") {
			heading = strings.TrimSpace(strings.TrimLeft(firstLine, "#"))
		}
		sum := sha256.Sum256([]byte(section))
		chunks = append(chunks, Chunk{
			ID:      hex.EncodeToString(sum[:])[:16],
			Heading: heading,
			Text:    section,
		})
	}
	return chunks
}

// splitOnHeadings splits before every line starting with 1-3 hashes.
// Go's regexp has no lookahead, so split points are found manually.
func splitOnHeadings(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var current []string
	for _, line := range lines {
		if isHeadingLine(line) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

func isHeadingLine(line string) bool {
	for i := 1; i <= 3; i++ {
		if strings.HasPrefix(line, strings.Repeat("#", i)+" ") {
			return true
		}
	}
	return false
}

// IndexMarkdown chunks a document and inserts sections whose chunk id
// is not yet indexed. Returns the number of new chunks.
func IndexMarkdown(st *store.Store, text, source string) (int, error) {
	newCount := 0
	for _, chunk := range ChunkMarkdown(text) {
		exists, err := st.HasChunk(chunk.ID)
		if err != nil {
			return newCount, err
		}
		if exists {
			continue
		}
		if err := st.InsertChunk(chunk.ID, chunk.Heading, chunk.Text, source); err != nil {
			return newCount, err
		}
		newCount++
	}
	return newCount, nil
}

// ReindexFile reads a markdown file and indexes its sections. A missing
// file indexes nothing.
func ReindexFile(st *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return IndexMarkdown(st, string(data), path)
}
