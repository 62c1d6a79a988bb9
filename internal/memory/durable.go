package memory

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MemoryFileName is the L3 durable memory file at the workspace root.
// The user can edit it directly; the watcher reindexes on change.
const MemoryFileName = "MEMORY.md"

// Standard section order in MEMORY.md; extra sections follow.
var standardSections = []string{"KEY FACTS", "USER PREFERENCES", "OPEN TASKS", "CONCLUSIONS"}

var sectionHeading = regexp.MustCompile(`(?m)^## (.+)$`)

// MemoryFilePath returns {workspace}/MEMORY.md.
func MemoryFilePath(workspace string) string {
	return filepath.Join(workspace, MemoryFileName)
}

// LoadDurableMemory returns the whole MEMORY.md, or "" when absent.
func LoadDurableMemory(workspace string) string {
	data, err := os.ReadFile(MemoryFilePath(workspace))
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseSections maps "## heading" to section body. Nested headings stay
// inside their parent's body.
func ParseSections(text string) map[string]string {
	matches := sectionHeading.FindAllStringSubmatchIndex(text, -1)
	sections := make(map[string]string, len(matches))
	for i, m := range matches {
		heading := strings.TrimSpace(text[m[2]:m[3]])
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[heading] = strings.TrimSpace(text[start:end])
	}
	return sections
}

// buildFile reassembles sections in standard order, extras after.
func buildFile(sections map[string]string) string {
	var b strings.Builder
	b.WriteString("# TeamClaw — Persistent Memory\n\n")
	fmt.Fprintf(&b, "_Last updated: %s_\n", time.Now().Format("2006-01-02 15:04"))

	emitted := make(map[string]bool, len(sections))
	emit := func(key string) {
		content := strings.TrimSpace(sections[key])
		if content == "" || emitted[key] {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", key, content)
		emitted[key] = true
	}
	for _, key := range standardSections {
		if _, ok := sections[key]; ok {
			emit(key)
		}
	}
	var extras []string
	for key := range sections {
		if !emitted[key] {
			extras = append(extras, key)
		}
	}
	// Deterministic output for the hash comparison on next merge.
	sort.Strings(extras)
	for _, key := range extras {
		emit(key)
	}
	return b.String()
}

// UpsertMemorySection updates or adds one "## heading" section.
// Identical content (SHA-256 compare) is skipped; reports whether the
// file changed.
func UpsertMemorySection(workspace, heading, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return false, nil
	}
	path := MemoryFilePath(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}

	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}
	sections := ParseSections(existing)

	if sha256.Sum256([]byte(content)) == sha256.Sum256([]byte(sections[heading])) {
		return false, nil
	}
	sections[heading] = content
	if err := os.WriteFile(path, []byte(buildFile(sections)), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// MergeCompactionResult parses compaction output by heading and upserts
// each non-empty section into MEMORY.md. Returns per-section change.
func MergeCompactionResult(workspace, compactionText string) (map[string]bool, error) {
	results := make(map[string]bool)
	for heading, content := range ParseSections(compactionText) {
		if strings.TrimSpace(content) == "" {
			continue
		}
		changed, err := UpsertMemorySection(workspace, heading, content)
		if err != nil {
			return results, err
		}
		results[heading] = changed
	}
	return results, nil
}
