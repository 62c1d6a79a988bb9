package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const (
	taskContextDir = "context"
	taskContextCap = 2600
)

// TaskContext is a small shared scratchpad per session at
// {workspace}/context/{suffix}.md. The coordinator appends delegation
// notes so every agent sees what the others already did.
type TaskContext struct {
	path string
}

func NewTaskContext(workspace, sessionID string) (*TaskContext, error) {
	dir := filepath.Join(workspace, taskContextDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TaskContext{path: filepath.Join(dir, store.SessionSuffix(sessionID)+".md")}, nil
}

func (tc *TaskContext) header() string {
	return fmt.Sprintf("# Task Context\n\n_Session started %s_\n", time.Now().Format("2006-01-02 15:04"))
}

// Load returns the current scratchpad text, "" when absent.
func (tc *TaskContext) Load() string {
	data, err := os.ReadFile(tc.path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Append adds a timestamped bullet attributed to an agent, then trims
// the file back under the size cap by evicting the oldest bullets.
func (tc *TaskContext) Append(agent, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	text := tc.Load()
	if text == "" {
		text = tc.header()
	}
	bullet := fmt.Sprintf("- [%s] **%s**: %s\n", time.Now().Format("15:04"), agent, note)
	text = trimToCap(text + bullet)
	return os.WriteFile(tc.path, []byte(text), 0o644)
}

// UpdateSection replaces the named "## heading" section, or appends it.
func (tc *TaskContext) UpdateSection(heading, content string) error {
	text := tc.Load()
	if text == "" {
		text = tc.header()
	}
	section := fmt.Sprintf("## %s\n\n%s\n", heading, strings.TrimSpace(content))

	marker := "## " + heading
	if idx := strings.Index(text, "\n"+marker+"\n"); idx >= 0 {
		start := idx + 1
		end := len(text)
		if next := strings.Index(text[start+len(marker):], "\n## "); next >= 0 {
			end = start + len(marker) + next + 1
		}
		text = text[:start] + section + text[end:]
	} else {
		text = strings.TrimRight(text, "\n") + "\n\n" + section
	}
	return os.WriteFile(tc.path, []byte(trimToCap(text)), 0o644)
}

// AsSystemBlock wraps the scratchpad for injection as a system message.
func (tc *TaskContext) AsSystemBlock() string {
	text := strings.TrimSpace(tc.Load())
	if text == "" {
		return ""
	}
	return "---\n## Current Task Context\n\n" + text
}

// Clear removes the scratchpad; a fresh header appears on next Append.
func (tc *TaskContext) Clear() error {
	err := os.Remove(tc.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// trimToCap drops the oldest bullet lines until the text fits, keeping
// the header and any non-bullet lines intact.
func trimToCap(text string) string {
	if len(text) <= taskContextCap {
		return text
	}
	lines := strings.Split(text, "\n")
	for len(strings.Join(lines, "\n")) > taskContextCap {
		removed := false
		for i, line := range lines {
			if strings.HasPrefix(line, "- [") {
				lines = append(lines[:i], lines[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return strings.Join(lines, "\n")
}
