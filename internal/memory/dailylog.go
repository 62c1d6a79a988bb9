package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const memoryDirName = "memory"

// DailyLogPath returns the L2 log path for a given day under
// {workspace}/memory/YYYY-MM-DD.md, creating the directory.
func DailyLogPath(workspace string, day time.Time) (string, error) {
	dir := filepath.Join(workspace, memoryDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, day.Format("2006-01-02")+".md"), nil
}

// AppendDailyLog appends a timestamped section to today's L2 log.
// Compaction calls this with its extracted facts.
func AppendDailyLog(workspace, content, heading string) error {
	path, err := DailyLogPath(workspace, time.Now())
	if err != nil {
		return err
	}
	ts := time.Now().Format("15:04")
	title := fmt.Sprintf("[%s] Compaction", ts)
	if heading != "" {
		title = fmt.Sprintf("[%s] %s", ts, heading)
	}
	entry := fmt.Sprintf("\n## %s\n\n%s\n", title, strings.TrimSpace(content))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}

// LoadRecentDailyLogs joins the last nDays of logs, oldest first, for
// the L2 slot of context assembly. Missing days are skipped.
func LoadRecentDailyLogs(workspace string, nDays int) (string, error) {
	today := time.Now()
	var parts []string
	for i := nDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		path, err := DailyLogPath(workspace, day)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text != "" {
			parts = append(parts, fmt.Sprintf("# Daily Log: %s\n\n%s", day.Format("2006-01-02"), text))
		}
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}
