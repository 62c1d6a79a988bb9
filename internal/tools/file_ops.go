package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/teamclaw/internal/sandbox"
)

const (
	defaultReadBytes = 32 * 1024
	maxListEntries   = 200
)

// FileReadTool reads text content of a workspace file.
type FileReadTool struct {
	workspace string
}

func NewFileReadTool(workspace string) *FileReadTool {
	return &FileReadTool{workspace: workspace}
}

func (t *FileReadTool) Name() string        { return "file_read" }
func (t *FileReadTool) Description() string { return "Read text content of a file within the workspace." }
func (t *FileReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Relative path within workspace"},
			"max_bytes": map[string]any{"type": "integer", "description": "Max bytes to read (default 32768)"},
		},
		"required": []string{"path"},
	}
}

func (t *FileReadTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	path := argString(args, "path", "")
	if path == "" {
		return Errorf("path is required")
	}
	maxBytes := argInt(args, "max_bytes", defaultReadBytes)

	resolved, err := sandbox.SafePath(t.workspace, path)
	if err != nil {
		return Errorf("%v", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return Errorf("File not found: %s", path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Errorf("read %s: %v", path, err)
	}
	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return map[string]any{
		"result": lossyString(data),
		"path":   resolved,
		"size":   info.Size(),
	}
}

// FileWriteTool writes or appends text content to a workspace file,
// creating parent directories as needed.
type FileWriteTool struct {
	workspace string
}

func NewFileWriteTool(workspace string) *FileWriteTool {
	return &FileWriteTool{workspace: workspace}
}

func (t *FileWriteTool) Name() string { return "file_write" }
func (t *FileWriteTool) Description() string {
	return "Write text content to a file within the workspace."
}
func (t *FileWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Relative path within workspace"},
			"content": map[string]any{"type": "string", "description": "Text content to write"},
			"append":  map[string]any{"type": "boolean", "description": "Append instead of overwrite (default false)"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *FileWriteTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	path := argString(args, "path", "")
	if path == "" {
		return Errorf("path is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return Errorf("content is required")
	}

	resolved, err := sandbox.SafePath(t.workspace, path)
	if err != nil {
		return Errorf("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return Errorf("create parent dir: %v", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if argBool(args, "append") {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return Errorf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return Errorf("write %s: %v", path, err)
	}
	return map[string]any{"result": "ok", "path": resolved, "bytes": len(content)}
}

// FileListTool lists entries under a workspace path matching a glob.
type FileListTool struct {
	workspace string
}

func NewFileListTool(workspace string) *FileListTool {
	return &FileListTool{workspace: workspace}
}

func (t *FileListTool) Name() string { return "file_list" }
func (t *FileListTool) Description() string {
	return "List files and directories within a workspace path."
}
func (t *FileListTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Relative path (default: root)"},
			"pattern": map[string]any{"type": "string", "description": "Glob pattern (default: *)"},
		},
		"required": []string{},
	}
}

func (t *FileListTool) Execute(ctx context.Context, args map[string]any) map[string]any {
	path := argString(args, "path", ".")
	pattern := argString(args, "pattern", "*")

	resolved, err := sandbox.SafePath(t.workspace, path)
	if err != nil {
		return Errorf("%v", err)
	}
	matches, err := filepath.Glob(filepath.Join(resolved, pattern))
	if err != nil {
		return Errorf("bad pattern %q: %v", pattern, err)
	}
	sort.Strings(matches)
	if len(matches) > maxListEntries {
		matches = matches[:maxListEntries]
	}

	entries := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		var size int64
		if !info.IsDir() {
			size = info.Size()
		}
		entries = append(entries, map[string]any{
			"name": filepath.Base(m),
			"type": entryType(info),
			"size": size,
		})
	}
	return map[string]any{"result": entries, "path": resolved}
}

func entryType(info os.FileInfo) string {
	if info.IsDir() {
		return "dir"
	}
	return "file"
}

// lossyString converts bytes to a string, replacing invalid UTF-8.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}
