// Package bootstrap seeds a fresh workspace with its starter files:
// the durable memory file and a couple of example presets. Existing
// files are never overwritten.
package bootstrap

import (
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/memory"
)

//go:embed templates/*
var templateFS embed.FS

// EnsureWorkspaceFiles seeds MEMORY.md into the workspace and the
// example presets into the presets dir. Returns the files created.
func EnsureWorkspaceFiles(workspaceDir, presetsDir string) ([]string, error) {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, err
	}

	var created []string
	if ok, err := seedTemplate("MEMORY.md", filepath.Join(workspaceDir, memory.MemoryFileName)); err != nil {
		slog.Warn("bootstrap.seed_failed", "file", memory.MemoryFileName, "error", err)
	} else if ok {
		created = append(created, memory.MemoryFileName)
	}

	if presetsDir != "" {
		if err := os.MkdirAll(presetsDir, 0o755); err != nil {
			return created, err
		}
		entries, err := templateFS.ReadDir("templates")
		if err != nil {
			return created, err
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasSuffix(name, ".yaml") {
				continue
			}
			ok, err := seedTemplate(name, filepath.Join(presetsDir, name))
			if err != nil {
				slog.Warn("bootstrap.seed_failed", "file", name, "error", err)
				continue
			}
			if ok {
				created = append(created, name)
			}
		}
	}
	return created, nil
}

// seedTemplate writes one embedded template to dst unless dst already
// exists. O_EXCL makes the existence check race-free.
func seedTemplate(name, dst string) (bool, error) {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	content, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		os.Remove(dst)
		return false, err
	}
	if _, err := f.Write(content); err != nil {
		return false, err
	}
	return true, nil
}
