// Package sandbox provides the coarse isolation primitives every tool
// runs behind: workspace path containment and a bounded subprocess
// runner. This is not a hardened sandbox; it guards against accidents
// and obvious escapes, not a determined adversary.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecurityError marks a refused operation; tools convert it into an
// error result and audit the denial.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s: %s", e.Reason, e.Path)
}

// SafePath joins a caller-supplied path with the workspace root,
// normalizes it, and fails when the result does not have the workspace
// as an ancestor. Symlinks are resolved on the nearest existing ancestor
// so a link inside the workspace cannot point outside it.
func SafePath(workspace, userPath string) (string, error) {
	wsAbs, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	wsReal, err := filepath.EvalSymlinks(wsAbs)
	if err != nil {
		wsReal = wsAbs
	}

	candidate := userPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(wsReal, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved := resolveExisting(candidate)
	if !isPathInside(resolved, wsReal) {
		return "", &SecurityError{Path: userPath, Reason: "path escapes workspace"}
	}
	return candidate, nil
}

// resolveExisting resolves symlinks on the deepest existing ancestor of
// path and rejoins the non-existing tail.
func resolveExisting(path string) string {
	remainder := ""
	current := path
	for {
		real, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(real, remainder)
		}
		if !os.IsNotExist(err) {
			return path
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}

// isPathInside reports whether path equals base or sits beneath it.
func isPathInside(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
