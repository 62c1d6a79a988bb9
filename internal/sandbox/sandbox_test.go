package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestSafePath verifies containment: relative and nested paths stay
// inside the workspace, traversal and absolute escapes are refused.
func TestSafePath(t *testing.T) {
	ws := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative", "notes.md", false},
		{"nested", "sub/dir/file.txt", false},
		{"dot", ".", false},
		{"traversal", "../../etc/passwd", true},
		{"sneaky traversal", "sub/../../../etc/passwd", true},
		{"absolute outside", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafePath(ws, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SafePath(%q) = %q, want security error", tt.path, got)
				}
				var secErr *SecurityError
				if !errors.As(err, &secErr) {
					t.Errorf("error type = %T, want *SecurityError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafePath(%q) error = %v", tt.path, err)
			}
			real, _ := filepath.EvalSymlinks(ws)
			if !strings.HasPrefix(got, real) {
				t.Errorf("SafePath(%q) = %q, not under workspace %q", tt.path, got, real)
			}
		})
	}
}

// TestSafePath_SymlinkEscape verifies a symlink inside the workspace
// pointing outside it is refused.
func TestSafePath_SymlinkEscape(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(ws, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := SafePath(ws, "escape/secret.txt"); err == nil {
		t.Error("expected security error for symlink escape")
	}
}

// TestRun_Echo verifies normal execution captures stdout and exit code.
func TestRun_Echo(t *testing.T) {
	res, err := Run(context.Background(), []string{"echo", "hello"}, "", 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q, want hello", res.Stdout)
	}
	if res.ExitCode != 0 || res.TimedOut {
		t.Errorf("result = %+v, want exit 0 no timeout", res)
	}
}

// TestRun_NonZeroExit verifies a failing command reports its exit code
// without an error.
func TestRun_NonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), []string{"sh", "-c", "exit 3"}, "", 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

// TestRun_Timeout verifies kill-and-reap on expiry with the timed_out
// flag set.
func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	res, err := Run(context.Background(), []string{"sleep", "10"}, "", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut flag")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout did not bound execution: %v", elapsed)
	}
}

// TestRun_OutputTruncation verifies streams are capped at 10 KiB.
func TestRun_OutputTruncation(t *testing.T) {
	res, err := Run(context.Background(), []string{"sh", "-c", "yes x | head -c 50000"}, "", 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Stdout) > 10*1024 {
		t.Errorf("stdout length = %d, want <= 10KiB", len(res.Stdout))
	}
}

// TestTokenize verifies shell-style splitting with quotes and escapes.
func TestTokenize(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{`ls -la /tmp`, []string{"ls", "-la", "/tmp"}, false},
		{`echo "hello world"`, []string{"echo", "hello world"}, false},
		{`echo 'single quoted'`, []string{"echo", "single quoted"}, false},
		{`grep a\ b file`, []string{"grep", "a b", "file"}, false},
		{`echo "unbalanced`, nil, true},
		{``, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Tokenize(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Tokenize(%q) = %v, want error", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.line, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
