package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultTimeout bounds a subprocess when the caller gives none.
	DefaultTimeout = 5 * time.Second
	// MaxTimeout is the hard ceiling regardless of caller input.
	MaxTimeout = 30 * time.Second
	// maxStreamBytes truncates each captured stream.
	maxStreamBytes = 10 * 1024
)

// ExecResult reports the outcome of one bounded subprocess run.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Run executes an argv list with a timeout, capturing stdout and stderr
// truncated to 10 KiB each. On expiry the process is killed and reaped;
// no orphans are left behind.
func Run(ctx context.Context, argv []string, dir string, timeout time.Duration) (*ExecResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ExecResult{
		Stdout:   truncateLossy(stdout.Bytes()),
		Stderr:   truncateLossy(stderr.Bytes()),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if res.TimedOut {
			res.ExitCode = -1
			return res, nil
		}
		return nil, err
	}
	return res, nil
}

// truncateLossy caps a stream at 10 KiB and replaces invalid UTF-8.
func truncateLossy(b []byte) string {
	if len(b) > maxStreamBytes {
		b = b[:maxStreamBytes]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// Tokenize splits a single command line into an argv list, honoring
// single and double quotes and backslash escapes.
func Tokenize(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		escaped bool
		started bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			started = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if escaped || quote != 0 {
		return nil, errors.New("unbalanced quote in command")
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}
