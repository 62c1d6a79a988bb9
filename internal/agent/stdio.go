package agent

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/bus"
)

// RunStdio runs a chassis whose signal transport is the process's own
// stdin/stdout, one JSON line per signal. This is the child side of the
// supervisor's exec transport. It returns when stdin closes (the
// supervisor died) or the chassis stops.
func RunStdio(ctx context.Context, c *Chassis, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stdin → inbox
	go func() {
		defer cancel()
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			sig, err := bus.Decode(scanner.Bytes())
			if err != nil {
				slog.Warn("agent.signal_decode_failed", "error", err)
				continue
			}
			c.Inbox().Put(sig, time.Second)
		}
	}()

	// outbox → stdout
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			sig, ok := c.Outbox().Get(200 * time.Millisecond)
			if !ok {
				continue
			}
			line, err := sig.Encode()
			if err != nil {
				continue
			}
			if _, err := out.Write(line); err != nil {
				cancel()
				return
			}
		}
	}()

	return c.Run(ctx)
}
