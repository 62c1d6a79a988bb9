//go:build linux

package agent

import (
	"log/slog"
	"syscall"
)

// applyRAMCap sets a hard address-space limit so a runaway agent is
// killed by the kernel before it can starve the host. The supervisor's
// RSS check remains the portable backstop.
func applyRAMCap(mb int) {
	if mb <= 0 {
		return
	}
	limit := uint64(mb) * 1024 * 1024
	rl := syscall.Rlimit{Cur: limit, Max: limit}
	if err := syscall.Setrlimit(syscall.RLIMIT_AS, &rl); err != nil {
		slog.Debug("agent.rlimit_unavailable", "error", err)
	}
}
