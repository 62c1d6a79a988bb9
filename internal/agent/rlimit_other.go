//go:build !linux

package agent

// Address-space limits are Linux only; elsewhere the supervisor's RSS
// polling is the sole memory guard.
func applyRAMCap(int) {}
