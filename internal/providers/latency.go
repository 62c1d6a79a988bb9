package providers

import "sync"

const (
	latencyWindow    = 10
	latencyMax       = 50
	defaultLatencyMS = 1000
)

// latencyTracker keeps a bounded sample of call latencies; the rolling
// average feeds the router's scoring formula.
type latencyTracker struct {
	mu      sync.Mutex
	samples []int
}

func (t *latencyTracker) record(ms int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, ms)
	if len(t.samples) > latencyMax {
		t.samples = t.samples[1:]
	}
}

// AvgLatencyMS averages the last ten samples, defaulting to 1000 ms
// before any call completes.
func (t *latencyTracker) AvgLatencyMS() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return defaultLatencyMS
	}
	window := t.samples
	if len(window) > latencyWindow {
		window = window[len(window)-latencyWindow:]
	}
	sum := 0
	for _, s := range window {
		sum += s
	}
	return sum / len(window)
}
