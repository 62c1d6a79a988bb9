//go:build !linux

package watchdog

import "errors"

var errNoProcFS = errors.New("resource sampling unsupported on this platform")

// Without procfs the supervisor still restarts dead and silent workers;
// it just cannot enforce CPU or RSS caps.
type noopSampler struct{}

func newSampler() resourceSampler { return noopSampler{} }

func (noopSampler) Sample(int) (float64, float64, error) {
	return 0, 0, errNoProcFS
}
