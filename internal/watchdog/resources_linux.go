//go:build linux

package watchdog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// clock ticks per second for /proc/<pid>/stat cpu fields
const clockTicks = 100

type cpuSample struct {
	jiffies uint64
	at      time.Time
}

// procSampler reads RSS and CPU usage from /proc. CPU percent is the
// delta in process jiffies over wall time since the previous sample of
// the same pid, so the first sample of a pid reports 0.
type procSampler struct {
	mu   sync.Mutex
	prev map[int]cpuSample
}

func newSampler() resourceSampler {
	return &procSampler{prev: make(map[int]cpuSample)}
}

func (p *procSampler) Sample(pid int) (rssMB, cpuPercent float64, err error) {
	rssMB, err = readRSSMB(pid)
	if err != nil {
		return 0, 0, err
	}
	jiffies, err := readCPUJiffies(pid)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	p.mu.Lock()
	last, seen := p.prev[pid]
	p.prev[pid] = cpuSample{jiffies: jiffies, at: now}
	p.mu.Unlock()

	if !seen || now.Sub(last.at) <= 0 || jiffies < last.jiffies {
		return rssMB, 0, nil
	}
	cpuSeconds := float64(jiffies-last.jiffies) / clockTicks
	cpuPercent = cpuSeconds / now.Sub(last.at).Seconds() * 100
	return rssMB, cpuPercent, nil
}

func readRSSMB(pid int) (float64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, err
		}
		return kb / 1024, nil
	}
	return 0, errors.New("VmRSS not found")
}

// readCPUJiffies returns utime+stime from /proc/<pid>/stat. The comm
// field may contain spaces, so fields are counted after the closing
// paren.
func readCPUJiffies(pid int) (uint64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	idx := strings.LastIndexByte(string(data), ')')
	if idx < 0 {
		return 0, errors.New("malformed stat")
	}
	fields := strings.Fields(string(data)[idx+1:])
	// fields[0] is state; utime and stime are fields 11 and 12 here
	// (14th and 15th of the full stat line).
	if len(fields) < 13 {
		return 0, errors.New("short stat")
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, err
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, err
	}
	return utime + stime, nil
}
