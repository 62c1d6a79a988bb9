// Package watchdog is the process supervisor: the only component that
// starts at boot. It spawns worker processes, tracks their heartbeats,
// kills them on resource breaches, and restarts them with backoff. No
// model calls happen here.
package watchdog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/teamclaw/internal/bus"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Process is one running worker as the supervisor sees it.
type Process interface {
	PID() int
	Alive() bool
	// Terminate asks nicely; Kill does not.
	Terminate()
	Kill()
}

// Factory builds a fresh worker process wired to the agent's queues.
// The queues outlive individual processes across restarts.
type Factory func(inbox, outbox *bus.Queue) (Process, error)

// resourceSampler reads a process's RSS in MB and CPU percent. The
// platform without procfs returns an error and resource kills are
// skipped.
type resourceSampler interface {
	Sample(pid int) (rssMB, cpuPercent float64, err error)
}

type managed struct {
	role          string
	factory       Factory
	proc          Process
	inbox         *bus.Queue
	outbox        *bus.Queue
	lastHeartbeat time.Time
	restartCount  int
	cpuHighSince  time.Time // zero while CPU is under threshold
	enabled       bool
	crashed       bool
}

// AgentStatus is one row of the supervisor status report.
type AgentStatus struct {
	Role             string
	Alive            bool
	PID              int
	RestartCount     int
	MemMB            float64
	LastHeartbeatAgo float64
	Crashed          bool
}

// Watchdog supervises the worker fleet.
type Watchdog struct {
	cfg   *config.Config
	store *store.Store

	mu     sync.Mutex
	agents map[string]*managed

	maintMu  sync.Mutex
	cron     *gronx.Gronx
	sampler  resourceSampler
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(cfg *config.Config, st *store.Store) *Watchdog {
	return &Watchdog{
		cfg:     cfg,
		store:   st,
		agents:  make(map[string]*managed),
		cron:    gronx.New(),
		sampler: newSampler(),
		stop:    make(chan struct{}),
	}
}

// Register adds a worker role to the fleet. Must be called before
// StartAll.
func (w *Watchdog) Register(role string, factory Factory, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.agents[role] = &managed{
		role:          role,
		factory:       factory,
		inbox:         bus.NewQueue(64),
		outbox:        bus.NewQueue(256),
		lastHeartbeat: time.Now(),
		enabled:       enabled,
	}
}

// StartAll spawns every enabled agent and starts the polling and
// collector loops.
func (w *Watchdog) StartAll() {
	w.mu.Lock()
	roles := make([]string, 0, len(w.agents))
	for _, a := range w.agents {
		if a.enabled {
			w.spawnLocked(a)
		}
		roles = append(roles, a.role)
	}
	w.mu.Unlock()

	w.wg.Add(2)
	go func() { defer w.wg.Done(); w.pollLoop() }()
	go func() { defer w.wg.Done(); w.collectLoop() }()
	slog.Info("watchdog.started", "managing", roles)
}

// StopAll broadcasts shutdown, waits a 2 s grace, then kills survivors
// and stops the background loops.
func (w *Watchdog) StopAll() {
	w.stopOnce.Do(func() { close(w.stop) })

	w.mu.Lock()
	for _, a := range w.agents {
		if a.proc != nil && a.proc.Alive() {
			a.inbox.Put(bus.New(bus.SignalShutdown, "watchdog", a.role, nil), time.Second)
		}
	}
	w.mu.Unlock()

	time.Sleep(2 * time.Second)

	w.mu.Lock()
	for _, a := range w.agents {
		if a.proc != nil && a.proc.Alive() {
			w.killLocked(a, "shutdown")
		}
	}
	w.mu.Unlock()

	w.wg.Wait()
	slog.Info("watchdog.stopped")
}

// StartAgent spawns a single registered agent on demand. Reports
// whether the role is known.
func (w *Watchdog) StartAgent(role string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.agents[role]
	if !ok {
		return false
	}
	if a.proc != nil && a.proc.Alive() {
		return true
	}
	w.spawnLocked(a)
	return true
}

// SendTask assigns a task to a worker's inbox. Reports whether the role
// is registered.
func (w *Watchdog) SendTask(role, taskID string, inputData map[string]any) bool {
	w.mu.Lock()
	a, ok := w.agents[role]
	w.mu.Unlock()
	if !ok {
		return false
	}
	return a.inbox.Put(bus.NewTaskAssign("watchdog", role, taskID, inputData), time.Second)
}

// Status reports the fleet state.
func (w *Watchdog) Status() []AgentStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]AgentStatus, 0, len(w.agents))
	for _, a := range w.agents {
		s := AgentStatus{
			Role:             a.role,
			RestartCount:     a.restartCount,
			LastHeartbeatAgo: time.Since(a.lastHeartbeat).Seconds(),
			Crashed:          a.crashed,
		}
		if a.proc != nil && a.proc.Alive() {
			s.Alive = true
			s.PID = a.proc.PID()
			if rss, _, err := w.sampler.Sample(s.PID); err == nil {
				s.MemMB = rss
			}
		}
		out = append(out, s)
	}
	return out
}

func (w *Watchdog) spawnLocked(a *managed) {
	proc, err := a.factory(a.inbox, a.outbox)
	if err != nil {
		slog.Error("watchdog.spawn_failed", "role", a.role, "error", err)
		return
	}
	a.proc = proc
	a.lastHeartbeat = time.Now()
	a.cpuHighSince = time.Time{}
	w.store.UpsertAgentState(a.role, "idle", proc.PID(), "")
	slog.Info("watchdog.spawned", "role", a.role, "pid", proc.PID())
}

func (w *Watchdog) killLocked(a *managed, reason string) {
	if a.proc == nil {
		return
	}
	pid := a.proc.PID()
	slog.Warn("watchdog.killing", "role", a.role, "pid", pid, "reason", reason)
	w.store.UpsertAgentState(a.role, "killed", pid, "")

	a.proc.Terminate()
	deadline := time.Now().Add(3 * time.Second)
	for a.proc.Alive() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if a.proc.Alive() {
		a.proc.Kill()
	}
	a.proc = nil
	a.cpuHighSince = time.Time{}
}

func (w *Watchdog) pollLoop() {
	interval := time.Duration(w.cfg.Watchdog.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	for {
		select {
		case <-w.stop:
			return
		case <-time.After(interval):
		}
		w.mu.Lock()
		agents := make([]*managed, 0, len(w.agents))
		for _, a := range w.agents {
			if a.enabled {
				agents = append(agents, a)
			}
		}
		w.mu.Unlock()

		for _, a := range agents {
			w.checkAgent(a)
		}
		w.maybeRunMaintenance()
	}
}

func (w *Watchdog) checkAgent(a *managed) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if a.crashed {
		return
	}
	if a.proc == nil || !a.proc.Alive() {
		w.handleDeadLocked(a)
		return
	}

	hbTimeout := time.Duration(w.cfg.Watchdog.HeartbeatTimeoutSeconds) * time.Second
	if hbTimeout > 0 {
		if elapsed := time.Since(a.lastHeartbeat); elapsed > hbTimeout {
			slog.Warn("watchdog.heartbeat_timeout", "role", a.role, "elapsed", elapsed.Round(time.Second))
			w.killLocked(a, "heartbeat_timeout")
			w.handleDeadLocked(a)
			return
		}
	}

	rssMB, cpuPct, err := w.sampler.Sample(a.proc.PID())
	if err != nil {
		return // degraded host: no resource enforcement
	}

	// Exactly at the cap is fine; strictly over is not.
	if ramCap := float64(w.cfg.Watchdog.RAMKillThresholdMB); ramCap > 0 && rssMB > ramCap {
		w.killLocked(a, "ram_exceeded")
		w.handleDeadLocked(a)
		return
	}

	thresh := w.cfg.Watchdog.CPUKillThresholdPercent
	sustained := time.Duration(w.cfg.Watchdog.CPUKillSustainedSeconds) * time.Second
	if thresh > 0 && cpuPct > thresh {
		if a.cpuHighSince.IsZero() {
			a.cpuHighSince = time.Now()
		} else if time.Since(a.cpuHighSince) > sustained {
			w.killLocked(a, "cpu_exceeded")
			w.handleDeadLocked(a)
			return
		}
	} else {
		a.cpuHighSince = time.Time{}
	}
}

// handleDeadLocked runs the restart flow: backoff per attempt, then
// terminal crashed state past max restarts. Caller holds the mutex; it
// is released around the backoff sleep.
func (w *Watchdog) handleDeadLocked(a *managed) {
	if a.restartCount >= w.cfg.Watchdog.MaxRestarts {
		if !a.crashed {
			slog.Error("watchdog.gave_up", "role", a.role, "restarts", a.restartCount)
			w.store.UpsertAgentState(a.role, "crashed", 0, "")
			a.crashed = true
		}
		return
	}
	delay := w.backoff(a.restartCount)
	slog.Info("watchdog.restarting", "role", a.role, "delay", delay, "attempt", a.restartCount+1)

	w.mu.Unlock()
	select {
	case <-w.stop:
		w.mu.Lock()
		return
	case <-time.After(delay):
	}
	w.mu.Lock()

	a.restartCount++
	w.spawnLocked(a)
}

func (w *Watchdog) backoff(attempt int) time.Duration {
	steps := w.cfg.Watchdog.RestartBackoffSeconds
	if len(steps) == 0 {
		steps = []int{5, 15, 60}
	}
	if attempt >= len(steps) {
		attempt = len(steps) - 1
	}
	return time.Duration(steps[attempt]) * time.Second
}

func (w *Watchdog) collectLoop() {
	for {
		select {
		case <-w.stop:
			return
		case <-time.After(500 * time.Millisecond):
		}
		w.mu.Lock()
		agents := make([]*managed, 0, len(w.agents))
		for _, a := range w.agents {
			agents = append(agents, a)
		}
		w.mu.Unlock()

		for _, a := range agents {
			for _, sig := range a.outbox.Drain() {
				w.handleOutbound(a, sig)
			}
		}
	}
}

func (w *Watchdog) handleOutbound(a *managed, sig bus.Signal) {
	switch sig.Type {
	case bus.SignalHeartbeat:
		w.mu.Lock()
		a.lastHeartbeat = time.Now()
		a.restartCount = 0 // healthy again
		w.mu.Unlock()
	case bus.SignalTaskResult:
		w.mu.Lock()
		target, ok := w.agents[sig.Target]
		w.mu.Unlock()
		if ok {
			target.inbox.Put(sig, time.Second)
		}
	}
}

// maybeRunMaintenance holds a single housekeeping slot: a non-blocking
// acquire so overlapping cycles skip instead of piling up. The cron
// expression in config gates when work actually runs.
func (w *Watchdog) maybeRunMaintenance() {
	if !w.maintMu.TryLock() {
		return
	}
	defer w.maintMu.Unlock()

	expr := w.cfg.Watchdog.MaintenanceSchedule
	if expr == "" {
		return
	}
	due, err := w.cron.IsDue(expr, time.Now())
	if err != nil || !due {
		return
	}
	w.runMaintenance()
}

func (w *Watchdog) runMaintenance() {
	if err := w.store.Vacuum(); err != nil {
		slog.Warn("watchdog.maintenance_vacuum_failed", "error", err)
		return
	}
	slog.Info("watchdog.maintenance_done")
}
