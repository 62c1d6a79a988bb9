package watchdog

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/bus"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// fakeProcess is a controllable process handle for supervisor tests.
type fakeProcess struct {
	mu    sync.Mutex
	pid   int
	alive bool
}

func (f *fakeProcess) PID() int { return f.pid }
func (f *fakeProcess) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}
func (f *fakeProcess) Terminate() { f.die() }
func (f *fakeProcess) Kill()      { f.die() }
func (f *fakeProcess) die() {
	f.mu.Lock()
	f.alive = false
	f.mu.Unlock()
}

// fakeSampler returns scripted resource readings.
type fakeSampler struct {
	mu  sync.Mutex
	rss float64
	cpu float64
}

func (f *fakeSampler) Sample(int) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rss, f.cpu, nil
}
func (f *fakeSampler) set(rss, cpu float64) {
	f.mu.Lock()
	f.rss = rss
	f.cpu = cpu
	f.mu.Unlock()
}

func testWatchdog(t *testing.T) (*Watchdog, *fakeSampler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "wd.db"), 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Watchdog: config.WatchdogConfig{
			PollIntervalSeconds:     1,
			HeartbeatTimeoutSeconds: 2,
			RAMKillThresholdMB:      512,
			CPUKillThresholdPercent: 90,
			CPUKillSustainedSeconds: 1,
			RestartBackoffSeconds:   []int{0, 0, 0},
			MaxRestarts:             3,
		},
	}
	w := New(cfg, st)
	sampler := &fakeSampler{}
	w.sampler = sampler
	t.Cleanup(w.StopAll)
	return w, sampler
}

func countingFactory(spawns *int, mu *sync.Mutex) (Factory, func() *fakeProcess) {
	var current *fakeProcess
	factory := func(inbox, outbox *bus.Queue) (Process, error) {
		mu.Lock()
		*spawns++
		current = &fakeProcess{pid: 1000 + *spawns, alive: true}
		p := current
		mu.Unlock()
		return p, nil
	}
	latest := func() *fakeProcess {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	return factory, latest
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWatchdog_RestartsDeadProcess(t *testing.T) {
	w, _ := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, latest := countingFactory(&spawns, &mu)
	w.Register("echo", factory, true)
	w.StartAll()

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return spawns == 1
	}, "initial spawn missing")

	// Keep the heartbeat fresh so only process death triggers restart.
	go func() {
		for i := 0; i < 40; i++ {
			w.mu.Lock()
			a := w.agents["echo"]
			w.mu.Unlock()
			a.outbox.Put(bus.NewHeartbeat("echo", 1, "running"), 0)
			time.Sleep(100 * time.Millisecond)
		}
	}()

	latest().die()
	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return spawns >= 2
	}, "dead process not restarted")
}

func TestWatchdog_HeartbeatResetsRestartCount(t *testing.T) {
	w, _ := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, _ := countingFactory(&spawns, &mu)
	w.Register("echo", factory, true)

	w.mu.Lock()
	a := w.agents["echo"]
	a.restartCount = 2
	w.mu.Unlock()

	w.handleOutbound(a, bus.NewHeartbeat("echo", 1, "running"))

	w.mu.Lock()
	defer w.mu.Unlock()
	if a.restartCount != 0 {
		t.Errorf("restart count = %d, want 0 after heartbeat", a.restartCount)
	}
}

func TestWatchdog_RAMKill_StrictlyOver(t *testing.T) {
	w, sampler := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, latest := countingFactory(&spawns, &mu)
	w.Register("echo", factory, true)

	w.mu.Lock()
	w.spawnLocked(w.agents["echo"])
	a := w.agents["echo"]
	w.mu.Unlock()

	// Exactly at the cap must not kill.
	sampler.set(512, 0)
	w.checkAgent(a)
	if !latest().Alive() {
		t.Fatal("process killed at exactly the RSS cap")
	}

	first := latest()
	sampler.set(512.1, 0)
	w.checkAgent(a)
	if first.Alive() {
		t.Fatal("process not killed above the RSS cap")
	}
	mu.Lock()
	restarted := spawns >= 2
	mu.Unlock()
	if !restarted {
		t.Error("no respawn after RSS kill")
	}
}

func TestWatchdog_CPUKill_RequiresSustainedLoad(t *testing.T) {
	w, sampler := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, latest := countingFactory(&spawns, &mu)
	w.Register("echo", factory, true)

	w.mu.Lock()
	w.spawnLocked(w.agents["echo"])
	a := w.agents["echo"]
	w.mu.Unlock()

	sampler.set(10, 95)
	w.checkAgent(a)
	if !latest().Alive() {
		t.Fatal("killed on first high-CPU sample")
	}

	// A dip below the threshold resets the sustained timer.
	sampler.set(10, 20)
	w.checkAgent(a)
	w.mu.Lock()
	reset := a.cpuHighSince.IsZero()
	w.mu.Unlock()
	if !reset {
		t.Error("cpuHighSince not reset after dip")
	}

	sampler.set(10, 95)
	w.checkAgent(a)
	time.Sleep(1100 * time.Millisecond)
	first := latest()
	w.checkAgent(a)
	if first.Alive() {
		t.Fatal("sustained high CPU not killed")
	}
}

func TestWatchdog_GivesUpAfterMaxRestarts(t *testing.T) {
	w, _ := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	// Factory spawns processes that are already dead.
	factory := func(inbox, outbox *bus.Queue) (Process, error) {
		mu.Lock()
		spawns++
		mu.Unlock()
		return &fakeProcess{pid: 1, alive: false}, nil
	}
	w.Register("echo", factory, true)

	w.mu.Lock()
	a := w.agents["echo"]
	w.mu.Unlock()

	for i := 0; i < 6; i++ {
		w.checkAgent(a)
	}

	w.mu.Lock()
	crashed := a.crashed
	count := a.restartCount
	w.mu.Unlock()
	if !crashed {
		t.Fatalf("agent not marked crashed after %d restarts", count)
	}
	mu.Lock()
	defer mu.Unlock()
	if spawns != 3 {
		t.Errorf("spawn attempts = %d, want exactly max_restarts (3)", spawns)
	}
}

func TestWatchdog_RoutesTaskResults(t *testing.T) {
	w, _ := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, _ := countingFactory(&spawns, &mu)
	w.Register("ceo", factory, false)
	w.Register("coder", factory, false)

	w.mu.Lock()
	coder := w.agents["coder"]
	ceo := w.agents["ceo"]
	w.mu.Unlock()

	result := bus.NewTaskResult("coder", "ceo", "t-1", map[string]any{"result": "done"}, true)
	w.handleOutbound(coder, result)

	sig, ok := ceo.inbox.Get(time.Second)
	if !ok {
		t.Fatal("result not routed to target inbox")
	}
	if sig.TaskID() != "t-1" || !sig.Success() {
		t.Errorf("routed signal mangled: %+v", sig)
	}
}

func TestWatchdog_SendTaskAndStatus(t *testing.T) {
	w, _ := testWatchdog(t)
	var mu sync.Mutex
	spawns := 0
	factory, _ := countingFactory(&spawns, &mu)
	w.Register("coder", factory, false)

	if w.SendTask("nobody", "t-1", nil) {
		t.Error("SendTask to unknown role should fail")
	}
	if !w.SendTask("coder", "t-2", map[string]any{"instruction": "x"}) {
		t.Fatal("SendTask to registered role failed")
	}

	w.mu.Lock()
	a := w.agents["coder"]
	w.mu.Unlock()
	sig, ok := a.inbox.Get(time.Second)
	if !ok || sig.Type != bus.SignalTaskAssign || sig.TaskID() != "t-2" {
		t.Errorf("task_assign not delivered: %+v", sig)
	}

	status := w.Status()
	if len(status) != 1 || status[0].Role != "coder" || status[0].Alive {
		t.Errorf("unexpected status %+v", status)
	}
}
