package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/bus"
	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

const (
	heartbeatInterval = 5 * time.Second
	inboxPollTimeout  = time.Second
)

// Chassis hosts one Worker: it applies the memory cap, replays state
// recovery, runs the heartbeat and signal loops, and turns HandleTask
// outcomes into task_result signals and store updates. Roles never
// touch the bus directly.
type Chassis struct {
	worker Worker
	cfg    *config.Config
	store  *store.Store
	inbox  *bus.Queue
	outbox *bus.Queue

	stopOnce sync.Once
	stop     chan struct{}
}

func NewChassis(w Worker, cfg *config.Config, st *store.Store, inbox, outbox *bus.Queue) *Chassis {
	if inbox == nil {
		inbox = bus.NewQueue(64)
	}
	if outbox == nil {
		outbox = bus.NewQueue(256)
	}
	return &Chassis{
		worker: w,
		cfg:    cfg,
		store:  st,
		inbox:  inbox,
		outbox: outbox,
		stop:   make(chan struct{}),
	}
}

func (c *Chassis) Inbox() *bus.Queue  { return c.inbox }
func (c *Chassis) Outbox() *bus.Queue { return c.outbox }

// Run is the chassis main loop; it returns when Stop is called, a
// shutdown signal arrives, or the context is cancelled. A crash in the
// loop itself marks the agent crashed in the store before returning.
func (c *Chassis) Run(ctx context.Context) (err error) {
	role := c.worker.Role()
	pid := os.Getpid()
	applyRAMCap(c.cfg.Watchdog.RAMKillThresholdMB)

	c.store.UpsertAgentState(role, "idle", pid, "")
	if rerr := c.worker.RecoverState(ctx); rerr != nil {
		slog.Warn("agent.recover_failed", "role", role, "error", rerr)
	}
	slog.Info("agent.started", "role", role, "pid", pid)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("agent.crashed", "role", role, "panic", rec)
			c.store.UpsertAgentState(role, "crashed", pid, "")
			err = fmt.Errorf("agent %s crashed: %v", role, rec)
			return
		}
		c.store.UpsertAgentState(role, "idle", pid, "")
		slog.Info("agent.stopped", "role", role)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.heartbeatLoop()
	}()
	defer wg.Wait()
	defer c.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		default:
		}
		sig, ok := c.inbox.Get(inboxPollTimeout)
		if !ok {
			continue
		}
		switch sig.Type {
		case bus.SignalShutdown:
			return nil
		case bus.SignalTaskAssign:
			c.handleTaskAssign(ctx, sig)
		case bus.SignalStatusRequest:
			c.outbox.Put(bus.New(bus.SignalStatusResponse, role, sig.Sender, map[string]any{
				"role": role, "pid": pid, "status": "running",
			}), 0)
		}
	}
}

// Stop asks the loops to exit; safe to call more than once.
func (c *Chassis) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Chassis) handleTaskAssign(ctx context.Context, sig bus.Signal) {
	role := c.worker.Role()
	taskID := sig.TaskID()
	c.store.UpsertAgentState(role, "working", os.Getpid(), taskID)

	output, success := c.runTask(ctx, sig.InputData())

	c.store.UpsertAgentState(role, "idle", os.Getpid(), "")
	if taskID != "" {
		if err := c.store.CompleteTask(taskID, output, success); err != nil {
			slog.Error("agent.task_record_failed", "role", role, "task", taskID, "error", err)
		}
	}
	c.outbox.Put(bus.NewTaskResult(role, sig.Sender, taskID, output, success), time.Second)
}

// runTask isolates one HandleTask call: an error or panic becomes an
// {"error": ...} payload instead of taking the agent down.
func (c *Chassis) runTask(ctx context.Context, task map[string]any) (out map[string]any, success bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("agent.task_panic", "role", c.worker.Role(), "panic", rec)
			out = map[string]any{"error": fmt.Sprint(rec)}
			success = false
		}
	}()

	result, err := c.worker.HandleTask(ctx, task)
	if err != nil {
		slog.Error("agent.task_failed", "role", c.worker.Role(), "error", err)
		return map[string]any{"error": err.Error()}, false
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, true
}

func (c *Chassis) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.outbox.Put(bus.NewHeartbeat(c.worker.Role(), os.Getpid(), "running"), 0)
		}
	}
}
