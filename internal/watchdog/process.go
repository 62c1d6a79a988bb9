package watchdog

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/nextlevelbuilder/teamclaw/internal/bus"
)

// execProcess runs one worker as a child process of the supervisor.
// Signals cross the process boundary as JSON lines: the agent's inbox
// is pumped to the child's stdin and the child's stdout feeds the
// outbox. The child is a re-exec of this binary with a hidden worker
// entry command.
type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	inbox  *bus.Queue
	outbox *bus.Queue

	mu    sync.Mutex
	done  bool
	close sync.Once
	quit  chan struct{}
}

// ExecFactory returns a Factory that spawns `<self> agent run --role
// <role>` children with extra args appended (config path and the like).
func ExecFactory(role string, extraArgs ...string) Factory {
	return func(inbox, outbox *bus.Queue) (Process, error) {
		self, err := os.Executable()
		if err != nil {
			return nil, err
		}
		args := append([]string{"agent", "run", "--role", role}, extraArgs...)
		cmd := exec.Command(self, args...)
		cmd.Stderr = os.Stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}

		p := &execProcess{
			cmd:    cmd,
			stdin:  stdin,
			inbox:  inbox,
			outbox: outbox,
			quit:   make(chan struct{}),
		}
		go p.pumpIn()
		go p.pumpOut(stdout)
		go p.reap()
		return p, nil
	}
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

func (p *execProcess) Terminate() {
	if proc := p.cmd.Process; proc != nil {
		proc.Signal(os.Interrupt)
	}
}

func (p *execProcess) Kill() {
	if proc := p.cmd.Process; proc != nil {
		proc.Kill()
	}
}

// pumpIn forwards inbox signals to the child's stdin until the process
// exits. Signals left on the inbox after exit stay queued for the
// replacement process.
func (p *execProcess) pumpIn() {
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		sig, ok := p.inbox.Get(200 * time.Millisecond)
		if !ok {
			continue
		}
		line, err := sig.Encode()
		if err != nil {
			slog.Warn("watchdog.signal_encode_failed", "error", err)
			continue
		}
		if _, err := p.stdin.Write(line); err != nil {
			// Child gone; requeue so the restart sees the signal.
			p.inbox.Put(sig, 0)
			return
		}
	}
}

func (p *execProcess) pumpOut(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sig, err := bus.Decode(scanner.Bytes())
		if err != nil {
			slog.Warn("watchdog.signal_decode_failed", "error", err)
			continue
		}
		p.outbox.Put(sig, time.Second)
	}
}

func (p *execProcess) reap() {
	p.cmd.Wait()
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	p.close.Do(func() {
		close(p.quit)
		p.stdin.Close()
	})
}
