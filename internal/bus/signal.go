// Package bus defines the typed signals exchanged between the
// supervisor and worker agents, and the bounded queues they travel on.
// Each worker owns two queues: an inbox (supervisor to worker) and an
// outbox (worker to supervisor).
package bus

import (
	"encoding/json"
	"time"
)

// SignalType enumerates the wire-level signal kinds.
type SignalType string

const (
	SignalHeartbeat      SignalType = "heartbeat"
	SignalTaskAssign     SignalType = "task_assign"
	SignalTaskResult     SignalType = "task_result"
	SignalAgentKill      SignalType = "agent_kill"
	SignalAgentRestart   SignalType = "agent_restart"
	SignalShutdown       SignalType = "shutdown"
	SignalStatusRequest  SignalType = "status_request"
	SignalStatusResponse SignalType = "status_response"
)

// Signal is one typed message between supervisor and worker.
type Signal struct {
	Type      SignalType     `json:"type"`
	Sender    string         `json:"sender"`
	Target    string         `json:"target"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New builds a signal stamped with the current time.
func New(t SignalType, sender, target string, payload map[string]any) Signal {
	return Signal{
		Type:      t,
		Sender:    sender,
		Target:    target,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// NewTaskAssign builds a task_assign signal carrying the task id and its
// input payload.
func NewTaskAssign(sender, target, taskID string, inputData map[string]any) Signal {
	return New(SignalTaskAssign, sender, target, map[string]any{
		"task_id":    taskID,
		"input_data": inputData,
	})
}

// NewTaskResult builds a task_result signal carrying the outcome of a
// completed task.
func NewTaskResult(sender, target, taskID string, outputData map[string]any, success bool) Signal {
	return New(SignalTaskResult, sender, target, map[string]any{
		"task_id":     taskID,
		"output_data": outputData,
		"success":     success,
	})
}

// NewHeartbeat builds a heartbeat signal with the worker's pid and
// current status.
func NewHeartbeat(sender string, pid int, status string) Signal {
	return New(SignalHeartbeat, sender, "watchdog", map[string]any{
		"pid":    pid,
		"status": status,
	})
}

// TaskID extracts the task id from a task_assign or task_result payload.
func (s Signal) TaskID() string {
	id, _ := s.Payload["task_id"].(string)
	return id
}

// InputData extracts the task input from a task_assign payload.
func (s Signal) InputData() map[string]any {
	if m, ok := s.Payload["input_data"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Success extracts the success flag from a task_result payload.
func (s Signal) Success() bool {
	ok, _ := s.Payload["success"].(bool)
	return ok
}

// Encode renders the signal as a single JSON line for the process
// transport.
func (s Signal) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode parses one JSON line back into a signal.
func Decode(line []byte) (Signal, error) {
	var s Signal
	err := json.Unmarshal(line, &s)
	return s, err
}
