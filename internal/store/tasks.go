package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Task statuses.
const (
	TaskPending = "pending"
	TaskRunning = "running"
	TaskDone    = "done"
	TaskFailed  = "failed"
)

// Task is one unit of delegable work.
type Task struct {
	ID         string
	ParentID   string
	AssignedTo string
	InputData  map[string]any
	OutputData map[string]any
	Status     string
	RetryCount int
	MaxRetries int
	ErrorMsg   string
}

// CreateTask inserts a pending task and returns its id.
func (s *Store) CreateTask(assignedTo string, inputData map[string]any, parentID string) (string, error) {
	taskID := uuid.NewString()
	input, err := json.Marshal(inputData)
	if err != nil {
		return "", fmt.Errorf("encode task input: %w", err)
	}
	var parent any
	if parentID != "" {
		parent = parentID
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks (id, parent_id, assigned_to, input_data) VALUES (?, ?, ?, ?)`,
		taskID, parent, assignedTo, string(input),
	)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return taskID, nil
}

// AddTaskDependency records that taskID may not run before dependsOn is done.
func (s *Store) AddTaskDependency(taskID, dependsOn string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO task_deps (task_id, depends_on) VALUES (?, ?)`,
		taskID, dependsOn,
	)
	return err
}

// ClaimTask atomically claims the oldest pending task for the role,
// ignoring dependencies. Returns nil when none is pending.
func (s *Store) ClaimTask(agentRole string) (*Task, error) {
	return s.claim(agentRole,
		`SELECT id, COALESCE(parent_id,''), assigned_to, input_data, status, retry_count, max_retries, COALESCE(error_msg,'')
		 FROM tasks WHERE status='pending' AND assigned_to=?
		 ORDER BY created_at LIMIT 1`)
}

// ClaimReadyTask atomically claims the oldest pending task for the role
// whose every dependency is done. Returns nil when none is ready.
func (s *Store) ClaimReadyTask(agentRole string) (*Task, error) {
	return s.claim(agentRole,
		`SELECT id, COALESCE(parent_id,''), assigned_to, input_data, status, retry_count, max_retries, COALESCE(error_msg,'')
		 FROM tasks WHERE status='pending' AND assigned_to=?
		 AND NOT EXISTS (
		   SELECT 1 FROM task_deps td
		   JOIN tasks dep ON td.depends_on = dep.id
		   WHERE td.task_id = tasks.id AND dep.status != 'done'
		 ) ORDER BY created_at LIMIT 1`)
}

func (s *Store) claim(agentRole, query string) (*Task, error) {
	var t *Task
	err := s.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(query, agentRole)
		var cand Task
		var input string
		err := row.Scan(&cand.ID, &cand.ParentID, &cand.AssignedTo, &input,
			&cand.Status, &cand.RetryCount, &cand.MaxRetries, &cand.ErrorMsg)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE tasks SET status='running', updated_at=datetime('now') WHERE id=?`, cand.ID,
		); err != nil {
			return err
		}
		cand.Status = TaskRunning
		if err := json.Unmarshal([]byte(input), &cand.InputData); err != nil {
			cand.InputData = map[string]any{}
		}
		t = &cand
		return nil
	})
	return t, err
}

// CompleteTask finishes a task as done or failed with its output payload.
func (s *Store) CompleteTask(taskID string, outputData map[string]any, success bool) error {
	status := TaskDone
	if !success {
		status = TaskFailed
	}
	output, err := json.Marshal(outputData)
	if err != nil {
		return fmt.Errorf("encode task output: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE tasks SET status=?, output_data=?, updated_at=datetime('now') WHERE id=?`,
		status, string(output), taskID,
	)
	return err
}

// FailWithRetry marks a task attempt failed. While retries remain the
// task is reset to pending with an incremented retry count; the return
// value reports whether a retry was scheduled.
func (s *Store) FailWithRetry(taskID, errMsg string) (bool, error) {
	retrying := false
	err := s.withTx(func(tx *sql.Tx) error {
		var retryCount, maxRetries int
		err := tx.QueryRow(
			`SELECT retry_count, max_retries FROM tasks WHERE id=?`, taskID,
		).Scan(&retryCount, &maxRetries)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		retryCount++
		status := TaskFailed
		if retryCount <= maxRetries {
			status = TaskPending
			retrying = true
		}
		_, err = tx.Exec(
			`UPDATE tasks SET status=?, retry_count=?, error_msg=?, updated_at=datetime('now') WHERE id=?`,
			status, retryCount, errMsg, taskID,
		)
		return err
	})
	return retrying, err
}

// GetTask loads a task by id, nil when absent.
func (s *Store) GetTask(taskID string) (*Task, error) {
	row := s.db.QueryRow(
		`SELECT id, COALESCE(parent_id,''), assigned_to, input_data, COALESCE(output_data,'{}'),
		        status, retry_count, max_retries, COALESCE(error_msg,'')
		 FROM tasks WHERE id=?`, taskID,
	)
	var t Task
	var input, output string
	err := row.Scan(&t.ID, &t.ParentID, &t.AssignedTo, &input, &output,
		&t.Status, &t.RetryCount, &t.MaxRetries, &t.ErrorMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(input), &t.InputData); err != nil {
		t.InputData = map[string]any{}
	}
	if err := json.Unmarshal([]byte(output), &t.OutputData); err != nil {
		t.OutputData = map[string]any{}
	}
	return &t, nil
}
