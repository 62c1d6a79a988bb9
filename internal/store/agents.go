package store

import (
	"database/sql"
	"errors"
)

// Agent statuses.
const (
	AgentIdle    = "idle"
	AgentWorking = "working"
	AgentCrashed = "crashed"
	AgentKilled  = "killed"
)

// AgentState is the one-row-per-role liveness record.
type AgentState struct {
	AgentRole  string
	Status     string
	PID        int
	LastTaskID string
	UpdatedAt  string
}

// UpsertAgentState inserts or updates the role's state row. A nil/empty
// lastTaskID keeps the previously recorded task id.
func (s *Store) UpsertAgentState(agentRole, status string, pid int, lastTaskID string) error {
	var taskID any
	if lastTaskID != "" {
		taskID = lastTaskID
	}
	_, err := s.db.Exec(
		`INSERT INTO agent_state (agent_role, status, pid, last_task_id, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(agent_role) DO UPDATE SET
		   status=excluded.status, pid=excluded.pid,
		   last_task_id=COALESCE(excluded.last_task_id, last_task_id),
		   updated_at=excluded.updated_at`,
		agentRole, status, pid, taskID,
	)
	return err
}

// GetAgentState loads one role's state, nil when never registered.
func (s *Store) GetAgentState(agentRole string) (*AgentState, error) {
	row := s.db.QueryRow(
		`SELECT agent_role, status, COALESCE(pid,0), COALESCE(last_task_id,''), updated_at
		 FROM agent_state WHERE agent_role=?`, agentRole,
	)
	var st AgentState
	err := row.Scan(&st.AgentRole, &st.Status, &st.PID, &st.LastTaskID, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetAllAgentStates returns every registered role's state.
func (s *Store) GetAllAgentStates() ([]AgentState, error) {
	rows, err := s.db.Query(
		`SELECT agent_role, status, COALESCE(pid,0), COALESCE(last_task_id,''), updated_at
		 FROM agent_state ORDER BY agent_role`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentState
	for rows.Next() {
		var st AgentState
		if err := rows.Scan(&st.AgentRole, &st.Status, &st.PID, &st.LastTaskID, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
