package store

import (
	"database/sql"
	"fmt"
)

// Turn is one ring entry: just enough for LLM context assembly.
type Turn struct {
	Role    string
	Content string
}

// TurnRow is a full persisted turn record.
type TurnRow struct {
	ID      int64
	Role    string
	Content string
	Tokens  int
}

// ring is a bounded FIFO of the most recent turns for one session.
type ring struct {
	entries []Turn
	maxLen  int
	primed  bool
}

func (r *ring) push(t Turn) {
	r.entries = append(r.entries, t)
	if len(r.entries) > r.maxLen {
		r.entries = r.entries[len(r.entries)-r.maxLen:]
	}
}

func (s *Store) getRing(sessionID string) *ring {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rings[sessionID]
	if !ok {
		r = &ring{maxLen: s.shortTermMaxLen}
		s.rings[sessionID] = r
	}
	return r
}

// PushTurn appends a turn to the session's short-term ring and persists
// it, returning the new turn id.
func (s *Store) PushTurn(sessionID, role, content, agentRole string, tokens int) (int64, error) {
	s.getRing(sessionID).push(Turn{Role: role, Content: content})

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO turns (session_id, agent_role, role, content, tokens) VALUES (?, ?, ?, ?, ?)`,
			sessionID, agentRole, role, content, tokens,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("push turn: %w", err)
	}
	return id, nil
}

// GetContext returns the short-term window for LLM context. On the first
// access after a process restart the ring is rehydrated from the turn log.
func (s *Store) GetContext(sessionID string) ([]Turn, error) {
	r := s.getRing(sessionID)
	if !r.primed && len(r.entries) == 0 {
		if err := s.RebuildShortTerm(sessionID); err != nil {
			return nil, err
		}
	}
	r.primed = true
	out := make([]Turn, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// ClearShortTerm empties the session's ring without touching the log.
func (s *Store) ClearShortTerm(sessionID string) {
	r := s.getRing(sessionID)
	r.entries = nil
	r.primed = true
}

// RebuildShortTerm reloads the last N turns from the log into the ring,
// oldest first.
func (s *Store) RebuildShortTerm(sessionID string) error {
	rows, err := s.db.Query(
		`SELECT role, content FROM turns WHERE session_id=? ORDER BY id DESC LIMIT ?`,
		sessionID, s.shortTermMaxLen,
	)
	if err != nil {
		return fmt.Errorf("rebuild short term: %w", err)
	}
	defer rows.Close()

	var recent []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return err
		}
		recent = append(recent, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	r := s.getRing(sessionID)
	r.entries = nil
	for i := len(recent) - 1; i >= 0; i-- {
		r.push(recent[i])
	}
	r.primed = true
	return nil
}

// CountUnsummarized returns how many turns in the session have not been
// folded into a summary yet.
func (s *Store) CountUnsummarized(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM turns WHERE session_id=? AND summarized=0`, sessionID,
	).Scan(&n)
	return n, err
}

// GetUnsummarized returns up to limit unsummarized turns in id order.
func (s *Store) GetUnsummarized(sessionID string, limit int) ([]TurnRow, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, tokens FROM turns
		 WHERE session_id=? AND summarized=0 ORDER BY id LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TurnRow
	for rows.Next() {
		var t TurnRow
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &t.Tokens); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkSummarized flips the summarized flag for the given turn ids.
// The flag only ever transitions false to true.
func (s *Store) MarkSummarized(sessionID string, turnIDs []int64) error {
	if len(turnIDs) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE turns SET summarized=1 WHERE session_id=? AND id=?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range turnIDs {
			if _, err := stmt.Exec(sessionID, id); err != nil {
				return err
			}
		}
		return nil
	})
}
