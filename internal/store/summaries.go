package store

// SaveSummary persists a compacted block over the inclusive turn id
// range it covers (formatted "min-max").
func (s *Store) SaveSummary(sessionID, content, turnRange string) error {
	_, err := s.db.Exec(
		`INSERT INTO summaries (session_id, content, turn_range) VALUES (?, ?, ?)`,
		sessionID, content, turnRange,
	)
	return err
}

// LoadLatestSummaries returns the newest limit summaries for the
// session, oldest first so they read chronologically in context.
func (s *Store) LoadLatestSummaries(sessionID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.Query(
		`SELECT content FROM summaries WHERE session_id=? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}
