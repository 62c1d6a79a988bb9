package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Session ids bind a conversation to the triple (platform, user,
// context); the (platform, user) component is stable across restarts so
// a returning user lands in the same session.

// MakeSessionID formats "{platform}:{user}:{context}" with "default"
// standing in for an empty context.
func MakeSessionID(platform, userID, contextKey string) string {
	if contextKey == "" {
		contextKey = "default"
	}
	return fmt.Sprintf("%s:%s:%s", platform, userID, contextKey)
}

// SessionSuffix returns the last 8 characters of a session id, used to
// name per-session workspace files.
func SessionSuffix(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[len(sessionID)-8:]
}

// FindLatestSession returns the most recently active session id for a
// user across platforms, or "" when the user has no history.
func (s *Store) FindLatestSession(userID string) (string, error) {
	var sessionID sql.NullString
	err := s.db.QueryRow(
		`SELECT session_id FROM turns WHERE session_id LIKE ?
		 ORDER BY id DESC LIMIT 1`,
		"%:"+userID+":%",
	).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sessionID.String, nil
}
