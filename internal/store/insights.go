package store

import (
	"fmt"
	"strings"
)

// Agent insights are short append-only notes each agent leaves about its
// decisions and results; the newest few are rendered into the CEO's
// system prompt as shared team context.

// PushAgentInsight records one insight row for the session.
func (s *Store) PushAgentInsight(sessionID, agentRole, insightType, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO agent_insights (session_id, agent_role, insight_type, content)
		 VALUES (?, ?, ?, ?)`,
		sessionID, agentRole, insightType, content,
	)
	return err
}

// GetTeamContext renders the newest 5 insights for the session as a
// markdown block, or "" when the team has no recorded activity.
func (s *Store) GetTeamContext(sessionID string) (string, error) {
	rows, err := s.db.Query(
		`SELECT agent_role, insight_type, content FROM agent_insights
		 WHERE session_id=? ORDER BY id DESC LIMIT 5`,
		sessionID,
	)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var role, kind, content string
		if err := rows.Scan(&role, &kind, &content); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", role, kind, content))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}

	// Newest first in the query; present oldest first.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return "## Team Activity\n" + strings.Join(lines, "\n"), nil
}
