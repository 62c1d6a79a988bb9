package store

import "encoding/json"

// Audit results.
const (
	AuditAllowed = "allowed"
	AuditDenied  = "denied"
	AuditError   = "error"
)

// AuditFunc is the signature tool execution uses to record decisions.
type AuditFunc func(agentRole, toolName string, arguments map[string]any, result, detail string) error

// Audit appends one immutable audit record for a tool decision.
func (s *Store) Audit(agentRole, toolName string, arguments map[string]any, result, detail string) error {
	args, err := json.Marshal(arguments)
	if err != nil {
		args = []byte("{}")
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_log (agent_role, tool_name, arguments, result, detail)
		 VALUES (?, ?, ?, ?, ?)`,
		agentRole, toolName, string(args), result, detail,
	)
	return err
}

// AuditRow is one recorded tool decision.
type AuditRow struct {
	AgentRole string
	ToolName  string
	Arguments string
	Result    string
	Detail    string
}

// RecentAudits returns the newest limit audit rows.
func (s *Store) RecentAudits(limit int) ([]AuditRow, error) {
	rows, err := s.db.Query(
		`SELECT agent_role, tool_name, arguments, result, detail
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var a AuditRow
		if err := rows.Scan(&a.AgentRole, &a.ToolName, &a.Arguments, &a.Result, &a.Detail); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
