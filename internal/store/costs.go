package store

// LogCost appends one immutable cost record for a completed LLM call.
func (s *Store) LogCost(agentRole, provider, model string, inputTokens, outputTokens int, costUSD float64, latencyMS int) error {
	_, err := s.db.Exec(
		`INSERT INTO cost_log (agent_role, provider, model, input_tokens, output_tokens, cost_usd, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agentRole, provider, model, inputTokens, outputTokens, costUSD, latencyMS,
	)
	return err
}

// GetDailyCost sums cost records since the start of the current day.
func (s *Store) GetDailyCost() (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(cost_usd),0) FROM cost_log WHERE ts >= datetime('now','start of day')`,
	).Scan(&total)
	return total, err
}

// GetWeeklyCost sums cost records over the trailing seven days.
func (s *Store) GetWeeklyCost() (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(cost_usd),0) FROM cost_log WHERE ts >= datetime('now','-7 days')`,
	).Scan(&total)
	return total, err
}
