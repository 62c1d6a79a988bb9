package store

import (
	"database/sql"
	"strings"
)

// Memory chunks are content-addressed sections of the durable markdown
// memory, indexed for full-text retrieval. Chunk ids are derived from a
// hash of the section text so reindexing the same document is a no-op.

// HasChunk reports whether a chunk id is already indexed.
func (s *Store) HasChunk(chunkID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM memory_chunks WHERE chunk_id=?`, chunkID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertChunk indexes one section in both the chunk table and its
// full-text index.
func (s *Store) InsertChunk(chunkID, heading, content, source string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO memory_chunks (chunk_id, heading, content, source) VALUES (?, ?, ?, ?)`,
			chunkID, heading, content, source,
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO memory_chunks_fts (chunk_id, heading, content) VALUES (?, ?, ?)`,
			chunkID, heading, content,
		)
		return err
	})
}

// FTSHit is one full-text match with its raw BM25 rank (lower is better).
type FTSHit struct {
	Content string
	Rank    float64
}

// SearchTurnsFTS runs a BM25 query over the session's turn index.
func (s *Store) SearchTurnsFTS(query, sessionID string, limit int) ([]FTSHit, error) {
	rows, err := s.db.Query(
		`SELECT t.content, bm25(turns_fts) AS rank
		 FROM turns_fts JOIN turns t ON t.id = turns_fts.rowid
		 WHERE turns_fts MATCH ? AND t.session_id = ?
		 ORDER BY rank LIMIT ?`,
		query, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchChunksFTS runs a BM25 query over the durable memory chunks.
func (s *Store) SearchChunksFTS(query string, limit int) ([]FTSHit, error) {
	rows, err := s.db.Query(
		`SELECT content, bm25(memory_chunks_fts) AS rank
		 FROM memory_chunks_fts WHERE memory_chunks_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchTurnsLike is the degraded retrieval path: a conjunctive LIKE
// over up to three terms, newest turns first.
func (s *Store) SearchTurnsLike(terms []string, sessionID string, limit int) ([]string, error) {
	if len(terms) > 3 {
		terms = terms[:3]
	}
	var sb strings.Builder
	sb.WriteString(`SELECT content FROM turns WHERE session_id=?`)
	args := []any{sessionID}
	for _, term := range terms {
		sb.WriteString(` AND content LIKE ?`)
		args = append(args, "%"+term+"%")
	}
	sb.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanHits(rows *sql.Rows) ([]FTSHit, error) {
	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.Content, &h.Rank); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
