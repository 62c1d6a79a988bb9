// Package store is the embedded persistence layer: turns, summaries,
// tasks, costs, audit rows, and agent state in a single SQLite file
// opened in WAL mode. Every public call runs a short transaction with
// rollback on failure; all statements are parameterized.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps the SQLite handle plus the per-session short-term rings.
// The rings are process-local; they rebuild from the turn log on first
// access after a restart.
type Store struct {
	db              *sql.DB
	shortTermMaxLen int

	mu    sync.Mutex
	rings map[string]*ring
}

// Open opens (creating if needed) the store at dbPath and applies any
// pending schema migrations.
func Open(dbPath string, shortTermMaxLen int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn inside one process while WAL handles cross-process access.
	db.SetMaxOpenConns(1)

	if shortTermMaxLen <= 0 {
		shortTermMaxLen = 20
	}
	s := &Store{
		db:              db,
		shortTermMaxLen: shortTermMaxLen,
		rings:           make(map[string]*ring),
	}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending schema migrations from the embedded sources.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	drv, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Vacuum compacts the database file; run from the supervisor's
// maintenance slot, never from a request path.
func (s *Store) Vacuum() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("store.rollback_failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}
