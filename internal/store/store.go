// Package store persists documents and matches in an embedded SQLite
// database. Foreign keys and a unique (job_id, engineer_id) index enforce
// the pair discipline at the schema level.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

// migrations run in order; schema_migrations records the applied version.
var migrations = []string{
	`CREATE TABLE documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL CHECK (kind IN ('job', 'engineer')),
		text TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		is_hidden INTEGER NOT NULL DEFAULT 0,
		assigned_user_id INTEGER,
		pending_index INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX idx_documents_kind ON documents(kind);
	CREATE INDEX idx_documents_pending ON documents(pending_index);

	CREATE TABLE matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES documents(id),
		engineer_id INTEGER NOT NULL REFERENCES documents(id),
		score REAL NOT NULL,
		grade TEXT NOT NULL CHECK (grade IN ('S', 'A', 'B', 'C', 'D', 'E')),
		created_at TEXT NOT NULL,
		is_hidden INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'new',
		UNIQUE (job_id, engineer_id)
	);
	CREATE INDEX idx_matches_job ON matches(job_id);
	CREATE INDEX idx_matches_engineer ON matches(engineer_id);`,
}

// Store owns the SQLite connection and hands out the repository views.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and migrates the database at the given path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Documents returns the DocumentStore view backed by this store.
func (s *Store) Documents() core.DocumentStore {
	return &documentStore{db: s.db}
}

// Matches returns the MatchRepository view backed by this store.
func (s *Store) Matches() core.MatchRepository {
	return &matchRepository{db: s.db}
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
	}

	return nil
}
