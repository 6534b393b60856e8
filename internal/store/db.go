// Package store provides SQLite-backed persistence for the curriculum
// template graph and the per-learner progress overlay. It handles both a
// global database (~/.local/share/wayfind/wayfind.db) and project-local
// databases (.wayfind/wayfind.db).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrTaskNotFound indicates a task ID has no row in the template keyspace.
var ErrTaskNotFound = errors.New("task not found")

// ErrDependencyNotFound indicates the (task, depends-on, type) edge does not exist.
var ErrDependencyNotFound = errors.New("dependency not found")

// Store wraps an SQLite database connection with graph and progress operations.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex

	// insertMu serializes blocking-edge insertion per project so the
	// cycle check and the insert are atomic relative to other inserts
	// on the same blocking subgraph.
	insertMu sync.Mutex
	projects map[string]*sync.Mutex
}

// GlobalDBPath returns the path to the global wayfind database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "wayfind", "wayfind.db")
}

// ProjectDBPath returns the path to a workspace-local database.
func ProjectDBPath(root string) string {
	return filepath.Join(root, ".wayfind", "wayfind.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{
		conn:     conn,
		path:     path,
		projects: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// LockProject acquires the advisory insertion lock for a project's
// blocking subgraph and returns the unlock function. Every
// check-then-insert sequence on blocking edges must run under it.
func (s *Store) LockProject(projectID string) func() {
	s.insertMu.Lock()
	mu, ok := s.projects[projectID]
	if !ok {
		mu = &sync.Mutex{}
		s.projects[projectID] = mu
	}
	s.insertMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create schema version table
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	// Apply migrations
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Template},
		{2, migrationV2Progress},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
