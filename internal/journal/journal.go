// Package journal provides an append-only audit trail beside the
// progress engine: reopen reasons, dependency churn and rejected
// transitions land here, never in the progress rows themselves.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Action identifies what a journal entry records.
type Action string

const (
	// ActionReopen records a closed task being reopened, with the reason.
	ActionReopen Action = "reopen"
	// ActionDependencyAdded records a new template edge.
	ActionDependencyAdded Action = "dependency_added"
	// ActionDependencyRemoved records a deleted template edge.
	ActionDependencyRemoved Action = "dependency_removed"
	// ActionTransitionRejected records a status change refused by the
	// state machine or one of the close gates.
	ActionTransitionRejected Action = "transition_rejected"
)

// Entry is one audit record.
type Entry struct {
	ID        string
	TaskID    string
	LearnerID string
	Action    Action
	Detail    string
	CreatedAt time.Time
}

// Journal is an SQLite-backed audit log, kept in its own database so the
// progress store stays a pure latest-state keyspace.
type Journal struct {
	db *sql.DB
}

// Open opens the journal database at the given path.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	// Create table if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			learner_id TEXT,
			action TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_entries(task_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an entry, assigning its ID and timestamp.
func (j *Journal) Record(taskID, learnerID string, action Action, detail string) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		LearnerID: learnerID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	_, err := j.db.Exec(`
		INSERT INTO audit_entries (id, task_id, learner_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TaskID, entry.LearnerID, string(entry.Action), entry.Detail, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// EntriesForTask returns the entries touching a task, oldest first.
func (j *Journal) EntriesForTask(taskID string) ([]*Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, task_id, learner_id, action, detail, created_at
		FROM audit_entries WHERE task_id = ?
		ORDER BY rowid
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var learner sql.NullString
		var action string
		if err := rows.Scan(&e.ID, &e.TaskID, &learner, &action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.LearnerID = learner.String
		e.Action = Action(action)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
