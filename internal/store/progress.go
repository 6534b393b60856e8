package store

import (
	"database/sql"
	"fmt"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// GetProgress returns the persisted record for a (task, learner) pair.
// The second return is false when no row exists; interpreting absence is
// the progress overlay's job, not the store's.
func (s *Store) GetProgress(taskID, learnerID string) (*models.ProgressRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRow(`
		SELECT task_id, learner_id, status, started_at, completed_at, close_reason, updated_at
		FROM progress WHERE task_id = ? AND learner_id = ?
	`, taskID, learnerID)

	rec, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress %s/%s: %w", taskID, learnerID, err)
	}
	return rec, true, nil
}

// UpsertProgress writes the record, inserting on first touch and
// replacing the row on later writes. The (task, learner) identity is
// preserved across reopen cycles.
func (s *Store) UpsertProgress(rec *models.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var started, completed interface{}
	if rec.StartedAt != nil {
		started = *rec.StartedAt
	}
	if rec.CompletedAt != nil {
		completed = *rec.CompletedAt
	}

	_, err := s.conn.Exec(`
		INSERT INTO progress (task_id, learner_id, status, started_at, completed_at, close_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, learner_id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			close_reason = excluded.close_reason,
			updated_at = excluded.updated_at
	`, rec.TaskID, rec.LearnerID, string(rec.Status), started, completed, rec.CloseReason, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress %s/%s: %w", rec.TaskID, rec.LearnerID, err)
	}
	return nil
}

// LearnerStatuses returns the materialized statuses for one learner across
// a project, keyed by task ID. Pairs the learner never touched are absent,
// which readers must treat as open.
func (s *Store) LearnerStatuses(projectID, learnerID string) (map[string]models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT p.task_id, p.status
		FROM progress p
		JOIN tasks t ON t.id = p.task_id
		WHERE t.project_id = ? AND p.learner_id = ?
	`, projectID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("learner statuses %s/%s: %w", projectID, learnerID, err)
	}
	defer rows.Close()

	statuses := make(map[string]models.Status)
	for rows.Next() {
		var taskID, status string
		if err := rows.Scan(&taskID, &status); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses[taskID] = models.Status(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return statuses, nil
}

func scanProgress(row rowScanner) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	var status string
	var started, completed sql.NullTime

	err := row.Scan(&rec.TaskID, &rec.LearnerID, &status, &started, &completed,
		&rec.CloseReason, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = models.Status(status)
	if started.Valid {
		t := started.Time
		rec.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}
