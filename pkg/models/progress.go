package models

import "time"

// Status represents a learner's state on a single task.
type Status string

const (
	// StatusOpen indicates the learner has not started the task.
	// A missing progress record is equivalent to open.
	StatusOpen Status = "open"
	// StatusInProgress indicates the learner is working on the task.
	StatusInProgress Status = "in_progress"
	// StatusBlocked indicates the learner has parked the task.
	StatusBlocked Status = "blocked"
	// StatusClosed indicates the learner completed the task.
	StatusClosed Status = "closed"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return true
	default:
		return false
	}
}

// Workable returns true for statuses that qualify a task for the ready
// queue, before blocking is considered.
func (s Status) Workable() bool {
	return s == StatusOpen || s == StatusInProgress
}

// ProgressRecord is one learner's state on one task. Records are
// materialized lazily on the first status-changing write; until then the
// pair is implicitly open. Rows are never deleted; reopening a closed
// task clears the completion fields but keeps the row.
type ProgressRecord struct {
	// TaskID identifies the template task.
	TaskID string `json:"task_id"`
	// LearnerID partitions progress per learner.
	LearnerID string `json:"learner_id"`
	// Status is the learner's current state on the task.
	Status Status `json:"status"`
	// StartedAt is when the learner first moved the task to in_progress.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the learner closed the task, if closed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// CloseReason is set only on close and cleared on reopen.
	CloseReason string `json:"close_reason,omitempty"`
	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
