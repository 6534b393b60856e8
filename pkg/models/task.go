package models

import "time"

// TaskType represents the kind of node a task is in the curriculum tree.
type TaskType string

const (
	// TaskTypeProject is the root of a curriculum tree.
	TaskTypeProject TaskType = "project"
	// TaskTypeEpic groups related tasks under a project.
	TaskTypeEpic TaskType = "epic"
	// TaskTypeTask is a standard unit of work.
	TaskTypeTask TaskType = "task"
	// TaskTypeSubtask is the smallest unit; closing one requires external validation.
	TaskTypeSubtask TaskType = "subtask"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeProject, TaskTypeEpic, TaskTypeTask, TaskTypeSubtask:
		return true
	default:
		return false
	}
}

// Priority ranges 0 (most urgent) through 4.
const (
	PriorityMin = 0
	PriorityMax = 4
)

// ValidPriority returns true if p is within the 0-4 range.
func ValidPriority(p int) bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Task is a node in the shared curriculum template. Tasks are authored once
// and are read-only to the progress engine; per-learner state lives in
// ProgressRecord, never on the task itself.
type Task struct {
	// ID is the hierarchical identifier, stable across imports.
	ID string `json:"id"`
	// ParentID is the ID of the enclosing task, empty at the project root.
	ParentID string `json:"parent_id,omitempty"`
	// ProjectID is the root task ID this task belongs to.
	ProjectID string `json:"project_id"`
	// Type is the node kind (project, epic, task, subtask).
	Type TaskType `json:"type"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Priority is 0-4 with 0 the most urgent.
	Priority int `json:"priority"`
	// Depth is the distance from the project root (root = 0).
	Depth int `json:"depth"`
	// CreatedAt is when the task was authored.
	CreatedAt time.Time `json:"created_at"`
}
