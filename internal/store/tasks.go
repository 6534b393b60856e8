package store

import (
	"database/sql"
	"fmt"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// AddTask inserts a template task. Template tasks are authored by the
// ingestion collaborator; the progress engine itself never writes here.
func (s *Store) AddTask(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parent interface{}
	if task.ParentID != "" {
		parent = task.ParentID
	}

	_, err := s.conn.Exec(`
		INSERT INTO tasks (id, parent_id, project_id, type, title, description, priority, depth, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, parent, task.ProjectID, string(task.Type), task.Title, task.Description,
		task.Priority, task.Depth, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask returns the task with the given ID, or ErrTaskNotFound.
func (s *Store) GetTask(taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRow(`
		SELECT id, parent_id, project_id, type, title, description, priority, depth, created_at
		FROM tasks WHERE id = ?
	`, taskID)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return task, nil
}

// TaskExists reports whether a task row exists for the given ID.
func (s *Store) TaskExists(taskID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	row := s.conn.QueryRow("SELECT COUNT(*) FROM tasks WHERE id = ?", taskID)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("check task %s: %w", taskID, err)
	}
	return n > 0, nil
}

// TasksInProject returns every task in the project, ordered by creation time
// then ID so callers see a stable sequence.
func (s *Store) TasksInProject(projectID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, parent_id, project_id, type, title, description, priority, depth, created_at
		FROM tasks WHERE project_id = ?
		ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project %s: %w", projectID, err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ChildrenOf returns the direct children of a task via the parent link.
func (s *Store) ChildrenOf(taskID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, parent_id, project_id, type, title, description, priority, depth, created_at
		FROM tasks WHERE parent_id = ?
		ORDER BY created_at, id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", taskID, err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// AncestorsOf walks the parent chain from the task to the project root.
// The result is ordered nearest-first and excludes the task itself.
func (s *Store) AncestorsOf(taskID string) ([]*models.Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	var ancestors []*models.Task
	seen := map[string]bool{task.ID: true}
	current := task.ParentID
	for current != "" {
		// Guard against a corrupted parent chain looping.
		if seen[current] {
			return nil, fmt.Errorf("parent chain of %s revisits %s", taskID, current)
		}
		seen[current] = true

		parent, err := s.GetTask(current)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, parent)
		current = parent.ParentID
	}
	return ancestors, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var parent sql.NullString
	var taskType string

	err := row.Scan(&task.ID, &parent, &task.ProjectID, &taskType, &task.Title,
		&task.Description, &task.Priority, &task.Depth, &task.CreatedAt)
	if err != nil {
		return nil, err
	}

	task.ParentID = parent.String
	task.Type = models.TaskType(taskType)
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
