package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// AddEdge inserts a dependency edge without any cycle validation.
// Callers inserting blocking edges must run the cycle check first, under
// the project's insertion lock; the tracker facade owns that sequence.
func (s *Store) AddEdge(dep *models.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO dependencies (task_id, depends_on_id, type, created_at)
		VALUES (?, ?, ?, ?)
	`, dep.TaskID, dep.DependsOnID, string(dep.Type), dep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert edge %s->%s (%s): %w", dep.TaskID, dep.DependsOnID, dep.Type, err)
	}
	return nil
}

// RemoveEdge deletes a dependency edge, returning ErrDependencyNotFound
// if no such edge exists.
func (s *Store) RemoveEdge(taskID, dependsOnID string, depType models.DependencyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.conn.Exec(`
		DELETE FROM dependencies WHERE task_id = ? AND depends_on_id = ? AND type = ?
	`, taskID, dependsOnID, string(depType))
	if err != nil {
		return fmt.Errorf("delete edge %s->%s (%s): %w", taskID, dependsOnID, depType, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("edge %s->%s (%s): %w", taskID, dependsOnID, depType, ErrDependencyNotFound)
	}
	return nil
}

// EdgeExists reports whether the exact (task, depends-on, type) edge exists.
func (s *Store) EdgeExists(taskID, dependsOnID string, depType models.DependencyType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	row := s.conn.QueryRow(`
		SELECT COUNT(*) FROM dependencies WHERE task_id = ? AND depends_on_id = ? AND type = ?
	`, taskID, dependsOnID, string(depType))
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("check edge: %w", err)
	}
	return n > 0, nil
}

// DependenciesOf returns the outgoing edges of a task, optionally
// restricted to the given edge types.
func (s *Store) DependenciesOf(taskID string, types ...models.DependencyType) ([]*models.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT task_id, depends_on_id, type, created_at
		FROM dependencies WHERE task_id = ?`
	args := []interface{}{taskID}
	query, args = appendTypeFilter(query, args, types)
	query += " ORDER BY created_at, depends_on_id"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dependencies of %s: %w", taskID, err)
	}
	defer rows.Close()

	return collectEdges(rows)
}

// DependentsOf returns the incoming edges of a task, optionally
// restricted to the given edge types.
func (s *Store) DependentsOf(taskID string, types ...models.DependencyType) ([]*models.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT task_id, depends_on_id, type, created_at
		FROM dependencies WHERE depends_on_id = ?`
	args := []interface{}{taskID}
	query, args = appendTypeFilter(query, args, types)
	query += " ORDER BY created_at, task_id"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dependents of %s: %w", taskID, err)
	}
	defer rows.Close()

	return collectEdges(rows)
}

// BlockingNeighbors returns the IDs a task depends on over BLOCKS and
// PARENT_CHILD edges. This makes the store a graph.EdgeSource for the
// cycle guard's always-consistent read path.
func (s *Store) BlockingNeighbors(taskID string) ([]string, error) {
	deps, err := s.DependenciesOf(taskID, models.DepBlocks, models.DepParentChild)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(deps))
	for _, dep := range deps {
		ids = append(ids, dep.DependsOnID)
	}
	return ids, nil
}

// BlockingEdgesInProject returns every BLOCKS and PARENT_CHILD edge whose
// source task belongs to the project. Used by the cycle audit and the
// subgraph snapshot.
func (s *Store) BlockingEdgesInProject(projectID string) ([]*models.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT d.task_id, d.depends_on_id, d.type, d.created_at
		FROM dependencies d
		JOIN tasks t ON t.id = d.task_id
		WHERE t.project_id = ? AND d.type IN (?, ?)
		ORDER BY d.created_at, d.task_id, d.depends_on_id
	`, projectID, string(models.DepBlocks), string(models.DepParentChild))
	if err != nil {
		return nil, fmt.Errorf("blocking edges of project %s: %w", projectID, err)
	}
	defer rows.Close()

	return collectEdges(rows)
}

func appendTypeFilter(query string, args []interface{}, types []models.DependencyType) (string, []interface{}) {
	if len(types) == 0 {
		return query, args
	}
	placeholders := make([]string, len(types))
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	query += " AND type IN (" + strings.Join(placeholders, ", ") + ")"
	return query, args
}

func collectEdges(rows *sql.Rows) ([]*models.Dependency, error) {
	var edges []*models.Dependency
	for rows.Next() {
		var dep models.Dependency
		var depType string
		if err := rows.Scan(&dep.TaskID, &dep.DependsOnID, &depType, &dep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		dep.Type = models.DependencyType(depType)
		edges = append(edges, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}
