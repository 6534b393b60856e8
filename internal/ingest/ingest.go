// Package ingest loads curriculum files into the template store. It is
// the authoring collaborator in front of the progress engine: every task
// gets its depth from the parent chain, and every dependency edge goes in
// through the tracker so the cycle guard sees it.
package ingest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Stefan-Coetzee/wayfind/internal/tracker"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// Curriculum is the on-disk authoring format.
type Curriculum struct {
	// Project is the root task ID every task in the file belongs to.
	Project string `yaml:"project"`
	// Tasks lists the template tasks, root included.
	Tasks []TaskSpec `yaml:"tasks"`
	// Dependencies lists typed edges between the tasks above.
	Dependencies []DependencySpec `yaml:"dependencies"`
}

// TaskSpec is one task entry in a curriculum file.
type TaskSpec struct {
	ID          string `yaml:"id"`
	Parent      string `yaml:"parent"`
	Type        string `yaml:"type"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    *int   `yaml:"priority"`
}

// DependencySpec is one edge entry in a curriculum file.
type DependencySpec struct {
	Task      string `yaml:"task"`
	DependsOn string `yaml:"depends_on"`
	Type      string `yaml:"type"`
}

// Load parses a curriculum file and validates its internal consistency.
func Load(path string) (*Curriculum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}

	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Curriculum) validate() error {
	if c.Project == "" {
		return fmt.Errorf("curriculum has no project ID")
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("curriculum has no tasks")
	}

	byID := make(map[string]*TaskSpec, len(c.Tasks))
	for i := range c.Tasks {
		spec := &c.Tasks[i]
		if spec.ID == "" {
			return fmt.Errorf("task %d has no ID", i)
		}
		if _, dup := byID[spec.ID]; dup {
			return fmt.Errorf("duplicate task ID %s", spec.ID)
		}
		if !models.TaskType(spec.Type).Valid() {
			return fmt.Errorf("task %s: unknown type %q", spec.ID, spec.Type)
		}
		if spec.Priority != nil && !models.ValidPriority(*spec.Priority) {
			return fmt.Errorf("task %s: priority %d out of range", spec.ID, *spec.Priority)
		}
		byID[spec.ID] = spec
	}

	for _, spec := range c.Tasks {
		if spec.Parent == "" {
			continue
		}
		if _, ok := byID[spec.Parent]; !ok {
			return fmt.Errorf("task %s: unknown parent %s", spec.ID, spec.Parent)
		}
	}

	// Depth computation below rejects parent loops; validate it eagerly
	// so a broken file fails before anything is written.
	for _, spec := range c.Tasks {
		if _, err := depthOf(byID, spec.ID); err != nil {
			return err
		}
	}

	for i, dep := range c.Dependencies {
		if _, ok := byID[dep.Task]; !ok {
			return fmt.Errorf("dependency %d: unknown task %s", i, dep.Task)
		}
		if _, ok := byID[dep.DependsOn]; !ok {
			return fmt.Errorf("dependency %d: unknown task %s", i, dep.DependsOn)
		}
		if !models.DependencyType(dep.Type).Valid() {
			return fmt.Errorf("dependency %d: unknown type %q", i, dep.Type)
		}
	}
	return nil
}

func depthOf(byID map[string]*TaskSpec, id string) (int, error) {
	depth := 0
	seen := map[string]bool{}
	for current := byID[id]; current.Parent != ""; current = byID[current.Parent] {
		if seen[current.ID] {
			return 0, fmt.Errorf("task %s: parent chain loops", id)
		}
		seen[current.ID] = true
		depth++
	}
	return depth, nil
}

// Apply writes the curriculum into the store behind the tracker. Tasks
// land first, parents before children; dependency edges go through
// AddDependency so a file that encodes a blocking cycle is rejected
// partway with the offending edge named.
func Apply(tr *tracker.Tracker, c *Curriculum) error {
	byID := make(map[string]*TaskSpec, len(c.Tasks))
	for i := range c.Tasks {
		byID[c.Tasks[i].ID] = &c.Tasks[i]
	}

	// Creation timestamps follow file order so ranking tie-breaks are
	// stable across re-imports.
	base := time.Now().UTC()
	for i := range c.Tasks {
		spec := &c.Tasks[i]
		depth, err := depthOf(byID, spec.ID)
		if err != nil {
			return err
		}

		priority := 2
		if spec.Priority != nil {
			priority = *spec.Priority
		}

		task := &models.Task{
			ID:          spec.ID,
			ParentID:    spec.Parent,
			ProjectID:   c.Project,
			Type:        models.TaskType(spec.Type),
			Title:       spec.Title,
			Description: spec.Description,
			Priority:    priority,
			Depth:       depth,
			CreatedAt:   base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := tr.Store().AddTask(task); err != nil {
			return err
		}
	}

	for _, dep := range c.Dependencies {
		if _, err := tr.AddDependency(dep.Task, dep.DependsOn, models.DependencyType(dep.Type)); err != nil {
			return fmt.Errorf("dependency %s -> %s: %w", dep.Task, dep.DependsOn, err)
		}
	}
	return nil
}
