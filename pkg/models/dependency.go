package models

import "time"

// DependencyType categorizes the relationship between two tasks.
type DependencyType string

const (
	// DepBlocks means the source cannot be worked until the target is closed.
	DepBlocks DependencyType = "blocks"
	// DepParentChild gates a parent's closure on its children's closure.
	DepParentChild DependencyType = "parent-child"
	// DepRelated is informational only and never affects blocking.
	DepRelated DependencyType = "related"
)

// Valid returns true if the type is a known value.
func (d DependencyType) Valid() bool {
	switch d {
	case DepBlocks, DepParentChild, DepRelated:
		return true
	default:
		return false
	}
}

// AffectsBlocking returns true for edge types that participate in the
// blocking subgraph, which must stay acyclic. RELATED edges are exempt
// and may form cycles freely.
func (d DependencyType) AffectsBlocking() bool {
	return d == DepBlocks || d == DepParentChild
}

// Dependency is a directed, typed edge between two template tasks.
// The edge reads "TaskID depends on DependsOnID".
type Dependency struct {
	// TaskID is the source of the edge.
	TaskID string `json:"task_id"`
	// DependsOnID is the target of the edge.
	DependsOnID string `json:"depends_on_id"`
	// Type is the relationship kind.
	Type DependencyType `json:"type"`
	// CreatedAt is when the edge was inserted.
	CreatedAt time.Time `json:"created_at"`
}
