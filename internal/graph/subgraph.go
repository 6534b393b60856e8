// Package graph provides cycle prevention and detection over the blocking
// subgraph: the union of BLOCKS and PARENT_CHILD edges, which must stay
// acyclic for every project. RELATED edges never enter this package.
package graph

import (
	"sync"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// EdgeSource supplies the outgoing blocking-subgraph neighbors of a task.
// The durable store implements it for always-consistent reads; Subgraph
// implements it for snapshot-based reads.
type EdgeSource interface {
	BlockingNeighbors(taskID string) ([]string, error)
}

// Subgraph is an in-memory snapshot of one project's blocking subgraph.
// It exists purely as a latency optimization for traversal-heavy reads;
// every computation must produce the same answer against the store directly.
type Subgraph struct {
	mu sync.RWMutex
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
}

// NewSubgraph builds a snapshot from blocking-subgraph edges.
// RELATED edges in the input are skipped.
func NewSubgraph(edges []*models.Dependency) *Subgraph {
	g := &Subgraph{
		edges: make(map[string][]string),
	}
	for _, dep := range edges {
		g.AddEdge(dep)
	}
	return g
}

// BlockingNeighbors returns the tasks the given task depends on.
func (g *Subgraph) BlockingNeighbors(taskID string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[taskID], nil
}

// AddEdge records a persisted edge in the snapshot. Edges outside the
// blocking subgraph are skipped, so the snapshot and the store's
// BlockingNeighbors always agree on what exists.
func (g *Subgraph) AddEdge(dep *models.Dependency) {
	if !dep.Type.AffectsBlocking() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges[dep.TaskID] = append(g.edges[dep.TaskID], dep.DependsOnID)
}

// RemoveEdge drops a blocking edge from the snapshot.
func (g *Subgraph) RemoveEdge(taskID, dependsOnID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := g.edges[taskID]
	for i, id := range deps {
		if id == dependsOnID {
			g.edges[taskID] = append(deps[:i], deps[i+1:]...)
			return
		}
	}
}
