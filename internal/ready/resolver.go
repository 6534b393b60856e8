// Package ready computes which work a learner may do right now: the
// blocking resolver walks the blocking subgraph against one learner's
// status overlay, and the ranker orders the eligible tasks.
package ready

import (
	"github.com/Stefan-Coetzee/wayfind/internal/progress"
	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// Resolver answers blocking questions per (task, learner) pair. Every
// status lookup is scoped to the learner being asked about; there is
// deliberately no task-level completion cache, since one would leak a
// learner's progress into another's readiness.
type Resolver struct {
	store   *store.Store
	overlay *progress.Overlay
}

// NewResolver creates a resolver over the given store and overlay.
func NewResolver(s *store.Store, o *progress.Overlay) *Resolver {
	return &Resolver{store: s, overlay: o}
}

// IsBlocked reports whether the task has direct active blockers for the
// learner: BLOCKS-type dependencies whose per-learner status is not
// closed. The blocker list preserves the store's stable edge order.
func (r *Resolver) IsBlocked(taskID, learnerID string) (bool, []string, error) {
	deps, err := r.store.DependenciesOf(taskID, models.DepBlocks)
	if err != nil {
		return false, nil, err
	}

	var blockers []string
	for _, dep := range deps {
		rec, err := r.overlay.GetOrDefault(dep.DependsOnID, learnerID)
		if err != nil {
			return false, nil, err
		}
		if rec.Status != models.StatusClosed {
			blockers = append(blockers, dep.DependsOnID)
		}
	}
	return len(blockers) > 0, blockers, nil
}

// BlockingChain returns the transitive closure of tasks blocking the
// given task for the learner, in discovery order: direct blockers first,
// then whatever blocks those, recursively. Only BLOCKS and PARENT_CHILD
// edges are walked; the acyclicity invariant bounds the traversal, and a
// visited set guarantees termination regardless.
func (r *Resolver) BlockingChain(taskID, learnerID string) ([]string, error) {
	var chain []string
	visited := map[string]bool{taskID: true}

	var walk func(id string) error
	walk = func(id string) error {
		deps, err := r.store.DependenciesOf(id, models.DepBlocks, models.DepParentChild)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if visited[dep.DependsOnID] {
				continue
			}
			visited[dep.DependsOnID] = true

			blocking, err := r.contributes(dep, learnerID)
			if err != nil {
				return err
			}
			if !blocking {
				continue
			}
			chain = append(chain, dep.DependsOnID)
			if err := walk(dep.DependsOnID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(taskID); err != nil {
		return nil, err
	}
	return chain, nil
}

// contributes reports whether following this edge keeps the source
// blocked: an unclosed BLOCKS target always does, and a target of either
// type does when it is itself transitively blocked for the learner.
func (r *Resolver) contributes(dep *models.Dependency, learnerID string) (bool, error) {
	if dep.Type == models.DepBlocks {
		rec, err := r.overlay.GetOrDefault(dep.DependsOnID, learnerID)
		if err != nil {
			return false, err
		}
		if rec.Status != models.StatusClosed {
			return true, nil
		}
	}
	return r.TransitivelyBlocked(dep.DependsOnID, learnerID)
}

// TransitivelyBlocked reports whether the task is blocked for the learner
// considering the whole blocking subgraph: it is blocked if any direct
// BLOCKS dependency is not closed, or if any blocking-subgraph dependency
// is itself transitively blocked. Blockedness propagates from a parent to
// its children through PARENT_CHILD edges.
func (r *Resolver) TransitivelyBlocked(taskID, learnerID string) (bool, error) {
	visited := make(map[string]bool)

	var blocked func(id string) (bool, error)
	blocked = func(id string) (bool, error) {
		if visited[id] {
			// Already on the path; the acyclicity invariant makes this
			// unreachable in a healthy graph, but never loop on a sick one.
			return false, nil
		}
		visited[id] = true

		deps, err := r.store.DependenciesOf(id, models.DepBlocks, models.DepParentChild)
		if err != nil {
			return false, err
		}
		for _, dep := range deps {
			if dep.Type == models.DepBlocks {
				rec, err := r.overlay.GetOrDefault(dep.DependsOnID, learnerID)
				if err != nil {
					return false, err
				}
				if rec.Status != models.StatusClosed {
					return true, nil
				}
			}
			sub, err := blocked(dep.DependsOnID)
			if err != nil {
				return false, err
			}
			if sub {
				return true, nil
			}
		}
		return false, nil
	}

	return blocked(taskID)
}
