package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycleDetected indicates a circular dependency in the blocking subgraph.
var ErrCycleDetected = errors.New("circular dependency detected")

// CycleError reports the cycle a rejected edge would have closed.
// Path runs from the edge's target back to its source following existing
// blocking edges, so source -> Path[0] -> ... -> Path[n-1] -> source.
type CycleError struct {
	SourceID string
	TargetID string
	Path     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -> %s would create cycle: %s -> %s",
		e.SourceID, e.TargetID, strings.Join(e.Path, " -> "), e.SourceID)
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// WouldCreateCycle checks whether inserting the blocking edge
// source -> target would close a cycle, by searching for source among the
// tasks reachable from target over existing blocking edges. It returns the
// reachability path when a cycle is found, and uses a visited set so it
// terminates even if a latent cycle already corrupts the graph upstream.
//
// This runs on the hot insertion path; callers must hold the project's
// insertion lock so the check and the insert are atomic relative to other
// insertions on the same blocking subgraph.
func WouldCreateCycle(src EdgeSource, sourceID, targetID string) (bool, []string, error) {
	if sourceID == targetID {
		return true, []string{targetID}, nil
	}

	// BFS from target; parent links reconstruct the path on a hit.
	visited := map[string]bool{targetID: true}
	parent := map[string]string{}
	queue := []string{targetID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, err := src.BlockingNeighbors(current)
		if err != nil {
			return false, nil, fmt.Errorf("neighbors of %s: %w", current, err)
		}

		for _, next := range neighbors {
			if next == sourceID {
				path := []string{targetID}
				if current != targetID {
					path = reconstructPath(parent, targetID, current)
				}
				return true, path, nil
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current
			queue = append(queue, next)
		}
	}

	return false, nil, nil
}

// reconstructPath walks parent links from last back to first, returning
// the path first..last in forward order.
func reconstructPath(parent map[string]string, first, last string) []string {
	var reversed []string
	for current := last; ; current = parent[current] {
		reversed = append(reversed, current)
		if current == first {
			break
		}
	}

	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}
