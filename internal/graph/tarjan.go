package graph

import (
	"sort"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// DetectCycles runs Tarjan's strongly-connected-components algorithm over
// the given blocking-subgraph edges and returns every SCC of size > 1;
// each one is a cycle. A healthy graph returns an empty result.
//
// This is the offline integrity audit: O(V+E) over the whole project, so
// it must never run inline with a learner-facing request. RELATED edges in
// the input are ignored.
func DetectCycles(edges []*models.Dependency) [][]string {
	adj := make(map[string][]string)
	nodeSet := make(map[string]bool)
	for _, dep := range edges {
		if !dep.Type.AffectsBlocking() {
			continue
		}
		adj[dep.TaskID] = append(adj[dep.TaskID], dep.DependsOnID)
		nodeSet[dep.TaskID] = true
		nodeSet[dep.DependsOnID] = true
	}

	// Sort nodes and neighbors so repeated runs produce identical output.
	nodes := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	for id := range adj {
		sort.Strings(adj[id])
	}

	t := &tarjan{
		adj:     adj,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}

	for _, id := range nodes {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range t.sccs {
		if len(scc) > 1 {
			sort.Strings(scc)
			cycles = append(cycles, scc)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// tarjan holds the traversal state for one DetectCycles run.
type tarjan struct {
	adj     map[string][]string
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
}

// frame is one entry in the explicit DFS stack. The algorithm is iterative
// so deep dependency chains cannot overflow the goroutine stack.
type frame struct {
	node string
	next int
}

func (t *tarjan) strongConnect(root string) {
	t.push(root)
	frames := []frame{{node: root}}

	for len(frames) > 0 {
		f := &frames[len(frames)-1]
		neighbors := t.adj[f.node]

		if f.next < len(neighbors) {
			next := neighbors[f.next]
			f.next++

			if _, seen := t.index[next]; !seen {
				t.push(next)
				frames = append(frames, frame{node: next})
			} else if t.onStack[next] {
				if t.index[next] < t.lowlink[f.node] {
					t.lowlink[f.node] = t.index[next]
				}
			}
			continue
		}

		// All neighbors explored; pop an SCC if this node is its root.
		if t.lowlink[f.node] == t.index[f.node] {
			var scc []string
			for {
				top := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[top] = false
				scc = append(scc, top)
				if top == f.node {
					break
				}
			}
			t.sccs = append(t.sccs, scc)
		}

		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			caller := &frames[len(frames)-1]
			if t.lowlink[f.node] < t.lowlink[caller.node] {
				t.lowlink[caller.node] = t.lowlink[f.node]
			}
		}
	}
}

func (t *tarjan) push(node string) {
	t.index[node] = t.counter
	t.lowlink[node] = t.counter
	t.counter++
	t.stack = append(t.stack, node)
	t.onStack[node] = true
}
