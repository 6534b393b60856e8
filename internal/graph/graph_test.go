package graph

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

func blockingEdge(from, to string) *models.Dependency {
	return &models.Dependency{TaskID: from, DependsOnID: to, Type: models.DepBlocks, CreatedAt: time.Now()}
}

func relatedEdge(from, to string) *models.Dependency {
	return &models.Dependency{TaskID: from, DependsOnID: to, Type: models.DepRelated, CreatedAt: time.Now()}
}

func TestWouldCreateCycleDirect(t *testing.T) {
	// t1 -> t2 exists; adding t2 -> t1 closes a cycle.
	g := NewSubgraph([]*models.Dependency{blockingEdge("t1", "t2")})

	cycle, path, err := WouldCreateCycle(g, "t2", "t1")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cycle {
		t.Fatal("expected cycle to be detected")
	}
	if !reflect.DeepEqual(path, []string{"t1"}) {
		t.Errorf("path = %v, want [t1]", path)
	}
}

func TestWouldCreateCycleTransitive(t *testing.T) {
	// t1 -> t2 -> t3; adding t3 -> t1 closes a three-node cycle.
	g := NewSubgraph([]*models.Dependency{
		blockingEdge("t1", "t2"),
		blockingEdge("t2", "t3"),
	})

	cycle, path, err := WouldCreateCycle(g, "t3", "t1")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cycle {
		t.Fatal("expected cycle to be detected")
	}
	if !reflect.DeepEqual(path, []string{"t1", "t2"}) {
		t.Errorf("path = %v, want [t1 t2]", path)
	}
}

func TestWouldCreateCycleSelfEdge(t *testing.T) {
	g := NewSubgraph(nil)

	cycle, _, err := WouldCreateCycle(g, "t1", "t1")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cycle {
		t.Error("self edge must count as a cycle")
	}
}

func TestWouldCreateCycleNoCycle(t *testing.T) {
	g := NewSubgraph([]*models.Dependency{
		blockingEdge("t1", "t2"),
		blockingEdge("t2", "t3"),
	})

	// t1 -> t3 is a shortcut, not a cycle.
	cycle, _, err := WouldCreateCycle(g, "t1", "t3")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if cycle {
		t.Error("expected no cycle for forward shortcut edge")
	}
}

func TestWouldCreateCycleTerminatesOnCorruptGraph(t *testing.T) {
	// A latent cycle already exists; the visited set must still guarantee
	// termination when the probe never finds the source.
	g := NewSubgraph([]*models.Dependency{
		blockingEdge("a", "b"),
		blockingEdge("b", "a"),
	})

	done := make(chan bool, 1)
	go func() {
		cycle, _, err := WouldCreateCycle(g, "unrelated", "a")
		if err != nil {
			t.Errorf("WouldCreateCycle failed: %v", err)
		}
		done <- cycle
	}()

	select {
	case cycle := <-done:
		if cycle {
			t.Error("expected no cycle involving unrelated node")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WouldCreateCycle did not terminate on a corrupt graph")
	}
}

func TestCycleErrorUnwrapsToSentinel(t *testing.T) {
	err := &CycleError{SourceID: "t2", TargetID: "t1", Path: []string{"t1"}}
	if !errors.Is(err, ErrCycleDetected) {
		t.Error("CycleError must unwrap to ErrCycleDetected")
	}
}

func TestDetectCyclesEmpty(t *testing.T) {
	if cycles := DetectCycles(nil); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCyclesAcyclic(t *testing.T) {
	edges := []*models.Dependency{
		blockingEdge("t1", "t2"),
		blockingEdge("t2", "t3"),
		blockingEdge("t1", "t3"),
	}
	if cycles := DetectCycles(edges); len(cycles) != 0 {
		t.Errorf("expected no cycles in a DAG, got %v", cycles)
	}
}

func TestDetectCyclesFindsCycle(t *testing.T) {
	edges := []*models.Dependency{
		blockingEdge("t1", "t2"),
		blockingEdge("t2", "t3"),
		blockingEdge("t3", "t1"),
		blockingEdge("t4", "t1"), // dangling dependent, not part of the cycle
	}

	cycles := DetectCycles(edges)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	if !reflect.DeepEqual(cycles[0], []string{"t1", "t2", "t3"}) {
		t.Errorf("cycle = %v, want [t1 t2 t3]", cycles[0])
	}
}

func TestDetectCyclesMultiple(t *testing.T) {
	edges := []*models.Dependency{
		blockingEdge("a1", "a2"),
		blockingEdge("a2", "a1"),
		blockingEdge("b1", "b2"),
		blockingEdge("b2", "b3"),
		blockingEdge("b3", "b1"),
	}

	cycles := DetectCycles(edges)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d: %v", len(cycles), cycles)
	}
	if !reflect.DeepEqual(cycles[0], []string{"a1", "a2"}) {
		t.Errorf("first cycle = %v, want [a1 a2]", cycles[0])
	}
	if !reflect.DeepEqual(cycles[1], []string{"b1", "b2", "b3"}) {
		t.Errorf("second cycle = %v, want [b1 b2 b3]", cycles[1])
	}
}

func TestDetectCyclesIgnoresRelatedEdges(t *testing.T) {
	// RELATED edges may form cycles freely.
	edges := []*models.Dependency{
		relatedEdge("t1", "t2"),
		relatedEdge("t2", "t1"),
		blockingEdge("t1", "t3"),
	}
	if cycles := DetectCycles(edges); len(cycles) != 0 {
		t.Errorf("related-edge cycles must be ignored, got %v", cycles)
	}
}

func TestDetectCyclesDeterministic(t *testing.T) {
	edges := []*models.Dependency{
		blockingEdge("t3", "t1"),
		blockingEdge("t1", "t2"),
		blockingEdge("t2", "t3"),
	}

	first := DetectCycles(edges)
	second := DetectCycles(edges)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ: %v vs %v", first, second)
	}
}

func TestDetectCyclesDeepChain(t *testing.T) {
	// A long chain exercises the iterative DFS; no goroutine stack overflow.
	var edges []*models.Dependency
	for i := 0; i < 10000; i++ {
		edges = append(edges, blockingEdge(fmt.Sprintf("t%d", i), fmt.Sprintf("t%d", i+1)))
	}

	if cycles := DetectCycles(edges); len(cycles) != 0 {
		t.Errorf("expected no cycles in deep chain, got %d", len(cycles))
	}
}

func TestSubgraphAddRemoveEdge(t *testing.T) {
	g := NewSubgraph(nil)
	g.AddEdge(blockingEdge("t1", "t2"))
	g.AddEdge(relatedEdge("t1", "t9"))

	neighbors, err := g.BlockingNeighbors("t1")
	if err != nil {
		t.Fatalf("BlockingNeighbors failed: %v", err)
	}
	if !reflect.DeepEqual(neighbors, []string{"t2"}) {
		t.Errorf("neighbors = %v, want [t2]", neighbors)
	}

	g.RemoveEdge("t1", "t2")
	neighbors, _ = g.BlockingNeighbors("t1")
	if len(neighbors) != 0 {
		t.Errorf("expected no neighbors after removal, got %v", neighbors)
	}
}

func TestNewSubgraphSkipsRelatedEdges(t *testing.T) {
	g := NewSubgraph([]*models.Dependency{
		relatedEdge("t1", "t2"),
		blockingEdge("t1", "t3"),
	})

	neighbors, _ := g.BlockingNeighbors("t1")
	if !reflect.DeepEqual(neighbors, []string{"t3"}) {
		t.Errorf("neighbors = %v, want [t3]", neighbors)
	}
}
