// Package tracker is the facade over the progress engine: it wires the
// store, cycle guard, progress overlay, blocking resolver and readiness
// ranker behind the operations exposed to agent tools and the CLI.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Stefan-Coetzee/wayfind/internal/graph"
	"github.com/Stefan-Coetzee/wayfind/internal/journal"
	"github.com/Stefan-Coetzee/wayfind/internal/progress"
	"github.com/Stefan-Coetzee/wayfind/internal/ready"
	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// ErrCrossProject indicates a dependency edge between tasks of different
// projects. The blocking subgraph, its per-project insertion lock and the
// cycle audit are all scoped to a single project, so edges may not span two.
var ErrCrossProject = errors.New("dependency crosses projects")

// Tracker exposes the progress engine's operations.
type Tracker struct {
	store    *store.Store
	overlay  *progress.Overlay
	resolver *ready.Resolver
	ranker   *ready.Ranker
	journal  *journal.Journal

	// Optional read-through snapshot of each project's blocking
	// subgraph, kept in step with every edge write. Latency optimization
	// only; disabled by default and never required for correctness.
	cacheEnabled bool
	cacheMu      sync.Mutex
	snapshots    map[string]*graph.Subgraph
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithValidator wires the external close-validation collaborator
// consulted when a subtask closes.
func WithValidator(v progress.CloseValidator) Option {
	return func(t *Tracker) {
		t.overlay = progress.NewOverlay(t.store, v)
	}
}

// WithJournal wires the audit journal. Without it, reopen reasons and
// dependency churn are not recorded anywhere.
func WithJournal(j *journal.Journal) Option {
	return func(t *Tracker) {
		t.journal = j
	}
}

// WithGraphCache enables the blocking-subgraph snapshot cache.
func WithGraphCache() Option {
	return func(t *Tracker) {
		t.cacheEnabled = true
	}
}

// New creates a tracker over the given store.
func New(s *store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:     s,
		overlay:   progress.NewOverlay(s, nil),
		ranker:    ready.NewRanker(s),
		snapshots: make(map[string]*graph.Subgraph),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.resolver = ready.NewResolver(s, t.overlay)
	return t
}

// AddDependency inserts a typed edge taskID -> dependsOnID. Blocking
// edges (BLOCKS, PARENT_CHILD) run the cycle check and the insert under
// the project's insertion lock, so two concurrent inserts cannot jointly
// close a cycle. RELATED edges skip the check entirely.
func (t *Tracker) AddDependency(taskID, dependsOnID string, depType models.DependencyType) (*models.Dependency, error) {
	if !depType.Valid() {
		return nil, fmt.Errorf("dependency type %q is not valid", depType)
	}

	task, err := t.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	target, err := t.store.GetTask(dependsOnID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != target.ProjectID {
		return nil, fmt.Errorf("%s (%s) -> %s (%s): %w",
			taskID, task.ProjectID, dependsOnID, target.ProjectID, ErrCrossProject)
	}

	if depType.AffectsBlocking() {
		unlock := t.store.LockProject(task.ProjectID)
		defer unlock()

		src, err := t.edgeSource(task.ProjectID)
		if err != nil {
			return nil, err
		}
		cycle, path, err := graph.WouldCreateCycle(src, taskID, dependsOnID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, &graph.CycleError{SourceID: taskID, TargetID: dependsOnID, Path: path}
		}
	}

	dep := &models.Dependency{
		TaskID:      taskID,
		DependsOnID: dependsOnID,
		Type:        depType,
		CreatedAt:   time.Now(),
	}
	if err := t.store.AddEdge(dep); err != nil {
		return nil, err
	}
	t.cacheAddEdge(task.ProjectID, dep)

	t.record(taskID, "", journal.ActionDependencyAdded,
		fmt.Sprintf("%s -> %s (%s)", taskID, dependsOnID, depType))
	return dep, nil
}

// RemoveDependency deletes the exact (task, depends-on, type) edge.
func (t *Tracker) RemoveDependency(taskID, dependsOnID string, depType models.DependencyType) error {
	task, err := t.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if err := t.store.RemoveEdge(taskID, dependsOnID, depType); err != nil {
		return err
	}
	if depType.AffectsBlocking() {
		t.cacheRemoveEdge(task.ProjectID, taskID, dependsOnID)
	}

	t.record(taskID, "", journal.ActionDependencyRemoved,
		fmt.Sprintf("%s -> %s (%s)", taskID, dependsOnID, depType))
	return nil
}

// GetDependencies returns the outgoing edges of a task, optionally
// filtered by type.
func (t *Tracker) GetDependencies(taskID string, types ...models.DependencyType) ([]*models.Dependency, error) {
	if err := t.requireTask(taskID); err != nil {
		return nil, err
	}
	return t.store.DependenciesOf(taskID, types...)
}

// GetDependents returns the incoming edges of a task, optionally
// filtered by type.
func (t *Tracker) GetDependents(taskID string, types ...models.DependencyType) ([]*models.Dependency, error) {
	if err := t.requireTask(taskID); err != nil {
		return nil, err
	}
	return t.store.DependentsOf(taskID, types...)
}

// IsTaskBlocked reports whether the task has direct active blockers for
// the learner, with the blocker IDs.
func (t *Tracker) IsTaskBlocked(taskID, learnerID string) (bool, []string, error) {
	if err := t.requireTask(taskID); err != nil {
		return false, nil, err
	}
	return t.resolver.IsBlocked(taskID, learnerID)
}

// GetBlockingChain returns the transitive closure of tasks blocking the
// given task for the learner.
func (t *Tracker) GetBlockingChain(taskID, learnerID string) ([]string, error) {
	if err := t.requireTask(taskID); err != nil {
		return nil, err
	}
	return t.resolver.BlockingChain(taskID, learnerID)
}

// IsTaskReady reports whether the learner may work the task now: status
// open or in_progress and not blocked, directly or transitively.
func (t *Tracker) IsTaskReady(taskID, learnerID string) (bool, error) {
	if err := t.requireTask(taskID); err != nil {
		return false, err
	}
	rec, err := t.overlay.GetOrDefault(taskID, learnerID)
	if err != nil {
		return false, err
	}
	if !rec.Status.Workable() {
		return false, nil
	}
	blocked, err := t.resolver.TransitivelyBlocked(taskID, learnerID)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// GetReadyWork returns the ordered list of tasks the learner is eligible
// to work on in the project.
func (t *Tracker) GetReadyWork(projectID, learnerID string, types []models.TaskType, limit int) ([]*models.Task, error) {
	return t.ranker.ReadyWork(projectID, learnerID, types, limit)
}

// GetBlockedTasks returns every unfinished task currently blocked for the
// learner with its direct blockers.
func (t *Tracker) GetBlockedTasks(projectID, learnerID string) ([]*ready.BlockedTask, error) {
	return t.ranker.BlockedTasks(projectID, learnerID)
}

// DetectCycles runs the full Tarjan audit over the project's blocking
// subgraph. Diagnostic only; keep it off learner-facing request paths.
func (t *Tracker) DetectCycles(projectID string) ([][]string, error) {
	edges, err := t.store.BlockingEdgesInProject(projectID)
	if err != nil {
		return nil, err
	}
	return graph.DetectCycles(edges), nil
}

// GetStatus returns the learner's progress record for a task, with the
// open default when no record exists yet.
func (t *Tracker) GetStatus(taskID, learnerID string) (*models.ProgressRecord, error) {
	if err := t.requireTask(taskID); err != nil {
		return nil, err
	}
	return t.overlay.GetOrDefault(taskID, learnerID)
}

// UpdateStatus applies a validated status transition for the learner.
func (t *Tracker) UpdateStatus(taskID, learnerID string, newStatus models.Status, reason string) (*models.ProgressRecord, error) {
	prior, err := t.overlay.GetOrDefault(taskID, learnerID)
	if err != nil {
		return nil, err
	}

	rec, err := t.overlay.Transition(taskID, learnerID, newStatus, reason)
	if err != nil {
		if isRejection(err) {
			t.record(taskID, learnerID, journal.ActionTransitionRejected, err.Error())
		}
		return nil, err
	}

	if prior.Status == models.StatusClosed && newStatus == models.StatusOpen {
		t.record(taskID, learnerID, journal.ActionReopen, reason)
	}
	return rec, nil
}

// StartTask moves the task to in_progress for the learner.
func (t *Tracker) StartTask(taskID, learnerID string) (*models.ProgressRecord, error) {
	return t.UpdateStatus(taskID, learnerID, models.StatusInProgress, "")
}

// CloseTask closes the task for the learner with an optional reason.
func (t *Tracker) CloseTask(taskID, learnerID, reason string) (*models.ProgressRecord, error) {
	return t.UpdateStatus(taskID, learnerID, models.StatusClosed, reason)
}

// ReopenTask reopens a closed task; the reason is mandatory.
func (t *Tracker) ReopenTask(taskID, learnerID, reason string) (*models.ProgressRecord, error) {
	return t.UpdateStatus(taskID, learnerID, models.StatusOpen, reason)
}

// Store exposes the underlying store for collaborators such as ingest.
func (t *Tracker) Store() *store.Store {
	return t.store
}

// isRejection distinguishes business-rule refusals, which are worth
// auditing, from storage faults, which are not.
func isRejection(err error) bool {
	return errors.Is(err, progress.ErrInvalidTransition) ||
		errors.Is(err, progress.ErrBlockedClosure) ||
		errors.Is(err, progress.ErrValidationRequired) ||
		errors.Is(err, progress.ErrReopenReason)
}

func (t *Tracker) requireTask(taskID string) error {
	_, err := t.store.GetTask(taskID)
	return err
}

// edgeSource picks where the cycle check reads its edges: the durable
// store directly, or the project snapshot when caching is enabled.
func (t *Tracker) edgeSource(projectID string) (graph.EdgeSource, error) {
	if !t.cacheEnabled {
		return t.store, nil
	}

	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	if g, ok := t.snapshots[projectID]; ok {
		return g, nil
	}
	edges, err := t.store.BlockingEdgesInProject(projectID)
	if err != nil {
		return nil, err
	}
	g := graph.NewSubgraph(edges)
	t.snapshots[projectID] = g
	return g, nil
}

// cacheAddEdge mirrors a persisted blocking edge into the project's
// snapshot so the next cycle check sees it. RELATED edges never enter a
// snapshot; Subgraph.AddEdge skips them itself.
func (t *Tracker) cacheAddEdge(projectID string, dep *models.Dependency) {
	if g := t.snapshot(projectID); g != nil {
		g.AddEdge(dep)
	}
}

// cacheRemoveEdge mirrors a blocking-edge deletion into the snapshot.
func (t *Tracker) cacheRemoveEdge(projectID, taskID, dependsOnID string) {
	if g := t.snapshot(projectID); g != nil {
		g.RemoveEdge(taskID, dependsOnID)
	}
}

func (t *Tracker) snapshot(projectID string) *graph.Subgraph {
	if !t.cacheEnabled {
		return nil
	}
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	return t.snapshots[projectID]
}

// record writes an audit entry if a journal is wired; journaling is
// best-effort and never fails the operation it annotates.
func (t *Tracker) record(taskID, learnerID string, action journal.Action, detail string) {
	if t.journal == nil {
		return
	}
	t.journal.Record(taskID, learnerID, action, detail)
}
