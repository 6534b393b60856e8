package progress

import (
	"fmt"
	"time"

	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// Overlay is the single source of truth for per-learner task status.
// All reads go through GetOrDefault and all writes through Transition, so
// the "absence means open" rule cannot diverge between paths.
type Overlay struct {
	store     *store.Store
	validator CloseValidator
	// now is injectable for tests.
	now func() time.Time
}

// NewOverlay creates an overlay over the given store. A nil validator
// defaults to approving every close.
func NewOverlay(s *store.Store, validator CloseValidator) *Overlay {
	if validator == nil {
		validator = PermissiveValidator{}
	}
	return &Overlay{
		store:     s,
		validator: validator,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (o *Overlay) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// StatusOrOpen is the one place record absence is interpreted: a pair
// with no materialized status is open. Both the single-pair read path
// (GetOrDefault) and the bulk ranking path funnel through it so the
// default cannot diverge.
func StatusOrOpen(statuses map[string]models.Status, taskID string) models.Status {
	if s, ok := statuses[taskID]; ok {
		return s
	}
	return models.StatusOpen
}

// GetOrDefault returns the persisted record for the pair, or a synthesized
// default when none exists. Nothing is written in the default case.
func (o *Overlay) GetOrDefault(taskID, learnerID string) (*models.ProgressRecord, error) {
	rec, found, err := o.store.GetProgress(taskID, learnerID)
	if err != nil {
		return nil, err
	}
	if found {
		return rec, nil
	}
	return &models.ProgressRecord{
		TaskID:    taskID,
		LearnerID: learnerID,
		Status:    StatusOrOpen(nil, taskID),
	}, nil
}

// Transition validates and applies a status change for the pair, returning
// the updated record. The reason is required when reopening a closed task
// and is otherwise ignored. On any rejection the stored status is unchanged.
func (o *Overlay) Transition(taskID, learnerID string, newStatus models.Status, reason string) (*models.ProgressRecord, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("status %q: %w", newStatus, ErrInvalidTransition)
	}

	task, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	rec, err := o.GetOrDefault(taskID, learnerID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(rec.Status, newStatus) {
		return nil, &InvalidTransitionError{TaskID: taskID, From: rec.Status, To: newStatus}
	}

	switch {
	case newStatus == models.StatusClosed:
		if err := o.checkClosable(task, learnerID); err != nil {
			return nil, err
		}
	case rec.Status == models.StatusClosed && newStatus == models.StatusOpen:
		if reason == "" {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrReopenReason)
		}
	}

	o.apply(rec, newStatus, reason)

	if err := o.store.UpsertProgress(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// checkClosable enforces the two close gates: external validation for
// subtasks, and per-learner closure of every direct child. Only direct
// children are considered: deeper descendants must already have closed
// their own parents, so the check composes bottom-up.
func (o *Overlay) checkClosable(task *models.Task, learnerID string) error {
	if task.Type == models.TaskTypeSubtask {
		ok, why, err := o.validator.MayClose(task.ID, learnerID)
		if err != nil {
			return fmt.Errorf("close validation for %s: %w", task.ID, err)
		}
		if !ok {
			return &ValidationError{TaskID: task.ID, LearnerID: learnerID, Reason: why}
		}
	}

	children, err := o.directChildren(task.ID)
	if err != nil {
		return err
	}

	var open []string
	for _, childID := range children {
		child, err := o.GetOrDefault(childID, learnerID)
		if err != nil {
			return err
		}
		if child.Status != models.StatusClosed {
			open = append(open, childID)
		}
	}
	if len(open) > 0 {
		return &BlockedClosureError{TaskID: task.ID, LearnerID: learnerID, OpenChildren: open}
	}
	return nil
}

// directChildren unions tree children (parent link) with explicit
// PARENT_CHILD dependents.
func (o *Overlay) directChildren(taskID string) ([]string, error) {
	children, err := o.store.ChildrenOf(taskID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, child := range children {
		if !seen[child.ID] {
			seen[child.ID] = true
			ids = append(ids, child.ID)
		}
	}

	edges, err := o.store.DependentsOf(taskID, models.DepParentChild)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		if !seen[edge.TaskID] {
			seen[edge.TaskID] = true
			ids = append(ids, edge.TaskID)
		}
	}
	return ids, nil
}

// apply mutates the record for an already-validated transition.
func (o *Overlay) apply(rec *models.ProgressRecord, newStatus models.Status, reason string) {
	now := o.now()
	from := rec.Status
	rec.Status = newStatus
	rec.UpdatedAt = now

	switch newStatus {
	case models.StatusInProgress:
		if rec.StartedAt == nil {
			t := now
			rec.StartedAt = &t
		}
	case models.StatusClosed:
		t := now
		rec.CompletedAt = &t
		rec.CloseReason = reason
	case models.StatusOpen:
		if from == models.StatusClosed {
			// Reopen keeps the row identity but clears completion.
			rec.CompletedAt = nil
			rec.CloseReason = ""
		}
	}
}
