// Package progress owns the per-learner status overlay: the lazy
// progress records laid over the shared template graph, and the state
// machine that gates every status write. No other package reads or
// writes learner status directly.
package progress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// ErrInvalidTransition indicates a status change outside the legal table.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrBlockedClosure indicates a close was rejected because direct
// children are not all closed for the learner.
var ErrBlockedClosure = errors.New("children must be closed first")

// ErrValidationRequired indicates the external close validation failed.
var ErrValidationRequired = errors.New("close validation failed")

// ErrReopenReason indicates a reopen was attempted without a reason.
var ErrReopenReason = errors.New("reopen requires a non-empty reason")

// InvalidTransitionError names the current and attempted states.
type InvalidTransitionError struct {
	TaskID string
	From   models.Status
	To     models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot transition %s -> %s", e.TaskID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// BlockedClosureError lists the direct children still open for the learner.
type BlockedClosureError struct {
	TaskID       string
	LearnerID    string
	OpenChildren []string
}

func (e *BlockedClosureError) Error() string {
	return fmt.Sprintf("task %s: children not closed for learner %s: %s",
		e.TaskID, e.LearnerID, strings.Join(e.OpenChildren, ", "))
}

func (e *BlockedClosureError) Unwrap() error {
	return ErrBlockedClosure
}

// ValidationError carries the collaborator's rejection reason.
type ValidationError struct {
	TaskID    string
	LearnerID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %s: validation failed for learner %s: %s", e.TaskID, e.LearnerID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationRequired
}

// legalTransitions is the full transition table. Closed leaves only via
// an explicit reopen, which additionally requires a reason.
var legalTransitions = map[models.Status][]models.Status{
	models.StatusOpen:       {models.StatusInProgress, models.StatusBlocked},
	models.StatusInProgress: {models.StatusOpen, models.StatusBlocked, models.StatusClosed},
	models.StatusBlocked:    {models.StatusOpen, models.StatusInProgress},
	models.StatusClosed:     {models.StatusOpen},
}

// CanTransition returns true if from -> to appears in the legal table.
func CanTransition(from, to models.Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CloseValidator is the external collaborator consulted before closing a
// subtask, typically backed by submission or acceptance-criteria checks.
type CloseValidator interface {
	// MayClose reports whether the learner may close the task, with a
	// human-readable reason when not.
	MayClose(taskID, learnerID string) (bool, string, error)
}

// PermissiveValidator approves every close. Used where no submission
// checking is wired in.
type PermissiveValidator struct{}

// MayClose always approves.
func (PermissiveValidator) MayClose(taskID, learnerID string) (bool, string, error) {
	return true, "", nil
}
