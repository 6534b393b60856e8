package progress

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// setupTestStore creates a migrated temporary store.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func addTask(t *testing.T, s *store.Store, id, parentID string, taskType models.TaskType) {
	t.Helper()
	err := s.AddTask(&models.Task{
		ID:        id,
		ParentID:  parentID,
		ProjectID: "proj",
		Type:      taskType,
		Title:     id,
		Priority:  2,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to add task %s: %v", id, err)
	}
}

// rejectingValidator fails every close with a fixed reason.
type rejectingValidator struct {
	reason string
}

func (v rejectingValidator) MayClose(taskID, learnerID string) (bool, string, error) {
	return false, v.reason, nil
}

func TestGetOrDefaultSynthesizesOpen(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "t1", "", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	rec, err := o.GetOrDefault("t1", "learner-1")
	if err != nil {
		t.Fatalf("GetOrDefault failed: %v", err)
	}
	if rec.Status != models.StatusOpen {
		t.Errorf("status = %s, want open", rec.Status)
	}
	if rec.StartedAt != nil || rec.CompletedAt != nil {
		t.Error("synthesized default must have no timestamps")
	}

	// Nothing may be written by the read path.
	_, found, err := s.GetProgress("t1", "learner-1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if found {
		t.Error("GetOrDefault must not materialize a record")
	}
}

func TestTransitionStartSetsStartedAt(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "t1", "", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	rec, err := o.Transition("t1", "learner-1", models.StatusInProgress, "")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if rec.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", rec.Status)
	}
	if rec.StartedAt == nil {
		t.Fatal("StartedAt must be set on first start")
	}

	first := *rec.StartedAt

	// Park and restart; StartedAt keeps the original time.
	if _, err := o.Transition("t1", "learner-1", models.StatusBlocked, ""); err != nil {
		t.Fatalf("Transition to blocked failed: %v", err)
	}
	rec, err = o.Transition("t1", "learner-1", models.StatusInProgress, "")
	if err != nil {
		t.Fatalf("Transition back to in_progress failed: %v", err)
	}
	if rec.StartedAt == nil || !rec.StartedAt.Equal(first) {
		t.Errorf("StartedAt = %v, want original %v", rec.StartedAt, first)
	}
}

func TestTransitionTableCompleteness(t *testing.T) {
	// Every (from, to) pair outside the legal table must be rejected with
	// an invalid-transition error and leave the stored status unchanged.
	all := []models.Status{models.StatusOpen, models.StatusInProgress, models.StatusBlocked, models.StatusClosed}

	legal := map[models.Status]map[models.Status]bool{
		models.StatusOpen:       {models.StatusInProgress: true, models.StatusBlocked: true},
		models.StatusInProgress: {models.StatusOpen: true, models.StatusBlocked: true, models.StatusClosed: true},
		models.StatusBlocked:    {models.StatusOpen: true, models.StatusInProgress: true},
		models.StatusClosed:     {models.StatusOpen: true},
	}

	for _, from := range all {
		for _, to := range all {
			s := setupTestStore(t)
			addTask(t, s, "t1", "", models.TaskTypeTask)
			o := NewOverlay(s, nil)

			// Seed the starting state directly; the overlay owns
			// semantics, the store is just rows.
			now := time.Now()
			seed := &models.ProgressRecord{TaskID: "t1", LearnerID: "l1", Status: from, UpdatedAt: now}
			if err := s.UpsertProgress(seed); err != nil {
				t.Fatalf("seed %s failed: %v", from, err)
			}

			_, err := o.Transition("t1", "l1", to, "because")
			if legal[from][to] {
				if err != nil {
					t.Errorf("%s -> %s: expected success, got %v", from, to, err)
				}
				continue
			}

			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
			var ite *InvalidTransitionError
			if errors.As(err, &ite) {
				if ite.From != from || ite.To != to {
					t.Errorf("%s -> %s: error names %s -> %s", from, to, ite.From, ite.To)
				}
			}

			rec, err := o.GetOrDefault("t1", "l1")
			if err != nil {
				t.Fatalf("GetOrDefault failed: %v", err)
			}
			if rec.Status != from {
				t.Errorf("%s -> %s: stored status changed to %s", from, to, rec.Status)
			}
		}
	}
}

func TestCloseSetsCompletionFields(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "t1", "", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	if _, err := o.Transition("t1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	rec, err := o.Transition("t1", "l1", models.StatusClosed, "all checks passed")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if rec.CompletedAt == nil {
		t.Error("CompletedAt must be set on close")
	}
	if rec.CloseReason != "all checks passed" {
		t.Errorf("CloseReason = %q", rec.CloseReason)
	}
}

func TestReopenClearsCompletionAndRequiresReason(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "t1", "", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	if _, err := o.Transition("t1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := o.Transition("t1", "l1", models.StatusClosed, "done"); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Reopen without a reason is rejected and the row stays closed.
	_, err := o.Transition("t1", "l1", models.StatusOpen, "")
	if !errors.Is(err, ErrReopenReason) {
		t.Errorf("expected ErrReopenReason, got %v", err)
	}
	rec, _ := o.GetOrDefault("t1", "l1")
	if rec.Status != models.StatusClosed {
		t.Errorf("status = %s after rejected reopen, want closed", rec.Status)
	}

	rec, err = o.Transition("t1", "l1", models.StatusOpen, "grading error")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if rec.Status != models.StatusOpen {
		t.Errorf("status = %s, want open", rec.Status)
	}
	if rec.CompletedAt != nil {
		t.Error("reopen must clear CompletedAt")
	}
	if rec.CloseReason != "" {
		t.Errorf("reopen must clear CloseReason, got %q", rec.CloseReason)
	}

	// Same identity: the row still exists rather than being deleted.
	_, found, err := s.GetProgress("t1", "l1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if !found {
		t.Error("reopen must preserve the progress row")
	}
}

func TestSubtaskCloseRequiresValidation(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "sub1", "", models.TaskTypeSubtask)
	o := NewOverlay(s, rejectingValidator{reason: "submission failed"})

	if _, err := o.Transition("sub1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := o.Transition("sub1", "l1", models.StatusClosed, "")
	if !errors.Is(err, ErrValidationRequired) {
		t.Fatalf("expected ErrValidationRequired, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Reason != "submission failed" {
		t.Errorf("expected reason to carry through, got %v", err)
	}

	rec, _ := o.GetOrDefault("sub1", "l1")
	if rec.Status != models.StatusInProgress {
		t.Errorf("status = %s after rejected close, want in_progress", rec.Status)
	}
}

func TestNonSubtaskCloseSkipsValidator(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "t1", "", models.TaskTypeTask)
	o := NewOverlay(s, rejectingValidator{reason: "never consulted"})

	if _, err := o.Transition("t1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := o.Transition("t1", "l1", models.StatusClosed, ""); err != nil {
		t.Errorf("close of a plain task must not consult the validator: %v", err)
	}
}

func TestCloseBlockedByOpenChildren(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "epic1", "", models.TaskTypeEpic)
	addTask(t, s, "t1", "epic1", models.TaskTypeTask)
	addTask(t, s, "t2", "epic1", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	if _, err := o.Transition("epic1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := o.Transition("epic1", "l1", models.StatusClosed, "")
	if !errors.Is(err, ErrBlockedClosure) {
		t.Fatalf("expected ErrBlockedClosure, got %v", err)
	}
	var bce *BlockedClosureError
	if !errors.As(err, &bce) || len(bce.OpenChildren) != 2 {
		t.Errorf("expected both children listed, got %v", err)
	}

	// Close the children for this learner, then the parent closes.
	for _, id := range []string{"t1", "t2"} {
		if _, err := o.Transition(id, "l1", models.StatusInProgress, ""); err != nil {
			t.Fatalf("start %s failed: %v", id, err)
		}
		if _, err := o.Transition(id, "l1", models.StatusClosed, ""); err != nil {
			t.Fatalf("close %s failed: %v", id, err)
		}
	}
	if _, err := o.Transition("epic1", "l1", models.StatusClosed, ""); err != nil {
		t.Errorf("close after children closed failed: %v", err)
	}
}

func TestCloseChildGateIsPerLearner(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "epic1", "", models.TaskTypeEpic)
	addTask(t, s, "t1", "epic1", models.TaskTypeTask)
	o := NewOverlay(s, nil)

	// Learner A closes the child; learner B did not.
	if _, err := o.Transition("t1", "learner-a", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := o.Transition("t1", "learner-a", models.StatusClosed, ""); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := o.Transition("epic1", "learner-b", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, err := o.Transition("epic1", "learner-b", models.StatusClosed, "")
	if !errors.Is(err, ErrBlockedClosure) {
		t.Errorf("learner B must not inherit learner A's closure, got %v", err)
	}
}

func TestCloseConsidersExplicitParentChildEdges(t *testing.T) {
	s := setupTestStore(t)
	addTask(t, s, "epic1", "", models.TaskTypeEpic)
	addTask(t, s, "t1", "", models.TaskTypeTask) // no tree parent link
	o := NewOverlay(s, nil)

	err := s.AddEdge(&models.Dependency{
		TaskID: "t1", DependsOnID: "epic1", Type: models.DepParentChild, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	if _, err := o.Transition("epic1", "l1", models.StatusInProgress, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, err = o.Transition("epic1", "l1", models.StatusClosed, "")
	if !errors.Is(err, ErrBlockedClosure) {
		t.Errorf("explicit parent-child children must gate closure, got %v", err)
	}
}

func TestTransitionUnknownTask(t *testing.T) {
	s := setupTestStore(t)
	o := NewOverlay(s, nil)

	_, err := o.Transition("ghost", "l1", models.StatusInProgress, "")
	if !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
