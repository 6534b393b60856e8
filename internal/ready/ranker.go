package ready

import (
	"sort"

	"github.com/Stefan-Coetzee/wayfind/internal/progress"
	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

// BlockedTask pairs a task with its direct active blockers.
type BlockedTask struct {
	Task     *models.Task
	Blockers []string
}

// Ranker produces the ordered ready queue for a learner. It works from a
// single bulk read of the project's tasks, blocking edges and learner
// statuses, so repeated calls with unchanged state see identical input.
type Ranker struct {
	store *store.Store
}

// NewRanker creates a ranker over the given store.
func NewRanker(s *store.Store) *Ranker {
	return &Ranker{store: s}
}

// projectView is one bulk snapshot of a project for one learner.
type projectView struct {
	tasks    []*models.Task
	statuses map[string]models.Status
	// blocksAdj holds BLOCKS targets; blockingAdj holds BLOCKS and
	// PARENT_CHILD targets.
	blocksAdj   map[string][]string
	blockingAdj map[string][]string
}

func (r *Ranker) load(projectID, learnerID string) (*projectView, error) {
	tasks, err := r.store.TasksInProject(projectID)
	if err != nil {
		return nil, err
	}
	statuses, err := r.store.LearnerStatuses(projectID, learnerID)
	if err != nil {
		return nil, err
	}
	edges, err := r.store.BlockingEdgesInProject(projectID)
	if err != nil {
		return nil, err
	}

	v := &projectView{
		tasks:       tasks,
		statuses:    statuses,
		blocksAdj:   make(map[string][]string),
		blockingAdj: make(map[string][]string),
	}
	for _, e := range edges {
		if e.Type == models.DepBlocks {
			v.blocksAdj[e.TaskID] = append(v.blocksAdj[e.TaskID], e.DependsOnID)
		}
		v.blockingAdj[e.TaskID] = append(v.blockingAdj[e.TaskID], e.DependsOnID)
	}
	return v, nil
}

// blockedSet computes transitive blockedness for every task in the view,
// for this learner only. Memoized DFS; the acyclicity invariant bounds
// the recursion and the in-progress mark stops it cold on a corrupt graph.
func (v *projectView) blockedSet() map[string]bool {
	const (
		unknown = 0
		walking = 1
		clear   = 2
		blocked = 3
	)
	state := make(map[string]int)

	var resolve func(id string) bool
	resolve = func(id string) bool {
		switch state[id] {
		case walking, clear:
			return false
		case blocked:
			return true
		}
		state[id] = walking

		result := false
		for _, dep := range v.blocksAdj[id] {
			if progress.StatusOrOpen(v.statuses, dep) != models.StatusClosed {
				result = true
				break
			}
		}
		if !result {
			for _, dep := range v.blockingAdj[id] {
				if resolve(dep) {
					result = true
					break
				}
			}
		}

		if result {
			state[id] = blocked
		} else {
			state[id] = clear
		}
		return result
	}

	out := make(map[string]bool)
	for _, task := range v.tasks {
		if resolve(task.ID) {
			out[task.ID] = true
		}
	}
	return out
}

// ReadyWork returns the tasks the learner may work on now, fully ordered:
// in_progress before open, then ascending priority, ascending depth,
// ascending creation time, with task ID as the final tie-break so the
// order is total. A limit <= 0 means no limit.
func (r *Ranker) ReadyWork(projectID, learnerID string, types []models.TaskType, limit int) ([]*models.Task, error) {
	v, err := r.load(projectID, learnerID)
	if err != nil {
		return nil, err
	}
	blocked := v.blockedSet()

	wanted := make(map[models.TaskType]bool)
	for _, t := range types {
		wanted[t] = true
	}

	var eligible []*models.Task
	statusOf := make(map[string]models.Status)
	for _, task := range v.tasks {
		status := progress.StatusOrOpen(v.statuses, task.ID)
		if !status.Workable() {
			continue
		}
		if blocked[task.ID] {
			continue
		}
		if len(wanted) > 0 && !wanted[task.Type] {
			continue
		}
		statusOf[task.ID] = status
		eligible = append(eligible, task)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		ra, rb := statusRank(statusOf[a.ID]), statusRank(statusOf[b.ID])
		if ra != rb {
			// in_progress surfaces before open.
			return ra < rb
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

// statusRank orders statuses for listing: started work first, then
// untouched, then explicitly parked.
func statusRank(s models.Status) int {
	switch s {
	case models.StatusInProgress:
		return 0
	case models.StatusOpen:
		return 1
	default:
		return 2
	}
}

// BlockedTasks returns every unfinished task currently blocked for the
// learner, paired with its direct active blockers. The order is total:
// status rank first, then the same priority, depth, creation time and ID
// keys ReadyWork uses.
func (r *Ranker) BlockedTasks(projectID, learnerID string) ([]*BlockedTask, error) {
	v, err := r.load(projectID, learnerID)
	if err != nil {
		return nil, err
	}
	blocked := v.blockedSet()

	var out []*BlockedTask
	statusOf := make(map[string]models.Status)
	for _, task := range v.tasks {
		status := progress.StatusOrOpen(v.statuses, task.ID)
		if status == models.StatusClosed {
			continue
		}
		if !blocked[task.ID] {
			continue
		}

		var blockers []string
		for _, dep := range v.blocksAdj[task.ID] {
			if progress.StatusOrOpen(v.statuses, dep) != models.StatusClosed {
				blockers = append(blockers, dep)
			}
		}
		statusOf[task.ID] = status
		out = append(out, &BlockedTask{Task: task, Blockers: blockers})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Task, out[j].Task
		ra, rb := statusRank(statusOf[a.ID]), statusRank(statusOf[b.ID])
		if ra != rb {
			return ra < rb
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return out, nil
}
