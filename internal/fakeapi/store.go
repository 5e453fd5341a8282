package fakeapi

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/gentle/internal/task"
)

type taskRecord struct {
	seq   int
	owner string
	task  task.Task
	steps []task.Step
}

// Store is the in-memory task database, scoped per user.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	tasks     map[string]*taskRecord
	stepTask  map[string]string // step id -> task id
	completed map[string]int    // user id -> finished tasks
	seq       int
}

// NewStore creates an empty store.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:       now,
		tasks:     make(map[string]*taskRecord),
		stepTask:  make(map[string]string),
		completed: make(map[string]int),
	}
}

// CreateTask adds a pending task owned by userID.
func (s *Store) CreateTask(userID, title string) task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(userID, title, task.StatePending)
}

func (s *Store) createLocked(userID, title string, state task.State) task.Task {
	now := s.now().UTC()
	t := task.Task{
		ID:        uuid.NewString(),
		Title:     title,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.seq++
	s.tasks[t.ID] = &taskRecord{seq: s.seq, owner: userID, task: t}
	return t
}

// ListTasks returns the user's tasks, newest first.
func (s *Store) ListTasks(userID string) []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*taskRecord
	for _, rec := range s.tasks {
		if rec.owner == userID {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b *taskRecord) int {
		if c := b.task.CreatedAt.Compare(a.task.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]task.Task, len(recs))
	for i, rec := range recs {
		out[i] = rec.task
	}
	return out
}

// GetTask returns the task with its steps in order.
func (s *Store) GetTask(userID, taskID string) (task.Detail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedLocked(userID, taskID)
	if !ok {
		return task.Detail{}, false
	}
	steps := slices.Clone(rec.steps)
	slices.SortStableFunc(steps, func(a, b task.Step) int { return a.Order - b.Order })
	return task.Detail{Task: rec.task, Steps: steps}, true
}

// DeleteTask removes the task and its steps.
func (s *Store) DeleteTask(userID, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedLocked(userID, taskID)
	if !ok {
		return false
	}
	for _, st := range rec.steps {
		delete(s.stepTask, st.ID)
	}
	delete(s.tasks, taskID)
	return true
}

// AddSteps appends pending steps to the task, numbered after its last step.
func (s *Store) AddSteps(userID, taskID string, contents []string) ([]task.Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ownedLocked(userID, taskID)
	if !ok {
		return nil, false
	}
	return s.appendLocked(rec, contents), true
}

func (s *Store) appendLocked(rec *taskRecord, contents []string) []task.Step {
	next := 0
	for _, st := range rec.steps {
		next = max(next, st.Order)
	}
	now := s.now().UTC()
	created := make([]task.Step, 0, len(contents))
	for i, content := range contents {
		st := task.Step{
			ID:        uuid.NewString(),
			TaskID:    rec.task.ID,
			Content:   content,
			Order:     next + i + 1,
			State:     task.StepPending,
			CreatedAt: now,
		}
		rec.steps = append(rec.steps, st)
		s.stepTask[st.ID] = rec.task.ID
		created = append(created, st)
	}
	if len(created) > 0 && rec.task.State == task.StateDone {
		rec.task.State = task.StateActive
	}
	rec.task.UpdatedAt = now
	return created
}

// Step returns a step and its owning task.
func (s *Store) Step(userID, stepID string) (task.Step, task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, i, ok := s.stepLocked(userID, stepID)
	if !ok {
		return task.Step{}, task.Task{}, false
	}
	return rec.steps[i], rec.task, true
}

// CompleteResult reports the effect of completing a step.
type CompleteResult struct {
	Task          task.Task
	TaskCompleted bool
	// Finished is how many tasks the user had finished before this one.
	Finished int
}

// CompleteStep marks the step done. The task is done once no step is
// pending. Completing a step twice is harmless.
func (s *Store) CompleteStep(userID, stepID string) (CompleteResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, i, ok := s.stepLocked(userID, stepID)
	if !ok {
		return CompleteResult{}, false
	}
	rec.steps[i].State = task.StepDone

	remaining := 0
	for _, st := range rec.steps {
		if !st.Done() {
			remaining++
		}
	}

	result := CompleteResult{Finished: s.completed[userID]}
	switch {
	case remaining == 0:
		if rec.task.State != task.StateDone {
			s.completed[userID]++
		}
		rec.task.State = task.StateDone
		result.TaskCompleted = true
	case rec.task.State == task.StatePending:
		rec.task.State = task.StateActive
	}
	rec.task.UpdatedAt = s.now().UTC()
	result.Task = rec.task
	return result, true
}

// SplitStep appends sub-steps for a step that felt too big to the step's
// task and returns them.
func (s *Store) SplitStep(userID, stepID string, contents []string) ([]task.Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, ok := s.stepLocked(userID, stepID)
	if !ok {
		return nil, false
	}
	return s.appendLocked(rec, contents), true
}

// CheckinTask records a mood check-in as an active single-step task.
func (s *Store) CheckinTask(userID, content string) task.Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.createLocked(userID, moodTaskTitle, task.StateActive)
	return s.appendLocked(s.tasks[t.ID], []string{content})[0]
}

func (s *Store) ownedLocked(userID, taskID string) (*taskRecord, bool) {
	rec, ok := s.tasks[taskID]
	if !ok || rec.owner != userID {
		return nil, false
	}
	return rec, true
}

func (s *Store) stepLocked(userID, stepID string) (*taskRecord, int, bool) {
	taskID, ok := s.stepTask[stepID]
	if !ok {
		return nil, 0, false
	}
	rec, ok := s.ownedLocked(userID, taskID)
	if !ok {
		return nil, 0, false
	}
	for i, st := range rec.steps {
		if st.ID == stepID {
			return rec, i, true
		}
	}
	return nil, 0, false
}
