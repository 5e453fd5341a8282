package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/task"
)

// JustCompletedFor is how long a finished step keeps its highlight.
const JustCompletedFor = 2 * time.Second

// TaskDetailView is a snapshot of a TaskDetail.
type TaskDetailView struct {
	Loaded   bool
	Task     task.Task
	Steps    []StepView
	Progress int
	// Next is the first pending step; HasNext is false when all are done.
	Next    task.Step
	HasNext bool
	// JustCompleted is the id of the step finished in the last
	// JustCompletedFor, or "".
	JustCompleted string
	// Err is the read error, if loading failed. Message is the inline text
	// of the last failed mutation.
	Err     error
	Message string
	Busy    bool
}

// TaskDetail is the view model of one persisted task. The task and its
// steps are read from the query cache, which owns them.
type TaskDetail struct {
	deps      Deps
	taskID    string
	scope     *Scope
	logger    *logging.Logger
	completer *StepCompleter
	breaker   *SubStepBreaker
	now       func() time.Time

	mu              sync.Mutex
	loadErr         error
	message         string
	justCompleted   string
	justCompletedAt time.Time
	// completed holds ids finished from this view. Sub-steps exist only
	// here; the cache knows nothing about them.
	completed map[string]bool
}

// NewTaskDetail creates the view model for taskID and registers it as an
// observer of the task's cache entry until Close.
func NewTaskDetail(parent context.Context, deps Deps, taskID string) *TaskDetail {
	d := &TaskDetail{
		deps:      deps,
		taskID:    taskID,
		scope:     NewScope(parent),
		logger:    deps.logger().WithView("task_detail").WithTask(taskID),
		completer: NewStepCompleter(deps),
		breaker:   NewSubStepBreaker(deps, NewSubStepMap()),
		now:       time.Now,
		completed: make(map[string]bool),
	}
	if deps.Cache != nil {
		d.scope.Defer(query.Observe(deps.Cache, query.KeyTask(taskID), d.fetch))
	}
	return d
}

func (d *TaskDetail) fetch(ctx context.Context) (task.Detail, error) {
	return d.deps.Backend.GetTask(ctx, d.taskID)
}

// TaskID returns the id of the task shown.
func (d *TaskDetail) TaskID() string { return d.taskID }

// Close tears the view down and stops observing the task.
func (d *TaskDetail) Close() {
	d.scope.Close()
}

// Load reads the task through the cache.
func (d *TaskDetail) Load() error {
	_, err := query.Fetch(d.scope.Context(), d.deps.Cache, query.KeyTask(d.taskID), d.fetch)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.scope.Alive() {
		return errors.ErrViewClosed
	}
	d.loadErr = err
	if err != nil {
		d.logger.Error("load task failed", "error", err.Error())
	}
	return err
}

// CompleteStep completes a step or sub-step of this task.
func (d *TaskDetail) CompleteStep(stepID string) (api.CompleteResult, error) {
	result, err := d.completer.Complete(d.scope.Context(), stepID, d.taskID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.scope.Alive() || errors.Is(err, errors.ErrViewClosed) {
		return result, errors.ErrViewClosed
	}
	if err != nil {
		d.message = errors.UserMessage(err, GenericFailure)
		return result, err
	}
	d.message = ""
	d.completed[stepID] = true
	d.justCompleted = stepID
	d.justCompletedAt = d.now()
	return result, nil
}

// TooBig replaces the sub-steps shown under stepID.
func (d *TaskDetail) TooBig(stepID string) ([]task.SubStep, error) {
	subs, err := d.breaker.Expand(d.scope.Context(), stepID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.scope.Alive() || errors.Is(err, errors.ErrViewClosed) {
		return nil, errors.ErrViewClosed
	}
	if err != nil {
		d.message = errors.UserMessage(err, GenericFailure)
		return nil, err
	}
	d.message = ""
	return subs, nil
}

// SubSteps returns the sub-steps shown under parentID.
func (d *TaskDetail) SubSteps(parentID string) []task.SubStep {
	subs, _ := d.breaker.SubSteps().Get(parentID)
	return subs
}

// Recover leaves a task that could not be loaded for a fresh breakdown.
func (d *TaskDetail) Recover() {
	d.deps.navigate(DecomposeRoute())
}

// Snapshot returns the current state for rendering.
func (d *TaskDetail) Snapshot() TaskDetailView {
	detail, loaded := query.Peek[task.Detail](d.deps.Cache, query.KeyTask(d.taskID))
	busy := d.completer.Busy() || d.breaker.Busy()

	d.mu.Lock()
	defer d.mu.Unlock()

	view := TaskDetailView{
		Loaded:  loaded,
		Task:    detail.Task,
		Err:     d.loadErr,
		Message: d.message,
		Busy:    busy,
	}
	if loaded {
		view.Steps = stepViews(detail.Steps, d.completed, d.breaker.SubSteps())
		view.Progress = detail.Progress()
		view.Next, view.HasNext = detail.NextStep()
	}
	if d.justCompleted != "" && d.now().Sub(d.justCompletedAt) < JustCompletedFor {
		view.JustCompleted = d.justCompleted
	}
	return view
}
