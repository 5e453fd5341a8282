package workflow

import (
	"context"
	"sync"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/task"
)

// TaskListView is a snapshot of a TaskList.
type TaskListView struct {
	Loaded bool
	Tasks  []task.Task
	Err    error
	// Confirming is the id of the task awaiting delete confirmation.
	Confirming string
	Message    string
	Busy       bool
}

// TaskList is the view model of the user's tasks.
type TaskList struct {
	deps    Deps
	scope   *Scope
	logger  *logging.Logger
	deleter *query.Mutation[struct{}]

	mu         sync.Mutex
	loadErr    error
	confirming string
	message    string
}

// NewTaskList creates the view model and observes the task list until Close.
func NewTaskList(parent context.Context, deps Deps) *TaskList {
	l := &TaskList{
		deps:    deps,
		scope:   NewScope(parent),
		logger:  deps.logger().WithView("task_list"),
		deleter: query.NewMutation[struct{}](deps.mutationConfig("delete_task", 0)),
	}
	if deps.Cache != nil {
		l.scope.Defer(query.Observe(deps.Cache, query.KeyTasks, deps.Backend.ListTasks))
	}
	return l
}

// Close tears the view down.
func (l *TaskList) Close() {
	l.scope.Close()
}

// Load reads the task list through the cache.
func (l *TaskList) Load() error {
	_, err := query.Fetch(l.scope.Context(), l.deps.Cache, query.KeyTasks, l.deps.Backend.ListTasks)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.scope.Alive() {
		return errors.ErrViewClosed
	}
	l.loadErr = err
	if err != nil {
		l.logger.Error("load tasks failed", "error", err.Error())
	}
	return err
}

// Open navigates to a task's detail view.
func (l *TaskList) Open(taskID string) {
	l.deps.navigate(TaskDetailRoute(taskID))
}

// RequestDelete asks for confirmation before deleting taskID. No request
// is sent.
func (l *TaskList) RequestDelete(taskID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirming = taskID
	l.message = ""
}

// CancelDelete dismisses the confirmation.
func (l *TaskList) CancelDelete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirming = ""
}

// ConfirmDelete deletes the task awaiting confirmation. The confirmation is
// dismissed whether or not the delete succeeds; on success the task list
// cache is invalidated so the next read no longer contains the task.
func (l *TaskList) ConfirmDelete() error {
	l.mu.Lock()
	taskID := l.confirming
	l.mu.Unlock()
	if taskID == "" {
		return errors.NewValidationError("no task selected for deletion")
	}

	ctx := l.scope.Context()
	_, err := l.deleter.Run(ctx, taskID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.deps.Backend.DeleteTask(ctx, taskID)
	})
	if err == nil {
		l.logger.Info("task deleted", "task_id", taskID)
		if l.deps.Cache != nil {
			l.deps.Cache.Remove(query.KeyTask(taskID))
			l.deps.Cache.Invalidate(context.WithoutCancel(ctx), query.KeyTasks)
		}
		l.deps.publish(event.NewTaskDeletedEvent(taskID))
	} else {
		l.logger.Error("delete task failed", "task_id", taskID, "error", err.Error())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.scope.Alive() {
		return errors.ErrViewClosed
	}
	if l.confirming == taskID {
		l.confirming = ""
	}
	if err != nil {
		l.message = errors.UserMessage(err, GenericFailure)
	}
	return err
}

// Snapshot returns the current state for rendering.
func (l *TaskList) Snapshot() TaskListView {
	tasks, loaded := query.Peek[[]task.Task](l.deps.Cache, query.KeyTasks)
	busy := l.deleter.Pending()

	l.mu.Lock()
	defer l.mu.Unlock()
	return TaskListView{
		Loaded:     loaded,
		Tasks:      append([]task.Task(nil), tasks...),
		Err:        l.loadErr,
		Confirming: l.confirming,
		Message:    l.message,
		Busy:       busy,
	}
}
