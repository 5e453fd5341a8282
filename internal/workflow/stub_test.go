package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/retry"
	"github.com/Iron-Ham/gentle/internal/task"
)

// stubBackend is a scripted Backend that records the calls it receives.
type stubBackend struct {
	mu    sync.Mutex
	calls []string

	createTask    func(title string) (task.Task, error)
	breakdownTask func(taskID string, mood task.Mood) ([]task.Step, error)
	listTasks     func() ([]task.Task, error)
	getTask       func(taskID string) (task.Detail, error)
	deleteTask    func(taskID string) error
	completeStep  func(ctx context.Context, stepID string) (api.CompleteResult, error)
	tooBig        func(stepID string) ([]task.SubStep, error)
}

func (s *stubBackend) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *stubBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubBackend) CreateTask(_ context.Context, title string) (task.Task, error) {
	s.record("create %s", title)
	return s.createTask(title)
}

func (s *stubBackend) BreakdownTask(_ context.Context, taskID string, mood task.Mood) ([]task.Step, error) {
	s.record("breakdown %s %s/%d", taskID, mood.Emotion, mood.Energy)
	return s.breakdownTask(taskID, mood)
}

func (s *stubBackend) ListTasks(context.Context) ([]task.Task, error) {
	s.record("list")
	return s.listTasks()
}

func (s *stubBackend) GetTask(_ context.Context, taskID string) (task.Detail, error) {
	s.record("get %s", taskID)
	return s.getTask(taskID)
}

func (s *stubBackend) DeleteTask(_ context.Context, taskID string) error {
	s.record("delete %s", taskID)
	return s.deleteTask(taskID)
}

func (s *stubBackend) CompleteStep(ctx context.Context, stepID string) (api.CompleteResult, error) {
	s.record("complete %s", stepID)
	return s.completeStep(ctx, stepID)
}

func (s *stubBackend) TooBig(_ context.Context, stepID string) ([]task.SubStep, error) {
	s.record("too-big %s", stepID)
	return s.tooBig(stepID)
}

// recordingNav is a Navigator that remembers every route.
type recordingNav struct {
	mu     sync.Mutex
	routes []Route
}

func (n *recordingNav) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNav) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

func newDeps(backend *stubBackend, nav Navigator) Deps {
	return Deps{
		Backend:         backend,
		Cache:           query.NewClient(),
		Nav:             nav,
		Retry:           retry.NewManager(),
		MutationRetries: 1,
	}
}

func pendingSteps(taskID string, contents ...string) []task.Step {
	steps := make([]task.Step, len(contents))
	for i, c := range contents {
		steps[i] = task.Step{
			ID:      fmt.Sprintf("%s-s%d", taskID, i+1),
			TaskID:  taskID,
			Content: c,
			Order:   i + 1,
			State:   task.StepPending,
		}
	}
	return steps
}
