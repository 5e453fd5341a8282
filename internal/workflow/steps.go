package workflow

import (
	"context"
	"sync"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/task"
)

// StepCompleter marks steps and sub-steps done.
type StepCompleter struct {
	deps     Deps
	mutation *query.Mutation[api.CompleteResult]
}

// NewStepCompleter creates a StepCompleter.
func NewStepCompleter(deps Deps) *StepCompleter {
	return &StepCompleter{
		deps:     deps,
		mutation: query.NewMutation[api.CompleteResult](deps.mutationConfig("complete_step", deps.MutationRetries)),
	}
}

// Busy reports whether a completion is in flight.
func (c *StepCompleter) Busy() bool {
	return c.mutation.Pending()
}

// Complete sends one completion for stepID, which may be a sub-step id.
// taskID is the owning task and is carried to the celebration route.
//
// On success the steps and tasks queries are invalidated and, when the whole
// task is finished, the navigator moves to the celebration route. When ctx
// ended before the result arrived the navigation is skipped and
// ErrViewClosed is returned. On failure nothing changes.
func (c *StepCompleter) Complete(ctx context.Context, stepID, taskID string) (api.CompleteResult, error) {
	logger := c.deps.logger().WithTask(taskID)

	result, err := c.mutation.Run(ctx, stepID, func(ctx context.Context) (api.CompleteResult, error) {
		return c.deps.Backend.CompleteStep(ctx, stepID)
	})
	if err != nil {
		logger.Error("complete step failed", "step_id", stepID, "error", err.Error())
		return api.CompleteResult{}, err
	}

	logger.Info("step completed", "step_id", stepID, "task_completed", result.TaskCompleted)
	if c.deps.Cache != nil {
		refresh := context.WithoutCancel(ctx)
		c.deps.Cache.Invalidate(refresh, query.KeySteps)
		c.deps.Cache.Invalidate(refresh, query.KeyTasks)
	}
	c.deps.publish(event.NewStepCompletedEvent(stepID, taskID, result.TaskCompleted))

	if ctx.Err() != nil {
		return result, errors.ErrViewClosed
	}
	if result.TaskCompleted {
		c.deps.navigate(CelebrateRoute(taskID, true))
	}
	return result, nil
}

// SubStepMap holds the sub-steps shown under each parent step. A parent has
// at most one list; a new list replaces the old one.
type SubStepMap struct {
	mu    sync.RWMutex
	lists map[string][]task.SubStep
}

// NewSubStepMap creates an empty map.
func NewSubStepMap() *SubStepMap {
	return &SubStepMap{lists: make(map[string][]task.SubStep)}
}

// Replace sets the sub-steps of parentID.
func (m *SubStepMap) Replace(parentID string, subs []task.SubStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[parentID] = append([]task.SubStep(nil), subs...)
}

// Get returns a copy of the sub-steps of parentID.
func (m *SubStepMap) Get(parentID string) ([]task.SubStep, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs, ok := m.lists[parentID]
	if !ok {
		return nil, false
	}
	return append([]task.SubStep(nil), subs...), true
}

// Parent returns the parent step of the sub-step with id subID.
func (m *SubStepMap) Parent(subID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for parent, subs := range m.lists {
		for _, s := range subs {
			if s.ID == subID {
				return parent, true
			}
		}
	}
	return "", false
}

// Len returns the number of parents with a sub-step list.
func (m *SubStepMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists)
}

// Clear forgets every list.
func (m *SubStepMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = make(map[string][]task.SubStep)
}

// SubStepBreaker asks the backend to split a step that still feels too big.
type SubStepBreaker struct {
	deps     Deps
	subs     *SubStepMap
	mutation *query.Mutation[[]task.SubStep]
}

// NewSubStepBreaker creates a breaker writing into subs.
func NewSubStepBreaker(deps Deps, subs *SubStepMap) *SubStepBreaker {
	return &SubStepBreaker{
		deps:     deps,
		subs:     subs,
		mutation: query.NewMutation[[]task.SubStep](deps.mutationConfig("too_big", deps.MutationRetries)),
	}
}

// Busy reports whether a too-big request is in flight.
func (b *SubStepBreaker) Busy() bool {
	return b.mutation.Pending()
}

// SubSteps returns the map the breaker writes into.
func (b *SubStepBreaker) SubSteps() *SubStepMap {
	return b.subs
}

// Expand requests sub-steps for stepID and replaces the list shown under it.
// On failure, including an unrecognized response shape, the previous list
// is left untouched.
func (b *SubStepBreaker) Expand(ctx context.Context, stepID string) ([]task.SubStep, error) {
	subs, err := b.mutation.Run(ctx, stepID, func(ctx context.Context) ([]task.SubStep, error) {
		return b.deps.Backend.TooBig(ctx, stepID)
	})
	if err != nil {
		b.deps.logger().Error("too-big failed", "step_id", stepID, "error", err.Error())
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, errors.ErrViewClosed
	}

	b.subs.Replace(stepID, subs)
	b.deps.publish(event.NewSubStepsReplacedEvent(stepID, len(subs)))
	return subs, nil
}
