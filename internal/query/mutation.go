package query

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/retry"
)

// Status is the phase of a mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a mutation snapshot. Data is set only when Status is
// StatusSucceeded and Err only when it is StatusFailed.
type State[T any] struct {
	Status Status
	Data   T
	Err    error
}

// MutationConfig configures a Mutation.
type MutationConfig struct {
	// Name prefixes retry keys and labels failure events, e.g. "complete_step".
	Name string
	// Retries is the number of automatic retries after the first attempt.
	Retries int
	// Delay is the wait between attempts.
	Delay time.Duration
	// Retry records attempts. A private manager is used when nil.
	Retry  *retry.Manager
	Bus    *event.Bus
	Logger *logging.Logger
}

// Mutation runs one server-side change at a time and tracks its state.
// Only retryable failures are retried.
type Mutation[T any] struct {
	cfg MutationConfig

	mu    sync.Mutex
	state State[T]
}

// NewMutation creates an idle mutation.
func NewMutation[T any](cfg MutationConfig) *Mutation[T] {
	if cfg.Retry == nil {
		cfg.Retry = retry.NewManager()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Mutation[T]{cfg: cfg}
}

// State returns a snapshot of the current state.
func (m *Mutation[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending reports whether a run is in flight.
func (m *Mutation[T]) Pending() bool {
	return m.State().Status == StatusPending
}

// Reset returns a settled mutation to idle. A pending mutation is left alone.
func (m *Mutation[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != StatusPending {
		m.state = State[T]{}
	}
}

// Run executes fn for the resource id, retrying retryable failures up to the
// configured count. A second Run while one is pending returns
// ErrMutationPending without calling fn.
func (m *Mutation[T]) Run(ctx context.Context, id string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	m.mu.Lock()
	if m.state.Status == StatusPending {
		m.mu.Unlock()
		return zero, errors.ErrMutationPending
	}
	m.state = State[T]{Status: StatusPending}
	m.mu.Unlock()

	key := m.cfg.Name + ":" + id
	m.cfg.Retry.Reset(key)
	m.cfg.Retry.GetOrCreateState(key, m.cfg.Retries)

	for {
		data, err := fn(ctx)
		m.cfg.Retry.RecordAttempt(key, err == nil)
		if err == nil {
			m.settle(State[T]{Status: StatusSucceeded, Data: data})
			return data, nil
		}
		m.cfg.Retry.SetLastError(key, err.Error())

		if !errors.IsRetryable(err) || !m.cfg.Retry.ShouldRetry(key) {
			return zero, m.fail(key, err)
		}
		m.cfg.Logger.Debug("retrying mutation", "operation", m.cfg.Name, "id", id, "error", err.Error())
		if waitErr := wait(ctx, m.cfg.Delay); waitErr != nil {
			return zero, m.fail(key, err)
		}
	}
}

func (m *Mutation[T]) fail(key string, err error) error {
	state, _ := m.cfg.Retry.GetState(key)
	m.cfg.Logger.Warn("mutation failed",
		"operation", m.cfg.Name,
		"key", key,
		"attempts", state.Attempts,
		"error", err.Error())
	if m.cfg.Bus != nil {
		m.cfg.Bus.Publish(event.NewMutationFailedEvent(m.cfg.Name, state.Attempts, err))
	}
	m.settle(State[T]{Status: StatusFailed, Err: err})
	return err
}

func (m *Mutation[T]) settle(s State[T]) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
