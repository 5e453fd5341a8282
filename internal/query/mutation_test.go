package query

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/retry"
)

func TestMutation_Success(t *testing.T) {
	m := NewMutation[string](MutationConfig{Name: "complete_step", Retries: 1})

	got, err := m.Run(context.Background(), "s1", func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "done" {
		t.Errorf("Run() = %q, want %q", got, "done")
	}
	state := m.State()
	if state.Status != StatusSucceeded || state.Data != "done" || state.Err != nil {
		t.Errorf("State() = %+v", state)
	}
}

func TestMutation_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		err       error
		wantCalls int
	}{
		{"network error retried once", 1, errors.NewNetworkError(errors.New("refused")), 2},
		{"server error retried once", 1, errors.NewHTTPError(http.StatusBadGateway, ""), 2},
		{"no retries configured", 0, errors.NewNetworkError(errors.New("refused")), 1},
		{"client error not retried", 1, errors.NewHTTPError(http.StatusBadRequest, "bad"), 1},
		{"format error not retried", 1, errors.NewFormatError("too-big API", nil), 1},
		{"retries capped", 3, errors.NewTimeoutError("POST", time.Second), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := retry.NewManager()
			m := NewMutation[int](MutationConfig{Name: "too_big", Retries: tt.retries, Retry: manager})

			calls := 0
			_, err := m.Run(context.Background(), "s1", func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("Run() error = %v, want %v", err, tt.err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if m.State().Status != StatusFailed {
				t.Errorf("Status = %v, want failed", m.State().Status)
			}
			state, ok := manager.GetState("too_big:s1")
			if !ok || state.Attempts != tt.wantCalls {
				t.Errorf("retry state = %+v", state)
			}
		})
	}
}

func TestMutation_RetryThenSuccess(t *testing.T) {
	manager := retry.NewManager()
	m := NewMutation[int](MutationConfig{Name: "complete_step", Retries: 1, Retry: manager})

	calls := 0
	got, err := m.Run(context.Background(), "s1", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.NewNetworkError(errors.New("reset"))
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("Run() = %d, %v, want 7, nil", got, err)
	}
	if failed := manager.Failed(); len(failed) != 0 {
		t.Errorf("Failed() = %v, want none", failed)
	}
}

func TestMutation_RejectsWhilePending(t *testing.T) {
	m := NewMutation[int](MutationConfig{Name: "complete_step"})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Run(context.Background(), "s1", func(context.Context) (int, error) {
			close(entered)
			<-release
			return 1, nil
		})
	}()
	<-entered

	if !m.Pending() {
		t.Error("Pending() should be true while running")
	}
	called := false
	_, err := m.Run(context.Background(), "s2", func(context.Context) (int, error) {
		called = true
		return 2, nil
	})
	if !errors.Is(err, errors.ErrMutationPending) {
		t.Errorf("second Run() error = %v, want ErrMutationPending", err)
	}
	if called {
		t.Error("second Run() must not call fn")
	}

	close(release)
	<-done
	if m.Pending() {
		t.Error("Pending() should be false after completion")
	}
}

func TestMutation_CancelDuringDelayStops(t *testing.T) {
	m := NewMutation[int](MutationConfig{Name: "too_big", Retries: 1, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	netErr := errors.NewNetworkError(errors.New("refused"))
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := m.Run(ctx, "s1", func(context.Context) (int, error) {
		calls++
		return 0, netErr
	})
	if !errors.Is(err, netErr) {
		t.Errorf("Run() error = %v, want original error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMutation_PublishesFailure(t *testing.T) {
	bus := event.NewBus(nil)
	m := NewMutation[int](MutationConfig{Name: "delete_task", Bus: bus})

	var got event.MutationFailedEvent
	bus.Subscribe(event.TypeMutationFailed, func(e event.Event) {
		got = e.(event.MutationFailedEvent)
	})

	_, _ = m.Run(context.Background(), "t1", func(context.Context) (int, error) {
		return 0, errors.NewHTTPError(http.StatusForbidden, "nope")
	})
	if got.Operation != "delete_task" || got.Attempts != 1 || got.Err == nil {
		t.Errorf("event = %+v", got)
	}
}

func TestMutation_Reset(t *testing.T) {
	m := NewMutation[int](MutationConfig{Name: "x"})
	_, _ = m.Run(context.Background(), "1", func(context.Context) (int, error) {
		return 0, errors.New("bad")
	})
	m.Reset()
	if m.State().Status != StatusIdle {
		t.Errorf("Status after Reset() = %v, want idle", m.State().Status)
	}
}
