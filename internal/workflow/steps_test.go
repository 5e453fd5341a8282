package workflow

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/task"
)

func TestStepCompleter_Routing(t *testing.T) {
	tests := []struct {
		name       string
		completed  bool
		wantRoutes []Route
	}{
		{"task finished routes to celebration", true, []Route{CelebrateRoute("t1", true)}},
		{"task unfinished stays", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{
				completeStep: func(context.Context, string) (api.CompleteResult, error) {
					return api.CompleteResult{TaskCompleted: tt.completed}, nil
				},
			}
			nav := &recordingNav{}
			c := NewStepCompleter(newDeps(backend, nav))

			result, err := c.Complete(context.Background(), "s1", "t1")
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if result.TaskCompleted != tt.completed {
				t.Errorf("TaskCompleted = %v, want %v", result.TaskCompleted, tt.completed)
			}
			if got := nav.Routes(); !reflect.DeepEqual(got, tt.wantRoutes) {
				t.Errorf("routes = %v, want %v", got, tt.wantRoutes)
			}
		})
	}
}

func TestStepCompleter_InvalidatesStepsAndTasks(t *testing.T) {
	backend := &stubBackend{
		completeStep: func(context.Context, string) (api.CompleteResult, error) {
			return api.CompleteResult{}, nil
		},
	}
	bus := event.NewBus(nil)
	deps := newDeps(backend, nil)
	deps.Bus = bus
	deps.Cache = query.NewClient(query.WithBus(bus))
	deps.Cache.SetData(query.KeyTasks, []task.Task{{ID: "t1"}})
	deps.Cache.SetData(query.KeyTask("t1"), task.Detail{})

	var invalidated []string
	var completed []event.StepCompletedEvent
	bus.Subscribe(event.TypeQueryInvalidated, func(e event.Event) {
		invalidated = append(invalidated, query.Key(e.(event.QueryInvalidatedEvent).Key).String())
	})
	bus.Subscribe(event.TypeStepCompleted, func(e event.Event) {
		completed = append(completed, e.(event.StepCompletedEvent))
	})

	if _, err := NewStepCompleter(deps).Complete(context.Background(), "s1", "t1"); err != nil {
		t.Fatal(err)
	}

	if want := []string{"steps", "tasks"}; !reflect.DeepEqual(invalidated, want) {
		t.Errorf("invalidated = %v, want %v", invalidated, want)
	}
	if !deps.Cache.IsStale(query.KeyTasks) || !deps.Cache.IsStale(query.KeyTask("t1")) {
		t.Error("task entries should be stale")
	}
	if len(completed) != 1 || completed[0].StepID != "s1" || completed[0].TaskID != "t1" {
		t.Errorf("step.completed events = %+v", completed)
	}
}

func TestStepCompleter_RetriesOnceThenSurfaces(t *testing.T) {
	attempts := 0
	backend := &stubBackend{
		completeStep: func(context.Context, string) (api.CompleteResult, error) {
			attempts++
			return api.CompleteResult{}, errors.NewHTTPError(http.StatusServiceUnavailable, "")
		},
	}
	nav := &recordingNav{}
	deps := newDeps(backend, nav)
	deps.Cache.SetData(query.KeyTasks, []task.Task{{ID: "t1"}})

	_, err := NewStepCompleter(deps).Complete(context.Background(), "s1", "t1")
	if errors.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("Complete() error = %v, want 503", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if deps.Cache.IsStale(query.KeyTasks) {
		t.Error("failure must not invalidate the cache")
	}
	if len(nav.Routes()) != 0 {
		t.Error("failure must not navigate")
	}
	if failed := deps.Retry.Failed(); !reflect.DeepEqual(failed, []string{"complete_step:s1"}) {
		t.Errorf("Failed() = %v", failed)
	}
}

func TestStepCompleter_CanceledSkipsNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &stubBackend{
		completeStep: func(context.Context, string) (api.CompleteResult, error) {
			cancel()
			return api.CompleteResult{TaskCompleted: true}, nil
		},
	}
	nav := &recordingNav{}

	_, err := NewStepCompleter(newDeps(backend, nav)).Complete(ctx, "s1", "t1")
	if !errors.Is(err, errors.ErrViewClosed) {
		t.Errorf("Complete() error = %v, want ErrViewClosed", err)
	}
	if len(nav.Routes()) != 0 {
		t.Error("a closed view must not navigate")
	}
}

func TestSubStepBreaker_ReplacesNeverAppends(t *testing.T) {
	responses := [][]task.SubStep{
		{{ID: "a", Content: "first"}, {ID: "b", Content: "second"}},
		{{ID: "c", Content: "third"}},
	}
	call := 0
	backend := &stubBackend{
		tooBig: func(string) ([]task.SubStep, error) {
			r := responses[call]
			call++
			return r, nil
		},
	}
	b := NewSubStepBreaker(newDeps(backend, nil), NewSubStepMap())

	for range responses {
		if _, err := b.Expand(context.Background(), "s1"); err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
	}
	got, _ := b.SubSteps().Get("s1")
	if !reflect.DeepEqual(got, responses[1]) {
		t.Errorf("sub-steps = %+v, want %+v", got, responses[1])
	}
}

func TestSubStepBreaker_FailureKeepsPreviousList(t *testing.T) {
	previous := []task.SubStep{{ID: "a", Content: "x"}}
	attempts := 0
	backend := &stubBackend{
		tooBig: func(string) ([]task.SubStep, error) {
			attempts++
			return nil, errors.NewFormatError("too-big API", nil)
		},
	}
	subs := NewSubStepMap()
	subs.Replace("s1", previous)
	b := NewSubStepBreaker(newDeps(backend, nil), subs)

	_, err := b.Expand(context.Background(), "s1")
	if !errors.Is(err, errors.ErrInvalidResponse) {
		t.Fatalf("Expand() error = %v, want ErrInvalidResponse", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, format errors are not retried", attempts)
	}
	got, _ := subs.Get("s1")
	if !reflect.DeepEqual(got, previous) {
		t.Errorf("sub-steps = %+v, want previous %+v", got, previous)
	}
}

func TestSubStepMap(t *testing.T) {
	m := NewSubStepMap()
	m.Replace("p1", []task.SubStep{{ID: "x", Content: "one"}})
	m.Replace("p2", []task.SubStep{{ID: "y", Content: "two"}})

	if parent, ok := m.Parent("y"); !ok || parent != "p2" {
		t.Errorf("Parent(y) = %q, %v", parent, ok)
	}
	if _, ok := m.Parent("z"); ok {
		t.Error("Parent(z) should not be found")
	}

	got, _ := m.Get("p1")
	got[0].Content = "mutated"
	again, _ := m.Get("p1")
	if again[0].Content != "one" {
		t.Error("Get() must return a copy")
	}

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", m.Len())
	}
}
