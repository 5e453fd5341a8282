package workflow

import (
	"context"
	"testing"

	"github.com/Iron-Ham/gentle/internal/event"
)

func TestRoute_String(t *testing.T) {
	tests := []struct {
		route Route
		want  string
	}{
		{Route{Kind: RouteWelcome}, "/"},
		{TaskListRoute(), "/tasks"},
		{TaskDetailRoute("abc"), "/tasks/abc"},
		{DecomposeRoute(), "/decompose"},
		{CelebrateRoute("abc", true), "/celebrate?taskCompleted=true&taskId=abc"},
		{CelebrateRoute("", false), "/celebrate?taskCompleted=false"},
	}
	for _, tt := range tests {
		if got := tt.route.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRouter_NavigateAndBack(t *testing.T) {
	bus := event.NewBus(nil)
	var kinds []string
	bus.Subscribe(event.TypeRouteChanged, func(e event.Event) {
		kinds = append(kinds, e.(event.RouteChangedEvent).Kind)
	})

	r := NewRouter(TaskListRoute(), bus, nil)
	r.Navigate(TaskDetailRoute("t1"))
	r.Navigate(CelebrateRoute("t1", false))

	if got := r.Current(); got != CelebrateRoute("t1", false) {
		t.Errorf("Current() = %v", got)
	}
	back, ok := r.Back()
	if !ok || back != TaskDetailRoute("t1") {
		t.Errorf("Back() = %v, %v", back, ok)
	}
	r.Back()
	if _, ok := r.Back(); ok {
		t.Error("Back() at the first route should report false")
	}
	if len(r.History()) != 1 {
		t.Errorf("History() = %v", r.History())
	}

	want := []string{"task", "celebrate", "task", "tasks"}
	if len(kinds) != len(want) {
		t.Fatalf("route events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestRouter_Reset(t *testing.T) {
	r := NewRouter(WelcomeRoute(), nil, nil)
	r.Navigate(TaskListRoute())
	r.Navigate(TaskDetailRoute("t1"))

	r.Reset(WelcomeRoute())
	if got := r.History(); len(got) != 1 || got[0] != WelcomeRoute() {
		t.Errorf("History() = %v, want [/]", got)
	}
	if WelcomeRoute().String() != "/" {
		t.Errorf("WelcomeRoute().String() = %q", WelcomeRoute().String())
	}
}

func TestScope_CloseRunsDeferredOnce(t *testing.T) {
	s := NewScope(context.Background())
	var order []int
	s.Defer(func() { order = append(order, 1) })
	s.Defer(func() { order = append(order, 2) })

	if !s.Alive() {
		t.Fatal("new scope should be alive")
	}
	s.Close()
	s.Close()

	if s.Alive() || s.Context().Err() == nil {
		t.Error("closed scope should be dead and its context canceled")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("deferred order = %v, want [2 1]", order)
	}

	ran := false
	s.Defer(func() { ran = true })
	if !ran {
		t.Error("Defer() on a closed scope should run immediately")
	}
}

func TestScope_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewScope(parent)
	cancel()
	if s.Alive() {
		t.Error("scope should die with its parent")
	}
}

func TestCelebration_NextRoute(t *testing.T) {
	first := func(int) int { return 0 }
	tests := []struct {
		route Route
		want  Route
	}{
		{CelebrateRoute("t1", true), TaskListRoute()},
		{CelebrateRoute("t1", false), TaskDetailRoute("t1")},
		{CelebrateRoute("", false), TaskListRoute()},
	}
	for _, tt := range tests {
		c := NewCelebrationWith(tt.route, first)
		if got := c.NextRoute(); got != tt.want {
			t.Errorf("NextRoute() for %v = %v, want %v", tt.route, got, tt.want)
		}
	}
}

func TestCelebration_Cheer(t *testing.T) {
	all := Cheers()
	c := NewCelebrationWith(CelebrateRoute("t1", true), func(n int) int { return n - 1 })
	if c.Cheer != all[len(all)-1] {
		t.Errorf("Cheer = %+v, want last cheer", c.Cheer)
	}
	for range 20 {
		if NewCelebration(CelebrateRoute("t1", true)).Cheer.Title == "" {
			t.Fatal("random cheer should never be empty")
		}
	}
}
