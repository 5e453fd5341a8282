package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
)

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		key    Key
		prefix Key
		want   bool
	}{
		{KeyTasks, KeyTasks, true},
		{KeyTask("a"), KeyTasks, true},
		{KeyTasks, KeyTask("a"), false},
		{KeySteps, KeyTasks, false},
		{KeyTask("a"), KeyTask("b"), false},
		{KeyTask("a"), Key{}, true},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%v.HasPrefix(%v) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestKey_Equal(t *testing.T) {
	if !KeyTask("a").Equal(Key{"tasks", "a"}) {
		t.Error("equal keys should compare equal")
	}
	if KeyTasks.Equal(KeyTask("a")) {
		t.Error("prefix should not compare equal")
	}
}

func TestFetch_CachesWhileFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(WithStaleTime(time.Minute), WithClock(func() time.Time { return now }))

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a"}, nil
	}

	for range 3 {
		if _, err := Fetch(context.Background(), c, KeyTasks, fetch); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := Fetch(context.Background(), c, KeyTasks, fetch); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch calls after stale time = %d, want 2", calls)
	}
}

func TestFetch_ErrorKeepsPreviousData(t *testing.T) {
	c := NewClient()
	c.SetData(KeyTasks, []string{"old"})
	c.Invalidate(context.Background(), KeyTasks)

	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, KeyTasks, func(context.Context) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Fetch() error = %v, want boom", err)
	}

	got, ok := Peek[[]string](c, KeyTasks)
	if !ok || len(got) != 1 || got[0] != "old" {
		t.Errorf("Peek() = %v, %v, want previous data", got, ok)
	}
	if !errors.Is(c.Err(KeyTasks), boom) {
		t.Errorf("Err() = %v, want boom", c.Err(KeyTasks))
	}
}

func TestPeek_Missing(t *testing.T) {
	c := NewClient()
	if _, ok := Peek[[]string](c, KeyTasks); ok {
		t.Error("Peek() on empty cache should report false")
	}
	c.SetData(KeyTasks, 42)
	if _, ok := Peek[[]string](c, KeyTasks); ok {
		t.Error("Peek() with mismatched type should report false")
	}
}

func TestInvalidate_MarksPrefixStale(t *testing.T) {
	c := NewClient()
	c.SetData(KeyTasks, []string{"a"})
	c.SetData(KeyTask("a"), "detail")
	c.SetData(KeySteps, "steps")

	matched := c.Invalidate(context.Background(), KeyTasks)
	if matched != 2 {
		t.Errorf("Invalidate() matched = %d, want 2", matched)
	}
	if !c.IsStale(KeyTasks) || !c.IsStale(KeyTask("a")) {
		t.Error("task keys should be stale")
	}
	if c.IsStale(KeySteps) {
		t.Error("steps key should not be touched")
	}
}

func TestInvalidate_RefetchesObserved(t *testing.T) {
	bus := event.NewBus(nil)
	c := NewClient(WithBus(bus))

	var updates atomic.Int32
	bus.Subscribe(event.TypeQueryUpdated, func(event.Event) { updates.Add(1) })

	version := 0
	fetch := func(context.Context) (int, error) {
		version++
		return version, nil
	}
	if _, err := Fetch(context.Background(), c, KeyTask("a"), fetch); err != nil {
		t.Fatal(err)
	}
	stop := Observe(c, KeyTask("a"), fetch)
	defer stop()

	c.Invalidate(context.Background(), KeyTasks)

	got, _ := Peek[int](c, KeyTask("a"))
	if got != 2 {
		t.Errorf("after invalidate value = %d, want 2", got)
	}
	if c.IsStale(KeyTask("a")) {
		t.Error("refetched entry should be fresh")
	}
	if updates.Load() != 2 {
		t.Errorf("query.updated events = %d, want 2", updates.Load())
	}
}

func TestInvalidate_RefetchesConcurrently(t *testing.T) {
	c := NewClient()

	var inFlight, maxInFlight atomic.Int32
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	slow := func(context.Context) (string, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		started.Done()
		<-release
		inFlight.Add(-1)
		return "ok", nil
	}
	c.SetData(KeyTasks, "list")
	c.SetData(KeyTask("a"), "detail")
	defer Observe(c, KeyTasks, slow)()
	defer Observe(c, KeyTask("a"), slow)()

	done := make(chan struct{})
	go func() {
		c.Invalidate(context.Background(), KeyTasks)
		close(done)
	}()

	started.Wait()
	close(release)
	<-done

	if maxInFlight.Load() != 2 {
		t.Errorf("max concurrent refetches = %d, want 2", maxInFlight.Load())
	}
}

func TestObserve_CancelRemovesObserver(t *testing.T) {
	c := NewClient()
	fetch := func(context.Context) (int, error) { return 1, nil }

	stop := Observe(c, KeyTasks, fetch)
	if c.ObserverCount(KeyTasks) != 1 {
		t.Fatalf("ObserverCount() = %d, want 1", c.ObserverCount(KeyTasks))
	}
	stop()
	stop()
	if c.ObserverCount(KeyTasks) != 0 {
		t.Errorf("ObserverCount() after cancel = %d, want 0", c.ObserverCount(KeyTasks))
	}
}

func TestInvalidate_PublishesEvent(t *testing.T) {
	bus := event.NewBus(nil)
	c := NewClient(WithBus(bus))
	c.SetData(KeyTasks, 1)

	var got event.QueryInvalidatedEvent
	bus.Subscribe(event.TypeQueryInvalidated, func(e event.Event) {
		got = e.(event.QueryInvalidatedEvent)
	})

	c.Invalidate(context.Background(), KeyTasks)
	if got.Matched != 1 || len(got.Key) != 1 || got.Key[0] != "tasks" {
		t.Errorf("event = %+v", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := NewClient()
	c.SetData(KeyTask("a"), 1)
	c.SetData(KeyTask("b"), 2)

	c.Remove(KeyTask("a"))
	if _, ok := Peek[int](c, KeyTask("a")); ok {
		t.Error("removed key should be gone")
	}
	if _, ok := Peek[int](c, KeyTask("b")); !ok {
		t.Error("other key should remain")
	}

	c.Clear()
	if _, ok := Peek[int](c, KeyTask("b")); ok {
		t.Error("Clear() should drop everything")
	}
}

func TestKeysWithSeparatorsDoNotCollide(t *testing.T) {
	c := NewClient()
	c.SetData(KeyTask("a/b"), "slash")
	c.SetData(Key{"tasks", "a", "b"}, "nested")

	got, _ := Peek[string](c, KeyTask("a/b"))
	if got != "slash" {
		t.Errorf("Peek() = %q, want %q", got, "slash")
	}
}
