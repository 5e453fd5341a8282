package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
)

// fakeChannel hands out subscriptions whose handlers tests can drive.
type fakeChannel struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	subs      map[string]*Subscription
	cancelled []string
	err       error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: map[string]Handler{}, subs: map[string]*Subscription{}}
}

func (f *fakeChannel) Subscribe(_ context.Context, userID string, onEvent Handler) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := NewSubscription(func() {
		f.mu.Lock()
		f.cancelled = append(f.cancelled, userID)
		f.mu.Unlock()
	})
	f.handlers[userID] = onEvent
	f.subs[userID] = sub
	return sub, nil
}

func (f *fakeChannel) emit(userID, message string) {
	f.mu.Lock()
	h := f.handlers[userID]
	f.mu.Unlock()
	if h != nil {
		h(Celebration{Message: message})
	}
}

func (f *fakeChannel) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func TestListener_BannerDefaultsAndExpires(t *testing.T) {
	ch := newFakeChannel()
	changes := make(chan Banner, 4)
	l := NewListener(ch,
		WithBannerDuration(30*time.Millisecond),
		WithOnChange(func(b Banner) { changes <- b }),
	)
	defer l.Close()

	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	ch.emit("u1", "   ")

	b := l.Banner()
	if !b.Visible || b.Message != DefaultMessage {
		t.Fatalf("Banner() = %+v, want default message", b)
	}
	if got := <-changes; got.Message != DefaultMessage {
		t.Errorf("onChange got %+v", got)
	}

	select {
	case got := <-changes:
		if got.Visible {
			t.Errorf("second change = %+v, want hidden", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("banner was not dismissed automatically")
	}
	if l.Banner().Visible {
		t.Error("Banner() still visible after expiry")
	}
}

func TestListener_NewCelebrationRestartsTimer(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, WithBannerDuration(time.Hour))
	defer l.Close()
	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}

	ch.emit("u1", "first")
	first := l.gen
	ch.emit("u1", "second")

	// The first timer firing late must not hide the second banner.
	l.expire(first)
	if b := l.Banner(); !b.Visible || b.Message != "second" {
		t.Errorf("Banner() = %+v, want second message visible", b)
	}
}

func TestListener_PublishesOnBus(t *testing.T) {
	bus := event.NewBus(nil)
	var got []event.CelebrationReceivedEvent
	bus.Subscribe(event.TypeCelebrationReceived, func(e event.Event) {
		got = append(got, e.(event.CelebrationReceivedEvent))
	})

	ch := newFakeChannel()
	l := NewListener(ch, WithBus(bus))
	defer l.Close()
	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	ch.emit("u1", "Nice!")

	if len(got) != 1 || got[0].UserID != "u1" || got[0].Message != "Nice!" {
		t.Errorf("events = %+v", got)
	}
}

func TestListener_UserChangeResubscribes(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch)
	defer l.Close()
	ctx := context.Background()

	if err := l.Watch(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Watch(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got := ch.Cancelled(); len(got) != 0 {
		t.Fatalf("re-watching the same user cancelled %v", got)
	}

	if err := l.Watch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	if got := ch.Cancelled(); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("cancelled = %v, want [u1]", got)
	}

	// Late events for the previous user are ignored.
	ch.emit("u1", "stale")
	if l.Banner().Visible {
		t.Error("event for the previous user must not show a banner")
	}
	ch.emit("u2", "fresh")
	if b := l.Banner(); b.Message != "fresh" {
		t.Errorf("Banner() = %+v", b)
	}

	if err := l.Watch(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if got := ch.Cancelled(); len(got) != 2 || got[1] != "u2" {
		t.Errorf("cancelled = %v, want [u1 u2]", got)
	}
	if l.UserID() != "" {
		t.Errorf("UserID() = %q after sign-out", l.UserID())
	}
}

func TestListener_CloseOnce(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch)
	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	ch.emit("u1", "hi")

	l.Close()
	l.Close()

	if got := ch.Cancelled(); len(got) != 1 {
		t.Errorf("cancelled = %v, want exactly one", got)
	}
	if l.Banner().Visible {
		t.Error("Close() should clear the banner")
	}
	ch.emit("u1", "after close")
	if l.Banner().Visible {
		t.Error("events after Close() must be ignored")
	}
	if err := l.Watch(context.Background(), "u2"); err != nil {
		t.Fatal(err)
	}
	if l.UserID() != "" {
		t.Error("Watch() after Close() must not subscribe")
	}
}

func TestListener_Dismiss(t *testing.T) {
	ch := newFakeChannel()
	var hidden int
	l := NewListener(ch, WithOnChange(func(b Banner) {
		if !b.Visible {
			hidden++
		}
	}))
	defer l.Close()
	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}

	l.Dismiss()
	if hidden != 0 {
		t.Error("Dismiss() with no banner should not notify")
	}
	ch.emit("u1", "yay")
	l.Dismiss()
	if l.Banner().Visible || hidden != 1 {
		t.Errorf("after Dismiss(): banner = %+v, hidden = %d", l.Banner(), hidden)
	}
}

func TestListener_SubscribeError(t *testing.T) {
	ch := newFakeChannel()
	ch.err = errors.New("boom")
	l := NewListener(ch)
	defer l.Close()

	if err := l.Watch(context.Background(), "u1"); err == nil {
		t.Fatal("Watch() should report the subscribe error")
	}
	if l.UserID() != "" {
		t.Errorf("UserID() = %q, want empty after failure", l.UserID())
	}

	// A later attempt for the same user tries again.
	ch.err = nil
	if err := l.Watch(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if l.UserID() != "u1" {
		t.Errorf("UserID() = %q, want u1", l.UserID())
	}
}
