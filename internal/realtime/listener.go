package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
)

// DefaultBannerDuration is how long a banner stays up.
const DefaultBannerDuration = 5 * time.Second

// Banner is the transient notification for the latest celebration.
type Banner struct {
	Visible bool
	Message string
	ShownAt time.Time
}

// Listener keeps one subscription for the signed-in user and exposes the
// resulting banner.
type Listener struct {
	channel  Channel
	bus      *event.Bus
	logger   *logging.Logger
	duration time.Duration
	onChange func(Banner)
	now      func() time.Time

	mu     sync.Mutex
	userID string
	sub    *Subscription
	banner Banner
	timer  *time.Timer
	gen    uint64
	closed bool
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithBannerDuration sets how long a banner stays visible.
func WithBannerDuration(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d > 0 {
			l.duration = d
		}
	}
}

// WithBus publishes celebration.received events on bus.
func WithBus(bus *event.Bus) ListenerOption {
	return func(l *Listener) { l.bus = bus }
}

// WithListenerLogger sets the logger.
func WithListenerLogger(logger *logging.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithOnChange registers fn to be called, outside the lock, every time the
// banner appears or goes away.
func WithOnChange(fn func(Banner)) ListenerOption {
	return func(l *Listener) { l.onChange = fn }
}

// NewListener creates a listener over channel. It does nothing until Watch
// is called with a user id.
func NewListener(channel Channel, opts ...ListenerOption) *Listener {
	l := &Listener{
		channel:  channel,
		logger:   logging.NopLogger(),
		duration: DefaultBannerDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Watch subscribes for userID. Watching a different user cancels the
// previous subscription first; an empty userID just unsubscribes. Watching
// the current user again is a no-op.
func (l *Listener) Watch(ctx context.Context, userID string) error {
	l.mu.Lock()
	if l.closed || (userID == l.userID && (l.sub != nil || userID == "")) {
		l.mu.Unlock()
		return nil
	}
	prev := l.sub
	l.sub = nil
	l.userID = userID
	l.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	if userID == "" {
		return nil
	}

	sub, err := l.channel.Subscribe(ctx, userID, func(c Celebration) {
		l.receive(userID, c)
	})
	if err != nil {
		l.logger.Warn("celebration subscribe failed", "user_id", userID, "error", err.Error())
		l.mu.Lock()
		if l.userID == userID {
			l.userID = ""
		}
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	if l.closed || l.userID != userID || l.sub != nil {
		// Closed or re-pointed while subscribing.
		l.mu.Unlock()
		sub.Cancel()
		return nil
	}
	l.sub = sub
	l.mu.Unlock()
	l.logger.Debug("celebrations subscribed", "user_id", userID)
	return nil
}

// UserID returns the user currently watched.
func (l *Listener) UserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userID
}

func (l *Listener) receive(userID string, c Celebration) {
	message := strings.TrimSpace(c.Message)
	if message == "" {
		message = DefaultMessage
	}

	l.mu.Lock()
	if l.closed || l.userID != userID {
		l.mu.Unlock()
		return
	}
	l.gen++
	gen := l.gen
	l.banner = Banner{Visible: true, Message: message, ShownAt: l.now()}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.duration, func() { l.expire(gen) })
	banner := l.banner
	l.mu.Unlock()

	l.logger.Info("celebration received", "user_id", userID)
	if l.bus != nil {
		l.bus.Publish(event.NewCelebrationReceivedEvent(userID, message))
	}
	l.changed(banner)
}

// expire hides the banner shown as generation gen, unless a newer one
// replaced it.
func (l *Listener) expire(gen uint64) {
	l.mu.Lock()
	if l.gen != gen || !l.banner.Visible {
		l.mu.Unlock()
		return
	}
	l.banner = Banner{}
	l.timer = nil
	l.mu.Unlock()
	l.changed(Banner{})
}

// Banner returns the current banner.
func (l *Listener) Banner() Banner {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.banner
}

// Dismiss hides the banner now.
func (l *Listener) Dismiss() {
	l.mu.Lock()
	if !l.banner.Visible {
		l.mu.Unlock()
		return
	}
	l.gen++
	l.banner = Banner{}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()
	l.changed(Banner{})
}

// Close unsubscribes and stops the banner timer. Later calls do nothing.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	sub := l.sub
	l.sub = nil
	l.userID = ""
	l.gen++
	l.banner = Banner{}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

func (l *Listener) changed(b Banner) {
	if l.onChange != nil {
		l.onChange(b)
	}
}
