// Package realtime delivers per-user celebration events pushed by the
// backend and turns them into a short-lived banner.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// DefaultMessage is shown when a celebration arrives without text.
const DefaultMessage = "Another step completed!"

// FrameCelebration is the frame type carrying a celebration.
const FrameCelebration = "celebration"

// Frame is the JSON envelope exchanged on the socket.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CelebrationPayload is the payload of a FrameCelebration frame.
type CelebrationPayload struct {
	Message string `json:"message,omitempty"`
}

// NewCelebrationFrame builds the frame the backend sends for a celebration.
func NewCelebrationFrame(message string) Frame {
	payload, _ := json.Marshal(CelebrationPayload{Message: message})
	return Frame{Type: FrameCelebration, Payload: payload}
}

// Celebration is one inbound celebration event. Message may be empty.
type Celebration struct {
	Message string
}

// Handler receives events for a subscription. It runs on the
// subscription's goroutine and must not block.
type Handler func(Celebration)

// Channel is a source of per-user celebration events.
type Channel interface {
	// Subscribe starts delivering events for userID to onEvent until the
	// returned subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, userID string, onEvent Handler) (*Subscription, error)
}

// Subscription is a live Channel subscription.
type Subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscription wraps cancel. The channel implementation closes Done by
// calling Finish when its delivery goroutine exits.
func NewSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{cancel: cancel, done: make(chan struct{})}
}

// Cancel stops delivery. It is safe to call more than once and from the
// handler itself.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Done is closed once no further events will be delivered.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Finish marks the subscription as drained. Channel implementations call it
// exactly once.
func (s *Subscription) Finish() { close(s.done) }
