package workflow

import (
	"context"
	"sync"
)

// Scope is the lifetime of one view. Requests started by the view carry the
// scope's context; Close cancels them, and results that resolve afterwards
// are discarded instead of updating torn-down state.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

// NewScope creates a scope bound to parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context returns the context requests should run under.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Alive reports whether the scope is still open.
func (s *Scope) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.ctx.Err() == nil
}

// Defer registers fn to run once when the scope closes. If the scope is
// already closed, fn runs immediately.
func (s *Scope) Defer(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close cancels in-flight requests and runs deferred cleanups in reverse
// order. Subsequent calls do nothing.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fns := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	s.cancel()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
