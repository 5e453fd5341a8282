// Package auth is the client of the identity provider.
//
// Sign-in is passwordless: the provider emails a one-time code to the user,
// the code is exchanged for a session, and the session's access token is
// sent as the bearer token on every API request. The session is persisted
// in a JSON file readable only by the user, so a sign-in from one gentle
// process is picked up by the others.
package auth

import (
	"context"
	"time"
)

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the session is no longer usable at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Event describes a change of the authentication state.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
)

// StateChangeFunc is notified of authentication changes. session is nil
// after sign-out.
type StateChangeFunc func(evt Event, session *Session)

// Provider is the identity provider interface the application consumes.
type Provider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers cb and returns a function that
	// unregisters it.
	OnAuthStateChange(cb StateChangeFunc) (unsubscribe func())
	// SignInWithOTP asks the provider to email a one-time code.
	SignInWithOTP(ctx context.Context, email, redirectURL string) error
}
