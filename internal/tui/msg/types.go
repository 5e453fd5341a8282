// Package msg defines the messages exchanged between the terminal UI and
// its background commands, and the factories that create those commands.
//
// The view models in package workflow own all state; a message only says
// that a request finished so the UI re-renders from a fresh snapshot.
package msg

import (
	"time"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/auth"
)

// TickMsg is sent periodically so time-based state (the celebration banner,
// the just-completed highlight) is re-rendered.
type TickMsg time.Time

// LoadedMsg reports that a screen finished reading its data.
type LoadedMsg struct {
	Err error
}

// SubmittedMsg reports that the task was created and broken down, or why
// not.
type SubmittedMsg struct {
	Err error
}

// CompletedMsg reports the result of completing a step or sub-step.
type CompletedMsg struct {
	StepID string
	Result api.CompleteResult
	Err    error
}

// ExpandedMsg reports the result of asking for a step to be broken down.
type ExpandedMsg struct {
	StepID string
	Count  int
	Err    error
}

// DeletedMsg reports the result of deleting a task.
type DeletedMsg struct {
	TaskID string
	Err    error
}

// CodeSentMsg reports that the identity provider accepted (or rejected) the
// sign-in request for Email.
type CodeSentMsg struct {
	Email string
	Err   error
}

// SignedInMsg reports the result of verifying the emailed code.
type SignedInMsg struct {
	Session *auth.Session
	Err     error
}

// SignedOutMsg reports the result of signing out.
type SignedOutMsg struct {
	Err error
}

// CelebrationMsg is sent when a realtime celebration arrives.
type CelebrationMsg struct {
	Message string
}

// AuthChangedMsg is sent when the session changes outside the UI, for
// example when another gentle process signs in or out.
type AuthChangedMsg struct {
	SignedIn bool
	Email    string
}
