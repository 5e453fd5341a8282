package msg

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/auth"
	"github.com/Iron-Ham/gentle/internal/task"
)

// Authenticator is the part of the identity provider the UI drives.
// *auth.Service implements it.
type Authenticator interface {
	GetSession(ctx context.Context) (*auth.Session, error)
	SignInWithOTP(ctx context.Context, email, redirectURL string) error
	VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error)
	SignOut(ctx context.Context) error
}

var _ Authenticator = (*auth.Service)(nil)

// Tick returns a command that sends a TickMsg after d.
func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Load runs a screen's load function off the UI goroutine.
func Load(load func() error) tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{Err: load()}
	}
}

// Submit runs the create-then-breakdown request sequence.
func Submit(submit func() error) tea.Cmd {
	return func() tea.Msg {
		return SubmittedMsg{Err: submit()}
	}
}

// Complete completes stepID with the given view model method.
func Complete(complete func(string) (api.CompleteResult, error), stepID string) tea.Cmd {
	return func() tea.Msg {
		result, err := complete(stepID)
		return CompletedMsg{StepID: stepID, Result: result, Err: err}
	}
}

// TooBig asks for stepID to be broken down further.
func TooBig(expand func(string) ([]task.SubStep, error), stepID string) tea.Cmd {
	return func() tea.Msg {
		subs, err := expand(stepID)
		return ExpandedMsg{StepID: stepID, Count: len(subs), Err: err}
	}
}

// Delete runs a confirmed delete.
func Delete(confirm func() error, taskID string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{TaskID: taskID, Err: confirm()}
	}
}

// SendCode asks the identity provider to email a sign-in code.
func SendCode(ctx context.Context, a Authenticator, email, redirectURL string) tea.Cmd {
	return func() tea.Msg {
		return CodeSentMsg{Email: email, Err: a.SignInWithOTP(ctx, email, redirectURL)}
	}
}

// VerifyCode exchanges the emailed code for a session.
func VerifyCode(ctx context.Context, a Authenticator, email, code string) tea.Cmd {
	return func() tea.Msg {
		session, err := a.VerifyOTP(ctx, email, code)
		return SignedInMsg{Session: session, Err: err}
	}
}

// SignOut ends the session.
func SignOut(ctx context.Context, a Authenticator) tea.Cmd {
	return func() tea.Msg {
		return SignedOutMsg{Err: a.SignOut(ctx)}
	}
}
