package msg

import (
	"context"
	"errors"
	"testing"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/auth"
	"github.com/Iron-Ham/gentle/internal/task"
)

type fakeAuth struct {
	sent     string
	verified string
	out      bool
	err      error
}

func (f *fakeAuth) GetSession(context.Context) (*auth.Session, error) { return nil, nil }

func (f *fakeAuth) SignInWithOTP(_ context.Context, email, _ string) error {
	f.sent = email
	return f.err
}

func (f *fakeAuth) VerifyOTP(_ context.Context, email, code string) (*auth.Session, error) {
	f.verified = email + ":" + code
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Session{AccessToken: "tok"}, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.out = true
	return f.err
}

func TestComplete(t *testing.T) {
	fn := func(id string) (api.CompleteResult, error) {
		return api.CompleteResult{TaskCompleted: id == "last"}, nil
	}
	got := Complete(fn, "last")().(CompletedMsg)
	if got.StepID != "last" || !got.Result.TaskCompleted || got.Err != nil {
		t.Errorf("Complete() msg = %+v", got)
	}
}

func TestTooBig(t *testing.T) {
	fn := func(string) ([]task.SubStep, error) {
		return []task.SubStep{{ID: "a"}, {ID: "b"}}, nil
	}
	got := TooBig(fn, "s1")().(ExpandedMsg)
	if got.StepID != "s1" || got.Count != 2 {
		t.Errorf("TooBig() msg = %+v", got)
	}
}

func TestLoadSubmitDelete(t *testing.T) {
	boom := errors.New("boom")
	if got := Load(func() error { return boom })().(LoadedMsg); got.Err != boom {
		t.Errorf("Load() err = %v, want boom", got.Err)
	}
	if got := Submit(func() error { return nil })().(SubmittedMsg); got.Err != nil {
		t.Errorf("Submit() err = %v", got.Err)
	}
	if got := Delete(func() error { return nil }, "t1")().(DeletedMsg); got.TaskID != "t1" {
		t.Errorf("Delete() task = %q", got.TaskID)
	}
}

func TestAuthCommands(t *testing.T) {
	ctx := context.Background()
	a := &fakeAuth{}

	if got := SendCode(ctx, a, "me@example.com", "")().(CodeSentMsg); got.Email != "me@example.com" || got.Err != nil {
		t.Errorf("SendCode() msg = %+v", got)
	}
	got := VerifyCode(ctx, a, "me@example.com", "123456")().(SignedInMsg)
	if got.Session == nil || a.verified != "me@example.com:123456" {
		t.Errorf("VerifyCode() msg = %+v, verified %q", got, a.verified)
	}
	if out := SignOut(ctx, a)().(SignedOutMsg); out.Err != nil || !a.out {
		t.Errorf("SignOut() msg = %+v", out)
	}
}
