package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/gentle/internal/app"
	"github.com/Iron-Ham/gentle/internal/config"
	"github.com/Iron-Ham/gentle/internal/errors"
)

// appOptions are passed to every app.New call. Tests swap in an in-memory
// filesystem here.
var appOptions []app.Option

// openApp loads the effective configuration and builds the application
// context. Callers must Close it.
func openApp() (*app.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	c, err := app.New(cfg, appOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return c, nil
}

// requireSession fails unless a user is signed in.
func requireSession(ctx context.Context, c *app.Context) error {
	if c.SignedIn(ctx) == nil {
		return fmt.Errorf("%w: run 'gentle login <email>' first", errors.ErrUnauthenticated)
	}
	return nil
}

// failure logs err and turns it into the message shown on the terminal.
func failure(c *app.Context, what string, err error) error {
	c.Logger.Error(what+" failed", "error", err.Error())
	return fmt.Errorf("%s: %s", what, errors.UserMessage(err, err.Error()))
}
