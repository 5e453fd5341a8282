// Package tui is the terminal user interface of gentle.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/app"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	appCtx  *app.Context
}

// EnvFrom builds the UI environment from an application context.
func EnvFrom(c *app.Context) Env {
	return Env{
		Deps:   c.Deps(),
		Router: c.Router,
		Auth:   c.Auth,
		Banner: c.Celebrations,
		Config: c.Config,
	}
}

// New creates a new TUI application. The context must already be started.
func New(ctx context.Context, c *app.Context) *App {
	return &App{
		model:  NewModel(ctx, EnvFrom(c)),
		appCtx: c,
	}
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run(ctx context.Context) error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	// Quit cleanly on termination so the session file and log are flushed.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok && a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	bus := a.appCtx.Bus
	celebrations := bus.Subscribe(event.TypeCelebrationReceived, func(e event.Event) {
		if ce, ok := e.(event.CelebrationReceivedEvent); ok {
			a.program.Send(msg.CelebrationMsg{Message: ce.Message})
		}
	})
	sessions := bus.Subscribe(event.TypeAuthChanged, func(e event.Event) {
		if ae, ok := e.(event.AuthChangedEvent); ok {
			a.program.Send(msg.AuthChangedMsg{SignedIn: ae.SignedIn, Email: ae.Email})
		}
	})

	_, err := a.program.Run()

	bus.Unsubscribe(celebrations)
	bus.Unsubscribe(sessions)
	signal.Stop(sigChan)
	close(sigChan)

	if err != nil && ctx.Err() != nil {
		// Cancelled from outside; not a failure of the UI.
		return nil
	}
	return err
}
