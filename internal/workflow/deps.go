package workflow

import (
	"context"
	"time"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/retry"
	"github.com/Iron-Ham/gentle/internal/task"
)

// GenericFailure is shown when a failure carries no message of its own.
const GenericFailure = "Something went wrong. Let's try again."

// Backend is the subset of the REST API the controllers call. *api.Client
// implements it.
type Backend interface {
	CreateTask(ctx context.Context, title string) (task.Task, error)
	BreakdownTask(ctx context.Context, taskID string, mood task.Mood) ([]task.Step, error)
	ListTasks(ctx context.Context) ([]task.Task, error)
	GetTask(ctx context.Context, taskID string) (task.Detail, error)
	DeleteTask(ctx context.Context, taskID string) error
	CompleteStep(ctx context.Context, stepID string) (api.CompleteResult, error)
	TooBig(ctx context.Context, stepID string) ([]task.SubStep, error)
}

var _ Backend = (*api.Client)(nil)

// Deps are the collaborators shared by every controller. Backend and Cache
// are required; the rest may be left nil.
type Deps struct {
	Backend Backend
	Cache   *query.Client
	Nav     Navigator
	Bus     *event.Bus
	Retry   *retry.Manager
	Logger  *logging.Logger

	// MutationRetries is the number of automatic retries for step
	// completion and too-big requests.
	MutationRetries int
	// RetryDelay is the pause before a retry.
	RetryDelay time.Duration
}

func (d Deps) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.NopLogger()
	}
	return d.Logger
}

func (d Deps) publish(e event.Event) {
	if d.Bus != nil {
		d.Bus.Publish(e)
	}
}

func (d Deps) navigate(r Route) {
	if d.Nav != nil {
		d.Nav.Navigate(r)
	}
}

func (d Deps) mutationConfig(name string, retries int) query.MutationConfig {
	return query.MutationConfig{
		Name:    name,
		Retries: retries,
		Delay:   d.RetryDelay,
		Retry:   d.Retry,
		Bus:     d.Bus,
		Logger:  d.logger(),
	}
}
