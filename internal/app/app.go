// Package app wires the application's collaborators together.
//
// A Context is built once at start from the loaded configuration and torn
// down at exit. Nothing it owns lives in package-level state, so commands
// and tests can build as many independent contexts as they need.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/auth"
	"github.com/Iron-Ham/gentle/internal/config"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/realtime"
	"github.com/Iron-Ham/gentle/internal/retry"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// Context holds every long-lived collaborator of a gentle process.
type Context struct {
	Config       *config.Config
	Logger       *logging.Logger
	Bus          *event.Bus
	API          *api.Client
	Cache        *query.Client
	Auth         *auth.Service
	Celebrations *realtime.Listener
	Router       *workflow.Router
	Retry        *retry.Manager

	ownsLogger bool
	unsubAuth  func()

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

type options struct {
	fs         afero.Fs
	logger     *logging.Logger
	httpClient *http.Client
	channel    realtime.Channel
}

// Option configures New.
type Option func(*options)

// WithFs stores the session on fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLogger uses logger instead of opening the log file. The caller keeps
// ownership of it.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sets the HTTP client used by the API client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithChannel replaces the websocket celebration channel.
func WithChannel(ch realtime.Channel) Option {
	return func(o *options) { o.channel = ch }
}

// New builds a Context from cfg. Nothing touches the network until Start.
func New(cfg *config.Config, opts ...Option) (*Context, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}

	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{Config: cfg}
	if o.logger != nil {
		c.Logger = o.logger
	} else {
		logger, err := newLogger(cfg)
		if err != nil {
			return nil, err
		}
		c.Logger = logger
		c.ownsLogger = true
	}

	c.Bus = event.NewBus(c.Logger)
	busLogger := c.Logger.WithView("bus")
	c.Bus.SubscribeAll(func(e event.Event) {
		busLogger.Debug("event", "type", e.EventType())
	})
	c.Retry = retry.NewManager()
	c.Auth = auth.NewService(cfg.AuthURL(), auth.NewFileStore(o.fs, cfg.SessionFile()),
		auth.WithAnonKey(cfg.Auth.AnonKey),
		auth.WithBus(c.Bus),
		auth.WithLogger(c.Logger.WithView("auth")),
	)

	apiOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout()),
		api.WithTokenSource(c.Auth),
		api.WithLogger(c.Logger.WithView("api")),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	c.API = api.NewClient(cfg.API.BaseURL, apiOpts...)

	c.Cache = query.NewClient(
		query.WithStaleTime(cfg.Cache.StaleTime()),
		query.WithBus(c.Bus),
		query.WithLogger(c.Logger.WithView("cache")),
	)

	channel := o.channel
	if channel == nil {
		channel = realtime.NewWSChannel(cfg.RealtimeURL(),
			realtime.WithTokenSource(c.Auth),
			realtime.WithLogger(c.Logger.WithView("realtime")),
		)
	}
	c.Celebrations = realtime.NewListener(channel,
		realtime.WithBannerDuration(cfg.Realtime.BannerDuration()),
		realtime.WithBus(c.Bus),
		realtime.WithListenerLogger(c.Logger.WithView("celebrations")),
	)

	c.Router = workflow.NewRouter(workflow.WelcomeRoute(), c.Bus, c.Logger.WithView("router"))
	return c, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(config.ConfigDir(), cfg.Logging.Level)
	if err != nil {
		return nil, errors.Wrap(err, "open log")
	}
	return logger, nil
}

// Deps returns the collaborators the workflow controllers need.
func (c *Context) Deps() workflow.Deps {
	return workflow.Deps{
		Backend:         c.API,
		Cache:           c.Cache,
		Nav:             c.Router,
		Bus:             c.Bus,
		Retry:           c.Retry,
		Logger:          c.Logger,
		MutationRetries: c.Config.Retry.MutationRetries,
		RetryDelay:      c.Config.Retry.Delay(),
	}
}

// Start follows the session: the celebration listener tracks the signed-in
// user, and a sign-out drops cached server state and returns to the welcome
// screen. It also watches the session file for changes made by other gentle
// processes. Start returns at once; Close stops everything.
func (c *Context) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	unsub := c.Auth.OnAuthStateChange(func(evt auth.Event, session *auth.Session) {
		c.onAuthChange(ctx, evt, session)
	})
	c.mu.Lock()
	c.unsubAuth = unsub
	c.mu.Unlock()

	c.wg.Go(func() {
		if err := c.Auth.Watch(ctx); err != nil {
			c.Logger.Warn("session watch stopped", "error", err.Error())
		}
	})
}

func (c *Context) onAuthChange(ctx context.Context, evt auth.Event, session *auth.Session) {
	userID := ""
	if session != nil {
		userID = session.User.ID
	}
	if c.Config.Realtime.Enabled {
		if err := c.Celebrations.Watch(ctx, userID); err != nil {
			c.Logger.Warn("celebrations unavailable", "error", err.Error())
		}
	}
	if evt == auth.EventSignedOut {
		c.Cache.Clear()
		c.Retry.ResetAll()
		c.Router.Reset(workflow.WelcomeRoute())
	}
}

// SignedIn returns the current session, or nil.
func (c *Context) SignedIn(ctx context.Context) *auth.Session {
	session, err := c.Auth.GetSession(ctx)
	if err != nil {
		c.Logger.Warn("read session failed", "error", err.Error())
		return nil
	}
	return session
}

// Close stops background work and releases the log file. It is safe to
// call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	unsub := c.unsubAuth
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.Celebrations.Close()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.Cache.Clear()

	if c.ownsLogger {
		return c.Logger.Close()
	}
	return nil
}
