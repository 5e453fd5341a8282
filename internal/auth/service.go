package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
)

// watchDebounce collapses the burst of events a single file write causes.
const watchDebounce = 50 * time.Millisecond

// Service talks to a GoTrue-style identity provider and keeps the session
// in a FileStore. It implements Provider and api.TokenSource.
type Service struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	store      *FileStore
	bus        *event.Bus
	logger     *logging.Logger
	now        func() time.Time

	mu        sync.Mutex
	listeners map[int]StateChangeFunc
	nextID    int
	// lastToken is the token listeners were last told about.
	lastToken string
	seeded    bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAnonKey sets the public API key sent in the apikey header.
func WithAnonKey(key string) ServiceOption {
	return func(s *Service) { s.anonKey = key }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(s *Service) { s.httpClient = hc }
}

// WithBus publishes auth.changed events on bus.
func WithBus(bus *event.Bus) ServiceOption {
	return func(s *Service) { s.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service for the provider at baseURL (for example
// "http://localhost:8000/auth/v1").
func NewService(baseURL string, store *FileStore, opts ...ServiceOption) *Service {
	s := &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		store:      store,
		logger:     logging.NopLogger(),
		now:        time.Now,
		listeners:  make(map[int]StateChangeFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Provider = (*Service)(nil)

// GetSession implements Provider.
func (s *Service) GetSession(context.Context) (*Session, error) {
	return s.store.Load()
}

// Token returns the current access token, or "" when signed out, so API
// requests go out unauthenticated rather than failing locally.
func (s *Service) Token(ctx context.Context) (string, error) {
	session, err := s.GetSession(ctx)
	if err != nil || session == nil {
		return "", err
	}
	return session.AccessToken, nil
}

// OnAuthStateChange implements Provider. cb is called at once with the
// current session as EventInitialSession.
func (s *Service) OnAuthStateChange(cb StateChangeFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	s.mu.Unlock()

	session, err := s.store.Load()
	if err != nil {
		s.logger.Warn("load session failed", "error", err.Error())
	}
	s.mu.Lock()
	if !s.seeded {
		s.seeded = true
		if session != nil {
			s.lastToken = session.AccessToken
		}
	}
	s.mu.Unlock()
	cb(EventInitialSession, session)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignInWithOTP implements Provider. The provider emails a one-time code
// (and a magic link to redirectURL, which a terminal cannot follow).
func (s *Service) SignInWithOTP(ctx context.Context, email, redirectURL string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.NewValidationError("Please enter your email").WithField("email")
	}

	path := "/otp"
	if redirectURL != "" {
		path += "?" + url.Values{"redirect_to": {redirectURL}}.Encode()
	}
	body := map[string]any{"email": email, "create_user": true}
	if err := s.post(ctx, path, "", body, nil); err != nil {
		return err
	}
	s.logger.Info("sign-in code requested", "email", email)
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

func (t tokenResponse) session(now time.Time) *Session {
	s := &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

// VerifyOTP exchanges the emailed code for a session, stores it and
// notifies listeners.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.NewValidationError("Please enter the code from your email").WithField("code")
	}

	var resp tokenResponse
	body := map[string]string{"type": "email", "email": email, "token": code}
	if err := s.post(ctx, "/verify", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.NewFormatError("verify", errors.New("missing access_token"))
	}

	session := resp.session(s.now())
	if err := s.store.Save(session); err != nil {
		return nil, err
	}
	s.logger.Info("signed in", "user_id", session.User.ID)
	s.notify(EventSignedIn, session)
	return session, nil
}

// SignOut revokes the session at the provider, best effort, and removes it
// locally.
func (s *Service) SignOut(ctx context.Context) error {
	session, _ := s.store.Load()
	if session != nil {
		if err := s.post(ctx, "/logout", session.AccessToken, nil, nil); err != nil {
			s.logger.Warn("remote sign-out failed", "error", err.Error())
		}
	}
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.logger.Info("signed out")
	s.notify(EventSignedOut, nil)
	return nil
}

func (s *Service) notify(evt Event, session *Session) {
	s.mu.Lock()
	s.seeded = true
	if session != nil {
		s.lastToken = session.AccessToken
	} else {
		s.lastToken = ""
	}
	listeners := make([]StateChangeFunc, 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.mu.Unlock()

	for _, cb := range listeners {
		cb(evt, session)
	}
	if s.bus != nil {
		if session != nil {
			s.bus.Publish(event.NewAuthChangedEvent(session.User.ID, session.User.Email, true))
		} else {
			s.bus.Publish(event.NewAuthChangedEvent("", "", false))
		}
	}
}

func (s *Service) post(ctx context.Context, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal auth request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "create auth request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.anonKey != "" {
		req.Header.Set("apikey", s.anonKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(err).WithRequest(http.MethodPost, s.baseURL+path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewHTTPError(resp.StatusCode, providerMessage(raw)).WithRequest(http.MethodPost, path)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewFormatError("auth "+path, err)
	}
	return nil
}

// providerMessage reads the message GoTrue puts in msg, error_description
// or message.
func providerMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message} {
		if m != "" {
			return m
		}
	}
	return ""
}

// Watch follows the session file so a sign-in or sign-out made by another
// process reaches the listeners. It blocks until ctx is done. Only the OS
// filesystem can be watched; on any other filesystem Watch returns
// immediately.
func (s *Service) Watch(ctx context.Context) error {
	if _, ok := s.store.Fs().(*afero.OsFs); !ok {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create session watcher")
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.store.Path())
	if err := s.store.Fs().MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	// The file itself is replaced on save, so watch its directory.
	if err := watcher.Add(dir); err != nil {
		return errors.Wrap(err, "watch session dir")
	}

	// A write that landed before the watch was in place raised no event.
	s.reload()

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != s.store.Path() {
				continue
			}
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("session watcher error", "error", err.Error())
		}
	}
}

// reload notifies listeners when the stored token differs from the last
// one seen.
func (s *Service) reload() {
	session, err := s.store.Load()
	if err != nil {
		s.logger.Warn("reload session failed", "error", err.Error())
		return
	}

	token := ""
	if session != nil {
		token = session.AccessToken
	}
	s.mu.Lock()
	changed := token != s.lastToken
	s.mu.Unlock()
	if !changed {
		return
	}

	if session != nil {
		s.notify(EventSignedIn, session)
	} else {
		s.notify(EventSignedOut, nil)
	}
}
