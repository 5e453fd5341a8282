package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/logging"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

// WSChannel is a Channel over a websocket. Each subscription holds its own
// connection and redials with capped exponential backoff until cancelled.
type WSChannel struct {
	url        string
	tokens     api.TokenSource
	dialer     *websocket.Dialer
	logger     *logging.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// WSOption configures a WSChannel.
type WSOption func(*WSChannel)

// WithTokenSource sets where the bearer token for the handshake comes from.
func WithTokenSource(ts api.TokenSource) WSOption {
	return func(c *WSChannel) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) WSOption {
	return func(c *WSChannel) { c.logger = logger }
}

// WithBackoff sets the first and the largest reconnect delay.
func WithBackoff(minDelay, maxDelay time.Duration) WSOption {
	return func(c *WSChannel) {
		c.minBackoff = minDelay
		c.maxBackoff = maxDelay
	}
}

// NewWSChannel creates a channel for the websocket endpoint at rawURL.
func NewWSChannel(rawURL string, opts ...WSOption) *WSChannel {
	c := &WSChannel{
		url:        rawURL,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logging.NopLogger(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NopLogger()
	}
	if c.minBackoff <= 0 {
		c.minBackoff = defaultMinBackoff
	}
	c.maxBackoff = max(c.maxBackoff, c.minBackoff)
	return c
}

var _ Channel = (*WSChannel)(nil)

// Subscribe implements Channel. Connection failures are retried in the
// background, so only an unusable URL fails here.
func (c *WSChannel) Subscribe(ctx context.Context, userID string, onEvent Handler) (*Subscription, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user id is required").WithField("user_id")
	}
	endpoint, err := c.endpoint(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(cancel)
	logger := c.logger.With("user_id", userID)

	go func() {
		defer sub.Finish()
		c.run(ctx, endpoint, logger, onEvent)
	}()
	return sub, nil
}

func (c *WSChannel) endpoint(userID string) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil || u.Host == "" {
		return "", errors.NewValidationError("invalid realtime url").WithField("realtime.url").WithValue(c.url)
	}
	q := u.Query()
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *WSChannel) run(ctx context.Context, endpoint string, logger *logging.Logger, onEvent Handler) {
	delay := c.minBackoff
	for {
		conn, err := c.dial(ctx, endpoint)
		if err == nil {
			logger.Debug("realtime connected")
			delay = c.minBackoff
			err = c.read(ctx, conn, onEvent)
		}
		if ctx.Err() != nil {
			logger.Debug("realtime subscription closed")
			return
		}
		logger.Warn("realtime connection lost", "error", err.Error(), "retry_in", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, c.maxBackoff)
	}
}

func (c *WSChannel) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	header := http.Header{}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "realtime token")
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.NewHTTPError(resp.StatusCode, "").WithRequest(http.MethodGet, "/v1/realtime")
		}
		return nil, errors.NewNetworkError(err).WithRequest(http.MethodGet, endpoint)
	}
	return conn, nil
}

// read delivers frames until the connection fails or ctx is done.
func (c *WSChannel) read(ctx context.Context, conn *websocket.Conn, onEvent Handler) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if malformed(err) {
				c.logger.Warn("dropping malformed realtime frame", "error", err.Error())
				continue
			}
			return err
		}
		if frame.Type != FrameCelebration {
			continue
		}
		var payload CelebrationPayload
		if len(frame.Payload) > 0 {
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				c.logger.Warn("dropping malformed celebration payload", "error", err.Error())
				continue
			}
		}
		onEvent(Celebration{Message: payload.Message})
	}
}

func malformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
