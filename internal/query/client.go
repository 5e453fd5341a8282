// Package query is the process-wide server-state cache.
//
// Read results are cached under a Key. A view that shows a resource
// registers an observer for its key; when a mutation succeeds it invalidates
// a key prefix, which marks every matching entry stale and refetches the
// observed ones. Refetches may run concurrently and the last one to resolve
// wins. Only mutation success handlers invalidate.
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
)

// DefaultStaleTime is how long fetched data is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// FetchFunc loads the data for one key.
type FetchFunc func(ctx context.Context) (any, error)

type observer struct {
	id    uint64
	fetch FetchFunc
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	stale     bool
	observers []observer
}

func (e *entry) fresh(now time.Time, staleTime time.Duration) bool {
	return e.hasData && !e.stale && now.Sub(e.updatedAt) < staleTime
}

// Client caches server state by key. It is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	entries   map[string]*entry
	nextID    uint64
	staleTime time.Duration
	bus       *event.Bus
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets how long data stays fresh.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) {
		c.staleTime = d
	}
}

// WithBus publishes cache events on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		staleTime: DefaultStaleTime,
		logger:    logging.NopLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func mapKey(k Key) string {
	return strings.Join(k, "\x1f")
}

// entryLocked returns the entry for key, creating it. Caller holds c.mu.
func (c *Client) entryLocked(key Key) *entry {
	mk := mapKey(key)
	e, ok := c.entries[mk]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		c.entries[mk] = e
	}
	return e
}

// store records a fetch result. A failed fetch keeps the previous data.
func (c *Client) store(key Key, data any, err error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.err = err
	if err == nil {
		e.data = data
		e.hasData = true
		e.stale = false
		e.updatedAt = c.now()
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query fetch failed", "key", key.String(), "error", err.Error())
	}
	c.publish(event.NewQueryUpdatedEvent(key, err))
}

func (c *Client) publish(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

// Fetch returns the cached value for key when it is fresh, otherwise it calls
// fetch and caches the result. On failure the previous value stays cached
// and the error is returned.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[mapKey(key)]; ok && e.fresh(c.now(), c.staleTime) {
		if v, ok := e.data.(T); ok {
			c.mu.Unlock()
			return v, nil
		}
	}
	c.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		c.store(key, nil, err)
		var zero T
		return zero, err
	}
	c.store(key, v, nil)
	return v, nil
}

// Peek returns the cached value for key without fetching, fresh or not.
func Peek[T any](c *Client, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[mapKey(key)]
	if !ok || !e.hasData {
		return zero, false
	}
	v, ok := e.data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Err returns the error of the most recent fetch for key, or nil.
func (c *Client) Err(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[mapKey(key)]; ok {
		return e.err
	}
	return nil
}

// IsStale reports whether key has no data or its data is stale.
func (c *Client) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[mapKey(key)]
	return !ok || !e.fresh(c.now(), c.staleTime)
}

// SetData stores v under key as freshly fetched.
func (c *Client) SetData(key Key, v any) {
	c.store(key, v, nil)
}

// Remove drops the entry for key. Observers of the key are dropped too.
func (c *Client) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, mapKey(key))
}

// Clear drops every entry, e.g. on sign-out.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
}

// Observe registers an active query for key: invalidating a matching prefix
// refetches it with fetch. The returned function removes the observer and
// is safe to call more than once.
func Observe[T any](c *Client, key Key, fetch func(context.Context) (T, error)) func() {
	wrapped := func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	e := c.entryLocked(key)
	e.observers = append(e.observers, observer{id: id, fetch: wrapped})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unobserve(key, id) })
	}
}

func (c *Client) unobserve(key Key, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[mapKey(key)]
	if !ok {
		return
	}
	for i, o := range e.observers {
		if o.id == id {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of observers registered for key.
func (c *Client) ObserverCount(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[mapKey(key)]; ok {
		return len(e.observers)
	}
	return 0
}

type refetch struct {
	key   Key
	fetch FetchFunc
}

// Invalidate marks every entry whose key starts with prefix as stale and
// refetches the observed ones concurrently, returning once all refetches
// resolved. Unobserved entries are refetched by their next Fetch. It returns
// the number of entries matched.
func (c *Client) Invalidate(ctx context.Context, prefix Key) int {
	c.mu.Lock()
	var (
		matched int
		jobs    []refetch
	)
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		matched++
		e.stale = true
		if n := len(e.observers); n > 0 {
			// The most recent observer speaks for the key.
			jobs = append(jobs, refetch{key: e.key, fetch: e.observers[n-1].fetch})
		}
	}
	c.mu.Unlock()

	c.logger.Debug("query invalidated", "prefix", prefix.String(), "matched", matched, "refetching", len(jobs))
	c.publish(event.NewQueryInvalidatedEvent(prefix, matched))

	var wg conc.WaitGroup
	for _, job := range jobs {
		wg.Go(func() {
			data, err := job.fetch(ctx)
			c.store(job.key, data, err)
		})
	}
	wg.Wait()
	return matched
}
