package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
)

// RefreshFunc obtains a new credential pair and returns the refreshed session.
type RefreshFunc func(ctx context.Context) (*Session, error)

type State int

const (
	Idle State = iota
	RefreshInFlight
)

func (s State) String() string {
	if s == RefreshInFlight {
		return "refresh_in_flight"
	}
	return "idle"
}

type Stats struct {
	Refreshes int64
	Failures  int64
	Joins     int64
	Retries   int64
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithOnRefreshed registers a hook that runs once per successful refresh,
// before any waiting request is resumed. The hook may issue requests through
// the coordinator.
func WithOnRefreshed(fn func(*Session)) Option {
	return func(c *Coordinator) { c.onRefreshed = append(c.onRefreshed, fn) }
}

// WithOnRefreshFailed registers a hook that runs once per failed refresh,
// before any waiting request receives the error. A request the hook sends
// that comes back 401 fails with the same error.
func WithOnRefreshFailed(fn func(error)) Option {
	return func(c *Coordinator) { c.onRefreshFailed = append(c.onRefreshFailed, fn) }
}

type flight struct {
	done    chan struct{}
	session *Session
	err     error
	waiters int
}

// Coordinator is a Transport decorator. A 401 triggers at most one refresh
// at a time; every request that hits a 401 while that refresh runs waits for
// it, and each request is re-sent at most once.
type Coordinator struct {
	next    Transport
	refresh RefreshFunc
	log     *slog.Logger

	onRefreshed     []func(*Session)
	onRefreshFailed []func(error)

	mu       sync.Mutex
	inflight *flight
	// failing is the failed flight whose hooks are still running.
	failing *flight
	// generation counts finished refreshes. A 401 for a request sent before
	// the latest one finished is answered by lastErr: retried when it
	// succeeded, failed with the same error when it did not.
	generation uint64
	lastErr    error
	closed     bool

	refreshes atomic.Int64
	failures  atomic.Int64
	joins     atomic.Int64
	retries   atomic.Int64
}

func Middleware(next Transport, refresh RefreshFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		next:    next,
		refresh: refresh,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Do(ctx context.Context, req Request) (*Response, error) {
	return c.perform(ctx, req, 0)
}

func (c *Coordinator) perform(ctx context.Context, req Request, attempt int) (*Response, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	gen := c.generation
	c.mu.Unlock()

	resp, err := c.next.Do(ctx, req)
	if err == nil || !errors.Is(err, ErrAuthenticationExpired) {
		return resp, err
	}
	if attempt > 0 {
		c.log.Debug("retry_unauthorized", "request", req.Key, "method", req.Method, "path", req.Path)
		return nil, err
	}

	if err := c.awaitRefresh(ctx, req, gen); err != nil {
		return nil, err
	}

	c.retries.Add(1)
	metrics.SessionRetries.Inc()
	return c.perform(ctx, req, attempt+1)
}

func (c *Coordinator) awaitRefresh(ctx context.Context, req Request, sentAt uint64) error {
	c.mu.Lock()
	if c.generation != sentAt {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	if f := c.failing; f != nil {
		c.mu.Unlock()
		return f.err
	}
	if f := c.inflight; f != nil {
		f.waiters++
		c.mu.Unlock()

		c.joins.Add(1)
		metrics.SessionRefreshJoins.Inc()
		c.log.Debug("refresh_joined", "request", req.Key, "path", req.Path)

		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	c.inflight = f
	c.mu.Unlock()

	// The refresh outlives the caller that started it: cancelling one request
	// must not fail every waiter.
	c.run(context.WithoutCancel(ctx), req, f)
	return f.err
}

func (c *Coordinator) run(ctx context.Context, req Request, f *flight) {
	c.refreshes.Add(1)
	c.log.Info("refresh_started", "request", req.Key, "path", req.Path)

	sess, err := c.callRefresh(ctx)
	if err != nil {
		f.err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	} else {
		f.session = sess
	}

	// The flight is retired before the hooks run so a hook can send requests
	// of its own. Joiners still hold f and resume only once done is closed.
	c.mu.Lock()
	c.inflight = nil
	c.generation++
	c.lastErr = f.err
	if f.err != nil {
		c.failing = f
	}
	waiters := f.waiters
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.failing == f {
			c.failing = nil
		}
		c.mu.Unlock()
		close(f.done)

		if f.err != nil {
			c.log.Warn("refresh_failed", "waiters", waiters, "error", f.err)
		} else {
			c.log.Info("refresh_succeeded", "waiters", waiters)
		}
	}()

	if f.err != nil {
		c.failures.Add(1)
		metrics.SessionRefreshes.WithLabelValues("failure").Inc()
		for _, fn := range c.onRefreshFailed {
			fn(f.err)
		}
		return
	}

	metrics.SessionRefreshes.WithLabelValues("success").Inc()
	for _, fn := range c.onRefreshed {
		fn(sess)
	}
}

func (c *Coordinator) callRefresh(ctx context.Context) (sess *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	return c.refresh(ctx)
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		return RefreshInFlight
	}
	return Idle
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
		Joins:     c.joins.Load(),
		Retries:   c.retries.Load(),
	}
}

// Close makes every later Do fail with ErrClosed. A refresh already running
// is allowed to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Coordinator) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return 0
	}
	return c.inflight.waiters
}
