// Package sessions owns one session coordinator per browser client.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"portal/internal/auth/coordinator"
	"portal/internal/platform/metrics"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("session registry closed")

// Builder constructs the coordinator for a client key. The notifier must be
// passed to the coordinator so notifications reach the client's inbox.
type Builder func(clientKey string, notifier coordinator.Notifier) *coordinator.Coordinator

// Registry lazily creates, starts and expires coordinators keyed by client key.
// A coordinator in use is never expired.
type Registry struct {
	build   Builder
	idleTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	done    chan struct{}
}

type entry struct {
	coord    *coordinator.Coordinator
	inbox    *Inbox
	refs     int
	lastUsed time.Time

	startOnce sync.Once
	startErr  error
}

// Session is a leased coordinator. Call Release when the request is done.
type Session struct {
	*coordinator.Coordinator
	Inbox *Inbox

	done    <-chan struct{}
	release func()
	once    sync.Once
}

// Done is closed when the registry shuts down. Long-lived readers of the
// session stop on it.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Release returns the lease. Safe to call more than once.
func (s *Session) Release() {
	s.once.Do(s.release)
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func New(build Builder, idleTTL time.Duration, opts ...Option) *Registry {
	r := &Registry{
		build:   build,
		idleTTL: idleTTL,
		now:     time.Now,
		logger:  slog.Default(),
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the started coordinator for clientKey, creating it on first use.
func (r *Registry) Acquire(ctx context.Context, clientKey string) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := r.entries[clientKey]
	if !ok {
		inbox := NewInbox()
		e = &entry{coord: r.build(clientKey, inbox), inbox: inbox}
		r.entries[clientKey] = e
		r.metrics.SetActiveSessions(len(r.entries))
	}
	e.refs++
	e.lastUsed = r.now()
	r.mu.Unlock()

	e.startOnce.Do(func() {
		e.startErr = e.coord.Start(ctx)
	})
	if e.startErr != nil {
		r.mu.Lock()
		e.refs--
		if r.entries[clientKey] == e {
			delete(r.entries, clientKey)
			r.metrics.SetActiveSessions(len(r.entries))
		}
		r.mu.Unlock()
		return nil, e.startErr
	}

	return &Session{
		Coordinator: e.coord,
		Inbox:       e.inbox,
		done:        r.done,
		release:     func() { r.release(e) },
	}, nil
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	e.lastUsed = r.now()
}

// Len returns the number of live coordinators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes coordinators that are unleased and idle for longer than the TTL.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	now := r.now()
	var expired []*coordinator.Coordinator
	for key, e := range r.entries {
		if e.refs == 0 && now.Sub(e.lastUsed) > r.idleTTL {
			expired = append(expired, e.coord)
			delete(r.entries, key)
		}
	}
	r.metrics.SetActiveSessions(len(r.entries))
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("expired idle session coordinators", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes the registry.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every coordinator and rejects further Acquire calls.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.done)
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.coord.Close()
	}
}
