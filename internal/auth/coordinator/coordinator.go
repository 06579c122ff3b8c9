// Package coordinator owns the observable session state for one browser client
// and mediates every authentication side effect through the identity client and
// the profile store.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"portal/internal/auth/models"
	"portal/internal/platform/metrics"
)

// IdentityClient is the per-client handle onto the identity provider.
// Failures carry an opaque provider code (see ProviderCoder).
type IdentityClient interface {
	CreateAccount(ctx context.Context, email, password string) (*models.Principal, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.Principal, error)
	InteractiveConsent(ctx context.Context, kind models.ProviderKind, resp models.ConsentResponse) (*models.Principal, error)
	TerminateSession(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	// SubscribeAmbientSession delivers the current presence immediately and then
	// every change. A nil principal signals absence.
	SubscribeAmbientSession(ctx context.Context, fn func(*models.Principal)) (unsubscribe func(), err error)
}

// ProfileStore persists profile documents. Get returns sentinel.ErrNotFound when
// absent. Create has put semantics; callers check first.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*models.ProfileDocument, error)
	Create(ctx context.Context, doc models.ProfileDocument) error
}

// Notifier receives the localized outcome of every operation.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Coordinator is the single writer of one client's Session.
type Coordinator struct {
	identity IdentityClient
	profiles ProfileStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	mu      sync.RWMutex
	session models.Session
	settled *models.Session
	gen     uint64

	// writeMu orders write+broadcast so subscribers observe transitions in write order.
	writeMu sync.Mutex
	subMu   sync.Mutex
	subs    map[uint64]func(models.Session)
	nextSub uint64

	// bootstrapMu serializes profile check-then-create against the sign-up put.
	bootstrapMu sync.Mutex
	ensured     map[string]struct{}

	lifeMu      sync.Mutex
	started     bool
	closed      bool
	unsubscribe func()
	ambientCtx  context.Context
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// New constructs a Coordinator in the Loading state. Call Start to begin
// observing ambient session notifications.
func New(identity IdentityClient, profiles ProfileStore, notifier Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		identity: identity,
		profiles: profiles,
		notifier: notifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("portal/internal/auth/coordinator"),
		session:  models.Loading(),
		subs:     make(map[uint64]func(models.Session)),
		ensured:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current session value.
func (c *Coordinator) Session() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Subscribe calls fn with the current session and then with every transition,
// in write order. fn runs on the writing goroutine and must not call back into
// the coordinator's operations.
func (c *Coordinator) Subscribe(fn func(models.Session)) (unsubscribe func()) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	fn(c.Session())

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// Start registers for ambient session notifications. It is a no-op after the
// first call or after Close.
func (c *Coordinator) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	if c.started || c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.started = true
	c.ambientCtx = context.WithoutCancel(ctx)
	c.lifeMu.Unlock()

	unsubscribe, err := c.identity.SubscribeAmbientSession(ctx, c.onAmbient)
	if err != nil {
		c.lifeMu.Lock()
		c.started = false
		c.lifeMu.Unlock()
		return err
	}

	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	return nil
}

// Close unregisters from the ambient channel. Safe to call more than once.
func (c *Coordinator) Close() {
	c.lifeMu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.closed = true
	c.lifeMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// set writes next and broadcasts it. Equal settled values are not re-broadcast.
// Returns the generation of the resulting state.
func (c *Coordinator) set(next models.Session) uint64 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.setLocked(next)
}

// settle writes the last settled session, or Unauthenticated when nothing has
// settled yet. Completing operations use it so they never leave Loading behind.
func (c *Coordinator) settle() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.setLocked(c.lastSettled())
}

// settleIfUnchanged settles only if nothing was written since generation gen.
func (c *Coordinator) settleIfUnchanged(gen uint64) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	current := c.gen
	c.mu.RUnlock()
	if current != gen {
		return
	}
	c.setLocked(c.lastSettled())
}

func (c *Coordinator) lastSettled() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.settled == nil {
		return models.Unauthenticated()
	}
	return *c.settled
}

func (c *Coordinator) setLocked(next models.Session) uint64 {
	c.mu.Lock()
	if next.Settled() && sameSession(c.session, next) {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	c.gen++
	gen := c.gen
	c.session = next
	if next.Settled() {
		c.settled = &next
	}
	c.mu.Unlock()

	c.metrics.ObserveTransition(string(next.State))
	for _, fn := range c.subscribers() {
		fn(next)
	}
	return gen
}

func (c *Coordinator) subscribers() []func(models.Session) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	out := make([]func(models.Session), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func sameSession(a, b models.Session) bool {
	if a.State != b.State {
		return false
	}
	if a.Principal == nil || b.Principal == nil {
		return a.Principal == nil && b.Principal == nil
	}
	pa, pb := a.Principal, b.Principal
	return pa.UID == pb.UID &&
		pa.Email == pb.Email &&
		pa.DisplayName == pb.DisplayName &&
		pa.EmailVerified == pb.EmailVerified
}

// onAmbient handles a presence notification from the identity provider.
func (c *Coordinator) onAmbient(p *models.Principal) {
	c.lifeMu.Lock()
	ctx := c.ambientCtx
	c.lifeMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if p == nil {
		c.bootstrapMu.Lock()
		clear(c.ensured)
		c.bootstrapMu.Unlock()
		c.set(models.Unauthenticated())
		return
	}
	c.ensureProfileOnce(ctx, *p)
	c.set(models.Authenticated(*p))
}
