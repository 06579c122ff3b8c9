package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"portal/internal/audit"
	"portal/internal/auth/coordinator"
	authhandler "portal/internal/auth/handler"
	"portal/internal/auth/profile"
	"portal/internal/auth/sessions"
	"portal/internal/chat"
	"portal/internal/identity"
	"portal/internal/identity/social"
	"portal/internal/identity/social/google"
	"portal/internal/platform/config"
	"portal/internal/platform/i18n"
	"portal/internal/platform/metrics"
	"portal/internal/platform/middleware"
	"portal/internal/platform/postgres"
	redisclient "portal/internal/platform/redis"
	"portal/internal/ratelimit"
	"portal/internal/sitemap"
	"portal/pkg/platform/httputil"
	"portal/pkg/platform/middleware/metadata"
	"portal/pkg/platform/middleware/requesttime"
)

const auditBufferSize = 256

// infra holds the optional external backends. Nil fields fall back to
// in-memory stores.
type infra struct {
	redis *redisclient.Client
	db    *sql.DB
	kafka *audit.KafkaSink
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	var err error
	if in.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		in.Close()
		return nil, err
	}
	if len(cfg.Kafka.Brokers) > 0 {
		if in.kafka, err = audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic); err != nil {
			in.Close()
			return nil, err
		}
		setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := in.kafka.Ping(setupCtx); err != nil {
			log.Warn("kafka brokers unreachable, audit events will retry on emit", "error", err)
		} else if err := in.kafka.EnsureTopic(setupCtx, cfg.Kafka.AuditPartitions, cfg.Kafka.AuditReplication); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		cancel()
	}
	return in, nil
}

func (in *infra) backend() string {
	switch {
	case in.db != nil && in.redis != nil:
		return "postgres+redis"
	case in.db != nil:
		return "postgres"
	case in.redis != nil:
		return "redis"
	default:
		return "memory"
	}
}

func (in *infra) health(ctx context.Context) error {
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
}

// profileStore is satisfied by both profile backends.
type profileStore interface {
	coordinator.ProfileStore
	authhandler.ProfileReader
}

type application struct {
	router   http.Handler
	sessions *sessions.Registry
	audit    *audit.Publisher
	// background loops run next to the server until shutdown
	background []func(context.Context) error
}

func buildApp(ctx context.Context, cfg config.Config, in *infra, m *metrics.Metrics, log *slog.Logger) (*application, error) {
	resolver, err := i18n.NewResolver(cfg.Server.Locales, cfg.Server.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("configure locales: %w", err)
	}

	auditOpts := []audit.Option{audit.WithAsyncBuffer(auditBufferSize), audit.WithLogger(log)}
	if in.kafka != nil {
		guarded := audit.NewGuardedSink("kafka", in.kafka, audit.NewBreaker(5, time.Minute), log, m)
		auditOpts = append(auditOpts, audit.WithSink(guarded))
	}
	publisher := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)

	provider, err := newIdentityProvider(ctx, cfg, in, publisher, log)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	var profiles profileStore = profile.NewInMemoryStore()
	if in.db != nil {
		profiles = profile.NewPostgres(in.db)
	}

	tracer := otel.Tracer("portal/internal/auth/coordinator")
	registry := sessions.New(func(clientKey string, notifier coordinator.Notifier) *coordinator.Coordinator {
		return coordinator.New(provider.Client(clientKey), profiles, notifier,
			coordinator.WithLogger(log),
			coordinator.WithMetrics(m),
			coordinator.WithTracer(tracer),
		)
	}, cfg.Server.SessionIdleTTL, sessions.WithLogger(log), sessions.WithMetrics(m))

	var model chat.Model
	if cfg.Chat.APIKey != "" {
		gm, err := chat.NewGeminiModel(ctx, cfg.Chat.APIKey, cfg.Chat.Model)
		if err != nil {
			publisher.Close()
			return nil, err
		}
		model = gm
	} else {
		log.Warn("GEMINI_API_KEY not set, chat requests will fail")
	}

	var buckets ratelimit.BucketStore
	var background []func(context.Context) error
	if in.redis != nil {
		buckets = ratelimit.NewRedisBucketStore(in.redis)
	} else {
		mem := ratelimit.NewInMemoryBucketStore()
		window := max(cfg.Limits.ChatWindow, cfg.Limits.AuthWindow)
		background = append(background, func(ctx context.Context) error { return mem.Run(ctx, window) })
		buckets = mem
	}
	limiter := ratelimit.New(buckets, log, ratelimit.WithDisabled(cfg.Limits.Disabled), ratelimit.WithMetrics(m))
	authClass := ratelimit.Class{Name: "auth", Requests: cfg.Limits.AuthRequests, Window: cfg.Limits.AuthWindow}
	chatClass := ratelimit.Class{Name: "chat", Requests: cfg.Limits.ChatRequests, Window: cfg.Limits.ChatWindow}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := in.health(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	sitemap.New(cfg.Server.BaseURL, resolver.Locales(), log).Register(r)

	keys := middleware.NewClientKeys(cfg.Server.ClientKeySecret, cfg.Server.ClientKeyTTL)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ClientSession(keys, cfg.Server.SecureCookies, log))
		r.Use(middleware.Locale(resolver))
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(authClass))
			authhandler.New(registry, provider, profiles, resolver.Default(), cfg.Server.SecureCookies, log).Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(chatClass))
			chat.New(model, log, m).Register(r)
		})
	})

	return &application{router: r, sessions: registry, audit: publisher, background: background}, nil
}

func newIdentityProvider(ctx context.Context, cfg config.Config, in *infra, auditor identity.Auditor, log *slog.Logger) (*identity.Provider, error) {
	opts := []identity.Option{
		identity.WithAuditor(auditor),
		identity.WithLogger(log),
		identity.WithMailer(identity.NewLogMailer(log)),
	}
	if in.redis != nil {
		opts = append(opts,
			identity.WithPresenceStore(identity.NewRedisPresence(in.redis, log)),
			identity.WithAttemptLimiter(identity.NewRedisAttemptLimiter(in.redis, cfg.Identity.MaxFailedAttempts, cfg.Identity.AttemptWindow)),
			identity.WithResetTokenStore(identity.NewRedisResetTokenStore(in.redis)),
		)
	}
	if in.db != nil {
		opts = append(opts, identity.WithAccountStore(identity.NewPostgresAccountStore(in.db)))
	}

	var providers []social.Provider
	if cfg.Google.Enabled() {
		g, err := google.New(ctx, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		if err != nil {
			return nil, fmt.Errorf("configure google sign-in: %w", err)
		}
		providers = append(providers, g)
	}
	opts = append(opts, identity.WithSocialRegistry(social.NewRegistry(providers...)))

	return identity.New(cfg.Identity, opts...), nil
}
