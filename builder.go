package promptgate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/immerseseoul/promptgate/internal/audit"
	"github.com/immerseseoul/promptgate/internal/rate"
	"github.com/immerseseoul/promptgate/jwt"
	"github.com/immerseseoul/promptgate/password"
	"github.com/immerseseoul/promptgate/session"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	mailer    Mailer
	auditSink AuditSink
	registry  prometheus.Registerer
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the session and rate-limit store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the user store. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithMailer sets the verification mailer. Without one, registration still
// succeeds and the link is only logged.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets where audit events go. Audit is disabled without a sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetrics registers the engine's collectors with reg.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for tokens and sessions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.New(cfg.Password.Config)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	dummy, err := hasher.Hash("promptgate:unknown-user")
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.Session.Duration,
		Issuer: cfg.JWT.Issuer,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}

	var metrics *Metrics
	if b.registry != nil {
		if metrics, err = NewMetrics(b.registry); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	var dispatcher *audit.Dispatcher
	if b.auditSink != nil {
		dispatcher = audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = logMailer{logger: logger}
	}

	b.built = true
	return &Engine{
		config:   cfg,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		limiter: rate.New(b.redis, rate.Config{
			MaxLoginAttempts: cfg.RateLimit.MaxLoginAttempts,
			LoginCooldown:    cfg.RateLimit.LoginCooldown,
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
		}),
		users:     b.users,
		mailer:    mailer,
		audit:     dispatcher,
		metrics:   metrics,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		clock:     clock,
		newUserID: uuid.NewString,
		dummyHash: dummy,
	}, nil
}
