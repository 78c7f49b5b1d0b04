package promptgate

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/immerseseoul/promptgate/password"
)

// EnvironmentProduction selects FRONTEND_URL over DEV_FRONTEND_URL.
const EnvironmentProduction = "production"

// Config is the engine configuration. Build it with DefaultConfig and
// override fields; the Builder validates it once.
type Config struct {
	// Environment names the deployment ("production", "development", ...).
	Environment string

	JWT       JWTConfig
	Session   SessionConfig
	Frontend  FrontendConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

// JWTConfig configures bearer-token signing.
type JWTConfig struct {
	Secret []byte
	Issuer string
}

// SessionConfig configures session lifetime and storage.
type SessionConfig struct {
	// Duration is both the session TTL and the token lifetime.
	Duration    time.Duration
	RedisPrefix string
}

// FrontendConfig holds the redirect bases for email links and the form login.
type FrontendConfig struct {
	URL    string
	DevURL string
}

// PasswordConfig holds Argon2id cost parameters.
type PasswordConfig struct {
	password.Config
	UpgradeOnLogin bool
}

// RateLimitConfig bounds failed logins, shared by both login channels.
type RateLimitConfig struct {
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	EnableIPThrottle bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns a configuration with every field but JWT.Secret set.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		Session: SessionConfig{
			Duration:    24 * time.Hour,
			RedisPrefix: "session",
		},
		Frontend: FrontendConfig{
			DevURL: "http://localhost:5173",
		},
		Password: PasswordConfig{
			Config:         password.DefaultConfig(),
			UpgradeOnLogin: true,
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts: 10,
			LoginCooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// IsProduction reports whether the production frontend URL applies.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// FrontendBase returns the frontend origin used for redirects and email links,
// without a trailing slash.
func (c *Config) FrontendBase() string {
	base := c.Frontend.DevURL
	if c.IsProduction() {
		base = c.Frontend.URL
	}
	return strings.TrimRight(base, "/")
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	}
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT secret is required")
	}
	if c.Session.Duration < time.Second {
		return errors.New("session duration must be at least one second")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix is required")
	}

	base := c.FrontendBase()
	if base == "" {
		if c.IsProduction() {
			return errors.New("FRONTEND_URL is required in production")
		}
		return errors.New("DEV_FRONTEND_URL is required outside production")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("frontend URL must be absolute")
	}

	if c.RateLimit.MaxLoginAttempts < 0 {
		return errors.New("max login attempts must be >= 0")
	}
	if c.RateLimit.MaxLoginAttempts > 0 && c.RateLimit.LoginCooldown <= 0 {
		return errors.New("login cooldown must be > 0 when rate limiting is enabled")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0")
	}
	return nil
}
