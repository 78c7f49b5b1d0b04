// Package config loads the service configuration. Sources are layered in
// order: built-in defaults, an optional YAML file, environment variables,
// then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/cors"
)

// Config is the process configuration.
type Config struct {
	Environment string         `koanf:"environment"`
	JWT         JWTConfig      `koanf:"jwt"`
	Session     SessionConfig  `koanf:"session"`
	Frontend    FrontendConfig `koanf:"frontend"`
	HTTP        HTTPConfig     `koanf:"http"`
	Database    DatabaseConfig `koanf:"database"`
	Redis       RedisConfig    `koanf:"redis"`
	Mail        MailConfig     `koanf:"mail"`
	CORS        CORSConfig     `koanf:"cors"`
	Log         LogConfig      `koanf:"log"`
	Security    SecurityConfig `koanf:"security"`
	Audit       AuditConfig    `koanf:"audit"`
}

type JWTConfig struct {
	Secret string `koanf:"secret"`
	Issuer string `koanf:"issuer"`
}

type SessionConfig struct {
	// Duration is in seconds.
	Duration int `koanf:"duration"`
}

type FrontendConfig struct {
	URL    string `koanf:"url"`
	DevURL string `koanf:"dev_url"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type MailConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	From         string `koanf:"from"`
}

type CORSConfig struct {
	OriginsFile string `koanf:"origins_file"`
	Strict      bool   `koanf:"strict"`
}

type LogConfig struct {
	Format string `koanf:"format"`
}

type SecurityConfig struct {
	MaxLoginAttempts int           `koanf:"max_login_attempts"`
	LoginCooldown    time.Duration `koanf:"login_cooldown"`
	IPThrottle       bool          `koanf:"ip_throttle"`
}

type AuditConfig struct {
	Enabled bool `koanf:"enabled"`
	// Format is "slog" to route events through the process logger or "json"
	// for one bare JSON record per line on stderr.
	Format string `koanf:"format"`
}

var defaults = map[string]any{
	"environment":                 "development",
	"session.duration":            86400,
	"frontend.dev_url":            "http://localhost:5173",
	"http.addr":                   ":8787",
	"redis.url":                   "redis://localhost:6379/0",
	"mail.from":                   "onboarding@resend.dev",
	"cors.origins_file":           "allowed-domains.yaml",
	"cors.strict":                 false,
	"log.format":                  "json",
	"security.max_login_attempts": 10,
	"security.login_cooldown":     "15m",
	"audit.enabled":               true,
	"audit.format":                "slog",
}

// envKeys maps environment variables onto configuration keys.
var envKeys = map[string]string{
	"ENVIRONMENT":        "environment",
	"JWT_SECRET":         "jwt.secret",
	"JWT_ISSUER":         "jwt.issuer",
	"SESSION_DURATION":   "session.duration",
	"FRONTEND_URL":       "frontend.url",
	"DEV_FRONTEND_URL":   "frontend.dev_url",
	"HTTP_ADDR":          "http.addr",
	"DATABASE_URL":       "database.url",
	"REDIS_URL":          "redis.url",
	"RESEND_API_KEY":     "mail.resend_api_key",
	"EMAIL_FROM":         "mail.from",
	"CORS_ORIGINS_FILE":  "cors.origins_file",
	"CORS_STRICT":        "cors.strict",
	"LOG_FORMAT":         "log.format",
	"MAX_LOGIN_ATTEMPTS": "security.max_login_attempts",
	"LOGIN_COOLDOWN":     "security.login_cooldown",
	"LOGIN_IP_THROTTLE":  "security.ip_throttle",
	"AUDIT_ENABLED":      "audit.enabled",
	"AUDIT_FORMAT":       "audit.format",
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"addr":        "http.addr",
	"environment": "environment",
	"log-format":  "log.format",
	"origins":     "cors.origins_file",
}

// Load reads configuration from path (skipped when empty), the environment
// and any flags in fs that were explicitly set.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	cfg.Environment = NormalizeEnvironment(cfg.Environment)
	return &cfg, nil
}

// NormalizeEnvironment trims and lower-cases an environment name. The engine
// and the CORS resolver both match it exactly.
func NormalizeEnvironment(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the settings the engine itself does not see.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive, got %d", c.Session.Duration)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	switch c.Audit.Format {
	case "slog", "json":
	default:
		return fmt.Errorf("AUDIT_FORMAT must be slog or json, got %q", c.Audit.Format)
	}
	return nil
}

// Engine converts the process configuration into a promptgate.Config.
func (c *Config) Engine() promptgate.Config {
	cfg := promptgate.DefaultConfig()
	cfg.Environment = c.Environment
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.Session.Duration = time.Duration(c.Session.Duration) * time.Second
	cfg.Frontend.URL = c.Frontend.URL
	cfg.Frontend.DevURL = c.Frontend.DevURL
	cfg.RateLimit.MaxLoginAttempts = c.Security.MaxLoginAttempts
	cfg.RateLimit.LoginCooldown = c.Security.LoginCooldown
	cfg.RateLimit.EnableIPThrottle = c.Security.IPThrottle
	cfg.Audit.Enabled = c.Audit.Enabled
	return cfg
}

// FallbackMode returns the CORS behavior for unmatched origins.
func (c *Config) FallbackMode() cors.FallbackMode {
	if c.CORS.Strict {
		return cors.FallbackDeny
	}
	return cors.FallbackFirstOrigin
}

// LoadPolicy reads the CORS origin table: a YAML map from environment name to
// a list of origins.
func LoadPolicy(path string) (cors.Policy, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, oops.Code("CORS_POLICY_MISSING").With("path", path).Wrap(err)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.Code("CORS_POLICY_INVALID").With("path", path).Wrap(err)
	}

	policy := make(cors.Policy)
	for _, env := range k.MapKeys("") {
		policy[NormalizeEnvironment(env)] = k.Strings(env)
	}
	return policy, nil
}
