package promptgate

import (
	"log/slog"
	"time"
)

// SecurityReport summarizes the engine's effective security posture. It is
// logged once at startup.
type SecurityReport struct {
	ProductionMode     bool
	SigningAlgorithm   string
	SessionDuration    time.Duration
	Argon2             PasswordConfigReport
	UpgradeOnLogin     bool
	RateLimitingActive bool
	IPThrottleActive   bool
	AuditEnabled       bool
	MailerConfigured   bool
}

// PasswordConfigReport mirrors the Argon2id cost parameters in use.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.config.RateLimit.MaxLoginAttempts > 0 &&
		e.config.RateLimit.LoginCooldown > 0
	_, logOnly := e.mailer.(logMailer)

	return SecurityReport{
		ProductionMode:   e.config.IsProduction(),
		SigningAlgorithm: e.tokens.Algorithm(),
		SessionDuration:  e.config.Session.Duration,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		RateLimitingActive: rateLimiting,
		IPThrottleActive:   rateLimiting && e.config.RateLimit.EnableIPThrottle,
		AuditEnabled:       e.audit != nil,
		MailerConfigured:   !logOnly,
	}
}

// LogValue renders the report as a flat attribute group.
func (r SecurityReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("production", r.ProductionMode),
		slog.String("alg", r.SigningAlgorithm),
		slog.Duration("session_duration", r.SessionDuration),
		slog.Any("argon2_memory_kb", r.Argon2.Memory),
		slog.Any("argon2_time", r.Argon2.Time),
		slog.Bool("rate_limiting", r.RateLimitingActive),
		slog.Bool("ip_throttle", r.IPThrottleActive),
		slog.Bool("audit", r.AuditEnabled),
		slog.Bool("mailer", r.MailerConfigured),
	)
}
