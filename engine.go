package promptgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/immerseseoul/promptgate/internal/audit"
	"github.com/immerseseoul/promptgate/internal/flows"
	"github.com/immerseseoul/promptgate/internal/logging"
	"github.com/immerseseoul/promptgate/internal/rate"
	"github.com/immerseseoul/promptgate/jwt"
	"github.com/immerseseoul/promptgate/password"
	"github.com/immerseseoul/promptgate/session"
)

// Engine runs the account and session operations. Build one with New; after
// Build it is immutable and safe for concurrent use.
type Engine struct {
	config    Config
	sessions  *session.Store
	limiter   *rate.Limiter
	users     UserStore
	mailer    Mailer
	audit     *audit.Dispatcher
	metrics   *Metrics
	hasher    *password.Hasher
	tokens    *jwt.Manager
	logger    *slog.Logger
	clock     func() time.Time
	newUserID func() string
	dummyHash string
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Ping checks the session store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	_, err := e.sessions.Ping(ctx)
	return err
}

// FrontendBase returns the redirect base for the configured environment.
func (e *Engine) FrontendBase() string {
	if e == nil {
		return ""
	}
	return e.config.FrontendBase()
}

// SessionDuration is both the session TTL and the token lifetime.
func (e *Engine) SessionDuration() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Session.Duration
}

// Environment returns the configured deployment environment.
func (e *Engine) Environment() string {
	if e == nil {
		return ""
	}
	return e.config.Environment
}

func (e *Engine) warn(ctx context.Context, msg string, err error) {
	e.logger.WarnContext(ctx, msg, "error", err)
}

func (e *Engine) logInternal(ctx context.Context, msg string, err error, args ...any) {
	logging.LogError(ctx, e.logger, msg, err, args...)
}

func toFlowUser(u *UserRecord) flows.UserRecord {
	if u == nil {
		return flows.UserRecord{}
	}
	return flows.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Plan:         u.Plan,
		Verified:     u.Verified,
		Active:       u.Active,
	}
}

func (e *Engine) findUserByEmail(ctx context.Context, email string) (flows.UserRecord, error) {
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return toFlowUser(u), nil
}

func (e *Engine) findUserByID(ctx context.Context, id string) (flows.UserRecord, error) {
	u, err := e.users.FindByID(ctx, id)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return toFlowUser(u), nil
}
