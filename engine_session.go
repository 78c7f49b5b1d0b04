package promptgate

import (
	"context"
	"fmt"
	"time"

	"github.com/immerseseoul/promptgate/internal"
	"github.com/immerseseoul/promptgate/internal/flows"
	"github.com/immerseseoul/promptgate/session"
)

// Validate runs the auth gate for token and returns the caller's identity.
//
// Errors, in check order: ErrNoToken, ErrInvalidToken, ErrSessionExpired,
// ErrUserNotFound. A store failure yields an error wrapping ErrAuthUnavailable.
// Validate never refreshes or mutates the session.
func (e *Engine) Validate(ctx context.Context, token string) (Identity, error) {
	if e == nil || e.tokens == nil || e.sessions == nil || e.users == nil {
		return Identity{}, ErrEngineNotReady
	}

	res := flows.RunValidate(ctx, token, flows.ValidateDeps{
		ParseToken:      e.tokens.Parse,
		GetSession:      e.sessions.Get,
		SessionNotFound: session.ErrNotFound,
		CheckSessionID:  internal.CheckFormat,
		FindUserByID:    e.findUserByID,
		UserNotFound:    ErrUserNotFound,
	})

	switch res.Failure {
	case flows.ValidateOK:
		return Identity{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Username: res.User.Username,
			Plan:     NormalizePlan(res.User.Plan),
		}, nil
	case flows.ValidateNoToken:
		e.metrics.gateRejected(res.Failure.String())
		return Identity{}, ErrNoToken
	case flows.ValidateInvalidToken:
		e.metrics.gateRejected(res.Failure.String())
		return Identity{}, ErrInvalidToken
	case flows.ValidateSessionExpired:
		e.metrics.gateRejected(res.Failure.String())
		return Identity{}, ErrSessionExpired
	case flows.ValidateUserNotFound:
		e.metrics.gateRejected(res.Failure.String())
		return Identity{}, ErrUserNotFound
	default:
		e.metrics.gateRejected(res.Failure.String())
		e.logInternal(ctx, "auth gate lookup failed", res.Err)
		return Identity{}, fmt.Errorf("%w: %w", ErrAuthUnavailable, res.Err)
	}
}

// Logout deletes the session named by token. Invalid or expired tokens are a
// no-op. Store failures are logged and never reported to the caller.
func (e *Engine) Logout(ctx context.Context, token string) {
	if e == nil || e.tokens == nil || e.sessions == nil {
		return
	}
	err := flows.RunLogout(ctx, token, flows.LogoutDeps{
		ParseToken:    e.tokens.Parse,
		DeleteSession: e.sessions.Delete,
		Report: func(ctx context.Context, out flows.Outcome) {
			if out.SessionID == "" {
				return
			}
			channel := LoginType(out.LoginType).Channel()
			if out.Success {
				e.metrics.logout()
			}
			e.emitAudit(ctx, auditEventLogoutSession, out, channel)
		},
	})
	if err != nil {
		e.logInternal(ctx, "logout failed", err)
	}
}

// SessionTTL returns the remaining lifetime of a session.
func (e *Engine) SessionTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.TTL(ctx, sessionID)
}
