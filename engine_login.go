package promptgate

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/immerseseoul/promptgate/internal"
	"github.com/immerseseoul/promptgate/internal/flows"
	"github.com/immerseseoul/promptgate/internal/rate"
)

// Login authenticates through the primary JSON channel.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return e.Authenticate(ctx, Credentials{Email: email, Password: password}, LoginPrimary)
}

// LegacyLogin authenticates through the form channel.
func (e *Engine) LegacyLogin(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return e.Authenticate(ctx, creds, LoginLegacy)
}

// Authenticate is the credential check shared by every login channel. On
// success it creates a session with the configured TTL and returns a token
// bound to it, tagged with loginType.
//
// Errors: ErrMissingCredentials, ErrLoginRateLimited, ErrInvalidCredentials,
// ErrEmailUnverified, ErrEngineNotReady, or an internal error.
func (e *Engine) Authenticate(ctx context.Context, creds Credentials, loginType LoginType) (*LoginResult, error) {
	if e == nil || e.users == nil || e.sessions == nil || e.tokens == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	channel := loginType.Channel()

	res, err := flows.RunAuthenticate(ctx, flows.AuthenticateInput{
		Email:     creds.Email,
		Password:  creds.Password,
		LoginType: string(loginType),
	}, flows.AuthenticateDeps{
		Now:                e.now,
		ClientIP:           ClientIPFromContext,
		CheckRate:          e.limiter.CheckLogin,
		RecordFailure:      e.limiter.RecordFailure,
		ResetRate:          e.limiter.Reset,
		FailedAttempts:     e.limiter.Attempts,
		RateLimited:        rate.ErrRateLimited,
		FindUser:           e.findUserByEmail,
		VerifyPassword:     e.hasher.Verify,
		DummyHash:          e.dummyHash,
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		NeedsUpgrade:       e.hasher.NeedsUpgrade,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,
		NewSessionID:       internal.NewSessionID,
		SessionTTL:         e.config.Session.Duration,
		SaveSession:        e.sessions.Save,
		DeleteSession:      e.sessions.Delete,
		IssueToken:         e.tokens.Issue,
		Report: func(ctx context.Context, out flows.Outcome) {
			e.reportLogin(ctx, out, channel)
		},
		Warn: e.warn,
		Errors: flows.AuthenticateErrors{
			MissingCredentials: ErrMissingCredentials,
			InvalidCredentials: ErrInvalidCredentials,
			Unverified:         ErrEmailUnverified,
			RateLimited:        ErrLoginRateLimited,
			UserNotFound:       ErrUserNotFound,
			EngineNotReady:     ErrEngineNotReady,
		},
	})
	if err != nil {
		if KindOf(err) == KindInternal && !errors.Is(err, ErrEngineNotReady) {
			return nil, oops.Code("login_failed").With("channel", channel).Wrap(err)
		}
		return nil, err
	}

	return &LoginResult{
		Token:     res.Token,
		SessionID: res.SessionID,
		User: UserSummary{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Username: res.User.Username,
		},
		ExpiresIn: e.config.Session.Duration,
	}, nil
}

func (e *Engine) reportLogin(ctx context.Context, out flows.Outcome, channel string) {
	if out.Success {
		e.metrics.login(channel, outcomeSuccess)
		e.metrics.sessionCreated(channel)
		e.emitAudit(ctx, auditEventLoginSuccess, out, channel)
		return
	}

	switch out.Reason {
	case flows.ReasonRateLimited:
		e.metrics.login(channel, outcomeRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, out, channel)
	case flows.ReasonUnverified:
		e.metrics.login(channel, outcomeUnverified)
		e.emitAudit(ctx, auditEventLoginUnverified, out, channel)
	case flows.ReasonBackendError:
		e.metrics.login(channel, outcomeError)
		e.emitAudit(ctx, auditEventLoginFailure, out, channel)
	default:
		e.metrics.login(channel, outcomeFailure)
		e.emitAudit(ctx, auditEventLoginFailure, out, channel)
	}
}
