package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/immerseseoul/promptgate/jwt"
	"github.com/immerseseoul/promptgate/session"
)

// Reasons recorded for authentication outcomes.
const (
	ReasonMissingCredentials = "missing_credentials"
	ReasonRateLimited        = "rate_limited"
	ReasonUnknownUser        = "unknown_user"
	ReasonPasswordMismatch   = "password_mismatch"
	ReasonUnverified         = "unverified"
	ReasonBackendError       = "backend_error"
)

// AuthenticateInput is the credential check request.
type AuthenticateInput struct {
	Email     string
	Password  string
	LoginType string
}

// AuthenticateResult carries the minted session and token.
type AuthenticateResult struct {
	Token     string
	SessionID string
	User      UserRecord
}

// AuthenticateErrors are the host sentinels returned by RunAuthenticate.
type AuthenticateErrors struct {
	MissingCredentials error
	InvalidCredentials error
	Unverified         error
	RateLimited        error
	UserNotFound       error
	EngineNotReady     error
}

// AuthenticateDeps captures everything the credential check touches.
type AuthenticateDeps struct {
	Now      func() time.Time
	ClientIP func(context.Context) string

	CheckRate      func(ctx context.Context, identifier, ip string) error
	RecordFailure  func(ctx context.Context, identifier, ip string) error
	ResetRate      func(ctx context.Context, identifier string) error
	// FailedAttempts reads the identifier's failure count after a miss; the
	// value is attached to the outcome as "attempts".
	FailedAttempts func(ctx context.Context, identifier string) (int, error)
	RateLimited    error

	FindUser       func(ctx context.Context, email string) (UserRecord, error)
	VerifyPassword func(password, hash string) (bool, error)
	// DummyHash is verified against when the user does not exist so unknown
	// emails cost the same as wrong passwords.
	DummyHash string

	UpgradeOnLogin     bool
	NeedsUpgrade       func(hash string) (bool, error)
	HashPassword       func(password string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error

	NewSessionID  func() (string, error)
	SessionTTL    time.Duration
	SaveSession   func(ctx context.Context, sess *session.Session, ttl time.Duration) error
	DeleteSession func(ctx context.Context, sessionID string) error
	IssueToken    func(claims jwt.Claims) (string, error)

	Report Reporter
	Warn   Warner
	Errors AuthenticateErrors
}

// RunAuthenticate checks credentials and, on success, creates a session and a
// token bound to it. It is the only path by which either login channel mints a
// session.
func RunAuthenticate(ctx context.Context, in AuthenticateInput, deps AuthenticateDeps) (*AuthenticateResult, error) {
	if deps.FindUser == nil || deps.VerifyPassword == nil || deps.NewSessionID == nil ||
		deps.SaveSession == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	report := deps.Report.orNop()
	warn := deps.Warn.orNop()

	email := strings.TrimSpace(in.Email)
	out := Outcome{LoginType: in.LoginType}
	fail := func(reason string, err error) (*AuthenticateResult, error) {
		out.Reason = reason
		out.Err = err
		report(ctx, out)
		return nil, err
	}

	if email == "" || in.Password == "" {
		return fail(ReasonMissingCredentials, deps.Errors.MissingCredentials)
	}

	ip := deps.ClientIP(ctx)
	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, email, ip); err != nil {
			if errors.Is(err, deps.RateLimited) {
				return fail(ReasonRateLimited, deps.Errors.RateLimited)
			}
			return fail(ReasonBackendError, fmt.Errorf("check login rate: %w", err))
		}
	}

	recordFailure := func() {
		if deps.RecordFailure == nil {
			return
		}
		if err := deps.RecordFailure(ctx, email, ip); err != nil {
			warn(ctx, "record failed login", err)
			return
		}
		if deps.FailedAttempts == nil {
			return
		}
		n, err := deps.FailedAttempts(ctx, email)
		if err != nil {
			warn(ctx, "read failed login count", err)
			return
		}
		out.Metadata = map[string]string{"attempts": strconv.Itoa(n)}
	}

	user, err := deps.FindUser(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			return fail(ReasonBackendError, fmt.Errorf("find user: %w", err))
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(in.Password, deps.DummyHash)
		}
		recordFailure()
		return fail(ReasonUnknownUser, deps.Errors.InvalidCredentials)
	}
	out.UserID = user.ID

	ok, err := deps.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			warn(ctx, "stored password hash rejected", err)
		}
		recordFailure()
		return fail(ReasonPasswordMismatch, deps.Errors.InvalidCredentials)
	}

	if !user.Verified {
		return fail(ReasonUnverified, deps.Errors.Unverified)
	}

	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needs, err := deps.NeedsUpgrade(user.PasswordHash); err == nil && needs {
			if upgraded, err := deps.HashPassword(in.Password); err != nil {
				warn(ctx, "password rehash failed", err)
			} else if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
				warn(ctx, "password rehash update failed", err)
			}
		}
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return fail(ReasonBackendError, fmt.Errorf("generate session id: %w", err))
	}
	out.SessionID = sessionID

	sess := &session.Session{
		SessionID: sessionID,
		UserID:    user.ID,
		LoginType: in.LoginType,
		CreatedAt: deps.Now().UTC(),
	}
	if err := deps.SaveSession(ctx, sess, deps.SessionTTL); err != nil {
		return fail(ReasonBackendError, fmt.Errorf("save session: %w", err))
	}

	token, err := deps.IssueToken(jwt.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		SessionID: sessionID,
		LoginType: in.LoginType,
	})
	if err != nil {
		if deps.DeleteSession != nil {
			if delErr := deps.DeleteSession(ctx, sessionID); delErr != nil {
				warn(ctx, "remove orphaned session", delErr)
			}
		}
		return fail(ReasonBackendError, fmt.Errorf("issue token: %w", err))
	}

	if deps.ResetRate != nil {
		if err := deps.ResetRate(ctx, email); err != nil {
			warn(ctx, "reset login rate", err)
		}
	}

	out.Success = true
	report(ctx, out)
	return &AuthenticateResult{Token: token, SessionID: sessionID, User: user}, nil
}
