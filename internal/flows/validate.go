package flows

import (
	"context"
	"errors"

	"github.com/immerseseoul/promptgate/jwt"
	"github.com/immerseseoul/promptgate/session"
)

// ValidateFailure names the gate step that rejected a request.
type ValidateFailure int

const (
	ValidateOK ValidateFailure = iota
	ValidateNoToken
	ValidateInvalidToken
	ValidateSessionExpired
	ValidateUserNotFound
	ValidateUnavailable
)

func (f ValidateFailure) String() string {
	switch f {
	case ValidateOK:
		return "ok"
	case ValidateNoToken:
		return "no_token"
	case ValidateInvalidToken:
		return "invalid_token"
	case ValidateSessionExpired:
		return "session_expired"
	case ValidateUserNotFound:
		return "user_not_found"
	default:
		return "unavailable"
	}
}

// ValidateDeps captures the auth gate's lookups.
type ValidateDeps struct {
	ParseToken      func(token string) (*jwt.Claims, error)
	GetSession      func(ctx context.Context, sessionID string) (*session.Session, error)
	SessionNotFound error
	// CheckSessionID rejects session ids that could never have been issued,
	// without a store lookup. Optional.
	CheckSessionID func(sessionID string) error
	FindUserByID    func(ctx context.Context, userID string) (UserRecord, error)
	UserNotFound    error
}

// ValidateResult is the outcome of one gate check. Err is set only for
// ValidateUnavailable.
type ValidateResult struct {
	Failure ValidateFailure
	Err     error
	Claims  *jwt.Claims
	Session *session.Session
	User    UserRecord
}

// RunValidate applies the gate checks in order: token present, token valid,
// session live, user present. The first failing step decides the result.
func RunValidate(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateNoToken}
	}
	if deps.ParseToken == nil || deps.GetSession == nil || deps.FindUserByID == nil {
		return ValidateResult{Failure: ValidateUnavailable, Err: errors.New("validator not configured")}
	}

	claims, err := deps.ParseToken(token)
	if err != nil {
		return ValidateResult{Failure: ValidateInvalidToken}
	}

	if deps.CheckSessionID != nil {
		if err := deps.CheckSessionID(claims.SessionID); err != nil {
			return ValidateResult{Failure: ValidateSessionExpired, Claims: claims}
		}
	}

	sess, err := deps.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, deps.SessionNotFound) {
			return ValidateResult{Failure: ValidateSessionExpired, Claims: claims}
		}
		return ValidateResult{Failure: ValidateUnavailable, Err: err, Claims: claims}
	}
	// A session that belongs to someone else is as good as gone.
	if sess.UserID != claims.UserID {
		return ValidateResult{Failure: ValidateSessionExpired, Claims: claims}
	}

	user, err := deps.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, deps.UserNotFound) {
			return ValidateResult{Failure: ValidateUserNotFound, Claims: claims, Session: sess}
		}
		return ValidateResult{Failure: ValidateUnavailable, Err: err, Claims: claims, Session: sess}
	}

	return ValidateResult{Failure: ValidateOK, Claims: claims, Session: sess, User: user}
}
