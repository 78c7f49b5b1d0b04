package flows

import (
	"context"
	"fmt"

	"github.com/immerseseoul/promptgate/jwt"
)

// LogoutDeps captures logout's dependencies.
type LogoutDeps struct {
	ParseToken    func(token string) (*jwt.Claims, error)
	DeleteSession func(ctx context.Context, sessionID string) error
	Report        Reporter
}

// RunLogout deletes the session named by token. Missing, malformed and
// expired tokens are a successful no-op so logout never leaks token state.
// Only a session store failure is returned.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) error {
	report := deps.Report.orNop()
	if token == "" || deps.ParseToken == nil || deps.DeleteSession == nil {
		report(ctx, Outcome{Success: true, Reason: ReasonMissingToken})
		return nil
	}

	claims, err := deps.ParseToken(token)
	if err != nil {
		report(ctx, Outcome{Success: true, Reason: ReasonInvalidToken})
		return nil
	}

	out := Outcome{UserID: claims.UserID, SessionID: claims.SessionID, LoginType: claims.LoginType}
	if err := deps.DeleteSession(ctx, claims.SessionID); err != nil {
		out.Reason = ReasonBackendError
		out.Err = fmt.Errorf("delete session: %w", err)
		report(ctx, out)
		return out.Err
	}
	out.Success = true
	report(ctx, out)
	return nil
}
