package promptgate

import (
	"context"
	"time"

	"github.com/immerseseoul/promptgate/internal/audit"
	"github.com/immerseseoul/promptgate/internal/flows"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventLoginUnverified    = "login_unverified"
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterFailure    = "register_failure"
	auditEventRegisterDuplicate  = "register_duplicate"
	auditEventVerifyEmailSuccess = "email_verification_success"
	auditEventVerifyEmailFailure = "email_verification_failure"
	auditEventLogoutSession      = "logout_session"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, out flows.Outcome, channel string) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now().UTC(),
		Type:      eventType,
		UserID:    out.UserID,
		SessionID: out.SessionID,
		Channel:   channel,
		IP:        ClientIPFromContext(ctx),
		Success:   out.Success,
		Reason:    out.Reason,
		Metadata:  out.Metadata,
	})
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
