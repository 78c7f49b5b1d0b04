package promptgate

import (
	"context"
	"errors"
	"net/url"

	"github.com/samber/oops"

	"github.com/immerseseoul/promptgate/internal"
	"github.com/immerseseoul/promptgate/internal/flows"
)

// Register creates an unverified account and mails its verification link.
// It never returns a token; the user must verify before logging in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) error {
	if e == nil || e.users == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	deps := flows.RegisterDeps{
		Exists:               e.users.Exists,
		HashPassword:         e.hasher.Hash,
		NewUserID:            e.newUserID,
		NewVerificationToken: internal.NewVerificationToken,
		CreateUser: func(ctx context.Context, u flows.NewUserRecord) error {
			return e.users.Create(ctx, NewUser{
				ID:                u.ID,
				Email:             u.Email,
				Username:          u.Username,
				PasswordHash:      u.PasswordHash,
				VerificationToken: u.VerificationToken,
			})
		},
		VerificationLink: e.verificationLink,
		Report:           e.reportRegister,
		Warn:             e.warn,
		Errors: flows.RegisterErrors{
			MissingFields:  ErrMissingFields,
			UserExists:     ErrUserExists,
			EngineNotReady: ErrEngineNotReady,
		},
	}
	if e.mailer != nil {
		deps.SendVerification = e.mailer.SendVerification
	}

	_, err := flows.RunRegister(ctx, flows.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}, deps)
	if err != nil && KindOf(err) == KindInternal && !errors.Is(err, ErrEngineNotReady) {
		return oops.Code("register_failed").Wrap(err)
	}
	return err
}

func (e *Engine) verificationLink(token string) string {
	return e.config.FrontendBase() + "/verify?token=" + url.QueryEscape(token)
}

func (e *Engine) reportRegister(ctx context.Context, out flows.Outcome) {
	switch {
	case out.Success && out.Reason == flows.ReasonMailDeferred:
		e.metrics.registration(outcomeMailDeferred)
		e.emitAudit(ctx, auditEventRegisterSuccess, out, "")
	case out.Success:
		e.metrics.registration(outcomeSuccess)
		e.emitAudit(ctx, auditEventRegisterSuccess, out, "")
	case out.Reason == flows.ReasonConflict:
		e.metrics.registration(outcomeConflict)
		e.emitAudit(ctx, auditEventRegisterDuplicate, out, "")
	case out.Reason == flows.ReasonMissingFields:
		e.metrics.registration(outcomeInvalid)
	default:
		e.metrics.registration(outcomeError)
		e.emitAudit(ctx, auditEventRegisterFailure, out, "")
	}
}

// VerifyEmail redeems a verification token. The redirect in the result
// points at the frontend login page.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (*VerifyEmailResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	userID, err := flows.RunVerifyEmail(ctx, token, flows.VerifyEmailDeps{
		Redeem:      e.users.RedeemVerificationToken,
		CheckFormat: internal.CheckFormat,
		Report:      e.reportVerification,
		Errors: flows.VerifyEmailErrors{
			MissingToken:   ErrMissingToken,
			Invalid:        ErrVerificationInvalid,
			EngineNotReady: ErrEngineNotReady,
		},
	})
	if err != nil {
		if KindOf(err) == KindInternal && !errors.Is(err, ErrEngineNotReady) {
			return nil, oops.Code("verify_email_failed").Wrap(err)
		}
		return nil, err
	}
	return &VerifyEmailResult{UserID: userID, Redirect: e.config.FrontendBase() + "/login"}, nil
}

func (e *Engine) reportVerification(ctx context.Context, out flows.Outcome) {
	switch {
	case out.Success:
		e.metrics.verification(outcomeSuccess)
		e.emitAudit(ctx, auditEventVerifyEmailSuccess, out, "")
	case out.Reason == flows.ReasonBackendError:
		e.metrics.verification(outcomeError)
		e.emitAudit(ctx, auditEventVerifyEmailFailure, out, "")
	default:
		e.metrics.verification(outcomeInvalid)
		e.emitAudit(ctx, auditEventVerifyEmailFailure, out, "")
	}
}
