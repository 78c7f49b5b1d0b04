package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reasons recorded for registration outcomes.
const (
	ReasonMissingFields = "missing_fields"
	ReasonConflict      = "conflict"
	ReasonMailDeferred  = "mail_deferred"
)

// RegisterInput is the signup request.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// NewUserRecord is handed to CreateUser.
type NewUserRecord struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string
	VerificationToken string
}

// RegisterErrors are the host sentinels returned by RunRegister.
type RegisterErrors struct {
	MissingFields  error
	UserExists     error
	EngineNotReady error
}

// RegisterDeps captures everything signup touches.
type RegisterDeps struct {
	Exists               func(ctx context.Context, email, username string) (bool, error)
	HashPassword         func(password string) (string, error)
	NewUserID            func() string
	NewVerificationToken func() (string, error)
	CreateUser           func(ctx context.Context, user NewUserRecord) error
	VerificationLink     func(token string) string
	SendVerification     func(ctx context.Context, to, link string) error

	Report Reporter
	Warn   Warner
	Errors RegisterErrors
}

// RunRegister creates an unverified account and sends its verification link.
// A mail failure is reported but does not fail the registration; the account
// stays unverified until the token is redeemed.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (string, error) {
	if deps.Exists == nil || deps.HashPassword == nil || deps.NewUserID == nil ||
		deps.NewVerificationToken == nil || deps.CreateUser == nil {
		return "", deps.Errors.EngineNotReady
	}
	report := deps.Report.orNop()
	warn := deps.Warn.orNop()

	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	var out Outcome
	fail := func(reason string, err error) (string, error) {
		out.Reason = reason
		out.Err = err
		report(ctx, out)
		return "", err
	}

	if email == "" || username == "" || in.Password == "" {
		return fail(ReasonMissingFields, deps.Errors.MissingFields)
	}

	exists, err := deps.Exists(ctx, email, username)
	if err != nil {
		return fail(ReasonBackendError, fmt.Errorf("check existing user: %w", err))
	}
	if exists {
		return fail(ReasonConflict, deps.Errors.UserExists)
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return fail(ReasonBackendError, fmt.Errorf("hash password: %w", err))
	}
	token, err := deps.NewVerificationToken()
	if err != nil {
		return fail(ReasonBackendError, fmt.Errorf("generate verification token: %w", err))
	}

	user := NewUserRecord{
		ID:                deps.NewUserID(),
		Email:             email,
		Username:          username,
		PasswordHash:      hash,
		VerificationToken: token,
	}
	out.UserID = user.ID
	if err := deps.CreateUser(ctx, user); err != nil {
		// A concurrent signup can slip past Exists; the store's unique
		// constraint reports it as UserExists.
		if errors.Is(err, deps.Errors.UserExists) {
			return fail(ReasonConflict, deps.Errors.UserExists)
		}
		return fail(ReasonBackendError, fmt.Errorf("create user: %w", err))
	}

	out.Success = true
	if deps.SendVerification != nil && deps.VerificationLink != nil {
		if err := deps.SendVerification(ctx, email, deps.VerificationLink(token)); err != nil {
			warn(ctx, "verification email not sent", err)
			out.Reason = ReasonMailDeferred
			out.Err = err
		}
	}
	report(ctx, out)
	return user.ID, nil
}
