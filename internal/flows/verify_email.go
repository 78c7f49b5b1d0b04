package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reasons recorded for email verification outcomes.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
)

// VerifyEmailErrors are the host sentinels returned by RunVerifyEmail.
type VerifyEmailErrors struct {
	MissingToken   error
	Invalid        error
	EngineNotReady error
}

// VerifyEmailDeps captures the single store call verification needs.
type VerifyEmailDeps struct {
	// Redeem marks the owner of token verified, clears the token and returns
	// the user id in one step. It returns Errors.Invalid for unknown tokens.
	Redeem func(ctx context.Context, token string) (string, error)
	// CheckFormat rejects tokens that could never have been issued. Optional.
	CheckFormat func(token string) error

	Report Reporter
	Errors VerifyEmailErrors
}

// RunVerifyEmail redeems a one-time verification token.
func RunVerifyEmail(ctx context.Context, token string, deps VerifyEmailDeps) (string, error) {
	if deps.Redeem == nil {
		return "", deps.Errors.EngineNotReady
	}
	report := deps.Report.orNop()

	token = strings.TrimSpace(token)
	if token == "" {
		report(ctx, Outcome{Reason: ReasonMissingToken, Err: deps.Errors.MissingToken})
		return "", deps.Errors.MissingToken
	}

	if deps.CheckFormat != nil {
		if err := deps.CheckFormat(token); err != nil {
			report(ctx, Outcome{Reason: ReasonInvalidToken, Err: deps.Errors.Invalid})
			return "", deps.Errors.Invalid
		}
	}

	userID, err := deps.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, deps.Errors.Invalid) {
			report(ctx, Outcome{Reason: ReasonInvalidToken, Err: deps.Errors.Invalid})
			return "", deps.Errors.Invalid
		}
		err = fmt.Errorf("redeem verification token: %w", err)
		report(ctx, Outcome{Reason: ReasonBackendError, Err: err})
		return "", err
	}

	report(ctx, Outcome{Success: true, UserID: userID})
	return userID, nil
}
