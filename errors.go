package promptgate

import (
	"errors"

	"github.com/immerseseoul/promptgate/password"
)

var (
	// ErrMissingFields is returned by Register when email, password or username is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrMissingCredentials is returned by Authenticate when email or password is empty.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrUserExists is returned when the email or username is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailUnverified is returned for a correct password on an unverified account.
	ErrEmailUnverified = errors.New("email not verified")
	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrMissingToken is returned by VerifyEmail for an empty token.
	ErrMissingToken = errors.New("missing verification token")
	// ErrVerificationInvalid is returned for unknown or already-redeemed verification tokens.
	ErrVerificationInvalid = errors.New("verification token invalid")

	// ErrNoToken is the gate's answer to a request without a bearer token.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken is the gate's answer to a token that fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired is the gate's answer when the token's session is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound is returned for absent or inactive users.
	ErrUserNotFound = errors.New("user not found")
	// ErrAuthUnavailable is returned by the gate when a backing store fails.
	ErrAuthUnavailable = errors.New("authentication backend unavailable")

	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindRateLimited
)

type classification struct {
	kind    Kind
	message string
}

// Public messages are part of the HTTP contract; clients match on them.
var classified = []struct {
	err error
	classification
}{
	{ErrMissingFields, classification{KindValidation, "Missing required fields"}},
	{ErrMissingCredentials, classification{KindValidation, "Missing credentials"}},
	{ErrMissingToken, classification{KindValidation, "Missing token"}},
	{password.ErrPasswordTooLong, classification{KindValidation, "Password too long"}},
	{ErrVerificationInvalid, classification{KindValidation, "Invalid or expired token"}},
	{ErrUserExists, classification{KindConflict, "User already exists"}},
	{ErrInvalidCredentials, classification{KindUnauthenticated, "Invalid credentials"}},
	{ErrEmailUnverified, classification{KindForbidden, "Please verify your email before logging in."}},
	{ErrLoginRateLimited, classification{KindRateLimited, "Too many login attempts. Please try again later."}},
	{ErrNoToken, classification{KindUnauthenticated, "No token provided"}},
	{ErrInvalidToken, classification{KindUnauthenticated, "Invalid token"}},
	{ErrSessionExpired, classification{KindUnauthenticated, "Session expired"}},
	{ErrUserNotFound, classification{KindUnauthenticated, "User not found"}},
	{ErrAuthUnavailable, classification{KindUnauthenticated, "Authentication failed"}},
}

func classify(err error) (classification, bool) {
	if err == nil {
		return classification{}, false
	}
	for _, c := range classified {
		if errors.Is(err, c.err) {
			return c.classification, true
		}
	}
	return classification{}, false
}

// KindOf returns the transport class of err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	c, ok := classify(err)
	if !ok {
		return KindInternal
	}
	return c.kind
}

// PublicMessage returns the client-facing message for err, or fallback when
// err is not one of the engine's classified errors.
func PublicMessage(err error, fallback string) string {
	c, ok := classify(err)
	if !ok {
		return fallback
	}
	return c.message
}
