package promptgate

import (
	"context"
	"strings"
	"time"
)

// Plan tiers stored on a user.
const (
	PlanFree       = "free"
	PlanEnterprise = "enterprise"
)

// LoginType tags which channel created a session.
type LoginType string

const (
	// LoginPrimary is the JSON login endpoint. It is stored as an empty tag.
	LoginPrimary LoginType = ""
	// LoginLegacy is the HTML form endpoint.
	LoginLegacy LoginType = "legacy"
)

// Channel returns a non-empty label for metrics and audit records.
func (t LoginType) Channel() string {
	if t == LoginLegacy {
		return "legacy"
	}
	return "primary"
}

// UserRecord is a user as the engine sees it.
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Verified     bool
	Active       bool
	Plan         string
}

// NewUser is written by UserStore.Create.
type NewUser struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string
	VerificationToken string
}

// UserStore is the engine's view of the relational user store.
//
// FindByEmail and FindByID return ErrUserNotFound for absent or inactive
// users. Create returns ErrUserExists when the email or username is taken and
// also creates the user's default rate-limit row. RedeemVerificationToken
// marks the owner verified and clears the token in one step; an unknown or
// already-redeemed token yields ErrVerificationInvalid.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	Exists(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, user NewUser) error
	RedeemVerificationToken(ctx context.Context, token string) (string, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Mailer delivers the verification link to a newly registered address.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// Identity is what the auth gate attaches to an authenticated request.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Plan     string `json:"plan"`
}

// NormalizePlan lower-cases a stored plan and defaults it to free.
func NormalizePlan(plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if plan == "" {
		return PlanFree
	}
	return plan
}

// UserSummary is the minimal projection returned after login.
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Credentials are the inputs shared by both login channels.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult is returned by a successful authentication.
type LoginResult struct {
	Token     string
	SessionID string
	User      UserSummary
	ExpiresIn time.Duration
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// VerifyEmailResult is returned after a verification token is redeemed.
type VerifyEmailResult struct {
	UserID string
	// Redirect is the frontend login page the client should continue to.
	Redirect string
}
