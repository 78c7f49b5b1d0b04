package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned by Parse for every rejected token. The wrapped
// cause is for logs only.
var ErrTokenInvalid = errors.New("token invalid")

// LoginTypeLegacy tags tokens minted by the form-based login channel.
const LoginTypeLegacy = "legacy"

// Config configures a Manager.
type Config struct {
	// Secret is the HMAC-SHA256 key shared by issuer and verifier.
	Secret []byte
	// TTL is the token lifetime; exp is always iat+TTL.
	TTL time.Duration
	// Issuer is written to and enforced on the iss claim when set.
	Issuer string
	// Now overrides the clock. Tests use it to step across the expiry boundary.
	Now func() time.Time
}

// Claims is the token payload.
type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	SessionID string `json:"sessionId"`
	LoginType string `json:"loginType,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens. It holds no mutable state.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TTL < time.Second {
		return nil, errors.New("jwt ttl must be at least one second")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &Manager{secret: secret, ttl: cfg.TTL, issuer: cfg.Issuer, now: now}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Algorithm names the signing method, always HS256.
func (m *Manager) Algorithm() string { return jwt.SigningMethodHS256.Alg() }

// Issue stamps iat and exp onto claims and returns the signed compact token.
// Any registered claims already set on the argument are replaced.
func (m *Manager) Issue(claims Claims) (string, error) {
	issuedAt := m.now().Truncate(time.Second)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token's structure, signature and expiry. It fails closed:
// anything other than three strictly base64url-encoded segments carrying a
// valid HS256 signature and an unexpired exp is rejected with ErrTokenInvalid.
func (m *Manager) Parse(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.SessionID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject claims", ErrTokenInvalid)
	}
	return claims, nil
}
