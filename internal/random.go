package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// TokenSize is the number of random bytes behind session ids and
// verification tokens.
const TokenSize = 32

// ErrTokenSize is returned by ParseToken for values of the wrong length.
var ErrTokenSize = errors.New("invalid token size")

// Token is an opaque random identifier.
type Token [TokenSize]byte

// NewToken reads TokenSize bytes from crypto/rand.
func NewToken() (Token, error) {
	var t Token
	_, err := rand.Read(t[:])
	return t, err
}

func (t Token) String() string {
	// base64url, no padding
	return base64.RawURLEncoding.EncodeToString(t[:])
}

// ParseToken decodes the String form of a Token.
func ParseToken(s string) (Token, error) {
	var t Token
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return t, err
	}
	if len(raw) != len(t) {
		return t, ErrTokenSize
	}
	copy(t[:], raw)
	return t, nil
}

// CheckFormat reports whether s is the String form of some Token.
func CheckFormat(s string) error {
	_, err := ParseToken(s)
	return err
}

// NewSessionID returns a fresh encoded session id.
func NewSessionID() (string, error) {
	t, err := NewToken()
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// NewVerificationToken returns a fresh encoded email verification token.
func NewVerificationToken() (string, error) {
	return NewSessionID()
}
