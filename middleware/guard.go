package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/immerseseoul/promptgate"
)

// Validator is the slice of Engine the auth gate needs.
type Validator interface {
	Validate(ctx context.Context, token string) (promptgate.Identity, error)
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id promptgate.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (promptgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(promptgate.Identity)
	return id, ok
}

// RequireAuth rejects requests without a valid bearer token and session.
func RequireAuth(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				writeError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}

			token, _ := BearerToken(r)
			id, err := v.Validate(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, promptgate.PublicMessage(err, "Authentication failed"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
