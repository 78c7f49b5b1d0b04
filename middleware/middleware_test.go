package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/cors"
)

type fakeValidator map[string]error

func (f fakeValidator) Validate(_ context.Context, token string) (promptgate.Identity, error) {
	if token == "" {
		return promptgate.Identity{}, promptgate.ErrNoToken
	}
	if err, ok := f[token]; ok {
		return promptgate.Identity{}, err
	}
	return promptgate.Identity{ID: "u1", Email: "ana@example.com", Username: "ana", Plan: "free"}, nil
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestRequireAuthRejections(t *testing.T) {
	v := fakeValidator{
		"bad":     promptgate.ErrInvalidToken,
		"expired": promptgate.ErrSessionExpired,
		"gone":    promptgate.ErrUserNotFound,
		"broken":  fmt.Errorf("%w: redis down", promptgate.ErrAuthUnavailable),
	}
	h := RequireAuth(v)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		header string
		want   string
	}{
		{"", "No token provided"},
		{"Basic abc", "No token provided"},
		{"Bearer ", "No token provided"},
		{"Bearer bad", "Invalid token"},
		{"Bearer expired", "Session expired"},
		{"Bearer gone", "User not found"},
		{"Bearer broken", "Authentication failed"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", tt.header, rec.Code)
		}
		if got := errorBody(t, rec); got != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.header, tt.want, got)
		}
	}
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	var got promptgate.Identity
	h := RequireAuth(fakeValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		got = id
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got.ID != "u1" {
		t.Fatalf("unexpected result code=%d id=%+v", rec.Code, got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	resolver, err := cors.NewResolver(cors.Policy{
		"development": {"http://localhost:5173"},
	}, cors.FallbackFirstOrigin)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	called := false
	h := CORS(resolver, "development")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/legacy-login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Fatal("preflight must not reach the handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Fatalf("unexpected max-age %q", rec.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !called {
		t.Fatal("non-preflight request should reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials header on matched origin")
	}
}

func TestRecoverWritesJSON500(t *testing.T) {
	h := Recover(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Internal Server Error" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestClientIPStoresHost(t *testing.T) {
	var ctx context.Context
	h := ClientIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { ctx = r.Context() }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got := promptgate.ClientIPFromContext(ctx); got != "203.0.113.7" {
		t.Fatalf("expected 203.0.113.7, got %q", got)
	}
}
