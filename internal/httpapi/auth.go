package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/internal/logging"
	"github.com/immerseseoul/promptgate/middleware"
)

const maxBodyBytes = 1 << 16

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool                   `json:"success"`
	Token   string                 `json:"token"`
	User    promptgate.UserSummary `json:"user"`
}

// fail writes err's public message with its mapped status. Unclassified
// errors are logged and answered with fallback.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := promptgate.KindOf(err)
	if kind == promptgate.KindInternal {
		logging.LogError(r.Context(), s.logger, fallback, err, "path", r.URL.Path)
	}
	writeError(w, statusFor(kind), promptgate.PublicMessage(err, fallback))
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req promptgate.RegisterRequest
	// A body that fails to decode counts as empty, even when a prefix of it
	// already filled some fields.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		req = promptgate.RegisterRequest{}
	}

	if err := s.engine.Register(r.Context(), req); err != nil {
		s.fail(w, r, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification email sent. Please check your inbox.",
	})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		req = loginRequest{}
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: res.Token, User: res.User})
}

func (s *server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.fail(w, r, err, "Email verification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Email verified. You can now log in.",
		"redirect": res.Redirect,
	})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.BearerToken(r); ok {
		s.engine.Logout(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          id,
	})
}
