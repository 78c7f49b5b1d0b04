package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/internal/logging"
)

// handleLegacyLogin serves the HTML form login. Outcomes are redirects back
// to the frontend except for missing fields (400) and internal faults (500).
func (s *server) handleLegacyLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	_ = r.ParseForm()
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	if email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Missing credentials",
		})
		return
	}

	base := s.engine.FrontendBase()
	res, err := s.engine.LegacyLogin(r.Context(), promptgate.Credentials{Email: email, Password: password})
	if err != nil {
		if promptgate.KindOf(err) == promptgate.KindInternal {
			logging.LogError(r.Context(), s.logger, "legacy login failed", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "Legacy login failed",
			})
			return
		}
		http.Redirect(w, r, base+"/legacy-login?error="+queryEscape(promptgate.PublicMessage(err, "Legacy login failed")), http.StatusFound)
		return
	}

	user, err := json.Marshal(res.User)
	if err != nil {
		logging.LogError(r.Context(), s.logger, "legacy login failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Legacy login failed",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    res.SessionID,
		MaxAge:   int(s.engine.SessionDuration().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, base+"/legacy-login-success?token="+queryEscape(res.Token)+"&user="+queryEscape(string(user)), http.StatusFound)
}
