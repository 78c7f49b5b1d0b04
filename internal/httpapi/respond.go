package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/immerseseoul/promptgate"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(kind promptgate.Kind) int {
	switch kind {
	case promptgate.KindValidation:
		return http.StatusBadRequest
	case promptgate.KindUnauthenticated:
		return http.StatusUnauthorized
	case promptgate.KindForbidden:
		return http.StatusForbidden
	case promptgate.KindConflict:
		return http.StatusConflict
	case promptgate.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// queryEscape escapes s for use in a query value, encoding spaces as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
