package middleware

import (
	"net/http"
	"strconv"

	"github.com/immerseseoul/promptgate/cors"
)

// PreflightMaxAge is sent on OPTIONS answers.
const PreflightMaxAge = 86400

// CORS applies the resolver's headers for env to every response and answers
// OPTIONS preflights with 204 without calling next.
func CORS(resolver *cors.Resolver, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver != nil {
				resolver.Resolve(r.Header.Get("Origin"), env).Apply(w.Header())
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(PreflightMaxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
