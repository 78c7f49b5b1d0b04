// Package httpapi is the HTTP surface of promptgate: the JSON auth endpoints,
// the legacy form login, health and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/cors"
	"github.com/immerseseoul/promptgate/middleware"
)

// Engine is the set of engine operations the handlers call.
type Engine interface {
	Register(ctx context.Context, req promptgate.RegisterRequest) error
	Login(ctx context.Context, email, password string) (*promptgate.LoginResult, error)
	LegacyLogin(ctx context.Context, creds promptgate.Credentials) (*promptgate.LoginResult, error)
	Logout(ctx context.Context, token string)
	VerifyEmail(ctx context.Context, token string) (*promptgate.VerifyEmailResult, error)
	Validate(ctx context.Context, token string) (promptgate.Identity, error)
	Ping(ctx context.Context) error
	FrontendBase() string
	SessionDuration() time.Duration
}

// Options configures the handler tree.
type Options struct {
	Engine      Engine
	Resolver    *cors.Resolver
	Environment string
	Logger      *slog.Logger
	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
}

type server struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler builds the router and wraps it in recovery, client IP capture
// and CORS.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{engine: opts.Engine, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-email", s.handleVerifyEmail).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.Handle("/auth/verify", middleware.RequireAuth(opts.Engine)(http.HandlerFunc(s.handleVerify))).Methods(http.MethodGet)
	r.HandleFunc("/legacy-login", s.handleLegacyLogin).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	var h http.Handler = r
	h = middleware.CORS(opts.Resolver, opts.Environment)(h)
	h = middleware.ClientIP(h)
	h = middleware.Recover(logger)(h)
	return h
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.engine.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("redis unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
