package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/immerseseoul/promptgate"
	"github.com/immerseseoul/promptgate/cors"
	"github.com/immerseseoul/promptgate/internal"
	"github.com/immerseseoul/promptgate/internal/config"
	"github.com/immerseseoul/promptgate/internal/httpapi"
	"github.com/immerseseoul/promptgate/internal/logging"
	"github.com/immerseseoul/promptgate/internal/mailer"
	"github.com/immerseseoul/promptgate/store/memory"
	"github.com/immerseseoul/promptgate/store/postgres"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the auth HTTP API. With --dev the service runs against an
in-process Redis and an in-memory user store, and verification links are
logged instead of mailed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, dev)
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "use in-process Redis and in-memory users")
	cmd.Flags().String("addr", ":8787", "HTTP listen address")
	cmd.Flags().String("environment", "development", "deployment environment")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("origins", "allowed-domains.yaml", "CORS origins file")

	return cmd
}

// backend holds the stores the engine runs on and how to release them.
type backend struct {
	redis   redis.UniversalClient
	users   promptgate.UserStore
	mailer  promptgate.Mailer
	cleanup func()
}

func runServe(ctx context.Context, cfg *config.Config, dev bool) error {
	if dev && cfg.JWT.Secret == "" {
		secret, err := internal.NewSessionID()
		if err != nil {
			return oops.Code("DEV_SECRET_FAILED").Wrap(err)
		}
		cfg.JWT.Secret = secret
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup("promptgate", version, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	policy, err := config.LoadPolicy(cfg.CORS.OriginsFile)
	if err != nil {
		return err
	}
	resolver, err := cors.NewResolver(policy, cfg.FallbackMode())
	if err != nil {
		return oops.Code("CORS_POLICY_INVALID").Wrap(err)
	}

	var be *backend
	if dev {
		be, err = devBackend(logger)
	} else {
		be, err = liveBackend(ctx, cfg, logger)
	}
	if err != nil {
		return err
	}
	defer be.cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	builder := promptgate.New().
		WithConfig(cfg.Engine()).
		WithRedis(be.redis).
		WithUserStore(be.users).
		WithMailer(be.mailer).
		WithMetrics(reg).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(auditSink(cfg, logger, os.Stderr))
	}
	engine, err := builder.Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewHandler(httpapi.Options{
			Engine:      engine,
			Resolver:    resolver,
			Environment: cfg.Environment,
			Logger:      logger,
			Gatherer:    reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting promptgate",
		"addr", cfg.HTTP.Addr,
		"environment", cfg.Environment,
		"dev", dev,
		"frontend", engine.FrontendBase(),
		"security", engine.SecurityReport(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	if dropped := engine.AuditDropped(); dropped > 0 {
		logger.Warn("audit events dropped", "count", dropped)
	}
	return nil
}

// auditSink picks the audit destination named by AUDIT_FORMAT.
func auditSink(cfg *config.Config, logger *slog.Logger, w io.Writer) promptgate.AuditSink {
	if cfg.Audit.Format == "json" {
		return promptgate.NewJSONWriterSink(w)
	}
	return promptgate.NewSlogSink(logger.With("component", "audit"))
}

func devBackend(logger *slog.Logger) (*backend, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, oops.Code("DEV_REDIS_FAILED").Wrap(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger.Warn("development mode: sessions and users are in memory", "redis", mr.Addr())
	return &backend{
		redis:  rdb,
		users:  memory.New(),
		mailer: promptgate.NewLogMailer(logger),
		cleanup: func() {
			_ = rdb.Close()
			mr.Close()
		},
	}, nil
}

func liveBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL is required")
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("key", "REDIS_URL").Wrap(err)
	}
	rdb := redis.NewClient(opts)

	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	var m promptgate.Mailer
	if cfg.Mail.ResendAPIKey != "" {
		m = mailer.NewResend(mailer.Config{
			APIKey: cfg.Mail.ResendAPIKey,
			From:   cfg.Mail.From,
		}, nil)
	} else {
		logger.Warn("RESEND_API_KEY not set; verification links will only be logged")
		m = promptgate.NewLogMailer(logger)
	}

	return &backend{
		redis:  rdb,
		users:  postgres.NewUserStore(pool),
		mailer: m,
		cleanup: func() {
			pool.Close()
			_ = rdb.Close()
		},
	}, nil
}
