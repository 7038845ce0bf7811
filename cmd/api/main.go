// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ophrus/immo-api/internal/admin"
	"github.com/ophrus/immo-api/internal/auth"
	"github.com/ophrus/immo-api/internal/config"
	"github.com/ophrus/immo-api/internal/core"
	"github.com/ophrus/immo-api/internal/email"
	"github.com/ophrus/immo-api/internal/health"
	"github.com/ophrus/immo-api/internal/message"
	"github.com/ophrus/immo-api/internal/middleware"
	"github.com/ophrus/immo-api/internal/property"
	"github.com/ophrus/immo-api/internal/reservation"
	"github.com/ophrus/immo-api/internal/server"
	"github.com/ophrus/immo-api/internal/storage"
	"github.com/ophrus/immo-api/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	mailer, err := email.NewSender(cfg.Email, cfg.App, logger)
	if err != nil {
		return err
	}

	var objectStorage storage.ObjectStorage = storage.Disabled{}
	if cfg.Storage.Enabled {
		s3Storage, s3Err := storage.NewS3Storage(ctx, cfg.Storage)
		if s3Err != nil {
			return s3Err
		}
		objectStorage = s3Storage
		logger.Info("object storage initialized",
			"bucket", cfg.Storage.Bucket,
		)
	}

	authRepo := auth.NewRepository(db.DB)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, authRepo, objectStorage, logger)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		mailer,
		redis.Client,
		logger,
	)
	authHandler := auth.NewHandler(authSvc, cfg.Cookie)

	propertyRepo := property.NewRepository(db.DB)
	propertySvc := property.NewService(propertyRepo, objectStorage, logger)
	propertyHandler := property.NewHandler(propertySvc)

	messageRepo := message.NewRepository(db.DB)
	messageSvc := message.NewService(messageRepo, userSvc)
	messageHandler := message.NewHandler(messageSvc)

	reservationRepo := reservation.NewRepository(db.DB)
	reservationSvc := reservation.NewService(
		reservationRepo,
		propertySvc,
		messageSvc,
		logger,
	)
	reservationHandler := reservation.NewHandler(reservationSvc)

	healthHandler := health.NewHandler(db, redis)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:           db.Stats,
		RedisStats:        redis.PoolStats,
		DBPing:            db.Ping,
		RedisPing:         redis.Ping,
		CountUsers:        userRepo.CountActive,
		CountProperties:   propertyRepo.Count,
		CountReservations: reservationRepo.CountAll,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := func(next http.Handler) http.Handler {
		return middleware.Authenticator(jwtManager)(
			middleware.ValidateSession(authSvc)(next),
		)
	}
	adminOnly := middleware.RequireAdmin

	// Reset codes trigger outbound mail, so they get a much tighter
	// budget than the global limiter.
	resetLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit:    middleware.PerHour(cfg.RateLimit.ResetRequests, 2),
			FailOpen: true,
		},
	).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, resetLimiter)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		propertyHandler.RegisterRoutes(r, authenticator)
		reservationHandler.RegisterRoutes(r, authenticator)
		messageHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
