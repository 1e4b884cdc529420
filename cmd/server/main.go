package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/workforcehq/hrms-api/internal/api"
	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
	"github.com/workforcehq/hrms-api/internal/core/service"
	"github.com/workforcehq/hrms-api/internal/infrastructure/db/mongo"
	"github.com/workforcehq/hrms-api/internal/infrastructure/db/redis"
	"github.com/workforcehq/hrms-api/internal/infrastructure/http/handlers"
	"github.com/workforcehq/hrms-api/internal/infrastructure/token"
	"github.com/workforcehq/hrms-api/internal/pkg/config"
	"github.com/workforcehq/hrms-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "hrms-api",
		Env:     cfg.Env,
	})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			log.Warn().Err(err).Msg("sentry disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, sessions := connectSessions(ctx, cfg.Redis, logger.Component("sessions"))
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	codec, err := token.NewJWTCodec(token.Config{
		AccessSecret:  cfg.JWT.Secret,
		AccessTTL:     cfg.JWT.ExpiresIn,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshExpiresIn,
	})
	if err != nil {
		return err
	}

	ipPolicy, err := domain.ParseIPMatchPolicy(cfg.IPAllowListPolicy)
	if err != nil {
		return err
	}

	ipExtractor, err := api.ClientIPExtractor(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	authCfg := service.AuthConfig{
		SessionTTL:        cfg.Auth.SessionTTL(),
		MaxLoginAttempts:  cfg.Auth.MaxLoginAttempts,
		LockDuration:      cfg.Auth.LockDuration(),
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	}
	authSvc, err := service.NewAuthService(users, sessions, codec, authCfg, logger.Component("auth"))
	if err != nil {
		return err
	}
	userSvc := service.NewUserService(users, sessions, authCfg, logger.Component("users"))

	if err := userSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email); err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Auth:          authSvc,
		Authenticator: authSvc,
		Users:         userSvc,
		IPPolicy:      ipPolicy,
		IPExtractor:   ipExtractor,
		Readiness:     handlers.NewHealthDependenciesHandler(client, rdb),
		Logger:        logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Bool("session_registry", rdb != nil).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connectSessions returns the Redis-backed registry, or the unavailable
// stand-in when Redis is disabled.
func connectSessions(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, ports.SessionRegistry) {
	if !cfg.Enabled {
		log.Warn().Msg("session registry disabled; tokens are honoured until they expire")
		return nil, service.UnavailableSessionRegistry{}
	}

	rcfg := redis.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	rdb, err := redis.Connect(ctx, rcfg)
	if err != nil {
		// Keep a lazy client so the registry resumes once Redis is back.
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("session registry unreachable; running degraded")
		rdb = redis.NewClient(rcfg)
	}
	return rdb, redis.NewSessionRegistry(rdb)
}
