package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/testnet-portal/internal/api/http"
	"github.com/spec-kit/testnet-portal/internal/api/http/handlers"
	"github.com/spec-kit/testnet-portal/internal/apiclient"
	"github.com/spec-kit/testnet-portal/internal/auth"
	"github.com/spec-kit/testnet-portal/internal/config"
	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/identity"
	"github.com/spec-kit/testnet-portal/internal/login"
	"github.com/spec-kit/testnet-portal/internal/observability"
	"github.com/spec-kit/testnet-portal/internal/persistence"
	"github.com/spec-kit/testnet-portal/internal/repository"
	"github.com/spec-kit/testnet-portal/internal/service"
	"github.com/spec-kit/testnet-portal/internal/session"
	"github.com/spec-kit/testnet-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var outcomes repository.LoginOutcomeRepository
	if pool := pg.PoolHandle(); pool != nil {
		outcomes = repository.NewLoginOutcomeRepository(pool)
	}
	auditService := service.NewAuditService(dispatcher, outcomes, metrics, logger)
	worker.StartAuditWorker(auditService)

	identityClient := identity.NewClient(cfg.Identity, logger)
	backend := apiclient.New(cfg.Backend)

	registry := session.NewRegistry(session.Dependencies{
		Identity:   identityClient,
		Profiles:   backend,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}, session.Options{
		Login: login.Config{
			Redirect: cfg.Login.Redirect,
			Timeout:  cfg.Login.Timeout(),
		},
		IdleTTL: cfg.Session.IdleTTL(),
	}, logger.Named("session"))

	registryDone := make(chan struct{})
	go func() {
		defer close(registryDone)
		registry.Run(ctx, cfg.Session.SweepInterval())
	}()

	leaderboard := service.NewLeaderboardService(backend, redis, cfg.Redis.LeaderboardTTL(), logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Session: handlers.NewSessionHandler(registry, backend, handlers.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.IdleTTL(),
		}, cfg.App.RequestTimeout()),
		Users:       handlers.NewUsersHandler(backend),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboard),
		Internal:    handlers.NewInternalHandler(metrics, registry, auditService),
		Operator:    auth.NewOperatorMiddleware(cfg.Operator.KeyHash),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-registryDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
