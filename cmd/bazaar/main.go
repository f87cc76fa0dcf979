package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bazaar-app/bazaar-gateway/internal/admin"
	"github.com/bazaar-app/bazaar-gateway/internal/app"
	"github.com/bazaar-app/bazaar-gateway/internal/auth"
	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/catalog"
	"github.com/bazaar-app/bazaar-gateway/internal/observability"
	"github.com/bazaar-app/bazaar-gateway/internal/platform/cache"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
	"github.com/bazaar-app/bazaar-gateway/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "bazaar_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	api := backend.NewClient(cfg.BackendBaseURL)
	if err := api.Ping(ctx); err != nil {
		logger.Warn("backend ping", slog.Any("error", err))
	}

	permStore := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		return api.AdminPermissions(ctx, token, adminID)
	}, logger)
	guard := authz.NewGuard(permStore, logger)

	authHandler := auth.NewHandler(logger, auth.NewService(api), sessionManager, permStore)

	catalogCache := catalog.NewCache(redisClient, cfg.CatalogTTL)
	catalogService := catalog.NewService(api, catalogCache)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	adminHandler := admin.NewHandler(logger, api, permStore, sessionManager)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	enqueuer := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("enqueuer close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, enqueuer, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Guard:          guard,
		AuthHandler:    authHandler,
		CatalogHandler: catalogHandler,
		AdminHandler:   adminHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
