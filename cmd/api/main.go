// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

// Command api runs the BreachLab API server.
//
// # Startup Order
//
// Config → logging → storage (Mongo, Redis) → domain wiring → background
// jobs → HTTP server. Shutdown runs the same order in reverse.
package main

import (
	stdctx "context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/breachlab/breachlab/internal/api"
	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/notify"
	"github.com/breachlab/breachlab/internal/platform/config"
	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/middleware"
	"github.com/breachlab/breachlab/internal/platform/mongo"
	"github.com/breachlab/breachlab/internal/platform/redis"
	"github.com/breachlab/breachlab/internal/platform/sec"
	"github.com/breachlab/breachlab/internal/users/account"
)

const startupTimeout = 30 * time.Second

func main() {
	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	startupCtx, cancel := stdctx.WithTimeout(stdctx.Background(), startupTimeout)
	defer cancel()

	// ── 1. Storage ────────────────────────────────────────────────────────
	database, err := mongo.NewDatabase(startupCtx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := stdctx.WithTimeout(stdctx.Background(), 5*time.Second)
		defer cancel()
		_ = database.Client().Disconnect(disconnectCtx)
	}()

	if err := mongo.EnsureIndexes(startupCtx, database); err != nil {
		return err
	}

	cache, err := redis.NewClient(startupCtx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	// ── 2. Domain Wiring ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		constants.AuthIssuer,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	if err != nil {
		return err
	}

	userRepo := auth.NewMongoUserRepository(database)
	sessionRepo := auth.NewMongoSessionRepository(database)
	ledger := auth.NewLedger(sessionRepo)

	authService := auth.NewService(
		userRepo,
		ledger,
		auth.NewResetManager(userRepo),
		tokens,
		sec.NewPasswordHasher(cfg.PasswordHashCost),
		auth.NewLoginThrottle(cache, logger),
		notify.NewLogSender(logger),
	)

	protect := middleware.Protect(tokens, authService)
	authHandler := auth.NewHandler(authService, protect, cfg.IsProduction())
	accountHandler := account.NewHandler(account.NewService(userRepo, ledger), protect)

	// ── 3. Background Jobs ────────────────────────────────────────────────
	sweeper := auth.NewSweeper(ledger, logger)
	if err := sweeper.Start(cfg.SessionSweepSchedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	// ── 4. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(cfg, logger, database, cache, authHandler, accountHandler)

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- server.Start() }()

	// ── 5. Graceful Shutdown ──────────────────────────────────────────────
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := stdctx.WithTimeout(stdctx.Background(), constants.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// newLogger builds the root JSON logger; debug mode lowers the level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("app", constants.AppName),
		slog.String("env", cfg.Environment),
	)
}
