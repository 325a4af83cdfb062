// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package api assembles the HTTP server: middleware chain, route mounting,
and graceful lifecycle.

# Request Pipeline

	RequestID → StructuredLogger → Timeout → RateLimit → PanicRecovery → CORS → CleanPath → Router

Tracing comes first so every later stage logs with a correlation ID;
recovery sits inside the logger so panics still produce a request entry.
*/
package api

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/breachlab/breachlab/internal/auth"
	"github.com/breachlab/breachlab/internal/platform/config"
	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/middleware"
	"github.com/breachlab/breachlab/internal/users/account"
)

// Server wraps the HTTP server with its router and dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the full HTTP surface.
//
// # Parameters
//   - cfg: Runtime configuration.
//   - logger: Root structured logger.
//   - database: Document database handle, used by the readiness probe.
//   - cache: Redis client, used by the readiness probe.
//   - authHandler: Mounted at /api/v1/auth.
//   - accountHandler: Mounted at /api/v1/users.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	database *mongo.Database,
	cache *redis.Client,
	authHandler *auth.Handler,
	accountHandler *account.Handler,
) *Server {
	router := chi.NewRouter()

	// ── 1. Cross-Cutting Middleware ───────────────────────────────────────
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(chimiddleware.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.RateLimit(stdctx.Background()))
	router.Use(middleware.PanicRecovery(logger))
	router.Use(middleware.CORS(cfg))
	router.Use(chimiddleware.CleanPath)

	// ── 2. Operational Probes ─────────────────────────────────────────────
	health := newHealthHandler(database, cache)
	router.Get("/health", health.liveness)
	router.Get("/ready", health.readiness)

	// ── 3. API Surface ────────────────────────────────────────────────────
	router.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", authHandler.Routes())
		api.Mount("/users", accountHandler.Routes())
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
		logger: logger,
	}
}

// Start runs the HTTP server until it is shut down.
// http.ErrServerClosed is the normal outcome of a graceful shutdown and is
// not reported as an error.
func (server *Server) Start() error {
	server.logger.Info("http server listening",
		slog.String("addr", server.httpServer.Addr),
		slog.String("app", constants.AppName),
	)

	if err := server.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (server *Server) Shutdown(context stdctx.Context) error {
	server.logger.Info("http server shutting down")
	return server.httpServer.Shutdown(context)
}
