// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/api"
	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/authz"
	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/content"
	"github.com/Danny-Lenko/story-pull-backend/internal/database"
	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/metrics"
	"github.com/Danny-Lenko/story-pull-backend/internal/rpc"
	"github.com/Danny-Lenko/story-pull-backend/internal/supervisor"
	"github.com/Danny-Lenko/story-pull-backend/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Story Pull")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	revocations, err := auth.NewRevocationStore(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize revocation store")
	}
	defer func() {
		if err := revocations.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation store")
		}
	}()

	guard := auth.NewGuard(tokens, revocations)
	authSvc := auth.NewService(db, tokens, guard, revocations, cfg.Security.BcryptCost)

	policy, err := authz.NewContentPolicy()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load content policy")
	}

	natsComponents, err := initNATS(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}

	// A nil *events.Publisher must not reach the service as a non-nil interface.
	var publisher content.EventPublisher
	if pub := natsComponents.Publisher(); pub != nil {
		publisher = pub
	}
	contentSvc := content.NewService(db, policy, publisher)

	handler := api.NewHandler(contentSvc, authSvc, db)
	router := api.NewRouter(handler, auth.NewMiddleware(guard), &cfg.Security)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddStorageService(services.NewRevocationCleanupService(revocations, cfg.Security.RevocationCleanup))

	if conn := natsComponents.Conn(); conn != nil {
		rpcServer := rpc.NewServer(conn, rpc.ServerConfigFrom(&cfg.NATS), contentSvc, authSvc, guard)
		tree.AddMessagingService(rpcServer)
		logging.Info().
			Str("prefix", cfg.NATS.SubjectPrefix).
			Str("queue", cfg.NATS.QueueGroup).
			Msg("NATS RPC server added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
	stop()

	// The root supervisor only returns once its context ends.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor shutdown error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	natsComponents.Shutdown(shutdownCtx)

	logging.Info().Msg("Application stopped gracefully")
}
