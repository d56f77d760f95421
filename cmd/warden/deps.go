// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/postgres"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, retries uint64, logger *slog.Logger) (Database, error)

	// MigratorFactory opens a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// MailerFactory builds the one time password mailer.
	// Default: newMailer
	MailerFactory func(cfg *config.Config, logger *slog.Logger) (auth.Mailer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// APIServerFactory creates the public API server.
	// Default: web.NewServer
	APIServerFactory func(cfg *config.Config, svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) (APIServer, error)
}

// Database is the part of *pgxpool.Pool used by serve.
type Database interface {
	postgres.DB
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator is the part of store.Migrator used at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer interface wraps the methods used from web.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
