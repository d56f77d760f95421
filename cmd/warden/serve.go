// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/postgres"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/logging"
	"github.com/holomush/warden/internal/mail"
	"github.com/holomush/warden/internal/observability"
	"github.com/holomush/warden/internal/store"
	"github.com/holomush/warden/internal/web"
	"github.com/holomush/warden/internal/xdg"
)

const (
	serviceName       = "warden"
	shutdownTimeout   = 10 * time.Second
	readinessTimeout  = 2 * time.Second
	defaultMailSender = "warden@localhost"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the warden API server",
		Long: `Start the HTTP API server. Configuration is read from the --config
file (default: XDG_CONFIG_HOME/warden/config.yaml if present), then flags,
then the environment. DATABASE_URL and
WARDEN_COOKIE_HASH_KEY are required.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(configFile), cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// resolveConfigFile returns path, or the XDG config file when path is empty.
func resolveConfigFile(path string) string {
	if path != "" {
		return path
	}
	return xdg.DefaultConfigFile()
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = func(ctx context.Context, url string, retries uint64, logger *slog.Logger) (Database, error) {
			return store.Connect(ctx, url, retries, logger)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.MailerFactory == nil {
		d.MailerFactory = newMailer
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.APIServerFactory == nil {
		d.APIServerFactory = newAPIServer
	}
	return d
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until a signal arrives, ctx is cancelled or a server fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.Level(),
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting warden", "http_addr", cfg.HTTPAddr, "auto_migrate", cfg.AutoMigrate)

	if cfg.AutoMigrate {
		if err := runAutoMigration(cfg.DatabaseURL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.DatabaseURL, cfg.DBConnectRetries, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	mailer, err := deps.MailerFactory(cfg, logger)
	if err != nil {
		return err
	}

	sessions := postgres.NewSessionRepository(db)
	otps := postgres.NewOTPRepository(db)

	mailFrom := cfg.MailFrom
	if mailFrom == "" {
		mailFrom = defaultMailSender
	}
	svc, err := auth.NewService(postgres.NewAccountRepository(db), sessions, otps, auth.NewScryptHasher(), mailer,
		auth.Options{
			SessionTTL: cfg.SessionTTL,
			OTPTTL:     cfg.OTPTTL,
			MailFrom:   mailFrom,
			Logger:     logger,
		})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), shutdownTimeout)
	}

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, store.Readiness(db, readinessTimeout))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	apiServer, err := deps.APIServerFactory(cfg, svc, metrics, logger)
	if err != nil {
		stopObservability(obsServer, shutdownCtx)
		return err
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, shutdownCtx)
		return oops.Code("WEB_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	worker := auth.NewExpiryWorker(sessions, otps, cfg.SweepInterval).
		WithLogger(logger).
		WithPurgeHook(metrics.ObservePurge)
	worker.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("warden started")
	logger.Info("warden ready", "http_addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	worker.Stop()

	stopCtx, stopCancel := shutdownCtx()
	defer stopCancel()
	if err := apiServer.Stop(stopCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer, shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(server ObservabilityServer, newCtx func() (context.Context, context.CancelFunc)) {
	if server == nil {
		return
	}
	ctx, cancel := newCtx()
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// runAutoMigration applies pending migrations before the pool is opened.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// newMailer sends through SMTP when a relay is configured and logs
// otherwise.
func newMailer(cfg *config.Config, logger *slog.Logger) (auth.Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("smtp-host not set, one time passwords will be logged instead of mailed")
		return mail.NewLogMailer(logger), nil
	}
	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		SSL:      cfg.SMTPSSL,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		return nil, err
	}
	return mailer, nil
}

func newAPIServer(cfg *config.Config, svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) (APIServer, error) {
	cookies, err := web.NewCookieCodec([]byte(cfg.CookieHashKey), []byte(cfg.CookieBlockKey), svc.SessionTTL(), cfg.CookieSecure)
	if err != nil {
		return nil, err
	}
	return web.NewServer(cfg.HTTPAddr, svc, cookies, web.Options{Metrics: metrics, Logger: logger}), nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
