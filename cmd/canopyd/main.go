package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/canopyhq/canopy/pkg/accounts"
	"github.com/canopyhq/canopy/pkg/api"
	"github.com/canopyhq/canopy/pkg/audit"
	"github.com/canopyhq/canopy/pkg/config"
	"github.com/canopyhq/canopy/pkg/domains"
	"github.com/canopyhq/canopy/pkg/grants"
	"github.com/canopyhq/canopy/pkg/guard"
	"github.com/canopyhq/canopy/pkg/invites"
	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.WithError(err).Error("canopyd exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) error {
	// OpenTelemetry
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("otel shutdown failed")
			}
		}()
	}

	// Database
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("database connected")

	for component, migrations := range map[string][]storage.Migration{
		accounts.MigrationComponent: accounts.Migrations(),
		grants.MigrationComponent:   grants.Migrations(),
		invites.MigrationComponent:  invites.Migrations(),
		audit.MigrationComponent:    audit.Migrations(),
	} {
		if err := storage.ApplyMigrations(ctx, db, component, migrations); err != nil {
			return err
		}
	}

	// Stores, with optional caches in front
	var directory accounts.Directory = accounts.NewSQLDirectory(db)
	var grantStore grants.Store = grants.NewInstrumentedSQLStore(db, metrics)
	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		grantStore = grants.NewCachedStore(grantStore, rdb, cfg.Cache.AccountCacheTTL)
		directory = accounts.NewCachedDirectory(directory, cfg.Cache.AccountCacheSize, cfg.Cache.AccountCacheTTL)
		logger.WithField("redis", cfg.Cache.RedisAddr).Info("caches enabled")
	}
	inviteStore := invites.NewSQLStore(db)

	// Domain catalog and guard
	catalog, err := domains.NewBuiltInCatalog()
	if err != nil {
		return err
	}
	authGuard := guard.New(catalog, metrics)

	// Audit: structured log plus append-only table
	auditSink := audit.NewMultiSink(logger, audit.NewLogSink(logger), audit.NewDBSink(db))
	defer auditSink.Close()

	// Invitation lifecycle and expiry sweeper
	lifecycle := invites.NewLifecycle(inviteStore, directory, grantStore, auditSink, logger, metrics,
		invites.WithTTL(cfg.Invitations.TTL))
	sweeper := invites.NewSweeper(lifecycle, logger, cfg.Invitations.SweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	server := api.NewServer(authGuard, catalog, directory, grantStore, lifecycle, inviteStore, auditSink, logger, metrics)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db, rdb)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", health.Liveness).Methods("GET")
	healthRouter.HandleFunc("/readyz", health.Readiness).Methods("GET")
	if cfg.Observability.MetricsEnabled {
		healthRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
