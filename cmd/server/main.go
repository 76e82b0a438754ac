package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/intake/internal/blob/blobstore"
	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	_ "github.com/JonMunkholm/intake/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/intake/internal/lock"
	"github.com/JonMunkholm/intake/internal/logging"
	"github.com/JonMunkholm/intake/internal/metrics"
	"github.com/JonMunkholm/intake/internal/notify"
	"github.com/JonMunkholm/intake/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open relational store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	blobs, err := blobstore.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open object store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	slog.Info("object store ready", "driver", blobs.Driver())

	recorder := metrics.New()
	healthChecks := []web.Option{
		web.WithMetrics(recorder.Handler()),
		web.WithHealthCheck("database", store.Ping),
	}

	svcCfg := core.ServiceConfig{
		Locale:   core.ParseLocale(cfg.Ingest.Locale),
		Limiter:  core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Recorder: recorder,
		Timeouts: core.Timeouts{
			Upsert: cfg.Timeouts.Upsert,
			Lookup: cfg.Timeouts.Lookup,
			Put:    cfg.Timeouts.Put,
			Delete: cfg.Timeouts.Delete,
			Record: cfg.Timeouts.Record,
			Audit:  cfg.Timeouts.Audit,
			Notify: cfg.Timeouts.Notify,
			Lock:   cfg.Timeouts.Lock,
		},
	}

	if cfg.RedisEnabled() {
		rdb, err := lock.Connect(ctx, cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		svcCfg.Locker = lock.New(rdb, cfg.Redis.LockTTL)
		healthChecks = append(healthChecks, web.WithHealthCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		slog.Info("distributed ingest lock enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.LockTTL)
	}

	if cfg.PubSubEnabled() {
		publisher, err := notify.New(ctx, cfg.PubSub)
		if err != nil {
			slog.Error("failed to create pubsub publisher", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				slog.Warn("pubsub close failed", "error", err)
			}
		}()
		svcCfg.Notifier = publisher
	}

	service := core.NewService(store, blobs, svcCfg)
	recorder.TrackActive(service.Limiter().ActiveCount)

	slog.Info("datasets registered", "count", core.DatasetCount(), "names", core.Names())

	server := web.NewServer(service, cfg, healthChecks...)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Reconcile.Enabled {
		go service.StartReconciler(jobCtx, core.ReconcileConfig{
			Interval:      cfg.Reconcile.Interval,
			GracePeriod:   cfg.Reconcile.GracePeriod,
			DeleteOrphans: cfg.Reconcile.DeleteOrphans,
			Prefixes:      cfg.Reconcile.Prefixes,
		})
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		return
	}
	<-stopped
	slog.Info("server stopped")
}
