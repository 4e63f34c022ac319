package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tableport/tableport/internal/config"
	"github.com/tableport/tableport/internal/core"
	"github.com/tableport/tableport/internal/engine"
	"github.com/tableport/tableport/internal/logging"
	"github.com/tableport/tableport/internal/results"
	"github.com/tableport/tableport/internal/storage"
	"github.com/tableport/tableport/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the table upload HTTP server",
		RunE: func(c *cobra.Command, _ []string) error {
			return runServe(c.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if dotenvLoaded {
		slog.Info("loaded .env file (overwriting existing env vars)")
	} else {
		slog.Info("no .env file found, using environment variables")
	}
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_kind", cfg.Storage.Kind,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Connect to the metadata database when one is configured; without it,
	// upload records live in memory and query-result imports stay off.
	var (
		pool     *pgxpool.Pool
		recorder core.UploadRecorder
		pinger   web.Pinger
	)
	if cfg.Database.Enabled() {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		// Log which database we connected to
		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}

		recorder, err = core.NewPostgresRecorder(ctx, pool)
		if err != nil {
			return err
		}
		pinger = pool
	} else {
		slog.Info("no database configured, upload records kept in memory")
		recorder = core.NewMemoryRecorder()
	}

	// Object store for staged table data
	store, err := storage.New(ctx, storage.Config{
		Kind:            cfg.Storage.Kind,
		Root:            cfg.Storage.Root,
		Bucket:          cfg.Storage.Bucket,
		Prefix:          cfg.Storage.Prefix,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}

	// Query-result imports read execution metadata from postgres and row
	// data from the object store, so they need both.
	if pool != nil {
		core.RegisterQueryResultImporter(results.NewPostgresStore(pool, store))
		slog.Info("query result imports enabled")
	}

	catalog, err := engine.LoadCatalog(cfg.Engines.File)
	if err != nil {
		return fmt.Errorf("load engine catalog: %w", err)
	}
	slog.Info("engines configured",
		"engines", catalog.EngineIDs(),
		"dialects", core.DialectTags(),
	)

	service := core.NewService(catalog, storage.NewStager(store), recorder, core.Options{
		SampleLimit:   cfg.Upload.SampleLimit,
		PreviewRows:   cfg.Upload.PreviewRows,
		BatchSize:     cfg.Upload.BatchSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		UploadTimeout: cfg.Upload.Timeout,
	})

	server := web.NewServer(service, catalog, cfg, pinger)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go service.StartRetentionSweeper(jobCtx, core.RetentionPolicy{
		MaxAge:        cfg.Retention.MaxAge,
		SweepInterval: cfg.Retention.SweepInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Fail readiness first so load balancers stop sending work
		server.SetDraining()
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
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
	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
	return nil
}
