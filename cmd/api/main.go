package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pratik-mahalle/gw2ledger/internal/api/handlers"
	"github.com/pratik-mahalle/gw2ledger/internal/api/middleware"
	"github.com/pratik-mahalle/gw2ledger/internal/api/router"
	"github.com/pratik-mahalle/gw2ledger/internal/cache"
	"github.com/pratik-mahalle/gw2ledger/internal/config"
	"github.com/pratik-mahalle/gw2ledger/internal/gw2"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/validator"
	"github.com/pratik-mahalle/gw2ledger/internal/progress"
	"github.com/pratik-mahalle/gw2ledger/internal/repository/postgres"
	"github.com/pratik-mahalle/gw2ledger/internal/services"
	"github.com/pratik-mahalle/gw2ledger/internal/snapshot"
	"github.com/pratik-mahalle/gw2ledger/internal/worker"
	"github.com/pratik-mahalle/gw2ledger/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Format: "console"}).Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db, migrations.GetFS())
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if len(applied) > 0 {
		log.WithFields(map[string]interface{}{
			"migrations": strings.Join(applied, ","),
		}).Info("Applied migrations")
	}

	// Repositories
	recordRepo := postgres.NewRecordRepository(db)
	jobRepo := postgres.NewFetchJobRepository(db)
	accountRepo := postgres.NewAccountRepository(db)

	// In-memory stores
	store := cache.New()
	accounts := cache.NewAccountStore()
	hub := progress.NewHub(64, log.Component("progress"))

	remote := gw2.NewClient(gw2.Config{
		BaseURL:       cfg.Remote.BaseURL,
		APIKey:        cfg.Remote.APIKey,
		Lang:          cfg.Remote.Lang,
		SchemaVersion: cfg.Remote.SchemaVersion,
		Timeout:       cfg.Remote.Timeout,
	})
	if !remote.HasKey() {
		log.Warn("GW2_API_KEY not set; account data will come from the last stored snapshot")
	}

	sink, err := buildSink(ctx, cfg.Snapshot)
	if err != nil {
		log.Fatalf("Failed to configure snapshot export: %v", err)
	}

	syncService := services.NewSyncService(remote, store, accounts, recordRepo, jobRepo, accountRepo, sink, hub,
		services.SyncConfig{
			ChunkSize:   cfg.Remote.ChunkSize,
			Pacing:      cfg.Remote.Pacing,
			FullCatalog: cfg.Sync.FullCatalog,
		}, log.Component("sync"))
	if cfg.Snapshot.Dir != "" {
		syncService.WithFallback(snapshot.NewFileSink(cfg.Snapshot.Dir))
	}
	if err := syncService.Restore(ctx); err != nil {
		log.WithError(err).Warn("Failed to restore persisted records, starting empty")
	}
	queryService := services.NewQueryService(store, accounts, log.Component("query"))

	scheduler := worker.NewSyncScheduler(syncService, cfg.Sync.Schedule, cfg.Sync.OnStart, log.Component("scheduler"))
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(db, log),
		Records:  handlers.NewRecordHandler(queryService, log),
		Ledger:   handlers.NewLedgerHandler(queryService, log, validator.New()),
		Sync:     handlers.NewSyncHandler(syncService, queryService, hub, scheduler.NextRun, log),
		Progress: handlers.NewProgressHandler(hub, allowedOrigins(cfg.Server.FrontendURL), log),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.New(cfg, log, limiter, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	g.Go(func() error {
		limiter.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"db_driver":   cfg.Database.Driver,
		}).Info("Starting gw2ledger API server")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		syncService.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.ErrorWithErr(err, "Server stopped with error")
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// buildSink returns the configured snapshot exporters, or nil when none is set
func buildSink(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Sink, error) {
	var sinks snapshot.Multi
	if cfg.Dir != "" {
		sinks = append(sinks, snapshot.NewFileSink(cfg.Dir))
	}
	if cfg.S3Bucket != "" {
		s3Sink, err := snapshot.NewS3Sink(ctx, snapshot.S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}
	if cfg.GCSBucket != "" {
		gcsSink, err := snapshot.NewGCSSink(ctx, snapshot.GCSConfig{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, gcsSink)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

func allowedOrigins(frontendURL string) []string {
	if frontendURL == "" || frontendURL == "*" {
		return nil
	}
	return []string{frontendURL}
}
