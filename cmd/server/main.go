// Package main is the entry point for the audit service. It loads config,
// opens the SQLite audit store, applies migrations, and serves the ingestion
// and stats endpoints while the retention sweeper runs on its cron schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"domainaudit/internal/api"
	"domainaudit/internal/config"
	internaldb "domainaudit/internal/db"
	"domainaudit/internal/db/repository"
	"domainaudit/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warn := range cfg.Warnings {
		logger.Warn(warn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB: 4-connection pool for concurrent reads.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 4)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	// A schema that cannot be brought current must halt the process before
	// it serves traffic.
	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate audit store: %w", err)
	}

	repo := repository.NewAuditRepo(writeDB, readDB)
	auditSvc := service.NewAuditService(repo, cfg.StatsLimit)
	retentionSvc := service.NewRetentionService(repo, cfg.RetentionHorizon(), logger.With("component", "retention"))
	sweeper := service.NewSweeper(retentionSvc, cfg.SweepSchedule, cfg.DBTimeout, logger.With("component", "sweeper"))

	handler := api.NewHandler(auditSvc, readDB, cfg.DBTimeout, logger.With("component", "api"))
	router := api.NewRouter(handler, cfg.CORSAllowedOrigins, logger.With("component", "http"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("audit service listening",
			"addr", cfg.ListenAddr,
			"db_path", cfg.DBPath,
			"retention_days", cfg.RetentionDays,
			"sweep_schedule", cfg.SweepSchedule,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("audit service stopped")
	return nil
}
