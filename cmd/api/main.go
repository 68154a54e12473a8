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

	"github.com/nyashahama/risk-report-engine/internal/api"
	"github.com/nyashahama/risk-report-engine/internal/config"
	"github.com/nyashahama/risk-report-engine/internal/metrics"
	"github.com/nyashahama/risk-report-engine/internal/narrative"
	"github.com/nyashahama/risk-report-engine/internal/report"
	"github.com/nyashahama/risk-report-engine/internal/store"
	"github.com/nyashahama/risk-report-engine/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "render_workers", cfg.RenderWorkers)

	// Root context cancelled by OS signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Render log ────────────────────────────────────────────────────────────
	// Optional. Without DATABASE_URL renders are served but not recorded.
	var renderLog api.RenderLog = store.Discard{}
	if cfg.DatabaseURL != "" {
		pool, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		st := store.New(pool)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		renderLog = st
		logger.Info("database connected, render log enabled")
	} else {
		logger.Warn("DATABASE_URL not set, render log disabled")
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	params, err := narrative.LoadParams(cfg.NarrativeConfig)
	if err != nil {
		return err
	}
	engine := report.New(
		report.WithParams(params),
		report.WithPlatformName(cfg.PlatformName),
	)

	// ── Render pool and metrics ───────────────────────────────────────────────
	renderPool := worker.NewPool(worker.PoolConfig{
		Workers:       cfg.RenderWorkers,
		RenderTimeout: cfg.RenderTimeout,
	}, logger)
	m := metrics.New()
	m.TrackInFlight(renderPool.InFlight)

	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET not set, report routes are unauthenticated")
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		engine,
		renderPool,
		renderLog,
		m,
		api.Config{
			Env:               cfg.Env,
			CORSAllowedOrigin: cfg.CORSAllowedOrigin,
			MaxBodyBytes:      cfg.MaxBodyBytes,
			JWTSecret:         cfg.JWTSecret,
			JWTIssuer:         cfg.JWTIssuer,
			RequestTimeout:    cfg.RenderTimeout + 30*time.Second,
		},
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RenderTimeout + 45*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Stop accepting requests, then wait for renders that outlived their
	// request to release their slots.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := renderPool.Drain(shutdownCtx); err != nil {
		logger.Warn("render pool did not drain", "error", err, "in_flight", renderPool.InFlight())
	}

	logger.Info("shutdown complete")
	return nil
}
