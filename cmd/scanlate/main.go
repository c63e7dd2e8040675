package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/kagemura/scanlate/aggregate"
	"github.com/kagemura/scanlate/api"
	"github.com/kagemura/scanlate/api/handler"
	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/cache"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/scraper"
	"github.com/kagemura/scanlate/source"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("scanlate starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxBrowsers", cfg.Pool.MaxBrowsers,
	)

	// ── 3. Browser pool (lazy — first scrape launches Chromium) ─────
	pool := browser.NewPool(cfg.Pool, cfg.Browser)
	defer pool.Shutdown()

	// ── 4. Orchestrator, source registry, fan-out aggregator ────────
	sc := scraper.New(pool, cfg.Scraper)
	reg := source.DefaultRegistry()
	agg := aggregate.New(sc, reg)
	slog.Info("source registry loaded", "sources", reg.Keys())

	// ── 5. Result caches ────────────────────────────────────────────
	cacheCfg := cache.Config{
		MaxEntries:          cfg.Cache.MaxEntries,
		SweepInterval:       cfg.Cache.SweepInterval,
		ExpiredHitThreshold: cfg.Cache.ExpiredHitThreshold,
	}
	caches := &handler.Caches{
		Lists:   cache.New[*models.ScrapeResult](cacheCfg),
		Details: cache.New[*models.DetailsResult](cacheCfg),
		Top:     cache.New[[]models.SourceResult](cacheCfg),
		Cfg:     cfg.Cache,
	}
	defer func() {
		caches.Lists.Stop()
		caches.Details.Stop()
		caches.Top.Stop()
	}()

	// ── 6. Router + HTTP server ─────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, agg, reg, pool, caches, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Shutdown runs via defer — closes every browser and kills
	// the Chromium processes.
	slog.Info("scanlate stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}
