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

	"github.com/use-agent/scrapeurl/api"
	"github.com/use-agent/scrapeurl/api/handler"
	"github.com/use-agent/scrapeurl/cache"
	"github.com/use-agent/scrapeurl/config"
	"github.com/use-agent/scrapeurl/engine"
	"github.com/use-agent/scrapeurl/models"
	"github.com/use-agent/scrapeurl/scraper"
	"github.com/use-agent/scrapeurl/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logHandler := initLogger(cfg.Log)
	slog.Info("scrapeurl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
	)

	// ── 3. Fetch engines ────────────────────────────────────────────
	engines := []engine.Engine{
		engine.NewHTTPEngine(cfg.Browser.DefaultProxy, engine.WithMaxBody(cfg.Scraper.MaxBodyBytes)),
	}
	var poolStats handler.StatsFunc
	if cfg.Browser.Enabled {
		browser, err := engine.LaunchBrowser(engine.BrowserOptions{
			Headless:     cfg.Browser.Headless,
			NoSandbox:    cfg.Browser.NoSandbox,
			BrowserBin:   cfg.Browser.BrowserBin,
			Proxy:        cfg.Browser.DefaultProxy,
			MaxPages:     cfg.Browser.MaxPages,
			BlockedTypes: cfg.Browser.BlockedResourceTypes,
			BlockAds:     cfg.Browser.BlockAds,
		})
		if err != nil {
			slog.Warn("browser unavailable, continuing with the HTTP engine only", "error", err)
		} else {
			// Close drains the page pool and kills Chrome.
			defer browser.Close()
			engines = append(engines,
				engine.NewRodEngine(browser, false),
				engine.NewRodEngine(browser, true),
			)
			poolStats = func() models.PoolStats {
				maxPages, active := browser.Stats()
				return models.PoolStats{MaxPages: maxPages, ActivePages: active}
			}
		}
	}

	memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL, time.Hour)
	defer memory.Stop()
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
	slog.Info("dispatcher ready", "engines", len(engines), "delays", cfg.Engine.EscalationDelays)

	// ── 4. Scraper, cache, batch store ──────────────────────────────
	sc := scraper.New(dispatcher,
		scraper.WithLogHandler(logHandler),
		scraper.WithLogLimit(cfg.Log.BufferSize),
		scraper.WithMaxTimeout(cfg.Scraper.MaxTimeout),
		scraper.WithStealth(cfg.Scraper.Stealth),
	)

	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()
	batches := handler.NewBatchStore(cfg.Batch.JobTTL)
	defer batches.Stop()

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Runner:    sc,
		Cache:     cc,
		Batches:   batches,
		Notifier:  webhook.NewSender(nil, nil),
		PoolStats: poolStats,
		StartTime: time.Now(),
	})

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("scrapeurl stopped")
}

// initLogger configures slog based on the LogConfig and returns the
// process handler scrape logs are forwarded to.
func initLogger(cfg config.LogConfig) slog.Handler {
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

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
	return h
}
