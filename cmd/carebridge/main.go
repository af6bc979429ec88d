// CareBridge discharge-coordination server: accepts intake records,
// runs the multi-agent coordination workflow, and serves the polled API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carebridge/carebridge/pkg/api"
	"github.com/carebridge/carebridge/pkg/cache"
	"github.com/carebridge/carebridge/pkg/config"
	"github.com/carebridge/carebridge/pkg/docext"
	"github.com/carebridge/carebridge/pkg/engine"
	"github.com/carebridge/carebridge/pkg/routing"
	"github.com/carebridge/carebridge/pkg/store"
	"github.com/carebridge/carebridge/pkg/version"
	"github.com/carebridge/carebridge/pkg/voice"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(*configDir); err != nil {
		slog.Error("Fatal startup error", "error", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	slog.Info("Starting CareBridge", "version", version.Full())

	cfg, err := config.Initialize(configDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load database configuration: %w", err)
	}
	st, err := store.NewPostgres(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer st.Close()
	slog.Info("Database connected", "host", dbCfg.Host, "database", dbCfg.Database)

	// Browser launch failure degrades scraping to fallback records rather
	// than blocking startup.
	var fetcher cache.Fetcher
	browser, err := cache.NewBrowserFetcher(cfg.Proxy)
	if err != nil {
		slog.Warn("Headless browser unavailable, scrapes will use fallback records", "error", err)
		launchErr := err
		fetcher = cache.FetcherFunc(func(context.Context, string) (string, error) {
			return "", launchErr
		})
	} else {
		defer browser.Close()
		fetcher = browser
	}
	listings := cache.New(st, fetcher, cfg.Scrape)

	var voiceClient *voice.Client
	if cfg.Voice.Enabled() {
		voiceClient = voice.NewClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, cfg.Voice.RequestTimeout)
		slog.Info("Voice calling configured", "demo_mode", cfg.Voice.DemoMode)
	} else {
		slog.Warn("Voice calling not configured, shelter confirmation will use synthetic transcripts")
	}
	caller := voice.NewCaller(voiceClient, cfg.Voice)

	router := routing.NewClient(cfg.Routing.BaseURL, cfg.Routing.Token, cfg.Routing.RequestTimeout)

	var extractor *docext.Client
	if cfg.DocExt.Enabled() {
		extractor = docext.NewClient(cfg.DocExt.BaseURL, cfg.DocExt.APIKey, cfg.DocExt.RequestTimeout)
	}

	eng, err := engine.Build(cfg, engine.Deps{
		Store:    st,
		Listings: listings,
		Caller:   caller,
		Planner:  router,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	server := api.NewServer(eng, st, listings, extractor)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "port", cfg.HTTPPort)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("Shutdown complete")
	return nil
}
