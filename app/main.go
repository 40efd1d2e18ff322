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

	"github.com/fmaia/digesto/app/api"
	"github.com/fmaia/digesto/app/cfg"
	"github.com/fmaia/digesto/app/database"
	"github.com/fmaia/digesto/app/digest"
	"github.com/fmaia/digesto/app/feed"
	"github.com/fmaia/digesto/app/risk"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/tasks"
	"github.com/fmaia/digesto/app/transport"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Digesto server", "version", appCfg.Version)

	if err := os.MkdirAll(appCfg.DataDir, 0o755); err != nil {
		slog.Error("Failed to create data directory", "dir", appCfg.DataDir, "error", err)
		os.Exit(1)
	}

	registry := sources.NewRegistry(appCfg.SourcesFile)
	if err := registry.Load(); err != nil {
		slog.Error("Failed to load sources registry", "file", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Sources registry loaded", "categories", len(registry.Categories()), "sources", registry.Count())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	recipientRepo := database.NewRecipientRepository(db)
	deliveryRepo := database.NewDeliveryRepository(db)

	cacheStore := feed.NewFileStore(feed.DefaultCachePath(appCfg.DataDir))
	seenCache := feed.NewSeenCache(appCfg.MaxCacheSize, cacheStore)
	slog.Info("Seen cache ready", "size", seenCache.Len(), "capacity", appCfg.MaxCacheSize)

	fetcher := feed.NewFetcher(registry, seenCache, risk.NewScorer(nil),
		feed.NewContentExtractor(), &http.Client{}, feed.FetcherOptions{
			UserAgent:      appCfg.UserAgent,
			PerSourceLimit: appCfg.PerSourceLimit,
			Timeout:        time.Duration(appCfg.FetchTimeout) * time.Second,
			MinConfidence:  appCfg.MinConfidence,
			Workers:        appCfg.WorkerCount,
			HostRate:       appCfg.SourceRate,
		})
	engine := digest.NewEngine(fetcher, appCfg.PerSourceLimit)

	var sender transport.Sender
	if appCfg.WebhookURL != "" {
		sender = transport.NewWebhookSender(appCfg.WebhookURL)
	} else {
		sender = transport.NewConsoleSender()
	}
	slog.Info("Delivery transport ready", "sender", sender.Name())

	location, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", appCfg.Timezone, "error", err)
		location = time.UTC
	}

	scheduler := tasks.NewScheduler(recipientRepo, deliveryRepo, registry, engine, sender, location)
	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(recipientRepo, deliveryRepo, registry, engine,
		seenCache, sender, scheduler, appCfg.MaxNewsPerDay)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Digesto server started", "delivery_hour", appCfg.DeliveryHour, "timezone", location.String())

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
