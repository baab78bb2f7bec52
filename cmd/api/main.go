package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/lab-engine/data"
	"github.com/jwebster45206/lab-engine/internal/config"
	"github.com/jwebster45206/lab-engine/internal/handlers"
	"github.com/jwebster45206/lab-engine/internal/logger"
	"github.com/jwebster45206/lab-engine/internal/middleware"
	"github.com/jwebster45206/lab-engine/internal/services/events"
	"github.com/jwebster45206/lab-engine/internal/sessions"
	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/redis/go-redis/v9"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Lab Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"default_scenario", cfg.Scenario,
		"timer_scale", cfg.TimerScale)

	var scenarios fs.FS = data.Scenarios
	if cfg.DataDir != "" {
		scenarios = os.DirFS(cfg.DataDir)
		log.Info("Loading scenarios from disk", "data_dir", cfg.DataDir)
	}
	catalog := storage.NewFSCatalog(scenarios, log)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()
	if _, err := catalog.GetScenario(startupCtx, cfg.Scenario); err != nil {
		log.Error("Failed to load default scenario", "scenario", cfg.Scenario, "error", err)
		os.Exit(1)
	}

	var (
		publisher   events.Publisher = events.NopPublisher{}
		broadcaster *events.Broadcaster
		rdb         *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = events.NewRedisClient(startupCtx, cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		broadcaster = events.NewBroadcaster(rdb, log)
		publisher = broadcaster
	} else {
		log.Info("REDIS_URL not set, snapshot events are disabled")
	}

	manager := sessions.NewManager(catalog, sessions.Options{
		TTL:        cfg.SessionTTL,
		TimerScale: cfg.TimerScale,
		Publisher:  publisher,
		Logger:     log,
	})
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go manager.Run(sweepCtx, sweepInterval)

	mux := http.NewServeMux()

	// Typed nils would read as enabled, so these stay untyped when Redis is off
	var (
		pinger        handlers.Pinger
		eventsHandler http.Handler
	)
	if broadcaster != nil {
		pinger = broadcaster
		eventsHandler = handlers.NewEventsHandler(broadcaster, manager, log)
	}

	healthHandler := handlers.NewHealthHandler(catalog, pinger, manager, log)
	mux.Handle("/health", healthHandler)

	scenarioHandler := handlers.NewScenarioHandler(log, catalog)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	sessionHandler := handlers.NewSessionHandler(manager, eventsHandler, cfg.Scenario, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	handler := middleware.Recover(log)(middleware.Logger(log)(mux))
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - the events endpoint stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	stopSweep()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	log.Info("Server exited", "sessions", manager.Len())
}
