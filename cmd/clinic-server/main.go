// Package main is the entry point for the Clinic Rush game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicrush/server/internal/engine"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/infra/storage"
	"github.com/clinicrush/server/internal/network"
	"github.com/clinicrush/server/internal/platform/logger"
	"github.com/clinicrush/server/internal/platform/metrics"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "clinic.db", "SQLite database path")
	seed := flag.Int64("seed", 0, "Spawn RNG seed (0 = time-based)")
	flag.Parse()

	log.Println("[CLINIC-SERVER] Initializing 'Clinic Rush' Authoritative Server...")

	appLogger := logger.NewLogger()

	appLogger.Info("Initializing SQLite database '" + *dbPath + "'...")
	db, err := storage.InitSQLite(*dbPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	sessionRepo := storage.NewSQLiteSessionRepository(db)
	journal := storage.NewJournal(eventRepo, sessionRepo, appLogger)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(journal)

	appLogger.Info("Bootstrapping Simulation Engine...")
	cfg := engine.DefaultConfig()
	cfg.Seed = *seed
	clock := engine.NewWallClock()
	controller, err := engine.NewSimulationController(cfg, clock, eventLog, appLogger)
	if err != nil {
		appLogger.Error("Failed to build simulation: " + err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go controller.Run(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(controller, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	// Setup API Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", network.ServeWS(hub))

	stateHandler := network.NewStateHandler(controller)
	mux.HandleFunc("/api/state", stateHandler.HandleState)

	summarizer := storage.NewSummarizer(eventRepo)
	replayHandler := network.NewReplayHandler(eventLog, sessionRepo, summarizer, appLogger)
	replayHandler.RegisterRoutes(mux)

	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("[CLINIC-SERVER] HTTP API & WS Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[CLINIC-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[CLINIC-SERVER] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[CLINIC-SERVER] Forced shutdown: %v", err)
	}
}
