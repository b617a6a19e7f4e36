package main // Entry point package

import (
	"context" // Cancellation for the hub and schema bootstrap
	"log"     // Logging library
	"time"    // Heartbeat interval conversion

	"github.com/joho/godotenv"                       // Load .env files in development
	"github.com/labstack/echo/v4"                    // Echo web framework
	"github.com/prometheus/client_golang/prometheus" // Metrics registry

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/config"     // Internal config loader
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/database"   // MySQL pool and schema bootstrap
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/handler"    // HTTP and websocket handlers
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/metrics"    // Prometheus instrumentation
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/queue"      // RabbitMQ audit consumer
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/realtime"   // Station fan-out hub
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/repository" // Data access layer
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/router"     // Internal router setup
)

func main() {
	// Load variables from a local .env file when present.  In production the
	// environment is provided by the platform, so a missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and make sure the schema exists before serving.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis backs the rate limiter and the response cache.  A nil client
	// simply disables both; the API itself does not depend on Redis.
	rdb := config.NewRedisClient()

	// Application metrics live in their own registry so the /metrics
	// endpoint exposes exactly what this service records.
	reg := prometheus.NewRegistry()
	appMetrics := metrics.New(reg)

	// Repositories wrap the shared pool.
	users := &repository.UserRepo{DB: db}
	tokens := &repository.TokenRepo{DB: db}
	stations := &repository.StationRepo{DB: db}

	// The fan-out hub owns all websocket subscriptions.  It runs for the
	// lifetime of the process and is stopped by cancelling its context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := realtime.NewHub(time.Duration(cfg.HeartbeatSec)*time.Second, appMetrics)
	go hub.Run(ctx)

	// The audit consumer drains station.changed events into the audit log.
	// It reconnects on its own, so a broker outage only delays the trail.
	go func() {
		if err := queue.StartStationConsumer(); err != nil {
			log.Printf("station consumer stopped: %v", err)
		}
	}()

	authHandler := handler.NewAuthHandler(cfg, users, tokens, appMetrics)
	stationHandler := handler.NewStationHandler(stations, hub)
	realtimeHandler := handler.NewRealtimeHandler(hub, stations, time.Duration(cfg.HeartbeatSec)*time.Second)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e, reg)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret, rdb)
	router.RegisterStations(e, stationHandler, cfg.JWTSecret, rdb)
	router.RegisterRealtime(e, realtimeHandler)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
