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

	"github.com/wfr-racing/slicks/internal/discovery"
	"github.com/wfr-racing/slicks/internal/registry"
	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
	"github.com/wfr-racing/slicks/pkg/health"
	"github.com/wfr-racing/slicks/pkg/influx"
	"github.com/wfr-racing/slicks/pkg/mqtt"
	"github.com/wfr-racing/slicks/pkg/redis"
	"github.com/wfr-racing/slicks/pkg/timescale"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "discovery-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Slicks Discovery Agent",
		"service_name", cfg.ServiceName,
		"store_backend", cfg.StoreBackend,
		"mqtt_broker", cfg.MQTTAddress(),
		"redis_host", cfg.RedisAddress(),
		"log_level", cfg.LogLevel)

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize telemetry store
	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Initialize MQTT client. Progress and registry announcements are
	// advisory, so a broker outage does not stop discovery.
	mqttClient := mqtt.NewClient(cfg, logger)
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := mqttClient.Connect(connectCtx); err != nil {
		logger.Warn("MQTT unavailable, continuing without announcements", "error", err)
	}
	connectCancel()

	// Initialize Redis client for the signal registry
	redisClient := redis.NewClient(cfg, logger)
	if err := redisClient.Ping(ctx); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	registryStorage := registry.NewStorage(redisClient, logger)

	// Create discovery agent
	agent := discovery.NewAgent(store, mqttClient, registryStorage, cfg, logger)

	// Start health check server
	healthChecker := health.NewChecker(mqttClient, redisClient, logger)
	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	// Start agent in a goroutine
	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			logger.Error("Agent error", "error", err)
			agentErr <- err
		}
	}()

	// Wait for shutdown signal or agent error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	// Graceful shutdown
	logger.Info("Initiating graceful shutdown")
	cancel()

	if err := agent.Stop(); err != nil {
		logger.Error("Error stopping agent", "error", err)
	}

	mqttClient.Disconnect()
	if err := redisClient.Close(); err != nil {
		logger.Error("Error closing Redis client", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Discovery agent shutdown complete")
}

// buildStore creates the configured telemetry store backend
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (telemetry.Store, func(), error) {
	switch cfg.StoreBackend {
	case "influx":
		client, err := influx.NewClient(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Error("Error closing InfluxDB client", "error", err)
			}
		}, nil
	case "timescale":
		client := timescale.NewClient(cfg, logger)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Disconnect(); err != nil {
				logger.Error("Error closing TimescaleDB client", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/ready", checker.ReadyHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
