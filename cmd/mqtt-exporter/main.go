// MQTT Exporter - Prometheus metrics from MQTT messages.
//
// This is the main entry point for the exporter. It subscribes to the
// configured MQTT topic patterns, runs each message through per-metric
// relabeling rules, and exposes the resulting time series on an HTTP
// scrape endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/mqtt-exporter/internal/exporter"
	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-exporter/internal/metrics"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration path: a file or a directory of YAML fragments.
const defaultConfigPath = "conf"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MQTT exporter",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "metrics", len(cfg.Metrics))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Compile metric definitions
	defs, err := metrics.NewDefinitions(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("compiling metric definitions: %w", err)
	}
	log.Info("metric definitions compiled", "count", len(defs))

	// Wire the store, message bridge, and scrape collector
	store := metrics.NewStore()
	store.SetLogger(log)
	bridge := metrics.NewBridge(defs, store)
	bridge.SetLogger(log)

	collector := metrics.NewCollector(store)
	collector.SetLogger(log)

	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return fmt.Errorf("registering collector: %w", err)
	}
	if err := registerStartupGauge(registry); err != nil {
		return fmt.Errorf("registering startup gauge: %w", err)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Subscribe to every configured topic pattern
	qos := byte(cfg.MQTT.QoS)
	for _, pattern := range bridge.TopicPatterns() {
		if subErr := mqttClient.Subscribe(pattern, qos, bridge.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to %q: %w", pattern, subErr)
		}
		log.Info("subscribed", "topic", pattern, "qos", qos)
	}

	// Start the scrape endpoint
	server, err := exporter.New(exporter.Deps{
		Config:   cfg.Prometheus,
		Logger:   log,
		Registry: registry,
		MQTT:     mqttClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating exporter server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting exporter server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing exporter server", "error", closeErr)
		}
	}()
	log.Info("exporter listening",
		"address", fmt.Sprintf("%s:%d", cfg.Prometheus.Host, cfg.Prometheus.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies the MQTT connection and exporter server are up.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, server *exporter.Server) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := mqttClient.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := server.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("exporter: %w", err)
	}
	return nil
}

// registerStartupGauge registers the exporter's own startup timestamp
// gauge, labelled with the running version.
func registerStartupGauge(registry *prometheus.Registry) error {
	startup := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mqtt_exporter_timestamp",
		Help: "Startup time of the exporter in millis",
	}, []string{"exporter_version"})
	if err := registry.Register(startup); err != nil {
		return err
	}
	startup.WithLabelValues(version).Set(float64(time.Now().UnixMilli()))
	return nil
}

// getConfigPath returns the configuration path.
// Uses MQTTEXPORTER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MQTTEXPORTER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
