package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the MQTT exporter.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    []MetricConfig   `yaml:"metrics"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// PrometheusConfig contains the scrape endpoint settings.
type PrometheusConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"exporter_port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricConfig describes one user-defined metric: where its updates come
// from (an MQTT topic pattern) and how message labels are transformed
// before export. Semantic validation of the relabel rules happens in the
// metrics package when definitions are compiled; this type only carries
// the raw configuration.
type MetricConfig struct {
	Name         string        `yaml:"name"`
	Help         string        `yaml:"help"`
	Type         string        `yaml:"type"`
	Topic        string        `yaml:"topic"`
	Buckets      string        `yaml:"buckets"`
	LabelConfigs []LabelConfig `yaml:"label_configs"`
}

// LabelConfig describes one relabeling step applied to a message's label set.
type LabelConfig struct {
	SourceLabels []string `yaml:"source_labels"`
	Separator    string   `yaml:"separator"`
	Regex        string   `yaml:"regex"`
	TargetLabel  string   `yaml:"target_label"`
	Replacement  string   `yaml:"replacement"`
	Action       string   `yaml:"action"`
}

// Relabel rule defaults, matching the conventional relabeling semantics.
const (
	DefaultSeparator   = ";"
	DefaultRegex       = "^(.*)$"
	DefaultReplacement = "$1"
	DefaultAction      = "replace"
)

// Load reads configuration from a YAML file or directory and applies
// environment variable overrides.
//
// When path is a directory, every *.yaml / *.yml file in it is loaded in
// lexical order. Scalar sections from later files override earlier ones;
// metric definitions from all files are concatenated.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MQTTEXPORTER_SECTION_KEY
// For example: MQTTEXPORTER_MQTT_HOST, MQTTEXPORTER_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to a YAML configuration file or directory
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the path cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading config path: %w", err)
	}

	if info.IsDir() {
		if err := loadDirectory(cfg, path); err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyMetricDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDirectory merges every YAML file in dir into cfg.
func loadDirectory(cfg *Config, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading config directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no YAML files found in config directory %s", dir)
	}
	sort.Strings(files)

	// Metric lists accumulate across files; everything else is
	// override-on-presence, which sequential unmarshalling gives us.
	var metrics []MetricConfig
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading config file %s: %w", f, err)
		}
		cfg.Metrics = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", f, err)
		}
		metrics = append(metrics, cfg.Metrics...)
	}
	cfg.Metrics = metrics

	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Prometheus: PrometheusConfig{
			Host: "0.0.0.0",
			Port: 9344,
			Timeouts: TimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyMetricDefaults fills unset relabel rule fields with their defaults.
func applyMetricDefaults(cfg *Config) {
	for mi := range cfg.Metrics {
		for li := range cfg.Metrics[mi].LabelConfigs {
			lc := &cfg.Metrics[mi].LabelConfigs[li]
			if lc.Separator == "" {
				lc.Separator = DefaultSeparator
			}
			if lc.Regex == "" {
				lc.Regex = DefaultRegex
			}
			if lc.Replacement == "" {
				lc.Replacement = DefaultReplacement
			}
			if lc.Action == "" {
				lc.Action = DefaultAction
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MQTTEXPORTER_SECTION_KEY
// A non-numeric port value is ignored and the file value kept; range
// checks still run in Validate.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MQTTEXPORTER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTTEXPORTER_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MQTTEXPORTER_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("MQTTEXPORTER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTTEXPORTER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("MQTTEXPORTER_PROMETHEUS_HOST"); v != "" {
		cfg.Prometheus.Host = v
	}
	if v := os.Getenv("MQTTEXPORTER_PROMETHEUS_EXPORTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Prometheus.Port = port
		}
	}
}

// Validate checks the configuration for errors.
//
// Metric definitions are only checked for presence here; their semantics
// (type, relabel actions, regexes) are validated when they are compiled
// into the metric store. Both kinds of failure are fatal at startup.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Prometheus.Port < 1 || c.Prometheus.Port > 65535 {
		errs = append(errs, "prometheus.exporter_port must be between 1 and 65535")
	}

	if len(c.Metrics) == 0 {
		errs = append(errs, "no metrics defined")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the exporter read timeout as a Duration.
func (c PrometheusConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the exporter write timeout as a Duration.
func (c PrometheusConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the exporter idle timeout as a Duration.
func (c PrometheusConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
