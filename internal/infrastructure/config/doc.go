// Package config handles loading and validating MQTT exporter configuration.
//
// This package manages:
//   - Loading configuration from a YAML file or a directory of YAML files
//   - Overriding with environment variables
//   - Default value handling, including relabel rule defaults
//   - Validation of the transport and exporter sections
//
// Metric definitions are carried as raw configuration records; the metrics
// package compiles and validates them at startup. Any validation failure,
// in either package, aborts startup before the exporter serves traffic.
//
// Security Considerations:
//   - Broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("conf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Prometheus.Port)
package config
