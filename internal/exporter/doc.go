// Package exporter provides the HTTP server exposing the Prometheus
// scrape endpoint for the MQTT exporter.
//
// It serves /metrics from an injected prometheus.Registry, plus a
// /health endpoint and a minimal landing page. The server follows the
// same lifecycle pattern as the other components:
//
//	server, err := exporter.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package exporter
