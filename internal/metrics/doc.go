// Package metrics implements the relabeling-and-aggregation engine of
// the MQTT exporter.
//
// # Architecture
//
//	                 ┌──────────────────────────────────────────────┐
//	                 │                   metrics                    │
//	                 │                                              │
//	 MQTT message ──▶│  Bridge ──▶ Pattern ──▶ Rules ──▶ Store      │
//	 (topic,payload) │  (bridge.go) (topic.go) (relabel.go)         │
//	                 │                              │               │
//	                 │                              ▼               │
//	 /metrics scrape ◀── Collector ◀──────────── Snapshot           │
//	                 │   (collector.go)            (store.go)       │
//	                 └──────────────────────────────────────────────┘
//
// Inbound messages are matched against the configured topic patterns,
// their derived label sets transformed by each matching definition's
// ordered relabel rules (replace, keep, drop), the payload coerced to a
// number, and the result stored as the current value of the series
// identified by its label content. Every accepted update also stamps a
// derived "<name>_last_received" gauge. On scrape, the Collector turns
// the store's current state into const metrics.
//
// # Key Types
//
//   - Definition: immutable identity of one configured metric
//   - Rule: one compiled relabeling step
//   - LabelSet: per-message label mapping
//   - Store: thread-safe latest-value registry, shared by both paths
//   - Bridge: the message-handling path
//   - Collector: the scrape path (prometheus.Collector)
//
// # Thread Safety
//
// Pattern, Rule and Definition are immutable after compilation. The
// Store serializes writes against concurrent scrape reads with a
// read-write mutex; a scrape never observes a torn series entry.
//
// # Error Handling
//
// Configuration problems (bad type, bad action, bad regex, bad topic
// pattern) surface when definitions are compiled and abort startup.
// Per-message problems (rules rejecting, non-numeric payload) are
// logged and drop that single message; they never affect other
// messages, the store, or scrape availability.
package metrics
