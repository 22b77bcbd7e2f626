package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts the metric store to the Prometheus scrape path. On
// every scrape it walks the registered definitions and emits one sample
// per stored series, as const metrics built from the store's snapshot.
//
// Histogram and summary definitions are exposed with the same
// latest-value semantics as gauges (as untyped samples): this exporter
// stores one pass-through value per series, not bucketed observations.
// Configured bucket boundaries are carried as definition metadata only.
//
// The collector registers as an unchecked collector (Describe sends no
// descriptors) because the exported series, and even the set of derived
// definitions, grow at runtime.
type Collector struct {
	store  *Store
	logger Logger

	// warnedTypes tracks definitions already warned about at export
	// time, so a bad type logs once, not once per scrape.
	warnedTypes map[string]struct{}
	warnMu      sync.Mutex
}

// Interface guard.
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from the given store.
func NewCollector(store *Store) *Collector {
	return &Collector{
		store:       store,
		logger:      noopLogger{},
		warnedTypes: make(map[string]struct{}),
	}
}

// SetLogger sets the logger for the collector.
func (c *Collector) SetLogger(logger Logger) {
	c.logger = logger
}

// Describe implements prometheus.Collector. It intentionally sends
// nothing, making this an unchecked collector.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector. A definition with no stored
// series contributes nothing; a definition with an unmappable type is
// warned about and skipped. Neither case fails the scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, def := range c.store.Definitions() {
		valueType, ok := exportValueType(def.Type)
		if !ok {
			c.warnUnknownType(def)
			continue
		}

		for _, series := range c.store.Snapshot(def.Name) {
			desc := prometheus.NewDesc(def.Name, def.Help, series.LabelNames, nil)
			metric, err := prometheus.NewConstMetric(desc, valueType, series.Value, series.LabelValues...)
			if err != nil {
				c.logger.Warn("skipping unexportable series",
					"metric", def.Name,
					"error", err,
				)
				continue
			}
			ch <- metric
		}
	}
}

// exportValueType maps a definition's type to the exposition value type.
func exportValueType(t MetricType) (prometheus.ValueType, bool) {
	switch t {
	case TypeGauge:
		return prometheus.GaugeValue, true
	case TypeCounter:
		return prometheus.CounterValue, true
	case TypeHistogram, TypeSummary:
		// Pass-through latest-value semantics; see type comment.
		return prometheus.UntypedValue, true
	default:
		return 0, false
	}
}

// warnUnknownType logs an unknown-type definition once.
func (c *Collector) warnUnknownType(def *Definition) {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()

	if _, done := c.warnedTypes[def.Name]; done {
		return
	}
	c.warnedTypes[def.Name] = struct{}{}
	c.logger.Warn("metric has unknown type, not exported",
		"metric", def.Name,
		"type", def.Type.String(),
	)
}
