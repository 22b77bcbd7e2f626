package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/common/model"

	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
)

// MetricType is the closed set of supported exposition types, resolved
// once at configuration load so the export path never compares strings.
type MetricType int

// All supported metric types.
const (
	TypeGauge MetricType = iota
	TypeCounter
	TypeHistogram
	TypeSummary
)

// ParseMetricType converts a configured type string to a MetricType.
func ParseMetricType(s string) (MetricType, error) {
	switch strings.ToLower(s) {
	case "gauge":
		return TypeGauge, nil
	case "counter":
		return TypeCounter, nil
	case "histogram":
		return TypeHistogram, nil
	case "summary":
		return TypeSummary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// String returns the configuration spelling of the metric type.
func (t MetricType) String() string {
	switch t {
	case TypeGauge:
		return "gauge"
	case TypeCounter:
		return "counter"
	case TypeHistogram:
		return "histogram"
	case TypeSummary:
		return "summary"
	default:
		return fmt.Sprintf("MetricType(%d)", int(t))
	}
}

// Definition is the immutable identity of one configured metric: its
// name, help text, type, topic pattern, optional histogram bucket
// boundaries, and the ordered relabel rules applied to every matching
// message. Definitions are compiled from configuration at startup and
// never mutated afterwards.
type Definition struct {
	Name    string
	Help    string
	Type    MetricType
	Topic   string
	Buckets []float64
	Rules   []Rule

	pattern Pattern

	// derived marks the synthetic last-received sibling of a user
	// definition. Derived definitions never spawn further siblings.
	derived bool
}

// Matches reports whether an observed topic matches the definition's
// configured pattern.
func (d *Definition) Matches(topic string) bool {
	return d.pattern.Matches(topic)
}

// NewDefinition compiles and validates one metric configuration.
//
// Required fields: name, help, type, topic. The metric name must be a
// valid exposition name, the type one of gauge, counter, histogram,
// summary, and every relabel rule must compile. Any failure here is a
// configuration error and fatal at startup.
func NewDefinition(cfg config.MetricConfig) (*Definition, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: 'name' is a required field", ErrInvalidDefinition)
	}
	if cfg.Help == "" {
		return nil, fmt.Errorf("%w: 'help' is a required field for metric %q", ErrInvalidDefinition, cfg.Name)
	}
	if cfg.Type == "" {
		return nil, fmt.Errorf("%w: 'type' is a required field for metric %q", ErrInvalidDefinition, cfg.Name)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: 'topic' is a required field for metric %q", ErrInvalidDefinition, cfg.Name)
	}
	if !model.IsValidMetricName(model.LabelValue(cfg.Name)) {
		return nil, fmt.Errorf("%w: %q is not a valid metric name", ErrInvalidDefinition, cfg.Name)
	}

	metricType, err := ParseMetricType(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", cfg.Name, err)
	}

	pattern, err := NewPattern(cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", cfg.Name, err)
	}

	buckets, err := parseBuckets(cfg.Buckets)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", cfg.Name, err)
	}

	rules := make([]Rule, 0, len(cfg.LabelConfigs))
	for i, lc := range cfg.LabelConfigs {
		rule, err := NewRule(lc)
		if err != nil {
			return nil, fmt.Errorf("metric %q: label_configs[%d]: %w", cfg.Name, i, err)
		}
		rules = append(rules, rule)
	}

	return &Definition{
		Name:    cfg.Name,
		Help:    cfg.Help,
		Type:    metricType,
		Topic:   cfg.Topic,
		Buckets: buckets,
		Rules:   rules,
		pattern: pattern,
	}, nil
}

// NewDefinitions compiles all metric configurations. A later definition
// with the same name replaces an earlier one, keeping the earlier
// position.
func NewDefinitions(cfgs []config.MetricConfig) ([]*Definition, error) {
	defs := make([]*Definition, 0, len(cfgs))
	index := make(map[string]int, len(cfgs))

	for _, cfg := range cfgs {
		def, err := NewDefinition(cfg)
		if err != nil {
			return nil, err
		}
		if i, seen := index[def.Name]; seen {
			defs[i] = def
			continue
		}
		index[def.Name] = len(defs)
		defs = append(defs, def)
	}

	return defs, nil
}

// parseBuckets parses comma-separated histogram bucket boundaries.
// An empty string yields no buckets.
func parseBuckets(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	buckets := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBuckets, part)
		}
		buckets = append(buckets, f)
	}
	return buckets, nil
}
