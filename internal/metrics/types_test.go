package metrics

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
)

func validMetricConfig() config.MetricConfig {
	return config.MetricConfig{
		Name:  "temperature",
		Help:  "Temperature reading",
		Type:  "gauge",
		Topic: "home/+/temperature",
	}
}

func TestParseMetricType(t *testing.T) {
	tests := []struct {
		input   string
		want    MetricType
		wantErr bool
	}{
		{input: "gauge", want: TypeGauge},
		{input: "counter", want: TypeCounter},
		{input: "histogram", want: TypeHistogram},
		{input: "summary", want: TypeSummary},
		{input: "Gauge", want: TypeGauge},
		{input: "untyped", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMetricType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMetricType(%q) expected error", tt.input)
				}
				if !errors.Is(err, ErrUnknownType) {
					t.Errorf("error = %v, want ErrUnknownType", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMetricType(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMetricType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDefinition(t *testing.T) {
	cfg := validMetricConfig()
	cfg.Buckets = "0.5, 1, 2.5"
	cfg.LabelConfigs = []config.LabelConfig{
		{
			SourceLabels: []string{"__msg_topic__"},
			Separator:    ";",
			Regex:        `home/(\w+)/temperature`,
			TargetLabel:  "room",
			Replacement:  "$1",
			Action:       "replace",
		},
	}

	def, err := NewDefinition(cfg)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}
	if def.Name != "temperature" || def.Type != TypeGauge {
		t.Errorf("definition = %+v", def)
	}
	if !reflect.DeepEqual(def.Buckets, []float64{0.5, 1, 2.5}) {
		t.Errorf("Buckets = %v, want [0.5 1 2.5]", def.Buckets)
	}
	if len(def.Rules) != 1 {
		t.Fatalf("Rules = %d, want 1", len(def.Rules))
	}
	if !def.Matches("home/kitchen/temperature") {
		t.Error("definition does not match its own topic pattern")
	}
	if def.Matches("garage/door") {
		t.Error("definition matches an unrelated topic")
	}
}

func TestNewDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.MetricConfig)
		wantErr error
	}{
		{
			name:    "missing name",
			mutate:  func(c *config.MetricConfig) { c.Name = "" },
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "missing help",
			mutate:  func(c *config.MetricConfig) { c.Help = "" },
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "missing type",
			mutate:  func(c *config.MetricConfig) { c.Type = "" },
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "missing topic",
			mutate:  func(c *config.MetricConfig) { c.Topic = "" },
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "invalid metric name",
			mutate:  func(c *config.MetricConfig) { c.Name = "9temp-reading" },
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "unknown type",
			mutate:  func(c *config.MetricConfig) { c.Type = "meter" },
			wantErr: ErrUnknownType,
		},
		{
			name:    "invalid topic pattern",
			mutate:  func(c *config.MetricConfig) { c.Topic = "a/#/b" },
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "invalid buckets",
			mutate:  func(c *config.MetricConfig) { c.Buckets = "0.5,abc" },
			wantErr: ErrInvalidBuckets,
		},
		{
			name: "invalid relabel rule",
			mutate: func(c *config.MetricConfig) {
				c.LabelConfigs = []config.LabelConfig{{
					SourceLabels: []string{"__topic__"},
					Regex:        ".*",
					Action:       "uppercase",
				}}
			},
			wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validMetricConfig()
			tt.mutate(&cfg)
			_, err := NewDefinition(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDefinitions_DuplicateNameLastWins(t *testing.T) {
	first := validMetricConfig()
	other := validMetricConfig()
	other.Name = "humidity"
	other.Help = "Humidity reading"
	other.Topic = "home/+/humidity"
	override := validMetricConfig()
	override.Help = "Replacement definition"
	override.Topic = "attic/+/temperature"

	defs, err := NewDefinitions([]config.MetricConfig{first, other, override})
	if err != nil {
		t.Fatalf("NewDefinitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "temperature" || defs[1].Name != "humidity" {
		t.Errorf("order = [%s %s], want [temperature humidity]", defs[0].Name, defs[1].Name)
	}
	if defs[0].Help != "Replacement definition" {
		t.Errorf("duplicate did not replace earlier definition: Help = %q", defs[0].Help)
	}
	if defs[0].Topic != "attic/+/temperature" {
		t.Errorf("Topic = %q, want the overriding topic", defs[0].Topic)
	}
}
