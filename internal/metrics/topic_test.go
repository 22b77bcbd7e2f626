package metrics

import (
	"errors"
	"testing"
)

func TestPattern_Matches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		want    bool
	}{
		{
			name:    "exact match without wildcards",
			pattern: "home/kitchen/temp",
			topic:   "home/kitchen/temp",
			want:    true,
		},
		{
			name:    "literal mismatch without wildcards",
			pattern: "home/kitchen/temp",
			topic:   "home/bedroom/temp",
			want:    false,
		},
		{
			name:    "literal prefix is not a match",
			pattern: "a",
			topic:   "ab",
			want:    false,
		},
		{
			name:    "single-level wildcard matches one level",
			pattern: "sensors/+/temp",
			topic:   "sensors/kitchen/temp",
			want:    true,
		},
		{
			name:    "single-level wildcard does not span levels",
			pattern: "sensors/+/temp",
			topic:   "sensors/kitchen/sub/temp",
			want:    false,
		},
		{
			name:    "single-level wildcard does not match empty trailing level",
			pattern: "sensors/+",
			topic:   "sensors",
			want:    false,
		},
		{
			name:    "wildcard pattern anchored at end",
			pattern: "sensors/+/temp",
			topic:   "sensors/kitchen/temperature",
			want:    false,
		},
		{
			name:    "multi-level wildcard matches deep topics",
			pattern: "sensors/#",
			topic:   "sensors/a/b/c",
			want:    true,
		},
		{
			name:    "multi-level wildcard matches parent level",
			pattern: "sensors/#",
			topic:   "sensors",
			want:    true,
		},
		{
			name:    "multi-level wildcard does not match sibling prefix",
			pattern: "sensors/#",
			topic:   "sensorsX/a",
			want:    false,
		},
		{
			name:    "bare multi-level wildcard matches everything",
			pattern: "#",
			topic:   "any/topic/at/all",
			want:    true,
		},
		{
			name:    "combined wildcards",
			pattern: "home/+/sensors/#",
			topic:   "home/attic/sensors/temp/raw",
			want:    true,
		},
		{
			name:    "regex metacharacters in pattern are literal",
			pattern: "home/a.c/temp",
			topic:   "home/abc/temp",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPattern(tt.pattern)
			if err != nil {
				t.Fatalf("NewPattern(%q) error = %v", tt.pattern, err)
			}
			if got := p.Matches(tt.topic); got != tt.want {
				t.Errorf("Pattern(%q).Matches(%q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestNewPattern_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "empty pattern", pattern: ""},
		{name: "hash mid-pattern", pattern: "a/#/b"},
		{name: "hash glued to level", pattern: "a/b#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPattern(tt.pattern)
			if err == nil {
				t.Fatalf("NewPattern(%q) expected error, got nil", tt.pattern)
			}
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("NewPattern(%q) error = %v, want ErrInvalidPattern", tt.pattern, err)
			}
		})
	}
}

func TestPattern_String(t *testing.T) {
	p, err := NewPattern("home/+/temp")
	if err != nil {
		t.Fatalf("NewPattern() error = %v", err)
	}
	if p.String() != "home/+/temp" {
		t.Errorf("String() = %q, want home/+/temp", p.String())
	}
}
