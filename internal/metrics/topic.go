package metrics

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern matches observed MQTT topics against a configured subscription
// pattern. Literal patterns match by string equality; patterns containing
// wildcards are compiled once into an anchored regular expression.
//
// Wildcard semantics:
//   - "+" matches exactly one topic level (no "/")
//   - a trailing "/#" matches zero or more trailing levels, so "a/#"
//     matches "a", "a/b" and "a/b/c"
//   - "#" alone matches every topic
//
// Matching is anchored at both ends: pattern "home/kitchen" does not
// match topic "home/kitchen2".
type Pattern struct {
	raw string
	re  *regexp.Regexp // nil for literal patterns
}

// NewPattern compiles a topic pattern.
//
// A "#" anywhere other than a trailing "/#" (or the whole pattern) is
// rejected: the multi-level wildcard is only meaningful at the end of a
// subscription.
//
// Returns:
//   - Pattern: Compiled matcher
//   - error: ErrInvalidPattern if the pattern is empty or misuses "#"
func NewPattern(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, fmt.Errorf("%w: pattern cannot be empty", ErrInvalidPattern)
	}

	// No wildcards: literal match only, nothing to compile.
	if !strings.ContainsAny(pattern, "+#") {
		return Pattern{raw: pattern}, nil
	}

	if pattern == "#" {
		return Pattern{raw: pattern, re: regexp.MustCompile(`^.*$`)}, nil
	}

	base := pattern
	multiLevel := strings.HasSuffix(pattern, "/#")
	if multiLevel {
		base = strings.TrimSuffix(pattern, "/#")
	}
	if strings.Contains(base, "#") {
		return Pattern{}, fmt.Errorf("%w: %q ('#' is only valid as a trailing level)", ErrInvalidPattern, pattern)
	}

	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(base), `\+`, `[^/]+`)
	if multiLevel {
		expr += `(?:/.*)?`
	}
	expr += "$"

	return Pattern{raw: pattern, re: regexp.MustCompile(expr)}, nil
}

// Matches reports whether the observed topic matches the pattern.
//
// Exact string equality is always a match. Deterministic, no side effects;
// called once per (subscription, inbound topic) pair per message.
func (p Pattern) Matches(topic string) bool {
	if p.raw == topic {
		return true
	}
	if p.re == nil {
		return false
	}
	return p.re.MatchString(topic)
}

// String returns the configured pattern text.
func (p Pattern) String() string {
	return p.raw
}
