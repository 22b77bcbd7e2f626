package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/common/model"

	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
)

// Action is the relabeling action to be performed.
type Action string

// All supported Action values. Anything else is rejected when the rule
// is compiled, so a message can never reach an unsupported action at
// runtime (fail closed at load time).
const (
	ActionReplace Action = "replace"
	ActionKeep    Action = "keep"
	ActionDrop    Action = "drop"
)

// ParseAction converts a configured action string to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionReplace, ActionKeep, ActionDrop:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Rule is one compiled relabeling step.
//
// Match decisions (keep, drop, and the gate on replace) use a
// start-anchored variant of the configured regex; the substitution for
// replace uses the regex as written, over the whole joined source value.
type Rule struct {
	Action       Action
	SourceLabels []string
	Separator    string
	TargetLabel  string
	Replacement  string

	re      *regexp.Regexp // as configured, for substitution
	matchRe *regexp.Regexp // start-anchored, for match decisions
}

// NewRule compiles and validates one relabel configuration.
//
// Invariants enforced:
//   - source_labels must not be empty
//   - replace requires a valid target_label
//   - keep and drop must not set target_label
func NewRule(cfg config.LabelConfig) (Rule, error) {
	action, err := ParseAction(cfg.Action)
	if err != nil {
		return Rule{}, err
	}

	if len(cfg.SourceLabels) == 0 {
		return Rule{}, fmt.Errorf("%w: 'source_labels' is required", ErrInvalidRule)
	}

	switch action {
	case ActionReplace:
		if cfg.TargetLabel == "" {
			return Rule{}, fmt.Errorf("%w: 'target_label' is required for action %q", ErrInvalidRule, action)
		}
		if !model.LabelName(cfg.TargetLabel).IsValid() {
			return Rule{}, fmt.Errorf("%w: %q is not a valid target_label", ErrInvalidRule, cfg.TargetLabel)
		}
	case ActionKeep, ActionDrop:
		if cfg.TargetLabel != "" {
			return Rule{}, fmt.Errorf("%w: 'target_label' must not be set for action %q", ErrInvalidRule, action)
		}
	}

	re, err := regexp.Compile(cfg.Regex)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: regex %q: %v", ErrInvalidRule, cfg.Regex, err)
	}
	matchRe, err := regexp.Compile("^(?:" + cfg.Regex + ")")
	if err != nil {
		return Rule{}, fmt.Errorf("%w: regex %q: %v", ErrInvalidRule, cfg.Regex, err)
	}

	return Rule{
		Action:       action,
		SourceLabels: cfg.SourceLabels,
		Separator:    cfg.Separator,
		TargetLabel:  cfg.TargetLabel,
		Replacement:  cfg.Replacement,
		re:           re,
		matchRe:      matchRe,
	}, nil
}

// join concatenates the rule's source label values with its separator.
// Absent labels contribute an empty string.
func (r Rule) join(labels LabelSet) string {
	values := make([]string, len(r.SourceLabels))
	for i, name := range r.SourceLabels {
		values[i] = labels[name]
	}
	return strings.Join(values, r.Separator)
}

// Apply runs the rules in configured order, mutating labels in place.
//
// Semantics per rule:
//   - replace: when the joined source value matches the regex, set
//     target_label to the regex substitution of the joined value; a
//     non-matching source leaves the target untouched. Never rejects.
//   - keep: reject the message unless the joined value matches.
//   - drop: reject the message when the joined value matches.
//
// Rejection short-circuits: remaining rules do not run.
//
// Returns:
//   - bool: true if the message survived all rules, false if rejected
func Apply(labels LabelSet, rules []Rule) bool {
	for _, r := range rules {
		joined := r.join(labels)
		switch r.Action {
		case ActionReplace:
			if r.matchRe.MatchString(joined) {
				labels[r.TargetLabel] = r.re.ReplaceAllString(joined, r.Replacement)
			}
		case ActionKeep:
			if !r.matchRe.MatchString(joined) {
				return false
			}
		case ActionDrop:
			if r.matchRe.MatchString(joined) {
				return false
			}
		default:
			// Unreachable for rules built with NewRule; reject anyway.
			return false
		}
	}
	return true
}
