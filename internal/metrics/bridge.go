package metrics

import "sort"

// patternGroup holds the definitions sharing one configured topic
// pattern, with the pattern compiled once for the group.
type patternGroup struct {
	pattern Pattern
	defs    []*Definition
}

// Bridge connects the inbound MQTT message stream to the metric store.
//
// For every message it selects the definitions whose topic pattern
// matches, runs each definition's relabel rules, coerces the payload to
// a number, and upserts the result. A message rejected for one
// definition still updates the others; no failure on this path ever
// propagates beyond the single message.
//
// The bridge holds no per-message state and is safe for use as an MQTT
// message handler. The upstream client delivers messages one at a time,
// so writes to the store are naturally serialized.
type Bridge struct {
	groups []patternGroup
	store  *Store
	logger Logger
}

// NewBridge groups definitions by topic pattern, registers them with
// the store, and returns the message-handling bridge.
func NewBridge(defs []*Definition, store *Store) *Bridge {
	store.Register(defs...)

	byPattern := make(map[string][]*Definition)
	var patterns []string
	for _, def := range defs {
		if _, seen := byPattern[def.Topic]; !seen {
			patterns = append(patterns, def.Topic)
		}
		byPattern[def.Topic] = append(byPattern[def.Topic], def)
	}
	sort.Strings(patterns)

	groups := make([]patternGroup, 0, len(patterns))
	for _, p := range patterns {
		group := byPattern[p]
		groups = append(groups, patternGroup{
			pattern: group[0].pattern,
			defs:    group,
		})
	}

	return &Bridge{
		groups: groups,
		store:  store,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// TopicPatterns returns the distinct configured topic patterns, sorted.
// This is the subscription set the transport should subscribe to.
func (b *Bridge) TopicPatterns() []string {
	patterns := make([]string, len(b.groups))
	for i, g := range b.groups {
		patterns[i] = g.pattern.String()
	}
	return patterns
}

// HandleMessage processes one inbound message. It matches the topic
// against every configured pattern and updates all definitions in the
// matching groups. The returned error is always nil: per-message
// failures are logged and contained here, matching the transport's
// MessageHandler contract.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	for _, group := range b.groups {
		if !group.pattern.Matches(topic) {
			continue
		}
		for _, def := range group.defs {
			b.update(def, topic, payload)
		}
	}
	return nil
}

// update applies one definition's pipeline to a message and upserts the
// result. Rejections are logged and swallowed.
func (b *Bridge) update(def *Definition, topic string, payload []byte) {
	labels := NewLabelSet(def.Topic, topic, payload)

	if !Apply(labels, def.Rules) {
		b.logger.Debug("message rejected by relabel rules",
			"metric", def.Name,
			"topic", topic,
		)
		return
	}

	value, err := labels.Value()
	if err != nil {
		b.logger.Warn("message payload is not numeric",
			"metric", def.Name,
			"topic", topic,
			"error", err,
		)
		return
	}

	b.store.Upsert(def, labels.Finalize(), value)
}
