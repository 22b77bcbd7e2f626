package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/common/model"
)

// Reserved label names seeded on every inbound message. Labels with the
// double-underscore prefix are internal: they drive the relabeling
// pipeline and are stripped before export, except __topic__, which is
// renamed and kept.
const (
	// LabelTopic holds the configured topic pattern of the matched definition.
	LabelTopic = "__topic__"

	// LabelMsgTopic holds the actual topic the message arrived on.
	LabelMsgTopic = "__msg_topic__"

	// LabelValue holds the raw message payload text.
	LabelValue = "__value__"

	// ExportedTopicLabel is the exported rename of LabelTopic.
	ExportedTopicLabel = "topic"

	internalPrefix = "__"
)

// LabelSet maps label names to string values for one in-flight message.
// It is built per message and owned by the processing path; neither the
// matcher nor the pipeline retains it.
type LabelSet map[string]string

// NewLabelSet seeds the implicit labels for a message matched against a
// metric definition.
func NewLabelSet(pattern, topic string, payload []byte) LabelSet {
	return LabelSet{
		LabelTopic:    pattern,
		LabelMsgTopic: topic,
		LabelValue:    string(payload),
	}
}

// Value coerces the message payload to a number. A comma decimal
// separator is normalized to a dot first, so "3,5" parses as 3.5.
func (ls LabelSet) Value() (float64, error) {
	raw := ls[LabelValue]
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(raw, ",", ".")), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrValueNotNumeric, raw)
	}
	return v, nil
}

// Finalize returns the exportable label set: internal labels are
// stripped, and __topic__ is renamed to topic and retained. The payload
// value does not survive as a label; it becomes the sample value.
func (ls LabelSet) Finalize() LabelSet {
	out := make(LabelSet, len(ls))
	for name, value := range ls {
		if strings.HasPrefix(name, internalPrefix) {
			continue
		}
		out[name] = value
	}
	out[ExportedTopicLabel] = ls[LabelTopic]
	return out
}

// SeriesKey is the canonical identity of one time series within a
// metric: a fingerprint of the sorted label content. Two label sets with
// identical content produce the same key regardless of insertion order.
type SeriesKey uint64

// Key computes the SeriesKey for the label set.
func (ls LabelSet) Key() SeriesKey {
	m := make(model.LabelSet, len(ls))
	for name, value := range ls {
		m[model.LabelName(name)] = model.LabelValue(value)
	}
	return SeriesKey(m.Fingerprint())
}

// Sorted returns the label names in sorted order with values aligned by
// index. The returned slices are freshly allocated.
func (ls LabelSet) Sorted() (names, values []string) {
	names = make([]string, 0, len(ls))
	for name := range ls {
		names = append(names, name)
	}
	sort.Strings(names)

	values = make([]string, len(names))
	for i, name := range names {
		values[i] = ls[name]
	}
	return names, values
}
