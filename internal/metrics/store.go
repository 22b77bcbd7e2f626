package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the store, bridge, and
// collector. This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Series is one stored time series: its label content in sorted order
// and the latest observed value.
type Series struct {
	LabelNames  []string
	LabelValues []string
	Value       float64
}

// seriesMap holds the stored series of one definition. Keys track
// insertion order so snapshots are deterministic.
type seriesMap struct {
	def     *Definition
	entries map[SeriesKey]Series
	order   []SeriesKey
}

// Store is the in-memory registry of metric definitions and the latest
// value of every series observed for them. It is constructed once at
// startup and shared by the message-handling path (writes) and the
// scrape path (reads).
//
// Each accepted update also feeds the definition's derived
// "<name>_last_received" gauge, created lazily on first use.
//
// Stored series never expire; the set of label combinations grows
// monotonically for the lifetime of the process.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A single RWMutex guards
//     the whole store: upserts take the write lock, snapshots the read
//     lock, so a scrape can never observe a partially written entry.
type Store struct {
	mu   sync.RWMutex
	defs []*Definition
	data map[string]*seriesMap

	logger Logger

	// now is replaceable in tests for deterministic timestamps.
	now func() time.Time
}

// NewStore creates an empty metric store.
func NewStore() *Store {
	return &Store{
		data:   make(map[string]*seriesMap),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Register adds compiled definitions to the store. Called once at
// startup, before any messages flow.
func (s *Store) Register(defs ...*Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range defs {
		if _, exists := s.data[def.Name]; exists {
			continue
		}
		s.defs = append(s.defs, def)
		s.data[def.Name] = &seriesMap{
			def:     def,
			entries: make(map[SeriesKey]Series),
		}
	}
}

// Upsert stores value as the current value of the series identified by
// the label content, replacing any previous entry atomically. The
// definition's derived last-received gauge is updated in the same
// critical section, stamped with the current time in epoch milliseconds.
func (s *Store) Upsert(def *Definition, labels LabelSet, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(def, labels, value)

	if def.derived {
		return
	}
	derived := s.ensureDerivedLocked(def)
	s.upsertLocked(derived, LabelSet{ExportedTopicLabel: def.Topic}, float64(s.now().UnixMilli()))
}

// upsertLocked writes one series entry. Caller holds the write lock.
func (s *Store) upsertLocked(def *Definition, labels LabelSet, value float64) {
	sm, ok := s.data[def.Name]
	if !ok {
		// Unregistered definition: register on the fly rather than drop
		// the update.
		sm = &seriesMap{def: def, entries: make(map[SeriesKey]Series)}
		s.defs = append(s.defs, def)
		s.data[def.Name] = sm
	}

	names, values := labels.Sorted()
	key := labels.Key()
	if _, seen := sm.entries[key]; !seen {
		sm.order = append(sm.order, key)
	}
	sm.entries[key] = Series{
		LabelNames:  names,
		LabelValues: values,
		Value:       value,
	}

	s.logger.Debug("series updated",
		"metric", def.Name,
		"value", value,
		"series", len(sm.entries),
	)
}

// ensureDerivedLocked returns the derived last-received definition for a
// user definition, creating and registering it on first use. Caller
// holds the write lock.
func (s *Store) ensureDerivedLocked(def *Definition) *Definition {
	name := def.Name + "_last_received"
	if sm, ok := s.data[name]; ok {
		return sm.def
	}

	derived := &Definition{
		Name:    name,
		Help:    fmt.Sprintf("Last received message for '%s'", def.Name),
		Type:    TypeGauge,
		Topic:   def.Topic,
		derived: true,
	}
	s.defs = append(s.defs, derived)
	s.data[name] = &seriesMap{
		def:     derived,
		entries: make(map[SeriesKey]Series),
	}
	return derived
}

// Definitions returns all registered definitions, user-defined and
// derived, in registration order.
func (s *Store) Definitions() []*Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Snapshot returns the stored series of one definition in insertion
// order. The snapshot is consistent per entry: an in-flight upsert is
// either fully visible or not at all. Entries observed across one scrape
// need not be mutually consistent.
//
// The label slices inside each Series are never mutated after an upsert
// publishes them, so sharing them with callers is safe.
func (s *Store) Snapshot(name string) []Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sm, ok := s.data[name]
	if !ok || len(sm.order) == 0 {
		return nil
	}

	out := make([]Series, 0, len(sm.order))
	for _, key := range sm.order {
		out = append(out, sm.entries[key])
	}
	return out
}

// SeriesCount returns the total number of stored series across all
// definitions. Useful for monitoring the store's monotonic growth.
func (s *Store) SeriesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, sm := range s.data {
		total += len(sm.entries)
	}
	return total
}
