package metrics

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mqtt-exporter/internal/infrastructure/config"
)

func mustDefinition(t *testing.T, cfg config.MetricConfig) *Definition {
	t.Helper()
	def, err := NewDefinition(cfg)
	if err != nil {
		t.Fatalf("NewDefinition(%+v) error = %v", cfg, err)
	}
	return def
}

func TestStore_UpsertAndSnapshot(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)

	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "kitchen"}, 21.5)
	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "bedroom"}, 19.0)

	got := store.Snapshot(def.Name)
	if len(got) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(got))
	}
	if got[0].Value != 21.5 || got[1].Value != 19.0 {
		t.Errorf("values = [%v %v], want [21.5 19]", got[0].Value, got[1].Value)
	}
	if !reflect.DeepEqual(got[0].LabelNames, []string{"room", "topic"}) {
		t.Errorf("LabelNames = %v, want sorted [room topic]", got[0].LabelNames)
	}
	if !reflect.DeepEqual(got[0].LabelValues, []string{"kitchen", def.Topic}) {
		t.Errorf("LabelValues = %v", got[0].LabelValues)
	}
}

func TestStore_UpsertReplacesSameSeries(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)

	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "kitchen"}, 21.5)
	// Same label content, different construction order.
	store.Upsert(def, LabelSet{"room": "kitchen", "topic": def.Topic}, 22.0)

	got := store.Snapshot(def.Name)
	if len(got) != 1 {
		t.Fatalf("len(Snapshot()) = %d, want 1", len(got))
	}
	if got[0].Value != 22.0 {
		t.Errorf("value = %v, want 22", got[0].Value)
	}
}

func TestStore_SnapshotPreservesInsertionOrder(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)

	rooms := []string{"kitchen", "bedroom", "attic", "hall"}
	for i, room := range rooms {
		store.Upsert(def, LabelSet{"topic": def.Topic, "room": room}, float64(i))
	}
	// Updating an existing series must not move it.
	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "kitchen"}, 99)

	got := store.Snapshot(def.Name)
	if len(got) != len(rooms) {
		t.Fatalf("len(Snapshot()) = %d, want %d", len(got), len(rooms))
	}
	for i, room := range rooms {
		if got[i].LabelValues[0] != room {
			t.Errorf("position %d = %q, want %q", i, got[i].LabelValues[0], room)
		}
	}
	if got[0].Value != 99 {
		t.Errorf("updated series value = %v, want 99", got[0].Value)
	}
}

func TestStore_SnapshotUnknownMetric(t *testing.T) {
	store := NewStore()
	if got := store.Snapshot("no_such_metric"); got != nil {
		t.Errorf("Snapshot() = %v, want nil", got)
	}
}

func TestStore_DerivedLastReceived(t *testing.T) {
	store := NewStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	def := mustDefinition(t, validMetricConfig())
	store.Register(def)
	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "kitchen"}, 21.5)

	derivedName := def.Name + "_last_received"
	got := store.Snapshot(derivedName)
	if len(got) != 1 {
		t.Fatalf("len(Snapshot(%q)) = %d, want 1", derivedName, len(got))
	}
	if want := float64(now.UnixMilli()); got[0].Value != want {
		t.Errorf("value = %v, want %v", got[0].Value, want)
	}
	if !reflect.DeepEqual(got[0].LabelNames, []string{"topic"}) {
		t.Errorf("LabelNames = %v, want [topic]", got[0].LabelNames)
	}
	if got[0].LabelValues[0] != def.Topic {
		t.Errorf("topic label = %q, want %q", got[0].LabelValues[0], def.Topic)
	}

	var derived *Definition
	for _, d := range store.Definitions() {
		if d.Name == derivedName {
			derived = d
		}
	}
	if derived == nil {
		t.Fatal("derived definition not registered")
	}
	if derived.Type != TypeGauge {
		t.Errorf("derived type = %v, want gauge", derived.Type)
	}
	if derived.Help != fmt.Sprintf("Last received message for '%s'", def.Name) {
		t.Errorf("derived help = %q", derived.Help)
	}

	// A second update advances the timestamp without adding a series.
	now = now.Add(5 * time.Second)
	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "bedroom"}, 19.0)
	got = store.Snapshot(derivedName)
	if len(got) != 1 {
		t.Fatalf("len(Snapshot(%q)) = %d after second update, want 1", derivedName, len(got))
	}
	if want := float64(now.UnixMilli()); got[0].Value != want {
		t.Errorf("value after second update = %v, want %v", got[0].Value, want)
	}
}

func TestStore_RegisterIdempotent(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)
	store.Register(def)

	if got := len(store.Definitions()); got != 1 {
		t.Errorf("len(Definitions()) = %d, want 1", got)
	}
}

func TestStore_SeriesCount(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)

	if got := store.SeriesCount(); got != 0 {
		t.Errorf("SeriesCount() = %d, want 0", got)
	}

	store.Upsert(def, LabelSet{"topic": def.Topic, "room": "kitchen"}, 21.5)
	// One user series plus its derived last-received series.
	if got := store.SeriesCount(); got != 2 {
		t.Errorf("SeriesCount() = %d, want 2", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	def := mustDefinition(t, validMetricConfig())
	store.Register(def)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				room := fmt.Sprintf("room%d", i%10)
				store.Upsert(def, LabelSet{"topic": def.Topic, "room": room}, float64(w*100+i))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for _, series := range store.Snapshot(def.Name) {
					if len(series.LabelNames) != len(series.LabelValues) {
						t.Error("snapshot observed a torn series")
						return
					}
				}
				store.SeriesCount()
			}
		}()
	}
	wg.Wait()

	if got := store.Snapshot(def.Name); len(got) != 10 {
		t.Errorf("len(Snapshot()) = %d, want 10", len(got))
	}
}
