package factsystest

import (
	"context"
	"testing"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/groundstation/factsys/layer"
)

// LayerFactory creates a Layer holding data. It is called once per test case.
type LayerFactory func(t testing.TB, data map[string]any) layer.Layer

// LayerTesterOption configures a LayerTester.
type LayerTesterOption func(*LayerTester)

// SkipWatchTest skips the watcher lifecycle tests.
func SkipWatchTest(reason string) LayerTesterOption {
	return func(lt *LayerTester) {
		lt.skipWatch = reason
	}
}

// LayerTester verifies Layer implementations against parameter documents.
type LayerTester struct {
	t         *testing.T
	factory   LayerFactory
	skipWatch string
}

// NewLayerTester returns a LayerTester for factory.
func NewLayerTester(t *testing.T, factory LayerFactory, opts ...LayerTesterOption) *LayerTester {
	lt := &LayerTester{t: t, factory: factory}
	for _, opt := range opts {
		opt(lt)
	}
	return lt
}

// TestAll runs every layer test. Save tests are skipped for layers whose
// CanSave returns false.
func (lt *LayerTester) TestAll() {
	lt.t.Run("Load", lt.testLoad)
	lt.t.Run("LoadEmpty", lt.testLoadEmpty)
	lt.t.Run("Save", lt.testSave)
	lt.t.Run("SaveEmptyChangeset", lt.testSaveEmptyChangeset)
	lt.t.Run("Watch", lt.testWatch)
}

func sampleParameters() map[string]any {
	return map[string]any{
		"1": map[string]any{
			"RTL_ALT":      100,
			"FENCE_ENABLE": true,
			"WP_RADIUS":    2.5,
			"VEHICLE_NAME": "alpha",
		},
		"250": map[string]any{
			"SYSID_THISMAV": 1,
		},
	}
}

// expectLeaves checks that every leaf of want is present in got.
func expectLeaves(t *testing.T, got, want map[string]any) {
	t.Helper()
	jsonptr.WalkLeaves(want, func(pointer string, w any) {
		g, ok := jsonptr.GetPath(got, pointer)
		if !ok {
			t.Errorf("%s missing from %v", pointer, got)
			return
		}
		check(t, valuesEqual(g, w), "%s = %v (%T), want %v", pointer, g, g, w)
	})
}

func countLeaves(data map[string]any) int {
	n := 0
	jsonptr.WalkLeaves(data, func(string, any) { n++ })
	return n
}

func (lt *LayerTester) testLoad(t *testing.T) {
	want := sampleParameters()
	l := lt.factory(t, want)
	require(t, l.Name() != "", "Name() returned empty string")

	got, err := l.Load(context.Background())
	requireNoError(t, err, "Load() error = %v", err)
	expectLeaves(t, got, want)
	check(t, countLeaves(got) == countLeaves(want), "Load() has %d leaves, want %d: %v", countLeaves(got), countLeaves(want), got)
}

func (lt *LayerTester) testLoadEmpty(t *testing.T) {
	for name, data := range map[string]map[string]any{"empty_map": {}, "nil_map": nil} {
		t.Run(name, func(t *testing.T) {
			got, err := lt.factory(t, data).Load(context.Background())
			requireNoError(t, err, "Load() error = %v", err)
			check(t, countLeaves(got) == 0, "Load() = %v, want no values", got)
		})
	}
}

// saveAndLoad saves changeset and returns the reloaded data.
func saveAndLoad(t *testing.T, l layer.Layer, changeset document.JSONPatchSet) map[string]any {
	t.Helper()
	ctx := context.Background()
	_, err := l.Load(ctx)
	requireNoError(t, err, "Load() error = %v", err)
	err = l.Save(ctx, changeset)
	requireNoError(t, err, "Save() error = %v", err)
	got, err := l.Load(ctx)
	requireNoError(t, err, "Load() after Save error = %v", err)
	return got
}

func (lt *LayerTester) testSave(t *testing.T) {
	if !lt.factory(t, nil).CanSave() {
		t.Skip("layer does not support saving")
	}

	t.Run("Add", func(t *testing.T) {
		var ps document.JSONPatchSet
		ps.Add("/1/BATT_CAPACITY", 3300)
		got := saveAndLoad(t, lt.factory(t, sampleParameters()), ps)
		expectLeaves(t, got, map[string]any{"1": map[string]any{"BATT_CAPACITY": 3300, "RTL_ALT": 100}})
	})

	t.Run("Replace", func(t *testing.T) {
		var ps document.JSONPatchSet
		ps.Replace("/1/RTL_ALT", 150)
		ps.Replace("/1/VEHICLE_NAME", "bravo")
		got := saveAndLoad(t, lt.factory(t, sampleParameters()), ps)
		expectLeaves(t, got, map[string]any{"1": map[string]any{"RTL_ALT": 150, "VEHICLE_NAME": "bravo", "FENCE_ENABLE": true}})
	})

	t.Run("Remove", func(t *testing.T) {
		var ps document.JSONPatchSet
		ps.Remove("/1/FENCE_ENABLE")
		got := saveAndLoad(t, lt.factory(t, sampleParameters()), ps)
		_, ok := jsonptr.GetPath(got, "/1/FENCE_ENABLE")
		check(t, !ok, "/1/FENCE_ENABLE still present after Remove: %v", got)
		expectLeaves(t, got, map[string]any{"250": map[string]any{"SYSID_THISMAV": 1}})
	})

	t.Run("NewComponent", func(t *testing.T) {
		var ps document.JSONPatchSet
		ps.Add("/3/CAM_TRIGG_DIST", 25)
		got := saveAndLoad(t, lt.factory(t, sampleParameters()), ps)
		expectLeaves(t, got, map[string]any{"3": map[string]any{"CAM_TRIGG_DIST": 25}, "1": map[string]any{"RTL_ALT": 100}})
	})

	t.Run("EmptyInput", func(t *testing.T) {
		var ps document.JSONPatchSet
		ps.Add("/1/RTL_ALT", 80)
		got := saveAndLoad(t, lt.factory(t, nil), ps)
		expectLeaves(t, got, map[string]any{"1": map[string]any{"RTL_ALT": 80}})
	})
}

func (lt *LayerTester) testSaveEmptyChangeset(t *testing.T) {
	if !lt.factory(t, nil).CanSave() {
		t.Skip("layer does not support saving")
	}
	want := sampleParameters()
	got := saveAndLoad(t, lt.factory(t, want), nil)
	expectLeaves(t, got, want)
}

func (lt *LayerTester) testWatch(t *testing.T) {
	if lt.skipWatch != "" {
		t.Skip(lt.skipWatch)
	}
	ctx := context.Background()

	t.Run("StartStop", func(t *testing.T) {
		w, err := lt.factory(t, sampleParameters()).Watch()
		requireNoError(t, err, "Watch() error = %v", err)
		require(t, w.Results() != nil, "Results() returned nil")
		requireNoError(t, w.Start(ctx), "Start() error")
		check(t, w.Stop(ctx) == nil, "Stop() returned an error")
		check(t, w.Stop(ctx) == nil, "second Stop() returned an error")
	})

	t.Run("StopWithoutStart", func(t *testing.T) {
		w, err := lt.factory(t, sampleParameters()).Watch()
		requireNoError(t, err, "Watch() error = %v", err)
		check(t, w.Stop(ctx) == nil, "Stop() before Start returned an error")
		_, open := <-w.Results()
		check(t, !open, "Results() still open after Stop")
	})
}
