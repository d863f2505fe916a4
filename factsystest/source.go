package factsystest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/watcher"
)

// testInitParams returns WatcherInitializerParams with a dummy fetch
// function and a real mutex.
func testInitParams() watcher.WatcherInitializerParams {
	var mu sync.Mutex
	return watcher.WatcherInitializerParams{
		Fetch: func(ctx context.Context) (bool, []byte, error) {
			return true, nil, nil
		},
		OpMu:   &mu,
		Config: watcher.NewWatchConfig(),
	}
}

// SourceFactory creates a Source initialized with data.
// The factory is called for each test case to ensure test isolation.
type SourceFactory func(t testing.TB, data []byte) source.Source

// SourceTester verifies Source implementations.
type SourceTester struct {
	t       *testing.T
	factory SourceFactory
}

// NewSourceTester returns a SourceTester for factory.
func NewSourceTester(t *testing.T, factory SourceFactory) *SourceTester {
	return &SourceTester{t: t, factory: factory}
}

// TestAll runs every source test.
func (st *SourceTester) TestAll() {
	st.t.Run("Type", st.testType)
	st.t.Run("Load", st.testLoad)
	st.t.Run("CanSave", st.testCanSave)
	st.t.Run("SaveRoundTrip", st.testSaveRoundTrip)
	st.t.Run("Watch", st.testWatch)
}

const sampleDocument = `{"1":{"RTL_ALT":100}}`

func (st *SourceTester) testType(t *testing.T) {
	s := st.factory(t, []byte(sampleDocument))
	require(t, s.Type() != "", "Type() returned empty string")
}

func (st *SourceTester) testLoad(t *testing.T) {
	s := st.factory(t, []byte(sampleDocument))
	data, err := s.Load(context.Background())
	requireNoError(t, err, "Load() error = %v", err)
	check(t, string(data) == sampleDocument, "Load() = %q, want %q", data, sampleDocument)
}

// testCanSave verifies CanSave is consistent with Save.
func (st *SourceTester) testCanSave(t *testing.T) {
	s := st.factory(t, []byte(sampleDocument))
	ctx := context.Background()
	_, err := s.Load(ctx)
	requireNoError(t, err, "Load() error = %v", err)

	err = s.Save(ctx, func(current []byte) ([]byte, error) {
		return []byte(`{"1":{"RTL_ALT":120}}`), nil
	})
	if s.CanSave() {
		check(t, !errors.Is(err, source.ErrSaveNotSupported),
			"CanSave() returned true but Save() returned ErrSaveNotSupported")
	} else {
		check(t, errors.Is(err, source.ErrSaveNotSupported),
			"CanSave() returned false but Save() did not return ErrSaveNotSupported, got %v", err)
	}
}

// testSaveRoundTrip verifies Save hands the current bytes to the update
// function and Load returns what it wrote.
func (st *SourceTester) testSaveRoundTrip(t *testing.T) {
	s := st.factory(t, []byte(sampleDocument))
	if !s.CanSave() {
		t.Skip("source does not support saving")
	}
	ctx := context.Background()
	_, err := s.Load(ctx)
	requireNoError(t, err, "Load() error = %v", err)

	const next = `{"1":{"RTL_ALT":150}}`
	err = s.Save(ctx, func(current []byte) ([]byte, error) {
		check(t, string(current) == sampleDocument, "updateFunc current = %q, want %q", current, sampleDocument)
		return []byte(next), nil
	})
	requireNoError(t, err, "Save() error = %v", err)

	data, err := s.Load(ctx)
	requireNoError(t, err, "Load() after Save error = %v", err)
	check(t, string(data) == next, "Load() after Save = %q, want %q", data, next)

	failed := errors.New("encode failed")
	err = s.Save(ctx, func([]byte) ([]byte, error) { return nil, failed })
	check(t, errors.Is(err, failed), "Save() error = %v, want update error", err)
	data, err = s.Load(ctx)
	requireNoError(t, err, "Load() error = %v", err)
	check(t, string(data) == next, "failed Save changed data to %q", data)
}

// testWatch verifies the watcher lifecycle of WatchableSource implementations.
func (st *SourceTester) testWatch(t *testing.T) {
	ws, ok := st.factory(t, []byte(sampleDocument)).(source.WatchableSource)
	if !ok {
		t.Skip("source does not implement WatchableSource")
	}
	init, err := ws.Watch()
	requireNoError(t, err, "Watch() error = %v", err)
	w, err := init(testInitParams())
	requireNoError(t, err, "initializer error = %v", err)
	require(t, w.Type() != "", "Type() returned empty string")

	ctx := context.Background()
	requireNoError(t, w.Start(ctx), "Start() error")
	check(t, w.Stop(ctx) == nil, "Stop() returned an error")
	check(t, w.Stop(ctx) == nil, "second Stop() returned an error")
}
