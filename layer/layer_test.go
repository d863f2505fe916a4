package layer_test

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/format/json"
	"github.com/groundstation/factsys/format/yaml"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/source/bytes"
	"github.com/groundstation/factsys/source/fs"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLayer_LoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("1:\n  RTL_ALT: 100 # metres\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	l := layer.New("user", fs.New(path), yaml.New())
	ctx := context.Background()

	if l.Name() != "user" {
		t.Errorf("Name() = %q, want user", l.Name())
	}
	if !l.CanSave() {
		t.Error("CanSave() = false, want true")
	}

	got, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"1": map[string]any{"RTL_ALT": 100}}, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	var ps document.JSONPatchSet
	ps.Replace("/1/RTL_ALT", 150)
	if err := l.Save(ctx, ps); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "1:\n  RTL_ALT: 150 # metres\n" {
		t.Errorf("file after Save = %q", raw)
	}
}

func TestLayer_ReadOnly(t *testing.T) {
	l := layer.New("defaults", bytes.FromString(`{"1":{"RTL_ALT":50}}`), json.New())
	if l.CanSave() {
		t.Error("CanSave() = true, want false")
	}
	err := l.Save(context.Background(), document.JSONPatchSet{})
	if !errors.Is(err, source.ErrSaveNotSupported) {
		t.Errorf("Save() error = %v, want ErrSaveNotSupported", err)
	}
	if _, ok := l.(layer.DocumentProvider); !ok {
		t.Error("layer does not implement DocumentProvider")
	}
}

func TestLayer_FillDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	tests := []struct {
		name  string
		layer layer.Layer
		want  types.Details
	}{
		{
			name:  "bytes",
			layer: layer.New("defaults", bytes.FromString("{}"), json.New()),
			want:  types.Details{Source: source.TypeBytes, Format: document.FormatJSON, Watcher: watcher.TypeNoop},
		},
		{
			name:  "fs",
			layer: layer.New("user", fs.New(path), json.New()),
			want:  types.Details{Source: source.TypeFS, Path: path, Format: document.FormatJSON, Watcher: watcher.TypeSubscription},
		},
		{
			name:  "plain source",
			layer: layer.New("remote", &plainSource{}, json.New()),
			want:  types.Details{Source: "plain", Format: document.FormatJSON, Watcher: watcher.TypePolling},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got types.Details
			tt.layer.FillDetails(&got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FillDetails() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// plainSource has no native watcher, so layers poll it.
type plainSource struct {
	mu   sync.Mutex
	data []byte
}

func (s *plainSource) Type() source.SourceType { return "plain" }
func (s *plainSource) CanSave() bool           { return false }

func (s *plainSource) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, nil
}

func (s *plainSource) Save(ctx context.Context, fn source.UpdateFunc) error {
	return source.ErrSaveNotSupported
}

func (s *plainSource) set(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = []byte(data)
}

func TestLayer_WatchFallsBackToPolling(t *testing.T) {
	src := &plainSource{data: []byte(`{"1":{"RTL_ALT":100}}`)}
	l := layer.New("remote", src, json.New())

	w, err := l.Watch(
		layer.WithBaseConfig(watcher.NewWatchConfig(watcher.WithPollInterval(time.Hour))),
		layer.WithLayerWatchConfig(watcher.WithPollInterval(5*time.Millisecond)),
	)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if w.Type() != watcher.TypePolling {
		t.Errorf("Type() = %v, want %v", w.Type(), watcher.TypePolling)
	}
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(ctx)

	next := func() map[string]any {
		t.Helper()
		select {
		case r := <-w.Results():
			if r.Error != nil {
				t.Fatalf("watch error = %v", r.Error)
			}
			return r.Data
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for result")
		}
		return nil
	}

	first := next()
	if diff := cmp.Diff(map[string]any{"1": map[string]any{"RTL_ALT": stdjson.Number("100")}}, first); diff != "" {
		t.Errorf("first result mismatch (-want +got):\n%s", diff)
	}

	src.set(`{"1":{"RTL_ALT":120}}`)
	second := next()
	if diff := cmp.Diff(map[string]any{"1": map[string]any{"RTL_ALT": stdjson.Number("120")}}, second); diff != "" {
		t.Errorf("second result mismatch (-want +got):\n%s", diff)
	}
}

func TestLayer_WatchParseError(t *testing.T) {
	src := &plainSource{data: []byte(`{broken`)}
	l := layer.New("remote", src, json.New())
	w, err := l.Watch(layer.WithLayerWatchConfig(watcher.WithPollInterval(5 * time.Millisecond)))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case r := <-w.Results():
		if r.Error == nil {
			t.Error("expected parse error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for result")
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if _, ok := <-w.Results(); ok {
		t.Error("Results() still open after Stop")
	}
}

func TestResolveWatchConfig(t *testing.T) {
	cfg := layer.ResolveWatchConfig()
	if cfg.PollInterval != watcher.DefaultPollInterval || cfg.CompareFunc == nil {
		t.Errorf("ResolveWatchConfig() = %+v, want defaults", cfg)
	}

	cfg = layer.ResolveWatchConfig(
		layer.WithBaseConfig(watcher.WatchConfig{PollInterval: time.Minute}),
	)
	if cfg.PollInterval != time.Minute {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, time.Minute)
	}
}

func TestNoopLayerWatcher(t *testing.T) {
	w := layer.NewNoopLayerWatcher()
	if w.Type() != watcher.TypeNoop {
		t.Errorf("Type() = %v, want %v", w.Type(), watcher.TypeNoop)
	}
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
