package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/groundstation/factsys/factsystest"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("UserHomeDir() error = %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"params.yaml", "params.yaml"},
		{"~", home},
		{"~/params.yaml", filepath.Join(home, "params.yaml")},
		{"~someone/params.yaml", "~someone/params.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandTilde(tt.in)
			if err != nil {
				t.Fatalf("expandTilde() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandTilde(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSource_SearchPaths(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.json")
	alt := filepath.Join(dir, "alt.json")
	if err := os.WriteFile(alt, []byte("alt"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := New(primary, WithSearchPaths(alt))
	if got := s.ResolvedPath(); got != primary {
		t.Errorf("ResolvedPath() before Load = %q, want %q", got, primary)
	}
	data, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "alt" {
		t.Errorf("Load() = %q, want %q", data, "alt")
	}
	if got := s.ResolvedPath(); got != alt {
		t.Errorf("ResolvedPath() after Load = %q, want %q", got, alt)
	}

	var d types.Details
	s.FillDetails(&d)
	if d.Path != alt {
		t.Errorf("FillDetails() Path = %q, want %q", d.Path, alt)
	}
}

func TestSource_LoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	if _, err := New(path).Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}

	data, err := New(path, WithOptional()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() optional error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Load() optional = %q, want empty", data)
	}
}

func TestSource_SaveCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "params.json")
	s := New(path, WithOptional(), WithFileMode(0o600))
	ctx := context.Background()

	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err := s.Save(ctx, func(current []byte) ([]byte, error) {
		if len(current) != 0 {
			t.Errorf("current = %q, want empty", current)
		}
		return []byte(`{"1":{"RTL_ALT":100}}`), nil
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"1":{"RTL_ALT":100}}` {
		t.Errorf("file = %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 && runtime.GOOS != "windows" {
		t.Errorf("mode = %v, want 0600", perm)
	}

	// A second save sees the first save's output as current.
	err = s.Save(ctx, func(current []byte) ([]byte, error) {
		if string(current) != `{"1":{"RTL_ALT":100}}` {
			t.Errorf("current = %q", current)
		}
		return current, nil
	})
	if err != nil {
		t.Errorf("second Save() error = %v", err)
	}
}

func TestSource_SaveDetectsExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s := New(path)
	ctx := context.Background()
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	called := false
	err := s.Save(ctx, func(current []byte) ([]byte, error) {
		called = true
		return current, nil
	})
	if !errors.Is(err, source.ErrSourceModified) {
		t.Errorf("Save() error = %v, want ErrSourceModified", err)
	}
	if called {
		t.Error("updateFunc called despite external modification")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "v2" {
		t.Errorf("file = %q, want v2", got)
	}
}

func TestSource_SaveUpdateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	want := errors.New("encode failed")
	err := New(path).Save(context.Background(), func([]byte) ([]byte, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("Save() error = %v, want %v", err, want)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".factsys-*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s := New(path)
	ctx := context.Background()

	init, err := s.Watch()
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w, err := init(watcher.WatcherInitializerParams{
		Fetch: func(ctx context.Context) (bool, []byte, error) {
			data, err := s.Load(ctx)
			return err == nil, data, err
		},
	})
	if err != nil {
		t.Fatalf("initializer error = %v", err)
	}
	if w.Type() != watcher.TypeSubscription {
		t.Errorf("Type() = %v, want %v", w.Type(), watcher.TypeSubscription)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(ctx)

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-w.Results():
			if r.Error != nil {
				t.Fatalf("watch error = %v", r.Error)
			}
			if string(r.Data) == "v2" {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for file change")
		}
	}
}

func TestSource_Conformance(t *testing.T) {
	factsystest.NewSourceTester(t, func(t testing.TB, data []byte) source.Source {
		path := filepath.Join(t.TempDir(), "params.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return New(path)
	}).TestAll()
}
