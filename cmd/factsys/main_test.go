package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/groundstation/factsys"
)

const testMeta = `parameters:
  RTL_ALT:
    type: float
    default: 50
    min: 0
    max: 1000
    units: m
    short_desc: Return altitude
    group: Return Mode
  FENCE_ENABLE:
    type: bool
    group: Fence
  BATT_CAPACITY:
    type: int32
    default: 3300
    min: 0
    max: 100000
    units: mAh
    group: Battery
`

const testParams = `# bench vehicle
1:
  RTL_ALT: 80 # clear the trees
  FENCE_ENABLE: false
"2":
  FENCE_ENABLE: true
`

// writeFiles creates a metadata and params document and returns their paths.
func writeFiles(t *testing.T) (meta, params string) {
	t.Helper()
	dir := t.TempDir()
	meta = filepath.Join(dir, "meta.yaml")
	params = filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(meta, []byte(testMeta), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(params, []byte(testParams), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return meta, params
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShow(t *testing.T) {
	meta, params := writeFiles(t)
	t.Setenv("FACTSYS_1_BATT_CAPACITY", "5200")

	out, err := execute(t, "show", "--meta", meta, "--params", params)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("show printed %d lines, want header + 4:\n%s", len(lines), out)
	}
	for _, want := range []string{"COMPONENT", "80 m", "Return altitude", "5200 mAh", "env", "params"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "show", "--meta", meta, "--params", params, "--component", "1", "--group", "Fence")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	lines = strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "FENCE_ENABLE") {
		t.Errorf("filtered show output:\n%s", out)
	}
}

func TestShow_EnvDisabled(t *testing.T) {
	meta, params := writeFiles(t)
	t.Setenv("FACTSYS_1_BATT_CAPACITY", "5200")
	out, err := execute(t, "show", "--meta", meta, "--params", params, "--env-prefix", "")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if strings.Contains(out, "BATT_CAPACITY") {
		t.Errorf("environment layer not disabled:\n%s", out)
	}
}

func TestGet(t *testing.T) {
	meta, params := writeFiles(t)
	out, err := execute(t, "get", "--meta", meta, "--params", params, "1", "RTL_ALT")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	for _, want := range []string{"1:RTL_ALT = 80 m", "Return altitude", "range: 0 m .. 1000 m", "default: 50 m", "origin: params"} {
		if !strings.Contains(out, want) {
			t.Errorf("get output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "get", "--meta", meta, "--params", params, "3", "RTL_ALT"); !errors.Is(err, factsys.ErrFactNotFound) {
		t.Errorf("get unknown error = %v, want ErrFactNotFound", err)
	}
	if _, err := execute(t, "get", "--meta", meta, "--params", params, "x", "RTL_ALT"); err == nil {
		t.Error("get with invalid component expected error")
	}
	if _, err := execute(t, "get", "--params", params, "1", "RTL_ALT"); err == nil {
		t.Error("get without --meta expected error")
	}
}

func TestSet(t *testing.T) {
	meta, params := writeFiles(t)

	out, err := execute(t, "set", "--meta", meta, "--params", params, "1", "RTL_ALT", "120")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if strings.TrimSpace(out) != "1:RTL_ALT = 120 m" {
		t.Errorf("set output = %q", out)
	}
	data, err := os.ReadFile(params)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"# bench vehicle", "RTL_ALT: 120 # clear the trees"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("params file missing %q:\n%s", want, data)
		}
	}

	var re *factsys.RangeError
	if _, err := execute(t, "set", "--meta", meta, "--params", params, "1", "RTL_ALT", "5000"); !errors.As(err, &re) {
		t.Errorf("set out of range error = %v, want *RangeError", err)
	}

	out, err = execute(t, "set", "--meta", meta, "--params", params, "--policy", "clamp", "1", "RTL_ALT", "5000")
	if err != nil {
		t.Fatalf("set clamp error = %v", err)
	}
	if strings.TrimSpace(out) != "1:RTL_ALT = 1000 m" {
		t.Errorf("set clamp output = %q", out)
	}

	if _, err := execute(t, "set", "--meta", meta, "--params", params, "--policy", "lenient", "1", "RTL_ALT", "1"); err == nil {
		t.Error("set with unknown policy expected error")
	}
}

func TestSet_CreatesParameter(t *testing.T) {
	meta, params := writeFiles(t)

	out, err := execute(t, "set", "--meta", meta, "--params", params, "2", "BATT_CAPACITY", "6000")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if strings.TrimSpace(out) != "2:BATT_CAPACITY = 6000 mAh" {
		t.Errorf("set output = %q", out)
	}
	out, err = execute(t, "get", "--meta", meta, "--params", params, "2", "BATT_CAPACITY")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if !strings.Contains(out, "2:BATT_CAPACITY = 6000 mAh") {
		t.Errorf("get output:\n%s", out)
	}

	if _, err := execute(t, "set", "--meta", meta, "--params", params, "2", "NO_SUCH_PARAM", "1"); !errors.Is(err, factsys.ErrFactNotFound) {
		t.Errorf("set unknown parameter error = %v, want ErrFactNotFound", err)
	}
	var re *factsys.RangeError
	if _, err := execute(t, "set", "--meta", meta, "--params", params, "3", "BATT_CAPACITY", "-1"); !errors.As(err, &re) {
		t.Errorf("set new out of range error = %v, want *RangeError", err)
	}
}

// lockedBuffer is a bytes.Buffer safe for concurrent use.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, b *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(b.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %q in output:\n%s", want, b.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatch(t *testing.T) {
	meta, params := writeFiles(t)

	cmd := newRootCmd()
	out := &lockedBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"watch", "--meta", meta, "--params", params, "--debounce", "20ms", "--metrics-addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, out, "watching 3 parameters")
	edited := strings.Replace(testParams, "RTL_ALT: 80", "RTL_ALT: 150", 1)
	if err := os.WriteFile(params, []byte(edited), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitFor(t, out, "1:RTL_ALT = 150 m")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
}
