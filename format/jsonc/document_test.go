package jsonc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/factsystest"
)

const params = `{
  // flight controller
  "1": {
    "RTL_ALT": 100, // metres
  },
}`

func TestDocument_Get(t *testing.T) {
	got, err := New().Get([]byte(params))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	v := got["1"].(map[string]any)["RTL_ALT"]
	if n, ok := v.(json.Number); !ok || n.String() != "100" {
		t.Errorf("RTL_ALT = %#v, want json.Number(100)", v)
	}
}

func TestDocument_ApplyKeepsComments(t *testing.T) {
	doc := New()
	var ps document.JSONPatchSet
	ps.Replace("/1/RTL_ALT", 150)
	ps.Add("/2/MNT_TYPE", 3)

	out, err := doc.Apply([]byte(params), ps)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(string(out), "// flight controller") {
		t.Errorf("Apply() dropped comment:\n%s", out)
	}

	got, err := doc.Get(out)
	if err != nil {
		t.Fatalf("Get(Apply()) error = %v", err)
	}
	if v := got["1"].(map[string]any)["RTL_ALT"].(json.Number).String(); v != "150" {
		t.Errorf("RTL_ALT = %s, want 150", v)
	}
	if v := got["2"].(map[string]any)["MNT_TYPE"].(json.Number).String(); v != "3" {
		t.Errorf("MNT_TYPE = %s, want 3", v)
	}
}

func TestDocument_ApplyRemove(t *testing.T) {
	doc := New()
	var ps document.JSONPatchSet
	ps.Remove("/1/RTL_ALT")
	ps.Remove("/9/MISSING")

	out, err := doc.Apply([]byte(params), ps)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	got, err := doc.Get(out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := got["1"].(map[string]any)["RTL_ALT"]; ok {
		t.Error("RTL_ALT still present after remove")
	}
}

func TestDocument_ApplyScalarParent(t *testing.T) {
	var ps document.JSONPatchSet
	ps.Add("/1/RTL_ALT", 1)
	if _, err := New().Apply([]byte(`{"1": 5}`), ps); err == nil {
		t.Error("Apply() through scalar parent expected error")
	}
}

func TestDocument_ViaLayer(t *testing.T) {
	factsystest.NewLayerTester(t, factsystest.DocumentLayerFactory(New())).TestAll()
}
