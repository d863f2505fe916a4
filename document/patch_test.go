package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONPatchSet_ApplyTo(t *testing.T) {
	var ps JSONPatchSet
	if !ps.IsEmpty() {
		t.Fatal("IsEmpty() = false for zero set")
	}
	ps.Add("/1/RTL_ALT", 100)
	ps.Replace("/1/RTL_ALT", 120)
	ps.Add("/1/WPNAV_SPEED", 500)
	ps.Remove("/1/WPNAV_SPEED")
	ps.Add("not-a-pointer", 1)

	data := map[string]any{}
	ps.ApplyTo(data)

	want := map[string]any{"1": map[string]any{"RTL_ALT": 120}}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("ApplyTo() mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	var err error = &InvalidPathError{Path: "/x", Reason: "bad"}
	var ipe *InvalidPathError
	if !errors.As(err, &ipe) || ipe.Path != "/x" {
		t.Errorf("errors.As(InvalidPathError) failed: %v", err)
	}
	if got := err.Error(); got != `invalid path "/x": bad` {
		t.Errorf("Error() = %q", got)
	}

	err = &TypeMismatchError{Path: "/1", Expected: "mapping", Actual: "scalar"}
	if got := err.Error(); got != `type mismatch at "/1": expected mapping, got scalar` {
		t.Errorf("Error() = %q", got)
	}
}
