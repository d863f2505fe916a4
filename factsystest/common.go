// Package factsystest provides conformance tests for source, document and
// layer implementations.
//
//	func TestYAMLDocument_ViaLayer(t *testing.T) {
//		factsystest.NewLayerTester(t, factsystest.DocumentLayerFactory(yaml.New())).TestAll()
//	}
package factsystest

import (
	"fmt"
	"reflect"
)

// testT is the minimal testing interface used by the testers.
type testT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
}

// require fails the test immediately if the condition is false.
func require(t testT, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// requireNoError fails the test immediately if err is not nil.
func requireNoError(t testT, err error, format string, args ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf(format, args...)
	}
}

// check reports an error if the condition is false, but continues the test.
func check(t testT, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Errorf(format, args...)
	}
}

// valuesEqual compares decoded values, treating all numeric types alike.
// Formats decode numbers differently (int, int64, float64) and the env layer
// keeps every value as a string.
func valuesEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}

	gotNum, gotIsNum := toFloat64(got)
	wantNum, wantIsNum := toFloat64(want)
	if gotIsNum && wantIsNum {
		return gotNum == wantNum
	}

	if gotStr, ok := got.(string); ok {
		if wantStr, ok := want.(string); ok {
			return gotStr == wantStr
		}
		return gotStr == fmt.Sprintf("%v", want)
	}

	return reflect.DeepEqual(got, want)
}

// toFloat64 converts numeric types to float64 for comparison.
func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
