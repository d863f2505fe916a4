package factsys

import "fmt"

// RangeError reports a write outside a parameter's [Min, Max] range.
type RangeError struct {
	Name  string
	Value Value
	Min   Value
	Max   Value
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: value %s outside [%s, %s]", e.Name, e.Value, e.Min, e.Max)
}

// ValidationPolicy decides whether a Container accepts a write. It returns
// the value to store, which may differ from v, or an error to reject it.
type ValidationPolicy interface {
	Validate(m *MetaData, v Value) (Value, error)
}

// ValidationPolicyFunc adapts a function to ValidationPolicy.
type ValidationPolicyFunc func(m *MetaData, v Value) (Value, error)

func (f ValidationPolicyFunc) Validate(m *MetaData, v Value) (Value, error) {
	return f(m, v)
}

var (
	// RejectOutOfRange rejects writes outside [Min, Max] with *RangeError.
	// It is the Container default.
	RejectOutOfRange ValidationPolicy = ValidationPolicyFunc(rejectOutOfRange)

	// ClampToRange stores the nearest bound instead of an out-of-range value.
	// NaN is rejected with *RangeError.
	ClampToRange ValidationPolicy = ValidationPolicyFunc(clampToRange)

	// AcceptAll performs no range check.
	AcceptAll ValidationPolicy = ValidationPolicyFunc(acceptAll)
)

func rejectOutOfRange(m *MetaData, v Value) (Value, error) {
	if !m.InRange(v) {
		return Value{}, &RangeError{Name: m.Name(), Value: v, Min: m.Min(), Max: m.Max()}
	}
	return v, nil
}

func clampToRange(m *MetaData, v Value) (Value, error) {
	if v.isNaN() {
		return Value{}, &RangeError{Name: m.Name(), Value: v, Min: m.Min(), Max: m.Max()}
	}
	return m.Clamp(v), nil
}

func acceptAll(_ *MetaData, v Value) (Value, error) {
	return v, nil
}

// ParsePolicy maps "reject", "clamp" and "accept" to a ValidationPolicy.
func ParsePolicy(name string) (ValidationPolicy, error) {
	switch name {
	case "", "reject":
		return RejectOutOfRange, nil
	case "clamp":
		return ClampToRange, nil
	case "accept":
		return AcceptAll, nil
	}
	return nil, fmt.Errorf("unknown validation policy %q", name)
}
