package factsys

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is an immutable scalar tagged with its ValueType. The zero Value is
// invalid and is never stored in a Fact.
type Value struct {
	typ ValueType
	i   int64
	u   uint64
	f   float64
	s   string
	b   bool
}

// ConversionError is returned when a raw value cannot be represented as the
// requested type.
type ConversionError struct {
	Type  ValueType
	Value any
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v (%T) to %s: %v", e.Value, e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

var (
	errOutOfTypeRange = errors.New("out of type range")
	errNotIntegral    = errors.New("not an integral number")
	errNotANumber     = errors.New("not a number")
	errNilValue       = errors.New("nil value")
	errUnsupported    = errors.New("unsupported type")
)

// MustCoerce is like Coerce but panics on error. It is meant for literals.
func MustCoerce(t ValueType, raw any) Value {
	v, err := Coerce(t, raw)
	if err != nil {
		panic("factsys: " + err.Error())
	}
	return v
}

// Coerce converts raw into a Value of type t.
//
// Accepted inputs are Value, every Go integer and float kind, bool, string and
// json.Number. Conversion is weakly typed: strings are parsed ("0x10", "1.5",
// "yes"), bools become 1/0 and numbers become "nonzero" bools. Integer strings
// are decimal unless prefixed with 0x. Integers that do not fit t, floats with
// a fractional part and NaN fail with *ConversionError.
func Coerce(t ValueType, raw any) (Value, error) {
	if !t.Valid() {
		return Value{}, &ConversionError{Type: t, Value: raw, Err: errUnsupported}
	}
	if v, ok := raw.(Value); ok {
		if v.typ == t {
			return v, nil
		}
		if !v.IsValid() {
			return Value{}, &ConversionError{Type: t, Value: raw, Err: errNilValue}
		}
		raw = v.Interface()
	}
	if n, ok := raw.(json.Number); ok {
		raw = n.String()
	}
	if raw == nil {
		return Value{}, &ConversionError{Type: t, Value: raw, Err: errNilValue}
	}

	var (
		v   Value
		err error
	)
	switch {
	case t.IsSigned():
		v, err = toSigned(t, raw)
	case t.IsUnsigned():
		v, err = toUnsigned(t, raw)
	case t.IsFloat():
		v, err = toFloat(t, raw)
	case t == TypeString:
		v, err = toString(raw)
	case t == TypeBool:
		v, err = toBool(raw)
	}
	if err != nil {
		return Value{}, &ConversionError{Type: t, Value: raw, Err: err}
	}
	return v, nil
}

// scalar is the widest representation of a raw number.
type scalar struct {
	kind byte // 'i', 'u' or 'f'
	i    int64
	u    uint64
	f    float64
}

func toScalar(raw any) (scalar, error) {
	switch v := raw.(type) {
	case int:
		return scalar{kind: 'i', i: int64(v)}, nil
	case int8:
		return scalar{kind: 'i', i: int64(v)}, nil
	case int16:
		return scalar{kind: 'i', i: int64(v)}, nil
	case int32:
		return scalar{kind: 'i', i: int64(v)}, nil
	case int64:
		return scalar{kind: 'i', i: v}, nil
	case uint:
		return scalar{kind: 'u', u: uint64(v)}, nil
	case uint8:
		return scalar{kind: 'u', u: uint64(v)}, nil
	case uint16:
		return scalar{kind: 'u', u: uint64(v)}, nil
	case uint32:
		return scalar{kind: 'u', u: uint64(v)}, nil
	case uint64:
		return scalar{kind: 'u', u: v}, nil
	case float32:
		return floatScalar(float64(v))
	case float64:
		return floatScalar(v)
	case bool:
		if v {
			return scalar{kind: 'u', u: 1}, nil
		}
		return scalar{kind: 'u'}, nil
	case string:
		s := strings.TrimSpace(v)
		if sc, ok := parseInteger(s); ok {
			return sc, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return scalar{}, fmt.Errorf("invalid number %q", v)
		}
		return floatScalar(f)
	default:
		return scalar{}, errUnsupported
	}
}

func floatScalar(f float64) (scalar, error) {
	if math.IsNaN(f) {
		return scalar{}, errNotANumber
	}
	return scalar{kind: 'f', f: f}, nil
}

// parseInteger parses a decimal integer, or a hexadecimal one with an
// explicit 0x prefix. Leading zeros are decimal and digit separators are
// not accepted.
func parseInteger(s string) (scalar, bool) {
	digits, neg := s, false
	switch {
	case strings.HasPrefix(digits, "-"):
		digits, neg = digits[1:], true
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}
	base := 10
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		digits, base = digits[2:], 16
	}
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return scalar{}, false
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return scalar{}, false
	}
	switch {
	case !neg && u <= math.MaxInt64:
		return scalar{kind: 'i', i: int64(u)}, true
	case !neg:
		return scalar{kind: 'u', u: u}, true
	case u == 1<<63:
		return scalar{kind: 'i', i: math.MinInt64}, true
	case u < 1<<63:
		return scalar{kind: 'i', i: -int64(u)}, true
	}
	return scalar{}, false
}

func toSigned(t ValueType, raw any) (Value, error) {
	sc, err := toScalar(raw)
	if err != nil {
		return Value{}, err
	}
	lo, hi := t.Bounds()
	var i int64
	switch sc.kind {
	case 'i':
		i = sc.i
	case 'u':
		if sc.u > uint64(hi.i) {
			return Value{}, errOutOfTypeRange
		}
		i = int64(sc.u)
	case 'f':
		if sc.f != math.Trunc(sc.f) || math.IsInf(sc.f, 0) {
			return Value{}, errNotIntegral
		}
		if sc.f < float64(lo.i) || sc.f > float64(hi.i) {
			return Value{}, errOutOfTypeRange
		}
		i = int64(sc.f)
	}
	if i < lo.i || i > hi.i {
		return Value{}, errOutOfTypeRange
	}
	return Value{typ: t, i: i}, nil
}

func toUnsigned(t ValueType, raw any) (Value, error) {
	sc, err := toScalar(raw)
	if err != nil {
		return Value{}, err
	}
	_, hi := t.Bounds()
	var u uint64
	switch sc.kind {
	case 'i':
		if sc.i < 0 {
			return Value{}, errOutOfTypeRange
		}
		u = uint64(sc.i)
	case 'u':
		u = sc.u
	case 'f':
		if sc.f != math.Trunc(sc.f) || math.IsInf(sc.f, 0) {
			return Value{}, errNotIntegral
		}
		if sc.f < 0 || sc.f > float64(hi.u) {
			return Value{}, errOutOfTypeRange
		}
		u = uint64(sc.f)
	}
	if u > hi.u {
		return Value{}, errOutOfTypeRange
	}
	return Value{typ: t, u: u}, nil
}

func toFloat(t ValueType, raw any) (Value, error) {
	sc, err := toScalar(raw)
	if err != nil {
		return Value{}, err
	}
	var f float64
	switch sc.kind {
	case 'i':
		f = float64(sc.i)
	case 'u':
		f = float64(sc.u)
	case 'f':
		f = sc.f
	}
	if t == TypeFloat {
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return Value{}, errOutOfTypeRange
		}
		f = float64(float32(f))
	}
	return Value{typ: t, f: f}, nil
}

func toString(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return StringValue(v), nil
	case bool:
		return StringValue(strconv.FormatBool(v)), nil
	case float32:
		return StringValue(strconv.FormatFloat(float64(v), 'g', -1, 32)), nil
	case float64:
		return StringValue(strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
	sc, err := toScalar(raw)
	if err != nil {
		return Value{}, err
	}
	if sc.kind == 'i' {
		return StringValue(strconv.FormatInt(sc.i, 10)), nil
	}
	return StringValue(strconv.FormatUint(sc.u, 10)), nil
}

func toBool(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return BoolValue(v), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on", "t", "y":
			return BoolValue(true), nil
		case "false", "0", "no", "off", "f", "n", "":
			return BoolValue(false), nil
		default:
			return Value{}, fmt.Errorf("invalid bool %q", v)
		}
	}
	sc, err := toScalar(raw)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(sc.i != 0 || sc.u != 0 || sc.f != 0), nil
}

// StringValue returns a TypeString Value.
func StringValue(s string) Value {
	return Value{typ: TypeString, s: s}
}

// BoolValue returns a TypeBool Value.
func BoolValue(b bool) Value {
	return Value{typ: TypeBool, b: b}
}

// Type returns the tag of v.
func (v Value) Type() ValueType {
	return v.typ
}

// IsValid reports whether v carries a type.
func (v Value) IsValid() bool {
	return v.typ.Valid()
}

// Int returns v as a signed integer. Floats are truncated.
func (v Value) Int() int64 {
	switch {
	case v.typ.IsSigned():
		return v.i
	case v.typ.IsUnsigned():
		return int64(v.u)
	case v.typ.IsFloat():
		return int64(v.f)
	case v.typ == TypeBool && v.b:
		return 1
	}
	return 0
}

// Uint returns v as an unsigned integer. Negative values return 0.
func (v Value) Uint() uint64 {
	switch {
	case v.typ.IsUnsigned():
		return v.u
	case v.typ.IsSigned():
		if v.i < 0 {
			return 0
		}
		return uint64(v.i)
	case v.typ.IsFloat():
		if v.f < 0 {
			return 0
		}
		return uint64(v.f)
	case v.typ == TypeBool && v.b:
		return 1
	}
	return 0
}

// Float returns v as a float64.
func (v Value) Float() float64 {
	switch {
	case v.typ.IsFloat():
		return v.f
	case v.typ.IsSigned():
		return float64(v.i)
	case v.typ.IsUnsigned():
		return float64(v.u)
	case v.typ == TypeBool && v.b:
		return 1
	}
	return 0
}

// Str returns the payload of a TypeString value, or String() for other types.
func (v Value) Str() string {
	if v.typ == TypeString {
		return v.s
	}
	return v.String()
}

// Bool returns the payload of a TypeBool value, or whether a numeric value is
// nonzero.
func (v Value) Bool() bool {
	switch {
	case v.typ == TypeBool:
		return v.b
	case v.typ.IsNumeric():
		return v.Float() != 0
	case v.typ == TypeString:
		b, err := toBool(v.s)
		return err == nil && b.b
	}
	return false
}

// Interface returns v as its native Go type (uint8, int8, ..., float32,
// float64, string, bool). The invalid Value returns nil.
func (v Value) Interface() any {
	switch v.typ {
	case TypeUint8:
		return uint8(v.u)
	case TypeInt8:
		return int8(v.i)
	case TypeUint16:
		return uint16(v.u)
	case TypeInt16:
		return int16(v.i)
	case TypeUint32:
		return uint32(v.u)
	case TypeInt32:
		return int32(v.i)
	case TypeFloat:
		return float32(v.f)
	case TypeDouble:
		return v.f
	case TypeString:
		return v.s
	case TypeBool:
		return v.b
	}
	return nil
}

func (v Value) isNaN() bool {
	return v.typ.IsFloat() && math.IsNaN(v.f)
}

// Equal reports whether v and other have the same type and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// Compare orders v against other: -1, 0 or +1. Numeric values compare by
// magnitude regardless of their tag. Values of unrelated kinds order by type.
func (v Value) Compare(other Value) int {
	switch {
	case v.typ.IsNumeric() && other.typ.IsNumeric():
		a, b := v.Float(), other.Float()
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case v.typ == TypeString && other.typ == TypeString:
		return strings.Compare(v.s, other.s)
	case v.typ == TypeBool && other.typ == TypeBool:
		switch {
		case v.b == other.b:
			return 0
		case other.b:
			return -1
		}
		return 1
	case v.typ < other.typ:
		return -1
	case v.typ > other.typ:
		return 1
	}
	return 0
}

// String formats v using the shortest representation of its type.
func (v Value) String() string {
	return v.Format(-1)
}

// Format is like String but writes floating point values with exactly
// decimals digits after the point when decimals >= 0.
func (v Value) Format(decimals int) string {
	switch {
	case v.typ.IsSigned():
		return strconv.FormatInt(v.i, 10)
	case v.typ.IsUnsigned():
		return strconv.FormatUint(v.u, 10)
	case v.typ.IsFloat():
		if decimals >= 0 {
			return strconv.FormatFloat(v.f, 'f', decimals, v.typ.bits())
		}
		return strconv.FormatFloat(v.f, 'g', -1, v.typ.bits())
	case v.typ == TypeString:
		return v.s
	case v.typ == TypeBool:
		return strconv.FormatBool(v.b)
	}
	return "<invalid>"
}

// MarshalJSON encodes v as its native JSON value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
