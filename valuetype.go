package factsys

import (
	"fmt"
	"math"
	"strings"
)

// ValueType is the declared type of a parameter.
type ValueType int

// Supported value types. TypeInvalid is the zero value and never declared.
const (
	TypeInvalid ValueType = iota
	TypeUint8
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeFloat
	TypeDouble
	TypeString
	TypeBool
)

var valueTypeNames = [...]string{
	TypeInvalid: "invalid",
	TypeUint8:   "uint8",
	TypeInt8:    "int8",
	TypeUint16:  "uint16",
	TypeInt16:   "int16",
	TypeUint32:  "uint32",
	TypeInt32:   "int32",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeString:  "string",
	TypeBool:    "bool",
}

var valueTypeAliases = map[string]ValueType{
	"int":     TypeInt32,
	"float32": TypeFloat,
	"float64": TypeDouble,
	"boolean": TypeBool,
}

func (t ValueType) String() string {
	if t < 0 || int(t) >= len(valueTypeNames) {
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
	return valueTypeNames[t]
}

// ParseValueType parses a type name such as "uint8" or "double".
// Matching is case-insensitive; "int", "float32", "float64" and "boolean"
// are accepted as aliases.
func ParseValueType(s string) (ValueType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t := TypeUint8; t <= TypeBool; t++ {
		if valueTypeNames[t] == name {
			return t, nil
		}
	}
	if t, ok := valueTypeAliases[name]; ok {
		return t, nil
	}
	return TypeInvalid, fmt.Errorf("unknown value type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid value type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ValueType) UnmarshalText(b []byte) error {
	v, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Valid reports whether t is one of the declared types.
func (t ValueType) Valid() bool {
	return t >= TypeUint8 && t <= TypeBool
}

// IsNumeric reports whether t is an integer or floating point type.
func (t ValueType) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsInteger reports whether t is a signed or unsigned integer type.
func (t ValueType) IsInteger() bool {
	return t.IsSigned() || t.IsUnsigned()
}

// IsSigned reports whether t is a signed integer type.
func (t ValueType) IsSigned() bool {
	return t == TypeInt8 || t == TypeInt16 || t == TypeInt32
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t ValueType) IsUnsigned() bool {
	return t == TypeUint8 || t == TypeUint16 || t == TypeUint32
}

// IsFloat reports whether t is TypeFloat or TypeDouble.
func (t ValueType) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble
}

// Zero returns the zero value of t.
func (t ValueType) Zero() Value {
	if !t.Valid() {
		return Value{}
	}
	return Value{typ: t}
}

// Bounds returns the natural range of a numeric type. Non-numeric types
// return invalid Values.
func (t ValueType) Bounds() (min, max Value) {
	switch t {
	case TypeUint8:
		return Value{typ: t}, Value{typ: t, u: math.MaxUint8}
	case TypeUint16:
		return Value{typ: t}, Value{typ: t, u: math.MaxUint16}
	case TypeUint32:
		return Value{typ: t}, Value{typ: t, u: math.MaxUint32}
	case TypeInt8:
		return Value{typ: t, i: math.MinInt8}, Value{typ: t, i: math.MaxInt8}
	case TypeInt16:
		return Value{typ: t, i: math.MinInt16}, Value{typ: t, i: math.MaxInt16}
	case TypeInt32:
		return Value{typ: t, i: math.MinInt32}, Value{typ: t, i: math.MaxInt32}
	case TypeFloat:
		return Value{typ: t, f: -math.MaxFloat32}, Value{typ: t, f: math.MaxFloat32}
	case TypeDouble:
		return Value{typ: t, f: -math.MaxFloat64}, Value{typ: t, f: math.MaxFloat64}
	default:
		return Value{}, Value{}
	}
}

func (t ValueType) bits() int {
	if t == TypeFloat {
		return 32
	}
	return 64
}
