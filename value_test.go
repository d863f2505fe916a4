package factsys

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueType
		wantErr bool
	}{
		{"uint8", TypeUint8, false},
		{"INT16", TypeInt16, false},
		{" float ", TypeFloat, false},
		{"double", TypeDouble, false},
		{"int", TypeInt32, false},
		{"float32", TypeFloat, false},
		{"float64", TypeDouble, false},
		{"boolean", TypeBool, false},
		{"string", TypeString, false},
		{"invalid", TypeInvalid, true},
		{"int64", TypeInvalid, true},
		{"", TypeInvalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValueType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValueType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseValueType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueType_Text(t *testing.T) {
	var vt ValueType
	if err := vt.UnmarshalText([]byte("uint16")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	b, err := vt.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(b) != "uint16" {
		t.Errorf("MarshalText() = %q, want uint16", b)
	}
	if _, err := TypeInvalid.MarshalText(); err == nil {
		t.Error("MarshalText() of TypeInvalid expected error")
	}
	if got := ValueType(99).String(); got != "ValueType(99)" {
		t.Errorf("String() = %q", got)
	}
}

func TestValueType_Bounds(t *testing.T) {
	lo, hi := TypeInt8.Bounds()
	if lo.Int() != -128 || hi.Int() != 127 {
		t.Errorf("Int8 bounds = [%v, %v], want [-128, 127]", lo, hi)
	}
	lo, hi = TypeUint32.Bounds()
	if lo.Uint() != 0 || hi.Uint() != math.MaxUint32 {
		t.Errorf("Uint32 bounds = [%v, %v]", lo, hi)
	}
	lo, hi = TypeString.Bounds()
	if lo.IsValid() || hi.IsValid() {
		t.Errorf("String bounds = [%v, %v], want invalid", lo, hi)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		typ     ValueType
		raw     any
		want    string
		wantErr bool
	}{
		{"uint8 max", TypeUint8, 255, "255", false},
		{"uint8 overflow", TypeUint8, 256, "", true},
		{"uint8 negative", TypeUint8, -1, "", true},
		{"uint8 from bool", TypeUint8, true, "1", false},
		{"int8 min string", TypeInt8, "-128", "-128", false},
		{"int8 overflow", TypeInt8, 128, "", true},
		{"int8 from uint64", TypeInt8, uint64(200), "", true},
		{"int16 integral float", TypeInt16, 12.0, "12", false},
		{"int16 fractional float", TypeInt16, 1.5, "", true},
		{"int32 hex string", TypeInt32, "0x10", "16", false},
		{"int32 negative hex string", TypeInt32, "-0x10", "-16", false},
		{"int32 leading zero is decimal", TypeInt32, "010", "10", false},
		{"int32 digit separator", TypeInt32, "1_000", "", true},
		{"int32 octal prefix", TypeInt32, "0o17", "", true},
		{"int32 from int64 min string", TypeInt32, "-9223372036854775808", "", true},
		{"uint8 plus sign", TypeUint8, "+7", "7", false},
		{"int16 NaN string", TypeInt16, "NaN", "", true},
		{"int32 exponent string", TypeInt32, "1e3", "1000", false},
		{"int32 garbage", TypeInt32, "ten", "", true},
		{"uint32 max string", TypeUint32, "4294967295", "4294967295", false},
		{"uint32 overflow", TypeUint32, int64(1) << 32, "", true},
		{"float", TypeFloat, 0.1, "0.1", false},
		{"float overflow", TypeFloat, math.MaxFloat64, "", true},
		{"float from int", TypeFloat, 100, "100", false},
		{"float NaN", TypeFloat, math.NaN(), "", true},
		{"float NaN string", TypeFloat, "NaN", "", true},
		{"double NaN float32", TypeDouble, float32(math.NaN()), "", true},
		{"bool NaN", TypeBool, math.NaN(), "", true},
		{"double string", TypeDouble, "2.5", "2.5", false},
		{"double json number", TypeDouble, json.Number("1e3"), "1000", false},
		{"string from int", TypeString, 42, "42", false},
		{"string from float", TypeString, 1.5, "1.5", false},
		{"string from bool", TypeString, true, "true", false},
		{"string", TypeString, "plane", "plane", false},
		{"bool yes", TypeBool, "yes", "true", false},
		{"bool off", TypeBool, "off", "false", false},
		{"bool from zero", TypeBool, 0, "false", false},
		{"bool from float", TypeBool, 0.5, "true", false},
		{"bool garbage", TypeBool, "maybe", "", true},
		{"nil", TypeInt8, nil, "", true},
		{"unsupported", TypeInt8, []int{1}, "", true},
		{"invalid type", TypeInvalid, 1, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.raw)
			if tt.wantErr {
				var ce *ConversionError
				if !errors.As(err, &ce) {
					t.Fatalf("Coerce(%v, %v) error = %v, want *ConversionError", tt.typ, tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce(%v, %v) error = %v", tt.typ, tt.raw, err)
			}
			if got.Type() != tt.typ {
				t.Errorf("Type() = %v, want %v", got.Type(), tt.typ)
			}
			if got.String() != tt.want {
				t.Errorf("Coerce(%v, %v) = %q, want %q", tt.typ, tt.raw, got.String(), tt.want)
			}
		})
	}
}

func TestCoerce_Value(t *testing.T) {
	v := MustCoerce(TypeInt8, -5)
	same, err := Coerce(TypeInt8, v)
	if err != nil || !same.Equal(v) {
		t.Errorf("Coerce() same type = %v, %v", same, err)
	}
	d, err := Coerce(TypeDouble, v)
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}
	if d.Float() != -5 {
		t.Errorf("Float() = %v, want -5", d.Float())
	}
	if _, err := Coerce(TypeUint8, v); err == nil {
		t.Error("Coerce() of -5 to uint8 expected error")
	}
	if _, err := Coerce(TypeInt8, Value{}); err == nil {
		t.Error("Coerce() of invalid Value expected error")
	}
}

func TestValue_Interface(t *testing.T) {
	tests := []struct {
		v    Value
		want any
	}{
		{MustCoerce(TypeUint8, 1), uint8(1)},
		{MustCoerce(TypeInt8, -1), int8(-1)},
		{MustCoerce(TypeUint16, 2), uint16(2)},
		{MustCoerce(TypeInt16, -2), int16(-2)},
		{MustCoerce(TypeUint32, 3), uint32(3)},
		{MustCoerce(TypeInt32, -3), int32(-3)},
		{MustCoerce(TypeFloat, 1.5), float32(1.5)},
		{MustCoerce(TypeDouble, 2.5), 2.5},
		{StringValue("x"), "x"},
		{BoolValue(true), true},
		{Value{}, nil},
	}
	for _, tt := range tests {
		if got := tt.v.Interface(); got != tt.want {
			t.Errorf("%v.Interface() = %#v, want %#v", tt.v, got, tt.want)
		}
	}
}

func TestValue_Accessors(t *testing.T) {
	f := MustCoerce(TypeDouble, 3.75)
	if f.Int() != 3 || f.Uint() != 3 {
		t.Errorf("Int() = %d, Uint() = %d, want 3", f.Int(), f.Uint())
	}
	neg := MustCoerce(TypeInt16, -4)
	if neg.Uint() != 0 {
		t.Errorf("Uint() of negative = %d, want 0", neg.Uint())
	}
	if !neg.Bool() || MustCoerce(TypeUint8, 0).Bool() {
		t.Error("Bool() of numeric values is not nonzero")
	}
	if BoolValue(true).Int() != 1 {
		t.Error("BoolValue(true).Int() != 1")
	}
	if MustCoerce(TypeUint8, 7).Str() != "7" {
		t.Error("Str() of uint8 7 != \"7\"")
	}
	if !StringValue("on").Bool() {
		t.Error("StringValue(on).Bool() = false")
	}
}

func TestValue_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"mixed numeric", MustCoerce(TypeInt8, -1), MustCoerce(TypeUint8, 0), -1},
		{"equal across types", MustCoerce(TypeFloat, 2), MustCoerce(TypeInt32, 2), 0},
		{"greater", MustCoerce(TypeDouble, 1000.5), MustCoerce(TypeUint16, 1000), 1},
		{"strings", StringValue("a"), StringValue("b"), -1},
		{"bools", BoolValue(true), BoolValue(false), 1},
		{"unrelated kinds", MustCoerce(TypeUint8, 1), StringValue("1"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValue_Format(t *testing.T) {
	tests := []struct {
		v        Value
		decimals int
		want     string
	}{
		{MustCoerce(TypeFloat, 100), 1, "100.0"},
		{MustCoerce(TypeFloat, 100), -1, "100"},
		{MustCoerce(TypeDouble, 3.14159), 2, "3.14"},
		{MustCoerce(TypeInt32, 42), 2, "42"},
		{BoolValue(false), 2, "false"},
		{Value{}, 0, "<invalid>"},
	}
	for _, tt := range tests {
		if got := tt.v.Format(tt.decimals); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.decimals, got, tt.want)
		}
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Value{"RTL_ALT": MustCoerce(TypeFloat, 0.1)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"RTL_ALT":0.1}` {
		t.Errorf("Marshal() = %s", b)
	}
}
