package factsys

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/groundstation/factsys/decoder"
	"github.com/groundstation/factsys/format/yaml"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/layer/mapdata"
	"github.com/groundstation/factsys/source/bytes"
)

func rtlAltMeta(t *testing.T) *MetaData {
	t.Helper()
	m, err := NewMetaData("RTL_ALT", TypeFloat,
		WithDefault(50.0),
		WithMin(0),
		WithMax(1000),
		WithUnits("m"),
		WithShortDescription("Return altitude"),
		WithLongDescription("Altitude to climb to before returning home."),
		WithGroup("Return Mode"),
	)
	if err != nil {
		t.Fatalf("NewMetaData() error = %v", err)
	}
	return m
}

func TestNewMetaData(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m, err := NewMetaData("SYSID_THISMAV", TypeUint8)
		if err != nil {
			t.Fatalf("NewMetaData() error = %v", err)
		}
		if m.Group() != DefaultGroup {
			t.Errorf("Group() = %q, want %q", m.Group(), DefaultGroup)
		}
		if m.Decimals() != -1 {
			t.Errorf("Decimals() = %d, want -1", m.Decimals())
		}
		if !m.DefaultValue().Equal(TypeUint8.Zero()) {
			t.Errorf("DefaultValue() = %v, want 0", m.DefaultValue())
		}
		if m.Min().Uint() != 0 || m.Max().Uint() != 255 {
			t.Errorf("range = [%v, %v], want [0, 255]", m.Min(), m.Max())
		}
	})

	t.Run("options", func(t *testing.T) {
		m := rtlAltMeta(t)
		got := map[string]string{
			"name":  m.Name(),
			"type":  m.Type().String(),
			"def":   m.DefaultValue().String(),
			"min":   m.Min().String(),
			"max":   m.Max().String(),
			"units": m.Units(),
			"short": m.ShortDescription(),
			"long":  m.LongDescription(),
			"group": m.Group(),
		}
		want := map[string]string{
			"name":  "RTL_ALT",
			"type":  "float",
			"def":   "50",
			"min":   "0",
			"max":   "1000",
			"units": "m",
			"short": "Return altitude",
			"long":  "Altitude to climb to before returning home.",
			"group": "Return Mode",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("MetaData mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("string has no range", func(t *testing.T) {
		m, err := NewMetaData("CAM_MODEL", TypeString, WithDefault("none"))
		if err != nil {
			t.Fatalf("NewMetaData() error = %v", err)
		}
		if m.HasRange() {
			t.Error("HasRange() = true for string")
		}
		if !m.InRange(StringValue("anything")) {
			t.Error("InRange() = false for unbounded parameter")
		}
	})

	errTests := []struct {
		name string
		typ  ValueType
		opts []MetaDataOption
	}{
		{"min greater than max", TypeFloat, []MetaDataOption{WithMin(10), WithMax(1)}},
		{"default below min", TypeInt32, []MetaDataOption{WithMin(0), WithDefault(-1)}},
		{"default above type range", TypeUint8, []MetaDataOption{WithDefault(300)}},
		{"unparseable max", TypeDouble, []MetaDataOption{WithMax("high")}},
		{"NaN min", TypeDouble, []MetaDataOption{WithMin("NaN"), WithMax(10), WithDefault(-5)}},
		{"NaN max", TypeFloat, []MetaDataOption{WithMax(math.NaN())}},
		{"NaN default", TypeDouble, []MetaDataOption{WithDefault(math.NaN())}},
		{"min on string", TypeString, []MetaDataOption{WithMin(1)}},
		{"max on bool", TypeBool, []MetaDataOption{WithMax(1)}},
		{"invalid type", TypeInvalid, nil},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMetaData("P", tt.typ, tt.opts...); err == nil {
				t.Error("NewMetaData() expected error")
			}
		})
	}

	if _, err := NewMetaData("", TypeBool); err == nil {
		t.Error("NewMetaData() with empty name expected error")
	}
}

func TestMetaData_RangeHelpers(t *testing.T) {
	m := rtlAltMeta(t)
	tests := []struct {
		in      float64
		inRange bool
		clamped string
	}{
		{-1, false, "0"},
		{0, true, "0"},
		{500, true, "500"},
		{1000, true, "1000"},
		{1000.5, false, "1000"},
	}
	for _, tt := range tests {
		v := MustCoerce(TypeFloat, tt.in)
		if got := m.InRange(v); got != tt.inRange {
			t.Errorf("InRange(%v) = %v, want %v", tt.in, got, tt.inRange)
		}
		if got := m.Clamp(v).String(); got != tt.clamped {
			t.Errorf("Clamp(%v) = %s, want %s", tt.in, got, tt.clamped)
		}
	}
}

func TestMetaData_Format(t *testing.T) {
	m := MustMetaData("WPNAV_SPEED", TypeFloat, WithUnits("cm/s"), WithDecimals(1))
	if got := m.Format(MustCoerce(TypeFloat, 500)); got != "500.0 cm/s" {
		t.Errorf("Format() = %q, want %q", got, "500.0 cm/s")
	}
	plain := MustMetaData("FENCE_ENABLE", TypeBool)
	if got := plain.Format(BoolValue(true)); got != "true" {
		t.Errorf("Format() = %q, want %q", got, "true")
	}
}

func TestPolicies(t *testing.T) {
	m := rtlAltMeta(t)
	high := MustCoerce(TypeFloat, 2000)
	ok := MustCoerce(TypeFloat, 120)

	t.Run("reject", func(t *testing.T) {
		_, err := RejectOutOfRange.Validate(m, high)
		var re *RangeError
		if !errors.As(err, &re) {
			t.Fatalf("Validate() error = %v, want *RangeError", err)
		}
		if re.Name != "RTL_ALT" || !re.Value.Equal(high) {
			t.Errorf("RangeError = %+v", re)
		}
		if !strings.Contains(err.Error(), "outside [0, 1000]") {
			t.Errorf("Error() = %q", err.Error())
		}
		got, err := RejectOutOfRange.Validate(m, ok)
		if err != nil || !got.Equal(ok) {
			t.Errorf("Validate(120) = %v, %v", got, err)
		}
	})

	t.Run("clamp", func(t *testing.T) {
		got, err := ClampToRange.Validate(m, high)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if got.Float() != 1000 {
			t.Errorf("Validate(2000) = %v, want 1000", got)
		}
	})

	t.Run("NaN", func(t *testing.T) {
		nan := Value{typ: TypeFloat, f: math.NaN()}
		if m.InRange(nan) {
			t.Error("InRange(NaN) = true, want false")
		}
		if MustMetaData("GAIN", TypeDouble).InRange(Value{typ: TypeDouble, f: math.NaN()}) {
			t.Error("InRange(NaN) = true for natural bounds, want false")
		}
		for _, p := range []struct {
			name   string
			policy ValidationPolicy
		}{
			{"reject", RejectOutOfRange},
			{"clamp", ClampToRange},
		} {
			var re *RangeError
			if _, err := p.policy.Validate(m, nan); !errors.As(err, &re) {
				t.Errorf("%s Validate(NaN) error = %v, want *RangeError", p.name, err)
			}
		}
	})

	t.Run("accept", func(t *testing.T) {
		got, err := AcceptAll.Validate(m, high)
		if err != nil || !got.Equal(high) {
			t.Errorf("Validate(2000) = %v, %v", got, err)
		}
	})

	t.Run("parse", func(t *testing.T) {
		for _, name := range []string{"", "reject", "clamp", "accept"} {
			if _, err := ParsePolicy(name); err != nil {
				t.Errorf("ParsePolicy(%q) error = %v", name, err)
			}
		}
		if _, err := ParsePolicy("ignore"); err == nil {
			t.Error("ParsePolicy(ignore) expected error")
		}
	})
}

func TestMetaDataRegistry_Register(t *testing.T) {
	reg := NewMetaDataRegistry()
	if err := reg.Register(rtlAltMeta(t)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(MustMetaData("FENCE_ENABLE", TypeBool)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(rtlAltMeta(t)); err == nil {
		t.Error("Register() duplicate expected error")
	}
	if err := reg.Register(nil); err == nil {
		t.Error("Register(nil) expected error")
	}

	if m, ok := reg.Lookup("RTL_ALT"); !ok || m.Units() != "m" {
		t.Errorf("Lookup(RTL_ALT) = %v, %v", m, ok)
	}
	if _, ok := reg.Lookup("MISSING"); ok {
		t.Error("Lookup(MISSING) found")
	}
	if diff := cmp.Diff([]string{"FENCE_ENABLE", "RTL_ALT"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

const metaYAML = `# parameter metadata
parameters:
  RTL_ALT:
    type: float
    default: 50
    min: 0
    max: 1000
    units: m
    short_desc: Return altitude
    group: Return Mode
    decimals: 1
  FENCE_ENABLE:
    type: bool
    default: "yes"
    group: Fence
  SYSID_THISMAV:
    type: uint8
    default: "1"
`

func TestMetaDataRegistry_LoadMetaData(t *testing.T) {
	ctx := context.Background()

	t.Run("yaml document", func(t *testing.T) {
		reg := NewMetaDataRegistry()
		l := layer.New("meta", bytes.FromString(metaYAML), yaml.New())
		if err := reg.LoadMetaData(ctx, l); err != nil {
			t.Fatalf("LoadMetaData() error = %v", err)
		}
		if diff := cmp.Diff([]string{"FENCE_ENABLE", "RTL_ALT", "SYSID_THISMAV"}, reg.Names()); diff != "" {
			t.Errorf("Names() mismatch (-want +got):\n%s", diff)
		}
		rtl, _ := reg.Lookup("RTL_ALT")
		if rtl.Decimals() != 1 || rtl.Max().Float() != 1000 || rtl.Group() != "Return Mode" {
			t.Errorf("RTL_ALT = %+v", rtl)
		}
		fence, _ := reg.Lookup("FENCE_ENABLE")
		if !fence.DefaultValue().Bool() {
			t.Error("FENCE_ENABLE default = false, want true")
		}
		sysid, _ := reg.Lookup("SYSID_THISMAV")
		if sysid.DefaultValue().Interface() != uint8(1) || sysid.Group() != DefaultGroup {
			t.Errorf("SYSID_THISMAV = %+v", sysid)
		}
	})

	t.Run("invalid entry registers nothing", func(t *testing.T) {
		reg := NewMetaDataRegistry()
		l := mapdata.New("meta", map[string]any{
			"parameters": map[string]any{
				"A_OK":  map[string]any{"type": "int8"},
				"B_BAD": map[string]any{"type": "int64"},
			},
		})
		if err := reg.LoadMetaData(ctx, l); err == nil {
			t.Fatal("LoadMetaData() expected error")
		}
		if reg.Len() != 0 {
			t.Errorf("Len() = %d, want 0", reg.Len())
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		reg := NewMetaDataRegistry()
		l := mapdata.New("meta", map[string]any{
			"parameters": map[string]any{
				"RTL_ALT": map[string]any{"type": "float", "unit": "m"},
			},
		})
		if err := reg.LoadMetaData(ctx, l); err == nil {
			t.Error("LoadMetaData() expected error for misspelled field")
		}
	})

	t.Run("duplicate with registered", func(t *testing.T) {
		reg := NewMetaDataRegistry()
		if err := reg.Register(rtlAltMeta(t)); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		l := layer.New("meta", bytes.FromString(metaYAML), yaml.New())
		if err := reg.LoadMetaData(ctx, l); err == nil {
			t.Error("LoadMetaData() expected duplicate error")
		}
		if reg.Len() != 1 {
			t.Errorf("Len() = %d, want 1", reg.Len())
		}
	})

	t.Run("json decoder", func(t *testing.T) {
		reg := NewMetaDataRegistry(WithMetaDataDecoder(decoder.JSON))
		l := mapdata.New("meta", map[string]any{
			"parameters": map[string]any{
				"BATT_CAPACITY": map[string]any{"type": "int32", "default": 3300, "units": "mAh"},
			},
		})
		if err := reg.LoadMetaData(ctx, l); err != nil {
			t.Fatalf("LoadMetaData() error = %v", err)
		}
		m, _ := reg.Lookup("BATT_CAPACITY")
		if m.DefaultValue().Int() != 3300 {
			t.Errorf("default = %v, want 3300", m.DefaultValue())
		}
	})
}
