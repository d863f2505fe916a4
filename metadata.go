package factsys

import (
	"errors"
	"fmt"
)

// DefaultGroup is the group of parameters that do not declare one.
const DefaultGroup = "Default Group"

// MetaData describes a parameter: its type, default, range and presentation.
// It is read-only after NewMetaData returns and is shared by every Fact with
// the same name, across components.
type MetaData struct {
	name      string
	typ       ValueType
	def       Value
	min       Value
	max       Value
	units     string
	shortDesc string
	longDesc  string
	group     string
	decimals  int
}

// MetaDataOption configures NewMetaData.
type MetaDataOption func(*metaDataOptions)

type metaDataOptions struct {
	def       any
	min       any
	max       any
	units     string
	shortDesc string
	longDesc  string
	group     string
	decimals  int
}

// WithDefault sets the default value. raw is coerced to the parameter type.
func WithDefault(raw any) MetaDataOption {
	return func(o *metaDataOptions) {
		o.def = raw
	}
}

// WithMin sets the lower bound of a numeric parameter.
func WithMin(raw any) MetaDataOption {
	return func(o *metaDataOptions) {
		o.min = raw
	}
}

// WithMax sets the upper bound of a numeric parameter.
func WithMax(raw any) MetaDataOption {
	return func(o *metaDataOptions) {
		o.max = raw
	}
}

// WithUnits sets the display units, for example "m" or "cm/s".
func WithUnits(units string) MetaDataOption {
	return func(o *metaDataOptions) {
		o.units = units
	}
}

// WithShortDescription sets the one-line description.
func WithShortDescription(s string) MetaDataOption {
	return func(o *metaDataOptions) {
		o.shortDesc = s
	}
}

// WithLongDescription sets the detailed description.
func WithLongDescription(s string) MetaDataOption {
	return func(o *metaDataOptions) {
		o.longDesc = s
	}
}

// WithGroup sets the group used to organise parameters for display.
func WithGroup(group string) MetaDataOption {
	return func(o *metaDataOptions) {
		o.group = group
	}
}

// WithDecimals sets the number of decimals shown for floating point values.
// A negative value selects the shortest exact representation.
func WithDecimals(n int) MetaDataOption {
	return func(o *metaDataOptions) {
		o.decimals = n
	}
}

// NewMetaData builds the descriptor for parameter name of type t.
//
// Without options the default is the type's zero value and numeric types are
// bounded by their natural range. String and Bool parameters have no range;
// WithMin and WithMax are rejected for them.
func NewMetaData(name string, t ValueType, opts ...MetaDataOption) (*MetaData, error) {
	if name == "" {
		return nil, errors.New("metadata: empty parameter name")
	}
	if !t.Valid() {
		return nil, fmt.Errorf("metadata %s: invalid value type %v", name, t)
	}
	o := metaDataOptions{group: DefaultGroup, decimals: -1}
	for _, opt := range opts {
		opt(&o)
	}

	m := &MetaData{
		name:      name,
		typ:       t,
		def:       t.Zero(),
		units:     o.units,
		shortDesc: o.shortDesc,
		longDesc:  o.longDesc,
		group:     o.group,
		decimals:  o.decimals,
	}
	if m.group == "" {
		m.group = DefaultGroup
	}
	m.min, m.max = t.Bounds()

	var err error
	if o.min != nil {
		if !t.IsNumeric() {
			return nil, fmt.Errorf("metadata %s: min is not supported for %s", name, t)
		}
		if m.min, err = Coerce(t, o.min); err != nil {
			return nil, fmt.Errorf("metadata %s: min: %w", name, err)
		}
	}
	if o.max != nil {
		if !t.IsNumeric() {
			return nil, fmt.Errorf("metadata %s: max is not supported for %s", name, t)
		}
		if m.max, err = Coerce(t, o.max); err != nil {
			return nil, fmt.Errorf("metadata %s: max: %w", name, err)
		}
	}
	if m.HasRange() && m.min.Compare(m.max) > 0 {
		return nil, fmt.Errorf("metadata %s: min %s is greater than max %s", name, m.min, m.max)
	}
	if o.def != nil {
		if m.def, err = Coerce(t, o.def); err != nil {
			return nil, fmt.Errorf("metadata %s: default: %w", name, err)
		}
		if !m.InRange(m.def) {
			return nil, fmt.Errorf("metadata %s: default %s outside [%s, %s]", name, m.def, m.min, m.max)
		}
	}
	return m, nil
}

// MustMetaData is like NewMetaData but panics on error.
func MustMetaData(name string, t ValueType, opts ...MetaDataOption) *MetaData {
	m, err := NewMetaData(name, t, opts...)
	if err != nil {
		panic("factsys: " + err.Error())
	}
	return m
}

// Name returns the parameter name.
func (m *MetaData) Name() string { return m.name }

// Type returns the parameter's value type.
func (m *MetaData) Type() ValueType { return m.typ }

// DefaultValue returns the default, already coerced to Type.
func (m *MetaData) DefaultValue() Value { return m.def }

// Min returns the lower bound. It is invalid for String and Bool.
func (m *MetaData) Min() Value { return m.min }

// Max returns the upper bound. It is invalid for String and Bool.
func (m *MetaData) Max() Value { return m.max }

// Units returns the display units, possibly empty.
func (m *MetaData) Units() string { return m.units }

// ShortDescription returns the one-line description.
func (m *MetaData) ShortDescription() string { return m.shortDesc }

// LongDescription returns the detailed description.
func (m *MetaData) LongDescription() string { return m.longDesc }

// Group returns the display group, DefaultGroup when none was set.
func (m *MetaData) Group() string { return m.group }

// Decimals returns the display precision; negative means shortest.
func (m *MetaData) Decimals() int { return m.decimals }

// HasRange reports whether the parameter is bounded. Only numeric types are.
func (m *MetaData) HasRange() bool {
	return m.min.IsValid() && m.max.IsValid()
}

// InRange reports whether v lies within [Min, Max]. Unbounded parameters
// accept every value except NaN.
func (m *MetaData) InRange(v Value) bool {
	if v.isNaN() {
		return false
	}
	if !m.HasRange() {
		return true
	}
	return v.Compare(m.min) >= 0 && v.Compare(m.max) <= 0
}

// Clamp returns v limited to [Min, Max]. NaN has no nearest bound and is
// returned unchanged; ClampToRange rejects it.
func (m *MetaData) Clamp(v Value) Value {
	if !m.HasRange() {
		return v
	}
	if v.Compare(m.min) < 0 {
		return m.min
	}
	if v.Compare(m.max) > 0 {
		return m.max
	}
	return v
}

// Format renders v with the parameter's decimals and units ("100 m").
func (m *MetaData) Format(v Value) string {
	s := v.Format(m.decimals)
	if m.units == "" {
		return s
	}
	return s + " " + m.units
}
