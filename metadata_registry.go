package factsys

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/groundstation/factsys/decoder"
	"github.com/groundstation/factsys/layer"
)

// MetaDataRegistry holds the shared descriptors, keyed by parameter name.
// The same *MetaData is handed to every Fact of that name regardless of the
// component it belongs to.
type MetaDataRegistry struct {
	mu     sync.RWMutex
	byName map[string]*MetaData
	decode decoder.Func
}

// RegistryOption configures a MetaDataRegistry.
type RegistryOption func(*MetaDataRegistry)

// WithMetaDataDecoder replaces the decoder used by LoadMetaData.
// The default is decoder.Weak.
func WithMetaDataDecoder(fn decoder.Func) RegistryOption {
	return func(r *MetaDataRegistry) {
		r.decode = fn
	}
}

// NewMetaDataRegistry returns an empty registry.
func NewMetaDataRegistry(opts ...RegistryOption) *MetaDataRegistry {
	r := &MetaDataRegistry{
		byName: make(map[string]*MetaData),
		decode: decoder.Weak,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds m. Registering a second descriptor with the same name fails.
func (r *MetaDataRegistry) Register(m *MetaData) error {
	if m == nil {
		return fmt.Errorf("register metadata: nil descriptor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[m.Name()]; ok {
		return fmt.Errorf("register metadata: %s already registered", m.Name())
	}
	r.byName[m.Name()] = m
	return nil
}

// Lookup returns the descriptor registered for name.
func (r *MetaDataRegistry) Lookup(name string) (*MetaData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// Names returns the registered names in sorted order.
func (r *MetaDataRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered descriptors.
func (r *MetaDataRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

type metaDataDocument struct {
	Parameters map[string]metaDataEntry `mapstructure:"parameters" json:"parameters"`
}

type metaDataEntry struct {
	Type      string `mapstructure:"type" json:"type"`
	Default   any    `mapstructure:"default" json:"default"`
	Min       any    `mapstructure:"min" json:"min"`
	Max       any    `mapstructure:"max" json:"max"`
	Units     string `mapstructure:"units" json:"units"`
	ShortDesc string `mapstructure:"short_desc" json:"short_desc"`
	LongDesc  string `mapstructure:"long_desc" json:"long_desc"`
	Group     string `mapstructure:"group" json:"group"`
	Decimals  *int   `mapstructure:"decimals" json:"decimals"`
}

// LoadMetaData loads a metadata document from l and registers every entry.
//
// The document has the form
//
//	parameters:
//	  RTL_ALT:
//	    type: float
//	    default: 50
//	    min: 0
//	    max: 1000
//	    units: m
//	    short_desc: Return altitude
//	    group: Return Mode
//	    decimals: 1
//
// Nothing is registered when any entry is invalid.
func (r *MetaDataRegistry) LoadMetaData(ctx context.Context, l layer.Layer) error {
	data, err := l.Load(ctx)
	if err != nil {
		return fmt.Errorf("load metadata layer %s: %w", l.Name(), err)
	}
	var doc metaDataDocument
	if err := r.decode(data, &doc); err != nil {
		return fmt.Errorf("decode metadata layer %s: %w", l.Name(), err)
	}

	names := make([]string, 0, len(doc.Parameters))
	for name := range doc.Parameters {
		names = append(names, name)
	}
	slices.Sort(names)

	parsed := make([]*MetaData, 0, len(names))
	for _, name := range names {
		m, err := doc.Parameters[name].metaData(name)
		if err != nil {
			return fmt.Errorf("metadata layer %s: %w", l.Name(), err)
		}
		parsed = append(parsed, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range parsed {
		if _, ok := r.byName[m.Name()]; ok {
			return fmt.Errorf("metadata layer %s: %s already registered", l.Name(), m.Name())
		}
	}
	for _, m := range parsed {
		r.byName[m.Name()] = m
	}
	return nil
}

func (e metaDataEntry) metaData(name string) (*MetaData, error) {
	t, err := ParseValueType(e.Type)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", name, err)
	}
	opts := []MetaDataOption{
		WithUnits(e.Units),
		WithShortDescription(e.ShortDesc),
		WithLongDescription(e.LongDesc),
		WithGroup(e.Group),
	}
	if e.Default != nil {
		opts = append(opts, WithDefault(e.Default))
	}
	if e.Min != nil {
		opts = append(opts, WithMin(e.Min))
	}
	if e.Max != nil {
		opts = append(opts, WithMax(e.Max))
	}
	if e.Decimals != nil {
		opts = append(opts, WithDecimals(*e.Decimals))
	}
	return NewMetaData(name, t, opts...)
}
