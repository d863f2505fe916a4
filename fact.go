package factsys

import (
	"fmt"
	"sync"

	"github.com/groundstation/factsys/jsonptr"
)

// listener wraps a callback with a unique ID for reliable unsubscription.
type listener struct {
	id uint64
	fn func(Value)
}

// listenerList is a registration-ordered set of callbacks.
type listenerList struct {
	items  []listener
	nextID uint64
}

func (l *listenerList) add(fn func(Value)) uint64 {
	l.nextID++
	l.items = append(l.items, listener{id: l.nextID, fn: fn})
	return l.nextID
}

func (l *listenerList) remove(id uint64) {
	for i, it := range l.items {
		if it.id == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *listenerList) snapshot() []listener {
	return append([]listener(nil), l.items...)
}

// Fact is a named, typed, observable parameter value bound to shared MetaData.
//
// A Fact has two notification channels. The container channel
// (SubscribeContainer) receives every write made through SetValue so the
// owning Container can validate and store it. The public channel (Subscribe)
// fires once per accepted value, either from ContainerSetValue or, when no
// container listens, directly from SetValue.
//
// Listeners are called synchronously on the caller's goroutine, in
// registration order, from a snapshot taken before the first call. A listener
// may unsubscribe itself.
type Fact struct {
	componentID int
	name        string
	typ         ValueType

	mu        sync.RWMutex
	value     Value
	def       Value
	meta      *MetaData
	public    listenerList
	container listenerList
}

// NewFact returns a Fact holding the zero value of t. Metadata must be
// attached with SetMetaData before the Fact is displayed.
func NewFact(componentID int, name string, t ValueType) *Fact {
	if !t.Valid() {
		panic(fmt.Sprintf("factsys: NewFact(%d, %q): invalid value type %v", componentID, name, t))
	}
	return &Fact{
		componentID: componentID,
		name:        name,
		typ:         t,
		value:       t.Zero(),
	}
}

// ComponentID returns the id of the component owning the parameter.
func (f *Fact) ComponentID() int {
	return f.componentID
}

// Name returns the parameter name.
func (f *Fact) Name() string {
	return f.name
}

// Type returns the declared value type.
func (f *Fact) Type() ValueType {
	return f.typ
}

// Path returns the JSON Pointer addressing the Fact in a parameter document.
func (f *Fact) Path() string {
	return jsonptr.ParameterPath(f.componentID, f.name)
}

// SetMetaData attaches the shared descriptor. It panics if m is nil, if its
// type differs from the Fact's or if metadata is already attached.
func (f *Fact) SetMetaData(m *MetaData) {
	if m == nil {
		panic(fmt.Sprintf("factsys: %s: SetMetaData(nil)", f))
	}
	if m.Type() != f.typ {
		panic(fmt.Sprintf("factsys: %s: metadata type %s does not match fact type %s", f, m.Type(), f.typ))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meta != nil {
		panic(fmt.Sprintf("factsys: %s: metadata already attached", f))
	}
	f.meta = m
	f.def = m.DefaultValue()
}

// HasMetaData reports whether SetMetaData has been called.
func (f *Fact) HasMetaData() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.meta != nil
}

// MetaData returns the attached descriptor. It panics before SetMetaData.
func (f *Fact) MetaData() *MetaData {
	f.mu.RLock()
	m := f.meta
	f.mu.RUnlock()
	if m == nil {
		panic(fmt.Sprintf("factsys: %s: metadata accessed before SetMetaData", f))
	}
	return m
}

// Value returns the current value. Its type always equals Type().
func (f *Fact) Value() Value {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// ValueString returns the current value formatted with the metadata
// decimals and units, for example "100 m".
func (f *Fact) ValueString() string {
	return f.MetaData().Format(f.Value())
}

// DefaultValueString is ValueString for the default value.
func (f *Fact) DefaultValueString() string {
	m := f.MetaData()
	return m.Format(f.def)
}

// SetValue is the public write accessor.
//
// raw is coerced to the declared type; on failure the error is returned and
// nothing fires. The coerced value is sent to the container channel first. If
// a container listens it decides whether the value is accepted and answers
// through ContainerSetValue. Without a container the Fact stores the value
// and fires the public notification itself.
func (f *Fact) SetValue(raw any) error {
	v, err := Coerce(f.typ, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}

	f.mu.RLock()
	owners := f.container.snapshot()
	f.mu.RUnlock()

	if len(owners) > 0 {
		for _, l := range owners {
			l.fn(v)
		}
		return nil
	}
	f.store(v)
	return nil
}

// ContainerSetValue stores a value that was validated upstream and fires
// exactly one public notification. The container channel does not fire.
func (f *Fact) ContainerSetValue(raw any) error {
	v, err := Coerce(f.typ, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}
	f.store(v)
	return nil
}

func (f *Fact) store(v Value) {
	f.mu.Lock()
	f.value = v
	listeners := f.public.snapshot()
	f.mu.Unlock()

	for _, l := range listeners {
		l.fn(v)
	}
}

// Subscribe registers fn for the public change notification. The returned
// function unsubscribes and is safe to call more than once.
func (f *Fact) Subscribe(fn func(Value)) func() {
	return f.subscribe(&f.public, fn)
}

// SubscribeContainer registers fn on the container channel. It is meant for
// the Container owning the Fact.
func (f *Fact) SubscribeContainer(fn func(Value)) func() {
	return f.subscribe(&f.container, fn)
}

func (f *Fact) subscribe(list *listenerList, fn func(Value)) func() {
	f.mu.Lock()
	id := list.add(fn)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			list.remove(id)
		})
	}
}

// DefaultValue returns the metadata default, cached at SetMetaData.
func (f *Fact) DefaultValue() Value {
	f.MetaData()
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.def
}

// IsDefault reports whether the current value equals the default.
func (f *Fact) IsDefault() bool {
	return f.Value().Equal(f.DefaultValue())
}

// The accessors below read the attached MetaData and panic before SetMetaData.

// ShortDescription returns the one-line description.
func (f *Fact) ShortDescription() string { return f.MetaData().ShortDescription() }

// LongDescription returns the detailed description.
func (f *Fact) LongDescription() string { return f.MetaData().LongDescription() }

// Units returns the display units.
func (f *Fact) Units() string { return f.MetaData().Units() }

// Min returns the lower bound, or the invalid Value for unbounded types.
func (f *Fact) Min() Value { return f.MetaData().Min() }

// Max returns the upper bound, or the invalid Value for unbounded types.
func (f *Fact) Max() Value { return f.MetaData().Max() }

// Group returns the display group.
func (f *Fact) Group() string { return f.MetaData().Group() }

// Decimals returns the display precision; negative means shortest.
func (f *Fact) Decimals() int { return f.MetaData().Decimals() }

// String identifies the Fact as "<componentId>:<name>".
func (f *Fact) String() string {
	return fmt.Sprintf("%d:%s", f.componentID, f.name)
}
