package factsys

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/groundstation/factsys/decoder"
	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/types"
	"go.uber.org/zap"
)

var (
	// ErrFactNotFound is returned when no Fact exists for a component and name.
	ErrFactNotFound = errors.New("fact not found")

	// ErrContainerClosed is returned by Load and Reload after Close.
	ErrContainerClosed = errors.New("container is closed")
)

// ShadowedError rejects a write to a parameter whose effective value comes
// from a layer ranked above the write layer. Recording it would not change
// the effective value once the Container reloads.
type ShadowedError struct {
	Path       string
	WriteLayer layer.Name
	Layer      layer.Name
}

func (e *ShadowedError) Error() string {
	return fmt.Sprintf("%s is overridden by layer %q above write layer %q", e.Path, e.Layer, e.WriteLayer)
}

// LayerInfo describes a registered layer. It is implemented by the
// Container's internal layer entries so listing layers does not allocate.
type LayerInfo interface {
	// Name returns the unique identifier for this layer.
	Name() layer.Name

	// Priority returns the layer's merge priority.
	Priority() layer.Priority

	// Source returns the kind of source backing the layer.
	Source() types.SourceType

	// Format returns the document format (e.g. "yaml", "json", "env").
	Format() document.DocumentFormat

	// Path returns the file path or row name when the source has one.
	Path() string

	// Watcher returns the change detection strategy used by Watch.
	Watcher() types.WatcherType

	// Loaded returns whether the layer has been loaded.
	Loaded() bool

	// ReadOnly returns whether the layer was added WithReadOnly.
	ReadOnly() bool

	// Writable returns whether accepted writes can be saved to the layer.
	Writable() bool

	// Dirty returns whether the layer holds writes that were not saved.
	Dirty() bool
}

// AddOption configures Container.Add.
type AddOption func(*addOptions)

type addOptions struct {
	priority    layer.Priority
	hasPriority bool
	readOnly    bool
	noWatch     bool
}

// WithPriority sets the priority of the layer. Higher priorities win.
func WithPriority(p layer.Priority) AddOption {
	return func(o *addOptions) {
		o.priority = p
		o.hasPriority = true
	}
}

// WithReadOnly prevents the layer from being used as the write layer even if
// its source supports saving.
func WithReadOnly() AddOption {
	return func(o *addOptions) {
		o.readOnly = true
	}
}

// WithNoWatch excludes the layer from Watch.
func WithNoWatch() AddOption {
	return func(o *addOptions) {
		o.noWatch = true
	}
}

// layerEntry holds a layer with its priority and cached data.
type layerEntry struct {
	layer    layer.Layer
	priority layer.Priority
	details  types.Details
	readOnly bool
	noWatch  bool

	// dirty indicates writes were recorded since the last Load or Save.
	dirty bool

	// data holds the document from the last Load with pending writes applied.
	data map[string]any

	// changeset holds writes since the last Load or Save, replayed on Reload
	// and handed to the layer on Save so formats can keep comments.
	changeset document.JSONPatchSet
}

func (e *layerEntry) Name() layer.Name                { return e.layer.Name() }
func (e *layerEntry) Priority() layer.Priority        { return e.priority }
func (e *layerEntry) Source() types.SourceType        { return e.details.Source }
func (e *layerEntry) Format() document.DocumentFormat { return e.details.Format }
func (e *layerEntry) Path() string                    { return e.details.Path }
func (e *layerEntry) Watcher() types.WatcherType      { return e.details.Watcher }
func (e *layerEntry) Loaded() bool                    { return e.data != nil }
func (e *layerEntry) ReadOnly() bool                  { return e.readOnly }
func (e *layerEntry) Dirty() bool                     { return e.dirty }

// Writable returns false when the layer is read-only or its source cannot save.
func (e *layerEntry) Writable() bool {
	if e.readOnly {
		return false
	}
	return e.layer.CanSave()
}

// ContainerOption configures NewContainer.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	policy       ValidationPolicy
	writeLayer   layer.Name
	logger       *zap.Logger
	observer     Observer
	priorityStep int
}

// defaultPriorityStep is the step size for auto-assigned priorities.
const defaultPriorityStep = 10

// WithPolicy sets the validation policy applied to writes.
// Default is RejectOutOfRange.
func WithPolicy(p ValidationPolicy) ContainerOption {
	return func(o *containerOptions) {
		o.policy = p
	}
}

// WithWriteLayer names the layer recording accepted writes. Without it
// writes are accepted in memory only and Save has nothing to persist.
func WithWriteLayer(name layer.Name) ContainerOption {
	return func(o *containerOptions) {
		o.writeLayer = name
	}
}

// WithLogger sets the logger. Default is zap.NewNop().
func WithLogger(l *zap.Logger) ContainerOption {
	return func(o *containerOptions) {
		o.logger = l
	}
}

// WithObserver sets the Observer notified of writes and reloads.
func WithObserver(obs Observer) ContainerOption {
	return func(o *containerOptions) {
		o.observer = obs
	}
}

// WithPriorityStep sets the step size for auto-assigned priorities.
// Layers added without WithPriority get 0, step, 2*step, ... Default is 10.
func WithPriorityStep(step int) ContainerOption {
	return func(o *containerOptions) {
		o.priorityStep = step
	}
}

type factEntry struct {
	fact   *Fact
	detach func()
}

type rejectionListener struct {
	id uint64
	fn func(*Fact, Value, error)
}

// Container owns Facts and the layered store of their values.
//
// Values are read from layers in priority order; the highest priority layer
// defining a parameter supplies its effective value. Each loaded parameter
// becomes a Fact bound to the registered MetaData of its name. Writes made
// through Fact.SetValue reach the Container on the Fact's container channel,
// are checked by the ValidationPolicy, recorded in the write layer and pushed
// back with Fact.ContainerSetValue.
type Container struct {
	registry     *MetaDataRegistry
	policy       ValidationPolicy
	writeLayer   layer.Name
	logger       *zap.Logger
	observer     Observer
	priorityStep int

	// mu protects everything below.
	mu              sync.RWMutex
	layers          []*layerEntry
	facts           map[string]*factEntry
	origins         map[string]*layerEntry
	rejections      []rejectionListener
	nextRejectionID uint64
	closed          bool
}

// NewContainer returns an empty Container resolving metadata from reg.
//
//	c := factsys.NewContainer(reg, factsys.WithWriteLayer("user"))
//	c.Add(mapdata.New("defaults", defaults), factsys.WithPriority(factsys.PriorityDefaults))
//	c.Add(layer.New("user", fs.New(path, fs.WithOptional()), yaml.New()), factsys.WithPriority(factsys.PriorityUser))
//	if err := c.Load(ctx); err != nil {
//		return err
//	}
func NewContainer(reg *MetaDataRegistry, opts ...ContainerOption) *Container {
	options := containerOptions{
		policy:       RejectOutOfRange,
		priorityStep: defaultPriorityStep,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if reg == nil {
		reg = NewMetaDataRegistry()
	}
	if options.policy == nil {
		options.policy = RejectOutOfRange
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.observer == nil {
		options.observer = nopObserver{}
	}

	return &Container{
		registry:     reg,
		policy:       options.policy,
		writeLayer:   options.writeLayer,
		logger:       options.logger,
		observer:     options.observer,
		priorityStep: options.priorityStep,
		facts:        make(map[string]*factEntry),
		origins:      make(map[string]*layerEntry),
	}
}

// Registry returns the metadata registry.
func (c *Container) Registry() *MetaDataRegistry {
	return c.registry
}

// Add registers a layer. Layers are kept sorted by priority; layers with the
// same priority keep their insertion order. Duplicate names are rejected.
//
// Add does not load the layer. Call Load or Reload afterwards.
func (c *Container) Add(l layer.Layer, opts ...AddOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.findLayerLocked(l.Name()) != nil {
		return fmt.Errorf("layer %q already exists", l.Name())
	}

	var options addOptions
	for _, opt := range opts {
		opt(&options)
	}

	priority := options.priority
	if !options.hasPriority {
		priority = layer.Priority(len(c.layers) * c.priorityStep)
	}

	entry := &layerEntry{
		layer:    l,
		priority: priority,
		readOnly: options.readOnly,
		noWatch:  options.noWatch,
	}
	l.FillDetails(&entry.details)

	c.layers = append(c.layers, entry)
	sort.SliceStable(c.layers, func(i, j int) bool {
		return c.layers[i].priority < c.layers[j].priority
	})
	return nil
}

// findLayerLocked finds a layer by name. Caller must hold the lock.
func (c *Container) findLayerLocked(name layer.Name) *layerEntry {
	for _, entry := range c.layers {
		if entry.layer.Name() == name {
			return entry
		}
	}
	return nil
}

// Load loads every layer, discarding unsaved writes, and pushes the
// effective values into the Facts. Facts are created for parameters seen for
// the first time. Nothing changes when a layer fails to load or a value
// cannot be converted to its declared type.
func (c *Container) Load(ctx context.Context) (err error) {
	c.mu.Lock()
	ctx, span := startSpan(ctx, "Container.Load", len(c.layers))
	defer func() { endSpan(span, err) }()

	if c.closed {
		c.mu.Unlock()
		return ErrContainerClosed
	}

	next := make([]map[string]any, len(c.layers))
	for i, entry := range c.layers {
		data, err := entry.layer.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to load layer %q: %w", entry.layer.Name(), err)
		}
		if data == nil {
			data = make(map[string]any)
		}
		next[i] = data
	}

	res, err := c.resolveLocked(next)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	for i, entry := range c.layers {
		entry.data = next[i]
		entry.changeset = nil
		entry.dirty = false
	}
	pushes := c.applyLocked(res)
	c.mu.Unlock()

	c.finish(res, pushes)
	c.logger.Debug("parameters loaded", zap.Int("facts", len(res.values)), zap.Int("changed", len(pushes)))
	return nil
}

// Reload is like Load but keeps unsaved writes: the changeset of every layer
// is replayed on top of the freshly loaded data.
func (c *Container) Reload(ctx context.Context) (err error) {
	c.mu.Lock()
	ctx, span := startSpan(ctx, "Container.Reload", len(c.layers))
	defer func() { endSpan(span, err) }()

	if c.closed {
		c.mu.Unlock()
		return ErrContainerClosed
	}

	next := make([]map[string]any, len(c.layers))
	for i, entry := range c.layers {
		data, err := entry.layer.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to load layer %q: %w", entry.layer.Name(), err)
		}
		if data == nil {
			data = make(map[string]any)
		}
		entry.changeset.ApplyTo(data)
		next[i] = data
	}

	res, err := c.resolveLocked(next)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	for i, entry := range c.layers {
		entry.data = next[i]
	}
	pushes := c.applyLocked(res)
	c.mu.Unlock()

	c.finish(res, pushes)
	c.observer.Reloaded()
	c.logger.Debug("parameters reloaded", zap.Int("facts", len(res.values)), zap.Int("changed", len(pushes)))
	return nil
}

// resolvedValue is the effective value of one parameter.
type resolvedValue struct {
	componentID int
	name        string
	meta        *MetaData
	value       Value
	entry       *layerEntry
}

type unknownParameter struct {
	componentID int
	name        string
	layer       layer.Name
}

// resolution is the effective view computed from candidate layer data.
type resolution struct {
	values  map[string]resolvedValue
	unknown []unknownParameter
}

// push is a value to deliver to a Fact once the lock is released.
type push struct {
	fact  *Fact
	value Value
}

// resolveLocked computes the effective value of every parameter in data,
// which holds one document per layer in c.layers order. It does not modify
// the Container. Caller must hold the lock.
func (c *Container) resolveLocked(data []map[string]any) (*resolution, error) {
	type candidate struct {
		raw   any
		entry *layerEntry
	}
	winners := make(map[string]candidate)
	for i, entry := range c.layers {
		jsonptr.WalkLeaves(data[i], func(path string, raw any) {
			winners[path] = candidate{raw: raw, entry: entry}
		})
	}

	paths := make([]string, 0, len(winners))
	for p := range winners {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	res := &resolution{values: make(map[string]resolvedValue, len(paths))}
	for _, p := range paths {
		w := winners[p]
		componentID, name, err := jsonptr.SplitParameterPath(p)
		if err != nil {
			c.logger.Warn("ignoring value outside a component",
				zap.String("layer", string(w.entry.Name())), zap.String("path", p))
			continue
		}
		m, ok := c.registry.Lookup(name)
		if !ok {
			res.unknown = append(res.unknown, unknownParameter{componentID: componentID, name: name, layer: w.entry.Name()})
			continue
		}
		v, err := Coerce(m.Type(), w.raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s in layer %q: %w", p, w.entry.Name(), err)
		}
		res.values[p] = resolvedValue{componentID: componentID, name: name, meta: m, value: v, entry: w.entry}
	}
	return res, nil
}

// applyLocked makes res the current view. New Facts are created and set
// directly, since nothing can be subscribed to them yet. Changes to existing
// Facts are returned for delivery after the lock is released. A parameter
// that disappeared from every layer falls back to its default value.
// Caller must hold the lock.
func (c *Container) applyLocked(res *resolution) []push {
	var pushes []push
	origins := make(map[string]*layerEntry, len(res.values))

	for _, p := range sortedKeys(res.values) {
		rv := res.values[p]
		origins[p] = rv.entry

		fe, ok := c.facts[p]
		if !ok {
			f := NewFact(rv.componentID, rv.name, rv.meta.Type())
			f.SetMetaData(rv.meta)
			_ = f.ContainerSetValue(rv.value)
			c.facts[p] = &factEntry{fact: f, detach: f.SubscribeContainer(c.containerChannel(f))}
			continue
		}
		if !fe.fact.Value().Equal(rv.value) {
			pushes = append(pushes, push{fact: fe.fact, value: rv.value})
		}
	}

	for _, p := range sortedKeys(c.facts) {
		if _, ok := res.values[p]; ok {
			continue
		}
		f := c.facts[p].fact
		if def := f.DefaultValue(); !f.Value().Equal(def) {
			pushes = append(pushes, push{fact: f, value: def})
		}
	}

	c.origins = origins
	return pushes
}

// finish delivers pushes and reports unknown parameters. Must be called
// without the lock.
func (c *Container) finish(res *resolution, pushes []push) {
	for _, u := range res.unknown {
		c.logger.Warn("no metadata for parameter",
			zap.Int("component", u.componentID),
			zap.String("name", u.name),
			zap.String("layer", string(u.layer)))
		c.observer.UnknownParameter(u.componentID, u.name)
	}
	for _, p := range pushes {
		_ = p.fact.ContainerSetValue(p.value)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// containerChannel returns the listener attached to f's container channel.
// Errors are logged and reported by handleWrite.
func (c *Container) containerChannel(f *Fact) func(Value) {
	return func(v Value) {
		_ = c.handleWrite(f, v)
	}
}

// handleWrite validates a write made through f. On success the value is
// recorded in the write layer and pushed back with ContainerSetValue; on
// rejection f keeps its old value and rejection subscribers are notified.
func (c *Container) handleWrite(f *Fact, v Value) error {
	accepted, err := c.policy.Validate(f.MetaData(), v)
	if err == nil {
		c.mu.Lock()
		err = c.recordLocked(f.Path(), accepted)
		c.mu.Unlock()
	}
	if err != nil {
		c.logger.Warn("write rejected",
			zap.Stringer("fact", f),
			zap.Stringer("value", v),
			zap.Error(err))
		c.observer.WriteRejected(f, err)
		c.notifyRejection(f, v, err)
		return err
	}

	if !accepted.Equal(v) {
		c.logger.Info("write adjusted by policy",
			zap.Stringer("fact", f),
			zap.Stringer("requested", v),
			zap.Stringer("accepted", accepted))
	}
	_ = f.ContainerSetValue(accepted)
	c.observer.WriteAccepted(f)
	c.logger.Debug("write accepted", zap.Stringer("fact", f), zap.Stringer("value", accepted))
	return nil
}

// recordLocked stores an accepted value in the write layer's data and
// changeset. Without a write layer it does nothing. Caller must hold the lock.
func (c *Container) recordLocked(path string, v Value) error {
	if c.writeLayer == "" {
		return nil
	}
	entry := c.findLayerLocked(c.writeLayer)
	if entry == nil {
		return fmt.Errorf("write layer %q not found", c.writeLayer)
	}
	if !entry.Writable() {
		if entry.readOnly {
			return fmt.Errorf("layer %q is marked as read-only", c.writeLayer)
		}
		return fmt.Errorf("layer %q does not support saving (source is not writable)", c.writeLayer)
	}
	if entry.data == nil {
		return fmt.Errorf("layer %q has not been loaded", c.writeLayer)
	}
	if origin, ok := c.origins[path]; ok && slices.Index(c.layers, origin) > slices.Index(c.layers, entry) {
		return &ShadowedError{Path: path, WriteLayer: entry.Name(), Layer: origin.Name()}
	}

	raw := v.Interface()
	result := jsonptr.SetPath(entry.data, path, raw)
	if !result.Success {
		return fmt.Errorf("failed to set value at path %q", path)
	}
	op := document.PatchOpReplace
	if result.Created {
		op = document.PatchOpAdd
	}
	entry.changeset = append(entry.changeset, document.JSONPatch{Op: op, Path: path, Value: raw})
	entry.dirty = true
	c.origins[path] = entry
	return nil
}

// SubscribeRejections registers fn to be called with every rejected write.
// The returned function unsubscribes and is safe to call more than once.
func (c *Container) SubscribeRejections(fn func(f *Fact, v Value, err error)) func() {
	c.mu.Lock()
	c.nextRejectionID++
	id := c.nextRejectionID
	c.rejections = append(c.rejections, rejectionListener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.rejections {
			if l.id == id {
				c.rejections = append(c.rejections[:i], c.rejections[i+1:]...)
				return
			}
		}
	}
}

func (c *Container) notifyRejection(f *Fact, v Value, err error) {
	c.mu.RLock()
	listeners := append([]rejectionListener(nil), c.rejections...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l.fn(f, v, err)
	}
}

// SetValue writes raw to the Fact of componentID and name through the
// Container's validation, returning the rejection error if any.
func (c *Container) SetValue(componentID int, name string, raw any) error {
	f, ok := c.Fact(componentID, name)
	if !ok {
		return fmt.Errorf("%w: %d:%s", ErrFactNotFound, componentID, name)
	}
	v, err := Coerce(f.Type(), raw)
	if err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}
	return c.handleWrite(f, v)
}

// Fact returns the Fact of componentID and name.
func (c *Container) Fact(componentID int, name string) (*Fact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fe, ok := c.facts[jsonptr.ParameterPath(componentID, name)]
	if !ok {
		return nil, false
	}
	return fe.fact, true
}

// Facts returns every Fact ordered by component id, then name.
func (c *Container) Facts() []*Fact {
	c.mu.RLock()
	facts := make([]*Fact, 0, len(c.facts))
	for _, fe := range c.facts {
		facts = append(facts, fe.fact)
	}
	c.mu.RUnlock()

	sortFacts(facts)
	return facts
}

func sortFacts(facts []*Fact) {
	slices.SortFunc(facts, func(a, b *Fact) int {
		if a.ComponentID() != b.ComponentID() {
			return cmp.Compare(a.ComponentID(), b.ComponentID())
		}
		return strings.Compare(a.Name(), b.Name())
	})
}

// ComponentIDs returns the ids of components with at least one Fact, sorted.
func (c *Container) ComponentIDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[int]struct{})
	var ids []int
	for _, fe := range c.facts {
		id := fe.fact.ComponentID()
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Groups returns the metadata groups used by a component, sorted.
func (c *Container) Groups(componentID int) []string {
	var groups []string
	for _, f := range c.Facts() {
		if f.ComponentID() == componentID && !slices.Contains(groups, f.Group()) {
			groups = append(groups, f.Group())
		}
	}
	slices.Sort(groups)
	return groups
}

// FactsInGroup returns the Facts of a component in one group, sorted by name.
func (c *Container) FactsInGroup(componentID int, group string) []*Fact {
	var out []*Fact
	for _, f := range c.Facts() {
		if f.ComponentID() == componentID && f.Group() == group {
			out = append(out, f)
		}
	}
	return out
}

// Origin returns the layer supplying the effective value of a parameter,
// or nil when the Fact holds its default because no layer defines it.
func (c *Container) Origin(componentID int, name string) LayerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.origins[jsonptr.ParameterPath(componentID, name)]; ok {
		return entry
	}
	return nil
}

// Decode copies the effective values of a component into out, a pointer to
// a struct whose fields carry `mapstructure` tags naming parameters.
// Parameters without a matching field are ignored.
//
//	var rtl struct {
//		Alt   float32 `mapstructure:"RTL_ALT"`
//		Speed float32 `mapstructure:"RTL_SPEED"`
//	}
//	err := c.Decode(1, &rtl)
func (c *Container) Decode(componentID int, out any) error {
	values := make(map[string]any)
	for _, f := range c.Facts() {
		if f.ComponentID() == componentID {
			values[f.Name()] = f.Value().Interface()
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("component %d: %w", componentID, ErrFactNotFound)
	}
	if err := decoder.Lenient(values, out); err != nil {
		return fmt.Errorf("component %d: %w", componentID, err)
	}
	return nil
}

// Save persists every dirty layer. Errors of individual layers are joined;
// layers that saved successfully are no longer dirty.
func (c *Container) Save(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, span := startSpan(ctx, "Container.Save", len(c.layers))
	defer func() { endSpan(span, err) }()

	var errs []error
	for _, entry := range c.layers {
		if !entry.dirty {
			continue
		}
		if err := c.saveLayerLocked(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveLayer persists one layer even if it is not dirty.
func (c *Container) SaveLayer(ctx context.Context, name layer.Name) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, span := startSpan(ctx, "Container.SaveLayer", len(c.layers))
	defer func() { endSpan(span, err) }()

	entry := c.findLayerLocked(name)
	if entry == nil {
		return fmt.Errorf("layer %q not found", name)
	}
	return c.saveLayerLocked(ctx, entry)
}

// saveLayerLocked saves a single layer entry. Caller must hold the lock.
func (c *Container) saveLayerLocked(ctx context.Context, entry *layerEntry) error {
	if !entry.layer.CanSave() {
		return fmt.Errorf("layer %q does not support saving", entry.layer.Name())
	}
	if entry.data == nil {
		return fmt.Errorf("layer %q has not been loaded", entry.layer.Name())
	}
	if err := entry.layer.Save(ctx, entry.changeset); err != nil {
		return fmt.Errorf("failed to save layer %q: %w", entry.layer.Name(), err)
	}
	c.logger.Info("layer saved",
		zap.String("layer", string(entry.layer.Name())),
		zap.Int("changes", len(entry.changeset)))

	entry.dirty = false
	entry.changeset = nil
	return nil
}

// GetLayer returns the layer with the given name, or nil.
func (c *Container) GetLayer(name layer.Name) layer.Layer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry := c.findLayerLocked(name); entry != nil {
		return entry.layer
	}
	return nil
}

// GetLayerInfo returns information about a layer, or nil if not found.
func (c *Container) GetLayerInfo(name layer.Name) LayerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry := c.findLayerLocked(name); entry != nil {
		return entry
	}
	return nil
}

// ListLayers returns information about all layers, sorted by priority.
func (c *Container) ListLayers() []LayerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]LayerInfo, len(c.layers))
	for i, entry := range c.layers {
		result[i] = entry
	}
	return result
}

// IsDirty reports whether any layer holds unsaved writes.
func (c *Container) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.layers {
		if entry.dirty {
			return true
		}
	}
	return false
}

// Close detaches the Container from the container channel of every Fact.
// Facts stay usable and accept writes on their own afterwards.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, fe := range c.facts {
		fe.detach()
	}
}
