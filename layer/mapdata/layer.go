// Package mapdata provides an in-memory parameter layer. It backs the
// defaults and vehicle layers of a Container and is handy in tests.
package mapdata

import (
	"context"
	"sync"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/mapdoc"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// SourceType is reported in layer details.
const SourceType types.SourceType = "map"

// Layer is a writable layer holding its document in memory.
type Layer struct {
	name layer.Name

	mu   sync.RWMutex
	data map[string]any
}

var _ layer.Layer = (*Layer)(nil)

// New returns a layer holding a deep copy of data.
//
//	defaults := mapdata.New("defaults", map[string]any{
//		"1": map[string]any{"RTL_ALT": 50.0},
//	})
func New(name layer.Name, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		name: name,
		data: mapdoc.DeepCopyMap(data),
	}
}

func (l *Layer) Name() layer.Name {
	return l.name
}

func (l *Layer) FillDetails(d *types.Details) {
	d.Source = SourceType
	d.Watcher = watcher.TypeNoop
}

// Load returns a deep copy of the data.
func (l *Layer) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Data(), nil
}

// Save applies changeset to the in-memory data.
func (l *Layer) Save(ctx context.Context, changeset document.JSONPatchSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	changeset.ApplyTo(l.data)
	return nil
}

// CanSave returns true. Nothing is persisted beyond the process.
func (l *Layer) CanSave() bool {
	return true
}

// Set replaces the value at a JSON Pointer, as if written by another process.
func (l *Layer) Set(pointer string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	jsonptr.SetPath(l.data, pointer, value)
}

// Data returns a deep copy of the current data.
func (l *Layer) Data() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return mapdoc.DeepCopyMap(l.data)
}

// Watch returns a noop watcher; in-memory data is reread on Reload.
func (l *Layer) Watch(opts ...layer.WatchOption) (layer.LayerWatcher, error) {
	return layer.NewNoopLayerWatcher(), nil
}
