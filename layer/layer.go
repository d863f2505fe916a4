// Package layer combines a source and a document format into a prioritized
// parameter layer. The Container merges layers by priority to find the
// effective value of every parameter.
package layer

import (
	"context"
	"sync"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// Priority orders layers. Higher values win.
type Priority int

// Name is the unique identifier of a layer within a Container.
type Name string

// Layer is one parameter source. Priority is not part of the layer; the
// Container assigns it in Add.
type Layer interface {
	types.DetailsFiller

	// Name returns the unique identifier for this layer.
	Name() Name

	// Load returns the layer's document as nested maps.
	Load(ctx context.Context) (map[string]any, error)

	// Save writes changeset back to the layer's source.
	// Returns source.ErrSaveNotSupported for read-only layers and
	// source.ErrSourceModified when the source changed since Load.
	Save(ctx context.Context, changeset document.JSONPatchSet) error

	// CanSave reports whether Save is supported.
	CanSave() bool

	// Watch returns an unstarted LayerWatcher.
	// Layers that never change return NewNoopLayerWatcher().
	Watch(opts ...WatchOption) (LayerWatcher, error)
}

// DocumentProvider is implemented by layers built on a document.Document.
type DocumentProvider interface {
	Document() document.Document
}

// basicLayer serializes Load, Save and watcher fetches through opMu so that
// sources can be plain I/O.
type basicLayer struct {
	name   Name
	source source.Source
	doc    document.Document

	opMu sync.Mutex
}

var (
	_ Layer            = (*basicLayer)(nil)
	_ DocumentProvider = (*basicLayer)(nil)
)

// New returns a Layer reading src through doc.
//
//	l := layer.New("user", fs.New("~/.config/gcs/params.yaml", fs.WithOptional()), yaml.New())
func New(name Name, src source.Source, doc document.Document) Layer {
	return &basicLayer{
		name:   name,
		source: src,
		doc:    doc,
	}
}

func (l *basicLayer) Name() Name {
	return l.name
}

func (l *basicLayer) Document() document.Document {
	return l.doc
}

func (l *basicLayer) CanSave() bool {
	return l.source.CanSave()
}

func (l *basicLayer) Load(ctx context.Context) (map[string]any, error) {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	data, err := l.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return l.doc.Get(data)
}

func (l *basicLayer) Save(ctx context.Context, changeset document.JSONPatchSet) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	return l.source.Save(ctx, func(current []byte) ([]byte, error) {
		return l.doc.Apply(current, changeset)
	})
}

// FillDetails reports the source type, format and watcher type, then lets
// the source add its own details.
func (l *basicLayer) FillDetails(d *types.Details) {
	d.Source = l.source.Type()
	d.Format = l.doc.Format()
	d.Watcher = watcher.TypePolling

	if ws, ok := l.source.(source.WatchableSource); ok {
		if init, err := ws.Watch(); err == nil {
			w, err := init(watcher.WatcherInitializerParams{
				Fetch: func(context.Context) (bool, []byte, error) { return false, nil, nil },
			})
			if err == nil {
				d.Watcher = w.Type()
				_ = w.Stop(context.Background())
			}
		}
	}

	if df, ok := l.source.(types.DetailsFiller); ok {
		df.FillDetails(d)
	}
}

// Watch uses the source's own watcher when it has one and falls back to
// polling Load otherwise. All fetches run under the layer lock.
func (l *basicLayer) Watch(opts ...WatchOption) (LayerWatcher, error) {
	cfg := ResolveWatchConfig(opts...)

	fetch := func(ctx context.Context) (bool, []byte, error) {
		data, err := l.source.Load(ctx)
		if err != nil {
			return false, nil, err
		}
		return true, data, nil
	}

	init := watcher.NewPolling(fetch)
	if ws, ok := l.source.(source.WatchableSource); ok {
		var err error
		if init, err = ws.Watch(); err != nil {
			return nil, err
		}
	}

	w, err := init(watcher.WatcherInitializerParams{
		Fetch:  fetch,
		OpMu:   &l.opMu,
		Config: cfg,
	})
	if err != nil {
		return nil, err
	}
	return newLayerWatcher(w, l.doc), nil
}
