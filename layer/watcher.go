package layer

import (
	"context"
	"sync"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/watcher"
)

// LayerWatchResult is a parsed watch result.
type LayerWatchResult struct {
	// Data is the layer's new document.
	Data map[string]any

	// Error is set if fetching or parsing failed.
	Error error
}

// LayerWatcher watches a layer and reports parsed documents.
type LayerWatcher interface {
	// Type returns the underlying watcher type.
	Type() watcher.WatcherType

	// Start begins watching.
	Start(ctx context.Context) error

	// Stop stops watching and closes Results.
	Stop(ctx context.Context) error

	// Results returns the result channel.
	Results() <-chan LayerWatchResult
}

// layerWatcher parses the raw documents of a source watcher.
type layerWatcher struct {
	watcher watcher.Watcher
	doc     document.Document
	results chan LayerWatchResult
	stopCh  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
}

func newLayerWatcher(w watcher.Watcher, doc document.Document) *layerWatcher {
	return &layerWatcher{
		watcher: w,
		doc:     doc,
		results: make(chan LayerWatchResult),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// NewLayerWatcher wraps a raw watcher; results are parsed with doc.
func NewLayerWatcher(w watcher.Watcher, doc document.Document) LayerWatcher {
	return newLayerWatcher(w, doc)
}

// NewNoopLayerWatcher returns a watcher that never reports.
func NewNoopLayerWatcher() LayerWatcher {
	w, _ := watcher.NewNoop()(watcher.WatcherInitializerParams{})
	return newLayerWatcher(w, nil)
}

func (w *layerWatcher) Type() watcher.WatcherType {
	return w.watcher.Type()
}

func (w *layerWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return nil
	}
	if err := w.watcher.Start(ctx); err != nil {
		return err
	}
	w.started = true

	go func() {
		defer close(w.done)
		defer close(w.results)
		for r := range w.watcher.Results() {
			out := LayerWatchResult{Error: r.Error}
			if r.Error == nil {
				out.Data, out.Error = w.doc.Get(r.Data)
			}
			select {
			case w.results <- out:
			case <-w.stopCh:
			}
		}
	}()
	return nil
}

// Stop stops the source watcher and waits for Results to close.
func (w *layerWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	w.mu.Unlock()

	err := w.watcher.Stop(ctx)
	if started {
		<-w.done
	} else {
		close(w.results)
	}
	return err
}

func (w *layerWatcher) Results() <-chan LayerWatchResult {
	return w.results
}
