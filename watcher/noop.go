package watcher

import (
	"context"
	"sync"
)

type noopWatcher struct {
	mu sync.Mutex
	lifecycle
}

// NewNoop returns a WatcherInitializer for sources that never change,
// such as bytes.Source.
func NewNoop() WatcherInitializer {
	return func(WatcherInitializerParams) (Watcher, error) {
		return &noopWatcher{lifecycle: newLifecycle()}, nil
	}
}

func (w *noopWatcher) Type() WatcherType {
	return TypeNoop
}

func (w *noopWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return nil
	}
	w.started = true
	go func() {
		defer close(w.done)
		select {
		case <-ctx.Done():
		case <-w.stopCh:
		}
	}()
	return nil
}

func (w *noopWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	w.mu.Unlock()

	if started {
		<-w.done
	}
	close(w.results)
	return nil
}

func (w *noopWatcher) Results() <-chan WatchResult {
	return w.results
}
