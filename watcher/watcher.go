package watcher

import "context"

// Watcher watches a source and reports changed documents on Results.
type Watcher interface {
	// Type returns the watcher type identifier.
	Type() WatcherType

	// Start begins watching. It returns immediately; results arrive on Results.
	Start(ctx context.Context) error

	// Stop stops watching and closes Results. A stopped watcher cannot be restarted.
	Stop(ctx context.Context) error

	// Results returns the result channel. It is valid before Start.
	Results() <-chan WatchResult
}

// lifecycle holds the start/stop state shared by all watchers.
type lifecycle struct {
	results chan WatchResult
	stopCh  chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

func newLifecycle() lifecycle {
	return lifecycle{
		results: make(chan WatchResult),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// send delivers r unless the watcher is stopping.
func (l *lifecycle) send(ctx context.Context, r WatchResult) bool {
	select {
	case l.results <- r:
		return true
	case <-ctx.Done():
		return false
	case <-l.stopCh:
		return false
	}
}
