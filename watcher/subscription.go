package watcher

import (
	"context"
	"sync"
)

// SubscriptionHandler registers for change events and reports them via notify.
type SubscriptionHandler interface {
	Subscribe(ctx context.Context, notify NotifyFunc) (StopFunc, error)
}

// SubscriptionHandlerFunc is a function that implements SubscriptionHandler.
type SubscriptionHandlerFunc func(ctx context.Context, notify NotifyFunc) (StopFunc, error)

// Subscribe implements SubscriptionHandler.
func (f SubscriptionHandlerFunc) Subscribe(ctx context.Context, notify NotifyFunc) (StopFunc, error) {
	return f(ctx, notify)
}

type subscriptionWatcher struct {
	handler SubscriptionHandler
	fetch   FetchFunc
	compare CompareFunc

	mu       sync.Mutex
	inflight sync.WaitGroup
	stopFn   StopFunc
	last   []byte
	seen   bool
	lifecycle
}

// NewSubscription returns a WatcherInitializer for event driven sources.
//
// When the handler calls notify(nil, nil) the watcher reads the document
// through params.Fetch (under params.OpMu) and reports it only when it differs
// from the previously reported document.
func NewSubscription(handler SubscriptionHandler) WatcherInitializer {
	return func(params WatcherInitializerParams) (Watcher, error) {
		if err := params.Validate(); err != nil {
			return nil, err
		}
		cfg := params.Config
		cfg.ApplyDefaults()
		return &subscriptionWatcher{
			handler:   handler,
			fetch:     wrapFetchWithMutex(params.Fetch, params.OpMu),
			compare:   cfg.CompareFunc,
			lifecycle: newLifecycle(),
		}, nil
	}
}

func (w *subscriptionWatcher) Type() WatcherType {
	return TypeSubscription
}

func (w *subscriptionWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	stop, err := w.handler.Subscribe(ctx, func(data []byte, err error) {
		w.notify(ctx, data, err)
	})
	if err != nil {
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.stopFn = stop
	w.mu.Unlock()
	return nil
}

func (w *subscriptionWatcher) notify(ctx context.Context, data []byte, err error) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if data == nil && err == nil {
		changed, fetched, fetchErr := w.fetch(ctx)
		if fetchErr == nil && !changed {
			return
		}
		data, err = fetched, fetchErr
	}
	if err == nil {
		w.mu.Lock()
		if w.seen && !w.compare(w.last, data) {
			w.mu.Unlock()
			return
		}
		w.seen = true
		w.last = data
		w.mu.Unlock()
	}
	w.send(ctx, WatchResult{Data: data, Error: err})
}

func (w *subscriptionWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	stop := w.stopFn
	w.stopFn = nil
	w.mu.Unlock()

	var err error
	if stop != nil {
		err = stop(ctx)
	}
	w.inflight.Wait()
	close(w.results)
	return err
}

func (w *subscriptionWatcher) Results() <-chan WatchResult {
	return w.results
}
