package watcher

import (
	"context"
	"sync"
	"time"
)

type pollingWatcher struct {
	fetch FetchFunc
	cfg   WatchConfig

	mu sync.Mutex
	lifecycle
}

// NewPolling returns a WatcherInitializer that polls fetch every
// Config.PollInterval. The first poll happens immediately and always reports.
// Later polls report only when Config.CompareFunc sees a difference.
// A nil fetch falls back to params.Fetch.
//
// fetch runs under params.OpMu, so polls never overlap a Load or Save.
func NewPolling(fetch FetchFunc) WatcherInitializer {
	return func(params WatcherInitializerParams) (Watcher, error) {
		if fetch == nil {
			if err := params.Validate(); err != nil {
				return nil, err
			}
			fetch = params.Fetch
		}
		cfg := params.Config
		cfg.ApplyDefaults()
		return &pollingWatcher{
			fetch:     wrapFetchWithMutex(fetch, params.OpMu),
			cfg:       cfg,
			lifecycle: newLifecycle(),
		}, nil
	}
}

func (w *pollingWatcher) Type() WatcherType {
	return TypePolling
}

func (w *pollingWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return nil
	}
	w.started = true
	go w.run(ctx)
	return nil
}

func (w *pollingWatcher) run(ctx context.Context) {
	defer close(w.done)

	var last []byte
	first := true
	for {
		startTime := time.Now()

		changed, data, err := w.fetch(ctx)
		switch {
		case err != nil:
			if !w.send(ctx, WatchResult{Error: err}) {
				return
			}
		case !changed:
		case first || w.cfg.CompareFunc(last, data):
			first = false
			last = data
			if !w.send(ctx, WatchResult{Data: data}) {
				return
			}
		}

		wait := w.cfg.PollInterval - time.Since(startTime)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stopCh:
			timer.Stop()
			return
		}
	}
}

func (w *pollingWatcher) Stop(ctx context.Context) error {
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
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	close(w.results)
	return nil
}

func (w *pollingWatcher) Results() <-chan WatchResult {
	return w.results
}
