package factsys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/watcher"
	"go.uber.org/zap"
)

// WatchConfig configures Container.Watch.
type WatchConfig struct {
	// DebounceDelay is how long to wait for further changes before applying
	// them. Rapid successive edits of a file are applied once.
	// Default: 100ms
	DebounceDelay time.Duration

	// OnError is called when a watcher reports an error or an update cannot
	// be applied. layerName is empty for Container-level errors.
	// If nil, errors are only logged.
	OnError func(layerName layer.Name, err error)

	// OnReload is called after an update was applied and the changed values
	// were pushed into the Facts.
	OnReload func()

	// WatcherOpts are applied to the WatchConfig of every layer watcher.
	WatcherOpts []watcher.WatchConfigOption
}

// DefaultWatchConfig returns the default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay: 100 * time.Millisecond,
		WatcherOpts: []watcher.WatchConfigOption{
			watcher.WithPollInterval(30 * time.Second),
		},
	}
}

type layerWatchState struct {
	name    layer.Name
	watcher layer.LayerWatcher
	entry   *layerEntry
}

type layerUpdate struct {
	name   layer.Name
	entry  *layerEntry
	result layer.LayerWatchResult
}

// Watch starts a watcher for every layer not added WithNoWatch. Changed
// layer data is applied like Reload: unsaved writes are replayed on top and
// changed values are pushed into the Facts with ContainerSetValue, from the
// watch goroutine. Call Load before Watch.
//
// The returned function stops all watchers and waits for the watch
// goroutines to exit.
//
//	stop, err := c.Watch(ctx, factsys.DefaultWatchConfig())
//	if err != nil {
//		return err
//	}
//	defer stop(context.Background())
func (c *Container) Watch(ctx context.Context, cfg WatchConfig) (stop func(context.Context) error, err error) {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultWatchConfig().DebounceDelay
	}
	watchCfg := watcher.NewWatchConfig(cfg.WatcherOpts...)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrContainerClosed
	}
	var watchers []layerWatchState
	for _, entry := range c.layers {
		if entry.noWatch {
			continue
		}
		lw, err := entry.layer.Watch(layer.WithBaseConfig(watchCfg))
		if err != nil {
			c.mu.Unlock()
			for _, ws := range watchers {
				_ = ws.watcher.Stop(ctx)
			}
			return nil, fmt.Errorf("failed to create watcher for layer %q: %w", entry.layer.Name(), err)
		}
		watchers = append(watchers, layerWatchState{name: entry.layer.Name(), watcher: lw, entry: entry})
	}
	c.mu.Unlock()

	if len(watchers) == 0 {
		return func(context.Context) error { return nil }, nil
	}

	watchCtx, watchCancel := context.WithCancel(ctx)
	merged := make(chan layerUpdate, len(watchers)*10)
	var wg sync.WaitGroup

	for _, ws := range watchers {
		if err := ws.watcher.Start(watchCtx); err != nil {
			watchCancel()
			for _, w := range watchers {
				_ = w.watcher.Stop(ctx)
			}
			wg.Wait()
			return nil, fmt.Errorf("failed to start watcher for layer %q: %w", ws.name, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for result := range ws.watcher.Results() {
				select {
				case merged <- layerUpdate{name: ws.name, entry: ws.entry, result: result}:
				case <-watchCtx.Done():
					return
				}
			}
		}()
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		c.watchLoop(watchCtx, merged, cfg)
	}()

	var once sync.Once
	stop = func(stopCtx context.Context) error {
		var errs []error
		once.Do(func() {
			watchCancel()
			for _, ws := range watchers {
				if err := ws.watcher.Stop(stopCtx); err != nil {
					errs = append(errs, fmt.Errorf("failed to stop watcher for layer %q: %w", ws.name, err))
				}
			}
			wg.Wait()
			<-loopDone
		})
		return errors.Join(errs...)
	}
	return stop, nil
}

// watchLoop collects updates and applies them once DebounceDelay passed
// without further updates. Errors are reported immediately.
func (c *Container) watchLoop(ctx context.Context, updates <-chan layerUpdate, cfg WatchConfig) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending map[layer.Name]layerUpdate
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case update := <-updates:
			if update.result.Error != nil {
				c.reportWatchError(cfg, update.name, update.result.Error)
				continue
			}
			if pending == nil {
				pending = make(map[layer.Name]layerUpdate)
			}
			pending[update.name] = update

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(cfg.DebounceDelay)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) > 0 {
				c.applyUpdates(ctx, pending, cfg)
				pending = nil
			}
		}
	}
}

func (c *Container) reportWatchError(cfg WatchConfig, name layer.Name, err error) {
	c.logger.Warn("watch error", zap.String("layer", string(name)), zap.Error(err))
	if cfg.OnError != nil {
		cfg.OnError(name, err)
	}
}

// applyUpdates replaces the data of the updated layers, replays their
// unsaved writes and pushes the changed values.
func (c *Container) applyUpdates(ctx context.Context, updates map[layer.Name]layerUpdate, cfg WatchConfig) {
	_, span := startSpan(ctx, "Container.applyUpdates", len(updates))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		endSpan(span, nil)
		return
	}
	next := make([]map[string]any, len(c.layers))
	for i, entry := range c.layers {
		next[i] = entry.data
		if u, ok := updates[entry.layer.Name()]; ok && u.entry == entry {
			data := u.result.Data
			if data == nil {
				data = make(map[string]any)
			}
			entry.changeset.ApplyTo(data)
			next[i] = data
		}
	}

	res, err := c.resolveLocked(next)
	if err != nil {
		c.mu.Unlock()
		endSpan(span, err)
		c.reportWatchError(cfg, "", fmt.Errorf("failed to apply watch update: %w", err))
		return
	}
	for i, entry := range c.layers {
		entry.data = next[i]
	}
	pushes := c.applyLocked(res)
	c.mu.Unlock()
	endSpan(span, nil)

	c.finish(res, pushes)
	c.observer.Reloaded()
	c.logger.Info("parameters updated from watch", zap.Int("layers", len(updates)), zap.Int("changed", len(pushes)))

	if cfg.OnReload != nil {
		cfg.OnReload()
	}
}
