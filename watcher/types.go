// Package watcher detects changes in raw parameter documents.
// It supports polling, subscription (event driven) and noop watchers.
package watcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/groundstation/factsys/types"
)

// DefaultPollInterval is the default polling interval for change detection.
const DefaultPollInterval = 5 * time.Second

// WatcherType is an alias for types.WatcherType.
type WatcherType = types.WatcherType

// Standard watcher types.
const (
	// TypePolling is a watcher that polls at regular intervals.
	TypePolling WatcherType = "polling"

	// TypeSubscription is an event-based watcher (e.g., fsnotify).
	TypeSubscription WatcherType = "subscription"

	// TypeNoop is a watcher that never fires (for immutable sources).
	TypeNoop WatcherType = "noop"
)

// CompareFunc compares two byte slices and returns true if they are different.
type CompareFunc func(old, new []byte) bool

// DefaultCompareFunc reports a change when the bytes differ.
func DefaultCompareFunc(old, new []byte) bool {
	return !bytes.Equal(old, new)
}

// HashCompareFunc compares byte slices using SHA-256 hashes.
func HashCompareFunc(old, new []byte) bool {
	return sha256.Sum256(old) != sha256.Sum256(new)
}

// WatchConfig configures watcher behavior.
type WatchConfig struct {
	// PollInterval is the interval between polling attempts.
	// Only used by polling watchers. Default is DefaultPollInterval.
	PollInterval time.Duration

	// CompareFunc detects changes between old and new data.
	// Default is DefaultCompareFunc.
	CompareFunc CompareFunc
}

// WatchConfigOption is a functional option for WatchConfig.
type WatchConfigOption func(*WatchConfig)

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) WatchConfigOption {
	return func(c *WatchConfig) {
		c.PollInterval = d
	}
}

// WithCompareFunc sets the comparison function for change detection.
func WithCompareFunc(f CompareFunc) WatchConfigOption {
	return func(c *WatchConfig) {
		c.CompareFunc = f
	}
}

// NewWatchConfig creates a WatchConfig with defaults applied after opts.
func NewWatchConfig(opts ...WatchConfigOption) WatchConfig {
	var cfg WatchConfig
	cfg.ApplyOptions(opts...)
	cfg.ApplyDefaults()
	return cfg
}

// ApplyOptions applies the given options to the config.
func (c *WatchConfig) ApplyOptions(opts ...WatchConfigOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// ApplyDefaults fills zero or negative fields with their defaults.
func (c *WatchConfig) ApplyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.CompareFunc == nil {
		c.CompareFunc = DefaultCompareFunc
	}
}

// WatchResult is the outcome of one watch cycle.
type WatchResult struct {
	// Data is the latest raw document. Set only when a change was detected.
	Data []byte

	// Error is set if the watch encountered an error.
	Error error
}

// NotifyFunc is called by subscription handlers.
//
//   - notify(data, nil): data is already available
//   - notify(nil, err): an error occurred
//   - notify(nil, nil): something changed, the watcher fetches the data itself
type NotifyFunc func(data []byte, err error)

// StopFunc stops a subscription.
type StopFunc func(ctx context.Context) error

// FetchFunc reads the current raw document.
// changed=false means the caller can skip the notification.
type FetchFunc func(ctx context.Context) (changed bool, data []byte, err error)

// WatcherInitializerParams is handed to a WatcherInitializer by the layer
// that owns the source.
type WatcherInitializerParams struct {
	// Fetch reads the source without taking OpMu.
	Fetch FetchFunc

	// OpMu serializes fetches with the layer's Load and Save.
	OpMu *sync.Mutex

	// Config is the resolved watch configuration.
	Config WatchConfig
}

// ErrNilFetch is returned when WatcherInitializerParams.Fetch is nil.
var ErrNilFetch = errors.New("watcher: Fetch is required")

// Validate checks that the required fields are set.
func (p WatcherInitializerParams) Validate() error {
	if p.Fetch == nil {
		return ErrNilFetch
	}
	return nil
}

// WatcherInitializer builds a Watcher once the owning layer is known.
type WatcherInitializer func(params WatcherInitializerParams) (Watcher, error)

func wrapFetchWithMutex(fetch FetchFunc, mu *sync.Mutex) FetchFunc {
	if fetch == nil || mu == nil {
		return fetch
	}
	return func(ctx context.Context) (bool, []byte, error) {
		mu.Lock()
		defer mu.Unlock()
		return fetch(ctx)
	}
}
