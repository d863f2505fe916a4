package layer

import "github.com/groundstation/factsys/watcher"

// WatchOption configures layer-level watch behavior.
type WatchOption func(*watchOptions)

// watchOptions merges the Container's base config with per-layer overrides.
type watchOptions struct {
	baseConfig *watcher.WatchConfig
	configOpts []watcher.WatchConfigOption
}

func (o *watchOptions) resolveConfig() watcher.WatchConfig {
	var cfg watcher.WatchConfig
	if o.baseConfig != nil {
		cfg = *o.baseConfig
	}
	cfg.ApplyOptions(o.configOpts...)
	cfg.ApplyDefaults()
	return cfg
}

// ResolveWatchConfig applies opts over the defaults. Custom Layer
// implementations call it from Watch.
func ResolveWatchConfig(opts ...WatchOption) watcher.WatchConfig {
	var options watchOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options.resolveConfig()
}

// WithBaseConfig sets the base configuration. The Container passes its
// WatchConfig through this option.
func WithBaseConfig(cfg watcher.WatchConfig) WatchOption {
	return func(o *watchOptions) {
		o.baseConfig = &cfg
	}
}

// WithLayerWatchConfig overrides parts of the base configuration for one layer.
func WithLayerWatchConfig(opts ...watcher.WatchConfigOption) WatchOption {
	return func(o *watchOptions) {
		o.configOpts = append(o.configOpts, opts...)
	}
}
