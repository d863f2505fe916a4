// Package env maps environment variables onto parameter values.
//
// With prefix "GCS_", the variable GCS_1_RTL_ALT=120 sets parameter RTL_ALT of
// component 1, i.e. the path /1/RTL_ALT. Values stay strings; the Container
// coerces them to the parameter's type.
package env

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
)

// SourceType is reported in layer details.
const SourceType types.SourceType = "env"

// Layer is a read-only layer built from environment variables.
type Layer struct {
	name    layer.Name
	prefix  string
	environ func() []string
}

var _ layer.Layer = (*Layer)(nil)

// Option configures a Layer.
type Option func(*Layer)

// WithEnviron replaces os.Environ as the variable source.
func WithEnviron(fn func() []string) Option {
	return func(l *Layer) {
		l.environ = fn
	}
}

// New returns an environment layer for variables starting with prefix.
//
//	c.Add(env.New("env", "GCS_"), factsys.WithPriority(factsys.PriorityEnv))
func New(name layer.Name, prefix string, opts ...Option) *Layer {
	l := &Layer{
		name:    name,
		prefix:  prefix,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Layer) Name() layer.Name {
	return l.name
}

// Prefix returns the variable prefix.
func (l *Layer) Prefix() string {
	return l.prefix
}

func (l *Layer) FillDetails(d *types.Details) {
	d.Source = SourceType
	d.Format = document.FormatEnv
	d.Path = l.prefix + "*"
}

// Load collects matching variables. Variables whose remainder is not
// <componentId>_<NAME> are ignored.
func (l *Layer) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := make(map[string]any)
	for _, kv := range l.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, l.prefix) {
			continue
		}
		componentID, name, ok := SplitKey(strings.TrimPrefix(key, l.prefix))
		if !ok {
			continue
		}
		jsonptr.SetPath(data, jsonptr.ParameterPath(componentID, name), value)
	}
	return data, nil
}

// SplitKey splits "1_RTL_ALT" into (1, "RTL_ALT").
func SplitKey(key string) (componentID int, name string, ok bool) {
	id, name, found := strings.Cut(key, "_")
	if !found || name == "" {
		return 0, "", false
	}
	componentID, err := strconv.Atoi(id)
	if err != nil || componentID < 0 {
		return 0, "", false
	}
	return componentID, name, true
}

// Key returns the variable name for a parameter.
func (l *Layer) Key(componentID int, name string) string {
	return l.prefix + strconv.Itoa(componentID) + "_" + name
}

// Save returns source.ErrSaveNotSupported.
func (l *Layer) Save(ctx context.Context, changeset document.JSONPatchSet) error {
	return source.ErrSaveNotSupported
}

// CanSave returns false.
func (l *Layer) CanSave() bool {
	return false
}

// Watch returns a noop watcher; the environment is fixed for the process.
func (l *Layer) Watch(opts ...layer.WatchOption) (layer.LayerWatcher, error) {
	return layer.NewNoopLayerWatcher(), nil
}
