// Package bytes provides a read-only source backed by an in-memory byte slice.
// It is used for embedded metadata documents and built-in defaults.
package bytes

import (
	"context"
	"slices"

	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/watcher"
)

// Source serves a fixed document.
type Source struct {
	data []byte
}

var _ source.WatchableSource = (*Source)(nil)

// New returns a source serving a copy of data.
//
//	//go:embed params.meta.yaml
//	var meta []byte
//	src := bytes.New(meta)
func New(data []byte) *Source {
	return &Source{data: slices.Clone(data)}
}

// FromString returns a source serving data.
func FromString(data string) *Source {
	return New([]byte(data))
}

// Type returns source.TypeBytes.
func (s *Source) Type() source.SourceType {
	return source.TypeBytes
}

// Load returns a copy of the data.
func (s *Source) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.data), nil
}

// Save always returns source.ErrSaveNotSupported.
func (s *Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	return source.ErrSaveNotSupported
}

// CanSave returns false.
func (s *Source) CanSave() bool {
	return false
}

// Watch returns a noop watcher; the data never changes.
func (s *Source) Watch() (watcher.WatcherInitializer, error) {
	return watcher.NewNoop(), nil
}
