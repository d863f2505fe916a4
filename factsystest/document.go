package factsystest

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/source"
)

// MemorySource is an in-memory source that supports both Load and Save.
// It is useful for testing Document implementations via LayerTester.
type MemorySource struct {
	mu   sync.Mutex
	data []byte
}

var _ source.Source = (*MemorySource)(nil)

// NewMemorySource returns a MemorySource holding data.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// Type returns "memory".
func (s *MemorySource) Type() source.SourceType {
	return "memory"
}

func (s *MemorySource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data), nil
}

func (s *MemorySource) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := updateFunc(slices.Clone(s.data))
	if err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *MemorySource) CanSave() bool {
	return true
}

// Bytes returns the stored document.
func (s *MemorySource) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data)
}

// Encode renders data with doc by applying one add patch per leaf to an
// empty document.
func Encode(doc document.Document, data map[string]any) ([]byte, error) {
	var ps document.JSONPatchSet
	jsonptr.WalkLeaves(data, func(pointer string, value any) {
		ps.Add(pointer, value)
	})
	return doc.Apply(nil, ps)
}

// DocumentLayerFactory returns a LayerFactory building layers over a
// MemorySource encoded with doc, to test a Document through the full Layer
// stack.
func DocumentLayerFactory(doc document.Document) LayerFactory {
	return func(t testing.TB, data map[string]any) layer.Layer {
		t.Helper()
		b, err := Encode(doc, data)
		requireNoError(t, err, "encode test data: %v", err)
		return layer.New("test", NewMemorySource(b), doc)
	}
}
