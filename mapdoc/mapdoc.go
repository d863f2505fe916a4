// Package mapdoc implements document.Document for formats that only need a
// decode / patch / re-encode cycle over map[string]any, without keeping the
// original text layout.
package mapdoc

import (
	"bytes"

	"github.com/groundstation/factsys/document"
)

// UnmarshalFunc decodes non-empty input into a map.
type UnmarshalFunc func(data []byte) (map[string]any, error)

// MarshalFunc encodes a map.
type MarshalFunc func(data map[string]any) ([]byte, error)

// Document is a map-backed document.Document.
type Document struct {
	format    document.DocumentFormat
	unmarshal UnmarshalFunc
	marshal   MarshalFunc
}

var _ document.Document = (*Document)(nil)

// New returns a Document for format using the given codec.
func New(format document.DocumentFormat, unmarshal UnmarshalFunc, marshal MarshalFunc) *Document {
	return &Document{format: format, unmarshal: unmarshal, marshal: marshal}
}

// Format implements document.Document.
func (d *Document) Format() document.DocumentFormat {
	return d.format
}

// Get implements document.Document.
func (d *Document) Get(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	m, err := d.unmarshal(data)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// Apply implements document.Document. The output is always re-encoded.
func (d *Document) Apply(data []byte, changeset document.JSONPatchSet) ([]byte, error) {
	m, err := d.Get(data)
	if err != nil {
		return nil, err
	}
	for _, p := range changeset {
		if p.Path == "" || p.Path[0] != '/' {
			return nil, &document.InvalidPathError{Path: p.Path, Reason: "must be a non-empty JSON Pointer"}
		}
	}
	changeset.ApplyTo(m)
	return d.marshal(m)
}

// DeepCopyMap copies nested maps and []any slices. Scalars are shared.
func DeepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
