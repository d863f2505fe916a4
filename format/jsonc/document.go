// Package jsonc reads and edits parameter documents written as JSON with
// comments and trailing commas, using github.com/tailscale/hujson.
//
// Edits are applied to the hujson syntax tree, so comments and layout of the
// untouched parts of a hand-written file survive a save.
package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/tailscale/hujson"
)

// Document is the JSONC document.Document.
type Document struct{}

var _ document.Document = (*Document)(nil)

// New returns a JSONC document.
func New() *Document {
	return &Document{}
}

// Format implements document.Document.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatJSONC
}

// Get implements document.Document.
func (d *Document) Get(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	std, err := hujson.Standardize(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSONC: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode JSONC: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// Apply implements document.Document.
func (d *Document) Apply(data []byte, changeset document.JSONPatchSet) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	root, err := hujson.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSONC: %w", err)
	}

	for _, p := range changeset {
		keys, err := jsonptr.Parse(p.Path)
		if err != nil || len(keys) == 0 {
			return nil, &document.InvalidPathError{Path: p.Path, Reason: "must be a non-empty JSON Pointer"}
		}
		switch p.Op {
		case document.PatchOpAdd, document.PatchOpReplace:
			if err := ensureParents(&root, keys); err != nil {
				return nil, err
			}
			if err := patch(&root, "add", p.Path, p.Value); err != nil {
				return nil, err
			}
		case document.PatchOpRemove:
			if root.Find(p.Path) == nil {
				continue
			}
			if err := patch(&root, "remove", p.Path, nil); err != nil {
				return nil, err
			}
		}
	}

	root.Format()
	out := root.Pack()
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// ensureParents creates empty objects for every missing ancestor of keys,
// because an RFC 6902 "add" requires the parent to exist.
func ensureParents(root *hujson.Value, keys []string) error {
	for i := 1; i < len(keys); i++ {
		parent := jsonptr.Build(toAny(keys[:i])...)
		v := root.Find(parent)
		if v == nil {
			if err := patch(root, "add", parent, map[string]any{}); err != nil {
				return err
			}
			continue
		}
		if _, ok := v.Value.(*hujson.Object); !ok {
			return &document.TypeMismatchError{Path: parent, Expected: "object", Actual: fmt.Sprintf("%T", v.Value)}
		}
	}
	return nil
}

func patch(root *hujson.Value, op, path string, value any) error {
	obj := map[string]any{"op": op, "path": path}
	if op != "remove" {
		obj["value"] = value
	}
	b, err := json.Marshal([]any{obj})
	if err != nil {
		return fmt.Errorf("failed to encode patch for %q: %w", path, err)
	}
	if err := root.Patch(b); err != nil {
		return fmt.Errorf("failed to apply %s at %q: %w", op, path, err)
	}
	return nil
}

func toAny(keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
