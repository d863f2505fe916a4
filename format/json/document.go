// Package json decodes and writes parameter documents as plain JSON.
//
// Numbers are decoded as json.Number so integer parameters keep their exact
// value until they are coerced to the declared type. Comments are not
// supported; use format/jsonc for hand-edited files.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/mapdoc"
)

// New returns a JSON document.
//
//	layer.New("user", fs.New("params.json"), json.New())
func New() document.Document {
	return mapdoc.New(document.FormatJSON, unmarshal, marshal)
}

func unmarshal(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if root == nil {
		return map[string]any{}, nil
	}
	m, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse JSON: root must be an object, got %T", root)
	}
	return m, nil
}

func marshal(data map[string]any) ([]byte, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(b, '\n'), nil
}
