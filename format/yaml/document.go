// Package yaml reads and edits parameter documents written in YAML using
// gopkg.in/yaml.v3.
//
// Edits operate on the yaml.Node tree, so comments attached to untouched keys
// and to the replaced values themselves survive a save. Component ids may be
// written bare (1:) or quoted ("1":); both address the same component.
package yaml

import (
	"bytes"
	"fmt"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"gopkg.in/yaml.v3"
)

// Document is the YAML document.Document.
type Document struct {
	indent int
}

var _ document.Document = (*Document)(nil)

// Option configures a Document.
type Option func(*Document)

// WithIndent sets the indentation used when writing. Default is 2.
func WithIndent(n int) Option {
	return func(d *Document) {
		d.indent = n
	}
}

// New returns a YAML document.
//
//	layer.New("user", fs.New("~/.config/gcs/params.yaml"), yaml.New())
func New(opts ...Option) *Document {
	d := &Document{indent: 2}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Format implements document.Document.
func (d *Document) Format() document.DocumentFormat {
	return document.FormatYAML
}

// Get implements document.Document.
func (d *Document) Get(data []byte) (map[string]any, error) {
	root, err := parse(data)
	if err != nil {
		return nil, err
	}
	body := rootMapping(root)
	if body == nil {
		return map[string]any{}, nil
	}
	v, err := nodeToValue(body)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse YAML: root must be a mapping")
	}
	return m, nil
}

// Apply implements document.Document.
func (d *Document) Apply(data []byte, changeset document.JSONPatchSet) ([]byte, error) {
	root, err := parse(data)
	if err != nil {
		return nil, err
	}
	body := rootMapping(root)
	if body == nil {
		body = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{body}}
	}
	if body.Kind != yaml.MappingNode {
		return nil, &document.TypeMismatchError{Path: "", Expected: "mapping", Actual: kindName(body.Kind)}
	}

	for _, p := range changeset {
		keys, err := jsonptr.Parse(p.Path)
		if err != nil || len(keys) == 0 {
			return nil, &document.InvalidPathError{Path: p.Path, Reason: "must be a non-empty JSON Pointer"}
		}
		switch p.Op {
		case document.PatchOpAdd, document.PatchOpReplace:
			if err := setValue(body, keys, p.Value, p.Path); err != nil {
				return nil, err
			}
		case document.PatchOpRemove:
			removeValue(body, keys)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(d.indent)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func parse(data []byte) (*yaml.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &root, nil
}

func rootMapping(root *yaml.Node) *yaml.Node {
	if root == nil {
		return nil
	}
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		return resolve(root.Content[0])
	}
	return resolve(root)
}

func resolve(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

// nodeToValue converts a node to plain Go values. Mapping keys always become
// strings, which keeps bare integer component ids addressable.
func nodeToValue(n *yaml.Node) (any, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode YAML value at line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

func findKey(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func setValue(mapping *yaml.Node, keys []string, value any, path string) error {
	for depth, key := range keys {
		last := depth == len(keys)-1
		idx := findKey(mapping, key)

		if last {
			node, err := encodeValue(value)
			if err != nil {
				return fmt.Errorf("failed to encode value for %q: %w", path, err)
			}
			if idx < 0 {
				mapping.Content = append(mapping.Content, keyNode(key), node)
				return nil
			}
			old := mapping.Content[idx+1]
			node.HeadComment, node.LineComment, node.FootComment = old.HeadComment, old.LineComment, old.FootComment
			mapping.Content[idx+1] = node
			return nil
		}

		if idx < 0 {
			child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			mapping.Content = append(mapping.Content, keyNode(key), child)
			mapping = child
			continue
		}
		child := resolve(mapping.Content[idx+1])
		if child.Kind != yaml.MappingNode {
			return &document.TypeMismatchError{Path: path, Expected: "mapping", Actual: kindName(child.Kind)}
		}
		mapping = child
	}
	return nil
}

func removeValue(mapping *yaml.Node, keys []string) {
	for depth, key := range keys {
		idx := findKey(mapping, key)
		if idx < 0 {
			return
		}
		if depth == len(keys)-1 {
			mapping.Content = append(mapping.Content[:idx], mapping.Content[idx+2:]...)
			return
		}
		child := resolve(mapping.Content[idx+1])
		if child.Kind != yaml.MappingNode {
			return
		}
		mapping = child
	}
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func encodeValue(value any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return nil, err
	}
	return &n, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
