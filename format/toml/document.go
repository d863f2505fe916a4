// Package toml decodes and writes parameter documents as TOML using
// github.com/pelletier/go-toml/v2.
//
// Component ids are bare keys, so a parameter file looks like:
//
//	[1]
//	RTL_ALT = 100.0
//
// Saving re-encodes the whole document; comments are not kept.
package toml

import (
	"fmt"

	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/mapdoc"
	"github.com/pelletier/go-toml/v2"
)

// New returns a TOML document.
func New() document.Document {
	return mapdoc.New(document.FormatTOML, unmarshal, marshal)
}

func unmarshal(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return m, nil
}

func marshal(data map[string]any) ([]byte, error) {
	if err := checkNil("", data); err != nil {
		return nil, err
	}
	b, err := toml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return b, nil
}

// checkNil rejects nil values, which TOML cannot represent.
func checkNil(prefix string, data map[string]any) error {
	for k, v := range data {
		p := prefix + "/" + k
		switch val := v.(type) {
		case nil:
			return &document.InvalidPathError{Path: p, Reason: "TOML cannot represent null"}
		case map[string]any:
			if err := checkNil(p, val); err != nil {
				return err
			}
		}
	}
	return nil
}
