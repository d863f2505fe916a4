// Package document defines how a parameter document is decoded from, and
// written back to, raw bytes.
//
// Implementations are stateless. A layer loads bytes from its source, hands
// them to Get, and on save hands the current bytes plus the accumulated
// changes to Apply. Formats that can keep comments and ordering (YAML, JSONC,
// TOML) apply the changes in place; the others re-encode.
package document

import "github.com/groundstation/factsys/types"

// Document decodes and patches one document format.
type Document interface {
	// Format reports the encoding handled by this Document.
	Format() DocumentFormat

	// Get decodes data into a nested map. Empty input yields an empty map.
	Get(data []byte) (map[string]any, error)

	// Apply returns data with changeset applied. Patches whose path cannot be
	// represented are reported as errors rather than skipped.
	Apply(data []byte, changeset JSONPatchSet) ([]byte, error)
}

// DocumentFormat is an alias so formats can be compared without importing types.
type DocumentFormat = types.DocumentFormat

const (
	FormatJSON  DocumentFormat = "json"
	FormatJSONC DocumentFormat = "jsonc"
	FormatYAML  DocumentFormat = "yaml"
	FormatTOML  DocumentFormat = "toml"
	FormatEnv   DocumentFormat = "env"
)
