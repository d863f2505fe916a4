// Package decoder decodes generic document maps (as returned by
// layer.Layer.Load) into Go structs. It is used to read metadata documents.
package decoder

// Func decodes data into target, which must be a pointer.
type Func func(data map[string]any, target any) error
