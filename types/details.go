// Package types holds the small value types shared by layers, sources and
// watchers. It has no logic of its own.
package types

// SourceType names the kind of a parameter source ("fs", "bytes", "sqlite", ...).
type SourceType string

// DocumentFormat names the encoding of a parameter document.
type DocumentFormat string

// WatcherType names the change detection strategy of a watcher.
type WatcherType string

// Details describes a layer for introspection (the CLI "show" command and
// Container.ListLayers). Fields that do not apply stay empty.
type Details struct {
	// Source is the source kind backing the layer.
	Source SourceType

	// Path is the file or row identifier when the source has one.
	Path string

	// Format is the document format used to decode the source.
	Format DocumentFormat

	// Watcher is the change detection strategy used by Container.Watch.
	Watcher WatcherType
}

// DetailsFiller is implemented by layers and sources that contribute to Details.
type DetailsFiller interface {
	FillDetails(d *Details)
}
