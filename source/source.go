// Package source defines where raw parameter documents are read from and
// written to. Sources only move bytes; parsing belongs to document.Document.
package source

import (
	"context"
	"errors"

	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// ErrSaveNotSupported is returned when Save is called on a read-only source.
var ErrSaveNotSupported = errors.New("save not supported for this source")

// ErrSourceModified is returned when a source detects that its data changed
// since the last Load. Nothing is written in that case.
var ErrSourceModified = errors.New("source has been modified since last load")

// SourceType is an alias for types.SourceType.
type SourceType = types.SourceType

// Built-in source types.
const (
	TypeBytes  SourceType = "bytes"
	TypeFS     SourceType = "fs"
	TypeSQLite SourceType = "sqlite"
	TypeSSM    SourceType = "ssm"
	TypeS3     SourceType = "s3"
)

// UpdateFunc receives the current bytes of a source and returns the bytes to
// write. Comment preserving formats patch current instead of regenerating it.
type UpdateFunc func(current []byte) ([]byte, error)

// Source loads and optionally saves raw parameter documents.
type Source interface {
	// Type returns the source type identifier.
	Type() SourceType

	// Load reads the raw document.
	Load(ctx context.Context) ([]byte, error)

	// Save writes the result of updateFunc back to the source.
	//
	// Returns ErrSaveNotSupported if the source is read-only and
	// ErrSourceModified if the data changed since the last Load.
	//
	//	err := src.Save(ctx, func(current []byte) ([]byte, error) {
	//		return doc.Apply(current, changeset)
	//	})
	Save(ctx context.Context, updateFunc UpdateFunc) error

	// CanSave reports whether Save is supported.
	CanSave() bool
}

// WatchableSource is implemented by sources with a native change detector.
// Layers fall back to polling Load for other sources.
type WatchableSource interface {
	Source
	Watch() (watcher.WatcherInitializer, error)
}
