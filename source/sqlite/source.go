// Package sqlite stores parameter documents as rows of a SQLite database
// using the pure Go modernc.org/sqlite driver.
//
// Each document is one row of
//
//	documents(name TEXT PRIMARY KEY, body BLOB, revision INTEGER)
//
// Saves bump the revision inside a transaction and fail with
// source.ErrSourceModified when another writer got there first.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	body BLOB NOT NULL,
	revision INTEGER NOT NULL
);`

// Open opens (creating if needed) the database at path and ensures the
// documents table exists.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writers serialized on the same file.
	db.SetMaxOpenConns(1)

	if err := Init(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Init creates the documents table on db.
func Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Source reads and writes one named document row.
type Source struct {
	db   *sql.DB
	name string

	mu       sync.Mutex
	revision int64
	loaded   bool
}

var (
	_ source.WatchableSource = (*Source)(nil)
	_ types.DetailsFiller    = (*Source)(nil)
)

// New returns a source for the document called name. The table must exist;
// see Open and Init.
//
//	db, _ := sqlite.Open("/var/lib/gcs/params.db")
//	l := layer.New("vehicle", sqlite.New(db, "vehicle-1"), json.New())
func New(db *sql.DB, name string) *Source {
	return &Source{db: db, name: name}
}

// Type returns source.TypeSQLite.
func (s *Source) Type() source.SourceType {
	return source.TypeSQLite
}

// FillDetails implements types.DetailsFiller.
func (s *Source) FillDetails(d *types.Details) {
	d.Path = s.name
}

// CanSave returns true.
func (s *Source) CanSave() bool {
	return true
}

// Revision returns the revision seen by the last Load or Save.
func (s *Source) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// read returns the body and revision of the row. A missing row is an empty
// document at revision 0.
func (s *Source) read(ctx context.Context, q querier) ([]byte, int64, error) {
	var body []byte
	var revision int64
	err := q.QueryRowContext(ctx,
		`SELECT body, revision FROM documents WHERE name = ?`, s.name,
	).Scan(&body, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read document %q: %w", s.name, err)
	}
	return body, revision, nil
}

// Load reads the document and remembers its revision.
func (s *Source) Load(ctx context.Context) ([]byte, error) {
	body, revision, err := s.read(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.revision = revision
	s.loaded = true
	s.mu.Unlock()
	return body, nil
}

// Save applies updateFunc to the stored body and writes the result with the
// next revision.
func (s *Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, revision, err := s.read(ctx, tx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	expected, loaded := s.revision, s.loaded
	s.mu.Unlock()
	if loaded && revision != expected {
		return fmt.Errorf("document %q at revision %d, loaded %d: %w", s.name, revision, expected, source.ErrSourceModified)
	}

	next, err := updateFunc(current)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, body, revision) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, revision = excluded.revision`,
		s.name, next, revision+1)
	if err != nil {
		return fmt.Errorf("failed to write document %q: %w", s.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %q: %w", s.name, err)
	}

	s.mu.Lock()
	s.revision = revision + 1
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Watch polls the revision column and fetches the body only when it moves.
func (s *Source) Watch() (watcher.WatcherInitializer, error) {
	var last int64 = -1
	poll := func(ctx context.Context) (bool, []byte, error) {
		body, revision, err := s.read(ctx, s.db)
		if err != nil {
			return false, nil, err
		}
		if revision == last {
			return false, nil, nil
		}
		last = revision
		return true, body, nil
	}
	return watcher.NewPolling(poll), nil
}
