// Package fs provides a file source with locked, atomic saves and fsnotify
// based change detection.
package fs

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// Default permission modes.
const (
	DefaultFileMode = 0644
	DefaultDirMode  = 0755
)

var userHomeDir = os.UserHomeDir

// Source loads and saves a parameter document stored in a file.
type Source struct {
	path        string
	searchPaths []string
	fileMode    os.FileMode
	dirMode     os.FileMode
	optional    bool

	mu           sync.Mutex
	resolvedPath string
	loadedSum    *[sha256.Size]byte
}

var (
	_ source.WatchableSource = (*Source)(nil)
	_ types.DetailsFiller    = (*Source)(nil)
)

// Option configures a Source.
type Option func(*Source)

// WithFileMode sets the permission mode of saved files. Default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Source) {
		s.fileMode = mode
	}
}

// WithDirMode sets the permission mode of created parent directories.
// Default is 0755.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Source) {
		s.dirMode = mode
	}
}

// WithSearchPaths adds fallback paths. Load uses the first existing file,
// trying the primary path first. Save writes to the file Load used.
func WithSearchPaths(paths ...string) Option {
	return func(s *Source) {
		s.searchPaths = append(s.searchPaths, paths...)
	}
}

// WithOptional makes a missing file load as an empty document instead of an
// error. The first Save creates it.
func WithOptional() Option {
	return func(s *Source) {
		s.optional = true
	}
}

// New returns a file source. A leading ~ expands to the home directory.
//
//	src := fs.New("~/.config/gcs/params.yaml", fs.WithOptional())
func New(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns source.TypeFS.
func (s *Source) Type() source.SourceType {
	return source.TypeFS
}

// Path returns the configured primary path.
func (s *Source) Path() string {
	return s.path
}

// FillDetails implements types.DetailsFiller.
func (s *Source) FillDetails(d *types.Details) {
	d.Path = s.ResolvedPath()
}

// CanSave returns true.
func (s *Source) CanSave() bool {
	return true
}

// Load reads the file.
func (s *Source) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, original, err := s.resolvePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) && s.optional {
		data, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", original, err)
	}

	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.resolvedPath = resolved
	s.loadedSum = &sum
	s.mu.Unlock()
	return data, nil
}

// Save rewrites the file under an exclusive flock, writing a temporary file
// and renaming it over the target. Parent directories are created as needed.
//
// If the file content differs from what the last Load returned, Save fails
// with source.ErrSourceModified and leaves the file untouched.
func (s *Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.ResolvedPath()
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	lockFile, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE, s.fileMode)
	if err != nil {
		return fmt.Errorf("failed to open file %q for locking: %w", target, err)
	}
	defer lockFile.Close()

	unlock, err := fileLock(int(lockFile.Fd()))
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %q: %w", target, err)
	}
	defer unlock()

	var current []byte
	stat, err := lockFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file %q: %w", target, err)
	}
	if stat.Size() > 0 {
		current = make([]byte, stat.Size())
		if _, err := lockFile.ReadAt(current, 0); err != nil {
			return fmt.Errorf("failed to read current file %q: %w", target, err)
		}
	}

	s.mu.Lock()
	loaded := s.loadedSum
	s.mu.Unlock()
	if loaded != nil && *loaded != sha256.Sum256(current) {
		return fmt.Errorf("%q: %w", target, source.ErrSourceModified)
	}

	next, err := updateFunc(current)
	if err != nil {
		return err
	}

	if err := writeAtomic(dir, target, next, s.fileMode); err != nil {
		return err
	}

	sum := sha256.Sum256(next)
	s.mu.Lock()
	s.resolvedPath = target
	s.loadedSum = &sum
	s.mu.Unlock()
	return nil
}

func writeAtomic(dir, target string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(dir, ".factsys-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to rename temporary file to %q: %w", target, err)
	}
	success = true
	return nil
}

// ResolvedPath returns the file Load used, or the expanded primary path
// before the first Load.
func (s *Source) ResolvedPath() string {
	s.mu.Lock()
	resolved := s.resolvedPath
	s.mu.Unlock()
	if resolved != "" {
		return resolved
	}
	expanded, err := expandTilde(s.path)
	if err != nil {
		return s.path
	}
	return expanded
}

// resolvePath returns the first existing candidate, or the primary path.
func (s *Source) resolvePath() (expanded string, original string, err error) {
	candidates := append([]string{s.path}, s.searchPaths...)
	for _, p := range candidates {
		e, err := expandTilde(p)
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(e); statErr == nil {
			return e, p, nil
		}
	}

	expanded, err = expandTilde(s.path)
	if err != nil {
		return "", s.path, fmt.Errorf("failed to expand path %q: %w", s.path, err)
	}
	return expanded, s.path, nil
}

func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Subscribe implements watcher.SubscriptionHandler.
//
// The parent directory is watched rather than the file so that atomic
// replacements and recreation are seen. Matching events call notify(nil, nil);
// the watcher then fetches the data under the layer lock.
func (s *Source) Subscribe(ctx context.Context, notify watcher.NotifyFunc) (watcher.StopFunc, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	path := s.ResolvedPath()
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}
	name := filepath.Base(path)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					notify(nil, nil)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				notify(nil, err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(context.Context) error {
		err := w.Close()
		<-done
		return err
	}, nil
}

// Watch returns an fsnotify based subscription watcher.
func (s *Source) Watch() (watcher.WatcherInitializer, error) {
	return watcher.NewSubscription(watcher.SubscriptionHandlerFunc(s.Subscribe)), nil
}
