package filearea

// Package filearea provides the file-backed storage area for the "local"
// persistence mode. The whole area is one JSON file of string keys, written
// atomically, so a crash never leaves a half-written snapshot behind.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/foyerhq/foyer/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.StorageArea = (*Area)(nil)
	_ ports.AreaWatcher = (*Area)(nil)
)

// Config configures a file Area.
type Config struct {
	// Path of the snapshot file. Empty selects DefaultPath().
	Path string
	// Logger for watch diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// fileState is the last file content this process observed, used to tell
// external changes from echoes of our own writes.
type fileState struct {
	content string
	exists  bool
}

// Area is a file-backed storage area, safe for concurrent use within one
// process. Across processes the last writer wins.
type Area struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	lastKnown fileState
}

// New creates the file area, creating the parent directory when needed.
func New(cfg Config) (*Area, error) {
	path := cfg.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	a := &Area{path: path, logger: logger}

	// Baseline current content so Watch starts quiet.
	a.mu.Lock()
	_, err := a.load()
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DefaultPath returns the per-user snapshot file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "foyer", "session.json"), nil
}

// Path returns the snapshot file location.
func (a *Area) Path() string { return a.path }

// Get returns the value under key, or ports.ErrNotFound when absent.
func (a *Area) Get(_ context.Context, key string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	values, err := a.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return v, nil
}

// Set overwrites the value under key.
func (a *Area) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	values, err := a.load()
	if err != nil {
		return err
	}
	values[key] = value
	return a.persist(values)
}

// Delete removes key. Deleting an absent key is not an error and does not
// touch the file.
func (a *Area) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	values, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return a.persist(values)
}

// Watch emits one signal per external change to the snapshot file until ctx
// is done, then closes the channel. Writes made through this Area are
// suppressed. Signals coalesce while undrained.
func (a *Area) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: atomic renames replace the inode
	// and a file watch would silently die on the first write.
	if err := watcher.Add(filepath.Dir(a.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(a.path), err)
	}

	ch := make(chan struct{}, 1)
	go a.pump(ctx, watcher, ch)
	return ch, nil
}

// pump filters watcher events down to external changes of the snapshot file.
func (a *Area) pump(ctx context.Context, watcher *fsnotify.Watcher, ch chan<- struct{}) {
	defer close(ch)
	defer func() {
		if err := watcher.Close(); err != nil {
			a.logger.Warn("close snapshot watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != a.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if a.selfWrite() {
				continue
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn("snapshot watcher error", "error", err)
		}
	}
}

// selfWrite reports whether the file currently matches the state this
// process last wrote or observed, meaning the event echoes our own activity.
func (a *Area) selfWrite() bool {
	a.mu.Lock()
	last := a.lastKnown
	a.mu.Unlock()

	raw, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return !last.exists
		}
		return false
	}
	return last.exists && last.content == string(raw)
}

// load reads and parses the area file. A file that does not parse cannot be
// partially trusted: it is removed and the area starts empty (self-healing).
// Callers hold the mutex.
func (a *Area) load() (map[string]string, error) {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			a.lastKnown = fileState{}
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", a.path, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		a.logger.Warn("discarding unparsable snapshot file", "path", a.path, "error", err)
		if rmErr := os.Remove(a.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove corrupt %s: %w", a.path, rmErr)
		}
		a.lastKnown = fileState{}
		return map[string]string{}, nil
	}

	a.lastKnown = fileState{content: string(raw), exists: true}
	return values, nil
}

// persist writes values atomically: temp file in the same directory, then
// rename over the target. Callers hold the mutex.
func (a *Area) persist(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal area: %w", err)
	}

	// Record the new state before the rename lands so the watcher never
	// reads a stale baseline for our own write.
	a.lastKnown = fileState{content: string(raw), exists: true}

	tmp, err := os.CreateTemp(filepath.Dir(a.path), ".foyer-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(raw)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", a.path, err)
	}
	return nil
}
