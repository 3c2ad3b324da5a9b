// Package filesystem discovers documents in a local directory tree and
// reports debounced create, update and delete events.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// DefaultDebounce is how long a path must be quiet before its change is emitted.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType describes what happened to a file.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one file event.
type Change struct {
	Path string
	Type ChangeType
}

// Watcher watches a directory tree for files matching a glob pattern.
type Watcher struct {
	root     string
	pattern  string
	match    glob.Glob
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithPattern restricts the watcher to base names matching pattern,
// e.g. "*.pdf" or "*.{md,txt}".
func WithPattern(pattern string) Option {
	return func(w *Watcher) error {
		if pattern == "" {
			return nil
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		w.pattern = pattern
		w.match = g
		return nil
	}
}

// WithDebounce sets the quiet period before a change is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d > 0 {
			w.debounce = d
		}
		return nil
	}
}

// New creates a watcher rooted at root, which must be a directory.
func New(root string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}

	w := &Watcher{root: root, debounce: DefaultDebounce}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Matches reports whether path is a visible file name accepted by the pattern.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || isHidden(rel) {
		return false
	}
	if w.match == nil {
		return true
	}
	return w.match.Match(filepath.Base(path))
}

// Scan returns every matching regular file under the root, in lexical order.
func (w *Watcher) Scan(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("watch: skipping %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != w.root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.Matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Watch starts watching and returns a channel of debounced changes.
// The channel is closed when ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close() //nolint:errcheck
		return nil, err
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	changes := make(chan Change)
	go w.loop(ctx, fw, changes)
	return changes, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	flush := func() bool {
		for path, typ := range pending {
			select {
			case out <- Change{Path: path, Type: typ}:
			case <-ctx.Done():
				return false
			}
		}
		clear(pending)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						logger.Warn("watch: %v", err)
					}
					continue
				}
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			pending[change.Path] = merge(pending[change.Path], change.Type)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			if !flush() {
				return
			}
		}
	}
}

// handleFsEvent converts an fsnotify event into a Change, or nil when the
// event is irrelevant (directories, hidden files, non-matching names, chmod).
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if !w.Matches(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Path: event.Name, Type: ChangeDeleted}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &Change{Path: event.Name, Type: ChangeDeleted}
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if event.Has(fsnotify.Create) {
			return &Change{Path: event.Name, Type: ChangeCreated}
		}
		return &Change{Path: event.Name, Type: ChangeUpdated}
	default:
		return nil
	}
}

// merge folds a new event into the pending one for the same path.
func merge(prev, next ChangeType) ChangeType {
	switch {
	case prev == ChangeCreated && next == ChangeUpdated:
		return ChangeCreated
	case prev == ChangeDeleted && next != ChangeDeleted:
		return ChangeUpdated
	default:
		return next
	}
}

// isHidden reports whether any element of path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
