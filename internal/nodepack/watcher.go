// Package nodepack watches a nodepack root directory and logs a rebuild
// notice when its Go source changes. It cannot hot-swap the registered
// operations themselves: this server's operations are registered at
// compile time via internal/ops.Register{Plain,Progress,Stream} calls in
// each nodepack's init(), mirroring database/sql driver registration, so
// there is no running interpreter to re-scan the way a dynamically
// imported tree could be. --reload is therefore an honest notice, not a
// hot-swap: the operator still restarts the process to pick up changes.
//
// Debounce mechanics are adapted from ternarybob-iter's pkg/index
// watcher: a pending map of path -> last-seen time drained by a ticker,
// narrowed here to a single log line instead of a reindex call.
package nodepack

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher logs a rebuild notice whenever a .go file under its root
// changes, debounced so a burst of saves produces one notice.
type Watcher struct {
	root       string
	debounce   time.Duration
	logger     *slog.Logger
	fsWatcher  *fsnotify.Watcher
	pending    map[string]time.Time
	pendingMu  sync.Mutex
}

// NewWatcher creates a Watcher rooted at root with the given debounce
// window. A nil logger falls back to slog.Default().
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:      root,
		debounce:  debounce,
		logger:    logger,
		fsWatcher: fsWatcher,
		pending:   make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is done. It adds every directory under root
// (skipping vendor-like directories) and logs one "nodepack changed,
// restart to pick up changes" notice per debounce window.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addDirectories(); err != nil {
		return err
	}
	defer w.fsWatcher.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("nodepack watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	now := time.Now()
	var changed []string
	for path, seen := range w.pending {
		if now.Sub(seen) < w.debounce {
			continue
		}
		changed = append(changed, path)
		delete(w.pending, path)
	}

	if len(changed) > 0 {
		w.logger.Info("nodepack source changed, restart the server to pick up changes", "files", changed)
	}
}

func (w *Watcher) addDirectories() error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if path != w.root && (name == "vendor" || name == ".git" || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}
