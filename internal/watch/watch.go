// Package watch turns file system activity under a project root into
// debounced batches of changed paths that warrant a rescan.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phobologic/deptrack/internal/config"
	"github.com/phobologic/deptrack/internal/discover"
	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/lang"
)

// Watcher collects events from a [fsnotify.Watcher] and sends the changed
// paths in batches once no relevant activity was seen for the delay.
type Watcher struct {
	root   string
	logger *slog.Logger

	watcher *fsnotify.Watcher
	events  chan []string
	closed  chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	watchedDirs map[string]bool
}

// New watches every scannable directory under root and starts the event
// loop. Close must be called to release the watcher.
func New(root string, delay time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:        filepath.Clean(root),
		logger:      logger,
		watcher:     fw,
		events:      make(chan []string),
		closed:      make(chan struct{}),
		watchedDirs: make(map[string]bool),
	}
	if err := w.watchTree(w.root); err != nil {
		fw.Close()
		return nil, err
	}
	if state := filepath.Join(w.root, ignore.StateDir); isDir(state) {
		_ = w.watchDir(state)
	}

	w.wg.Add(1)
	go w.run(delay)
	return w, nil
}

// Events delivers sorted, de-duplicated batches of changed absolute paths.
// It is closed by Close.
func (w *Watcher) Events() <-chan []string {
	return w.events
}

func (w *Watcher) run(delay time.Duration) {
	defer w.wg.Done()
	defer close(w.events)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-w.closed:
			return

		case <-timer.C:
			if len(pending) > 0 {
				batch := make([]string, 0, len(pending))
				for p := range pending {
					batch = append(batch, p)
				}
				sort.Strings(batch)
				select {
				case w.events <- batch:
				case <-w.closed:
					return
				}
				pending = make(map[string]struct{})
			}
			timer.Reset(delay)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				continue
			}
			w.logger.Warn("watch error", "err", err)

		case event, ok := <-w.watcher.Events:
			if !ok {
				continue
			}
			// Only relevant events push the deadline out.
			if path, ok := w.handleEvent(event); ok {
				pending[path] = struct{}{}
				timer.Reset(delay)
			}
		}
	}
}

// handleEvent reports the path of a relevant event. New directories are
// watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	// fsnotify does not guarantee clean filepaths.
	path := filepath.Clean(event.Name)
	if event.Op.Has(fsnotify.Chmod) && !event.Op.Has(fsnotify.Write) {
		return "", false
	}

	dir := isDir(path)
	if !dir && !event.Op.Has(fsnotify.Create) {
		dir = w.isWatched(path)
	}
	if dir {
		if discover.SkipDir(filepath.Base(path)) && filepath.Base(path) != ignore.StateDir {
			return "", false
		}
		switch {
		case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
			w.unwatchDir(path)
		case event.Op.Has(fsnotify.Create):
			if err := w.watchTree(path); err != nil {
				w.logger.Warn("watch failed", "path", path, "err", err)
			}
		default:
			return "", false
		}
		return path, true
	}

	if !relevant(path) {
		return "", false
	}
	w.logger.Debug("change", "path", path, "op", event.Op.String())
	return path, true
}

// relevant reports whether a change to the file at path can alter results.
func relevant(path string) bool {
	name := filepath.Base(path)
	switch {
	case lang.ForExtension(filepath.Ext(name)) != "", name == "package.json", name == ".gitignore":
		return true
	case strings.HasPrefix(name, config.FileName+"."):
		return true
	case filepath.Base(filepath.Dir(path)) == ignore.StateDir:
		return strings.HasSuffix(name, ".toml")
	}
	return false
}

// watchTree adds path and every scannable directory below it.
func (w *Watcher) watchTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watchDir(p); err != nil {
			w.logger.Warn("watch failed", "path", p, "err", err)
			return filepath.SkipDir
		}
		return nil
	})
}

func (w *Watcher) watchDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.watcher.Add(path); err != nil {
		return err
	}
	w.watchedDirs[path] = true
	return nil
}

func (w *Watcher) unwatchDir(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// fsnotify drops the watch of a removed directory itself.
	delete(w.watchedDirs, path)
}

func (w *Watcher) isWatched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watchedDirs[path]
}

// Close stops the event loop and releases the underlying watcher. Pending
// changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	err := w.watcher.Close()
	w.mu.Unlock()

	close(w.closed)
	w.wg.Wait()
	return err
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
