package scan

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"sessionlamp/internal/paths"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors the log root for session activity using fsnotify with a
// polling fallback. It watches the root plus every project directory
// (fsnotify is not recursive) and adds new project directories as they
// appear.
type Watcher struct {
	root string

	// events is buffered to 1 so bursts of writes coalesce into a single
	// pass trigger.
	events chan struct{}
	done   chan struct{}

	fsw  *fsnotify.Watcher // nil when polling
	once sync.Once

	polling      atomic.Bool
	pollInterval time.Duration
}

// NewWatcher creates a Watcher over the log root. It uses fsnotify as the
// primary change detection mechanism and falls back to polling if fsnotify
// is unavailable or the root cannot be watched.
func NewWatcher(root string) (*Watcher, error) {
	w := &Watcher{
		root:         root,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: 5 * time.Second,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}

	w.fsw = fsw
	if err := fsw.Add(root); err != nil {
		slog.Info("cannot watch log root, falling back to polling", "root", root, "error", err)
		fsw.Close()
		w.fsw = nil
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}
	w.addProjectDirs()

	go w.watch()
	return w, nil
}

// addProjectDirs registers a watch on each project directory under the root.
// Failures on individual directories are tolerated; their files are still
// picked up by the periodic pass ticker.
func (w *Watcher) addProjectDirs() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.fsw.Add(filepath.Join(w.root, e.Name())); err != nil {
			slog.Debug("cannot watch project directory", "dir", e.Name(), "error", err)
		}
	}
}

// isSessionLog reports whether name looks like a session log file.
func isSessionLog(name string) bool {
	return strings.HasSuffix(filepath.Base(name), paths.LogNameSuffix)
}

// watch loops over fsnotify events, forwarding session-log write/create
// notifications. A created directory is a new project: it is added to the
// watch set and counted as activity. On fsnotify errors the watcher closes
// the native watcher and falls back to polling.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if filepath.Dir(event.Name) == w.root {
						_ = w.fsw.Add(event.Name)
						w.notify()
					}
					continue
				}
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isSessionLog(event.Name) {
				w.notify()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.fsw.Close()
			w.fsw = nil
			w.polling.Store(true)
			go w.poll()
			return
		}
	}
}

// poll periodically scans the tree and sends a notification when the most
// recent session-log modification time advances.
func (w *Watcher) poll() {
	lastMod := w.latestLogMod()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			mod := w.latestLogMod()
			if mod.After(lastMod) {
				lastMod = mod
				w.notify()
			}
		}
	}
}

// latestLogMod returns the most recent modification time among session logs
// in the root's project directories.
func (w *Watcher) latestLogMod() time.Time {
	var latest time.Time
	projects, err := os.ReadDir(w.root)
	if err != nil {
		return latest
	}
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(w.root, p.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !isSessionLog(f.Name()) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latest) {
				latest = info.ModTime()
			}
		}
	}
	return latest
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when session logs change.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
		// A pass trigger is already pending, skip
	}
}
