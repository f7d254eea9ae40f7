// Package watch submits a requirement file whenever an editor saves it.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nstogner/diagrammer/pkg/notify"
)

// Watcher reports the content of one file after it changes.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	debounce *notify.Debouncer
	onChange func(content string)
	done     chan struct{}

	mu   sync.Mutex
	last string
}

// New watches path and calls onChange with the trimmed file content once
// writes have settled for interval. Empty content and content equal to the
// previous report are skipped.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temp file are still seen.
func New(path string, interval time.Duration, onChange func(content string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		fsW.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		fs:       fsW,
		debounce: notify.NewDebouncer(interval),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	w.debounce.Stop()
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.debounce.Trigger(w.read)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("Requirement watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) read() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Debug("Requirement file unreadable", "path", w.path, "error", err)
		return
	}
	content := strings.TrimSpace(string(data))

	w.mu.Lock()
	if content == "" || content == w.last {
		w.mu.Unlock()
		return
	}
	w.last = content
	w.mu.Unlock()

	slog.Info("Requirement file changed", "path", w.path, "bytes", len(content))
	w.onChange(content)
}
