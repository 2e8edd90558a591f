package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Enqueuer accepts files for a later import.
type Enqueuer interface {
	Enqueue(path string)
}

const defaultSettle = 2 * time.Second

// Watcher enqueues record files created or written in a directory. A file is
// enqueued once it has seen no event for the settle period, so a file still
// being written is not imported half way.
type Watcher struct {
	dir     string
	formats *FormatRegistry
	queue   Enqueuer
	watcher *fsnotify.Watcher
	settle  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(dir string, formats *FormatRegistry, queue Enqueuer, settle time.Duration) (*Watcher, error) {
	if formats == nil {
		formats = NewFormatRegistry()
	}
	if settle <= 0 {
		settle = defaultSettle
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		dir:     filepath.Clean(dir),
		formats: formats,
		queue:   queue,
		watcher: w,
		settle:  settle,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Scan enqueues the record files already present, in name order.
func (w *Watcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", w.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && w.formats.Supports(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.queue.Enqueue(filepath.Join(w.dir, name))
	}
	return len(names), nil
}

// touch restarts the settle timer of path.
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.queue.Enqueue(path)
	})
}

// stop drops the files still settling; the next Scan picks them up.
func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stop()
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}
	n, err := w.Scan()
	if err != nil {
		return err
	}
	slog.Info("[Watcher] Watching directory", "dir", w.dir, "existing_files", n)

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Watcher] Stopped", "dir", w.dir)
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.formats.Supports(event.Name) {
				continue
			}
			slog.Debug("[Watcher] Record file changed", "path", event.Name, "op", event.Op.String())
			w.touch(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[Watcher] fsnotify error", "error", err)
		}
	}
}
