package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultRetireAfter is how long a replaced index stays open for turns
	// that were already using it.
	DefaultRetireAfter = 2 * time.Minute

	watchDebounce = 250 * time.Millisecond
)

// LoaderFunc produces a fresh index, or nil when none is available.
type LoaderFunc func(ctx context.Context) *Index

// Holder publishes the current index to concurrent readers. Readers take a
// snapshot with Current and keep using it for the rest of their turn even if
// a newer index is swapped in meanwhile.
type Holder struct {
	current atomic.Pointer[Index]
	loader  LoaderFunc
	logger  *slog.Logger

	// RetireAfter delays closing a replaced index. Zero closes immediately.
	RetireAfter time.Duration

	reloadMu sync.Mutex
}

// NewHolder builds a Holder and performs the initial load.
func NewHolder(ctx context.Context, loader LoaderFunc, logger *slog.Logger) *Holder {
	h := &Holder{
		loader:      loader,
		logger:      logger,
		RetireAfter: DefaultRetireAfter,
	}
	if loader != nil {
		if idx := loader(ctx); idx != nil {
			h.current.Store(idx)
		}
	}
	return h
}

// Current returns the active index, or nil when it is unavailable.
func (h *Holder) Current() Searcher {
	if h == nil {
		return nil
	}
	idx := h.current.Load()
	if idx == nil {
		return nil
	}
	return idx
}

// Index returns the active index, or nil.
func (h *Holder) Index() *Index {
	if h == nil {
		return nil
	}
	return h.current.Load()
}

// Available reports whether an index is loaded.
func (h *Holder) Available() bool {
	return h.Index() != nil
}

// Swap installs idx and retires the previous index.
func (h *Holder) Swap(idx *Index) {
	old := h.current.Swap(idx)
	if old == nil || old == idx {
		return
	}
	if h.RetireAfter <= 0 {
		h.closeIndex(old)
		return
	}
	time.AfterFunc(h.RetireAfter, func() { h.closeIndex(old) })
}

// Reload runs the loader and swaps in the result. A failed load keeps the
// index currently being served. It reports whether a new index was installed.
func (h *Holder) Reload(ctx context.Context) bool {
	if h.loader == nil {
		return false
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	idx := h.loader(ctx)
	if idx == nil {
		h.logger.Warn("evidence index reload failed, keeping current index", "available", h.Available())
		return false
	}

	h.Swap(idx)
	h.logger.Info("evidence index swapped", "documents", idx.Manifest().Documents)
	return true
}

// Watch reloads the index whenever dir is replaced (see Build). It watches
// the parent directory, since Build swaps dir by renaming, and blocks until
// ctx is done.
func (h *Holder) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating index watcher: %w", err)
	}
	defer watcher.Close()

	dir = filepath.Clean(dir)
	if err := watcher.Add(filepath.Dir(dir)); err != nil {
		return fmt.Errorf("watching index parent dir: %w", err)
	}

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != dir {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			// renames arrive as a burst of events
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			h.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("index watcher error", "error", err)
		}
	}
}

// Close closes the active index.
func (h *Holder) Close() error {
	old := h.current.Swap(nil)
	if old == nil {
		return nil
	}
	return old.Close()
}

func (h *Holder) closeIndex(idx *Index) {
	if err := idx.Close(); err != nil {
		h.logger.Warn("closing retired evidence index", "error", err)
	}
}
