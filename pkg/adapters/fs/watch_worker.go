package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/noteboard/pkg/core"
)

// DefaultWatchPattern matches the board document in any supported format.
const DefaultWatchPattern = BoardFile + ".{yaml,yml,json}"

// Watch reports changes made to the board document by other processes.
// Writes done through this backend are filtered out. pattern is a doublestar
// glob matched against names relative to Path; empty selects DefaultWatchPattern.
// The channel closes when ctx is done.
func (b *Backend) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = DefaultWatchPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The document is replaced by rename, so the directory is what we watch.
	if err := watcher.Add(b.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", b.Path, err)
	}

	events := make(chan core.Event, 16)
	w := &watchWorker{
		backend:   b,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(b.config.Debounce),
	}
	b.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		if b.config.ErrorHandler != nil {
			b.config.ErrorHandler(fmt.Errorf("watcher: %w", err))
			return
		}
		b.config.Logger.Error("watcher stopped", "error", err)
	}))
	return events, nil
}

type watchWorker struct {
	backend   *Backend
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

// run is the main event loop of the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.backend.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			// Stack traces only when debugging.
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer close(w.events)
	// Pending timers are drained before the events channel is closed.
	defer w.debouncer.stopAndWait(5 * time.Second)
	defer w.backend.setWatcherActive(false)
	defer w.watcher.Close()

	return w.loop(ctx)
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case werr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.backend.config.Logger.Error("fsnotify error", "error", werr)
			if w.backend.config.ErrorHandler != nil {
				w.backend.config.ErrorHandler(werr)
			}
		}
	}
}

// process filters, maps and debounces one filesystem event.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) bool {
	logger := w.backend.config.Logger
	logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if isTempFile(event.Name) || filepath.Base(event.Name) == w.backend.git.LockName() {
		return false
	}
	rel, err := filepath.Rel(w.backend.Path, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ok, _ := doublestar.Match(w.pattern, rel); !ok {
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}
	if eType != core.EventDelete {
		data, err := os.ReadFile(event.Name)
		if err == nil && w.backend.ownWrite(data) {
			logger.Debug("ignoring own write", "name", rel)
			return false
		}
	}

	w.backend.recordReconcile()
	e := core.Event{Type: eType, Kind: core.KindBoard, ID: rel, Timestamp: time.Now().Unix()}
	w.debouncer.add(rel, e, func(e core.Event) {
		defer func() {
			// The channel may already be closed when the worker is stopping.
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
	return true
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}

// debouncer keeps the last event per key and emits it once the key has been
// quiet for the configured window.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

func (d *debouncer) add(key string, e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[key] = e
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.timers[key] = time.AfterFunc(d.window, d.fire(key, emit))
		return
	}
	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.window, d.fire(key, emit))
}

func (d *debouncer) fire(key string, emit func(core.Event)) func() {
	return func() {
		defer d.wg.Done()

		d.mu.Lock()
		e, ok := d.pending[key]
		delete(d.pending, key)
		delete(d.timers, key)
		stopped := d.stopped
		d.mu.Unlock()

		if ok && !stopped {
			emit(e)
		}
	}
}

// stopAndWait rejects new events, cancels pending ones and waits for running
// callbacks, up to timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
