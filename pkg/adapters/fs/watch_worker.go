package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/speeza/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	known     map[string]bool // relPaths present on disk, to tell CREATE from MODIFY
	cancel    context.CancelFunc
	done      chan struct{}
}

func newWatchWorker(repo *Repository, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		pattern:    pattern,
		events:     events,
		done:       make(chan struct{}),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.repo.recursiveAdd(watcher, w.repo.Path); err != nil {
		_ = watcher.Close()
		return err
	}

	known, err := w.repo.scanFiles()
	if err != nil {
		_ = watcher.Close()
		return err
	}

	w.known = known
	w.watcher = watcher
	w.debouncer = newDebouncer(w.repo.config.DebounceInterval)
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, func(ctx context.Context) error {
		defer close(w.done)
		return w.run(ctx)
	})
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"pattern":           w.pattern,
		}
	})
}

// reconcileAfterOverflow re-scans the vault when the kernel queue overflowed
// and events were lost.
func (w *watchWorker) reconcileAfterOverflow(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		reconciledEvents, err := w.repo.Reconcile(ctx)
		if err != nil {
			w.repo.config.Logger.Error("reconcile failed", "error", err)
			return err
		}
		for _, e := range reconciledEvents {
			if w.repo.matches(e.ID, w.pattern) {
				w.sendEvent(ctx, e, "reconciliation")
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.repo.reportError(fmt.Errorf("reconcile: %w", err))
	}))
}

// processFilesystemEvent handles filtering, mapping, and debouncing of filesystem events.
// Returns true if event was processed, false if should be ignored.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) (processed bool) {
	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.repo.recursiveAdd(w.watcher, event.Name); err != nil {
				w.repo.reportError(fmt.Errorf("failed to watch %s: %w", event.Name, err))
			}
			return false
		}
	}

	if w.repo.shouldIgnore(event.Name) {
		return false
	}

	relPath := w.repo.relPath(event.Name)
	eType := mapEventType(event, w.known[relPath])
	if eType == "" {
		return false
	}
	if eType == core.EventDelete {
		delete(w.known, relPath)
	} else {
		w.known[relPath] = true
	}

	id, err := w.repo.resolveID(event.Name)
	if err != nil {
		w.repo.reportError(fmt.Errorf("failed to resolve ID for %s: %w", event.Name, err))
		return false
	}

	if !w.repo.matches(id, w.pattern) {
		return false
	}

	w.sendEvent(ctx, core.Event{
		Type:      eType,
		ID:        id,
		Timestamp: time.Now().Unix(),
	}, "filesystem")

	return true
}

// sendEvent enqueues an event via the debouncer, protecting against channel closure during shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event, source string) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
			w.repo.config.Logger.Debug("event emitted", "event", e.String(), "source", source)
		case <-ctx.Done():
		}
	})
}

// handleWatcherError processes errors from the fsnotify watcher.
func (w *watchWorker) handleWatcherError(ctx context.Context, err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		w.repo.config.Logger.Warn("event queue overflow, reconciling")
		w.reconcileAfterOverflow(ctx)
		return
	}
	w.repo.config.Logger.Error("fsnotify error", "error", err)
	w.repo.reportError(err)
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)

			// Stack only at debug level.
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	// Drain the debouncer before the caller closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)

	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(ctx, wErr)
		}
	}
}

// mapEventType translates an fsnotify op. A create over a file that was
// already present (atomic replace) is reported as a modification.
func mapEventType(event fsnotify.Event, known bool) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		if known {
			return core.EventModify
		}
		return core.EventCreate
	case event.Has(fsnotify.Write):
		if known {
			return core.EventModify
		}
		return core.EventCreate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !known {
			return ""
		}
		return core.EventDelete
	default:
		return ""
	}
}
