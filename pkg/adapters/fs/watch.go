package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/speeza/internal/atomicfile"
	"github.com/aretw0/speeza/pkg/core"
)

// Watch emits events for document IDs matching pattern (doublestar syntax,
// e.g. "notes/**" or "{notes,groups}/**"). Writes made through this
// repository are reported like external edits. The channel closes once ctx
// is done and the watcher has drained.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid watch pattern %q", core.ErrValidation, pattern)
	}

	events := make(chan core.Event, core.DefaultEventBuffer)
	w := newWatchWorker(r, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	go func() {
		<-w.done
		close(events)
	}()

	return events, nil
}

type fingerprint struct {
	id    string
	mtime time.Time
	size  int64
}

// Reconcile rescans the vault and reports what changed since the index was
// last refreshed. The watcher uses it to recover from dropped events.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	before := r.fingerprints()
	if _, err := r.List(ctx); err != nil {
		return nil, err
	}
	after := r.fingerprints()

	now := time.Now().Unix()
	var events []core.Event
	for rel, fp := range after {
		prev, ok := before[rel]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, ID: fp.id, Timestamp: now})
		case !prev.mtime.Equal(fp.mtime) || prev.size != fp.size:
			events = append(events, core.Event{Type: core.EventModify, ID: fp.id, Timestamp: now})
		}
	}
	for rel, fp := range before {
		if _, ok := after[rel]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: fp.id, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].ID == events[j].ID {
			return events[i].Type < events[j].Type
		}
		return events[i].ID < events[j].ID
	})

	r.recordReconcile()
	r.config.Logger.Debug("reconciled", "changes", len(events))
	return events, nil
}

func (r *Repository) fingerprints() map[string]fingerprint {
	out := make(map[string]fingerprint)
	r.cache.Range(func(rel string, e *indexEntry) bool {
		out[rel] = fingerprint{id: e.ID, mtime: e.LastModified, size: e.Size}
		return true
	})
	return out
}

// recursiveAdd watches root and every non-hidden directory below it.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != r.Path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// scanFiles returns the relative paths of every document file in the vault.
func (r *Repository) scanFiles() (map[string]bool, error) {
	files := make(map[string]bool)
	err := filepath.WalkDir(r.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.Path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !r.shouldIgnore(p) {
			files[r.relPath(p)] = true
		}
		return nil
	})
	return files, err
}

// shouldIgnore filters hidden paths, temp files and unsupported formats.
func (r *Repository) shouldIgnore(fullPath string) bool {
	rel, err := filepath.Rel(r.Path, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return true
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	base := filepath.Base(fullPath)
	if atomicfile.IsTemp(base) {
		return true
	}
	_, ok := r.serializers[filepath.Ext(base)]
	return !ok
}

// resolveID maps an absolute file path to a document ID.
func (r *Repository) resolveID(fullPath string) (string, error) {
	rel, err := filepath.Rel(r.Path, fullPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside the vault", fullPath)
	}
	return trimFormat(filepath.ToSlash(rel), r.serializers), nil
}

func (r *Repository) matches(id, pattern string) bool {
	ok, _ := doublestar.Match(pattern, id)
	return ok
}
