package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/speeza/internal/atomicfile"
	"github.com/aretw0/speeza/pkg/core"
)

var errTransactionClosed = errors.New("transaction closed")

// Transaction implements core.Transaction for the filesystem.
// Changes are staged in memory and written under the vault lock on Commit.
// If a write fails midway the files already touched are restored.
type Transaction struct {
	id      string
	repo    *Repository
	staged  map[string]core.Document // ID -> Document
	deleted map[string]bool          // ID -> bool
	mu      sync.Mutex
	closed  bool
}

// snapshot is the pre-commit state of one file.
type snapshot struct {
	path    string
	data    []byte
	existed bool
}

func newTransaction(repo *Repository) *Transaction {
	t := &Transaction{
		id:      uuid.NewString(),
		repo:    repo,
		staged:  make(map[string]core.Document),
		deleted: make(map[string]bool),
	}
	repo.mu.Lock()
	repo.transactions[t.id] = struct{}{}
	repo.mu.Unlock()
	return t
}

// ID identifies the transaction in introspection output.
func (t *Transaction) ID() string {
	return t.id
}

// Save stages a document for saving.
func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	if err := t.repo.validateID(doc.ID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errTransactionClosed
	}

	t.staged[doc.ID] = core.Document{ID: doc.ID, Content: doc.Content, Metadata: cloneMetadata(doc.Metadata)}
	delete(t.deleted, doc.ID)
	return nil
}

// Get retrieves a document, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return core.Document{}, errTransactionClosed
	}

	if t.deleted[id] {
		return core.Document{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}

	if doc, ok := t.staged[id]; ok {
		return doc, nil
	}

	return t.repo.Get(ctx, id)
}

// List returns the committed documents overlaid with the staged changes.
func (t *Transaction) List(ctx context.Context) ([]core.Document, error) {
	base, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errTransactionClosed
	}

	merged := make(map[string]core.Document, len(base)+len(t.staged))
	for _, d := range base {
		if !t.deleted[d.ID] {
			merged[d.ID] = d
		}
	}
	for id, d := range t.staged {
		merged[id] = d
	}

	out := make([]core.Document, 0, len(merged))
	for _, d := range merged {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete stages a document for deletion.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errTransactionClosed
	}

	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

// Commit applies all staged changes.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transaction already closed")
	}

	r := t.repo
	if r.isReadOnly() {
		return core.ErrReadOnly
	}

	unlock, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var applied []snapshot
	restore := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			s := applied[i]
			if s.existed {
				_ = atomicfile.Write(s.path, s.data, 0644)
			} else {
				_ = os.Remove(s.path)
			}
			r.cache.Delete(r.relPath(s.path))
		}
	}

	for _, id := range sortedKeys(t.staged) {
		snap := r.snapshot(id)
		if err := r.writeLocked(t.staged[id]); err != nil {
			restore()
			return fmt.Errorf("commit %s: %w", id, err)
		}
		applied = append(applied, snap)
	}

	for _, id := range sortedKeys(t.deleted) {
		snap := r.snapshot(id)
		if !snap.existed {
			continue
		}
		if err := r.removeLocked(id); err != nil {
			restore()
			return fmt.Errorf("commit %s: %w", id, err)
		}
		applied = append(applied, snap)
	}

	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("index save failed", "error", err)
	}

	r.config.Logger.Debug("transaction committed",
		"tx", t.id,
		"reason", changeReason,
		"saved", len(t.staged),
		"deleted", len(t.deleted),
	)
	t.close()
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.staged = nil
	t.deleted = nil
	t.close()
	return nil
}

func (t *Transaction) close() {
	t.closed = true
	t.repo.mu.Lock()
	delete(t.repo.transactions, t.id)
	t.repo.mu.Unlock()
}

// snapshot captures the current bytes behind id so Commit can undo itself.
func (r *Repository) snapshot(id string) snapshot {
	fullPath, _, found := r.locate(id)
	if !found {
		return snapshot{path: fullPath}
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return snapshot{path: fullPath}
	}
	return snapshot{path: fullPath, data: data, existed: true}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
