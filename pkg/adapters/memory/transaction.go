package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/speeza/pkg/core"
)

type transaction struct {
	repo    *Repository
	staged  map[string]core.Document
	deleted map[string]bool
	mu      sync.Mutex
	closed  bool
}

func (t *transaction) Save(ctx context.Context, doc core.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transaction closed")
	}
	t.staged[doc.ID] = clone(doc)
	delete(t.deleted, doc.ID)
	return nil
}

func (t *transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Document{}, fmt.Errorf("transaction closed")
	}
	if t.deleted[id] {
		return core.Document{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	if doc, ok := t.staged[id]; ok {
		return clone(doc), nil
	}
	return t.repo.Get(ctx, id)
}

func (t *transaction) List(ctx context.Context) ([]core.Document, error) {
	base, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	merged := make(map[string]core.Document, len(base)+len(t.staged))
	for _, d := range base {
		if !t.deleted[d.ID] {
			merged[d.ID] = d
		}
	}
	for id, d := range t.staged {
		merged[id] = clone(d)
	}
	out := make([]core.Document, 0, len(merged))
	for _, d := range merged {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transaction closed")
	}
	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

// Commit applies all staged changes under one lock, so readers observe either
// none or all of them.
func (t *transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transaction already closed")
	}

	r := t.repo
	r.mu.Lock()
	if err := r.writableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	type change struct {
		t  core.EventType
		id string
	}
	var changes []change
	for id, doc := range t.staged {
		kind := core.EventCreate
		if _, ok := r.docs[id]; ok {
			kind = core.EventModify
		}
		r.docs[id] = doc
		changes = append(changes, change{kind, id})
	}
	for id := range t.deleted {
		if _, ok := r.docs[id]; ok {
			delete(r.docs, id)
			changes = append(changes, change{core.EventDelete, id})
		}
	}
	r.mu.Unlock()

	r.log.Debug("memory: transaction committed", "reason", changeReason, "changes", len(changes))
	for _, c := range changes {
		r.publish(c.t, c.id)
	}
	t.closed = true
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}
