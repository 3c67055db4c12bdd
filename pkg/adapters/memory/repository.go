// Package memory provides an in-memory core.Repository.
//
// It backs tests and ephemeral runs (`--adapter memory`). It supports
// transactions and watching so it can stand in for the filesystem adapter
// anywhere.
package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/speeza/pkg/core"
)

// Compile-time interface checks.
var (
	_ core.Transactional = (*Repository)(nil)
	_ core.Watchable     = (*Repository)(nil)
)

// Repository is an in-memory document store. Safe for concurrent access.
type Repository struct {
	mu       sync.RWMutex
	docs     map[string]core.Document
	watchers map[int]*subscription
	nextSub  int
	failure  error
	readOnly bool
	log      *slog.Logger
}

type subscription struct {
	pattern string
	ch      chan core.Event
}

// Option configures the repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return func(r *Repository) {
		r.readOnly = enabled
	}
}

// NewRepository creates an empty in-memory repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		docs:     make(map[string]core.Document),
		watchers: make(map[int]*subscription),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetFailure makes every subsequent write fail with err until cleared with nil.
// It exists to exercise persistence error paths.
func (r *Repository) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = err
}

// Initialize is a no-op.
func (r *Repository) Initialize(ctx context.Context) error { return nil }

// Save stores a copy of the document.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document has no ID")
	}
	r.mu.Lock()
	if err := r.writableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	_, existed := r.docs[doc.ID]
	r.docs[doc.ID] = clone(doc)
	r.mu.Unlock()

	r.log.Debug("memory: saved", "id", doc.ID)
	if existed {
		r.publish(core.EventModify, doc.ID)
	} else {
		r.publish(core.EventCreate, doc.ID)
	}
	return nil
}

// Get returns a copy of the stored document.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return core.Document{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	return clone(doc), nil
}

// List returns every document ordered by ID.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]core.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, clone(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if err := r.writableLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	if _, ok := r.docs[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	delete(r.docs, id)
	r.mu.Unlock()

	r.publish(core.EventDelete, id)
	return nil
}

// Begin starts a transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	return &transaction{
		repo:    r,
		staged:  make(map[string]core.Document),
		deleted: make(map[string]bool),
	}, nil
}

// Watch emits events for document IDs matching pattern.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	sub := &subscription{pattern: pattern, ch: make(chan core.Event, core.DefaultEventBuffer)}
	r.watchers[id] = sub
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, id)
		close(sub.ch)
		r.mu.Unlock()
	}()
	return sub.ch, nil
}

func (r *Repository) writableLocked() error {
	if r.readOnly {
		return core.ErrReadOnly
	}
	return r.failure
}

func (r *Repository) publish(t core.EventType, id string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := core.Event{Type: t, ID: id, Timestamp: time.Now().Unix()}
	for _, sub := range r.watchers {
		if ok, _ := doublestar.Match(sub.pattern, id); !ok {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			r.log.Warn("memory: watcher buffer full, dropping event", "id", id)
		}
	}
}

func clone(doc core.Document) core.Document {
	out := doc
	if doc.Metadata != nil {
		out.Metadata = maps.Clone(doc.Metadata)
	}
	return out
}
