// Package typed maps Go structs onto core documents.
//
// A Repository[T] is scoped to one collection (the leading ID segment, e.g.
// "notes"). The struct is converted through JSON: fields tagged
// `json:"-"` are skipped, which is how an entity keeps its long-form body out
// of the metadata and in Content instead.
package typed

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/speeza/pkg/core"
)

// DocumentModel wraps the raw core.Document with a typed Data field.
// ID is the key inside the collection, without the collection prefix.
type DocumentModel[T any] struct {
	ID      string
	Content string
	Data    T
}

// Repository wraps a core.Repository to provide type-safe access to one collection.
type Repository[T any] struct {
	repo       core.Repository
	collection string
}

// NewRepository creates a type-safe wrapper for the given collection.
func NewRepository[T any](repo core.Repository, collection string) *Repository[T] {
	return &Repository[T]{repo: repo, collection: strings.Trim(collection, "/")}
}

// Collection returns the collection name.
func (r *Repository[T]) Collection() string {
	return r.collection
}

// Key returns the full document ID for a key inside the collection.
func (r *Repository[T]) Key(id string) string {
	return r.collection + "/" + id
}

// Pattern returns the glob matching every document of the collection.
func (r *Repository[T]) Pattern() string {
	return r.collection + "/**"
}

// Owns reports whether a full document ID belongs to this collection and
// returns the key inside it.
func (r *Repository[T]) Owns(docID string) (string, bool) {
	prefix := r.collection + "/"
	if !strings.HasPrefix(docID, prefix) {
		return "", false
	}
	return strings.TrimPrefix(docID, prefix), true
}

// Save persists a typed document.
func (r *Repository[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	coreDoc, err := r.toCore(doc)
	if err != nil {
		return err
	}
	return r.repo.Save(ctx, coreDoc)
}

// Get retrieves a document and unmarshals it.
func (r *Repository[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := r.repo.Get(ctx, r.Key(id))
	if err != nil {
		return nil, err
	}
	return fromCore[T](coreDoc, id)
}

// List returns all documents of the collection converted to the typed model.
func (r *Repository[T]) List(ctx context.Context) ([]*DocumentModel[T], error) {
	coreDocs, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return r.convert(coreDocs)
}

// Query returns the documents accepted by keep, ordered by cmp.
// A nil keep accepts everything; a nil cmp keeps store order.
// The sort is stable.
func (r *Repository[T]) Query(ctx context.Context, keep func(*DocumentModel[T]) bool, cmp func(a, b *DocumentModel[T]) int) ([]*DocumentModel[T], error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return filterSort(all, keep, cmp), nil
}

// Delete removes a document by ID.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, r.Key(id))
}

func (r *Repository[T]) convert(coreDocs []core.Document) ([]*DocumentModel[T], error) {
	result := make([]*DocumentModel[T], 0, len(coreDocs))
	for _, d := range coreDocs {
		key, ok := r.Owns(d.ID)
		if !ok {
			continue
		}
		model, err := fromCore[T](d, key)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", d.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}

func (r *Repository[T]) toCore(doc *DocumentModel[T]) (core.Document, error) {
	if doc.ID == "" {
		return core.Document{}, fmt.Errorf("document has no ID")
	}
	dataBytes, err := json.Marshal(doc.Data)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var metadata map[string]any
	if err := json.Unmarshal(dataBytes, &metadata); err != nil {
		return core.Document{}, fmt.Errorf("failed to convert typed data to map: %w", err)
	}
	return core.Document{
		ID:       r.Key(doc.ID),
		Content:  doc.Content,
		Metadata: metadata,
	}, nil
}

func filterSort[T any](docs []*DocumentModel[T], keep func(*DocumentModel[T]) bool, cmp func(a, b *DocumentModel[T]) int) []*DocumentModel[T] {
	out := make([]*DocumentModel[T], 0, len(docs))
	for _, d := range docs {
		if keep == nil || keep(d) {
			out = append(out, d)
		}
	}
	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func fromCore[T any](coreDoc core.Document, key string) (*DocumentModel[T], error) {
	dataBytes, err := json.Marshal(coreDoc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata marshal failed: %w", err)
	}

	var data T
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return nil, fmt.Errorf("unmarshal to target type failed: %w", err)
	}

	return &DocumentModel[T]{
		ID:      key,
		Content: coreDoc.Content,
		Data:    data,
	}, nil
}
