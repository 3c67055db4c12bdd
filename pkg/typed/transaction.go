package typed

import (
	"context"

	"github.com/aretw0/speeza/pkg/core"
)

// Transaction scopes a core.Transaction to the collection of a Repository.
// Several typed transactions may share one core.Transaction, which is how a
// change spanning collections stays atomic.
type Transaction[T any] struct {
	tx   core.Transaction
	repo *Repository[T]
}

// In binds the repository's collection to an open transaction.
func (r *Repository[T]) In(tx core.Transaction) *Transaction[T] {
	return &Transaction[T]{tx: tx, repo: r}
}

// Save stages a typed document.
func (t *Transaction[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	coreDoc, err := t.repo.toCore(doc)
	if err != nil {
		return err
	}
	return t.tx.Save(ctx, coreDoc)
}

// Get retrieves a document, preferring the staged version.
func (t *Transaction[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := t.tx.Get(ctx, t.repo.Key(id))
	if err != nil {
		return nil, err
	}
	return fromCore[T](coreDoc, id)
}

// List returns the collection as seen from inside the transaction.
func (t *Transaction[T]) List(ctx context.Context) ([]*DocumentModel[T], error) {
	coreDocs, err := t.tx.List(ctx)
	if err != nil {
		return nil, err
	}
	return t.repo.convert(coreDocs)
}

// Query is Repository.Query evaluated inside the transaction.
func (t *Transaction[T]) Query(ctx context.Context, keep func(*DocumentModel[T]) bool, cmp func(a, b *DocumentModel[T]) int) ([]*DocumentModel[T], error) {
	all, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	return filterSort(all, keep, cmp), nil
}

// Delete stages the removal of a document.
func (t *Transaction[T]) Delete(ctx context.Context, id string) error {
	return t.tx.Delete(ctx, t.repo.Key(id))
}
