package core

import "context"

// Repository defines the contract for storing and retrieving documents.
// Adhering to this interface keeps the domain independent of the storage
// mechanism (filesystem, memory, ...).
type Repository interface {
	// Save persists a document. It creates if not exists, or updates if it does.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document by its ID. Missing documents yield ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all available documents.
	List(ctx context.Context) ([]Document, error)

	// Delete removes a document by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (e.g. create directories).
	Initialize(ctx context.Context) error
}

// Watchable is implemented by repositories that can report changes.
type Watchable interface {
	// Watch emits events for documents whose ID matches the glob pattern.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

type contextKey string

// ChangeReasonKey is the context key for passing a human readable reason for
// a write. Adapters may record it; none require it.
const ChangeReasonKey contextKey = "change_reason"

// Transaction defines the contract for a unit of work.
// Changes made within a transaction are atomic and isolated (depending on implementation).
type Transaction interface {
	// Save stages a document for persistence.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document, preferring the staged version if it exists in the transaction.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all available documents, including staged ones.
	List(ctx context.Context) ([]Document, error)

	// Delete stages a document for removal.
	Delete(ctx context.Context, id string) error

	// Commit applies all staged changes atomically.
	Commit(ctx context.Context, changeReason string) error

	// Rollback discards all staged changes.
	Rollback(ctx context.Context) error
}

// Transactional extends Repository to support transactions.
type Transactional interface {
	Repository

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}
