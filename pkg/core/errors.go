package core

import "errors"

// Common errors.
var (
	// ErrNotFound is returned when an ID no longer resolves to a document.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input fails a pre-flight check.
	// Nothing has been written when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps failures of the underlying store.
	ErrPersistence = errors.New("persistence failed")

	// ErrReadOnly is returned by write operations on a read-only store.
	ErrReadOnly = errors.New("repository is in read-only mode")
)
