// Package core defines the document model and the storage ports the rest of
// speeza is built on. It depends on nothing but the standard library and
// introspection.
package core

import (
	"fmt"
	"time"
)

// Metadata represents the flexible key-value pairs associated with a document.
type Metadata map[string]any

// Document is the unit of persistence.
// Entities (notes, groups, language preferences) are mapped onto documents by
// the typed layer: the long-form body goes into Content, every other field
// into Metadata.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Collection returns the leading path segment of the document ID
// ("notes/abc" -> "notes"). Documents at the root have no collection.
func (d Document) Collection() string {
	return CollectionOf(d.ID)
}

// CollectionOf returns the collection segment of an ID.
func CollectionOf(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i]
		}
	}
	return ""
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s @%s", e.Type, e.ID, time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339))
}
