package playback

import (
	"github.com/google/uuid"
)

// Source is what gets spoken: a persisted note or a live draft.
type Source struct {
	// NoteID identifies the persisted note behind the source, if any.
	// Drafts of new notes have none.
	NoteID   uuid.NullUUID
	Text     string
	Language string
	Voice    string
	Rate     float64
}
