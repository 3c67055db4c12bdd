// Package notes holds notes and groups: the entities, the pure list
// projections the screens show, the Library that persists them and the
// edit Session that drafts changes.
package notes

import (
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/speeza/pkg/playback"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/voice"
)

// Collections inside the store.
const (
	NotesCollection  = "notes"
	GroupsCollection = "groups"
)

// Note is a text passage with the settings used to read it aloud.
//
// Text is stored as the document body; the other fields become metadata.
type Note struct {
	ID        uuid.UUID     `json:"id"`
	Text      string        `json:"-"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Language  string        `json:"language"`
	Voice     string        `json:"voice"`
	Rate      float64       `json:"rate"`
	GroupID   uuid.NullUUID `json:"group_id"`
}

// InGroup reports whether the note belongs to groupID. An invalid groupID
// means "uncategorized".
func (n Note) InGroup(groupID uuid.NullUUID) bool {
	if !groupID.Valid {
		return !n.GroupID.Valid
	}
	return n.GroupID.Valid && n.GroupID.UUID == groupID.UUID
}

// DisplayTitle returns the title, or the start of the text when untitled.
func (n Note) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	const limit = 40
	r := []rune(n.Text)
	if len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return string(r)
}

// SpeechSource returns the note as something playback can speak.
func (n Note) SpeechSource() playback.Source {
	return playback.Source{
		NoteID:   uuid.NullUUID{UUID: n.ID, Valid: true},
		Text:     n.Text,
		Language: n.Language,
		Voice:    n.Voice,
		Rate:     n.Rate,
	}
}

// normalize fills defaults and clamps the rate. It never touches timestamps.
func (n *Note) normalize() {
	if n.Language == "" {
		n.Language = voice.DefaultLanguage
	}
	if n.Voice == "" {
		n.Voice = voice.DefaultVoice
	}
	if n.Rate == 0 {
		n.Rate = speech.DefaultRate
	}
	n.Rate = speech.ClampRate(n.Rate)
}

// Group is a named bucket of notes. Names need not be unique.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ByID wraps a group id as a filter value.
func ByID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

// Uncategorized is the filter value for notes without a group.
var Uncategorized = uuid.NullUUID{}
