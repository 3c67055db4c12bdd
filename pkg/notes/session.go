package notes

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/playback"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/voice"
)

// Draft is the editable state of a note.
type Draft struct {
	Text     string
	Title    string
	Language string
	Voice    string
	Rate     float64
	GroupID  uuid.NullUUID
}

// VoiceIndex picks the voice for a language.
type VoiceIndex interface {
	FirstVoice(lang string) (string, bool)
}

// LanguageMemory remembers the language last picked in the editor.
type LanguageMemory interface {
	LastLanguage() string
	RememberLanguage(lang string)
}

// Writer is the persistence side of a session commit.
type Writer interface {
	CreateNote(ctx context.Context, n Note) (Note, error)
	UpdateNote(ctx context.Context, id uuid.UUID, mutate func(*Note)) (Note, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLanguageMemory wires the "last selected language" setting. It is read
// for new drafts and written only while the session is in create mode.
func WithLanguageMemory(m LanguageMemory) SessionOption {
	return func(s *Session) {
		s.memory = m
	}
}

// Session drafts a new note or edits an existing one.
//
// The live draft is compared against a snapshot taken when the session was
// created or a note was loaded. Not safe for concurrent use.
type Session struct {
	voices VoiceIndex
	memory LanguageMemory

	draft    Draft
	original Draft
	noteID   uuid.NullUUID
}

// NewSession creates a session in create mode with a default draft.
func NewSession(voices VoiceIndex, opts ...SessionOption) *Session {
	s := &Session{voices: voices}
	for _, opt := range opts {
		opt(s)
	}
	s.draft = s.defaults()
	s.original = s.draft
	return s
}

func (s *Session) defaults() Draft {
	lang := voice.DefaultLanguage
	if s.memory != nil {
		if remembered := s.memory.LastLanguage(); remembered != "" {
			lang = remembered
		}
	}
	return Draft{
		Language: lang,
		Voice:    s.voiceFor(lang),
		Rate:     speech.DefaultRate,
	}
}

func (s *Session) voiceFor(lang string) string {
	if s.voices != nil {
		if name, ok := s.voices.FirstVoice(lang); ok {
			return name
		}
	}
	return voice.DefaultVoice
}

// Draft returns a copy of the live draft.
func (s *Session) Draft() Draft { return s.draft }

// Original returns the snapshot HasChanges compares against.
func (s *Session) Original() Draft { return s.original }

// NoteID returns the id of the loaded note; invalid in create mode.
func (s *Session) NoteID() uuid.NullUUID { return s.noteID }

// LoadFromNote copies note into both the draft and the snapshot.
func (s *Session) LoadFromNote(n Note) {
	d := Draft{
		Text:     n.Text,
		Title:    n.Title,
		Language: n.Language,
		Voice:    n.Voice,
		Rate:     n.Rate,
		GroupID:  n.GroupID,
	}
	s.draft = d
	s.original = d
	s.noteID = uuid.NullUUID{UUID: n.ID, Valid: true}
}

// Reset puts default values in the draft and leaves the snapshot alone.
// The default language is the remembered one when there is a memory.
func (s *Session) Reset() {
	s.draft = s.defaults()
	s.noteID = uuid.NullUUID{}
}

// HasChanges reports whether any draft field differs from the snapshot.
func (s *Session) HasChanges() bool {
	return s.draft != s.original
}

// Revert restores the snapshot.
func (s *Session) Revert() {
	s.draft = s.original
}

// ValidateForSave reports whether the draft may be saved: the text must
// contain something other than whitespace.
func (s *Session) ValidateForSave() bool {
	return !isBlank(s.draft.Text)
}

func (s *Session) SetText(text string)   { s.draft.Text = text }
func (s *Session) SetTitle(title string) { s.draft.Title = title }
func (s *Session) SetVoice(name string)  { s.draft.Voice = name }

// SetGroup assigns the draft to a group; Uncategorized clears it.
func (s *Session) SetGroup(id uuid.NullUUID) { s.draft.GroupID = id }

// SetRate stores rate clamped into the valid range.
func (s *Session) SetRate(rate float64) {
	s.draft.Rate = speech.ClampRate(rate)
}

// SetLanguage switches the language and selects its first voice, or the
// "Default" sentinel when the language has none.
func (s *Session) SetLanguage(lang string) {
	s.draft.Language = lang
	s.draft.Voice = s.voiceFor(lang)
	// Only drafting a new note moves the remembered language; editing an
	// old note in another language leaves it alone.
	if s.memory != nil && !s.noteID.Valid {
		s.memory.RememberLanguage(lang)
	}
}

// ApplyEnabledLanguages moves the draft to the first enabled language when
// its current one has been disabled. It reports whether it changed anything.
func (s *Session) ApplyEnabledLanguages(enabled []string) bool {
	if len(enabled) == 0 || slices.Contains(enabled, s.draft.Language) {
		return false
	}
	s.SetLanguage(enabled[0])
	return true
}

// CommitCreate saves the draft as a new note and resets the draft.
func (s *Session) CommitCreate(ctx context.Context, w Writer) (Note, error) {
	if !s.ValidateForSave() {
		return Note{}, fmt.Errorf("%w: note text is blank", core.ErrValidation)
	}
	d := s.draft
	n, err := w.CreateNote(ctx, Note{
		Text:     d.Text,
		Title:    d.Title,
		Language: d.Language,
		Voice:    d.Voice,
		Rate:     d.Rate,
		GroupID:  d.GroupID,
	})
	if err != nil {
		return Note{}, err
	}
	s.Reset()
	return n, nil
}

// CommitUpdate writes the draft over the note id. On success the snapshot
// becomes the saved state, so HasChanges is false again.
func (s *Session) CommitUpdate(ctx context.Context, w Writer, id uuid.UUID) (Note, error) {
	if !s.ValidateForSave() {
		return Note{}, fmt.Errorf("%w: note text is blank", core.ErrValidation)
	}
	d := s.draft
	n, err := w.UpdateNote(ctx, id, func(n *Note) {
		n.Text = d.Text
		n.Title = d.Title
		n.Language = d.Language
		n.Voice = d.Voice
		n.Rate = d.Rate
		n.GroupID = d.GroupID
	})
	if err != nil {
		return Note{}, err
	}
	s.LoadFromNote(n)
	return n, nil
}

// SpeechSource exposes the live draft to playback.
func (s *Session) SpeechSource() playback.Source {
	return playback.Source{
		NoteID:   s.noteID,
		Text:     s.draft.Text,
		Language: s.draft.Language,
		Voice:    s.draft.Voice,
		Rate:     s.draft.Rate,
	}
}
