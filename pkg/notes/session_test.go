package notes_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/notes"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/voice"
)

func testCatalog() *voice.Catalog {
	return voice.New([]speech.Voice{
		{Name: "Samantha", Language: "en-US"},
		{Name: "Alex", Language: "en-US"},
		{Name: "Yelda", Language: "tr-TR"},
	})
}

// memo is an in-memory LanguageMemory.
type memo struct{ lang string }

func (m *memo) LastLanguage() string         { return m.lang }
func (m *memo) RememberLanguage(lang string) { m.lang = lang }

func TestSession_Defaults(t *testing.T) {
	s := notes.NewSession(testCatalog())
	d := s.Draft()
	assert.Equal(t, "en-US", d.Language)
	assert.Equal(t, "Alex", d.Voice, "first voice alphabetically")
	assert.Equal(t, 0.5, d.Rate)
	assert.False(t, d.GroupID.Valid)
	assert.False(t, s.HasChanges())
	assert.False(t, s.NoteID().Valid)
}

func TestSession_HasChangesLifecycle(t *testing.T) {
	n := notes.Note{
		ID: uuid.New(), Text: "hello", Title: "t", Language: "tr-TR",
		Voice: "Yelda", Rate: 0.4, GroupID: notes.ByID(uuid.New()),
	}
	mutations := map[string]func(s *notes.Session){
		"text":     func(s *notes.Session) { s.SetText("hello!") },
		"title":    func(s *notes.Session) { s.SetTitle("other") },
		"language": func(s *notes.Session) { s.SetLanguage("en-US") },
		"voice":    func(s *notes.Session) { s.SetVoice("Default") },
		"rate":     func(s *notes.Session) { s.SetRate(0.6) },
		"group":    func(s *notes.Session) { s.SetGroup(notes.Uncategorized) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := notes.NewSession(testCatalog())
			s.LoadFromNote(n)
			assert.False(t, s.HasChanges(), "clean after load")

			mutate(s)
			assert.True(t, s.HasChanges())

			s.Revert()
			assert.False(t, s.HasChanges(), "clean after revert")
			assert.Equal(t, s.Original(), s.Draft())
		})
	}
}

func TestSession_SetBackToOriginalIsClean(t *testing.T) {
	s := notes.NewSession(testCatalog())
	s.LoadFromNote(notes.Note{ID: uuid.New(), Text: "a", Language: "en-US", Voice: "Alex", Rate: 0.5})
	s.SetText("ab")
	require.True(t, s.HasChanges())
	s.SetText("a")
	assert.False(t, s.HasChanges())
}

func TestSession_ValidateForSave(t *testing.T) {
	s := notes.NewSession(testCatalog())
	for _, blank := range []string{"", "   ", "\t\n", "\u00a0\u2003"} {
		s.SetText(blank)
		assert.False(t, s.ValidateForSave(), "%q", blank)
	}
	s.SetText("a")
	assert.True(t, s.ValidateForSave())
}

func TestSession_SetLanguageRecomputesVoice(t *testing.T) {
	m := &memo{}
	s := notes.NewSession(testCatalog(), notes.WithLanguageMemory(m))

	s.SetLanguage("tr-TR")
	assert.Equal(t, "Yelda", s.Draft().Voice)
	assert.Equal(t, "tr-TR", m.lang, "language is remembered")

	s.SetLanguage("ja-JP")
	assert.Equal(t, voice.DefaultVoice, s.Draft().Voice)

	fresh := notes.NewSession(testCatalog(), notes.WithLanguageMemory(m))
	assert.Equal(t, "ja-JP", fresh.Draft().Language, "new drafts start in the remembered language")
}

func TestSession_EditDoesNotRememberLanguage(t *testing.T) {
	m := &memo{lang: "en-US"}
	s := notes.NewSession(testCatalog(), notes.WithLanguageMemory(m))
	s.LoadFromNote(notes.Note{ID: uuid.New(), Text: "x", Language: "en-US", Voice: "Alex", Rate: 0.5})

	s.SetLanguage("tr-TR")
	assert.Equal(t, "Yelda", s.Draft().Voice)
	assert.Equal(t, "en-US", m.lang, "editing leaves the remembered language")

	s.Reset()
	s.SetLanguage("tr-TR")
	assert.Equal(t, "tr-TR", m.lang, "back in create mode")
}

func TestSession_ApplyEnabledLanguages(t *testing.T) {
	s := notes.NewSession(testCatalog())
	assert.False(t, s.ApplyEnabledLanguages([]string{"de-DE", "en-US"}))
	assert.False(t, s.ApplyEnabledLanguages(nil))

	assert.True(t, s.ApplyEnabledLanguages([]string{"tr-TR"}))
	assert.Equal(t, "tr-TR", s.Draft().Language)
	assert.Equal(t, "Yelda", s.Draft().Voice)
}

func TestSession_SetRateClamps(t *testing.T) {
	s := notes.NewSession(nil)
	s.SetRate(-2)
	assert.Equal(t, 0.1, s.Draft().Rate)
	s.SetRate(1.7)
	assert.Equal(t, 1.0, s.Draft().Rate)
	assert.Equal(t, voice.DefaultVoice, s.Draft().Voice, "no catalog means the sentinel voice")
}

func TestSession_Reset(t *testing.T) {
	s := notes.NewSession(testCatalog())
	s.LoadFromNote(notes.Note{ID: uuid.New(), Text: "x", Language: "tr-TR", Voice: "Yelda", Rate: 0.9})
	original := s.Original()

	s.Reset()
	d := s.Draft()
	assert.Empty(t, d.Text)
	assert.Empty(t, d.Title)
	assert.Equal(t, "en-US", d.Language)
	assert.Equal(t, 0.5, d.Rate)
	assert.Equal(t, original, s.Original(), "snapshot untouched")
	assert.False(t, s.NoteID().Valid)
}

func TestSession_CommitCreate(t *testing.T) {
	ctx := context.Background()
	lib, _, _ := newLibrary(t)
	s := notes.NewSession(testCatalog())

	_, err := s.CommitCreate(ctx, lib)
	assert.ErrorIs(t, err, core.ErrValidation)
	all, _ := lib.Notes(ctx)
	assert.Empty(t, all, "nothing written on validation failure")

	s.SetText("Günaydın")
	s.SetTitle("morning")
	s.SetLanguage("tr-TR")
	n, err := s.CommitCreate(ctx, lib)
	require.NoError(t, err)
	assert.Equal(t, "Yelda", n.Voice)
	assert.True(t, n.CreatedAt.Equal(n.UpdatedAt))
	assert.Empty(t, s.Draft().Text, "draft is reset after create")

	stored, err := lib.Note(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Günaydın", stored.Text)
}

func TestSession_CommitUpdate(t *testing.T) {
	ctx := context.Background()
	lib, _, clk := newLibrary(t)
	n, err := lib.CreateNote(ctx, notes.Note{Text: "draft one", Language: "en-US", Voice: "Alex"})
	require.NoError(t, err)

	s := notes.NewSession(testCatalog())
	s.LoadFromNote(n)
	s.SetText("draft two")
	s.SetRate(0.8)

	clk.Set(epoch.Add(time.Hour))
	updated, err := s.CommitUpdate(ctx, lib, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft two", updated.Text)
	assert.Equal(t, 0.8, updated.Rate)
	assert.True(t, updated.UpdatedAt.Equal(epoch.Add(time.Hour)))
	assert.False(t, s.HasChanges(), "snapshot rebased after save")

	src := s.SpeechSource()
	assert.True(t, src.NoteID.Valid)
	assert.Equal(t, n.ID, src.NoteID.UUID)
	assert.Equal(t, "draft two", src.Text)
}

func TestSession_CommitUpdateDeletedNote(t *testing.T) {
	ctx := context.Background()
	lib, _, _ := newLibrary(t)
	n, err := lib.CreateNote(ctx, notes.Note{Text: "soon gone"})
	require.NoError(t, err)

	s := notes.NewSession(testCatalog())
	s.LoadFromNote(n)
	s.SetText("edited")
	require.NoError(t, lib.DeleteNote(ctx, n.ID))

	_, err = s.CommitUpdate(ctx, lib, n.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.True(t, s.HasChanges(), "draft kept for the user")

	s.SetText("  ")
	_, err = s.CommitUpdate(ctx, lib, n.ID)
	assert.ErrorIs(t, err, core.ErrValidation)
}
