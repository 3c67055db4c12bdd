// Package speeza is the composition root of a text-to-speech note taker.
//
// Notes are text passages with the language, voice and rate used to read
// them aloud. They can be filed into groups, played through a speech
// engine and listed by recency. Everything is persisted through the
// core.Repository port, by default as Markdown files with YAML frontmatter
// in a vault directory.
//
// Components:
//
//   - notes.Library: note and group CRUD, cascading group deletion, change observers.
//   - notes.Session: the editor draft with change tracking.
//   - prefs.Store: per-language enable/disable preferences.
//   - playback.Controller: play/stop/pause over a speech.Engine, one utterance at a time.
//   - settings.Settings: onboarding flag and last selected language.
//
// Usage:
//
//	app, err := speeza.Open(ctx, "./vault", speeza.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	note, err := app.Library.CreateNote(ctx, notes.Note{Text: "Hello", Language: "en-US"})
//	app.Quick.Play(ctx, note.SpeechSource())
package speeza
