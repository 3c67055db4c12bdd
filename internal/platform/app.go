package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/notes"
	"github.com/aretw0/speeza/pkg/playback"
	"github.com/aretw0/speeza/pkg/prefs"
	"github.com/aretw0/speeza/pkg/settings"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/voice"
)

// App is the composition root of a speeza vault. Every field is ready to
// use after Open returns.
type App struct {
	Config Config
	// Path is the resolved vault directory; empty for non-fs stores.
	Path string

	Repo     core.Repository
	Service  *core.Service
	Engine   speech.Engine
	Voices   *voice.Catalog
	Library  *notes.Library
	Prefs    *prefs.Store
	Settings *settings.Settings
	Arbiter  *playback.Arbiter

	// Quick plays notes straight from a list; Preview speaks the editor draft.
	// Both share Arbiter, so only one utterance is audible at a time.
	Quick   *playback.Controller
	Preview *playback.Controller

	log       *slog.Logger
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// NewSession starts an editor session in create mode. While drafting a new
// note the session remembers the language picked last through Settings.
func (a *App) NewSession() *notes.Session {
	return notes.NewSession(a.Voices, notes.WithLanguageMemory(a.Settings))
}

// EnabledLanguages returns the languages offered by the engine minus those
// the user disabled.
func (a *App) EnabledLanguages(ctx context.Context) ([]string, error) {
	return a.Prefs.EnabledLanguages(ctx, a.Voices.AvailableLanguages())
}

// LanguageOverview lists every available language with its enabled flag.
func (a *App) LanguageOverview(ctx context.Context) ([]prefs.LanguageState, error) {
	return a.Prefs.Overview(ctx, a.Voices.AvailableLanguages())
}

// Recent returns the quick access list sized by Config.RecentLimit.
func (a *App) Recent(ctx context.Context) ([]notes.Note, error) {
	all, err := a.Library.Notes(ctx)
	if err != nil {
		return nil, err
	}
	return notes.Recent(all, a.Config.RecentLimit), nil
}

// Close silences any playback and releases external resources.
// It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.Arbiter.StopAll()

		var errs []error
		for _, fn := range a.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		a.closeErr = errors.Join(errs...)
		if a.closeErr != nil {
			a.log.Warn("closing speeza", "error", a.closeErr)
		}
	})
	return a.closeErr
}

// AppState is the snapshot reported by `speeza status`.
type AppState struct {
	Adapter         string `json:"adapter"`
	Path            string `json:"path,omitempty"`
	Engine          string `json:"engine"`
	EngineAvailable bool   `json:"engine_available"`
	Voices          int    `json:"voices"`
	VoicesDegraded  bool   `json:"voices_degraded"`
	Settings        string `json:"settings"`
	Quick           string `json:"quick"`
	Preview         string `json:"preview"`
	Service         any    `json:"service"`
	Repository      any    `json:"repository,omitempty"`
}

// State implements introspection.Introspectable.
func (a *App) State() any {
	state := AppState{
		Adapter:         a.Config.Adapter,
		Path:            a.Path,
		Engine:          a.Config.Engine,
		EngineAvailable: speech.IsAvailable(a.Engine),
		Voices:          len(a.Voices.Voices()),
		VoicesDegraded:  a.Voices.Degraded(),
		Settings:        a.Config.Settings,
		Quick:           a.Quick.State().String(),
		Preview:         a.Preview.State().String(),
		Service:         a.Service.State(),
	}
	if in, ok := a.Repo.(introspection.Introspectable); ok {
		state.Repository = in.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (a *App) ComponentType() string {
	return "app"
}

var _ introspection.Introspectable = (*App)(nil)
var _ introspection.Component = (*App)(nil)
