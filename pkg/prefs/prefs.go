// Package prefs stores which speech languages the user has switched off.
//
// A language without a record is enabled. Records are created on the first
// toggle, updated in place afterwards and never removed automatically.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/typed"
)

// Collection is where preference documents live. The document key is the
// language code itself, so there is at most one record per language.
const Collection = "languages"

// LanguagePreference is the persisted enablement of one language.
type LanguagePreference struct {
	ID           uuid.UUID `json:"id"`
	LanguageCode string    `json:"language_code"`
	IsEnabled    bool      `json:"is_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// LanguageState is one row of the settings overview.
type LanguageState struct {
	Language string
	Enabled  bool
	// Explicit is true when a record backs the state.
	Explicit bool
}

// EffectiveEnabledLanguages removes from all exactly the languages carrying
// an explicit disabled record. The order of all is preserved.
func EffectiveEnabledLanguages(all []string, prefs []LanguagePreference) []string {
	disabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		if !p.IsEnabled {
			disabled[p.LanguageCode] = true
		}
	}
	out := make([]string, 0, len(all))
	for _, lang := range all {
		if !disabled[lang] {
			out = append(out, lang)
		}
	}
	return out
}

// Store persists language preferences.
type Store struct {
	repo *typed.Repository[LanguagePreference]
	log      *slog.Logger
	now      func() time.Time
	onChange func(LanguagePreference)

	mu sync.Mutex // serializes upserts
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOnChange registers fn to run after every successful SetEnabled.
// It runs outside the store's lock.
func WithOnChange(fn func(LanguagePreference)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore creates a store over repo.
func NewStore(repo core.Repository, opts ...Option) *Store {
	s := &Store{
		repo: typed.NewRepository[LanguagePreference](repo, Collection),
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEnabled records the enablement of lang, updating the existing record
// when there is one.
func (s *Store) SetEnabled(ctx context.Context, lang string, enabled bool) (LanguagePreference, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return LanguagePreference{}, fmt.Errorf("%w: language code is empty", core.ErrValidation)
	}

	pref, err := s.upsert(ctx, lang, enabled)
	if err != nil {
		return LanguagePreference{}, err
	}
	s.log.Info("language preference saved", "language", lang, "enabled", enabled)
	if s.onChange != nil {
		s.onChange(pref)
	}
	return pref, nil
}

func (s *Store) upsert(ctx context.Context, lang string, enabled bool) (LanguagePreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx, lang)
	switch {
	case err == nil:
		doc.Data.IsEnabled = enabled
	case errors.Is(err, core.ErrNotFound):
		doc = &typed.DocumentModel[LanguagePreference]{
			ID: lang,
			Data: LanguagePreference{
				ID:           uuid.New(),
				LanguageCode: lang,
				IsEnabled:    enabled,
				CreatedAt:    s.now(),
			},
		}
	default:
		return LanguagePreference{}, fmt.Errorf("%w: reading language %s: %w", core.ErrPersistence, lang, err)
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return LanguagePreference{}, fmt.Errorf("%w: saving language %s: %w", core.ErrPersistence, lang, err)
	}
	return doc.Data, nil
}

// Get returns the record for lang or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, lang string) (LanguagePreference, error) {
	doc, err := s.repo.Get(ctx, lang)
	if err != nil {
		return LanguagePreference{}, err
	}
	return doc.Data, nil
}

// List returns every record ordered by language code.
func (s *Store) List(ctx context.Context) ([]LanguagePreference, error) {
	docs, err := s.repo.Query(ctx, nil, func(a, b *typed.DocumentModel[LanguagePreference]) int {
		return strings.Compare(a.ID, b.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing languages: %w", core.ErrPersistence, err)
	}
	out := make([]LanguagePreference, 0, len(docs))
	for _, d := range docs {
		p := d.Data
		if p.LanguageCode == "" {
			p.LanguageCode = d.ID
		}
		out = append(out, p)
	}
	return out, nil
}

// IsEnabled reports the effective state of lang.
func (s *Store) IsEnabled(ctx context.Context, lang string) (bool, error) {
	p, err := s.Get(ctx, lang)
	if errors.Is(err, core.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: reading language %s: %w", core.ErrPersistence, lang, err)
	}
	return p.IsEnabled, nil
}

// EnabledLanguages filters all through the stored records.
func (s *Store) EnabledLanguages(ctx context.Context, all []string) ([]string, error) {
	prefs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return EffectiveEnabledLanguages(all, prefs), nil
}

// Overview returns one row per language in all, absent ones shown enabled.
// Records for languages outside all are appended after them. Nothing is
// written.
func (s *Store) Overview(ctx context.Context, all []string) ([]LanguageState, error) {
	prefs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	byLang := make(map[string]LanguagePreference, len(prefs))
	for _, p := range prefs {
		byLang[p.LanguageCode] = p
	}

	rows := make([]LanguageState, 0, len(all))
	for _, lang := range all {
		p, ok := byLang[lang]
		rows = append(rows, LanguageState{Language: lang, Enabled: !ok || p.IsEnabled, Explicit: ok})
	}
	for _, p := range prefs {
		if !slices.Contains(all, p.LanguageCode) {
			rows = append(rows, LanguageState{Language: p.LanguageCode, Enabled: p.IsEnabled, Explicit: true})
		}
	}
	return rows, nil
}
