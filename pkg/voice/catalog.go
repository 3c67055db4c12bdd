// Package voice indexes the voices an engine offers by language.
package voice

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/speeza/pkg/speech"
)

// Sentinels used when nothing better is known.
const (
	DefaultLanguage = "en-US"
	DefaultVoice    = "Default"
)

// Catalog is a read-mostly snapshot of the engine's voices.
type Catalog struct {
	engine speech.Engine
	log    *slog.Logger

	mu       sync.RWMutex
	voices   []speech.Voice
	index    map[string][]string
	byName   map[string]speech.Voice
	degraded bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// Load queries the engine once and builds the catalog. It never fails: an
// engine error or an empty voice list leaves a catalog holding only the
// (DefaultLanguage, DefaultVoice) pair.
func Load(ctx context.Context, engine speech.Engine, opts ...Option) *Catalog {
	c := &Catalog{
		engine: engine,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Refresh(ctx)
	return c
}

// New builds a catalog from a fixed voice list.
func New(voices []speech.Voice) *Catalog {
	c := &Catalog{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	c.set(voices)
	return c
}

// Refresh re-queries the engine.
func (c *Catalog) Refresh(ctx context.Context) {
	if c.engine == nil {
		c.log.Warn("voice catalog: no engine, using default voice")
		c.set(nil)
		return
	}
	voices, err := c.engine.ListVoices(ctx)
	if err != nil {
		c.log.Warn("voice catalog: listing voices failed, using default voice", "error", err)
		voices = nil
	}
	c.set(voices)
	c.log.Debug("voice catalog loaded", "voices", len(voices))
}

func (c *Catalog) set(voices []speech.Voice) {
	degraded := len(voices) == 0
	if degraded {
		voices = []speech.Voice{{Name: DefaultVoice, Language: DefaultLanguage}}
	}

	byName := make(map[string]speech.Voice, len(voices))
	for _, v := range voices {
		if _, seen := byName[v.Name]; !seen {
			byName[v.Name] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = slices.Clone(voices)
	c.index = BuildLanguageIndex(voices)
	c.byName = byName
	c.degraded = degraded
}

// BuildLanguageIndex groups voice names by language, each list sorted
// ascending and free of duplicates.
func BuildLanguageIndex(voices []speech.Voice) map[string][]string {
	index := make(map[string][]string)
	for _, v := range voices {
		index[v.Language] = append(index[v.Language], v.Name)
	}
	for lang, names := range index {
		slices.Sort(names)
		index[lang] = slices.Compact(names)
	}
	return index
}

// AvailableLanguages returns every language with at least one voice, sorted.
func (c *Catalog) AvailableLanguages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	langs := make([]string, 0, len(c.index))
	for lang := range c.index {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// VoicesFor returns the sorted voice names of a language.
func (c *Catalog) VoicesFor(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.index[lang])
}

// FirstVoice returns the alphabetically first voice of lang.
func (c *Catalog) FirstVoice(lang string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := c.index[lang]
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// HasVoice reports whether a voice with that exact name exists.
func (c *Catalog) HasVoice(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Lookup returns the voice with that exact name.
func (c *Catalog) Lookup(name string) (speech.Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byName[name]
	return v, ok
}

// Voices returns every voice in engine order.
func (c *Catalog) Voices() []speech.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.voices)
}

// Degraded reports whether the catalog fell back to the default pair.
func (c *Catalog) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}
