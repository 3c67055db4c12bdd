package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretw0/speeza/pkg/core"
)

// Keys.
const (
	KeyIntroCompleted       = "intro_completed"
	KeyLastSelectedLanguage = "last_selected_language"
)

// DefaultLanguage is returned when no language was remembered yet.
const DefaultLanguage = "en-US"

// Settings gives typed access to the flags stored in a KV.
type Settings struct {
	kv      KV
	log     *slog.Logger
	timeout time.Duration
}

// Option configures Settings.
type Option func(*Settings)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds the calls made without a caller context
// (LastLanguage, RememberLanguage).
func WithTimeout(d time.Duration) Option {
	return func(s *Settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates Settings over kv.
func New(kv KV, opts ...Option) *Settings {
	s := &Settings{
		kv:      kv,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IntroCompleted reports whether the onboarding was finished. Absent means false.
func (s *Settings) IntroCompleted(ctx context.Context) (bool, error) {
	v, ok, err := s.kv.Get(ctx, KeyIntroCompleted)
	if err != nil || !ok {
		return false, err
	}
	done, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", KeyIntroCompleted, v, err)
	}
	return done, nil
}

// SetIntroCompleted records the onboarding state.
func (s *Settings) SetIntroCompleted(ctx context.Context, done bool) error {
	return s.kv.Set(ctx, KeyIntroCompleted, strconv.FormatBool(done))
}

// LastSelectedLanguage returns the remembered language or DefaultLanguage.
func (s *Settings) LastSelectedLanguage(ctx context.Context) (string, error) {
	v, ok, err := s.kv.Get(ctx, KeyLastSelectedLanguage)
	if err != nil {
		return DefaultLanguage, err
	}
	if !ok || v == "" {
		return DefaultLanguage, nil
	}
	return v, nil
}

// SetLastSelectedLanguage remembers lang.
func (s *Settings) SetLastSelectedLanguage(ctx context.Context, lang string) error {
	return s.kv.Set(ctx, KeyLastSelectedLanguage, lang)
}

// LastLanguage is LastSelectedLanguage for callers without a context.
// Errors are logged and yield DefaultLanguage.
func (s *Settings) LastLanguage() string {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	lang, err := s.LastSelectedLanguage(ctx)
	if err != nil {
		s.log.Warn("reading last selected language failed", "error", err)
	}
	return lang
}

// RememberLanguage is SetLastSelectedLanguage for callers without a
// context. Errors are logged.
func (s *Settings) RememberLanguage(lang string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.SetLastSelectedLanguage(ctx, lang)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrReadOnly):
		s.log.Debug("not remembering language in a read-only vault", "language", lang)
	default:
		s.log.Warn("saving last selected language failed", "language", lang, "error", err)
	}
}
