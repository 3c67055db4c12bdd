package speech

import (
	"context"
	"io"
	"log/slog"
)

// Compile-time interface check.
var _ Engine = (*NoOp)(nil)

// NoOp is an engine that never speaks. It reports itself unavailable so
// playback stays idle. Used when speech is disabled.
type NoOp struct {
	log *slog.Logger
}

// NewNoOp creates a no-op engine.
func NewNoOp(log *slog.Logger) *NoOp {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &NoOp{log: log}
}

// Speak does nothing.
func (n *NoOp) Speak(ctx context.Context, u Utterance) error {
	n.log.Debug("speech no-op: would say", "text", u.Text, "language", u.Language)
	return nil
}

func (n *NoOp) Stop() error      { return nil }
func (n *NoOp) Pause() error     { return nil }
func (n *NoOp) Resume() error    { return nil }
func (n *NoOp) IsSpeaking() bool { return false }
func (n *NoOp) Available() bool  { return false }

// ListVoices returns no voices.
func (n *NoOp) ListVoices(ctx context.Context) ([]Voice, error) {
	return nil, nil
}
