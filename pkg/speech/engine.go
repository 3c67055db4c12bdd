// Package speech defines the text-to-speech port used by playback and the
// voice catalog, plus the engines that ship with speeza.
package speech

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by engines that cannot perform an operation
// (for instance pausing on a platform without job control).
var ErrUnsupported = errors.New("speech: operation not supported by engine")

// Voice is one voice installed on the engine.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Utterance is a single request to speak.
//
// Voice is empty when the caller only selects by Language. Rate is normalized
// to [MinRate, MaxRate]; engines map it to their own scale.
type Utterance struct {
	Text     string
	Language string
	Voice    string
	Rate     float64
}

// Rate bounds and default, in normalized units.
const (
	MinRate     = 0.1
	MaxRate     = 1.0
	DefaultRate = 0.5
)

// ClampRate forces r into [MinRate, MaxRate].
func ClampRate(r float64) float64 {
	return min(max(r, MinRate), MaxRate)
}

// Engine is the speech port.
//
// Speak starts an utterance and returns without waiting for it to finish;
// callers poll IsSpeaking. IsSpeaking stays true while paused.
type Engine interface {
	Speak(ctx context.Context, u Utterance) error
	Stop() error
	Pause() error
	Resume() error
	IsSpeaking() bool
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Availability is implemented by engines that can be present but unusable
// (missing binary, no audio device).
type Availability interface {
	Available() bool
}

// IsAvailable reports whether e can be used. A nil engine is unavailable;
// engines that do not implement Availability are assumed available.
func IsAvailable(e Engine) bool {
	if e == nil {
		return false
	}
	if a, ok := e.(Availability); ok {
		return a.Available()
	}
	return true
}
