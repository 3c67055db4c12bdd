// Package mock provides a test double for the speech.Engine interface.
//
// Engine records every call and keeps a speaking flag that tests flip with
// Finish to simulate the end of an utterance:
//
//	e := &mock.Engine{ListVoicesResult: []speech.Voice{{Name: "Alex", Language: "en-US"}}}
//	_ = e.Speak(ctx, speech.Utterance{Text: "hi"})
//	e.Finish() // IsSpeaking() is now false
package mock

import (
	"context"
	"sync"

	"github.com/aretw0/speeza/pkg/speech"
)

// Compile-time interface check.
var _ speech.Engine = (*Engine)(nil)

// SpeakCall records a single invocation of Speak.
type SpeakCall struct {
	// Ctx is the context passed to Speak.
	Ctx context.Context
	// Utterance is the request passed to Speak.
	Utterance speech.Utterance
}

// Engine is a mock implementation of speech.Engine.
type Engine struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SpeakErr, if non-nil, is returned by Speak and nothing starts speaking.
	SpeakErr error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []speech.Voice

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// Unavailable makes Available report false.
	Unavailable bool

	// --- Call records ---

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	// StopCalls, PauseCalls, ResumeCalls and ListVoicesCalls count invocations.
	StopCalls       int
	PauseCalls      int
	ResumeCalls     int
	ListVoicesCalls int

	speaking bool
	paused   bool
}

// Speak records the call and, unless SpeakErr is set, starts "speaking".
func (e *Engine) Speak(ctx context.Context, u speech.Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SpeakCalls = append(e.SpeakCalls, SpeakCall{Ctx: ctx, Utterance: u})
	if e.SpeakErr != nil {
		return e.SpeakErr
	}
	e.speaking = true
	e.paused = false
	return nil
}

// Stop records the call and ends the utterance.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StopCalls++
	e.speaking = false
	e.paused = false
	return nil
}

// Pause records the call.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.PauseCalls++
	if e.speaking {
		e.paused = true
	}
	return nil
}

// Resume records the call.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ResumeCalls++
	e.paused = false
	return nil
}

// IsSpeaking reports the simulated speaking flag.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Paused reports whether the engine is holding a paused utterance.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Available reports !Unavailable.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Unavailable
}

// ListVoices records the call and returns ListVoicesResult, ListVoicesErr.
func (e *Engine) ListVoices(ctx context.Context) ([]speech.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ListVoicesCalls++
	if e.ListVoicesErr != nil {
		return nil, e.ListVoicesErr
	}
	out := make([]speech.Voice, len(e.ListVoicesResult))
	copy(out, e.ListVoicesResult)
	return out, nil
}

// Finish simulates the engine reaching the end of the utterance.
func (e *Engine) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = false
	e.paused = false
}

// LastUtterance returns the most recent Speak request and whether there was one.
func (e *Engine) LastUtterance() (speech.Utterance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.SpeakCalls) == 0 {
		return speech.Utterance{}, false
	}
	return e.SpeakCalls[len(e.SpeakCalls)-1].Utterance, true
}

// Reset clears all call records and the speaking flag.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SpeakCalls = nil
	e.StopCalls, e.PauseCalls, e.ResumeCalls, e.ListVoicesCalls = 0, 0, 0, 0
	e.speaking, e.paused = false, false
}
