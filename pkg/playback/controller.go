// Package playback drives a speech engine one utterance at a time.
//
// A Controller tracks Idle, Speaking and Paused for the sources it starts.
// Controllers that share an Arbiter also share the single-utterance rule:
// starting one stops whatever another is saying.
package playback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/voice"
)

// DefaultPollInterval is how often Wait polls the engine.
const DefaultPollInterval = 100 * time.Millisecond

// VoiceLookup is the part of the voice catalog the controller needs.
type VoiceLookup interface {
	HasVoice(name string) bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithArbiter enrolls the controller in a shared single-utterance discipline.
func WithArbiter(a *Arbiter) Option {
	return func(c *Controller) {
		c.arbiter = a
	}
}

// WithName labels the controller in logs ("session", "quick-play", ...).
func WithName(name string) Option {
	return func(c *Controller) {
		c.name = name
	}
}

// Controller is the playback state machine over one engine.
type Controller struct {
	engine  speech.Engine
	voices  VoiceLookup
	arbiter *Arbiter
	log     *slog.Logger
	name    string

	mu      sync.Mutex
	state   State
	current *Source

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// NewController creates an idle controller. voices may be nil, in which case
// every source is spoken by language only.
func NewController(engine speech.Engine, voices VoiceLookup, opts ...Option) *Controller {
	c := &Controller{
		engine:    engine,
		voices:    voices,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		name:      "playback",
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state without polling the engine.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the source being spoken.
func (c *Controller) Current() (Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Source{}, false
	}
	return *c.current, true
}

// Play toggles: when an utterance is active it is stopped and Play returns
// Idle without starting src. Otherwise src starts speaking.
func (c *Controller) Play(ctx context.Context, src Source) State {
	if c.Sync().Active() {
		c.Stop()
		return Idle
	}
	return c.start(ctx, src)
}

// Switch stops whatever is active and starts src. It is the "quick play"
// gesture: pressing it on another note never just stops.
func (c *Controller) Switch(ctx context.Context, src Source) State {
	c.Stop()
	return c.start(ctx, src)
}

func (c *Controller) start(ctx context.Context, src Source) State {
	if !speech.IsAvailable(c.engine) {
		c.log.Warn("speech engine unavailable, not playing", "controller", c.name)
		return c.State()
	}
	if c.arbiter != nil {
		c.arbiter.claim(c)
	}

	u := c.Resolve(src)

	c.mu.Lock()
	if err := c.engine.Speak(ctx, u); err != nil {
		c.mu.Unlock()
		c.log.Warn("speak failed", "controller", c.name, "error", err)
		if c.arbiter != nil {
			c.arbiter.release(c)
		}
		return Idle
	}
	c.state = Speaking
	cp := src
	c.current = &cp
	c.mu.Unlock()

	c.log.Debug("playback started", "controller", c.name, "language", u.Language, "voice", u.Voice, "rate", u.Rate)
	c.emit(Speaking)
	return Speaking
}

// Resolve turns a source into an utterance. A named voice is used only when
// it is not the "Default" sentinel and the catalog knows it; otherwise the
// engine picks from the language alone.
func (c *Controller) Resolve(src Source) speech.Utterance {
	u := speech.Utterance{
		Text:     src.Text,
		Language: src.Language,
		Rate:     speech.ClampRate(src.Rate),
	}
	if u.Language == "" {
		u.Language = voice.DefaultLanguage
	}
	if src.Voice == "" || src.Voice == voice.DefaultVoice {
		return u
	}
	if c.voices != nil && c.voices.HasVoice(src.Voice) {
		u.Voice = src.Voice
		return u
	}
	c.log.Debug("voice not in catalog, using language", "voice", src.Voice, "language", u.Language)
	return u
}

// Stop cancels the active utterance immediately.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return
	}
	if err := c.engine.Stop(); err != nil {
		c.log.Warn("stop failed", "controller", c.name, "error", err)
	}
	c.state = Idle
	c.current = nil
	c.mu.Unlock()

	if c.arbiter != nil {
		c.arbiter.release(c)
	}
	c.emit(Idle)
}

// Pause holds a speaking utterance.
func (c *Controller) Pause() State {
	c.mu.Lock()
	if c.state != Speaking {
		s := c.state
		c.mu.Unlock()
		return s
	}
	if err := c.engine.Pause(); err != nil {
		c.mu.Unlock()
		c.log.Warn("pause failed", "controller", c.name, "error", err)
		return Speaking
	}
	c.state = Paused
	c.mu.Unlock()

	c.emit(Paused)
	return Paused
}

// Resume continues a paused utterance.
func (c *Controller) Resume() State {
	c.mu.Lock()
	if c.state != Paused {
		s := c.state
		c.mu.Unlock()
		return s
	}
	if err := c.engine.Resume(); err != nil {
		c.mu.Unlock()
		c.log.Warn("resume failed", "controller", c.name, "error", err)
		return Paused
	}
	c.state = Speaking
	c.mu.Unlock()

	c.emit(Speaking)
	return Speaking
}

// Sync polls the engine and settles to Idle once the utterance has finished.
func (c *Controller) Sync() State {
	c.mu.Lock()
	if !c.state.Active() || c.engine.IsSpeaking() {
		s := c.state
		c.mu.Unlock()
		return s
	}
	c.state = Idle
	c.current = nil
	c.mu.Unlock()

	if c.arbiter != nil {
		c.arbiter.release(c)
	}
	c.emit(Idle)
	return Idle
}

// Wait polls until the controller is Idle or ctx is done.
func (c *Controller) Wait(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.Sync() == Idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// OnChange registers fn for every state transition. The returned function
// unregisters it.
func (c *Controller) OnChange(fn func(State)) (cancel func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) emit(s State) {
	c.obsMu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
