package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Engine = (*Console)(nil)

// DefaultWordsPerMinute is the pace of the console engine at DefaultRate.
const DefaultWordsPerMinute = 180

// DefaultConsoleVoices is the voice list reported by a Console created
// without WithConsoleVoices.
var DefaultConsoleVoices = []Voice{
	{Name: "Alex", Language: "en-US"},
	{Name: "Samantha", Language: "en-US"},
	{Name: "Daniel", Language: "en-GB"},
	{Name: "Anna", Language: "de-DE"},
	{Name: "Monica", Language: "es-ES"},
	{Name: "Amelie", Language: "fr-CA"},
	{Name: "Thomas", Language: "fr-FR"},
	{Name: "Luciana", Language: "pt-BR"},
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithConsoleWriter sets where words are written. Defaults to stdout.
func WithConsoleWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		if w != nil {
			c.out = w
		}
	}
}

// WithWordsPerMinute sets the pace at DefaultRate.
func WithWordsPerMinute(wpm int) ConsoleOption {
	return func(c *Console) {
		if wpm > 0 {
			c.wpm = wpm
		}
	}
}

// WithConsoleVoices replaces the advertised voices.
func WithConsoleVoices(voices []Voice) ConsoleOption {
	return func(c *Console) {
		c.voices = slices.Clone(voices)
	}
}

// WithConsoleLogger sets the logger.
func WithConsoleLogger(l *slog.Logger) ConsoleOption {
	return func(c *Console) {
		if l != nil {
			c.log = l
		}
	}
}

// Console is a simulated engine: it "speaks" by writing the words of an
// utterance to a writer at a pace derived from the rate. It honours Stop,
// Pause and Resume like a real synthesizer, which makes it the default
// engine for terminals without a TTS backend.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	wpm    int
	voices []Voice
	log    *slog.Logger

	active *utterance
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
	paused bool
	resume chan struct{}
}

// NewConsole creates a console engine.
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		out:    os.Stdout,
		wpm:    DefaultWordsPerMinute,
		voices: slices.Clone(DefaultConsoleVoices),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WordInterval returns the delay between words for a normalized rate.
func (c *Console) WordInterval(rate float64) time.Duration {
	wpm := float64(c.wpm) * ClampRate(rate) / DefaultRate
	return time.Duration(float64(time.Minute) / wpm)
}

// Speak interrupts whatever is being spoken and starts u.
func (c *Console) Speak(ctx context.Context, u Utterance) error {
	words := strings.Fields(u.Text)
	interval := c.WordInterval(u.Rate)

	c.mu.Lock()
	c.stopLocked()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	utt := &utterance{cancel: cancel, done: make(chan struct{})}
	c.active = utt
	c.mu.Unlock()

	who := u.Voice
	if who == "" {
		who = u.Language
	}
	c.log.Debug("console: speaking", "voice", who, "words", len(words), "interval", interval)

	go c.run(runCtx, utt, who, words, interval)
	return nil
}

func (c *Console) run(ctx context.Context, utt *utterance, who string, words []string, interval time.Duration) {
	defer func() {
		c.mu.Lock()
		if c.active == utt {
			c.active = nil
		}
		c.mu.Unlock()
		close(utt.done)
	}()

	c.write(fmt.Sprintf("[%s] ", who))
	for i, w := range words {
		if !c.gate(ctx, utt) {
			return
		}
		if i > 0 {
			c.write(" ")
		}
		c.write(w)

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			c.write("\n")
			return
		case <-t.C:
		}
	}
	c.write("\n")
}

// gate blocks while the utterance is paused. It returns false once cancelled.
func (c *Console) gate(ctx context.Context, utt *utterance) bool {
	c.mu.Lock()
	if !utt.paused {
		c.mu.Unlock()
		return ctx.Err() == nil
	}
	ch := utt.resume
	c.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, s)
}

// Stop cancels the active utterance and waits for it to wind down.
func (c *Console) Stop() error {
	c.mu.Lock()
	utt := c.active
	c.stopLocked()
	c.mu.Unlock()

	if utt != nil {
		<-utt.done
	}
	return nil
}

func (c *Console) stopLocked() {
	if c.active == nil {
		return
	}
	c.active.cancel()
	c.active = nil
}

// Pause holds the active utterance between words.
func (c *Console) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.paused {
		return nil
	}
	c.active.paused = true
	c.active.resume = make(chan struct{})
	return nil
}

// Resume continues a paused utterance.
func (c *Console) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || !c.active.paused {
		return nil
	}
	c.active.paused = false
	close(c.active.resume)
	return nil
}

// IsSpeaking reports whether an utterance is in progress (paused included).
func (c *Console) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// ListVoices returns the configured voices.
func (c *Console) ListVoices(ctx context.Context) ([]Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.voices), nil
}
