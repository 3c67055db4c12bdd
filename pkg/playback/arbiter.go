package playback

import (
	"sync"

	"github.com/google/uuid"
)

// Arbiter enforces one active utterance across controllers.
type Arbiter struct {
	mu     sync.Mutex
	active *Controller
}

// NewArbiter creates an arbiter with nothing playing.
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

func (a *Arbiter) claim(c *Controller) {
	a.mu.Lock()
	prev := a.active
	a.active = c
	a.mu.Unlock()

	if prev != nil && prev != c {
		prev.Stop()
	}
}

func (a *Arbiter) release(c *Controller) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == c {
		a.active = nil
	}
}

// Active returns the controller currently holding the utterance.
func (a *Arbiter) Active() (*Controller, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active, a.active != nil
}

// StopAll stops the active controller, if any.
func (a *Arbiter) StopAll() {
	if c, ok := a.Active(); ok {
		c.Stop()
	}
}

// StopNote stops playback when the active source is the note id.
// It reports whether anything was stopped.
func (a *Arbiter) StopNote(id uuid.UUID) bool {
	c, ok := a.Active()
	if !ok {
		return false
	}
	src, ok := c.Current()
	if !ok || !src.NoteID.Valid || src.NoteID.UUID != id {
		return false
	}
	c.Stop()
	return true
}
