// Package lifecycle exposes speeza change streams as lifecycle sources.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/speeza/pkg/notes"
)

type changeSource struct {
	changes <-chan notes.Change
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits library changes.
// Feed it the channel returned by notes.Library.Watch.
func NewSource(changes <-chan notes.Change) lifecycle.Source {
	return &changeSource{
		changes: changes,
		out:     make(chan lifecycle.Event),
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start runs the bridge until ctx is done or the library stream closes,
// then closes Events.
func (s *changeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case c, ok := <-s.changes:
				if !ok {
					return nil
				}
				// notes.Change implements lifecycle.Event (has String())
				select {
				case s.out <- c:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
