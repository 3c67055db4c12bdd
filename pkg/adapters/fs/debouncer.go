package fs

import (
	"sync"
	"time"

	"github.com/aretw0/speeza/pkg/core"
)

// debouncer collapses bursts of events for the same document ID into one.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
	gen   uint64
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		pending:  make(map[string]*pendingEvent),
	}
}

// add schedules e for emission after the interval. A newer event for the same
// ID replaces the pending one and restarts the timer.
func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	p, ok := d.pending[e.ID]
	if ok {
		e = mergeEvents(p.event, e)
		if p.timer.Stop() {
			d.wg.Done()
		}
	} else {
		p = &pendingEvent{}
		d.pending[e.ID] = p
	}

	p.event = e
	p.gen++
	gen := p.gen
	id := e.ID

	d.wg.Add(1)
	p.timer = time.AfterFunc(d.interval, func() {
		defer d.wg.Done()

		d.mu.Lock()
		cur, ok := d.pending[id]
		if !ok || cur.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.pending, id)
		out := cur.event
		d.mu.Unlock()

		emit(out)
	})
}

// stopAndWait drops pending events and waits for in-flight emissions.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// mergeEvents keeps the meaning of a burst: a create followed by writes is
// still a create, and a delete followed by a create (atomic replace) is a
// modification.
func mergeEvents(prev, next core.Event) core.Event {
	switch {
	case prev.Type == core.EventCreate && next.Type == core.EventModify:
		next.Type = core.EventCreate
	case prev.Type == core.EventDelete && next.Type == core.EventCreate:
		next.Type = core.EventModify
	}
	return next
}
