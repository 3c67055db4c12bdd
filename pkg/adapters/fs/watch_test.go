package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/core"
)

func nextEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "events channel closed")
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return core.Event{}
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Path, "notes"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Path, "groups"), 0755))

	events, err := repo.Watch(ctx, "notes/**")
	require.NoError(t, err)
	waitForWatcher(t, repo, true)

	require.NoError(t, repo.Save(ctx, core.Document{ID: "groups/ignored", Content: "x"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/n1", Content: "one"}))

	e := nextEvent(t, events)
	assert.Equal(t, core.EventCreate, e.Type)
	assert.Equal(t, "notes/n1", e.ID, "groups are outside the pattern")

	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/n1", Content: "two"}))
	e = nextEvent(t, events)
	assert.Equal(t, core.EventModify, e.Type)
	assert.Equal(t, "notes/n1", e.ID)

	require.NoError(t, repo.Delete(ctx, "notes/n1"))
	e = nextEvent(t, events)
	assert.Equal(t, core.EventDelete, e.Type)

	t.Run("External Edit", func(t *testing.T) {
		path := filepath.Join(repo.Path, "notes", "typed.md")
		require.NoError(t, os.WriteFile(path, []byte("by hand"), 0644))

		e := nextEvent(t, events)
		assert.Equal(t, "notes/typed", e.ID)
		assert.Equal(t, core.EventCreate, e.Type)
	})

	t.Run("New Subdirectory", func(t *testing.T) {
		dir := filepath.Join(repo.Path, "notes", "nested")
		require.NoError(t, os.MkdirAll(dir, 0755))
		// Give the watcher a moment to pick up the directory.
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "deep.md"), []byte("deep"), 0644))

		e := nextEvent(t, events)
		assert.Equal(t, "notes/nested/deep", e.ID)
	})

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
	waitForWatcher(t, repo, false)
}

func TestWatch_InvalidPattern(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Watch(context.Background(), "notes/[")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/keep", Content: "k"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/edit", Content: "e"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/gone", Content: "g"}))
	_, err := repo.List(ctx)
	require.NoError(t, err)

	// Changes behind the repository's back.
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "notes", "edit.md"), []byte("edited externally"), 0644))
	require.NoError(t, os.Remove(filepath.Join(repo.Path, "notes", "gone.md")))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "notes", "born.md"), []byte("new"), 0644))

	events, err := repo.Reconcile(ctx)
	require.NoError(t, err)

	got := make(map[string]core.EventType)
	for _, e := range events {
		got[e.ID] = e.Type
	}
	assert.Equal(t, map[string]core.EventType{
		"notes/born": core.EventCreate,
		"notes/edit": core.EventModify,
		"notes/gone": core.EventDelete,
	}, got)

	state := repo.State().(RepositoryState)
	assert.NotNil(t, state.LastReconcile)
}

func TestDebouncer_Merges(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	out := make(chan core.Event, 4)
	emit := func(e core.Event) { out <- e }

	d.add(core.Event{Type: core.EventCreate, ID: "a"}, emit)
	d.add(core.Event{Type: core.EventModify, ID: "a"}, emit)
	d.add(core.Event{Type: core.EventDelete, ID: "b"}, emit)
	d.add(core.Event{Type: core.EventCreate, ID: "b"}, emit)

	got := map[string]core.EventType{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-out:
			got[e.ID] = e.Type
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	assert.Equal(t, core.EventCreate, got["a"])
	assert.Equal(t, core.EventModify, got["b"])

	d.stopAndWait(time.Second)
	d.add(core.Event{Type: core.EventCreate, ID: "c"}, emit)
	select {
	case e := <-out:
		t.Fatalf("unexpected event after stop: %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
