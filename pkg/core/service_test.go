package core_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Transactional to test fallback/errors.
type MockRepository struct {
	docs map[string]core.Document
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		docs: make(map[string]core.Document),
	}
}

func (m *MockRepository) Save(ctx context.Context, doc core.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (core.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	return doc, nil
}

func (m *MockRepository) List(ctx context.Context) ([]core.Document, error) {
	var docs []core.Document
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

// watchRepo adds core.Watchable on top of the mock with an unbuffered upstream.
type watchRepo struct {
	*MockRepository
	upstream chan core.Event
}

func (w *watchRepo) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return w.upstream, nil
}

func TestService_Repository(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	assert.Same(t, repo, service.Repository())
}

func TestService_WithTransaction(t *testing.T) {
	repo := &txRepo{MockRepository: NewMockRepository()}
	service := core.NewService(repo)

	ctx := context.WithValue(context.Background(), core.ChangeReasonKey, "group delete")
	err := service.WithTransaction(ctx, func(tx core.Transaction) error {
		return tx.Save(ctx, core.Document{ID: "groups/g"})
	})
	require.NoError(t, err)
	assert.Equal(t, "group delete", repo.tx.committed)
	assert.Contains(t, repo.docs, "groups/g")

	boom := errors.New("boom")
	err = service.WithTransaction(context.Background(), func(tx core.Transaction) error {
		_ = tx.Save(ctx, core.Document{ID: "groups/h"})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, repo.tx.rolledBack)
	assert.NotContains(t, repo.docs, "groups/h")
}

// txRepo stages writes in a map and applies them on commit.
type txRepo struct {
	*MockRepository
	tx *stagedTx
}

func (r *txRepo) Begin(ctx context.Context) (core.Transaction, error) {
	r.tx = &stagedTx{repo: r.MockRepository, staged: map[string]core.Document{}}
	return r.tx, nil
}

type stagedTx struct {
	repo       *MockRepository
	staged     map[string]core.Document
	committed  string
	rolledBack bool
}

func (t *stagedTx) Save(ctx context.Context, doc core.Document) error {
	t.staged[doc.ID] = doc
	return nil
}

func (t *stagedTx) Get(ctx context.Context, id string) (core.Document, error) {
	if doc, ok := t.staged[id]; ok {
		return doc, nil
	}
	return t.repo.Get(ctx, id)
}

func (t *stagedTx) List(ctx context.Context) ([]core.Document, error) {
	return t.repo.List(ctx)
}

func (t *stagedTx) Delete(ctx context.Context, id string) error {
	delete(t.staged, id)
	return nil
}

func (t *stagedTx) Commit(ctx context.Context, msg string) error {
	for id, doc := range t.staged {
		t.repo.docs[id] = doc
	}
	t.committed = msg
	return nil
}

func (t *stagedTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func TestService_Begin_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())

	err := service.WithTransaction(context.TODO(), func(tx core.Transaction) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected error for non-transactional repo")
	}
	if err.Error() != "repository does not support transactions" {
		t.Errorf("unexpected error msg: %v", err)
	}
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())
	_, err := service.Watch(context.Background(), "**")
	assert.Error(t, err)
}

func TestService_WatchDecouplesSlowConsumer(t *testing.T) {
	repo := &watchRepo{MockRepository: NewMockRepository(), upstream: make(chan core.Event)}
	service := core.NewService(repo, core.WithEventBufferSize(8))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := service.Watch(ctx, "*")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			select {
			case repo.upstream <- core.Event{Type: core.EventModify, ID: "notes/x"}:
			case <-time.After(time.Second):
				t.Error("producer blocked: service is not buffering")
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for producer")
	}

	count := 0
	timeout := time.After(time.Second)
	for i := 0; i < 5; i++ {
		select {
		case <-stream:
			count++
		case <-timeout:
			t.Fatal("failed to read buffered events")
		}
	}
	assert.Equal(t, 5, count)
}

func TestService_State(t *testing.T) {
	service := core.NewService(NewMockRepository(), core.WithEventBufferSize(12))
	state, ok := service.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 12, state.EventBufferSize)
	assert.Equal(t, "repository", state.RepositoryType)
	assert.False(t, state.Transactional)
	assert.False(t, state.Watchable)
	assert.Equal(t, "service", service.ComponentType())

	t.Run("Counts Active Watches", func(t *testing.T) {
		repo := &watchRepo{MockRepository: NewMockRepository(), upstream: make(chan core.Event)}
		service := core.NewService(repo)

		ctx, cancel := context.WithCancel(context.Background())
		stream, err := service.Watch(ctx, "**")
		require.NoError(t, err)

		state := service.State().(core.ServiceState)
		assert.True(t, state.Watchable)
		assert.Equal(t, 1, state.ActiveWatches)

		cancel()
		for range stream {
		}
		assert.Eventually(t, func() bool {
			return service.State().(core.ServiceState).ActiveWatches == 0
		}, time.Second, 10*time.Millisecond)
	})
}

func TestCollectionOf(t *testing.T) {
	assert.Equal(t, "notes", core.CollectionOf("notes/abc"))
	assert.Equal(t, "languages", core.CollectionOf("languages/en-US"))
	assert.Equal(t, "", core.CollectionOf("loose"))
}
