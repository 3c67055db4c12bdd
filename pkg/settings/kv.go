// Package settings keeps the small global flags of the app outside the
// document store: whether the intro was completed and which language the
// editor used last.
package settings

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/aretw0/speeza/pkg/core"
)

// KV is a string key-value store.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is a KV kept in process memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Snapshot returns a copy of every entry.
func (m *MemoryKV) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}

// ReadOnlyKV serves reads from KV and refuses every write with
// core.ErrReadOnly. A read-only vault wraps its settings file in it.
type ReadOnlyKV struct {
	KV KV
}

func (r ReadOnlyKV) Get(ctx context.Context, key string) (string, bool, error) {
	return r.KV.Get(ctx, key)
}

func (r ReadOnlyKV) Set(ctx context.Context, key, value string) error {
	return fmt.Errorf("%w: setting %q", core.ErrReadOnly, key)
}
