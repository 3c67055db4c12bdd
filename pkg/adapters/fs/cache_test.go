package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/core"
)

func writeIndex(t *testing.T, vault, body string) {
	t.Helper()
	dir := filepath.Join(vault, DefaultSystemDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), []byte(body), 0644))
}

func TestCache_Load(t *testing.T) {
	t.Run("Missing Index", func(t *testing.T) {
		c := newCache(t.TempDir(), DefaultSystemDir, false)
		require.NoError(t, c.Load())
		assert.Zero(t, c.Len())
	})

	t.Run("Current Version", func(t *testing.T) {
		vault := t.TempDir()
		writeIndex(t, vault, `{
			"version": 2,
			"entries": {
				"notes/a1.md": {"id": "notes/a1", "metadata": {"title": "Directions", "rate": 0.5}, "size": 40}
			}
		}`)

		c := newCache(vault, DefaultSystemDir, false)
		require.NoError(t, c.Load())
		require.Equal(t, 1, c.Len())

		entry, ok := c.Get("notes/a1.md", time.Time{}, 40)
		require.True(t, ok)
		assert.Equal(t, "Directions", entry.Metadata["title"])
		assert.Equal(t, 0.5, entry.Metadata["rate"])
	})

	t.Run("Strict Keeps Numbers", func(t *testing.T) {
		vault := t.TempDir()
		writeIndex(t, vault, `{"version": 2, "strict": true, "entries": {"notes/a1.md": {"id": "notes/a1", "metadata": {"rate": 0.5}}}}`)

		c := newCache(vault, DefaultSystemDir, true)
		require.NoError(t, c.Load())
		entry, ok := c.Get("notes/a1.md", time.Time{}, 0)
		require.True(t, ok)
		assert.Equal(t, json.Number("0.5"), entry.Metadata["rate"])
	})

	t.Run("Discards Outdated Index", func(t *testing.T) {
		vault := t.TempDir()
		writeIndex(t, vault, `{"version": 1, "entries": {"notes/a1.md": {"id": "notes/a1"}}}`)

		c := newCache(vault, DefaultSystemDir, false)
		require.NoError(t, c.Load())
		assert.Zero(t, c.Len())
		assert.True(t, c.dirty, "the rebuilt index replaces the old one")
	})

	t.Run("Discards Index Built In Another Mode", func(t *testing.T) {
		vault := t.TempDir()
		writeIndex(t, vault, `{"version": 2, "strict": false, "entries": {"notes/a1.md": {"id": "notes/a1"}}}`)

		c := newCache(vault, DefaultSystemDir, true)
		require.NoError(t, c.Load())
		assert.Zero(t, c.Len())
	})

	t.Run("Corrupted Index", func(t *testing.T) {
		vault := t.TempDir()
		writeIndex(t, vault, "{ invalid json")

		c := newCache(vault, DefaultSystemDir, false)
		require.NoError(t, c.Load())
		assert.Zero(t, c.Len())
	})
}

func TestCache_Save(t *testing.T) {
	t.Run("Clean Cache Writes Nothing", func(t *testing.T) {
		c := newCache(t.TempDir(), DefaultSystemDir, false)
		require.NoError(t, c.Save())
		_, err := os.Stat(c.Path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Round Trip", func(t *testing.T) {
		vault := t.TempDir()
		mtime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		c := newCache(vault, DefaultSystemDir, false)
		c.Set("groups/g1.yaml", &indexEntry{
			ID:           "groups/g1",
			Metadata:     map[string]any{"name": "Travel"},
			Size:         12,
			LastModified: mtime,
		})
		require.NoError(t, c.Save())
		assert.False(t, c.dirty)

		reloaded := newCache(vault, DefaultSystemDir, false)
		require.NoError(t, reloaded.Load())
		entry, ok := reloaded.Get("groups/g1.yaml", mtime, 12)
		require.True(t, ok)
		assert.Equal(t, "Travel", entry.Metadata["name"])
	})
}

func TestCache_Freshness(t *testing.T) {
	c := newCache(t.TempDir(), DefaultSystemDir, false)
	now := time.Now().Truncate(time.Second)
	c.Set("notes/a1.md", &indexEntry{ID: "notes/a1", Size: 12, LastModified: now})

	tests := []struct {
		name  string
		rel   string
		mtime time.Time
		size  int64
		hit   bool
	}{
		{"Same Stat", "notes/a1.md", now, 12, true},
		{"Touched", "notes/a1.md", now.Add(time.Hour), 12, false},
		{"Resized", "notes/a1.md", now, 13, false},
		{"Unknown File", "notes/b2.md", now, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, hit := c.Get(tt.rel, tt.mtime, tt.size)
			assert.Equal(t, tt.hit, hit)
		})
	}
}

func TestCache_PruneAndDelete(t *testing.T) {
	c := newCache(t.TempDir(), DefaultSystemDir, false)
	c.Set("notes/keep.md", &indexEntry{ID: "notes/keep"})
	c.Set("notes/drop.md", &indexEntry{ID: "notes/drop"})
	c.dirty = false

	c.Delete("notes/missing.md")
	assert.False(t, c.dirty, "deleting an unknown entry changes nothing")

	c.Prune(map[string]bool{"notes/keep.md": true})
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.dirty)

	c.Delete("notes/keep.md")
	assert.Zero(t, c.Len())
}

// A note edited outside speeza with the same size must still be re-read
// once its mtime moves.
func TestRepository_IndexSeesExternalEdits(t *testing.T) {
	ctx := context.Background()
	vault := t.TempDir()
	repo := NewRepository(Config{Path: vault})
	require.NoError(t, repo.Initialize(ctx))

	require.NoError(t, repo.Save(ctx, core.Document{
		ID:       "notes/a1",
		Content:  "Bom dia",
		Metadata: core.Metadata{"language": "pt-BR"},
	}))
	_, err := repo.List(ctx)
	require.NoError(t, err)

	path := filepath.Join(vault, "notes", "a1.md")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := []byte(string(data[:len(data)-len("Bom dia")]) + "Boa dia")
	require.NoError(t, os.WriteFile(path, edited, 0644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Boa dia", docs[0].Content)

	fresh := NewRepository(Config{Path: vault})
	require.NoError(t, fresh.Initialize(ctx))
	assert.Equal(t, 1, fresh.cache.Len(), "the index survives a restart")
}
