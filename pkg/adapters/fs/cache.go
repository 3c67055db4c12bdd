package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/speeza/internal/atomicfile"
)

// indexVersion changes whenever indexEntry changes shape. An index written
// by another version is discarded and rebuilt from the files.
const indexVersion = 2

// indexFileName lives in the system directory next to the write lock.
const indexFileName = "index.json"

// indexEntry is the parsed form of a single file, valid while its mtime and
// size are unchanged.
type indexEntry struct {
	ID           string         `json:"id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Content      string         `json:"content,omitempty"`
	Size         int64          `json:"size"`
	LastModified time.Time      `json:"last_modified"`
}

// fresh reports whether the entry still describes a file with this stat.
func (e *indexEntry) fresh(mtime time.Time, size int64) bool {
	return e.Size == size && e.LastModified.Equal(mtime)
}

// indexFile is the on-disk form of the cache.
type indexFile struct {
	Version int                    `json:"version"`
	Strict  bool                   `json:"strict"`
	Entries map[string]*indexEntry `json:"entries"`
}

// cache keeps parsed documents keyed by their path relative to the vault
// (e.g. "notes/<uuid>.md"), so that listing a large vault only parses files
// that changed since the previous run.
type cache struct {
	Path   string
	strict bool

	mu      sync.RWMutex
	entries map[string]*indexEntry
	dirty   bool
}

func newCache(vaultPath, systemDir string, strict bool) *cache {
	return &cache{
		Path:    filepath.Join(vaultPath, systemDir, indexFileName),
		strict:  strict,
		entries: make(map[string]*indexEntry),
	}
}

// Load reads the index. A missing, corrupted or outdated index yields an
// empty cache and no error; the next List repopulates it.
func (c *cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*indexEntry)
	c.dirty = false

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var file indexFile
	dec := json.NewDecoder(bytes.NewReader(data))
	if c.strict {
		// Metadata numbers must come back as json.Number, as the strict
		// serializers produce them.
		dec.UseNumber()
	}
	if err := dec.Decode(&file); err != nil {
		return nil
	}
	if file.Version != indexVersion || file.Strict != c.strict || file.Entries == nil {
		c.dirty = true
		return nil
	}
	c.entries = file.Entries
	return nil
}

// Save writes the index when it changed since the last Load or Save.
func (c *cache) Save() error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	data, err := json.Marshal(indexFile{
		Version: indexVersion,
		Strict:  c.strict,
		Entries: c.entries,
	})
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := atomicfile.Write(c.Path, data, 0644); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Get returns the entry for relPath if it is still fresh.
func (c *cache) Get(relPath string, mtime time.Time, size int64) (*indexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[relPath]
	if !ok || !entry.fresh(mtime, size) {
		return nil, false
	}
	return entry, true
}

func (c *cache) Set(relPath string, entry *indexEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = entry
	c.dirty = true
}

func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[relPath]; ok {
		delete(c.entries, relPath)
		c.dirty = true
	}
}

// Prune drops entries for files no longer present in the vault.
func (c *cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for rel := range c.entries {
		if !keep[rel] {
			delete(c.entries, rel)
			c.dirty = true
		}
	}
}

// Range calls fn for each entry until it returns false.
func (c *cache) Range(fn func(relPath string, entry *indexEntry) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for rel, e := range c.entries {
		if !fn(rel, e) {
			return
		}
	}
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
