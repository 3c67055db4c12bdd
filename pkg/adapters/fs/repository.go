// Package fs stores speeza documents as plain files inside a vault directory.
//
// Each document is one file: notes default to Markdown with YAML
// frontmatter, other collections may be configured to use YAML or JSON. A
// parsed-file index under the system directory (".speeza") keeps List cheap,
// and a lock file in the same place serializes writers across processes.
package fs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/speeza/internal/atomicfile"
	"github.com/aretw0/speeza/pkg/core"
)

const (
	// DefaultSystemDir holds the index and the write lock.
	DefaultSystemDir = ".speeza"
	// DefaultFormat is the extension used for new documents.
	DefaultFormat = ".md"
)

// Compile-time interface checks.
var (
	_ core.Transactional = (*Repository)(nil)
	_ core.Watchable     = (*Repository)(nil)
)

// Repository implements core.Repository on the filesystem.
type Repository struct {
	Path        string
	cache       *cache
	lock        *fileLock
	serializers map[string]Serializer
	config      Config

	writeMu sync.Mutex // serializes writers inside the process

	mu            sync.RWMutex // guards the fields below
	readOnly      bool
	watcherActive bool
	lastReconcile *time.Time
	transactions  map[string]struct{}
}

// Config holds the configuration for the filesystem repository.
//
// Formats overrides DefaultFormat per collection (e.g. "groups": ".yaml").
// ErrorHandler receives errors from background work such as the watcher and
// unparseable files found by List.
type Config struct {
	Path             string
	MustExist        bool
	ReadOnly         bool
	Strict           bool // keep numbers as json.Number
	Logger           *slog.Logger
	SystemDir        string // e.g. ".speeza"
	DefaultFormat    string // ".md", ".yaml", ".yml" or ".json"
	Formats          map[string]string
	ErrorHandler     func(error)
	DebounceInterval time.Duration
	LockTimeout      time.Duration // zero means DefaultLockTimeout
	LockStaleAfter   time.Duration // zero means DefaultLockStaleAfter
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = DefaultFormat
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 50 * time.Millisecond
	}
	return &Repository{
		Path:         config.Path,
		config:       config,
		cache:        newCache(config.Path, config.SystemDir, config.Strict),
		lock:         newFileLock(config.Path, config.SystemDir, config.LockTimeout, config.LockStaleAfter),
		serializers:  DefaultSerializers(config.Strict),
		readOnly:     config.ReadOnly,
		transactions: make(map[string]struct{}),
	}
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.isReadOnly() {
		return nil, core.ErrReadOnly
	}
	return newTransaction(r), nil
}

// Initialize prepares the vault directory and loads the index.
func (r *Repository) Initialize(ctx context.Context) error {
	if _, ok := r.serializers[r.config.DefaultFormat]; !ok {
		return fmt.Errorf("%w: unsupported default format %q", core.ErrValidation, r.config.DefaultFormat)
	}
	for coll, ext := range r.config.Formats {
		if _, ok := r.serializers[ext]; !ok {
			return fmt.Errorf("%w: unsupported format %q for collection %s", core.ErrValidation, ext, coll)
		}
	}

	info, err := os.Stat(r.Path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("vault path is not a directory: %s", r.Path)
	case os.IsNotExist(err) && (r.config.MustExist || r.isReadOnly()):
		return fmt.Errorf("vault path does not exist: %s", r.Path)
	case os.IsNotExist(err):
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat vault: %w", err)
	}

	if !r.isReadOnly() {
		if err := os.MkdirAll(filepath.Join(r.Path, r.config.SystemDir), 0755); err != nil {
			return fmt.Errorf("failed to create system directory: %w", err)
		}
	}

	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("index load failed, rebuilding", "error", err)
	}
	return nil
}

// Save persists a document as a single file.
//
// Workflow:
//  1. Validate the ID and pick the file (existing file wins over the configured format).
//  2. Serialize and write atomically under the write lock.
//  3. Refresh the index entry for the file.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if err := r.validateID(doc.ID); err != nil {
		return err
	}
	if r.isReadOnly() {
		return core.ErrReadOnly
	}

	unlock, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.writeLocked(doc); err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("index save failed", "error", err)
	}

	reason, _ := ctx.Value(core.ChangeReasonKey).(string)
	r.config.Logger.Debug("document saved", "id", doc.ID, "reason", reason)
	return nil
}

// Get retrieves a document from the filesystem.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	if err := r.validateID(id); err != nil {
		return core.Document{}, err
	}

	fullPath, ext, found := r.locate(id)
	if !found {
		return core.Document{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Document{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		return core.Document{}, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	doc, err := r.parse(data, ext)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	doc.ID = trimFormat(id, r.serializers)
	return *doc, nil
}

// List returns every document in the vault ordered by ID.
// Files that fail to parse are skipped and reported to the ErrorHandler.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	var docs []core.Document
	seen := make(map[string]bool)
	byID := make(map[string]string)

	err := filepath.WalkDir(r.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.Path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(d.Name())
		if _, ok := r.serializers[ext]; !ok || atomicfile.IsTemp(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(r.Path, p)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		id := strings.TrimSuffix(relPath, ext)

		if other, dup := byID[id]; dup {
			r.config.Logger.Warn("duplicate document ID, keeping first", "id", id, "kept", other, "skipped", relPath)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		seen[relPath] = true

		if entry, hit := r.cache.Get(relPath, info.ModTime(), info.Size()); hit {
			byID[id] = relPath
			docs = append(docs, core.Document{
				ID:       entry.ID,
				Content:  entry.Content,
				Metadata: cloneMetadata(entry.Metadata),
			})
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			r.reportError(fmt.Errorf("failed to read %s: %w", relPath, err))
			return nil
		}
		doc, err := r.parse(data, ext)
		if err != nil {
			r.reportError(fmt.Errorf("failed to parse %s: %w", relPath, err))
			return nil
		}
		doc.ID = id
		byID[id] = relPath

		r.cache.Set(relPath, &indexEntry{
			ID:           id,
			Metadata:     cloneMetadata(doc.Metadata),
			Content:      doc.Content,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if !r.isReadOnly() {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("index save failed", "error", err)
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document's file.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.validateID(id); err != nil {
		return err
	}
	if r.isReadOnly() {
		return core.ErrReadOnly
	}

	unlock, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.removeLocked(id); err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("index save failed", "error", err)
	}
	r.config.Logger.Debug("document deleted", "id", id)
	return nil
}

// SetReadOnly toggles write protection at runtime.
func (r *Repository) SetReadOnly(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readOnly = enabled
}

func (r *Repository) isReadOnly() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readOnly
}

// acquire takes the in-process mutex and then the vault lock file.
func (r *Repository) acquire(ctx context.Context) (func(), error) {
	r.writeMu.Lock()
	unlock, err := r.lock.Acquire(ctx)
	if err != nil {
		r.writeMu.Unlock()
		return nil, err
	}
	return func() {
		unlock()
		r.writeMu.Unlock()
	}, nil
}

// writeLocked serializes doc to its file. The caller holds the write lock.
func (r *Repository) writeLocked(doc core.Document) error {
	fullPath, ext, _ := r.locate(doc.ID)

	data, err := r.serialize(doc, ext)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := atomicfile.Write(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(fullPath); err == nil {
		// Stored as List would parse it back, so a cache hit in this process
		// matches a fresh read.
		r.cache.Set(r.relPath(fullPath), &indexEntry{
			ID:           trimFormat(doc.ID, r.serializers),
			Metadata:     normalizeMap(doc.Metadata, r.config.Strict),
			Content:      doc.Content,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return nil
}

// removeLocked deletes the file behind id. The caller holds the write lock.
func (r *Repository) removeLocked(id string) error {
	fullPath, _, found := r.locate(id)
	if !found {
		return fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	r.cache.Delete(r.relPath(fullPath))
	return nil
}

// locate resolves an ID to a file. An explicit extension in the ID is used
// as is. Otherwise an existing file in any supported format wins, and a new
// document gets the collection's configured format.
func (r *Repository) locate(id string) (fullPath, ext string, found bool) {
	base := filepath.Join(r.Path, filepath.FromSlash(id))

	if e := filepath.Ext(id); e != "" {
		if _, ok := r.serializers[e]; ok {
			_, err := os.Stat(base)
			return base, e, err == nil
		}
	}

	preferred := r.formatFor(id)
	for _, e := range r.candidates(preferred) {
		if _, err := os.Stat(base + e); err == nil {
			return base + e, e, true
		}
	}
	return base + preferred, preferred, false
}

func (r *Repository) formatFor(id string) string {
	if ext, ok := r.config.Formats[core.CollectionOf(id)]; ok {
		return ext
	}
	return r.config.DefaultFormat
}

// candidates lists every supported extension, preferred first.
func (r *Repository) candidates(preferred string) []string {
	exts := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		if ext != preferred {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return append([]string{preferred}, exts...)
}

func (r *Repository) relPath(fullPath string) string {
	rel, err := filepath.Rel(r.Path, fullPath)
	if err != nil {
		return filepath.ToSlash(fullPath)
	}
	return filepath.ToSlash(rel)
}

// validateID rejects IDs that would escape the vault or touch hidden paths.
func (r *Repository) validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: document has no ID", core.ErrValidation)
	}
	if path.IsAbs(id) || strings.Contains(id, `\`) || path.Clean(id) != id {
		return fmt.Errorf("%w: invalid document ID %q", core.ErrValidation, id)
	}
	for _, segment := range strings.Split(id, "/") {
		if segment == ".." || strings.HasPrefix(segment, ".") {
			return fmt.Errorf("%w: invalid document ID %q", core.ErrValidation, id)
		}
	}
	return nil
}

func (r *Repository) parse(data []byte, ext string) (*core.Document, error) {
	s, ok := r.serializers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", ext)
	}
	return s.Parse(bytes.NewReader(data))
}

func (r *Repository) serialize(doc core.Document, ext string) ([]byte, error) {
	s, ok := r.serializers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", ext)
	}
	return s.Serialize(doc)
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Warn("fs repository", "error", err)
}

// trimFormat drops a supported extension from an ID.
func trimFormat(id string, serializers map[string]Serializer) string {
	ext := filepath.Ext(id)
	if _, ok := serializers[ext]; ok {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

func cloneMetadata(m map[string]interface{}) core.Metadata {
	if m == nil {
		return core.Metadata{}
	}
	out := make(core.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
