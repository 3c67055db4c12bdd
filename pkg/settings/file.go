package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/speeza/internal/atomicfile"
)

// FileKV stores entries as a flat YAML mapping in one file.
// The file is read on every Get so edits made by hand are picked up, and
// rewritten atomically on every Set.
type FileKV struct {
	Path string

	mu sync.Mutex
}

// NewFileKV creates a FileKV. The file is created on first Set.
func NewFileKV(path string) *FileKV {
	return &FileKV{Path: path}
}

func (f *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return atomicfile.Write(f.Path, data, 0644)
}

func (f *FileKV) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", f.Path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}
