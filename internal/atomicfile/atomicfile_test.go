package atomicfile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/internal/atomicfile"
)

func TestWrite(t *testing.T) {
	t.Run("Creates Parent Directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes", "travel", "station.md")
		require.NoError(t, atomicfile.Write(path, []byte("Where is the station?"), 0644))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Where is the station?", string(got))
	})

	t.Run("Replaces Existing File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("intro_completed: \"false\"\n"), 0644))

		require.NoError(t, atomicfile.Write(path, []byte("intro_completed: \"true\"\n"), 0644))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "intro_completed: \"true\"\n", string(got))
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		for i := 0; i < 3; i++ {
			require.NoError(t, atomicfile.Write(filepath.Join(dir, "index.json"), []byte("{}"), 0644))
		}

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "index.json", entries[0].Name())
	})

	t.Run("Applies Permissions", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("windows does not honour unix permission bits")
		}
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, atomicfile.Write(path, []byte("x"), 0600))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("Fails When Parent Is A File", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "notes")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		err := atomicfile.Write(filepath.Join(blocker, "a.md"), []byte("x"), 0644)
		assert.Error(t, err)
	})

	t.Run("Concurrent Writers Never Interleave", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "note.md")
		bodies := make([]string, 8)
		for i := range bodies {
			bodies[i] = fmt.Sprintf("%d:%0512d", i, i)
		}

		var wg sync.WaitGroup
		for _, body := range bodies {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				assert.NoError(t, atomicfile.Write(path, []byte(body), 0644))
			}(body)
		}
		wg.Wait()

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, bodies, string(got), "the file holds one complete write")
	})
}

func TestIsTemp(t *testing.T) {
	assert.True(t, atomicfile.IsTemp(atomicfile.TempPrefix+"123"))
	assert.True(t, atomicfile.IsTemp(filepath.Join("notes", atomicfile.TempPrefix+"abc")))
	assert.False(t, atomicfile.IsTemp("notes/a.md"))
}
