package prefs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/adapters/memory"
	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/prefs"
)

func TestEffectiveEnabledLanguages(t *testing.T) {
	all := []string{"en-US", "fr-FR", "tr-TR"}

	t.Run("no records", func(t *testing.T) {
		assert.Equal(t, all, prefs.EffectiveEnabledLanguages(all, nil))
	})

	t.Run("one disabled", func(t *testing.T) {
		got := prefs.EffectiveEnabledLanguages(all, []prefs.LanguagePreference{
			{LanguageCode: "fr-FR", IsEnabled: false},
		})
		assert.Equal(t, []string{"en-US", "tr-TR"}, got)
	})

	t.Run("explicitly enabled and unknown records", func(t *testing.T) {
		got := prefs.EffectiveEnabledLanguages(all, []prefs.LanguagePreference{
			{LanguageCode: "en-US", IsEnabled: true},
			{LanguageCode: "ja-JP", IsEnabled: false},
		})
		assert.Equal(t, all, got)
	})
}

func TestSetEnabled_Upserts(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewStore(memory.NewRepository())

	first, err := store.SetEnabled(ctx, "fr-FR", false)
	require.NoError(t, err)
	second, err := store.SetEnabled(ctx, "fr-FR", true)
	require.NoError(t, err)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "toggling twice keeps exactly one record")
	assert.True(t, list[0].IsEnabled)
	assert.Equal(t, first.ID, second.ID, "record is updated in place")
	assert.Equal(t, "fr-FR", list[0].LanguageCode)
}

func TestSetEnabled_Validation(t *testing.T) {
	store := prefs.NewStore(memory.NewRepository())
	_, err := store.SetEnabled(context.Background(), "  ", false)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSetEnabled_PersistenceError(t *testing.T) {
	repo := memory.NewRepository()
	store := prefs.NewStore(repo)
	repo.SetFailure(errors.New("disk gone"))

	_, err := store.SetEnabled(context.Background(), "de-DE", false)
	assert.ErrorIs(t, err, core.ErrPersistence)

	repo.SetFailure(nil)
	enabled, err := store.IsEnabled(context.Background(), "de-DE")
	require.NoError(t, err)
	assert.True(t, enabled, "failed write leaves nothing behind")
}

func TestSetEnabled_OnChange(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	var seen []prefs.LanguagePreference
	var store *prefs.Store
	store = prefs.NewStore(repo, prefs.WithOnChange(func(p prefs.LanguagePreference) {
		seen = append(seen, p)
		// The hook may read the store back without deadlocking.
		_, err := store.Get(ctx, p.LanguageCode)
		assert.NoError(t, err)
	}))

	_, err := store.SetEnabled(ctx, "fr-CA", false)
	require.NoError(t, err)
	_, err = store.SetEnabled(ctx, "fr-CA", true)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.False(t, seen[0].IsEnabled)
	assert.True(t, seen[1].IsEnabled)
	assert.Equal(t, seen[0].ID, seen[1].ID, "the record is updated in place")

	repo.SetFailure(errors.New("disk gone"))
	_, err = store.SetEnabled(ctx, "de-DE", false)
	require.Error(t, err)
	assert.Len(t, seen, 2, "failed writes are not announced")
}

func TestIsEnabledAndEnabledLanguages(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	store := prefs.NewStore(memory.NewRepository(), prefs.WithClock(func() time.Time { return created }))

	_, err := store.SetEnabled(ctx, "tr-TR", false)
	require.NoError(t, err)

	p, err := store.Get(ctx, "tr-TR")
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(created))

	enabled, err := store.IsEnabled(ctx, "tr-TR")
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = store.IsEnabled(ctx, "en-US")
	require.NoError(t, err)
	assert.True(t, enabled)

	langs, err := store.EnabledLanguages(ctx, []string{"en-US", "tr-TR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US"}, langs)

	_, err = store.Get(ctx, "en-US")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewStore(memory.NewRepository())
	_, err := store.SetEnabled(ctx, "fr-FR", false)
	require.NoError(t, err)
	_, err = store.SetEnabled(ctx, "xx-XX", true)
	require.NoError(t, err)

	rows, err := store.Overview(ctx, []string{"en-US", "fr-FR"})
	require.NoError(t, err)
	assert.Equal(t, []prefs.LanguageState{
		{Language: "en-US", Enabled: true, Explicit: false},
		{Language: "fr-FR", Enabled: false, Explicit: true},
		{Language: "xx-XX", Enabled: true, Explicit: true},
	}, rows)

	list, _ := store.List(ctx)
	assert.Len(t, list, 2, "overview does not persist anything")
}
