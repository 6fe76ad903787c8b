package infrastructure

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/Vaflel/bell-ticker/usecases"
)

func TestPreferenceRepositoryCRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "preferences.yaml")
	repo := NewYAMLPreferenceRepository(path)

	prefs, err := repo.LoadPreferences()
	require.NoError(t, err)
	assert.Empty(t, prefs)

	_, err = repo.GetPreference("c1")
	assert.ErrorIs(t, err, usecases.ErrPreferenceNotFound)

	require.NoError(t, repo.SetPreference("c1", domain.BLunch))
	require.NoError(t, repo.SetPreference("c2", domain.ALunch))
	require.NoError(t, repo.SetPreference("c1", domain.ALunch))

	kind, err := repo.GetPreference("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ALunch, kind)

	prefs, err = repo.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ScheduleKind{"c1": domain.ALunch, "c2": domain.ALunch}, prefs)

	require.NoError(t, repo.DeletePreference("c2"))
	assert.ErrorIs(t, repo.DeletePreference("c2"), usecases.ErrPreferenceNotFound)

	// файл переживает новый экземпляр репозитория
	kind, err = NewYAMLPreferenceRepository(path).GetPreference("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ALunch, kind)
}

func TestPreferenceRepositoryRejectsEmptyClient(t *testing.T) {
	repo := NewYAMLPreferenceRepository(filepath.Join(t.TempDir(), "p.yaml"))
	assert.Error(t, repo.SetPreference("", domain.ALunch))
}

func TestPreferenceRepositoryBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preferences: {oops"), 0o644))

	_, err := NewYAMLPreferenceRepository(path).LoadPreferences()
	assert.Error(t, err)
}

func TestPreferenceRepositoryConcurrentWrites(t *testing.T) {
	repo := NewYAMLPreferenceRepository(filepath.Join(t.TempDir(), "p.yaml"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := domain.ALunch
			if i%2 == 1 {
				kind = domain.BLunch
			}
			assert.NoError(t, repo.SetPreference(string(rune('a'+i)), kind))
		}(i)
	}
	wg.Wait()

	prefs, err := repo.LoadPreferences()
	require.NoError(t, err)
	assert.Len(t, prefs, 20)
}
