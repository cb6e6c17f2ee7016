package session

import (
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrabinKa/ShipMate/internal/storage"
)

func newTestRegion(t *testing.T) *storage.Region {
	t.Helper()
	region, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"), "pw", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = region.Close() })
	return region
}

func TestFreshSessionIsUnauthenticated(t *testing.T) {
	s, err := Load(newTestRegion(t), slog.Default())
	require.NoError(t, err)

	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Get().Access)
	assert.Empty(t, s.Get().Refresh)
}

func TestSetAndClear(t *testing.T) {
	s, err := Load(newTestRegion(t), slog.Default())
	require.NoError(t, err)

	require.NoError(t, s.SetAccess("acc-1"))
	require.NoError(t, s.SetRefresh("ref-1"))

	assert.True(t, s.Authenticated())
	assert.Equal(t, Credentials{Access: "acc-1", Refresh: "ref-1"}, s.Get())

	require.NoError(t, s.Clear())
	assert.False(t, s.Authenticated())
	assert.Equal(t, Credentials{}, s.Get())
}

func TestCredentialsSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")

	region, err := storage.Open(path, "pw", slog.Default())
	require.NoError(t, err)
	s, err := Load(region, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.SetAccess("acc-9"))
	require.NoError(t, s.SetRefresh("ref-9"))
	require.NoError(t, region.Close())

	region2, err := storage.Open(path, "pw", slog.Default())
	require.NoError(t, err)
	defer region2.Close()

	restored, err := Load(region2, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, Credentials{Access: "acc-9", Refresh: "ref-9"}, restored.Get())
}

func TestConcurrentWritersDoNotCorrupt(t *testing.T) {
	s, err := Load(newTestRegion(t), slog.Default())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SetAccess("acc")
			_ = s.SetRefresh("ref")
		}()
	}
	wg.Wait()

	assert.Equal(t, Credentials{Access: "acc", Refresh: "ref"}, s.Get())
}
