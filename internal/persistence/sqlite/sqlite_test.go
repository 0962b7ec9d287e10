package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/persistence"
	"okrboard/internal/persistence/backendtest"
)

func TestBackendContract(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) persistence.Backend {
		store, err := Open(filepath.Join(t.TempDir(), "data", "okrboard.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "okrboard.sqlite")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveDataset(ctx, "t", backendtest.Sample()))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, found, err := store.LoadDataset(ctx, "t")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, backendtest.Sample(), got)
}
