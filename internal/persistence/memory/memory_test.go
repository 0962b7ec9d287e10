package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/persistence"
	"okrboard/internal/persistence/backendtest"
)

func TestBackendContract(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) persistence.Backend {
		return New()
	})
}

func TestFailSaves(t *testing.T) {
	ctx := context.Background()
	b := New()
	boom := errors.New("offline")
	b.FailSaves(boom)

	err := b.SaveDataset(ctx, "t", backendtest.Sample())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.DatasetSaves())

	b.FailSaves(nil)
	require.NoError(t, b.SaveDataset(ctx, "t", backendtest.Sample()))
	assert.Equal(t, 1, b.DatasetSaves())
}

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.SaveDataset(ctx, "t", backendtest.Sample()))

	got, _, err := b.LoadDataset(ctx, "t")
	require.NoError(t, err)
	got.Departments[0].Name = "mutated"

	again, _, err := b.LoadDataset(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "Sales", again.Departments[0].Name)
}
