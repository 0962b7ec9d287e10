// Package backendtest holds the behavior every persistence.Backend must
// share. Backend packages call Run from their tests.
package backendtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/okr"
	"okrboard/internal/persistence"
)

// Sample returns a small dataset with one linked department objective.
func Sample() okr.Dataset {
	return okr.RecomputeAll(okr.Dataset{
		Objectives: []okr.Objective{{ID: "c1", Title: "Grow Revenue", KRs: []okr.KeyResult{}}},
		Departments: []okr.Department{{ID: "d1", Name: "Sales", Objectives: []okr.Objective{{
			ID: "o1", Title: "Increase deals", CompanyObjectiveID: "c1",
			KRs: []okr.KeyResult{{
				ID: "k1", Title: "Deals closed", Responsible: "Ana", Type: okr.TypeIncreasing, Weight: 100,
				CheckIns: []okr.CheckIn{{Period: "2025Q1", Target: "100", Actual: "50"}},
			}},
		}}}},
		OrgChart: okr.OrgNode{Name: "CEO", Children: []okr.OrgNode{{Name: "Sales"}}},
	})
}

// Run exercises the Backend contract against a fresh backend.
func Run(t *testing.T, newBackend func(t *testing.T) persistence.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing dataset", func(t *testing.T) {
		b := newBackend(t)
		_, found, err := b.LoadDataset(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("dataset round trip", func(t *testing.T) {
		b := newBackend(t)
		ds := Sample()
		require.NoError(t, b.SaveDataset(ctx, "tenant-a", ds))

		got, found, err := b.LoadDataset(ctx, "tenant-a")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ds, got)

		_, found, err = b.LoadDataset(ctx, "tenant-b")
		require.NoError(t, err)
		assert.False(t, found, "tenants must be isolated")
	})

	t.Run("dataset overwrite", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.SaveDataset(ctx, "tenant-a", Sample()))
		require.NoError(t, b.SaveDataset(ctx, "tenant-a", okr.Dataset{Objectives: []okr.Objective{{ID: "x", Title: "Only", KRs: []okr.KeyResult{}}}, Departments: []okr.Department{}}))

		got, _, err := b.LoadDataset(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, got.Objectives, 1)
		assert.Equal(t, "Only", got.Objectives[0].Title)
		assert.Empty(t, got.Departments)
	})

	t.Run("versions ordered most recent first", func(t *testing.T) {
		b := newBackend(t)
		base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		first, err := b.SaveVersion(ctx, "tenant-a", okr.Version{Name: "first", CreatedAt: base, Data: Sample()})
		require.NoError(t, err)
		require.NotEmpty(t, first.ID)
		second, err := b.SaveVersion(ctx, "tenant-a", okr.Version{Name: "second", CreatedAt: base.Add(time.Hour), Data: okr.Dataset{}})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		versions, err := b.ListVersions(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "second", versions[0].Name)
		assert.Equal(t, "first", versions[1].Name)
		assert.True(t, versions[1].CreatedAt.Equal(base))
		assert.Equal(t, Sample(), versions[1].Data)

		other, err := b.ListVersions(ctx, "tenant-b")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("delete version", func(t *testing.T) {
		b := newBackend(t)
		v, err := b.SaveVersion(ctx, "tenant-a", okr.Version{Name: "v", CreatedAt: time.Now(), Data: Sample()})
		require.NoError(t, err)

		require.NoError(t, b.DeleteVersion(ctx, "tenant-a", v.ID))
		err = b.DeleteVersion(ctx, "tenant-a", v.ID)
		assert.True(t, errors.Is(err, persistence.ErrVersionNotFound), "got %v", err)

		versions, err := b.ListVersions(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}
