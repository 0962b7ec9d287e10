package versions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
	"okrboard/internal/persistence/memory"
	"okrboard/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func setup(t *testing.T) (*store.Store, *Manager, *memory.Backend) {
	t.Helper()
	backend := memory.New()
	c := &clock{t: time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC)}
	s := store.New(store.Options{Tenant: "t", Saver: backend, IDs: &okr.SequenceGenerator{}})
	m := NewManager(Options{Tenant: "t", Backend: backend, Source: s, Views: s, Now: c.now})
	s.SetVersions(m)
	return s, m, backend
}

func TestSaveSnapshotsLiveDataset(t *testing.T) {
	ctx := context.Background()
	s, m, _ := setup(t)
	_, err := s.AddCompanyObjective(ctx, "Grow")
	require.NoError(t, err)

	v, err := m.Save(ctx, "Q1 close")
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Q1 close", v.Name)
	require.Len(t, v.Data.Objectives, 1)

	_, err = s.AddCompanyObjective(ctx, "Retain")
	require.NoError(t, err)

	got, ok := m.Lookup("Q1 close")
	require.True(t, ok)
	assert.Len(t, got.Data.Objectives, 1, "versions are immutable")
}

func TestSaveDefaultName(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)

	first, err := m.Save(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Versiyon 1 - 31.03.2025", first.Name)

	second, err := m.Save(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Versiyon 2 - 31.03.2025", second.Name)
}

func TestListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	_, m, backend := setup(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := m.Save(ctx, name)
		require.NoError(t, err)
	}
	names := func(vs []okr.Version) []string {
		var out []string
		for _, v := range vs {
			out = append(out, v.Name)
		}
		return out
	}
	assert.Equal(t, []string{"c", "b", "a"}, names(m.List()))

	fresh := NewManager(Options{Tenant: "t", Backend: backend, Source: store.New(store.Options{Tenant: "t", Saver: backend})})
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, []string{"c", "b", "a"}, names(fresh.List()))
}

func TestLookupPrefersMostRecentDuplicateName(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)
	older, err := m.Save(ctx, "dup")
	require.NoError(t, err)
	newer, err := m.Save(ctx, "dup")
	require.NoError(t, err)

	got, ok := m.Lookup("dup")
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)

	got, ok = m.Lookup(older.ID)
	require.True(t, ok)
	assert.Equal(t, older.ID, got.ID)
}

func TestDeleteUnknownVersion(t *testing.T) {
	_, m, _ := setup(t)
	err := m.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteResetsViewOfDeletedVersion(t *testing.T) {
	ctx := context.Background()
	s, m, _ := setup(t)
	v, err := m.Save(ctx, "Q1")
	require.NoError(t, err)
	require.NoError(t, s.SetView("Q1"))

	require.NoError(t, m.Delete(ctx, v.ID))
	assert.Equal(t, okr.LatestView, s.View())
	assert.Empty(t, m.List())

	err = m.Delete(ctx, v.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	_, m, backend := setup(t)
	backend.FailSaves(errors.New("offline"))

	_, err := m.Save(ctx, "x")
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
	assert.Empty(t, m.List())
}

func TestDiffAgainstLive(t *testing.T) {
	ctx := context.Background()
	s, m, _ := setup(t)
	_, err := s.AddCompanyObjective(ctx, "Grow")
	require.NoError(t, err)
	_, err = m.Save(ctx, "before")
	require.NoError(t, err)
	_, err = s.AddCompanyObjective(ctx, "Retain customers")
	require.NoError(t, err)

	diff, err := m.Diff("before")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(diff, "--- version/before"), diff)
	assert.Contains(t, diff, "+++ latest")
	added := false
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+") && strings.HasSuffix(line, "title: Retain customers") {
			added = true
		}
	}
	assert.True(t, added, diff)

	_, err = m.Diff("nope")
	assert.True(t, apperr.IsNotFound(err))
}
