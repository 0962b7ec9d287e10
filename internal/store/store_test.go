package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
	"okrboard/internal/persistence/memory"
)

type fakeVersions map[string]okr.Version

func (f fakeVersions) Lookup(name string) (okr.Version, bool) {
	v, ok := f[name]
	return v, ok
}

func newTestStore(t *testing.T) (*Store, *memory.Backend) {
	t.Helper()
	backend := memory.New()
	s := New(Options{
		Tenant: "tenant-a",
		Saver:  backend,
		IDs:    &okr.SequenceGenerator{Prefix: "id"},
	})
	return s, backend
}

func increasingKR(title string, weight string) okr.KRInput {
	return okr.KRInput{Title: title, Responsible: "Ana", Type: okr.TypeIncreasing, Weight: okr.Value(weight)}
}

func TestScenarioRollUp(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	grow, err := s.AddCompanyObjective(ctx, "Grow Revenue")
	require.NoError(t, err)
	sales, err := s.AddDepartment(ctx, "Sales")
	require.NoError(t, err)
	deals, err := s.AddDepartmentObjective(ctx, sales.ID, "Increase deals", grow.ID)
	require.NoError(t, err)
	kr, err := s.AddKR(ctx, deals.ID, increasingKR("Deals closed", "100"))
	require.NoError(t, err)

	kr, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025Q1", Target: "100", Actual: "50"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, kr.Progress)

	ds := s.Read()
	assert.Equal(t, 50.0, ds.Departments[0].Objectives[0].Progress)
	assert.Equal(t, 50.0, ds.Departments[0].Progress)
	assert.Equal(t, 50.0, ds.Objectives[0].Progress)

	persisted, found, err := backend.LoadDataset(ctx, "tenant-a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ds, persisted)
}

func TestDeleteLinkedCompanyObjectiveRefused(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	grow, err := s.AddCompanyObjective(ctx, "Grow")
	require.NoError(t, err)
	dept, err := s.AddDepartment(ctx, "Ops")
	require.NoError(t, err)
	obj, err := s.AddDepartmentObjective(ctx, dept.ID, "Automate", grow.ID)
	require.NoError(t, err)

	before := s.Live()
	err = s.DeleteCompanyObjective(ctx, grow.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, before, s.Live(), "refused delete must not mutate")

	empty := okr.ID("")
	_, err = s.UpdateDepartmentObjective(ctx, obj.ID, DepartmentObjectiveUpdate{CompanyObjectiveID: &empty})
	require.NoError(t, err)
	require.NoError(t, s.DeleteCompanyObjective(ctx, grow.ID))
	assert.Empty(t, s.Live().Objectives)
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	backend.FailSaves(errors.New("network down"))

	obj, err := s.AddCompanyObjective(ctx, "Grow")
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
	assert.Equal(t, "Grow", obj.Title)
	require.Len(t, s.Live().Objectives, 1)

	_, found, _ := backend.LoadDataset(ctx, "tenant-a")
	assert.False(t, found)

	backend.FailSaves(nil)
	_, err = s.AddCompanyObjective(ctx, "Retain")
	require.NoError(t, err)
	persisted, _, _ := backend.LoadDataset(ctx, "tenant-a")
	assert.Len(t, persisted.Objectives, 2)
}

func TestValidationErrorsAbortWrite(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	obj, err := s.AddCompanyObjective(ctx, "Grow")
	require.NoError(t, err)
	saves := backend.DatasetSaves()

	_, err = s.AddKR(ctx, obj.ID, okr.KRInput{Title: "", Type: "bogus", Weight: "x"})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = s.AddCompanyObjective(ctx, "   ")
	assert.True(t, apperr.IsValidation(err))

	_, err = s.AddKR(ctx, "missing", increasingKR("t", "1"))
	assert.True(t, apperr.IsNotFound(err))

	assert.Equal(t, saves, backend.DatasetSaves())
	assert.Empty(t, s.Live().Objectives[0].KRs)
}

func TestDepartmentNamesUnique(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.AddDepartment(ctx, "Sales")
	require.NoError(t, err)
	_, err = s.AddDepartment(ctx, "Sales")
	assert.True(t, apperr.IsValidation(err))

	mkt, err := s.AddDepartment(ctx, "Marketing")
	require.NoError(t, err)
	_, err = s.RenameDepartment(ctx, mkt.ID, "Sales")
	assert.True(t, apperr.IsValidation(err))
	_, err = s.RenameDepartment(ctx, mkt.ID, "Marketing")
	assert.NoError(t, err)
}

func TestRecordCheckInUpsertsAndSeedsStartValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	obj, err := s.AddCompanyObjective(ctx, "Cut costs")
	require.NoError(t, err)
	kr, err := s.AddKR(ctx, obj.ID, okr.KRInput{Title: "Churn", Responsible: "Bo", Type: okr.TypeDecreasing, Weight: "100"})
	require.NoError(t, err)

	kr, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025Q1", Target: "5", Actual: "10"})
	require.NoError(t, err)
	assert.Equal(t, okr.Value("10"), kr.StartValue)

	kr, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025Q2", Target: "5", Actual: "8"})
	require.NoError(t, err)
	assert.Equal(t, okr.Value("10"), kr.StartValue, "start value is only seeded once")
	assert.Equal(t, 40.0, kr.Progress)

	kr, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025Q1", Target: "5", Actual: "9"})
	require.NoError(t, err)
	require.Len(t, kr.CheckIns, 2)
	assert.Equal(t, okr.Value("9"), kr.CheckIns[0].Actual)

	_, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025-1", Target: "5", Actual: "9"})
	assert.True(t, apperr.IsValidation(err))
}

func TestUpdateKRKeepsIdentityAndCheckIns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	obj, _ := s.AddCompanyObjective(ctx, "Grow")
	kr, err := s.AddKR(ctx, obj.ID, increasingKR("Deals", "50"))
	require.NoError(t, err)
	_, err = s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "202501", Target: "10", Actual: "5"})
	require.NoError(t, err)

	updated, err := s.UpdateKR(ctx, kr.ID, okr.KRInput{Title: "Deals won", Responsible: "Cem", Type: okr.TypeIncreasing, Weight: "60"})
	require.NoError(t, err)
	assert.Equal(t, kr.ID, updated.ID)
	assert.Equal(t, "Deals won", updated.Title)
	assert.Equal(t, okr.Weight(60), updated.Weight)
	assert.Len(t, updated.CheckIns, 1)
	assert.Equal(t, 50.0, updated.Progress)

	require.NoError(t, s.DeleteKR(ctx, kr.ID))
	assert.True(t, apperr.IsNotFound(s.DeleteKR(ctx, kr.ID)))
}

func TestViewSelectsVersionWithoutTouchingLive(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.AddCompanyObjective(ctx, "Live objective")
	require.NoError(t, err)

	snapshot := okr.Dataset{Objectives: []okr.Objective{{ID: "old", Title: "Old objective"}}}
	s.SetVersions(fakeVersions{"Q1": {ID: "v1", Name: "Q1", Data: snapshot}})

	assert.True(t, apperr.IsNotFound(s.SetView("nope")))
	require.NoError(t, s.SetView("Q1"))
	assert.Equal(t, "Old objective", s.Read().Objectives[0].Title)

	_, err = s.AddCompanyObjective(ctx, "Second")
	require.NoError(t, err)
	assert.Len(t, s.Read().Objectives, 1, "view still shows the version")
	assert.Len(t, s.Live().Objectives, 2, "writes target the live dataset")

	s.ResetViewIf("Q1")
	assert.Equal(t, okr.LatestView, s.View())
	assert.Len(t, s.Read().Objectives, 2)
}

func TestWritesPersistOnlyOnLatestView(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, err := s.AddCompanyObjective(ctx, "Live objective")
	require.NoError(t, err)
	require.Equal(t, 1, backend.DatasetSaves())

	s.SetVersions(fakeVersions{"v1": {ID: "v1", Name: "v1"}})
	require.NoError(t, s.SetView("v1"))
	_, err = s.AddCompanyObjective(ctx, "Drafted while viewing")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.DatasetSaves(), "no save while a version is viewed")
	assert.Len(t, s.Live().Objectives, 2)

	persisted, _, err := backend.LoadDataset(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, persisted.Objectives, 1)

	require.NoError(t, s.SetView(okr.LatestView))
	_, err = s.AddCompanyObjective(ctx, "Back on latest")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.DatasetSaves())

	persisted, _, err = backend.LoadDataset(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, persisted.Objectives, 3, "the next save carries the earlier change")
}

func TestReadersNeverSeeStaleProgress(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	obj, _ := s.AddCompanyObjective(ctx, "Grow")
	dept, _ := s.AddDepartment(ctx, "Sales")
	dobj, _ := s.AddDepartmentObjective(ctx, dept.ID, "Deals", obj.ID)
	kr, err := s.AddKR(ctx, dobj.ID, increasingKR("Calls", "100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			ds := s.Read()
			if ds.Objectives[0].Progress != ds.Departments[0].Objectives[0].Progress {
				t.Errorf("company progress %v out of sync with linked objective %v",
					ds.Objectives[0].Progress, ds.Departments[0].Objectives[0].Progress)
				return
			}
		}
	}()

	for i := 1; i <= 20; i++ {
		_, err := s.RecordCheckIn(ctx, kr.ID, okr.CheckIn{Period: "2025Q1", Target: "20", Actual: okr.NumberValue(float64(i))})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 100.0, s.Live().Objectives[0].Progress)
}
