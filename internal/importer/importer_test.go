package importer

import (
	"reflect"
	"testing"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
	"okrboard/internal/tabular"
)

func weight(f float64) *float64 { return &f }

func sampleRecords() []tabular.Record {
	return []tabular.Record{
		{Kind: tabular.KindCompany, CompanyObjective: "Grow Revenue", Title: "ARR", Responsible: "CEO",
			Type: okr.TypeIncreasing, Weight: weight(100), CheckIns: []okr.CheckIn{{Period: "2025Q1", Target: "10", Actual: "5"}}},
		{Kind: tabular.KindDepartment, Department: "Sales", CompanyObjective: "Grow Revenue", DepartmentObjective: "Increase deals",
			Title: "Deals", Responsible: "Ana", Type: okr.TypeIncreasing, Weight: weight(100),
			CheckIns: []okr.CheckIn{{Period: "2025Q1", Target: "100", Actual: "50"}}},
		{Kind: tabular.KindDepartment, Department: "Ops", CompanyObjective: tabular.UnlinkedLabel, DepartmentObjective: "Automate",
			Title: "Scripts", Responsible: "Cem", Type: okr.TypeDecreasing, Weight: weight(100), StartValue: "10",
			CheckIns: []okr.CheckIn{{Period: "2025Q2", Target: "5", Actual: "8"}}},
		{Kind: "Bilinmeyen", Title: "ignored"},
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeOverwrite, "overwrite": ModeOverwrite, " Merge ": ModeMerge} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("append"); !apperr.IsValidation(err) {
		t.Fatalf("ParseMode(append) err = %v, want validation error", err)
	}
}

func TestApplyCreatesHierarchy(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	got, stats, err := m.Apply(okr.Dataset{}, sampleRecords(), ModeOverwrite)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := Stats{CompanyObjectivesCreated: 1, DepartmentsCreated: 2, DepartmentObjectivesCreated: 2, KRsCreated: 3, RowsSkipped: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if len(got.Objectives) != 1 || len(got.Departments) != 2 {
		t.Fatalf("dataset shape = %d objectives, %d departments", len(got.Objectives), len(got.Departments))
	}
	sales := got.Departments[0].Objectives[0]
	if sales.CompanyObjectiveID != got.Objectives[0].ID {
		t.Fatalf("sales link = %q, want %q", sales.CompanyObjectiveID, got.Objectives[0].ID)
	}
	if ops := got.Departments[1].Objectives[0]; ops.CompanyObjectiveID != "" {
		t.Fatalf("unlinked objective got link %q", ops.CompanyObjectiveID)
	}
	if got.Objectives[0].Progress != 50 {
		t.Fatalf("company progress = %v, want 50", got.Objectives[0].Progress)
	}
	if got.Departments[1].Objectives[0].KRs[0].Progress != 40 {
		t.Fatalf("decreasing KR progress = %v, want 40", got.Departments[1].Objectives[0].KRs[0].Progress)
	}
}

func TestApplyIDsUnique(t *testing.T) {
	existing := okr.Dataset{Objectives: []okr.Objective{{ID: "id-1", Title: "Existing"}}}
	got, _, err := Merger{IDs: &okr.SequenceGenerator{}}.Apply(existing, sampleRecords(), ModeOverwrite)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	seen := map[okr.ID]bool{}
	check := func(id okr.ID) {
		if id == "" || seen[id] {
			t.Fatalf("id %q empty or duplicated", id)
		}
		seen[id] = true
	}
	for _, obj := range got.Objectives {
		check(obj.ID)
		for _, kr := range obj.KRs {
			check(kr.ID)
		}
	}
	for _, dept := range got.Departments {
		check(dept.ID)
		for _, obj := range dept.Objectives {
			check(obj.ID)
			for _, kr := range obj.KRs {
				check(kr.ID)
			}
		}
	}
}

func TestOverwriteIsIdempotent(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	first, _, err := m.Apply(okr.Dataset{}, sampleRecords(), ModeOverwrite)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	second, stats, err := m.Apply(first, sampleRecords(), ModeOverwrite)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second import changed the dataset:\nfirst  %#v\nsecond %#v", first, second)
	}
	if stats.KRsCreated != 0 || stats.KRsUpdated != 3 {
		t.Fatalf("second stats = %+v", stats)
	}
}

func TestOverwriteReplacesFieldsKeepsID(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	base, _, _ := m.Apply(okr.Dataset{}, sampleRecords()[:1], ModeOverwrite)
	id := base.Objectives[0].KRs[0].ID

	rec := sampleRecords()[0]
	rec.Weight = nil
	rec.Action = ""
	rec.CheckIns = []okr.CheckIn{{Period: "2025Q2", Target: "10", Actual: "10"}}
	got, _, _ := m.Apply(base, []tabular.Record{rec}, ModeOverwrite)

	kr := got.Objectives[0].KRs[0]
	if kr.ID != id {
		t.Fatalf("id = %q, want %q", kr.ID, id)
	}
	if kr.Weight != 0 {
		t.Fatalf("weight = %v, want 0 after overwrite with blank cell", kr.Weight)
	}
	if len(kr.CheckIns) != 1 || kr.CheckIns[0].Period != "2025Q2" {
		t.Fatalf("check-ins = %+v, want only 2025Q2", kr.CheckIns)
	}
}

func TestMergeKeepsExistingValues(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	base, _, _ := m.Apply(okr.Dataset{}, sampleRecords()[:3], ModeOverwrite)
	base.Departments[1].Objectives[0].KRs[0].Action = "Weekly review"

	rec := sampleRecords()[2]
	rec.Type = ""
	rec.Weight = nil
	rec.StartValue = ""
	rec.CheckIns = []okr.CheckIn{
		{Period: "2025Q2", Target: "5", Actual: "6"},
		{Period: "2025Q1", Target: "5", Actual: "9"},
	}
	got, stats, err := m.Apply(base, []tabular.Record{rec}, ModeMerge)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.KRsUpdated != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	kr := got.Departments[1].Objectives[0].KRs[0]
	if kr.Type != okr.TypeDecreasing || kr.Weight != 100 || kr.StartValue != "10" || kr.Action != "Weekly review" {
		t.Fatalf("merged KR lost existing values: %+v", kr)
	}
	wantCheckIns := []okr.CheckIn{
		{Period: "2025Q1", Target: "5", Actual: "9"},
		{Period: "2025Q2", Target: "5", Actual: "6"},
	}
	if !reflect.DeepEqual(kr.CheckIns, wantCheckIns) {
		t.Fatalf("check-ins = %+v, want %+v", kr.CheckIns, wantCheckIns)
	}
	if kr.Progress != 80 {
		t.Fatalf("progress = %v, want 80 from last check-in", kr.Progress)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	base, _, _ := m.Apply(okr.Dataset{}, sampleRecords(), ModeOverwrite)
	snapshot := base.Clone()
	rec := sampleRecords()[1]
	rec.CheckIns = []okr.CheckIn{{Period: "2025Q3", Target: "1", Actual: "1"}}
	if _, _, err := m.Apply(base, []tabular.Record{rec}, ModeMerge); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(base, snapshot) {
		t.Fatal("Apply mutated its input dataset")
	}
}

func TestRoundTripThroughCodec(t *testing.T) {
	m := Merger{IDs: &okr.SequenceGenerator{}}
	base, _, _ := m.Apply(okr.Dataset{}, sampleRecords(), ModeOverwrite)

	rows := tabular.ToRows(base, mustTime(t))
	got, stats, err := m.Apply(base, tabular.FromRows(rows), ModeOverwrite)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.KRsCreated != 0 {
		t.Fatalf("re-importing an export created %d KRs", stats.KRsCreated)
	}
	if !reflect.DeepEqual(got, base) {
		t.Fatalf("re-importing an export changed the dataset")
	}
}
