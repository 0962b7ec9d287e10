// Package importer reconciles parsed spreadsheet records into a dataset.
package importer

import (
	"strings"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
	"okrboard/internal/tabular"
)

// Mode selects how records are reconciled with existing key results.
type Mode string

const (
	// ModeOverwrite replaces every field of a matched key result with the
	// row's values.
	ModeOverwrite Mode = "overwrite"
	// ModeMerge keeps existing values wherever the row's cell is blank and
	// upserts check-ins by period.
	ModeMerge Mode = "merge"
)

// ParseMode accepts "overwrite" or "merge". An empty string means overwrite.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeOverwrite:
		return ModeOverwrite, nil
	case ModeMerge:
		return ModeMerge, nil
	}
	return "", apperr.Validation("invalid import mode", "mode must be \"overwrite\" or \"merge\", got "+s)
}

// Stats counts what an import did.
type Stats struct {
	CompanyObjectivesCreated    int `json:"companyObjectivesCreated"`
	DepartmentsCreated          int `json:"departmentsCreated"`
	DepartmentObjectivesCreated int `json:"departmentObjectivesCreated"`
	KRsCreated                  int `json:"krsCreated"`
	KRsUpdated                  int `json:"krsUpdated"`
	RowsSkipped                 int `json:"rowsSkipped"`
}

// Merger applies import records. IDs mints ids for created entities.
type Merger struct {
	IDs okr.IDGenerator
}

// Apply reconciles records into a copy of ds and returns the recomputed
// result. ds is not modified.
//
// Company rows find or create a company objective by title; department rows
// find or create a department by name and an objective by title within it.
// A key result is matched by title and responsible inside its objective and
// keeps its id when matched. A new department objective is linked to the
// company objective whose title matches the row, looked up when the
// department objective is created. Rows of an unknown kind or without the
// names needed to place them are skipped.
func (m Merger) Apply(ds okr.Dataset, records []tabular.Record, mode Mode) (okr.Dataset, Stats, error) {
	if mode != ModeOverwrite && mode != ModeMerge {
		return okr.Dataset{}, Stats{}, apperr.Validation("invalid import mode", "unknown mode "+string(mode))
	}
	gen := m.IDs
	if gen == nil {
		gen = okr.UUIDGenerator{}
	}

	working := ds.Clone()
	var stats Stats
	for _, rec := range records {
		obj := m.placeRecord(&working, gen, rec, &stats)
		if obj == nil {
			stats.RowsSkipped++
			continue
		}
		upsertKR(&working, gen, obj, rec, mode, &stats)
	}
	return okr.RecomputeAll(working), stats, nil
}

// placeRecord returns the objective the record's key result belongs in,
// creating containers as needed.
func (m Merger) placeRecord(ds *okr.Dataset, gen okr.IDGenerator, rec tabular.Record, stats *Stats) *okr.Objective {
	if rec.Title == "" {
		return nil
	}
	switch rec.Kind {
	case tabular.KindCompany:
		if rec.CompanyObjective == "" {
			return nil
		}
		for i := range ds.Objectives {
			if ds.Objectives[i].Title == rec.CompanyObjective {
				return &ds.Objectives[i]
			}
		}
		ds.Objectives = append(ds.Objectives, okr.Objective{
			ID:    okr.FreshID(gen, *ds),
			Title: rec.CompanyObjective,
			KRs:   []okr.KeyResult{},
		})
		stats.CompanyObjectivesCreated++
		return &ds.Objectives[len(ds.Objectives)-1]

	case tabular.KindDepartment:
		if rec.Department == "" || rec.DepartmentObjective == "" {
			return nil
		}
		dept := findDepartment(ds, rec.Department)
		if dept == nil {
			ds.Departments = append(ds.Departments, okr.Department{
				ID:         okr.FreshID(gen, *ds),
				Name:       rec.Department,
				Objectives: []okr.Objective{},
			})
			stats.DepartmentsCreated++
			dept = &ds.Departments[len(ds.Departments)-1]
		}
		for i := range dept.Objectives {
			if dept.Objectives[i].Title == rec.DepartmentObjective {
				return &dept.Objectives[i]
			}
		}
		obj := okr.Objective{
			ID:    okr.FreshID(gen, *ds),
			Title: rec.DepartmentObjective,
			KRs:   []okr.KeyResult{},
		}
		// ds is the working copy, so company objectives created by earlier
		// rows of this same import are linkable too.
		for _, co := range ds.Objectives {
			if co.Title == rec.CompanyObjective {
				obj.CompanyObjectiveID = co.ID
				break
			}
		}
		dept.Objectives = append(dept.Objectives, obj)
		stats.DepartmentObjectivesCreated++
		return &dept.Objectives[len(dept.Objectives)-1]
	}
	return nil
}

func findDepartment(ds *okr.Dataset, name string) *okr.Department {
	for i := range ds.Departments {
		if ds.Departments[i].Name == name {
			return &ds.Departments[i]
		}
	}
	return nil
}

func upsertKR(ds *okr.Dataset, gen okr.IDGenerator, obj *okr.Objective, rec tabular.Record, mode Mode, stats *Stats) {
	for i := range obj.KRs {
		kr := &obj.KRs[i]
		if kr.Title != rec.Title || kr.Responsible != rec.Responsible {
			continue
		}
		if mode == ModeMerge {
			mergeKR(kr, rec)
		} else {
			id := kr.ID
			*kr = newKR(rec)
			kr.ID = id
		}
		stats.KRsUpdated++
		return
	}

	kr := newKR(rec)
	kr.ID = okr.FreshID(gen, *ds)
	obj.KRs = append(obj.KRs, kr)
	stats.KRsCreated++
}

// newKR builds a key result from the record. A blank type means increasing.
func newKR(rec tabular.Record) okr.KeyResult {
	kr := rec.KeyResult()
	if kr.Type == "" {
		kr.Type = okr.TypeIncreasing
	}
	return kr
}

// mergeKR copies the record's non-blank cells onto kr and upserts its
// check-ins.
func mergeKR(kr *okr.KeyResult, rec tabular.Record) {
	if rec.Type != "" {
		kr.Type = rec.Type
	}
	if rec.Weight != nil {
		kr.Weight = okr.Weight(*rec.Weight)
	}
	if !rec.StartValue.IsBlank() {
		kr.StartValue = rec.StartValue
	}
	if strings.TrimSpace(rec.Action) != "" {
		kr.Action = rec.Action
	}
	checkIns := kr.CheckIns
	for _, ci := range rec.CheckIns {
		checkIns = okr.UpsertCheckIn(checkIns, ci)
	}
	if checkIns == nil {
		checkIns = []okr.CheckIn{}
	}
	okr.SortCheckIns(checkIns)
	kr.CheckIns = checkIns
}
