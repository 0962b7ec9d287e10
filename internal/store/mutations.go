package store

import (
	"context"
	"fmt"
	"strings"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
)

// Mutation helpers. Each runs inside Write, so a validation failure leaves
// the dataset unchanged. On a persistence error the change is kept in memory
// and the returned entity is still valid.

func (s *Store) AddCompanyObjective(ctx context.Context, title string) (okr.Objective, error) {
	if errs := okr.RequireText("title", title); len(errs) > 0 {
		return okr.Objective{}, apperr.ValidationFrom("invalid objective", errs)
	}
	var id okr.ID
	ds, err := s.Write(ctx, "company_objective.add", func(ds *okr.Dataset) error {
		id = s.newID(*ds)
		ds.Objectives = append(ds.Objectives, okr.Objective{ID: id, Title: strings.TrimSpace(title), KRs: []okr.KeyResult{}})
		return nil
	})
	return objectiveResult(ds, id, err)
}

func (s *Store) RenameCompanyObjective(ctx context.Context, id okr.ID, title string) (okr.Objective, error) {
	if errs := okr.RequireText("title", title); len(errs) > 0 {
		return okr.Objective{}, apperr.ValidationFrom("invalid objective", errs)
	}
	ds, err := s.Write(ctx, "company_objective.rename", func(ds *okr.Dataset) error {
		obj := findCompanyObjective(ds, id)
		if obj == nil {
			return objectiveNotFound(id)
		}
		obj.Title = strings.TrimSpace(title)
		return nil
	})
	return objectiveResult(ds, id, err)
}

// DeleteCompanyObjective removes a company objective. It is refused while any
// department objective links to it.
func (s *Store) DeleteCompanyObjective(ctx context.Context, id okr.ID) error {
	_, err := s.Write(ctx, "company_objective.delete", func(ds *okr.Dataset) error {
		idx := -1
		for i, obj := range ds.Objectives {
			if obj.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return objectiveNotFound(id)
		}
		if linked := ds.LinkedObjectives(id); len(linked) > 0 {
			return apperr.Validation("objective is linked",
				fmt.Sprintf("%d department objective(s) still link to %q; unlink them first", len(linked), ds.Objectives[idx].Title))
		}
		ds.Objectives = append(ds.Objectives[:idx], ds.Objectives[idx+1:]...)
		return nil
	})
	return err
}

func (s *Store) AddDepartment(ctx context.Context, name string) (okr.Department, error) {
	if errs := okr.RequireText("name", name); len(errs) > 0 {
		return okr.Department{}, apperr.ValidationFrom("invalid department", errs)
	}
	name = strings.TrimSpace(name)
	var id okr.ID
	ds, err := s.Write(ctx, "department.add", func(ds *okr.Dataset) error {
		if err := ensureUniqueDepartment(ds, name, ""); err != nil {
			return err
		}
		id = s.newID(*ds)
		ds.Departments = append(ds.Departments, okr.Department{ID: id, Name: name, Objectives: []okr.Objective{}})
		return nil
	})
	return departmentResult(ds, id, err)
}

func (s *Store) RenameDepartment(ctx context.Context, id okr.ID, name string) (okr.Department, error) {
	if errs := okr.RequireText("name", name); len(errs) > 0 {
		return okr.Department{}, apperr.ValidationFrom("invalid department", errs)
	}
	name = strings.TrimSpace(name)
	ds, err := s.Write(ctx, "department.rename", func(ds *okr.Dataset) error {
		dept := findDepartment(ds, id)
		if dept == nil {
			return departmentNotFound(id)
		}
		if err := ensureUniqueDepartment(ds, name, id); err != nil {
			return err
		}
		dept.Name = name
		return nil
	})
	return departmentResult(ds, id, err)
}

// DeleteDepartment removes a department together with its objectives.
func (s *Store) DeleteDepartment(ctx context.Context, id okr.ID) error {
	_, err := s.Write(ctx, "department.delete", func(ds *okr.Dataset) error {
		for i, dept := range ds.Departments {
			if dept.ID == id {
				ds.Departments = append(ds.Departments[:i], ds.Departments[i+1:]...)
				return nil
			}
		}
		return departmentNotFound(id)
	})
	return err
}

// AddDepartmentObjective adds an objective to a department. An empty
// companyObjectiveID leaves it unlinked.
func (s *Store) AddDepartmentObjective(ctx context.Context, departmentID okr.ID, title string, companyObjectiveID okr.ID) (okr.Objective, error) {
	if errs := okr.RequireText("title", title); len(errs) > 0 {
		return okr.Objective{}, apperr.ValidationFrom("invalid objective", errs)
	}
	var id okr.ID
	ds, err := s.Write(ctx, "department_objective.add", func(ds *okr.Dataset) error {
		dept := findDepartment(ds, departmentID)
		if dept == nil {
			return departmentNotFound(departmentID)
		}
		if err := ensureLinkTarget(ds, companyObjectiveID); err != nil {
			return err
		}
		id = s.newID(*ds)
		dept.Objectives = append(dept.Objectives, okr.Objective{
			ID:                 id,
			Title:              strings.TrimSpace(title),
			CompanyObjectiveID: companyObjectiveID,
			KRs:                []okr.KeyResult{},
		})
		return nil
	})
	return objectiveResult(ds, id, err)
}

// DepartmentObjectiveUpdate changes the title and/or link of a department
// objective. Nil fields are left as they are; an empty link unlinks.
type DepartmentObjectiveUpdate struct {
	Title              *string
	CompanyObjectiveID *okr.ID
}

func (s *Store) UpdateDepartmentObjective(ctx context.Context, id okr.ID, upd DepartmentObjectiveUpdate) (okr.Objective, error) {
	if upd.Title != nil {
		if errs := okr.RequireText("title", *upd.Title); len(errs) > 0 {
			return okr.Objective{}, apperr.ValidationFrom("invalid objective", errs)
		}
	}
	ds, err := s.Write(ctx, "department_objective.update", func(ds *okr.Dataset) error {
		obj := findDepartmentObjective(ds, id)
		if obj == nil {
			return objectiveNotFound(id)
		}
		if upd.Title != nil {
			obj.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.CompanyObjectiveID != nil {
			if err := ensureLinkTarget(ds, *upd.CompanyObjectiveID); err != nil {
				return err
			}
			obj.CompanyObjectiveID = *upd.CompanyObjectiveID
		}
		return nil
	})
	return objectiveResult(ds, id, err)
}

func (s *Store) DeleteDepartmentObjective(ctx context.Context, id okr.ID) error {
	_, err := s.Write(ctx, "department_objective.delete", func(ds *okr.Dataset) error {
		for di := range ds.Departments {
			dept := &ds.Departments[di]
			for oi, obj := range dept.Objectives {
				if obj.ID == id {
					dept.Objectives = append(dept.Objectives[:oi], dept.Objectives[oi+1:]...)
					return nil
				}
			}
		}
		return objectiveNotFound(id)
	})
	return err
}

// AddKR appends a key result to any objective, company or department.
func (s *Store) AddKR(ctx context.Context, objectiveID okr.ID, in okr.KRInput) (okr.KeyResult, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return okr.KeyResult{}, apperr.ValidationFrom("invalid key result", errs)
	}
	var id okr.ID
	ds, err := s.Write(ctx, "kr.add", func(ds *okr.Dataset) error {
		obj := findAnyObjective(ds, objectiveID)
		if obj == nil {
			return objectiveNotFound(objectiveID)
		}
		id = s.newID(*ds)
		kr := okr.KeyResult{ID: id, CheckIns: []okr.CheckIn{}}
		applyKRInput(&kr, in)
		obj.KRs = append(obj.KRs, kr)
		return nil
	})
	return krResult(ds, id, err)
}

// UpdateKR replaces a key result's editable fields. The id and check-ins are
// kept; startValue is kept unless provided.
func (s *Store) UpdateKR(ctx context.Context, id okr.ID, in okr.KRInput) (okr.KeyResult, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return okr.KeyResult{}, apperr.ValidationFrom("invalid key result", errs)
	}
	ds, err := s.Write(ctx, "kr.update", func(ds *okr.Dataset) error {
		kr := findKR(ds, id)
		if kr == nil {
			return krNotFound(id)
		}
		applyKRInput(kr, in)
		return nil
	})
	return krResult(ds, id, err)
}

func (s *Store) DeleteKR(ctx context.Context, id okr.ID) error {
	_, err := s.Write(ctx, "kr.delete", func(ds *okr.Dataset) error {
		found := false
		eachObjective(ds, func(obj *okr.Objective) bool {
			for i, kr := range obj.KRs {
				if kr.ID == id {
					obj.KRs = append(obj.KRs[:i], obj.KRs[i+1:]...)
					found = true
					return false
				}
			}
			return true
		})
		if !found {
			return krNotFound(id)
		}
		return nil
	})
	return err
}

// RecordCheckIn upserts the check-in for ci.Period. For a decreasing key
// result with no start value, the first check-in's actual becomes the start
// value.
func (s *Store) RecordCheckIn(ctx context.Context, krID okr.ID, ci okr.CheckIn) (okr.KeyResult, error) {
	if errs := okr.ValidateCheckIn(ci); len(errs) > 0 {
		return okr.KeyResult{}, apperr.ValidationFrom("invalid check-in", errs)
	}
	ds, err := s.Write(ctx, "checkin.record", func(ds *okr.Dataset) error {
		kr := findKR(ds, krID)
		if kr == nil {
			return krNotFound(krID)
		}
		if kr.Type == okr.TypeDecreasing && kr.StartValue.IsBlank() && len(kr.CheckIns) == 0 {
			kr.StartValue = ci.Actual
		}
		kr.CheckIns = okr.UpsertCheckIn(kr.CheckIns, ci)
		return nil
	})
	return krResult(ds, krID, err)
}

// SetOrgChart replaces the organizational chart.
func (s *Store) SetOrgChart(ctx context.Context, root okr.OrgNode) (okr.OrgNode, error) {
	ds, err := s.Write(ctx, "orgchart.set", func(ds *okr.Dataset) error {
		ds.OrgChart = root.Clone()
		return nil
	})
	return ds.OrgChart, err
}

func applyKRInput(kr *okr.KeyResult, in okr.KRInput) {
	kr.Title = strings.TrimSpace(in.Title)
	kr.Responsible = strings.TrimSpace(in.Responsible)
	kr.Type = in.Type
	kr.Weight = okr.Weight(in.Weight.FloatOrZero())
	kr.Action = in.Action
	if in.StartValue != nil {
		kr.StartValue = *in.StartValue
	}
}

func ensureUniqueDepartment(ds *okr.Dataset, name string, except okr.ID) error {
	for _, dept := range ds.Departments {
		if dept.ID != except && dept.Name == name {
			return apperr.Validation("department exists", fmt.Sprintf("a department named %q already exists", name))
		}
	}
	return nil
}

func ensureLinkTarget(ds *okr.Dataset, companyObjectiveID okr.ID) error {
	if companyObjectiveID == "" {
		return nil
	}
	if _, ok := ds.CompanyObjective(companyObjectiveID); !ok {
		return apperr.Validation("invalid link", fmt.Sprintf("no company objective with id %q", companyObjectiveID))
	}
	return nil
}
