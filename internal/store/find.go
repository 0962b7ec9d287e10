package store

import (
	"fmt"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
)

func findCompanyObjective(ds *okr.Dataset, id okr.ID) *okr.Objective {
	for i := range ds.Objectives {
		if ds.Objectives[i].ID == id {
			return &ds.Objectives[i]
		}
	}
	return nil
}

func findDepartment(ds *okr.Dataset, id okr.ID) *okr.Department {
	for i := range ds.Departments {
		if ds.Departments[i].ID == id {
			return &ds.Departments[i]
		}
	}
	return nil
}

func findDepartmentObjective(ds *okr.Dataset, id okr.ID) *okr.Objective {
	for di := range ds.Departments {
		dept := &ds.Departments[di]
		for oi := range dept.Objectives {
			if dept.Objectives[oi].ID == id {
				return &dept.Objectives[oi]
			}
		}
	}
	return nil
}

func findAnyObjective(ds *okr.Dataset, id okr.ID) *okr.Objective {
	if obj := findCompanyObjective(ds, id); obj != nil {
		return obj
	}
	return findDepartmentObjective(ds, id)
}

// eachObjective visits company objectives then department objectives until
// fn returns false.
func eachObjective(ds *okr.Dataset, fn func(obj *okr.Objective) bool) {
	for i := range ds.Objectives {
		if !fn(&ds.Objectives[i]) {
			return
		}
	}
	for di := range ds.Departments {
		dept := &ds.Departments[di]
		for oi := range dept.Objectives {
			if !fn(&dept.Objectives[oi]) {
				return
			}
		}
	}
}

func findKR(ds *okr.Dataset, id okr.ID) *okr.KeyResult {
	var found *okr.KeyResult
	eachObjective(ds, func(obj *okr.Objective) bool {
		for i := range obj.KRs {
			if obj.KRs[i].ID == id {
				found = &obj.KRs[i]
				return false
			}
		}
		return true
	})
	return found
}

func objectiveResult(ds okr.Dataset, id okr.ID, err error) (okr.Objective, error) {
	if obj := findAnyObjective(&ds, id); obj != nil {
		return *obj, err
	}
	return okr.Objective{}, err
}

func departmentResult(ds okr.Dataset, id okr.ID, err error) (okr.Department, error) {
	if dept := findDepartment(&ds, id); dept != nil {
		return *dept, err
	}
	return okr.Department{}, err
}

func krResult(ds okr.Dataset, id okr.ID, err error) (okr.KeyResult, error) {
	if kr := findKR(&ds, id); kr != nil {
		return *kr, err
	}
	return okr.KeyResult{}, err
}

func objectiveNotFound(id okr.ID) error {
	return apperr.NotFound("objective not found", fmt.Sprintf("no objective with id %q", id))
}

func departmentNotFound(id okr.ID) error {
	return apperr.NotFound("department not found", fmt.Sprintf("no department with id %q", id))
}

func krNotFound(id okr.ID) error {
	return apperr.NotFound("key result not found", fmt.Sprintf("no key result with id %q", id))
}
