package okr

import "time"

// DepartmentStanding is a department name paired with its progress.
type DepartmentStanding struct {
	ID       ID      `json:"id"`
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
}

// Summary holds the headline figures shown on the dashboard.
type Summary struct {
	CompanyObjectives    int                 `json:"companyObjectives"`
	DepartmentObjectives int                 `json:"departmentObjectives"`
	ActiveObjectives     int                 `json:"activeObjectives"`
	Departments          int                 `json:"departments"`
	OverallProgress      float64             `json:"overallProgress"`
	TotalKRs             int                 `json:"totalKRs"`
	CompletedKRs         int                 `json:"completedKRs"`
	TopDepartment        *DepartmentStanding `json:"topDepartment,omitempty"`
	BottomDepartment     *DepartmentStanding `json:"bottomDepartment,omitempty"`
	CurrentQuarter       string              `json:"currentQuarter"`
}

// Summarize computes dashboard figures from a dataset whose progress fields
// are already up to date. Ties for top and bottom department go to the one
// listed first.
func Summarize(ds Dataset, now time.Time) Summary {
	s := Summary{
		CompanyObjectives: len(ds.Objectives),
		Departments:       len(ds.Departments),
		CurrentQuarter:    CurrentQuarter(now),
	}

	var companySum float64
	for _, obj := range ds.Objectives {
		companySum += obj.Progress
		countKRs(&s, obj.KRs)
	}
	if len(ds.Objectives) > 0 {
		s.OverallProgress = roundHalfUp(companySum / float64(len(ds.Objectives)))
	}

	for _, dept := range ds.Departments {
		s.DepartmentObjectives += len(dept.Objectives)
		for _, obj := range dept.Objectives {
			countKRs(&s, obj.KRs)
		}
		standing := DepartmentStanding{ID: dept.ID, Name: dept.Name, Progress: dept.Progress}
		if s.TopDepartment == nil || dept.Progress > s.TopDepartment.Progress {
			top := standing
			s.TopDepartment = &top
		}
		if s.BottomDepartment == nil || dept.Progress < s.BottomDepartment.Progress {
			bottom := standing
			s.BottomDepartment = &bottom
		}
	}
	s.ActiveObjectives = s.CompanyObjectives + s.DepartmentObjectives
	return s
}

func countKRs(s *Summary, krs []KeyResult) {
	for _, kr := range krs {
		s.TotalKRs++
		if kr.Progress >= 100 {
			s.CompletedKRs++
		}
	}
}
