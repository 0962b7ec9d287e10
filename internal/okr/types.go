package okr

import "time"

// KRType describes how a key result's metric moves toward its target.
type KRType string

const (
	TypeIncreasing  KRType = "artan"
	TypeDecreasing  KRType = "azalan"
	TypeFluctuating KRType = "dalgalı"
)

// Valid reports whether t is one of the known key result types.
func (t KRType) Valid() bool {
	switch t {
	case TypeIncreasing, TypeDecreasing, TypeFluctuating:
		return true
	default:
		return false
	}
}

// CheckIn is a single periodic target/actual measurement.
type CheckIn struct {
	Period string `json:"period" yaml:"period"`
	Target Value  `json:"target" yaml:"target"`
	Actual Value  `json:"actual" yaml:"actual"`
}

// KeyResult is a measurable sub-goal owned by exactly one objective.
// Progress is derived from CheckIns, Type and StartValue and is never
// accepted as input.
type KeyResult struct {
	ID          ID        `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Responsible string    `json:"responsible" yaml:"responsible"`
	Type        KRType    `json:"type" yaml:"type"`
	Weight      Weight    `json:"weight" yaml:"weight"`
	StartValue  Value     `json:"startValue" yaml:"start_value,omitempty"`
	Action      string    `json:"action" yaml:"action,omitempty"`
	CheckIns    []CheckIn `json:"checkIns" yaml:"check_ins,omitempty"`
	Progress    float64   `json:"progress" yaml:"progress"`
}

// Objective is either a company objective or a department objective. Only
// department objectives carry CompanyObjectiveID; an empty value means the
// objective is unlinked.
type Objective struct {
	ID                 ID          `json:"id" yaml:"id"`
	Title              string      `json:"title" yaml:"title"`
	CompanyObjectiveID ID          `json:"companyObjectiveId,omitempty" yaml:"company_objective_id,omitempty"`
	KRs                []KeyResult `json:"krs" yaml:"krs"`
	Progress           float64     `json:"progress" yaml:"progress"`
}

// Department owns a set of department objectives.
type Department struct {
	ID         ID          `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Objectives []Objective `json:"objectives" yaml:"objectives"`
	Progress   float64     `json:"progress" yaml:"progress"`
}

// OrgNode is a node of the organizational chart. The chart is independent of
// the OKR hierarchy and carries no progress.
type OrgNode struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Children []OrgNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Dataset is the root aggregate for one tenant.
type Dataset struct {
	Objectives  []Objective  `json:"objectives" yaml:"objectives"`
	Departments []Department `json:"departments" yaml:"departments"`
	OrgChart    OrgNode      `json:"orgChart" yaml:"org_chart"`
}

// Version is an immutable named snapshot of a dataset.
type Version struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	Data      Dataset   `json:"data" yaml:"data"`
}

// LatestView names the pseudo-version that reads the live dataset.
const LatestView = "latest"

// IsEmpty reports whether the dataset has no objectives and no departments.
func (ds Dataset) IsEmpty() bool {
	return len(ds.Objectives) == 0 && len(ds.Departments) == 0
}

// CompanyObjective returns the company objective with the given id.
func (ds Dataset) CompanyObjective(id ID) (Objective, bool) {
	if id == "" {
		return Objective{}, false
	}
	for _, obj := range ds.Objectives {
		if obj.ID == id {
			return obj, true
		}
	}
	return Objective{}, false
}

// LinkedObjectives returns every department objective linked to the given
// company objective.
func (ds Dataset) LinkedObjectives(companyObjectiveID ID) []Objective {
	if companyObjectiveID == "" {
		return nil
	}
	var linked []Objective
	for _, dept := range ds.Departments {
		for _, obj := range dept.Objectives {
			if obj.CompanyObjectiveID == companyObjectiveID {
				linked = append(linked, obj)
			}
		}
	}
	return linked
}

// ContainsID reports whether any entity in the dataset uses id.
func (ds Dataset) ContainsID(id ID) bool {
	found := false
	ds.walkIDs(func(existing ID) {
		if existing == id {
			found = true
		}
	})
	return found
}

func (ds Dataset) walkIDs(fn func(ID)) {
	visitObjective := func(obj Objective) {
		fn(obj.ID)
		for _, kr := range obj.KRs {
			fn(kr.ID)
		}
	}
	for _, obj := range ds.Objectives {
		visitObjective(obj)
	}
	for _, dept := range ds.Departments {
		fn(dept.ID)
		for _, obj := range dept.Objectives {
			visitObjective(obj)
		}
	}
}

// KRCount returns the number of key results reachable from the dataset.
func (ds Dataset) KRCount() int {
	n := 0
	for _, obj := range ds.Objectives {
		n += len(obj.KRs)
	}
	for _, dept := range ds.Departments {
		for _, obj := range dept.Objectives {
			n += len(obj.KRs)
		}
	}
	return n
}
