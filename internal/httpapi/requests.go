package httpapi

import "okrboard/internal/okr"

type titleRequest struct {
	Title string `json:"title" validate:"required,max=300"`
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type departmentObjectiveRequest struct {
	Title              string `json:"title" validate:"required,max=300"`
	CompanyObjectiveID okr.ID `json:"companyObjectiveId"`
}

// departmentObjectiveUpdate leaves absent fields unchanged. An empty
// companyObjectiveId unlinks.
type departmentObjectiveUpdate struct {
	Title              *string `json:"title" validate:"omitempty,max=300"`
	CompanyObjectiveID *okr.ID `json:"companyObjectiveId"`
}

type krRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Responsible string     `json:"responsible" validate:"required,max=200"`
	Type        okr.KRType `json:"type" validate:"required,oneof=artan azalan dalgalı"`
	Weight      okr.Value  `json:"weight" validate:"required"`
	StartValue  *okr.Value `json:"startValue"`
	Action      string     `json:"action" validate:"max=1000"`
}

func (req krRequest) input() okr.KRInput {
	return okr.KRInput{
		Title:       req.Title,
		Responsible: req.Responsible,
		Type:        req.Type,
		Weight:      req.Weight,
		StartValue:  req.StartValue,
		Action:      req.Action,
	}
}

type checkInRequest struct {
	Period string    `json:"period" validate:"required"`
	Target okr.Value `json:"target" validate:"required"`
	Actual okr.Value `json:"actual" validate:"required"`
}

type viewRequest struct {
	Name string `json:"name"`
}

type versionRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type suggestKRRequest struct {
	Objective string `json:"objective" validate:"required,max=300"`
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type orgChartRowsRequest struct {
	Rows []orgRow `json:"rows" validate:"required,min=1,dive"`
}

type orgRow struct {
	Name   string `json:"name" validate:"required"`
	Parent string `json:"parent"`
}
