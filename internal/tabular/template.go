package tabular

import (
	"io"
	"strings"

	"okrboard/internal/apperr"
)

const templatePeriod = "2025Q1"

// WriteOKRTemplate writes a sample workbook showing one company row and one
// department row.
func WriteOKRTemplate(w io.Writer) error {
	rows := []Row{
		{
			Kind:             KindCompany,
			CompanyObjective: "Örnek Şirket Hedefi",
			KRTitle:          "Örnek KR 1",
			Responsible:      "Ali Veli",
			KRType:           "artan",
			Weight:           "50",
			Progress:         "25",
			Action:           "Haftalık toplantı",
			Periods:          map[string]Cell{templatePeriod: {Target: "100", Actual: "25"}},
		},
		{
			Kind:                KindDepartment,
			Department:          "DF Fit",
			CompanyObjective:    "Örnek Şirket Hedefi",
			DepartmentObjective: "Örnek Departman Hedefi",
			KRTitle:             "Örnek KR 2",
			Responsible:         "Ayşe Yılmaz",
			KRType:              "azalan",
			Weight:              "100",
			StartValue:          "10",
			Progress:            "0",
			Action:              "Rapor hazırlama",
			Periods:             map[string]Cell{templatePeriod: {Target: "5", Actual: "8"}},
		},
	}
	return WriteTable(w, TemplateSheet, Flatten(rows, []string{templatePeriod}))
}

// OrgRow is one line of an org chart sheet.
type OrgRow struct {
	Name   string
	Parent string
}

// WriteOrgChartTemplate writes a sample org chart workbook.
func WriteOrgChartTemplate(w io.Writer) error {
	table := [][]string{
		{ColOrgName, ColOrgParent},
		{"DeFacto CEO", ""},
		{"CTO", "DeFacto CEO"},
		{"DF Fit", "CTO"},
		{"Dijital Pazarlama", "CTO"},
		{"CFO", "DeFacto CEO"},
		{"Finans", "CFO"},
	}
	return WriteTable(w, OrgChartTemplateSheet, table)
}

// ReadOrgChart reads Name/Parent rows from the first sheet of a workbook.
func ReadOrgChart(r io.Reader) ([]OrgRow, error) {
	table, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return OrgRowsFromTable(table)
}

// OrgRowsFromTable maps a header-first table onto OrgRows. Rows without a
// name are skipped.
func OrgRowsFromTable(table [][]string) ([]OrgRow, error) {
	if len(table) == 0 {
		return nil, apperr.ImportFormat("the sheet is empty", nil)
	}
	nameCol, parentCol := -1, -1
	for i, h := range table[0] {
		switch strings.TrimSpace(h) {
		case ColOrgName:
			nameCol = i
		case ColOrgParent:
			parentCol = i
		}
	}
	if nameCol < 0 {
		return nil, apperr.ImportFormat("missing column \"Name\"", nil)
	}

	var out []OrgRow
	for _, values := range table[1:] {
		row := OrgRow{}
		if nameCol < len(values) {
			row.Name = strings.TrimSpace(values[nameCol])
		}
		if parentCol >= 0 && parentCol < len(values) {
			row.Parent = strings.TrimSpace(values[parentCol])
		}
		if row.Name == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
