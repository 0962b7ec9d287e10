// Package tabular converts datasets to and from the flat spreadsheet row
// format. Column headers are a compatibility contract: earlier exports must
// keep importing, so the names below never change.
package tabular

import "strings"

const (
	ColKind                = "Hedef Tipi"
	ColDepartment          = "Departman Adı"
	ColCompanyObjective    = "Şirket Hedefi"
	ColDepartmentObjective = "Departman Hedefi"
	ColKRTitle             = "KR Açıklaması"
	ColResponsible         = "Sorumlu"
	ColKRType              = "KR Tipi"
	ColWeight              = "Ağırlık"
	ColStartValue          = "Başlangıç Değeri"
	ColProgress            = "İlerleme (%)"
	ColAction              = "Aksiyon"

	TargetPrefix = "Hedef_"
	ActualPrefix = "Gerçekleşen_"

	KindCompany    = "Şirket"
	KindDepartment = "Departman"

	// UnlinkedLabel fills the company objective column of department rows
	// whose objective has no valid link.
	UnlinkedLabel = "İlişkilendirilmemiş"

	ExportSheet           = "OKR Verileri"
	TemplateSheet         = "OKR Şablonu"
	OrgChartTemplateSheet = "Organizasyon Şeması Şablonu"

	ColOrgName   = "Name"
	ColOrgParent = "Parent"
)

// BaseColumns are the fixed leading columns in export order.
var BaseColumns = []string{
	ColKind,
	ColDepartment,
	ColCompanyObjective,
	ColDepartmentObjective,
	ColKRTitle,
	ColResponsible,
	ColKRType,
	ColWeight,
	ColStartValue,
	ColProgress,
	ColAction,
}

// Header returns the full header row for the given periods.
func Header(periods []string) []string {
	header := append([]string(nil), BaseColumns...)
	for _, p := range periods {
		header = append(header, TargetPrefix+p, ActualPrefix+p)
	}
	return header
}

// numericColumn reports whether values under header are written as numbers.
func numericColumn(header string) bool {
	switch header {
	case ColWeight, ColStartValue, ColProgress:
		return true
	}
	return strings.HasPrefix(header, TargetPrefix) || strings.HasPrefix(header, ActualPrefix)
}
