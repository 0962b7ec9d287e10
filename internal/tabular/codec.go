package tabular

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
)

// Cell is one period's target/actual pair as spreadsheet text.
type Cell struct {
	Target string
	Actual string
}

// Row is one exported key result. Periods maps a period label to its pair;
// the flat Hedef_/Gerçekleşen_ columns exist only in Flatten and Unflatten.
type Row struct {
	Kind                string
	Department          string
	CompanyObjective    string
	DepartmentObjective string
	KRTitle             string
	Responsible         string
	KRType              string
	Weight              string
	StartValue          string
	Progress            string
	Action              string
	Periods             map[string]Cell
}

// Record is a parsed import row. Weight is nil when the cell was blank or not
// a number.
type Record struct {
	Kind                string
	Department          string
	CompanyObjective    string
	DepartmentObjective string
	Title               string
	Responsible         string
	Type                okr.KRType
	Weight              *float64
	StartValue          okr.Value
	Action              string
	CheckIns            []okr.CheckIn
}

// ToRows emits one row per key result: company objective key results first,
// then department key results grouped by department. Every row carries a
// cell for each period in PeriodUniverse(now).
func ToRows(ds okr.Dataset, now time.Time) []Row {
	periods := okr.PeriodUniverse(now)
	var rows []Row

	for _, obj := range ds.Objectives {
		for _, kr := range obj.KRs {
			row := krRow(kr, periods)
			row.Kind = KindCompany
			row.CompanyObjective = obj.Title
			rows = append(rows, row)
		}
	}

	for _, dept := range ds.Departments {
		for _, obj := range dept.Objectives {
			company := UnlinkedLabel
			if co, ok := ds.CompanyObjective(obj.CompanyObjectiveID); ok {
				company = co.Title
			}
			for _, kr := range obj.KRs {
				row := krRow(kr, periods)
				row.Kind = KindDepartment
				row.Department = dept.Name
				row.CompanyObjective = company
				row.DepartmentObjective = obj.Title
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func krRow(kr okr.KeyResult, periods []string) Row {
	row := Row{
		KRTitle:     kr.Title,
		Responsible: kr.Responsible,
		KRType:      string(kr.Type),
		Weight:      formatNumber(float64(kr.Weight)),
		StartValue:  string(kr.StartValue),
		Progress:    formatNumber(kr.Progress),
		Action:      kr.Action,
		Periods:     make(map[string]Cell, len(periods)),
	}
	for _, p := range periods {
		row.Periods[p] = Cell{}
	}
	for _, ci := range kr.CheckIns {
		if _, ok := row.Periods[ci.Period]; ok {
			row.Periods[ci.Period] = Cell{Target: string(ci.Target), Actual: string(ci.Actual)}
		}
	}
	return row
}

// FromRows parses rows into import records. Check-ins are built from every
// period whose target and actual both parse as numbers, sorted by period.
func FromRows(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			Kind:                strings.TrimSpace(row.Kind),
			Department:          strings.TrimSpace(row.Department),
			CompanyObjective:    strings.TrimSpace(row.CompanyObjective),
			DepartmentObjective: strings.TrimSpace(row.DepartmentObjective),
			Title:               strings.TrimSpace(row.KRTitle),
			Responsible:         strings.TrimSpace(row.Responsible),
			Type:                okr.KRType(strings.TrimSpace(row.KRType)),
			Action:              row.Action,
			CheckIns:            []okr.CheckIn{},
		}
		if w, ok := okr.Value(row.Weight).Float(); ok {
			rec.Weight = &w
		}
		if start := okr.Value(strings.TrimSpace(row.StartValue)); !start.IsBlank() {
			if _, ok := start.Float(); ok {
				rec.StartValue = start
			}
		}
		for period, cell := range row.Periods {
			target := okr.Value(strings.TrimSpace(cell.Target))
			actual := okr.Value(strings.TrimSpace(cell.Actual))
			if _, ok := target.Float(); !ok {
				continue
			}
			if _, ok := actual.Float(); !ok {
				continue
			}
			rec.CheckIns = append(rec.CheckIns, okr.CheckIn{Period: period, Target: target, Actual: actual})
		}
		okr.SortCheckIns(rec.CheckIns)
		records = append(records, rec)
	}
	return records
}

// KeyResult builds a key result from the record with blank cells treated as
// zero values. The id is left empty.
func (r Record) KeyResult() okr.KeyResult {
	kr := okr.KeyResult{
		Title:       r.Title,
		Responsible: r.Responsible,
		Type:        r.Type,
		StartValue:  r.StartValue,
		Action:      r.Action,
		CheckIns:    append([]okr.CheckIn{}, r.CheckIns...),
	}
	if r.Weight != nil {
		kr.Weight = okr.Weight(*r.Weight)
	}
	return kr
}

// Flatten lays rows out as a header row followed by one value row each.
func Flatten(rows []Row, periods []string) [][]string {
	header := Header(periods)
	table := make([][]string, 0, len(rows)+1)
	table = append(table, header)
	for _, row := range rows {
		values := []string{
			row.Kind,
			row.Department,
			row.CompanyObjective,
			row.DepartmentObjective,
			row.KRTitle,
			row.Responsible,
			row.KRType,
			row.Weight,
			row.StartValue,
			row.Progress,
			row.Action,
		}
		for _, p := range periods {
			cell := row.Periods[p]
			values = append(values, cell.Target, cell.Actual)
		}
		table = append(table, values)
	}
	return table
}

// Unflatten reads a header-first table back into rows. Period pairs are
// discovered from Hedef_ headers; a pair needs both of its columns. Blank
// rows are skipped. A table without the Hedef Tipi header is rejected.
func Unflatten(table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, apperr.ImportFormat("the sheet is empty", nil)
	}
	index := make(map[string]int)
	for i, h := range table[0] {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	if _, ok := index[ColKind]; !ok {
		return nil, apperr.ImportFormat("missing column "+strconv.Quote(ColKind), nil)
	}

	type pair struct {
		period         string
		target, actual int
	}
	var pairs []pair
	for h, ti := range index {
		if !strings.HasPrefix(h, TargetPrefix) {
			continue
		}
		period := strings.TrimPrefix(h, TargetPrefix)
		if ai, ok := index[ActualPrefix+period]; ok {
			pairs = append(pairs, pair{period: period, target: ti, actual: ai})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].period < pairs[j].period })

	var rows []Row
	for _, values := range table[1:] {
		if blankRow(values) {
			continue
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(values) {
				return ""
			}
			return values[i]
		}
		at := func(i int) string {
			if i >= len(values) {
				return ""
			}
			return values[i]
		}
		row := Row{
			Kind:                get(ColKind),
			Department:          get(ColDepartment),
			CompanyObjective:    get(ColCompanyObjective),
			DepartmentObjective: get(ColDepartmentObjective),
			KRTitle:             get(ColKRTitle),
			Responsible:         get(ColResponsible),
			KRType:              get(ColKRType),
			Weight:              get(ColWeight),
			StartValue:          get(ColStartValue),
			Progress:            get(ColProgress),
			Action:              get(ColAction),
			Periods:             make(map[string]Cell, len(pairs)),
		}
		for _, p := range pairs {
			row.Periods[p.period] = Cell{Target: at(p.target), Actual: at(p.actual)}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
