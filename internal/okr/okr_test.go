package okr

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecodeLegacyJSON(t *testing.T) {
	raw := `{
  "objectives": [{"id": 1718000000000.5, "title": "Grow", "krs": []}],
  "departments": [{
    "id": 17, "name": "Sales", "objectives": [{
      "id": "o1", "title": "Sell", "companyObjectiveId": 1718000000000.5,
      "krs": [{"id": "k1", "title": "Deals", "responsible": "Ana", "type": "artan",
               "weight": "30", "startValue": "", "checkIns": [{"period": "2024Q1", "target": 100, "actual": "40"}]}]
    }]
  }],
  "orgChart": {}
}`
	var ds Dataset
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, want := ds.Objectives[0].ID, ID("1718000000000.5"); got != want {
		t.Fatalf("company id = %q, want %q", got, want)
	}
	obj := ds.Departments[0].Objectives[0]
	if obj.CompanyObjectiveID != ds.Objectives[0].ID {
		t.Fatalf("link = %q, want %q", obj.CompanyObjectiveID, ds.Objectives[0].ID)
	}
	if got, want := obj.KRs[0].Weight, Weight(30); got != want {
		t.Fatalf("weight = %v, want %v", got, want)
	}
	if got := KRProgress(obj.KRs[0]); got != 40 {
		t.Fatalf("progress = %v, want 40", got)
	}
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}{A: "12.5", B: "", C: "n/a"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"a":12.5,"b":null,"c":"n/a"}`; got != want {
		t.Fatalf("marshal = %s, want %s", got, want)
	}
}

func TestValueFloatReadsLeadingNumber(t *testing.T) {
	cases := []struct {
		in     Value
		want   float64
		wantOK bool
	}{
		{"12.5", 12.5, true},
		{" 50% ", 50, true},
		{"12abc", 12, true},
		{"-3.5e2 units", -350, true},
		{".5", 0.5, true},
		{"7.", 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{"%50", 0, false},
		{"Infinity", 0, false},
		{"NaN", 0, false},
		{"1e400", 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.in.Float()
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("Value(%q).Float() = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}

	// Text with a numeric prefix keeps its original spelling in JSON.
	b, err := json.Marshal(Value("50%"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `"50%"`; got != want {
		t.Fatalf("marshal = %s, want %s", got, want)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	ds := Dataset{
		Departments: []Department{{ID: "d1", Objectives: []Objective{{ID: "o1", KRs: []KeyResult{{ID: "k1", CheckIns: []CheckIn{ci("2024Q1", "1", "1")}}}}}}},
		OrgChart:    OrgNode{Name: "CEO", Children: []OrgNode{{Name: "CTO"}}},
	}
	cp := ds.Clone()
	cp.Departments[0].Objectives[0].KRs[0].CheckIns[0].Actual = "9"
	cp.Departments[0].Name = "changed"
	cp.OrgChart.Children[0].Name = "CFO"

	if ds.Departments[0].Objectives[0].KRs[0].CheckIns[0].Actual != "1" {
		t.Fatalf("check-in aliased")
	}
	if ds.Departments[0].Name != "" {
		t.Fatalf("department aliased")
	}
	if ds.OrgChart.Children[0].Name != "CTO" {
		t.Fatalf("org chart aliased")
	}
}

func TestPeriods(t *testing.T) {
	for _, p := range []string{"2024Q1", "2024Q4", "202401", "202412"} {
		if !IsValidPeriod(p) {
			t.Fatalf("%q should be valid", p)
		}
	}
	for _, p := range []string{"2024Q5", "2024Q0", "202413", "202400", "24Q1", "2024-01", ""} {
		if IsValidPeriod(p) {
			t.Fatalf("%q should be invalid", p)
		}
	}

	now := time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC)
	if got, want := CurrentQuarter(now), "2024Q3"; got != want {
		t.Fatalf("CurrentQuarter = %q, want %q", got, want)
	}
	universe := PeriodUniverse(now)
	if len(universe) != 32 {
		t.Fatalf("universe size = %d, want 32", len(universe))
	}
	if universe[0] != "202401" || universe[len(universe)-1] != "2025Q4" {
		t.Fatalf("universe bounds = %q..%q", universe[0], universe[len(universe)-1])
	}
}

func TestUpsertCheckIn(t *testing.T) {
	in := []CheckIn{ci("2024Q1", "1", "1"), ci("2024Q2", "2", "2")}
	out := UpsertCheckIn(in, ci("2024Q1", "5", "5"))
	if len(out) != 2 || out[0].Actual != "5" {
		t.Fatalf("replace in place failed: %#v", out)
	}
	if in[0].Actual != "1" {
		t.Fatalf("input mutated")
	}
	out = UpsertCheckIn(in, ci("2024Q3", "3", "3"))
	if len(out) != 3 || out[2].Period != "2024Q3" {
		t.Fatalf("append failed: %#v", out)
	}
}

func TestFreshIDSkipsUsed(t *testing.T) {
	ds := Dataset{Objectives: []Objective{{ID: "id-1"}, {ID: "id-2"}}}
	gen := &SequenceGenerator{}
	if got, want := FreshID(gen, ds), ID("id-3"); got != want {
		t.Fatalf("FreshID = %q, want %q", got, want)
	}
}

func TestSummarize(t *testing.T) {
	ds := RecomputeAll(Dataset{
		Objectives: []Objective{{ID: "c1"}, {ID: "c2"}},
		Departments: []Department{
			{ID: "d1", Name: "Sales", Objectives: []Objective{{ID: "o1", CompanyObjectiveID: "c1", KRs: []KeyResult{
				kr(TypeIncreasing, 1, "", ci("2024Q1", "10", "10")),
				kr(TypeIncreasing, 1, "", ci("2024Q1", "10", "0")),
			}}}},
			{ID: "d2", Name: "Ops", Objectives: []Objective{{ID: "o2", KRs: []KeyResult{
				kr(TypeIncreasing, 1, "", ci("2024Q1", "10", "2")),
			}}}},
		},
	})
	s := Summarize(ds, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	if s.CompanyObjectives != 2 || s.DepartmentObjectives != 2 || s.ActiveObjectives != 4 || s.Departments != 2 {
		t.Fatalf("counts = %+v", s)
	}
	if s.TotalKRs != 3 || s.CompletedKRs != 1 {
		t.Fatalf("kr counts = %d/%d, want 3/1", s.CompletedKRs, s.TotalKRs)
	}
	if got, want := s.OverallProgress, 25.0; got != want {
		t.Fatalf("overall = %v, want %v", got, want)
	}
	if s.TopDepartment == nil || s.TopDepartment.Name != "Sales" || s.BottomDepartment.Name != "Ops" {
		t.Fatalf("standings = %+v / %+v", s.TopDepartment, s.BottomDepartment)
	}
	if s.CurrentQuarter != "2024Q1" {
		t.Fatalf("quarter = %q", s.CurrentQuarter)
	}
}

func TestKRInputValidate(t *testing.T) {
	errs := KRInput{Type: "other", Weight: "x"}.Validate()
	if len(errs) != 4 {
		t.Fatalf("errors = %v, want 4", errs)
	}
	if !strings.Contains(errs.Error(), "weight: must be a number") {
		t.Fatalf("message = %q", errs.Error())
	}
	ok := KRInput{Title: "t", Responsible: "r", Type: TypeDecreasing, Weight: "10"}.Validate()
	if ok.Err() != nil {
		t.Fatalf("unexpected errors: %v", ok)
	}
}

func TestDatasetYAMLRoundTrip(t *testing.T) {
	ds := Dataset{Departments: []Department{{ID: "d1", Name: "Sales", Objectives: []Objective{{ID: "o1", Title: "Sell", KRs: []KeyResult{
		{ID: "k1", Title: "Deals", Type: TypeIncreasing, Weight: 2, CheckIns: []CheckIn{ci("2024Q1", "100", "40")}},
	}}}}}}
	data, err := MarshalDatasetYAML(ds)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalDatasetYAML(data)
	if err != nil {
		t.Fatal(err)
	}
	got := back.Departments[0].Objectives[0].KRs[0]
	if got.CheckIns[0].Target != "100" || got.Weight != 2 || got.Type != TypeIncreasing {
		t.Fatalf("round trip = %#v", got)
	}
}
