package okr

import (
	"testing"
)

func kr(typ KRType, weight float64, start string, checkIns ...CheckIn) KeyResult {
	return KeyResult{Type: typ, Weight: Weight(weight), StartValue: Value(start), CheckIns: checkIns}
}

func ci(period, target, actual string) CheckIn {
	return CheckIn{Period: period, Target: Value(target), Actual: Value(actual)}
}

func TestKRProgress(t *testing.T) {
	cases := []struct {
		name string
		kr   KeyResult
		want float64
	}{
		{"no check-ins", kr(TypeIncreasing, 1, ""), 0},
		{"increasing halfway", kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "50")), 50},
		{"increasing over target clamps", kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "150")), 100},
		{"increasing negative clamps", kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "-5")), 0},
		{"zero target positive actual", kr(TypeIncreasing, 1, "", ci("2024Q1", "0", "3")), 100},
		{"zero target zero actual", kr(TypeIncreasing, 1, "", ci("2024Q1", "0", "0")), 0},
		{"fluctuating uses ratio", kr(TypeFluctuating, 1, "", ci("2024Q1", "80", "20")), 25},
		{"decreasing", kr(TypeDecreasing, 1, "100", ci("2024Q1", "80", "90")), 50},
		{"decreasing beyond target", kr(TypeDecreasing, 1, "100", ci("2024Q1", "80", "60")), 100},
		{"decreasing worse than start", kr(TypeDecreasing, 1, "100", ci("2024Q1", "80", "120")), 0},
		{"decreasing target above start", kr(TypeDecreasing, 1, "10", ci("2024Q1", "20", "15")), 100},
		{"decreasing blank start treated as zero", kr(TypeDecreasing, 1, "", ci("2024Q1", "5", "1")), 100},
		{"only last check-in counts", kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "90"), ci("2024Q2", "100", "10")), 10},
		{"non-numeric target", kr(TypeIncreasing, 1, "", ci("2024Q1", "abc", "10")), 0},
		{"blank actual", kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "")), 0},
		{"string numbers with spaces", kr(TypeIncreasing, 1, "", ci("2024Q1", " 200 ", "50")), 25},
		{"percent suffix reads leading number", kr(TypeIncreasing, 1, "", ci("2024Q1", "100%", "50%")), 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KRProgress(tc.kr); got != tc.want {
				t.Fatalf("KRProgress = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestObjectiveProgressWeighted(t *testing.T) {
	obj := Objective{KRs: []KeyResult{
		kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "100")),
		kr(TypeIncreasing, 3, "", ci("2024Q1", "100", "0")),
	}}
	if got, want := ObjectiveProgress(obj), 25.0; got != want {
		t.Fatalf("ObjectiveProgress = %v, want %v", got, want)
	}
}

func TestObjectiveProgressRounds(t *testing.T) {
	obj := Objective{KRs: []KeyResult{
		kr(TypeIncreasing, 1, "", ci("2024Q1", "3", "1")),
	}}
	if got, want := ObjectiveProgress(obj), 33.0; got != want {
		t.Fatalf("ObjectiveProgress = %v, want %v", got, want)
	}

	half := Objective{KRs: []KeyResult{
		kr(TypeIncreasing, 1, "", ci("2024Q1", "8", "1")),
	}}
	if got, want := ObjectiveProgress(half), 13.0; got != want {
		t.Fatalf("ObjectiveProgress(12.5) = %v, want %v", got, want)
	}
}

func TestObjectiveProgressZeroWeight(t *testing.T) {
	obj := Objective{KRs: []KeyResult{
		kr(TypeIncreasing, 0, "", ci("2024Q1", "100", "100")),
	}}
	if got := ObjectiveProgress(obj); got != 0 {
		t.Fatalf("ObjectiveProgress = %v, want 0", got)
	}
	if got := ObjectiveProgress(Objective{}); got != 0 {
		t.Fatalf("ObjectiveProgress(empty) = %v, want 0", got)
	}
}

func TestRecomputeAllHierarchy(t *testing.T) {
	ds := Dataset{
		Objectives: []Objective{
			{ID: "c1", Title: "Grow", KRs: []KeyResult{kr(TypeIncreasing, 1, "", ci("2024Q1", "10", "10"))}},
			{ID: "c2", Title: "Unlinked"},
		},
		Departments: []Department{
			{ID: "d1", Name: "Sales", Objectives: []Objective{
				{ID: "o1", CompanyObjectiveID: "c1", KRs: []KeyResult{kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "40"))}},
				{ID: "o2", CompanyObjectiveID: "c1", KRs: []KeyResult{kr(TypeIncreasing, 1, "", ci("2024Q1", "100", "81"))}},
			}},
			{ID: "d2", Name: "Empty"},
		},
	}

	out := RecomputeAll(ds)

	if got, want := out.Departments[0].Objectives[0].Progress, 40.0; got != want {
		t.Fatalf("o1 progress = %v, want %v", got, want)
	}
	if got, want := out.Departments[0].Progress, 61.0; got != want {
		t.Fatalf("d1 progress = %v, want %v", got, want)
	}
	if got := out.Departments[1].Progress; got != 0 {
		t.Fatalf("empty department progress = %v, want 0", got)
	}
	if got, want := out.Objectives[0].Progress, 61.0; got != want {
		t.Fatalf("c1 progress = %v, want %v (own KRs must not count)", got, want)
	}
	if got := out.Objectives[1].Progress; got != 0 {
		t.Fatalf("unlinked company objective progress = %v, want 0", got)
	}
	if got, want := out.Objectives[0].KRs[0].Progress, 100.0; got != want {
		t.Fatalf("company KR progress = %v, want %v", got, want)
	}
	if ds.Departments[0].Progress != 0 || ds.Departments[0].Objectives[0].Progress != 0 {
		t.Fatalf("input dataset was mutated")
	}
}

func TestRecomputeAllIgnoresStaleProgress(t *testing.T) {
	ds := Dataset{Departments: []Department{{ID: "d1", Progress: 99, Objectives: []Objective{
		{ID: "o1", Progress: 77, KRs: []KeyResult{{ID: "k1", Type: TypeIncreasing, Weight: 1, Progress: 55}}},
	}}}}
	out := RecomputeAll(ds)
	if out.Departments[0].Progress != 0 || out.Departments[0].Objectives[0].Progress != 0 || out.Departments[0].Objectives[0].KRs[0].Progress != 0 {
		t.Fatalf("stale progress survived: %#v", out.Departments[0])
	}
}

func TestRecomputeAllIdempotent(t *testing.T) {
	ds := Dataset{Departments: []Department{{ID: "d1", Objectives: []Objective{
		{ID: "o1", KRs: []KeyResult{kr(TypeDecreasing, 2, "50", ci("2024Q1", "10", "30"))}},
	}}}}
	once := RecomputeAll(ds)
	twice := RecomputeAll(once)
	if once.Departments[0].Progress != twice.Departments[0].Progress {
		t.Fatalf("progress changed on second recompute: %v vs %v", once.Departments[0].Progress, twice.Departments[0].Progress)
	}
	if got, want := once.Departments[0].Progress, 50.0; got != want {
		t.Fatalf("department progress = %v, want %v", got, want)
	}
}
