package okr

import "math"

// KRProgress returns the percentage progress of a key result, clamped to
// [0, 100]. Only the most recent check-in counts; a missing or non-numeric
// target or actual yields 0.
func KRProgress(kr KeyResult) float64 {
	if len(kr.CheckIns) == 0 {
		return 0
	}
	last := kr.CheckIns[len(kr.CheckIns)-1]
	target, ok := last.Target.Float()
	if !ok {
		return 0
	}
	actual, ok := last.Actual.Float()
	if !ok {
		return 0
	}

	if kr.Type == TypeDecreasing {
		start := kr.StartValue.FloatOrZero()
		if target >= start {
			return 100
		}
		return clampPercent((start - actual) / (start - target) * 100)
	}

	if target == 0 {
		if actual > 0 {
			return 100
		}
		return 0
	}
	return clampPercent(actual / target * 100)
}

// ObjectiveProgress returns the weighted mean of the objective's key result
// progress, rounded to the nearest integer. Zero total weight yields 0.
func ObjectiveProgress(obj Objective) float64 {
	var weighted, total float64
	for _, kr := range obj.KRs {
		w := float64(kr.Weight)
		weighted += KRProgress(kr) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return roundHalfUp(weighted / total)
}

// DepartmentProgress returns the rounded mean of the stored progress of the
// department's objectives.
func DepartmentProgress(dept Department) float64 {
	if len(dept.Objectives) == 0 {
		return 0
	}
	var sum float64
	for _, obj := range dept.Objectives {
		sum += obj.Progress
	}
	return roundHalfUp(sum / float64(len(dept.Objectives)))
}

// CompanyObjectiveProgress returns the rounded mean of the stored progress of
// every department objective linked to the company objective. The company
// objective's own key results do not contribute.
func CompanyObjectiveProgress(ds Dataset, companyObjectiveID ID) float64 {
	linked := ds.LinkedObjectives(companyObjectiveID)
	if len(linked) == 0 {
		return 0
	}
	var sum float64
	for _, obj := range linked {
		sum += obj.Progress
	}
	return roundHalfUp(sum / float64(len(linked)))
}

// RecomputeAll returns a copy of ds with every derived progress field
// refreshed. Department key results and objectives are computed first, then
// departments, then company objectives, since company progress reads the
// freshly computed department objective values. ds is not modified.
func RecomputeAll(ds Dataset) Dataset {
	out := ds.Clone()

	for di := range out.Departments {
		dept := &out.Departments[di]
		for oi := range dept.Objectives {
			refreshObjective(&dept.Objectives[oi])
		}
		dept.Progress = DepartmentProgress(*dept)
	}

	for oi := range out.Objectives {
		obj := &out.Objectives[oi]
		for ki := range obj.KRs {
			obj.KRs[ki].Progress = KRProgress(obj.KRs[ki])
		}
		obj.Progress = CompanyObjectiveProgress(out, obj.ID)
	}
	return out
}

func refreshObjective(obj *Objective) {
	for ki := range obj.KRs {
		obj.KRs[ki].Progress = KRProgress(obj.KRs[ki])
	}
	obj.Progress = ObjectiveProgress(*obj)
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
