package okr

// Clone returns a deep copy of the dataset. Slices in the copy never alias
// the receiver's.
func (ds Dataset) Clone() Dataset {
	out := Dataset{OrgChart: ds.OrgChart.Clone()}
	if ds.Objectives != nil {
		out.Objectives = make([]Objective, len(ds.Objectives))
		for i, obj := range ds.Objectives {
			out.Objectives[i] = obj.Clone()
		}
	}
	if ds.Departments != nil {
		out.Departments = make([]Department, len(ds.Departments))
		for i, dept := range ds.Departments {
			out.Departments[i] = dept.Clone()
		}
	}
	return out
}

func (d Department) Clone() Department {
	out := d
	if d.Objectives != nil {
		out.Objectives = make([]Objective, len(d.Objectives))
		for i, obj := range d.Objectives {
			out.Objectives[i] = obj.Clone()
		}
	}
	return out
}

func (o Objective) Clone() Objective {
	out := o
	if o.KRs != nil {
		out.KRs = make([]KeyResult, len(o.KRs))
		for i, kr := range o.KRs {
			out.KRs[i] = kr.Clone()
		}
	}
	return out
}

func (kr KeyResult) Clone() KeyResult {
	out := kr
	if kr.CheckIns != nil {
		out.CheckIns = append([]CheckIn(nil), kr.CheckIns...)
	}
	return out
}

func (n OrgNode) Clone() OrgNode {
	out := OrgNode{Name: n.Name}
	if n.Children != nil {
		out.Children = make([]OrgNode, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

func (v Version) Clone() Version {
	out := v
	out.Data = v.Data.Clone()
	return out
}
