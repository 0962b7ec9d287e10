package importer

import (
	"okrboard/internal/apperr"
	"okrboard/internal/okr"
	"okrboard/internal/tabular"
)

// BuildOrgChart turns Name/Parent rows into a tree. The first row without a
// parent is the root; when every row has a parent the first row is. Children
// keep row order. Rows naming an unknown parent are dropped along with their
// subtrees, and a repeated name keeps its first row.
func BuildOrgChart(rows []tabular.OrgRow) (okr.OrgNode, error) {
	if len(rows) == 0 {
		return okr.OrgNode{}, apperr.Validation("empty org chart", "the sheet has no Name rows")
	}

	known := make(map[string]bool, len(rows))
	var unique []tabular.OrgRow
	for _, row := range rows {
		if known[row.Name] {
			continue
		}
		known[row.Name] = true
		unique = append(unique, row)
	}

	root := unique[0]
	for _, row := range unique {
		if row.Parent == "" {
			root = row
			break
		}
	}

	children := make(map[string][]string)
	for _, row := range unique {
		if row.Name == root.Name || row.Parent == "" || !known[row.Parent] {
			continue
		}
		children[row.Parent] = append(children[row.Parent], row.Name)
	}

	visited := make(map[string]bool)
	var build func(name string) okr.OrgNode
	build = func(name string) okr.OrgNode {
		visited[name] = true
		node := okr.OrgNode{Name: name}
		for _, child := range children[name] {
			if visited[child] {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	return build(root.Name), nil
}
