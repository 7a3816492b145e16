package costcenters

// BuildHierarchy turns a flat list into a forest. Input values are cloned so the
// caller's slice is never mutated. Children keep input order. A node whose
// parent id does not resolve is promoted to a root. Cycles are not detected:
// nodes on a cycle never reach a root and are absent from the result.
func BuildHierarchy(flat []CostCenter) []*CostCenter {
	if len(flat) == 0 {
		return []*CostCenter{}
	}
	nodes := make([]*CostCenter, len(flat))
	index := make(map[int64]*CostCenter, len(flat))
	for i := range flat {
		node := flat[i]
		node.Children = []*CostCenter{}
		nodes[i] = &node
		index[node.ID] = &node
	}

	roots := make([]*CostCenter, 0)
	for _, node := range nodes {
		if node.ParentID != nil {
			if parent, ok := index[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Flatten walks a forest depth-first in pre-order and returns the nodes without children.
func Flatten(roots []*CostCenter) []CostCenter {
	out := make([]CostCenter, 0)
	var walk func(nodes []*CostCenter)
	walk = func(nodes []*CostCenter) {
		for _, node := range nodes {
			flat := *node
			flat.Children = nil
			out = append(out, flat)
			walk(node.Children)
		}
	}
	walk(roots)
	return out
}

// ChildPath derives the path of a child created under parent.
func ChildPath(parent *CostCenter, code string) (string, int) {
	if parent == nil {
		return code, 0
	}
	return parent.Path + PathSeparator + code, parent.Level + 1
}

// IsDescendantPath reports whether candidate lies strictly below ancestor.
func IsDescendantPath(ancestor, candidate string) bool {
	prefix := ancestor + PathSeparator
	return len(candidate) > len(prefix) && candidate[:len(prefix)] == prefix
}
