package filter

// Merge conjoins the present filters. Absent (nil) inputs are dropped; a
// single remaining filter is returned as is; otherwise the result is an AND
// of the inputs in the order given. Merge never fails and never invents
// allow-all or deny-all nodes.
func Merge(filters ...Node) Node {
	return merge(CombinatorAnd, filters)
}

// MergeOr is Merge with OR as the combinator.
func MergeOr(filters ...Node) Node {
	return merge(CombinatorOr, filters)
}

// MergePermissions conjoins permission filters with a user filter. The
// permission filters come first so equal inputs always build equal trees.
func MergePermissions(permissions []Node, user Node) Node {
	filters := make([]Node, 0, len(permissions)+1)
	filters = append(filters, permissions...)
	filters = append(filters, user)
	return Merge(filters...)
}

func merge(combinator Combinator, filters []Node) Node {
	present := make([]Node, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			present = append(present, f)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	}
	return NewLogicalNode(combinator, present...)
}

// Flatten splices nested logical nodes into parents with the same
// combinator. The result accepts the same records as n.
func Flatten(n Node) Node {
	ln, ok := n.(LogicalNode)
	if !ok {
		return n
	}
	children := make([]Node, 0, len(ln.children))
	for _, child := range ln.children {
		flat := Flatten(child)
		if inner, ok := flat.(LogicalNode); ok && inner.combinator == ln.combinator {
			children = append(children, inner.children...)
			continue
		}
		children = append(children, flat)
	}
	return NewLogicalNode(ln.combinator, children...)
}
