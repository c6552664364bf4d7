package operators

import "sort"

// OperatorSet is an immutable set of operators.
type OperatorSet struct {
	items map[Operator]struct{}
}

func NewOperatorSet(ops ...Operator) OperatorSet {
	items := make(map[Operator]struct{}, len(ops))
	for _, op := range ops {
		items[op] = struct{}{}
	}
	return OperatorSet{items: items}
}

func (s OperatorSet) Has(op Operator) bool {
	_, ok := s.items[op]
	return ok
}

func (s OperatorSet) Len() int {
	return len(s.items)
}

// List returns the operators in lexical order.
func (s OperatorSet) List() []Operator {
	result := make([]Operator, 0, len(s.items))
	for op := range s.items {
		result = append(result, op)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func (s OperatorSet) Union(other OperatorSet) OperatorSet {
	items := make(map[Operator]struct{}, len(s.items)+len(other.items))
	for op := range s.items {
		items[op] = struct{}{}
	}
	for op := range other.items {
		items[op] = struct{}{}
	}
	return OperatorSet{items: items}
}

func (s OperatorSet) IsSubsetOf(other OperatorSet) bool {
	for op := range s.items {
		if !other.Has(op) {
			return false
		}
	}
	return true
}
