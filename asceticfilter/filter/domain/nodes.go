package filter

import (
	"fmt"
	"strings"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

type Combinator string

const (
	CombinatorAnd Combinator = "_and"
	CombinatorOr  Combinator = "_or"
)

// Node is a filter tree node: either a LogicalNode or a ConditionNode.
// Nodes are immutable values; the set of variants is closed.
type Node interface {
	Accept(Visitor) error
	String() string
	node()
}

type Visitor interface {
	VisitLogical(LogicalNode) error
	VisitCondition(ConditionNode) error
}

// FieldPath is a relational path like author.department.name.
type FieldPath []string

func ParseFieldPath(s string) FieldPath {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

func (p FieldPath) Equal(other FieldPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p FieldPath) clone() FieldPath {
	result := make(FieldPath, len(p))
	copy(result, p)
	return result
}

func And(children ...Node) LogicalNode {
	return NewLogicalNode(CombinatorAnd, children...)
}

func Or(children ...Node) LogicalNode {
	return NewLogicalNode(CombinatorOr, children...)
}

func NewLogicalNode(combinator Combinator, children ...Node) LogicalNode {
	copied := make([]Node, len(children))
	copy(copied, children)
	return LogicalNode{
		combinator: combinator,
		children:   copied,
	}
}

type LogicalNode struct {
	combinator Combinator
	children   []Node
}

func (n LogicalNode) Combinator() Combinator {
	return n.combinator
}

func (n LogicalNode) Children() []Node {
	result := make([]Node, len(n.children))
	copy(result, n.children)
	return result
}

func (n LogicalNode) Len() int {
	return len(n.children)
}

func (n LogicalNode) Accept(v Visitor) error {
	return v.VisitLogical(n)
}

func (n LogicalNode) String() string {
	parts := make([]string, len(n.children))
	for i, child := range n.children {
		parts[i] = fmt.Sprint(child)
	}
	return fmt.Sprintf("%s(%s)", strings.TrimPrefix(string(n.combinator), "_"), strings.Join(parts, ", "))
}

func (n LogicalNode) node() {}

func Condition(path FieldPath, operator operators.Operator, value any) ConditionNode {
	return ConditionNode{
		path:     path.clone(),
		operator: operator,
		value:    copyValue(value),
	}
}

type ConditionNode struct {
	path     FieldPath
	operator operators.Operator
	value    any
}

func (n ConditionNode) Path() FieldPath {
	return n.path.clone()
}

func (n ConditionNode) Operator() operators.Operator {
	return n.operator
}

// Value returns a copy of the operand: a literal, a []any for set and range
// operators, a GeoJSON map for spatial operators, or a dynvar.Token.
func (n ConditionNode) Value() any {
	return copyValue(n.value)
}

func (n ConditionNode) Accept(v Visitor) error {
	return v.VisitCondition(n)
}

func (n ConditionNode) String() string {
	return fmt.Sprintf("%s %s %v", n.path, n.operator, n.value)
}

func (n ConditionNode) node() {}

func copyValue(value any) any {
	switch v := value.(type) {
	case []any:
		result := make([]any, len(v))
		for i := range v {
			result[i] = copyValue(v[i])
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for k := range v {
			result[k] = copyValue(v[k])
		}
		return result
	default:
		return value
	}
}
