package filter

import (
	"reflect"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
)

// Equal reports structural equality. Two absent trees are equal.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch an := a.(type) {
	case LogicalNode:
		bn, ok := b.(LogicalNode)
		if !ok || an.combinator != bn.combinator || len(an.children) != len(bn.children) {
			return false
		}
		for i := range an.children {
			if !Equal(an.children[i], bn.children[i]) {
				return false
			}
		}
		return true
	case ConditionNode:
		bn, ok := b.(ConditionNode)
		if !ok {
			return false
		}
		return an.path.Equal(bn.path) &&
			an.operator == bn.operator &&
			reflect.DeepEqual(an.value, bn.value)
	}
	return false
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// children of a logical node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if ln, ok := n.(LogicalNode); ok {
		for _, child := range ln.children {
			Walk(child, fn)
		}
	}
}

// Conditions lists the leaves in pre-order.
func Conditions(n Node) []ConditionNode {
	var result []ConditionNode
	Walk(n, func(n Node) bool {
		if c, ok := n.(ConditionNode); ok {
			result = append(result, c)
		}
		return true
	})
	return result
}

// HasVariables reports whether any leaf still holds an unresolved token.
func HasVariables(n Node) bool {
	found := false
	Walk(n, func(n Node) bool {
		if c, ok := n.(ConditionNode); ok && containsToken(c.value) {
			found = true
		}
		return !found
	})
	return found
}

func containsToken(value any) bool {
	switch v := value.(type) {
	case dynvar.Token:
		return true
	case []any:
		for _, item := range v {
			if containsToken(item) {
				return true
			}
		}
	}
	return false
}

// ResolveVariables returns a copy of n with every dynamic variable replaced
// by its value in ctx.
func ResolveVariables(n Node, ctx dynvar.Context) (Node, error) {
	switch nn := n.(type) {
	case nil:
		return nil, nil
	case LogicalNode:
		children := make([]Node, len(nn.children))
		for i, child := range nn.children {
			resolved, err := ResolveVariables(child, ctx)
			if err != nil {
				return nil, err
			}
			children[i] = resolved
		}
		return NewLogicalNode(nn.combinator, children...), nil
	case ConditionNode:
		value, err := resolveValue(nn.value, ctx)
		if err != nil {
			return nil, &ParseError{
				Kind:     KindUnresolvedDynamicVariable,
				Field:    nn.path.String(),
				Operator: nn.operator,
				Message:  err.Error(),
				cause:    err,
			}
		}
		if _, wasToken := nn.value.(dynvar.Token); wasToken && nn.operator.IsSet() {
			if _, isList := value.([]any); !isList {
				value = []any{value}
			}
		}
		return ConditionNode{path: nn.path, operator: nn.operator, value: value}, nil
	}
	return n, nil
}

func resolveValue(value any, ctx dynvar.Context) (any, error) {
	switch v := value.(type) {
	case dynvar.Token:
		return dynvar.Resolve(v, ctx)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			resolved, err := resolveValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	}
	return copyValue(value), nil
}
