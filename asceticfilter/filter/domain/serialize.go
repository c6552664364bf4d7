package filter

import (
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
)

// ToRaw renders n back to the raw wire form. Tokens are written as their
// original text, so for a deferred-mode tree ToRaw(Parse(raw)) equals
// Normalize(raw).
func ToRaw(n Node) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	v := &ToRawVisitor{}
	// Neither visit method fails.
	_ = n.Accept(v)
	return v.Result()
}

// ToRawVisitor converts a tree to map[string]any with underscore operator keys.
type ToRawVisitor struct {
	result map[string]any
}

func (v *ToRawVisitor) Result() map[string]any {
	return v.result
}

func (v *ToRawVisitor) VisitLogical(n LogicalNode) error {
	items := make([]any, len(n.children))
	for i, child := range n.children {
		childVisitor := &ToRawVisitor{}
		if err := child.Accept(childVisitor); err != nil {
			return err
		}
		items[i] = childVisitor.result
	}
	v.result = map[string]any{string(n.combinator): items}
	return nil
}

func (v *ToRawVisitor) VisitCondition(n ConditionNode) error {
	var inner any = map[string]any{n.operator.Key(): rawValue(n.value)}
	for i := len(n.path) - 1; i >= 0; i-- {
		inner = map[string]any{n.path[i]: inner}
	}
	v.result = inner.(map[string]any)
	return nil
}

func rawValue(value any) any {
	switch v := value.(type) {
	case dynvar.Token:
		return v.String()
	case []any:
		result := make([]any, len(v))
		for i := range v {
			result[i] = rawValue(v[i])
		}
		return result
	}
	return copyValue(value)
}
