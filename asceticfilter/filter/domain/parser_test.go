package filter

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

func TestParseSingleCondition(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"title": map[string]any{"_eq": "Hello"},
	})
	require.NoError(t, err)

	expected := Condition(FieldPath{"title"}, operators.OperatorEq, "Hello")
	assert.True(t, Equal(expected, node), "got %v", node)
}

func TestParseAbsentFilter(t *testing.T) {
	p := newTestParser()

	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, node)

	node, err = p.Parse(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestParseLogical(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"_or": []any{
			map[string]any{"age": map[string]any{"_gt": 18.0}},
			map[string]any{"published": map[string]any{"_eq": true}},
		},
	})
	require.NoError(t, err)

	expected := Or(
		Condition(FieldPath{"age"}, operators.OperatorGt, 18.0),
		Condition(FieldPath{"published"}, operators.OperatorEq, true),
	)
	assert.True(t, Equal(expected, node), "got %v", node)
}

func TestParseSingleChildLogicalIsKept(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"_and": []any{
			map[string]any{"age": map[string]any{"_gt": 18.0}},
		},
	})
	require.NoError(t, err)

	ln, ok := node.(LogicalNode)
	require.True(t, ok)
	assert.Equal(t, CombinatorAnd, ln.Combinator())
	assert.Equal(t, 1, ln.Len())
}

func TestParseMultipleKeysIsImplicitAnd(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"title": map[string]any{"_eq": "x"},
		"age":   map[string]any{"_gt": 1.0, "_lt": 5.0},
	})
	require.NoError(t, err)

	expected := And(
		Condition(FieldPath{"age"}, operators.OperatorGt, 1.0),
		Condition(FieldPath{"age"}, operators.OperatorLt, 5.0),
		Condition(FieldPath{"title"}, operators.OperatorEq, "x"),
	)
	assert.True(t, Equal(expected, node), "got %v", node)
}

func TestParseRelationalPaths(t *testing.T) {
	p := newTestParser()
	expected := Condition(FieldPath{"author", "department", "name"}, operators.OperatorEq, "R&D")

	for name, raw := range map[string]map[string]any{
		"nested": {"author": map[string]any{"department": map[string]any{"name": map[string]any{"_eq": "R&D"}}}},
		"dotted": {"author.department.name": map[string]any{"_eq": "R&D"}},
		"mixed":  {"author": map[string]any{"department.name": map[string]any{"_eq": "R&D"}}},
	} {
		t.Run(name, func(t *testing.T) {
			node, err := p.Parse(raw)
			require.NoError(t, err)
			assert.True(t, Equal(expected, node), "got %v", node)
		})
	}
}

func TestParseUnknownField(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"author": map[string]any{"nickname": map[string]any{"_eq": "x"}},
	})
	assert.Nil(t, node)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, KindUnknownField, parseErr.Kind)
	assert.Equal(t, "author.nickname", parseErr.Field)
}

func TestParseIllegalOperator(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"age": map[string]any{"_contains": 5.0},
	})
	assert.Nil(t, node)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIllegalOperator)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "age", parseErr.Field)
	assert.Equal(t, operators.OperatorContains, parseErr.Operator)
	assert.Equal(t, operators.TypeInteger, parseErr.FieldType)
	assert.Equal(t, "age._contains", parseErr.Location)
}

func TestParseIllegalOperatorPerType(t *testing.T) {
	tests := []struct {
		field string
		op    string
		value any
	}{
		{"published", "_gt", true},
		{"meta", "_eq", "x"},
		{"id", "_contains", "abc"},
		{"location", "_lt", 1.0},
		{"title", "_between", []any{"a", "b"}},
		{"title", "_regex", "^a"},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.field+tt.op, func(t *testing.T) {
			_, err := p.Parse(map[string]any{tt.field: map[string]any{tt.op: tt.value}})
			assert.ErrorIs(t, err, ErrIllegalOperator)
		})
	}
}

func TestParseRegexNeedsValidationContext(t *testing.T) {
	raw := map[string]any{"title": map[string]any{"_regex": "^[A-Z]"}}

	_, err := newTestParser().Parse(raw)
	assert.ErrorIs(t, err, ErrIllegalOperator)

	node, err := newTestParser(ForValidation()).Parse(raw)
	require.NoError(t, err)
	assert.True(t, Equal(Condition(FieldPath{"title"}, operators.OperatorRegex, "^[A-Z]"), node))

	_, err = newTestParser(ForValidation()).Parse(map[string]any{"title": map[string]any{"_regex": "(["}})
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestParseUnknownTypeFallsBackToBroadestSet(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"mystery": map[string]any{"_contains": "x"},
	})
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"root list", []any{}},
		{"root string", "title"},
		{"empty and", map[string]any{"_and": []any{}}},
		{"and not list", map[string]any{"_and": "x"}},
		{"or item not object", map[string]any{"_or": []any{1.0}}},
		{"or item empty", map[string]any{"_or": []any{map[string]any{}}}},
		{"operator at root", map[string]any{"_eq": 1.0}},
		{"unknown root key", map[string]any{"_foo": 1.0}},
		{"field scalar", map[string]any{"title": "x"}},
		{"field empty", map[string]any{"title": map[string]any{}}},
		{"mixed keys", map[string]any{"author": map[string]any{"_eq": "x", "name": map[string]any{"_eq": "y"}}}},
		{"logical under field", map[string]any{"title": map[string]any{"_and": []any{}}}},
		{"unknown operator", map[string]any{"title": map[string]any{"_bogus": 1.0}}},
		{"empty path segment", map[string]any{"author..name": map[string]any{"_eq": "x"}}},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := p.Parse(tt.raw)
			assert.Nil(t, node)
			assert.ErrorIs(t, err, ErrStructural)
		})
	}
}

func TestParseMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    string
		value any
	}{
		{"in empty", "age", "_in", []any{}},
		{"in scalar", "age", "_in", 5.0},
		{"in literal string", "title", "_in", "abc"},
		{"between one bound", "age", "_between", []any{1.0}},
		{"between three bounds", "age", "_between", []any{1.0, 2.0, 3.0}},
		{"null string", "title", "_null", "yes"},
		{"eq list", "age", "_eq", []any{1.0, 2.0}},
		{"eq object", "title", "_eq", map[string]any{"a": 1.0}},
		{"in nested list", "age", "_in", []any{[]any{1.0}}},
		{"intersects string", "location", "_intersects", "POINT(1 2)"},
		{"intersects bad type", "location", "_intersects", map[string]any{"type": "Blob", "coordinates": []any{1.0, 2.0}}},
		{"intersects open polygon", "location", "_intersects", map[string]any{
			"type":        "Polygon",
			"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{1.0, 0.0}, []any{1.0, 1.0}, []any{0.0, 1.0}}},
		}},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := p.Parse(map[string]any{tt.field: map[string]any{tt.op: tt.value}})
			assert.Nil(t, node)
			assert.ErrorIs(t, err, ErrMalformedValue)
		})
	}
}

func TestParseOperandShapes(t *testing.T) {
	p := newTestParser()
	tests := []struct {
		field    string
		op       operators.Operator
		value    any
		expected any
	}{
		{"age", operators.OperatorIn, []any{1.0, 2.0}, []any{1.0, 2.0}},
		{"age", operators.OperatorBetween, []any{1.0, 9.0}, []any{1.0, 9.0}},
		{"title", operators.OperatorNull, true, true},
		{"title", operators.OperatorEq, nil, nil},
		{"location", operators.OperatorIntersects, point(1, 2), point(1, 2)},
		{"title", operators.OperatorEq, "$TODAY", "$TODAY"},
	}
	for _, tt := range tests {
		t.Run(tt.field+tt.op.Key(), func(t *testing.T) {
			node, err := p.Parse(map[string]any{tt.field: map[string]any{tt.op.Key(): tt.value}})
			require.NoError(t, err)
			c, ok := node.(ConditionNode)
			require.True(t, ok)
			assert.Equal(t, tt.op, c.Operator())
			assert.Equal(t, tt.expected, c.Value())
		})
	}
}

func TestParseDynamicVariables(t *testing.T) {
	raw := map[string]any{"created": map[string]any{"_gte": "$NOW(-1 day)"}}

	t.Run("deferred", func(t *testing.T) {
		node, err := newTestParser().Parse(raw)
		require.NoError(t, err)
		expected := Condition(FieldPath{"created"}, operators.OperatorGte, mustToken("$NOW(-1 day)"))
		assert.True(t, Equal(expected, node), "got %v", node)
		assert.True(t, HasVariables(node))
	})

	t.Run("immediate", func(t *testing.T) {
		node, err := newTestParser(WithMode(ResolveImmediate), WithVariables(testVariables())).Parse(raw)
		require.NoError(t, err)
		expected := Condition(FieldPath{"created"}, operators.OperatorGte, fixedNow.AddDate(0, 0, -1))
		assert.True(t, Equal(expected, node), "got %v", node)
		assert.False(t, HasVariables(node))
	})

	t.Run("inside list", func(t *testing.T) {
		node, err := newTestParser().Parse(map[string]any{
			"owner": map[string]any{"_in": []any{"$CURRENT_USER", "admin"}},
		})
		require.NoError(t, err)
		c := node.(ConditionNode)
		assert.Equal(t, []any{mustToken("$CURRENT_USER"), "admin"}, c.Value())
	})

	t.Run("malformed known function", func(t *testing.T) {
		node, err := newTestParser().Parse(map[string]any{"created": map[string]any{"_gte": "$NOW(banana)"}})
		assert.Nil(t, node)
		assert.ErrorIs(t, err, ErrUnresolvedDynamicVariable)
	})

	t.Run("missing accountability", func(t *testing.T) {
		_, err := newTestParser(WithMode(ResolveImmediate)).Parse(map[string]any{
			"owner": map[string]any{"_eq": "$CURRENT_USER"},
		})
		assert.ErrorIs(t, err, ErrUnresolvedDynamicVariable)
	})
}

func TestParseSetOperatorWithListVariable(t *testing.T) {
	raw := map[string]any{"role": map[string]any{"_in": "$CURRENT_ROLES"}}

	node, err := newTestParser().Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, mustToken("$CURRENT_ROLES"), node.(ConditionNode).Value())

	node, err = newTestParser(WithMode(ResolveImmediate), WithVariables(testVariables())).Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []any{"editor", "viewer"}, node.(ConditionNode).Value())

	node, err = newTestParser(WithMode(ResolveImmediate), WithVariables(testVariables())).Parse(
		map[string]any{"owner": map[string]any{"_in": "$CURRENT_USER"}},
	)
	require.NoError(t, err)
	assert.Equal(t, []any{"u-1"}, node.(ConditionNode).Value())
}

func TestParseLimits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		raw := map[string]any{"age": map[string]any{"_eq": 1.0}}
		for i := 0; i < 40; i++ {
			raw = map[string]any{"_and": []any{raw}}
		}
		node, err := newTestParser().Parse(raw)
		assert.Nil(t, node)
		assert.ErrorIs(t, err, ErrStructural)
	})

	t.Run("width", func(t *testing.T) {
		p := newTestParser(WithLimits(Limits{MaxDepth: 32, MaxWidth: 2, MaxConditions: 100}))
		_, err := p.Parse(map[string]any{
			"_or": []any{
				map[string]any{"age": map[string]any{"_eq": 1.0}},
				map[string]any{"age": map[string]any{"_eq": 2.0}},
				map[string]any{"age": map[string]any{"_eq": 3.0}},
			},
		})
		assert.ErrorIs(t, err, ErrStructural)
	})

	t.Run("conditions", func(t *testing.T) {
		p := newTestParser(WithLimits(Limits{MaxDepth: 32, MaxWidth: 100, MaxConditions: 2}))
		_, err := p.Parse(map[string]any{
			"age":   map[string]any{"_gt": 1.0, "_lt": 5.0},
			"title": map[string]any{"_eq": "x"},
		})
		assert.ErrorIs(t, err, ErrStructural)
	})

	t.Run("within limits", func(t *testing.T) {
		raw := map[string]any{"age": map[string]any{"_eq": 1.0}}
		for i := 0; i < 10; i++ {
			raw = map[string]any{"_and": []any{raw}}
		}
		_, err := newTestParser().Parse(raw)
		assert.NoError(t, err)
	})
}

func TestParseIsAllOrNothing(t *testing.T) {
	node, err := newTestParser().Parse(map[string]any{
		"_and": []any{
			map[string]any{"title": map[string]any{"_eq": "ok"}},
			map[string]any{"age": map[string]any{"_contains": "bad"}},
		},
	})
	assert.Nil(t, node)
	assert.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	node, err := newTestParser().ParseJSON([]byte(`{"_and":[{"age":{"_between":[1,10]}},{"author":{"name":{"_icontains":"smith"}}}]}`))
	require.NoError(t, err)

	expected := And(
		Condition(FieldPath{"age"}, operators.OperatorBetween, []any{1.0, 10.0}),
		Condition(FieldPath{"author", "name"}, operators.OperatorIContains, "smith"),
	)
	assert.True(t, Equal(expected, node), "got %v", node)

	_, err = newTestParser().ParseJSON([]byte(`{"age":`))
	assert.ErrorIs(t, err, ErrStructural)
}

func TestParserIsSafeForConcurrentUse(t *testing.T) {
	p := newTestParser()
	raw := map[string]any{
		"title": map[string]any{"_eq": "x"},
		"age":   map[string]any{"_in": []any{1.0, 2.0}},
	}
	expected, err := p.Parse(raw)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			node, err := p.Parse(raw)
			assert.NoError(t, err)
			assert.True(t, Equal(expected, node))
		}()
	}
	wg.Wait()
}
