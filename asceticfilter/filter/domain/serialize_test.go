package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

func TestToRaw(t *testing.T) {
	tree := Or(
		Condition(FieldPath{"author", "name"}, operators.OperatorStartsWith, "Jo"),
		Condition(FieldPath{"created"}, operators.OperatorGte, mustToken("$NOW(-1 day)")),
	)
	expected := map[string]any{
		"_or": []any{
			map[string]any{"author": map[string]any{"name": map[string]any{"_starts_with": "Jo"}}},
			map[string]any{"created": map[string]any{"_gte": "$NOW(-1 day)"}},
		},
	}
	assert.Equal(t, expected, ToRaw(tree))
	assert.Equal(t, map[string]any{}, ToRaw(nil))
}

func TestSerializeParseRoundTrip(t *testing.T) {
	inputs := map[string]map[string]any{
		"single":   {"title": map[string]any{"_eq": "Hello"}},
		"logical":  {"_or": []any{map[string]any{"age": map[string]any{"_lt": 3.0}}, map[string]any{"published": map[string]any{"_null": true}}}},
		"one item": {"_and": []any{map[string]any{"age": map[string]any{"_lt": 3.0}}}},
		"dotted":   {"author.department.name": map[string]any{"_icontains": "ops"}},
		"multi key": {
			"title": map[string]any{"_nempty": true},
			"age":   map[string]any{"_between": []any{1.0, 5.0}, "_neq": 3.0},
		},
		"logical with siblings": {
			"_or":   []any{map[string]any{"age": map[string]any{"_lt": 3.0}}},
			"title": map[string]any{"_eq": "x"},
		},
		"variables": {
			"created": map[string]any{"_gte": "$NOW(-1 day)"},
			"owner":   map[string]any{"_in": []any{"$CURRENT_USER", "admin"}},
			"role":    map[string]any{"_in": "$CURRENT_ROLES"},
		},
		"unknown variable is literal": {"title": map[string]any{"_eq": "$TODAY"}},
		"geometry":                    {"location": map[string]any{"_intersects_bbox": point(3, 4)}},
	}

	p := newTestParser()
	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			node, err := p.Parse(raw)
			require.NoError(t, err)

			normalized, err := Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, normalized, ToRaw(node))

			again, err := p.Parse(ToRaw(node))
			require.NoError(t, err)
			assert.True(t, Equal(node, again))
		})
	}
}

func TestNormalize(t *testing.T) {
	normalized, err := Normalize(map[string]any{
		"author.name": map[string]any{"_eq": "x"},
		"age":         map[string]any{"_gt": 1.0, "_lt": 5.0},
	})
	require.NoError(t, err)

	expected := map[string]any{
		"_and": []any{
			map[string]any{"age": map[string]any{"_gt": 1.0}},
			map[string]any{"age": map[string]any{"_lt": 5.0}},
			map[string]any{"author": map[string]any{"name": map[string]any{"_eq": "x"}}},
		},
	}
	assert.Equal(t, expected, normalized)

	empty, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Normalize([]any{})
	assert.ErrorIs(t, err, ErrStructural)
	_, err = Normalize(map[string]any{"_or": []any{}})
	assert.ErrorIs(t, err, ErrStructural)
	_, err = Normalize(map[string]any{"title": map[string]any{"_eq": 1.0, "x": map[string]any{"_eq": 1.0}}})
	assert.ErrorIs(t, err, ErrStructural)
}
