package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorsForIsTotal(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, ft := range FieldTypes() {
		t.Run(string(ft), func(t *testing.T) {
			query := reg.OperatorsFor(ft, false)
			validation := reg.OperatorsFor(ft, true)
			assert.Greater(t, query.Len(), 0)
			assert.True(t, query.IsSubsetOf(validation))
		})
	}
}

func TestOperatorsForUndeclaredTypeUsesBroadestSet(t *testing.T) {
	reg := NewDefaultRegistry()

	assert.Equal(t,
		reg.OperatorsFor(TypeUnknown, false).List(),
		reg.OperatorsFor(FieldType("alias"), false).List(),
	)
	assert.True(t, reg.Allows(FieldType("o2m"), OperatorContains, false))
}

func TestOperatorsForNarrowTypes(t *testing.T) {
	reg := NewDefaultRegistry()

	tests := []struct {
		name     string
		typ      FieldType
		expected []Operator
	}{
		{"hash", TypeHash, []Operator{OperatorEmpty, OperatorNEmpty, OperatorNNull, OperatorNull}},
		{"json", TypeJSON, []Operator{OperatorNNull, OperatorNull}},
		{"boolean", TypeBoolean, []Operator{OperatorEq, OperatorNeq, OperatorNNull, OperatorNull}},
		{"uuid", TypeUUID, []Operator{OperatorEq, OperatorIn, OperatorNeq, OperatorNin, OperatorNNull, OperatorNull}},
		{"geometry", TypeGeometry, []Operator{
			OperatorEq, OperatorIntersects, OperatorIntersectsBBox, OperatorNeq,
			OperatorNIntersects, OperatorNIntersectsBBox, OperatorNNull, OperatorNull,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, reg.OperatorsFor(tt.typ, false).List())
			assert.Equal(t, tt.expected, reg.OperatorsFor(tt.typ, true).List())
		})
	}
}

func TestRegexIsValidationOnly(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, ft := range []FieldType{TypeString, TypeText, TypeBinary, TypeCSV, TypeTimestamp, TypeUnknown} {
		assert.False(t, reg.Allows(ft, OperatorRegex, false), ft)
		assert.True(t, reg.Allows(ft, OperatorRegex, true), ft)
		assert.True(t, reg.IsValidationOnly(ft, OperatorRegex), ft)
	}
	assert.False(t, reg.Allows(TypeInteger, OperatorRegex, true))
	assert.False(t, reg.IsValidationOnly(TypeString, OperatorEq))
}

func TestOrderedTypes(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, ft := range []FieldType{
		TypeInteger, TypeBigInteger, TypeDecimal, TypeFloat,
		TypeDate, TypeTime, TypeDateTime,
	} {
		set := reg.OperatorsFor(ft, false)
		assert.True(t, set.Has(OperatorBetween), ft)
		assert.True(t, set.Has(OperatorGte), ft)
		assert.False(t, set.Has(OperatorContains), ft)
	}
}

func TestOperatorsForWideTypes(t *testing.T) {
	reg := NewDefaultRegistry()

	text := []Operator{
		OperatorContains, OperatorNContains, OperatorIContains,
		OperatorStartsWith, OperatorNStartsWith, OperatorIStartsWith, OperatorNIStartsWith,
		OperatorEndsWith, OperatorNEndsWith, OperatorIEndsWith, OperatorNIEndsWith,
		OperatorEq, OperatorNeq, OperatorEmpty, OperatorNEmpty,
		OperatorNull, OperatorNNull, OperatorIn, OperatorNin,
	}
	ordered := []Operator{
		OperatorEq, OperatorNeq, OperatorLt, OperatorLte, OperatorGt, OperatorGte,
		OperatorBetween, OperatorNBetween, OperatorNull, OperatorNNull, OperatorIn, OperatorNin,
	}
	broadest := []Operator{
		OperatorContains, OperatorNContains, OperatorEq, OperatorNeq,
		OperatorLt, OperatorLte, OperatorGt, OperatorGte,
		OperatorBetween, OperatorNBetween, OperatorEmpty, OperatorNEmpty,
		OperatorNull, OperatorNNull, OperatorIn, OperatorNin,
	}
	withRegex := func(ops []Operator) []Operator {
		return append(append([]Operator{}, ops...), OperatorRegex)
	}

	tests := []struct {
		typ        FieldType
		query      []Operator
		validation []Operator
	}{
		{TypeString, text, withRegex(text)},
		{TypeText, text, withRegex(text)},
		{TypeBinary, text, withRegex(text)},
		{TypeCSV, text, withRegex(text)},
		{TypeInteger, ordered, ordered},
		{TypeBigInteger, ordered, ordered},
		{TypeDecimal, ordered, ordered},
		{TypeFloat, ordered, ordered},
		{TypeDate, ordered, ordered},
		{TypeTime, ordered, ordered},
		{TypeDateTime, ordered, ordered},
		{TypeTimestamp, broadest, withRegex(broadest)},
		{TypeUnknown, broadest, withRegex(broadest)},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.ElementsMatch(t, tt.query, reg.OperatorsFor(tt.typ, false).List())
			assert.ElementsMatch(t, tt.validation, reg.OperatorsFor(tt.typ, true).List())
		})
	}

	assert.False(t, reg.Allows(TypeString, OperatorNIContains, true))
	assert.True(t, reg.Allows(TypeTimestamp, OperatorContains, false))
	assert.True(t, reg.Allows(TypeTimestamp, OperatorEmpty, false))
	assert.True(t, reg.Allows(TypeTimestamp, OperatorRegex, true))
}

func TestOperatorsForReturnsIndependentSets(t *testing.T) {
	reg := NewDefaultRegistry()

	first := reg.OperatorsFor(TypeString, true)
	first.items[OperatorIntersects] = struct{}{}

	assert.False(t, reg.OperatorsFor(TypeString, true).Has(OperatorIntersects))
}

func TestParseOperatorKey(t *testing.T) {
	op, ok := ParseOperatorKey("_starts_with")
	assert.True(t, ok)
	assert.Equal(t, OperatorStartsWith, op)
	assert.Equal(t, "_starts_with", op.Key())

	_, ok = ParseOperatorKey("eq")
	assert.False(t, ok)
	_, ok = ParseOperatorKey("_unknown")
	assert.False(t, ok)
	_, ok = ParseOperatorKey("_and")
	assert.False(t, ok)
}

func TestOperatorArity(t *testing.T) {
	assert.True(t, OperatorBetween.IsRange())
	assert.True(t, OperatorNin.IsSet())
	assert.True(t, OperatorNNull.IsPresence())
	assert.True(t, OperatorIntersectsBBox.IsSpatial())
	assert.True(t, OperatorNIStartsWith.IsNegated())
	assert.False(t, OperatorEq.IsRange() || OperatorEq.IsSet() || OperatorEq.IsPresence() || OperatorEq.IsSpatial())
}

func TestParseFieldType(t *testing.T) {
	assert.Equal(t, TypeDateTime, ParseFieldType("dateTime"))
	assert.Equal(t, TypeUnknown, ParseFieldType("alias"))
	assert.True(t, TypeCSV.IsText())
	assert.True(t, TypeDecimal.IsNumeric())
	assert.True(t, TypeTimestamp.IsTemporal())
}
