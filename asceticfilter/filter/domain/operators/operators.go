package operators

import "strings"

// KeyPrefix marks operator and combinator keys in the raw filter format.
const KeyPrefix = "_"

type Operator string

const (
	// Comparison

	OperatorEq  Operator = "eq"
	OperatorNeq Operator = "neq"
	OperatorLt  Operator = "lt"
	OperatorLte Operator = "lte"
	OperatorGt  Operator = "gt"
	OperatorGte Operator = "gte"

	// Range

	OperatorBetween  Operator = "between"
	OperatorNBetween Operator = "nbetween"

	// Substring

	OperatorContains     Operator = "contains"
	OperatorNContains    Operator = "ncontains"
	OperatorIContains    Operator = "icontains"
	OperatorNIContains   Operator = "nicontains"
	OperatorStartsWith   Operator = "starts_with"
	OperatorNStartsWith  Operator = "nstarts_with"
	OperatorIStartsWith  Operator = "istarts_with"
	OperatorNIStartsWith Operator = "nistarts_with"
	OperatorEndsWith     Operator = "ends_with"
	OperatorNEndsWith    Operator = "nends_with"
	OperatorIEndsWith    Operator = "iends_with"
	OperatorNIEndsWith   Operator = "niends_with"
	OperatorRegex        Operator = "regex"

	// Presence

	OperatorEmpty  Operator = "empty"
	OperatorNEmpty Operator = "nempty"
	OperatorNull   Operator = "null"
	OperatorNNull  Operator = "nnull"

	// Set

	OperatorIn  Operator = "in"
	OperatorNin Operator = "nin"

	// Spatial

	OperatorIntersects      Operator = "intersects"
	OperatorNIntersects     Operator = "nintersects"
	OperatorIntersectsBBox  Operator = "intersects_bbox"
	OperatorNIntersectsBBox Operator = "nintersects_bbox"
)

var allOperators = []Operator{
	OperatorEq, OperatorNeq, OperatorLt, OperatorLte, OperatorGt, OperatorGte,
	OperatorBetween, OperatorNBetween,
	OperatorContains, OperatorNContains, OperatorIContains, OperatorNIContains,
	OperatorStartsWith, OperatorNStartsWith, OperatorIStartsWith, OperatorNIStartsWith,
	OperatorEndsWith, OperatorNEndsWith, OperatorIEndsWith, OperatorNIEndsWith,
	OperatorRegex,
	OperatorEmpty, OperatorNEmpty, OperatorNull, OperatorNNull,
	OperatorIn, OperatorNin,
	OperatorIntersects, OperatorNIntersects, OperatorIntersectsBBox, OperatorNIntersectsBBox,
}

var knownOperators = func() map[Operator]struct{} {
	m := make(map[Operator]struct{}, len(allOperators))
	for _, op := range allOperators {
		m[op] = struct{}{}
	}
	return m
}()

// All returns the whole operator vocabulary.
func All() []Operator {
	result := make([]Operator, len(allOperators))
	copy(result, allOperators)
	return result
}

func (o Operator) IsKnown() bool {
	_, ok := knownOperators[o]
	return ok
}

// Key returns the wire key, e.g. "_eq".
func (o Operator) Key() string {
	return KeyPrefix + string(o)
}

// ParseOperatorKey maps a wire key like "_gte" to its Operator.
func ParseOperatorKey(key string) (Operator, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	op := Operator(strings.TrimPrefix(key, KeyPrefix))
	if !op.IsKnown() {
		return "", false
	}
	return op, true
}

// IsRange reports operators taking a [low, high] pair.
func (o Operator) IsRange() bool {
	return o == OperatorBetween || o == OperatorNBetween
}

// IsSet reports operators taking a non-empty list.
func (o Operator) IsSet() bool {
	return o == OperatorIn || o == OperatorNin
}

// IsPresence reports operators taking a boolean flag.
func (o Operator) IsPresence() bool {
	switch o {
	case OperatorNull, OperatorNNull, OperatorEmpty, OperatorNEmpty:
		return true
	}
	return false
}

// IsSpatial reports operators taking a GeoJSON geometry.
func (o Operator) IsSpatial() bool {
	switch o {
	case OperatorIntersects, OperatorNIntersects, OperatorIntersectsBBox, OperatorNIntersectsBBox:
		return true
	}
	return false
}

// IsNegated reports the "n"-prefixed counterparts.
func (o Operator) IsNegated() bool {
	switch o {
	case OperatorNeq, OperatorNBetween, OperatorNContains, OperatorNIContains,
		OperatorNStartsWith, OperatorNIStartsWith, OperatorNEndsWith, OperatorNIEndsWith,
		OperatorNEmpty, OperatorNNull, OperatorNin, OperatorNIntersects, OperatorNIntersectsBBox:
		return true
	}
	return false
}
