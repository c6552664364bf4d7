package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// ConstraintFilter marks a payload value that fails a condition of a
// validation filter.
const ConstraintFilter Constraint = "filter"

var ErrUnsupportedGeometry = errors.New("geometries cannot be tested for intersection")

type EvaluateOption func(*EvaluateVisitor)

// WithFilterVariables resolves the dynamic variables left in the filter.
func WithFilterVariables(ctx dynvar.Context) EvaluateOption {
	return func(v *EvaluateVisitor) {
		v.variables = ctx
	}
}

// RequireAll makes a field the filter names fail when the payload lacks it.
// Otherwise absent fields pass every condition except _nnull and _nempty.
func RequireAll() EvaluateOption {
	return func(v *EvaluateVisitor) {
		v.requireAll = true
	}
}

// EvaluateVisitor checks a payload against a filter parsed for validation.
// A LogicalNode with _and collects the violations of every child; one with
// _or passes when any child passes and reports all of them otherwise.
type EvaluateVisitor struct {
	payload    map[string]any
	variables  dynvar.Context
	requireAll bool
	violations []Violation
}

func NewEvaluateVisitor(payload map[string]any, opts ...EvaluateOption) *EvaluateVisitor {
	v := &EvaluateVisitor{payload: payload}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *EvaluateVisitor) withPayload() *EvaluateVisitor {
	return &EvaluateVisitor{
		payload:    v.payload,
		variables:  v.variables,
		requireAll: v.requireAll,
	}
}

func (v *EvaluateVisitor) Result() Result {
	return Result{Valid: len(v.violations) == 0, Violations: v.violations}
}

func (v *EvaluateVisitor) VisitLogical(n f.LogicalNode) error {
	if n.Combinator() != f.CombinatorOr {
		for _, child := range n.Children() {
			if err := child.Accept(v); err != nil {
				return err
			}
		}
		return nil
	}
	var failed []Violation
	for _, child := range n.Children() {
		branch := v.withPayload()
		if err := child.Accept(branch); err != nil {
			return err
		}
		if len(branch.violations) == 0 {
			return nil
		}
		failed = append(failed, branch.violations...)
	}
	v.violations = append(v.violations, failed...)
	return nil
}

func (v *EvaluateVisitor) VisitCondition(n f.ConditionNode) error {
	field := n.Path().String()
	op, expected := n.Operator(), n.Value()
	if f.HasVariables(n) {
		resolved, err := f.ResolveVariables(n, v.variables)
		if err != nil {
			return err
		}
		expected = resolved.(f.ConditionNode).Value()
	}
	// {"_null": false} reads as {"_nnull": true}.
	if flag, ok := expected.(bool); ok && op.IsPresence() && !flag {
		op, expected = negations[op], true
	}

	actual, present := lookupValue(v.payload, field)
	if !present {
		switch {
		case v.requireAll:
			v.violate(field, ConstraintRequired, nil, "%s is a required field", field)
		case op == operators.OperatorNNull || op == operators.OperatorNEmpty:
			v.violate(field, ConstraintFilter, nil, "%s %s", field, describe(op, expected))
		}
		return nil
	}

	ok, err := matches(op, actual, expected)
	if err != nil {
		return errors.Wrapf(err, "%s %s", field, op.Key())
	}
	if !ok {
		v.violate(field, ConstraintFilter, actual, "%s %s", field, describe(op, expected))
	}
	return nil
}

func (v *EvaluateVisitor) violate(field string, c Constraint, value any, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Field:      field,
		Constraint: c,
		Value:      value,
		Message:    fmt.Sprintf(format, args...),
	})
}

var negations = map[operators.Operator]operators.Operator{
	operators.OperatorNull:   operators.OperatorNNull,
	operators.OperatorNNull:  operators.OperatorNull,
	operators.OperatorEmpty:  operators.OperatorNEmpty,
	operators.OperatorNEmpty: operators.OperatorEmpty,
}

type textTest struct {
	test    func(s, substr string) bool
	fold    bool
	negated bool
	phrase  string
}

var textTests = map[operators.Operator]textTest{
	operators.OperatorContains:     {strings.Contains, false, false, "contain"},
	operators.OperatorNContains:    {strings.Contains, false, true, "contain"},
	operators.OperatorIContains:    {strings.Contains, true, false, "contain"},
	operators.OperatorNIContains:   {strings.Contains, true, true, "contain"},
	operators.OperatorStartsWith:   {strings.HasPrefix, false, false, "start with"},
	operators.OperatorNStartsWith:  {strings.HasPrefix, false, true, "start with"},
	operators.OperatorIStartsWith:  {strings.HasPrefix, true, false, "start with"},
	operators.OperatorNIStartsWith: {strings.HasPrefix, true, true, "start with"},
	operators.OperatorEndsWith:     {strings.HasSuffix, false, false, "end with"},
	operators.OperatorNEndsWith:    {strings.HasSuffix, false, true, "end with"},
	operators.OperatorIEndsWith:    {strings.HasSuffix, true, false, "end with"},
	operators.OperatorNIEndsWith:   {strings.HasSuffix, true, true, "end with"},
}

func matches(op operators.Operator, actual, expected any) (bool, error) {
	if tt, ok := textTests[op]; ok {
		s, isString := actual.(string)
		if !isString {
			return false, nil
		}
		substr := fmt.Sprint(expected)
		if tt.fold {
			s, substr = strings.ToLower(s), strings.ToLower(substr)
		}
		return tt.test(s, substr) != tt.negated, nil
	}

	switch op {
	case operators.OperatorEq, operators.OperatorNeq:
		equal := equalValues(actual, expected)
		if items, ok := expected.([]any); ok {
			equal = oneOf(actual, items)
		}
		return equal == (op == operators.OperatorEq), nil

	case operators.OperatorLt, operators.OperatorLte, operators.OperatorGt, operators.OperatorGte:
		c, ok := compareValues(actual, expected)
		if !ok {
			return false, nil
		}
		switch op {
		case operators.OperatorLt:
			return c < 0, nil
		case operators.OperatorLte:
			return c <= 0, nil
		case operators.OperatorGt:
			return c > 0, nil
		}
		return c >= 0, nil

	case operators.OperatorBetween, operators.OperatorNBetween:
		bounds, _ := expected.([]any)
		if len(bounds) != 2 {
			return false, fmt.Errorf("expected two bounds, got %v", expected)
		}
		low, okLow := compareValues(actual, bounds[0])
		high, okHigh := compareValues(actual, bounds[1])
		if !okLow || !okHigh {
			return false, nil
		}
		return (low >= 0 && high <= 0) == (op == operators.OperatorBetween), nil

	case operators.OperatorIn, operators.OperatorNin:
		items, ok := expected.([]any)
		if !ok {
			items = []any{expected}
		}
		return oneOf(actual, items) == (op == operators.OperatorIn), nil

	case operators.OperatorNull:
		return actual == nil, nil
	case operators.OperatorNNull:
		return actual != nil, nil
	case operators.OperatorEmpty:
		return isEmpty(actual), nil
	case operators.OperatorNEmpty:
		return !isEmpty(actual), nil

	case operators.OperatorRegex:
		s, isString := actual.(string)
		if !isString {
			return false, nil
		}
		re, err := regexp.Compile(fmt.Sprint(expected))
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil

	case operators.OperatorIntersects, operators.OperatorNIntersects,
		operators.OperatorIntersectsBBox, operators.OperatorNIntersectsBBox:
		return intersects(op, actual, expected)
	}
	return false, fmt.Errorf("operator %s cannot be evaluated", op.Key())
}

func oneOf(actual any, items []any) bool {
	for _, item := range items {
		if equalValues(actual, item) {
			return true
		}
	}
	return false
}

func equalValues(actual, expected any) bool {
	if c, ok := compareValues(actual, expected); ok {
		return c == 0
	}
	return reflect.DeepEqual(actual, expected)
}

// compareValues orders numbers by value and temporal values by instant.
// Strings are read as times when the other side is a time.
func compareValues(actual, expected any) (int, bool) {
	if a, ok := toFloat(actual); ok {
		if e, ok := toFloat(expected); ok {
			return compareOrdered(a, e), true
		}
		return 0, false
	}
	a, okActual := toTime(actual)
	e, okExpected := toTime(expected)
	_, actualIsTime := actual.(time.Time)
	_, expectedIsTime := expected.(time.Time)
	if okActual && okExpected && (actualIsTime || expectedIsTime) {
		return a.Compare(e), true
	}
	if as, ok := actual.(string); ok {
		if es, ok := expected.(string); ok {
			return strings.Compare(as, es), true
		}
	}
	return 0, false
}

func compareOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var timeLayouts = []string{time.RFC3339Nano, dateLayout, "2006-01-02T15:04:05"}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// intersects is exact when either side is a point and compares bounding
// boxes otherwise.
func intersects(op operators.Operator, actual, expected any) (bool, error) {
	a, err := f.DecodeGeometry(actual)
	if err != nil {
		return false, nil
	}
	e, err := f.DecodeGeometry(expected)
	if err != nil {
		return false, err
	}
	var hit bool
	switch op {
	case operators.OperatorIntersectsBBox, operators.OperatorNIntersectsBBox:
		hit = a.Bound().Intersects(e.Bound())
	default:
		var ok bool
		if hit, ok = pointIntersects(a, e); !ok {
			if hit, ok = pointIntersects(e, a); !ok {
				return false, ErrUnsupportedGeometry
			}
		}
	}
	return hit == (op == operators.OperatorIntersects || op == operators.OperatorIntersectsBBox), nil
}

func pointIntersects(p, g orb.Geometry) (hit, ok bool) {
	point, isPoint := p.(orb.Point)
	if !isPoint {
		return false, false
	}
	switch other := g.(type) {
	case orb.Point:
		return point.Equal(other), true
	case orb.MultiPoint:
		for _, q := range other {
			if point.Equal(q) {
				return true, true
			}
		}
		return false, true
	case orb.Polygon:
		return planar.PolygonContains(other, point), true
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(other, point), true
	}
	return false, false
}

func describe(op operators.Operator, expected any) string {
	if tt, ok := textTests[op]; ok {
		phrase := "must " + tt.phrase
		if tt.negated {
			phrase = "must not " + tt.phrase
		}
		phrase = fmt.Sprintf("%s %q", phrase, fmt.Sprint(expected))
		if tt.fold {
			phrase += " ignoring case"
		}
		return phrase
	}
	switch op {
	case operators.OperatorEq:
		return fmt.Sprintf("must equal %v", expected)
	case operators.OperatorNeq:
		return fmt.Sprintf("must not equal %v", expected)
	case operators.OperatorLt:
		return fmt.Sprintf("must be less than %v", expected)
	case operators.OperatorLte:
		return fmt.Sprintf("must be at most %v", expected)
	case operators.OperatorGt:
		return fmt.Sprintf("must be greater than %v", expected)
	case operators.OperatorGte:
		return fmt.Sprintf("must be at least %v", expected)
	case operators.OperatorBetween, operators.OperatorNBetween:
		phrase := "must be between"
		if op == operators.OperatorNBetween {
			phrase = "must not be between"
		}
		if bounds, ok := expected.([]any); ok && len(bounds) == 2 {
			return fmt.Sprintf("%s %v and %v", phrase, bounds[0], bounds[1])
		}
		return fmt.Sprintf("%s %v", phrase, expected)
	case operators.OperatorIn:
		return fmt.Sprintf("must be one of %v", expected)
	case operators.OperatorNin:
		return fmt.Sprintf("must not be one of %v", expected)
	case operators.OperatorNull:
		return "must be null"
	case operators.OperatorNNull:
		return "must not be null"
	case operators.OperatorEmpty:
		return "must be empty"
	case operators.OperatorNEmpty:
		return "must not be empty"
	case operators.OperatorRegex:
		return fmt.Sprintf("must match %v", expected)
	case operators.OperatorIntersects, operators.OperatorIntersectsBBox:
		return "must intersect the given geometry"
	case operators.OperatorNIntersects, operators.OperatorNIntersectsBBox:
		return "must not intersect the given geometry"
	}
	return "fails " + op.Key()
}

// ValidateFilter checks payload against node, a filter parsed with
// filter.ForValidation. The error reports a filter that cannot be
// evaluated; violations are reported through the result.
func ValidateFilter(payload map[string]any, node f.Node, opts ...EvaluateOption) (Result, error) {
	v := NewEvaluateVisitor(payload, opts...)
	if node == nil {
		return v.Result(), nil
	}
	if err := node.Accept(v); err != nil {
		return Result{}, err
	}
	return v.Result(), nil
}
