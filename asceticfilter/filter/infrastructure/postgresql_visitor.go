package filter

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

var ErrUnsupportedOperator = errors.New("operator cannot be compiled to SQL")

// DefaultSRID is the spatial reference of GeoJSON operands.
const DefaultSRID = 4326

// Compile renders a filter tree as a PostgreSQL boolean expression with
// $n placeholders. Dynamic variables are resolved first. An absent filter
// compiles to an empty string.
func Compile(node f.Node, opts ...PostgresqlVisitorOption) (sql string, params []any, err error) {
	if node == nil {
		return "", nil, nil
	}
	v := NewPostgresqlVisitor(opts...)
	if f.HasVariables(node) {
		node, err = f.ResolveVariables(node, v.variables)
		if err != nil {
			return "", nil, err
		}
	}
	if err = node.Accept(v); err != nil {
		return "", nil, err
	}
	return v.Result()
}

type PostgresqlVisitorOption func(*PostgresqlVisitor)

func WithColumnMapper(mapper ColumnMapper) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.columns = mapper
	}
}

// WithFieldTypes lets the compiler bind typed parameters (uuid, date).
func WithFieldTypes(lookup f.Lookup) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.types = lookup
	}
}

func WithVariables(ctx dynvar.Context) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.variables = ctx
	}
}

func WithSRID(srid int) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.srid = srid
	}
}

func NewPostgresqlVisitor(opts ...PostgresqlVisitorOption) *PostgresqlVisitor {
	v := &PostgresqlVisitor{
		columns: QuotedColumns,
		srid:    DefaultSRID,
	}
	for i := range opts {
		opts[i](v)
	}
	return v
}

// PostgresqlVisitor builds a squirrel Sqlizer for a tree.
type PostgresqlVisitor struct {
	columns   ColumnMapper
	types     f.Lookup
	variables dynvar.Context
	srid      int
	result    sq.Sqlizer
}

func (v *PostgresqlVisitor) Sqlizer() sq.Sqlizer {
	return v.result
}

func (v *PostgresqlVisitor) Result() (sql string, params []any, err error) {
	if v.result == nil {
		return "", nil, nil
	}
	sql, params, err = v.result.ToSql()
	if err != nil {
		return "", nil, err
	}
	sql, err = sq.Dollar.ReplacePlaceholders(sql)
	if err != nil {
		return "", nil, err
	}
	return sql, params, nil
}

func (v *PostgresqlVisitor) VisitLogical(n f.LogicalNode) error {
	children := n.Children()
	parts := make([]sq.Sqlizer, len(children))
	for i, child := range children {
		if err := child.Accept(v); err != nil {
			return err
		}
		parts[i] = v.result
	}
	switch n.Combinator() {
	case f.CombinatorOr:
		v.result = sq.Or(parts)
	default:
		v.result = sq.And(parts)
	}
	return nil
}

func (v *PostgresqlVisitor) VisitCondition(n f.ConditionNode) error {
	column, err := v.columns.Column(n.Path())
	if err != nil {
		return err
	}
	fieldType := operators.TypeUnknown
	if v.types != nil {
		if t, ok := v.types.Resolve(n.Path().String()); ok {
			fieldType = t
		}
	}
	expr, err := v.condition(column, fieldType, n.Operator(), n.Value())
	if err != nil {
		return fmt.Errorf("%s %s: %w", n.Path(), n.Operator().Key(), err)
	}
	v.result = expr
	return nil
}

var comparisons = map[operators.Operator]string{
	operators.OperatorEq:  "=",
	operators.OperatorNeq: "<>",
	operators.OperatorLt:  "<",
	operators.OperatorLte: "<=",
	operators.OperatorGt:  ">",
	operators.OperatorGte: ">=",
}

type likeShape struct {
	prefix, suffix string
	keyword        string
}

var likes = map[operators.Operator]likeShape{
	operators.OperatorContains:     {"%", "%", "LIKE"},
	operators.OperatorNContains:    {"%", "%", "NOT LIKE"},
	operators.OperatorIContains:    {"%", "%", "ILIKE"},
	operators.OperatorNIContains:   {"%", "%", "NOT ILIKE"},
	operators.OperatorStartsWith:   {"", "%", "LIKE"},
	operators.OperatorNStartsWith:  {"", "%", "NOT LIKE"},
	operators.OperatorIStartsWith:  {"", "%", "ILIKE"},
	operators.OperatorNIStartsWith: {"", "%", "NOT ILIKE"},
	operators.OperatorEndsWith:     {"%", "", "LIKE"},
	operators.OperatorNEndsWith:    {"%", "", "NOT LIKE"},
	operators.OperatorIEndsWith:    {"%", "", "ILIKE"},
	operators.OperatorNIEndsWith:   {"%", "", "NOT ILIKE"},
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// textual casts timestamp columns so pattern and emptiness tests apply
// to their text form.
func textual(column string, t operators.FieldType) string {
	if t == operators.TypeTimestamp {
		return column + "::text"
	}
	return column
}

func (v *PostgresqlVisitor) condition(column string, t operators.FieldType, op operators.Operator, value any) (sq.Sqlizer, error) {
	if symbol, ok := comparisons[op]; ok {
		return v.comparison(column, t, op, symbol, value)
	}
	if shape, ok := likes[op]; ok {
		column = textual(column, t)
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		pattern := shape.prefix + likeEscaper.Replace(s) + shape.suffix
		return sq.Expr(fmt.Sprintf("%s %s ?", column, shape.keyword), pattern), nil
	}

	switch op {
	case operators.OperatorIn, operators.OperatorNin:
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		return v.membership(column, t, op == operators.OperatorNin, items)

	case operators.OperatorBetween, operators.OperatorNBetween:
		bounds, ok := value.([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("expected two bounds, got %v", value)
		}
		args, err := params(t, bounds)
		if err != nil {
			return nil, err
		}
		keyword := "BETWEEN"
		if op == operators.OperatorNBetween {
			keyword = "NOT BETWEEN"
		}
		return sq.Expr(fmt.Sprintf("%s %s ? AND ?", column, keyword), args...), nil

	case operators.OperatorNull, operators.OperatorNNull:
		want, _ := value.(bool)
		if op == operators.OperatorNNull {
			want = !want
		}
		if want {
			return sq.Expr(column + " IS NULL"), nil
		}
		return sq.Expr(column + " IS NOT NULL"), nil

	case operators.OperatorEmpty, operators.OperatorNEmpty:
		want, _ := value.(bool)
		if op == operators.OperatorNEmpty {
			want = !want
		}
		column = textual(column, t)
		if want {
			return sq.Expr(fmt.Sprintf("(%s IS NULL OR %s = '')", column, column)), nil
		}
		return sq.Expr(fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", column, column)), nil

	case operators.OperatorIntersects, operators.OperatorNIntersects,
		operators.OperatorIntersectsBBox, operators.OperatorNIntersectsBBox:
		return v.spatial(column, op, value)
	}
	return nil, ErrUnsupportedOperator
}

func (v *PostgresqlVisitor) comparison(column string, t operators.FieldType, op operators.Operator, symbol string, value any) (sq.Sqlizer, error) {
	// Immediate resolution of "$CURRENT_ROLES" under _eq leaves a list.
	if items, ok := value.([]any); ok && (op == operators.OperatorEq || op == operators.OperatorNeq) {
		return v.membership(column, t, op == operators.OperatorNeq, items)
	}
	if value == nil {
		switch op {
		case operators.OperatorEq:
			return sq.Expr(column + " IS NULL"), nil
		case operators.OperatorNeq:
			return sq.Expr(column + " IS NOT NULL"), nil
		}
		return nil, fmt.Errorf("null operand")
	}
	arg, err := param(t, value)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("%s %s ?", column, symbol), arg), nil
}

func (v *PostgresqlVisitor) membership(column string, t operators.FieldType, negated bool, items []any) (sq.Sqlizer, error) {
	if len(items) == 0 {
		if negated {
			return sq.Expr("TRUE"), nil
		}
		return sq.Expr("FALSE"), nil
	}
	args, err := params(t, items)
	if err != nil {
		return nil, err
	}
	keyword := "IN"
	if negated {
		keyword = "NOT IN"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	return sq.Expr(fmt.Sprintf("%s %s (%s)", column, keyword, placeholders), args...), nil
}

func (v *PostgresqlVisitor) spatial(column string, op operators.Operator, value any) (sq.Sqlizer, error) {
	wkb, err := f.EncodeWKB(value)
	if err != nil {
		return nil, err
	}
	geometry := fmt.Sprintf("ST_GeomFromWKB(?, %d)", v.srid)
	switch op {
	case operators.OperatorIntersects:
		return sq.Expr(fmt.Sprintf("ST_Intersects(%s, %s)", column, geometry), wkb), nil
	case operators.OperatorNIntersects:
		return sq.Expr(fmt.Sprintf("NOT ST_Intersects(%s, %s)", column, geometry), wkb), nil
	case operators.OperatorIntersectsBBox:
		return sq.Expr(fmt.Sprintf("%s && %s", column, geometry), wkb), nil
	default:
		return sq.Expr(fmt.Sprintf("NOT (%s && %s)", column, geometry), wkb), nil
	}
}
