package validation

import (
	"regexp"
	"sort"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/schema"
)

type Constraint string

const (
	ConstraintRequired   Constraint = "required"
	ConstraintNullable   Constraint = "nullable"
	ConstraintType       Constraint = "type"
	ConstraintRange      Constraint = "range"
	ConstraintPattern    Constraint = "pattern"
	ConstraintForeignKey Constraint = "foreign_key"
)

// Format is the shape a non-null value must have.
type Format string

const (
	FormatString   Format = "string"
	FormatUUID     Format = "uuid"
	FormatInteger  Format = "integer"
	FormatNumber   Format = "number"
	FormatBoolean  Format = "boolean"
	FormatDate     Format = "date"
	FormatTime     Format = "time"
	FormatDateTime Format = "datetime"
	FormatJSON     Format = "json"
	FormatGeometry Format = "geometry"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Rule is one check on one field. Only the members relevant to its
// Constraint are set.
type Rule struct {
	Constraint Constraint

	Format Format

	// Range bounds apply to the value, or to its length when Length is set.
	Min    *float64
	Max    *float64
	Length bool

	Pattern      string
	compiled     *regexp.Regexp
	compileError error

	// External rules are recorded for the caller and never checked here.
	External bool
	Relation *schema.Relation
}

func (r Rule) clone() Rule {
	r.Min = copyBound(r.Min)
	r.Max = copyBound(r.Max)
	if r.Relation != nil {
		relation := *r.Relation
		r.Relation = &relation
	}
	return r
}

func copyBound(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// PatternError is the compile error of a pattern rule, if any.
func (r Rule) PatternError() error {
	return r.compileError
}

type FieldRules struct {
	Field string
	Type  operators.FieldType
	Rules []Rule
}

func (f FieldRules) Rule(c Constraint) (Rule, bool) {
	for _, r := range f.Rules {
		if r.Constraint == c {
			return r, true
		}
	}
	return Rule{}, false
}

func (f FieldRules) Has(c Constraint) bool {
	_, ok := f.Rule(c)
	return ok
}

// RuleSet is immutable and safe for concurrent use.
type RuleSet struct {
	version string
	fields  map[string]FieldRules
	order   []string
}

func newRuleSet(version string, fields []FieldRules) *RuleSet {
	rs := &RuleSet{
		version: version,
		fields:  make(map[string]FieldRules, len(fields)),
	}
	for _, f := range fields {
		if _, exists := rs.fields[f.Field]; !exists {
			rs.order = append(rs.order, f.Field)
		}
		rs.fields[f.Field] = f
	}
	sort.Strings(rs.order)
	return rs
}

func (rs *RuleSet) Version() string {
	return rs.version
}

func (rs *RuleSet) Fields() []string {
	result := make([]string, len(rs.order))
	copy(result, rs.order)
	return result
}

func (rs *RuleSet) Field(name string) (FieldRules, bool) {
	f, ok := rs.fields[name]
	if !ok {
		return FieldRules{}, false
	}
	rules := make([]Rule, len(f.Rules))
	for i, r := range f.Rules {
		rules[i] = r.clone()
	}
	f.Rules = rules
	return f, true
}

func (rs *RuleSet) Len() int {
	return len(rs.order)
}
