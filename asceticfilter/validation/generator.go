package validation

import (
	"math"
	"regexp"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/schema"
)

type GeneratorOption func(*Generator)

// WithPatterns emits pattern rules. Patterns are a validation-only
// operator, so they are only honoured where the registry allows them.
func WithPatterns() GeneratorOption {
	return func(g *Generator) {
		g.patterns = true
	}
}

type Generator struct {
	registry *operators.Registry
	patterns bool
}

func NewGenerator(registry *operators.Registry, opts ...GeneratorOption) *Generator {
	g := &Generator{registry: registry}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate compiles field constraints into a rule set tagged with version.
// Fields are independent: a broken pattern on one field becomes a rule
// that reports the problem instead of failing generation.
func (g *Generator) Generate(version string, constraints []schema.FieldConstraints) *RuleSet {
	fields := make([]FieldRules, 0, len(constraints))
	for _, c := range constraints {
		fields = append(fields, g.fieldRules(c))
	}
	return newRuleSet(version, fields)
}

func (g *Generator) fieldRules(c schema.FieldConstraints) FieldRules {
	var rules []Rule
	if c.Required {
		rules = append(rules, Rule{Constraint: ConstraintRequired})
	}
	if !c.Nullable {
		rules = append(rules, Rule{Constraint: ConstraintNullable})
	}
	if format, ok := formatFor(c.Type); ok {
		rules = append(rules, Rule{Constraint: ConstraintType, Format: format})
	}
	if r, ok := rangeFor(c); ok {
		rules = append(rules, r)
	}
	if c.Pattern != nil && g.patterns && g.registry.Allows(c.Type, operators.OperatorRegex, true) {
		compiled, err := regexp.Compile(*c.Pattern)
		rules = append(rules, Rule{
			Constraint:   ConstraintPattern,
			Pattern:      *c.Pattern,
			compiled:     compiled,
			compileError: err,
		})
	}
	if c.Relation != nil {
		relation := *c.Relation
		rules = append(rules, Rule{
			Constraint: ConstraintForeignKey,
			External:   true,
			Relation:   &relation,
		})
	}
	return FieldRules{Field: c.Field, Type: c.Type, Rules: rules}
}

// formatFor reports false for unknown types, which get no type rule.
func formatFor(t operators.FieldType) (Format, bool) {
	switch t {
	case operators.TypeString, operators.TypeText, operators.TypeBinary, operators.TypeHash, operators.TypeCSV:
		return FormatString, true
	case operators.TypeUUID:
		return FormatUUID, true
	case operators.TypeInteger, operators.TypeBigInteger:
		return FormatInteger, true
	case operators.TypeDecimal, operators.TypeFloat:
		return FormatNumber, true
	case operators.TypeBoolean:
		return FormatBoolean, true
	case operators.TypeDate:
		return FormatDate, true
	case operators.TypeTime:
		return FormatTime, true
	case operators.TypeDateTime, operators.TypeTimestamp:
		return FormatDateTime, true
	case operators.TypeJSON:
		return FormatJSON, true
	case operators.TypeGeometry:
		return FormatGeometry, true
	}
	return "", false
}

// rangeFor bounds numbers by value and text by length. Temporal bounds are
// not supported.
func rangeFor(c schema.FieldConstraints) (Rule, bool) {
	switch {
	case c.Type.IsNumeric():
		if c.Min == nil && c.Max == nil {
			return Rule{}, false
		}
		return Rule{Constraint: ConstraintRange, Min: copyBound(c.Min), Max: copyBound(c.Max)}, true

	case c.Type.IsText():
		maxLength := copyBound(c.Max)
		if c.MaxLength != nil {
			limit := float64(*c.MaxLength)
			if maxLength == nil || limit < *maxLength {
				maxLength = &limit
			}
		}
		if c.Min == nil && maxLength == nil {
			return Rule{}, false
		}
		var minLength *float64
		if c.Min != nil {
			v := math.Max(*c.Min, 0)
			minLength = &v
		}
		return Rule{Constraint: ConstraintRange, Min: minLength, Max: maxLength, Length: true}, true
	}
	return Rule{}, false
}
