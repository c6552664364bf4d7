package validation

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

// Validator checks payloads against rule sets. It is safe for concurrent
// use; the zero value is not usable, use NewValidator.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	return &Validator{validate: validate, trans: trans}
}

var (
	defaultValidator     *Validator
	defaultValidatorOnce sync.Once
)

// Validate uses a shared Validator.
func Validate(payload map[string]any, rs *RuleSet) Result {
	defaultValidatorOnce.Do(func() {
		defaultValidator = NewValidator()
	})
	return defaultValidator.Validate(payload, rs)
}

// Validate checks every field of rs independently. Violations are ordered
// by field, then by rule.
func (v *Validator) Validate(payload map[string]any, rs *RuleSet) Result {
	var violations []Violation
	for _, field := range rs.order {
		violations = append(violations, v.validateField(payload, rs.fields[field])...)
	}
	return Result{Valid: len(violations) == 0, Violations: violations}
}

func (v *Validator) validateField(payload map[string]any, fr FieldRules) []Violation {
	value, present := lookupValue(payload, fr.Field)
	var violations []Violation
	violate := func(c Constraint, format string, args ...any) {
		violations = append(violations, Violation{
			Field:      fr.Field,
			Constraint: c,
			Value:      value,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	if !present {
		if fr.Has(ConstraintRequired) {
			violate(ConstraintRequired, "%s is a required field", fr.Field)
		}
		return violations
	}
	if value == nil {
		if fr.Has(ConstraintNullable) {
			violate(ConstraintNullable, "%s must not be null", fr.Field)
		}
		return violations
	}

	typeOK := true
	for _, rule := range fr.Rules {
		switch rule.Constraint {
		case ConstraintType:
			if msg := v.checkFormat(rule.Format, value); msg != "" {
				typeOK = false
				violate(ConstraintType, "%s %s", fr.Field, msg)
			}
		case ConstraintRange:
			if !typeOK {
				continue
			}
			if msg := v.checkRange(rule, value); msg != "" {
				violate(ConstraintRange, "%s %s", fr.Field, msg)
			}
		case ConstraintPattern:
			if !typeOK {
				continue
			}
			if rule.compileError != nil {
				violate(ConstraintPattern, "%s has an invalid pattern %q: %s", fr.Field, rule.Pattern, rule.compileError)
				continue
			}
			s, ok := value.(string)
			if ok && !rule.compiled.MatchString(s) {
				violate(ConstraintPattern, "%s must match %s", fr.Field, rule.Pattern)
			}
		}
	}
	return violations
}

// lookupValue follows dotted paths through nested objects.
func lookupValue(payload map[string]any, path string) (any, bool) {
	if value, ok := payload[path]; ok {
		return value, true
	}
	segments := strings.Split(path, ".")
	if len(segments) == 1 {
		return nil, false
	}
	var current any = payload
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// checkFormat returns an empty string when value has the format.
func (v *Validator) checkFormat(format Format, value any) string {
	switch format {
	case FormatString:
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
	case FormatUUID:
		return v.checkString(value, "uuid")
	case FormatInteger:
		n, ok := toFloat(value)
		if !ok || n != math.Trunc(n) {
			return "must be an integer"
		}
	case FormatNumber:
		if _, ok := toFloat(value); !ok {
			return "must be a number"
		}
	case FormatBoolean:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	case FormatDate:
		if _, ok := value.(time.Time); ok {
			return ""
		}
		return v.checkString(value, "datetime="+dateLayout)
	case FormatTime:
		return v.checkString(value, "datetime="+timeLayout)
	case FormatDateTime:
		if _, ok := value.(time.Time); ok {
			return ""
		}
		return v.checkString(value, "datetime="+time.RFC3339)
	case FormatJSON:
		if !isJSONValue(value) {
			return "must be a JSON value"
		}
	case FormatGeometry:
		if _, err := f.DecodeGeometry(value); err != nil {
			return fmt.Sprintf("must be a GeoJSON geometry: %s", err)
		}
	}
	return ""
}

func (v *Validator) checkString(value any, tag string) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	return v.check(s, tag)
}

// check runs a validator tag against a single value and returns the
// translated message without the leading field name.
func (v *Validator) check(value any, tag string) string {
	err := v.validate.Var(value, tag)
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	return strings.TrimSpace(errs[0].Translate(v.trans))
}

func (v *Validator) checkRange(rule Rule, value any) string {
	var subject any
	if rule.Length {
		s, ok := value.(string)
		if !ok {
			return ""
		}
		// Lengths count characters, not bytes.
		subject = s
	} else {
		n, ok := toFloat(value)
		if !ok {
			return ""
		}
		subject = n
	}
	if rule.Min != nil {
		if msg := v.check(subject, "min="+formatBound(*rule.Min, rule.Length)); msg != "" {
			return msg
		}
	}
	if rule.Max != nil {
		if msg := v.check(subject, "max="+formatBound(*rule.Max, rule.Length)); msg != "" {
			return msg
		}
	}
	return ""
}

func formatBound(bound float64, length bool) string {
	if length {
		return strconv.Itoa(int(bound))
	}
	return strconv.FormatFloat(bound, 'f', -1, 64)
}

func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isJSONValue(value any) bool {
	switch v := value.(type) {
	case nil, bool, string:
		return true
	case []any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range v {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	}
	_, ok := toFloat(value)
	return ok
}
