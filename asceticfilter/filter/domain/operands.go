package filter

import (
	"fmt"
	"regexp"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

func (p *Parser) parseOperand(path FieldPath, op operators.Operator, value any, location string) (any, error) {
	switch {
	case op.IsPresence():
		b, ok := value.(bool)
		if !ok {
			return nil, malformedValue(location, path, op, "%s expects a boolean, got %T", op.Key(), value)
		}
		return b, nil

	case op.IsRange():
		items, ok := value.([]any)
		if !ok || len(items) != 2 {
			return nil, malformedValue(location, path, op, "%s expects a list of two bounds", op.Key())
		}
		return p.parseItems(path, op, items, location)

	case op.IsSet():
		// "$CURRENT_ROLES" and similar stand for a whole list.
		if s, ok := value.(string); ok {
			if !dynvar.IsDynamicVariable(s) {
				if _, _, err := dynvar.Parse(s); err != nil {
					return nil, unresolvedVariable(location, path, op, err)
				}
				return nil, malformedValue(location, path, op, "%s expects a list, got a string", op.Key())
			}
			operand, err := p.parseString(path, op, s, location)
			if err != nil {
				return nil, err
			}
			if _, isList := operand.([]any); !isList && p.mode == ResolveImmediate {
				operand = []any{operand}
			}
			return operand, nil
		}
		items, ok := value.([]any)
		if !ok || len(items) == 0 {
			return nil, malformedValue(location, path, op, "%s expects a non-empty list", op.Key())
		}
		return p.parseItems(path, op, items, location)

	case op.IsSpatial():
		if _, err := DecodeGeometry(value); err != nil {
			return nil, malformedValue(location, path, op, "%s expects a GeoJSON geometry: %s", op.Key(), err)
		}
		return copyValue(value), nil

	case op == operators.OperatorRegex:
		s, ok := value.(string)
		if !ok {
			return nil, malformedValue(location, path, op, "%s expects a string, got %T", op.Key(), value)
		}
		if _, err := regexp.Compile(s); err != nil {
			return nil, malformedValue(location, path, op, "%s has an invalid pattern: %s", op.Key(), err)
		}
		return s, nil
	}
	return p.parseScalar(path, op, value, location)
}

func (p *Parser) parseItems(path FieldPath, op operators.Operator, items []any, location string) ([]any, error) {
	result := make([]any, len(items))
	for i, item := range items {
		operand, err := p.parseScalar(path, op, item, fmt.Sprintf("%s[%d]", location, i))
		if err != nil {
			return nil, err
		}
		result[i] = operand
	}
	return result, nil
}

func (p *Parser) parseScalar(path FieldPath, op operators.Operator, value any, location string) (any, error) {
	switch v := value.(type) {
	case []any:
		return nil, malformedValue(location, path, op, "%s expects a single value, got a list", op.Key())
	case map[string]any:
		return nil, malformedValue(location, path, op, "%s expects a single value, got an object", op.Key())
	case string:
		return p.parseString(path, op, v, location)
	}
	return value, nil
}

// parseString turns dynamic variables into tokens, or into their values in
// immediate mode. Any other string is returned unchanged.
func (p *Parser) parseString(path FieldPath, op operators.Operator, s, location string) (any, error) {
	token, ok, err := dynvar.Parse(s)
	if err != nil {
		return nil, unresolvedVariable(location, path, op, err)
	}
	if !ok {
		return s, nil
	}
	if p.mode == ResolveDeferred {
		return token, nil
	}
	value, err := dynvar.Resolve(token, p.variables)
	if err != nil {
		return nil, unresolvedVariable(location, path, op, err)
	}
	return value, nil
}

func unresolvedVariable(location string, path FieldPath, op operators.Operator, cause error) *ParseError {
	return &ParseError{
		Kind:     KindUnresolvedDynamicVariable,
		Location: location,
		Field:    path.String(),
		Operator: op,
		Message:  cause.Error(),
		cause:    cause,
	}
}
