package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// Lookup resolves a dot-joined field path to its type. Implementations must
// be safe for concurrent use.
type Lookup interface {
	Resolve(path string) (operators.FieldType, bool)
}

type LookupFunc func(path string) (operators.FieldType, bool)

func (f LookupFunc) Resolve(path string) (operators.FieldType, bool) {
	return f(path)
}

type Mode int

const (
	// ResolveDeferred keeps dynamic variables as tokens in the tree.
	ResolveDeferred Mode = iota
	// ResolveImmediate substitutes them while parsing.
	ResolveImmediate
)

func (m Mode) String() string {
	switch m {
	case ResolveImmediate:
		return "immediate"
	default:
		return "deferred"
	}
}

type Limits struct {
	MaxDepth      int
	MaxWidth      int
	MaxConditions int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      32,
		MaxWidth:      512,
		MaxConditions: 4096,
	}
}

type ParserOption func(*Parser)

func WithMode(mode Mode) ParserOption {
	return func(p *Parser) {
		p.mode = mode
	}
}

func WithVariables(ctx dynvar.Context) ParserOption {
	return func(p *Parser) {
		p.variables = ctx
	}
}

// ForValidation admits validation-only operators such as _regex.
func ForValidation() ParserOption {
	return func(p *Parser) {
		p.includeValidationOnly = true
	}
}

func WithLimits(limits Limits) ParserOption {
	return func(p *Parser) {
		p.limits = limits
	}
}

// Parser turns raw filter objects into trees. It holds no per-call state
// and may be shared between goroutines.
type Parser struct {
	registry              *operators.Registry
	lookup                Lookup
	mode                  Mode
	variables             dynvar.Context
	includeValidationOnly bool
	limits                Limits
}

func NewParser(registry *operators.Registry, lookup Lookup, opts ...ParserOption) *Parser {
	p := &Parser{
		registry: registry,
		lookup:   lookup,
		limits:   DefaultLimits(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Mode() Mode {
	return p.mode
}

// Parse returns nil for an absent or empty filter.
func (p *Parser) Parse(raw any) (Node, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, structuralError("", "filter must be an object, got %T", raw)
	}
	if len(obj) == 0 {
		return nil, nil
	}
	state := &parseState{}
	node, err := p.parseFilter(obj, "", 1, state)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) ParseJSON(data []byte) (Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{
			Kind:    KindStructural,
			Message: fmt.Sprintf("invalid JSON: %s", err),
			cause:   err,
		}
	}
	return p.Parse(raw)
}

type parseState struct {
	conditions int
}

func (p *Parser) checkDepth(location string, depth int) error {
	if p.limits.MaxDepth > 0 && depth > p.limits.MaxDepth {
		return structuralError(location, "nesting depth exceeds %d", p.limits.MaxDepth)
	}
	return nil
}

func (p *Parser) checkWidth(location string, width int) error {
	if p.limits.MaxWidth > 0 && width > p.limits.MaxWidth {
		return structuralError(location, "%d entries exceed the limit of %d", width, p.limits.MaxWidth)
	}
	return nil
}

func (p *Parser) parseFilter(obj map[string]any, location string, depth int, state *parseState) (Node, error) {
	if err := p.checkDepth(location, depth); err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, structuralError(location, "empty filter object")
	}
	if err := p.checkWidth(location, len(obj)); err != nil {
		return nil, err
	}

	var nodes []Node
	for _, key := range sortedKeys(obj) {
		keyLocation := joinLocation(location, key)
		switch {
		case key == string(CombinatorAnd) || key == string(CombinatorOr):
			node, err := p.parseLogical(Combinator(key), obj[key], keyLocation, depth+1, state)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		case strings.HasPrefix(key, operators.KeyPrefix):
			if _, ok := operators.ParseOperatorKey(key); ok {
				return nil, structuralError(keyLocation, "operator %s must be applied to a field", key)
			}
			return nil, structuralError(keyLocation, "unknown key %s", key)
		default:
			path, err := splitFieldKey(key, keyLocation)
			if err != nil {
				return nil, err
			}
			leaves, err := p.parseField(path, obj[key], keyLocation, depth+1, state)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, leaves...)
		}
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return And(nodes...), nil
}

func (p *Parser) parseLogical(combinator Combinator, value any, location string, depth int, state *parseState) (Node, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, structuralError(location, "%s expects a list, got %T", combinator, value)
	}
	if len(items) == 0 {
		return nil, structuralError(location, "%s expects a non-empty list", combinator)
	}
	if err := p.checkWidth(location, len(items)); err != nil {
		return nil, err
	}
	children := make([]Node, len(items))
	for i, item := range items {
		itemLocation := fmt.Sprintf("%s[%d]", location, i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, structuralError(itemLocation, "%s items must be objects, got %T", combinator, item)
		}
		child, err := p.parseFilter(obj, itemLocation, depth, state)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return NewLogicalNode(combinator, children...), nil
}

func (p *Parser) parseField(path FieldPath, value any, location string, depth int, state *parseState) ([]Node, error) {
	if err := p.checkDepth(location, depth); err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, structuralError(location, "field %s expects an object, got %T", path, value)
	}
	if len(obj) == 0 {
		return nil, structuralError(location, "field %s has an empty object", path)
	}
	if err := p.checkWidth(location, len(obj)); err != nil {
		return nil, err
	}

	keys := sortedKeys(obj)
	var opKeys, fieldKeys []string
	for _, key := range keys {
		if strings.HasPrefix(key, operators.KeyPrefix) {
			opKeys = append(opKeys, key)
		} else {
			fieldKeys = append(fieldKeys, key)
		}
	}
	if len(opKeys) > 0 && len(fieldKeys) > 0 {
		return nil, structuralError(location,
			"cannot mix operators and fields under %s. Operators: %v, Fields: %v", path, opKeys, fieldKeys)
	}

	var nodes []Node
	if len(fieldKeys) > 0 {
		for _, key := range fieldKeys {
			keyLocation := joinLocation(location, key)
			segments, err := splitFieldKey(key, keyLocation)
			if err != nil {
				return nil, err
			}
			nested := make(FieldPath, 0, len(path)+len(segments))
			nested = append(append(nested, path...), segments...)
			leaves, err := p.parseField(nested, obj[key], keyLocation, depth+1, state)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, leaves...)
		}
		return nodes, nil
	}

	fieldType, found := p.lookup.Resolve(path.String())
	if !found {
		return nil, &ParseError{
			Kind:     KindUnknownField,
			Location: location,
			Field:    path.String(),
			Message:  fmt.Sprintf("field %s does not exist", path),
		}
	}
	for _, key := range opKeys {
		keyLocation := joinLocation(location, key)
		if key == string(CombinatorAnd) || key == string(CombinatorOr) {
			return nil, structuralError(keyLocation, "%s is not allowed under field %s", key, path)
		}
		op, ok := operators.ParseOperatorKey(key)
		if !ok {
			return nil, structuralError(keyLocation, "unknown operator %s", key)
		}
		if !p.registry.Allows(fieldType, op, p.includeValidationOnly) {
			return nil, &ParseError{
				Kind:      KindIllegalOperator,
				Location:  keyLocation,
				Field:     path.String(),
				Operator:  op,
				FieldType: fieldType,
				Message:   fmt.Sprintf("operator %s is not allowed on field %s of type %s", key, path, fieldType),
			}
		}
		operand, err := p.parseOperand(path, op, obj[key], keyLocation)
		if err != nil {
			return nil, err
		}
		state.conditions++
		if p.limits.MaxConditions > 0 && state.conditions > p.limits.MaxConditions {
			return nil, structuralError(keyLocation, "more than %d conditions", p.limits.MaxConditions)
		}
		nodes = append(nodes, ConditionNode{path: path.clone(), operator: op, value: operand})
	}
	return nodes, nil
}

// splitFieldKey expands "author.name" into its segments.
func splitFieldKey(key, location string) (FieldPath, error) {
	segments := strings.Split(key, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, structuralError(location, "invalid field path %q", key)
		}
		if strings.HasPrefix(segment, operators.KeyPrefix) {
			return nil, structuralError(location, "field path %q contains a reserved segment", key)
		}
	}
	return segments, nil
}

func joinLocation(location, key string) string {
	if location == "" {
		return key
	}
	return location + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
