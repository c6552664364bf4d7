package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

type ErrorKind string

const (
	KindUnknownField              ErrorKind = "UnknownField"
	KindIllegalOperator           ErrorKind = "IllegalOperator"
	KindMalformedValue            ErrorKind = "MalformedValue"
	KindUnresolvedDynamicVariable ErrorKind = "UnresolvedDynamicVariable"
	KindStructural                ErrorKind = "StructuralError"
)

var (
	ErrUnknownField              = errors.New("filter: unknown field")
	ErrIllegalOperator           = errors.New("filter: illegal operator")
	ErrMalformedValue            = errors.New("filter: malformed value")
	ErrUnresolvedDynamicVariable = errors.New("filter: unresolved dynamic variable")
	ErrStructural                = errors.New("filter: structural error")
)

var kindSentinels = map[ErrorKind]error{
	KindUnknownField:              ErrUnknownField,
	KindIllegalOperator:           ErrIllegalOperator,
	KindMalformedValue:            ErrMalformedValue,
	KindUnresolvedDynamicVariable: ErrUnresolvedDynamicVariable,
	KindStructural:                ErrStructural,
}

// ParseError is returned for any rejected filter. Location points into the
// raw input (e.g. "_and[1].author.name._eq"); Field, Operator and FieldType
// are set when the error concerns a specific condition.
type ParseError struct {
	Kind      ErrorKind
	Location  string
	Field     string
	Operator  operators.Operator
	FieldType operators.FieldType
	Message   string
	cause     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Location != "" {
		fmt.Fprintf(&b, " at %s", e.Location)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ParseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *ParseError) Unwrap() error {
	return e.cause
}

func structuralError(location, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:     KindStructural,
		Location: location,
		Message:  fmt.Sprintf(format, args...),
	}
}

func malformedValue(location string, path FieldPath, op operators.Operator, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:     KindMalformedValue,
		Location: location,
		Field:    path.String(),
		Operator: op,
		Message:  fmt.Sprintf(format, args...),
	}
}
