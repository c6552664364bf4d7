package validation

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type Violation struct {
	Field      string
	Constraint Constraint
	Value      any
	Message    string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type Result struct {
	Valid      bool
	Violations []Violation
}

// Err is nil for a valid result and a *multierror.Error otherwise.
func (r Result) Err() error {
	var result error
	for _, v := range r.Violations {
		result = multierror.Append(result, v)
	}
	return result
}

func (r Result) For(field string) []Violation {
	var result []Violation
	for _, v := range r.Violations {
		if v.Field == field {
			result = append(result, v)
		}
	}
	return result
}
