package dynvar

import (
	"errors"
	"fmt"
)

var ErrUnresolved = errors.New("dynvar: unresolved dynamic variable")

// Error reports a known dynamic variable that cannot be parsed or resolved.
type Error struct {
	Token  string
	Reason string
}

func newError(token, reason string) *Error {
	return &Error{Token: token, Reason: reason}
}

func (e *Error) Error() string {
	return fmt.Sprintf("dynamic variable %s: %s", e.Token, e.Reason)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnresolved
}
