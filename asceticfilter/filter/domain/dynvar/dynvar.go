// Package dynvar recognizes and resolves dynamic variables embedded in filter
// values, such as "$NOW(-1 day)" or "$CURRENT_USER.department".
package dynvar

import (
	"regexp"
	"strings"
)

const Marker = "$"

type Function string

const (
	FunctionNow             Function = "NOW"
	FunctionCurrentUser     Function = "CURRENT_USER"
	FunctionCurrentRole     Function = "CURRENT_ROLE"
	FunctionCurrentRoles    Function = "CURRENT_ROLES"
	FunctionCurrentPolicies Function = "CURRENT_POLICIES"
)

var knownFunctions = map[Function]struct{}{
	FunctionNow:             {},
	FunctionCurrentUser:     {},
	FunctionCurrentRole:     {},
	FunctionCurrentRoles:    {},
	FunctionCurrentPolicies: {},
}

func (f Function) IsKnown() bool {
	_, ok := knownFunctions[f]
	return ok
}

func (f Function) acceptsPath() bool {
	return f == FunctionCurrentUser || f == FunctionCurrentRole
}

// $NAME, $NAME(args), $NAME.path.to.field
var tokenPattern = regexp.MustCompile(`^\$([A-Z][A-Z_]*)(?:\(([^()]*)\))?((?:\.[A-Za-z0-9_]+)*)$`)

// Token is an unresolved dynamic variable. Tokens are immutable values and
// String returns the exact text they were parsed from.
type Token struct {
	function Function
	args     []string
	path     []string
	raw      string
}

func (t Token) Function() Function {
	return t.function
}

func (t Token) Args() []string {
	result := make([]string, len(t.args))
	copy(result, t.args)
	return result
}

func (t Token) Path() []string {
	result := make([]string, len(t.path))
	copy(result, t.path)
	return result
}

func (t Token) String() string {
	return t.raw
}

// Offset returns the parsed time offset of a $NOW token.
func (t Token) Offset() (Offset, bool) {
	if t.function != FunctionNow || len(t.args) == 0 {
		return Offset{}, false
	}
	offset, err := ParseOffset(t.args[0])
	if err != nil {
		return Offset{}, false
	}
	return offset, true
}

// Parse recognizes s as a dynamic variable. Strings that look like a
// variable but name an unknown function are not variables: ok is false and
// the caller keeps them as literal strings. A known function with malformed
// arguments is an error.
func Parse(s string) (token Token, ok bool, err error) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return Token{}, false, nil
	}
	fn := Function(m[1])
	if !fn.IsKnown() {
		return Token{}, false, nil
	}

	token = Token{function: fn, raw: s}
	if m[2] != "" {
		for _, arg := range strings.Split(m[2], ",") {
			token.args = append(token.args, strings.TrimSpace(arg))
		}
	}
	if m[3] != "" {
		token.path = strings.Split(strings.TrimPrefix(m[3], "."), ".")
	}

	switch {
	case fn == FunctionNow && len(token.args) > 1:
		return Token{}, false, newError(s, "$NOW takes at most one offset argument")
	case fn == FunctionNow && len(token.args) == 1:
		if _, err := ParseOffset(token.args[0]); err != nil {
			return Token{}, false, newError(s, err.Error())
		}
	case fn != FunctionNow && len(token.args) > 0:
		return Token{}, false, newError(s, "$"+string(fn)+" takes no arguments")
	}
	if len(token.path) > 0 && !fn.acceptsPath() {
		return Token{}, false, newError(s, "$"+string(fn)+" does not support field paths")
	}
	return token, true, nil
}

// IsDynamicVariable reports whether value is a string naming a known
// dynamic variable with well-formed arguments.
func IsDynamicVariable(value any) bool {
	s, ok := value.(string)
	if !ok || !strings.HasPrefix(s, Marker) {
		return false
	}
	_, ok, err := Parse(s)
	return ok && err == nil
}
