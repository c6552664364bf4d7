package dynvar

import "time"

// Accountability describes who a filter is evaluated for.
type Accountability struct {
	User     string
	Role     string
	Roles    []string
	Policies []string

	// UserFields and RoleFields back "$CURRENT_USER.<path>" and
	// "$CURRENT_ROLE.<path>"; nested objects are map[string]any.
	UserFields map[string]any
	RoleFields map[string]any
}

// Context carries the runtime values a Token resolves against.
type Context struct {
	Now            func() time.Time
	Accountability *Accountability
}

func (c Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Resolve returns the runtime value of t.
func Resolve(t Token, ctx Context) (any, error) {
	switch t.function {
	case FunctionNow:
		now := ctx.now()
		if len(t.args) == 0 || t.args[0] == "" {
			return now, nil
		}
		offset, err := ParseOffset(t.args[0])
		if err != nil {
			return nil, newError(t.raw, err.Error())
		}
		return offset.Apply(now), nil

	case FunctionCurrentUser:
		acc := ctx.Accountability
		if acc == nil || acc.User == "" {
			return nil, newError(t.raw, "no current user")
		}
		if len(t.path) == 0 {
			return acc.User, nil
		}
		return lookupPath(acc.UserFields, t.path), nil

	case FunctionCurrentRole:
		acc := ctx.Accountability
		if acc == nil || acc.Role == "" {
			return nil, newError(t.raw, "no current role")
		}
		if len(t.path) == 0 {
			return acc.Role, nil
		}
		return lookupPath(acc.RoleFields, t.path), nil

	case FunctionCurrentRoles:
		if ctx.Accountability == nil {
			return nil, newError(t.raw, "no accountability")
		}
		return toAnySlice(ctx.Accountability.Roles), nil

	case FunctionCurrentPolicies:
		if ctx.Accountability == nil {
			return nil, newError(t.raw, "no accountability")
		}
		return toAnySlice(ctx.Accountability.Policies), nil
	}
	return nil, newError(t.raw, "unknown function")
}

// A missing segment resolves to nil, matching an absent field on the record.
func lookupPath(fields map[string]any, path []string) any {
	var current any = fields
	for _, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

func toAnySlice(items []string) []any {
	result := make([]any, len(items))
	for i, item := range items {
		result[i] = item
	}
	return result
}
