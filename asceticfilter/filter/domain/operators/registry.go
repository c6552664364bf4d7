package operators

// Registry maps field types to their legal operators. It is filled once by
// NewDefaultRegistry and only read afterwards, so a single instance can be
// shared by concurrent parsers and generators.
type Registry struct {
	query          map[FieldType]OperatorSet
	validationOnly map[FieldType]OperatorSet
	fallback       FieldType
}

func newRegistry(fallback FieldType) *Registry {
	return &Registry{
		query:          make(map[FieldType]OperatorSet),
		validationOnly: make(map[FieldType]OperatorSet),
		fallback:       fallback,
	}
}

func (r *Registry) register(set OperatorSet, types ...FieldType) {
	for _, t := range types {
		r.query[t] = set
	}
}

func (r *Registry) registerValidationOnly(set OperatorSet, types ...FieldType) {
	for _, t := range types {
		r.validationOnly[t] = set
	}
}

// OperatorsFor returns the operators legal for t. Operators reserved for
// payload validation (such as regex) are only included when
// includeValidationOnly is set; filters compiled for query execution must
// pass false.
func (r *Registry) OperatorsFor(t FieldType, includeValidationOnly bool) OperatorSet {
	set, ok := r.query[t]
	if !ok {
		t = r.fallback
		set = r.query[t]
	}
	if !includeValidationOnly {
		return set.Union(OperatorSet{})
	}
	return set.Union(r.validationOnly[t])
}

// Allows is a shorthand for OperatorsFor(t, includeValidationOnly).Has(op).
func (r *Registry) Allows(t FieldType, op Operator, includeValidationOnly bool) bool {
	return r.OperatorsFor(t, includeValidationOnly).Has(op)
}

// IsValidationOnly reports whether op is legal for t only in validation rules.
func (r *Registry) IsValidationOnly(t FieldType, op Operator) bool {
	return !r.Allows(t, op, false) && r.Allows(t, op, true)
}
