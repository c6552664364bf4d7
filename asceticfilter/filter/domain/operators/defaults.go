package operators

var textOperators = []Operator{
	OperatorContains, OperatorNContains, OperatorIContains,
	OperatorStartsWith, OperatorNStartsWith, OperatorIStartsWith, OperatorNIStartsWith,
	OperatorEndsWith, OperatorNEndsWith, OperatorIEndsWith, OperatorNIEndsWith,
	OperatorEq, OperatorNeq,
	OperatorEmpty, OperatorNEmpty,
	OperatorNull, OperatorNNull,
	OperatorIn, OperatorNin,
}

// Numbers and date/time values share the ordered set.
var orderedOperators = []Operator{
	OperatorEq, OperatorNeq,
	OperatorLt, OperatorLte, OperatorGt, OperatorGte,
	OperatorBetween, OperatorNBetween,
	OperatorNull, OperatorNNull,
	OperatorIn, OperatorNin,
}

var broadestOperators = []Operator{
	OperatorContains, OperatorNContains,
	OperatorEq, OperatorNeq,
	OperatorLt, OperatorLte, OperatorGt, OperatorGte,
	OperatorBetween, OperatorNBetween,
	OperatorEmpty, OperatorNEmpty,
	OperatorNull, OperatorNNull,
	OperatorIn, OperatorNin,
}

// NewDefaultRegistry creates the registry for the built-in field types.
// Types the table does not name resolve to the broadest set.
func NewDefaultRegistry() *Registry {
	reg := newRegistry(TypeUnknown)

	// text
	reg.register(NewOperatorSet(textOperators...), TypeString, TypeText, TypeBinary, TypeCSV)
	reg.registerValidationOnly(NewOperatorSet(OperatorRegex), TypeString, TypeText, TypeBinary, TypeCSV)

	// hashes are never compared by value
	reg.register(NewOperatorSet(OperatorEmpty, OperatorNEmpty, OperatorNull, OperatorNNull), TypeHash)

	reg.register(NewOperatorSet(OperatorEq, OperatorNeq, OperatorNull, OperatorNNull, OperatorIn, OperatorNin), TypeUUID)
	reg.register(NewOperatorSet(OperatorNull, OperatorNNull), TypeJSON)
	reg.register(NewOperatorSet(OperatorEq, OperatorNeq, OperatorNull, OperatorNNull), TypeBoolean)

	// numbers
	reg.register(NewOperatorSet(orderedOperators...), TypeInteger, TypeBigInteger, TypeDecimal, TypeFloat)

	// date and time; timestamp is not among them and gets the broadest set
	reg.register(NewOperatorSet(orderedOperators...), TypeDate, TypeTime, TypeDateTime)

	reg.register(NewOperatorSet(
		OperatorEq, OperatorNeq, OperatorNull, OperatorNNull,
		OperatorIntersects, OperatorNIntersects, OperatorIntersectsBBox, OperatorNIntersectsBBox,
	), TypeGeometry)

	reg.register(NewOperatorSet(broadestOperators...), TypeUnknown, TypeTimestamp)
	reg.registerValidationOnly(NewOperatorSet(OperatorRegex), TypeUnknown, TypeTimestamp)

	return reg
}
