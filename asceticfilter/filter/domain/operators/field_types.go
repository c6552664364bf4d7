package operators

// FieldType is the declared type of a field, as supplied by the schema layer.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeText       FieldType = "text"
	TypeBinary     FieldType = "binary"
	TypeHash       FieldType = "hash"
	TypeUUID       FieldType = "uuid"
	TypeJSON       FieldType = "json"
	TypeBoolean    FieldType = "boolean"
	TypeInteger    FieldType = "integer"
	TypeBigInteger FieldType = "bigInteger"
	TypeDecimal    FieldType = "decimal"
	TypeFloat      FieldType = "float"
	TypeDate       FieldType = "date"
	TypeTime       FieldType = "time"
	TypeDateTime   FieldType = "dateTime"
	TypeTimestamp  FieldType = "timestamp"
	TypeGeometry   FieldType = "geometry"
	TypeCSV        FieldType = "csv"
	TypeUnknown    FieldType = "unknown"
)

var allFieldTypes = []FieldType{
	TypeString, TypeText, TypeBinary, TypeHash, TypeUUID, TypeJSON, TypeBoolean,
	TypeInteger, TypeBigInteger, TypeDecimal, TypeFloat,
	TypeDate, TypeTime, TypeDateTime, TypeTimestamp,
	TypeGeometry, TypeCSV, TypeUnknown,
}

// FieldTypes returns every FieldType including TypeUnknown.
func FieldTypes() []FieldType {
	result := make([]FieldType, len(allFieldTypes))
	copy(result, allFieldTypes)
	return result
}

// ParseFieldType never fails: anything unrecognized is TypeUnknown.
func ParseFieldType(s string) FieldType {
	for _, t := range allFieldTypes {
		if string(t) == s {
			return t
		}
	}
	return TypeUnknown
}

func (t FieldType) IsText() bool {
	switch t {
	case TypeString, TypeText, TypeBinary, TypeCSV:
		return true
	}
	return false
}

func (t FieldType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeBigInteger, TypeDecimal, TypeFloat:
		return true
	}
	return false
}

func (t FieldType) IsTemporal() bool {
	switch t {
	case TypeDate, TypeTime, TypeDateTime, TypeTimestamp:
		return true
	}
	return false
}
