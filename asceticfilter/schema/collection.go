package schema

import (
	"sort"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// Relation points a field at a row of another collection.
type Relation struct {
	Collection string
	Field      string
}

// FieldConstraints is the metadata of one field. Optional bounds are nil
// when unset.
type FieldConstraints struct {
	Field     string
	Type      operators.FieldType
	Required  bool
	Nullable  bool
	Pattern   *string
	Min       *float64
	Max       *float64
	MaxLength *int
	Relation  *Relation
}

// Collection is immutable once built.
type Collection struct {
	name    string
	version string
	fields  []FieldConstraints
	index   map[string]int
}

// NewCollection keeps the fields sorted by name; a later duplicate wins.
func NewCollection(name, version string, fields ...FieldConstraints) Collection {
	index := make(map[string]int, len(fields))
	sorted := make([]FieldConstraints, 0, len(fields))
	for _, field := range fields {
		if i, ok := index[field.Field]; ok {
			sorted[i] = field
			continue
		}
		index[field.Field] = len(sorted)
		sorted = append(sorted, field)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Field < sorted[j].Field })
	for i, field := range sorted {
		index[field.Field] = i
	}
	return Collection{
		name:    name,
		version: version,
		fields:  sorted,
		index:   index,
	}
}

func (c Collection) Name() string {
	return c.name
}

// Version changes whenever the field metadata changes.
func (c Collection) Version() string {
	return c.version
}

func (c Collection) Field(name string) (FieldConstraints, bool) {
	i, ok := c.index[name]
	if !ok {
		return FieldConstraints{}, false
	}
	return c.fields[i], true
}

func (c Collection) Fields() []FieldConstraints {
	result := make([]FieldConstraints, len(c.fields))
	copy(result, c.fields)
	return result
}
