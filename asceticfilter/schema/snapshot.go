package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// Snapshot is a read-only view of all collections.
type Snapshot struct {
	collections map[string]Collection
}

// NewSnapshot checks that every relation targets a known collection and
// field, and that bounds are consistent.
func NewSnapshot(collections ...Collection) (*Snapshot, error) {
	s := &Snapshot{collections: make(map[string]Collection, len(collections))}
	for _, c := range collections {
		s.collections[c.name] = c
	}

	var result error
	for _, name := range s.Collections() {
		c := s.collections[name]
		for _, field := range c.fields {
			if err := s.checkField(c, field); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if result != nil {
		return nil, result
	}
	return s, nil
}

func (s *Snapshot) checkField(c Collection, field FieldConstraints) error {
	if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
		return fmt.Errorf("%s.%s: min %v is greater than max %v", c.name, field.Field, *field.Min, *field.Max)
	}
	if field.MaxLength != nil && *field.MaxLength < 0 {
		return fmt.Errorf("%s.%s: negative max_length", c.name, field.Field)
	}
	if field.Relation == nil {
		return nil
	}
	target, ok := s.collections[field.Relation.Collection]
	if !ok {
		return fmt.Errorf("%s.%s: related collection %q does not exist", c.name, field.Field, field.Relation.Collection)
	}
	if field.Relation.Field != "" {
		if _, ok := target.Field(field.Relation.Field); !ok {
			return fmt.Errorf("%s.%s: related field %s.%s does not exist",
				c.name, field.Field, field.Relation.Collection, field.Relation.Field)
		}
	}
	return nil
}

func (s *Snapshot) Collection(name string) (Collection, bool) {
	c, ok := s.collections[name]
	return c, ok
}

func (s *Snapshot) Collections() []string {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constraints returns the field constraints of a collection sorted by field.
func (s *Snapshot) Constraints(collection string) ([]FieldConstraints, bool) {
	c, ok := s.collections[collection]
	if !ok {
		return nil, false
	}
	return c.Fields(), true
}

// Lookup resolves field paths relative to collection.
func (s *Snapshot) Lookup(collection string) (CollectionLookup, bool) {
	if _, ok := s.collections[collection]; !ok {
		return CollectionLookup{}, false
	}
	return CollectionLookup{snapshot: s, collection: collection}, true
}

// CollectionLookup follows relation fields so that "author.name" resolves
// to the type of name in the collection author points at.
type CollectionLookup struct {
	snapshot   *Snapshot
	collection string
}

func (l CollectionLookup) Resolve(path string) (operators.FieldType, bool) {
	field, ok := l.Field(path)
	if !ok {
		return "", false
	}
	return field.Type, true
}

func (l CollectionLookup) Field(path string) (FieldConstraints, bool) {
	if l.snapshot == nil || path == "" {
		return FieldConstraints{}, false
	}
	current, ok := l.snapshot.collections[l.collection]
	if !ok {
		return FieldConstraints{}, false
	}
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		field, ok := current.Field(segment)
		if !ok {
			return FieldConstraints{}, false
		}
		if i == len(segments)-1 {
			return field, true
		}
		if field.Relation == nil {
			return FieldConstraints{}, false
		}
		current, ok = l.snapshot.collections[field.Relation.Collection]
		if !ok {
			return FieldConstraints{}, false
		}
	}
	return FieldConstraints{}, false
}
