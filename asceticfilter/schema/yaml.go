package schema

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/cache"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

type snapshotDocument struct {
	Collections map[string]collectionDocument `yaml:"collections"`
}

type collectionDocument struct {
	Version string                   `yaml:"version"`
	Fields  map[string]fieldDocument `yaml:"fields"`
}

type fieldDocument struct {
	Type      string            `yaml:"type"`
	Required  bool              `yaml:"required"`
	Nullable  *bool             `yaml:"nullable"`
	Pattern   *string           `yaml:"pattern"`
	Min       *float64          `yaml:"min"`
	Max       *float64          `yaml:"max"`
	MaxLength *int              `yaml:"max_length"`
	Relation  *relationDocument `yaml:"relation"`
}

type relationDocument struct {
	Collection string `yaml:"collection"`
	Field      string `yaml:"field"`
}

// LoadSnapshot reads a YAML snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %s", path)
	}
	return s, nil
}

// DecodeSnapshot parses a YAML snapshot. Unknown keys are rejected.
// Fields are nullable unless stated otherwise. A collection without an
// explicit version gets one derived from its content.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var doc snapshotDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}

	names := make([]string, 0, len(doc.Collections))
	for name := range doc.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	var result error
	collections := make([]Collection, 0, len(names))
	for _, name := range names {
		c, err := decodeCollection(name, doc.Collections[name])
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		collections = append(collections, c)
	}
	if result != nil {
		return nil, result
	}
	return NewSnapshot(collections...)
}

func decodeCollection(name string, doc collectionDocument) (Collection, error) {
	var result error
	fields := make([]FieldConstraints, 0, len(doc.Fields))
	for fieldName, fd := range doc.Fields {
		if fd.Type == "" {
			result = multierror.Append(result, fmt.Errorf("%s.%s: missing type", name, fieldName))
			continue
		}
		field := FieldConstraints{
			Field:     fieldName,
			Type:      operators.ParseFieldType(fd.Type),
			Required:  fd.Required,
			Nullable:  fd.Nullable == nil || *fd.Nullable,
			Pattern:   fd.Pattern,
			Min:       fd.Min,
			Max:       fd.Max,
			MaxLength: fd.MaxLength,
		}
		if fd.Relation != nil {
			field.Relation = &Relation{Collection: fd.Relation.Collection, Field: fd.Relation.Field}
		}
		fields = append(fields, field)
	}
	if result != nil {
		return Collection{}, result
	}

	version := doc.Version
	if version == "" {
		hash, err := cache.Key(doc)
		if err != nil {
			return Collection{}, errors.Wrapf(err, "%s: version", name)
		}
		version = fmt.Sprintf("%016x", hash)
	}
	return NewCollection(name, version, fields...), nil
}

// EncodeSnapshot writes s in the format DecodeSnapshot reads.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	doc := snapshotDocument{Collections: make(map[string]collectionDocument, len(s.collections))}
	for name, c := range s.collections {
		cd := collectionDocument{Version: c.version, Fields: make(map[string]fieldDocument, len(c.fields))}
		for _, field := range c.fields {
			nullable := field.Nullable
			fd := fieldDocument{
				Type:      string(field.Type),
				Required:  field.Required,
				Nullable:  &nullable,
				Pattern:   field.Pattern,
				Min:       field.Min,
				Max:       field.Max,
				MaxLength: field.MaxLength,
			}
			if field.Relation != nil {
				fd.Relation = &relationDocument{Collection: field.Relation.Collection, Field: field.Relation.Field}
			}
			cd.Fields[field.Field] = fd
		}
		doc.Collections[name] = cd
	}
	return yaml.Marshal(doc)
}
