package filter

import (
	"fmt"
	"strings"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

// ColumnMapper maps a field path to a SQL column expression.
type ColumnMapper interface {
	Column(path f.FieldPath) (string, error)
}

type ColumnMapperFunc func(path f.FieldPath) (string, error)

func (fn ColumnMapperFunc) Column(path f.FieldPath) (string, error) {
	return fn(path)
}

// QuotedColumns renders author.name as "author"."name". Relation segments
// are expected to be joined under their own names.
var QuotedColumns = ColumnMapperFunc(func(path f.FieldPath) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("empty field path")
	}
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = QuoteIdentifier(segment)
	}
	return strings.Join(parts, "."), nil
})

// TableColumns qualifies single-segment paths with table and rejects
// relational paths.
func TableColumns(table string) ColumnMapper {
	return ColumnMapperFunc(func(path f.FieldPath) (string, error) {
		if len(path) != 1 {
			return "", fmt.Errorf("relational path %s is not mapped", path)
		}
		return QuoteIdentifier(table) + "." + QuoteIdentifier(path[0]), nil
	})
}

// QuoteIdentifier double-quotes name. A question mark is doubled because
// the compiled SQL passes through placeholder rewriting, which reads "??"
// as a literal "?".
func QuoteIdentifier(name string) string {
	return `"` + identifierEscaper.Replace(name) + `"`
}

var identifierEscaper = strings.NewReplacer(`"`, `""`, `?`, `??`)
