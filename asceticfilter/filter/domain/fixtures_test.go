package filter

import (
	"time"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

var articleFields = map[string]operators.FieldType{
	"id":                     operators.TypeUUID,
	"title":                  operators.TypeString,
	"body":                   operators.TypeText,
	"age":                    operators.TypeInteger,
	"price":                  operators.TypeDecimal,
	"published":              operators.TypeBoolean,
	"created":                operators.TypeDateTime,
	"location":               operators.TypeGeometry,
	"meta":                   operators.TypeJSON,
	"role":                   operators.TypeUUID,
	"owner":                  operators.TypeString,
	"mystery":                operators.TypeUnknown,
	"author.name":            operators.TypeString,
	"author.department.name": operators.TypeString,
}

var articleLookup = LookupFunc(func(path string) (operators.FieldType, bool) {
	t, ok := articleFields[path]
	return t, ok
})

var fixedNow = time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC)

func testVariables() dynvar.Context {
	return dynvar.Context{
		Now: func() time.Time { return fixedNow },
		Accountability: &dynvar.Accountability{
			User:  "u-1",
			Role:  "editor",
			Roles: []string{"editor", "viewer"},
		},
	}
}

func newTestParser(opts ...ParserOption) *Parser {
	return NewParser(operators.NewDefaultRegistry(), articleLookup, opts...)
}

func mustToken(s string) dynvar.Token {
	token, ok, err := dynvar.Parse(s)
	if err != nil || !ok {
		panic("not a dynamic variable: " + s)
	}
	return token
}

func point(x, y float64) map[string]any {
	return map[string]any{
		"type":        "Point",
		"coordinates": []any{x, y},
	}
}
