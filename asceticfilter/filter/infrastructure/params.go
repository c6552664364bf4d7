package filter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// param converts an operand to the value bound to a placeholder.
func param(t operators.FieldType, value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		if t == operators.TypeDate {
			return pgtype.Date{Time: v, Valid: true}, nil
		}
		return pgtype.Timestamptz{Time: v, Valid: true}, nil
	case string:
		if t == operators.TypeUUID {
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("invalid uuid %q: %w", v, err)
			}
			return pgtype.UUID{Bytes: id, Valid: true}, nil
		}
	}
	return value, nil
}

func params(t operators.FieldType, values []any) ([]any, error) {
	result := make([]any, len(values))
	for i, value := range values {
		p, err := param(t, value)
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}
