package filter

import (
	"fmt"
	"strings"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// Normalize rewrites a raw filter to its canonical form without consulting
// field metadata: dotted keys become nested objects, and an object with
// several conditions becomes an explicit "_and" list ordered by key.
// Operands are copied unchanged.
func Normalize(raw any) (map[string]any, error) {
	if raw == nil {
		return map[string]any{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, structuralError("", "filter must be an object, got %T", raw)
	}
	if len(obj) == 0 {
		return map[string]any{}, nil
	}
	return normalizeFilter(obj, "")
}

func normalizeFilter(obj map[string]any, location string) (map[string]any, error) {
	if len(obj) == 0 {
		return nil, structuralError(location, "empty filter object")
	}
	var items []map[string]any
	for _, key := range sortedKeys(obj) {
		keyLocation := joinLocation(location, key)
		switch {
		case key == string(CombinatorAnd) || key == string(CombinatorOr):
			list, ok := obj[key].([]any)
			if !ok || len(list) == 0 {
				return nil, structuralError(keyLocation, "%s expects a non-empty list", key)
			}
			children := make([]any, len(list))
			for i, item := range list {
				itemLocation := fmt.Sprintf("%s[%d]", keyLocation, i)
				child, ok := item.(map[string]any)
				if !ok {
					return nil, structuralError(itemLocation, "%s items must be objects, got %T", key, item)
				}
				normalized, err := normalizeFilter(child, itemLocation)
				if err != nil {
					return nil, err
				}
				children[i] = normalized
			}
			items = append(items, map[string]any{key: children})
		case strings.HasPrefix(key, operators.KeyPrefix):
			return nil, structuralError(keyLocation, "unexpected key %s", key)
		default:
			path, err := splitFieldKey(key, keyLocation)
			if err != nil {
				return nil, err
			}
			leaves, err := normalizeField(path, obj[key], keyLocation)
			if err != nil {
				return nil, err
			}
			items = append(items, leaves...)
		}
	}
	if len(items) == 1 {
		return items[0], nil
	}
	list := make([]any, len(items))
	for i := range items {
		list[i] = items[i]
	}
	return map[string]any{string(CombinatorAnd): list}, nil
}

func normalizeField(path FieldPath, value any, location string) ([]map[string]any, error) {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, structuralError(location, "field %s expects a non-empty object", path)
	}
	var leaves []map[string]any
	var sawOperator, sawField bool
	for _, key := range sortedKeys(obj) {
		keyLocation := joinLocation(location, key)
		if strings.HasPrefix(key, operators.KeyPrefix) {
			sawOperator = true
			if _, known := operators.ParseOperatorKey(key); !known {
				return nil, structuralError(keyLocation, "unknown operator %s", key)
			}
			leaves = append(leaves, nest(path, map[string]any{key: copyValue(obj[key])}))
			continue
		}
		sawField = true
		segments, err := splitFieldKey(key, keyLocation)
		if err != nil {
			return nil, err
		}
		nested := make(FieldPath, 0, len(path)+len(segments))
		nested = append(append(nested, path...), segments...)
		children, err := normalizeField(nested, obj[key], keyLocation)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, children...)
	}
	if sawOperator && sawField {
		return nil, structuralError(location, "cannot mix operators and fields under %s", path)
	}
	return leaves, nil
}

func nest(path FieldPath, leaf map[string]any) map[string]any {
	result := leaf
	for i := len(path) - 1; i >= 0; i-- {
		result = map[string]any{path[i]: result}
	}
	return result
}
