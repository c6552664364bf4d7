package cache

import (
	"github.com/mitchellh/hashstructure"
)

// Key hashes a value built from maps, slices and scalars. Map iteration
// order does not affect the result.
func Key(value any) (uint64, error) {
	return hashstructure.Hash(value, nil)
}

// Keys hashes several values as one ordered tuple.
func Keys(values ...any) (uint64, error) {
	return hashstructure.Hash(values, nil)
}
