// Package optional provides a JSON field type that distinguishes an absent key,
// an explicit null and a concrete value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a tri-state JSON field.
// The zero value is "absent".
type Value[T any] struct {
	value T
	set   bool
	null  bool
}

// Of returns a Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// Null returns a Value that was explicitly set to null.
func Null[T any]() Value[T] {
	return Value[T]{set: true, null: true}
}

// IsSet reports whether the key was present in the input, null or not.
func (v Value[T]) IsSet() bool { return v.set }

// IsNull reports whether the key was present with a JSON null.
func (v Value[T]) IsNull() bool { return v.set && v.null }

// Get returns the value and true only when a non-null value was provided.
func (v Value[T]) Get() (T, bool) {
	if !v.set || v.null {
		var zero T
		return zero, false
	}
	return v.value, true
}

// UnmarshalJSON is only called by encoding/json when the key is present,
// so reaching it always marks the value as set.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.null = true
		var zero T
		v.value = zero
		return nil
	}
	v.null = false
	return json.Unmarshal(data, &v.value)
}

// MarshalJSON encodes absent and null values as null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set || v.null {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}
