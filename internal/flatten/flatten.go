// Package flatten converts nested custom-attribute documents into the flat
// namespace the target platform expects, and infers the primitive kind of
// each leaf value for schema registration.
package flatten

import "encoding/json"

// Separator joins parent and child keys when nesting is collapsed.
const Separator = "_"

// Kind is the primitive type a flattened value registers under.
type Kind string

const (
	KindBoolean Kind = "boolean"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
)

// Flatten collapses a nested mapping into a single level, joining key paths
// with Separator. Leaf values are carried unchanged; anything that is not a
// nested mapping (including lists) is a leaf. Empty nested mappings
// contribute no keys. Cyclic input is invalid and recursion will not
// terminate on it.
func Flatten(nested map[string]any) map[string]any {
	flat := make(map[string]any, len(nested))
	walk("", nested, flat)
	return flat
}

func walk(prefix string, nested map[string]any, flat map[string]any) {
	for key, value := range nested {
		name := key
		if prefix != "" {
			name = prefix + Separator + key
		}
		if child, ok := value.(map[string]any); ok {
			walk(name, child, flat)
			continue
		}
		flat[name] = value
	}
}

// InferKind maps a leaf value to one of the three registrable kinds.
// Booleans are checked before numbers so a boolean-like value is never
// classified as numeric. Everything unrecognized falls back to string.
func InferKind(value any) Kind {
	switch value.(type) {
	case bool:
		return KindBoolean
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return KindNumber
	default:
		return KindString
	}
}

// InferKinds returns the kind of every value in a flat mapping, keyed by
// attribute name.
func InferKinds(flat map[string]any) map[string]Kind {
	kinds := make(map[string]Kind, len(flat))
	for name, value := range flat {
		kinds[name] = InferKind(value)
	}
	return kinds
}
