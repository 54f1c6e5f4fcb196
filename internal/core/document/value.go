// Package document models configuration documents as generic JSON value
// trees and provides the diff/patch machinery the sync client runs on.
// The package is deliberately ignorant of what the documents mean.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Composite reports whether values of this kind contain child values.
func (k Kind) Composite() bool {
	return k == KindSequence || k == KindMapping
}

// Value is a tagged union over the JSON value space. The zero Value is null.
//
// Sequences are order-significant; mapping key order is not. A Value holding
// a sequence or mapping shares its backing storage with copies of itself, so
// callers that need an independent tree use Clone.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	seq  []Value
	m    map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Sequence returns an ordered sequence Value over the given elements.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// Mapping returns a mapping Value over the given entries.
func Mapping(entries map[string]Value) Value {
	if entries == nil {
		entries = map[string]Value{}
	}
	return Value{kind: KindMapping, m: entries}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the boolean payload; false for non-bool values.
func (v Value) BoolValue() bool { return v.b }

// NumberValue returns the numeric payload; 0 for non-number values.
func (v Value) NumberValue() float64 { return v.n }

// StringValue returns the string payload; "" for non-string values.
func (v Value) StringValue() string { return v.s }

// Len returns the element or entry count for composites, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	default:
		return 0
	}
}

// Index returns the i-th element of a sequence.
func (v Value) Index(i int) Value { return v.seq[i] }

// Get looks up a mapping entry by key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Keys returns the mapping keys in sorted order. Sorting is a convenience
// for deterministic iteration; key order carries no meaning.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n || (math.IsNaN(v.n) && math.IsNaN(other.n))
	case KindString:
		return v.s == other.s
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, child := range v.m {
			otherChild, ok := other.m[k]
			if !ok || !child.Equal(otherChild) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy sharing no storage with the receiver.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, len(v.seq))
		for i := range v.seq {
			items[i] = v.seq[i].Clone()
		}
		return Value{kind: KindSequence, seq: items}
	case KindMapping:
		entries := make(map[string]Value, len(v.m))
		for k, child := range v.m {
			entries[k] = child.Clone()
		}
		return Value{kind: KindMapping, m: entries}
	default:
		return v
	}
}

// FromAny converts a decoded encoding/json value (bool, float64, string,
// nil, []any, map[string]any) into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(n), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, el := range t {
			v, err := FromAny(el)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Sequence(items...), nil
	case map[string]any:
		entries := make(map[string]Value, len(t))
		for k, el := range t {
			v, err := FromAny(el)
			if err != nil {
				return Value{}, err
			}
			entries[k] = v
		}
		return Mapping(entries), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// ToAny converts the Value into the encoding/json dynamic representation.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindSequence:
		items := make([]any, len(v.seq))
		for i := range v.seq {
			items[i] = v.seq[i].ToAny()
		}
		return items
	case KindMapping:
		entries := make(map[string]any, len(v.m))
		for k, child := range v.m {
			entries[k] = child.ToAny()
		}
		return entries
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}
