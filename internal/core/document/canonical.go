package document

// Canonical returns the comparison form of a value used when diffing a
// working document against a baseline. Mapping entries whose value is null,
// or an empty sequence or mapping after canonicalization, are dropped so
// that an absent optional field and its empty default do not register as a
// change. Sequence elements are canonicalized but never removed; element
// positions are significant.
func Canonical(v Value) Value {
	switch v.Kind() {
	case KindSequence:
		items := make([]Value, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = Canonical(v.Index(i))
		}
		return Sequence(items...)
	case KindMapping:
		entries := make(map[string]Value, v.Len())
		for _, key := range v.Keys() {
			child, _ := v.Get(key)
			c := Canonical(child)
			if c.IsNull() {
				continue
			}
			if c.Kind().Composite() && c.Len() == 0 {
				continue
			}
			entries[key] = c
		}
		return Mapping(entries)
	default:
		return v
	}
}
