package document

import "sort"

// Diff computes the ordered patch that transforms old into new. Applying
// the result to old yields a tree deep-equal to new.
//
// Sequences are compared strictly by index. A mid-sequence insertion or
// deletion therefore shows up as a run of replace ops for every shifted
// element plus trailing add/remove ops for the length delta; only tail
// growth/shrink and in-place element edits produce compact patches. The
// server's patch consumer expects exactly this shape, so the positional
// comparison is a wire contract, not an optimization target.
func Diff(old, new Value) []Op {
	return diffAt(Root, old, new, nil)
}

func diffAt(path Pointer, old, new Value, ops []Op) []Op {
	if old.Kind() == KindSequence && new.Kind() == KindSequence {
		return diffSequences(path, old, new, ops)
	}
	if old.Kind() == KindMapping && new.Kind() == KindMapping {
		return diffMappings(path, old, new, ops)
	}
	if !old.Equal(new) {
		ops = append(ops, ReplaceOp(path, new.Clone()))
	}
	return ops
}

func diffSequences(path Pointer, old, new Value, ops []Op) []Op {
	oldLen, newLen := old.Len(), new.Len()
	shared := oldLen
	if newLen < shared {
		shared = newLen
	}
	for i := 0; i < shared; i++ {
		at := path.Element(i)
		oldEl, newEl := old.Index(i), new.Index(i)
		if oldEl.Equal(newEl) {
			continue
		}
		if oldEl.Kind().Composite() && newEl.Kind().Composite() {
			ops = diffAt(at, oldEl, newEl, ops)
		} else {
			ops = append(ops, ReplaceOp(at, newEl.Clone()))
		}
	}
	for i := oldLen; i < newLen; i++ {
		ops = append(ops, AddOp(path.Element(i), new.Index(i).Clone()))
	}
	// Trailing removes run from the tail inward: each applied remove
	// shortens the sequence, so ascending indices would go out of range
	// after the first one.
	for i := oldLen - 1; i >= newLen; i-- {
		ops = append(ops, RemoveOp(path.Element(i)))
	}
	return ops
}

func diffMappings(path Pointer, old, new Value, ops []Op) []Op {
	for _, key := range unionKeys(old, new) {
		at := path.Child(key)
		oldChild, inOld := old.Get(key)
		newChild, inNew := new.Get(key)
		switch {
		case !inNew:
			ops = append(ops, RemoveOp(at))
		case !inOld:
			ops = append(ops, AddOp(at, newChild.Clone()))
		case oldChild.Equal(newChild):
		case oldChild.Kind().Composite() && newChild.Kind().Composite():
			ops = diffAt(at, oldChild, newChild, ops)
		default:
			ops = append(ops, ReplaceOp(at, newChild.Clone()))
		}
	}
	return ops
}

// unionKeys returns the sorted union of both mappings' keys. Sorting keeps
// patches reproducible; callers may not rely on any particular op order
// beyond sequential applicability.
func unionKeys(old, new Value) []string {
	seen := make(map[string]struct{}, old.Len()+new.Len())
	keys := make([]string, 0, old.Len()+new.Len())
	for _, k := range old.Keys() {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, k := range new.Keys() {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
