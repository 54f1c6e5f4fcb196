package document

import (
	"errors"
	"fmt"
)

// Apply errors.
var (
	ErrPathNotFound = errors.New("path not found")
	ErrNotComposite = errors.New("path traverses a non-composite value")
)

// Apply executes the ops against doc in order and returns the patched tree.
// The input document is never mutated. An error leaves no partial result.
func Apply(doc Value, ops []Op) (Value, error) {
	out := doc.Clone()
	for i, op := range ops {
		var err error
		out, err = applyOne(out, op)
		if err != nil {
			return Value{}, fmt.Errorf("op %d (%s %s): %w", i, op.Kind, op.Path, err)
		}
	}
	return out, nil
}

func applyOne(doc Value, op Op) (Value, error) {
	if len(op.Path) == 0 {
		switch op.Kind {
		case OpAdd, OpReplace:
			return op.Value.Clone(), nil
		default:
			return Value{}, errors.New("cannot remove the document root")
		}
	}
	return applyAt(doc, op.Path, op)
}

// applyAt walks to the parent of the addressed node and performs the edit.
// Composites are mutated in place; Apply cloned the tree up front.
func applyAt(node Value, path Pointer, op Op) (Value, error) {
	tok := path[0]
	last := len(path) == 1

	switch node.Kind() {
	case KindMapping:
		if last {
			return editMapping(node, tok, op)
		}
		child, ok := node.Get(tok)
		if !ok {
			return Value{}, fmt.Errorf("%w: missing key %q", ErrPathNotFound, tok)
		}
		patched, err := applyAt(child, path[1:], op)
		if err != nil {
			return Value{}, err
		}
		node.m[tok] = patched
		return node, nil

	case KindSequence:
		if last {
			return editSequence(node, tok, op)
		}
		i, err := sequenceIndex(tok, node.Len())
		if err != nil {
			return Value{}, err
		}
		if i == node.Len() {
			return Value{}, fmt.Errorf("%w: index %d", ErrPathNotFound, i)
		}
		patched, err := applyAt(node.seq[i], path[1:], op)
		if err != nil {
			return Value{}, err
		}
		node.seq[i] = patched
		return node, nil

	default:
		return Value{}, fmt.Errorf("%w: at token %q", ErrNotComposite, tok)
	}
}

func editMapping(node Value, key string, op Op) (Value, error) {
	_, exists := node.Get(key)
	switch op.Kind {
	case OpAdd:
		node.m[key] = op.Value.Clone()
	case OpReplace:
		if !exists {
			return Value{}, fmt.Errorf("%w: replace of missing key %q", ErrPathNotFound, key)
		}
		node.m[key] = op.Value.Clone()
	case OpRemove:
		if !exists {
			return Value{}, fmt.Errorf("%w: remove of missing key %q", ErrPathNotFound, key)
		}
		delete(node.m, key)
	}
	return node, nil
}

func editSequence(node Value, tok string, op Op) (Value, error) {
	i, err := sequenceIndex(tok, node.Len())
	if err != nil {
		return Value{}, err
	}
	switch op.Kind {
	case OpAdd:
		// Insert semantics: index == len appends, lower indices shift the
		// tail right.
		node.seq = append(node.seq, Value{})
		copy(node.seq[i+1:], node.seq[i:])
		node.seq[i] = op.Value.Clone()
	case OpReplace:
		if i == node.Len() {
			return Value{}, fmt.Errorf("%w: index %d", ErrPathNotFound, i)
		}
		node.seq[i] = op.Value.Clone()
	case OpRemove:
		if i == node.Len() {
			return Value{}, fmt.Errorf("%w: index %d", ErrPathNotFound, i)
		}
		node.seq = append(node.seq[:i], node.seq[i+1:]...)
	}
	return node, nil
}
