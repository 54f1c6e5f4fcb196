package document

import (
	"encoding/json"
	"fmt"
)

// OpKind is the patch operation verb.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpReplace OpKind = "replace"
	OpRemove  OpKind = "remove"
)

// Op is one patch instruction. Value is meaningful for add and replace
// only; remove carries none.
type Op struct {
	Kind  OpKind
	Path  Pointer
	Value Value
}

// AddOp builds an add operation.
func AddOp(path Pointer, value Value) Op {
	return Op{Kind: OpAdd, Path: path, Value: value}
}

// ReplaceOp builds a replace operation.
func ReplaceOp(path Pointer, value Value) Op {
	return Op{Kind: OpReplace, Path: path, Value: value}
}

// RemoveOp builds a remove operation.
func RemoveOp(path Pointer) Op {
	return Op{Kind: OpRemove, Path: path}
}

type opWire struct {
	Op    OpKind           `json:"op"`
	Path  Pointer          `json:"path"`
	Value *json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON emits the wire form; the value field is omitted for remove.
func (o Op) MarshalJSON() ([]byte, error) {
	w := opWire{Op: o.Kind, Path: o.Path}
	if o.Kind != OpRemove {
		raw, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		msg := json.RawMessage(raw)
		w.Value = &msg
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire form.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w opWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Op {
	case OpAdd, OpReplace:
		if w.Value == nil {
			return fmt.Errorf("%s op at %q: missing value", w.Op, w.Path)
		}
		var v Value
		if err := json.Unmarshal(*w.Value, &v); err != nil {
			return err
		}
		*o = Op{Kind: w.Op, Path: w.Path, Value: v}
	case OpRemove:
		*o = Op{Kind: OpRemove, Path: w.Path}
	default:
		return fmt.Errorf("unknown op %q", w.Op)
	}
	return nil
}
