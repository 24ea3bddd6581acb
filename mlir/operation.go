package mlir

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// OperationName identifies an operation kind: the dialect it belongs to plus
// the operation's name within the dialect. It is a comparable value type, so
// it can be used directly as a map or set key.
type OperationName struct {
	Dialect string
	Op      string
}

// OpName builds an OperationName from its parts.
func OpName(dialect, op string) OperationName {
	return OperationName{Dialect: dialect, Op: op}
}

// String returns the fully qualified name, e.g. "tf.AddV2".
func (n OperationName) String() string {
	return fmt.Sprintf("%s.%s", n.Dialect, n.Op)
}

// Operation is one node of the IR tree: it has an identity (OperationName),
// ordered operand and result values, zero or more nested regions and a
// free-form attribute dictionary.
//
// Operations are created with Block.AddOp and are owned by their block.
type Operation struct {
	ctx     *Context
	dialect *Dialect
	name    OperationName

	operands []*Value
	results  []*Value
	regions  []*Region
	attrs    map[string]any

	block *Block // block this operation lives in; nil for the module op.
}

// Name returns the operation's identity.
func (op *Operation) Name() OperationName { return op.name }

// Dialect returns the dialect the operation belongs to. Always non-nil: an
// operation cannot be created for an unregistered dialect.
func (op *Operation) Dialect() *Dialect { return op.dialect }

// Context the operation was created in.
func (op *Operation) Context() *Context { return op.ctx }

// Operands returns the operation's operand values. The returned slice is
// owned by the operation, callers must not modify it.
func (op *Operation) Operands() []*Value { return op.operands }

// Results returns the operation's result values. The returned slice is owned
// by the operation, callers must not modify it.
func (op *Operation) Results() []*Value { return op.results }

// Regions returns the operation's nested regions.
func (op *Operation) Regions() []*Region { return op.regions }

// Block returns the block containing this operation, nil for a top-level
// module operation.
func (op *Operation) Block() *Block { return op.block }

// ParentOp returns the operation owning the block this operation lives in,
// or nil if this is a top-level operation.
func (op *Operation) ParentOp() *Operation {
	if op.block == nil || op.block.region == nil {
		return nil
	}
	return op.block.region.owner
}

// AddOperand appends an operand value.
func (op *Operation) AddOperand(v *Value) *Operation {
	if v == nil {
		exceptions.Panicf("nil operand added to operation %s", op.name)
	}
	op.operands = append(op.operands, v)
	return op
}

// AddResult appends a result value of the given type and returns it.
func (op *Operation) AddResult(t TensorType) *Value {
	v := &Value{typ: t, def: op, index: len(op.results)}
	op.results = append(op.results, v)
	return v
}

// AddRegion appends a new empty region (with a single empty block) to the
// operation and returns it.
func (op *Operation) AddRegion() *Region {
	r := &Region{owner: op}
	r.AddBlock()
	op.regions = append(op.regions, r)
	return r
}

// Attr returns the raw attribute stored under key, or nil if absent.
func (op *Operation) Attr(key string) any {
	return op.attrs[key]
}

// HasAttr reports whether an attribute is present under key, regardless of
// its value.
func (op *Operation) HasAttr(key string) bool {
	_, found := op.attrs[key]
	return found
}

// StringAttr returns the string attribute stored under key. Returns
// found=false if the attribute is absent or holds a non-string value.
func (op *Operation) StringAttr(key string) (value string, found bool) {
	value, found = op.attrs[key].(string)
	return
}

// BoolAttr returns the bool attribute stored under key. Returns found=false
// if the attribute is absent or holds a non-bool value.
func (op *Operation) BoolAttr(key string) (value bool, found bool) {
	value, found = op.attrs[key].(bool)
	return
}

// SetAttr stores value under key, replacing any previous value.
func (op *Operation) SetAttr(key string, value any) *Operation {
	if op.attrs == nil {
		op.attrs = make(map[string]any)
	}
	op.attrs[key] = value
	return op
}

// RemoveAttr deletes the attribute stored under key, if any.
func (op *Operation) RemoveAttr(key string) {
	delete(op.attrs, key)
}

// NumAttrs returns the number of attributes set on the operation.
func (op *Operation) NumAttrs() int { return len(op.attrs) }
