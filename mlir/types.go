package mlir

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

// TensorType describes the element type of a Value.
//
// Numeric and boolean element types reuse dtypes.DType. Tensors of
// variable-length byte strings (tf.string) have no dtypes equivalent and are
// flagged with IsString instead; for those DType is left as
// dtypes.InvalidDType.
type TensorType struct {
	DType dtypes.DType

	// IsString marks a tf.string tensor. String tensors have no on-device
	// representation, several passes treat them specially.
	IsString bool
}

// TensorOf returns the TensorType for the given element dtype.
func TensorOf(dtype dtypes.DType) TensorType {
	return TensorType{DType: dtype}
}

// StringTensor returns the TensorType of a tf.string tensor.
func StringTensor() TensorType {
	return TensorType{IsString: true}
}

// String implements fmt.Stringer, using an MLIR-like spelling.
func (t TensorType) String() string {
	if t.IsString {
		return "tensor<!tf.string>"
	}
	return fmt.Sprintf("tensor<%s>", strings.ToLower(t.DType.String()))
}

// Value is an SSA-like value: either the result of an Operation or an
// argument of a Block. A Value knows its element type and its definition
// site, which is what capture analysis needs.
type Value struct {
	typ TensorType

	// Exactly one of def/owner is non-nil.
	def   *Operation // operation defining this value, for results.
	owner *Block     // block owning this value, for block arguments.
	index int        // result or argument position.
}

// Type returns the element type of the value.
func (v *Value) Type() TensorType { return v.typ }

// DefiningOp returns the operation that defines this value, or nil if the
// value is a block argument.
func (v *Value) DefiningOp() *Operation { return v.def }

// ParentBlock returns the block in which the value is defined: the defining
// operation's block for results, the owning block for block arguments.
func (v *Value) ParentBlock() *Block {
	if v.def != nil {
		return v.def.block
	}
	return v.owner
}

// DefinedOutsideOf reports whether the value's definition site lies outside
// the given region, i.e. whether a use inside region captures it.
func (v *Value) DefinedOutsideOf(region *Region) bool {
	return !region.isAncestorOf(v.ParentBlock())
}
