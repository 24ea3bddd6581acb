package mlir

import (
	"github.com/gomlx/exceptions"
)

// Region holds one or more blocks nested inside an operation. Regions form a
// tree together with blocks and operations, there are no cycles.
type Region struct {
	owner  *Operation
	blocks []*Block
}

// Owner returns the operation holding this region.
func (r *Region) Owner() *Operation { return r.owner }

// Blocks of the region, in order.
func (r *Region) Blocks() []*Block { return r.blocks }

// FirstBlock returns the entry block of the region. Every region has at
// least one block.
func (r *Region) FirstBlock() *Block { return r.blocks[0] }

// AddBlock appends a new empty block to the region and returns it.
func (r *Region) AddBlock() *Block {
	b := &Block{region: r}
	r.blocks = append(r.blocks, b)
	return b
}

// isAncestorOf reports whether block is nested inside this region,
// transitively.
func (r *Region) isAncestorOf(block *Block) bool {
	for b := block; b != nil; {
		if b.region == r {
			return true
		}
		owner := b.region.owner
		if owner == nil {
			return false
		}
		b = owner.block
	}
	return false
}

// Block holds an ordered sequence of operations plus the block's argument
// values.
type Block struct {
	region *Region
	args   []*Value
	ops    []*Operation
}

// Region returns the region containing this block.
func (b *Block) Region() *Region { return b.region }

// Operations of the block, in order.
func (b *Block) Operations() []*Operation { return b.ops }

// Arguments of the block.
func (b *Block) Arguments() []*Value { return b.args }

// AddArgument appends a new block argument of the given type and returns it.
func (b *Block) AddArgument(t TensorType) *Value {
	v := &Value{typ: t, owner: b, index: len(b.args)}
	b.args = append(b.args, v)
	return v
}

// AddOp appends a new operation with the given identity and operands to the
// block and returns it. Results, regions and attributes are added on the
// returned operation.
//
// It panics if name's dialect was not registered in the context.
func (b *Block) AddOp(ctx *Context, name OperationName, operands ...*Value) *Operation {
	dialect := ctx.LoadedDialect(name.Dialect)
	if dialect == nil {
		exceptions.Panicf("cannot create operation %s: dialect %q is not registered in the context", name, name.Dialect)
	}
	op := &Operation{
		ctx:     ctx,
		dialect: dialect,
		name:    name,
		block:   b,
	}
	for _, operand := range operands {
		op.AddOperand(operand)
	}
	b.ops = append(b.ops, op)
	return op
}

// ParentOp returns the operation owning this block's region.
func (b *Block) ParentOp() *Operation {
	if b.region == nil {
		return nil
	}
	return b.region.owner
}
