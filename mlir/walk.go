package mlir

// WalkResult controls a Walk traversal, mirroring the advance/interrupt
// protocol of classic IR walkers.
type WalkResult int

const (
	// WalkAdvance continues the traversal.
	WalkAdvance WalkResult = iota

	// WalkInterrupt aborts the traversal immediately; the interrupt
	// propagates to the outermost Walk call.
	WalkInterrupt
)

// Walk visits every operation in the block in order, then recursively every
// operation in each visited operation's nested regions (pre-order,
// depth-first). The visited operation may be mutated by fn, but the block
// structure must not change during the walk.
func (b *Block) Walk(fn func(*Operation) WalkResult) WalkResult {
	for _, op := range b.ops {
		if op.Walk(fn) == WalkInterrupt {
			return WalkInterrupt
		}
	}
	return WalkAdvance
}

// Walk visits the operation itself and then, depth-first, every operation
// nested in its regions.
func (op *Operation) Walk(fn func(*Operation) WalkResult) WalkResult {
	if fn(op) == WalkInterrupt {
		return WalkInterrupt
	}
	for _, region := range op.regions {
		if region.Walk(fn) == WalkInterrupt {
			return WalkInterrupt
		}
	}
	return WalkAdvance
}

// Walk visits every operation nested in the region, depth-first.
func (r *Region) Walk(fn func(*Operation) WalkResult) WalkResult {
	for _, block := range r.blocks {
		if block.Walk(fn) == WalkInterrupt {
			return WalkInterrupt
		}
	}
	return WalkAdvance
}

// VisitUsedValuesDefinedAbove invokes fn once for every operand use inside
// region whose value is defined outside region — the region's captured
// values. A value captured by several uses is reported once per use.
func VisitUsedValuesDefinedAbove(region *Region, fn func(user *Operation, operand *Value)) {
	region.Walk(func(op *Operation) WalkResult {
		for _, operand := range op.operands {
			if operand.DefinedOutsideOf(region) {
				fn(op, operand)
			}
		}
		return WalkAdvance
	})
}
