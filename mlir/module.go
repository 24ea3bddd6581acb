package mlir

// Module is the root of an IR tree: a builtin.module operation owning a
// single region with a single block, in which all top-level operations live.
type Module struct {
	ctx *Context
	op  *Operation
}

// ModuleOpName is the identity of the root operation of every Module.
var ModuleOpName = OpName(BuiltinDialect, "module")

// NewModule creates an empty module rooted in ctx.
func NewModule(ctx *Context) *Module {
	op := &Operation{
		ctx:     ctx,
		dialect: ctx.LoadedDialect(BuiltinDialect),
		name:    ModuleOpName,
	}
	op.AddRegion()
	return &Module{ctx: ctx, op: op}
}

// Context the module was created in.
func (m *Module) Context() *Context { return m.ctx }

// Op returns the root builtin.module operation.
func (m *Module) Op() *Operation { return m.op }

// Body returns the module's top-level block.
func (m *Module) Body() *Block {
	return m.op.regions[0].FirstBlock()
}

// Walk traverses every operation in the module, depth-first. See
// Block.Walk.
func (m *Module) Walk(fn func(*Operation) WalkResult) WalkResult {
	return m.Body().Walk(fn)
}
