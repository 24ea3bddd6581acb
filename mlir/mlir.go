// Package mlir implements a small, self-contained operation/region/block IR,
// in the spirit of MLIR's core structures: a Module holds a tree of
// Operations, each Operation may own nested Regions of Blocks, and every
// Operation carries typed operand and result Values plus a free-form
// attribute dictionary.
//
// The package is the substrate for the graph transformation passes under
// mlir/transforms; it intentionally implements only what those passes need:
// dialect registration, operation construction, depth-first traversal,
// capture analysis of nested regions, and a textual form for debugging.
//
// Construction errors (using an unregistered dialect, adding a block to the
// wrong region, ...) are programmer errors and panic with an exception, see
// github.com/gomlx/exceptions. Passes report runtime failures as normal
// errors.
package mlir

import (
	"github.com/gomlx/exceptions"
)

// Dialect is a namespace grouping a family of related operation kinds, e.g.
// "tf" or "tf_device". Dialects are identified by pointer within a Context:
// two operations belong to the same dialect iff their Dialect pointers are
// equal.
type Dialect struct {
	name string
}

// Name of the dialect, e.g. "tf".
func (d *Dialect) Name() string { return d.name }

// Context owns the dialect registry and anchors all IR objects created for
// one program. A Context is not safe for concurrent mutation; passes only
// read it.
type Context struct {
	dialects map[string]*Dialect
}

// BuiltinDialect is always registered; the top-level module operation
// belongs to it.
const BuiltinDialect = "builtin"

// NewContext returns an empty Context with only the builtin dialect
// registered.
func NewContext() *Context {
	ctx := &Context{dialects: make(map[string]*Dialect)}
	ctx.RegisterDialect(BuiltinDialect)
	return ctx
}

// RegisterDialect registers (or returns the already registered) dialect with
// the given name.
func (ctx *Context) RegisterDialect(name string) *Dialect {
	if name == "" {
		exceptions.Panicf("cannot register a dialect with an empty name")
	}
	if d, found := ctx.dialects[name]; found {
		return d
	}
	d := &Dialect{name: name}
	ctx.dialects[name] = d
	return d
}

// LoadedDialect returns the dialect registered under name, or nil if it was
// never registered in this Context.
func (ctx *Context) LoadedDialect(name string) *Dialect {
	return ctx.dialects[name]
}
