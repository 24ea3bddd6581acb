package mlir

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// printer writes the IR in a generic MLIR-like textual form. The form is for
// debugging and test assertions only, there is no parser for it.
type printer struct {
	w      io.Writer
	err    error
	names  map[*Value]string
	nextID int
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) valueName(v *Value) string {
	if name, found := p.names[v]; found {
		return name
	}
	var name string
	if v.DefiningOp() == nil {
		name = fmt.Sprintf("%%arg%d", v.index)
	} else {
		name = fmt.Sprintf("%%%d", p.nextID)
		p.nextID++
	}
	p.names[v] = name
	return name
}

func (p *printer) printOp(op *Operation, indent string) {
	p.printf("%s", indent)
	if len(op.results) > 0 {
		names := make([]string, len(op.results))
		for i, result := range op.results {
			names[i] = p.valueName(result)
		}
		p.printf("%s = ", strings.Join(names, ", "))
	}
	p.printf("%q(", op.name.String())
	for i, operand := range op.operands {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s", p.valueName(operand))
	}
	p.printf(")")
	for _, region := range op.regions {
		p.printf(" (")
		p.printRegion(region, indent)
		p.printf(")")
	}
	if len(op.attrs) > 0 {
		keys := make([]string, 0, len(op.attrs))
		for key := range op.attrs {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		p.printf(" {")
		for i, key := range keys {
			if i > 0 {
				p.printf(", ")
			}
			switch value := op.attrs[key].(type) {
			case string:
				p.printf("%s = %q", key, value)
			default:
				p.printf("%s = %v", key, value)
			}
		}
		p.printf("}")
	}
	p.printf(" : (")
	for i, operand := range op.operands {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s", operand.Type())
	}
	p.printf(") -> (")
	for i, result := range op.results {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s", result.Type())
	}
	p.printf(")\n")
}

func (p *printer) printRegion(region *Region, indent string) {
	p.printf("{\n")
	for _, block := range region.blocks {
		if len(block.args) > 0 {
			names := make([]string, len(block.args))
			for i, arg := range block.args {
				names[i] = fmt.Sprintf("%s: %s", p.valueName(arg), arg.Type())
			}
			p.printf("%s  ^(%s):\n", indent, strings.Join(names, ", "))
		}
		for _, op := range block.ops {
			p.printOp(op, indent+"  ")
		}
	}
	p.printf("%s}", indent)
}

// Write writes the operation and everything nested in it in textual form.
func (op *Operation) Write(w io.Writer) error {
	p := &printer{w: w, names: make(map[*Value]string)}
	p.printOp(op, "")
	return p.err
}

// String returns the operation in textual form, implementing fmt.Stringer.
func (op *Operation) String() string {
	var sb strings.Builder
	_ = op.Write(&sb)
	return sb.String()
}

// String returns the whole module in textual form.
func (m *Module) String() string {
	return m.op.String()
}
