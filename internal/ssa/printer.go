package ssa

import (
	"fmt"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiOpcode = "\x1b[36m"
	ansiBlock  = "\x1b[33m"
	ansiFunc   = "\x1b[1;32m"
)

// Printer renders modules in a readable text form:
//
//	fn main f1 {
//	  b1(v1: Field):
//	    v3 = allocate Field
//	    store v1 at v3
//	    return
//	}
type Printer struct {
	// Color wraps opcodes, block labels and function names in ANSI escapes.
	Color bool
}

// Print renders m without color.
func Print(m *Module) string {
	return Printer{}.Module(m)
}

func (p Printer) Module(m *Module) string {
	var sb strings.Builder
	for i, fn := range m.Functions {
		if i > 0 {
			sb.WriteString("\n")
		}
		p.function(&sb, m, fn)
	}
	return sb.String()
}

// Function renders a single function. m resolves function references and
// may be nil.
func (p Printer) Function(m *Module, fn *Function) string {
	var sb strings.Builder
	p.function(&sb, m, fn)
	return sb.String()
}

func (p Printer) paint(code, s string) string {
	if !p.Color {
		return s
	}
	return code + s + ansiReset
}

func (p Printer) function(sb *strings.Builder, m *Module, fn *Function) {
	sb.WriteString(fmt.Sprintf("fn %s %s {\n", p.paint(ansiFunc, fn.Name), fn.ID))
	for _, id := range fn.ReachableBlocks() {
		p.block(sb, m, fn, fn.DFG.Block(id))
	}
	sb.WriteString("}\n")
}

func (p Printer) block(sb *strings.Builder, m *Module, fn *Function, b *BasicBlock) {
	params := make([]string, len(b.Params))
	for i, v := range b.Params {
		params[i] = fmt.Sprintf("%s: %s", v, fn.DFG.Type(v))
	}
	sb.WriteString(fmt.Sprintf("  %s(%s):\n", p.paint(ansiBlock, b.ID.String()), strings.Join(params, ", ")))
	for _, instr := range b.Instructions {
		sb.WriteString("    ")
		sb.WriteString(p.instruction(m, fn, instr))
		sb.WriteString("\n")
	}
	if b.Terminator != nil {
		sb.WriteString("    ")
		sb.WriteString(p.terminator(m, fn, b.Terminator))
		sb.WriteString("\n")
	}
}

// value renders an operand. Constants and references print inline.
func (p Printer) value(m *Module, fn *Function, id ValueID) string {
	info := fn.DFG.Value(id)
	switch info.Kind {
	case ValueNumeric:
		return fmt.Sprintf("%s %s", info.Type, info.Numeric)
	case ValueFunction:
		if m != nil {
			if callee := m.FunctionByID(info.Function); callee != nil {
				return p.paint(ansiFunc, callee.Name)
			}
		}
		return info.Function.String()
	case ValueIntrinsic:
		return info.Intrinsic.String()
	}
	return id.String()
}

func (p Printer) values(m *Module, fn *Function, ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = p.value(m, fn, id)
	}
	return strings.Join(parts, ", ")
}

func (p Printer) instruction(m *Module, fn *Function, instr Instruction) string {
	v := func(id ValueID) string { return p.value(m, fn, id) }
	op := func(s string) string { return p.paint(ansiOpcode, s) }

	var rhs string
	switch i := instr.(type) {
	case *Allocate:
		rhs = fmt.Sprintf("%s %s", op("allocate"), i.Elem)
	case *Load:
		rhs = fmt.Sprintf("%s %s", op("load"), v(i.Address))
	case *Store:
		return fmt.Sprintf("%s %s at %s", op("store"), v(i.Value), v(i.Address))
	case *Binary:
		rhs = fmt.Sprintf("%s %s, %s", op(i.Op.String()), v(i.Lhs), v(i.Rhs))
	case *Not:
		rhs = fmt.Sprintf("%s %s", op("not"), v(i.Value))
	case *Cast:
		rhs = fmt.Sprintf("%s %s as %s", op("cast"), v(i.Value), i.To)
	case *Constrain:
		s := fmt.Sprintf("%s %s == %s", op("constrain"), v(i.Lhs), v(i.Rhs))
		if i.Message != "" {
			s += fmt.Sprintf(" %q", i.Message)
		}
		return s
	case *Call:
		rhs = fmt.Sprintf("%s %s(%s)", op("call"), v(i.Func), p.values(m, fn, i.Args))
	case *MakeClosure:
		rhs = fmt.Sprintf("%s %s [%s]", op("make_closure"), v(i.Func), p.values(m, fn, i.Captures))
	case *ArrayGet:
		rhs = fmt.Sprintf("%s %s, index %s", op("array_get"), v(i.Array), v(i.Index))
	case *ArraySet:
		rhs = fmt.Sprintf("%s %s, index %s, value %s", op("array_set"), v(i.Array), v(i.Index), v(i.Value))
	case *ArrayLen:
		rhs = fmt.Sprintf("%s %s", op("array_len"), v(i.Array))
	case *MakeArray:
		rhs = fmt.Sprintf("%s [%s] : %s", op("make_array"), p.values(m, fn, i.Elements), i.Type)
	case *MakeAggregate:
		rhs = fmt.Sprintf("%s (%s) : %s", op("make_aggregate"), p.values(m, fn, i.Fields), i.Type)
	case *ExtractField:
		rhs = fmt.Sprintf("%s %s, %d", op("extract_field"), v(i.Aggregate), i.Index)
	case *InsertField:
		rhs = fmt.Sprintf("%s %s, %d, %s", op("insert_field"), v(i.Aggregate), i.Index, v(i.Value))
	default:
		return fmt.Sprintf("<unknown %T>", instr)
	}

	results := instr.Results()
	if len(results) == 0 {
		return rhs
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.String()
	}
	return fmt.Sprintf("%s = %s", strings.Join(names, ", "), rhs)
}

func (p Printer) terminator(m *Module, fn *Function, t Terminator) string {
	op := func(s string) string { return p.paint(ansiOpcode, s) }
	blk := func(id BlockID) string { return p.paint(ansiBlock, id.String()) }
	switch t := t.(type) {
	case *Jmp:
		return fmt.Sprintf("%s %s(%s)", op("jmp"), blk(t.Destination), p.values(m, fn, t.Arguments))
	case *JmpIf:
		return fmt.Sprintf("%s %s then: %s, else: %s", op("jmpif"), p.value(m, fn, t.Condition), blk(t.Then), blk(t.Else))
	case *Return:
		if len(t.Values) == 0 {
			return op("return")
		}
		return fmt.Sprintf("%s %s", op("return"), p.values(m, fn, t.Values))
	}
	return fmt.Sprintf("<unknown %T>", t)
}
