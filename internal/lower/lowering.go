package lower

import (
	"fmt"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// Local is a binding visible while lowering a function body.
type Local struct {
	Name  string
	Depth int // Scope depth where this local was declared
	Type  typesystem.Type

	// Mutable locals live in a cell and every read is a Load.
	Mutable bool
	Cell    ssa.ValueID

	// Value is the SSA value of an immutable local.
	Value ssa.ValueID
}

// functionLowering lowers one SSA function: a declared function or a lambda.
type functionLowering struct {
	m         *moduleLowering
	b         *ssa.FunctionBuilder
	name      string
	enclosing *functionLowering

	locals     []Local
	scopeDepth int

	lambdaCount int

	// lens holds statically known slice lengths. A value's length never
	// changes, so these facts hold for the whole function.
	lens map[ssa.ValueID]int
	// parts remembers the fields of tuples built here, so destructuring
	// them needs no ExtractField and keeps what is known about each part.
	parts map[ssa.ValueID][]ssa.ValueID

	// cellLens holds the known length of a cell's current content. Only
	// valid inside the current block, and only kept for allocated cells:
	// any other reference may alias one of them.
	cellLens  map[ssa.ValueID]int
	allocated map[ssa.ValueID]bool
}

func newFunctionLowering(m *moduleLowering, enclosing *functionLowering, id ssa.FunctionID, name string) *functionLowering {
	return &functionLowering{
		m:         m,
		b:         ssa.NewFunctionBuilder(id, name),
		name:      name,
		enclosing: enclosing,
		lens:      make(map[ssa.ValueID]int),
		parts:     make(map[ssa.ValueID][]ssa.ValueID),
		cellLens:  make(map[ssa.ValueID]int),
		allocated: make(map[ssa.ValueID]bool),
	}
}

// switchTo moves the insertion point. Facts about cell contents do not
// survive a block boundary.
func (fl *functionLowering) switchTo(block ssa.BlockID) {
	fl.b.SwitchToBlock(block)
	fl.cellLens = make(map[ssa.ValueID]int)
}

// forgetCells drops every cell fact, for calls that may store through
// references they were handed.
func (fl *functionLowering) forgetCells() {
	if len(fl.cellLens) > 0 {
		fl.cellLens = make(map[ssa.ValueID]int)
	}
}

// typeOf returns the static type of a lowered value. Unit expressions
// lower to InvalidValue.
func (fl *functionLowering) typeOf(v ssa.ValueID) typesystem.Type {
	if !v.IsValid() {
		return typesystem.Unit
	}
	return fl.b.Type(v)
}

// knownLen returns the static length of a sequence value, if any.
func (fl *functionLowering) knownLen(v ssa.ValueID) (int, bool) {
	if arr, ok := fl.typeOf(v).(typesystem.TArray); ok {
		return arr.Len, true
	}
	n, ok := fl.lens[v]
	return n, ok
}

func (fl *functionLowering) setLen(v ssa.ValueID, n int, ok bool) {
	if ok {
		fl.lens[v] = n
	}
}

// load reads a cell, carrying a known content length to the result.
func (fl *functionLowering) load(cell ssa.ValueID) ssa.ValueID {
	ref := fl.typeOf(cell).(typesystem.TRef)
	v := fl.b.InsertLoad(cell, ref.Elem)
	if n, ok := fl.cellLens[cell]; ok {
		fl.lens[v] = n
	}
	return v
}

// store writes a cell and records what is known about the new content.
// A store through a reference of unknown origin may hit any cell.
func (fl *functionLowering) store(cell, value ssa.ValueID) {
	fl.b.InsertStore(cell, value)
	if !fl.allocated[cell] {
		fl.forgetCells()
		return
	}
	if n, ok := fl.lens[value]; ok {
		fl.cellLens[cell] = n
	} else {
		delete(fl.cellLens, cell)
	}
}

// allocate is AllocateReference: a fresh cell holding value.
func (fl *functionLowering) allocate(value ssa.ValueID) ssa.ValueID {
	cell := fl.b.InsertAllocate(fl.typeOf(value))
	fl.allocated[cell] = true
	fl.store(cell, value)
	return cell
}

// derefAll loads through every reference layer of v.
func (fl *functionLowering) derefAll(v ssa.ValueID) ssa.ValueID {
	for typesystem.IsReference(fl.typeOf(v)) {
		v = fl.load(v)
	}
	return v
}

// finish terminates the current block with the function result.
func (fl *functionLowering) finish(tok token.Token, ret typesystem.Type, result ssa.ValueID) error {
	got := fl.typeOf(result)
	if err := typesystem.Expect(ret, got, "return value of "+fl.name); err != nil {
		return typeError(tok, err)
	}
	if _, unit := ret.(typesystem.TUnit); unit {
		fl.b.TerminateWithReturn(nil)
		return nil
	}
	fl.b.SetReturnTypes(ret)
	fl.b.TerminateWithReturn([]ssa.ValueID{result})
	return nil
}

func typeError(tok token.Token, err error) error {
	return diagnostics.NewError(diagnostics.TypeMismatch, tok, "%s", err.Error())
}

func typeErrorf(tok token.Token, format string, args ...interface{}) error {
	return diagnostics.NewError(diagnostics.TypeMismatch, tok, format, args...)
}

func malformed(node ast.Node, format string, args ...interface{}) error {
	return diagnostics.NewError(diagnostics.Malformed, node.GetToken(), format, args...)
}

// describe names an expression in diagnostics.
func describe(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Value
	case *ast.MemberExpression:
		return describe(e.Left) + "." + e.Member.Value
	case *ast.TupleIndexExpression:
		return fmt.Sprintf("%s.%d", describe(e.Tuple), e.Index)
	case *ast.IndexExpression:
		return describe(e.Left) + "[..]"
	case *ast.DerefExpression:
		return "*" + describe(e.Value)
	}
	return "expression"
}
