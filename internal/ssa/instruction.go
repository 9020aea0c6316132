package ssa

import "github.com/funvibe/refssa/internal/typesystem"

// Instruction is a non-terminating operation inside a basic block.
type Instruction interface {
	Opcode() Opcode
	// Results lists the values defined by the instruction.
	Results() []ValueID
	// Operands lists the values read by the instruction, in order.
	Operands() []ValueID
}

// Allocate reserves a fresh memory cell for a value of type Elem.
// The result has type &mut Elem.
type Allocate struct {
	Result ValueID
	Elem   typesystem.Type
}

// Load reads the current content of a cell.
type Load struct {
	Result  ValueID
	Address ValueID
}

// Store overwrites the content of a cell.
type Store struct {
	Address ValueID
	Value   ValueID
}

type Binary struct {
	Result ValueID
	Op     BinaryOp
	Lhs    ValueID
	Rhs    ValueID
}

type Not struct {
	Result ValueID
	Value  ValueID
}

type Cast struct {
	Result ValueID
	Value  ValueID
	To     typesystem.Type
}

// Constrain fails execution unless Lhs equals Rhs.
type Constrain struct {
	Lhs     ValueID
	Rhs     ValueID
	Message string
}

// Call invokes a function reference, a closure or an intrinsic.
type Call struct {
	Returns []ValueID
	Func    ValueID
	Args    []ValueID
}

// MakeClosure copies Captures at creation time. Calling the closure passes
// them ahead of the explicit arguments.
type MakeClosure struct {
	Result   ValueID
	Func     ValueID
	Captures []ValueID
}

type ArrayGet struct {
	Result ValueID
	Array  ValueID
	Index  ValueID
}

// ArraySet yields a copy of Array with the element at Index replaced.
type ArraySet struct {
	Result ValueID
	Array  ValueID
	Index  ValueID
	Value  ValueID
}

type ArrayLen struct {
	Result ValueID
	Array  ValueID
}

// MakeArray builds an array or slice of Type from Elements.
type MakeArray struct {
	Result   ValueID
	Elements []ValueID
	Type     typesystem.Type
}

// MakeAggregate builds a struct or tuple of Type from Fields.
type MakeAggregate struct {
	Result ValueID
	Fields []ValueID
	Type   typesystem.Type
}

type ExtractField struct {
	Result    ValueID
	Aggregate ValueID
	Index     int
}

// InsertField yields a copy of Aggregate with field Index replaced.
type InsertField struct {
	Result    ValueID
	Aggregate ValueID
	Index     int
	Value     ValueID
}

func (*Allocate) Opcode() Opcode      { return OP_ALLOCATE }
func (*Load) Opcode() Opcode          { return OP_LOAD }
func (*Store) Opcode() Opcode         { return OP_STORE }
func (*Binary) Opcode() Opcode        { return OP_BINARY }
func (*Not) Opcode() Opcode           { return OP_NOT }
func (*Cast) Opcode() Opcode          { return OP_CAST }
func (*Constrain) Opcode() Opcode     { return OP_CONSTRAIN }
func (*Call) Opcode() Opcode          { return OP_CALL }
func (*MakeClosure) Opcode() Opcode   { return OP_MAKE_CLOSURE }
func (*ArrayGet) Opcode() Opcode      { return OP_ARRAY_GET }
func (*ArraySet) Opcode() Opcode      { return OP_ARRAY_SET }
func (*ArrayLen) Opcode() Opcode      { return OP_ARRAY_LEN }
func (*MakeArray) Opcode() Opcode     { return OP_MAKE_ARRAY }
func (*MakeAggregate) Opcode() Opcode { return OP_MAKE_AGGREGATE }
func (*ExtractField) Opcode() Opcode  { return OP_EXTRACT_FIELD }
func (*InsertField) Opcode() Opcode   { return OP_INSERT_FIELD }

func (i *Allocate) Results() []ValueID      { return []ValueID{i.Result} }
func (i *Load) Results() []ValueID          { return []ValueID{i.Result} }
func (*Store) Results() []ValueID           { return nil }
func (i *Binary) Results() []ValueID        { return []ValueID{i.Result} }
func (i *Not) Results() []ValueID           { return []ValueID{i.Result} }
func (i *Cast) Results() []ValueID          { return []ValueID{i.Result} }
func (*Constrain) Results() []ValueID       { return nil }
func (i *Call) Results() []ValueID          { return i.Returns }
func (i *MakeClosure) Results() []ValueID   { return []ValueID{i.Result} }
func (i *ArrayGet) Results() []ValueID      { return []ValueID{i.Result} }
func (i *ArraySet) Results() []ValueID      { return []ValueID{i.Result} }
func (i *ArrayLen) Results() []ValueID      { return []ValueID{i.Result} }
func (i *MakeArray) Results() []ValueID     { return []ValueID{i.Result} }
func (i *MakeAggregate) Results() []ValueID { return []ValueID{i.Result} }
func (i *ExtractField) Results() []ValueID  { return []ValueID{i.Result} }
func (i *InsertField) Results() []ValueID   { return []ValueID{i.Result} }

func (*Allocate) Operands() []ValueID        { return nil }
func (i *Load) Operands() []ValueID          { return []ValueID{i.Address} }
func (i *Store) Operands() []ValueID         { return []ValueID{i.Address, i.Value} }
func (i *Binary) Operands() []ValueID        { return []ValueID{i.Lhs, i.Rhs} }
func (i *Not) Operands() []ValueID           { return []ValueID{i.Value} }
func (i *Cast) Operands() []ValueID          { return []ValueID{i.Value} }
func (i *Constrain) Operands() []ValueID     { return []ValueID{i.Lhs, i.Rhs} }
func (i *Call) Operands() []ValueID          { return append([]ValueID{i.Func}, i.Args...) }
func (i *MakeClosure) Operands() []ValueID   { return append([]ValueID{i.Func}, i.Captures...) }
func (i *ArrayGet) Operands() []ValueID      { return []ValueID{i.Array, i.Index} }
func (i *ArraySet) Operands() []ValueID      { return []ValueID{i.Array, i.Index, i.Value} }
func (i *ArrayLen) Operands() []ValueID      { return []ValueID{i.Array} }
func (i *MakeArray) Operands() []ValueID     { return append([]ValueID(nil), i.Elements...) }
func (i *MakeAggregate) Operands() []ValueID { return append([]ValueID(nil), i.Fields...) }
func (i *ExtractField) Operands() []ValueID  { return []ValueID{i.Aggregate} }
func (i *InsertField) Operands() []ValueID   { return []ValueID{i.Aggregate, i.Value} }

// Terminator ends a basic block and names its successors.
type Terminator interface {
	Successors() []BlockID
	Operands() []ValueID
}

// Jmp transfers control to Destination, binding Arguments to its parameters.
type Jmp struct {
	Destination BlockID
	Arguments   []ValueID
}

// JmpIf branches on a bool. Neither target takes parameters.
type JmpIf struct {
	Condition ValueID
	Then      BlockID
	Else      BlockID
}

type Return struct {
	Values []ValueID
}

func (t *Jmp) Successors() []BlockID   { return []BlockID{t.Destination} }
func (t *JmpIf) Successors() []BlockID { return []BlockID{t.Then, t.Else} }
func (*Return) Successors() []BlockID  { return nil }

func (t *Jmp) Operands() []ValueID    { return append([]ValueID(nil), t.Arguments...) }
func (t *JmpIf) Operands() []ValueID  { return []ValueID{t.Condition} }
func (t *Return) Operands() []ValueID { return append([]ValueID(nil), t.Values...) }
