package ssa

import (
	"fmt"
	"math/big"

	"github.com/funvibe/refssa/internal/typesystem"
)

// FunctionBuilder appends instructions to the current block of a function.
type FunctionBuilder struct {
	fn      *Function
	current BlockID
}

// NewFunctionBuilder starts a function positioned at its entry block.
func NewFunctionBuilder(id FunctionID, name string) *FunctionBuilder {
	fn := NewFunction(id, name)
	return &FunctionBuilder{fn: fn, current: fn.Entry}
}

func (b *FunctionBuilder) Function() *Function      { return b.fn }
func (b *FunctionBuilder) DFG() *DataFlowGraph      { return b.fn.DFG }
func (b *FunctionBuilder) CurrentBlock() BlockID    { return b.current }
func (b *FunctionBuilder) SwitchToBlock(id BlockID) { b.current = id }

// InsertBlock allocates a new block without switching to it.
func (b *FunctionBuilder) InsertBlock() BlockID {
	return b.fn.DFG.MakeBlock()
}

// IsTerminated reports whether the current block already has a terminator.
func (b *FunctionBuilder) IsTerminated() bool {
	return b.fn.DFG.Block(b.current).Terminator != nil
}

// AddParameter appends a function parameter.
func (b *FunctionBuilder) AddParameter(typ typesystem.Type) ValueID {
	return b.fn.DFG.AddBlockParam(b.fn.Entry, typ)
}

func (b *FunctionBuilder) AddBlockParameter(block BlockID, typ typesystem.Type) ValueID {
	return b.fn.DFG.AddBlockParam(block, typ)
}

// SetReturnTypes records the function's result types.
func (b *FunctionBuilder) SetReturnTypes(types ...typesystem.Type) {
	b.fn.ReturnTypes = types
}

func (b *FunctionBuilder) NumericConstant(value *big.Int, typ typesystem.Type) ValueID {
	return b.fn.DFG.NumericConstant(value, typ)
}

// Int is a shorthand for small constants.
func (b *FunctionBuilder) Int(value int64, typ typesystem.Type) ValueID {
	return b.fn.DFG.NumericConstant(big.NewInt(value), typ)
}

func (b *FunctionBuilder) Bool(value bool) ValueID {
	if value {
		return b.Int(1, typesystem.Bool)
	}
	return b.Int(0, typesystem.Bool)
}

func (b *FunctionBuilder) ImportFunction(id FunctionID, typ typesystem.Type) ValueID {
	return b.fn.DFG.ImportFunction(id, typ)
}

func (b *FunctionBuilder) ImportIntrinsic(in Intrinsic) ValueID {
	return b.fn.DFG.ImportIntrinsic(in)
}

// Type returns the type of a value of the function being built.
func (b *FunctionBuilder) Type(id ValueID) typesystem.Type {
	return b.fn.DFG.Type(id)
}

func (b *FunctionBuilder) append(instr Instruction) {
	block := b.fn.DFG.Block(b.current)
	if block.Terminator != nil {
		panic(fmt.Sprintf("ssa: instruction %s appended to terminated block %s", instr.Opcode(), b.current))
	}
	block.Instructions = append(block.Instructions, instr)
}

func (b *FunctionBuilder) result(typ typesystem.Type) ValueID {
	return b.fn.DFG.MakeInstructionResult(typ)
}

// InsertAllocate returns a reference to a fresh cell holding elem.
func (b *FunctionBuilder) InsertAllocate(elem typesystem.Type) ValueID {
	r := b.result(typesystem.TRef{Elem: elem})
	b.append(&Allocate{Result: r, Elem: elem})
	return r
}

func (b *FunctionBuilder) InsertLoad(address ValueID, typ typesystem.Type) ValueID {
	r := b.result(typ)
	b.append(&Load{Result: r, Address: address})
	return r
}

func (b *FunctionBuilder) InsertStore(address, value ValueID) {
	b.append(&Store{Address: address, Value: value})
}

// InsertBinary types comparisons as bool and everything else as lhs.
func (b *FunctionBuilder) InsertBinary(op BinaryOp, lhs, rhs ValueID) ValueID {
	typ := b.Type(lhs)
	if op.IsComparison() {
		typ = typesystem.Bool
	}
	r := b.result(typ)
	b.append(&Binary{Result: r, Op: op, Lhs: lhs, Rhs: rhs})
	return r
}

func (b *FunctionBuilder) InsertNot(value ValueID) ValueID {
	r := b.result(b.Type(value))
	b.append(&Not{Result: r, Value: value})
	return r
}

func (b *FunctionBuilder) InsertCast(value ValueID, to typesystem.Type) ValueID {
	r := b.result(to)
	b.append(&Cast{Result: r, Value: value, To: to})
	return r
}

func (b *FunctionBuilder) InsertConstrain(lhs, rhs ValueID, message string) {
	b.append(&Constrain{Lhs: lhs, Rhs: rhs, Message: message})
}

// InsertCall allocates one result per entry of resultTypes.
func (b *FunctionBuilder) InsertCall(fn ValueID, args []ValueID, resultTypes []typesystem.Type) []ValueID {
	results := make([]ValueID, len(resultTypes))
	for i, t := range resultTypes {
		results[i] = b.result(t)
	}
	b.append(&Call{Returns: results, Func: fn, Args: args})
	return results
}

func (b *FunctionBuilder) InsertMakeClosure(fn ValueID, captures []ValueID, typ typesystem.Type) ValueID {
	r := b.result(typ)
	b.append(&MakeClosure{Result: r, Func: fn, Captures: captures})
	return r
}

func (b *FunctionBuilder) InsertArrayGet(array, index ValueID, elem typesystem.Type) ValueID {
	r := b.result(elem)
	b.append(&ArrayGet{Result: r, Array: array, Index: index})
	return r
}

func (b *FunctionBuilder) InsertArraySet(array, index, value ValueID) ValueID {
	r := b.result(b.Type(array))
	b.append(&ArraySet{Result: r, Array: array, Index: index, Value: value})
	return r
}

func (b *FunctionBuilder) InsertArrayLen(array ValueID) ValueID {
	r := b.result(typesystem.U32)
	b.append(&ArrayLen{Result: r, Array: array})
	return r
}

func (b *FunctionBuilder) InsertMakeArray(elements []ValueID, typ typesystem.Type) ValueID {
	r := b.result(typ)
	b.append(&MakeArray{Result: r, Elements: elements, Type: typ})
	return r
}

func (b *FunctionBuilder) InsertMakeAggregate(fields []ValueID, typ typesystem.Type) ValueID {
	r := b.result(typ)
	b.append(&MakeAggregate{Result: r, Fields: fields, Type: typ})
	return r
}

func (b *FunctionBuilder) InsertExtractField(aggregate ValueID, index int, typ typesystem.Type) ValueID {
	r := b.result(typ)
	b.append(&ExtractField{Result: r, Aggregate: aggregate, Index: index})
	return r
}

func (b *FunctionBuilder) InsertInsertField(aggregate ValueID, index int, value ValueID) ValueID {
	r := b.result(b.Type(aggregate))
	b.append(&InsertField{Result: r, Aggregate: aggregate, Index: index, Value: value})
	return r
}

func (b *FunctionBuilder) terminate(t Terminator) {
	block := b.fn.DFG.Block(b.current)
	if block.Terminator != nil {
		panic(fmt.Sprintf("ssa: block %s terminated twice", b.current))
	}
	block.Terminator = t
}

func (b *FunctionBuilder) TerminateWithJmp(dest BlockID, args []ValueID) {
	b.terminate(&Jmp{Destination: dest, Arguments: args})
}

func (b *FunctionBuilder) TerminateWithJmpIf(cond ValueID, then, els BlockID) {
	b.terminate(&JmpIf{Condition: cond, Then: then, Else: els})
}

func (b *FunctionBuilder) TerminateWithReturn(values []ValueID) {
	b.terminate(&Return{Values: values})
}
