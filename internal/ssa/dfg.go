package ssa

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/funvibe/refssa/internal/typesystem"
)

// BasicBlock is a straight-line run of instructions ending in a terminator.
type BasicBlock struct {
	ID           BlockID
	Params       []ValueID
	Instructions []Instruction
	Terminator   Terminator
}

// Successors returns the blocks control may flow to, or nil before the
// block is terminated.
func (b *BasicBlock) Successors() []BlockID {
	if b.Terminator == nil {
		return nil
	}
	return b.Terminator.Successors()
}

// DataFlowGraph owns every value and block of one function.
// Index 0 of both tables is the invalid sentinel.
type DataFlowGraph struct {
	values []ValueInfo
	blocks []*BasicBlock

	numerics   map[string]ValueID
	functions  map[FunctionID]ValueID
	intrinsics map[Intrinsic]ValueID
}

func NewDataFlowGraph() *DataFlowGraph {
	return &DataFlowGraph{
		values:     make([]ValueInfo, 1),
		blocks:     make([]*BasicBlock, 1),
		numerics:   make(map[string]ValueID),
		functions:  make(map[FunctionID]ValueID),
		intrinsics: make(map[Intrinsic]ValueID),
	}
}

// NumValues returns the number of values allocated so far.
func (d *DataFlowGraph) NumValues() int { return len(d.values) - 1 }

// NumBlocks returns the number of blocks allocated so far.
func (d *DataFlowGraph) NumBlocks() int { return len(d.blocks) - 1 }

func (d *DataFlowGraph) HasValue(id ValueID) bool {
	return id.IsValid() && int(id) < len(d.values)
}

func (d *DataFlowGraph) HasBlock(id BlockID) bool {
	return id.IsValid() && int(id) < len(d.blocks)
}

// Value returns the entry for id. Unknown ids yield the zero ValueInfo.
func (d *DataFlowGraph) Value(id ValueID) ValueInfo {
	if !d.HasValue(id) {
		return ValueInfo{}
	}
	return d.values[id]
}

// Type returns the type of id, or nil for unknown ids.
func (d *DataFlowGraph) Type(id ValueID) typesystem.Type {
	return d.Value(id).Type
}

// Block returns the block for id, or nil.
func (d *DataFlowGraph) Block(id BlockID) *BasicBlock {
	if !d.HasBlock(id) {
		return nil
	}
	return d.blocks[id]
}

// Blocks returns every block in ID order.
func (d *DataFlowGraph) Blocks() []*BasicBlock {
	return d.blocks[1:]
}

// MakeBlock allocates an empty, unterminated block.
func (d *DataFlowGraph) MakeBlock() BlockID {
	id := BlockID(len(d.blocks))
	d.blocks = append(d.blocks, &BasicBlock{ID: id})
	return id
}

func (d *DataFlowGraph) newValue(info ValueInfo) ValueID {
	id := ValueID(len(d.values))
	d.values = append(d.values, info)
	return id
}

// MakeInstructionResult allocates a value defined by an instruction.
func (d *DataFlowGraph) MakeInstructionResult(typ typesystem.Type) ValueID {
	return d.newValue(ValueInfo{Kind: ValueInstruction, Type: typ})
}

// AddBlockParam appends a typed parameter to block.
func (d *DataFlowGraph) AddBlockParam(block BlockID, typ typesystem.Type) ValueID {
	b := d.Block(block)
	if b == nil {
		panic(fmt.Sprintf("ssa: parameter added to unknown block %s", block))
	}
	id := d.newValue(ValueInfo{Kind: ValueParam, Type: typ, Block: block, Position: len(b.Params)})
	b.Params = append(b.Params, id)
	return id
}

// NumericConstant interns a constant: equal (value, type) pairs share an ID.
func (d *DataFlowGraph) NumericConstant(value *big.Int, typ typesystem.Type) ValueID {
	key := typ.String() + ":" + value.String()
	if id, ok := d.numerics[key]; ok {
		return id
	}
	id := d.newValue(ValueInfo{Kind: ValueNumeric, Type: typ, Numeric: new(big.Int).Set(value)})
	d.numerics[key] = id
	return id
}

// ImportFunction interns a reference to a module function.
func (d *DataFlowGraph) ImportFunction(fn FunctionID, typ typesystem.Type) ValueID {
	if id, ok := d.functions[fn]; ok {
		return id
	}
	id := d.newValue(ValueInfo{Kind: ValueFunction, Type: typ, Function: fn})
	d.functions[fn] = id
	return id
}

// ImportIntrinsic interns a reference to an intrinsic.
func (d *DataFlowGraph) ImportIntrinsic(in Intrinsic) ValueID {
	if id, ok := d.intrinsics[in]; ok {
		return id
	}
	id := d.newValue(ValueInfo{Kind: ValueIntrinsic, Type: typesystem.TFunc{Return: typesystem.Unit}, Intrinsic: in})
	d.intrinsics[in] = id
	return id
}

// GetNumericConstant returns the constant behind id, if it is one.
func (d *DataFlowGraph) GetNumericConstant(id ValueID) (*big.Int, bool) {
	info := d.Value(id)
	if info.Kind != ValueNumeric {
		return nil, false
	}
	return info.Numeric, true
}

// restoreValue appends a decoded value, re-registering interned kinds.
func (d *DataFlowGraph) restoreValue(info ValueInfo) ValueID {
	id := d.newValue(info)
	switch info.Kind {
	case ValueNumeric:
		d.numerics[info.Type.String()+":"+info.Numeric.String()] = id
	case ValueFunction:
		d.functions[info.Function] = id
	case ValueIntrinsic:
		d.intrinsics[info.Intrinsic] = id
	}
	return id
}

// Function is a single SSA function.
type Function struct {
	ID          FunctionID
	Name        string
	DFG         *DataFlowGraph
	Entry       BlockID
	ReturnTypes []typesystem.Type
}

// NewFunction creates a function with an empty entry block.
func NewFunction(id FunctionID, name string) *Function {
	dfg := NewDataFlowGraph()
	return &Function{ID: id, Name: name, DFG: dfg, Entry: dfg.MakeBlock()}
}

// Params returns the entry block parameters.
func (f *Function) Params() []ValueID {
	return f.DFG.Block(f.Entry).Params
}

// ReachableBlocks returns the blocks reachable from the entry, in ID order.
func (f *Function) ReachableBlocks() []BlockID {
	seen := map[BlockID]bool{f.Entry: true}
	stack := []BlockID{f.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := f.DFG.Block(id)
		if b == nil {
			continue
		}
		for _, s := range b.Successors() {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	out := make([]BlockID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Module is a set of functions addressed by ID and by name.
type Module struct {
	Functions []*Function
}

// AddFunction appends fn. Its ID must be the next free one.
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// NextFunctionID returns the ID the next added function should carry.
func (m *Module) NextFunctionID() FunctionID {
	return FunctionID(len(m.Functions) + 1)
}

// FunctionByID returns nil for unknown IDs.
func (m *Module) FunctionByID(id FunctionID) *Function {
	if !id.IsValid() || int(id) > len(m.Functions) {
		return nil
	}
	return m.Functions[id-1]
}

// Function looks a function up by name.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Reserve appends a placeholder so IDs can be assigned before bodies are
// lowered. Set replaces it.
func (m *Module) Reserve(name string) FunctionID {
	id := m.NextFunctionID()
	m.Functions = append(m.Functions, NewFunction(id, name))
	return id
}

// Set installs the lowered body of a reserved function.
func (m *Module) Set(fn *Function) {
	m.Functions[fn.ID-1] = fn
}
