package ssa

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/funvibe/refssa/internal/typesystem"
)

// Encoded module layout:
//   - Magic number (4 bytes): "RSSA"
//   - Version (1 byte): 0x01
//   - Payload: protobuf wire-format Module message
var codecMagic = [4]byte{'R', 'S', 'S', 'A'}

const codecVersionV1 byte = 0x01

// ErrCorrupt is wrapped by every Decode failure.
var ErrCorrupt = errors.New("ssa: corrupt module encoding")

// Field numbers of the wire messages.
const (
	// Module
	fModuleFunction protowire.Number = 1

	// Function
	fFuncID     protowire.Number = 1
	fFuncName   protowire.Number = 2
	fFuncEntry  protowire.Number = 3
	fFuncValue  protowire.Number = 4
	fFuncBlock  protowire.Number = 5
	fFuncReturn protowire.Number = 6

	// Value
	fValueKind      protowire.Number = 1
	fValueType      protowire.Number = 2
	fValueBlock     protowire.Number = 3
	fValuePosition  protowire.Number = 4
	fValueNumeric   protowire.Number = 5
	fValueFunction  protowire.Number = 6
	fValueIntrinsic protowire.Number = 7

	// Block
	fBlockID     protowire.Number = 1
	fBlockParam  protowire.Number = 2
	fBlockInstr  protowire.Number = 3
	fBlockTerm   protowire.Number = 4
	fInstrOpcode protowire.Number = 1
	fInstrResult protowire.Number = 2
	fInstrOp     protowire.Number = 3
	fInstrType   protowire.Number = 4
	fInstrImm    protowire.Number = 5
	fInstrMsg    protowire.Number = 6
	fTermKind    protowire.Number = 1
	fTermBlock   protowire.Number = 2
	fTermOp      protowire.Number = 3

	// Type
	fTypeTag    protowire.Number = 1
	fTypeBits   protowire.Number = 2
	fTypeSigned protowire.Number = 3
	fTypeLen    protowire.Number = 4
	fTypeName   protowire.Number = 5
	fTypeElem   protowire.Number = 6
	fTypeField  protowire.Number = 7
)

const (
	tagField uint64 = iota + 1
	tagInt
	tagBool
	tagUnit
	tagArray
	tagSlice
	tagStruct
	tagTuple
	tagRef
	tagFunc
)

const (
	termJmp uint64 = iota + 1
	termJmpIf
	termReturn
)

// Encode serializes m. Equal modules encode to equal bytes.
func Encode(m *Module) []byte {
	out := append([]byte(nil), codecMagic[:]...)
	out = append(out, codecVersionV1)
	for _, fn := range m.Functions {
		out = appendBytes(out, fModuleFunction, encodeFunction(fn))
	}
	return out
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Module, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: too short", ErrCorrupt)
	}
	if [4]byte(data[:4]) != codecMagic {
		return nil, fmt.Errorf("%w: invalid magic number, expected RSSA", ErrCorrupt)
	}
	if data[4] != codecVersionV1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[4])
	}
	msg, err := decodeMessage(data[5:])
	if err != nil {
		return nil, err
	}
	m := &Module{}
	for i, raw := range msg.all(fModuleFunction) {
		fn, err := decodeFunction(raw.bytes)
		if err != nil {
			return nil, err
		}
		if fn.ID != FunctionID(i+1) {
			return nil, fmt.Errorf("%w: function %q has id %d at position %d", ErrCorrupt, fn.Name, fn.ID, i+1)
		}
		m.AddFunction(fn)
	}
	return m, nil
}

// buildNamespace scopes content IDs produced by this package.
var buildNamespace = uuid.MustParse("2f6d3c1a-8b4e-5d7f-9a0c-1e2b3c4d5e6f")

// ContentID derives a stable name-based UUID from data.
func ContentID(data []byte) string {
	return uuid.NewSHA1(buildNamespace, data).String()
}

// BuildID identifies a module by its encoding.
func BuildID(m *Module) string {
	return ContentID(Encode(m))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func encodeFunction(fn *Function) []byte {
	var b []byte
	b = appendVarint(b, fFuncID, uint64(fn.ID))
	b = appendString(b, fFuncName, fn.Name)
	b = appendVarint(b, fFuncEntry, uint64(fn.Entry))
	for id := 1; id <= fn.DFG.NumValues(); id++ {
		b = appendBytes(b, fFuncValue, encodeValue(fn.DFG.Value(ValueID(id))))
	}
	for _, block := range fn.DFG.Blocks() {
		b = appendBytes(b, fFuncBlock, encodeBlock(block))
	}
	for _, t := range fn.ReturnTypes {
		b = appendBytes(b, fFuncReturn, encodeType(t))
	}
	return b
}

func encodeValue(info ValueInfo) []byte {
	var b []byte
	b = appendVarint(b, fValueKind, uint64(info.Kind))
	if info.Type != nil {
		b = appendBytes(b, fValueType, encodeType(info.Type))
	}
	switch info.Kind {
	case ValueParam:
		b = appendVarint(b, fValueBlock, uint64(info.Block))
		b = appendVarint(b, fValuePosition, uint64(info.Position))
	case ValueNumeric:
		b = appendString(b, fValueNumeric, info.Numeric.String())
	case ValueFunction:
		b = appendVarint(b, fValueFunction, uint64(info.Function))
	case ValueIntrinsic:
		b = appendVarint(b, fValueIntrinsic, uint64(info.Intrinsic))
	}
	return b
}

func encodeBlock(block *BasicBlock) []byte {
	var b []byte
	b = appendVarint(b, fBlockID, uint64(block.ID))
	for _, p := range block.Params {
		b = appendVarint(b, fBlockParam, uint64(p))
	}
	for _, instr := range block.Instructions {
		b = appendBytes(b, fBlockInstr, encodeInstruction(instr))
	}
	if block.Terminator != nil {
		b = appendBytes(b, fBlockTerm, encodeTerminator(block.Terminator))
	}
	return b
}

func encodeInstruction(instr Instruction) []byte {
	var b []byte
	b = appendVarint(b, fInstrOpcode, uint64(instr.Opcode()))
	for _, r := range instr.Results() {
		b = appendVarint(b, fInstrResult, uint64(r))
	}
	for _, op := range instr.Operands() {
		b = appendVarint(b, fInstrOp, uint64(op))
	}
	switch i := instr.(type) {
	case *Allocate:
		b = appendBytes(b, fInstrType, encodeType(i.Elem))
	case *Cast:
		b = appendBytes(b, fInstrType, encodeType(i.To))
	case *MakeArray:
		b = appendBytes(b, fInstrType, encodeType(i.Type))
	case *MakeAggregate:
		b = appendBytes(b, fInstrType, encodeType(i.Type))
	case *Binary:
		b = appendVarint(b, fInstrImm, uint64(i.Op))
	case *ExtractField:
		b = appendVarint(b, fInstrImm, uint64(i.Index))
	case *InsertField:
		b = appendVarint(b, fInstrImm, uint64(i.Index))
	case *Constrain:
		if i.Message != "" {
			b = appendString(b, fInstrMsg, i.Message)
		}
	}
	return b
}

func encodeTerminator(t Terminator) []byte {
	var b []byte
	switch t.(type) {
	case *Jmp:
		b = appendVarint(b, fTermKind, termJmp)
	case *JmpIf:
		b = appendVarint(b, fTermKind, termJmpIf)
	case *Return:
		b = appendVarint(b, fTermKind, termReturn)
	}
	for _, s := range t.Successors() {
		b = appendVarint(b, fTermBlock, uint64(s))
	}
	for _, op := range t.Operands() {
		b = appendVarint(b, fTermOp, uint64(op))
	}
	return b
}

func encodeType(t typesystem.Type) []byte {
	var b []byte
	switch t := t.(type) {
	case typesystem.TField:
		b = appendVarint(b, fTypeTag, tagField)
	case typesystem.TInt:
		b = appendVarint(b, fTypeTag, tagInt)
		b = appendVarint(b, fTypeBits, uint64(t.Bits))
		b = appendVarint(b, fTypeSigned, protowire.EncodeBool(t.Signed))
	case typesystem.TBool:
		b = appendVarint(b, fTypeTag, tagBool)
	case typesystem.TUnit:
		b = appendVarint(b, fTypeTag, tagUnit)
	case typesystem.TArray:
		b = appendVarint(b, fTypeTag, tagArray)
		b = appendVarint(b, fTypeLen, uint64(t.Len))
		b = appendBytes(b, fTypeElem, encodeType(t.Elem))
	case typesystem.TSlice:
		b = appendVarint(b, fTypeTag, tagSlice)
		b = appendBytes(b, fTypeElem, encodeType(t.Elem))
	case typesystem.TStruct:
		b = appendVarint(b, fTypeTag, tagStruct)
		b = appendString(b, fTypeName, t.Name)
		for _, f := range t.Fields {
			b = appendString(b, fTypeField, f.Name)
			b = appendBytes(b, fTypeElem, encodeType(f.Type))
		}
	case typesystem.TTuple:
		b = appendVarint(b, fTypeTag, tagTuple)
		for _, e := range t.Elems {
			b = appendBytes(b, fTypeElem, encodeType(e))
		}
	case typesystem.TRef:
		b = appendVarint(b, fTypeTag, tagRef)
		b = appendBytes(b, fTypeElem, encodeType(t.Elem))
	case typesystem.TFunc:
		b = appendVarint(b, fTypeTag, tagFunc)
		for _, p := range t.Params {
			b = appendBytes(b, fTypeElem, encodeType(p))
		}
		b = appendBytes(b, fTypeElem, encodeType(t.Return))
	}
	return b
}

// rawField is one decoded occurrence of a field.
type rawField struct {
	varint uint64
	bytes  []byte
}

type message map[protowire.Number][]rawField

func decodeMessage(b []byte) (message, error) {
	msg := make(message)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]
		var f rawField
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
		}
		b = b[n:]
		msg[num] = append(msg[num], f)
	}
	return msg, nil
}

func (m message) all(num protowire.Number) []rawField { return m[num] }

func (m message) varint(num protowire.Number) uint64 {
	if fs := m[num]; len(fs) > 0 {
		return fs[len(fs)-1].varint
	}
	return 0
}

func (m message) bytes(num protowire.Number) ([]byte, bool) {
	if fs := m[num]; len(fs) > 0 {
		return fs[len(fs)-1].bytes, true
	}
	return nil, false
}

func (m message) string(num protowire.Number) string {
	b, _ := m.bytes(num)
	return string(b)
}

func (m message) ids(num protowire.Number) []ValueID {
	fs := m[num]
	out := make([]ValueID, len(fs))
	for i, f := range fs {
		out[i] = ValueID(f.varint)
	}
	return out
}

func decodeFunction(data []byte) (*Function, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}
	dfg := NewDataFlowGraph()
	fn := &Function{
		ID:    FunctionID(msg.varint(fFuncID)),
		Name:  msg.string(fFuncName),
		DFG:   dfg,
		Entry: BlockID(msg.varint(fFuncEntry)),
	}
	for _, raw := range msg.all(fFuncValue) {
		info, err := decodeValue(raw.bytes)
		if err != nil {
			return nil, err
		}
		dfg.restoreValue(info)
	}
	for i, raw := range msg.all(fFuncBlock) {
		id := dfg.MakeBlock()
		if err := decodeBlock(raw.bytes, dfg.Block(id)); err != nil {
			return nil, err
		}
		if dfg.Block(id).ID != BlockID(i+1) {
			return nil, fmt.Errorf("%w: block out of order in %q", ErrCorrupt, fn.Name)
		}
	}
	if !dfg.HasBlock(fn.Entry) {
		return nil, fmt.Errorf("%w: function %q has no entry block", ErrCorrupt, fn.Name)
	}
	for _, raw := range msg.all(fFuncReturn) {
		t, err := decodeType(raw.bytes)
		if err != nil {
			return nil, err
		}
		fn.ReturnTypes = append(fn.ReturnTypes, t)
	}
	return fn, nil
}

func decodeValue(data []byte) (ValueInfo, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return ValueInfo{}, err
	}
	info := ValueInfo{Kind: ValueKind(msg.varint(fValueKind))}
	if raw, ok := msg.bytes(fValueType); ok {
		if info.Type, err = decodeType(raw); err != nil {
			return ValueInfo{}, err
		}
	}
	switch info.Kind {
	case ValueInstruction:
	case ValueParam:
		info.Block = BlockID(msg.varint(fValueBlock))
		info.Position = int(msg.varint(fValuePosition))
	case ValueNumeric:
		n, ok := new(big.Int).SetString(msg.string(fValueNumeric), 10)
		if !ok || info.Type == nil {
			return ValueInfo{}, fmt.Errorf("%w: bad numeric constant", ErrCorrupt)
		}
		info.Numeric = n
	case ValueFunction:
		info.Function = FunctionID(msg.varint(fValueFunction))
	case ValueIntrinsic:
		info.Intrinsic = Intrinsic(msg.varint(fValueIntrinsic))
	default:
		return ValueInfo{}, fmt.Errorf("%w: unknown value kind %d", ErrCorrupt, info.Kind)
	}
	return info, nil
}

func decodeBlock(data []byte, block *BasicBlock) error {
	msg, err := decodeMessage(data)
	if err != nil {
		return err
	}
	block.ID = BlockID(msg.varint(fBlockID))
	block.Params = msg.ids(fBlockParam)
	for _, raw := range msg.all(fBlockInstr) {
		instr, err := decodeInstruction(raw.bytes)
		if err != nil {
			return err
		}
		block.Instructions = append(block.Instructions, instr)
	}
	if raw, ok := msg.bytes(fBlockTerm); ok {
		if block.Terminator, err = decodeTerminator(raw); err != nil {
			return err
		}
	}
	return nil
}

func decodeInstruction(data []byte) (Instruction, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}
	op := Opcode(msg.varint(fInstrOpcode))
	res := msg.ids(fInstrResult)
	ops := msg.ids(fInstrOp)
	imm := msg.varint(fInstrImm)

	var typ typesystem.Type
	if raw, ok := msg.bytes(fInstrType); ok {
		if typ, err = decodeType(raw); err != nil {
			return nil, err
		}
	}
	shape := func(results, operands int) error {
		if len(res) != results || (operands >= 0 && len(ops) != operands) {
			return fmt.Errorf("%w: malformed %s", ErrCorrupt, op)
		}
		return nil
	}
	needType := func() error {
		if typ == nil {
			return fmt.Errorf("%w: %s without a type", ErrCorrupt, op)
		}
		return nil
	}

	switch op {
	case OP_ALLOCATE:
		if err := errors.Join(shape(1, 0), needType()); err != nil {
			return nil, err
		}
		return &Allocate{Result: res[0], Elem: typ}, nil
	case OP_LOAD:
		if err := shape(1, 1); err != nil {
			return nil, err
		}
		return &Load{Result: res[0], Address: ops[0]}, nil
	case OP_STORE:
		if err := shape(0, 2); err != nil {
			return nil, err
		}
		return &Store{Address: ops[0], Value: ops[1]}, nil
	case OP_BINARY:
		if err := shape(1, 2); err != nil {
			return nil, err
		}
		bop := BinaryOp(imm)
		if !bop.valid() {
			return nil, fmt.Errorf("%w: unknown binary operator %d", ErrCorrupt, imm)
		}
		return &Binary{Result: res[0], Op: bop, Lhs: ops[0], Rhs: ops[1]}, nil
	case OP_NOT:
		if err := shape(1, 1); err != nil {
			return nil, err
		}
		return &Not{Result: res[0], Value: ops[0]}, nil
	case OP_CAST:
		if err := errors.Join(shape(1, 1), needType()); err != nil {
			return nil, err
		}
		return &Cast{Result: res[0], Value: ops[0], To: typ}, nil
	case OP_CONSTRAIN:
		if err := shape(0, 2); err != nil {
			return nil, err
		}
		return &Constrain{Lhs: ops[0], Rhs: ops[1], Message: msg.string(fInstrMsg)}, nil
	case OP_CALL:
		if len(ops) < 1 {
			return nil, fmt.Errorf("%w: call without a callee", ErrCorrupt)
		}
		return &Call{Returns: res, Func: ops[0], Args: ops[1:]}, nil
	case OP_MAKE_CLOSURE:
		if err := shape(1, -1); err != nil || len(ops) < 1 {
			return nil, fmt.Errorf("%w: malformed %s", ErrCorrupt, op)
		}
		return &MakeClosure{Result: res[0], Func: ops[0], Captures: ops[1:]}, nil
	case OP_ARRAY_GET:
		if err := shape(1, 2); err != nil {
			return nil, err
		}
		return &ArrayGet{Result: res[0], Array: ops[0], Index: ops[1]}, nil
	case OP_ARRAY_SET:
		if err := shape(1, 3); err != nil {
			return nil, err
		}
		return &ArraySet{Result: res[0], Array: ops[0], Index: ops[1], Value: ops[2]}, nil
	case OP_ARRAY_LEN:
		if err := shape(1, 1); err != nil {
			return nil, err
		}
		return &ArrayLen{Result: res[0], Array: ops[0]}, nil
	case OP_MAKE_ARRAY:
		if err := errors.Join(shape(1, -1), needType()); err != nil {
			return nil, err
		}
		return &MakeArray{Result: res[0], Elements: ops, Type: typ}, nil
	case OP_MAKE_AGGREGATE:
		if err := errors.Join(shape(1, -1), needType()); err != nil {
			return nil, err
		}
		return &MakeAggregate{Result: res[0], Fields: ops, Type: typ}, nil
	case OP_EXTRACT_FIELD:
		if err := shape(1, 1); err != nil {
			return nil, err
		}
		return &ExtractField{Result: res[0], Aggregate: ops[0], Index: int(imm)}, nil
	case OP_INSERT_FIELD:
		if err := shape(1, 2); err != nil {
			return nil, err
		}
		return &InsertField{Result: res[0], Aggregate: ops[0], Index: int(imm), Value: ops[1]}, nil
	}
	return nil, fmt.Errorf("%w: unknown opcode %d", ErrCorrupt, op)
}

func decodeTerminator(data []byte) (Terminator, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}
	blocks := msg.all(fTermBlock)
	ops := msg.ids(fTermOp)
	switch msg.varint(fTermKind) {
	case termJmp:
		if len(blocks) != 1 {
			return nil, fmt.Errorf("%w: malformed jmp", ErrCorrupt)
		}
		return &Jmp{Destination: BlockID(blocks[0].varint), Arguments: ops}, nil
	case termJmpIf:
		if len(blocks) != 2 || len(ops) != 1 {
			return nil, fmt.Errorf("%w: malformed jmpif", ErrCorrupt)
		}
		return &JmpIf{Condition: ops[0], Then: BlockID(blocks[0].varint), Else: BlockID(blocks[1].varint)}, nil
	case termReturn:
		return &Return{Values: ops}, nil
	}
	return nil, fmt.Errorf("%w: unknown terminator", ErrCorrupt)
}

func decodeType(data []byte) (typesystem.Type, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}
	var elems []typesystem.Type
	for _, raw := range msg.all(fTypeElem) {
		t, err := decodeType(raw.bytes)
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
	}
	one := func() (typesystem.Type, error) {
		if len(elems) != 1 {
			return nil, fmt.Errorf("%w: expected one element type", ErrCorrupt)
		}
		return elems[0], nil
	}

	switch msg.varint(fTypeTag) {
	case tagField:
		return typesystem.Field, nil
	case tagInt:
		return typesystem.TInt{Bits: int(msg.varint(fTypeBits)), Signed: protowire.DecodeBool(msg.varint(fTypeSigned))}, nil
	case tagBool:
		return typesystem.Bool, nil
	case tagUnit:
		return typesystem.Unit, nil
	case tagArray:
		e, err := one()
		if err != nil {
			return nil, err
		}
		return typesystem.TArray{Elem: e, Len: int(msg.varint(fTypeLen))}, nil
	case tagSlice:
		e, err := one()
		if err != nil {
			return nil, err
		}
		return typesystem.TSlice{Elem: e}, nil
	case tagRef:
		e, err := one()
		if err != nil {
			return nil, err
		}
		return typesystem.TRef{Elem: e}, nil
	case tagStruct:
		names := msg.all(fTypeField)
		if len(names) != len(elems) {
			return nil, fmt.Errorf("%w: struct field count mismatch", ErrCorrupt)
		}
		st := typesystem.TStruct{Name: msg.string(fTypeName)}
		for i, n := range names {
			st.Fields = append(st.Fields, typesystem.StructField{Name: string(n.bytes), Type: elems[i]})
		}
		return st, nil
	case tagTuple:
		return typesystem.TTuple{Elems: elems}, nil
	case tagFunc:
		if len(elems) == 0 {
			return nil, fmt.Errorf("%w: function type without a return type", ErrCorrupt)
		}
		return typesystem.TFunc{Params: elems[:len(elems)-1], Return: elems[len(elems)-1]}, nil
	}
	return nil, fmt.Errorf("%w: unknown type tag", ErrCorrupt)
}
