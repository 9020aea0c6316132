package ssa

// Opcode tags each instruction kind. The numbering is part of the encoded
// module format, so new opcodes go at the end.
type Opcode byte

const (
	OP_INVALID Opcode = iota

	// Memory
	OP_ALLOCATE // Reserve a fresh cell
	OP_LOAD     // Read a cell
	OP_STORE    // Write a cell

	// Arithmetic, comparison and logic
	OP_BINARY    // Binary operator, see BinaryOp
	OP_NOT       // Logical/bitwise not
	OP_CAST      // Numeric conversion
	OP_CONSTRAIN // Assert two values are equal

	// Calls
	OP_CALL         // Call a function, closure or intrinsic
	OP_MAKE_CLOSURE // Bundle a function with captured values

	// Arrays and slices
	OP_ARRAY_GET  // Read an element
	OP_ARRAY_SET  // Copy with one element replaced
	OP_ARRAY_LEN  // Runtime length
	OP_MAKE_ARRAY // Build from elements

	// Structs and tuples
	OP_MAKE_AGGREGATE // Build from fields
	OP_EXTRACT_FIELD  // Read a field
	OP_INSERT_FIELD   // Copy with one field replaced
)

var opcodeNames = [...]string{
	OP_INVALID:        "invalid",
	OP_ALLOCATE:       "allocate",
	OP_LOAD:           "load",
	OP_STORE:          "store",
	OP_BINARY:         "binary",
	OP_NOT:            "not",
	OP_CAST:           "cast",
	OP_CONSTRAIN:      "constrain",
	OP_CALL:           "call",
	OP_MAKE_CLOSURE:   "make_closure",
	OP_ARRAY_GET:      "array_get",
	OP_ARRAY_SET:      "array_set",
	OP_ARRAY_LEN:      "array_len",
	OP_MAKE_ARRAY:     "make_array",
	OP_MAKE_AGGREGATE: "make_aggregate",
	OP_EXTRACT_FIELD:  "extract_field",
	OP_INSERT_FIELD:   "insert_field",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "invalid"
}

// BinaryOp is the operator of a Binary instruction. Derived comparisons
// (!=, >, <=, >=) are expressed with these and Not.
type BinaryOp byte

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEq
	BinaryLt
	BinaryAnd
	BinaryOr
	BinaryXor
)

var binaryNames = [...]string{
	BinaryAdd: "add",
	BinarySub: "sub",
	BinaryMul: "mul",
	BinaryDiv: "div",
	BinaryMod: "mod",
	BinaryEq:  "eq",
	BinaryLt:  "lt",
	BinaryAnd: "and",
	BinaryOr:  "or",
	BinaryXor: "xor",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "invalid"
}

// IsComparison reports whether the operator yields a bool.
func (op BinaryOp) IsComparison() bool {
	return op == BinaryEq || op == BinaryLt
}

func (op BinaryOp) valid() bool { return int(op) < len(binaryNames) }
