package ssa

import (
	"math/big"

	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/typesystem"
)

// ValueKind says where a value comes from.
type ValueKind uint8

const (
	ValueInstruction ValueKind = iota + 1 // result of an instruction
	ValueParam                            // block parameter
	ValueNumeric                          // interned numeric constant
	ValueFunction                         // reference to a module function
	ValueIntrinsic                        // reference to a builtin intrinsic
)

func (k ValueKind) String() string {
	switch k {
	case ValueInstruction:
		return "instruction"
	case ValueParam:
		return "param"
	case ValueNumeric:
		return "numeric"
	case ValueFunction:
		return "function"
	case ValueIntrinsic:
		return "intrinsic"
	}
	return "invalid"
}

// ValueInfo is the data flow graph entry for one value.
type ValueInfo struct {
	Kind ValueKind
	Type typesystem.Type

	// Block and Position locate a block parameter.
	Block    BlockID
	Position int

	// Numeric holds the constant of a ValueNumeric. Negative values are
	// stored as written; the consumer reduces them into the type's range.
	Numeric *big.Int

	Function  FunctionID
	Intrinsic Intrinsic
}

// Intrinsic is a builtin operation the lowering leaves as a call.
type Intrinsic uint8

const (
	IntrinsicInvalid Intrinsic = iota
	SlicePushBack
	SlicePushFront
	SlicePopBack
	SlicePopFront
	SliceInsert
	SliceRemove
)

var intrinsicNames = map[Intrinsic]string{
	SlicePushBack:  config.IntrinsicPushBack,
	SlicePushFront: config.IntrinsicPushFront,
	SlicePopBack:   config.IntrinsicPopBack,
	SlicePopFront:  config.IntrinsicPopFront,
	SliceInsert:    config.IntrinsicInsert,
	SliceRemove:    config.IntrinsicRemove,
}

func (i Intrinsic) String() string {
	if name, ok := intrinsicNames[i]; ok {
		return name
	}
	return "<invalid intrinsic>"
}

// LookupIntrinsic maps a printed intrinsic name back to its tag.
func LookupIntrinsic(name string) (Intrinsic, bool) {
	for i, n := range intrinsicNames {
		if n == name {
			return i, true
		}
	}
	return IntrinsicInvalid, false
}
