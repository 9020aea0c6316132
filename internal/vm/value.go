package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/funvibe/refssa/internal/ssa"
)

// ValueType identifies the kind of value stored in the Value struct
type ValueType uint8

const (
	ValUnit ValueType = iota
	ValField
	ValInt
	ValBool
	ValArray     // arrays and slices alike
	ValAggregate // structs and tuples
	ValRef
	ValFunction
	ValClosure
	ValIntrinsic
)

var valueTypeNames = [...]string{
	ValUnit:      "unit",
	ValField:     "field",
	ValInt:       "int",
	ValBool:      "bool",
	ValArray:     "array",
	ValAggregate: "aggregate",
	ValRef:       "reference",
	ValFunction:  "function",
	ValClosure:   "closure",
	ValIntrinsic: "intrinsic",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", t)
}

// Value is a tagged union of everything an SSA value can hold at run time.
// Values are immutable: array and aggregate updates build new Elems.
type Value struct {
	Type  ValueType
	Data  uint64   // bool (0/1), cell index, function ID or intrinsic
	Num   *big.Int // field and integer values
	Elems []Value  // array elements, aggregate fields or closure captures
}

// Constructors

func UnitVal() Value {
	return Value{Type: ValUnit}
}

// FieldVal reduces n into the field.
func FieldVal(n *big.Int) Value {
	return Value{Type: ValField, Num: reduce(n)}
}

func FieldInt(n int64) Value {
	return FieldVal(big.NewInt(n))
}

func IntVal(n *big.Int) Value {
	return Value{Type: ValInt, Num: new(big.Int).Set(n)}
}

func Int(n int64) Value {
	return Value{Type: ValInt, Num: big.NewInt(n)}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func ArrayVal(elems ...Value) Value {
	return Value{Type: ValArray, Elems: elems}
}

func AggregateVal(fields ...Value) Value {
	return Value{Type: ValAggregate, Elems: fields}
}

func RefVal(cell int) Value {
	return Value{Type: ValRef, Data: uint64(cell)}
}

func FunctionVal(id ssa.FunctionID) Value {
	return Value{Type: ValFunction, Data: uint64(id)}
}

func ClosureVal(id ssa.FunctionID, captures []Value) Value {
	return Value{Type: ValClosure, Data: uint64(id), Elems: captures}
}

func IntrinsicVal(in ssa.Intrinsic) Value {
	return Value{Type: ValIntrinsic, Data: uint64(in)}
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

// AsInt64 returns a numeric value as int64. Field elements above the
// int64 range are truncated.
func (v Value) AsInt64() int64 {
	if v.Num == nil {
		return 0
	}
	return v.Num.Int64()
}

func (v Value) Cell() int                { return int(v.Data) }
func (v Value) Function() ssa.FunctionID { return ssa.FunctionID(v.Data) }
func (v Value) Intrinsic() ssa.Intrinsic { return ssa.Intrinsic(v.Data) }
func (v Value) IsNumeric() bool          { return v.Type == ValField || v.Type == ValInt }
func (v Value) Len() int                 { return len(v.Elems) }

// Equals compares values structurally. References are equal when they
// name the same cell.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValUnit:
		return true
	case ValField, ValInt:
		return v.Num.Cmp(other.Num) == 0
	case ValArray, ValAggregate, ValClosure:
		if v.Data != other.Data || len(v.Elems) != len(other.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equals(other.Elems[i]) {
				return false
			}
		}
		return true
	}
	return v.Data == other.Data
}

// Inspect renders the value the way the run command prints it.
func (v Value) Inspect() string {
	switch v.Type {
	case ValUnit:
		return "()"
	case ValField, ValInt:
		return v.Num.String()
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValArray:
		return "[" + inspectAll(v.Elems) + "]"
	case ValAggregate:
		return "(" + inspectAll(v.Elems) + ")"
	case ValRef:
		return fmt.Sprintf("&cell%d", v.Data)
	case ValFunction:
		return "fn " + ssa.FunctionID(v.Data).String()
	case ValClosure:
		return fmt.Sprintf("closure %s [%s]", ssa.FunctionID(v.Data), inspectAll(v.Elems))
	case ValIntrinsic:
		return ssa.Intrinsic(v.Data).String()
	}
	return "<invalid>"
}

func (v Value) String() string { return v.Inspect() }

func inspectAll(vals []Value) string {
	parts := make([]string, len(vals))
	for i, e := range vals {
		parts[i] = e.Inspect()
	}
	return strings.Join(parts, ", ")
}
