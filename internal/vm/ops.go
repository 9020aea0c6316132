package vm

import (
	"math/big"

	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// binary evaluates a Binary instruction. typ is the static operand type,
// which decides the integer width for overflow checks.
func binary(op ssa.BinaryOp, a, b Value, typ typesystem.Type) (Value, error) {
	switch op {
	case ssa.BinaryEq:
		return BoolVal(a.Equals(b)), nil
	case ssa.BinaryLt:
		return less(a, b)
	}

	if a.Type == ValBool && b.Type == ValBool {
		switch op {
		case ssa.BinaryAnd:
			return BoolVal(a.AsBool() && b.AsBool()), nil
		case ssa.BinaryOr:
			return BoolVal(a.AsBool() || b.AsBool()), nil
		case ssa.BinaryXor:
			return BoolVal(a.AsBool() != b.AsBool()), nil
		}
		return Value{}, runtimeError(ErrMalformed, "%s on bool", op)
	}

	if a.Type != b.Type || !a.IsNumeric() {
		return Value{}, runtimeError(ErrMalformed, "%s on %s and %s", op, a.Type, b.Type)
	}
	if a.Type == ValField {
		return fieldBinary(op, a.Num, b.Num)
	}
	it, ok := typ.(typesystem.TInt)
	if !ok {
		return Value{}, runtimeError(ErrMalformed, "integer %s with static type %s", op, typ)
	}
	return intBinary(op, a.Num, b.Num, it)
}

func less(a, b Value) (Value, error) {
	switch {
	case a.Type == ValBool && b.Type == ValBool:
		return BoolVal(!a.AsBool() && b.AsBool()), nil
	case a.IsNumeric() && a.Type == b.Type:
		return BoolVal(a.Num.Cmp(b.Num) < 0), nil
	}
	return Value{}, runtimeError(ErrMalformed, "lt on %s and %s", a.Type, b.Type)
}

func fieldBinary(op ssa.BinaryOp, a, b *big.Int) (Value, error) {
	switch op {
	case ssa.BinaryAdd:
		return Value{Type: ValField, Num: fieldAdd(a, b)}, nil
	case ssa.BinarySub:
		return Value{Type: ValField, Num: fieldSub(a, b)}, nil
	case ssa.BinaryMul:
		return Value{Type: ValField, Num: fieldMul(a, b)}, nil
	case ssa.BinaryDiv:
		if b.Sign() == 0 {
			return Value{}, runtimeError(ErrDivisionByZero, "field division by zero")
		}
		return Value{Type: ValField, Num: fieldDiv(a, b)}, nil
	}
	return Value{}, runtimeError(ErrMalformed, "%s on field elements", op)
}

func intBinary(op ssa.BinaryOp, a, b *big.Int, t typesystem.TInt) (Value, error) {
	r := new(big.Int)
	switch op {
	case ssa.BinaryAdd:
		r.Add(a, b)
	case ssa.BinarySub:
		r.Sub(a, b)
	case ssa.BinaryMul:
		r.Mul(a, b)
	case ssa.BinaryDiv, ssa.BinaryMod:
		if b.Sign() == 0 {
			return Value{}, runtimeError(ErrDivisionByZero, "%s by zero", op)
		}
		if op == ssa.BinaryDiv {
			r.Quo(a, b)
		} else {
			r.Rem(a, b)
		}
	case ssa.BinaryAnd:
		r.And(a, b)
	case ssa.BinaryOr:
		r.Or(a, b)
	case ssa.BinaryXor:
		r.Xor(a, b)
	default:
		return Value{}, runtimeError(ErrMalformed, "%s on integers", op)
	}
	if !inRange(r, t) {
		return Value{}, runtimeError(ErrOverflow, "%s overflows %s: %s %s %s", op, t, a, op, b)
	}
	return Value{Type: ValInt, Num: r}, nil
}

// not is logical negation on bool and bitwise complement on integers.
func not(v Value, typ typesystem.Type) (Value, error) {
	switch v.Type {
	case ValBool:
		return BoolVal(!v.AsBool()), nil
	case ValInt:
		it, ok := typ.(typesystem.TInt)
		if !ok {
			return Value{}, runtimeError(ErrMalformed, "not on %s", typ)
		}
		r := new(big.Int).Not(v.Num)
		if !it.Signed {
			r = truncate(r, it)
		}
		return Value{Type: ValInt, Num: r}, nil
	}
	return Value{}, runtimeError(ErrMalformed, "not on a %s", v.Type)
}

// cast converts between numeric types. Casting to an integer keeps the
// low bits; casting to a field reduces modulo the field order.
func cast(v Value, to typesystem.Type) (Value, error) {
	var n *big.Int
	switch v.Type {
	case ValBool:
		n = big.NewInt(int64(v.Data))
	case ValField, ValInt:
		n = v.Num
	default:
		return Value{}, runtimeError(ErrMalformed, "cast of a %s", v.Type)
	}
	switch t := to.(type) {
	case typesystem.TField:
		return FieldVal(n), nil
	case typesystem.TInt:
		return Value{Type: ValInt, Num: truncate(n, t)}, nil
	case typesystem.TBool:
		return BoolVal(n.Sign() != 0), nil
	}
	return Value{}, runtimeError(ErrMalformed, "cast to %s", to)
}
