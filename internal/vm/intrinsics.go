package vm

import (
	"github.com/funvibe/refssa/internal/ssa"
)

var intrinsicArity = map[ssa.Intrinsic]int{
	ssa.SlicePushBack:  2,
	ssa.SlicePushFront: 2,
	ssa.SlicePopBack:   1,
	ssa.SlicePopFront:  1,
	ssa.SliceInsert:    3,
	ssa.SliceRemove:    2,
}

// callIntrinsic runs a slice intrinsic. Every intrinsic returns fresh
// slices and leaves its arguments untouched.
func callIntrinsic(in ssa.Intrinsic, args []Value) ([]Value, error) {
	want := intrinsicArity[in]
	if want == 0 {
		return nil, runtimeError(ErrMalformed, "unknown intrinsic %d", in)
	}
	if len(args) != want || args[0].Type != ValArray {
		return nil, runtimeError(ErrMalformed, "bad arguments to %s", in)
	}
	s := args[0].Elems
	n := len(s)

	switch in {
	case ssa.SlicePushBack:
		out := make([]Value, 0, n+1)
		out = append(append(out, s...), args[1])
		return []Value{ArrayVal(out...)}, nil

	case ssa.SlicePushFront:
		out := make([]Value, 0, n+1)
		out = append(append(out, args[1]), s...)
		return []Value{ArrayVal(out...)}, nil

	case ssa.SlicePopBack:
		if n == 0 {
			return nil, runtimeError(ErrEmptySlice, "%s on an empty slice", in)
		}
		return []Value{ArrayVal(clone(s[:n-1])...), s[n-1]}, nil

	case ssa.SlicePopFront:
		if n == 0 {
			return nil, runtimeError(ErrEmptySlice, "%s on an empty slice", in)
		}
		return []Value{s[0], ArrayVal(clone(s[1:])...)}, nil

	case ssa.SliceInsert:
		i, err := position(args[1], n, in)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, n+1)
		out = append(out, s[:i]...)
		out = append(out, args[2])
		out = append(out, s[i:]...)
		return []Value{ArrayVal(out...)}, nil

	case ssa.SliceRemove:
		i, err := position(args[1], n-1, in)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, n)
		out = append(out, s[:i]...)
		out = append(out, s[i+1:]...)
		return []Value{ArrayVal(out...), s[i]}, nil
	}
	return nil, runtimeError(ErrMalformed, "unknown intrinsic %s", in)
}

// position checks 0 <= idx <= limit.
func position(idx Value, limit int, in ssa.Intrinsic) (int, error) {
	if !idx.IsNumeric() {
		return 0, runtimeError(ErrMalformed, "%s index of type %s", in, idx.Type)
	}
	if idx.Num.Sign() < 0 || !idx.Num.IsInt64() || idx.Num.Int64() > int64(limit) {
		return 0, runtimeError(ErrIndexOutOfBounds, "%s index %s out of bounds", in, idx.Num)
	}
	return int(idx.Num.Int64()), nil
}

func clone(vals []Value) []Value {
	return append([]Value(nil), vals...)
}
