package vm

import (
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// value resolves an operand: constants and function references come from
// the DFG, everything else from the frame's registers.
func (fr *frame) value(id ssa.ValueID) Value {
	info := fr.fn.DFG.Value(id)
	switch info.Kind {
	case ssa.ValueNumeric:
		return constant(info)
	case ssa.ValueFunction:
		return FunctionVal(info.Function)
	case ssa.ValueIntrinsic:
		return IntrinsicVal(info.Intrinsic)
	}
	return fr.regs[id]
}

func constant(info ssa.ValueInfo) Value {
	switch info.Type.(type) {
	case typesystem.TBool:
		return BoolVal(info.Numeric.Sign() != 0)
	case typesystem.TInt:
		return IntVal(info.Numeric)
	}
	return FieldVal(info.Numeric)
}

func (fr *frame) values(ids []ssa.ValueID) []Value {
	out := make([]Value, len(ids))
	for i, id := range ids {
		out[i] = fr.value(id)
	}
	return out
}

func (fr *frame) typeOf(id ssa.ValueID) typesystem.Type {
	return fr.fn.DFG.Type(id)
}

func (vm *VM) exec(fr *frame, instr ssa.Instruction) error {
	switch in := instr.(type) {
	case *ssa.Allocate:
		fr.regs[in.Result] = vm.allocate(UnitVal())

	case *ssa.Load:
		c, err := vm.cell(fr.value(in.Address))
		if err != nil {
			return err
		}
		fr.regs[in.Result] = vm.memory[c]

	case *ssa.Store:
		c, err := vm.cell(fr.value(in.Address))
		if err != nil {
			return err
		}
		vm.memory[c] = fr.value(in.Value)

	case *ssa.Binary:
		v, err := binary(in.Op, fr.value(in.Lhs), fr.value(in.Rhs), fr.typeOf(in.Lhs))
		if err != nil {
			return err
		}
		fr.regs[in.Result] = v

	case *ssa.Not:
		v, err := not(fr.value(in.Value), fr.typeOf(in.Value))
		if err != nil {
			return err
		}
		fr.regs[in.Result] = v

	case *ssa.Cast:
		v, err := cast(fr.value(in.Value), in.To)
		if err != nil {
			return err
		}
		fr.regs[in.Result] = v

	case *ssa.Constrain:
		lhs, rhs := fr.value(in.Lhs), fr.value(in.Rhs)
		if !lhs.Equals(rhs) {
			if in.Message != "" {
				return runtimeError(ErrConstraintFailed, "constraint failed: %s", in.Message)
			}
			return runtimeError(ErrConstraintFailed, "constraint failed: %s != %s", lhs.Inspect(), rhs.Inspect())
		}

	case *ssa.Call:
		results, err := vm.invoke(fr.value(in.Func), fr.values(in.Args))
		if err != nil {
			return err
		}
		if len(results) != len(in.Returns) {
			return runtimeError(ErrMalformed, "call returned %d values, expected %d", len(results), len(in.Returns))
		}
		for i, r := range in.Returns {
			fr.regs[r] = results[i]
		}

	case *ssa.MakeClosure:
		fn := fr.value(in.Func)
		if fn.Type != ValFunction {
			return runtimeError(ErrMalformed, "closure over a %s", fn.Type)
		}
		fr.regs[in.Result] = ClosureVal(fn.Function(), fr.values(in.Captures))

	case *ssa.ArrayGet:
		arr := fr.value(in.Array)
		i, err := index(arr, fr.value(in.Index))
		if err != nil {
			return err
		}
		fr.regs[in.Result] = arr.Elems[i]

	case *ssa.ArraySet:
		arr := fr.value(in.Array)
		i, err := index(arr, fr.value(in.Index))
		if err != nil {
			return err
		}
		elems := append([]Value(nil), arr.Elems...)
		elems[i] = fr.value(in.Value)
		fr.regs[in.Result] = ArrayVal(elems...)

	case *ssa.ArrayLen:
		arr := fr.value(in.Array)
		if arr.Type != ValArray {
			return runtimeError(ErrMalformed, "len of a %s", arr.Type)
		}
		fr.regs[in.Result] = Int(int64(arr.Len()))

	case *ssa.MakeArray:
		fr.regs[in.Result] = ArrayVal(fr.values(in.Elements)...)

	case *ssa.MakeAggregate:
		fr.regs[in.Result] = AggregateVal(fr.values(in.Fields)...)

	case *ssa.ExtractField:
		agg := fr.value(in.Aggregate)
		if agg.Type != ValAggregate || in.Index < 0 || in.Index >= agg.Len() {
			return runtimeError(ErrMalformed, "field %d of a %s", in.Index, agg.Type)
		}
		fr.regs[in.Result] = agg.Elems[in.Index]

	case *ssa.InsertField:
		agg := fr.value(in.Aggregate)
		if agg.Type != ValAggregate || in.Index < 0 || in.Index >= agg.Len() {
			return runtimeError(ErrMalformed, "field %d of a %s", in.Index, agg.Type)
		}
		fields := append([]Value(nil), agg.Elems...)
		fields[in.Index] = fr.value(in.Value)
		fr.regs[in.Result] = AggregateVal(fields...)

	default:
		return runtimeError(ErrMalformed, "unknown instruction %s", instr.Opcode())
	}
	return nil
}

// invoke calls a function reference, closure or intrinsic. A closure
// passes its captured values ahead of the arguments.
func (vm *VM) invoke(callee Value, args []Value) ([]Value, error) {
	switch callee.Type {
	case ValFunction, ValClosure:
		fn := vm.module.FunctionByID(callee.Function())
		if fn == nil {
			return nil, runtimeError(ErrMalformed, "call of unknown function %s", callee.Function())
		}
		if callee.Type == ValClosure {
			args = append(append([]Value(nil), callee.Elems...), args...)
		}
		return vm.call(fn, args)
	case ValIntrinsic:
		return callIntrinsic(callee.Intrinsic(), args)
	}
	return nil, runtimeError(ErrMalformed, "call of a %s", callee.Type)
}

func index(arr, idx Value) (int, error) {
	if arr.Type != ValArray {
		return 0, runtimeError(ErrMalformed, "indexing a %s", arr.Type)
	}
	if !idx.IsNumeric() {
		return 0, runtimeError(ErrMalformed, "index of type %s", idx.Type)
	}
	if idx.Num.Sign() < 0 || !idx.Num.IsInt64() || idx.Num.Int64() >= int64(arr.Len()) {
		return 0, runtimeError(ErrIndexOutOfBounds, "index %s out of bounds for length %d", idx.Num, arr.Len())
	}
	return int(idx.Num.Int64()), nil
}
