package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// lowerCallable lowers a function argument of a higher-order builtin and
// checks its shape. A nil return type in want accepts any non-unit return.
func (fl *functionLowering) lowerCallable(e *ast.BuiltinCallExpression, expr ast.Expression, want typesystem.TFunc) (ssa.ValueID, typesystem.TFunc, error) {
	f, err := fl.lowerExpression(expr, want)
	if err != nil {
		return ssa.InvalidValue, typesystem.TFunc{}, err
	}
	ft, ok := fl.typeOf(f).(typesystem.TFunc)
	if !ok {
		return ssa.InvalidValue, ft, typeErrorf(expr.GetToken(), "%s expects a function, found %s", e.Builtin, fl.typeOf(f))
	}
	check := want
	if check.Return == nil {
		check.Return = ft.Return
		if _, unit := ft.Return.(typesystem.TUnit); unit {
			return ssa.InvalidValue, ft, typeErrorf(expr.GetToken(), "%s function must return a value", e.Builtin)
		}
	}
	if err := typesystem.Expect(check, ft, e.Builtin.String()+" function"); err != nil {
		return ssa.InvalidValue, ft, typeError(expr.GetToken(), err)
	}
	return f, ft, nil
}

// each runs body for every index in from..len(seq).
func (fl *functionLowering) each(seq ssa.ValueID, from int64, body func(i ssa.ValueID) error) error {
	return fl.loop(fl.b.Int(from, typesystem.U32), fl.lenValue(seq), body)
}

// lowerFold threads an accumulator cell through one call per element.
func (fl *functionLowering) lowerFold(e *ast.BuiltinCallExpression, s sequence, hint typesystem.Type) (ssa.ValueID, error) {
	init, err := fl.lowerExpression(e.Arguments[0], hint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if !init.IsValid() {
		return ssa.InvalidValue, typeErrorf(e.Arguments[0].GetToken(), "fold accumulator cannot be unit")
	}
	acc := fl.typeOf(init)
	f, _, err := fl.lowerCallable(e, e.Arguments[1], typesystem.TFunc{Params: []typesystem.Type{acc, s.elem}, Return: acc})
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.accumulate(s, init, 0, f, acc)
}

// lowerReduce is fold seeded with the first element.
func (fl *functionLowering) lowerReduce(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	f, _, err := fl.lowerCallable(e, e.Arguments[0], typesystem.TFunc{Params: []typesystem.Type{s.elem, s.elem}, Return: s.elem})
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := fl.checkNonEmpty(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	first := fl.b.InsertArrayGet(s.value, fl.b.Int(0, typesystem.U32), s.elem)
	return fl.accumulate(s, first, 1, f, s.elem)
}

func (fl *functionLowering) accumulate(s sequence, seed ssa.ValueID, from int64, f ssa.ValueID, acc typesystem.Type) (ssa.ValueID, error) {
	cell := fl.allocate(seed)
	err := fl.each(s.value, from, func(i ssa.ValueID) error {
		x := fl.b.InsertArrayGet(s.value, i, s.elem)
		r := fl.emitCall(f, []ssa.ValueID{fl.load(cell), x}, acc)
		fl.store(cell, r)
		return nil
	})
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.load(cell), nil
}

// lowerAllAny combines predicate results with And (all, seeded true) or
// Or (any, seeded false). Every element is visited.
func (fl *functionLowering) lowerAllAny(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	pred, _, err := fl.lowerCallable(e, e.Arguments[0], typesystem.TFunc{Params: []typesystem.Type{s.elem}, Return: typesystem.Bool})
	if err != nil {
		return ssa.InvalidValue, err
	}
	all := e.Builtin == ast.BuiltinAll
	op := ssa.BinaryOr
	if all {
		op = ssa.BinaryAnd
	}
	cell := fl.allocate(fl.b.Bool(all))
	err = fl.each(s.value, 0, func(i ssa.ValueID) error {
		x := fl.b.InsertArrayGet(s.value, i, s.elem)
		r := fl.emitCall(pred, []ssa.ValueID{x}, typesystem.Bool)
		fl.store(cell, fl.b.InsertBinary(op, fl.load(cell), r))
		return nil
	})
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.load(cell), nil
}

// lowerMap builds a new sequence of the same length. An array result is
// seeded with the first mapped element and overwritten in place; a slice
// result grows from empty with push_back.
func (fl *functionLowering) lowerMap(e *ast.BuiltinCallExpression, s sequence, hint typesystem.Type) (ssa.ValueID, error) {
	want := typesystem.TFunc{Params: []typesystem.Type{s.elem}}
	if hint != nil {
		want.Return, _ = typesystem.ElemType(hint)
	}
	f, ft, err := fl.lowerCallable(e, e.Arguments[0], want)
	if err != nil {
		return ssa.InvalidValue, err
	}
	out := ft.Return
	b := fl.b

	if arr, ok := s.typ.(typesystem.TArray); ok {
		rt := typesystem.TArray{Elem: out, Len: arr.Len}
		if arr.Len == 0 {
			return b.InsertMakeArray(nil, rt), nil
		}
		first := fl.emitCall(f, []ssa.ValueID{b.InsertArrayGet(s.value, b.Int(0, typesystem.U32), s.elem)}, out)
		elems := make([]ssa.ValueID, arr.Len)
		for i := range elems {
			elems[i] = first
		}
		cell := fl.allocate(b.InsertMakeArray(elems, rt))
		err := fl.each(s.value, 1, func(i ssa.ValueID) error {
			y := fl.emitCall(f, []ssa.ValueID{b.InsertArrayGet(s.value, i, s.elem)}, out)
			fl.store(cell, b.InsertArraySet(fl.load(cell), i, y))
			return nil
		})
		if err != nil {
			return ssa.InvalidValue, err
		}
		return fl.load(cell), nil
	}

	rt := typesystem.TSlice{Elem: out}
	n, known := fl.knownLen(s.value)
	empty := b.InsertMakeArray(nil, rt)
	fl.lens[empty] = 0
	cell := fl.allocate(empty)
	err = fl.each(s.value, 0, func(i ssa.ValueID) error {
		y := fl.emitCall(f, []ssa.ValueID{b.InsertArrayGet(s.value, i, s.elem)}, out)
		fl.store(cell, fl.intrinsic(ssa.SlicePushBack, []ssa.ValueID{fl.load(cell), y}, rt)[0])
		return nil
	})
	if err != nil {
		return ssa.InvalidValue, err
	}
	r := fl.load(cell)
	fl.setLen(r, n, known)
	return r, nil
}

// lowerSort orders elements ascending with the same comparison pass as
// sort_via, comparing with <.
func (fl *functionLowering) lowerSort(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	if !typesystem.IsOrdered(s.elem) {
		return ssa.InvalidValue, typeErrorf(e.Token, "sort requires ordered elements, found %s", s.elem)
	}
	return fl.sortPass(s, func(a, b ssa.ValueID) ssa.ValueID {
		return fl.b.InsertBinary(ssa.BinaryLt, a, b)
	})
}

func (fl *functionLowering) lowerSortVia(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	cmp, _, err := fl.lowerCallable(e, e.Arguments[0], typesystem.TFunc{Params: []typesystem.Type{s.elem, s.elem}, Return: typesystem.Bool})
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.sortPass(s, func(a, b ssa.ValueID) ssa.ValueID {
		return fl.emitCall(cmp, []ssa.ValueID{a, b}, typesystem.Bool)
	})
}

// sortPass works on a copy of the sequence:
//
//	for i in 1..n { for j in 0..i { if before(r[i], r[j]) { swap(r[i], r[j]) } } }
//
// Every pair is compared, so the comparator need not be a strict weak
// ordering; ties then come out in whatever order the pass leaves them.
func (fl *functionLowering) sortPass(s sequence, before func(a, b ssa.ValueID) ssa.ValueID) (ssa.ValueID, error) {
	b := fl.b
	n, known := fl.knownLen(s.value)
	cell := fl.allocate(s.value)
	err := fl.each(s.value, 1, func(i ssa.ValueID) error {
		return fl.loop(b.Int(0, typesystem.U32), i, func(j ssa.ValueID) error {
			cur := fl.load(cell)
			a := b.InsertArrayGet(cur, i, s.elem)
			c := b.InsertArrayGet(cur, j, s.elem)
			swap := b.InsertBlock()
			next := b.InsertBlock()
			b.TerminateWithJmpIf(before(a, c), swap, next)

			fl.switchTo(swap)
			swapped := b.InsertArraySet(b.InsertArraySet(cur, i, c), j, a)
			fl.store(cell, swapped)
			b.TerminateWithJmp(next, nil)

			fl.switchTo(next)
			return nil
		})
	})
	if err != nil {
		return ssa.InvalidValue, err
	}
	r := fl.load(cell)
	fl.setLen(r, n, known)
	return r, nil
}
