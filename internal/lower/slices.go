package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// sequence is the lowered receiver of a builtin call.
type sequence struct {
	value ssa.ValueID
	typ   typesystem.Type
	elem  typesystem.Type
}

func (s sequence) isSlice() bool {
	_, ok := s.typ.(typesystem.TSlice)
	return ok
}

// lowerBuiltinCall lowers a resolved slice or array builtin. Every
// operation leaves its receiver untouched and returns fresh values.
func (fl *functionLowering) lowerBuiltinCall(e *ast.BuiltinCallExpression, hint typesystem.Type) (ssa.ValueID, error) {
	if want := e.Builtin.Arity(); want != len(e.Arguments) {
		if want < 0 {
			return ssa.InvalidValue, malformed(e, "unknown builtin %d", int(e.Builtin))
		}
		return ssa.InvalidValue, typeErrorf(e.Token, "%s expects %d arguments, got %d", e.Builtin, want, len(e.Arguments))
	}
	recv, err := fl.lowerExpression(e.Receiver, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	recv = fl.derefAll(recv)
	t := fl.typeOf(recv)
	elem, ok := typesystem.ElemType(t)
	if !ok {
		return ssa.InvalidValue, typeErrorf(e.Token, "%s requires an array or a slice, found %s", e.Builtin, t)
	}
	s := sequence{value: recv, typ: t, elem: elem}

	switch e.Builtin {
	case ast.BuiltinLen:
		return fl.lenValue(s.value), nil
	case ast.BuiltinPushBack, ast.BuiltinPushFront:
		return fl.lowerPush(e, s)
	case ast.BuiltinPopBack, ast.BuiltinPopFront:
		return fl.lowerPop(e, s)
	case ast.BuiltinInsert:
		return fl.lowerInsert(e, s)
	case ast.BuiltinRemove:
		return fl.lowerRemove(e, s)
	case ast.BuiltinSort:
		return fl.lowerSort(e, s)
	case ast.BuiltinSortVia:
		return fl.lowerSortVia(e, s)
	case ast.BuiltinMap:
		return fl.lowerMap(e, s, hint)
	case ast.BuiltinFold:
		return fl.lowerFold(e, s, hint)
	case ast.BuiltinReduce:
		return fl.lowerReduce(e, s)
	case ast.BuiltinAll, ast.BuiltinAny:
		return fl.lowerAllAny(e, s)
	}
	return ssa.InvalidValue, malformed(e, "unsupported builtin %s", e.Builtin)
}

// lenValue is the length of a sequence as a u32. Arrays and slices of
// known length give a constant.
func (fl *functionLowering) lenValue(seq ssa.ValueID) ssa.ValueID {
	if n, ok := fl.knownLen(seq); ok {
		return fl.b.Int(int64(n), typesystem.U32)
	}
	return fl.b.InsertArrayLen(seq)
}

func (fl *functionLowering) requireSlice(e *ast.BuiltinCallExpression, s sequence) error {
	if !s.isSlice() {
		return typeErrorf(e.Token, "%s requires a slice, found %s", e.Builtin, s.typ)
	}
	return nil
}

// intrinsic calls a slice intrinsic. Intrinsics never see a reference, so
// facts about cell contents survive the call.
func (fl *functionLowering) intrinsic(in ssa.Intrinsic, args []ssa.ValueID, results ...typesystem.Type) []ssa.ValueID {
	return fl.b.InsertCall(fl.b.ImportIntrinsic(in), args, results)
}

func (fl *functionLowering) lowerElement(e *ast.BuiltinCallExpression, expr ast.Expression, elem typesystem.Type) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(expr, elem)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := typesystem.Expect(elem, fl.typeOf(v), e.Builtin.String()+" element"); err != nil {
		return ssa.InvalidValue, typeError(expr.GetToken(), err)
	}
	return v, nil
}

func (fl *functionLowering) lowerPush(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	if err := fl.requireSlice(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	v, err := fl.lowerElement(e, e.Arguments[0], s.elem)
	if err != nil {
		return ssa.InvalidValue, err
	}
	in := ssa.SlicePushBack
	if e.Builtin == ast.BuiltinPushFront {
		in = ssa.SlicePushFront
	}
	r := fl.intrinsic(in, []ssa.ValueID{s.value, v}, s.typ)[0]
	if n, ok := fl.knownLen(s.value); ok {
		fl.lens[r] = n + 1
	}
	return r, nil
}

// lowerPop returns (rest, last) for pop_back and (first, rest) for
// pop_front.
func (fl *functionLowering) lowerPop(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	if err := fl.requireSlice(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	if err := fl.checkNonEmpty(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	var results []ssa.ValueID
	var rest ssa.ValueID
	if e.Builtin == ast.BuiltinPopBack {
		results = fl.intrinsic(ssa.SlicePopBack, []ssa.ValueID{s.value}, s.typ, s.elem)
		rest = results[0]
	} else {
		results = fl.intrinsic(ssa.SlicePopFront, []ssa.ValueID{s.value}, s.elem, s.typ)
		rest = results[1]
	}
	if n, ok := fl.knownLen(s.value); ok {
		fl.lens[rest] = n - 1
	}
	return fl.makeTuple(results), nil
}

// checkNonEmpty rejects a sequence known to be empty and guards one of
// unknown length.
func (fl *functionLowering) checkNonEmpty(e *ast.BuiltinCallExpression, s sequence) error {
	n, ok := fl.knownLen(s.value)
	if ok {
		if n == 0 {
			return diagnostics.NewError(diagnostics.EmptySlice, e.Token, "%s on an empty %s", e.Builtin, describeSeq(s))
		}
		return nil
	}
	if fl.m.engine.boundsChecks {
		b := fl.b
		empty := b.InsertBinary(ssa.BinaryEq, b.InsertArrayLen(s.value), b.Int(0, typesystem.U32))
		b.InsertConstrain(empty, b.Bool(false), e.Builtin.String()+" on an empty slice")
	}
	return nil
}

func describeSeq(s sequence) string {
	if s.isSlice() {
		return "slice"
	}
	return "array"
}

func (fl *functionLowering) lowerInsert(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	if err := fl.requireSlice(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	idx, err := fl.lowerIndex(e.Arguments[0])
	if err != nil {
		return ssa.InvalidValue, err
	}
	v, err := fl.lowerElement(e, e.Arguments[1], s.elem)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := fl.checkIndex(e.Token, s, idx, true); err != nil {
		return ssa.InvalidValue, err
	}
	r := fl.intrinsic(ssa.SliceInsert, []ssa.ValueID{s.value, idx, v}, s.typ)[0]
	if n, ok := fl.knownLen(s.value); ok {
		fl.lens[r] = n + 1
	}
	return r, nil
}

// lowerRemove returns (rest, removed).
func (fl *functionLowering) lowerRemove(e *ast.BuiltinCallExpression, s sequence) (ssa.ValueID, error) {
	if err := fl.requireSlice(e, s); err != nil {
		return ssa.InvalidValue, err
	}
	idx, err := fl.lowerIndex(e.Arguments[0])
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := fl.checkIndex(e.Token, s, idx, false); err != nil {
		return ssa.InvalidValue, err
	}
	results := fl.intrinsic(ssa.SliceRemove, []ssa.ValueID{s.value, idx}, s.typ, s.elem)
	if n, ok := fl.knownLen(s.value); ok {
		fl.lens[results[0]] = n - 1
	}
	return fl.makeTuple(results), nil
}

// checkIndex validates idx against the length of s: idx <= n when
// inclusive, idx < n otherwise. Constant indices into sequences of known
// length are decided here; anything else gets a runtime guard.
func (fl *functionLowering) checkIndex(tok token.Token, s sequence, idx ssa.ValueID, inclusive bool) error {
	n, known := fl.knownLen(s.value)
	if known && !inclusive && n == 0 {
		return diagnostics.NewError(diagnostics.IndexOutOfRange, tok, "remove from an empty slice")
	}
	if err := fl.checkConstIndex(tok, s.value, idx, inclusive); err != nil {
		return err
	}
	if _, isConst := fl.constIndex(idx); isConst && known {
		return nil
	}
	if !fl.m.engine.boundsChecks {
		return nil
	}
	b := fl.b
	length := fl.lenValue(s.value)
	var ok ssa.ValueID
	if inclusive {
		ok = b.InsertNot(b.InsertBinary(ssa.BinaryLt, length, idx))
	} else {
		ok = b.InsertBinary(ssa.BinaryLt, idx, length)
	}
	b.InsertConstrain(ok, b.Bool(true), "index out of bounds")
	return nil
}
