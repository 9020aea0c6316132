package lower

import (
	"math/big"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// lowerExpression lowers expr and returns its value, or InvalidValue for
// unit expressions. hint is the type the context expects, if known; it
// only decides the type of unsuffixed integer literals and lambda
// parameters and is never a substitute for checking.
func (fl *functionLowering) lowerExpression(expr ast.Expression, hint typesystem.Type) (ssa.ValueID, error) {
	if err := fl.m.ctx.Err(); err != nil {
		return ssa.InvalidValue, err
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		return fl.lowerIdentifier(e)
	case *ast.IntegerLiteral:
		return fl.lowerIntegerLiteral(e, hint)
	case *ast.BooleanLiteral:
		return fl.b.Bool(e.Value), nil
	case *ast.ArrayLiteral:
		return fl.lowerArrayLiteral(e, hint)
	case *ast.StructLiteral:
		return fl.lowerStructLiteral(e)
	case *ast.TupleLiteral:
		return fl.lowerTupleLiteral(e, hint)
	case *ast.MemberExpression:
		return fl.lowerMemberExpression(e)
	case *ast.TupleIndexExpression:
		return fl.lowerTupleIndexExpression(e)
	case *ast.IndexExpression:
		return fl.lowerIndexExpression(e)
	case *ast.RefExpression:
		return fl.lowerRefExpression(e, hint)
	case *ast.DerefExpression:
		return fl.lowerDerefExpression(e)
	case *ast.PrefixExpression:
		return fl.lowerPrefixExpression(e, hint)
	case *ast.InfixExpression:
		return fl.lowerInfixExpression(e, hint)
	case *ast.CastExpression:
		return fl.lowerCastExpression(e)
	case *ast.IfExpression:
		return fl.lowerIfExpression(e, hint)
	case *ast.BlockStatement:
		return fl.lowerBlock(e, hint)
	case *ast.CallExpression:
		return fl.lowerCallExpression(e)
	case *ast.MethodCallExpression:
		return fl.lowerMethodCallExpression(e)
	case *ast.BuiltinCallExpression:
		return fl.lowerBuiltinCall(e, hint)
	case *ast.FunctionLiteral:
		return fl.lowerFunctionLiteral(e, hint)
	case nil:
		return ssa.InvalidValue, diagnostics.NewError(diagnostics.Malformed, token.Token{}, "missing expression in %s", fl.name)
	}
	return ssa.InvalidValue, malformed(expr, "unsupported expression %T", expr)
}

func (fl *functionLowering) lowerIdentifier(ident *ast.Identifier) (ssa.ValueID, error) {
	if local := fl.resolveLocal(ident.Value); local != nil {
		return fl.readLocal(local), nil
	}
	if id, ok := fl.m.funcs[ident.Value]; ok {
		decl := fl.m.prog.Function(ident.Value)
		return fl.b.ImportFunction(id, decl.Signature()), nil
	}
	return ssa.InvalidValue, diagnostics.NewError(diagnostics.UndefinedName, ident.Token, "undefined variable %s", ident.Value)
}

func (fl *functionLowering) lowerIntegerLiteral(lit *ast.IntegerLiteral, hint typesystem.Type) (ssa.ValueID, error) {
	typ := lit.Type
	if typ == nil {
		typ = typesystem.Field
		if hint != nil && typesystem.IsNumeric(hint) {
			typ = hint
		}
	}
	if !typesystem.IsNumeric(typ) {
		return ssa.InvalidValue, typeErrorf(lit.Token, "integer literal cannot have type %s", typ)
	}
	if it, ok := typ.(typesystem.TInt); ok && !fitsInt(lit.Value, it) {
		return ssa.InvalidValue, typeErrorf(lit.Token, "literal %d does not fit in %s", lit.Value, it)
	}
	return fl.b.Int(lit.Value, typ), nil
}

func fitsInt(v int64, t typesystem.TInt) bool {
	n := big.NewInt(v)
	var lo, hi big.Int
	if t.Signed {
		lo.Lsh(big.NewInt(1), uint(t.Bits-1)).Neg(&lo)
		hi.Lsh(big.NewInt(1), uint(t.Bits-1))
	} else {
		hi.Lsh(big.NewInt(1), uint(t.Bits))
	}
	return n.Cmp(&lo) >= 0 && n.Cmp(&hi) < 0
}

func (fl *functionLowering) lowerArrayLiteral(lit *ast.ArrayLiteral, hint typesystem.Type) (ssa.ValueID, error) {
	elemType := lit.ElemType
	if elemType == nil && hint != nil {
		elemType, _ = typesystem.ElemType(hint)
	}

	var elems []ssa.ValueID
	if lit.Repeat != nil {
		if lit.Count < 0 {
			return ssa.InvalidValue, malformed(lit, "negative repeat count %d", lit.Count)
		}
		v, err := fl.lowerExpression(lit.Repeat, elemType)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if elemType != nil {
			if err := typesystem.Expect(elemType, fl.typeOf(v), "array element"); err != nil {
				return ssa.InvalidValue, typeError(lit.Repeat.GetToken(), err)
			}
		}
		elemType = fl.typeOf(v)
		for i := 0; i < lit.Count; i++ {
			elems = append(elems, v)
		}
	} else {
		for _, el := range lit.Elements {
			v, err := fl.lowerExpression(el, elemType)
			if err != nil {
				return ssa.InvalidValue, err
			}
			if elemType == nil {
				elemType = fl.typeOf(v)
			} else if err := typesystem.Expect(elemType, fl.typeOf(v), "array element"); err != nil {
				return ssa.InvalidValue, typeError(el.GetToken(), err)
			}
			elems = append(elems, v)
		}
	}
	if elemType == nil {
		return ssa.InvalidValue, malformed(lit, "empty array literal needs an element type")
	}
	if _, unit := elemType.(typesystem.TUnit); unit {
		return ssa.InvalidValue, typeErrorf(lit.Token, "array elements cannot be unit")
	}

	if lit.Slice {
		v := fl.b.InsertMakeArray(elems, typesystem.TSlice{Elem: elemType})
		fl.lens[v] = len(elems)
		return v, nil
	}
	return fl.b.InsertMakeArray(elems, typesystem.TArray{Elem: elemType, Len: len(elems)}), nil
}

// resolveStruct returns the declared form of a struct type.
func (fl *functionLowering) resolveStruct(t typesystem.TStruct) typesystem.TStruct {
	if len(t.Fields) == 0 {
		if decl := fl.m.prog.Struct(t.Name); decl != nil {
			return decl.Type
		}
	}
	return t
}

func (fl *functionLowering) lowerStructLiteral(lit *ast.StructLiteral) (ssa.ValueID, error) {
	decl := fl.m.prog.Struct(lit.Name)
	if decl == nil {
		return ssa.InvalidValue, diagnostics.NewError(diagnostics.UndefinedName, lit.Token, "undefined struct %s", lit.Name)
	}
	st := decl.Type

	values := make(map[string]ssa.ValueID, len(lit.Fields))
	for _, f := range lit.Fields {
		idx := st.FieldIndex(f.Name.Value)
		if idx < 0 {
			return ssa.InvalidValue, typeErrorf(f.Name.Token, "struct %s has no field %s", st.Name, f.Name.Value)
		}
		if _, dup := values[f.Name.Value]; dup {
			return ssa.InvalidValue, malformed(f.Name, "field %s given twice", f.Name.Value)
		}
		want := st.Fields[idx].Type
		v, err := fl.lowerExpression(f.Value, want)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if err := typesystem.Expect(want, fl.typeOf(v), st.Name+"."+f.Name.Value); err != nil {
			return ssa.InvalidValue, typeError(f.Value.GetToken(), err)
		}
		values[f.Name.Value] = v
	}

	fields := make([]ssa.ValueID, len(st.Fields))
	for i, f := range st.Fields {
		v, ok := values[f.Name]
		if !ok {
			return ssa.InvalidValue, malformed(lit, "missing field %s in %s literal", f.Name, st.Name)
		}
		fields[i] = v
	}
	return fl.b.InsertMakeAggregate(fields, st), nil
}

func (fl *functionLowering) lowerTupleLiteral(lit *ast.TupleLiteral, hint typesystem.Type) (ssa.ValueID, error) {
	hints, _ := hint.(typesystem.TTuple)
	fields := make([]ssa.ValueID, len(lit.Elements))
	for i, el := range lit.Elements {
		var h typesystem.Type
		if i < len(hints.Elems) {
			h = hints.Elems[i]
		}
		v, err := fl.lowerExpression(el, h)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if !v.IsValid() {
			return ssa.InvalidValue, typeErrorf(el.GetToken(), "tuple elements cannot be unit")
		}
		fields[i] = v
	}
	return fl.makeTuple(fields), nil
}

func (fl *functionLowering) makeTuple(fields []ssa.ValueID) ssa.ValueID {
	types := make([]typesystem.Type, len(fields))
	for i, f := range fields {
		types[i] = fl.typeOf(f)
	}
	v := fl.b.InsertMakeAggregate(fields, typesystem.TTuple{Elems: types})
	fl.parts[v] = fields
	return v
}

// lowerMemberExpression reads a field, dereferencing the left side as
// needed. A reference-typed field yields the stored reference itself, so
// the result shares its cell with every copy of the struct.
func (fl *functionLowering) lowerMemberExpression(e *ast.MemberExpression) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(e.Left, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	v = fl.derefAll(v)
	idx, ft, err := fl.fieldOf(fl.typeOf(v), e.Member)
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.b.InsertExtractField(v, idx, ft), nil
}

func (fl *functionLowering) fieldOf(t typesystem.Type, member *ast.Identifier) (int, typesystem.Type, error) {
	st, ok := t.(typesystem.TStruct)
	if !ok {
		return 0, nil, typeErrorf(member.Token, "cannot access field %s on a value of type %s", member.Value, t)
	}
	st = fl.resolveStruct(st)
	idx := st.FieldIndex(member.Value)
	if idx < 0 {
		return 0, nil, typeErrorf(member.Token, "struct %s has no field %s", st.Name, member.Value)
	}
	return idx, st.Fields[idx].Type, nil
}

func (fl *functionLowering) lowerTupleIndexExpression(e *ast.TupleIndexExpression) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(e.Tuple, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	v = fl.derefAll(v)
	et, err := tupleElem(fl.typeOf(v), e)
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.b.InsertExtractField(v, e.Index, et), nil
}

func tupleElem(t typesystem.Type, e *ast.TupleIndexExpression) (typesystem.Type, error) {
	tt, ok := t.(typesystem.TTuple)
	if !ok {
		return nil, typeErrorf(e.Token, "cannot index a value of type %s as a tuple", t)
	}
	if e.Index < 0 || e.Index >= len(tt.Elems) {
		return nil, diagnostics.NewError(diagnostics.IndexOutOfRange, e.Token, "tuple index %d out of range for %s", e.Index, tt)
	}
	return tt.Elems[e.Index], nil
}

func (fl *functionLowering) lowerIndexExpression(e *ast.IndexExpression) (ssa.ValueID, error) {
	arr, err := fl.lowerExpression(e.Left, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	arr = fl.derefAll(arr)
	elem, ok := typesystem.ElemType(fl.typeOf(arr))
	if !ok {
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot index a value of type %s", fl.typeOf(arr))
	}
	idx, err := fl.lowerIndex(e.Index)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := fl.checkConstIndex(e.Token, arr, idx, false); err != nil {
		return ssa.InvalidValue, err
	}
	return fl.b.InsertArrayGet(arr, idx, elem), nil
}

// lowerIndex lowers an index expression to a u32 value. Constant indices
// stay constants so they can be checked at compile time.
func (fl *functionLowering) lowerIndex(expr ast.Expression) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(expr, typesystem.U32)
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.toIndex(expr, v)
}

func (fl *functionLowering) toIndex(expr ast.Expression, v ssa.ValueID) (ssa.ValueID, error) {
	t := fl.typeOf(v)
	if t.Equal(typesystem.U32) {
		return v, nil
	}
	if !typesystem.IsNumeric(t) {
		return ssa.InvalidValue, typeErrorf(expr.GetToken(), "index must be an integer, found %s", t)
	}
	if c, ok := fl.b.DFG().GetNumericConstant(v); ok {
		if c.Sign() < 0 || !c.IsUint64() || c.Uint64() > 0xFFFFFFFF {
			return ssa.InvalidValue, diagnostics.NewError(diagnostics.IndexOutOfRange, expr.GetToken(), "index %s out of range", c)
		}
		return fl.b.NumericConstant(c, typesystem.U32), nil
	}
	if fl.m.engine.boundsChecks {
		fl.guardIndexWidth(v, t)
	}
	return fl.b.InsertCast(v, typesystem.U32), nil
}

// guardIndexWidth asserts that a non-u32 index survives the cast to u32,
// which keeps only the low bits.
func (fl *functionLowering) guardIndexWidth(v ssa.ValueID, t typesystem.Type) {
	b := fl.b
	it, isInt := t.(typesystem.TInt)
	if isInt && it.Signed {
		b.InsertConstrain(b.InsertBinary(ssa.BinaryLt, v, b.Int(0, t)), b.Bool(false), "index out of bounds")
	}
	if isInt && it.Bits <= 32 {
		return
	}
	limit := new(big.Int).Lsh(big.NewInt(1), 32)
	b.InsertConstrain(b.InsertBinary(ssa.BinaryLt, v, b.NumericConstant(limit, t)), b.Bool(true), "index out of bounds")
}

// constIndex returns the value of a constant index.
func (fl *functionLowering) constIndex(idx ssa.ValueID) (int, bool) {
	c, ok := fl.b.DFG().GetNumericConstant(idx)
	if !ok || !c.IsInt64() {
		return 0, false
	}
	return int(c.Int64()), true
}

// checkConstIndex rejects a constant index outside the known length of
// seq: index < n, or index <= n when inclusive.
func (fl *functionLowering) checkConstIndex(tok token.Token, seq, idx ssa.ValueID, inclusive bool) error {
	i, ok := fl.constIndex(idx)
	if !ok {
		return nil
	}
	n, ok := fl.knownLen(seq)
	if !ok {
		return nil
	}
	if i > n || (!inclusive && i == n) {
		bound := "<"
		if inclusive {
			bound = "<="
		}
		return diagnostics.NewError(diagnostics.IndexOutOfRange, tok, "index %d out of range: must be %s %d", i, bound, n)
	}
	return nil
}
