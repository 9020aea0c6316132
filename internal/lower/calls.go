package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

func (fl *functionLowering) lowerCallExpression(e *ast.CallExpression) (ssa.ValueID, error) {
	callee, err := fl.lowerExpression(e.Function, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	return fl.callValue(e.Token, callee, nil, e.Arguments)
}

// callValue calls a function reference or closure. Arguments are passed
// by value; a &mut parameter receives the caller's reference, so stores
// made by the callee are visible to the caller once it returns.
func (fl *functionLowering) callValue(tok token.Token, callee ssa.ValueID, pre []ssa.ValueID, args []ast.Expression) (ssa.ValueID, error) {
	ft, ok := fl.typeOf(callee).(typesystem.TFunc)
	if !ok {
		return ssa.InvalidValue, typeErrorf(tok, "cannot call a value of type %s", fl.typeOf(callee))
	}
	if len(pre)+len(args) != len(ft.Params) {
		return ssa.InvalidValue, typeErrorf(tok, "%s expects %d arguments, got %d", ft, len(ft.Params), len(pre)+len(args))
	}
	vals := append([]ssa.ValueID(nil), pre...)
	for i, a := range args {
		want := ft.Params[len(pre)+i]
		v, err := fl.lowerExpression(a, want)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if err := typesystem.Expect(want, fl.typeOf(v), "argument"); err != nil {
			return ssa.InvalidValue, typeError(a.GetToken(), err)
		}
		vals = append(vals, v)
	}
	return fl.emitCall(callee, vals, ft.Return), nil
}

func (fl *functionLowering) emitCall(callee ssa.ValueID, args []ssa.ValueID, ret typesystem.Type) ssa.ValueID {
	var resultTypes []typesystem.Type
	if _, unit := ret.(typesystem.TUnit); !unit {
		resultTypes = []typesystem.Type{ret}
	}
	results := fl.b.InsertCall(callee, args, resultTypes)
	// The callee may store through any reference it can reach.
	fl.forgetCells()
	if len(results) == 0 {
		return ssa.InvalidValue
	}
	return results[0]
}

// lowerMethodCallExpression desugars recv.m(args) into a call of the
// resolved method with the receiver as first argument. A &mut self
// receiver is passed by reference.
func (fl *functionLowering) lowerMethodCallExpression(e *ast.MethodCallExpression) (ssa.ValueID, error) {
	decl := fl.m.prog.Function(e.Method)
	if decl == nil {
		return ssa.InvalidValue, diagnostics.NewError(diagnostics.UndefinedName, e.Token, "undefined method %s", e.Method)
	}
	if len(decl.Parameters) == 0 {
		return ssa.InvalidValue, malformed(e, "method %s has no self parameter", e.Method)
	}
	callee := fl.b.ImportFunction(fl.m.funcs[e.Method], decl.Signature())
	selfType := decl.Parameters[0].Type

	var self ssa.ValueID
	var writeBack func()
	if ref, ok := selfType.(typesystem.TRef); ok {
		r, wb, err := fl.receiverRef(e.Receiver, ref)
		if err != nil {
			return ssa.InvalidValue, err
		}
		self, writeBack = r, wb
	} else {
		v, err := fl.lowerExpression(e.Receiver, selfType)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if !fl.typeOf(v).Equal(selfType) {
			v = fl.derefAll(v)
		}
		if err := typesystem.Expect(selfType, fl.typeOf(v), "receiver of "+e.Method); err != nil {
			return ssa.InvalidValue, typeError(e.Receiver.GetToken(), err)
		}
		self = v
	}

	result, err := fl.callValue(e.Token, callee, []ssa.ValueID{self}, e.Arguments)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if writeBack != nil {
		writeBack()
	}
	return result, nil
}

// receiverRef produces the reference passed as &mut self. A receiver that
// already is a reference is passed on; a local is passed its own cell; a
// field or element is borrowed through a temporary cell that is written
// back after the call; any other value is copied into a fresh cell.
func (fl *functionLowering) receiverRef(expr ast.Expression, want typesystem.TRef) (ssa.ValueID, func(), error) {
	if t := fl.staticType(expr); t != nil && typesystem.IsReference(t) {
		r, err := fl.lowerExpression(expr, nil)
		if err != nil {
			return ssa.InvalidValue, nil, err
		}
		for !fl.typeOf(r).Equal(want) {
			ref := fl.typeOf(r).(typesystem.TRef)
			if !typesystem.IsReference(ref.Elem) {
				break
			}
			r = fl.load(r)
		}
		if err := typesystem.Expect(want, fl.typeOf(r), "receiver"); err != nil {
			return ssa.InvalidValue, nil, typeError(expr.GetToken(), err)
		}
		return r, nil, nil
	}

	if !isPlace(expr) {
		v, err := fl.lowerExpression(expr, want.Elem)
		if err != nil {
			return ssa.InvalidValue, nil, err
		}
		if err := typesystem.Expect(want.Elem, fl.typeOf(v), "receiver"); err != nil {
			return ssa.InvalidValue, nil, typeError(expr.GetToken(), err)
		}
		return fl.allocate(v), nil, nil
	}

	if ident, ok := expr.(*ast.Identifier); ok {
		if local := fl.resolveLocal(ident.Value); local != nil && !local.Mutable {
			return ssa.InvalidValue, nil, diagnostics.NewError(diagnostics.ImmutableAccess, ident.Token,
				"cannot borrow immutable variable %s as mutable", ident.Value)
		}
	}
	p, err := fl.placeOf(expr)
	if err != nil {
		return ssa.InvalidValue, nil, err
	}
	if err := typesystem.Expect(want.Elem, p.targetType(), "receiver"); err != nil {
		return ssa.InvalidValue, nil, typeError(expr.GetToken(), err)
	}
	if len(p.path) == 0 {
		return p.cell, nil, nil
	}
	tmp := fl.allocate(fl.readPlace(p))
	return tmp, func() { fl.writePlace(p, fl.load(tmp)) }, nil
}

func isPlace(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.DerefExpression, *ast.MemberExpression, *ast.TupleIndexExpression, *ast.IndexExpression:
		return true
	}
	return false
}
