package lower

import (
	"fmt"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

type capture struct {
	name  *ast.Identifier
	value ssa.ValueID
	typ   typesystem.Type
}

// lowerFunctionLiteral lowers a lambda into its own SSA function whose
// leading parameters are the captured values. The closure copies the
// captures when it is created, so later changes in the enclosing scope
// cannot reach it. A lambda without captures is a plain function reference.
func (fl *functionLowering) lowerFunctionLiteral(lit *ast.FunctionLiteral, hint typesystem.Type) (ssa.ValueID, error) {
	hf, _ := hint.(typesystem.TFunc)
	paramTypes := make([]typesystem.Type, len(lit.Parameters))
	for i, p := range lit.Parameters {
		paramTypes[i] = p.Type
		if paramTypes[i] == nil && len(hf.Params) == len(lit.Parameters) {
			paramTypes[i] = hf.Params[i]
		}
		if paramTypes[i] == nil {
			return ssa.InvalidValue, malformed(lit, "cannot infer the type of lambda parameter %s", p.Name.Value)
		}
	}

	var captures []capture
	for _, ident := range freeVariables(lit) {
		v, found, err := fl.resolveCapture(ident)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if found {
			captures = append(captures, capture{name: ident, value: v, typ: fl.resolveLocal(ident.Value).Type})
		}
	}

	fl.lambdaCount++
	name := fmt.Sprintf("%s$lambda%d", fl.name, fl.lambdaCount)
	id := fl.m.module.Reserve(name)
	inner := newFunctionLowering(fl.m, fl, id, name)

	inner.beginScope()
	var capVals []ssa.ValueID
	var capTypes []typesystem.Type
	for _, c := range captures {
		local := Local{Name: c.name.Value, Type: c.typ}
		if c.value.IsValid() {
			local.Value = inner.b.AddParameter(c.typ)
			capVals = append(capVals, c.value)
			capTypes = append(capTypes, c.typ)
		}
		inner.addLocal(local)
	}
	for i, p := range lit.Parameters {
		v := inner.b.AddParameter(paramTypes[i])
		if err := inner.bindValue(p.Name, v, paramTypes[i], p.Mutable); err != nil {
			return ssa.InvalidValue, err
		}
	}

	retHint := lit.ReturnType
	if retHint == nil {
		retHint = hf.Return
	}
	result, err := inner.lowerExpression(lit.Body, retHint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	ret := lit.ReturnType
	if ret == nil {
		ret = inner.typeOf(result)
	}
	if err := inner.finish(lit.Body.GetToken(), ret, result); err != nil {
		return ssa.InvalidValue, err
	}
	inner.endScope()
	fl.m.module.Set(inner.b.Function())
	fl.m.logFunction(inner.b.Function())

	ft := typesystem.TFunc{Params: paramTypes, Return: ret}
	if len(capVals) == 0 {
		return fl.b.ImportFunction(id, ft), nil
	}
	full := typesystem.TFunc{Params: append(capTypes, paramTypes...), Return: ret}
	return fl.b.InsertMakeClosure(fl.b.ImportFunction(id, full), capVals, ft), nil
}
