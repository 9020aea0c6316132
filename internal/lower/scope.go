package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// beginScope starts a new scope
func (fl *functionLowering) beginScope() {
	fl.scopeDepth++
}

// endScope drops the locals of the current scope. Cells are never freed.
func (fl *functionLowering) endScope() {
	fl.scopeDepth--
	for len(fl.locals) > 0 && fl.locals[len(fl.locals)-1].Depth > fl.scopeDepth {
		fl.locals = fl.locals[:len(fl.locals)-1]
	}
}

func (fl *functionLowering) addLocal(local Local) {
	local.Depth = fl.scopeDepth
	fl.locals = append(fl.locals, local)
}

// resolveLocal looks up a local variable by name, innermost first.
func (fl *functionLowering) resolveLocal(name string) *Local {
	for i := len(fl.locals) - 1; i >= 0; i-- {
		if fl.locals[i].Name == name {
			return &fl.locals[i]
		}
	}
	return nil
}

// bindValue introduces a binding for v. A mutable binding gets its own
// cell so later assignments are observable through &mut borrows of it.
func (fl *functionLowering) bindValue(name *ast.Identifier, v ssa.ValueID, typ typesystem.Type, mutable bool) error {
	if name == nil || name.Value == "" {
		return diagnostics.NewError(diagnostics.Malformed, name.GetToken(), "binding without a name")
	}
	if name.Value == "_" {
		return nil
	}
	local := Local{Name: name.Value, Type: typ, Mutable: mutable}
	if mutable {
		if !v.IsValid() {
			return typeErrorf(name.Token, "cannot bind a mutable variable %s to a unit value", name.Value)
		}
		local.Cell = fl.allocate(v)
	} else {
		local.Value = v
	}
	fl.addLocal(local)
	return nil
}

// readLocal returns the current value of a local.
func (fl *functionLowering) readLocal(local *Local) ssa.ValueID {
	if local.Mutable {
		return fl.load(local.Cell)
	}
	return local.Value
}

// resolveCapture finds the value a nested lambda captures under name. The
// search continues outwards through lambdas, each of which has already
// bound its own captures as immutable locals. A mutable binding can never
// be captured: the lambda would observe a snapshot that silently diverges
// from the variable.
func (fl *functionLowering) resolveCapture(ident *ast.Identifier) (ssa.ValueID, bool, error) {
	local := fl.resolveLocal(ident.Value)
	if local == nil {
		return ssa.InvalidValue, false, nil
	}
	if local.Mutable {
		return ssa.InvalidValue, true, diagnostics.NewError(diagnostics.InvalidCapture, ident.Token,
			"closure captures mutable variable %s; copy it into an immutable binding first", ident.Value)
	}
	return local.Value, true, nil
}
