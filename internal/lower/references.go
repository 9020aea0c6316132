package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// lowerRefExpression lowers &mut e. Borrowing a mutable local yields the
// local's own cell, &mut *r yields r, and any other operand is copied
// into a fresh cell.
func (fl *functionLowering) lowerRefExpression(e *ast.RefExpression, hint typesystem.Type) (ssa.ValueID, error) {
	switch inner := e.Value.(type) {
	case *ast.Identifier:
		if local := fl.resolveLocal(inner.Value); local != nil {
			if !local.Mutable {
				return ssa.InvalidValue, diagnostics.NewError(diagnostics.ImmutableAccess, inner.Token,
					"cannot borrow immutable variable %s as mutable", inner.Value)
			}
			return local.Cell, nil
		}
	case *ast.DerefExpression:
		r, err := fl.lowerExpression(inner.Value, nil)
		if err != nil {
			return ssa.InvalidValue, err
		}
		if !typesystem.IsReference(fl.typeOf(r)) {
			return ssa.InvalidValue, typeErrorf(inner.Token, "cannot dereference %s of type %s", describe(inner.Value), fl.typeOf(r))
		}
		return r, nil
	}

	var elemHint typesystem.Type
	if ref, ok := hint.(typesystem.TRef); ok {
		elemHint = ref.Elem
	}
	v, err := fl.lowerExpression(e.Value, elemHint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if !v.IsValid() {
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot take a reference to a unit value")
	}
	return fl.allocate(v), nil
}

// lowerDerefExpression is a single Load; a chain of references needs one
// dereference per level.
func (fl *functionLowering) lowerDerefExpression(e *ast.DerefExpression) (ssa.ValueID, error) {
	r, err := fl.lowerExpression(e.Value, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if !typesystem.IsReference(fl.typeOf(r)) {
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot dereference %s of type %s", describe(e.Value), fl.typeOf(r))
	}
	return fl.load(r), nil
}

// staticType computes the type of a place expression without emitting
// code. It returns nil for anything that is not a place.
func (fl *functionLowering) staticType(expr ast.Expression) typesystem.Type {
	switch e := expr.(type) {
	case *ast.Identifier:
		if local := fl.resolveLocal(e.Value); local != nil {
			return local.Type
		}
	case *ast.DerefExpression:
		if ref, ok := fl.staticType(e.Value).(typesystem.TRef); ok {
			return ref.Elem
		}
	case *ast.MemberExpression:
		t := fl.staticType(e.Left)
		if t == nil {
			return nil
		}
		t, _ = typesystem.Deref(t)
		if st, ok := t.(typesystem.TStruct); ok {
			st = fl.resolveStruct(st)
			if idx := st.FieldIndex(e.Member.Value); idx >= 0 {
				return st.Fields[idx].Type
			}
		}
	case *ast.TupleIndexExpression:
		t := fl.staticType(e.Tuple)
		if t == nil {
			return nil
		}
		t, _ = typesystem.Deref(t)
		if tt, ok := t.(typesystem.TTuple); ok && e.Index >= 0 && e.Index < len(tt.Elems) {
			return tt.Elems[e.Index]
		}
	case *ast.IndexExpression:
		t := fl.staticType(e.Left)
		if t == nil {
			return nil
		}
		t, _ = typesystem.Deref(t)
		if elem, ok := typesystem.ElemType(t); ok {
			return elem
		}
	}
	return nil
}

// place is an assignable location: the content of cell, optionally
// narrowed by a path of field and element steps.
type place struct {
	cell ssa.ValueID
	elem typesystem.Type
	path []step
}

// step selects a field (index invalid) or an array element (index valid).
type step struct {
	field int
	index ssa.ValueID
	typ   typesystem.Type // type reached by the step
}

func (p place) targetType() typesystem.Type {
	if len(p.path) == 0 {
		return p.elem
	}
	return p.path[len(p.path)-1].typ
}

// placeOf resolves an assignment target.
func (fl *functionLowering) placeOf(expr ast.Expression) (place, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		local := fl.resolveLocal(e.Value)
		if local == nil {
			if _, fn := fl.m.funcs[e.Value]; fn {
				return place{}, diagnostics.NewError(diagnostics.ImmutableAccess, e.Token, "cannot assign to function %s", e.Value)
			}
			return place{}, diagnostics.NewError(diagnostics.UndefinedName, e.Token, "undefined variable %s", e.Value)
		}
		if !local.Mutable {
			return place{}, diagnostics.NewError(diagnostics.ImmutableAccess, e.Token,
				"cannot assign to immutable variable %s", e.Value)
		}
		return place{cell: local.Cell, elem: local.Type}, nil

	case *ast.DerefExpression:
		r, err := fl.lowerExpression(e.Value, nil)
		if err != nil {
			return place{}, err
		}
		ref, ok := fl.typeOf(r).(typesystem.TRef)
		if !ok {
			return place{}, typeErrorf(e.Token, "cannot dereference %s of type %s", describe(e.Value), fl.typeOf(r))
		}
		return place{cell: r, elem: ref.Elem}, nil

	case *ast.MemberExpression:
		p, err := fl.containerOf(e.Left)
		if err != nil {
			return place{}, err
		}
		idx, ft, err := fl.fieldOf(p.targetType(), e.Member)
		if err != nil {
			return place{}, err
		}
		p.path = append(p.path, step{field: idx, typ: ft})
		return p, nil

	case *ast.TupleIndexExpression:
		p, err := fl.containerOf(e.Tuple)
		if err != nil {
			return place{}, err
		}
		et, err := tupleElem(p.targetType(), e)
		if err != nil {
			return place{}, err
		}
		p.path = append(p.path, step{field: e.Index, typ: et})
		return p, nil

	case *ast.IndexExpression:
		p, err := fl.containerOf(e.Left)
		if err != nil {
			return place{}, err
		}
		t := p.targetType()
		elem, ok := typesystem.ElemType(t)
		if !ok {
			return place{}, typeErrorf(e.Token, "cannot index a value of type %s", t)
		}
		idx, err := fl.lowerIndex(e.Index)
		if err != nil {
			return place{}, err
		}
		if arr, ok := t.(typesystem.TArray); ok {
			if i, ok := fl.constIndex(idx); ok && i >= arr.Len {
				return place{}, diagnostics.NewError(diagnostics.IndexOutOfRange, e.Token, "index %d out of range: must be < %d", i, arr.Len)
			}
		}
		p.path = append(p.path, step{field: -1, index: idx, typ: elem})
		return p, nil
	}
	return place{}, malformed(expr, "%s is not assignable", describe(expr))
}

// containerOf resolves the place holding an aggregate that is about to be
// modified. When the aggregate is reached through a reference, the
// reference's cell becomes the root: writes go to the shared cell and the
// bindings on the way there need not be mutable.
func (fl *functionLowering) containerOf(expr ast.Expression) (place, error) {
	if t := fl.staticType(expr); t != nil && typesystem.IsReference(t) {
		r, err := fl.lowerExpression(expr, nil)
		if err != nil {
			return place{}, err
		}
		return fl.rootAt(r), nil
	}
	p, err := fl.placeOf(expr)
	if err != nil {
		return place{}, err
	}
	if typesystem.IsReference(p.targetType()) {
		return fl.rootAt(fl.readPlace(p)), nil
	}
	return p, nil
}

// rootAt follows a reference chain down to the innermost cell.
func (fl *functionLowering) rootAt(r ssa.ValueID) place {
	for {
		ref := fl.typeOf(r).(typesystem.TRef)
		if !typesystem.IsReference(ref.Elem) {
			return place{cell: r, elem: ref.Elem}
		}
		r = fl.load(r)
	}
}

func (fl *functionLowering) readStep(v ssa.ValueID, s step) ssa.ValueID {
	if s.index.IsValid() {
		return fl.b.InsertArrayGet(v, s.index, s.typ)
	}
	return fl.b.InsertExtractField(v, s.field, s.typ)
}

// readPlace loads the current value at p.
func (fl *functionLowering) readPlace(p place) ssa.ValueID {
	v := fl.load(p.cell)
	for _, s := range p.path {
		v = fl.readStep(v, s)
	}
	return v
}

// writePlace stores value at p. Paths are rebuilt bottom-up with
// InsertField/ArraySet and the new root is stored back into the cell.
func (fl *functionLowering) writePlace(p place, value ssa.ValueID) {
	if len(p.path) == 0 {
		fl.store(p.cell, value)
		return
	}
	containers := make([]ssa.ValueID, len(p.path))
	cur := fl.load(p.cell)
	for k, s := range p.path {
		containers[k] = cur
		if k < len(p.path)-1 {
			cur = fl.readStep(cur, s)
		}
	}
	v := value
	for k := len(p.path) - 1; k >= 0; k-- {
		s := p.path[k]
		if s.index.IsValid() {
			updated := fl.b.InsertArraySet(containers[k], s.index, v)
			n, ok := fl.lens[containers[k]]
			fl.setLen(updated, n, ok)
			v = updated
		} else {
			v = fl.b.InsertInsertField(containers[k], s.field, v)
		}
	}
	fl.store(p.cell, v)
}

func (fl *functionLowering) lowerAssignStatement(stmt *ast.AssignStatement) error {
	p, err := fl.placeOf(stmt.Target)
	if err != nil {
		return err
	}
	target := p.targetType()
	v, err := fl.lowerExpression(stmt.Value, target)
	if err != nil {
		return err
	}
	if err := typesystem.Expect(target, fl.typeOf(v), "assignment to "+describe(stmt.Target)); err != nil {
		return typeError(stmt.Value.GetToken(), err)
	}
	fl.writePlace(p, v)
	return nil
}
