package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

func (fl *functionLowering) lowerStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		return fl.lowerLetStatement(s)
	case *ast.AssignStatement:
		return fl.lowerAssignStatement(s)
	case *ast.AssertStatement:
		return fl.lowerAssertStatement(s)
	case *ast.ForStatement:
		return fl.lowerForStatement(s)
	case *ast.ExpressionStatement:
		_, err := fl.lowerExpression(s.Expression, nil)
		return err
	case *ast.BlockStatement:
		_, err := fl.lowerBlock(s, nil)
		return err
	}
	return malformed(stmt, "unsupported statement %T", stmt)
}

// lowerBlock lowers statements in a new scope and returns the value of
// the trailing expression, or InvalidValue when there is none.
func (fl *functionLowering) lowerBlock(block *ast.BlockStatement, hint typesystem.Type) (ssa.ValueID, error) {
	if block == nil {
		return ssa.InvalidValue, nil
	}
	fl.beginScope()
	defer fl.endScope()
	for _, stmt := range block.Statements {
		if err := fl.lowerStatement(stmt); err != nil {
			return ssa.InvalidValue, err
		}
	}
	if block.Result == nil {
		return ssa.InvalidValue, nil
	}
	return fl.lowerExpression(block.Result, hint)
}

func (fl *functionLowering) lowerLetStatement(stmt *ast.LetStatement) error {
	v, err := fl.lowerExpression(stmt.Value, stmt.Type)
	if err != nil {
		return err
	}
	typ := fl.typeOf(v)
	if stmt.Type != nil {
		if err := typesystem.Expect(stmt.Type, typ, "let binding"); err != nil {
			return typeError(stmt.Value.GetToken(), err)
		}
	}
	return fl.bindPattern(stmt.Pattern, v, typ)
}

func (fl *functionLowering) bindPattern(pat ast.Pattern, v ssa.ValueID, typ typesystem.Type) error {
	switch p := pat.(type) {
	case *ast.IdentifierPattern:
		return fl.bindValue(p.Name, v, typ, p.Mutable)
	case *ast.TuplePattern:
		tt, ok := typ.(typesystem.TTuple)
		if !ok || len(tt.Elems) != len(p.Elements) {
			return typeErrorf(p.Token, "cannot destructure %s into %d elements", typ, len(p.Elements))
		}
		parts, direct := fl.parts[v]
		for i, el := range p.Elements {
			var part ssa.ValueID
			if direct {
				part = parts[i]
			} else {
				part = fl.b.InsertExtractField(v, i, tt.Elems[i])
			}
			if err := fl.bindPattern(el, part, tt.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return diagnostics.NewError(diagnostics.Malformed, pat.GetToken(), "unsupported pattern %T", pat)
}

func (fl *functionLowering) lowerAssertStatement(stmt *ast.AssertStatement) error {
	cond, err := fl.lowerExpression(stmt.Condition, typesystem.Bool)
	if err != nil {
		return err
	}
	if t := fl.typeOf(cond); !t.Equal(typesystem.Bool) {
		return typeErrorf(stmt.Condition.GetToken(), "assert condition must be bool, found %s", t)
	}
	fl.b.InsertConstrain(cond, fl.b.Bool(true), stmt.Message)
	return nil
}

func (fl *functionLowering) lowerForStatement(stmt *ast.ForStatement) error {
	start, end, err := fl.lowerOperands(stmt.Start, stmt.End, nil)
	if err != nil {
		return err
	}
	st, et := fl.typeOf(start), fl.typeOf(end)
	if !st.Equal(et) || !typesystem.IsNumeric(st) {
		return typeErrorf(stmt.Token, "loop range bounds must be integers of one type, found %s and %s", st, et)
	}
	return fl.loop(start, end, func(i ssa.ValueID) error {
		fl.beginScope()
		defer fl.endScope()
		if err := fl.bindValue(stmt.Index, i, st, false); err != nil {
			return err
		}
		_, err := fl.lowerBlock(stmt.Body, nil)
		return err
	})
}
