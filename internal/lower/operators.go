package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// untypedLiteral reports whether expr is built only from unsuffixed
// integer literals, so its type comes from the other operand.
func untypedLiteral(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return e.Type == nil
	case *ast.PrefixExpression:
		return e.Operator == "-" && untypedLiteral(e.Right)
	case *ast.InfixExpression:
		switch e.Operator {
		case "+", "-", "*", "/", "%":
			return untypedLiteral(e.Left) && untypedLiteral(e.Right)
		}
	}
	return false
}

// lowerOperands lowers a pair of operands so an untyped literal side takes
// the type of the other side. Literals are pure, so lowering the right
// side first in that case changes no behaviour.
func (fl *functionLowering) lowerOperands(left, right ast.Expression, hint typesystem.Type) (ssa.ValueID, ssa.ValueID, error) {
	if untypedLiteral(left) && !untypedLiteral(right) {
		r, err := fl.lowerExpression(right, hint)
		if err != nil {
			return 0, 0, err
		}
		l, err := fl.lowerExpression(left, fl.typeOf(r))
		return l, r, err
	}
	l, err := fl.lowerExpression(left, hint)
	if err != nil {
		return 0, 0, err
	}
	r, err := fl.lowerExpression(right, fl.typeOf(l))
	return l, r, err
}

func (fl *functionLowering) lowerPrefixExpression(e *ast.PrefixExpression, hint typesystem.Type) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(e.Right, hint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	t := fl.typeOf(v)
	switch e.Operator {
	case "!":
		switch t.(type) {
		case typesystem.TBool, typesystem.TInt:
			return fl.b.InsertNot(v), nil
		}
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot apply ! to %s", t)
	case "-":
		if !typesystem.IsNumeric(t) {
			return ssa.InvalidValue, typeErrorf(e.Token, "cannot negate %s", t)
		}
		return fl.b.InsertBinary(ssa.BinarySub, fl.b.Int(0, t), v), nil
	}
	return ssa.InvalidValue, malformed(e, "unknown prefix operator %s", e.Operator)
}

func (fl *functionLowering) lowerInfixExpression(e *ast.InfixExpression, hint typesystem.Type) (ssa.ValueID, error) {
	var operandHint typesystem.Type
	switch e.Operator {
	case "+", "-", "*", "/", "%", "&", "|", "^":
		operandHint = hint
	case "&&", "||":
		operandHint = typesystem.Bool
	}
	l, r, err := fl.lowerOperands(e.Left, e.Right, operandHint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	lt, rt := fl.typeOf(l), fl.typeOf(r)
	if !lt.Equal(rt) {
		return ssa.InvalidValue, typeErrorf(e.Token, "operands of %s have types %s and %s", e.Operator, lt, rt)
	}

	b := fl.b
	switch e.Operator {
	case "+", "-", "*", "/", "%":
		if !typesystem.IsNumeric(lt) {
			return ssa.InvalidValue, typeErrorf(e.Token, "operator %s is not defined on %s", e.Operator, lt)
		}
		if e.Operator == "%" {
			if _, ok := lt.(typesystem.TInt); !ok {
				return ssa.InvalidValue, typeErrorf(e.Token, "operator %% is not defined on %s", lt)
			}
		}
		return b.InsertBinary(arithmeticOps[e.Operator], l, r), nil

	case "==", "!=":
		if !typesystem.Comparable(lt) {
			return ssa.InvalidValue, typeErrorf(e.Token, "values of type %s cannot be compared", lt)
		}
		eq := b.InsertBinary(ssa.BinaryEq, l, r)
		if e.Operator == "!=" {
			return b.InsertNot(eq), nil
		}
		return eq, nil

	case "<", ">", "<=", ">=":
		if !typesystem.IsOrdered(lt) {
			return ssa.InvalidValue, typeErrorf(e.Token, "values of type %s are not ordered", lt)
		}
		switch e.Operator {
		case "<":
			return b.InsertBinary(ssa.BinaryLt, l, r), nil
		case ">":
			return b.InsertBinary(ssa.BinaryLt, r, l), nil
		case "<=":
			return b.InsertNot(b.InsertBinary(ssa.BinaryLt, r, l)), nil
		default:
			return b.InsertNot(b.InsertBinary(ssa.BinaryLt, l, r)), nil
		}

	case "&&", "||":
		if _, ok := lt.(typesystem.TBool); !ok {
			return ssa.InvalidValue, typeErrorf(e.Token, "operator %s needs bool operands, found %s", e.Operator, lt)
		}
		// Both sides are always evaluated.
		if e.Operator == "&&" {
			return b.InsertBinary(ssa.BinaryAnd, l, r), nil
		}
		return b.InsertBinary(ssa.BinaryOr, l, r), nil

	case "&", "|", "^":
		switch lt.(type) {
		case typesystem.TBool, typesystem.TInt:
		default:
			return ssa.InvalidValue, typeErrorf(e.Token, "operator %s is not defined on %s", e.Operator, lt)
		}
		return b.InsertBinary(bitwiseOps[e.Operator], l, r), nil
	}
	return ssa.InvalidValue, malformed(e, "unknown operator %s", e.Operator)
}

var arithmeticOps = map[string]ssa.BinaryOp{
	"+": ssa.BinaryAdd,
	"-": ssa.BinarySub,
	"*": ssa.BinaryMul,
	"/": ssa.BinaryDiv,
	"%": ssa.BinaryMod,
}

var bitwiseOps = map[string]ssa.BinaryOp{
	"&": ssa.BinaryAnd,
	"|": ssa.BinaryOr,
	"^": ssa.BinaryXor,
}

func (fl *functionLowering) lowerCastExpression(e *ast.CastExpression) (ssa.ValueID, error) {
	v, err := fl.lowerExpression(e.Value, nil)
	if err != nil {
		return ssa.InvalidValue, err
	}
	from := fl.typeOf(v)
	switch from.(type) {
	case typesystem.TField, typesystem.TInt, typesystem.TBool:
	default:
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot cast %s to %s", from, e.Type)
	}
	if !typesystem.IsNumeric(e.Type) {
		return ssa.InvalidValue, typeErrorf(e.Token, "cannot cast %s to %s", from, e.Type)
	}
	if from.Equal(e.Type) {
		return v, nil
	}
	return fl.b.InsertCast(v, e.Type), nil
}
