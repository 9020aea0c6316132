package fixtures

import (
	"fmt"
	"strconv"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// The constructors below build type-checked ASTs the way the front end
// hands them to the lowering core. Tokens carry lexemes only; Annotate in
// the prettyprinter assigns positions.

func tok(t token.TokenType, lexeme string) token.Token {
	return token.Token{Type: t, Lexeme: lexeme}
}

func Id(name string) *ast.Identifier {
	return &ast.Identifier{Token: tok(token.IDENT, name), Value: name}
}

// Num is an unsuffixed literal; its type comes from context.
func Num(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Token: tok(token.INT, strconv.FormatInt(v, 10)), Value: v}
}

// NumT is a literal of a fixed type.
func NumT(v int64, t typesystem.Type) *ast.IntegerLiteral {
	lit := Num(v)
	lit.Type = t
	return lit
}

func Bool(v bool) *ast.BooleanLiteral {
	if v {
		return &ast.BooleanLiteral{Token: tok(token.TRUE, "true"), Value: true}
	}
	return &ast.BooleanLiteral{Token: tok(token.FALSE, "false")}
}

func Arr(elems ...ast.Expression) *ast.ArrayLiteral {
	return &ast.ArrayLiteral{Token: tok(token.LBRACKET, "["), Elements: elems}
}

func Slice(elems ...ast.Expression) *ast.ArrayLiteral {
	lit := Arr(elems...)
	lit.Slice = true
	return lit
}

func EmptySlice(elem typesystem.Type) *ast.ArrayLiteral {
	lit := Slice()
	lit.ElemType = elem
	return lit
}

// Repeat is [x; n], or a slice of n copies of x when slice is set.
func Repeat(x ast.Expression, n int, slice bool) *ast.ArrayLiteral {
	return &ast.ArrayLiteral{Token: tok(token.LBRACKET, "["), Repeat: x, Count: n, Slice: slice}
}

func Tup(elems ...ast.Expression) *ast.TupleLiteral {
	return &ast.TupleLiteral{Token: tok(token.LPAREN, "("), Elements: elems}
}

// F is one field of a struct literal.
func F(name string, v ast.Expression) *ast.FieldValue {
	return &ast.FieldValue{Name: Id(name), Value: v}
}

func New(name string, fields ...*ast.FieldValue) *ast.StructLiteral {
	return &ast.StructLiteral{Token: tok(token.IDENT, name), Name: name, Fields: fields}
}

func Dot(x ast.Expression, member string) *ast.MemberExpression {
	return &ast.MemberExpression{Token: tok(token.DOT, "."), Left: x, Member: Id(member)}
}

func Nth(x ast.Expression, i int) *ast.TupleIndexExpression {
	return &ast.TupleIndexExpression{Token: tok(token.DOT, "."), Tuple: x, Index: i}
}

func At(x, i ast.Expression) *ast.IndexExpression {
	return &ast.IndexExpression{Token: tok(token.LBRACKET, "["), Left: x, Index: i}
}

func RefMut(x ast.Expression) *ast.RefExpression {
	return &ast.RefExpression{Token: tok(token.AMPERSAND, "&"), Value: x}
}

func Deref(x ast.Expression) *ast.DerefExpression {
	return &ast.DerefExpression{Token: tok(token.ASTERISK, "*"), Value: x}
}

func Neg(x ast.Expression) *ast.PrefixExpression {
	return &ast.PrefixExpression{Token: tok(token.OPERATOR, "-"), Operator: "-", Right: x}
}

func Not(x ast.Expression) *ast.PrefixExpression {
	return &ast.PrefixExpression{Token: tok(token.OPERATOR, "!"), Operator: "!", Right: x}
}

func Op(l ast.Expression, op string, r ast.Expression) *ast.InfixExpression {
	return &ast.InfixExpression{Token: tok(token.OPERATOR, op), Left: l, Operator: op, Right: r}
}

func As(x ast.Expression, t typesystem.Type) *ast.CastExpression {
	return &ast.CastExpression{Token: tok(token.AS, "as"), Value: x, Type: t}
}

// If builds if cond { then } else { els }; els may be nil, a block or
// another if.
func If(cond ast.Expression, then *ast.BlockStatement, els ast.Expression) *ast.IfExpression {
	return &ast.IfExpression{Token: tok(token.IF, "if"), Condition: cond, Consequence: then, Alternative: els}
}

func Call(f ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Token: tok(token.LPAREN, "("), Function: f, Arguments: args}
}

// CallFn calls a function by name.
func CallFn(name string, args ...ast.Expression) *ast.CallExpression {
	return Call(Id(name), args...)
}

// MethodCall calls the method receiver::name resolved for recv.
func MethodCall(recv ast.Expression, receiver, name string, args ...ast.Expression) *ast.MethodCallExpression {
	return &ast.MethodCallExpression{
		Token:     tok(token.DOT, "."),
		Receiver:  recv,
		Method:    ast.QualifiedName(receiver, name),
		Arguments: args,
	}
}

// Builtin calls a slice builtin by name. Fixtures are static, so an
// unknown name is a programming error.
func Builtin(recv ast.Expression, name string, args ...ast.Expression) *ast.BuiltinCallExpression {
	b, ok := ast.LookupBuiltin(name)
	if !ok {
		panic(fmt.Sprintf("fixtures: unknown builtin %q", name))
	}
	return &ast.BuiltinCallExpression{Token: tok(token.DOT, "."), Builtin: b, Receiver: recv, Arguments: args}
}

// Lambda builds |params| body. A nil ret lets the body decide.
func Lambda(params []*ast.Parameter, ret typesystem.Type, body ast.Expression) *ast.FunctionLiteral {
	return &ast.FunctionLiteral{Token: tok(token.PIPE, "|"), Parameters: params, ReturnType: ret, Body: body}
}

// P is a parameter. A nil type is allowed for lambdas whose type comes
// from the call site.
func P(name string, t typesystem.Type) *ast.Parameter {
	return &ast.Parameter{Token: tok(token.IDENT, name), Name: Id(name), Type: t}
}

func MutP(name string, t typesystem.Type) *ast.Parameter {
	p := P(name, t)
	p.Mutable = true
	return p
}

func Ps(params ...*ast.Parameter) []*ast.Parameter { return params }

// Self is a by-value self parameter; SelfMut is &mut self.
func Self(st typesystem.TStruct) *ast.Parameter { return P("self", st) }

func SelfMut(st typesystem.TStruct) *ast.Parameter {
	return P("self", typesystem.TRef{Elem: st})
}

// Statements

func Let(name string, v ast.Expression) *ast.LetStatement {
	return LetPat(Bind(name), nil, v)
}

func LetMut(name string, v ast.Expression) *ast.LetStatement {
	return LetPat(BindMut(name), nil, v)
}

func LetT(name string, t typesystem.Type, v ast.Expression) *ast.LetStatement {
	return LetPat(Bind(name), t, v)
}

func LetMutT(name string, t typesystem.Type, v ast.Expression) *ast.LetStatement {
	return LetPat(BindMut(name), t, v)
}

func LetPat(p ast.Pattern, t typesystem.Type, v ast.Expression) *ast.LetStatement {
	return &ast.LetStatement{Token: tok(token.LET, "let"), Pattern: p, Type: t, Value: v}
}

func Bind(name string) *ast.IdentifierPattern {
	return &ast.IdentifierPattern{Token: tok(token.IDENT, name), Name: Id(name)}
}

func BindMut(name string) *ast.IdentifierPattern {
	p := Bind(name)
	p.Mutable = true
	return p
}

// Pat destructures a tuple into plain bindings.
func Pat(names ...string) *ast.TuplePattern {
	elems := make([]ast.Pattern, len(names))
	for i, n := range names {
		elems[i] = Bind(n)
	}
	return &ast.TuplePattern{Token: tok(token.LPAREN, "("), Elements: elems}
}

func Set(target, v ast.Expression) *ast.AssignStatement {
	return &ast.AssignStatement{Token: tok(token.ASSIGN, "="), Target: target, Value: v}
}

// AddAssign is target += v.
func AddAssign(target, v ast.Expression) *ast.AssignStatement {
	return Set(target, Op(target, "+", v))
}

func Assert(cond ast.Expression) *ast.AssertStatement {
	return &ast.AssertStatement{Token: tok(token.ASSERT, "assert"), Condition: cond}
}

func AssertMsg(cond ast.Expression, msg string) *ast.AssertStatement {
	s := Assert(cond)
	s.Message = msg
	return s
}

// AssertEq is assert(a == b).
func AssertEq(a, b ast.Expression) *ast.AssertStatement {
	return Assert(Op(a, "==", b))
}

func For(index string, start, end ast.Expression, body ...ast.Statement) *ast.ForStatement {
	return &ast.ForStatement{Token: tok(token.FOR, "for"), Index: Id(index), Start: start, End: end, Body: Body(body...)}
}

func Do(x ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Token: x.GetToken(), Expression: x}
}

// tail marks the value expression of a block; Body unwraps it.
type tail struct {
	ast.ExpressionStatement
}

// Tail ends a Body with a value.
func Tail(x ast.Expression) ast.Statement {
	return &tail{ast.ExpressionStatement{Token: x.GetToken(), Expression: x}}
}

// Body builds a block. A trailing Tail becomes the block's result.
func Body(stmts ...ast.Statement) *ast.BlockStatement {
	b := &ast.BlockStatement{Token: tok(token.LBRACE, "{")}
	if n := len(stmts); n > 0 {
		if t, ok := stmts[n-1].(*tail); ok {
			b.Result = t.Expression
			stmts = stmts[:n-1]
		}
	}
	b.Statements = stmts
	return b
}

// Value is a block that only yields x.
func Value(x ast.Expression) *ast.BlockStatement {
	return Body(Tail(x))
}

// Declarations

func SF(name string, t typesystem.Type) typesystem.StructField {
	return typesystem.StructField{Name: name, Type: t}
}

func Struct(name string, fields ...typesystem.StructField) *ast.StructDeclaration {
	return &ast.StructDeclaration{
		Token: tok(token.STRUCT, "struct"),
		Type:  typesystem.TStruct{Name: name, Fields: fields},
	}
}

// Fn declares a function; a nil ret means unit.
func Fn(name string, params []*ast.Parameter, ret typesystem.Type, body *ast.BlockStatement) *ast.FunctionStatement {
	return &ast.FunctionStatement{Token: tok(token.FN, "fn"), Name: Id(name), Parameters: params, ReturnType: ret, Body: body}
}

// Method declares receiver::name. params starts with the self parameter.
func Method(receiver, name string, params []*ast.Parameter, ret typesystem.Type, body *ast.BlockStatement) *ast.FunctionStatement {
	fn := Fn(name, params, ret, body)
	fn.Receiver = receiver
	return fn
}

func Prog(file string, structs []*ast.StructDeclaration, fns ...*ast.FunctionStatement) *ast.Program {
	return &ast.Program{File: file, Structs: structs, Functions: fns}
}

func Structs(decls ...*ast.StructDeclaration) []*ast.StructDeclaration { return decls }
