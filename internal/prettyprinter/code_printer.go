package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// --- Code Printer (Output looks like source code) ---

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  3,
	">":  3,
	"<=": 3,
	">=": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"+":  7,
	"-":  7,
	"*":  8,
	"/":  8,
	"%":  8,
}

const (
	castPrecedence   = 9
	prefixPrecedence = 10
)

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return 10 // Default high precedence for unknown ops
}

// CodePrinter renders a program as source text. With annotation on, it
// also stamps every token it prints with the position it was printed at,
// so programs built in memory get real file:line:col diagnostics.
type CodePrinter struct {
	buf    bytes.Buffer
	indent int
	line   int // current line, 1-based
	column int // current column position

	annotate bool
	file     string
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{line: 1}
}

// NewAnnotatingPrinter returns a printer that assigns token positions in
// file while printing.
func NewAnnotatingPrinter(file string) *CodePrinter {
	return &CodePrinter{line: 1, annotate: true, file: file}
}

// Print renders prog.
func Print(prog *ast.Program) string {
	p := NewCodePrinter()
	prog.Accept(p)
	return p.String()
}

// Annotate renders prog and assigns every token the position it has in
// the rendered text.
func Annotate(prog *ast.Program) string {
	p := NewAnnotatingPrinter(prog.File)
	prog.Accept(p)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
	p.column = p.indent * 4
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
	// Track line and column position
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		p.line += strings.Count(s, "\n")
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
	p.line++
	p.column = 0
}

// mark records the current position in tok.
func (p *CodePrinter) mark(tok *token.Token) {
	if !p.annotate {
		return
	}
	tok.Line = p.line
	tok.Column = p.column + 1
	tok.File = p.file
}

func (p *CodePrinter) writeType(t typesystem.Type) {
	if t == nil {
		p.write("_")
		return
	}
	p.write(t.String())
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	switch e := expr.(type) {
	case *ast.InfixExpression:
		prec := getPrecedence(e.Operator)
		// All binary operators are left-associative; comparisons do not chain.
		needParens := prec < parentPrec || (prec == parentPrec && isRight)
		if needParens {
			p.write("(")
		}
		p.printExpr(e.Left, prec, false)
		p.write(" ")
		p.mark(&e.Token)
		p.write(e.Operator + " ")
		p.printExpr(e.Right, prec, true)
		if needParens {
			p.write(")")
		}
	case *ast.CastExpression:
		needParens := castPrecedence < parentPrec
		if needParens {
			p.write("(")
		}
		p.printExpr(e.Value, castPrecedence, false)
		p.write(" ")
		p.mark(&e.Token)
		p.write("as ")
		p.writeType(e.Type)
		if needParens {
			p.write(")")
		}
	case *ast.PrefixExpression, *ast.RefExpression, *ast.DerefExpression:
		if parentPrec > prefixPrecedence {
			p.write("(")
			expr.Accept(p)
			p.write(")")
			return
		}
		expr.Accept(p)
	case *ast.IfExpression, *ast.FunctionLiteral:
		if parentPrec > 0 {
			p.write("(")
			expr.Accept(p)
			p.write(")")
			return
		}
		expr.Accept(p)
	default:
		// For everything else, just use visitor
		expr.Accept(p)
	}
}

// printOperand prints the left side of a postfix form: member access,
// indexing and calls.
func (p *CodePrinter) printOperand(expr ast.Expression) {
	p.printExpr(expr, prefixPrecedence+1, false)
}

func (p *CodePrinter) printArgs(args []ast.Expression) {
	p.write("(")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(a, 0, false)
	}
	p.write(")")
}

func (p *CodePrinter) printParams(params []*ast.Parameter, self bool) {
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		p.mark(&param.Token)
		if self && i == 0 && param.Name.Value == "self" {
			if typesystem.IsReference(param.Type) {
				p.write("&mut ")
			}
			p.write("self")
			continue
		}
		if param.Mutable {
			p.write("mut ")
		}
		p.mark(&param.Name.Token)
		p.write(param.Name.Value)
		if param.Type != nil {
			p.write(": ")
			p.writeType(param.Type)
		}
	}
}

func (p *CodePrinter) VisitProgram(n *ast.Program) {
	for _, s := range n.Structs {
		s.Accept(p)
		p.writeln()
	}
	for i, fn := range n.Functions {
		if i > 0 || len(n.Structs) > 0 {
			p.writeln()
		}
		fn.Accept(p)
		p.writeln()
	}
}

func (p *CodePrinter) VisitStructDeclaration(n *ast.StructDeclaration) {
	p.mark(&n.Token)
	p.write("struct " + n.Type.Name + " {")
	p.writeln()
	p.indent++
	for _, f := range n.Type.Fields {
		p.writeIndent()
		p.write(f.Name + ": ")
		p.writeType(f.Type)
		p.write(",")
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitFunctionStatement(n *ast.FunctionStatement) {
	method := n.Receiver != ""
	if method {
		p.write("impl " + n.Receiver + " {")
		p.writeln()
		p.indent++
		p.writeIndent()
	}
	p.mark(&n.Token)
	p.write("fn ")
	p.mark(&n.Name.Token)
	p.write(n.Name.Value + "(")
	p.printParams(n.Parameters, method)
	p.write(")")
	if n.ReturnType != nil {
		p.write(" -> ")
		p.writeType(n.ReturnType)
	}
	p.write(" ")
	n.Body.Accept(p)
	if method {
		p.indent--
		p.writeln()
		p.writeIndent()
		p.write("}")
	}
}

func (p *CodePrinter) VisitIdentifierPattern(n *ast.IdentifierPattern) {
	p.mark(&n.Token)
	if n.Mutable {
		p.write("mut ")
	}
	p.mark(&n.Name.Token)
	p.write(n.Name.Value)
}

func (p *CodePrinter) VisitTuplePattern(n *ast.TuplePattern) {
	p.mark(&n.Token)
	p.write("(")
	for i, el := range n.Elements {
		if i > 0 {
			p.write(", ")
		}
		el.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitLetStatement(n *ast.LetStatement) {
	p.mark(&n.Token)
	p.write("let ")
	n.Pattern.Accept(p)
	if n.Type != nil {
		p.write(": ")
		p.writeType(n.Type)
	}
	p.write(" = ")
	p.printExpr(n.Value, 0, false)
	p.write(";")
}

func (p *CodePrinter) VisitAssignStatement(n *ast.AssignStatement) {
	p.printExpr(n.Target, 0, false)
	p.write(" ")
	p.mark(&n.Token)
	p.write("= ")
	p.printExpr(n.Value, 0, false)
	p.write(";")
}

func (p *CodePrinter) VisitAssertStatement(n *ast.AssertStatement) {
	p.mark(&n.Token)
	p.write("assert(")
	p.printExpr(n.Condition, 0, false)
	if n.Message != "" {
		p.write(", " + strconv.Quote(n.Message))
	}
	p.write(");")
}

func (p *CodePrinter) VisitForStatement(n *ast.ForStatement) {
	p.mark(&n.Token)
	p.write("for ")
	p.mark(&n.Index.Token)
	p.write(n.Index.Value + " in ")
	p.printExpr(n.Start, prefixPrecedence, false)
	p.write("..")
	p.printExpr(n.End, prefixPrecedence, false)
	p.write(" ")
	n.Body.Accept(p)
}

func (p *CodePrinter) VisitExpressionStatement(n *ast.ExpressionStatement) {
	p.printExpr(n.Expression, 0, false)
	if p.annotate {
		n.Token = n.Expression.GetToken()
	}
	switch n.Expression.(type) {
	case *ast.IfExpression, *ast.BlockStatement:
	default:
		p.write(";")
	}
}

func (p *CodePrinter) VisitBlockStatement(n *ast.BlockStatement) {
	p.mark(&n.Token)
	if len(n.Statements) == 0 && n.Result == nil {
		p.write("{}")
		return
	}
	p.write("{")
	p.writeln()
	p.indent++
	for _, stmt := range n.Statements {
		p.writeIndent()
		if stmt != nil {
			stmt.Accept(p)
		} else {
			p.write("<???>")
		}
		p.writeln()
	}
	if n.Result != nil {
		p.writeIndent()
		p.printExpr(n.Result, 0, false)
		p.writeln()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitIdentifier(n *ast.Identifier) {
	p.mark(&n.Token)
	p.write(n.Value)
}

// Integer literals of a fixed integer type carry it as a suffix.
func (p *CodePrinter) VisitIntegerLiteral(n *ast.IntegerLiteral) {
	p.mark(&n.Token)
	p.write(strconv.FormatInt(n.Value, 10))
	if it, ok := n.Type.(typesystem.TInt); ok {
		p.write(it.String())
	}
}

func (p *CodePrinter) VisitBooleanLiteral(n *ast.BooleanLiteral) {
	p.mark(&n.Token)
	p.write(strconv.FormatBool(n.Value))
}

func (p *CodePrinter) VisitArrayLiteral(n *ast.ArrayLiteral) {
	if n.Slice {
		p.write("&")
	}
	p.mark(&n.Token)
	p.write("[")
	if n.Repeat != nil {
		p.printExpr(n.Repeat, 0, false)
		p.write("; " + strconv.Itoa(n.Count))
	} else {
		for i, el := range n.Elements {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(el, 0, false)
		}
	}
	p.write("]")
	if n.Repeat == nil && len(n.Elements) == 0 && n.ElemType != nil {
		p.write(" as [")
		p.writeType(n.ElemType)
		p.write("]")
	}
}

func (p *CodePrinter) VisitStructLiteral(n *ast.StructLiteral) {
	p.mark(&n.Token)
	p.write(n.Name + " { ")
	for i, f := range n.Fields {
		if i > 0 {
			p.write(", ")
		}
		p.mark(&f.Name.Token)
		p.write(f.Name.Value + ": ")
		p.printExpr(f.Value, 0, false)
	}
	p.write(" }")
}

func (p *CodePrinter) VisitTupleLiteral(n *ast.TupleLiteral) {
	p.mark(&n.Token)
	p.write("(")
	for i, el := range n.Elements {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(el, 0, false)
	}
	if len(n.Elements) == 1 {
		p.write(",")
	}
	p.write(")")
}

func (p *CodePrinter) VisitMemberExpression(n *ast.MemberExpression) {
	p.printOperand(n.Left)
	p.mark(&n.Token)
	p.write(".")
	p.mark(&n.Member.Token)
	p.write(n.Member.Value)
}

func (p *CodePrinter) VisitIndexExpression(n *ast.IndexExpression) {
	p.printOperand(n.Left)
	p.mark(&n.Token)
	p.write("[")
	p.printExpr(n.Index, 0, false)
	p.write("]")
}

func (p *CodePrinter) VisitTupleIndexExpression(n *ast.TupleIndexExpression) {
	p.printOperand(n.Tuple)
	p.mark(&n.Token)
	p.write("." + strconv.Itoa(n.Index))
}

func (p *CodePrinter) VisitRefExpression(n *ast.RefExpression) {
	p.mark(&n.Token)
	p.write("&mut ")
	p.printExpr(n.Value, prefixPrecedence, false)
}

func (p *CodePrinter) VisitDerefExpression(n *ast.DerefExpression) {
	p.mark(&n.Token)
	p.write("*")
	p.printExpr(n.Value, prefixPrecedence, false)
}

func (p *CodePrinter) VisitPrefixExpression(n *ast.PrefixExpression) {
	p.mark(&n.Token)
	p.write(n.Operator)
	// Prefix has high precedence
	p.printExpr(n.Right, prefixPrecedence, false)
}

func (p *CodePrinter) VisitInfixExpression(n *ast.InfixExpression) {
	p.printExpr(n, 0, false)
}

func (p *CodePrinter) VisitCastExpression(n *ast.CastExpression) {
	p.printExpr(n, 0, false)
}

func (p *CodePrinter) VisitIfExpression(n *ast.IfExpression) {
	p.mark(&n.Token)
	p.write("if ")
	p.printExpr(n.Condition, 0, false)
	p.write(" ")
	n.Consequence.Accept(p)
	if n.Alternative != nil {
		p.write(" else ")
		n.Alternative.Accept(p)
	}
}

func (p *CodePrinter) VisitCallExpression(n *ast.CallExpression) {
	p.printOperand(n.Function)
	p.mark(&n.Token)
	p.printArgs(n.Arguments)
}

func (p *CodePrinter) VisitMethodCallExpression(n *ast.MethodCallExpression) {
	p.printOperand(n.Receiver)
	p.mark(&n.Token)
	name := n.Method
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	p.write("." + name)
	p.printArgs(n.Arguments)
}

func (p *CodePrinter) VisitBuiltinCallExpression(n *ast.BuiltinCallExpression) {
	p.printOperand(n.Receiver)
	p.mark(&n.Token)
	p.write("." + n.Builtin.String())
	p.printArgs(n.Arguments)
}

func (p *CodePrinter) VisitFunctionLiteral(n *ast.FunctionLiteral) {
	p.mark(&n.Token)
	p.write("|")
	p.printParams(n.Parameters, false)
	p.write("| ")
	if n.ReturnType != nil {
		p.write("-> ")
		p.writeType(n.ReturnType)
		p.write(" ")
	}
	p.printExpr(n.Body, 0, false)
}
