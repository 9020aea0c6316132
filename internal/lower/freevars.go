package lower

import "github.com/funvibe/refssa/internal/ast"

// freeVariables lists the identifiers a lambda body reads from outside
// the lambda, in order of first use. Names bound inside the lambda (its
// parameters, lets, loop indices and the parameters of nested lambdas)
// are excluded. Whether a free name is a local or a function is decided
// by the caller.
func freeVariables(lit *ast.FunctionLiteral) []*ast.Identifier {
	fv := &freeVarCollector{seen: make(map[string]bool)}
	fv.push()
	for _, p := range lit.Parameters {
		fv.bind(p.Name.Value)
	}
	fv.expr(lit.Body)
	fv.pop()
	return fv.names
}

type freeVarCollector struct {
	scopes []map[string]bool
	seen   map[string]bool
	names  []*ast.Identifier
}

func (fv *freeVarCollector) push() { fv.scopes = append(fv.scopes, make(map[string]bool)) }
func (fv *freeVarCollector) pop()  { fv.scopes = fv.scopes[:len(fv.scopes)-1] }

func (fv *freeVarCollector) bind(name string) {
	fv.scopes[len(fv.scopes)-1][name] = true
}

func (fv *freeVarCollector) bound(name string) bool {
	for i := len(fv.scopes) - 1; i >= 0; i-- {
		if fv.scopes[i][name] {
			return true
		}
	}
	return false
}

func (fv *freeVarCollector) expr(e ast.Expression) {
	if e != nil {
		e.Accept(fv)
	}
}

func (fv *freeVarCollector) VisitProgram(node *ast.Program)                     {}
func (fv *freeVarCollector) VisitStructDeclaration(node *ast.StructDeclaration) {}
func (fv *freeVarCollector) VisitFunctionStatement(node *ast.FunctionStatement) {}

func (fv *freeVarCollector) VisitIdentifierPattern(node *ast.IdentifierPattern) {
	fv.bind(node.Name.Value)
}

func (fv *freeVarCollector) VisitTuplePattern(node *ast.TuplePattern) {
	for _, el := range node.Elements {
		el.Accept(fv)
	}
}

func (fv *freeVarCollector) VisitLetStatement(node *ast.LetStatement) {
	fv.expr(node.Value)
	node.Pattern.Accept(fv)
}

func (fv *freeVarCollector) VisitAssignStatement(node *ast.AssignStatement) {
	fv.expr(node.Target)
	fv.expr(node.Value)
}

func (fv *freeVarCollector) VisitAssertStatement(node *ast.AssertStatement) {
	fv.expr(node.Condition)
}

func (fv *freeVarCollector) VisitForStatement(node *ast.ForStatement) {
	fv.expr(node.Start)
	fv.expr(node.End)
	fv.push()
	fv.bind(node.Index.Value)
	if node.Body != nil {
		node.Body.Accept(fv)
	}
	fv.pop()
}

func (fv *freeVarCollector) VisitExpressionStatement(node *ast.ExpressionStatement) {
	fv.expr(node.Expression)
}

func (fv *freeVarCollector) VisitBlockStatement(node *ast.BlockStatement) {
	fv.push()
	for _, s := range node.Statements {
		s.Accept(fv)
	}
	fv.expr(node.Result)
	fv.pop()
}

func (fv *freeVarCollector) VisitIdentifier(node *ast.Identifier) {
	if fv.bound(node.Value) || fv.seen[node.Value] {
		return
	}
	fv.seen[node.Value] = true
	fv.names = append(fv.names, node)
}

func (fv *freeVarCollector) VisitIntegerLiteral(node *ast.IntegerLiteral) {}
func (fv *freeVarCollector) VisitBooleanLiteral(node *ast.BooleanLiteral) {}

func (fv *freeVarCollector) VisitArrayLiteral(node *ast.ArrayLiteral) {
	for _, el := range node.Elements {
		fv.expr(el)
	}
	fv.expr(node.Repeat)
}

func (fv *freeVarCollector) VisitStructLiteral(node *ast.StructLiteral) {
	for _, f := range node.Fields {
		fv.expr(f.Value)
	}
}

func (fv *freeVarCollector) VisitTupleLiteral(node *ast.TupleLiteral) {
	for _, el := range node.Elements {
		fv.expr(el)
	}
}

func (fv *freeVarCollector) VisitMemberExpression(node *ast.MemberExpression) {
	fv.expr(node.Left)
}

func (fv *freeVarCollector) VisitIndexExpression(node *ast.IndexExpression) {
	fv.expr(node.Left)
	fv.expr(node.Index)
}

func (fv *freeVarCollector) VisitTupleIndexExpression(node *ast.TupleIndexExpression) {
	fv.expr(node.Tuple)
}

func (fv *freeVarCollector) VisitRefExpression(node *ast.RefExpression)       { fv.expr(node.Value) }
func (fv *freeVarCollector) VisitDerefExpression(node *ast.DerefExpression)   { fv.expr(node.Value) }
func (fv *freeVarCollector) VisitPrefixExpression(node *ast.PrefixExpression) { fv.expr(node.Right) }
func (fv *freeVarCollector) VisitCastExpression(node *ast.CastExpression)     { fv.expr(node.Value) }

func (fv *freeVarCollector) VisitInfixExpression(node *ast.InfixExpression) {
	fv.expr(node.Left)
	fv.expr(node.Right)
}

func (fv *freeVarCollector) VisitIfExpression(node *ast.IfExpression) {
	fv.expr(node.Condition)
	if node.Consequence != nil {
		node.Consequence.Accept(fv)
	}
	fv.expr(node.Alternative)
}

func (fv *freeVarCollector) VisitCallExpression(node *ast.CallExpression) {
	fv.expr(node.Function)
	for _, a := range node.Arguments {
		fv.expr(a)
	}
}

func (fv *freeVarCollector) VisitMethodCallExpression(node *ast.MethodCallExpression) {
	fv.expr(node.Receiver)
	for _, a := range node.Arguments {
		fv.expr(a)
	}
}

func (fv *freeVarCollector) VisitBuiltinCallExpression(node *ast.BuiltinCallExpression) {
	fv.expr(node.Receiver)
	for _, a := range node.Arguments {
		fv.expr(a)
	}
}

func (fv *freeVarCollector) VisitFunctionLiteral(node *ast.FunctionLiteral) {
	fv.push()
	for _, p := range node.Parameters {
		fv.bind(p.Name.Value)
	}
	fv.expr(node.Body)
	fv.pop()
}
