package ast

// Visitor walks the AST. Each node's Accept dispatches to the matching method.
type Visitor interface {
	VisitProgram(node *Program)
	VisitStructDeclaration(node *StructDeclaration)
	VisitFunctionStatement(node *FunctionStatement)
	VisitIdentifierPattern(node *IdentifierPattern)
	VisitTuplePattern(node *TuplePattern)
	VisitLetStatement(node *LetStatement)
	VisitAssignStatement(node *AssignStatement)
	VisitAssertStatement(node *AssertStatement)
	VisitForStatement(node *ForStatement)
	VisitExpressionStatement(node *ExpressionStatement)
	VisitBlockStatement(node *BlockStatement)

	VisitIdentifier(node *Identifier)
	VisitIntegerLiteral(node *IntegerLiteral)
	VisitBooleanLiteral(node *BooleanLiteral)
	VisitArrayLiteral(node *ArrayLiteral)
	VisitStructLiteral(node *StructLiteral)
	VisitTupleLiteral(node *TupleLiteral)
	VisitMemberExpression(node *MemberExpression)
	VisitIndexExpression(node *IndexExpression)
	VisitTupleIndexExpression(node *TupleIndexExpression)
	VisitRefExpression(node *RefExpression)
	VisitDerefExpression(node *DerefExpression)
	VisitPrefixExpression(node *PrefixExpression)
	VisitInfixExpression(node *InfixExpression)
	VisitCastExpression(node *CastExpression)
	VisitIfExpression(node *IfExpression)
	VisitCallExpression(node *CallExpression)
	VisitMethodCallExpression(node *MethodCallExpression)
	VisitBuiltinCallExpression(node *BuiltinCallExpression)
	VisitFunctionLiteral(node *FunctionLiteral)
}
