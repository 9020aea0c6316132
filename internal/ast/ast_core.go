package ast

import (
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
// Every expression handed to the lowering core has already been type checked.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node produced by the front end for one compilation unit.
type Program struct {
	File      string
	Structs   []*StructDeclaration
	Functions []*FunctionStatement
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }
func (p *Program) TokenLiteral() string {
	if len(p.Functions) > 0 {
		return p.Functions[0].TokenLiteral()
	}
	return ""
}
func (p *Program) GetToken() token.Token {
	if p == nil || len(p.Functions) == 0 {
		return token.Token{File: p.fileName()}
	}
	return p.Functions[0].Token
}

func (p *Program) fileName() string {
	if p == nil {
		return ""
	}
	return p.File
}

// Struct returns the declaration of the named struct, or nil.
func (p *Program) Struct(name string) *StructDeclaration {
	for _, s := range p.Structs {
		if s.Type.Name == name {
			return s
		}
	}
	return nil
}

// Function returns the declaration with the given qualified name, or nil.
func (p *Program) Function(name string) *FunctionStatement {
	for _, f := range p.Functions {
		if f.QualifiedName() == name {
			return f
		}
	}
	return nil
}

// StructDeclaration declares a named struct. Field types are resolved;
// a field whose type is a reference shares its cell across struct copies.
type StructDeclaration struct {
	Token token.Token // The 'struct' token
	Type  typesystem.TStruct
}

func (sd *StructDeclaration) Accept(v Visitor)     { v.VisitStructDeclaration(sd) }
func (sd *StructDeclaration) statementNode()       {}
func (sd *StructDeclaration) TokenLiteral() string { return sd.Token.Lexeme }
func (sd *StructDeclaration) GetToken() token.Token {
	if sd == nil {
		return token.Token{}
	}
	return sd.Token
}

// Parameter is a function or lambda parameter.
// mut a: Field or x: &mut Field
type Parameter struct {
	Token   token.Token
	Name    *Identifier
	Type    typesystem.Type
	Mutable bool
}

// FunctionStatement represents a function or method definition.
// fn name(params) -> ReturnType { body }
// Methods carry the receiver type name; a `&mut self` receiver is the
// first parameter with type &mut Receiver.
type FunctionStatement struct {
	Token      token.Token // The 'fn' token
	Name       *Identifier
	Receiver   string
	Parameters []*Parameter
	ReturnType typesystem.Type // nil means unit
	Body       *BlockStatement
}

func (fs *FunctionStatement) Accept(v Visitor)     { v.VisitFunctionStatement(fs) }
func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FunctionStatement) GetToken() token.Token {
	if fs == nil {
		return token.Token{}
	}
	return fs.Token
}

// QualifiedName is Receiver::name for methods and name otherwise.
func (fs *FunctionStatement) QualifiedName() string {
	return QualifiedName(fs.Receiver, fs.Name.Value)
}

// QualifiedName joins a receiver type and a method name.
func QualifiedName(receiver, name string) string {
	if receiver == "" {
		return name
	}
	return receiver + "::" + name
}

// Signature returns the function type of the declaration.
func (fs *FunctionStatement) Signature() typesystem.TFunc {
	params := make([]typesystem.Type, len(fs.Parameters))
	for i, p := range fs.Parameters {
		params[i] = p.Type
	}
	ret := fs.ReturnType
	if ret == nil {
		ret = typesystem.Unit
	}
	return typesystem.TFunc{Params: params, Return: ret}
}

// Pattern is the left side of a let binding.
type Pattern interface {
	Node
	patternNode()
}

// IdentifierPattern binds a single name.
type IdentifierPattern struct {
	Token   token.Token
	Name    *Identifier
	Mutable bool
}

func (ip *IdentifierPattern) Accept(v Visitor)     { v.VisitIdentifierPattern(ip) }
func (ip *IdentifierPattern) patternNode()         {}
func (ip *IdentifierPattern) TokenLiteral() string { return ip.Token.Lexeme }
func (ip *IdentifierPattern) GetToken() token.Token {
	if ip == nil {
		return token.Token{}
	}
	return ip.Token
}

// TuplePattern destructures a tuple: let (a, mut b) = pair
type TuplePattern struct {
	Token    token.Token // The '(' token
	Elements []Pattern
}

func (tp *TuplePattern) Accept(v Visitor)     { v.VisitTuplePattern(tp) }
func (tp *TuplePattern) patternNode()         {}
func (tp *TuplePattern) TokenLiteral() string { return tp.Token.Lexeme }
func (tp *TuplePattern) GetToken() token.Token {
	if tp == nil {
		return token.Token{}
	}
	return tp.Token
}

// LetStatement introduces bindings.
// let x = 1; let mut y: Field = 2; let (s, e) = s.pop_back();
type LetStatement struct {
	Token   token.Token // The 'let' token
	Pattern Pattern
	Type    typesystem.Type // Optional annotation
	Value   Expression
}

func (ls *LetStatement) Accept(v Visitor)     { v.VisitLetStatement(ls) }
func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Lexeme }
func (ls *LetStatement) GetToken() token.Token {
	if ls == nil {
		return token.Token{}
	}
	return ls.Token
}

// AssignStatement writes through an lvalue.
// x = v; *r = v; s.f[0] = v
type AssignStatement struct {
	Token  token.Token // The '=' token
	Target Expression
	Value  Expression
}

func (as *AssignStatement) Accept(v Visitor)     { v.VisitAssignStatement(as) }
func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Lexeme }
func (as *AssignStatement) GetToken() token.Token {
	if as == nil {
		return token.Token{}
	}
	return as.Token
}

// AssertStatement constrains a boolean condition to hold.
type AssertStatement struct {
	Token     token.Token // The 'assert' token
	Condition Expression
	Message   string
}

func (as *AssertStatement) Accept(v Visitor)     { v.VisitAssertStatement(as) }
func (as *AssertStatement) statementNode()       {}
func (as *AssertStatement) TokenLiteral() string { return as.Token.Lexeme }
func (as *AssertStatement) GetToken() token.Token {
	if as == nil {
		return token.Token{}
	}
	return as.Token
}

// ForStatement is a counted loop over a half-open range.
// for i in start..end { body }
type ForStatement struct {
	Token token.Token // The 'for' token
	Index *Identifier
	Start Expression
	End   Expression
	Body  *BlockStatement
}

func (fs *ForStatement) Accept(v Visitor)     { v.VisitForStatement(fs) }
func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForStatement) GetToken() token.Token {
	if fs == nil {
		return token.Token{}
	}
	return fs.Token
}

// ExpressionStatement is a statement that consists of a single expression.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) Accept(v Visitor)     { v.VisitExpressionStatement(es) }
func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}

// BlockStatement is a braced sequence of statements with an optional
// trailing expression that gives the block its value.
type BlockStatement struct {
	Token      token.Token // {
	Statements []Statement
	Result     Expression
}

func (bs *BlockStatement) Accept(v Visitor)     { v.VisitBlockStatement(bs) }
func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) expressionNode()      {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) GetToken() token.Token {
	if bs == nil {
		return token.Token{}
	}
	return bs.Token
}
