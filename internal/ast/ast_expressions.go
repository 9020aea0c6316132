package ast

import (
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// Identifier refers to a local binding or a top-level function.
type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) Accept(v Visitor)     { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

// IntegerLiteral is a numeric literal with its resolved type (Field or an integer).
type IntegerLiteral struct {
	Token token.Token
	Value int64
	Type  typesystem.Type
}

func (il *IntegerLiteral) Accept(v Visitor)     { v.VisitIntegerLiteral(il) }
func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Lexeme }
func (il *IntegerLiteral) GetToken() token.Token {
	if il == nil {
		return token.Token{}
	}
	return il.Token
}

// BooleanLiteral represents boolean literals true/false.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) Accept(v Visitor)     { v.VisitBooleanLiteral(b) }
func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Lexeme }
func (b *BooleanLiteral) GetToken() token.Token {
	if b == nil {
		return token.Token{}
	}
	return b.Token
}

// ArrayLiteral is [a, b, c] or the repeat form [x; n].
// Slice marks a runtime-length slice literal instead of a fixed array.
// ElemType is required for empty literals and ignored otherwise.
type ArrayLiteral struct {
	Token    token.Token // The '[' token
	Elements []Expression
	Repeat   Expression
	Count    int
	Slice    bool
	ElemType typesystem.Type
}

func (al *ArrayLiteral) Accept(v Visitor)     { v.VisitArrayLiteral(al) }
func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Lexeme }
func (al *ArrayLiteral) GetToken() token.Token {
	if al == nil {
		return token.Token{}
	}
	return al.Token
}

// FieldValue is one `name: value` entry of a struct literal.
type FieldValue struct {
	Name  *Identifier
	Value Expression
}

// StructLiteral instantiates a declared struct: S { y: 1 }
type StructLiteral struct {
	Token  token.Token // The struct name token
	Name   string
	Fields []*FieldValue
}

func (sl *StructLiteral) Accept(v Visitor)     { v.VisitStructLiteral(sl) }
func (sl *StructLiteral) expressionNode()      {}
func (sl *StructLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *StructLiteral) GetToken() token.Token {
	if sl == nil {
		return token.Token{}
	}
	return sl.Token
}

// TupleLiteral represents a tuple, e.g. (1, true)
type TupleLiteral struct {
	Token    token.Token // The '(' token
	Elements []Expression
}

func (tl *TupleLiteral) Accept(v Visitor)     { v.VisitTupleLiteral(tl) }
func (tl *TupleLiteral) expressionNode()      {}
func (tl *TupleLiteral) TokenLiteral() string { return tl.Token.Lexeme }
func (tl *TupleLiteral) GetToken() token.Token {
	if tl == nil {
		return token.Token{}
	}
	return tl.Token
}

// MemberExpression represents field access, e.g. c.bar
// References on the left are dereferenced automatically.
type MemberExpression struct {
	Token  token.Token // The '.' token
	Left   Expression
	Member *Identifier
}

func (me *MemberExpression) Accept(v Visitor)     { v.VisitMemberExpression(me) }
func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Lexeme }
func (me *MemberExpression) GetToken() token.Token {
	if me == nil {
		return token.Token{}
	}
	return me.Token
}

// IndexExpression represents indexing, e.g. arr[i]
type IndexExpression struct {
	Token token.Token // The '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) Accept(v Visitor)     { v.VisitIndexExpression(ie) }
func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token {
	if ie == nil {
		return token.Token{}
	}
	return ie.Token
}

// TupleIndexExpression reads a tuple element, e.g. pair.0
type TupleIndexExpression struct {
	Token token.Token // The '.' token
	Tuple Expression
	Index int
}

func (te *TupleIndexExpression) Accept(v Visitor)     { v.VisitTupleIndexExpression(te) }
func (te *TupleIndexExpression) expressionNode()      {}
func (te *TupleIndexExpression) TokenLiteral() string { return te.Token.Lexeme }
func (te *TupleIndexExpression) GetToken() token.Token {
	if te == nil {
		return token.Token{}
	}
	return te.Token
}

// RefExpression takes a mutable reference: &mut expr
type RefExpression struct {
	Token token.Token // The '&' token
	Value Expression
}

func (re *RefExpression) Accept(v Visitor)     { v.VisitRefExpression(re) }
func (re *RefExpression) expressionNode()      {}
func (re *RefExpression) TokenLiteral() string { return re.Token.Lexeme }
func (re *RefExpression) GetToken() token.Token {
	if re == nil {
		return token.Token{}
	}
	return re.Token
}

// DerefExpression reads through one reference level: *expr
type DerefExpression struct {
	Token token.Token // The '*' token
	Value Expression
}

func (de *DerefExpression) Accept(v Visitor)     { v.VisitDerefExpression(de) }
func (de *DerefExpression) expressionNode()      {}
func (de *DerefExpression) TokenLiteral() string { return de.Token.Lexeme }
func (de *DerefExpression) GetToken() token.Token {
	if de == nil {
		return token.Token{}
	}
	return de.Token
}

// PrefixExpression is a unary operator: -x or !x
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) Accept(v Visitor)     { v.VisitPrefixExpression(pe) }
func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token {
	if pe == nil {
		return token.Token{}
	}
	return pe.Token
}

// InfixExpression is a binary operator: + - * / % == != < <= > >= & | ^ && ||
type InfixExpression struct {
	Token    token.Token // The operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) Accept(v Visitor)     { v.VisitInfixExpression(ie) }
func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token {
	if ie == nil {
		return token.Token{}
	}
	return ie.Token
}

// CastExpression converts a numeric or boolean value: x as u32
type CastExpression struct {
	Token token.Token // The 'as' token
	Value Expression
	Type  typesystem.Type
}

func (ce *CastExpression) Accept(v Visitor)     { v.VisitCastExpression(ce) }
func (ce *CastExpression) expressionNode()      {}
func (ce *CastExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CastExpression) GetToken() token.Token {
	if ce == nil {
		return token.Token{}
	}
	return ce.Token
}

// IfExpression is if cond { a } else { b }. Alternative is nil, a
// *BlockStatement or another *IfExpression.
type IfExpression struct {
	Token       token.Token // The 'if' token
	Condition   Expression
	Consequence *BlockStatement
	Alternative Expression
}

func (ie *IfExpression) Accept(v Visitor)     { v.VisitIfExpression(ie) }
func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IfExpression) GetToken() token.Token {
	if ie == nil {
		return token.Token{}
	}
	return ie.Token
}

// CallExpression calls a function value. When Function is an identifier
// that names a top-level function and no local shadows it, the call is direct.
type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) Accept(v Visitor)     { v.VisitCallExpression(ce) }
func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token {
	if ce == nil {
		return token.Token{}
	}
	return ce.Token
}

// MethodCallExpression is receiver.method(args) with the target resolved
// by the front end to a qualified function name (Type::method).
type MethodCallExpression struct {
	Token     token.Token // The '.' token
	Receiver  Expression
	Method    string
	Arguments []Expression
}

func (mc *MethodCallExpression) Accept(v Visitor)     { v.VisitMethodCallExpression(mc) }
func (mc *MethodCallExpression) expressionNode()      {}
func (mc *MethodCallExpression) TokenLiteral() string { return mc.Token.Lexeme }
func (mc *MethodCallExpression) GetToken() token.Token {
	if mc == nil {
		return token.Token{}
	}
	return mc.Token
}

// BuiltinCallExpression is a call resolved to a slice/array builtin.
// receiver.push_back(x) arrives as Builtin=PushBack, Receiver=receiver, Arguments=[x].
type BuiltinCallExpression struct {
	Token     token.Token
	Builtin   Builtin
	Receiver  Expression
	Arguments []Expression
}

func (bc *BuiltinCallExpression) Accept(v Visitor)     { v.VisitBuiltinCallExpression(bc) }
func (bc *BuiltinCallExpression) expressionNode()      {}
func (bc *BuiltinCallExpression) TokenLiteral() string { return bc.Token.Lexeme }
func (bc *BuiltinCallExpression) GetToken() token.Token {
	if bc == nil {
		return token.Token{}
	}
	return bc.Token
}

// FunctionLiteral is a lambda: |x: Field| x + z
// ReturnType may be nil; the body's type is used then.
type FunctionLiteral struct {
	Token      token.Token // The '|' token
	Parameters []*Parameter
	ReturnType typesystem.Type
	Body       Expression
}

func (fl *FunctionLiteral) Accept(v Visitor)     { v.VisitFunctionLiteral(fl) }
func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FunctionLiteral) GetToken() token.Token {
	if fl == nil {
		return token.Token{}
	}
	return fl.Token
}
