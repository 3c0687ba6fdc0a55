// Package ast defines the Box abstract syntax tree. Every expression
// node carries a VarType field, set to "" at construction and filled in
// by the semantic analyzer (spec §3).
package ast

import "github.com/arti-max/boxlang4/internal/token"

// Node is the common interface implemented by every AST node.
type Node interface {
	// Pos returns a representative token for diagnostic positioning.
	Pos() token.Token
}

// Expression is any node that produces a value.
type Expression interface {
	Node
	expressionNode()
	Type() string
	SetType(string)
}

// Statement is any node that can appear in a function body.
type Statement interface {
	Node
	statementNode()
}

// Declaration is any top-level or namespace-level declaration.
type Declaration interface {
	Node
	declarationNode()
}

// exprBase implements the shared Expression bookkeeping.
type exprBase struct {
	VarType string
}

func (e *exprBase) Type() string     { return e.VarType }
func (e *exprBase) SetType(t string) { e.VarType = t }
func (*exprBase) expressionNode()    {}

// ---- Expressions ----

type IntLiteral struct {
	exprBase
	Value int
	Token token.Token
}

func (n *IntLiteral) Pos() token.Token { return n.Token }

type CharLiteral struct {
	exprBase
	Value int // decoded code point, 0..255
	Token token.Token
}

func (n *CharLiteral) Pos() token.Token { return n.Token }

type StringLiteral struct {
	exprBase
	Value string
	Token token.Token
}

func (n *StringLiteral) Pos() token.Token { return n.Token }

type VarAccess struct {
	exprBase
	Name  string
	Token token.Token
}

func (n *VarAccess) Pos() token.Token { return n.Token }

type BinaryOp struct {
	exprBase
	Left  Expression
	Op    token.Token
	Right Expression
}

func (n *BinaryOp) Pos() token.Token { return n.Op }

type UnaryOp struct {
	exprBase
	Op      token.Token
	Operand Expression
}

func (n *UnaryOp) Pos() token.Token { return n.Op }

type TypeCast struct {
	exprBase
	TargetType string
	Expr       Expression
	Token      token.Token
}

func (n *TypeCast) Pos() token.Token { return n.Token }

// Call is both an Expression (used inline) and a Statement (used as a
// bare statement, per spec §3 — its result is discarded when non-void).
type Call struct {
	exprBase
	Namespace string
	Name      string
	Args      []Expression
	NameToken token.Token
}

func (n *Call) Pos() token.Token   { return n.NameToken }
func (*Call) statementNode()       {}

// ---- Statements ----

type VarDecl struct {
	VarType   string
	Name      string
	Value     Expression // nil if no initializer
	NameToken token.Token
}

func (n *VarDecl) Pos() token.Token { return n.NameToken }
func (*VarDecl) statementNode()     {}
func (*VarDecl) declarationNode()   {}

type Assignment struct {
	Target token.Token // positioning token (lvalue start)
	LValue Expression  // *VarAccess or *UnaryOp (dereference)
	RValue Expression
}

func (n *Assignment) Pos() token.Token { return n.Target }
func (*Assignment) statementNode()     {}

type Asm struct {
	Code  string
	Token token.Token
}

func (n *Asm) Pos() token.Token { return n.Token }
func (*Asm) statementNode()     {}

type Return struct {
	Value Expression // nil for a bare `ret;`
	Token token.Token
}

func (n *Return) Pos() token.Token { return n.Token }
func (*Return) statementNode()     {}

type If struct {
	Condition  Expression
	Then       []Statement
	Else       []Statement // nil if no else branch
	Token      token.Token
}

func (n *If) Pos() token.Token { return n.Token }
func (*If) statementNode()     {}

type While struct {
	Condition Expression
	Body      []Statement
	Token     token.Token
}

func (n *While) Pos() token.Token { return n.Token }
func (*While) statementNode()     {}

type Case struct {
	Value Expression
	Body  []Statement
	Token token.Token
}

type Switch struct {
	Expr    Expression
	Cases   []*Case
	Default []Statement // nil if no default
	Token   token.Token
}

func (n *Switch) Pos() token.Token { return n.Token }
func (*Switch) statementNode()     {}

// Break and Continue are parsed but rejected by the semantic analyzer
// with a clear diagnostic rather than silently mis-compiled (see
// DESIGN.md) — spec §4.7 describes no loop-exit label scheme for them.
type Break struct {
	Token token.Token
}

func (n *Break) Pos() token.Token { return n.Token }
func (*Break) statementNode()     {}

type Continue struct {
	Token token.Token
}

func (n *Continue) Pos() token.Token { return n.Token }
func (*Continue) statementNode()     {}

// ---- Declarations ----

type Parameter struct {
	ParamType string
	Name      string
}

type FuncDecl struct {
	Name       string
	Params     []Parameter
	ReturnType string
	Body       []Statement
	Token      token.Token
}

func (n *FuncDecl) Pos() token.Token { return n.Token }
func (*FuncDecl) declarationNode()   {}

type Namespace struct {
	Name  string
	Body  []*FuncDecl
	Token token.Token
}

func (n *Namespace) Pos() token.Token { return n.Token }
func (*Namespace) declarationNode()   {}

// Program is the AST root: an ordered sequence of declarations.
type Program struct {
	Declarations []Declaration
}

func (n *Program) Pos() token.Token { return token.Token{} }
