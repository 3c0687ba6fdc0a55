// Package optimizer implements the AST-level optimization passes of
// spec §4.6 (levels 0-3).
package optimizer

import (
	"fmt"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/token"
)

// DivisionByZeroError is raised when constant folding would divide by
// a literal zero (spec §4.6: a hard error, not a diagnostic).
type DivisionByZeroError struct {
	Token token.Token
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("optimizer error: division by zero at %s:%d:%d", e.Token.File, e.Token.Line, e.Token.Column)
}

// Optimizer rewrites a Program in place (returning the same or a
// replacement root) according to its configured level:
//
//	0: identity, no rewrite.
//	1: constant folding of integer binary/unary expressions.
//	2: level 1 plus algebraic simplification (x+0, x*1, x*0, ...).
//	3: level 2 plus constant propagation and dead-variable elimination.
type Optimizer struct {
	level     int
	constants map[string]int
	usages    map[string]int
}

// New creates an Optimizer running at the given level (0-3).
func New(level int) *Optimizer {
	return &Optimizer{level: level, constants: make(map[string]int)}
}

// Optimize rewrites prog and returns the resulting root. It returns a
// *DivisionByZeroError if constant folding encounters a literal
// division by zero.
func (o *Optimizer) Optimize(prog *ast.Program) (result *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if dz, ok := r.(*DivisionByZeroError); ok {
				err = dz
				return
			}
			panic(r)
		}
	}()

	if o.level >= 3 {
		o.usages = countUsages(prog)
	}
	var decls []ast.Declaration
	for _, decl := range prog.Declarations {
		if d := o.visitDeclaration(decl); d != nil {
			decls = append(decls, d)
		}
	}
	prog.Declarations = decls
	return prog, nil
}

func countUsages(prog *ast.Program) map[string]int {
	counts := make(map[string]int)
	var walkExpr func(ast.Expression)
	var walkStmt func(ast.Statement)

	walkExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case nil:
			return
		case *ast.VarAccess:
			counts[n.Name]++
		case *ast.BinaryOp:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryOp:
			walkExpr(n.Operand)
		case *ast.TypeCast:
			walkExpr(n.Expr)
		case *ast.Call:
			for _, arg := range n.Args {
				walkExpr(arg)
			}
		}
	}

	walkStmt = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.VarDecl:
			walkExpr(n.Value)
		case *ast.Assignment:
			walkExpr(n.LValue)
			walkExpr(n.RValue)
		case *ast.Call:
			for _, arg := range n.Args {
				walkExpr(arg)
			}
		case *ast.Return:
			walkExpr(n.Value)
		case *ast.If:
			walkExpr(n.Condition)
			for _, stmt := range n.Then {
				walkStmt(stmt)
			}
			for _, stmt := range n.Else {
				walkStmt(stmt)
			}
		case *ast.While:
			walkExpr(n.Condition)
			for _, stmt := range n.Body {
				walkStmt(stmt)
			}
		case *ast.Switch:
			walkExpr(n.Expr)
			for _, c := range n.Cases {
				walkExpr(c.Value)
				for _, stmt := range c.Body {
					walkStmt(stmt)
				}
			}
			for _, stmt := range n.Default {
				walkStmt(stmt)
			}
		}
	}

	for _, decl := range prog.Declarations {
		switch n := decl.(type) {
		case *ast.FuncDecl:
			for _, stmt := range n.Body {
				walkStmt(stmt)
			}
		case *ast.Namespace:
			for _, fn := range n.Body {
				for _, stmt := range fn.Body {
					walkStmt(stmt)
				}
			}
		}
	}
	return counts
}

func (o *Optimizer) visitDeclaration(d ast.Declaration) ast.Declaration {
	switch n := d.(type) {
	case *ast.FuncDecl:
		n.Body = o.visitStatements(n.Body)
		return n
	case *ast.Namespace:
		for _, fn := range n.Body {
			fn.Body = o.visitStatements(fn.Body)
		}
		return n
	case *ast.VarDecl:
		if o.visitVarDecl(n) == nil {
			return nil
		}
		return n
	}
	return d
}

func (o *Optimizer) visitStatements(stmts []ast.Statement) []ast.Statement {
	var out []ast.Statement
	for _, stmt := range stmts {
		if s := o.visitStatement(stmt); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (o *Optimizer) visitStatement(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case *ast.VarDecl:
		return o.visitVarDecl(n)
	case *ast.Assignment:
		n.RValue = o.visitExpr(n.RValue)
		return n
	case *ast.Call:
		for i, arg := range n.Args {
			n.Args[i] = o.visitExpr(arg)
		}
		return n
	case *ast.Return:
		if n.Value != nil {
			n.Value = o.visitExpr(n.Value)
		}
		return n
	case *ast.If:
		n.Condition = o.visitExpr(n.Condition)
		n.Then = o.visitStatements(n.Then)
		n.Else = o.visitStatements(n.Else)
		return n
	case *ast.While:
		n.Condition = o.visitExpr(n.Condition)
		n.Body = o.visitStatements(n.Body)
		return n
	case *ast.Switch:
		n.Expr = o.visitExpr(n.Expr)
		for _, c := range n.Cases {
			c.Value = o.visitExpr(c.Value)
			c.Body = o.visitStatements(c.Body)
		}
		n.Default = o.visitStatements(n.Default)
		return n
	default:
		return s
	}
}

func (o *Optimizer) visitVarDecl(n *ast.VarDecl) ast.Statement {
	if n.Value != nil {
		n.Value = o.visitExpr(n.Value)
	}

	if o.level >= 3 && o.usages[n.Name] == 0 {
		return nil
	}

	if o.level >= 3 {
		if lit, ok := n.Value.(*ast.IntLiteral); ok {
			o.constants[n.Name] = lit.Value
		}
	}

	return n
}

func (o *Optimizer) visitExpr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case *ast.BinaryOp:
		return o.visitBinaryOp(n)
	case *ast.UnaryOp:
		return o.visitUnaryOp(n)
	case *ast.TypeCast:
		n.Expr = o.visitExpr(n.Expr)
		return n
	case *ast.Call:
		for i, arg := range n.Args {
			n.Args[i] = o.visitExpr(arg)
		}
		return n
	case *ast.VarAccess:
		if o.level >= 3 {
			if val, ok := o.constants[n.Name]; ok {
				lit := &ast.IntLiteral{Value: val, Token: n.Token}
				lit.SetType(n.Type())
				return lit
			}
		}
		return n
	default:
		return e
	}
}

func intLit(n ast.Expression) (*ast.IntLiteral, bool) {
	lit, ok := n.(*ast.IntLiteral)
	return lit, ok
}

func (o *Optimizer) visitBinaryOp(n *ast.BinaryOp) ast.Expression {
	n.Left = o.visitExpr(n.Left)
	n.Right = o.visitExpr(n.Right)

	if o.level >= 1 {
		if left, ok := intLit(n.Left); ok {
			if right, ok := intLit(n.Right); ok {
				folded, foldable := foldConstant(n.Op, left.Value, right.Value)
				if foldable {
					lit := &ast.IntLiteral{Value: folded, Token: n.Op}
					lit.SetType(n.Type())
					return lit
				}
			}
		}
	}

	if o.level >= 2 {
		if simplified := simplifyAlgebraic(n); simplified != nil {
			return simplified
		}
	}

	return n
}

// foldConstant evaluates a literal binary integer expression, panicking
// with *DivisionByZeroError on division by a literal zero (spec §4.6).
func foldConstant(op token.Token, left, right int) (int, bool) {
	switch op.Type {
	case token.PLUS:
		return left + right, true
	case token.MINUS:
		return left - right, true
	case token.STAR:
		return left * right, true
	case token.SLASH:
		if right == 0 {
			panic(&DivisionByZeroError{Token: op})
		}
		return left / right, true
	default:
		return 0, false
	}
}

// simplifyAlgebraic applies the level-2 identities: x+0, 0+x, x-0,
// x*1, 1*x, x*0, 0*x, x/1.
func simplifyAlgebraic(n *ast.BinaryOp) ast.Expression {
	leftLit, leftIsLit := intLit(n.Left)
	rightLit, rightIsLit := intLit(n.Right)

	switch n.Op.Type {
	case token.PLUS:
		if leftIsLit && leftLit.Value == 0 {
			return n.Right
		}
		if rightIsLit && rightLit.Value == 0 {
			return n.Left
		}
	case token.MINUS:
		if rightIsLit && rightLit.Value == 0 {
			return n.Left
		}
	case token.STAR:
		if leftIsLit && leftLit.Value == 1 {
			return n.Right
		}
		if rightIsLit && rightLit.Value == 1 {
			return n.Left
		}
		if (leftIsLit && leftLit.Value == 0) || (rightIsLit && rightLit.Value == 0) {
			zero := &ast.IntLiteral{Value: 0, Token: n.Op}
			zero.SetType(n.Type())
			return zero
		}
	case token.SLASH:
		if rightIsLit && rightLit.Value == 1 {
			return n.Left
		}
	}
	return nil
}

func (o *Optimizer) visitUnaryOp(n *ast.UnaryOp) ast.Expression {
	n.Operand = o.visitExpr(n.Operand)

	if o.level >= 1 {
		if lit, ok := intLit(n.Operand); ok {
			switch n.Op.Type {
			case token.MINUS:
				neg := &ast.IntLiteral{Value: -lit.Value, Token: n.Op}
				neg.SetType(n.Type())
				return neg
			case token.PLUS:
				return lit
			}
		}
	}

	return n
}
