package ast

import (
	"fmt"
	"io"
	"strconv"
)

// Printer renders an indented structural dump of the AST, used to
// satisfy the compiler's --dump-ast flag (spec §6).
type Printer struct {
	w      io.Writer
	indent int
}

// Print writes an indented dump of root to w.
func Print(w io.Writer, root *Program) {
	p := &Printer{w: w}
	p.printProgram(root)
}

func (p *Printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s%s\n", indentStr(p.indent), fmt.Sprintf(format, args...))
}

func indentStr(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "    "
	}
	return s
}

func (p *Printer) printProgram(n *Program) {
	p.line("Program([")
	p.indent++
	for _, decl := range n.Declarations {
		p.printDecl(decl)
	}
	p.indent--
	p.line("])")
}

func (p *Printer) printDecl(d Declaration) {
	switch n := d.(type) {
	case *FuncDecl:
		p.printFuncDecl(n)
	case *Namespace:
		p.printNamespace(n)
	case *VarDecl:
		p.printVarDecl(n)
	default:
		p.line("<unknown declaration>")
	}
}

func (p *Printer) printNamespace(n *Namespace) {
	p.line("Namespace(name=%q, body=[", n.Name)
	p.indent++
	for _, fn := range n.Body {
		p.printFuncDecl(fn)
	}
	p.indent--
	p.line("]),")
}

func (p *Printer) printFuncDecl(n *FuncDecl) {
	p.line("FunctionDecl(")
	p.indent++
	p.line("name=%q,", n.Name)
	p.line("params=[")
	p.indent++
	for _, param := range n.Params {
		p.line("Parameter(type=%q, name=%q),", param.ParamType, param.Name)
	}
	p.indent--
	p.line("],")
	p.line("return_type=%q,", n.ReturnType)
	p.line("body=[")
	p.indent++
	for _, stmt := range n.Body {
		p.printStmt(stmt)
	}
	p.indent--
	p.line("]")
	p.indent--
	p.line("),")
}

func (p *Printer) printVarDecl(n *VarDecl) {
	if n.Value != nil {
		p.line("VarDecl(type=%q, name=%q, value=[", n.VarType, n.Name)
		p.indent++
		p.printExpr(n.Value)
		p.indent--
		p.line("]),")
	} else {
		p.line("VarDecl(type=%q, name=%q, value=None),", n.VarType, n.Name)
	}
}

func (p *Printer) printStmt(s Statement) {
	switch n := s.(type) {
	case *VarDecl:
		p.printVarDecl(n)
	case *Assignment:
		p.line("Assignment(")
		p.indent++
		p.printExpr(n.LValue)
		p.printExpr(n.RValue)
		p.indent--
		p.line("),")
	case *Call:
		p.printCall(n)
	case *Asm:
		p.line("Asm(code=%s),", strconv.Quote(n.Code))
	case *Break:
		p.line("Break(),")
	case *Continue:
		p.line("Continue(),")
	case *Return:
		if n.Value != nil {
			p.line("Return([")
			p.indent++
			p.printExpr(n.Value)
			p.indent--
			p.line("]),")
		} else {
			p.line("Return(None),")
		}
	case *If:
		p.line("If(condition=[")
		p.indent++
		p.printExpr(n.Condition)
		p.indent--
		p.line("], then=[")
		p.indent++
		for _, stmt := range n.Then {
			p.printStmt(stmt)
		}
		p.indent--
		if n.Else != nil {
			p.line("], else=[")
			p.indent++
			for _, stmt := range n.Else {
				p.printStmt(stmt)
			}
			p.indent--
		}
		p.line("]),")
	case *While:
		p.line("While(condition=[")
		p.indent++
		p.printExpr(n.Condition)
		p.indent--
		p.line("], body=[")
		p.indent++
		for _, stmt := range n.Body {
			p.printStmt(stmt)
		}
		p.indent--
		p.line("]),")
	case *Switch:
		p.line("Switch(expr=[")
		p.indent++
		p.printExpr(n.Expr)
		p.indent--
		p.line("], cases=[")
		p.indent++
		for _, c := range n.Cases {
			p.line("Case(value=[")
			p.indent++
			p.printExpr(c.Value)
			p.indent--
			p.line("], body=[")
			p.indent++
			for _, stmt := range c.Body {
				p.printStmt(stmt)
			}
			p.indent--
			p.line("]),")
		}
		p.indent--
		if n.Default != nil {
			p.line("], default=[")
			p.indent++
			for _, stmt := range n.Default {
				p.printStmt(stmt)
			}
			p.indent--
		}
		p.line("]),")
	default:
		p.line("<unknown statement>")
	}
}

func (p *Printer) printCall(n *Call) {
	p.line("Call(name=%q, namespace=%q, args=[", n.Name, n.Namespace)
	p.indent++
	for _, arg := range n.Args {
		p.printExpr(arg)
	}
	p.indent--
	p.line("]),")
}

func (p *Printer) printExpr(e Expression) {
	switch n := e.(type) {
	case *IntLiteral:
		p.line("IntLiteral(value=%d),", n.Value)
	case *CharLiteral:
		p.line("CharLiteral(value=%d),", n.Value)
	case *StringLiteral:
		p.line("StringLiteral(value=%s),", strconv.Quote(n.Value))
	case *VarAccess:
		p.line("VarAccess(name=%q),", n.Name)
	case *BinaryOp:
		p.line("BinaryOp(op=%s, left=[", n.Op.Lexeme)
		p.indent++
		p.printExpr(n.Left)
		p.indent--
		p.line("], right=[")
		p.indent++
		p.printExpr(n.Right)
		p.indent--
		p.line("]),")
	case *UnaryOp:
		p.line("UnaryOp(op=%s, operand=[", n.Op.Lexeme)
		p.indent++
		p.printExpr(n.Operand)
		p.indent--
		p.line("]),")
	case *TypeCast:
		p.line("TypeCast(target=%q, expr=[", n.TargetType)
		p.indent++
		p.printExpr(n.Expr)
		p.indent--
		p.line("]),")
	case *Call:
		p.printCall(n)
	default:
		p.line("<unknown expression>")
	}
}
