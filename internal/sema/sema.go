// Package sema implements the single-pass semantic analyzer of spec §4.5.
package sema

import (
	"fmt"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/diagnostics"
	"github.com/arti-max/boxlang4/internal/token"
	"github.com/arti-max/boxlang4/internal/types"
)

// abort unwinds to Analyze() on the first semantic error.
type abort struct{}

type symbol struct {
	varType string
}

type scope map[string]symbol

// Function identifiers occupy the enclosing namespace or program scope
// (spec §4.5), which is separate from the variable scope stack: a bare
// call resolves against the caller's own namespace (or globally, from
// top level); a qualified `ns::name` call resolves directly into that
// namespace's function table. This mirrors the name-mangling prefix
// rule the code generator applies to calls (spec §4.7).
type Analyzer struct {
	reporter           *diagnostics.Reporter
	scopes             []scope
	current            *ast.FuncDecl
	currentNamespace   string
	globalFunctions    map[string]*ast.FuncDecl
	namespaceFunctions map[string]map[string]*ast.FuncDecl
}

// New creates an Analyzer reporting through r.
func New(r *diagnostics.Reporter) *Analyzer {
	return &Analyzer{
		reporter:           r,
		globalFunctions:    make(map[string]*ast.FuncDecl),
		namespaceFunctions: make(map[string]map[string]*ast.FuncDecl),
	}
}

// Analyze type-checks prog in place. A partially annotated tree may
// remain after an aborted pass.
func (a *Analyzer) Analyze(prog *ast.Program) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); ok {
				return
			}
			panic(r)
		}
	}()
	a.registerFunctions(prog)
	a.visitProgram(prog)
}

// registerFunctions builds the function tables before the main pass so
// that a call to a function declared later in the file still resolves.
func (a *Analyzer) registerFunctions(prog *ast.Program) {
	for _, decl := range prog.Declarations {
		switch n := decl.(type) {
		case *ast.FuncDecl:
			if _, exists := a.globalFunctions[n.Name]; exists {
				a.errorAt(n.Token, "Symbol '%s' already declared in this scope.", n.Name)
			}
			a.globalFunctions[n.Name] = n
		case *ast.Namespace:
			table := make(map[string]*ast.FuncDecl)
			for _, fn := range n.Body {
				if _, exists := table[fn.Name]; exists {
					a.errorAt(fn.Token, "Symbol '%s' already declared in this scope.", fn.Name)
				}
				table[fn.Name] = fn
			}
			a.namespaceFunctions[n.Name] = table
		}
	}
}

func (a *Analyzer) pushScope() { a.scopes = append(a.scopes, scope{}) }
func (a *Analyzer) popScope()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *Analyzer) declare(name string, sym symbol, tok token.Token) {
	top := a.scopes[len(a.scopes)-1]
	if _, exists := top[name]; exists {
		a.errorAt(tok, "Symbol '%s' already declared in this scope.", name)
	}
	top[name] = sym
}

func (a *Analyzer) lookup(name string) (symbol, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if sym, ok := a.scopes[i][name]; ok {
			return sym, true
		}
	}
	return symbol{}, false
}

func (a *Analyzer) errorAt(tok token.Token, format string, args ...interface{}) {
	a.reporter.Report(tok.File, tok.Line, tok.Column, fmt.Sprintf(format, args...), diagnostics.SemanticError, "")
	panic(abort{})
}

func (a *Analyzer) visitProgram(n *ast.Program) {
	a.pushScope()
	for _, decl := range n.Declarations {
		a.visitDeclaration(decl)
	}
	a.popScope()
}

func (a *Analyzer) visitDeclaration(d ast.Declaration) {
	switch n := d.(type) {
	case *ast.Namespace:
		a.visitNamespace(n)
	case *ast.FuncDecl:
		a.visitFuncDecl(n)
	case *ast.VarDecl:
		a.visitVarDecl(n)
	}
}

func (a *Analyzer) visitNamespace(n *ast.Namespace) {
	a.currentNamespace = n.Name
	a.pushScope()
	for _, fn := range n.Body {
		a.visitFuncDecl(fn)
	}
	a.popScope()
	a.currentNamespace = ""
}

func (a *Analyzer) visitFuncDecl(n *ast.FuncDecl) {
	a.current = n
	a.pushScope()
	for _, param := range n.Params {
		a.scopes[len(a.scopes)-1][param.Name] = symbol{varType: param.ParamType}
	}
	for _, stmt := range n.Body {
		a.visitStatement(stmt)
	}
	a.popScope()
	a.current = nil
}

func (a *Analyzer) visitVarDecl(n *ast.VarDecl) {
	if types.IsVoid(n.VarType) {
		a.errorAt(n.NameToken, "Variables cannot be of type 'void'. Use 'void*' for a generic pointer.")
	}
	if _, exists := a.lookup(n.Name); exists {
		a.errorAt(n.NameToken, "Variable '%s' already declared.", n.Name)
	}
	a.declare(n.Name, symbol{varType: n.VarType}, n.NameToken)

	if n.Value != nil {
		valueType := a.visitExpression(n.Value)
		a.checkAssignable(n.NameToken, n.VarType, valueType)
	}
}

func (a *Analyzer) visitStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDecl:
		a.visitVarDecl(n)
	case *ast.Assignment:
		a.visitAssignment(n)
	case *ast.Call:
		a.visitCall(n)
	case *ast.Asm:
		// Inline asm bodies are opaque to the analyzer (spec §4.7).
	case *ast.Return:
		a.visitReturn(n)
	case *ast.If:
		a.visitIf(n)
	case *ast.While:
		a.visitWhile(n)
	case *ast.Switch:
		a.visitSwitch(n)
	case *ast.Break:
		a.errorAt(n.Token, "'break' is not supported by this compiler's code generator.")
	case *ast.Continue:
		a.errorAt(n.Token, "'continue' is not supported by this compiler's code generator.")
	}
}

func (a *Analyzer) visitAssignment(n *ast.Assignment) {
	lvalueType := a.visitExpression(n.LValue)
	rvalueType := a.visitExpression(n.RValue)

	if types.IsVoid(rvalueType) {
		a.errorAt(n.Target, "Cannot assign a value from a void function.")
	}
	a.checkAssignable(n.Target, lvalueType, rvalueType)
}

// checkAssignable enforces the assignment rules of spec §3: any T* may
// widen to void*; void* narrows to T* only via an explicit TypeCast to
// that concrete T* (a TypeCast node's resolved type is its own target
// type, so a cast targeting void* itself must not be treated as having
// already narrowed the value — it is caught here the same as a bare
// void* variable).
func (a *Analyzer) checkAssignable(tok token.Token, lvalueType, rvalueType string) {
	if lvalueType == "void*" && types.IsPointer(rvalueType) {
		return
	}
	if types.IsPointer(lvalueType) && rvalueType == "void*" {
		a.errorAt(tok, "Cannot implicitly convert 'void*' to '%s'. An explicit cast is required.", lvalueType)
	}
	if lvalueType != rvalueType {
		a.errorAt(tok, "Type mismatch: cannot assign '%s' to '%s'.", rvalueType, lvalueType)
	}
}

func (a *Analyzer) visitCall(n *ast.Call) string {
	var fn *ast.FuncDecl
	var ok bool

	switch {
	case n.Namespace != "":
		table := a.namespaceFunctions[n.Namespace]
		fn, ok = table[n.Name]
	case a.currentNamespace != "":
		fn, ok = a.namespaceFunctions[a.currentNamespace][n.Name]
	default:
		fn, ok = a.globalFunctions[n.Name]
	}
	if !ok {
		a.errorAt(n.NameToken, "Call to undeclared function '%s'.", n.Name)
	}

	n.SetType(fn.ReturnType)

	if len(n.Args) != len(fn.Params) {
		a.errorAt(n.NameToken, "Function '%s' expects %d arguments, but %d were given.", n.Name, len(fn.Params), len(n.Args))
	}
	for i, argExpr := range n.Args {
		argType := a.visitExpression(argExpr)
		paramType := fn.Params[i].ParamType
		if argType != paramType {
			a.errorAt(n.NameToken, "Type mismatch for argument %d in call to '%s': expected '%s', got '%s'.", i+1, n.Name, paramType, argType)
		}
	}
	return fn.ReturnType
}

func (a *Analyzer) visitReturn(n *ast.Return) {
	if a.current == nil {
		a.errorAt(n.Token, "Return statement found outside of a function.")
	}
	declared := a.current.ReturnType

	if n.Value == nil {
		if declared != "void" {
			a.errorAt(n.Token, "Function declared to return '%s' but 'ret' has no value.", declared)
		}
		return
	}
	if declared == "void" {
		a.errorAt(n.Token, "Cannot return a value from a void function.")
	}
	returned := a.visitExpression(n.Value)
	if returned != declared {
		a.errorAt(n.Token, "Type mismatch: function should return '%s', but returns '%s'.", declared, returned)
	}
}

func (a *Analyzer) visitIf(n *ast.If) {
	condType := a.visitExpression(n.Condition)
	if !types.IsInteger(condType) && condType != "char" {
		a.errorAt(n.Token, "If condition must be of a numeric or char type.")
	}

	a.pushScope()
	for _, stmt := range n.Then {
		a.visitStatement(stmt)
	}
	a.popScope()

	if n.Else != nil {
		a.pushScope()
		for _, stmt := range n.Else {
			a.visitStatement(stmt)
		}
		a.popScope()
	}
}

func (a *Analyzer) visitWhile(n *ast.While) {
	condType := a.visitExpression(n.Condition)
	if !types.IsInteger(condType) && condType != "char" {
		a.errorAt(n.Token, "While condition must be of a numeric or char type.")
	}

	a.pushScope()
	for _, stmt := range n.Body {
		a.visitStatement(stmt)
	}
	a.popScope()
}

func (a *Analyzer) visitSwitch(n *ast.Switch) {
	exprType := a.visitExpression(n.Expr)
	if !types.IsInteger(exprType) && exprType != "char" {
		a.errorAt(n.Token, "Switch expression must be of an integer or char type.")
	}

	for _, c := range n.Cases {
		caseType := a.visitExpression(c.Value)
		if exprType != caseType {
			a.errorAt(c.Token, "Type mismatch between switch expression ('%s') and case value ('%s').", exprType, caseType)
		}
		a.pushScope()
		for _, stmt := range c.Body {
			a.visitStatement(stmt)
		}
		a.popScope()
	}

	if n.Default != nil {
		a.pushScope()
		for _, stmt := range n.Default {
			a.visitStatement(stmt)
		}
		a.popScope()
	}
}

// visitExpression type-checks e, sets its VarType, and returns it.
func (a *Analyzer) visitExpression(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		n.SetType("num24")
		return "num24"
	case *ast.CharLiteral:
		n.SetType("char")
		return "char"
	case *ast.StringLiteral:
		n.SetType("char*")
		return "char*"
	case *ast.VarAccess:
		sym, ok := a.lookup(n.Name)
		if !ok {
			a.errorAt(n.Token, "Use of undeclared variable '%s'.", n.Name)
		}
		n.SetType(sym.varType)
		return sym.varType
	case *ast.BinaryOp:
		return a.visitBinaryOp(n)
	case *ast.UnaryOp:
		return a.visitUnaryOp(n)
	case *ast.TypeCast:
		a.visitExpression(n.Expr)
		n.SetType(n.TargetType)
		return n.TargetType
	case *ast.Call:
		return a.visitCall(n)
	}
	return ""
}

func (a *Analyzer) visitBinaryOp(n *ast.BinaryOp) string {
	leftType := a.visitExpression(n.Left)
	rightType := a.visitExpression(n.Right)
	op := n.Op.Type

	isLeftPtr := types.IsPointer(leftType)
	isRightPtr := types.IsPointer(rightType)
	isLeftInt := types.IsInteger(leftType)
	isRightInt := types.IsInteger(rightType)

	switch op {
	case token.PLUS:
		if isLeftPtr && isRightInt {
			n.SetType(leftType)
			return leftType
		}
		if isLeftInt && isRightPtr {
			n.SetType(rightType)
			return rightType
		}
	case token.MINUS:
		if isLeftPtr && isRightInt {
			n.SetType(leftType)
			return leftType
		}
		if isLeftPtr && isRightPtr && leftType == rightType {
			n.SetType("num24")
			return "num24"
		}
	}

	if leftType != rightType {
		a.errorAt(n.Op, "Type mismatch for operator '%s': '%s' and '%s'.", n.Op.Lexeme, leftType, rightType)
	}

	switch op {
	case token.EQUAL_EQUAL, token.NOT_EQUAL, token.LESS_THAN, token.LESS_EQUAL,
		token.GREATER_THAN, token.GREATER_EQUAL, token.LOGICAL_AND, token.LOGICAL_OR:
		n.SetType("num24")
		return "num24"
	}

	n.SetType(leftType)
	return leftType
}

func (a *Analyzer) visitUnaryOp(n *ast.UnaryOp) string {
	operandType := a.visitExpression(n.Operand)

	var result string
	switch n.Op.Type {
	case token.AMPERSAND:
		result = types.PointerTo(operandType)
	case token.STAR:
		if operandType == "void*" {
			a.errorAt(n.Op, "Cannot dereference a pointer to 'void'. Cast it to a specific pointer type first.")
		}
		if !types.IsPointer(operandType) {
			a.errorAt(n.Op, "Cannot dereference non-pointer type '%s'.", operandType)
		}
		result = types.Pointee(operandType)
	default:
		result = operandType
	}

	n.SetType(result)
	return result
}
