// Package codegen emits textual target-VM assembly from an optimized,
// semantically analyzed AST (spec §4.7).
package codegen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/token"
	"github.com/arti-max/boxlang4/internal/types"
)

var asmPlaceholder = regexp.MustCompile(`\((\w+)\)`)

var registerPool = []string{"%ac", "%bs", "%cn", "%dc", "%dt", "%di"}

type localVar struct {
	varType string
	offset  int
}

// InternalError marks a codegen-phase failure such as inline asm naming a
// variable that is not a local or parameter of the current function, or
// the register pool running dry. The semantic analyzer does not look
// inside inline asm bodies, so the first can occur on an analyzed tree.
// It surfaces as a plain fatal message (spec §7), not a diagnostic.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return e.Message }

func internalErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// Generator emits assembly for a Program. Mirrors the original
// compiler's process-wide mutable state: a growing code buffer, a
// data-section line list, a string-literal counter, the active
// namespace-prefix stack, a per-function label counter, the locals map
// of the function currently being generated, and a small register pool
// used only by inline-asm placeholder substitution.
type Generator struct {
	code            strings.Builder
	dataSection     []string
	strCounter      int
	namespaceStack  []string
	labelCounter    int
	currentFuncName string
	localVars       map[string]localVar
	usedRegisters   map[string]bool
}

// New creates a Generator.
func New() *Generator {
	return &Generator{
		localVars:     make(map[string]localVar),
		usedRegisters: make(map[string]bool),
	}
}

// Generate emits assembly for prog and returns it. An *InternalError
// raised during generation is recovered here and returned as err; any
// other panic propagates.
func (g *Generator) Generate(prog *ast.Program) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InternalError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	g.emit("; Generated with BoxLang4 ")
	g.emit("; BoxLang4 created by arti ")
	g.emit("jmp func__start ")

	for _, decl := range prog.Declarations {
		g.visitDeclaration(decl)
	}

	if len(g.dataSection) > 0 {
		g.code.WriteString("\n;section data\n")
		g.code.WriteString(strings.Join(g.dataSection, "\n"))
	}

	return g.code.String(), nil
}

func (g *Generator) emit(line string) {
	g.code.WriteString(line)
	g.code.WriteString("\n")
}

func (g *Generator) emitf(format string, args ...interface{}) {
	fmt.Fprintf(&g.code, format, args...)
	g.code.WriteString("\n")
}

func (g *Generator) newLabel(prefix string) string {
	g.labelCounter++
	return fmt.Sprintf("_%s_%s_%d", prefix, g.currentFuncName, g.labelCounter)
}

func (g *Generator) namespacePrefix() string {
	if len(g.namespaceStack) == 0 {
		return ""
	}
	return strings.Join(g.namespaceStack, "_") + "_"
}

func (g *Generator) acquireRegister() string {
	for _, reg := range registerPool {
		if !g.usedRegisters[reg] {
			g.usedRegisters[reg] = true
			return reg
		}
	}
	panic(internalErrorf("all registers are busy"))
}

func (g *Generator) releaseRegister(reg string) {
	delete(g.usedRegisters, reg)
}

func (g *Generator) visitDeclaration(d ast.Declaration) {
	switch n := d.(type) {
	case *ast.FuncDecl:
		g.visitFuncDecl(n)
	case *ast.Namespace:
		g.visitNamespace(n)
	case *ast.VarDecl:
		g.visitGlobalVarDecl(n)
	}
}

func (g *Generator) visitNamespace(n *ast.Namespace) {
	g.namespaceStack = append(g.namespaceStack, n.Name)
	for _, fn := range n.Body {
		g.visitFuncDecl(fn)
	}
	g.namespaceStack = g.namespaceStack[:len(g.namespaceStack)-1]
}

func (g *Generator) visitGlobalVarDecl(n *ast.VarDecl) {
	name := g.namespacePrefix() + n.Name
	size := types.SizeOf(n.VarType)
	g.dataSection = append(g.dataSection, fmt.Sprintf("__var_%s: reserve %d bytes", name, size))
}

// collectLocals walks a function body (including nested if/while/switch
// blocks) assigning each VarDecl a negative %bp offset, mirroring the
// original VariableCollector pre-pass (spec §3).
func collectLocals(body []ast.Statement, locals map[string]localVar, offset *int) {
	var walk func(stmt ast.Statement)
	walk = func(stmt ast.Statement) {
		switch n := stmt.(type) {
		case *ast.VarDecl:
			*offset += types.SizeOf(n.VarType)
			locals[n.Name] = localVar{varType: n.VarType, offset: -*offset}
		case *ast.If:
			for _, s := range n.Then {
				walk(s)
			}
			for _, s := range n.Else {
				walk(s)
			}
		case *ast.While:
			for _, s := range n.Body {
				walk(s)
			}
		case *ast.Switch:
			for _, c := range n.Cases {
				for _, s := range c.Body {
					walk(s)
				}
			}
			for _, s := range n.Default {
				walk(s)
			}
		}
	}
	for _, stmt := range body {
		walk(stmt)
	}
}

func (g *Generator) visitFuncDecl(n *ast.FuncDecl) {
	name := g.namespacePrefix() + n.Name
	g.currentFuncName = name
	g.labelCounter = 0
	g.emitf("; Function %s ", name)
	g.emitf("func_%s: ", name)

	locals := make(map[string]localVar)
	argOffset := 6
	for _, param := range n.Params {
		locals[param.Name] = localVar{varType: param.ParamType, offset: argOffset}
		argOffset += 3
	}
	totalLocalSize := 0
	collectLocals(n.Body, locals, &totalLocalSize)
	g.localVars = locals

	g.emit("     psh %bp")
	g.emit("     mov %bp %sp")
	if totalLocalSize > 0 {
		g.emitf("    sub %%sp %d", totalLocalSize)
	}

	for _, stmt := range n.Body {
		g.visitStatement(stmt)
	}

	g.emit(".end:")
	g.emit("     mov %sp %bp")
	g.emit("     pop %bp")
	g.emit("     ret")

	g.currentFuncName = ""
}

func (g *Generator) visitStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDecl:
		g.visitLocalVarDecl(n)
	case *ast.Assignment:
		g.visitAssignment(n)
	case *ast.Call:
		g.visitCall(n)
	case *ast.Asm:
		g.visitAsm(n)
	case *ast.Return:
		g.visitReturn(n)
	case *ast.If:
		g.visitIf(n)
	case *ast.While:
		g.visitWhile(n)
	case *ast.Switch:
		g.visitSwitch(n)
	}
}

func (g *Generator) emitStoreToAddressInBs(varType string) {
	switch types.WidthOf(varType) {
	case types.WidthWord:
		g.emit("    sw %bs %ac")
	case types.WidthByte:
		g.emit("    sb %bs %ac")
	default:
		g.emit("    sh %bs %ac")
	}
}

func (g *Generator) emitLoadFromAddressInBs(varType string) {
	switch types.WidthOf(varType) {
	case types.WidthWord:
		g.emit("     lw %bs %ac")
	case types.WidthByte:
		g.emit("     lb %bs %ac")
	default:
		g.emit("     lh %bs %ac")
	}
}

// emitAddressOf moves the address of a named variable (local, param, or
// global) into reg.
func (g *Generator) emitAddressOf(reg, name string) {
	if local, ok := g.localVars[name]; ok {
		g.emitf("     mov %s %%bp", reg)
		if local.offset > 0 {
			g.emitf("     add %s %d", reg, local.offset)
		} else if local.offset < 0 {
			g.emitf("     sub %s %d", reg, -local.offset)
		}
		return
	}
	fullName := g.namespacePrefix() + name
	g.emitf("     mov %s __var_%s", reg, fullName)
}

func (g *Generator) visitLocalVarDecl(n *ast.VarDecl) {
	if n.Value == nil {
		return
	}
	g.visitExpr(n.Value)
	g.emit("     pop %ac")
	g.emitAddressOf("%bs", n.Name)
	g.emitStoreToAddressInBs(n.VarType)
}

func (g *Generator) visitAssignment(n *ast.Assignment) {
	switch lvalue := n.LValue.(type) {
	case *ast.VarAccess:
		g.visitExpr(n.RValue)
		g.emit("     pop %ac")
		g.emitAddressOf("%bs", lvalue.Name)
		g.emitStoreToAddressInBs(lvalue.Type())
	case *ast.UnaryOp:
		g.visitExpr(n.RValue)
		g.visitExpr(lvalue.Operand)
		g.emit("     pop %bs")
		g.emit("     pop %ac")
		pointedTo := types.Pointee(lvalue.Operand.Type())
		g.emitStoreToAddressInBs(pointedTo)
	default:
		panic(internalErrorf("invalid assignment target %T", n.LValue))
	}
}

func (g *Generator) visitCall(n *ast.Call) string {
	for i := len(n.Args) - 1; i >= 0; i-- {
		g.visitExpr(n.Args[i])
	}
	var prefix string
	if n.Namespace != "" {
		prefix = n.Namespace + "_"
	} else {
		prefix = g.namespacePrefix()
	}
	g.emitf("     jsr func_%s%s", prefix, n.Name)
	if len(n.Args) > 0 {
		g.emitf("     add %%sp %d", len(n.Args)*3)
	}
	if n.Type() != "void" {
		g.emit("    psh %ac")
	}
	return n.Type()
}

func (g *Generator) visitAsm(n *ast.Asm) {
	original := strings.TrimSpace(n.Code)
	matches := asmPlaceholder.FindAllStringSubmatch(original, -1)

	if len(matches) == 0 {
		g.emitf("     %s", original)
		return
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}

	var tempRegs []string
	finalAsm := original

	for _, varName := range names {
		valReg := g.acquireRegister()
		tempRegs = append(tempRegs, valReg)
		g.emitf("    psh %s", valReg)
		addrReg := g.acquireRegister()
		g.emitf("    psh %s", addrReg)

		local, ok := g.localVars[varName]
		if !ok {
			panic(internalErrorf("unknown variable in inline asm"))
		}
		g.emitAddressOf(addrReg, varName)
		g.emitLoadFromAddressRegister(addrReg, valReg, local.varType)

		g.emitf("    pop %s", addrReg)
		g.releaseRegister(addrReg)

		finalAsm = strings.Replace(finalAsm, fmt.Sprintf("(%s)", varName), valReg, 1)
	}

	g.emitf("    %s", finalAsm)

	for i := len(tempRegs) - 1; i >= 0; i-- {
		g.emitf("    pop %s", tempRegs[i])
		g.releaseRegister(tempRegs[i])
	}
}

func (g *Generator) emitLoadFromAddressRegister(addrReg, valReg, varType string) {
	switch types.WidthOf(varType) {
	case types.WidthWord:
		g.emitf("    lw %s %s", addrReg, valReg)
	case types.WidthByte:
		g.emitf("    lb %s %s", addrReg, valReg)
	default:
		g.emitf("    lh %s %s", addrReg, valReg)
	}
}

func (g *Generator) visitReturn(n *ast.Return) {
	if n.Value != nil {
		g.visitExpr(n.Value)
		g.emit("    pop %ac")
	}
	g.emit("    jmp .end")
}

func (g *Generator) visitIf(n *ast.If) {
	elseLabel := g.newLabel("else")
	endLabel := g.newLabel("endif")

	g.visitExpr(n.Condition)
	g.emit("     pop %ac")
	g.emit("     cmp %ac 0")

	target := endLabel
	if n.Else != nil {
		target = elseLabel
	}
	g.emitf("     je %s", target)

	for _, stmt := range n.Then {
		g.visitStatement(stmt)
	}

	if n.Else != nil {
		g.emitf("     jmp %s", endLabel)
		g.emitf("%s:", elseLabel)
		for _, stmt := range n.Else {
			g.visitStatement(stmt)
		}
	}

	g.emitf("%s:", endLabel)
}

func (g *Generator) visitWhile(n *ast.While) {
	startLabel := g.newLabel("while_start")
	endLabel := g.newLabel("while_end")

	g.emitf("%s:", startLabel)

	g.visitExpr(n.Condition)
	g.emit("    pop %ac")
	g.emit("    cmp %ac 0")
	g.emitf("    je %s", endLabel)

	for _, stmt := range n.Body {
		g.visitStatement(stmt)
	}

	g.emitf("    jmp %s", startLabel)
	g.emitf("%s:", endLabel)
}

func (g *Generator) visitSwitch(n *ast.Switch) {
	endLabel := g.newLabel("switch_end")
	defaultLabel := endLabel
	if n.Default != nil {
		defaultLabel = g.newLabel("default")
	}

	caseLabels := make([]string, len(n.Cases))
	for i := range n.Cases {
		caseLabels[i] = g.newLabel(fmt.Sprintf("case_body_%d", i))
	}

	g.visitExpr(n.Expr)

	for i, c := range n.Cases {
		g.emit("     pop %ac")
		g.emit("     psh %ac")
		g.emit("     psh %ac")

		g.visitExpr(c.Value)
		g.emit("     pop %bs")
		g.emit("     pop %ac")
		g.emit("     cmp %ac %bs")
		g.emitf("    je %s", caseLabels[i])
	}

	g.emit("     add %sp 3")
	g.emitf("    jmp %s", defaultLabel)

	for i, c := range n.Cases {
		g.emitf("%s:", caseLabels[i])
		g.emit("     add %sp 3")
		for _, stmt := range c.Body {
			g.visitStatement(stmt)
		}
		g.emitf("    jmp %s", endLabel)
	}

	if n.Default != nil {
		g.emitf("%s:", defaultLabel)
		for _, stmt := range n.Default {
			g.visitStatement(stmt)
		}
	}

	g.emitf("%s:", endLabel)
}

// visitExpr emits code that leaves the expression's value pushed on
// the stack, returning its Box type.
func (g *Generator) visitExpr(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		unsigned := toTwosComplement24(n.Value)
		g.emitf("     psh %d    ; %d", unsigned, n.Value)
		return "num24"
	case *ast.CharLiteral:
		g.emitf("     psh %d", n.Value)
		return "char"
	case *ast.StringLiteral:
		label := fmt.Sprintf("__str_%d", g.strCounter)
		g.strCounter++
		g.dataSection = append(g.dataSection, fmt.Sprintf("%s: bytes %s 0", label, strconv.Quote(n.Value)))
		g.emitf("     mov %%ac %s", label)
		g.emit("     psh %ac")
		return "char*"
	case *ast.VarAccess:
		g.emitAddressOf("%bs", n.Name)
		g.emitLoadFromAddressInBs(n.Type())
		g.emit("     psh %ac")
		return n.Type()
	case *ast.BinaryOp:
		return g.visitBinaryOp(n)
	case *ast.UnaryOp:
		return g.visitUnaryOp(n)
	case *ast.TypeCast:
		g.visitExpr(n.Expr)
		return n.TargetType
	case *ast.Call:
		return g.visitCall(n)
	}
	panic(internalErrorf("unknown expression node %T", e))
}

var simpleComparisons = map[string]string{
	"==": "je",
	"!=": "jne",
	"<":  "jl",
	">":  "jg",
}

var complexComparisons = map[string][2]string{
	"<=": {"jl", "je"},
	">=": {"jg", "je"},
}

func (g *Generator) visitBinaryOp(n *ast.BinaryOp) string {
	op := n.Op.Lexeme

	if op == "||" {
		trueLabel := g.newLabel("lor_true")
		endLabel := g.newLabel("lor_end")

		g.visitExpr(n.Left)
		g.emit("     pop %ac")
		g.emit("     cmp %ac 0")
		g.emitf("     jne %s", trueLabel)

		g.visitExpr(n.Right)
		g.emit("     pop %ac")
		g.emit("     cmp %ac 0")
		g.emitf("     jne %s", trueLabel)

		g.emit("     psh 0")
		g.emitf("     jmp %s", endLabel)
		g.emitf("%s:", trueLabel)
		g.emit("     psh 1")
		g.emitf("%s:", endLabel)
		return "num24"
	}

	if op == "&&" {
		falseLabel := g.newLabel("land_false")
		endLabel := g.newLabel("land_end")

		g.visitExpr(n.Left)
		g.emit("     pop %ac")
		g.emit("     cmp %ac 0")
		g.emitf("     je %s", falseLabel)

		g.visitExpr(n.Right)
		g.emit("     pop %ac")
		g.emit("     cmp %ac 0")
		g.emitf("     je %s", falseLabel)

		g.emit("     psh 1")
		g.emitf("     jmp %s", endLabel)
		g.emitf("%s:", falseLabel)
		g.emit("     psh 0")
		g.emitf("%s:", endLabel)
		return "num24"
	}

	if simple, ok := simpleComparisons[op]; ok {
		g.emitComparison(n, simple, "")
		return "num24"
	}
	if complex, ok := complexComparisons[op]; ok {
		g.emitComparison(n, complex[0], complex[1])
		return "num24"
	}

	// Arithmetic/bitwise: right evaluated first, then left, matching the
	// original's stack discipline (pop %ac = left, pop %bs = right).
	g.visitExpr(n.Right)
	leftType := g.visitExpr(n.Left)

	g.emit("     pop %ac")
	g.emit("     pop %bs")

	switch op {
	case "+":
		g.emit("     add %ac %bs")
	case "-":
		g.emit("     sub %ac %bs")
	case "*":
		g.emit("     mul %ac %bs")
	case "/":
		g.emit("     div %ac %bs")
	case "&":
		g.emit("  and %ac %bs")
	case "|":
		g.emit("   or %ac %bs")
	case "^":
		g.emit("  xor %ac %bs")
	}

	g.emit("     psh %ac")
	return leftType
}

// emitComparison lowers a comparison operator via branch-and-select
// (spec §4.7): evaluate right then left, compare, and push 0/1. A
// "complex" comparison (<=, >=) re-issues the comparison for its
// second jump without reloading %ac/%bs.
func (g *Generator) emitComparison(n *ast.BinaryOp, instr1, instr2 string) {
	g.visitExpr(n.Right)
	g.visitExpr(n.Left)
	g.emit("    pop %ac")
	g.emit("    pop %bs")

	trueLabel := g.newLabel("true")
	endLabel := g.newLabel("end_cmp")

	g.emit("    cmp %ac %bs")
	g.emitf("    %s %s", instr1, trueLabel)
	if instr2 != "" {
		g.emit("    cmp %ac %bs")
		g.emitf("    %s %s", instr2, trueLabel)
	}

	g.emit("    psh 0")
	g.emitf("    jmp %s", endLabel)
	g.emitf("%s:", trueLabel)
	g.emit("    psh 1")
	g.emitf("%s:", endLabel)
}

func (g *Generator) visitUnaryOp(n *ast.UnaryOp) string {
	switch n.Op.Type {
	case token.AMPERSAND:
		access, ok := n.Operand.(*ast.VarAccess)
		if !ok {
			panic(internalErrorf("& can only be applied to variables"))
		}
		g.emitAddressOf("%ac", access.Name)
		g.emit("    psh %ac")
		return n.Type()
	case token.STAR:
		g.visitExpr(n.Operand)
		g.emit("    pop %bs")
		g.emitLoadFromAddressInBs(n.Type())
		g.emit("    psh %ac")
		return n.Type()
	case token.MINUS:
		g.visitExpr(n.Operand)
		g.emit("    pop %bs")
		g.emit("    psh 0")
		g.emit("    pop %ac")
		g.emit("    sub %ac %bs")
		g.emit("    psh %ac")
		return n.Type()
	default:
		return g.visitExpr(n.Operand)
	}
}

// toTwosComplement24 encodes value as an unsigned 24-bit two's
// complement integer for literal emission (spec §4.7).
func toTwosComplement24(value int) int {
	const mask = 1<<24 - 1
	return value & mask
}
