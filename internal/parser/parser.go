// Package parser implements the recursive-descent parser of spec §4.4.
package parser

import (
	"fmt"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/diagnostics"
	"github.com/arti-max/boxlang4/internal/token"
)

// abort unwinds the parser to Parse() on the first syntax error,
// mirroring the exception-based abort of the original implementation.
type abort struct{}

// Parser consumes a token stream and builds a Program. It aborts the
// whole parse on the first unexpected token; callers must check
// Reporter.HadError() before trusting the returned root.
type Parser struct {
	tokens   []token.Token
	reporter *diagnostics.Reporter
	pos      int
}

// New creates a Parser over tokens, reporting through r.
func New(tokens []token.Token, r *diagnostics.Reporter) *Parser {
	return &Parser{tokens: tokens, reporter: r}
}

// Parse runs the parser and returns the program root. The root is nil
// if a syntax error aborted the parse; check Reporter.HadError() first.
func (p *Parser) Parse() (prog *ast.Program) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); ok {
				prog = nil
				return
			}
			panic(r)
		}
	}()
	return p.parseProgram()
}

func (p *Parser) current() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) errorf(tok token.Token, suggestion string, format string, args ...interface{}) {
	p.reporter.Report(tok.File, tok.Line, tok.Column, fmt.Sprintf(format, args...), diagnostics.SyntaxError, suggestion)
	panic(abort{})
}

// expect consumes the current token if it matches typ, otherwise
// aborts the parse with a diagnostic.
func (p *Parser) expect(typ token.Type) token.Token {
	cur := p.current()
	if cur.Type == typ {
		p.advance()
		return cur
	}
	p.errorf(cur, fmt.Sprintf("Try replacing %q with the expected token.", cur.Lexeme),
		"expected %s but found %s", typ, cur.Type)
	panic(abort{}) // unreachable, errorf already panics
}

func isTypeStart(t token.Type) bool {
	switch t {
	case token.NUM16, token.NUM24, token.CHAR, token.VOID, token.F16, token.F24:
		return true
	default:
		return false
	}
}

// parseType consumes a type-name token and an optional trailing '*'.
func (p *Parser) parseType() string {
	lexeme := p.current().Lexeme
	p.advance()
	if p.current().Type == token.STAR {
		lexeme += "*"
		p.advance()
	}
	return lexeme
}

func (p *Parser) parseProgram() *ast.Program {
	var decls []ast.Declaration

	for p.current().Type != token.EOF {
		switch {
		case isTypeStart(p.current().Type):
			decls = append(decls, p.parseVarDecl())
		case p.current().Type == token.BOX:
			decls = append(decls, p.parseFuncDecl())
		case p.current().Type == token.NAMESPACE:
			decls = append(decls, p.parseNamespace())
		default:
			p.errorf(p.current(), "Expected a variable, function, or namespace declaration.",
				"expected a declaration but found %s", p.current().Type)
		}
	}

	return &ast.Program{Declarations: decls}
}

func (p *Parser) parseNamespace() *ast.Namespace {
	tok := p.expect(token.NAMESPACE)
	name := p.current().Lexeme
	p.advance()
	p.expect(token.OPEN_PAREN)

	var body []*ast.FuncDecl
	for p.current().Type != token.CLOSE_PAREN {
		if p.current().Type != token.BOX {
			p.errorf(p.current(), "Namespaces may only contain function declarations.",
				"expected a function declaration but found %s", p.current().Type)
		}
		body = append(body, p.parseFuncDecl())
	}
	p.advance() // skip )

	return &ast.Namespace{Name: name, Body: body, Token: tok}
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	p.expect(token.BOX)

	nameTok := p.current()
	name := nameTok.Lexeme
	p.advance()
	p.expect(token.OPEN_BRACKET)

	var params []ast.Parameter
	for p.current().Type != token.CLOSE_BRACKET {
		paramType := p.parseType()
		paramName := p.current().Lexeme
		p.advance()
		params = append(params, ast.Parameter{ParamType: paramType, Name: paramName})

		if p.current().Type == token.COMMA {
			p.advance()
		} else if p.current().Type != token.CLOSE_BRACKET {
			p.errorf(p.current(), "Add a comma between parameters.", "expected ',' or ']' but found %s", p.current().Type)
		}
	}
	p.expect(token.CLOSE_BRACKET)
	p.expect(token.ARROW)
	retType := p.parseType()
	p.expect(token.OPEN_PAREN)

	var body []ast.Statement
	for p.current().Type != token.CLOSE_PAREN {
		body = append(body, p.parseStatement())
	}
	p.expect(token.CLOSE_PAREN)

	return &ast.FuncDecl{Name: name, Params: params, ReturnType: retType, Body: body, Token: nameTok}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	varType := p.parseType()
	nameTok := p.current()
	name := nameTok.Lexeme
	p.advance()

	var value ast.Expression
	if p.current().Type == token.COLON {
		p.advance()
		value = p.parseExpression()
	}
	p.expect(token.SEMICOLON)

	return &ast.VarDecl{VarType: varType, Name: name, Value: value, NameToken: nameTok}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.current().Type {
	case token.NUM16, token.NUM24, token.CHAR, token.VOID, token.F16, token.F24:
		return p.parseVarDecl()
	case token.OPEN:
		return p.parseCallStatement()
	case token.RET:
		return p.parseReturn()
	case token.ASM:
		return p.parseAsm()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.SWITCH:
		return p.parseSwitch()
	case token.BREAK:
		tok := p.current()
		p.advance()
		p.expect(token.SEMICOLON)
		return &ast.Break{Token: tok}
	case token.CONTINUE:
		tok := p.current()
		p.advance()
		p.expect(token.SEMICOLON)
		return &ast.Continue{Token: tok}
	default:
		return p.parseAssignment()
	}
}

func (p *Parser) parseBlock() []ast.Statement {
	p.expect(token.OPEN_BRACE)
	var stmts []ast.Statement
	for p.current().Type != token.CLOSE_BRACE {
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(token.CLOSE_BRACE)
	return stmts
}

func (p *Parser) parseIf() *ast.If {
	tok := p.expect(token.IF)
	p.expect(token.OPEN_PAREN)
	cond := p.parseExpression()
	p.expect(token.CLOSE_PAREN)
	then := p.parseBlock()

	var elseBody []ast.Statement
	if p.current().Type == token.ELSE {
		p.advance()
		if p.current().Type == token.IF {
			elseBody = []ast.Statement{p.parseIf()}
		} else {
			elseBody = p.parseBlock()
		}
	}

	return &ast.If{Condition: cond, Then: then, Else: elseBody, Token: tok}
}

func (p *Parser) parseWhile() *ast.While {
	tok := p.expect(token.WHILE)
	p.expect(token.OPEN_PAREN)
	cond := p.parseExpression()
	p.expect(token.CLOSE_PAREN)
	body := p.parseBlock()
	return &ast.While{Condition: cond, Body: body, Token: tok}
}

func (p *Parser) parseSwitch() *ast.Switch {
	tok := p.expect(token.SWITCH)
	p.expect(token.OPEN_PAREN)
	expr := p.parseExpression()
	p.expect(token.CLOSE_PAREN)
	p.expect(token.OPEN_BRACE)

	var cases []*ast.Case
	var defaultBody []ast.Statement
	for p.current().Type != token.CLOSE_BRACE {
		switch p.current().Type {
		case token.CASE:
			caseTok := p.current()
			p.advance()
			value := p.parseExpression()
			p.expect(token.COLON)
			var body []ast.Statement
			for p.current().Type != token.CASE && p.current().Type != token.DEFAULT && p.current().Type != token.CLOSE_BRACE {
				body = append(body, p.parseStatement())
			}
			cases = append(cases, &ast.Case{Value: value, Body: body, Token: caseTok})
		case token.DEFAULT:
			p.advance()
			p.expect(token.COLON)
			for p.current().Type != token.CASE && p.current().Type != token.DEFAULT && p.current().Type != token.CLOSE_BRACE {
				defaultBody = append(defaultBody, p.parseStatement())
			}
		default:
			p.errorf(p.current(), "Expected a 'case' or 'default' label.", "expected 'case' or 'default' but found %s", p.current().Type)
		}
	}
	p.expect(token.CLOSE_BRACE)

	return &ast.Switch{Expr: expr, Cases: cases, Default: defaultBody, Token: tok}
}

func (p *Parser) parseAssignment() *ast.Assignment {
	tok := p.current()
	lvalue := p.parseExpression()
	p.expect(token.COLON)
	rvalue := p.parseExpression()
	p.expect(token.SEMICOLON)
	return &ast.Assignment{Target: tok, LValue: lvalue, RValue: rvalue}
}

func (p *Parser) parseReturn() *ast.Return {
	tok := p.expect(token.RET)
	var value ast.Expression
	if p.current().Type != token.SEMICOLON {
		value = p.parseExpression()
	}
	p.expect(token.SEMICOLON)
	return &ast.Return{Value: value, Token: tok}
}

func (p *Parser) parseAsm() *ast.Asm {
	tok := p.current()
	p.advance() // skip asm
	p.expect(token.OPEN_BRACKET)
	code := p.current().Lexeme
	p.advance() // skip code
	p.expect(token.CLOSE_BRACKET)
	p.expect(token.SEMICOLON)
	return &ast.Asm{Code: code, Token: tok}
}

func (p *Parser) parseCallStatement() ast.Statement {
	call := p.parseCallExpression()
	p.expect(token.SEMICOLON)
	return call
}

// Expression grammar, lowest to highest precedence (spec §4.4):
// logical-or -> logical-and -> bitwise-or/xor -> equality -> relational
// -> additive -> multiplicative -> unary -> cast -> primary.

func (p *Parser) parseExpression() ast.Expression {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() ast.Expression {
	left := p.parseLogicalAnd()
	for p.current().Type == token.LOGICAL_OR {
		op := p.current()
		p.advance()
		right := p.parseLogicalAnd()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	left := p.parseBitwise()
	for p.current().Type == token.LOGICAL_AND {
		op := p.current()
		p.advance()
		right := p.parseBitwise()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseBitwise() ast.Expression {
	left := p.parseEquality()
	for p.current().Type == token.BITWISE_OR || p.current().Type == token.BITWISE_XOR {
		op := p.current()
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseRelational()
	for p.current().Type == token.EQUAL_EQUAL || p.current().Type == token.NOT_EQUAL {
		op := p.current()
		p.advance()
		right := p.parseRelational()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expression {
	left := p.parseAdditive()
	for isRelational(p.current().Type) {
		op := p.current()
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func isRelational(t token.Type) bool {
	switch t {
	case token.LESS_THAN, token.LESS_EQUAL, token.GREATER_THAN, token.GREATER_EQUAL:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.current().Type == token.PLUS || p.current().Type == token.MINUS {
		op := p.current()
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for p.current().Type == token.STAR || p.current().Type == token.SLASH {
		op := p.current()
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	tok := p.current()

	switch tok.Type {
	case token.PLUS, token.MINUS, token.STAR, token.AMPERSAND:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryOp{Op: tok, Operand: operand}
	case token.OPEN_PAREN:
		if isTypeStart(p.peek(1).Type) {
			p.advance() // skip (
			targetType := p.parseType()
			p.expect(token.CLOSE_PAREN)
			expr := p.parseUnary()
			return &ast.TypeCast{TargetType: targetType, Expr: expr, Token: tok}
		}
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.current()

	switch tok.Type {
	case token.OPEN:
		return p.parseCallExpression()
	case token.INT_LIT:
		p.advance()
		return &ast.IntLiteral{Value: tok.IntValue, Token: tok}
	case token.CHAR_LIT:
		p.advance()
		return &ast.CharLiteral{Value: tok.IntValue, Token: tok}
	case token.STR_LIT:
		p.advance()
		return &ast.StringLiteral{Value: tok.Lexeme, Token: tok}
	case token.IDENT:
		p.advance()
		return &ast.VarAccess{Name: tok.Lexeme, Token: tok}
	case token.OPEN_PAREN:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.CLOSE_PAREN)
		return expr
	}

	p.errorf(tok, "Expected a literal, variable, or parenthesized expression.",
		"expected an expression but found %s", tok.Type)
	panic(abort{}) // unreachable
}

// parseCallExpression parses `open [ns::]name [ args ]`.
func (p *Parser) parseCallExpression() *ast.Call {
	p.expect(token.OPEN)

	var namespace string
	if p.peek(1).Type == token.COLON_D {
		namespace = p.current().Lexeme
		p.advance() // skip ns
		p.advance() // skip ::
	}

	nameTok := p.current()
	name := nameTok.Lexeme
	p.advance()
	p.expect(token.OPEN_BRACKET)

	var args []ast.Expression
	for p.current().Type != token.CLOSE_BRACKET {
		args = append(args, p.parseExpression())
		if p.current().Type == token.COMMA {
			p.advance()
		} else if p.current().Type != token.CLOSE_BRACKET {
			p.errorf(p.current(), "Add a comma between arguments.", "expected ',' or ']' but found %s", p.current().Type)
		}
	}
	p.expect(token.CLOSE_BRACKET)

	return &ast.Call{Namespace: namespace, Name: name, Args: args, NameToken: nameTok}
}
