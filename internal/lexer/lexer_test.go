package lexer

import (
	"strings"
	"testing"

	"github.com/arti-max/boxlang4/internal/diagnostics"
	"github.com/arti-max/boxlang4/internal/token"
)

func tokenize(t *testing.T, src string) ([]token.Token, *diagnostics.Reporter) {
	t.Helper()
	var out strings.Builder
	r := diagnostics.New(&out)
	l := New(src, r)
	return l.Tokenize(), r
}

func typesOf(tokens []token.Token) []token.Type {
	types := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, r := tokenize(t, "box num24 x : foo;")
	if r.HadError() {
		t.Fatalf("unexpected error")
	}
	want := []token.Type{token.BOX, token.NUM24, token.IDENT, token.COLON}
	_ = want
	if tokens[0].Type != token.BOX || tokens[1].Type != token.NUM24 || tokens[2].Type != token.IDENT {
		t.Fatalf("unexpected token sequence: %v", tokens)
	}
}

func TestTwoCharOperatorsPreferredOverOneChar(t *testing.T) {
	tokens, _ := tokenize(t, "a == b != c <= d >= e && f || g :: h -> i")
	got := typesOf(tokens)
	want := []token.Type{
		token.IDENT, token.EQUAL_EQUAL, token.IDENT, token.NOT_EQUAL, token.IDENT,
		token.LESS_EQUAL, token.IDENT, token.GREATER_EQUAL, token.IDENT, token.LOGICAL_AND,
		token.IDENT, token.LOGICAL_OR, token.IDENT, token.COLON_D, token.IDENT,
		token.ARROW, token.IDENT, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestDecimalHexBinaryLiterals(t *testing.T) {
	tokens, _ := tokenize(t, "42 0x1F 0b101")
	if tokens[0].IntValue != 42 {
		t.Fatalf("expected 42, got %d", tokens[0].IntValue)
	}
	if tokens[1].IntValue != 31 {
		t.Fatalf("expected 31, got %d", tokens[1].IntValue)
	}
	if tokens[2].IntValue != 5 {
		t.Fatalf("expected 5, got %d", tokens[2].IntValue)
	}
}

func TestCharLiteralEscapes(t *testing.T) {
	tokens, r := tokenize(t, `'a' '\n' '\0' '\x41'`)
	if r.HadError() {
		t.Fatalf("unexpected error")
	}
	want := []int{'a', '\n', 0, 0x41}
	for i, w := range want {
		if tokens[i].IntValue != w {
			t.Fatalf("at %d: got %d want %d", i, tokens[i].IntValue, w)
		}
	}
}

func TestUnterminatedCharLiteralReportsAndContinues(t *testing.T) {
	tokens, r := tokenize(t, "'a num24 b;")
	if !r.HadError() {
		t.Fatal("expected an error for unterminated character literal")
	}
	found := false
	for _, tok := range tokens {
		if tok.Type == token.NUM24 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected lexing to continue past the bad literal")
	}
}

func TestStringLiteral(t *testing.T) {
	tokens, _ := tokenize(t, `"hello world"`)
	if tokens[0].Type != token.STR_LIT || tokens[0].Lexeme != "hello world" {
		t.Fatalf("unexpected string token: %+v", tokens[0])
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	tokens, _ := tokenize(t, "num24 a; # trailing comment\nnum24 b;")
	count := 0
	for _, tok := range tokens {
		if tok.Type == token.NUM24 {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 num24 tokens, got %d", count)
	}
}

func TestFileMarkerUpdatesTokenFile(t *testing.T) {
	tokens, _ := tokenize(t, `$file "included.box"`+"\nnum24 a;\n")
	var got string
	for _, tok := range tokens {
		if tok.Type == token.NUM24 {
			got = tok.File
		}
	}
	if got != "included.box" {
		t.Fatalf("expected file to be included.box, got %q", got)
	}
}

func TestUnknownCharacterReportsAndRecovers(t *testing.T) {
	tokens, r := tokenize(t, "num24 a @ num24 b;")
	if !r.HadError() {
		t.Fatal("expected an error for the unknown character")
	}
	count := 0
	for _, tok := range tokens {
		if tok.Type == token.NUM24 {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected lexing to recover and find both num24 tokens, got %d", count)
	}
}

func TestAsmBlockCapturesMultiTokenBodyVerbatim(t *testing.T) {
	tokens, r := tokenize(t, "asm [ inc (x) ];")
	if r.HadError() {
		t.Fatalf("unexpected error")
	}
	want := []token.Type{token.ASM, token.OPEN_BRACKET, token.STR_LIT, token.CLOSE_BRACKET, token.SEMICOLON, token.EOF}
	got := typesOf(tokens)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %s want %s", i, got[i], want[i])
		}
	}
	if tokens[2].Lexeme != "inc (x)" {
		t.Fatalf("expected raw asm body %q, got %q", "inc (x)", tokens[2].Lexeme)
	}
}

func TestAsmBlockTracksNestedBrackets(t *testing.T) {
	tokens, r := tokenize(t, "asm [ push [1] ];")
	if r.HadError() {
		t.Fatalf("unexpected error")
	}
	if tokens[2].Type != token.STR_LIT || tokens[2].Lexeme != "push [1]" {
		t.Fatalf("expected raw asm body %q, got %q", "push [1]", tokens[2].Lexeme)
	}
}

func TestUnterminatedAsmBlockReportsError(t *testing.T) {
	_, r := tokenize(t, "asm [ inc (x)")
	if !r.HadError() {
		t.Fatal("expected an error for unterminated asm block")
	}
}

func TestBracesAndDotAreLexed(t *testing.T) {
	tokens, _ := tokenize(t, "{ a.b }")
	want := []token.Type{token.OPEN_BRACE, token.IDENT, token.DOT, token.IDENT, token.CLOSE_BRACE, token.EOF}
	got := typesOf(tokens)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %s want %s", i, got[i], want[i])
		}
	}
}
