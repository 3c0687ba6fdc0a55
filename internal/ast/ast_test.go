package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/arti-max/boxlang4/internal/token"
)

func TestExpressionTypeDefaultsEmpty(t *testing.T) {
	lit := &IntLiteral{Value: 42}
	if lit.Type() != "" {
		t.Fatalf("expected empty var_type before semantic analysis, got %q", lit.Type())
	}
	lit.SetType("num24")
	if lit.Type() != "num24" {
		t.Fatalf("expected num24 after SetType, got %q", lit.Type())
	}
}

func TestBinaryOpStructuralEquality(t *testing.T) {
	mk := func() *BinaryOp {
		return &BinaryOp{
			Left:  &IntLiteral{Value: 1},
			Op:    token.Token{Type: token.PLUS, Lexeme: "+"},
			Right: &IntLiteral{Value: 2},
		}
	}

	a, b := mk(), mk()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("expected structurally identical trees, diff:\n%s", diff)
	}
}

func TestCallImplementsExpressionAndStatement(t *testing.T) {
	var _ Expression = (*Call)(nil)
	var _ Statement = (*Call)(nil)
}

func TestPrintProgramSmoke(t *testing.T) {
	prog := &Program{
		Declarations: []Declaration{
			&FuncDecl{
				Name:       "_start",
				ReturnType: "void",
				Body: []Statement{
					&VarDecl{
						VarType: "num24",
						Name:    "x",
						Value:   &IntLiteral{Value: 3},
					},
				},
			},
		},
	}

	var out strings.Builder
	Print(&out, prog)

	got := out.String()
	for _, want := range []string{"FunctionDecl(", "name=\"_start\"", "VarDecl(type=\"num24\", name=\"x\"", "IntLiteral(value=3)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected dump to contain %q, got:\n%s", want, got)
		}
	}
}
