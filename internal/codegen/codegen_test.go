package codegen

import (
	"strings"
	"testing"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/diagnostics"
	"github.com/arti-max/boxlang4/internal/lexer"
	"github.com/arti-max/boxlang4/internal/optimizer"
	"github.com/arti-max/boxlang4/internal/parser"
	"github.com/arti-max/boxlang4/internal/sema"
)

func build(t *testing.T, src string) *ast.Program {
	t.Helper()
	var out strings.Builder
	r := diagnostics.New(&out)
	toks := lexer.New(src, r).Tokenize()
	prog := parser.New(toks, r).Parse()
	if r.HadError() {
		t.Fatalf("unexpected parse error: %s", out.String())
	}
	sema.New(r).Analyze(prog)
	if r.HadError() {
		t.Fatalf("unexpected semantic error: %s", out.String())
	}
	optimized, err := optimizer.New(0).Optimize(prog)
	if err != nil {
		t.Fatalf("unexpected optimizer error: %v", err)
	}
	return optimized
}

func TestGeneratesEntryJump(t *testing.T) {
	prog := build(t, "box main[] -> void ( ret; )")
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "jmp func__start") {
		t.Fatalf("expected entry jump, got:\n%s", asm)
	}
	if !strings.Contains(asm, "func_main:") {
		t.Fatalf("expected func_main label, got:\n%s", asm)
	}
}

func TestFunctionPrologueAndEpilogue(t *testing.T) {
	prog := build(t, `box add[num24 a, num24 b] -> num24 (
		ret a + b;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	for _, want := range []string{"psh %bp", "mov %bp %sp", ".end:", "mov %sp %bp", "pop %bp", "ret"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected %q in output:\n%s", want, asm)
		}
	}
}

func TestNamespaceMangling(t *testing.T) {
	prog := build(t, `
		namespace math (
			box square[num24 x] -> num24 ( ret x * x; )
		)
	`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "func_math_square:") {
		t.Fatalf("expected mangled namespace function label, got:\n%s", asm)
	}
}

func TestCallArgumentCleanup(t *testing.T) {
	prog := build(t, `
		box add[num24 a, num24 b] -> num24 ( ret a + b; )
		box main[] -> void ( open add [ 1, 2 ]; )
	`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "jsr func_add") {
		t.Fatalf("expected call to func_add, got:\n%s", asm)
	}
	if !strings.Contains(asm, "add %sp 6") {
		t.Fatalf("expected caller-side stack cleanup for 2 args, got:\n%s", asm)
	}
}

func TestStringLiteralEmitsDataSection(t *testing.T) {
	prog := build(t, `box main[] -> void (
		char* s : "hi";
		ret;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, ";section data") {
		t.Fatalf("expected a data section, got:\n%s", asm)
	}
	if !strings.Contains(asm, "__str_0:") {
		t.Fatalf("expected a string literal label, got:\n%s", asm)
	}
}

func TestGlobalVariableReservesSpace(t *testing.T) {
	prog := build(t, `num24 counter;`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "__var_counter: reserve 3 bytes") {
		t.Fatalf("expected a 3-byte global reservation, got:\n%s", asm)
	}
}

func TestComplexComparisonEmitsTwoJumps(t *testing.T) {
	prog := build(t, `box main[] -> num24 (
		ret 1 <= 2;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	jl := strings.Count(asm, "jl ")
	je := strings.Count(asm, "je ")
	if jl < 1 || je < 1 {
		t.Fatalf("expected both jl and je for <=, got:\n%s", asm)
	}
}

func TestIfElseLowering(t *testing.T) {
	prog := build(t, `box main[] -> num24 (
		num24 x : 0;
		if (1) {
			x : 1;
		} else {
			x : 2;
		}
		ret x;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "je _else_") {
		t.Fatalf("expected a branch to the else label, got:\n%s", asm)
	}
}

func TestWhileLoopLowering(t *testing.T) {
	prog := build(t, `box main[] -> void (
		num24 i : 0;
		while (i) {
			i : i - 1;
		}
		ret;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "_while_start_") || !strings.Contains(asm, "_while_end_") {
		t.Fatalf("expected while start/end labels, got:\n%s", asm)
	}
}

func TestUnaryMinusOnVariableEmitsNegation(t *testing.T) {
	prog := build(t, `box main[] -> num24 (
		num24 x : 5;
		ret -x;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "sub %ac %bs") {
		t.Fatalf("expected a negation via sub, got:\n%s", asm)
	}
}

func TestUnaryPlusOnVariablePassesThrough(t *testing.T) {
	prog := build(t, `box main[] -> num24 (
		num24 x : 5;
		ret +x;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if strings.Count(asm, "sub %ac %bs") != 0 {
		t.Fatalf("did not expect a negation for unary plus, got:\n%s", asm)
	}
}

func TestInlineAsmWithoutPlaceholderPassesThrough(t *testing.T) {
	prog := build(t, `box main[] -> void (
		asm [ nop ];
		ret;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if !strings.Contains(asm, "nop") {
		t.Fatalf("expected literal asm passthrough, got:\n%s", asm)
	}
}

func TestInlineAsmSubstitutesVariablePlaceholder(t *testing.T) {
	prog := build(t, `box main[] -> void (
		num24 x : 5;
		asm [ inc (x) ];
		ret;
	)`)
	asm, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %v", err)
	}
	if strings.Contains(asm, "(x)") {
		t.Fatalf("expected placeholder to be substituted with a register, got:\n%s", asm)
	}
}
