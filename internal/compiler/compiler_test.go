package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arti-max/boxlang4/internal/diagnostics"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.box")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestCompileFileProducesAssembly(t *testing.T) {
	path := writeSource(t, "box main[] -> num24 ( ret 1 + 2; )")
	var out strings.Builder
	r := diagnostics.New(&out)

	result, err := CompileFile(path, r, Options{OptimizationLevel: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Assembly, "func_main:") {
		t.Fatalf("expected func_main in output:\n%s", result.Assembly)
	}
}

func TestCompileFileStopsAfterSemanticError(t *testing.T) {
	path := writeSource(t, "box main[] -> void ( x : 1; )")
	var out strings.Builder
	r := diagnostics.New(&out)

	_, err := CompileFile(path, r, Options{OptimizationLevel: 0})
	if err == nil {
		t.Fatal("expected an error for undeclared variable")
	}
	if !IsAbort(err) {
		t.Fatalf("expected the abort sentinel, got: %v", err)
	}
	if !strings.Contains(out.String(), "SemanticError") {
		t.Fatalf("expected a SemanticError diagnostic, got:\n%s", out.String())
	}
}

func TestCompileFileMissingInputReturnsError(t *testing.T) {
	var out strings.Builder
	r := diagnostics.New(&out)

	_, err := CompileFile(filepath.Join(t.TempDir(), "missing.box"), r, Options{OptimizationLevel: 0})
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	if IsAbort(err) {
		t.Fatal("a missing file should not be reported as a post-diagnostic abort")
	}
}

func TestCompileFileAppliesOptimizationLevel(t *testing.T) {
	path := writeSource(t, "box main[] -> num24 ( ret 1 + 2; )")
	var out strings.Builder
	r := diagnostics.New(&out)

	result, err := CompileFile(path, r, Options{OptimizationLevel: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(result.Assembly, "; 1\n") {
		t.Fatalf("expected constant folding to remove the literal 1, got:\n%s", result.Assembly)
	}
}

func TestParseFileReturnsASTWithoutCodegen(t *testing.T) {
	path := writeSource(t, "box main[] -> void ( ret; )")
	var out strings.Builder
	r := diagnostics.New(&out)

	prog, err := ParseFile(path, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(prog.Declarations))
	}
}

func TestCompileFileDivisionByZeroIsReportedAsFatal(t *testing.T) {
	path := writeSource(t, "box main[] -> num24 ( ret 1 / 0; )")
	var out strings.Builder
	r := diagnostics.New(&out)

	_, err := CompileFile(path, r, Options{OptimizationLevel: 1})
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	if IsAbort(err) {
		t.Fatal("division-by-zero is a returned error, not a diagnostic abort")
	}
}
