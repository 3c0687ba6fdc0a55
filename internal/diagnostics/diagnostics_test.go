package diagnostics

import (
	"strings"
	"testing"
)

func TestReportRendersExactFormat(t *testing.T) {
	var out strings.Builder
	r := New(&out)
	r.LoadSourceFile("test.box", []string{"num24 a : 1;\n", "char c : a;\n"})

	r.Report("test.box", 2, 10, "Type mismatch: cannot assign 'num24' to 'char'.", SemanticError, "")

	got := out.String()
	want := "error[SemanticError]: Type mismatch: cannot assign 'num24' to 'char'.\n" +
		"  --> test.box:2:10\n" +
		"2 | char c : a;\n" +
		"  |          ^\n"

	if got != want {
		t.Fatalf("render mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestReportWithSuggestion(t *testing.T) {
	var out strings.Builder
	r := New(&out)
	r.LoadSourceFile("f.box", []string{"box foo[] -> void (\n"})

	r.Report("f.box", 1, 1, "expected CLOSE_PAREN but found EOF", SyntaxError, "Add a closing ')'")

	got := out.String()
	if !strings.Contains(got, "  = help: Add a closing ')'\n") {
		t.Fatalf("expected suggestion line, got: %q", got)
	}
}

func TestReportUnknownFileOmitsContext(t *testing.T) {
	var out strings.Builder
	r := New(&out)

	r.Report("missing.box", 5, 1, "file not found", PreprocessorError, "")

	got := out.String()
	if strings.Contains(got, " | ") {
		t.Fatalf("expected no context block for unknown file, got: %q", got)
	}
	if !strings.Contains(got, "  --> missing.box:5:1\n") {
		t.Fatalf("expected location line, got: %q", got)
	}
}

func TestHadErrorAndClear(t *testing.T) {
	var out strings.Builder
	r := New(&out)

	if r.HadError() {
		t.Fatal("fresh reporter should not have an error")
	}

	r.Report("f.box", 1, 1, "boom", LexerError, "")
	if !r.HadError() {
		t.Fatal("expected HadError to be true after Report")
	}

	r.Clear()
	if r.HadError() {
		t.Fatal("expected HadError to be false after Clear")
	}
	if len(r.Diagnostics()) != 0 {
		t.Fatal("expected no diagnostics after Clear")
	}
}

func TestDiagnosticsOrdering(t *testing.T) {
	var out strings.Builder
	r := New(&out)
	r.Report("f.box", 1, 1, "first", LexerError, "")
	r.Report("f.box", 2, 1, "second", LexerError, "")

	ds := r.Diagnostics()
	if len(ds) != 2 || ds[0].Message != "first" || ds[1].Message != "second" {
		t.Fatalf("expected diagnostics in report order, got %+v", ds)
	}
}
