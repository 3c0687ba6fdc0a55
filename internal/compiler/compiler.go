// Package compiler wires the pipeline stages of spec §2 together:
// Preprocessor -> Lexer -> Parser -> SemanticAnalyzer -> (Optimizer) ->
// CodeGenerator. It is the single entry point shared by cmd/boxc and
// the package's own tests.
package compiler

import (
	"fmt"
	"os"
	"time"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/codegen"
	"github.com/arti-max/boxlang4/internal/diagnostics"
	"github.com/arti-max/boxlang4/internal/lexer"
	"github.com/arti-max/boxlang4/internal/optimizer"
	"github.com/arti-max/boxlang4/internal/parser"
	"github.com/arti-max/boxlang4/internal/preprocessor"
	"github.com/arti-max/boxlang4/internal/sema"
)

// StageTracer receives one call per completed pipeline stage; cmd/boxc
// wires it to a stderr logger under -v/--verbose (spec §10.2).
type StageTracer func(stage string, elapsed time.Duration, detail string)

// Options configures a single compilation run.
type Options struct {
	OptimizationLevel int
	Trace             StageTracer
}

// Result holds the output of a successful run: the generated assembly
// and the optimized AST it was generated from. CompileFile returns a nil
// Result on failure; --dump-ast uses ParseFile instead.
type Result struct {
	Assembly string
	AST      *ast.Program
}

// errAbort is returned once a stage has already reported its own
// diagnostics; the pipeline halts without adding a second message.
var errAbort = fmt.Errorf("compilation aborted after diagnostics")

// CompileFile reads path, runs it through the full pipeline, and
// returns the generated assembly. Diagnostics are written to r as they
// occur; errAbort is returned (not a diagnostic) once a stage has
// already reported failure, per spec §7's one-message-per-run policy
// for the terminating stage.
func CompileFile(path string, r *diagnostics.Reporter, opts Options) (*Result, error) {
	trace := opts.Trace
	if trace == nil {
		trace = func(string, time.Duration, string) {}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file '%s' not found", path)
	}
	lines := splitKeepingLines(string(data))
	r.LoadSourceFile(path, lines)

	start := time.Now()
	pp := preprocessor.New(r)
	src := pp.Process(lines, path)
	if r.HadError() {
		return nil, errAbort
	}
	trace("preprocess", time.Since(start), fmt.Sprintf("%d bytes", len(src)))

	start = time.Now()
	toks := lexer.New(src, r).Tokenize()
	if r.HadError() {
		return nil, errAbort
	}
	trace("lex", time.Since(start), fmt.Sprintf("%d tokens", len(toks)))

	start = time.Now()
	prog := parser.New(toks, r).Parse()
	if r.HadError() || prog == nil {
		return nil, errAbort
	}
	trace("parse", time.Since(start), fmt.Sprintf("%d declarations", len(prog.Declarations)))

	start = time.Now()
	sema.New(r).Analyze(prog)
	if r.HadError() {
		return nil, errAbort
	}
	trace("sema", time.Since(start), "")

	start = time.Now()
	optimized, err := optimizer.New(opts.OptimizationLevel).Optimize(prog)
	if err != nil {
		return nil, err
	}
	trace("optimize", time.Since(start), fmt.Sprintf("level %d", opts.OptimizationLevel))

	start = time.Now()
	asm, err := codegen.New().Generate(optimized)
	if err != nil {
		return nil, err
	}
	trace("codegen", time.Since(start), fmt.Sprintf("%d bytes", len(asm)))

	return &Result{Assembly: asm, AST: optimized}, nil
}

// ParseFile runs only the Preprocessor/Lexer/Parser stages, for
// --dump-ast (spec §6, §12): the AST is printed before semantic
// analysis or optimization run.
func ParseFile(path string, r *diagnostics.Reporter) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file '%s' not found", path)
	}
	lines := splitKeepingLines(string(data))
	r.LoadSourceFile(path, lines)

	src := preprocessor.New(r).Process(lines, path)
	if r.HadError() {
		return nil, errAbort
	}
	toks := lexer.New(src, r).Tokenize()
	if r.HadError() {
		return nil, errAbort
	}
	prog := parser.New(toks, r).Parse()
	if r.HadError() || prog == nil {
		return nil, errAbort
	}
	return prog, nil
}

// IsAbort reports whether err is the sentinel returned after a stage
// has already printed its own diagnostics (as opposed to an I/O or
// internal error that still needs a message of its own).
func IsAbort(err error) bool {
	return err == errAbort
}

func splitKeepingLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
