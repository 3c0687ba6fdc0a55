// Package diagnostics is the process-wide error-reporting collaborator
// shared by every compiler stage. It renders diagnostics against source
// positions in a fixed, bit-exact format and tracks whether the pipeline
// should abort.
package diagnostics

import (
	"fmt"
	"io"
	"strings"
)

// Kind categorizes a diagnostic by the stage that raised it.
type Kind string

const (
	PreprocessorError Kind = "PreprocessorError"
	LexerError        Kind = "LexerError"
	SyntaxError       Kind = "SyntaxError"
	SemanticError     Kind = "SemanticError"
)

// Diagnostic is one reported error; render turns it into text.
type Diagnostic struct {
	File       string
	Line       int
	Column     int
	Message    string
	Kind       Kind
	Suggestion string
}

// Reporter accumulates diagnostics against loaded source text and
// renders them on demand. It is the sole cross-stage shared resource;
// every stage writes to it sequentially — see spec §5.
type Reporter struct {
	out         io.Writer
	sourceLines map[string][]string
	diagnostics []Diagnostic
	hadError    bool
}

// New creates a Reporter that renders diagnostics to out.
func New(out io.Writer) *Reporter {
	return &Reporter{
		out:         out,
		sourceLines: make(map[string][]string),
	}
}

// LoadSourceFile registers the lines of a source file so later
// diagnostics against it can render a context snippet.
func (r *Reporter) LoadSourceFile(name string, lines []string) {
	r.sourceLines[name] = lines
}

// Report records and immediately prints one diagnostic.
func (r *Reporter) Report(file string, line, column int, message string, kind Kind, suggestion string) {
	d := Diagnostic{
		File:       file,
		Line:       line,
		Column:     column,
		Message:    message,
		Kind:       kind,
		Suggestion: suggestion,
	}
	r.diagnostics = append(r.diagnostics, d)
	r.hadError = true
	fmt.Fprint(r.out, render(d, r.sourceLines))
}

// HadError reports whether any diagnostic has been recorded since
// construction or the last Clear.
func (r *Reporter) HadError() bool {
	return r.hadError
}

// Clear resets the reporter to its initial state.
func (r *Reporter) Clear() {
	r.diagnostics = nil
	r.hadError = false
	r.sourceLines = make(map[string][]string)
}

// Diagnostics returns every diagnostic recorded so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diagnostics
}

// render produces the bit-exact diagnostic text described in spec §4.1:
//
//	error[<Kind>]: <message>
//	  --> <file>:<line>:<column>
//	<line> | <source line without trailing whitespace>
//	       |         ^
//	  = help: <suggestion>      (omitted if none)
func render(d Diagnostic, sourceLines map[string][]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "error[%s]: %s\n", d.Kind, d.Message)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", d.File, d.Line, d.Column)

	lines, haveFile := sourceLines[d.File]
	if haveFile && d.Line >= 1 && d.Line <= len(lines) {
		lineContent := strings.TrimRight(lines[d.Line-1], " \t\r\n")
		lineNumStr := fmt.Sprintf("%d", d.Line)
		padding := strings.Repeat(" ", len(lineNumStr))

		fmt.Fprintf(&b, "%s | %s\n", lineNumStr, lineContent)

		caretOffset := d.Column - 1
		if caretOffset < 0 {
			caretOffset = 0
		}
		fmt.Fprintf(&b, "%s | %s^\n", padding, strings.Repeat(" ", caretOffset))
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&b, "  = help: %s\n", d.Suggestion)
	}

	return b.String()
}
