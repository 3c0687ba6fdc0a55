// Package preprocessor implements the $include/$define/$ifdef textual
// preprocessor of spec §4.2.
package preprocessor

import (
	"os"
	"strings"

	"github.com/arti-max/boxlang4/internal/diagnostics"
)

// libraryRoot is the conventional include root for angle-bracket
// includes ($include <path>), mirroring boxlang4/lib/ in the original.
const libraryRoot = "boxlang4/lib/"

// Preprocessor expands $include/$define/$ifdef/$ifndef/$else/$endif
// directives, producing a single concatenated text annotated with
// `$file "<path>"` markers the lexer consumes to track source origin.
type Preprocessor struct {
	reporter  *diagnostics.Reporter
	defines   map[string]string
	skipStack []bool
	out       strings.Builder
}

// New creates a Preprocessor reporting through r.
func New(r *diagnostics.Reporter) *Preprocessor {
	return &Preprocessor{
		reporter:  r,
		defines:   make(map[string]string),
		skipStack: []bool{false},
	}
}

// Defines returns the symbol table accumulated by $define directives.
func (p *Preprocessor) Defines() map[string]string {
	return p.defines
}

// Process expands lines (the contents of filename) and returns the
// concatenated, directive-free text. It is re-entrant: $include
// recurses into Process for the included file.
func (p *Preprocessor) Process(lines []string, filename string) string {
	if !p.skipStack[len(p.skipStack)-1] {
		p.out.WriteString("$file \"" + filename + "\"\n")
	}

	for lineNumber, line := range lines {
		lineNumber := lineNumber + 1
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "$") {
			directive := stripped[1:]

			switch {
			case strings.HasPrefix(directive, "ifndef"):
				name := directiveArg(directive)
				top := p.skipStack[len(p.skipStack)-1]
				if top {
					p.skipStack = append(p.skipStack, true)
				} else {
					_, defined := p.defines[name]
					p.skipStack = append(p.skipStack, defined)
				}
				continue
			case strings.HasPrefix(directive, "ifdef"):
				name := directiveArg(directive)
				top := p.skipStack[len(p.skipStack)-1]
				if top {
					p.skipStack = append(p.skipStack, true)
				} else {
					_, defined := p.defines[name]
					p.skipStack = append(p.skipStack, !defined)
				}
				continue
			case strings.HasPrefix(directive, "else"):
				if len(p.skipStack) > 1 && !p.skipStack[len(p.skipStack)-2] {
					top := len(p.skipStack) - 1
					p.skipStack[top] = !p.skipStack[top]
				}
				continue
			case strings.HasPrefix(directive, "endif"):
				if len(p.skipStack) > 1 {
					p.skipStack = p.skipStack[:len(p.skipStack)-1]
				}
				continue
			}
		}

		if p.skipStack[len(p.skipStack)-1] {
			continue
		}

		if strings.HasPrefix(stripped, "$") {
			directive := stripped[1:]

			switch {
			case strings.HasPrefix(directive, "include"):
				p.handleInclude(directive, line, lineNumber, filename)
				continue
			case strings.HasPrefix(directive, "define"):
				p.handleDefine(directive)
				continue
			}
		} else {
			p.out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				p.out.WriteString("\n")
			}
		}
	}

	return p.out.String()
}

func directiveArg(directive string) string {
	parts := strings.SplitN(directive, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (p *Preprocessor) handleInclude(directive, rawLine string, lineNumber int, originalFilename string) {
	column := strings.Index(rawLine, directive) + 1

	var includeFilename, path string

	switch {
	case strings.Contains(directive, "<"):
		start := strings.Index(directive, "<") + 1
		end := strings.Index(directive, ">")
		if end < start {
			p.reportBadInclude(originalFilename, lineNumber, column)
			return
		}
		path = directive[start:end]
		includeFilename = libraryRoot + path
		column += start
	case strings.Contains(directive, `"`):
		firstQuote := strings.Index(directive, `"`)
		lastQuote := strings.LastIndex(directive, `"`)
		if firstQuote < 0 || lastQuote <= firstQuote {
			p.reportBadInclude(originalFilename, lineNumber, column)
			return
		}
		start := firstQuote + 1
		path = directive[start:lastQuote]
		includeFilename = path
		column += start
	default:
		p.reportBadInclude(originalFilename, lineNumber, column)
		return
	}

	if path == "" {
		p.reportBadInclude(originalFilename, lineNumber, column)
		return
	}

	data, err := os.ReadFile(includeFilename)
	if err != nil {
		p.reporter.Report(
			originalFilename, lineNumber, column,
			"file '"+includeFilename+"' not found",
			diagnostics.PreprocessorError,
			"Check if the file exists and the path is correct.",
		)
		return
	}

	includedLines := splitKeepingLines(string(data))
	p.reporter.LoadSourceFile(includeFilename, includedLines)
	p.Process(includedLines, includeFilename)
	p.out.WriteString("$file \"" + originalFilename + "\"\n")
}

func (p *Preprocessor) reportBadInclude(filename string, line, column int) {
	p.reporter.Report(
		filename, line, column,
		"invalid include directive",
		diagnostics.PreprocessorError,
		`Usage: $include <path> or $include "path"`,
	)
}

func (p *Preprocessor) handleDefine(directive string) {
	parts := strings.SplitN(directive, " ", 3)
	if len(parts) < 2 {
		return
	}
	name := strings.TrimSpace(parts[1])
	value := "1"
	if len(parts) > 2 {
		value = strings.TrimSpace(parts[2])
	}
	p.defines[name] = value
}

// splitKeepingLines splits text into lines, each retaining its
// trailing newline (matching Python's readlines()), for reporter
// rendering and recursive directive scanning.
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
