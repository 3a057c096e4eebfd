package compiler

import (
	"fmt"
	"io"
	"strings"
)

// Diagnostic is a line-accurate report of one ERROR token.
type Diagnostic struct {
	Line    int
	Start   int // byte offset of the offending text
	Length  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error: %s", d.Line, d.Message)
}

// CompileError collects every lexical error found in a source text.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].String()
	}
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Diagnose scans source and returns one diagnostic per ERROR token.
func Diagnose(source string) []Diagnostic {
	var diags []Diagnostic
	for _, tok := range Tokenize(source) {
		if tok.Type == TokenError {
			diags = append(diags, Diagnostic{
				Line:    tok.Line,
				Start:   tok.Start,
				Length:  tok.Length,
				Message: tok.Message,
			})
		}
	}
	return diags
}

// Compile drives the scanner over source and writes a token listing to w.
// Code generation does not exist yet, so no chunk is produced. It returns
// a *CompileError when the scanner reported ERROR tokens.
func Compile(source string, w io.Writer) error {
	if w == nil {
		w = io.Discard
	}

	s := NewScanner(source)
	var errs []Diagnostic
	line := -1
	for {
		tok := s.ScanToken()

		if tok.Line != line {
			fmt.Fprintf(w, "%4d ", tok.Line)
			line = tok.Line
		} else {
			fmt.Fprint(w, "   | ")
		}

		if tok.Type == TokenError {
			fmt.Fprintf(w, "%-13s %s\n", tok.Type, tok.Message)
			errs = append(errs, Diagnostic{
				Line:    tok.Line,
				Start:   tok.Start,
				Length:  tok.Length,
				Message: tok.Message,
			})
		} else {
			fmt.Fprintf(w, "%-13s '%s'\n", tok.Type, tok.Lexeme(source))
		}

		if tok.Type == TokenEOF {
			break
		}
	}

	if len(errs) > 0 {
		return &CompileError{Diagnostics: errs}
	}
	return nil
}
