// Package diag provides the position-carrying diagnostic type shared by the
// lexer, parser, analyzer, architecture backends and ROM builders. It is a
// direct generalization of the teacher's parser.Error/parser.ErrorList,
// renamed and rebased onto token.Location so every package in this module
// reports diagnostics the same way.
package diag

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/token"
)

// Kind categorizes a Diagnostic, mirroring the teacher's ErrorKind.
type Kind int

const (
	Syntax Kind = iota
	UndefinedSymbol
	DuplicateSymbol
	InvalidDirective
	InvalidInstruction
	InvalidOperand
	CircularInclude
	MacroExpansion
	FileIO
	AssertFailed
	UserError
)

// Diagnostic is a single error with source position and optional context.
type Diagnostic struct {
	Pos     token.Location
	Message string
	Context string
	Kind    Kind
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: error: %s\n", d.Pos, d.Message)
	if d.Context != "" {
		fmt.Fprintf(&sb, "    %s\n", d.Context)
	}
	return sb.String()
}

// New creates a Diagnostic with no source context.
func New(pos token.Location, kind Kind, message string) *Diagnostic {
	return &Diagnostic{Pos: pos, Kind: kind, Message: message}
}

// Newf creates a Diagnostic with a formatted message.
func Newf(pos token.Location, kind Kind, format string, args ...interface{}) *Diagnostic {
	return New(pos, kind, fmt.Sprintf(format, args...))
}

// WithContext returns a copy of d carrying the given source-line context.
func (d *Diagnostic) WithContext(context string) *Diagnostic {
	cp := *d
	cp.Context = context
	return &cp
}

// Warning is a non-fatal diagnostic recorded through List.Warn. The .warning
// directive does not produce one: the analyzer reports it as an error-level
// UserError diagnostic.
type Warning struct {
	Pos     token.Location
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Pos, w.Message)
}

// List collects diagnostics and warnings accumulated across a run. Every
// public entry point in this module takes one by pointer, appends to it, and
// only returns a non-nil error from List.Err() when at least one error-level
// Diagnostic was recorded.
type List struct {
	Errors   []*Diagnostic
	Warnings []*Warning
}

// Add appends an error-level diagnostic.
func (l *List) Add(d *Diagnostic) { l.Errors = append(l.Errors, d) }

// Addf appends a formatted error-level diagnostic.
func (l *List) Addf(pos token.Location, kind Kind, format string, args ...interface{}) {
	l.Add(Newf(pos, kind, format, args...))
}

// Warn appends a warning.
func (l *List) Warn(pos token.Location, format string, args ...interface{}) {
	l.Warnings = append(l.Warnings, &Warning{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-level diagnostic was recorded.
func (l *List) HasErrors() bool { return len(l.Errors) > 0 }

// Err returns l as an error if it has any errors, else nil. This is the
// standard way a function ending in (..., *diag.List) reports whether the
// list should be treated as a failure by its caller.
func (l *List) Err() error {
	if l == nil || !l.HasErrors() {
		return nil
	}
	return l
}

func (l *List) Error() string {
	var sb strings.Builder
	for _, e := range l.Errors {
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// PrintWarnings renders every collected warning, one per line.
func (l *List) PrintWarnings() string {
	if len(l.Warnings) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, w := range l.Warnings {
		sb.WriteString(w.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
