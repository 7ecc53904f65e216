// Package macro implements macro definition storage and hygienic expansion,
// generalizing the teacher's parser.MacroTable/MacroExpander (which
// substitute "\param" placeholders across raw text lines) into an
// AST-level expander: parameters are bound to already-parsed ast.Expr
// argument trees, and local label names are rewritten to stay unique across
// expansions instead of the teacher's line-text approach.
package macro

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/parser"
	"github.com/db47h/retroasm/internal/token"
)

// DefaultExpansionLimit bounds the total number of statements a single
// top-level invocation may produce across all of its nested expansions,
// guarding against runaway recursive macros (spec.md §4.3).
const DefaultExpansionLimit = 10000

// Table stores macro definitions by case-insensitive name.
type Table struct {
	macros map[string]*ast.MacroDefinition
}

// NewTable creates an empty macro table.
func NewTable() *Table {
	return &Table{macros: make(map[string]*ast.MacroDefinition)}
}

// Define registers def, reporting a duplicate-definition diagnostic if a
// macro with the same name (case-insensitive) already exists.
func (t *Table) Define(def *ast.MacroDefinition, dl *diag.List) {
	key := strings.ToLower(def.Name)
	if existing, ok := t.macros[key]; ok {
		dl.Addf(def.Location(), diag.DuplicateSymbol,
			"macro %q already defined at %s", def.Name, existing.Location())
		return
	}
	t.macros[key] = def
}

// Lookup returns the macro registered under name, if any.
func (t *Table) Lookup(name string) (*ast.MacroDefinition, bool) {
	def, ok := t.macros[strings.ToLower(name)]
	return def, ok
}

// Expander expands macro invocations against a Table, tracking recursion and
// an expansion budget that restarts at each top-level invocation.
type Expander struct {
	Table *Table
	Diags *diag.List
	Limit int

	expansionID int
	budget      int
	callStack   []string
}

// NewExpander creates an Expander with the default expansion limit.
func NewExpander(t *Table, dl *diag.List) *Expander {
	return &Expander{Table: t, Diags: dl, Limit: DefaultExpansionLimit}
}

// Expand resolves a single macro invocation into the statement list that
// replaces it: arguments are bound to the macro's formal parameters (missing
// trailing arguments fall back to their parsed default, per spec.md §4.3
// step 2), and every local label the body defines is rewritten to
// "<macroName>@<name>_<expansionId>" so repeated invocations never collide.
func (e *Expander) Expand(inv *ast.MacroInvocation) []ast.Statement {
	def, ok := e.Table.Lookup(inv.Name)
	if !ok {
		e.Diags.Addf(inv.Location(), diag.InvalidDirective, "undefined macro %q", inv.Name)
		return nil
	}

	for _, caller := range e.callStack {
		if strings.EqualFold(caller, inv.Name) {
			e.Diags.Addf(inv.Location(), diag.MacroExpansion,
				"recursive macro invocation of %q (%s)", inv.Name, strings.Join(e.callStack, " -> "))
			return nil
		}
	}

	minArgs := 0
	for _, p := range def.Params {
		if !p.HasDefault {
			minArgs++
		}
	}
	if len(inv.Args) < minArgs || len(inv.Args) > len(def.Params) {
		e.Diags.Addf(inv.Location(), diag.MacroExpansion,
			"macro %q expects between %d and %d arguments, got %d",
			inv.Name, minArgs, len(def.Params), len(inv.Args))
		return nil
	}

	bindings := make(map[string]ast.Expr, len(def.Params))
	for i, param := range def.Params {
		if i < len(inv.Args) {
			bindings[param.Name] = inv.Args[i]
			continue
		}
		bindings[param.Name] = e.parseDefault(param, inv.Location())
	}

	if len(e.callStack) == 0 {
		e.budget = 0
	}
	e.expansionID++
	id := e.expansionID
	e.callStack = append(e.callStack, inv.Name)
	defer func() { e.callStack = e.callStack[:len(e.callStack)-1] }()

	locals := collectLocalLabels(def.Body)
	rename := func(name string) string {
		if !locals[name] {
			return name
		}
		trimmed := strings.TrimLeft(name, ".@")
		return fmt.Sprintf("%s@%s_%d", def.Name, trimmed, id)
	}

	expanded := make([]ast.Statement, 0, len(def.Body))
	for _, s := range def.Body {
		e.budget++
		if e.budget > e.Limit {
			e.Diags.Addf(inv.Location(), diag.MacroExpansion,
				"macro expansion limit (%d statements) exceeded", e.Limit)
			return expanded
		}
		expanded = append(expanded, e.flatten(substituteStatement(s, bindings, rename))...)
	}
	return expanded
}

// flatten recursively expands any macro invocation statement produced by
// substitution, including ones nested inside conditional/repeat bodies, so
// the caller always receives a tree with no unresolved MacroInvocation
// nodes left over from this macro's own body. Recursing here (rather than
// leaving it to whatever later walks the statement stream) is what lets the
// call-stack recursion check in Expand see the full nested chain.
func (e *Expander) flatten(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.MacroInvocation:
		return e.Expand(n)
	case *ast.Conditional:
		n.Then = e.flattenBody(n.Then)
		for i := range n.ElseIfs {
			n.ElseIfs[i].Body = e.flattenBody(n.ElseIfs[i].Body)
		}
		n.Else = e.flattenBody(n.Else)
		return []ast.Statement{n}
	case *ast.Repeat:
		n.Body = e.flattenBody(n.Body)
		return []ast.Statement{n}
	default:
		return []ast.Statement{s}
	}
}

func (e *Expander) flattenBody(body []ast.Statement) []ast.Statement {
	if body == nil {
		return nil
	}
	out := make([]ast.Statement, 0, len(body))
	for _, s := range body {
		out = append(out, e.flatten(s)...)
	}
	return out
}

// parseDefault lazily parses a parameter's default-value token list, scoped
// to the invocation site so an error in a never-defaulted parameter never
// surfaces (spec.md §4.3 step 2).
func (e *Expander) parseDefault(param ast.MacroParam, pos token.Location) ast.Expr {
	if len(param.DefaultToks) == 0 {
		return &ast.NumberLiteral{Value: 0, Base: ast.NewBase(pos)}
	}
	toks := append(append([]token.Token{}, param.DefaultToks...), token.Token{Type: token.EOF, Pos: pos})
	return parser.ParseStandaloneExpr(toks, e.Diags)
}

// collectLocalLabels returns the set of ".name"/"@name" label names defined
// anywhere in body, including inside nested conditional/repeat blocks.
func collectLocalLabels(body []ast.Statement) map[string]bool {
	locals := make(map[string]bool)
	var walk func([]ast.Statement)
	walk = func(stmts []ast.Statement) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.Label:
				if strings.HasPrefix(n.Name, ".") || strings.HasPrefix(n.Name, "@") {
					locals[n.Name] = true
				}
			case *ast.Conditional:
				walk(n.Then)
				for _, ei := range n.ElseIfs {
					walk(ei.Body)
				}
				walk(n.Else)
			case *ast.Repeat:
				walk(n.Body)
			}
		}
	}
	walk(body)
	return locals
}

func substituteStatement(s ast.Statement, bindings map[string]ast.Expr, rename func(string) string) ast.Statement {
	switch n := s.(type) {
	case *ast.Label:
		return &ast.Label{Base: n.Base, Name: rename(n.Name)}

	case *ast.Instruction:
		return &ast.Instruction{
			Base:     n.Base,
			Mnemonic: n.Mnemonic,
			Size:     n.Size,
			Mode:     n.Mode,
			Operand:  substituteExpr(n.Operand, bindings, rename),
			Operand2: substituteExpr(n.Operand2, bindings, rename),
		}

	case *ast.Directive:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = substituteExpr(a, bindings, rename)
		}
		return &ast.Directive{Base: n.Base, Name: n.Name, Args: args, RawArgs: n.RawArgs}

	case *ast.MacroInvocation:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = substituteExpr(a, bindings, rename)
		}
		return &ast.MacroInvocation{Base: n.Base, Name: n.Name, Args: args}

	case *ast.Conditional:
		cp := &ast.Conditional{
			Base:  n.Base,
			Kind:  n.Kind,
			Ident: n.Ident,
			Cond:  substituteExpr(n.Cond, bindings, rename),
		}
		cp.Then = substituteBody(n.Then, bindings, rename)
		for _, ei := range n.ElseIfs {
			cp.ElseIfs = append(cp.ElseIfs, ast.ElseIf{
				Cond: substituteExpr(ei.Cond, bindings, rename),
				Body: substituteBody(ei.Body, bindings, rename),
			})
		}
		cp.Else = substituteBody(n.Else, bindings, rename)
		return cp

	case *ast.Repeat:
		return &ast.Repeat{
			Base:  n.Base,
			Count: substituteExpr(n.Count, bindings, rename),
			Body:  substituteBody(n.Body, bindings, rename),
		}

	case *ast.MacroDefinition:
		// Nested macro definitions are not re-templated; the inner
		// definition is registered once, verbatim, the first time its
		// enclosing macro is expanded.
		return n

	case *ast.RawBytes:
		return n

	default:
		return s
	}
}

func substituteBody(body []ast.Statement, bindings map[string]ast.Expr, rename func(string) string) []ast.Statement {
	if body == nil {
		return nil
	}
	out := make([]ast.Statement, len(body))
	for i, s := range body {
		out[i] = substituteStatement(s, bindings, rename)
	}
	return out
}

func substituteExpr(e ast.Expr, bindings map[string]ast.Expr, rename func(string) string) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Identifier:
		if arg, ok := bindings[n.Name]; ok {
			return arg
		}
		if renamed := rename(n.Name); renamed != n.Name {
			return &ast.Identifier{Base: n.Base, Name: renamed}
		}
		return n

	case *ast.BinaryExpr:
		return &ast.BinaryExpr{
			Base:  n.Base,
			Op:    n.Op,
			Left:  substituteExpr(n.Left, bindings, rename),
			Right: substituteExpr(n.Right, bindings, rename),
		}

	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Base: n.Base, Op: n.Op, Operand: substituteExpr(n.Operand, bindings, rename)}

	case *ast.IfdefTest:
		if _, ok := bindings[n.Name]; ok {
			// A parameter name shadowing an .ifdef target isn't a
			// meaningful substitution target; leave it as authored.
			return n
		}
		return &ast.IfdefTest{Base: n.Base, Name: rename(n.Name), Negate: n.Negate}

	case *ast.NumberLiteral, *ast.StringLiteral, *ast.CurrentAddress, *ast.AnonymousLabelRef:
		return n

	default:
		return e
	}
}
