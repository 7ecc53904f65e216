// Package eval folds ast.Expr trees to signed 64-bit values against a
// symbol table snapshot and the current program-counter value. It is the
// two-pass-tolerant counterpart of the teacher's debugger/expr_parser.go:
// that file parses and evaluates text in one step for the interactive
// debugger, while this evaluator only folds an already-parsed tree (parsing
// is internal/parser's job) but keeps the same precedence-respecting
// recursive-descent shape, generalized to return "absent" instead of erroring
// outright on an unresolved forward reference.
package eval

import (
	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/symtab"
)

// Context supplies the state an evaluation needs: the symbol table, the
// current address (for '*'/'$'), and the diagnostic list anonymous-label
// resolution failures are recorded into.
type Context struct {
	Symbols        *symtab.Table
	CurrentAddress int64
	Diags          *diag.List

	// CondMode relaxes an undefined identifier from "absent" to the value 0,
	// per spec.md §4.2's conditional-evaluation carve-out: only .ifdef's own
	// IfdefTest node is exempt from this (it tests definedness itself, not a
	// value), every other expression used as a .if/.elseif condition treats
	// an undefined operand as 0 rather than aborting evaluation. Set this via
	// EvalCond rather than directly.
	CondMode bool
}

// EvalCond folds expr the way a .if/.elseif condition is evaluated: an
// undefined identifier folds to 0 instead of making the whole expression
// absent. The literal "identifier"/"!identifier" forms of .ifdef/.ifndef
// still go through their own IfdefTest node and are unaffected.
func EvalCond(expr ast.Expr, c *Context) (int64, bool) {
	cc := *c
	cc.CondMode = true
	return Eval(expr, &cc)
}

// Eval folds expr to a value. The second return is false ("absent") when a
// sub-expression depends on an undefined symbol, an unresolved anonymous
// label, or a division/modulo by zero — per spec.md §4.2, absence is not
// itself an error; callers that require a value report their own
// directive-misuse diagnostic.
func Eval(expr ast.Expr, c *Context) (int64, bool) {
	switch n := expr.(type) {
	case *ast.NumberLiteral:
		return n.Value, true

	case *ast.StringLiteral:
		// A bare string used where a number is expected folds to its first
		// byte, matching the teacher's char-literal convention; callers
		// needing the full byte sequence (data directives) read .Value
		// directly rather than going through Eval.
		if len(n.Value) == 0 {
			return 0, true
		}
		return int64(n.Value[0]), true

	case *ast.CurrentAddress:
		return c.CurrentAddress, true

	case *ast.Identifier:
		if n.Name == "*" || n.Name == "$" {
			return c.CurrentAddress, true
		}
		sym := c.Symbols.Reference(n.Name, n.Location())
		if !sym.Defined || !sym.HasValue {
			if c.CondMode {
				return 0, true
			}
			return 0, false
		}
		return sym.Value, true

	case *ast.AnonymousLabelRef:
		if n.Name != "" {
			return c.Symbols.ResolveNamedAnonymousLabel(n.Name, n.Forward, c.CurrentAddress, n.Location(), c.Diags)
		}
		return c.Symbols.ResolveAnonymousLabel(n.Forward, n.Count, c.CurrentAddress, n.Location(), c.Diags)

	case *ast.IfdefTest:
		sym, ok := c.Symbols.Lookup(n.Name)
		defined := ok && sym.Defined
		if n.Negate {
			defined = !defined
		}
		if defined {
			return 1, true
		}
		return 0, true

	case *ast.UnaryExpr:
		return evalUnary(n, c)

	case *ast.BinaryExpr:
		return evalBinary(n, c)

	default:
		return 0, false
	}
}

func evalUnary(n *ast.UnaryExpr, c *Context) (int64, bool) {
	v, ok := Eval(n.Operand, c)
	if !ok {
		return 0, false
	}
	switch n.Op {
	case ast.Negate:
		return -v, true
	case ast.BitNot:
		return ^v, true
	case ast.LogNot:
		if v == 0 {
			return 1, true
		}
		return 0, true
	case ast.LowByte:
		return v & 0xff, true
	case ast.HighByte:
		return (v >> 8) & 0xff, true
	case ast.BankByte:
		return (v >> 16) & 0xff, true
	default:
		return 0, false
	}
}

func evalBinary(n *ast.BinaryExpr, c *Context) (int64, bool) {
	// An absent operand propagates absence outright, except in CondMode
	// (set by EvalCond) where an undefined identifier already folded to 0 at
	// the leaf, so lok/rok are true here and evaluation proceeds normally.
	l, lok := Eval(n.Left, c)
	r, rok := Eval(n.Right, c)
	if !lok || !rok {
		return 0, false
	}

	switch n.Op {
	case ast.Add:
		return l + r, true
	case ast.Sub:
		return l - r, true
	case ast.Mul:
		return l * r, true
	case ast.Div:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.Mod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.BitAnd:
		return l & r, true
	case ast.BitOr:
		return l | r, true
	case ast.BitXor:
		return l ^ r, true
	case ast.Shl:
		return l << (uint(r) % 64), true
	case ast.Shr:
		return l >> (uint(r) % 64), true
	case ast.CmpEq:
		return boolInt(l == r), true
	case ast.CmpNe:
		return boolInt(l != r), true
	case ast.CmpLt:
		return boolInt(l < r), true
	case ast.CmpGt:
		return boolInt(l > r), true
	case ast.CmpLe:
		return boolInt(l <= r), true
	case ast.CmpGe:
		return boolInt(l >= r), true
	case ast.LogAnd:
		return boolInt(l != 0 && r != 0), true
	case ast.LogOr:
		return boolInt(l != 0 || r != 0), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
