// Package ast defines the statement and expression tree produced by the
// parser and consumed by the two-pass analyzer. It mirrors the teacher's
// parser.Instruction/parser.Directive pair, generalized into a tagged-variant
// tree per spec.md §9's "visitor dispatch" design note: a Go interface with
// exhaustive type switches stands in for the source's visitor pattern.
package ast

import "github.com/db47h/retroasm/internal/token"

// AddressingMode enumerates every operand shape named in spec.md §3. Not
// every architecture uses every mode; the active arch.Backend decides which
// modes it accepts for a given mnemonic.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
	Relative
	AbsoluteLong
	AbsoluteLongX
	StackRelative
	StackRelativeIndirectIndexed
	DirectPageIndirectLong
	DirectPageIndirectLongY
	AbsoluteIndirectLong
	AbsoluteIndexedIndirect
	BlockMove
	MemoryReference

	// Register and RegisterIndirect serve the Z80-family backends, whose
	// instruction set is built around register-pair operands rather than
	// the 6502-style address-mode families above: Register covers
	// register-to-register/register-to-accumulator forms ("ld b,c", "add
	// a,h") with the registers carried as register-index operand values
	// (z80.RegisterIndex); RegisterIndirect covers "(hl)"-style
	// register-pointer memory access. The parser produces neither mode.
	Register
	RegisterIndirect
)

// Node is implemented by every statement and expression node. It exists
// purely as a marker so statement lists and expression trees can share a
// single interface-backed tree without an empty-interface escape hatch.
type Node interface {
	Location() token.Location
}

// Statement is any top-level AST node the analyzer walks.
type Statement interface {
	Node
	statementNode()
}

// Expr is any expression-tree node the evaluator folds.
type Expr interface {
	Node
	exprNode()
}

type Base struct{ Pos token.Location }

func (b Base) Location() token.Location { return b.Pos }

// NewBase constructs a Base embeddable in any node literal built outside
// this package (e.g. by internal/parser), since base's field is only
// settable by name when the type itself is exported.
func NewBase(pos token.Location) Base { return Base{Pos: pos} }

// ---- Statements ----

// Label is a bare label definition: "name:" or a local "@name"/".name".
type Label struct {
	Base
	Name string
}

func (*Label) statementNode() {}

// Instruction is a mnemonic with an optional size suffix and operand.
type Instruction struct {
	Base
	Mnemonic string
	Size     byte // 0, 'b', 'w', or 'l'
	Mode     AddressingMode
	Operand  Expr // nil for Implied/Accumulator
	// Operand2 holds the second operand of two-operand forms the source
	// grammar needs beyond a single Expr, e.g. 65816 BlockMove's src,dest
	// banks or indexed-indirect's explicit index register name.
	Operand2 Expr
}

func (*Instruction) statementNode() {}

// Directive is any of the directives catalogued in spec.md §4.4.
type Directive struct {
	Base
	Name string
	Args []Expr
	// RawArgs is set for directives whose argument isn't an expression
	// (e.g. error/warning message strings, target names).
	RawArgs []string
}

func (*Directive) statementNode() {}

// MacroDefinition registers a reusable statement template.
type MacroDefinition struct {
	Base
	Name   string
	Params []MacroParam
	Body   []Statement
}

func (*MacroDefinition) statementNode() {}

// MacroParam is one formal parameter, with an optional default expressed as
// the raw token text of its default-value expression (parsed lazily at
// expansion time, per spec.md §4.3 step 2).
type MacroParam struct {
	Name        string
	HasDefault  bool
	DefaultToks []token.Token
}

// MacroInvocation is a call-site reference to a macro.
type MacroInvocation struct {
	Base
	Name string
	Args []Expr
}

func (*MacroInvocation) statementNode() {}

// ElseIf is one elseif branch of a Conditional.
type ElseIf struct {
	Cond Expr
	Body []Statement
}

// Conditional is .if/.ifdef/.ifndef with any number of elseif branches and
// an optional else, per spec.md §4.4's pass-2-only execution model.
type Conditional struct {
	Base
	// Kind distinguishes .if (general expression) from .ifdef/.ifndef
	// (identifier defined-ness test, which must evaluate even when the
	// identifier itself is undefined or valueless).
	Kind    CondKind
	Ident   string // set when Kind != CondIf
	Cond    Expr   // always set; an IfdefTest when Kind != CondIf
	Then    []Statement
	ElseIfs []ElseIf
	Else    []Statement
}

func (*Conditional) statementNode() {}

// CondKind distinguishes the three conditional-entry spellings.
type CondKind int

const (
	CondIf CondKind = iota
	CondIfdef
	CondIfndef
)

// Repeat is a .rept/.endr block, executed Count times sequentially.
type Repeat struct {
	Base
	Count Expr
	Body  []Statement
}

func (*Repeat) statementNode() {}

// RawBytes is the statement the preprocessor splices in place of an
// "incbin" directive: the referenced file's raw content, to be emitted
// verbatim and to advance the current address by len(Data).
type RawBytes struct {
	Base
	Data []byte
}

func (*RawBytes) statementNode() {}

// ---- Expressions ----

// NumberLiteral is a resolved integer constant from source text.
type NumberLiteral struct {
	Base
	Value int64
}

func (*NumberLiteral) exprNode() {}

// StringLiteral is a double-quoted string; data directives expand it to one
// byte per character.
type StringLiteral struct {
	Base
	Value string
}

func (*StringLiteral) exprNode() {}

// Identifier is a bare name: a symbol reference, or the special '*'/'$'
// current-address pseudo-identifiers.
type Identifier struct {
	Base
	Name string
}

func (*Identifier) exprNode() {}

// CurrentAddress marks the bare '*' or '$' operand, folding to the current
// program counter at evaluation time (spec.md §4.2).
type CurrentAddress struct {
	Base
}

func (*CurrentAddress) exprNode() {}

// AnonymousLabelRef is a run of '+' or '-' characters ("+", "++", "---",
// ...), optionally named ("+loop"), resolved via the nearest-first
// directional rule of spec.md §3/§4.1.
type AnonymousLabelRef struct {
	Base
	Forward bool
	Count   int
	Name    string // "" for the bare +/- form
}

func (*AnonymousLabelRef) exprNode() {}

// BinOp enumerates the binary operators of spec.md §3.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	CmpEq
	CmpNe
	CmpLt
	CmpGt
	CmpLe
	CmpGe
	LogAnd
	LogOr
)

// BinaryExpr combines two sub-expressions with a binary operator.
type BinaryExpr struct {
	Base
	Op          BinOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnOp enumerates the unary operators of spec.md §3.
type UnOp int

const (
	Negate UnOp = iota
	BitNot
	LogNot
	LowByte  // value & 0xff
	HighByte // (value>>8) & 0xff
	BankByte // (value>>16) & 0xff
)

// UnaryExpr applies a unary operator to a single operand.
type UnaryExpr struct {
	Base
	Op      UnOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// IfdefTest wraps a bare identifier or its logical negation for the
// .ifdef/.ifndef carve-out described in spec.md §4.2: defined-ness is
// directly testable even when the identifier has no value.
type IfdefTest struct {
	Base
	Name   string
	Negate bool
}

func (*IfdefTest) exprNode() {}
