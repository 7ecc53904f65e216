package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/lexer"
	"github.com/db47h/retroasm/internal/parser"
	"github.com/db47h/retroasm/internal/token"
)

func parse(t *testing.T, src string) ([]ast.Statement, *diag.List) {
	t.Helper()
	toks := lexer.New(src, "test.asm").All()
	dl := &diag.List{}
	p := parser.New(toks, dl)
	return p.ParseProgram(), dl
}

func TestParser_Label(t *testing.T) {
	stmts, dl := parse(t, "start:\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	lbl, ok := stmts[0].(*ast.Label)
	require.True(t, ok)
	require.Equal(t, "start", lbl.Name)
}

func TestParser_LocalLabel(t *testing.T) {
	stmts, dl := parse(t, ".loop:\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	lbl, ok := stmts[0].(*ast.Label)
	require.True(t, ok)
	require.Equal(t, ".loop", lbl.Name)
}

func TestParser_GenericDirectiveWithExprArgs(t *testing.T) {
	stmts, dl := parse(t, "org $8000\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	dir, ok := stmts[0].(*ast.Directive)
	require.True(t, ok)
	require.Equal(t, "org", dir.Name)
	require.Len(t, dir.Args, 1)
	n, ok := dir.Args[0].(*ast.NumberLiteral)
	require.True(t, ok)
	require.Equal(t, int64(0x8000), n.Value)
}

func TestParser_StringArgDirective(t *testing.T) {
	stmts, dl := parse(t, `include "util.inc"`+"\n")
	require.False(t, dl.HasErrors())
	dir, ok := stmts[0].(*ast.Directive)
	require.True(t, ok)
	require.Equal(t, "include", dir.Name)
	require.Equal(t, []string{"util.inc"}, dir.RawArgs)
}

func TestParser_MacroDefinitionWithDefault(t *testing.T) {
	stmts, dl := parse(t, "macro push2 a, b=1\n  db a, b\nendmacro\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	def, ok := stmts[0].(*ast.MacroDefinition)
	require.True(t, ok)
	require.Equal(t, "push2", def.Name)
	require.Len(t, def.Params, 2)
	require.Equal(t, "a", def.Params[0].Name)
	require.False(t, def.Params[0].HasDefault)
	require.Equal(t, "b", def.Params[1].Name)
	require.True(t, def.Params[1].HasDefault)
	require.Len(t, def.Body, 1)
}

func TestParser_MacroInvocationVsLocalLabel(t *testing.T) {
	stmts, dl := parse(t, "@pair:\n@pair 1, 2\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 2)

	lbl, ok := stmts[0].(*ast.Label)
	require.True(t, ok)
	require.Equal(t, "@pair", lbl.Name)

	inv, ok := stmts[1].(*ast.MacroInvocation)
	require.True(t, ok)
	require.Equal(t, "pair", inv.Name)
	require.Len(t, inv.Args, 2)
}

func TestParser_ConditionalIfElseifElse(t *testing.T) {
	src := "if 1\n  nop\nelseif 2\n  nop\nelse\n  nop\nendif\n"
	stmts, dl := parse(t, src)
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	cond, ok := stmts[0].(*ast.Conditional)
	require.True(t, ok)
	require.Equal(t, ast.CondIf, cond.Kind)
	require.Len(t, cond.Then, 1)
	require.Len(t, cond.ElseIfs, 1)
	require.Len(t, cond.Else, 1)
}

func TestParser_ConditionalIfdefBuildsIfdefTest(t *testing.T) {
	stmts, dl := parse(t, "ifdef FOO\n  nop\nendif\n")
	require.False(t, dl.HasErrors())
	cond := stmts[0].(*ast.Conditional)
	require.Equal(t, ast.CondIfdef, cond.Kind)
	test, ok := cond.Cond.(*ast.IfdefTest)
	require.True(t, ok)
	require.Equal(t, "FOO", test.Name)
	require.False(t, test.Negate)
}

func TestParser_ConditionalIfndefNegates(t *testing.T) {
	stmts, dl := parse(t, "ifndef FOO\n  nop\nendif\n")
	require.False(t, dl.HasErrors())
	cond := stmts[0].(*ast.Conditional)
	test, ok := cond.Cond.(*ast.IfdefTest)
	require.True(t, ok)
	require.True(t, test.Negate)
}

func TestParser_RepeatBlock(t *testing.T) {
	stmts, dl := parse(t, "rept 4\n  nop\nendr\n")
	require.False(t, dl.HasErrors())
	rep, ok := stmts[0].(*ast.Repeat)
	require.True(t, ok)
	count, ok := rep.Count.(*ast.NumberLiteral)
	require.True(t, ok)
	require.Equal(t, int64(4), count.Value)
	require.Len(t, rep.Body, 1)
}

func TestParser_InstructionImmediate(t *testing.T) {
	stmts, dl := parse(t, "lda #$10\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, "lda", inst.Mnemonic)
	require.Equal(t, ast.Immediate, inst.Mode)
	n := inst.Operand.(*ast.NumberLiteral)
	require.Equal(t, int64(0x10), n.Value)
}

func TestParser_InstructionSizeSuffix(t *testing.T) {
	stmts, dl := parse(t, "lda.w #$1234\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, "lda", inst.Mnemonic)
	require.Equal(t, byte('w'), inst.Size)
}

func TestParser_IndexedIndirectXForm(t *testing.T) {
	stmts, dl := parse(t, "lda ($10,x)\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.IndexedIndirect, inst.Mode)
	reg := inst.Operand2.(*ast.Identifier)
	require.Equal(t, "x", reg.Name)
}

func TestParser_IndirectIndexedYForm(t *testing.T) {
	stmts, dl := parse(t, "lda ($10),y\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.IndirectIndexed, inst.Mode)
}

func TestParser_LongIndirectBracketForm(t *testing.T) {
	stmts, dl := parse(t, "lda [$10]\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.DirectPageIndirectLong, inst.Mode)
}

func TestParser_LongIndirectBracketIndexedYForm(t *testing.T) {
	stmts, dl := parse(t, "lda [$10],y\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.DirectPageIndirectLongY, inst.Mode)
}

func TestParser_BlockMoveForm(t *testing.T) {
	stmts, dl := parse(t, "mvp $7e:$7f\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.BlockMove, inst.Mode)
	require.NotNil(t, inst.Operand)
	require.NotNil(t, inst.Operand2)
}

func TestParser_AccumulatorForm(t *testing.T) {
	stmts, dl := parse(t, "asl a\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.Accumulator, inst.Mode)
}

func TestParser_ImpliedForm(t *testing.T) {
	stmts, dl := parse(t, "nop\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.Implied, inst.Mode)
	require.Nil(t, inst.Operand)
}

func TestParser_IndexedBareForm(t *testing.T) {
	stmts, dl := parse(t, "lda $10,x\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.MemoryReference, inst.Mode)
	reg := inst.Operand2.(*ast.Identifier)
	require.Equal(t, "x", reg.Name)
}

func TestParser_StackRelativeForm(t *testing.T) {
	stmts, dl := parse(t, "lda $3,s\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	require.Equal(t, ast.StackRelative, inst.Mode)
}

func TestParser_ExpressionPrecedence(t *testing.T) {
	stmts, dl := parse(t, "db 1+2*3\n")
	require.False(t, dl.HasErrors())
	dir := stmts[0].(*ast.Directive)
	add := dir.Args[0].(*ast.BinaryExpr)
	require.Equal(t, ast.Add, add.Op)
	_, ok := add.Left.(*ast.NumberLiteral)
	require.True(t, ok)
	mul := add.Right.(*ast.BinaryExpr)
	require.Equal(t, ast.Mul, mul.Op)
}

func TestParser_UnaryByteOperators(t *testing.T) {
	stmts, dl := parse(t, "db <$1234, >$1234, ^$1234\n")
	require.False(t, dl.HasErrors())
	dir := stmts[0].(*ast.Directive)
	require.Len(t, dir.Args, 3)
	lo := dir.Args[0].(*ast.UnaryExpr)
	hi := dir.Args[1].(*ast.UnaryExpr)
	bank := dir.Args[2].(*ast.UnaryExpr)
	require.Equal(t, ast.LowByte, lo.Op)
	require.Equal(t, ast.HighByte, hi.Op)
	require.Equal(t, ast.BankByte, bank.Op)
}

func TestParser_BitwiseAndShiftAndComparison(t *testing.T) {
	stmts, dl := parse(t, "if (1 << 2) & 3 == 0 && 1 || 0\n  nop\nendif\n")
	require.False(t, dl.HasErrors())
	cond := stmts[0].(*ast.Conditional)
	_, ok := cond.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
}

func TestParser_AnonymousLabelRef(t *testing.T) {
	stmts, dl := parse(t, "jmp ++\njmp --loop\n")
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 2)

	inst1 := stmts[0].(*ast.Instruction)
	ref1 := inst1.Operand.(*ast.AnonymousLabelRef)
	require.True(t, ref1.Forward)
	require.Equal(t, 2, ref1.Count)

	inst2 := stmts[1].(*ast.Instruction)
	ref2 := inst2.Operand.(*ast.AnonymousLabelRef)
	require.False(t, ref2.Forward)
	require.Equal(t, "loop", ref2.Name)
}

func TestParser_CurrentAddressOperand(t *testing.T) {
	stmts, dl := parse(t, "jmp *\n")
	require.False(t, dl.HasErrors())
	inst := stmts[0].(*ast.Instruction)
	_, ok := inst.Operand.(*ast.CurrentAddress)
	require.True(t, ok)
}

func TestParser_MissingEndifReportsSyntaxError(t *testing.T) {
	_, dl := parse(t, "if 1\n  nop\n")
	require.True(t, dl.HasErrors())
}

func TestParser_StrayElseifReportsSyntaxError(t *testing.T) {
	_, dl := parse(t, "elseif 1\n")
	require.True(t, dl.HasErrors())
}

func TestParser_PositionsArePropagated(t *testing.T) {
	stmts, dl := parse(t, "\n\nstart:\n")
	require.False(t, dl.HasErrors())
	lbl := stmts[0].(*ast.Label)
	require.Equal(t, 3, lbl.Location().Line)
	var _ token.Location = lbl.Location()
}
