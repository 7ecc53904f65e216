package eval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/eval"
	"github.com/db47h/retroasm/internal/symtab"
	"github.com/db47h/retroasm/internal/token"
)

func num(v int64) *ast.NumberLiteral { return &ast.NumberLiteral{Value: v} }

func newCtx() (*eval.Context, *diag.List) {
	dl := &diag.List{}
	return &eval.Context{Symbols: symtab.New(), CurrentAddress: 0x100, Diags: dl}, dl
}

func TestEval_Arithmetic(t *testing.T) {
	c, _ := newCtx()
	expr := &ast.BinaryExpr{Op: ast.Add, Left: num(2), Right: &ast.BinaryExpr{Op: ast.Mul, Left: num(3), Right: num(4)}}
	v, ok := eval.Eval(expr, c)
	require.True(t, ok)
	require.Equal(t, int64(14), v)
}

func TestEval_DivByZeroIsAbsent(t *testing.T) {
	c, _ := newCtx()
	expr := &ast.BinaryExpr{Op: ast.Div, Left: num(1), Right: num(0)}
	_, ok := eval.Eval(expr, c)
	require.False(t, ok)
}

func TestEval_CurrentAddress(t *testing.T) {
	c, _ := newCtx()
	v, ok := eval.Eval(&ast.CurrentAddress{}, c)
	require.True(t, ok)
	require.Equal(t, int64(0x100), v)

	v2, ok := eval.Eval(&ast.Identifier{Name: "$"}, c)
	require.True(t, ok)
	require.Equal(t, int64(0x100), v2)
}

func TestEval_UndefinedSymbolIsAbsent(t *testing.T) {
	c, _ := newCtx()
	_, ok := eval.Eval(&ast.Identifier{Name: "nowhere"}, c)
	require.False(t, ok)
}

func TestEval_DefinedSymbolResolves(t *testing.T) {
	c, dl := newCtx()
	c.Symbols.Define("target", symtab.Label, 3, true, token.Location{}, dl)
	v, ok := eval.Eval(&ast.Identifier{Name: "target"}, c)
	require.True(t, ok)
	require.Equal(t, int64(3), v)
}

func TestEvalCond_UndefinedSymbolFoldsToZero(t *testing.T) {
	c, _ := newCtx()
	expr := &ast.BinaryExpr{Op: ast.CmpEq, Left: &ast.Identifier{Name: "nowhere"}, Right: num(0)}
	v, ok := eval.EvalCond(expr, c)
	require.True(t, ok)
	require.Equal(t, int64(1), v)
}

func TestEval_UndefinedSymbolStillAbsentOutsideCondMode(t *testing.T) {
	c, _ := newCtx()
	expr := &ast.BinaryExpr{Op: ast.CmpEq, Left: &ast.Identifier{Name: "nowhere"}, Right: num(0)}
	_, ok := eval.Eval(expr, c)
	require.False(t, ok)
}

func TestEval_ByteExtractionOperators(t *testing.T) {
	c, _ := newCtx()
	v := int64(0x123456)
	low, _ := eval.Eval(&ast.UnaryExpr{Op: ast.LowByte, Operand: num(v)}, c)
	high, _ := eval.Eval(&ast.UnaryExpr{Op: ast.HighByte, Operand: num(v)}, c)
	bank, _ := eval.Eval(&ast.UnaryExpr{Op: ast.BankByte, Operand: num(v)}, c)
	require.Equal(t, int64(0x56), low)
	require.Equal(t, int64(0x34), high)
	require.Equal(t, int64(0x12), bank)
	require.Equal(t, v&0xffffff, low|(high<<8)|(bank<<16))
}

func TestEval_IfdefTest(t *testing.T) {
	c, dl := newCtx()
	c.Symbols.Define("known", symtab.Constant, 1, true, token.Location{}, dl)

	v, ok := eval.Eval(&ast.IfdefTest{Name: "known"}, c)
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v2, ok := eval.Eval(&ast.IfdefTest{Name: "missing"}, c)
	require.True(t, ok)
	require.Equal(t, int64(0), v2)

	v3, ok := eval.Eval(&ast.IfdefTest{Name: "missing", Negate: true}, c)
	require.True(t, ok)
	require.Equal(t, int64(1), v3)
}

func TestEval_ShiftsModulo64(t *testing.T) {
	c, _ := newCtx()
	v, ok := eval.Eval(&ast.BinaryExpr{Op: ast.Shl, Left: num(1), Right: num(64)}, c)
	require.True(t, ok)
	require.Equal(t, int64(1), v) // 64 % 64 == 0
}

func TestEval_AnonymousLabelNotFoundIsAbsentWithDiagnostic(t *testing.T) {
	c, dl := newCtx()
	_, ok := eval.Eval(&ast.AnonymousLabelRef{Forward: true, Count: 1}, c)
	require.False(t, ok)
	require.True(t, dl.HasErrors())
}
