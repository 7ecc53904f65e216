package macro_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/lexer"
	"github.com/db47h/retroasm/internal/macro"
	"github.com/db47h/retroasm/internal/parser"
)

func parseProgram(t *testing.T, src string) ([]ast.Statement, *diag.List) {
	t.Helper()
	toks := lexer.New(src, "test.asm").All()
	dl := &diag.List{}
	return parser.New(toks, dl).ParseProgram(), dl
}

func defineOne(t *testing.T, src string) (*ast.MacroDefinition, *diag.List) {
	t.Helper()
	stmts, dl := parseProgram(t, src)
	require.False(t, dl.HasErrors())
	require.Len(t, stmts, 1)
	def, ok := stmts[0].(*ast.MacroDefinition)
	require.True(t, ok)
	return def, dl
}

func TestMacro_ArityExact(t *testing.T) {
	def, _ := defineOne(t, "macro add2 a, b\n  db a, b\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)
	require.False(t, dl.HasErrors())

	inv := &ast.MacroInvocation{Name: "add2", Args: []ast.Expr{&ast.NumberLiteral{Value: 1}, &ast.NumberLiteral{Value: 2}}}
	exp := macro.NewExpander(table, dl)
	out := exp.Expand(inv)
	require.False(t, dl.HasErrors())
	require.Len(t, out, 1)
	dir := out[0].(*ast.Directive)
	require.Equal(t, int64(1), dir.Args[0].(*ast.NumberLiteral).Value)
	require.Equal(t, int64(2), dir.Args[1].(*ast.NumberLiteral).Value)
}

func TestMacro_DefaultArgumentUsedWhenOmitted(t *testing.T) {
	def, _ := defineOne(t, "macro withdefault a, b=5\n  db a, b\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)

	inv := &ast.MacroInvocation{Name: "withdefault", Args: []ast.Expr{&ast.NumberLiteral{Value: 9}}}
	exp := macro.NewExpander(table, dl)
	out := exp.Expand(inv)
	require.False(t, dl.HasErrors())
	dir := out[0].(*ast.Directive)
	require.Equal(t, int64(9), dir.Args[0].(*ast.NumberLiteral).Value)
	require.Equal(t, int64(5), dir.Args[1].(*ast.NumberLiteral).Value)
}

func TestMacro_TooFewArgumentsIsError(t *testing.T) {
	def, _ := defineOne(t, "macro need2 a, b\n  db a, b\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)

	inv := &ast.MacroInvocation{Name: "need2", Args: []ast.Expr{&ast.NumberLiteral{Value: 1}}}
	exp := macro.NewExpander(table, dl)
	exp.Expand(inv)
	require.True(t, dl.HasErrors())
}

func TestMacro_TooManyArgumentsIsError(t *testing.T) {
	def, _ := defineOne(t, "macro need1 a\n  db a\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)

	inv := &ast.MacroInvocation{Name: "need1", Args: []ast.Expr{&ast.NumberLiteral{Value: 1}, &ast.NumberLiteral{Value: 2}}}
	exp := macro.NewExpander(table, dl)
	exp.Expand(inv)
	require.True(t, dl.HasErrors())
}

func TestMacro_UndefinedMacroIsError(t *testing.T) {
	table := macro.NewTable()
	dl := &diag.List{}
	exp := macro.NewExpander(table, dl)
	exp.Expand(&ast.MacroInvocation{Name: "nope"})
	require.True(t, dl.HasErrors())
}

func TestMacro_DuplicateDefinitionIsError(t *testing.T) {
	def1, _ := defineOne(t, "macro dup a\n  db a\nendmacro\n")
	def2, _ := defineOne(t, "macro dup a\n  db a\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def1, dl)
	require.False(t, dl.HasErrors())
	table.Define(def2, dl)
	require.True(t, dl.HasErrors())
}

func TestMacro_LocalLabelsAreHygienicallyRenamedPerExpansion(t *testing.T) {
	def, _ := defineOne(t, "macro loop n\n.top:\n  nop\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)
	exp := macro.NewExpander(table, dl)

	out1 := exp.Expand(&ast.MacroInvocation{Name: "loop", Args: []ast.Expr{&ast.NumberLiteral{Value: 1}}})
	out2 := exp.Expand(&ast.MacroInvocation{Name: "loop", Args: []ast.Expr{&ast.NumberLiteral{Value: 2}}})
	require.False(t, dl.HasErrors())

	name1 := out1[0].(*ast.Label).Name
	name2 := out2[0].(*ast.Label).Name
	require.NotEqual(t, name1, name2)
	require.Contains(t, name1, "loop@top_")
	require.Contains(t, name2, "loop@top_")
}

func TestMacro_RecursiveInvocationIsError(t *testing.T) {
	def, _ := defineOne(t, "macro rec n\n  @rec n\nendmacro\n")
	table := macro.NewTable()
	dl := &diag.List{}
	table.Define(def, dl)
	exp := macro.NewExpander(table, dl)

	exp.Expand(&ast.MacroInvocation{Name: "rec", Args: []ast.Expr{&ast.NumberLiteral{Value: 1}}})
	require.True(t, dl.HasErrors())
}
