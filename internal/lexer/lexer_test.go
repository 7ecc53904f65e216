package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/lexer"
	"github.com/db47h/retroasm/internal/token"
)

func typesOf(toks []token.Token) []token.Type {
	var out []token.Type
	for _, tk := range toks {
		out = append(out, tk.Type)
	}
	return out
}

func TestLexer_BasicInstruction(t *testing.T) {
	l := lexer.New("lda.w $1234, x\n", "test.asm")
	toks := l.All()
	require.Empty(t, l.Errors)
	require.Equal(t, []token.Type{
		token.Ident,  // lda.w
		token.Number, // $1234
		token.Comma,
		token.Ident, // x
		token.Newline,
		token.EOF,
	}, typesOf(toks))
	require.Equal(t, "lda.w", toks[0].Text)
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"$1A2B", "$1A2B"},
		{"%1011", "%1011"},
		{"0", "0"},
	}
	for _, tt := range tests {
		l := lexer.New(tt.input, "t.asm")
		tok := l.Next()
		require.Equal(t, token.Number, tok.Type, tt.input)
		require.Equal(t, tt.want, tok.Text, tt.input)
	}
}

func TestLexer_PercentAloneIsOperator(t *testing.T) {
	l := lexer.New("10 % 3", "t.asm")
	toks := l.All()
	require.Equal(t, []token.Type{token.Number, token.Percent, token.Number, token.EOF}, typesOf(toks))
}

func TestLexer_DollarAloneIsCurrentAddressIdent(t *testing.T) {
	l := lexer.New("$ + 2", "t.asm")
	toks := l.All()
	require.Equal(t, token.Ident, toks[0].Type)
	require.Equal(t, "$", toks[0].Text)
}

func TestLexer_LocalAndScopeLabels(t *testing.T) {
	l := lexer.New(".loop\n@scoped", "t.asm")
	toks := l.All()
	require.Equal(t, token.Ident, toks[0].Type)
	require.Equal(t, ".loop", toks[0].Text)
	require.Equal(t, token.Ident, toks[2].Type)
	require.Equal(t, "@scoped", toks[2].Text)
}

func TestLexer_AnonymousLabelRuns(t *testing.T) {
	l := lexer.New("bne -\nbeq ++\n", "t.asm")
	toks := l.All()
	require.Equal(t, []token.Type{
		token.Ident, token.Minus, token.Newline,
		token.Ident, token.Plus, token.Plus, token.Newline,
		token.EOF,
	}, typesOf(toks))
}

func TestLexer_LineComment(t *testing.T) {
	l := lexer.New("lda #1 ; a comment\nsta $10\n", "t.asm")
	toks := l.All()
	require.Equal(t, []token.Type{
		token.Ident, token.Hash, token.Number, token.Newline,
		token.Ident, token.Number, token.Newline, token.EOF,
	}, typesOf(toks))
}

func TestLexer_StringLiteralNoEscapes(t *testing.T) {
	l := lexer.New(`"hello\nworld"`, "t.asm")
	tok := l.Next()
	require.Equal(t, token.String, tok.Type)
	require.Equal(t, `hello\nworld`, tok.Text)
}

func TestLexer_CharLiteral(t *testing.T) {
	l := lexer.New(`'A'`, "t.asm")
	tok := l.Next()
	require.Equal(t, token.Number, tok.Type)
	require.Equal(t, "'A'", tok.Text)
}

func TestLexer_Operators(t *testing.T) {
	l := lexer.New("<< >> == != <= >= && || = < > ^ ~ !", "t.asm")
	toks := l.All()
	require.Equal(t, []token.Type{
		token.Shl, token.Shr, token.Eq, token.Ne, token.Le, token.Ge,
		token.LogAnd, token.LogOr, token.Assign, token.Lt, token.Gt,
		token.Caret, token.Tilde, token.Bang, token.EOF,
	}, typesOf(toks))
}

func TestLexer_UnterminatedStringReportsError(t *testing.T) {
	l := lexer.New(`"unterminated`, "t.asm")
	l.Next()
	require.NotEmpty(t, l.Errors)
}
