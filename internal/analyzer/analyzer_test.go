package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/analyzer"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/lexer"
	"github.com/db47h/retroasm/internal/parser"

	_ "github.com/db47h/retroasm/internal/arch/mos6502"
	_ "github.com/db47h/retroasm/internal/arch/sm83"
	_ "github.com/db47h/retroasm/internal/arch/wdc65816"
	_ "github.com/db47h/retroasm/internal/arch/z80"
)

func analyze(t *testing.T, src, defaultTarget string) (*analyzer.Result, *diag.List) {
	t.Helper()
	dl := &diag.List{}
	toks := lexer.New(src, "test.asm").All()
	stmts := parser.New(toks, dl).ParseProgram()
	require.False(t, dl.HasErrors(), "parse errors: %v", dl.Errors)
	a := analyzer.New(defaultTarget, dl)
	return a.Analyze(stmts), dl
}

func firstChunkByte(t *testing.T, res *analyzer.Result, addr int64) byte {
	t.Helper()
	for _, c := range res.Chunks {
		if addr >= c.Address && addr < c.Address+int64(len(c.Data)) {
			return c.Data[addr-c.Address]
		}
	}
	t.Fatalf("no chunk covers address %#x", addr)
	return 0
}

// spec.md §8 scenario 1: forward reference resolution.
func TestAnalyzer_ForwardReferenceResolution(t *testing.T) {
	res, dl := analyze(t, "jmp dest\ndest:\n", "mos6502")
	require.False(t, dl.HasErrors())
	require.Len(t, res.Chunks, 1)
	c := res.Chunks[0]
	require.Equal(t, int64(0), c.Address)
	require.Equal(t, []byte{0x4c, 0x03, 0x00}, c.Data)
}

// spec.md §8 scenario 2: 65816 immediate size follows the M flag.
func TestAnalyzer_ImmediateSizeFollowsMFlag(t *testing.T) {
	res, dl := analyze(t, ".target snes\n rep #$20\n lda #$1234\n", "")
	require.False(t, dl.HasErrors())
	require.Len(t, res.Chunks, 1)
	// rep #$20 (2 bytes) then a 3-byte 16-bit lda immediate.
	require.Equal(t, []byte{0xc2, 0x20, 0xa9, 0x34, 0x12}, res.Chunks[0].Data)
}

// spec.md §8 scenario 3: anonymous forward/backward branch.
func TestAnalyzer_AnonymousBackwardBranch(t *testing.T) {
	src := ".org $8000\n-\n  dex\n  bne -\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Len(t, res.Chunks, 1)
	require.Equal(t, int64(0x8000), res.Chunks[0].Address)
	// dex (0xca) at $8000; bne - at $8001 branches back to $8000: offset is
	// target - (currentAddress + 2) = 0x8000 - 0x8003 = -3.
	require.Equal(t, []byte{0xca, 0xd0, 0xfd}, res.Chunks[0].Data)
}

// spec.md §8 scenario 4: assert on address.
func TestAnalyzer_AssertOnAddressPasses(t *testing.T) {
	src := ".org $8000\n nop\n nop\n nop\n assert * == $8003, \"off\"\n"
	_, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
}

func TestAnalyzer_AssertOnAddressFails(t *testing.T) {
	src := ".org $8000\n nop\n nop\n nop\n assert * == $8004, \"off\"\n"
	_, dl := analyze(t, src, "mos6502")
	require.True(t, dl.HasErrors())
	require.Contains(t, dl.Errors[0].Message, "off")
	require.Equal(t, diag.AssertFailed, dl.Errors[0].Kind)
}

// spec.md §8 scenario 5: macro hygiene, each expansion gets distinct labels.
func TestAnalyzer_MacroHygieneDistinctLabels(t *testing.T) {
	src := "" +
		".macro pair\n" +
		"@loop: nop\n" +
		"       jmp @loop\n" +
		".endmacro\n" +
		"@pair\n" +
		"@pair\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Len(t, res.Chunks, 1)
	// Each expansion: nop (1) + jmp abs (3) = 4 bytes; the jmp in each
	// expansion targets its own loop label (address 0 and 4 respectively).
	require.Equal(t, []byte{0xea, 0x4c, 0x00, 0x00, 0xea, 0x4c, 0x04, 0x00}, res.Chunks[0].Data)
}

// spec.md §8 scenario 6: undefined symbol.
func TestAnalyzer_UndefinedSymbol(t *testing.T) {
	res, dl := analyze(t, "jmp nowhere\n", "mos6502")
	require.True(t, dl.HasErrors())
	require.Nil(t, res.Chunks)
}

func TestAnalyzer_TargetConflictIsAnError(t *testing.T) {
	_, dl := analyze(t, ".target nes\n.target snes\n", "")
	require.True(t, dl.HasErrors())
}

func TestAnalyzer_TargetIdempotentSucceeds(t *testing.T) {
	_, dl := analyze(t, ".target snes\n.target snes\n", "")
	require.False(t, dl.HasErrors())
}

func TestAnalyzer_EquVisibleBeforeTextualDefinition(t *testing.T) {
	src := "lda #count\nequ count, 5\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Equal(t, byte(5), firstChunkByte(t, res, 1))
}

func TestAnalyzer_DataDirectivesAdvanceAddress(t *testing.T) {
	src := ".org $1000\n db 1,2,3\n dw $1234\n db \"hi\"\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Equal(t, []byte{1, 2, 3, 0x34, 0x12, 'h', 'i'}, res.Chunks[0].Data)
}

func TestAnalyzer_RepeatExecutesBodyCountTimes(t *testing.T) {
	src := ".rept 3\n nop\n.endr\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Equal(t, []byte{0xea, 0xea, 0xea}, res.Chunks[0].Data)
}

func TestAnalyzer_ConditionalIfdefTakesDefinedBranch(t *testing.T) {
	src := "define flag\n.ifdef flag\n nop\n.else\n brk\n.endif\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Equal(t, []byte{0xea}, res.Chunks[0].Data)
}

func TestAnalyzer_NoTargetSelectedIsAnError(t *testing.T) {
	_, dl := analyze(t, "nop\n", "")
	require.True(t, dl.HasErrors())
}

// spec.md §4.2: a plain .if condition treats an undefined operand as 0
// rather than making the whole test absent (unlike .ifdef, this is a normal
// expression, not an IfdefTest node).
func TestAnalyzer_IfTreatsUndefinedOperandAsZero(t *testing.T) {
	src := ".if undefined == 0\n nop\n.else\n brk\n.endif\n"
	res, dl := analyze(t, src, "mos6502")
	require.False(t, dl.HasErrors())
	require.Equal(t, []byte{0xea}, res.Chunks[0].Data)
}

// spec.md §3: redefining a global label is always an error, even when the
// second definition only appears because a .rept body executes twice —
// .rept is pass-2-only, so the duplicate must be caught there rather than
// being mistaken for pass 2's routine revisit of a pass-1-defined label.
func TestAnalyzer_DuplicateGlobalLabelInRepeatIsAnError(t *testing.T) {
	src := ".rept 2\nloop: nop\n.endr\n"
	_, dl := analyze(t, src, "mos6502")
	require.True(t, dl.HasErrors())
	require.Equal(t, diag.DuplicateSymbol, dl.Errors[0].Kind)
}
