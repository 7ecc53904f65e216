package mos6502_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/arch/mos6502"
	"github.com/db47h/retroasm/internal/ast"
)

func TestMos6502_RegisteredUnderAliases(t *testing.T) {
	for _, name := range []string{"mos6502", "6507", "65sc02"} {
		b, ok := arch.Get(name)
		require.True(t, ok, name)
		require.NotEmpty(t, b.Name())
	}
}

func TestMos6502_AbsoluteJMPSizeAndEncode(t *testing.T) {
	b := mos6502.New(false)
	size, err := b.Size("jmp", 0, ast.Absolute, arch.Flags{})
	require.NoError(t, err)
	require.Equal(t, 3, size)

	bytes, err := b.Encode("jmp", ast.Absolute, 0x0003, 0, arch.Flags{}, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x4c, 0x03, 0x00}, bytes)
}

func TestMos6502_ImmediateLDA(t *testing.T) {
	b := mos6502.New(false)
	bytes, err := b.Encode("lda", ast.Immediate, 0x10, 0, arch.Flags{}, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0xa9, 0x10}, bytes)
}

func TestMos6502_BranchEncodesSigned8BitOffset(t *testing.T) {
	b := mos6502.New(false)
	// .org $8000; - : dex; bne - -- branch target is $8000, current address
	// of the bne instruction is $8001, so offset = $8000-($8001+2) = -3.
	bytes, err := b.Encode("bne", ast.Relative, 0x8000, 0, arch.Flags{}, 0x8001)
	require.NoError(t, err)
	require.Equal(t, byte(0xd0), bytes[0])
	require.Equal(t, int8(-3), int8(bytes[1]))
}

func TestMos6502_BranchOutOfRangeIsError(t *testing.T) {
	b := mos6502.New(false)
	_, err := b.Encode("bne", ast.Relative, 0x9000, 0, arch.Flags{}, 0x8000)
	require.Error(t, err)
}

func TestMos6502_CMOSOnlyOpcodeRejectedOnPlainNMOS(t *testing.T) {
	b := mos6502.New(false)
	_, err := b.Size("stz", 0, ast.ZeroPage, arch.Flags{})
	require.Error(t, err)

	cmos := mos6502.New(true)
	size, err := cmos.Size("stz", 0, ast.ZeroPage, arch.Flags{})
	require.NoError(t, err)
	require.Equal(t, 2, size)
}

func TestMos6502_UnknownMnemonicIsError(t *testing.T) {
	b := mos6502.New(false)
	_, err := b.Size("frobnicate", 0, ast.Implied, arch.Flags{})
	require.Error(t, err)
}

func TestMos6502_ResolveModePicksZeroPageWhenOperandFits(t *testing.T) {
	b := mos6502.New(false)
	require.Equal(t, ast.ZeroPage, b.ResolveMode("lda", 0, 0x10, ""))
	require.Equal(t, ast.Absolute, b.ResolveMode("lda", 0, 0x1234, ""))
	require.Equal(t, ast.Absolute, b.ResolveMode("lda", 'w', 0x10, ""))
	require.Equal(t, ast.ZeroPageX, b.ResolveMode("lda", 0, 0x10, "x"))
	require.Equal(t, ast.AbsoluteY, b.ResolveMode("lda", 0, 0x1234, "y"))
}
