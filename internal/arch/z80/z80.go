// Package z80 implements the arch.Backend for the Zilog Z80, grounded on
// the opcode layout documented in retrogolib's arch/cpu/z80 package: 8-bit
// register-to-register and accumulator-op forms follow a regular
// "opcode-base + register-index" formula there (visible in the 0x40-0x7F
// LD r,r' block's sequential opcode comments), which this backend expresses
// as a formula over a register index table rather than transcribing all 64
// combinations by hand.
package z80

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/ast"
)

func init() {
	arch.Register(func() arch.Backend { return New() }, "z80")
}

// reg8Index orders the Z80's eight-bit registers the way the opcode grid
// does: b,c,d,e,h,l,(hl),a. Index 6 is reserved for the (hl) memory form
// and never appears as a Register-mode operand.
var reg8Index = map[string]int{
	"b": 0, "c": 1, "d": 2, "e": 3, "h": 4, "l": 5, "a": 7,
}

type fixedEntry struct {
	opcode []byte
	length byte
}

var implied = map[string]fixedEntry{
	"nop": {[]byte{0x00}, 1}, "halt": {[]byte{0x76}, 1},
	"rlca": {[]byte{0x07}, 1}, "rrca": {[]byte{0x0f}, 1},
	"rla": {[]byte{0x17}, 1}, "rra": {[]byte{0x1f}, 1},
	"daa": {[]byte{0x27}, 1}, "cpl": {[]byte{0x2f}, 1},
	"scf": {[]byte{0x37}, 1}, "ccf": {[]byte{0x3f}, 1},
	"ret": {[]byte{0xc9}, 1}, "exx": {[]byte{0xd9}, 1},
	"di": {[]byte{0xf3}, 1}, "ei": {[]byte{0xfb}, 1},
	"ex af,af'": {[]byte{0x08}, 1},
	"ex de,hl":  {[]byte{0xeb}, 1},
	"ex (sp),hl": {[]byte{0xe3}, 1},
}

// accumOpBase maps a mnemonic accepting an 8-bit register or immediate
// operand to its register-form opcode base (added to reg8Index) and its
// immediate-form opcode.
var accumOpBase = map[string]struct{ regBase, immOpcode byte }{
	"add": {0x80, 0xc6}, "adc": {0x88, 0xce},
	"sub": {0x90, 0xd6}, "sbc": {0x98, 0xde},
	"and": {0xa0, 0xe6}, "xor": {0xa8, 0xee},
	"or":  {0xb0, 0xf6}, "cp":  {0xb8, 0xfe},
}

var jumpRelative = map[string]byte{
	"jr": 0x18, // unconditional; conditional forms carried via mnemonic e.g. "jr.nz"
}

var relativeConditional = map[string]byte{
	"jr.nz": 0x20, "jr.z": 0x28, "jr.nc": 0x30, "jr.c": 0x38,
	"djnz": 0x10,
}

// Backend is the Z80 arch.Backend.
type Backend struct{}

// New creates a Backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "z80" }

func (b *Backend) Size(mnemonic string, sizeSuffix byte, mode ast.AddressingMode, flags arch.Flags) (int, error) {
	if mode == ast.Relative {
		bytes, err := b.encodeRelative(mnemonic, 0, 0)
		if err != nil {
			return 0, err
		}
		return len(bytes), nil
	}
	bytes, err := b.encode(mnemonic, mode, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(bytes), nil
}

func (b *Backend) Encode(mnemonic string, mode ast.AddressingMode, operand, operand2 int64, flags arch.Flags, currentAddress int64) ([]byte, error) {
	if mode == ast.Relative {
		return b.encodeRelative(mnemonic, operand, currentAddress)
	}
	return b.encode(mnemonic, mode, operand, operand2, currentAddress)
}

func (b *Backend) encodeRelative(mnemonic string, operand, currentAddress int64) ([]byte, error) {
	m := strings.ToLower(mnemonic)
	opcode, ok := jumpRelative[m]
	if !ok {
		opcode, ok = relativeConditional[m]
	}
	if !ok {
		return nil, arch.ErrUnknownMnemonic(mnemonic)
	}
	offset := operand - (currentAddress + 2)
	if offset < -128 || offset > 127 {
		return nil, fmt.Errorf("%s: branch target out of range (offset %d)", mnemonic, offset)
	}
	return []byte{opcode, byte(int8(offset))}, nil
}

func (b *Backend) encode(mnemonic string, mode ast.AddressingMode, operand, operand2, currentAddress int64) ([]byte, error) {
	m := strings.ToLower(mnemonic)

	if mode == ast.Implied {
		if e, ok := implied[m]; ok {
			return e.opcode, nil
		}
		return nil, arch.ErrUnsupportedMode(mnemonic, mode)
	}

	switch m {
	case "ld":
		return b.encodeLd(mode, operand, operand2)
	case "jp":
		if mode != ast.Absolute {
			return nil, arch.ErrUnsupportedMode(mnemonic, mode)
		}
		return []byte{0xc3, byte(operand), byte(operand >> 8)}, nil
	case "call":
		if mode != ast.Absolute {
			return nil, arch.ErrUnsupportedMode(mnemonic, mode)
		}
		return []byte{0xcd, byte(operand), byte(operand >> 8)}, nil
	case "inc", "dec":
		return b.encodeIncDec(m, mode, operand)
	}

	if base, ok := accumOpBase[m]; ok {
		switch mode {
		case ast.Register:
			idx, err := regIndex(operand)
			if err != nil {
				return nil, err
			}
			return []byte{base.regBase + byte(idx)}, nil
		case ast.Immediate:
			return []byte{base.immOpcode, byte(operand)}, nil
		}
		return nil, arch.ErrUnsupportedMode(mnemonic, mode)
	}

	return nil, arch.ErrUnknownMnemonic(mnemonic)
}

// regIndex reencodes a register-name operand folded into an int64 (the
// register's reg8Index value, see RegisterIndex) back to that index, for
// ast.Register-mode instructions whose register is the sole variable.
func regIndex(operand int64) (int, error) {
	if operand < 0 || operand > 7 || operand == 6 {
		return 0, fmt.Errorf("invalid 8-bit register index %d", operand)
	}
	return int(operand), nil
}

func (b *Backend) encodeLd(mode ast.AddressingMode, operand, operand2 int64) ([]byte, error) {
	switch mode {
	case ast.Register:
		dst, err := regIndex(operand)
		if err != nil {
			return nil, err
		}
		src, err := regIndex(operand2)
		if err != nil {
			return nil, err
		}
		return []byte{0x40 + byte(dst*8) + byte(src)}, nil
	case ast.Immediate:
		// ld r,n: operand carries the destination register index, operand2
		// the immediate value.
		dst, err := regIndex(operand)
		if err != nil {
			return nil, err
		}
		return []byte{0x06 + byte(dst*8), byte(operand2)}, nil
	default:
		return nil, arch.ErrUnsupportedMode("ld", mode)
	}
}

func (b *Backend) encodeIncDec(mnemonic string, mode ast.AddressingMode, operand int64) ([]byte, error) {
	base := byte(0x04)
	if mnemonic == "dec" {
		base = 0x05
	}
	if mode != ast.Register {
		return nil, arch.ErrUnsupportedMode(mnemonic, mode)
	}
	idx, err := regIndex(operand)
	if err != nil {
		return nil, err
	}
	return []byte{base + byte(idx*8)}, nil
}

func (b *Backend) UpdateFlags(mnemonic string, mode ast.AddressingMode, operand int64, flags arch.Flags) arch.Flags {
	return flags
}

// RegisterIndex exposes reg8Index, translating a register name into the
// operand value this backend's Register-mode Encode expects. The analyzer
// does not call it: the parser never produces ast.Register.
func RegisterIndex(name string) (int, bool) {
	idx, ok := reg8Index[strings.ToLower(name)]
	return idx, ok
}
