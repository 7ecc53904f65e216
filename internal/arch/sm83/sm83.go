// Package sm83 implements the arch.Backend for the Game Boy's SM83 CPU, a
// trimmed Z80 derivative: it shares internal/arch/z80's register-to-register
// LD/ADD/SUB/AND/XOR/OR/CP encoding formula (same opcode grid) but drops the
// IX/IY index-register prefixes and the EXX/exclamation shadow-register
// instructions, and adds the Game Boy-specific LDH high-page load/store and
// STOP.
package sm83

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/arch/z80"
)

func init() {
	arch.Register(func() arch.Backend { return New() }, "sm83", "gbz80")
}

var implied = map[string]byte{
	"nop": 0x00, "halt": 0x76, "stop": 0x10,
	"rlca": 0x07, "rrca": 0x0f, "rla": 0x17, "rra": 0x1f,
	"daa": 0x27, "cpl": 0x2f, "scf": 0x37, "ccf": 0x3f,
	"ret": 0xc9, "reti": 0xd9, "di": 0xf3, "ei": 0xfb,
}

var accumOpBase = map[string]struct{ regBase, immOpcode byte }{
	"add": {0x80, 0xc6}, "adc": {0x88, 0xce},
	"sub": {0x90, 0xd6}, "sbc": {0x98, 0xde},
	"and": {0xa0, 0xe6}, "xor": {0xa8, 0xee},
	"or":  {0xb0, 0xf6}, "cp":  {0xb8, 0xfe},
}

// Backend is the SM83 arch.Backend.
type Backend struct{}

// New creates a Backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "sm83" }

func (b *Backend) Size(mnemonic string, sizeSuffix byte, mode ast.AddressingMode, flags arch.Flags) (int, error) {
	if mode == ast.Relative {
		return 2, nil
	}
	bytes, err := b.encode(mnemonic, mode, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(bytes), nil
}

func (b *Backend) Encode(mnemonic string, mode ast.AddressingMode, operand, operand2 int64, flags arch.Flags, currentAddress int64) ([]byte, error) {
	if mode == ast.Relative {
		offset := operand - (currentAddress + 2)
		if offset < -128 || offset > 127 {
			return nil, fmt.Errorf("%s: branch target out of range (offset %d)", mnemonic, offset)
		}
		opcode, ok := map[string]byte{"jr": 0x18, "jr.nz": 0x20, "jr.z": 0x28, "jr.nc": 0x30, "jr.c": 0x38}[strings.ToLower(mnemonic)]
		if !ok {
			return nil, arch.ErrUnknownMnemonic(mnemonic)
		}
		return []byte{opcode, byte(int8(offset))}, nil
	}
	return b.encode(mnemonic, mode, operand, operand2)
}

func (b *Backend) encode(mnemonic string, mode ast.AddressingMode, operand, operand2 int64) ([]byte, error) {
	m := strings.ToLower(mnemonic)

	if mode == ast.Implied {
		if opcode, ok := implied[m]; ok {
			return []byte{opcode}, nil
		}
		return nil, arch.ErrUnsupportedMode(mnemonic, mode)
	}

	switch m {
	case "ld":
		return b.encodeLd(mode, operand, operand2)
	case "ldh":
		// ldh (n),a / ldh a,(n): operand carries the 8-bit page offset,
		// operand2 selects direction (0 = store a to (0xff00+n), 1 = load).
		if mode != ast.Immediate {
			return nil, arch.ErrUnsupportedMode(mnemonic, mode)
		}
		if operand2 == 0 {
			return []byte{0xe0, byte(operand)}, nil
		}
		return []byte{0xf0, byte(operand)}, nil
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
		if mode != ast.Register {
			return nil, arch.ErrUnsupportedMode(mnemonic, mode)
		}
		idx, err := regIndex(operand)
		if err != nil {
			return nil, err
		}
		base := byte(0x04)
		if m == "dec" {
			base = 0x05
		}
		return []byte{base + byte(idx*8)}, nil
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
		dst, err := regIndex(operand)
		if err != nil {
			return nil, err
		}
		return []byte{0x06 + byte(dst*8), byte(operand2)}, nil
	default:
		return nil, arch.ErrUnsupportedMode("ld", mode)
	}
}

func (b *Backend) UpdateFlags(mnemonic string, mode ast.AddressingMode, operand int64, flags arch.Flags) arch.Flags {
	return flags
}

// RegisterIndex re-exports z80's register-name table: SM83 keeps the same
// eight-register grid.
func RegisterIndex(name string) (int, bool) { return z80.RegisterIndex(name) }
