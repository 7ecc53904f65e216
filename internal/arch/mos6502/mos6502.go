// Package mos6502 implements the arch.Backend for the MOS 6502 family
// (NMOS 6502, and the 65C02 superset as "65sc02"), grounded on the opcode
// table of beevik/go6502's instructions.go — the same (symbol, mode,
// opcode, length) shape, reduced to what assembly needs (no cycle counts,
// no cmos/nmos implementation functions) and keyed by this module's
// ast.AddressingMode instead of go6502's parallel Mode enum.
package mos6502

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/ast"
)

func init() {
	arch.Register(func() arch.Backend { return New(false) }, "mos6502")
	arch.Register(func() arch.Backend { return &Backend{name: "6507"} }, "6507")
	arch.Register(func() arch.Backend { return New(true) }, "65sc02")
}

type opcodeEntry struct {
	opcode byte
	length byte
	cmos   bool
}

// table maps MNEMONIC -> addressing mode -> opcode/length, covering every
// (symbol, mode) pair of the go6502 reference table, both NMOS and the
// CMOS-only additions (STZ, BRA, PHX/PHY/PLX/PLY, TRB/TSB, the extra
// BIT/INC/DEC/JMP forms).
var table = map[string]map[ast.AddressingMode]opcodeEntry{
	"lda": {
		ast.Immediate: {0xa9, 2, false}, ast.ZeroPage: {0xa5, 2, false}, ast.ZeroPageX: {0xb5, 2, false},
		ast.Absolute: {0xad, 3, false}, ast.AbsoluteX: {0xbd, 3, false}, ast.AbsoluteY: {0xb9, 3, false},
		ast.IndexedIndirect: {0xa1, 2, false}, ast.IndirectIndexed: {0xb1, 2, false}, ast.Indirect: {0xb2, 2, true},
	},
	"ldx": {
		ast.Immediate: {0xa2, 2, false}, ast.ZeroPage: {0xa6, 2, false}, ast.ZeroPageY: {0xb6, 2, false},
		ast.Absolute: {0xae, 3, false}, ast.AbsoluteY: {0xbe, 3, false},
	},
	"ldy": {
		ast.Immediate: {0xa0, 2, false}, ast.ZeroPage: {0xa4, 2, false}, ast.ZeroPageX: {0xb4, 2, false},
		ast.Absolute: {0xac, 3, false}, ast.AbsoluteX: {0xbc, 3, false},
	},
	"sta": {
		ast.ZeroPage: {0x85, 2, false}, ast.ZeroPageX: {0x95, 2, false}, ast.Absolute: {0x8d, 3, false},
		ast.AbsoluteX: {0x9d, 3, false}, ast.AbsoluteY: {0x99, 3, false},
		ast.IndexedIndirect: {0x81, 2, false}, ast.IndirectIndexed: {0x91, 2, false}, ast.Indirect: {0x92, 2, true},
	},
	"stx": {ast.ZeroPage: {0x86, 2, false}, ast.ZeroPageY: {0x97, 2, false}, ast.Absolute: {0x8e, 3, false}},
	"sty": {ast.ZeroPage: {0x84, 2, false}, ast.ZeroPageX: {0x94, 2, false}, ast.Absolute: {0x8c, 3, false}},
	"stz": {
		ast.ZeroPage: {0x64, 2, true}, ast.ZeroPageX: {0x74, 2, true},
		ast.Absolute: {0x9c, 3, true}, ast.AbsoluteX: {0x9e, 3, true},
	},
	"adc": {
		ast.Immediate: {0x69, 2, false}, ast.ZeroPage: {0x65, 2, false}, ast.ZeroPageX: {0x75, 2, false},
		ast.Absolute: {0x6d, 3, false}, ast.AbsoluteX: {0x7d, 3, false}, ast.AbsoluteY: {0x79, 3, false},
		ast.IndexedIndirect: {0x61, 2, false}, ast.IndirectIndexed: {0x71, 2, false}, ast.Indirect: {0x72, 2, true},
	},
	"sbc": {
		ast.Immediate: {0xe9, 2, false}, ast.ZeroPage: {0xe5, 2, false}, ast.ZeroPageX: {0xf5, 2, false},
		ast.Absolute: {0xed, 3, false}, ast.AbsoluteX: {0xfd, 3, false}, ast.AbsoluteY: {0xf9, 3, false},
		ast.IndexedIndirect: {0xe1, 2, false}, ast.IndirectIndexed: {0xf1, 2, false}, ast.Indirect: {0xf2, 2, true},
	},
	"cmp": {
		ast.Immediate: {0xc9, 2, false}, ast.ZeroPage: {0xc5, 2, false}, ast.ZeroPageX: {0xd5, 2, false},
		ast.Absolute: {0xcd, 3, false}, ast.AbsoluteX: {0xdd, 3, false}, ast.AbsoluteY: {0xd9, 3, false},
		ast.IndexedIndirect: {0xc1, 2, false}, ast.IndirectIndexed: {0xd1, 2, false}, ast.Indirect: {0xd2, 2, true},
	},
	"cpx": {ast.Immediate: {0xe0, 2, false}, ast.ZeroPage: {0xe4, 2, false}, ast.Absolute: {0xec, 3, false}},
	"cpy": {ast.Immediate: {0xc0, 2, false}, ast.ZeroPage: {0xc4, 2, false}, ast.Absolute: {0xcc, 3, false}},
	"bit": {
		ast.Immediate: {0x89, 2, true}, ast.ZeroPage: {0x24, 2, false}, ast.ZeroPageX: {0x34, 2, true},
		ast.Absolute: {0x2c, 3, false}, ast.AbsoluteX: {0x3c, 3, true},
	},
	"clc": {ast.Implied: {0x18, 1, false}}, "sec": {ast.Implied: {0x38, 1, false}},
	"cli": {ast.Implied: {0x58, 1, false}}, "sei": {ast.Implied: {0x78, 1, false}},
	"cld": {ast.Implied: {0xd8, 1, false}}, "sed": {ast.Implied: {0xf8, 1, false}},
	"clv": {ast.Implied: {0xb8, 1, false}},
	"bcc": {ast.Relative: {0x90, 2, false}}, "bcs": {ast.Relative: {0xb0, 2, false}},
	"beq": {ast.Relative: {0xf0, 2, false}}, "bne": {ast.Relative: {0xd0, 2, false}},
	"bmi": {ast.Relative: {0x30, 2, false}}, "bpl": {ast.Relative: {0x10, 2, false}},
	"bvc": {ast.Relative: {0x50, 2, false}}, "bvs": {ast.Relative: {0x70, 2, false}},
	"bra": {ast.Relative: {0x80, 2, true}},
	"brk": {ast.Implied: {0x00, 1, false}},
	"and": {
		ast.Immediate: {0x29, 2, false}, ast.ZeroPage: {0x25, 2, false}, ast.ZeroPageX: {0x35, 2, false},
		ast.Absolute: {0x2d, 3, false}, ast.AbsoluteX: {0x3d, 3, false}, ast.AbsoluteY: {0x39, 3, false},
		ast.IndexedIndirect: {0x21, 2, false}, ast.IndirectIndexed: {0x31, 2, false}, ast.Indirect: {0x32, 2, true},
	},
	"ora": {
		ast.Immediate: {0x09, 2, false}, ast.ZeroPage: {0x05, 2, false}, ast.ZeroPageX: {0x15, 2, false},
		ast.Absolute: {0x0d, 3, false}, ast.AbsoluteX: {0x1d, 3, false}, ast.AbsoluteY: {0x19, 3, false},
		ast.IndexedIndirect: {0x01, 2, false}, ast.IndirectIndexed: {0x11, 2, false}, ast.Indirect: {0x12, 2, true},
	},
	"eor": {
		ast.Immediate: {0x49, 2, false}, ast.ZeroPage: {0x45, 2, false}, ast.ZeroPageX: {0x55, 2, false},
		ast.Absolute: {0x4d, 3, false}, ast.AbsoluteX: {0x5d, 3, false}, ast.AbsoluteY: {0x59, 3, false},
		ast.IndexedIndirect: {0x41, 2, false}, ast.IndirectIndexed: {0x51, 2, false}, ast.Indirect: {0x52, 2, true},
	},
	"inc": {
		ast.ZeroPage: {0xe6, 2, false}, ast.ZeroPageX: {0xf6, 2, false},
		ast.Absolute: {0xee, 3, false}, ast.AbsoluteX: {0xfe, 3, false}, ast.Accumulator: {0x1a, 1, true},
	},
	"dec": {
		ast.ZeroPage: {0xc6, 2, false}, ast.ZeroPageX: {0xd6, 2, false},
		ast.Absolute: {0xce, 3, false}, ast.AbsoluteX: {0xde, 3, false}, ast.Accumulator: {0x3a, 1, true},
	},
	"inx": {ast.Implied: {0xe8, 1, false}}, "iny": {ast.Implied: {0xc8, 1, false}},
	"dex": {ast.Implied: {0xca, 1, false}}, "dey": {ast.Implied: {0x88, 1, false}},
	"jmp": {ast.Absolute: {0x4c, 3, false}, ast.AbsoluteX: {0x7c, 3, true}, ast.Indirect: {0x6c, 3, false}},
	"jsr": {ast.Absolute: {0x20, 3, false}},
	"rts": {ast.Implied: {0x60, 1, false}},
	"rti": {ast.Implied: {0x40, 1, false}},
	"nop": {ast.Implied: {0xea, 1, false}},
	"tax": {ast.Implied: {0xaa, 1, false}}, "txa": {ast.Implied: {0x8a, 1, false}},
	"tay": {ast.Implied: {0xa8, 1, false}}, "tya": {ast.Implied: {0x98, 1, false}},
	"txs": {ast.Implied: {0x9a, 1, false}}, "tsx": {ast.Implied: {0xba, 1, false}},
	"trb": {ast.ZeroPage: {0x14, 2, true}, ast.Absolute: {0x1c, 3, true}},
	"tsb": {ast.ZeroPage: {0x04, 2, true}, ast.Absolute: {0x0c, 3, true}},
	"pha": {ast.Implied: {0x48, 1, false}}, "pla": {ast.Implied: {0x68, 1, false}},
	"php": {ast.Implied: {0x08, 1, false}}, "plp": {ast.Implied: {0x28, 1, false}},
	"phx": {ast.Implied: {0xda, 1, true}}, "plx": {ast.Implied: {0xfa, 1, true}},
	"phy": {ast.Implied: {0x5a, 1, true}}, "ply": {ast.Implied: {0x7a, 1, true}},
	"asl": {
		ast.Accumulator: {0x0a, 1, false}, ast.ZeroPage: {0x06, 2, false}, ast.ZeroPageX: {0x16, 2, false},
		ast.Absolute: {0x0e, 3, false}, ast.AbsoluteX: {0x1e, 3, false},
	},
	"lsr": {
		ast.Accumulator: {0x4a, 1, false}, ast.ZeroPage: {0x46, 2, false}, ast.ZeroPageX: {0x56, 2, false},
		ast.Absolute: {0x4e, 3, false}, ast.AbsoluteX: {0x5e, 3, false},
	},
	"rol": {
		ast.Accumulator: {0x2a, 1, false}, ast.ZeroPage: {0x26, 2, false}, ast.ZeroPageX: {0x36, 2, false},
		ast.Absolute: {0x2e, 3, false}, ast.AbsoluteX: {0x3e, 3, false},
	},
	"ror": {
		ast.Accumulator: {0x6a, 1, false}, ast.ZeroPage: {0x66, 2, false}, ast.ZeroPageX: {0x76, 2, false},
		ast.Absolute: {0x6e, 3, false}, ast.AbsoluteX: {0x7e, 3, false},
	},
}

// branchMnemonics always total 2 bytes regardless of target distance
// (spec.md §4.4), encoded as a PC-relative signed 8-bit offset.
var branchMnemonics = map[string]bool{
	"bcc": true, "bcs": true, "beq": true, "bmi": true, "bne": true,
	"bpl": true, "bvc": true, "bvs": true, "bra": true,
}

// Backend is the MOS 6502-family arch.Backend. cmos selects the 65C02
// instruction superset ("65sc02"); false gives plain NMOS 6502 ("mos6502",
// "6507" — the 6507's restricted 13 address lines is a memory-map concern
// for the ROM builder, not an encoding difference).
type Backend struct {
	cmos bool
	name string // target name reported by Name when set ("6507")
}

// New creates a Backend. cmos enables the 65C02-only opcodes.
func New(cmos bool) *Backend { return &Backend{cmos: cmos} }

func (b *Backend) Name() string {
	if b.name != "" {
		return b.name
	}
	if b.cmos {
		return "65sc02"
	}
	return "mos6502"
}

func (b *Backend) lookup(mnemonic string, mode ast.AddressingMode) (opcodeEntry, error) {
	m := strings.ToLower(mnemonic)
	modes, ok := table[m]
	if !ok {
		return opcodeEntry{}, arch.ErrUnknownMnemonic(mnemonic)
	}
	e, ok := modes[mode]
	if !ok {
		return opcodeEntry{}, arch.ErrUnsupportedMode(mnemonic, mode)
	}
	if e.cmos && !b.cmos {
		return opcodeEntry{}, fmt.Errorf("%s: addressing mode requires 65C02", mnemonic)
	}
	return e, nil
}

// resolveDirectMode maps the parser's width-ambiguous ast.MemoryReference
// mode to ZeroPage or Absolute (and their indexed variants) based on
// whether the operand fits in 8 bits, per spec.md §4.5's implicit mode
// selection; an explicit size suffix forces the wider form.
func resolveDirectMode(mnemonic string, sizeSuffix byte, operand int64, indexReg string) ast.AddressingMode {
	wantWide := sizeSuffix == 'w'
	fitsZP := operand >= 0 && operand <= 0xff && !wantWide

	switch strings.ToLower(indexReg) {
	case "x":
		if fitsZP {
			if _, ok := table[strings.ToLower(mnemonic)][ast.ZeroPageX]; ok {
				return ast.ZeroPageX
			}
		}
		return ast.AbsoluteX
	case "y":
		if fitsZP {
			if _, ok := table[strings.ToLower(mnemonic)][ast.ZeroPageY]; ok {
				return ast.ZeroPageY
			}
		}
		return ast.AbsoluteY
	default:
		if fitsZP {
			if _, ok := table[strings.ToLower(mnemonic)][ast.ZeroPage]; ok {
				return ast.ZeroPage
			}
		}
		return ast.Absolute
	}
}

// ResolveMode exposes resolveDirectMode for the analyzer, which must pick a
// concrete mode before calling Size/Encode whenever the parser left
// ast.MemoryReference (width decided at encode time per spec.md §4.5).
func (b *Backend) ResolveMode(mnemonic string, sizeSuffix byte, operand int64, indexReg string) ast.AddressingMode {
	return resolveDirectMode(mnemonic, sizeSuffix, operand, indexReg)
}

func (b *Backend) Size(mnemonic string, _ byte, mode ast.AddressingMode, _ arch.Flags) (int, error) {
	e, err := b.lookup(mnemonic, mode)
	if err != nil {
		return 0, err
	}
	return int(e.length), nil
}

func (b *Backend) Encode(mnemonic string, mode ast.AddressingMode, operand, _ int64, _ arch.Flags, currentAddress int64) ([]byte, error) {
	e, err := b.lookup(mnemonic, mode)
	if err != nil {
		return nil, err
	}

	if branchMnemonics[strings.ToLower(mnemonic)] || mode == ast.Relative {
		offset := operand - (currentAddress + 2)
		if offset < -128 || offset > 127 {
			return nil, fmt.Errorf("%s: branch target out of range (offset %d)", mnemonic, offset)
		}
		return []byte{e.opcode, byte(int8(offset))}, nil
	}

	switch e.length {
	case 1:
		return []byte{e.opcode}, nil
	case 2:
		return []byte{e.opcode, byte(operand)}, nil
	case 3:
		return []byte{e.opcode, byte(operand), byte(operand >> 8)}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported operand length %d", mnemonic, e.length)
	}
}

func (b *Backend) UpdateFlags(_ string, _ ast.AddressingMode, _ int64, flags arch.Flags) arch.Flags {
	return flags
}
