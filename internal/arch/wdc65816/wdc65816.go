// Package wdc65816 implements the arch.Backend for the WDC 65C816, built as
// a superset of the 6502-family opcode map (mos6502's table shares the same
// direct-page/absolute/indexed opcodes) extended with the 65816's long
// addressing forms, stack-relative modes, block-move, and the rep/sep-driven
// M/X accumulator/index-width flags that change an Immediate instruction's
// operand size — the "second dynamic-sizing pass" SPEC_FULL.md calls out as
// the generalization of the teacher's adjustAddressesForDynamicPools
// technique.
package wdc65816

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/ast"
)

func init() {
	arch.Register(func() arch.Backend { return New() }, "wdc65816")
}

type opcodeEntry struct {
	opcode byte
	// length is the fixed instruction length; for the handful of
	// widthClass entries (accumulator/index Immediate forms) it is the
	// 8-bit-operand length, and Size/Encode add one more byte when the
	// controlling flag selects 16-bit.
	length byte
}

// widthClass marks an Immediate-mode mnemonic as accumulator-width (M flag)
// or index-width (X flag) controlled; mnemonics absent from this map use
// their table length unconditionally.
type widthClass int

const (
	fixedWidth widthClass = iota
	accumWidth
	indexWidth
)

var immediateWidthClass = map[string]widthClass{
	"lda": accumWidth, "adc": accumWidth, "sbc": accumWidth,
	"cmp": accumWidth, "and": accumWidth, "ora": accumWidth, "eor": accumWidth, "bit": accumWidth,
	"ldx": indexWidth, "ldy": indexWidth, "cpx": indexWidth, "cpy": indexWidth,
}

var table = map[string]map[ast.AddressingMode]opcodeEntry{
	"lda": {
		ast.Immediate: {0xa9, 2}, ast.ZeroPage: {0xa5, 2}, ast.ZeroPageX: {0xb5, 2},
		ast.Absolute: {0xad, 3}, ast.AbsoluteX: {0xbd, 3}, ast.AbsoluteY: {0xb9, 3},
		ast.IndexedIndirect: {0xa1, 2}, ast.IndirectIndexed: {0xb1, 2},
		ast.DirectPageIndirectLong: {0xa7, 2}, ast.DirectPageIndirectLongY: {0xb7, 2},
		ast.AbsoluteLong: {0xaf, 4}, ast.AbsoluteLongX: {0xbf, 4},
		ast.StackRelative: {0xa3, 2}, ast.StackRelativeIndirectIndexed: {0xb3, 2},
	},
	"sta": {
		ast.ZeroPage: {0x85, 2}, ast.ZeroPageX: {0x95, 2}, ast.Absolute: {0x8d, 3},
		ast.AbsoluteX: {0x9d, 3}, ast.AbsoluteY: {0x99, 3},
		ast.IndexedIndirect: {0x81, 2}, ast.IndirectIndexed: {0x91, 2},
		ast.DirectPageIndirectLong: {0x87, 2}, ast.DirectPageIndirectLongY: {0x97, 2},
		ast.AbsoluteLong: {0x8f, 4}, ast.AbsoluteLongX: {0x9f, 4},
		ast.StackRelative: {0x83, 2}, ast.StackRelativeIndirectIndexed: {0x93, 2},
	},
	"adc": {
		ast.Immediate: {0x69, 2}, ast.ZeroPage: {0x65, 2}, ast.ZeroPageX: {0x75, 2},
		ast.Absolute: {0x6d, 3}, ast.AbsoluteX: {0x7d, 3}, ast.AbsoluteY: {0x79, 3},
		ast.IndexedIndirect: {0x61, 2}, ast.IndirectIndexed: {0x71, 2},
		ast.AbsoluteLong: {0x6f, 4}, ast.AbsoluteLongX: {0x7f, 4},
	},
	"sbc": {
		ast.Immediate: {0xe9, 2}, ast.ZeroPage: {0xe5, 2}, ast.ZeroPageX: {0xf5, 2},
		ast.Absolute: {0xed, 3}, ast.AbsoluteX: {0xfd, 3}, ast.AbsoluteY: {0xf9, 3},
		ast.AbsoluteLong: {0xef, 4}, ast.AbsoluteLongX: {0xff, 4},
	},
	"cmp": {
		ast.Immediate: {0xc9, 2}, ast.ZeroPage: {0xc5, 2}, ast.ZeroPageX: {0xd5, 2},
		ast.Absolute: {0xcd, 3}, ast.AbsoluteX: {0xdd, 3}, ast.AbsoluteY: {0xd9, 3},
		ast.AbsoluteLong: {0xcf, 4}, ast.AbsoluteLongX: {0xdf, 4},
	},
	"and": {
		ast.Immediate: {0x29, 2}, ast.ZeroPage: {0x25, 2}, ast.Absolute: {0x2d, 3},
		ast.AbsoluteLong: {0x2f, 4},
	},
	"ora": {
		ast.Immediate: {0x09, 2}, ast.ZeroPage: {0x05, 2}, ast.Absolute: {0x0d, 3},
		ast.AbsoluteLong: {0x0f, 4},
	},
	"eor": {
		ast.Immediate: {0x49, 2}, ast.ZeroPage: {0x45, 2}, ast.Absolute: {0x4d, 3},
		ast.AbsoluteLong: {0x4f, 4},
	},
	"ldx": {
		ast.Immediate: {0xa2, 2}, ast.ZeroPage: {0xa6, 2}, ast.ZeroPageY: {0xb6, 2},
		ast.Absolute: {0xae, 3}, ast.AbsoluteY: {0xbe, 3},
	},
	"ldy": {
		ast.Immediate: {0xa0, 2}, ast.ZeroPage: {0xa4, 2}, ast.ZeroPageX: {0xb4, 2},
		ast.Absolute: {0xac, 3}, ast.AbsoluteX: {0xbc, 3},
	},
	"cpx": {ast.Immediate: {0xe0, 2}, ast.ZeroPage: {0xe4, 2}, ast.Absolute: {0xec, 3}},
	"cpy": {ast.Immediate: {0xc0, 2}, ast.ZeroPage: {0xc4, 2}, ast.Absolute: {0xcc, 3}},
	"bit": {ast.Immediate: {0x89, 2}, ast.ZeroPage: {0x24, 2}, ast.Absolute: {0x2c, 3}},

	"rep": {ast.Immediate: {0xc2, 2}},
	"sep": {ast.Immediate: {0xe2, 2}},
	"xce": {ast.Implied: {0xfb, 1}},
	"clc": {ast.Implied: {0x18, 1}}, "sec": {ast.Implied: {0x38, 1}},
	"cld": {ast.Implied: {0xd8, 1}}, "sed": {ast.Implied: {0xf8, 1}},
	"cli": {ast.Implied: {0x58, 1}}, "sei": {ast.Implied: {0x78, 1}},
	"clv": {ast.Implied: {0xb8, 1}},
	"nop": {ast.Implied: {0xea, 1}},
	"wai": {ast.Implied: {0xcb, 1}}, "stp": {ast.Implied: {0xdb, 1}},
	"brk": {ast.Implied: {0x00, 2}}, "cop": {ast.Implied: {0x02, 2}},
	"rts": {ast.Implied: {0x60, 1}}, "rtl": {ast.Implied: {0x6b, 1}}, "rti": {ast.Implied: {0x40, 1}},
	"tax": {ast.Implied: {0xaa, 1}}, "txa": {ast.Implied: {0x8a, 1}},
	"tay": {ast.Implied: {0xa8, 1}}, "tya": {ast.Implied: {0x98, 1}},
	"tcd": {ast.Implied: {0x5b, 1}}, "tdc": {ast.Implied: {0x7b, 1}},
	"tcs": {ast.Implied: {0x1b, 1}}, "tsc": {ast.Implied: {0x3b, 1}},
	"txs": {ast.Implied: {0x9a, 1}}, "tsx": {ast.Implied: {0xba, 1}},
	"txy": {ast.Implied: {0x9b, 1}}, "tyx": {ast.Implied: {0xbb, 1}},
	"inx": {ast.Implied: {0xe8, 1}}, "iny": {ast.Implied: {0xc8, 1}},
	"dex": {ast.Implied: {0xca, 1}}, "dey": {ast.Implied: {0x88, 1}},
	"pha": {ast.Implied: {0x48, 1}}, "pla": {ast.Implied: {0x68, 1}},
	"phb": {ast.Implied: {0x8b, 1}}, "plb": {ast.Implied: {0xab, 1}},
	"phd": {ast.Implied: {0x0b, 1}}, "pld": {ast.Implied: {0x2b, 1}},
	"phk": {ast.Implied: {0x4b, 1}},
	"php": {ast.Implied: {0x08, 1}}, "plp": {ast.Implied: {0x28, 1}},
	"phx": {ast.Implied: {0xda, 1}}, "plx": {ast.Implied: {0xfa, 1}},
	"phy": {ast.Implied: {0x5a, 1}}, "ply": {ast.Implied: {0x7a, 1}},

	"asl": {ast.Accumulator: {0x0a, 1}, ast.ZeroPage: {0x06, 2}, ast.Absolute: {0x0e, 3}},
	"lsr": {ast.Accumulator: {0x4a, 1}, ast.ZeroPage: {0x46, 2}, ast.Absolute: {0x4e, 3}},
	"rol": {ast.Accumulator: {0x2a, 1}, ast.ZeroPage: {0x26, 2}, ast.Absolute: {0x2e, 3}},
	"ror": {ast.Accumulator: {0x6a, 1}, ast.ZeroPage: {0x66, 2}, ast.Absolute: {0x6e, 3}},
	"inc": {ast.Accumulator: {0x1a, 1}, ast.ZeroPage: {0xe6, 2}, ast.Absolute: {0xee, 3}},
	"dec": {ast.Accumulator: {0x3a, 1}, ast.ZeroPage: {0xc6, 2}, ast.Absolute: {0xce, 3}},

	"jmp": {
		ast.Absolute: {0x4c, 3}, ast.Indirect: {0x6c, 3},
		ast.AbsoluteIndirectLong: {0xdc, 3}, ast.AbsoluteIndexedIndirect: {0x7c, 3},
	},
	"jml": {ast.AbsoluteLong: {0x5c, 4}},
	"jsr": {ast.Absolute: {0x20, 3}, ast.AbsoluteIndexedIndirect: {0xfc, 3}},
	"jsl": {ast.AbsoluteLong: {0x22, 4}},

	"pea": {ast.Absolute: {0xf4, 3}},
	"pei": {ast.DirectPageIndirectLong: {0xd4, 2}},
	"per": {ast.Relative: {0x62, 3}},

	"mvn": {ast.BlockMove: {0x54, 3}},
	"mvp": {ast.BlockMove: {0x44, 3}},

	"bcc": {ast.Relative: {0x90, 2}}, "bcs": {ast.Relative: {0xb0, 2}},
	"beq": {ast.Relative: {0xf0, 2}}, "bne": {ast.Relative: {0xd0, 2}},
	"bmi": {ast.Relative: {0x30, 2}}, "bpl": {ast.Relative: {0x10, 2}},
	"bvc": {ast.Relative: {0x50, 2}}, "bvs": {ast.Relative: {0x70, 2}},
	"bra": {ast.Relative: {0x80, 2}},
}

var branchMnemonics = map[string]bool{
	"bcc": true, "bcs": true, "beq": true, "bmi": true, "bne": true,
	"bpl": true, "bvc": true, "bvs": true, "bra": true,
}

// Backend is the WDC 65C816 arch.Backend.
type Backend struct{}

// New creates a Backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "wdc65816" }

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
	return e, nil
}

// immediateExtraByte reports whether mnemonic's Immediate operand is
// currently 16-bit (one extra byte beyond the table's 8-bit baseline
// length) under flags, per spec.md §4.5's M/X-flag dependent sizing.
func immediateExtraByte(mnemonic string, flags arch.Flags) bool {
	switch immediateWidthClass[strings.ToLower(mnemonic)] {
	case accumWidth:
		return !flags.M
	case indexWidth:
		return !flags.X
	default:
		return false
	}
}

func (b *Backend) Size(mnemonic string, sizeSuffix byte, mode ast.AddressingMode, flags arch.Flags) (int, error) {
	e, err := b.lookup(mnemonic, mode)
	if err != nil {
		return 0, err
	}
	length := int(e.length)
	if mode == ast.Immediate {
		switch sizeSuffix {
		case 'b':
			return length, nil
		case 'w':
			return length + 1, nil
		default:
			if immediateExtraByte(mnemonic, flags) {
				return length + 1, nil
			}
			return length, nil
		}
	}
	return length, nil
}

func (b *Backend) Encode(mnemonic string, mode ast.AddressingMode, operand, operand2 int64, flags arch.Flags, currentAddress int64) ([]byte, error) {
	e, err := b.lookup(mnemonic, mode)
	if err != nil {
		return nil, err
	}

	if mode == ast.BlockMove {
		// mvn/mvp encode destination bank then source bank, regardless of
		// which bank the source syntax listed first.
		return []byte{e.opcode, byte(operand2), byte(operand)}, nil
	}

	if branchMnemonics[strings.ToLower(mnemonic)] || mode == ast.Relative {
		offset := operand - (currentAddress + 2)
		if offset < -128 || offset > 127 {
			return nil, fmt.Errorf("%s: branch target out of range (offset %d)", mnemonic, offset)
		}
		return []byte{e.opcode, byte(int8(offset))}, nil
	}

	size, err := b.Size(mnemonic, 0, mode, flags)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	out[0] = e.opcode
	v := operand
	for i := 1; i < size; i++ {
		out[i] = byte(v)
		v >>= 8
	}
	return out, nil
}

// UpdateFlags applies rep/sep's immediate operand bits 0x20 (M) and 0x10
// (X) to flags: rep clears the named bits (selecting 16-bit), sep sets them
// (selecting 8-bit), matching the 65816's status-register semantics.
func (b *Backend) UpdateFlags(mnemonic string, mode ast.AddressingMode, operand int64, flags arch.Flags) arch.Flags {
	if mode != ast.Immediate {
		return flags
	}
	switch strings.ToLower(mnemonic) {
	case "rep":
		if operand&0x20 != 0 {
			flags.M = false
		}
		if operand&0x10 != 0 {
			flags.X = false
		}
	case "sep":
		if operand&0x20 != 0 {
			flags.M = true
		}
		if operand&0x10 != 0 {
			flags.X = true
		}
	}
	return flags
}
