// Package arch defines the architecture-dispatch Backend interface the
// two-pass analyzer consults for instruction sizing and encoding, plus the
// registry every per-architecture package registers itself into. It
// generalizes the teacher's single hard-coded ARM instruction table
// (encoder/*.go) into a pluggable interface, since this module targets
// eleven architectures rather than one.
package arch

import (
	"fmt"
	"strings"

	"github.com/db47h/retroasm/internal/ast"
)

// Flags carries the processor-status bits a backend's sizing/encoding
// decisions depend on. Only the WDC65816 backend uses M/X; every other
// backend ignores them (spec.md §4.5).
type Flags struct {
	M bool // 8-bit accumulator/memory width when true
	X bool // 8-bit index-register width when true
}

// Backend is the per-architecture instruction-size and encoding contract of
// spec.md §4.5.
type Backend interface {
	// Name is the canonical target name this backend was registered under.
	Name() string

	// Size returns the byte count for mnemonic/sizeSuffix/mode under flags,
	// without requiring the operand's resolved value — pass-1 only needs
	// the size to advance the current address (spec.md §4.4).
	Size(mnemonic string, sizeSuffix byte, mode ast.AddressingMode, flags Flags) (int, error)

	// Encode returns the resolved byte sequence for one instruction.
	// operand2 is used by two-operand forms (BlockMove's destination bank,
	// an explicit index register already folded into addressing mode
	// selection by the parser); most modes ignore it.
	Encode(mnemonic string, mode ast.AddressingMode, operand, operand2 int64, flags Flags, currentAddress int64) ([]byte, error)

	// UpdateFlags lets a backend thread processor-flag state across
	// instructions that change it (WDC65816 rep/sep); backends that don't
	// have such state just return flags unchanged.
	UpdateFlags(mnemonic string, mode ast.AddressingMode, operand int64, flags Flags) Flags
}

// Factory constructs a fresh Backend instance; registered backends are
// stateless aside from the Flags threaded explicitly by the analyzer, so in
// practice every Factory returns the same kind of value each time, but a
// factory (rather than a shared instance) keeps door open for backends that
// do want private state.
type Factory func() Backend

var registry = make(map[string]Factory)

// Register adds a backend factory under one or more target names (so e.g.
// "6507" and "mos6502" can resolve to the same implementation). Called from
// each arch sub-package's init().
func Register(factory Factory, names ...string) {
	for _, n := range names {
		registry[strings.ToLower(n)] = factory
	}
}

// Get constructs the backend registered for target, if any.
func Get(target string) (Backend, bool) {
	f, ok := registry[strings.ToLower(target)]
	if !ok {
		return nil, false
	}
	return f(), true
}

// ErrUnsupportedMode is returned by a backend when a mnemonic doesn't
// support the requested addressing mode.
func ErrUnsupportedMode(mnemonic string, mode ast.AddressingMode) error {
	return fmt.Errorf("%s: unsupported addressing mode %d", mnemonic, mode)
}

// ErrUnknownMnemonic is returned by a backend for a mnemonic it doesn't
// recognize at all.
func ErrUnknownMnemonic(mnemonic string) error {
	return fmt.Errorf("unknown mnemonic %q", mnemonic)
}
