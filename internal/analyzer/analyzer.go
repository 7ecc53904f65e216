// Package analyzer implements the two-pass semantic analyzer of spec.md
// §4.4: pass 1 walks the AST computing addresses from instruction/data sizes
// and registers every symbol it can settle immediately; pass 2 re-walks,
// resolving every expression, expanding macros, executing conditionals and
// repeats, and emitting the resolved byte stream. It is the generalization
// of the teacher's single-pass parser-to-encoder pipeline (parser.Parser
// feeding encoder.Encode directly) into the two-pass model a multi-target
// assembler needs for forward references.
package analyzer

import (
	"strings"

	"github.com/db47h/retroasm/internal/arch"
	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/eval"
	"github.com/db47h/retroasm/internal/macro"
	"github.com/db47h/retroasm/internal/symtab"
	"github.com/db47h/retroasm/internal/token"
)

// Chunk is one contiguous run of emitted bytes starting at Address. The ROM
// builders consume a sequence of these rather than a single flat image,
// since org-induced address jumps routinely leave gaps.
type Chunk struct {
	Address int64
	Data    []byte
}

// TargetConfig records the platform configuration directives (target/
// nes/snes/gb, lorom/hirom/exhirom, mapper) accumulate during pass 1, for
// the ROM builder to consume alongside the emitted chunks.
type TargetConfig struct {
	Name      string // canonical lowercase target/shorthand name, "" if never set
	Mapping   string // "lorom"/"hirom"/"exhirom", SNES only
	Mapper    int64
	HasMapper bool
}

// Result is the product of a successful Analyze run.
type Result struct {
	Chunks []Chunk
	Target TargetConfig
}

// modeResolver is implemented by architecture backends whose instruction set
// has a width-ambiguous "direct" addressing mode the parser cannot settle on
// its own (ast.MemoryReference): mos6502's ZeroPage-vs-Absolute choice,
// resolved once the operand value and any explicit size suffix are known.
// Backends that don't implement it (wdc65816, z80, sm83, the generic
// table-driven backends) get ast.Absolute for every ast.MemoryReference;
// the parser's operand grammar is shaped around the 6502/65816 family and
// never produces the register-pair operand forms z80/sm83 otherwise use.
// In either case a mnemonic that only accepts Relative (a branch) is
// given ast.Relative instead (see resolveMode).
type modeResolver interface {
	ResolveMode(mnemonic string, sizeSuffix byte, operand int64, indexReg string) ast.AddressingMode
}

// Analyzer drives both passes over one translation unit's statement tree.
type Analyzer struct {
	Symbols *symtab.Table
	Macros  *macro.Table
	Diags   *diag.List
	Backend arch.Backend
	Flags   arch.Flags
	Target  TargetConfig

	address     int64
	chunks      []Chunk
	pendingAddr int64
	pendingData []byte
	hasPending  bool
	expander    *macro.Expander

	// passOneLabels records the qualified, lowercased name of every label
	// defineLabel defined during pass 1. Pass 2 re-walks the exact same
	// top-level statements pass 1 saw, so a pass-2 definition of a name in
	// this set is that same legitimate revisit, not a new definition.
	// Pass-2-only constructs (.rept bodies, macro expansions) never populate
	// it, so a global label defined there collides with symtab's own
	// duplicate-definition check instead of being silently skipped.
	passOneLabels map[string]bool
}

// New creates an Analyzer. defaultTarget, if non-empty, seeds the active
// architecture as if a "target"/"nes"/"snes"/"gb" directive had already run;
// source-level target directives may still confirm it (idempotent) or
// conflict with it (architecture-conflict).
func New(defaultTarget string, dl *diag.List) *Analyzer {
	a := &Analyzer{
		Symbols: symtab.New(),
		Macros:  macro.NewTable(),
		Diags:   dl,
	}
	if defaultTarget != "" {
		a.setTarget(defaultTarget, token.Location{})
	}
	return a
}

// Analyze runs pass 1 then pass 2 over stmts and returns the emitted chunks
// and accumulated target configuration. Callers should check Diags.HasErrors
// before using the Result: ROM emission is always suppressed when any error
// was recorded (spec.md §7).
func (a *Analyzer) Analyze(stmts []ast.Statement) *Result {
	a.expander = macro.NewExpander(a.Macros, a.Diags)

	a.address = 0
	a.Flags = arch.Flags{}
	a.Symbols.ResetScope()
	a.passOneLabels = make(map[string]bool)
	a.passOneStmts(stmts)
	a.Symbols.ValidateAllDefined(a.Diags)

	a.address = 0
	a.Flags = arch.Flags{}
	a.Symbols.ResetScope()
	a.Symbols.ClearAnonymousLabels()
	a.chunks = nil
	a.hasPending = false
	a.pendingData = nil
	a.passTwoStmts(stmts)
	a.flush()

	return &Result{Chunks: a.chunks, Target: a.Target}
}

func (a *Analyzer) evalCtx() *eval.Context {
	return &eval.Context{Symbols: a.Symbols, CurrentAddress: a.address, Diags: a.Diags}
}

func (a *Analyzer) evalArg(n *ast.Directive, i int) (int64, bool) {
	if i >= len(n.Args) {
		return 0, false
	}
	return eval.Eval(n.Args[i], a.evalCtx())
}

// ---- output accumulation ----

func (a *Analyzer) emit(addr int64, data []byte) {
	if len(data) == 0 {
		return
	}
	if a.hasPending && addr == a.pendingAddr+int64(len(a.pendingData)) {
		a.pendingData = append(a.pendingData, data...)
		return
	}
	a.flush()
	a.pendingAddr = addr
	a.pendingData = append([]byte(nil), data...)
	a.hasPending = true
}

func (a *Analyzer) flush() {
	if a.hasPending && len(a.pendingData) > 0 {
		a.chunks = append(a.chunks, Chunk{Address: a.pendingAddr, Data: a.pendingData})
	}
	a.hasPending = false
	a.pendingData = nil
}

func (a *Analyzer) org(addr int64) {
	a.flush()
	a.address = addr
}

// ---- label handling, shared by both passes ----

// isAnonRun reports whether name is a bare run of '+' or all '-' characters
// (an unnamed anonymous label definition), returning the direction.
func isAnonRun(name string) (forward, ok bool) {
	if len(name) == 0 {
		return false, false
	}
	c := name[0]
	if c != '+' && c != '-' {
		return false, false
	}
	for i := 1; i < len(name); i++ {
		if name[i] != c {
			return false, false
		}
	}
	return c == '+', true
}

func (a *Analyzer) defineLabel(n *ast.Label, pass2 bool) {
	name := n.Name
	if forward, ok := isAnonRun(name); ok {
		a.Symbols.DefineAnonymousLabel(forward, a.address, n.Location())
		return
	}
	if len(name) > 0 && (name[0] == '+' || name[0] == '-') {
		a.Symbols.DefineNamedAnonymousLabel(name[1:], a.address, n.Location())
		return
	}
	qualified := a.Symbols.QualifyLocal(name)
	key := strings.ToLower(qualified)
	if pass2 && a.passOneLabels[key] {
		a.Symbols.SetScope(name)
		return
	}
	a.Symbols.Define(name, symtab.Label, a.address, true, n.Location(), a.Diags)
	if !pass2 {
		a.passOneLabels[key] = true
	}
}

// ---- instruction addressing mode / sizing / encoding ----

// resolveMode folds n's operand (if any) and, for the parser's width-
// ambiguous ast.MemoryReference mode, asks the active backend's modeResolver
// to pick a concrete mode. ok is false when the operand depends on a symbol
// not yet resolvable; resolveMode still returns a usable mode in that case
// (assuming the widest encoding) so pass 1's address trajectory stays stable
// regardless of when the referenced symbol is eventually defined.
func (a *Analyzer) resolveMode(n *ast.Instruction) (mode ast.AddressingMode, operand int64, ok bool) {
	mode = n.Mode
	ok = true
	if n.Operand != nil {
		operand, ok = eval.Eval(n.Operand, a.evalCtx())
	}
	if mode != ast.MemoryReference {
		return mode, operand, ok
	}

	indexReg := ""
	if id, isID := n.Operand2.(*ast.Identifier); isID {
		indexReg = id.Name
	}
	mode = ast.Absolute
	if mr, isMR := a.Backend.(modeResolver); isMR {
		val := operand
		if !ok {
			val = 0x100
		}
		mode = mr.ResolveMode(n.Mnemonic, n.Size, val, indexReg)
	}
	// A mnemonic the backend rejects in that mode but accepts as Relative
	// (a branch such as bne or jr) takes the Relative form.
	if _, err := a.Backend.Size(n.Mnemonic, n.Size, mode, a.Flags); err != nil {
		if _, rerr := a.Backend.Size(n.Mnemonic, n.Size, ast.Relative, a.Flags); rerr == nil {
			mode = ast.Relative
		}
	}
	return mode, operand, ok
}

func (a *Analyzer) sizeInstruction(n *ast.Instruction) {
	if a.Backend == nil {
		a.Diags.Addf(n.Location(), diag.InvalidInstruction, "%s: no target architecture selected", n.Mnemonic)
		return
	}
	mode, operand, ok := a.resolveMode(n)
	size, err := a.Backend.Size(n.Mnemonic, n.Size, mode, a.Flags)
	if err != nil {
		a.Diags.Addf(n.Location(), diag.InvalidInstruction, "%s", err)
		return
	}
	if ok {
		a.Flags = a.Backend.UpdateFlags(n.Mnemonic, mode, operand, a.Flags)
	}
	a.address += int64(size)
}

func (a *Analyzer) emitInstruction(n *ast.Instruction) {
	if a.Backend == nil {
		a.Diags.Addf(n.Location(), diag.InvalidInstruction, "%s: no target architecture selected", n.Mnemonic)
		return
	}
	mode, operand, ok := a.resolveMode(n)

	var operand2 int64
	if mode == ast.BlockMove && n.Operand2 != nil {
		if v, ok2 := eval.Eval(n.Operand2, a.evalCtx()); ok2 {
			operand2 = v
		}
	}

	size, err := a.Backend.Size(n.Mnemonic, n.Size, mode, a.Flags)
	if err != nil {
		a.Diags.Addf(n.Location(), diag.InvalidInstruction, "%s", err)
		return
	}

	if !ok {
		a.Diags.Addf(n.Location(), diag.UndefinedSymbol, "%s: operand could not be resolved", n.Mnemonic)
		a.address += int64(size)
		return
	}

	bytes, err := a.Backend.Encode(n.Mnemonic, mode, operand, operand2, a.Flags, a.address)
	if err != nil {
		a.Diags.Addf(n.Location(), diag.InvalidInstruction, "%s", err)
		a.address += int64(size)
		return
	}
	a.emit(a.address, bytes)
	a.Flags = a.Backend.UpdateFlags(n.Mnemonic, mode, operand, a.Flags)
	a.address += int64(size)
}

// ---- target/mapping configuration ----

// targetBackendName maps the nes/snes/gb shorthands to the arch.Backend
// registry name they stand for; any other name is assumed to already be a
// registered backend name (e.g. an explicit "target z80").
func targetBackendName(name string) string {
	switch name {
	case "nes":
		return "mos6502"
	case "snes":
		return "wdc65816"
	case "gb":
		return "sm83"
	default:
		return name
	}
}

func (a *Analyzer) setTarget(name string, pos token.Location) {
	lname := strings.ToLower(name)
	if a.Target.Name != "" {
		if a.Target.Name == lname {
			return
		}
		a.Diags.Addf(pos, diag.InvalidDirective,
			"target: conflicting architecture change from %q to %q", a.Target.Name, lname)
		return
	}
	backend, ok := arch.Get(targetBackendName(lname))
	if !ok {
		a.Diags.Addf(pos, diag.InvalidDirective, "target: unknown architecture %q", name)
		return
	}
	a.Target.Name = lname
	a.Backend = backend
	a.Flags = arch.Flags{}
}

func (a *Analyzer) applyTargetDirective(n *ast.Directive) {
	var name string
	if len(n.RawArgs) > 0 {
		name = n.RawArgs[0]
	} else if len(n.Args) > 0 {
		if id, ok := n.Args[0].(*ast.Identifier); ok {
			name = id.Name
		}
	}
	if name == "" {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "target: missing target name")
		return
	}
	a.setTarget(name, n.Location())
}

func (a *Analyzer) applyMapping(name string, pos token.Location) {
	if a.Target.Name != "snes" {
		a.Diags.Addf(pos, diag.InvalidDirective, "%s: requires an snes target", name)
		return
	}
	a.Target.Mapping = name
}

// ---- data-directive sizing/emission ----

func (a *Analyzer) dataSize(n *ast.Directive, width int64) int64 {
	var total int64
	for _, arg := range n.Args {
		if sl, ok := arg.(*ast.StringLiteral); ok {
			total += int64(len(sl.Value))
			continue
		}
		total += width
	}
	return total
}

func (a *Analyzer) emitData(n *ast.Directive, width int64) {
	for _, arg := range n.Args {
		if sl, ok := arg.(*ast.StringLiteral); ok {
			a.emit(a.address, []byte(sl.Value))
			a.address += int64(len(sl.Value))
			continue
		}
		v, ok := eval.Eval(arg, a.evalCtx())
		if !ok {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: value could not be resolved", n.Name)
			a.address += width
			continue
		}
		buf := make([]byte, width)
		for i := int64(0); i < width; i++ {
			buf[i] = byte(v)
			v >>= 8
		}
		a.emit(a.address, buf)
		a.address += width
	}
}

// dataWidth maps a db/dw/dl/dd-family directive name to its per-scalar byte
// width.
func dataWidth(name string) int64 {
	switch name {
	case "db", "byte":
		return 1
	case "dw", "word":
		return 2
	case "dd":
		return 4
	default: // "dl"
		return 3
	}
}

// ---- constant definition (equ/=/define) ----

func (a *Analyzer) defineConstant(n *ast.Directive) {
	if len(n.Args) == 0 {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: missing symbol name", n.Name)
		return
	}
	id, ok := n.Args[0].(*ast.Identifier)
	if !ok {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: expected a bare identifier", n.Name)
		return
	}

	value := int64(1)
	if n.Name == "define" {
		if len(n.Args) > 1 {
			v, ok := eval.Eval(n.Args[1], a.evalCtx())
			if !ok {
				a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: value must be resolvable in pass 1", n.Name)
				return
			}
			value = v
		}
	} else {
		if len(n.Args) < 2 {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: missing value expression", n.Name)
			return
		}
		v, ok := eval.Eval(n.Args[1], a.evalCtx())
		if !ok {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: value must be resolvable in pass 1", n.Name)
			return
		}
		value = v
	}
	a.Symbols.Define(id.Name, symtab.Constant, value, true, n.Location(), a.Diags)
}

// ---- pass 1 ----

func (a *Analyzer) passOneStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		a.passOneStmt(s)
	}
}

func (a *Analyzer) passOneStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Label:
		a.defineLabel(n, false)

	case *ast.Instruction:
		a.sizeInstruction(n)

	case *ast.Directive:
		a.passOneDirective(n)

	case *ast.MacroDefinition:
		a.Macros.Define(n, a.Diags)
		a.Symbols.Define(n.Name, symtab.Macro, 0, false, n.Location(), a.Diags)

	case *ast.RawBytes:
		a.address += int64(len(n.Data))

	case *ast.Conditional, *ast.Repeat, *ast.MacroInvocation:
		// Pass-2-only per spec.md §4.4's chosen resolution of its own
		// ambiguity: these contribute no address accounting in pass 1.
	}
}

func (a *Analyzer) passOneDirective(n *ast.Directive) {
	switch n.Name {
	case "org":
		if v, ok := a.evalArg(n, 0); ok {
			a.address = v
		} else {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "org: operand must be resolvable in pass 1")
		}

	case "equ", "=", "define":
		a.defineConstant(n)

	case "db", "byte", "dw", "word", "dl", "dd":
		a.address += a.dataSize(n, dataWidth(n.Name))

	case "ds", "fill", "res":
		if v, ok := a.evalArg(n, 0); ok {
			a.address += v
		} else {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: count must be resolvable in pass 1", n.Name)
		}

	case "target":
		a.applyTargetDirective(n)

	case "nes", "snes", "gb":
		a.setTarget(n.Name, n.Location())

	case "lorom", "hirom", "exhirom":
		a.applyMapping(n.Name, n.Location())

	case "mapper":
		if v, ok := a.evalArg(n, 0); ok {
			a.Target.Mapper = v
			a.Target.HasMapper = true
		} else {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "mapper: value must be resolvable in pass 1")
		}

	case "error":
		a.Diags.Addf(n.Location(), diag.UserError, "%s", rawArgOrFirstString(n))

	case "warning":
		// Surfaced through the same error-level channel as the reference
		// implementation (spec.md §7): no separate warning severity here.
		a.Diags.Addf(n.Location(), diag.UserError, "%s", rawArgOrFirstString(n))

	case "assert":
		// Pass-2-only: all symbols must be settled first.
	}
}

func rawArgOrFirstString(n *ast.Directive) string {
	if len(n.RawArgs) > 0 {
		return n.RawArgs[0]
	}
	if len(n.Args) > 0 {
		if sl, ok := n.Args[0].(*ast.StringLiteral); ok {
			return sl.Value
		}
	}
	return ""
}

// ---- pass 2 ----

func (a *Analyzer) passTwoStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		a.passTwoStmt(s)
	}
}

func (a *Analyzer) passTwoStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Label:
		a.defineLabel(n, true)

	case *ast.Instruction:
		a.emitInstruction(n)

	case *ast.Directive:
		a.passTwoDirective(n)

	case *ast.MacroDefinition:
		// Registered in pass 1; revisiting here would just re-trigger the
		// duplicate-macro diagnostic for no benefit.

	case *ast.MacroInvocation:
		a.passTwoStmts(a.expander.Expand(n))

	case *ast.Conditional:
		a.execConditional(n)

	case *ast.Repeat:
		a.execRepeat(n)

	case *ast.RawBytes:
		a.emit(a.address, n.Data)
		a.address += int64(len(n.Data))
	}
}

func (a *Analyzer) execConditional(n *ast.Conditional) {
	if v, ok := eval.EvalCond(n.Cond, a.evalCtx()); ok && v != 0 {
		a.passTwoStmts(n.Then)
		return
	}
	for _, ei := range n.ElseIfs {
		if v, ok := eval.EvalCond(ei.Cond, a.evalCtx()); ok && v != 0 {
			a.passTwoStmts(ei.Body)
			return
		}
	}
	a.passTwoStmts(n.Else)
}

func (a *Analyzer) execRepeat(n *ast.Repeat) {
	count, ok := eval.Eval(n.Count, a.evalCtx())
	if !ok || count < 0 {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "rept: count must be a resolvable non-negative integer")
		return
	}
	for i := int64(0); i < count; i++ {
		a.passTwoStmts(n.Body)
	}
}

func (a *Analyzer) passTwoDirective(n *ast.Directive) {
	switch n.Name {
	case "org":
		if v, ok := a.evalArg(n, 0); ok {
			a.org(v)
		} else {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "org: operand could not be resolved")
		}

	case "db", "byte", "dw", "word", "dl", "dd":
		a.emitData(n, dataWidth(n.Name))

	case "ds", "fill", "res":
		if v, ok := a.evalArg(n, 0); ok {
			a.emit(a.address, make([]byte, v))
			a.address += v
		} else {
			a.Diags.Addf(n.Location(), diag.InvalidDirective, "%s: count could not be resolved", n.Name)
		}

	case "assert":
		a.execAssert(n)

	// equ/=/define/target/nes/snes/gb/lorom/hirom/exhirom/mapper/error/
	// warning are pass-1-only (spec.md §4.4's directive catalog); nothing to
	// do for them here.
	default:
	}
}

func (a *Analyzer) execAssert(n *ast.Directive) {
	if len(n.Args) == 0 {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "assert: missing condition")
		return
	}
	v, ok := eval.Eval(n.Args[0], a.evalCtx())
	if !ok {
		a.Diags.Addf(n.Location(), diag.InvalidDirective, "assert: condition could not be resolved")
		return
	}
	if v != 0 {
		return
	}
	msg := "Assertion failed"
	if len(n.Args) > 1 {
		if sl, ok := n.Args[1].(*ast.StringLiteral); ok {
			msg = sl.Value
		}
	}
	a.Diags.Addf(n.Location(), diag.AssertFailed, "%s", msg)
}
