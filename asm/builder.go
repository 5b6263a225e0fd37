package asm

import "fmt"

// Builder owns the mutable state of exactly one function-in-progress, per
// spec.md §4.2. Host code never constructs one directly; the registry hands
// one to a function symbol's generator callback and discards it once that
// callback returns.
type Builder struct {
	reg    *Registry
	fnSym  Symbol
	fnName string

	meta   []*Meta
	labels []int

	aSize, xySize   RegSize
	startA, startXY RegSize
	endA, endXY     RegSize
	endSet          bool

	gen       [3]uint32
	clobbered [3]bool

	pending []string
}

func newBuilder(r *Registry, fs Symbol) *Builder {
	return &Builder{reg: r, fnSym: fs, fnName: fs.Name}
}

// Registry exposes the registry this builder's function is being generated
// into, so generator callbacks can register further functions and data
// beyond what Call does implicitly.
func (b *Builder) Registry() *Registry { return b.reg }

// --- low-level emission -----------------------------------------------

func (b *Builder) appendInstr(instr Instr, reloc *Reloc) *Meta {
	if isAccumOp(instr.Op) {
		mustKnown(b.aSize, "A")
	}
	if isIndexOp(instr.Op) {
		mustKnown(b.xySize, "X/Y")
	}
	m := &Meta{
		Instr:    instr,
		Reloc:    reloc,
		ASize:    b.aSize,
		XYSize:   b.xySize,
		Comments: b.takeComments(),
	}
	b.meta = append(b.meta, m)
	return m
}

// Emit appends instr with the builder's current register modes and no
// relocation. If instr is rts/rtl, the function's end-mode bookkeeping is
// updated (or checked for consistency against a prior return).
func (b *Builder) Emit(instr Instr) {
	b.appendInstr(instr, nil)
	if isReturn(instr.Op) {
		b.recordReturn()
	}
}

// EmitReloc appends instr with an attached relocation; its operand bytes
// are left for the relocation applier to fill in after layout.
func (b *Builder) EmitReloc(instr Instr, reloc Reloc) {
	b.appendInstr(instr, &reloc)
	if isReturn(instr.Op) {
		b.recordReturn()
	}
}

func (b *Builder) recordReturn() {
	if !b.endSet {
		b.endA, b.endXY = b.aSize, b.xySize
		b.endSet = true
		return
	}
	if b.endA != b.aSize || b.endXY != b.xySize {
		panic(fmt.Errorf("asm: function %q returns with inconsistent register sizes (A %v/%v, XY %v/%v)",
			b.fnName, b.endA, b.aSize, b.endXY, b.xySize))
	}
}

func (b *Builder) rawSep(mask Flags) { b.appendInstr(Instr{Op: OpSep, Imm: uint16(mask)}, nil) }
func (b *Builder) rawRep(mask Flags) { b.appendInstr(Instr{Op: OpRep, Imm: uint16(mask)}, nil) }

func (b *Builder) emitStatusForSize(isA bool, sz RegSize) {
	bit := sizeFlagBit(isA)
	if sz == Size8 {
		b.rawSep(bit)
	} else {
		b.rawRep(bit)
	}
}

func (b *Builder) bumpGen(reg Reg) RegHandle {
	b.gen[reg]++
	b.clobbered[reg] = true
	return RegHandle{b: b, reg: reg, gen: b.gen[reg]}
}

// --- register mode setters ----------------------------------------------

func (b *Builder) setReg(reg Reg, isA bool, sz RegSize) RegHandle {
	cur := b.xySize
	if isA {
		cur = b.aSize
	}
	changed := cur != sz
	if isA {
		if b.startA == SizeNone {
			b.startA = sz
		}
		b.aSize = sz
	} else {
		if b.startXY == SizeNone {
			b.startXY = sz
		}
		b.xySize = sz
	}
	if changed {
		b.emitStatusForSize(isA, sz)
	}
	return b.bumpGen(reg)
}

func (b *Builder) RegA8() RegHandle  { return b.setReg(RegA, true, Size8) }
func (b *Builder) RegA16() RegHandle { return b.setReg(RegA, true, Size16) }
func (b *Builder) RegX8() RegHandle  { return b.setReg(RegX, false, Size8) }
func (b *Builder) RegX16() RegHandle { return b.setReg(RegX, false, Size16) }
func (b *Builder) RegY8() RegHandle  { return b.setReg(RegY, false, Size8) }
func (b *Builder) RegY16() RegHandle { return b.setReg(RegY, false, Size16) }

// RegXY8 sets the shared X/Y size mode to 8-bit and returns fresh handles
// for both index registers.
func (b *Builder) RegXY8() (x, y RegHandle) {
	return b.setReg(RegX, false, Size8), b.setReg(RegY, false, Size8)
}

// RegXY16 is RegXY8's 16-bit counterpart.
func (b *Builder) RegXY16() (x, y RegHandle) {
	return b.setReg(RegX, false, Size16), b.setReg(RegY, false, Size16)
}

// ChangeStatusFlags coalesces an arbitrary partial update of the status
// register into at most one SEP and one REP instruction, per spec.md
// §4.2/§9. A size-mode bit that would not actually change the current size
// is dropped and generates no instruction.
func (b *Builder) ChangeStatusFlags(c StatusChange) {
	set, clear := c.masks()

	if set&Accumulator8bit != 0 && b.aSize == Size8 {
		set &^= Accumulator8bit
	}
	if clear&Accumulator8bit != 0 && b.aSize == Size16 {
		clear &^= Accumulator8bit
	}
	if set&IndexRegister8bit != 0 && b.xySize == Size8 {
		set &^= IndexRegister8bit
	}
	if clear&IndexRegister8bit != 0 && b.xySize == Size16 {
		clear &^= IndexRegister8bit
	}

	if set&Accumulator8bit != 0 {
		if b.startA == SizeNone {
			b.startA = Size8
		}
		b.aSize = Size8
	}
	if clear&Accumulator8bit != 0 {
		if b.startA == SizeNone {
			b.startA = Size16
		}
		b.aSize = Size16
	}
	if set&IndexRegister8bit != 0 {
		if b.startXY == SizeNone {
			b.startXY = Size8
		}
		b.xySize = Size8
	}
	if clear&IndexRegister8bit != 0 {
		if b.startXY == SizeNone {
			b.startXY = Size16
		}
		b.xySize = Size16
	}

	if set != 0 {
		b.rawSep(set)
	}
	if clear != 0 {
		b.rawRep(clear)
	}
}

// --- calling convention --------------------------------------------------

// Call registers target (forcing its generation if new) and invokes
// CallWithConvention with its resolved convention. Returns an error if
// target is still generating (a circular dependency) — host code must
// rewrite the call as CallWithConvention or JumpSubroutine in that case.
func (b *Builder) Call(target Symbol) error {
	rf, err := b.reg.RegisterFunction(target)
	if err != nil {
		return err
	}
	if rf.generating {
		return fmt.Errorf("asm: circular dependency: %q calls %q while it is still generating; use CallWithConvention or JumpSubroutine", b.fnName, target.Name)
	}
	return b.CallWithConvention(target, rf.Conv)
}

// CallWithConvention emits a jsr to target under an explicitly supplied
// calling convention, bypassing the registry lookup Call performs. This is
// the escape hatch for genuinely recursive or forward-declared calls.
func (b *Builder) CallWithConvention(target Symbol, cc CallConv) error {
	b.adoptEntryMode(true, cc.StartA)
	b.adoptEntryMode(false, cc.StartXY)

	if cc.EndA != SizeNone {
		b.aSize = cc.EndA
	}
	if cc.EndXY != SizeNone {
		b.xySize = cc.EndXY
	}

	for _, r := range cc.Clobbers {
		b.bumpGen(r)
	}

	b.EmitReloc(Instr{Op: OpJsr}, Reloc{Kind: RelocAddr16, Target: target})
	return nil
}

// adoptEntryMode implements the "for each of A and XY" step of
// call_with_convention: if this function has never committed to a size for
// the register in question, it silently inherits the callee's required
// entry mode (propagating the convention outward); otherwise it emits a
// status-flag change to match the callee's entry requirement.
func (b *Builder) adoptEntryMode(isA bool, required RegSize) {
	if required == SizeNone {
		return
	}
	start := b.startXY
	cur := b.xySize
	if isA {
		start, cur = b.startA, b.aSize
	}
	if start == SizeNone {
		if isA {
			b.startA, b.aSize = required, required
		} else {
			b.startXY, b.xySize = required, required
		}
		return
	}
	if cur != required {
		b.emitStatusForSize(isA, required)
	}
	if isA {
		b.aSize = required
	} else {
		b.xySize = required
	}
}

// JumpSubroutine emits a jsr to target without touching any calling
// convention state — the unconditional escape hatch from circular
// dependency detection.
func (b *Builder) JumpSubroutine(target Symbol) {
	b.EmitReloc(Instr{Op: OpJsr}, Reloc{Kind: RelocAddr16, Target: target})
}

// --- control transfer ----------------------------------------------------

// BranchAlways appends a pre-layout branch relocation targeting label,
// resolved to a short bra or long jmp by the branch-lowering pass.
func (b *Builder) BranchAlways(target Label) {
	m := b.appendInstr(Instr{Op: opBranchPending}, nil)
	m.BranchReloc = &BranchReloc{Kind: BranchAlways, Target: target}
}

// JumpLongLabel is jump_long's label form: a pre-layout branch relocation
// always lowered to jml.
func (b *Builder) JumpLongLabel(target Label) {
	m := b.appendInstr(Instr{Op: opBranchPending}, nil)
	m.BranchReloc = &BranchReloc{Kind: BranchJumpLong, Target: target}
}

// JumpLongSymbol is jump_long's symbol form: emits jml directly against an
// already-known target symbol, no lowering needed.
func (b *Builder) JumpLongSymbol(target Symbol) {
	b.EmitReloc(Instr{Op: OpJml}, Reloc{Kind: RelocAddr24, Target: target})
}

// --- stack ----------------------------------------------------------------

func (b *Builder) PushA() { b.Emit(Instr{Op: OpPha}) }
func (b *Builder) PushX() { b.Emit(Instr{Op: OpPhx}) }
func (b *Builder) PushY() { b.Emit(Instr{Op: OpPhy}) }

func (b *Builder) PullA() RegHandle { b.Emit(Instr{Op: OpPla}); return b.bumpGen(RegA) }
func (b *Builder) PullX() RegHandle { b.Emit(Instr{Op: OpPlx}); return b.bumpGen(RegX) }
func (b *Builder) PullY() RegHandle { b.Emit(Instr{Op: OpPly}); return b.bumpGen(RegY) }

// PushAddress pushes a literal 16-bit immediate address value (pea).
func (b *Builder) PushAddress(v uint16) {
	b.EmitReloc(Instr{Op: OpPea}, Reloc{Kind: RelocImm16, Value: v})
}

// PushAddressOf pushes the low 16 bits of sym's mapped address (pea).
func (b *Builder) PushAddressOf(sym Symbol) {
	b.EmitReloc(Instr{Op: OpPea}, Reloc{Kind: RelocAddr16, Target: sym})
}

// --- composite store helpers ----------------------------------------------

// StoreZero stores a size-wide zero into target at offset using stz,
// temporarily flipping the accumulator's size mode if needed and restoring
// it afterward — stz's write width follows A's size flag, not the operand
// encoding, so a 16-bit zero-store is two 8-bit stz writes when A is (or
// becomes) 8-bit. Per spec.md §8's zero-store law this always emits
// exactly one stz for Size8 and exactly two for Size16, regardless of the
// accumulator's size on entry.
func (b *Builder) StoreZero(sz RegSize, target Symbol, offset uint16) {
	prevA := b.aSize
	switch sz {
	case Size8:
		if b.aSize != Size8 {
			b.RegA8()
		}
		b.stz(target, offset)
	case Size16:
		if b.aSize != Size8 {
			b.RegA8()
		}
		b.stz(target, offset)
		b.stz(target, offset+1)
	default:
		panic(fmt.Errorf("asm: StoreZero: size must be Size8 or Size16"))
	}
	b.restoreA(prevA)
}

func (b *Builder) stz(target Symbol, offset uint16) {
	b.EmitReloc(Instr{Op: OpStz}, Reloc{Kind: RelocAddr16, Target: target, TargetOffset: offset})
}

func (b *Builder) restoreA(prevA RegSize) {
	if prevA == SizeNone || prevA == b.aSize {
		return
	}
	if prevA == Size8 {
		b.RegA8()
	} else {
		b.RegA16()
	}
}

// StoreValue stores a size-wide literal value into target at offset. A
// zero value collapses to StoreZero; a non-zero value is loaded into A
// (which it clobbers) and stored with sta.
func (b *Builder) StoreValue(sz RegSize, target Symbol, offset uint16, value uint16) {
	if value == 0 {
		b.StoreZero(sz, target, offset)
		return
	}
	b.StoreReloc(sz, target, offset, immReloc(sz, value))
}

func immReloc(sz RegSize, value uint16) Reloc {
	if sz == Size8 {
		return Reloc{Kind: RelocImm8, Value: value}
	}
	return Reloc{Kind: RelocImm16, Value: value}
}

// StoreReloc stores an arbitrary relocatable value (a literal immediate or
// a reference to another symbol's address) into target at offset. An
// immediate-kind reloc carrying the literal value zero collapses to the
// zero-store sequence, since stz needs no accumulator value at all; any
// other value is loaded into A — clobbering it — and stored with sta.
func (b *Builder) StoreReloc(sz RegSize, target Symbol, offset uint16, value Reloc) {
	if (value.Kind == RelocImm8 || value.Kind == RelocImm16) && value.Value == 0 {
		b.StoreZero(sz, target, offset)
		return
	}
	switch sz {
	case Size8:
		if b.aSize != Size8 {
			b.RegA8()
		}
	case Size16:
		if b.aSize != Size16 {
			b.RegA16()
		}
	default:
		panic(fmt.Errorf("asm: StoreReloc: size must be Size8 or Size16"))
	}
	b.EmitReloc(Instr{Op: OpLdaImm}, value)
	b.bumpGen(RegA)
	b.EmitReloc(Instr{Op: OpSta}, Reloc{Kind: RelocAddr16, Target: target, TargetOffset: offset})
}

// --- finalize ---------------------------------------------------------------

// build runs the branch-lowering pass and bytecode finalization described
// in spec.md §4.2/§4.3, then populates rf with the result. Called by the
// registry once the host's generator callback returns.
func (b *Builder) build(rf *ResolvedFunction) error {
	if err := lowerBranches(b.meta, b.fnSym); err != nil {
		return fmt.Errorf("lowering branches: %w", err)
	}

	code := make([]byte, 0, len(b.meta)*2)
	for _, m := range b.meta {
		m.Offset = len(code)
		code = append(code, serializeInstr(m)...)
	}

	rf.Name = b.fnName
	rf.Code = code
	rf.Meta = b.meta
	rf.Conv = CallConv{
		StartA:  b.startA,
		EndA:    b.endA,
		StartXY: b.startXY,
		EndXY:   b.endXY,
		Inputs:  regsOf(b.startA != SizeNone, b.startXY != SizeNone),
		Outputs: regsOf(b.endA != SizeNone, b.endXY != SizeNone),
		Clobbers: func() []Reg {
			var rs []Reg
			for r := 0; r < 3; r++ {
				if b.clobbered[r] {
					rs = append(rs, Reg(r))
				}
			}
			return rs
		}(),
	}
	return nil
}

func regsOf(a, xy bool) []Reg {
	var rs []Reg
	if a {
		rs = append(rs, RegA)
	}
	if xy {
		rs = append(rs, RegX, RegY)
	}
	return rs
}
