package asm

import "fmt"

// RelocKind selects how a relocation's target resolves into operand bytes,
// per spec.md §3/§4.4.
type RelocKind int

const (
	RelocImm8 RelocKind = iota
	RelocImm16
	RelocRel8
	RelocAddr16
	RelocAddr24
	RelocAddrLo
	RelocAddrHi
	RelocAddrBank
)

// Reloc is a deferred write into the operand bytes of one instruction.
// For RelocImm8/RelocImm16 the value is carried directly in Value and
// Target/TargetOffset are unread. For every other kind Target names the
// symbol whose mapped address (plus TargetOffset) supplies the value.
type Reloc struct {
	Kind         RelocKind
	Target       Symbol
	TargetOffset uint16
	Value        uint16 // used only by RelocImm8/RelocImm16
}

// BranchRelocKind distinguishes the two pre-layout control-transfer
// placeholders spec.md §3 describes.
type BranchRelocKind int

const (
	BranchAlways BranchRelocKind = iota
	BranchJumpLong
)

// BranchReloc is a pre-layout placeholder for a control transfer whose
// short/long form is undecided; it targets a Label defined within the same
// function and is consumed by the branch-lowering pass.
type BranchReloc struct {
	Kind   BranchRelocKind
	Target Label
}

// symbolAddress resolves the CPU-mapped address of a symbol plus offset.
// Function and data targets are looked up through the Registry, which is
// why applyRelocations is a Registry method rather than working off bare
// offsets.
//
// An unregistered or not-yet-laid-out target is spec.md §7's "Unknown
// symbol at layout" row — Fatal panic, the same assertion class as
// recordReturn's inconsistent-register-size check — not a recoverable
// error a caller could check and continue past.
func (r *Registry) symbolAddress(sym Symbol, offset uint16) uint32 {
	switch sym.Kind {
	case SymAddress:
		return sym.Addr + uint32(offset)
	case SymFunction:
		rf, ok := r.funcs[funcPtr(sym.Gen)]
		if !ok || !rf.laidOut {
			panic(fmt.Errorf("asm: relocation against unregistered or unlaid-out function %q", sym.Name))
		}
		addr, err := r.Mapper.OffsetToAddress(rf.Offset)
		if err != nil {
			panic(err)
		}
		return addr + uint32(offset)
	case SymData:
		rd, ok := r.data[sym.Dat]
		if !ok || !rd.laidOut {
			panic(fmt.Errorf("asm: relocation against unregistered or unlaid-out data %q", sym.Dat.Name))
		}
		addr, err := r.Mapper.OffsetToAddress(rd.Offset)
		if err != nil {
			panic(err)
		}
		return addr + uint32(offset)
	default:
		panic(fmt.Errorf("asm: relocation against symbol of unknown kind"))
	}
}

// applyRelocations walks every function's metadata once, patching operand
// bytes directly into rom at func.offset + instr.offset + 1, per spec.md
// §4.4. It must run after every function and data blob has an assigned ROM
// offset.
func (r *Registry) applyRelocations(rom []byte) error {
	for _, fs := range r.funcOrder {
		rf := r.resolvedFunction(fs)
		base := rf.Offset
		for _, m := range rf.Meta {
			if m.Reloc == nil {
				continue
			}
			if err := r.applyOne(rom, base, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) applyOne(rom []byte, funcOffset uint32, m *Meta) error {
	reloc := m.Reloc
	at := funcOffset + uint32(m.Offset) + 1
	switch reloc.Kind {
	case RelocImm8:
		rom[at] = byte(reloc.Value)
		return nil
	case RelocImm16:
		rom[at] = byte(reloc.Value)
		rom[at+1] = byte(reloc.Value >> 8)
		return nil
	}

	target := r.symbolAddress(reloc.Target, reloc.TargetOffset)

	switch reloc.Kind {
	case RelocRel8:
		// Relative to the address immediately after this 2-byte bra —
		// the PC value the CPU actually branches from — not the
		// address of the bra's own opcode byte.
		curAddr, err := r.Mapper.OffsetToAddress(funcOffset + uint32(m.Offset) + 2)
		if err != nil {
			return err
		}
		diff := int64(target) - int64(curAddr)
		if diff < -128 || diff > 127 {
			return fmt.Errorf("asm: rel8 relocation out of range: %d", diff)
		}
		rom[at] = byte(int8(diff))
	case RelocAddr16:
		rom[at] = byte(target)
		rom[at+1] = byte(target >> 8)
	case RelocAddr24:
		rom[at] = byte(target)
		rom[at+1] = byte(target >> 8)
		rom[at+2] = byte(target >> 16)
	case RelocAddrLo:
		rom[at] = byte(target)
	case RelocAddrHi:
		rom[at] = byte(target >> 8)
	case RelocAddrBank:
		rom[at] = byte(target >> 16)
	default:
		return fmt.Errorf("asm: unhandled relocation kind %v", reloc.Kind)
	}
	return nil
}
