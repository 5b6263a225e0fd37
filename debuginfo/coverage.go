// Package debuginfo emits the two companion debug artifacts described in
// spec.md §4.7/§6: a line-oriented label file and a binary code/data
// coverage file, both walked from a fully built asm.Registry.
package debuginfo

import (
	"fmt"

	"snesgen/asm"
)

// Coverage flag bits, per spec.md §6 ("bit 0 = LSB").
const (
	FlagCode          byte = 1 << 0
	FlagData          byte = 1 << 1
	FlagJumpTarget    byte = 1 << 2
	FlagSubEntryPoint byte = 1 << 3
	FlagIndexMode8    byte = 1 << 4
	FlagMemoryMode8   byte = 1 << 5
	FlagGSU           byte = 1 << 6 // always 0; no GSU/SuperFX support
	FlagCX4           byte = 1 << 7 // always 0; no CX4 support
)

const coverageMagic = "CDLv2"

func accumOp(op asm.Opcode) bool {
	switch op {
	case asm.OpLdaImm, asm.OpSta, asm.OpPha, asm.OpPla:
		return true
	default:
		return false
	}
}

func indexOp(op asm.Opcode) bool {
	switch op {
	case asm.OpPhx, asm.OpPlx, asm.OpPhy, asm.OpPly:
		return true
	default:
		return false
	}
}

func isCallOp(op asm.Opcode) bool {
	return op == asm.OpJsr
}

// BuildCoverageFlags walks every function registered with reg and produces
// one flag byte per byte of a ROM of length romLen, per spec.md §4.7.
func BuildCoverageFlags(reg *asm.Registry, romLen int) ([]byte, error) {
	flags := make([]byte, romLen)

	for _, rf := range reg.Functions() {
		if err := markFunctionBytes(flags, rf); err != nil {
			return nil, err
		}
	}
	for _, rf := range reg.Functions() {
		if err := markRelocationTargets(reg, flags, rf); err != nil {
			return nil, err
		}
	}
	return flags, nil
}

func markFunctionBytes(flags []byte, rf *asm.ResolvedFunction) error {
	for i, m := range rf.Meta {
		start := int(rf.Offset) + m.Offset
		end := len(rf.Code)
		if i+1 < len(rf.Meta) {
			end = rf.Meta[i+1].Offset
		}
		end += int(rf.Offset)
		if end > len(flags) {
			return fmt.Errorf("debuginfo: function %q overruns coverage buffer", rf.Name)
		}
		for b := start; b < end; b++ {
			flags[b] |= FlagCode
			if accumOp(m.Instr.Op) && m.ASize == asm.Size8 {
				flags[b] |= FlagMemoryMode8
			}
			if indexOp(m.Instr.Op) && m.XYSize == asm.Size8 {
				flags[b] |= FlagIndexMode8
			}
		}
	}
	return nil
}

// markRelocationTargets locates, for every relocation whose target is a
// function, the first target instruction at or after the relocation's
// TargetOffset, and marks its bytes sub_entry_point (jsr origin) or
// jump_target (any other origin instruction).
func markRelocationTargets(reg *asm.Registry, flags []byte, rf *asm.ResolvedFunction) error {
	for _, m := range rf.Meta {
		if m.Reloc == nil || m.Reloc.Target.Kind != asm.SymFunction {
			continue
		}
		target, ok := reg.ResolveFunction(m.Reloc.Target)
		if !ok {
			return fmt.Errorf("debuginfo: relocation in %q targets an unresolved function", rf.Name)
		}

		idx := -1
		for i, tm := range target.Meta {
			if tm.Offset >= int(m.Reloc.TargetOffset) {
				idx = i
				break
			}
		}
		if idx == -1 {
			continue
		}

		start := int(target.Offset) + target.Meta[idx].Offset
		end := len(target.Code)
		if idx+1 < len(target.Meta) {
			end = target.Meta[idx+1].Offset
		}
		end += int(target.Offset)
		if end > len(flags) {
			return fmt.Errorf("debuginfo: relocation target in %q overruns coverage buffer", target.Name)
		}

		bit := FlagJumpTarget
		if isCallOp(m.Instr.Op) {
			bit = FlagSubEntryPoint
		}
		for b := start; b < end; b++ {
			flags[b] |= bit
		}
	}
	return nil
}

// WriteCoverage assembles the full CDLv2 coverage file: the magic prefix,
// the little-endian non-reflected CRC-32 of rom, then the flag bytes.
func WriteCoverage(reg *asm.Registry, rom []byte) ([]byte, error) {
	flags, err := BuildCoverageFlags(reg, len(rom))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(coverageMagic)+4+len(flags))
	out = append(out, coverageMagic...)

	crc := crc32NoReflect(rom)
	out = append(out, byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))

	out = append(out, flags...)
	return out, nil
}

// crc32NoReflect computes a CRC-32 variant with polynomial 0x77073096,
// initial value 0, no input or output bit reflection, and no output XOR —
// deliberately not the standard reflected CRC-32 the stdlib's hash/crc32
// package computes, so the table-driven stdlib path doesn't apply here.
// Bit-by-bit rather than table-driven, matching the teacher's preference
// for hand-rolled binary decoding (snes/rom.go's own reflect-based struct
// reader) over reaching for a third-party binary/hash helper for a
// one-off, non-standard variant.
func crc32NoReflect(data []byte) uint32 {
	const poly = 0x77073096
	var crc uint32
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
