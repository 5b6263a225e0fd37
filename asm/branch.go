package asm

import "fmt"

// Short/long encoded sizes for the two control-transfer forms, per
// spec.md §4.3.
const (
	sizeBraShort = 2
	sizeJmpLong  = 3
	sizeJmlFixed = 4
)

// lowerBranches implements the branch-lowering pass of spec.md §4.3: an
// iterative fixed point that chooses, for every branch_always placeholder,
// between a short bra and a long jmp, then installs real instructions and
// real relocations (against self, the enclosing function) in place of
// every branch relocation. jump_long placeholders always lower to jml,
// which has no short form.
//
// This implementation tracks a short/long flag per branch_always index and
// a running prefix-offset table recomputed from those flags, rather than
// the interval-sum formulation in spec.md's prose — the two are equivalent
// (both are a standard worst-case-to-best-case branch relaxation), but the
// offset-table form sidesteps the self-referential edge case where a
// backward branch's own contribution to its target distance would
// otherwise need to reference a size not yet chosen. See DESIGN.md.
func lowerBranches(meta []*Meta, self Symbol) error {
	var branches []int
	for i, m := range meta {
		if m.BranchReloc != nil {
			branches = append(branches, i)
		}
	}
	if len(branches) == 0 {
		return nil
	}

	short := make(map[int]bool, len(branches))

	entrySize := func(i int) int {
		m := meta[i]
		if m.BranchReloc != nil {
			if m.BranchReloc.Kind == BranchJumpLong {
				return sizeJmlFixed
			}
			if short[i] {
				return sizeBraShort
			}
			return sizeJmpLong
		}
		return m.Instr.size(m.ASize, m.XYSize)
	}

	offsetsFor := func() []int {
		off := make([]int, len(meta)+1)
		for i := range meta {
			off[i+1] = off[i] + entrySize(i)
		}
		return off
	}

	for {
		off := offsetsFor()
		changed := false
		for _, s := range branches {
			if meta[s].BranchReloc.Kind != BranchAlways || short[s] {
				continue
			}
			targetIdx := meta[s].BranchReloc.Target.instrIndex()
			endIfShort := off[s] + sizeBraShort
			distance := off[targetIdx] - endIfShort
			if distance >= -128 && distance <= 127 {
				short[s] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	off := offsetsFor()

	for i := len(branches) - 1; i >= 0; i-- {
		s := branches[i]
		m := meta[s]
		br := m.BranchReloc
		targetIdx := br.Target.instrIndex()
		targetOffset := off[targetIdx]

		switch br.Kind {
		case BranchAlways:
			if short[s] {
				m.Instr = Instr{Op: OpBra}
				m.Reloc = &Reloc{Kind: RelocRel8, Target: self, TargetOffset: uint16(targetOffset)}
			} else {
				m.Instr = Instr{Op: OpJmp}
				m.Reloc = &Reloc{Kind: RelocAddr16, Target: self, TargetOffset: uint16(targetOffset)}
			}
		case BranchJumpLong:
			m.Instr = Instr{Op: OpJml}
			m.Reloc = &Reloc{Kind: RelocAddr24, Target: self, TargetOffset: uint16(targetOffset)}
		default:
			return fmt.Errorf("asm: lowerBranches: unknown branch relocation kind")
		}
		m.BranchReloc = nil
	}
	return nil
}
