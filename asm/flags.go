package asm

import "fmt"

// Flags holds the processor status register bits relevant to code
// generation (nvmxdizc), lifted from the teacher's immediate assembler.
type Flags uint8

const (
	Carry       Flags = 1 << iota
	Zero
	IRQDisable
	DecimalMode
	IndexRegister8bit
	Accumulator8bit
	Overflow
	Negative
)

// RegSize is the tri-state register-size mode: unknown, 8-bit, or 16-bit.
type RegSize int

const (
	SizeNone RegSize = iota
	Size8
	Size16
)

func (s RegSize) String() string {
	switch s {
	case Size8:
		return "8bit"
	case Size16:
		return "16bit"
	default:
		return "none"
	}
}

// Reg names the three CPU registers a calling convention can mention.
type Reg int

const (
	RegA Reg = iota
	RegX
	RegY
)

func (r Reg) String() string {
	switch r {
	case RegA:
		return "A"
	case RegX:
		return "X"
	case RegY:
		return "Y"
	default:
		return "?"
	}
}

// Tri is a tri-valued partial update: leave a flag alone, set it, or clear
// it. Used by StatusChange to model change_status_flags' coalescing input.
type Tri int

const (
	Unchanged Tri = iota
	Set
	Clear
)

// StatusChange is the explicit-field partial-update record recommended by
// spec.md §9 Design Notes in place of a single bitmask argument.
type StatusChange struct {
	Carry, Zero, IRQDisable, DecimalMode Tri
	IndexRegister8bit, Accumulator8bit   Tri
	Overflow, Negative                   Tri
}

// masks computes the union of bits to SEP and REP respectively for this
// partial update.
func (c StatusChange) masks() (set, clear Flags) {
	apply := func(tri Tri, bit Flags) {
		switch tri {
		case Set:
			set |= bit
		case Clear:
			clear |= bit
		}
	}
	apply(c.Carry, Carry)
	apply(c.Zero, Zero)
	apply(c.IRQDisable, IRQDisable)
	apply(c.DecimalMode, DecimalMode)
	apply(c.IndexRegister8bit, IndexRegister8bit)
	apply(c.Accumulator8bit, Accumulator8bit)
	apply(c.Overflow, Overflow)
	apply(c.Negative, Negative)
	return
}

func sizeFlagBit(isA bool) Flags {
	if isA {
		return Accumulator8bit
	}
	return IndexRegister8bit
}

func mustKnown(sz RegSize, what string) {
	if sz == SizeNone {
		panic(fmt.Errorf("asm: %s register size is unknown; call a Reg*8/Reg*16 setter first", what))
	}
}
