// Package lorom implements the LoROM cartridge address mapping of
// spec.md §4.5: the 32KB-bank mapping between linear ROM file offsets and
// 24-bit SNES CPU bus addresses.
//
// Grounded on the external lorom package call site in the teacher's
// games/alttp/patcher.go (`lorom.BusAddressToPC(0x00_802F)`); that
// package's own source isn't in the retrieval pack, so the formulas here
// come from spec.md §4.5 directly rather than from a transcription of
// teacher source.
package lorom

import "fmt"

const bankSize = 0x8000

// Mapper implements asm.AddressMapper for a LoROM cartridge. The zero value
// is ready to use.
type Mapper struct{}

// OffsetToAddress maps a linear ROM file offset to the 24-bit CPU address
// at which that byte is visible, per the LoROM formula:
//
//	bank   = offset / 0x8000
//	inBank = offset % 0x8000
//	addr   = ((bank + 0x80) << 16) | (inBank + 0x8000)
//
// An offset outside the 32KB-bank layout this package implements is
// spec.md §7's "Unimplemented mapping" row — Fatal panic, not a
// recoverable error — per §4.5's "other layouts are declared
// unimplemented and fail explicitly if selected."
func (Mapper) OffsetToAddress(offset uint32) (uint32, error) {
	bank := offset / bankSize
	if bank > 0x7f {
		panic(fmt.Errorf("lorom: offset %#x is outside the addressable LoROM range", offset))
	}
	inBank := offset % bankSize
	return ((bank + 0x80) << 16) | (inBank + bankSize), nil
}

// AddressToOffset is the inverse of OffsetToAddress. It accepts any address
// within a LoROM-mapped bank, including the low mirror banks (0x00-0x7d)
// that alias the same ROM bytes as their high counterparts. As with
// OffsetToAddress, an address this layout can't place is a fatal panic,
// not a recoverable error.
func (Mapper) AddressToOffset(addr uint32) (uint32, error) {
	bank := (addr >> 16) & 0xff
	inBank := addr & 0xffff

	var romBank uint32
	switch {
	case bank >= 0x80:
		romBank = bank - 0x80
	case bank <= 0x7d:
		romBank = bank
	default:
		panic(fmt.Errorf("lorom: address %#x falls in a non-LoROM bank", addr))
	}

	if inBank < bankSize {
		panic(fmt.Errorf("lorom: address %#x is in the low (system/WRAM) half of its bank, not ROM", addr))
	}
	return romBank*bankSize + (inBank - bankSize), nil
}

// EnumerateMirrors returns every other CPU bus address at which the byte
// visible at addr is also visible, per spec.md's three mirrored regions:
//
//   - ROM region (in-bank address >= 0x8000): aliases between a bank's low
//     half (0x00-0x7d) and high half (0x80-0xff) counterpart, same
//     in-bank address — the >= 0x8000 predicate spec.md §9 says resolves
//     the source's unreachable `addr >= 0x0000 and addr >= 0x8000` branch.
//   - I/O region (in-bank address 0x2000-0x5FFF): aliased across every
//     bank in 0x00-0x3F and 0x80-0xBF at the same in-bank address.
//   - Low-RAM region (in-bank address 0x0000-0x1FFF): aliased across the
//     same 0x00-0x3F/0x80-0xBF band, plus pinned to bank 0x7E (the
//     physical WRAM bank).
//
// addr itself is never included in the result. The in-bank range
// 0x6000-0x7FFF, and a ROM-region address in bank 0x7E or 0x7F, are declared
// unimplemented and, per spec.md §7/§4.5, are a fatal panic rather than a
// guessed answer or a recoverable error. For I/O and low-RAM addresses the
// bank of addr is not checked; the result is the band listed above.
func (Mapper) EnumerateMirrors(addr uint32) []uint32 {
	bank := (addr >> 16) & 0xff
	inBank := addr & 0xffff

	switch {
	case inBank >= 0x8000:
		switch {
		case bank >= 0x80:
			return []uint32{((bank - 0x80) << 16) | inBank}
		case bank <= 0x7d:
			return []uint32{((bank + 0x80) << 16) | inBank}
		default:
			panic(fmt.Errorf("lorom: address %#x mirror enumeration is unimplemented for bank %#x", addr, bank))
		}
	case inBank >= 0x2000 && inBank <= 0x5fff:
		return bandMirrors(addr, inBank, false)
	case inBank <= 0x1fff:
		return bandMirrors(addr, inBank, true)
	default:
		panic(fmt.Errorf("lorom: address %#x mirror enumeration is unimplemented for this region", addr))
	}
}

// bandMirrors lists every address in banks 0x00-0x3F and 0x80-0xBF sharing
// inBank, excluding addr itself, additionally pinning bank 0x7E when
// pinWRAM is set.
func bandMirrors(addr, inBank uint32, pinWRAM bool) []uint32 {
	var out []uint32
	appendIfNotSelf := func(bank uint32) {
		if a := (bank << 16) | inBank; a != addr {
			out = append(out, a)
		}
	}
	for bank := uint32(0x00); bank <= 0x3f; bank++ {
		appendIfNotSelf(bank)
	}
	for bank := uint32(0x80); bank <= 0xbf; bank++ {
		appendIfNotSelf(bank)
	}
	if pinWRAM {
		appendIfNotSelf(0x7e)
	}
	return out
}
