package lorom

import "testing"

// expectPanic runs f and fails the test unless it panics, per spec.md §7's
// classification of unimplemented/unmapped addresses as a fatal panic
// rather than a recoverable error.
func expectPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	f()
}

func TestOffsetToAddressBank0(t *testing.T) {
	var m Mapper
	addr, err := m.OffsetToAddress(0x002F)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x80_802F {
		t.Fatalf("got %#x, want %#x", addr, 0x80_802F)
	}
}

func TestOffsetToAddressBank1(t *testing.T) {
	var m Mapper
	addr, err := m.OffsetToAddress(0x8000)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x81_8000 {
		t.Fatalf("got %#x, want %#x", addr, 0x81_8000)
	}
}

func TestRoundTrip(t *testing.T) {
	var m Mapper
	for _, offset := range []uint32{0, 0x002F, 0x7FFF, 0x8000, 0x10000, 0x123456} {
		addr, err := m.OffsetToAddress(offset)
		if err != nil {
			t.Fatalf("OffsetToAddress(%#x): %v", offset, err)
		}
		back, err := m.AddressToOffset(addr)
		if err != nil {
			t.Fatalf("AddressToOffset(%#x): %v", addr, err)
		}
		if back != offset {
			t.Fatalf("round trip: offset %#x -> addr %#x -> offset %#x", offset, addr, back)
		}
	}
}

func TestAddressToOffsetLowMirror(t *testing.T) {
	var m Mapper
	// Bank 0x01 mirrors bank 0x81 at the same in-bank address.
	off1, err := m.AddressToOffset(0x01_8000)
	if err != nil {
		t.Fatal(err)
	}
	off2, err := m.AddressToOffset(0x81_8000)
	if err != nil {
		t.Fatal(err)
	}
	if off1 != off2 {
		t.Fatalf("mirror banks disagree: %#x vs %#x", off1, off2)
	}
}

func TestAddressToOffsetRejectsLowHalf(t *testing.T) {
	var m Mapper
	expectPanic(t, func() {
		m.AddressToOffset(0x00_1234)
	})
}

func TestOffsetToAddressRejectsOutOfRange(t *testing.T) {
	var m Mapper
	expectPanic(t, func() {
		m.OffsetToAddress(0x80_0000)
	})
}

func TestEnumerateMirrorsROMRegion(t *testing.T) {
	var m Mapper
	mirrors := m.EnumerateMirrors(0x80_802F)
	if len(mirrors) != 1 || mirrors[0] != 0x00_802F {
		t.Fatalf("got %v, want [%#x]", mirrors, 0x00_802F)
	}
}

// TestEnumerateMirrorsIORegion is the spec's own worked example: CPU
// address 0x002100 must mirror across bank 0x01..0x3F and 0x80..0xBF at
// the same in-bank address, and must not include 0x002100 itself.
func TestEnumerateMirrorsIORegion(t *testing.T) {
	var m Mapper
	mirrors := m.EnumerateMirrors(0x00_2100)
	if len(mirrors) != 0x3f+0x40 {
		t.Fatalf("expected %d mirrors, got %d: %v", 0x3f+0x40, len(mirrors), mirrors)
	}
	seen := make(map[uint32]bool, len(mirrors))
	for _, a := range mirrors {
		if a == 0x00_2100 {
			t.Fatal("mirror list must exclude the address itself")
		}
		bank := a >> 16
		if a&0xffff != 0x2100 {
			t.Fatalf("mirror %#x has the wrong in-bank address", a)
		}
		if !((bank >= 0x01 && bank <= 0x3f) || (bank >= 0x80 && bank <= 0xbf)) {
			t.Fatalf("mirror %#x falls outside bank 0x01-0x3F/0x80-0xBF", a)
		}
		seen[a] = true
	}
	if !seen[0x01_2100] || !seen[0x3f_2100] || !seen[0x80_2100] || !seen[0xbf_2100] {
		t.Fatalf("missing expected boundary banks: %v", mirrors)
	}
}

func TestEnumerateMirrorsLowRAMPinsWRAMBank(t *testing.T) {
	var m Mapper
	mirrors := m.EnumerateMirrors(0x01_1000)
	var pinned bool
	for _, a := range mirrors {
		if a == 0x7e_1000 {
			pinned = true
		}
	}
	if !pinned {
		t.Fatalf("expected bank 0x7E pinned in low-RAM mirror list, got %v", mirrors)
	}
}

func TestEnumerateMirrorsUnimplementedRegion(t *testing.T) {
	var m Mapper
	expectPanic(t, func() {
		m.EnumerateMirrors(0x00_6000)
	})
}
