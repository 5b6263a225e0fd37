package snes

import (
	"encoding/hex"
	"testing"
)

func TestNewROM(t *testing.T) {
	contents := make([]byte, 0x8000)
	_, err := hex.Decode(
		contents[0x7FB0:],
		[]byte("018d2401e2306bffffffffffffffffff544845204c4547454e44204f46205a454c4441202020020a03010100f2500dafffffffff2c82ffff2c82c9800080d882"),
	)
	if err != nil {
		t.Fatal(err)
	}

	gotR, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	// check:
	if gotR.Header.MakerCode != 0x8D01 {
		t.Fatal("MakerCode")
	}
	if gotR.Header.GameCode != 0x30E20124 {
		t.Fatal("GameCode")
	}
}

func TestUpdateChecksum(t *testing.T) {
	contents := make([]byte, 0x8000)
	r, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	r.UpdateChecksum()

	if r.Header.CheckSum^r.Header.ComplementCheckSum != 0xFFFF {
		t.Fatalf("checksum %#04x and complement %#04x are not bitwise complements",
			r.Header.CheckSum, r.Header.ComplementCheckSum)
	}

	// Re-reading the ROM we just patched must agree with the struct.
	r2, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}
	if r2.Header.CheckSum != r.Header.CheckSum || r2.Header.ComplementCheckSum != r.Header.ComplementCheckSum {
		t.Fatal("UpdateChecksum did not write through to Contents")
	}
}

func TestSetResetVector(t *testing.T) {
	contents := make([]byte, 0x8000)
	r, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	r.SetResetVector(0x80_8123)

	if r.EmulatedVectors.RESET != 0x8123 {
		t.Fatalf("RESET = %#04x, want 0x8123", r.EmulatedVectors.RESET)
	}

	r2, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}
	if r2.EmulatedVectors.RESET != 0x8123 {
		t.Fatalf("Contents not updated: RESET = %#04x", r2.EmulatedVectors.RESET)
	}
}

func TestSetROMSize(t *testing.T) {
	contents := make([]byte, 0x8000)
	r, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	r.SetROMSize(1 << 20) // 1 MiB

	if got := r.ROMSize(); got != 1<<20 {
		t.Fatalf("ROMSize() = %d, want %d", got, 1<<20)
	}

	r2, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}
	if got := r2.ROMSize(); got != 1<<20 {
		t.Fatalf("Contents not updated: ROMSize() = %d, want %d", got, 1<<20)
	}
}

func TestSetROMSizeRejectsNonPowerOfTwo(t *testing.T) {
	contents := make([]byte, 0x8000)
	r, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-power-of-two size")
		}
	}()
	r.SetROMSize(0x123456)
}

func TestSetNativeVectors(t *testing.T) {
	contents := make([]byte, 0x8000)
	r, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}

	r.SetNativeVectors(0x80_9000, 0x80_A000)

	r2, err := NewROM(contents)
	if err != nil {
		t.Fatal(err)
	}
	if r2.NativeVectors.NMI != 0x9000 {
		t.Fatalf("NMI = %#04x, want 0x9000", r2.NativeVectors.NMI)
	}
	if r2.NativeVectors.IRQ != 0xA000 {
		t.Fatalf("IRQ = %#04x, want 0xA000", r2.NativeVectors.IRQ)
	}
}
