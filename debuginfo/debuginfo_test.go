package debuginfo_test

import (
	"strings"
	"testing"

	"snesgen/asm"
	"snesgen/debuginfo"
	"snesgen/lorom"
)

func buildSimple(t *testing.T) (*asm.Registry, []byte) {
	t.Helper()
	reg := asm.NewRegistry(lorom.Mapper{})
	sym := asm.FunctionSymbol("entry", func(b *asm.Builder) error {
		b.Comment("loop forever")
		l := b.DefineLabel()
		b.Emit(asm.Instr{Op: asm.OpNop})
		b.BranchAlways(l)
		return nil
	})
	if _, err := reg.RegisterFunction(sym); err != nil {
		t.Fatal(err)
	}
	rom := make([]byte, 0x100)
	if _, err := reg.Layout(0); err != nil {
		t.Fatal(err)
	}
	if err := reg.WriteInto(rom); err != nil {
		t.Fatal(err)
	}
	if err := reg.ApplyRelocations(rom); err != nil {
		t.Fatal(err)
	}
	return reg, rom
}

func TestWriteLabelsEmitsEntryLabelAndComment(t *testing.T) {
	reg, _ := buildSimple(t)
	out := string(debuginfo.WriteLabels(reg))
	if !strings.Contains(out, "SnesPrgRom:0:entry:loop forever\n") {
		t.Fatalf("label file missing expected entry line, got:\n%s", out)
	}
}

func TestCoverageFlagsMarkCodeBytes(t *testing.T) {
	reg, rom := buildSimple(t)
	flags, err := debuginfo.BuildCoverageFlags(reg, len(rom))
	if err != nil {
		t.Fatal(err)
	}
	// entry is nop (1 byte) + bra rel8 (2 bytes) = 3 code bytes at offset 0.
	for i := 0; i < 3; i++ {
		if flags[i]&debuginfo.FlagCode == 0 {
			t.Fatalf("byte %d not marked code", i)
		}
	}
	if flags[3] != 0 {
		t.Fatalf("byte 3 should be unmarked padding, got %#x", flags[3])
	}
}

func TestWriteCoverageMagicAndLength(t *testing.T) {
	reg, rom := buildSimple(t)
	out, err := debuginfo.WriteCoverage(reg, rom)
	if err != nil {
		t.Fatal(err)
	}
	if string(out[:5]) != "CDLv2" {
		t.Fatalf("missing CDLv2 magic, got %q", out[:5])
	}
	if len(out) != 5+4+len(rom) {
		t.Fatalf("got length %d, want %d", len(out), 5+4+len(rom))
	}
}

func TestCoverageCRCZeroROM(t *testing.T) {
	reg := asm.NewRegistry(lorom.Mapper{})
	rom := make([]byte, 128*1024)
	out, err := debuginfo.WriteCoverage(reg, rom)
	if err != nil {
		t.Fatal(err)
	}
	// A 128 KiB all-zero ROM, poly=0x77073096, init=0, no-reflect, no-xor:
	// every bit of crc stays 0 through the zero-byte/zero-crc XOR step
	// since crc^=0<<24 is a no-op and the top bit of an all-zero crc is
	// always 0, so the shift loop never XORs in the polynomial.
	crc := uint32(out[5]) | uint32(out[6])<<8 | uint32(out[7])<<16 | uint32(out[8])<<24
	if crc != 0 {
		t.Fatalf("crc of all-zero ROM = %#x, want 0", crc)
	}
}
