package main

import (
	"os"
	"path/filepath"
	"testing"

	"snesgen/asm"
	"snesgen/lorom"
	"snesgen/snes"
)

// TestResetVectorRoundTripsToEntryOffset exercises the round-trip law
// SPEC_FULL.md §8 adds: the CPU address written into the RESET vector,
// mapped back through lorom.AddressToOffset, must equal the entry
// function's assigned ROM offset.
func TestResetVectorRoundTripsToEntryOffset(t *testing.T) {
	mapper := lorom.Mapper{}
	ctx := asm.NewContext(mapper)

	entry := asm.FunctionSymbol("main", func(b *asm.Builder) error {
		b.Emit(asm.Instr{Op: asm.OpNop})
		b.Emit(asm.Instr{Op: asm.OpRts})
		return nil
	})
	if err := ctx.RegisterEntry(entry); err != nil {
		t.Fatal(err)
	}

	rom := make([]byte, 1<<20)
	if err := ctx.Build(rom, 0); err != nil {
		t.Fatal(err)
	}

	entryFn, ok := ctx.Registry.ResolveFunction(entry)
	if !ok {
		t.Fatal("entry did not resolve")
	}
	entryAddr, err := mapper.OffsetToAddress(entryFn.Offset)
	if err != nil {
		t.Fatal(err)
	}

	r, err := snes.NewROM(rom)
	if err != nil {
		t.Fatal(err)
	}
	r.SetResetVector(entryAddr)

	// The RESET vector only holds 16 bits, so round-tripping needs the
	// bank the ROM was mapped into to reconstruct the full address.
	fullAddr := (entryAddr &^ 0xFFFF) | uint32(r.EmulatedVectors.RESET)
	gotOffset, err := mapper.AddressToOffset(fullAddr)
	if err != nil {
		t.Fatal(err)
	}
	if gotOffset != entryFn.Offset {
		t.Fatalf("round-tripped offset %#x, want %#x", gotOffset, entryFn.Offset)
	}
}

func TestRunBuildWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "demo")

	if err := runBuild([]string{out}); err != nil {
		t.Fatal(err)
	}

	for _, ext := range []string{".sfc", ".lbl", ".cdl"} {
		if _, err := os.Stat(out + ext); err != nil {
			t.Fatalf("missing %s: %v", ext, err)
		}
	}
}
