package main

import (
	"fmt"
	"os"

	"snesgen/asm"
	"snesgen/debuginfo"
	"snesgen/lorom"
	"snesgen/snes"
	"snesgen/util"
)

const romSize = 1 << 20 // 1 MiB LoROM image

// runBuild assembles a small demonstration program (a loop that zeroes a
// WRAM counter forever) and writes out the ROM plus its debug label and
// coverage files. It is the cmd/ analogue of the teacher's
// alttpo-patcher: a short, linear main that drives the library end to
// end and returns an error on any setup failure.
func runBuild(args []string) error {
	out := "demo"
	if len(args) > 0 {
		out = args[0]
	}

	defer util.FlushLogger()

	mapper := lorom.Mapper{}
	ctx := asm.NewContext(mapper)

	counter := asm.AddressSymbol(0x7E0010)

	entry := asm.FunctionSymbol("main", func(b *asm.Builder) error {
		b.Comment("clear the frame counter and spin")
		b.RegA8()
		loop := b.DefineLabel()
		b.StoreZero(asm.Size8, counter, 0)
		b.BranchAlways(loop)
		return nil
	})

	if err := ctx.RegisterEntry(entry); err != nil {
		return fmt.Errorf("registering entry point: %w", err)
	}

	rom := make([]byte, romSize)
	if err := ctx.Build(rom, 0); err != nil {
		return fmt.Errorf("building ROM: %w", err)
	}

	entryFn, ok := ctx.Registry.ResolveFunction(entry)
	if !ok {
		return fmt.Errorf("entry point did not resolve after build")
	}
	entryAddr, err := mapper.OffsetToAddress(entryFn.Offset)
	if err != nil {
		return fmt.Errorf("mapping entry point address: %w", err)
	}

	r, err := snes.NewROM(rom)
	if err != nil {
		return fmt.Errorf("parsing ROM header: %w", err)
	}
	r.SetResetVector(entryAddr)
	r.SetROMSize(uint32(len(rom)))
	if r.ROMSize() != uint32(len(rom)) {
		return fmt.Errorf("header declares a %d-byte ROM, buffer is %d bytes", r.ROMSize(), len(rom))
	}
	r.UpdateChecksum()

	if err := os.WriteFile(out+".sfc", rom, 0644); err != nil {
		return fmt.Errorf("writing ROM file: %w", err)
	}
	if err := os.WriteFile(out+".lbl", debuginfo.WriteLabels(ctx.Registry), 0644); err != nil {
		return fmt.Errorf("writing label file: %w", err)
	}
	coverage, err := debuginfo.WriteCoverage(ctx.Registry, rom)
	if err != nil {
		return fmt.Errorf("building coverage file: %w", err)
	}
	if err := os.WriteFile(out+".cdl", coverage, 0644); err != nil {
		return fmt.Errorf("writing coverage file: %w", err)
	}

	fmt.Printf("wrote %s.sfc, %s.lbl, %s.cdl (entry at $%06X)\n", out, out, out, entryAddr)
	return nil
}
