package asm_test

import (
	"strings"
	"testing"

	"snesgen/asm"
	"snesgen/lorom"
)

func TestIdempotentRegistration(t *testing.T) {
	reg := asm.NewRegistry(lorom.Mapper{})
	calls := 0
	sym := asm.FunctionSymbol("once", func(b *asm.Builder) error {
		calls++
		b.Emit(asm.Instr{Op: asm.OpRts})
		return nil
	})

	rf1, err := reg.RegisterFunction(sym)
	if err != nil {
		t.Fatal(err)
	}
	rf2, err := reg.RegisterFunction(sym)
	if err != nil {
		t.Fatal(err)
	}
	if rf1 != rf2 {
		t.Fatalf("second registration returned a different handle")
	}
	if calls != 1 {
		t.Fatalf("generator ran %d times, want 1", calls)
	}
}

func TestCircularDependencyIsDiagnosed(t *testing.T) {
	reg := asm.NewRegistry(lorom.Mapper{})

	var aSym, bSym asm.Symbol
	aSym = asm.FunctionSymbol("a", func(b *asm.Builder) error {
		return b.Call(bSym)
	})
	bSym = asm.FunctionSymbol("b", func(b *asm.Builder) error {
		return b.Call(aSym)
	})

	_, err := reg.RegisterFunction(aSym)
	if err == nil {
		t.Fatal("expected a circular dependency error")
	}
	if !strings.Contains(err.Error(), "circular dependency") {
		t.Fatalf("error %q does not mention a circular dependency", err)
	}
}

// TestCircularDependencyEscapeHatch exercises the realistic mutual-recursion
// pattern: a calls b the normal way (Call, which registers b through the
// registry), and b — still finding a mid-generation — falls back to
// JumpSubroutine rather than Call to avoid the circular-dependency error.
// It then proves the escape hatch actually yields a buildable ROM by
// running the full Layout/WriteInto/ApplyRelocations sequence, not just
// checking that registration returned no error.
func TestCircularDependencyEscapeHatch(t *testing.T) {
	reg := asm.NewRegistry(lorom.Mapper{})

	var aSym, bSym asm.Symbol
	aSym = asm.FunctionSymbol("a", func(b *asm.Builder) error {
		if err := b.Call(bSym); err != nil {
			return err
		}
		b.Emit(asm.Instr{Op: asm.OpRts})
		return nil
	})
	bSym = asm.FunctionSymbol("b", func(b *asm.Builder) error {
		b.JumpSubroutine(aSym)
		b.Emit(asm.Instr{Op: asm.OpRts})
		return nil
	})

	if _, err := reg.RegisterFunction(aSym); err != nil {
		t.Fatalf("JumpSubroutine should bypass circular dependency detection: %v", err)
	}

	bfn, ok := reg.ResolveFunction(bSym)
	if !ok {
		t.Fatal("b was never registered even though a calls it via Call")
	}

	rom := make([]byte, 0x10000)
	end, err := reg.Layout(0x8000)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if int(end) > len(rom) {
		t.Fatalf("layout end %#x overruns a %d-byte rom", end, len(rom))
	}
	if err := reg.WriteInto(rom); err != nil {
		t.Fatalf("WriteInto: %v", err)
	}
	if err := reg.ApplyRelocations(rom); err != nil {
		t.Fatalf("ApplyRelocations: %v", err)
	}
	if len(bfn.Code) == 0 {
		t.Fatal("b has no code after layout")
	}
}

func TestLayoutOrderMatchesRegistrationOrder(t *testing.T) {
	reg := asm.NewRegistry(lorom.Mapper{})

	// Function identity is the generator's code pointer, so each symbol
	// needs its own function literal; symbols built from one shared literal
	// would all be the same function.
	body := func(b *asm.Builder) error {
		b.Emit(asm.Instr{Op: asm.OpNop})
		b.Emit(asm.Instr{Op: asm.OpRts})
		return nil
	}
	first := asm.FunctionSymbol("first", func(b *asm.Builder) error { return body(b) })
	second := asm.FunctionSymbol("second", func(b *asm.Builder) error { return body(b) })
	third := asm.FunctionSymbol("third", func(b *asm.Builder) error { return body(b) })

	if _, err := reg.RegisterFunction(first); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RegisterFunction(second); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RegisterFunction(third); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Layout(0x1000); err != nil {
		t.Fatal(err)
	}

	fns := reg.Functions()
	if len(fns) != 3 {
		t.Fatalf("got %d functions, want 3", len(fns))
	}
	if fns[0].Name != "first" || fns[1].Name != "second" || fns[2].Name != "third" {
		t.Fatalf("unexpected order: %v", fns)
	}
	if fns[0].Offset != 0x1000 || fns[1].Offset != 0x1002 || fns[2].Offset != 0x1004 {
		t.Fatalf("unexpected offsets: %d %d %d", fns[0].Offset, fns[1].Offset, fns[2].Offset)
	}
}
