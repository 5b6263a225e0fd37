package asm

import (
	"fmt"
	"reflect"
)

// AddressMapper translates between linear ROM file offsets and 24-bit CPU
// addresses under some cartridge memory layout. lorom.Mapper is the only
// implementation this module carries; it panics on an offset or address it
// cannot place rather than returning an error (spec.md §4.5/§7).
type AddressMapper interface {
	OffsetToAddress(offset uint32) (uint32, error)
	AddressToOffset(addr uint32) (uint32, error)
}

func funcPtr(gen GenFunc) uintptr {
	if gen == nil {
		return 0
	}
	return reflect.ValueOf(gen).Pointer()
}

// CallConv is the inferred entry/exit register-size contract of a function
// plus its input/output/clobber register sets, per spec.md §3.
type CallConv struct {
	StartA, EndA   RegSize
	StartXY, EndXY RegSize

	Inputs, Outputs, Clobbers []Reg
}

func (c CallConv) clobbers(r Reg) bool {
	for _, x := range c.Clobbers {
		if x == r {
			return true
		}
	}
	return false
}

// Meta is the per-instruction metadata vector entry described in spec.md
// §3: the instruction itself, its byte offset within the function (valid
// only after finalize), an optional relocation, an optional pre-layout
// branch relocation, the register-size modes in effect, and any source
// comments captured for it.
type Meta struct {
	Instr       Instr
	Offset      int
	Reloc       *Reloc
	BranchReloc *BranchReloc
	ASize       RegSize
	XYSize      RegSize
	Comments    []string
}

// ResolvedFunction is what the registry stores for each registered
// function symbol once (and while) it is generated.
type ResolvedFunction struct {
	Name string
	Loc  string

	Code []byte
	Meta []*Meta
	Conv CallConv

	Offset  uint32
	laidOut bool

	generating bool
}

// ResolvedData is what the registry stores for a registered data symbol.
type ResolvedData struct {
	Dat *Data

	Offset  uint32
	laidOut bool
}

type funcKey = uintptr

// Registry is the symbol registry of spec.md §4.1: two insertion-ordered
// mappings, one for function identity and one for data identity.
type Registry struct {
	Mapper AddressMapper

	funcs     map[funcKey]*ResolvedFunction
	funcOrder []Symbol

	data      map[*Data]*ResolvedData
	dataOrder []Symbol

	// order is the single combined registration order across both
	// functions and data; layout walks this list (spec.md §2: "layout
	// is linear by registration order").
	order []Symbol
}

// NewRegistry creates an empty registry bound to mapper.
func NewRegistry(mapper AddressMapper) *Registry {
	return &Registry{
		Mapper: mapper,
		funcs:  make(map[funcKey]*ResolvedFunction),
		data:   make(map[*Data]*ResolvedData),
	}
}

// RegisterSymbol dispatches registration by symbol variant, per spec.md
// §4.1. Address symbols require no action.
func (r *Registry) RegisterSymbol(sym Symbol) error {
	switch sym.Kind {
	case SymAddress:
		return nil
	case SymFunction:
		_, err := r.RegisterFunction(sym)
		return err
	case SymData:
		_, err := r.RegisterData(sym)
		return err
	default:
		return fmt.Errorf("asm: RegisterSymbol: unknown symbol kind")
	}
}

// RegisterFunction returns the existing resolved function for fs if one is
// already present — including a still-generating placeholder with empty
// code, which is how recursive self-registration through call() is
// observed — or registers and generates a fresh one.
func (r *Registry) RegisterFunction(fs Symbol) (*ResolvedFunction, error) {
	if fs.Kind != SymFunction {
		return nil, fmt.Errorf("asm: RegisterFunction: symbol is not a function symbol")
	}
	key := funcPtr(fs.Gen)
	if rf, ok := r.funcs[key]; ok {
		return rf, nil
	}

	rf := &ResolvedFunction{Name: fs.Name, generating: true}
	r.funcs[key] = rf
	r.funcOrder = append(r.funcOrder, fs)
	r.order = append(r.order, fs)

	b := newBuilder(r, fs)
	genErr := fs.Gen(b)
	if genErr != nil {
		return rf, fmt.Errorf("asm: generating %q: %w", fs.Name, genErr)
	}
	if err := b.build(rf); err != nil {
		return rf, fmt.Errorf("asm: generating %q: %w", fs.Name, err)
	}
	rf.generating = false
	return rf, nil
}

// RegisterData inserts ds if it is new, or returns the existing entry.
func (r *Registry) RegisterData(ds Symbol) (*ResolvedData, error) {
	if ds.Kind != SymData {
		return nil, fmt.Errorf("asm: RegisterData: symbol is not a data symbol")
	}
	if rd, ok := r.data[ds.Dat]; ok {
		return rd, nil
	}
	rd := &ResolvedData{Dat: ds.Dat}
	r.data[ds.Dat] = rd
	r.dataOrder = append(r.dataOrder, ds)
	r.order = append(r.order, ds)
	return rd, nil
}

func (r *Registry) resolvedFunction(fs Symbol) *ResolvedFunction {
	return r.funcs[funcPtr(fs.Gen)]
}

// ResolveFunction looks up the resolved record for a function symbol, for
// use by the debug file emitter when walking relocations whose target is
// another function.
func (r *Registry) ResolveFunction(fs Symbol) (*ResolvedFunction, bool) {
	if fs.Kind != SymFunction {
		return nil, false
	}
	rf, ok := r.funcs[funcPtr(fs.Gen)]
	return rf, ok
}

// Layout assigns ROM offsets to every registered function and data symbol
// in registration order, starting at base, and returns the first unused
// offset. Per spec.md §3/§8, registry insertion order equals layout order.
func (r *Registry) Layout(base uint32) (uint32, error) {
	offset := base
	for _, sym := range r.order {
		switch sym.Kind {
		case SymFunction:
			rf := r.resolvedFunction(sym)
			if rf.generating {
				return 0, fmt.Errorf("asm: layout: function %q never finished generating", rf.Name)
			}
			rf.Offset = offset
			rf.laidOut = true
			offset += uint32(len(rf.Code))
		case SymData:
			rd := r.data[sym.Dat]
			rd.Offset = offset
			rd.laidOut = true
			offset += uint32(len(sym.Dat.Bytes))
		}
	}
	return offset, nil
}

// WriteInto copies every laid-out function's code and every laid-out data
// blob's bytes into rom at their assigned offsets.
func (r *Registry) WriteInto(rom []byte) error {
	for _, sym := range r.order {
		switch sym.Kind {
		case SymFunction:
			rf := r.resolvedFunction(sym)
			if !rf.laidOut {
				return fmt.Errorf("asm: WriteInto: function %q has no ROM offset; call Layout first", rf.Name)
			}
			if int(rf.Offset)+len(rf.Code) > len(rom) {
				return fmt.Errorf("asm: WriteInto: function %q overflows ROM buffer", rf.Name)
			}
			copy(rom[rf.Offset:], rf.Code)
		case SymData:
			rd := r.data[sym.Dat]
			if !rd.laidOut {
				return fmt.Errorf("asm: WriteInto: data %q has no ROM offset; call Layout first", rd.Dat.Name)
			}
			if int(rd.Offset)+len(rd.Dat.Bytes) > len(rom) {
				return fmt.Errorf("asm: WriteInto: data %q overflows ROM buffer", rd.Dat.Name)
			}
			copy(rom[rd.Offset:], rd.Dat.Bytes)
		}
	}
	return nil
}

// ApplyRelocations patches every deferred operand write into rom, per
// spec.md §4.4. It must run after Layout and WriteInto.
func (r *Registry) ApplyRelocations(rom []byte) error {
	return r.applyRelocations(rom)
}

// Functions returns every registered function in registration order, for
// use by the debug file emitter.
func (r *Registry) Functions() []*ResolvedFunction {
	out := make([]*ResolvedFunction, 0, len(r.funcOrder))
	for _, sym := range r.funcOrder {
		out = append(out, r.resolvedFunction(sym))
	}
	return out
}
