package asm

// SymbolKind discriminates the three Symbol variants.
type SymbolKind int

const (
	SymAddress SymbolKind = iota
	SymFunction
	SymData
)

// GenFunc is the host-supplied callback that emits a function's body into
// a fresh Builder. It must not retain the Builder beyond its return.
type GenFunc func(b *Builder) error

// Data is an owning reference to a named byte blob laid out verbatim into
// the ROM, the data-symbol identity.
type Data struct {
	Name  string
	Bytes []byte
}

// Symbol is the tagged union of address/function/data symbols described in
// spec.md §3. Two symbols are equal when their Kind and identity value are
// equal; for SymFunction that identity is the generator function pointer,
// for SymData the *Data pointer, for SymAddress the raw address itself.
type Symbol struct {
	Kind SymbolKind

	// SymAddress
	Addr uint32

	// SymFunction
	Gen  GenFunc
	Name string // optional human-readable name

	// SymData
	Dat *Data
}

// AddressSymbol builds an address-symbol referring to a raw 24-bit CPU
// address, typically a memory-mapped I/O register. Address symbols never
// occupy ROM.
func AddressSymbol(addr uint32) Symbol {
	return Symbol{Kind: SymAddress, Addr: addr}
}

// FunctionSymbol builds a function symbol identified by its generator
// callback. name is optional and, if present, becomes the label emitted at
// the function's entry point.
func FunctionSymbol(name string, gen GenFunc) Symbol {
	return Symbol{Kind: SymFunction, Name: name, Gen: gen}
}

// DataSymbol builds a data symbol over an owned byte blob.
func DataSymbol(d *Data) Symbol {
	return Symbol{Kind: SymData, Dat: d}
}

// Equal reports whether two symbols share the same variant and identity.
func (s Symbol) Equal(o Symbol) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SymAddress:
		return s.Addr == o.Addr
	case SymFunction:
		return funcsEqual(s.Gen, o.Gen)
	case SymData:
		return s.Dat == o.Dat
	default:
		return false
	}
}

func (s Symbol) String() string {
	switch s.Kind {
	case SymAddress:
		return "addr"
	case SymFunction:
		if s.Name != "" {
			return s.Name
		}
		return "fn"
	case SymData:
		if s.Dat != nil {
			return s.Dat.Name
		}
		return "data"
	default:
		return "?"
	}
}
