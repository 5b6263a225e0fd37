package asm

import "fmt"

// Context is the build context of spec.md §2: an allocator-backed registry
// bound to a mapping mode, into which host code registers one or more
// entry-point function symbols before calling Build. "Allocator" here is
// simply Go's garbage-collected heap — the registry and every resolved
// function/data record it owns are ordinary heap objects with no explicit
// lifetime management beyond the registry itself going out of scope.
type Context struct {
	Registry *Registry
}

// NewContext creates an empty build context under the given address
// mapper (the declared "mapping mode").
func NewContext(mapper AddressMapper) *Context {
	return &Context{Registry: NewRegistry(mapper)}
}

// RegisterEntry registers sym as an entry point. Function symbols are
// generated immediately (recursively registering anything they call);
// data symbols are simply recorded.
func (c *Context) RegisterEntry(sym Symbol) error {
	return c.Registry.RegisterSymbol(sym)
}

// Build assigns ROM offsets to everything registered so far (in
// registration order, starting at romBase), writes every function's code
// and every data blob into rom, and then applies every deferred
// relocation. rom must be at least romBase plus the total size of
// everything registered, or Build returns an error before writing anything.
func (c *Context) Build(rom []byte, romBase uint32) error {
	end, err := c.Registry.Layout(romBase)
	if err != nil {
		return err
	}
	if int(end) > len(rom) {
		return fmt.Errorf("asm: Build: registered functions and data need %d bytes, ROM buffer has %d", end, len(rom))
	}
	if err := c.Registry.WriteInto(rom); err != nil {
		return err
	}
	return c.Registry.ApplyRelocations(rom)
}
