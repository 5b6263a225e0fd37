package asm

// RegHandle is an opaque, generation-stamped reference to a CPU register's
// current contents, returned by every Builder operation that sets, pulls,
// or otherwise invalidates a register's held value. Host code must
// treat a handle as stale once Valid reports false; spec.md §6 describes
// this as the abstracted form of the source's implicit handle
// invalidation.
type RegHandle struct {
	b   *Builder
	reg Reg
	gen uint32
}

// Valid reports whether no clobbering operation has touched reg since this
// handle was issued.
func (h RegHandle) Valid() bool {
	return h.b != nil && h.b.gen[h.reg] == h.gen
}

// Reg names the register this handle refers to.
func (h RegHandle) Reg() Reg { return h.reg }
