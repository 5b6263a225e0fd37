package asm

// Comment attaches text to the comment list of the next instruction this
// builder emits, then clears the pending list. This is the explicit
// source_location-style re-architecture spec.md §9 Design Notes recommends
// in place of native call-stack introspection: rather than correlating
// emit calls against the host process's unwound stack frames, the host
// states its own comment at the point of emission.
func (b *Builder) Comment(text string) {
	b.pending = append(b.pending, text)
}

// takeComments returns and clears the pending comment list, to be attached
// to the instruction about to be appended.
func (b *Builder) takeComments() []string {
	if len(b.pending) == 0 {
		return nil
	}
	c := b.pending
	b.pending = nil
	return c
}
