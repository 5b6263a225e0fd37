package debuginfo

import (
	"fmt"
	"strings"

	"snesgen/asm"
)

// WriteLabels renders the line-oriented label file of spec.md §6: one line
// per instruction that carries a label (function entry) or at least one
// comment, in registration order.
//
// Each line is `SnesPrgRom:<hex-offset>:<label>[:<comment1>\ncomment2\n…]`
// where the offset is lowercase hex with no padding and additional
// comments are joined by the literal two-character sequence backslash-n,
// not an actual newline — only the line itself ends in a real newline
// byte.
func WriteLabels(reg *asm.Registry) []byte {
	var sb strings.Builder
	for _, rf := range reg.Functions() {
		for i, m := range rf.Meta {
			label := ""
			if i == 0 {
				label = rf.Name
			}
			if label == "" && len(m.Comments) == 0 {
				continue
			}
			offset := int(rf.Offset) + m.Offset
			fmt.Fprintf(&sb, "SnesPrgRom:%x:%s", offset, label)
			if len(m.Comments) > 0 {
				sb.WriteByte(':')
				sb.WriteString(strings.Join(m.Comments, `\n`))
			}
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String())
}
