package asm

import "reflect"

// funcsEqual compares two GenFunc values by the code pointer they wrap,
// since Go function values are otherwise incomparable. This is the
// identity test behind function-symbol equality (spec.md §3).
func funcsEqual(a, b GenFunc) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
