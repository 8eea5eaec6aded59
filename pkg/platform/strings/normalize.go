// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
	"unicode"
)

// NormalizeKey lowercases s and drops whitespace and underscores, so
// "linea Captura", "LineaCaptura" and "linea_captura" compare equal.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CollapseSpaces trims s and replaces internal whitespace runs with one space.
//
// Example:
//
//	CollapseSpaces("  María   del  Carmen ")
//	// Returns: "María del Carmen"
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
