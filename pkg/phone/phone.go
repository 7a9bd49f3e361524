// Package phone canonicalizes phone numbers for comparison. The portal
// persists phone numbers exactly as the operator typed them; only equality
// checks go through Normalize.
package phone

import "strings"

// Normalize strips every non-digit character from raw, producing the
// digits-only canonical form. It is pure and idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two phone numbers are the same after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
