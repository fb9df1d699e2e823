package pattern

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText lowercases s, strips combining diacritics and trims it,
// so that "Café" and "CAFE" compare equal.
func NormalizeText(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
