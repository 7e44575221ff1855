package notify

import "strings"

// NormalizePhone keeps only digits and returns them behind a single leading
// "+". Any "+" in the input is dropped and the prefix re-added, so the result
// always begins with exactly one "+".
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('+')
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasDigits reports whether a normalized number carries anything to dial.
func hasDigits(normalized string) bool {
	return len(normalized) > 1
}
