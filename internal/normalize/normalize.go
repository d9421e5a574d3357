// Package normalize canonicalizes user-entered payment codes into the fixed
// [A-Z0-9] alphabet used for matching. Payers frequently type codes on
// Cyrillic keyboard layouts, so visually-confusable Cyrillic letters are
// folded onto their Latin look-alikes before anything else is stripped.
package normalize

import "strings"

// CodeLength is the required length of a normalized payment code.
const CodeLength = 6

// cyrillicLookalikes is a closed substitution table mapping uppercase
// Cyrillic letters to the Latin letters they are indistinguishable from in
// most fonts.
var cyrillicLookalikes = map[rune]rune{
	'А': 'A',
	'В': 'B',
	'С': 'C',
	'Е': 'E',
	'Н': 'H',
	'К': 'K',
	'М': 'M',
	'О': 'O',
	'Р': 'P',
	'Т': 'T',
	'Х': 'X',
	'І': 'I',
}

// Code uppercases the input, folds Cyrillic look-alikes onto Latin letters
// and strips every character outside [A-Z0-9]. It is pure and total: any
// input yields a (possibly empty) string, and the function is idempotent.
func Code(input string) string {
	upper := strings.ToUpper(input)

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if mapped, ok := cyrillicLookalikes[r]; ok {
			r = mapped
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCode reports whether the input normalizes to exactly CodeLength
// characters of [A-Z0-9].
func ValidCode(input string) bool {
	return len(Code(input)) == CodeLength
}
