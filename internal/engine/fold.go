package engine

import "strings"

// fold.go implements the name folding rule used for fallback matching.
//
// The rule is fixed and deterministic: every entity's normalized_name is
// FoldName(display_name), and FoldName(FoldName(x)) == FoldName(x). Changing
// the rule invalidates stored normalized names, so treat the punctuation
// table below as frozen.

// foldPunct lists the punctuation runes folded to a space. Digits, letters,
// currency and percent signs survive; "Acme-Co", "Acme Co" and "ACME CO."
// all fold to "acme co".
var foldPunct = map[rune]bool{
	'.': true, ',': true, ';': true, ':': true,
	'\'': true, '"': true, '`': true,
	'!': true, '?': true,
	'(': true, ')': true, '[': true, ']': true, '{': true, '}': true,
	'&': true, '*': true, '+': true, '|': true,
	'/': true, '\\': true, '-': true, '_': true,
	'<': true, '>': true, '~': true, '^': true,
}

// FoldName returns the folded form of a display name: case-folded, with the
// punctuation table applied and whitespace runs collapsed to single spaces.
func FoldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if foldPunct[r] {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
