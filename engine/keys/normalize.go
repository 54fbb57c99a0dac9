// Package keys turns free-text manufacturer, model and engine strings into
// the canonical lookup keys used by every catalogue, and generates the
// alternate spellings tried when a key misses.
package keys

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases text, folds accents (Citroën -> citroen), drops every
// character outside [a-z0-9!.#], whitespace and '-', turns whitespace runs
// into a single hyphen and collapses repeated hyphens. Leading and trailing
// hyphens are trimmed. Normalize is total and idempotent.
func Normalize(text string) string {
	folded, _, err := transform.String(foldAccents, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '!', r == '.', r == '#':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}
