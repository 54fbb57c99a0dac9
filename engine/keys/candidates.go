package keys

import (
	"regexp"
	"strings"

	"github.com/WessleyAI/wessley-remap/pkg/fn"
)

var (
	hyphenDigit = regexp.MustCompile(`-(\d)`)
	letterDigit = regexp.MustCompile(`([a-z])(\d)`)
	digitLetter = regexp.MustCompile(`(\d)([a-z])`)
	nonKeyChars = regexp.MustCompile(`[^a-z0-9-]`)
)

// Candidates returns the spellings tried, in priority order, when a model
// key misses the catalogue. The normalized key is always first, even when
// it is empty; later entries are deduplicated.
//
//	ds-3-crossback    -> ds3-crossback
//	mg4               -> mg-4
//	id.4              -> id4
//	golf-estate       -> golf
//	range-rover-sport -> rangerover-sport, range-roversport
func Candidates(modelKey string) []string {
	key := Normalize(modelKey)
	out := []string{key}

	out = append(out, hyphenDigit.ReplaceAllString(key, "$1"))

	split := letterDigit.ReplaceAllString(key, "$1-$2")
	split = digitLetter.ReplaceAllString(split, "$1-$2")
	out = append(out, split)

	out = append(out, nonKeyChars.ReplaceAllString(key, ""))

	first, _, _ := strings.Cut(key, "-")
	out = append(out, first)

	tokens := strings.Split(key, "-")
	for i := 0; i+1 < len(tokens); i++ {
		joined := make([]string, 0, len(tokens)-1)
		joined = append(joined, tokens[:i]...)
		joined = append(joined, tokens[i]+tokens[i+1])
		joined = append(joined, tokens[i+2:]...)
		out = append(out, strings.Join(joined, "-"))
	}

	return fn.Unique(out)
}
