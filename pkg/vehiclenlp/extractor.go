// Package vehiclenlp extracts vehicle make, model, year and engine facts
// from unstructured text such as "2018 VW Golf 2.0 TDI 150hp" using regex
// patterns over a vocabulary supplied by the caller.
package vehiclenlp

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// VehicleMatch represents an extracted vehicle mention.
type VehicleMatch struct {
	Make       string  // vocabulary make key, e.g. "volkswagen"
	Model      string  // model display name, e.g. "Golf"
	Year       int     // 0 if not found
	Confidence float64 // 0.0-1.0
	Span       string  // the matched text fragment
}

// Extractor finds vehicle mentions using a fixed vocabulary. It is safe for
// concurrent use once built.
type Extractor struct {
	makeRe       *regexp.Regexp
	aliases      map[string]string  // lower-case phrase -> make key
	modelsByMake map[string][]model // longest first
	uniqueModels map[string]model   // lower-case model -> model unique to one make
}

type model struct {
	makeKey, lower, canonical string
}

var yearFullRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
var yearAbbrRe = regexp.MustCompile(`'(\d{2})\b`)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		return s
	}
	return out
}

// NewExtractor builds an extractor from a make key -> model display names
// vocabulary. Hyphenated make keys also match with spaces ("land-rover" and
// "Land Rover"). aliases maps extra spellings to make keys; aliases whose
// target is not in the vocabulary are ignored.
func NewExtractor(vocabulary map[string][]string, aliases map[string]string) *Extractor {
	e := &Extractor{
		aliases:      make(map[string]string),
		modelsByMake: make(map[string][]model),
		uniqueModels: make(map[string]model),
	}

	addPhrase := func(phrase, makeKey string) {
		phrase = strings.ToLower(fold(phrase))
		if phrase == "" {
			return
		}
		e.aliases[phrase] = makeKey
		if strings.Contains(phrase, "-") {
			e.aliases[strings.ReplaceAll(phrase, "-", " ")] = makeKey
		}
	}
	for makeKey := range vocabulary {
		addPhrase(makeKey, makeKey)
	}
	for alias, makeKey := range aliases {
		if _, ok := vocabulary[makeKey]; ok {
			addPhrase(alias, makeKey)
		}
	}

	modelCount := make(map[string]int)
	for makeKey, names := range vocabulary {
		for _, n := range names {
			m := model{makeKey: makeKey, lower: strings.ToLower(fold(n)), canonical: n}
			e.modelsByMake[makeKey] = append(e.modelsByMake[makeKey], m)
			modelCount[m.lower]++
		}
		ms := e.modelsByMake[makeKey]
		sort.SliceStable(ms, func(i, j int) bool { return len(ms[i].lower) > len(ms[j].lower) })
	}
	for _, ms := range e.modelsByMake {
		for _, m := range ms {
			if modelCount[m.lower] == 1 {
				e.uniqueModels[m.lower] = m
			}
		}
	}

	names := make([]string, 0, len(e.aliases))
	for phrase := range e.aliases {
		names = append(names, regexp.QuoteMeta(phrase))
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	if len(names) > 0 {
		e.makeRe = regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)(?:'s)?\b`)
	}
	return e
}

// Extract finds all vehicle mentions in text, sorted by confidence.
func (e *Extractor) Extract(text string) []VehicleMatch {
	if text == "" || e.makeRe == nil {
		return nil
	}
	text = fold(text)
	var matches []VehicleMatch
	used := make(map[string]bool)

	for _, loc := range e.makeRe.FindAllStringSubmatchIndex(text, -1) {
		makeKey := e.aliases[strings.ToLower(text[loc[2]:loc[3]])]
		if makeKey == "" {
			continue
		}

		afterStart := loc[1]
		after := text[afterStart:min(afterStart+40, len(text))]
		modelName, modelSpan := e.findModel(makeKey, after)

		beforeStart := max(0, loc[0]-10)
		before := text[beforeStart:loc[0]]
		year := findYear(before)
		if year == 0 {
			searchAfter := after
			if modelSpan > 0 {
				searchAfter = after[modelSpan:]
			}
			year = findYear(searchAfter)
		}
		if year == 0 {
			year = findAbbrYear(before)
		}

		conf := 0.60
		switch {
		case year > 0 && modelName != "":
			conf = 0.95
		case modelName != "":
			conf = 0.80
		case year > 0:
			conf = 0.70
		}

		spanStart := loc[0]
		if year > 0 {
			if idx := strings.Index(before, strconv.Itoa(year)); idx >= 0 {
				spanStart = beforeStart + idx
			}
		}
		spanEnd := loc[1]
		if modelName != "" {
			spanEnd = afterStart + modelSpan
		}

		key := fmt.Sprintf("%s|%s|%d", makeKey, modelName, year)
		if used[key] {
			continue
		}
		used[key] = true
		matches = append(matches, VehicleMatch{
			Make:       makeKey,
			Model:      modelName,
			Year:       year,
			Confidence: conf,
			Span:       strings.TrimSpace(text[spanStart:min(spanEnd, len(text))]),
		})
	}

	matches = append(matches, e.findStandaloneModels(text, used)...)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	return matches
}

// ExtractBest returns the single highest-confidence match, or nil.
func (e *Extractor) ExtractBest(text string) *VehicleMatch {
	matches := e.Extract(text)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// findModel looks for a model of makeKey at the start of after. Spaces and
// hyphens are interchangeable ("DS3 Crossback" matches "ds3-crossback").
func (e *Extractor) findModel(makeKey, after string) (string, int) {
	trimmed := strings.TrimLeftFunc(after, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\'' || r == 0x2019
	})
	offset := len(after) - len(trimmed)
	lower := strings.ToLower(trimmed)

	for _, m := range e.modelsByMake[makeKey] {
		n, ok := prefixMatch(lower, m.lower)
		if !ok {
			continue
		}
		if n < len(lower) {
			next := rune(lower[n])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		return m.canonical, offset + n
	}
	return "", 0
}

// prefixMatch reports whether s starts with want, treating space and hyphen
// as equal, and returns the number of bytes of s consumed.
func prefixMatch(s, want string) (int, bool) {
	if len(s) < len(want) {
		return 0, false
	}
	for i := 0; i < len(want); i++ {
		a, b := s[i], want[i]
		if a == b || (isSep(a) && isSep(b)) {
			continue
		}
		return 0, false
	}
	return len(want), true
}

func isSep(c byte) bool { return c == ' ' || c == '-' }

func findYear(s string) int {
	m := yearFullRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	if y >= 1980 && y <= 2030 {
		return y
	}
	return 0
}

func findAbbrYear(s string) int {
	m := yearAbbrRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	yy, _ := strconv.Atoi(m[1])
	if yy <= 30 {
		return 2000 + yy
	}
	if yy >= 80 {
		return 1900 + yy
	}
	return 0
}

func (e *Extractor) findStandaloneModels(text string, used map[string]bool) []VehicleMatch {
	var matches []VehicleMatch
	lower := strings.ToLower(text)

	keys := make([]string, 0, len(e.uniqueModels))
	for k := range e.uniqueModels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, modelLower := range keys {
		m := e.uniqueModels[modelLower]
		// Short names ("Z", "ZS", "500") are too ambiguous on their own.
		if len(modelLower) <= 2 && !strings.Contains(modelLower, "-") {
			continue
		}
		idx := strings.Index(lower, modelLower)
		if idx < 0 {
			continue
		}
		if idx > 0 {
			prev := rune(lower[idx-1])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		end := idx + len(modelLower)
		if end < len(lower) {
			next := rune(lower[end])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		if used[fmt.Sprintf("%s|%s|%d", m.makeKey, m.canonical, 0)] {
			continue
		}

		nearStart := max(0, idx-12)
		nearEnd := min(end+12, len(text))
		year := findYear(text[nearStart:nearEnd])
		if year == 0 {
			year = findAbbrYear(text[nearStart:idx])
		}

		conf := 0.50
		key := fmt.Sprintf("%s|%s|%d", m.makeKey, m.canonical, year)
		if year > 0 {
			conf = 0.75
		}
		if used[key] {
			continue
		}
		used[key] = true
		matches = append(matches, VehicleMatch{
			Make:       m.makeKey,
			Model:      m.canonical,
			Year:       year,
			Confidence: conf,
			Span:       strings.TrimSpace(text[nearStart:nearEnd]),
		})
	}
	return matches
}
