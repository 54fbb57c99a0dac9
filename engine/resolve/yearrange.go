package resolve

import (
	"math"
	"strconv"
	"strings"
)

// YearRange is a parsed catalogue year range. Open ranges ("2019+") have no
// upper bound.
type YearRange struct {
	From int
	To   int
	Open bool
}

// GenericYearBands are offered when a model cannot be located, so a user can
// still pick a plausible range by hand.
var GenericYearBands = []string{
	"1980-1989", "1990-1999", "2000-2004", "2005-2009", "2010-2014", "2015-2019", "2020+",
}

// ParseYearRange accepts "A-B", "A+", "A-", "A-present" and a bare "A".
func ParseYearRange(s string) (YearRange, bool) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch {
	case s == "":
		return YearRange{}, false
	case strings.HasSuffix(s, "+"):
		from, ok := parseYear(strings.TrimSuffix(s, "+"))
		return YearRange{From: from, Open: true}, ok
	case strings.HasSuffix(s, "-present"):
		from, ok := parseYear(strings.TrimSuffix(s, "-present"))
		return YearRange{From: from, Open: true}, ok
	case strings.HasSuffix(s, "-"):
		from, ok := parseYear(strings.TrimSuffix(s, "-"))
		return YearRange{From: from, Open: true}, ok
	}
	if a, b, found := strings.Cut(s, "-"); found {
		from, ok1 := parseYear(a)
		to, ok2 := parseYear(b)
		if !ok1 || !ok2 || to < from {
			return YearRange{}, false
		}
		return YearRange{From: from, To: to}, true
	}
	y, ok := parseYear(s)
	return YearRange{From: y, To: y}, ok
}

func parseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return y, true
}

// Contains reports whether year falls in the range, bounds inclusive.
func (r YearRange) Contains(year int) bool {
	if r.Open {
		return year >= r.From
	}
	return year >= r.From && year <= r.To
}

// Midpoint is the centre of a closed range; an open range's midpoint is its
// lower bound.
func (r YearRange) Midpoint() float64 {
	if r.Open {
		return float64(r.From)
	}
	return float64(r.From+r.To) / 2
}

// LocateYearRange returns the first range, in catalogue order, containing
// year. Unparseable ranges are skipped.
func LocateYearRange(ranges []string, year int) (string, bool) {
	for _, s := range ranges {
		if r, ok := ParseYearRange(s); ok && r.Contains(year) {
			return s, true
		}
	}
	return "", false
}

// ClosestYearRange returns the containing range if there is one, otherwise
// the range whose midpoint is nearest to year. Ties keep the earlier range.
func ClosestYearRange(ranges []string, year int) (string, bool) {
	if s, ok := LocateYearRange(ranges, year); ok {
		return s, true
	}
	best, bestDist := "", math.Inf(1)
	for _, s := range ranges {
		r, ok := ParseYearRange(s)
		if !ok {
			continue
		}
		if d := math.Abs(r.Midpoint() - float64(year)); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, best != ""
}
