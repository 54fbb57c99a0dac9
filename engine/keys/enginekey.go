package keys

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var engineKeyRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)-(.+)-(\d+)hp$`)

// EngineKey is the parsed form of a composite engine catalogue key
// "<capacity>-<type>-<power>hp", e.g. "2.0-tdi-150hp".
type EngineKey struct {
	Raw      string
	Capacity string // canonical litres, always with a decimal point
	Type     string
	Power    int
}

// ParseEngineKey splits a normalized engine key into its parts. Capacities
// are canonicalised so "2" and "2.0" compare equal.
func ParseEngineKey(key string) (EngineKey, bool) {
	m := engineKeyRe.FindStringSubmatch(key)
	if m == nil {
		return EngineKey{}, false
	}
	capacity, ok := CanonicalCapacity(m[1])
	if !ok {
		return EngineKey{}, false
	}
	power, err := strconv.Atoi(m[3])
	if err != nil {
		return EngineKey{}, false
	}
	return EngineKey{Raw: key, Capacity: capacity, Type: m[2], Power: power}, true
}

// String formats the key back into catalogue form.
func (k EngineKey) String() string {
	return FormatEngineKey(k.Capacity, k.Type, k.Power)
}

// FormatEngineKey builds a composite key from its parts.
func FormatEngineKey(capacity, typ string, power int) string {
	return fmt.Sprintf("%s-%s-%dhp", capacity, typ, power)
}

// CanonicalCapacity parses a litre figure and renders it with at least one
// decimal place ("2" -> "2.0", "1.60" -> "1.6").
func CanonicalCapacity(s string) (string, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return "", false
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out, true
}
