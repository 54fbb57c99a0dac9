package vehiclenlp

import (
	"regexp"
	"strconv"
	"strings"
)

// EngineFacts are the engine details found in a fragment of text. Zero values
// mean "not found".
type EngineFacts struct {
	CapacityLitres float64 // 2.0
	PowerHP        float64 // 150
	Fuel           string  // "diesel", "petrol", "hybrid", "electric"
	Phrase         string  // "2.0 TDI 150hp"
}

var (
	litresRe = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d\.\d{1,2})(?:\s*(?:l|litre|liter)\b)?`)
	ccRe     = regexp.MustCompile(`(?i)\b(\d{3,4})\s*cc\b`)
	powerRe  = regexp.MustCompile(`(?i)\b(\d{2,4})\s*(hp|bhp|ps|cv|kw)\b`)
)

// fuelWords maps lower-case words and engine family tokens to a fuel.
var fuelWords = map[string]string{
	"diesel": "diesel", "tdi": "diesel", "hdi": "diesel", "bluehdi": "diesel", "dci": "diesel",
	"crdi": "diesel", "cdi": "diesel", "tdci": "diesel", "cdti": "diesel", "d4d": "diesel",
	"multijet": "diesel", "jtd": "diesel", "ecoblue": "diesel",
	"petrol": "petrol", "gasoline": "petrol", "gas": "petrol", "tsi": "petrol", "tfsi": "petrol",
	"fsi": "petrol", "gdi": "petrol", "puretech": "petrol", "ecoboost": "petrol", "tce": "petrol",
	"vtec": "petrol", "thp": "petrol",
	"hybrid": "hybrid", "phev": "hybrid", "mhev": "hybrid",
	"electric": "electric", "ev": "electric", "bev": "electric",
}

// ExtractEngine pulls capacity, power and fuel out of text. It never fails;
// missing facts stay zero.
func ExtractEngine(text string) EngineFacts {
	text = fold(text)
	var f EngineFacts
	capStart, capEnd := -1, -1
	powStart, powEnd := -1, -1

	if m := litresRe.FindStringSubmatchIndex(text); m != nil {
		v, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err == nil && v > 0 && v < 10 {
			f.CapacityLitres = v
			capStart, capEnd = m[2], m[3]
		}
	}
	if f.CapacityLitres == 0 {
		if m := ccRe.FindStringSubmatchIndex(text); m != nil {
			cc, _ := strconv.Atoi(text[m[2]:m[3]])
			if cc >= 500 {
				f.CapacityLitres = float64(cc) / 1000
				capStart, capEnd = m[0], m[1]
			}
		}
	}
	if m := powerRe.FindStringSubmatchIndex(text); m != nil {
		v, _ := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if strings.EqualFold(text[m[4]:m[5]], "kw") {
			v = float64(int(v*1.341 + 0.5))
		}
		f.PowerHP = v
		powStart, powEnd = m[0], m[1]
	}

	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if fuel, ok := fuelWords[w]; ok {
			f.Fuel = fuel
			break
		}
	}

	switch {
	case capStart >= 0 && powEnd > capStart:
		f.Phrase = strings.TrimSpace(text[capStart:powEnd])
	case capStart >= 0:
		end := capEnd
		rest := text[capEnd:]
		trimmed := strings.TrimLeft(rest, " ")
		if word, _, _ := strings.Cut(trimmed, " "); word != "" {
			end = capEnd + (len(rest) - len(trimmed)) + len(word)
		}
		f.Phrase = strings.TrimSpace(text[capStart:end])
	case powStart >= 0:
		f.Phrase = strings.TrimSpace(text[powStart:powEnd])
	}
	return f
}
