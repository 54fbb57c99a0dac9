package resolve

import (
	"sort"
	"strings"
)

// variantTokens are trim, drivetrain and marketing tokens that appear in
// engine option labels but not in engine catalogue keys. They are only ever
// removed from the middle of a key.
var variantTokens = []string{
	"gti", "gtd", "gte", "gtx", "gt", "r", "rs", "vrs", "st", "fr", "cupra", "n",
	"st-line", "r-line", "s-line", "m-sport", "amg-line",
	"quattro", "4motion", "4matic", "xdrive", "sdrive", "4drive", "awd", "4wd", "4x4",
	"bluemotion", "greenline", "ecomotive", "ecoflex", "ultra",
	"titanium", "sri", "vxr", "se", "sport", "tech",
	"phev", "mhev", "dsg", "s-tronic", "auto", "manual",
}

// variantPatterns holds "-token-" patterns, multi-token variants first so
// "r-line" is removed before "r" can split it.
var variantPatterns = func() []string {
	toks := append([]string(nil), variantTokens...)
	sort.SliceStable(toks, func(i, j int) bool {
		ci, cj := strings.Count(toks[i], "-"), strings.Count(toks[j], "-")
		if ci != cj {
			return ci > cj
		}
		return len(toks[i]) > len(toks[j])
	})
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = "-" + t + "-"
	}
	return out
}()

// stripVariants removes variant tokens from the middle of key until nothing
// changes. The first and last tokens are never touched.
func stripVariants(key string) string {
	for {
		before := key
		for _, p := range variantPatterns {
			for strings.Contains(key, p) {
				key = strings.ReplaceAll(key, p, "-")
			}
		}
		if key == before {
			return key
		}
	}
}

// synonymClasses are engine families sold under different names by
// different manufacturers.
var synonymClasses = [][]string{
	{"tdi", "hdi", "dci", "crdi", "cdi"},
	{"tsi", "tfsi", "gdi"},
	{"puretech", "vti"},
	{"ecoboost", "tdci"},
	{"skyactiv-d", "diesel"},
}

// genericTypes are tried last, after the type's own class.
var genericTypes = []string{"tdi", "tsi", "tfsi", "diesel", "petrol"}

// synonymTypes returns the engine types to try in place of typ, in order:
// the other members of typ's class, the bare type with trailing qualifiers
// dropped, then the generic types. typ itself is excluded.
func synonymTypes(typ string) []string {
	bare, _, _ := strings.Cut(typ, "-")

	var out []string
	seen := map[string]bool{typ: true}
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, class := range synonymClasses {
		if contains(class, typ) || contains(class, bare) {
			for _, t := range class {
				add(t)
			}
		}
	}
	add(bare)
	for _, t := range genericTypes {
		add(t)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
