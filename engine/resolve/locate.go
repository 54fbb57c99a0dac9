package resolve

import (
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
)

const (
	maxMakeDistance = 2
	minMakeSimilar  = 0.9
	minFuzzyLen     = 4
)

// LocateManufacturer maps a raw make ("VW", "Citroën", "Volkswagon") to a
// manufacturer key present in the snapshot. It tries the normalized key,
// then the alias table, then a bounded typo match: edit distance at most 2
// and Jaro-Winkler similarity of at least 0.9, best similarity winning.
func LocateManufacturer(snap *catalog.Snapshot, raw string) (string, bool) {
	key := keys.Normalize(raw)
	if key == "" {
		return "", false
	}
	if snap.HasManufacturer(key) {
		return key, true
	}
	if alias, ok := domain.ManufacturerAliases[key]; ok && snap.HasManufacturer(alias) {
		return alias, true
	}
	if len(key) < minFuzzyLen {
		return "", false
	}

	best, bestSim, bestDist := "", 0.0, maxMakeDistance+1
	for _, mk := range snap.ManufacturerKeys() {
		d := levenshtein.ComputeDistance(key, mk)
		if d > maxMakeDistance {
			continue
		}
		sim := smetrics.JaroWinkler(key, mk, 0.7, 4)
		if sim < minMakeSimilar {
			continue
		}
		if sim > bestSim || (sim == bestSim && d < bestDist) {
			best, bestSim, bestDist = mk, sim, d
		}
	}
	return best, best != ""
}

// LocateModel returns the first candidate spelling of rawModel that exists
// under manufacturerKey.
func LocateModel(snap *catalog.Snapshot, manufacturerKey, rawModel string) (string, bool) {
	for _, c := range keys.Candidates(rawModel) {
		if c != "" && snap.HasModel(manufacturerKey, c) {
			return c, true
		}
	}
	return "", false
}
