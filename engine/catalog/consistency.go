package catalog

import (
	"fmt"
	"sort"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
)

// CheckConsistency reports engine keys that disagree with their records:
// unparseable keys, a capacity different from the record's, or a type whose
// fuel contradicts the record's fuel. Errors wrap ErrInconsistentEngine and
// are sorted by key. The record is authoritative; callers decide whether to
// warn or refuse.
func CheckConsistency(engines EngineCatalogue) []error {
	names := make([]string, 0, len(engines))
	for k := range engines {
		names = append(names, k)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		rec := engines[name]
		k, ok := keys.ParseEngineKey(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q is not <capacity>-<type>-<power>hp", domain.ErrInconsistentEngine, name))
			continue
		}
		if rc, ok := keys.CanonicalCapacity(rec.Capacity); ok && rc != k.Capacity {
			errs = append(errs, fmt.Errorf("%w: %q capacity %s, record says %s", domain.ErrInconsistentEngine, name, k.Capacity, rc))
		}
		hint := keys.FuelHint(k.Type)
		if hint != domain.FuelUnknown && rec.FuelType != domain.FuelUnknown && hint != rec.FuelType {
			errs = append(errs, fmt.Errorf("%w: %q type %s suggests %s, record says %s", domain.ErrInconsistentEngine, name, k.Type, hint, rec.FuelType))
		}
	}
	return errs
}
