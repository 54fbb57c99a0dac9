package resolve

import "slices"

// Makes lists the manufacturer keys of the current snapshot, sorted.
func (r *Resolver) Makes() []string {
	return r.store.Load().ManufacturerKeys()
}

// Models lists the model display names of a manufacturer. The bool is false
// when the manufacturer cannot be located.
func (r *Resolver) Models(manufacturer string) ([]string, bool) {
	snap := r.store.Load()
	mk, ok := LocateManufacturer(snap, manufacturer)
	if !ok {
		return nil, false
	}
	if names := snap.ModelNames(mk); len(names) > 0 {
		return slices.Clone(names), true
	}
	return snap.ModelKeys(mk), true
}

// YearRanges lists a model's year ranges in catalogue order. When the model
// cannot be located it returns a copy of GenericYearBands and false, so the
// caller can still offer a manual choice.
func (r *Resolver) YearRanges(manufacturer, model string) ([]string, bool) {
	snap := r.store.Load()
	mk, ok := LocateManufacturer(snap, manufacturer)
	if !ok {
		return slices.Clone(GenericYearBands), false
	}
	mdl, ok := LocateModel(snap, mk, model)
	if !ok {
		return slices.Clone(GenericYearBands), false
	}
	table, _ := snap.YearTable(mk, mdl)
	return table.Ranges(), true
}

// Engines lists the engine options of a model's year range.
func (r *Resolver) Engines(manufacturer, model, yearRange string) ([]string, bool) {
	snap := r.store.Load()
	mk, ok := LocateManufacturer(snap, manufacturer)
	if !ok {
		return nil, false
	}
	mdl, ok := LocateModel(snap, mk, model)
	if !ok {
		return nil, false
	}
	table, _ := snap.YearTable(mk, mdl)
	engines := table.Engines(yearRange)
	return slices.Clone(engines), engines != nil
}
