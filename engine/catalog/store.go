package catalog

import (
	"sync/atomic"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

// Store publishes the current Snapshot. Readers call Load once per request
// and keep using that snapshot; writers build a new one and Swap it in.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

// NewStore creates a store holding initial. A nil snapshot is a programming
// error and panics.
func NewStore(initial *Snapshot) *Store {
	if initial == nil {
		panic(domain.ErrNilCatalogue)
	}
	s := &Store{}
	s.cur.Store(initial)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.cur.Load()
}

// Swap installs next and returns the snapshot it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	if next == nil {
		panic(domain.ErrNilCatalogue)
	}
	return s.cur.Swap(next)
}

// SwapVehicles replaces the vehicle catalogue and keeps the current engine
// catalogue. It retries if another writer swapped concurrently.
func (s *Store) SwapVehicles(v *VehicleCatalogue, version string) (*Snapshot, error) {
	if v == nil {
		return nil, domain.ErrNilCatalogue
	}
	for {
		old := s.cur.Load()
		next := &Snapshot{
			Vehicles: v,
			Engines:  old.Engines,
			Version:  version,
			LoadedAt: time.Now(),
			index:    old.index,
		}
		if s.cur.CompareAndSwap(old, next) {
			return next, nil
		}
	}
}
