// Package fleet exposes point-in-time snapshots of the vehicles a requester
// owns. Snapshots are copies, never live-bound: a caller that wants to see
// fleet changes must snapshot again.
package fleet

import (
	"errors"
	"sort"
	"sync"

	"github.com/dixie/callvehicle/core/model"
)

// ErrVehicleNotFound is returned when the requested ID is absent from the
// requester's fleet.
var ErrVehicleNotFound = errors.New("fleet: vehicle not found")

// Source provides the authoritative view of a requester's vehicles. The
// ownership check is external; Vehicles must only return vehicles the
// requester currently owns.
type Source interface {
	Vehicles(requesterID string) []model.Vehicle
	SetReserved(vehicleID string, reserved bool)
}

// Registry serves fleet snapshots from a Source.
type Registry struct {
	src Source
}

// NewRegistry creates a Registry over the given source.
func NewRegistry(src Source) *Registry {
	return &Registry{src: src}
}

// Snapshot returns a point-in-time copy of the requester's owned vehicles,
// ordered by display name then ID.
func (r *Registry) Snapshot(requesterID string) []model.Vehicle {
	vehicles := r.src.Vehicles(requesterID)
	out := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.Owned {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindByID returns the requester's vehicle with the given ID, or
// ErrVehicleNotFound.
func (r *Registry) FindByID(requesterID, vehicleID string) (model.Vehicle, error) {
	for _, v := range r.Snapshot(requesterID) {
		if v.ID == vehicleID {
			return v, nil
		}
	}
	return model.Vehicle{}, ErrVehicleNotFound
}

// SetReserved flips the transient reserved marker on the underlying source.
func (r *Registry) SetReserved(vehicleID string, reserved bool) {
	r.src.SetReserved(vehicleID, reserved)
}

// MemorySource is an in-memory Source keyed by requester.
type MemorySource struct {
	mu       sync.RWMutex
	fleets   map[string][]model.Vehicle
	reserved map[string]bool
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{fleets: map[string][]model.Vehicle{}, reserved: map[string]bool{}}
}

// Add registers a vehicle under the requester's fleet.
func (s *MemorySource) Add(requesterID string, v model.Vehicle) {
	s.mu.Lock()
	s.fleets[requesterID] = append(s.fleets[requesterID], v)
	s.mu.Unlock()
}

// SetDriving updates the driving flag on a vehicle across all fleets.
func (s *MemorySource) SetDriving(vehicleID string, driving bool) {
	s.mu.Lock()
	for id, fleet := range s.fleets {
		for i := range fleet {
			if fleet[i].ID == vehicleID {
				fleet[i].Driving = driving
			}
		}
		s.fleets[id] = fleet
	}
	s.mu.Unlock()
}

// Vehicles returns a copy of the requester's fleet with reservation markers
// applied.
func (s *MemorySource) Vehicles(requesterID string) []model.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fleet := s.fleets[requesterID]
	out := make([]model.Vehicle, len(fleet))
	copy(out, fleet)
	for i := range out {
		out[i].Reserved = s.reserved[out[i].ID]
	}
	return out
}

// SetReserved marks a vehicle as held by an active session.
func (s *MemorySource) SetReserved(vehicleID string, reserved bool) {
	s.mu.Lock()
	s.reserved[vehicleID] = reserved
	s.mu.Unlock()
}
