// Package simulator provides an in-memory world for running the dispatch
// engine without a live game session: a vehicle registry with positions, a
// settable clock and a navigator that drives vehicles on sampled travel
// times.
package simulator

import (
	"sync"

	"github.com/dixie/callvehicle/core/model"
)

// World holds simulated vehicles, requester positions and the clock. It
// backs both the fleet source and the world facts the engine reads.
type World struct {
	mu         sync.RWMutex
	fleets     map[string][]string
	vehicles   map[string]model.Vehicle
	positions  map[string]model.Point
	requesters map[string]model.Point
	reserved   map[string]bool
	minutes    int
}

// NewWorld creates an empty world with the clock at the configured time.
func NewWorld(cfg Config) *World {
	return &World{
		fleets:     map[string][]string{},
		vehicles:   map[string]model.Vehicle{},
		positions:  map[string]model.Point{},
		requesters: map[string]model.Point{},
		reserved:   map[string]bool{},
		minutes:    cfg.TimeOfDayMinutes,
	}
}

// AddVehicle places a vehicle in the requester's fleet at the given position.
func (w *World) AddVehicle(requesterID string, v model.Vehicle, at model.Point) {
	w.mu.Lock()
	w.fleets[requesterID] = append(w.fleets[requesterID], v.ID)
	w.vehicles[v.ID] = v
	w.positions[v.ID] = at
	w.mu.Unlock()
}

// PlaceRequester sets the requester's current position.
func (w *World) PlaceRequester(requesterID string, at model.Point) {
	w.mu.Lock()
	w.requesters[requesterID] = at
	w.mu.Unlock()
}

// SetDriving flips the driving flag on a vehicle.
func (w *World) SetDriving(vehicleID string, driving bool) {
	w.mu.Lock()
	if v, ok := w.vehicles[vehicleID]; ok {
		v.Driving = driving
		w.vehicles[vehicleID] = v
	}
	w.mu.Unlock()
}

// SetTimeOfDay moves the world clock.
func (w *World) SetTimeOfDay(minutes int) {
	w.mu.Lock()
	w.minutes = minutes
	w.mu.Unlock()
}

// moveVehicle teleports the vehicle, used by the navigator on arrival.
func (w *World) moveVehicle(vehicleID string, to model.Point) {
	w.mu.Lock()
	w.positions[vehicleID] = to
	w.mu.Unlock()
}

// VehiclePosition returns the vehicle's last known position.
func (w *World) VehiclePosition(vehicleID string) model.Point {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.positions[vehicleID]
}

// DistanceTo returns the straight-line distance between the vehicle and the
// point, in kilometers.
func (w *World) DistanceTo(vehicleID string, p model.Point) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.positions[vehicleID].DistanceTo(p)
}

// PositionOf returns the requester's position.
func (w *World) PositionOf(requesterID string) model.Point {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.requesters[requesterID]
}

// TimeOfDayMinutes returns the current clock value.
func (w *World) TimeOfDayMinutes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.minutes
}

// Vehicles returns a copy of the requester's fleet with current flags.
func (w *World) Vehicles(requesterID string) []model.Vehicle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.fleets[requesterID]
	out := make([]model.Vehicle, 0, len(ids))
	for _, id := range ids {
		v := w.vehicles[id]
		v.Reserved = w.reserved[id]
		out = append(out, v)
	}
	return out
}

// SetReserved marks a vehicle as held by an active session.
func (w *World) SetReserved(vehicleID string, reserved bool) {
	w.mu.Lock()
	w.reserved[vehicleID] = reserved
	w.mu.Unlock()
}
