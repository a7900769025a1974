package model

import (
	"fmt"
	"math"
)

// Vehicle is a snapshot of one vehicle in the requester's fleet. The dispatch
// engine treats it as read-only; only the Reserved marker is flipped for the
// duration of an active session.
type Vehicle struct {
	ID         string  // stable identifier, unique within the fleet
	Name       string  // display name
	Color      string  // owned color tag
	DistanceKm float64 // distance to the requester at snapshot time
	Owned      bool    // whether the requester owns the vehicle
	Driving    bool    // whether the vehicle is currently being driven
	Reserved   bool    // whether an active session holds the vehicle
}

// DisplayName renders the vehicle the way the fleet listing shows it.
func (v Vehicle) DisplayName() string {
	name := v.Name
	if name == "" {
		name = "Unknown Name"
	}
	return fmt.Sprintf("%s (%s)", name, v.Color)
}

// Validate checks that the snapshot is usable for dispatch decisions.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id must not be empty")
	}
	return nil
}

// Point is a position in the world, expressed in kilometers.
type Point struct {
	X float64
	Y float64
}

// DistanceTo returns the straight-line distance to o in kilometers.
func (p Point) DistanceTo(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}
