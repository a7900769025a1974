package dispatch

import (
	"time"

	"github.com/dixie/callvehicle/core/model"
)

// WorldState exposes the read-only world facts the engine needs. Geometry is
// computed by the world, not by the engine.
type WorldState interface {
	// DistanceTo returns the straight-line distance in kilometers between
	// the vehicle's last known position and the given point.
	DistanceTo(vehicleID string, p model.Point) float64
	// PositionOf returns the requester's current position.
	PositionOf(requesterID string) model.Point
	// TimeOfDayMinutes returns the current in-world clock value.
	TimeOfDayMinutes() int
}

// NavigationResult is the terminal outcome reported by the provider.
type NavigationResult int

const (
	NavigationCompleted NavigationResult = iota
	NavigationFailed
)

func (r NavigationResult) String() string {
	if r == NavigationFailed {
		return "failed"
	}
	return "completed"
}

// Stuck-detection thresholds handed to the navigation provider. A vehicle
// that moves at most StuckDistanceUnits within StuckTime is reported as
// stuck by the provider; the engine sees that as one more failure outcome.
const (
	StuckDistanceUnits = 1.0
	StuckTime          = 5 * time.Second
)

// DriveProfile configures how the provider drives the vehicle.
type DriveProfile struct {
	IgnoreTrafficControls bool
	IgnoreObstacles       bool
	StuckDistance         float64
	StuckTime             time.Duration
	// CourierOnBoard is cosmetic: whether the courier physically occupies
	// the vehicle during transit. Gated by the checkpoint-bypass option.
	CourierOnBoard bool
}

// NavigationProvider drives a vehicle to a destination. Navigate must return
// immediately; onResult is invoked at most once, at an arbitrary later time.
type NavigationProvider interface {
	Navigate(vehicleID string, destination model.Point, profile DriveProfile, onResult func(NavigationResult))
}

// NotificationChannel delivers human-readable status messages to the
// requester. Delivery is fire-and-forget: errors are logged by the caller
// and never block the state machine.
type NotificationChannel interface {
	Send(requesterID, text string) error
}

// Config defines dispatch-related settings.
type Config struct {
	// NavigateTimeoutSeconds bounds how long a session may stay EnRoute
	// without a provider callback before it fails as unreachable.
	// Zero disables the timeout.
	NavigateTimeoutSeconds int `json:"navigate_timeout_seconds"`
}
