package simulator

import (
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dixie/callvehicle/core/dispatch"
	"github.com/dixie/callvehicle/core/logger"
	"github.com/dixie/callvehicle/core/model"
)

// Navigator drives simulated vehicles. Travel time per kilometer is sampled
// from a log-normal distribution; a configurable fraction of trips fails
// with no route.
type Navigator struct {
	world  *World
	cfg    Config
	log    logger.Logger
	travel distuv.LogNormal

	mu  sync.Mutex
	rng *rand.Rand
}

// NewNavigator creates a Navigator over the given world.
func NewNavigator(world *World, cfg Config, log logger.Logger) *Navigator {
	cfg.SetDefaults()
	return &Navigator{
		world:  world,
		cfg:    cfg,
		log:    log,
		travel: distuv.LogNormal{Mu: cfg.TravelMu, Sigma: cfg.TravelSigma},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Navigate returns immediately and delivers the outcome on a timer once the
// sampled travel time elapses. On arrival the vehicle is moved to the
// destination so a follow-up quote sees zero distance.
func (n *Navigator) Navigate(vehicleID string, destination model.Point, profile dispatch.DriveProfile, onResult func(dispatch.NavigationResult)) {
	distance := n.world.DistanceTo(vehicleID, destination)
	duration := n.tripDuration(distance)
	failed := n.roll() < n.cfg.FailureRate
	n.log.Debugw("trip scheduled", map[string]any{
		"vehicle_id": vehicleID,
		"distance":   distance,
		"duration":   duration.String(),
		"escorted":   profile.CourierOnBoard,
	})
	time.AfterFunc(duration, func() {
		if failed {
			onResult(dispatch.NavigationFailed)
			return
		}
		n.world.moveVehicle(vehicleID, destination)
		onResult(dispatch.NavigationCompleted)
	})
}

// tripDuration samples the travel time for the given distance.
func (n *Navigator) tripDuration(distanceKm float64) time.Duration {
	perKmMs := n.travel.Rand()
	ms := perKmMs * distanceKm / n.cfg.TimeScale
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

func (n *Navigator) roll() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rng.Float64()
}
