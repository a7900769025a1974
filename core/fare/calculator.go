// Package fare computes call prices. The calculation is pure and
// deterministic: straight-line distance times the per-km rate, plus a flat
// service charge that depends on the time of day.
package fare

import (
	"math"

	"github.com/dixie/callvehicle/core/model"
)

// Rates are the pricing inputs, taken from the option store at quote time.
type Rates struct {
	PerKm              int
	ServiceChargeDay   int
	ServiceChargeNight int
}

// Quote prices a single call attempt. Negative distances are clamped to
// zero and the total is rounded to the nearest integer with ties away from
// zero.
func Quote(vehicleID string, distanceKm float64, r Rates, timeOfDayMinutes int) model.FareQuote {
	if distanceKm < 0 {
		distanceKm = 0
	}
	band := model.BandForTime(timeOfDayMinutes)
	charge := r.ServiceChargeDay
	if band == model.BandNight {
		charge = r.ServiceChargeNight
	}
	total := int(math.Round(distanceKm*float64(r.PerKm) + float64(charge)))
	return model.FareQuote{
		VehicleID:     vehicleID,
		DistanceKm:    distanceKm,
		Band:          band,
		PerKmRate:     r.PerKm,
		ServiceCharge: charge,
		TotalCost:     total,
	}
}
