package model

// TimeBand distinguishes day and night pricing.
type TimeBand int

const (
	BandDay TimeBand = iota
	BandNight
)

// NightStartMinutes is the in-world clock value at which night pricing
// begins. The clock is HHMM-style, so 1800 is 18:00.
const NightStartMinutes = 1800

// BandForTime returns the pricing band for the given clock value.
func BandForTime(timeOfDayMinutes int) TimeBand {
	if timeOfDayMinutes >= NightStartMinutes {
		return BandNight
	}
	return BandDay
}

func (b TimeBand) String() string {
	if b == BandNight {
		return "Night"
	}
	return "Day"
}

// FareQuote is the priced offer for one call attempt. It is immutable once
// computed and recomputed fresh for every attempt; prices may change between
// requests, so quotes are never cached across sessions.
type FareQuote struct {
	VehicleID     string
	DistanceKm    float64
	Band          TimeBand
	PerKmRate     int
	ServiceCharge int
	TotalCost     int
}
