package simulator

// Config holds parameters for the simulated world and navigator.
type Config struct {
	// TimeOfDayMinutes is the initial world clock value.
	TimeOfDayMinutes int `json:"time_of_day_minutes"`
	// FailureRate is the probability a trip ends without a route.
	FailureRate float64 `json:"failure_rate"`
	// TravelMu and TravelSigma shape the log-normal per-kilometer travel
	// time, in milliseconds.
	TravelMu    float64 `json:"travel_mu"`
	TravelSigma float64 `json:"travel_sigma"`
	// TimeScale divides sampled travel times so long trips stay usable in
	// interactive runs.
	TimeScale float64 `json:"time_scale"`
}

// SetDefaults applies default values on the config.
func (c *Config) SetDefaults() {
	if c.TimeOfDayMinutes == 0 {
		c.TimeOfDayMinutes = 720
	}
	if c.TravelMu == 0 {
		c.TravelMu = 4.0
	}
	if c.TravelSigma == 0 {
		c.TravelSigma = 0.5
	}
	if c.TimeScale == 0 {
		c.TimeScale = 1
	}
}
