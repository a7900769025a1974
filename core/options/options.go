// Package options holds the recognized business options for the chauffeur
// service. The option schema is a static table processed by ordinary
// iteration; defaults are filled in for keys absent from the loaded
// configuration.
package options

import "sync"

// Values are the business options read by the fare calculator, the dispatch
// manager and the settler.
type Values struct {
	PricePerKm         int    `json:"price_per_km"`
	ServiceChargeDay   int    `json:"service_charge_day"`
	ServiceChargeNight int    `json:"service_charge_night"`
	UseCash            bool   `json:"use_cash"`
	BypassCheckpoints  bool   `json:"bypass_checkpoints"`
	CourierName        string `json:"courier_name"`
}

// Entry describes one recognized option.
type Entry struct {
	Key         string
	Name        string
	Description string
	Default     any
}

// Table is the full option schema. Loader code iterates it to create missing
// entries, so every recognized key must appear here exactly once.
var Table = []Entry{
	{Key: "price_per_km", Name: "Price for the service per km", Description: "The amount of cash/online balance to pay per kilometer", Default: 13},
	{Key: "service_charge_day", Name: "Service charge during the day", Description: "Flat charge added to calls placed before 18:00", Default: 500},
	{Key: "service_charge_night", Name: "Service charge during the night", Description: "Flat charge added to calls placed at or after 18:00", Default: 800},
	{Key: "use_cash", Name: "Use cash for transactions", Description: "Settle with cash instead of online balance", Default: false},
	{Key: "bypass_checkpoints", Name: "Bypass checkpoints", Description: "Courier rides along in transit and receives physical cash on cash settlement", Default: true},
	{Key: "courier_name", Name: "Courier name", Description: "Name the courier signs notifications with", Default: "Jeff"},
}

// Defaults returns the option values from the static table.
func Defaults() Values {
	v := Values{}
	for _, e := range Table {
		switch e.Key {
		case "price_per_km":
			v.PricePerKm = e.Default.(int)
		case "service_charge_day":
			v.ServiceChargeDay = e.Default.(int)
		case "service_charge_night":
			v.ServiceChargeNight = e.Default.(int)
		case "use_cash":
			v.UseCash = e.Default.(bool)
		case "bypass_checkpoints":
			v.BypassCheckpoints = e.Default.(bool)
		case "courier_name":
			v.CourierName = e.Default.(string)
		}
	}
	return v
}

// Store is a concurrency-safe handle on the current option values. Options
// are read at use time, not captured per session: the funding source consulted
// at settlement is whatever is configured when the settlement runs.
type Store struct {
	mu sync.RWMutex
	v  Values
}

// NewStore creates a Store holding the given values.
func NewStore(v Values) *Store {
	return &Store{v: v}
}

// Get returns a copy of the current values.
func (s *Store) Get() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Update applies fn to the current values under the write lock.
func (s *Store) Update(fn func(*Values)) {
	s.mu.Lock()
	fn(&s.v)
	s.mu.Unlock()
}
