package metrics

import "time"

// DispatchOutcome captures one session reaching a terminal state.
type DispatchOutcome struct {
	SessionID   string
	RequesterID string
	VehicleID   string
	State       string
	Reason      string
	Band        string
	DistanceKm  float64
	TotalCost   int
	Elapsed     time.Duration
	Time        time.Time
}

// Sink records dispatch outcomes for observability purposes.
type Sink interface {
	RecordDispatchOutcome(DispatchOutcome) error
}

// Settlement captures one payment settlement attempt.
type Settlement struct {
	SessionID   string
	RequesterID string
	Source      string
	Amount      int
	Outcome     string
	Error       string
	Time        time.Time
}

// SettlementRecorder is implemented by sinks able to record settlements.
type SettlementRecorder interface {
	RecordSettlement(Settlement) error
}

// FleetSizeRecorder records the size of a fleet snapshot.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchOutcome(DispatchOutcome) error { return nil }
func (NopSink) RecordSettlement(Settlement) error           { return nil }
func (NopSink) RecordFleetSize(int) error                   { return nil }
