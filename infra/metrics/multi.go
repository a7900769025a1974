package metrics

import coremetrics "github.com/dixie/callvehicle/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchOutcome forwards the record to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordDispatchOutcome(out coremetrics.DispatchOutcome) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatchOutcome(out); err != nil {
			return err
		}
	}
	return nil
}

// RecordSettlement forwards settlement records.
func (m *MultiSink) RecordSettlement(ev coremetrics.Settlement) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SettlementRecorder); ok {
			if err := rec.RecordSettlement(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards the snapshot size.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.FleetSizeRecorder); ok {
			if err := rec.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}
