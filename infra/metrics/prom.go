package metrics

import (
	coremetrics "github.com/dixie/callvehicle/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	sessions    *prometheus.CounterVec
	settlements *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	fleet       prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_sessions_total",
		Help: "Total number of dispatch sessions by terminal state",
	}, []string{"state", "reason"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_settlements_total",
		Help: "Total number of settlement attempts",
	}, []string{"source", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_session_duration_seconds",
		Help:    "Time between dispatch request and terminal state",
		Buckets: prometheus.DefBuckets,
	}, []string{"state"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_snapshot_vehicles_total",
		Help: "Number of vehicles in the last fleet snapshot",
	})

	if err := reg.Register(sessions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sessions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(settlements); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			settlements = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(fleet); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fleet = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{sessions: sessions, settlements: settlements, duration: duration, fleet: fleet}, nil
}

// RecordDispatchOutcome increments the session counter and observes the
// session duration.
func (s *PromSink) RecordDispatchOutcome(out coremetrics.DispatchOutcome) error {
	s.sessions.WithLabelValues(out.State, out.Reason).Inc()
	s.duration.WithLabelValues(out.State).Observe(out.Elapsed.Seconds())
	return nil
}

// RecordSettlement increments the settlement counter.
func (s *PromSink) RecordSettlement(ev coremetrics.Settlement) error {
	s.settlements.WithLabelValues(ev.Source, ev.Outcome).Inc()
	return nil
}

// RecordFleetSize sets the gauge to the snapshot size.
func (s *PromSink) RecordFleetSize(size int) error {
	if s.fleet != nil {
		s.fleet.Set(float64(size))
	}
	return nil
}
