package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dixie/callvehicle/core/events"
	"github.com/dixie/callvehicle/core/fare"
	"github.com/dixie/callvehicle/core/fleet"
	"github.com/dixie/callvehicle/core/logger"
	"github.com/dixie/callvehicle/core/metrics"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/core/options"
	"github.com/dixie/callvehicle/internal/eventbus"
)

// PaymentSettler is the settlement boundary the manager invokes at terminal
// states. Implemented by settlement.Settler.
type PaymentSettler interface {
	FundsAvailable(ctx context.Context, requesterID string, amount int) (bool, error)
	Charge(ctx context.Context, requesterID string, quote model.FareQuote) (model.SettlementRecord, error)
}

// Manager owns dispatch sessions for one deployment. All sessions are kept
// in an archive after reaching a terminal state so callers can poll them.
type Manager struct {
	registry *fleet.Registry
	world    WorldState
	nav      NavigationProvider
	notifier NotificationChannel
	settler  PaymentSettler
	opts     *options.Store
	log      logger.Logger
	sink     metrics.Sink
	bus      eventbus.EventBus

	navigateTimeout time.Duration
	reservations    *reservationTable

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. sink and bus may be nil.
func NewManager(registry *fleet.Registry, world WorldState, nav NavigationProvider, notifier NotificationChannel, settler PaymentSettler, opts *options.Store, cfg Config, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if registry == nil || world == nil || nav == nil || notifier == nil || settler == nil || opts == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		registry:        registry,
		world:           world,
		nav:             nav,
		notifier:        notifier,
		settler:         settler,
		opts:            opts,
		log:             log,
		sink:            sink,
		bus:             bus,
		navigateTimeout: time.Duration(cfg.NavigateTimeoutSeconds) * time.Second,
		reservations:    newReservationTable(),
		sessions:        make(map[string]*Session),
	}, nil
}

// Session returns the session with the given ID, terminal or not.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Fleet returns a fresh snapshot of the requester's vehicles, annotated with
// their current distance to the requester, and records its size.
func (m *Manager) Fleet(requesterID string) []model.Vehicle {
	snap := m.registry.Snapshot(requesterID)
	at := m.world.PositionOf(requesterID)
	for i := range snap {
		snap[i].DistanceKm = m.world.DistanceTo(snap[i].ID, at)
	}
	if fr, ok := m.sink.(metrics.FleetSizeRecorder); ok {
		if err := fr.RecordFleetSize(len(snap)); err != nil {
			m.log.Errorf("fleet size metrics error: %v", err)
		}
	}
	return snap
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	return nil
}

// RequestDispatch starts a call-vehicle session. A missing vehicle is
// reported to the caller immediately and no session is created. Busy
// vehicles and insufficient funds produce a Rejected session with exactly
// one notification; the caller observes the state on the returned handle.
//
//gocyclo:ignore
func (m *Manager) RequestDispatch(ctx context.Context, requesterID, vehicleID string) (*Session, error) {
	vehicle, err := m.registry.FindByID(requesterID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("request dispatch: %w", err)
	}

	s := &Session{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		VehicleID:   vehicleID,
	}
	s.mu.Lock()
	s.state = model.StateRequested
	s.requestedAt = time.Now()
	s.mu.Unlock()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	// A fresh quote for every attempt: prices may have changed since the
	// last call.
	destination := m.world.PositionOf(requesterID)
	distance := m.world.DistanceTo(vehicleID, destination)
	vals := m.opts.Get()
	rates := fare.Rates{PerKm: vals.PricePerKm, ServiceChargeDay: vals.ServiceChargeDay, ServiceChargeNight: vals.ServiceChargeNight}
	quote := fare.Quote(vehicleID, distance, rates, m.world.TimeOfDayMinutes())
	s.mu.Lock()
	s.quote = quote
	s.mu.Unlock()

	if vehicle.Driving {
		m.reject(s, ReasonVehicleBusy, fmt.Sprintf("Sorry boss, I'm still driving your %s.", vehicle.DisplayName()))
		return s, nil
	}
	if _, held := m.reservations.holder(vehicleID); held {
		m.reject(s, ReasonVehicleBusy, fmt.Sprintf("Sorry boss, I'm still driving your %s.", vehicle.DisplayName()))
		return s, nil
	}

	s.setState(model.StateValidating)
	ok, err := m.settler.FundsAvailable(ctx, requesterID, quote.TotalCost)
	if err != nil {
		m.log.Errorf("funds check for %s: %v", requesterID, err)
		m.reject(s, ReasonInsufficientFunds, fmt.Sprintf("Sorry boss, you need $%d for this service.", quote.TotalCost))
		return s, nil
	}
	if !ok {
		m.reject(s, ReasonInsufficientFunds, fmt.Sprintf("Sorry boss, you need $%d for this service.", quote.TotalCost))
		return s, nil
	}

	// The reservation is the sole concurrency guard between here and the
	// provider callback. A racing request for the same vehicle loses here.
	if !m.reservations.reserve(vehicleID, s.ID) {
		m.reject(s, ReasonVehicleBusy, fmt.Sprintf("Sorry boss, I'm still driving your %s.", vehicle.DisplayName()))
		return s, nil
	}
	m.registry.SetReserved(vehicleID, true)

	var timer *time.Timer
	if m.navigateTimeout > 0 {
		timer = time.AfterFunc(m.navigateTimeout, func() { m.expire(s) })
	}
	s.markEnRoute(timer)
	m.publishState(s)

	// The dispatched notification always precedes the terminal one.
	m.notify(requesterID, fmt.Sprintf("Your %s is on the way.", vehicle.DisplayName()))

	profile := DriveProfile{
		IgnoreTrafficControls: true,
		IgnoreObstacles:       true,
		StuckDistance:         StuckDistanceUnits,
		StuckTime:             StuckTime,
		CourierOnBoard:        vals.BypassCheckpoints,
	}
	m.log.Debugw("vehicle dispatched", map[string]any{
		"session_id": s.ID,
		"vehicle_id": vehicleID,
		"distance":   quote.DistanceKm,
		"total_cost": quote.TotalCost,
		"band":       quote.Band.String(),
	})
	m.nav.Navigate(vehicleID, destination, profile, func(res NavigationResult) {
		m.onNavigationResult(s, vehicle, res)
	})
	return s, nil
}

// onNavigationResult handles the single provider callback for a session.
// Duplicate deliveries for an already-terminal session are logged no-ops.
func (m *Manager) onNavigationResult(s *Session, vehicle model.Vehicle, res NavigationResult) {
	if !s.claimFinish() {
		m.log.Warnf("duplicate navigation result for session %s ignored", s.ID)
		return
	}

	// Delivery or not, the vehicle goes back to the requester's control.
	m.reservations.release(s.VehicleID, s.ID)
	m.registry.SetReserved(s.VehicleID, false)

	if res == NavigationFailed {
		s.finish(model.StateFailed, ReasonRouteUnavailable, nil)
		m.notify(s.RequesterID, "Sorry boss, I couldn't find a route to you. You have not been charged.")
		m.finalize(s)
		return
	}

	quote := s.Quote()
	rec, err := m.settler.Charge(context.Background(), s.RequesterID, quote)
	if err != nil {
		// Delivered but not paid: a reconciliation case, kept distinct
		// from a route failure.
		s.finish(model.StateFailed, ReasonSettlementFailed, nil)
		m.log.Errorf("settlement for session %s failed after delivery: %v", s.ID, err)
		m.publishSettlement(s, model.SettlementRecord{}, err)
		m.notify(s.RequesterID, fmt.Sprintf("Your %s has arrived, but the payment could not be processed.", vehicle.DisplayName()))
		m.finalize(s)
		return
	}

	s.finish(model.StateCompleted, ReasonNone, &rec)
	m.publishSettlement(s, rec, nil)
	m.notify(s.RequesterID, fmt.Sprintf("Vehicle arrived. I've deducted $%d from your %s. Thank you for using my service.", rec.Amount, rec.Source))
	m.finalize(s)
}

// expire fails a session whose provider never called back.
func (m *Manager) expire(s *Session) {
	if !s.claimFinish() {
		return
	}
	m.reservations.release(s.VehicleID, s.ID)
	m.registry.SetReserved(s.VehicleID, false)
	s.finish(model.StateFailed, ReasonUnreachable, nil)
	m.log.Warnf("session %s timed out en route to %s", s.ID, s.RequesterID)
	m.notify(s.RequesterID, "Sorry boss, I couldn't reach you. You have not been charged.")
	m.finalize(s)
}

// reject ends a session before anything was reserved or charged.
func (m *Manager) reject(s *Session, reason Reason, text string) {
	s.finish(model.StateRejected, reason, nil)
	m.notify(s.RequesterID, text)
	m.finalize(s)
}

// finalize publishes the terminal event and records metrics.
func (m *Manager) finalize(s *Session) {
	m.publishState(s)
	quote := s.Quote()
	out := metrics.DispatchOutcome{
		SessionID:   s.ID,
		RequesterID: s.RequesterID,
		VehicleID:   s.VehicleID,
		State:       s.State().String(),
		Reason:      s.Reason().String(),
		Band:        quote.Band.String(),
		DistanceKm:  quote.DistanceKm,
		TotalCost:   quote.TotalCost,
		Elapsed:     s.Elapsed(),
		Time:        time.Now(),
	}
	if err := m.sink.RecordDispatchOutcome(out); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
}

func (m *Manager) publishState(s *Session) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.SessionEvent{
		SessionID:   s.ID,
		RequesterID: s.RequesterID,
		VehicleID:   s.VehicleID,
		State:       s.State(),
		Reason:      s.Reason().String(),
		Time:        time.Now(),
	})
}

func (m *Manager) publishSettlement(s *Session, rec model.SettlementRecord, err error) {
	if sr, ok := m.sink.(metrics.SettlementRecorder); ok {
		ev := metrics.Settlement{
			SessionID:   s.ID,
			RequesterID: s.RequesterID,
			Source:      rec.Source.String(),
			Amount:      rec.Amount,
			Outcome:     string(rec.Outcome),
			Time:        time.Now(),
		}
		if err != nil {
			ev.Outcome = "error"
			ev.Error = err.Error()
		}
		if rerr := sr.RecordSettlement(ev); rerr != nil {
			m.log.Errorf("settlement metrics error: %v", rerr)
		}
	}
	if m.bus == nil {
		return
	}
	ev := events.SettlementEvent{SessionID: s.ID, RequesterID: s.RequesterID, Record: rec}
	if err != nil {
		ev.Err = err.Error()
	}
	m.bus.Publish(ev)
}

// notify delivers a status message. Channel failures are logged and
// swallowed; they never block or fail the state machine.
func (m *Manager) notify(requesterID, text string) {
	err := m.notifier.Send(requesterID, text)
	if err != nil {
		m.log.Errorf("notification to %s failed: %v", requesterID, err)
	}
	if m.bus != nil {
		m.bus.Publish(events.NotificationEvent{RequesterID: requesterID, Text: text, Delivered: err == nil})
	}
}
