package dispatch

import (
	"sync"
	"time"

	"github.com/dixie/callvehicle/core/model"
)

// Session is the handle for one in-flight call-vehicle request, from request
// to settlement. Exactly one non-terminal session may exist per vehicle.
type Session struct {
	ID          string
	RequesterID string
	VehicleID   string

	mu          sync.Mutex
	quote       model.FareQuote
	state       model.SessionState
	reason      Reason
	settlement  *model.SettlementRecord
	requestedAt time.Time
	reservedAt  time.Time
	endedAt     time.Time
	finishing   bool
	timer       *time.Timer
}

// State returns the current session state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns why the session was rejected or failed.
func (s *Session) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Quote returns the fare quote computed for this attempt.
func (s *Session) Quote() model.FareQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote
}

// Settlement returns the settlement record, if the session settled.
func (s *Session) Settlement() (model.SettlementRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settlement == nil {
		return model.SettlementRecord{}, false
	}
	return *s.settlement, true
}

// Elapsed returns the time between the request and the terminal transition,
// or since the request for a live session.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt.IsZero() {
		return time.Since(s.requestedAt)
	}
	return s.endedAt.Sub(s.requestedAt)
}

func (s *Session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) markEnRoute(timer *time.Timer) {
	s.mu.Lock()
	s.state = model.StateEnRoute
	s.reservedAt = time.Now()
	s.timer = timer
	s.mu.Unlock()
}

// claimFinish marks the session as finishing so that exactly one terminal
// path runs. Duplicate provider callbacks and a racing timeout both land
// here; only the first claim wins.
func (s *Session) claimFinish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishing || s.state.Terminal() {
		return false
	}
	s.finishing = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return true
}

func (s *Session) finish(state model.SessionState, reason Reason, rec *model.SettlementRecord) {
	s.mu.Lock()
	s.state = state
	s.reason = reason
	s.settlement = rec
	s.endedAt = time.Now()
	s.mu.Unlock()
}
