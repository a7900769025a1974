package dispatch

import "sync"

// reservationTable enforces the guard invariant: at most one session may
// hold a given vehicle ID in a non-terminal state. Callers never rely on
// discipline alone; reserve is the single atomic acquisition point.
type reservationTable struct {
	mu   sync.Mutex
	held map[string]string // vehicle ID -> session ID
}

func newReservationTable() *reservationTable {
	return &reservationTable{held: make(map[string]string)}
}

// reserve acquires the vehicle for the session. It returns false when
// another session already holds it.
func (t *reservationTable) reserve(vehicleID, sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.held[vehicleID]; ok {
		return false
	}
	t.held[vehicleID] = sessionID
	return true
}

// release frees the vehicle if the session holds it.
func (t *reservationTable) release(vehicleID, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held[vehicleID] == sessionID {
		delete(t.held, vehicleID)
	}
}

// holder returns the session currently holding the vehicle.
func (t *reservationTable) holder(vehicleID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.held[vehicleID]
	return id, ok
}
