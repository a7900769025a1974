package events

import (
	"time"

	"github.com/dixie/callvehicle/core/model"
)

// SessionEvent is published whenever a dispatch session changes state.
// Terminal states carry the reason the session ended.
type SessionEvent struct {
	SessionID   string
	RequesterID string
	VehicleID   string
	State       model.SessionState
	Reason      string
	Time        time.Time
}
