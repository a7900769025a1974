package events

import "github.com/dixie/callvehicle/core/model"

// SettlementEvent is published after a settlement attempt. Err is non-empty
// when the ledger write failed after a successful delivery; operators treat
// those as reconciliation cases, not route failures.
type SettlementEvent struct {
	SessionID   string
	RequesterID string
	Record      model.SettlementRecord
	Err         string
}
