package dispatch

// Reason explains why a session ended in Rejected or Failed.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonVehicleBusy rejects a request for a vehicle another session
	// holds, or one already being driven.
	ReasonVehicleBusy
	// ReasonInsufficientFunds rejects a request the configured funding
	// source cannot cover.
	ReasonInsufficientFunds
	// ReasonRouteUnavailable fails a session whose navigation could not
	// reach the requester.
	ReasonRouteUnavailable
	// ReasonSettlementFailed fails a session whose ledger write failed
	// after a successful delivery. The vehicle is already released; this is
	// a reconciliation case, distinct from a route failure.
	ReasonSettlementFailed
	// ReasonUnreachable fails a session that never received a provider
	// callback within the configured timeout.
	ReasonUnreachable
)

func (r Reason) String() string {
	switch r {
	case ReasonVehicleBusy:
		return "vehicle_busy"
	case ReasonInsufficientFunds:
		return "insufficient_funds"
	case ReasonRouteUnavailable:
		return "route_unavailable"
	case ReasonSettlementFailed:
		return "settlement_failed"
	case ReasonUnreachable:
		return "unreachable"
	}
	return ""
}
