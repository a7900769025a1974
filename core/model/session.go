package model

// SessionState is the lifecycle state of a dispatch session.
type SessionState int

const (
	StateRequested SessionState = iota
	StateValidating
	StateEnRoute
	StateCompleted
	StateFailed
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateRequested:
		return "Requested"
	case StateValidating:
		return "Validating"
	case StateEnRoute:
		return "EnRoute"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateRejected:
		return "Rejected"
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible from s.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateRejected
}

// FundingSource selects which ledger account a settlement debits.
type FundingSource int

const (
	SourceBalance FundingSource = iota
	SourceCash
)

func (f FundingSource) String() string {
	if f == SourceCash {
		return "cash"
	}
	return "balance"
}

// SettlementOutcome is the result of a settlement attempt.
type SettlementOutcome string

const (
	OutcomeCharged  SettlementOutcome = "charged"
	OutcomeRefunded SettlementOutcome = "refunded"
	OutcomeSkipped  SettlementOutcome = "skipped"
)

// SettlementRecord is written once when a session reaches a terminal state
// that settles payment. It is never mutated afterwards.
type SettlementRecord struct {
	Source  FundingSource
	Amount  int
	Outcome SettlementOutcome
}
