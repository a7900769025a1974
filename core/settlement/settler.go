// Package settlement charges the requester for a completed dispatch. A
// settlement runs at most once per session, only from a terminal transition,
// and is the sole writer to the requester's ledger.
package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/dixie/callvehicle/core/logger"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/core/options"
)

// TransactionMemo is attached to every ledger debit.
const TransactionMemo = "Chauffeur services"

// LedgerService is the external funds storage for a requester.
type LedgerService interface {
	Balance(ctx context.Context, requesterID string) (int, error)
	CashBalance(ctx context.Context, requesterID string) (int, error)
	DebitBalance(ctx context.Context, requesterID string, amount int, memo string) error
	DebitCash(ctx context.Context, requesterID string, amount int, memo string) error
}

// CourierInventory receives physical cash when checkpoint bypass is enabled
// and the settlement runs on the cash source.
type CourierInventory interface {
	DepositCash(amount int)
}

// Settler performs payment settlement at terminal session states.
type Settler struct {
	ledger    LedgerService
	inventory CourierInventory
	opts      *options.Store
	log       logger.Logger

	mu         sync.Mutex
	requesters map[string]*sync.Mutex
}

// NewSettler creates a Settler. inventory may be nil when no courier
// inventory exists; the cash deposit is then skipped regardless of the
// bypass option.
func NewSettler(ledger LedgerService, inventory CourierInventory, opts *options.Store, log logger.Logger) (*Settler, error) {
	if ledger == nil || opts == nil || log == nil {
		return nil, fmt.Errorf("settlement: nil parameter provided to NewSettler")
	}
	return &Settler{
		ledger:     ledger,
		inventory:  inventory,
		opts:       opts,
		log:        log,
		requesters: make(map[string]*sync.Mutex),
	}, nil
}

// requesterLock returns the mutex serializing ledger writes for one
// requester. Fleets and ledgers are requester-scoped, so there is no
// cross-requester contention to guard.
func (s *Settler) requesterLock(requesterID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.requesters[requesterID]
	if !ok {
		l = &sync.Mutex{}
		s.requesters[requesterID] = l
	}
	return l
}

// fundingSource reads the configured source. The value is read when needed,
// never captured for the session duration: a policy change mid-flight takes
// effect at settlement time.
func (s *Settler) fundingSource() model.FundingSource {
	if s.opts.Get().UseCash {
		return model.SourceCash
	}
	return model.SourceBalance
}

// FundsAvailable reports whether the requester can afford the given amount
// under the currently configured funding source.
func (s *Settler) FundsAvailable(ctx context.Context, requesterID string, amount int) (bool, error) {
	var (
		balance int
		err     error
	)
	switch s.fundingSource() {
	case model.SourceCash:
		balance, err = s.ledger.CashBalance(ctx, requesterID)
	default:
		balance, err = s.ledger.Balance(ctx, requesterID)
	}
	if err != nil {
		return false, fmt.Errorf("read funds: %w", err)
	}
	return balance >= amount, nil
}

// Charge debits the requester for the quoted total and returns the
// settlement record. The funding source is re-read here, not taken from the
// request; funds were pre-validated at request time but the balance is not
// locked in between, so a racing withdrawal can drive the balance negative.
// Errors only arise from the ledger write itself.
func (s *Settler) Charge(ctx context.Context, requesterID string, quote model.FareQuote) (model.SettlementRecord, error) {
	l := s.requesterLock(requesterID)
	l.Lock()
	defer l.Unlock()

	src := s.fundingSource()
	switch src {
	case model.SourceCash:
		if err := s.ledger.DebitCash(ctx, requesterID, quote.TotalCost, TransactionMemo); err != nil {
			return model.SettlementRecord{}, fmt.Errorf("debit cash: %w", err)
		}
		if s.inventory != nil && s.opts.Get().BypassCheckpoints {
			s.inventory.DepositCash(quote.TotalCost)
		}
	default:
		if err := s.ledger.DebitBalance(ctx, requesterID, quote.TotalCost, TransactionMemo); err != nil {
			return model.SettlementRecord{}, fmt.Errorf("debit balance: %w", err)
		}
	}
	s.log.Debugw("settled dispatch", map[string]any{
		"requester_id": requesterID,
		"vehicle_id":   quote.VehicleID,
		"amount":       quote.TotalCost,
		"source":       src.String(),
	})
	return model.SettlementRecord{Source: src, Amount: quote.TotalCost, Outcome: model.OutcomeCharged}, nil
}
