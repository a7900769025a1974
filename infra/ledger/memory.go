// Package ledger provides funds storage backends for the settlement layer.
package ledger

import (
	"context"
	"sync"
	"time"
)

// Transaction is one recorded ledger mutation.
type Transaction struct {
	RequesterID string
	Amount      int
	Memo        string
	Account     string
	Time        time.Time
}

// MemoryLedger is an in-memory LedgerService. Debits are unconditional:
// funds validation happens at request time, not here, so a racing withdrawal
// can leave a negative balance.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	cash     map[string]int
	history  []Transaction
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: map[string]int{}, cash: map[string]int{}}
}

// CreditBalance adds to the requester's online balance.
func (l *MemoryLedger) CreditBalance(requesterID string, amount int) {
	l.mu.Lock()
	l.balances[requesterID] += amount
	l.mu.Unlock()
}

// CreditCash adds to the requester's cash balance.
func (l *MemoryLedger) CreditCash(requesterID string, amount int) {
	l.mu.Lock()
	l.cash[requesterID] += amount
	l.mu.Unlock()
}

func (l *MemoryLedger) Balance(_ context.Context, requesterID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[requesterID], nil
}

func (l *MemoryLedger) CashBalance(_ context.Context, requesterID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash[requesterID], nil
}

func (l *MemoryLedger) DebitBalance(_ context.Context, requesterID string, amount int, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[requesterID] -= amount
	l.history = append(l.history, Transaction{RequesterID: requesterID, Amount: -amount, Memo: memo, Account: "balance", Time: time.Now()})
	return nil
}

func (l *MemoryLedger) DebitCash(_ context.Context, requesterID string, amount int, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cash[requesterID] -= amount
	l.history = append(l.history, Transaction{RequesterID: requesterID, Amount: -amount, Memo: memo, Account: "cash", Time: time.Now()})
	return nil
}

// History returns a copy of all recorded transactions.
func (l *MemoryLedger) History() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, len(l.history))
	copy(out, l.history)
	return out
}

// MemoryInventory is an in-memory courier inventory accumulating physical
// cash deposits.
type MemoryInventory struct {
	mu    sync.Mutex
	total int
}

// NewMemoryInventory creates an empty inventory.
func NewMemoryInventory() *MemoryInventory { return &MemoryInventory{} }

// DepositCash adds a cash instance to the inventory.
func (i *MemoryInventory) DepositCash(amount int) {
	i.mu.Lock()
	i.total += amount
	i.mu.Unlock()
}

// Total returns the accumulated cash.
func (i *MemoryInventory) Total() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.total
}
