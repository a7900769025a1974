package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dixie/callvehicle/core/fleet"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/core/options"
	"github.com/dixie/callvehicle/core/settlement"
	"github.com/dixie/callvehicle/infra/ledger"
	"github.com/dixie/callvehicle/infra/logger"
	"github.com/dixie/callvehicle/infra/notify"
	"github.com/dixie/callvehicle/internal/eventbus"
)

type fakeWorld struct {
	distance float64
	minutes  int
}

func (w fakeWorld) DistanceTo(string, model.Point) float64 { return w.distance }
func (w fakeWorld) PositionOf(string) model.Point          { return model.Point{} }
func (w fakeWorld) TimeOfDayMinutes() int                  { return w.minutes }

// fakeNav records provider callbacks so tests deliver outcomes by hand.
type fakeNav struct {
	mu        sync.Mutex
	callbacks []func(NavigationResult)
}

func (n *fakeNav) Navigate(_ string, _ model.Point, _ DriveProfile, onResult func(NavigationResult)) {
	n.mu.Lock()
	n.callbacks = append(n.callbacks, onResult)
	n.mu.Unlock()
}

func (n *fakeNav) pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.callbacks)
}

func (n *fakeNav) fire(i int, res NavigationResult) {
	n.mu.Lock()
	cb := n.callbacks[i]
	n.mu.Unlock()
	cb(res)
}

type failingLedger struct {
	*ledger.MemoryLedger
}

func (failingLedger) DebitBalance(context.Context, string, int, string) error {
	return errors.New("ledger offline")
}

type harness struct {
	source *fleet.MemorySource
	led    *ledger.MemoryLedger
	nav    *fakeNav
	rec    *notify.Recorder
	opts   *options.Store
	mgr    *Manager
}

// newHarness builds a manager over in-memory infrastructure with one vehicle
// "v1" (Burrito, Red) owned by requester "r1". The world reports zero
// distance at the night boundary, so every quote totals the night charge of
// 800.
func newHarness(t *testing.T, ledgerSvc settlement.LedgerService) *harness {
	t.Helper()
	h := &harness{
		source: fleet.NewMemorySource(),
		led:    ledger.NewMemoryLedger(),
		nav:    &fakeNav{},
		rec:    notify.NewRecorder(),
		opts:   options.NewStore(options.Defaults()),
	}
	if ledgerSvc == nil {
		ledgerSvc = h.led
	}
	h.source.Add("r1", model.Vehicle{ID: "v1", Name: "Burrito", Color: "Red", Owned: true})
	settler, err := settlement.NewSettler(ledgerSvc, ledger.NewMemoryInventory(), h.opts, logger.NopLogger{})
	if err != nil {
		t.Fatalf("settler: %v", err)
	}
	registry := fleet.NewRegistry(h.source)
	world := fakeWorld{distance: 0, minutes: 1800}
	mgr, err := NewManager(registry, world, h.nav, h.rec, settler, h.opts, Config{}, nil, eventbus.New(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	h.mgr = mgr
	t.Cleanup(func() { _ = mgr.Close() })
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatchCompletesAndSettles(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := s.State(); got != model.StateEnRoute {
		t.Fatalf("state before callback: %s", got)
	}
	if q := s.Quote(); q.TotalCost != 800 {
		t.Fatalf("quote: %d", q.TotalCost)
	}

	h.nav.fire(0, NavigationCompleted)

	if got := s.State(); got != model.StateCompleted {
		t.Fatalf("state: %s", got)
	}
	rec, ok := s.Settlement()
	if !ok {
		t.Fatal("no settlement record")
	}
	if rec.Amount != 800 || rec.Source != model.SourceBalance || rec.Outcome != model.OutcomeCharged {
		t.Fatalf("settlement record: %+v", rec)
	}
	balance, _ := h.led.Balance(context.Background(), "r1")
	if balance != 200 {
		t.Fatalf("balance after settlement: %d", balance)
	}

	msgs := h.rec.ForRequester("r1")
	if len(msgs) != 2 {
		t.Fatalf("notifications: %v", msgs)
	}
	if msgs[0] != "Your Burrito (Red) is on the way." {
		t.Fatalf("dispatched message: %q", msgs[0])
	}
	if msgs[1] != "Vehicle arrived. I've deducted $800 from your balance. Thank you for using my service." {
		t.Fatalf("arrival message: %q", msgs[1])
	}
}

func TestDispatchRejectsInsufficientFunds(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 100)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := s.State(); got != model.StateRejected {
		t.Fatalf("state: %s", got)
	}
	if got := s.Reason(); got != ReasonInsufficientFunds {
		t.Fatalf("reason: %s", got)
	}
	if h.nav.pending() != 0 {
		t.Fatal("navigation started for a rejected session")
	}
	balance, _ := h.led.Balance(context.Background(), "r1")
	if balance != 100 {
		t.Fatalf("balance touched: %d", balance)
	}
	for _, v := range h.source.Vehicles("r1") {
		if v.Reserved {
			t.Fatal("vehicle reserved for a rejected session")
		}
	}
	msgs := h.rec.ForRequester("r1")
	if len(msgs) != 1 || msgs[0] != "Sorry boss, you need $800 for this service." {
		t.Fatalf("notifications: %v", msgs)
	}
}

func TestDispatchRejectsBusyVehicle(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 5000)

	first, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if first.State() != model.StateEnRoute {
		t.Fatalf("first state: %s", first.State())
	}

	second, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.State() != model.StateRejected || second.Reason() != ReasonVehicleBusy {
		t.Fatalf("second: state=%s reason=%s", second.State(), second.Reason())
	}

	// The losing request must not affect the held reservation.
	h.nav.fire(0, NavigationCompleted)
	if first.State() != model.StateCompleted {
		t.Fatalf("first terminal state: %s", first.State())
	}
}

func TestDispatchRejectsDrivingVehicle(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 5000)
	h.source.SetDriving("v1", true)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if s.State() != model.StateRejected || s.Reason() != ReasonVehicleBusy {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	msgs := h.rec.ForRequester("r1")
	if len(msgs) != 1 || msgs[0] != "Sorry boss, I'm still driving your Burrito (Red)." {
		t.Fatalf("notifications: %v", msgs)
	}
}

func TestDispatchUnknownVehicle(t *testing.T) {
	h := newHarness(t, nil)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "missing")
	if !errors.Is(err, fleet.ErrVehicleNotFound) {
		t.Fatalf("err: %v", err)
	}
	if s != nil {
		t.Fatal("session created for unknown vehicle")
	}
	if len(h.rec.Messages()) != 0 {
		t.Fatal("notification sent for unknown vehicle")
	}
}

func TestDispatchRouteFailureChargesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h.nav.fire(0, NavigationFailed)

	if s.State() != model.StateFailed || s.Reason() != ReasonRouteUnavailable {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	if _, ok := s.Settlement(); ok {
		t.Fatal("settlement recorded for a failed route")
	}
	balance, _ := h.led.Balance(context.Background(), "r1")
	if balance != 1000 {
		t.Fatalf("balance touched: %d", balance)
	}
	msgs := h.rec.ForRequester("r1")
	if len(msgs) != 2 || !strings.Contains(msgs[1], "You have not been charged.") {
		t.Fatalf("notifications: %v", msgs)
	}

	// The vehicle is usable again once the failure is final.
	next, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("follow-up request: %v", err)
	}
	if next.State() != model.StateEnRoute {
		t.Fatalf("follow-up state: %s", next.State())
	}
}

func TestDispatchDuplicateCallbackIsNoOp(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h.nav.fire(0, NavigationCompleted)
	h.nav.fire(0, NavigationCompleted)
	h.nav.fire(0, NavigationFailed)

	if s.State() != model.StateCompleted {
		t.Fatalf("state: %s", s.State())
	}
	balance, _ := h.led.Balance(context.Background(), "r1")
	if balance != 200 {
		t.Fatalf("charged more than once: balance %d", balance)
	}
	if len(h.led.History()) != 1 {
		t.Fatalf("ledger writes: %d", len(h.led.History()))
	}
	if len(h.rec.ForRequester("r1")) != 2 {
		t.Fatalf("notifications: %v", h.rec.ForRequester("r1"))
	}
}

func TestDispatchSettlementFailureAfterDelivery(t *testing.T) {
	fl := failingLedger{ledger.NewMemoryLedger()}
	fl.CreditBalance("r1", 1000)
	h := newHarness(t, fl)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h.nav.fire(0, NavigationCompleted)

	if s.State() != model.StateFailed || s.Reason() != ReasonSettlementFailed {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	if _, ok := s.Settlement(); ok {
		t.Fatal("settlement record present after a failed debit")
	}
	msgs := h.rec.ForRequester("r1")
	if len(msgs) != 2 || !strings.Contains(msgs[1], "the payment could not be processed") {
		t.Fatalf("notifications: %v", msgs)
	}

	// A settlement failure releases the vehicle like any other terminal.
	for _, v := range h.source.Vehicles("r1") {
		if v.Reserved {
			t.Fatal("vehicle still reserved after terminal state")
		}
	}
}

func TestDispatchTimeoutFailsUnreachable(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)
	h.mgr.navigateTimeout = 20 * time.Millisecond

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	waitFor(t, func() bool { return s.State().Terminal() })

	if s.State() != model.StateFailed || s.Reason() != ReasonUnreachable {
		t.Fatalf("state=%s reason=%s", s.State(), s.Reason())
	}
	balance, _ := h.led.Balance(context.Background(), "r1")
	if balance != 1000 {
		t.Fatalf("balance touched: %d", balance)
	}

	// A late provider callback after the timeout changes nothing.
	h.nav.fire(0, NavigationCompleted)
	if s.State() != model.StateFailed {
		t.Fatalf("late callback overrode timeout: %s", s.State())
	}
	balance, _ = h.led.Balance(context.Background(), "r1")
	if balance != 1000 {
		t.Fatalf("late callback charged: %d", balance)
	}
}

func TestDispatchCashSettlementDepositsToCourier(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditCash("r1", 900)
	h.opts.Update(func(v *options.Values) { v.UseCash = true })

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	h.nav.fire(0, NavigationCompleted)

	rec, ok := s.Settlement()
	if !ok || rec.Source != model.SourceCash {
		t.Fatalf("settlement: ok=%v rec=%+v", ok, rec)
	}
	cash, _ := h.led.CashBalance(context.Background(), "r1")
	if cash != 100 {
		t.Fatalf("cash balance: %d", cash)
	}
	msgs := h.rec.ForRequester("r1")
	if msgs[len(msgs)-1] != "Vehicle arrived. I've deducted $800 from your cash. Thank you for using my service." {
		t.Fatalf("arrival message: %q", msgs[len(msgs)-1])
	}
}

func TestFleetSnapshotShowsReservation(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)

	if _, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	snap := h.mgr.Fleet("r1")
	if len(snap) != 1 || !snap[0].Reserved {
		t.Fatalf("snapshot: %+v", snap)
	}
	h.nav.fire(0, NavigationCompleted)
	snap = h.mgr.Fleet("r1")
	if snap[0].Reserved {
		t.Fatal("reservation marker not cleared")
	}
}

func TestSessionLookup(t *testing.T) {
	h := newHarness(t, nil)
	h.led.CreditBalance("r1", 1000)

	s, err := h.mgr.RequestDispatch(context.Background(), "r1", "v1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	got, ok := h.mgr.Session(s.ID)
	if !ok || got != s {
		t.Fatal("session not found by ID")
	}
	if _, ok := h.mgr.Session("nope"); ok {
		t.Fatal("unknown session found")
	}
	h.nav.fire(0, NavigationCompleted)
	if _, ok := h.mgr.Session(s.ID); !ok {
		t.Fatal("terminal session evicted from archive")
	}
}
