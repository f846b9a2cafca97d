package topup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/session"
)

// State is the top-up operation's position in its lifecycle. Succeeded,
// Failed and Abandoned are terminal.
type State string

const (
	StateIdle             State = "idle"
	StateOrderCreated     State = "order_created"
	StatePaymentHandedOff State = "payment_handed_off"
	StateVerifying        State = "verifying"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
	StateAbandoned        State = "abandoned"
)

var (
	// ErrInvalidAmount rejects non-positive top-up amounts before any
	// network call.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrAbandoned indicates the user left the payment surface without
	// completing it. Verification is never attempted in that case.
	ErrAbandoned = errors.New("payment abandoned")
)

// Confirmation is the gateway callback payload handed back by a Surface.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Surface is the external payment collection step. Collect blocks until the
// gateway confirms the payment, the user abandons it (ErrAbandoned), or ctx
// is cancelled. The operation does no polling; the surface owns the wait.
type Surface interface {
	Collect(ctx context.Context, order api.Order, email string) (Confirmation, error)
}

// StaticSurface simulates an instantly completed payment. Useful for tests.
type StaticSurface struct {
	PaymentID string
	Signature string
}

// Collect approves the payment with synthetic gateway identifiers.
func (s StaticSurface) Collect(_ context.Context, order api.Order, _ string) (Confirmation, error) {
	paymentID := s.PaymentID
	if paymentID == "" {
		paymentID = "pay_" + uuid.NewString()
	}
	signature := s.Signature
	if signature == "" {
		signature = uuid.NewString()
	}
	return Confirmation{OrderID: order.OrderID, PaymentID: paymentID, Signature: signature}, nil
}

// Result reports the terminal outcome of a top-up run.
type Result struct {
	ID    string
	State State
	Order api.Order
}

// Operation drives one top-up through order creation, payment handoff,
// verification and reconciliation. The three legs are strictly sequential:
// each starts only once the previous one completed. The session's write gate
// is held for the whole run, so a second top-up (or a transfer) submitted
// while one is pending is rejected with session.ErrBusy.
type Operation struct {
	id      string
	session *session.Session
	client  *api.Client
	surface Surface
	log     *slog.Logger

	mu    sync.Mutex
	state State
}

// NewOperation prepares an idle top-up operation for the logged-in session.
func NewOperation(sess *session.Session, client *api.Client, surface Surface, log *slog.Logger) *Operation {
	return &Operation{
		id:      uuid.NewString(),
		session: sess,
		client:  client,
		surface: surface,
		log:     log,
		state:   StateIdle,
	}
}

// State returns the operation's current state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Operation) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.Debug("top-up state", "operation", o.id, "state", string(s))
}

// Run executes the top-up for the requested amount and blocks until the
// operation reaches a terminal state. It always settles: abandonment and
// failure are terminal outcomes, never a stuck pending state.
func (o *Operation) Run(ctx context.Context, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{ID: o.id, State: StateIdle}, ErrInvalidAmount
	}
	email := o.session.Email()
	if email == "" {
		return Result{ID: o.id, State: StateIdle}, session.ErrNoSession
	}

	if err := o.session.BeginWrite(); err != nil {
		return Result{ID: o.id, State: StateIdle}, err
	}
	defer o.session.EndWrite()

	order, err := o.client.CreateOrder(ctx, amount, email)
	if err != nil {
		o.setState(StateFailed)
		return Result{ID: o.id, State: StateFailed}, fmt.Errorf("create order: %w", err)
	}
	o.setState(StateOrderCreated)
	o.log.Info("payment order created", "operation", o.id, "order", order.OrderID, "amount", order.Amount, "currency", order.Currency)

	o.setState(StatePaymentHandedOff)
	confirmation, err := o.surface.Collect(ctx, order, email)
	if err != nil {
		if errors.Is(err, ErrAbandoned) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			o.setState(StateAbandoned)
			return Result{ID: o.id, State: StateAbandoned, Order: order}, ErrAbandoned
		}
		o.setState(StateFailed)
		return Result{ID: o.id, State: StateFailed, Order: order}, fmt.Errorf("collect payment: %w", err)
	}
	if confirmation.OrderID == "" {
		confirmation.OrderID = order.OrderID
	}

	o.setState(StateVerifying)
	if err := o.client.VerifyOrder(ctx, api.VerifyInput{
		OrderID:   confirmation.OrderID,
		PaymentID: confirmation.PaymentID,
		Signature: confirmation.Signature,
	}); err != nil {
		o.setState(StateFailed)
		return Result{ID: o.id, State: StateFailed, Order: order}, fmt.Errorf("verify payment: %w", err)
	}
	o.setState(StateSucceeded)

	// The service applies the credit asynchronously relative to verification,
	// so the refreshed balance may still lag. That is not a failure of the
	// top-up.
	if err := o.session.Refresh(ctx); err != nil {
		o.log.Warn("refresh after top-up", "operation", o.id, "error", err)
	}

	return Result{ID: o.id, State: StateSucceeded, Order: order}, nil
}
