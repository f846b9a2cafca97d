package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/notice"
	"github.com/GowthamR7/wallet-frontend/internal/wallet"
)

var (
	// ErrValidation marks client-detected input problems. Operations failing
	// with it have performed no network call.
	ErrValidation = errors.New("validation failed")

	// ErrBusy indicates another mutating operation is already in flight.
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoSession indicates the caller has not logged in.
	ErrNoSession = errors.New("no active session")

	// ErrRefreshFailed wraps a failed refresh. The previously displayed
	// account and feed remain untouched when it is returned.
	ErrRefreshFailed = errors.New("refresh failed")
)

type loginRequest struct {
	Email string `validate:"required,email"`
}

// Session owns the client-side wallet state for one logged-in user: the
// cached account, the transaction feed, and the in-flight operation gate.
// It is created empty, initialized by Resolve and torn down by Close.
type Session struct {
	client   *api.Client
	notifier notice.Notifier
	log      *slog.Logger
	validate *validator.Validate

	mu         sync.Mutex
	email      string
	active     bool
	account    api.Account
	feed       []api.Transaction
	feedLoaded bool
	writing    bool
	refreshSeq uint64
	appliedSeq uint64
}

// New builds an empty session bound to the wallet service client.
func New(client *api.Client, notifier notice.Notifier, log *slog.Logger) *Session {
	return &Session{
		client:   client,
		notifier: notifier,
		log:      log,
		validate: validator.New(),
	}
}

// Resolve logs the user in: it fetches the account registered under email,
// provisioning a fresh zero-balance one when none exists. The returned flag
// reports whether a new account was created so the caller can show an
// onboarding notice. Transport failures while checking for an existing
// account are treated as absence; every other failure is a login failure and
// leaves no local account behind.
func (s *Session) Resolve(ctx context.Context, email string) (api.Account, bool, error) {
	if err := s.validate.Struct(loginRequest{Email: email}); err != nil {
		return api.Account{}, false, fmt.Errorf("%w: a valid email address is required", ErrValidation)
	}

	created := false
	account, err := s.client.User(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, api.ErrNotFound), errors.Is(err, api.ErrTransport):
		if errors.Is(err, api.ErrTransport) {
			s.log.Warn("existence check failed, provisioning instead", "email", email, "error", err)
		}
		account, err = s.client.CreateUser(ctx, email)
		if err != nil {
			return api.Account{}, false, fmt.Errorf("create account: %w", err)
		}
		created = true
	default:
		return api.Account{}, false, fmt.Errorf("resolve account: %w", err)
	}

	s.mu.Lock()
	s.email = account.Email
	s.account = account
	s.feed = nil
	s.feedLoaded = false
	s.active = true
	s.writing = false
	s.refreshSeq = 0
	s.appliedSeq = 0
	s.mu.Unlock()

	if created && s.notifier != nil {
		_ = s.notifier.Send(ctx, notice.Notice{
			Kind: notice.KindOnboarding,
			Body: "New user detected. Your wallet has been created.",
		})
	}

	return account, created, nil
}

// Refresh re-fetches the account and the transaction feed as one logical
// snapshot. On any failure the previous state stays visible and a stale-state
// notice is emitted. A refresh that completes after a newer one has already
// applied is discarded rather than allowed to overwrite fresher data.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNoSession
	}
	email := s.email
	s.refreshSeq++
	ticket := s.refreshSeq
	s.mu.Unlock()

	account, err := s.client.User(ctx, email)
	if err != nil {
		return s.refreshFailed(ctx, err)
	}
	feed, err := s.client.Transactions(ctx, email)
	if err != nil {
		return s.refreshFailed(ctx, err)
	}

	s.commitRefresh(ticket, account, feed)
	return nil
}

// commitRefresh applies a completed refresh unless a later-started one has
// already been applied.
func (s *Session) commitRefresh(ticket uint64, account api.Account, feed []api.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.appliedSeq {
		s.log.Debug("discarding stale refresh", "ticket", ticket, "applied", s.appliedSeq)
		return
	}
	s.appliedSeq = ticket
	s.account = account
	s.feed = feed
	s.feedLoaded = true
}

func (s *Session) refreshFailed(ctx context.Context, err error) error {
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notice.Notice{
			Kind: notice.KindStaleState,
			Body: "Failed to fetch latest data. Showing last known balances.",
		})
	}
	return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
}

// Transfer validates and submits a move of amount between two segments of the
// logged-in account. The service debits and credits atomically; on success
// the cached account is replaced wholesale with the service response. The
// client does not pre-check balance sufficiency, it relies on the service's
// insufficient-funds rejection.
func (s *Session) Transfer(ctx context.Context, from, to wallet.Segment, amount decimal.Decimal) (api.Account, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return api.Account{}, ErrNoSession
	}
	email := s.email
	s.mu.Unlock()

	if !from.Valid() || !to.Valid() {
		return api.Account{}, fmt.Errorf("%w: unknown wallet segment", ErrValidation)
	}
	if from == to {
		return api.Account{}, fmt.Errorf("%w: cannot transfer to the same wallet", ErrValidation)
	}
	if !amount.IsPositive() {
		return api.Account{}, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}

	if err := s.BeginWrite(); err != nil {
		return api.Account{}, err
	}
	defer s.EndWrite()

	account, err := s.client.CreateTransfer(ctx, api.TransferRequest{
		Email:      email,
		FromWallet: string(from),
		ToWallet:   string(to),
		Amount:     amount,
	})
	if err != nil {
		return api.Account{}, fmt.Errorf("transfer: %w", err)
	}

	s.mu.Lock()
	s.account = account
	s.mu.Unlock()
	return account, nil
}

// BeginWrite acquires the single-writer gate. It fails with ErrBusy instead
// of blocking when a mutating operation is already in flight.
func (s *Session) BeginWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writing {
		return ErrBusy
	}
	s.writing = true
	return nil
}

// EndWrite releases the single-writer gate.
func (s *Session) EndWrite() {
	s.mu.Lock()
	s.writing = false
	s.mu.Unlock()
}

// Snapshot returns the cached account, a copy of the transaction feed, and
// whether a feed has ever loaded. The last flag lets the UI distinguish "no
// transactions yet" from "never fetched / showing stale data".
func (s *Session) Snapshot() (api.Account, []api.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := make([]api.Transaction, len(s.feed))
	copy(feed, s.feed)
	return s.account, feed, s.feedLoaded
}

// Email returns the logged-in email, empty when no session is active.
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ""
	}
	return s.email
}

// Active reports whether a user is logged in.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close tears the session down, dropping all cached state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = ""
	s.account = api.Account{}
	s.feed = nil
	s.feedLoaded = false
	s.active = false
	s.writing = false
	s.refreshSeq = 0
	s.appliedSeq = 0
}
