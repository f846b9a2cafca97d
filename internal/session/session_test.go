package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/logging"
	"github.com/GowthamR7/wallet-frontend/internal/notice"
	"github.com/GowthamR7/wallet-frontend/internal/wallet"
)

const (
	existingAccount = `{"user":{"id":"u_1","email":"a@x.com","balance":100,"ai_avatar_balance":0,` +
		`"broadcast_bot_balance":0,"data_scrap_balance":0,"meta_ad_balance":0,"currency":"INR",` +
		`"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}}`
	freshAccount = `{"newUser":{"id":"u_2","email":"new@x.com","balance":0,"ai_avatar_balance":0,` +
		`"broadcast_bot_balance":0,"data_scrap_balance":0,"meta_ad_balance":0,"currency":"INR",` +
		`"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}}`
	emptyFeed = `{"transactions":[]}`
	oneFeed   = `{"transactions":[{"id":"t_1","transactionType":"CREDIT","amount":100,"currency":"INR",` +
		`"product_name":"Wallet Top-Up","status":"SUCCESS","wallet":null,"reason":"TOPUP",` +
		`"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}]}`
)

// fakeWallet is a scriptable stand-in for the remote wallet service.
type fakeWallet struct {
	mu            sync.Mutex
	userBody      string
	userStatus    int
	createBody    string
	feedBody      string
	feedStatus    int
	transferBody  string
	transferCode  int
	userCalls     int
	createCalls   int
	feedCalls     int
	transferCalls int
}

func (f *fakeWallet) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user-info", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.userCalls++
		status, body := f.userStatus, f.userBody
		f.mu.Unlock()
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"User not found"}`))
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/create-user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.createCalls++
		body := f.createBody
		f.mu.Unlock()
		w.Write([]byte(body))
	})
	mux.HandleFunc("/user-transactions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.feedCalls++
		status, body := f.feedStatus, f.feedBody
		f.mu.Unlock()
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"feed unavailable"}`))
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/create-transfer", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.transferCalls++
		code, body := f.transferCode, f.transferBody
		f.mu.Unlock()
		if code != 0 && code != http.StatusOK {
			w.WriteHeader(code)
		}
		w.Write([]byte(body))
	})
	return mux
}

func (f *fakeWallet) set(fn func(*fakeWallet)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeWallet) counts() (user, create, feed, transfer int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userCalls, f.createCalls, f.feedCalls, f.transferCalls
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (r *recordingNotifier) Send(_ context.Context, n notice.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func newTestSession(t *testing.T, fake *fakeWallet) (*Session, *recordingNotifier, func()) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	client, err := api.New(srv.URL, time.Second, logging.Discard())
	if err != nil {
		srv.Close()
		t.Fatalf("new client: %v", err)
	}
	notifier := &recordingNotifier{}
	return New(client, notifier, logging.Discard()), notifier, srv.Close
}

func TestResolveUnknownEmailCreatesExactlyOnce(t *testing.T) {
	fake := &fakeWallet{userStatus: http.StatusNotFound, createBody: freshAccount}
	sess, notifier, done := newTestSession(t, fake)
	defer done()

	account, created, err := sess.Resolve(context.Background(), "new@x.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !created {
		t.Fatal("expected new-account signal")
	}
	if account.Currency != "INR" {
		t.Fatalf("expected INR, got %q", account.Currency)
	}
	for _, segment := range wallet.Segments() {
		if !wallet.BalanceOf(account, segment).IsZero() {
			t.Fatalf("expected zero %s balance, got %s", segment, wallet.BalanceOf(account, segment))
		}
	}
	if _, create, _, _ := fake.counts(); create != 1 {
		t.Fatalf("expected exactly one create call, got %d", create)
	}
	if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != notice.KindOnboarding {
		t.Fatalf("expected onboarding notice, got %v", kinds)
	}
}

func TestResolveExistingAccount(t *testing.T) {
	fake := &fakeWallet{userBody: existingAccount}
	sess, _, done := newTestSession(t, fake)
	defer done()

	account, created, err := sess.Resolve(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created {
		t.Fatal("unexpected new-account signal")
	}
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", account.Balance)
	}
	if _, create, _, _ := fake.counts(); create != 0 {
		t.Fatalf("unexpected create call")
	}
}

func TestResolveRejectsBadEmailBeforeNetwork(t *testing.T) {
	fake := &fakeWallet{}
	sess, _, done := newTestSession(t, fake)
	defer done()

	for _, email := range []string{"", "not-an-email", "@x.com"} {
		if _, _, err := sess.Resolve(context.Background(), email); !errors.Is(err, ErrValidation) {
			t.Fatalf("email %q: expected validation error, got %v", email, err)
		}
	}
	if user, create, _, _ := fake.counts(); user != 0 || create != 0 {
		t.Fatal("validation failures must not reach the network")
	}
}

func TestRefreshFailureKeepsLastKnownState(t *testing.T) {
	fake := &fakeWallet{userBody: existingAccount, feedBody: oneFeed}
	sess, notifier, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := sess.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fake.set(func(f *fakeWallet) { f.feedStatus = http.StatusInternalServerError })
	if err := sess.Refresh(ctx); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected refresh failure, got %v", err)
	}

	account, feed, loaded := sess.Snapshot()
	if !loaded {
		t.Fatal("expected feed to remain loaded")
	}
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balances cleared by failed refresh: %s", account.Balance)
	}
	if len(feed) != 1 {
		t.Fatalf("feed cleared by failed refresh: %v", feed)
	}

	kinds := notifier.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != notice.KindStaleState {
		t.Fatalf("expected stale-state notice, got %v", kinds)
	}
}

func TestStaleRefreshDoesNotOverwriteFresherData(t *testing.T) {
	sess := New(nil, nil, logging.Discard())

	newer := api.Account{ID: "newer", Balance: decimal.NewFromInt(500)}
	older := api.Account{ID: "older", Balance: decimal.NewFromInt(100)}

	sess.commitRefresh(2, newer, []api.Transaction{{ID: "t_2"}})
	sess.commitRefresh(1, older, []api.Transaction{{ID: "t_1"}})

	account, feed, _ := sess.Snapshot()
	if account.ID != "newer" {
		t.Fatalf("stale refresh overwrote fresher account: %+v", account)
	}
	if len(feed) != 1 || feed[0].ID != "t_2" {
		t.Fatalf("stale refresh overwrote fresher feed: %v", feed)
	}
}

func TestTransferValidationBeforeNetwork(t *testing.T) {
	fake := &fakeWallet{userBody: existingAccount}
	sess, _, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	cases := []struct {
		name   string
		from   wallet.Segment
		to     wallet.Segment
		amount decimal.Decimal
	}{
		{"same segment", wallet.Main, wallet.Main, decimal.NewFromInt(10)},
		{"zero amount", wallet.Main, wallet.AIAvatar, decimal.Zero},
		{"negative amount", wallet.Main, wallet.AIAvatar, decimal.NewFromInt(-5)},
		{"unknown segment", wallet.Segment("savings"), wallet.AIAvatar, decimal.NewFromInt(10)},
	}
	for _, tc := range cases {
		if _, err := sess.Transfer(ctx, tc.from, tc.to, tc.amount); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
	if _, _, _, transfers := fake.counts(); transfers != 0 {
		t.Fatalf("validation failures reached the network: %d calls", transfers)
	}
}

func TestTransferReplacesAccountWholesale(t *testing.T) {
	after := `{"user":{"id":"u_1","email":"a@x.com","balance":50,"ai_avatar_balance":50,` +
		`"broadcast_bot_balance":0,"data_scrap_balance":0,"meta_ad_balance":0,"currency":"INR",` +
		`"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-03T00:00:00Z"}}`
	fake := &fakeWallet{userBody: existingAccount, transferBody: after}
	sess, _, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	account, err := sess.Transfer(ctx, wallet.Main, wallet.AIAvatar, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(50)) || !account.AIAvatarBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50/50 split, got %s/%s", account.Balance, account.AIAvatarBalance)
	}

	cached, _, _ := sess.Snapshot()
	if !cached.Balance.Equal(account.Balance) || !cached.AIAvatarBalance.Equal(account.AIAvatarBalance) {
		t.Fatal("cached account does not match server response")
	}
	if !cached.UpdatedAt.Equal(account.UpdatedAt) {
		t.Fatal("cached account merged old and new state")
	}
}

func TestTransferSurfacesServerReason(t *testing.T) {
	fake := &fakeWallet{
		userBody:     existingAccount,
		transferCode: http.StatusBadRequest,
		transferBody: `{"error":"Insufficient balance"}`,
	}
	sess, _, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err := sess.Transfer(ctx, wallet.Main, wallet.AIAvatar, decimal.NewFromInt(500))
	if err == nil {
		t.Fatal("expected rejection")
	}
	if got := api.ReasonOf(err, "Transfer failed."); got != "Insufficient balance" {
		t.Fatalf("unexpected reason %q", got)
	}

	cached, _, _ := sess.Snapshot()
	if !cached.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatal("failed transfer mutated cached balances")
	}
}

func TestTransferRejectedWhileAnotherWriteInFlight(t *testing.T) {
	fake := &fakeWallet{userBody: existingAccount}
	sess, _, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := sess.BeginWrite(); err != nil {
		t.Fatalf("begin write: %v", err)
	}
	defer sess.EndWrite()

	if _, err := sess.Transfer(ctx, wallet.Main, wallet.AIAvatar, decimal.NewFromInt(10)); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, _, _, transfers := fake.counts(); transfers != 0 {
		t.Fatal("busy rejection reached the network")
	}
}

func TestCloseTearsDownState(t *testing.T) {
	fake := &fakeWallet{userBody: existingAccount, feedBody: oneFeed}
	sess, _, done := newTestSession(t, fake)
	defer done()

	ctx := context.Background()
	if _, _, err := sess.Resolve(ctx, "a@x.com"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := sess.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	sess.Close()
	if sess.Active() || sess.Email() != "" {
		t.Fatal("session still active after close")
	}
	if err := sess.Refresh(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after close, got %v", err)
	}
	account, feed, loaded := sess.Snapshot()
	if loaded || len(feed) != 0 || !account.Balance.IsZero() {
		t.Fatal("cached state survived close")
	}
}
