// Package cli implements the interactive terminal dashboard: login, balance
// cards, transfers, top-ups and transaction history against the remote
// wallet service.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/checkout"
	"github.com/GowthamR7/wallet-frontend/internal/config"
	"github.com/GowthamR7/wallet-frontend/internal/notice"
	"github.com/GowthamR7/wallet-frontend/internal/session"
	"github.com/GowthamR7/wallet-frontend/internal/topup"
	"github.com/GowthamR7/wallet-frontend/internal/wallet"
)

// App wires the dashboard loop to the session and its collaborators.
type App struct {
	cfg      config.Config
	client   *api.Client
	session  *session.Session
	notifier notice.Notifier
	log      *slog.Logger
	in       io.Reader
	out      io.Writer
}

// New constructs the dashboard app.
func New(cfg config.Config, client *api.Client, sess *session.Session, notifier notice.Notifier, log *slog.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:      cfg,
		client:   client,
		session:  sess,
		notifier: notifier,
		log:      log,
		in:       in,
		out:      out,
	}
}

// Run reads commands until EOF, quit, or context cancellation.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to Your Wallet")
	fmt.Fprintln(a.out, "Enter your email to access or create your wallet: login <email>")

	scanner := bufio.NewScanner(a.in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		a.dispatch(ctx, fields[0], fields[1:])
	}
}

func (a *App) dispatch(ctx context.Context, command string, args []string) {
	switch command {
	case "help":
		a.printHelp()
	case "login":
		a.handleLogin(ctx, args)
	case "logout":
		a.session.Close()
		fmt.Fprintln(a.out, "Logged out.")
	case "balances":
		a.handleBalances()
	case "history":
		a.handleHistory()
	case "refresh":
		a.handleRefresh(ctx)
	case "transfer":
		a.handleTransfer(ctx, args)
	case "topup":
		a.handleTopup(ctx, args)
	default:
		fmt.Fprintf(a.out, "Unknown command %q. Try \"help\".\n", command)
	}
}

func (a *App) printHelp() {
	fmt.Fprintln(a.out, `Commands:
  login <email>                    access or create your wallet
  balances                         show the five wallet balances
  history                          show the transaction feed
  refresh                          re-fetch balances and history
  transfer <from> <to> <amount>    move funds between segments
                                   segments: main ai_avatar broadcast_bot data_scrap meta_ad
  topup <amount>                   add money to the main wallet
  logout                           end the session
  quit                             leave the dashboard`)
}

func (a *App) handleLogin(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: login <email>")
		return
	}
	_, _, err := a.session.Resolve(ctx, args[0])
	if err != nil {
		fmt.Fprintln(a.out, errMessage(err, "Failed to login or create user."))
		return
	}
	if err := a.session.Refresh(ctx); err != nil {
		a.log.Warn("initial refresh", "error", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", a.session.Email())
	a.handleBalances()
}

func (a *App) handleBalances() {
	if !a.requireSession() {
		return
	}
	account, _, _ := a.session.Snapshot()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, segment := range wallet.Segments() {
		fmt.Fprintf(w, "%s\t%s %s\n",
			segment.DisplayName(),
			wallet.BalanceOf(account, segment).StringFixed(2),
			account.Currency)
	}
	w.Flush()
}

func (a *App) handleHistory() {
	if !a.requireSession() {
		return
	}
	_, feed, loaded := a.session.Snapshot()
	if !loaded {
		fmt.Fprintln(a.out, "History not loaded yet. Try \"refresh\".")
		return
	}
	if len(feed) == 0 {
		fmt.Fprintln(a.out, "No transactions yet.")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTYPE\tAMOUNT\tSTATUS\tREASON\tWALLET\tPRODUCT")
	for _, tx := range feed {
		walletTag := tx.Wallet
		if walletTag == "" {
			walletTag = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
			tx.CreatedAt.Local().Format("2006-01-02 15:04"),
			tx.Type, tx.Amount.StringFixed(2), tx.Currency,
			tx.Status, tx.Reason, walletTag, tx.ProductName)
	}
	w.Flush()
}

func (a *App) handleRefresh(ctx context.Context) {
	if !a.requireSession() {
		return
	}
	if err := a.session.Refresh(ctx); err != nil {
		// The stale-state notice has already been emitted by the session.
		a.log.Debug("refresh", "error", err)
		return
	}
	a.handleBalances()
}

func (a *App) handleTransfer(ctx context.Context, args []string) {
	if !a.requireSession() {
		return
	}
	if len(args) != 3 {
		fmt.Fprintln(a.out, "Usage: transfer <from> <to> <amount>")
		return
	}
	from, err := wallet.Parse(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	to, err := wallet.Parse(args[1])
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		fmt.Fprintln(a.out, "Please enter a valid amount.")
		return
	}
	if _, err := a.session.Transfer(ctx, from, to, amount); err != nil {
		fmt.Fprintln(a.out, errMessage(err, "Transfer failed."))
		return
	}
	fmt.Fprintln(a.out, "Transfer successful!")
	a.handleBalances()
}

func (a *App) handleTopup(ctx context.Context, args []string) {
	if !a.requireSession() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: topup <amount>")
		return
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		fmt.Fprintln(a.out, "Please enter a valid amount.")
		return
	}

	surface, err := checkout.New(checkout.Options{
		KeyID:   a.cfg.RazorpayKeyID,
		Addr:    a.cfg.CheckoutAddr,
		Timeout: a.cfg.CheckoutTimeout,
		Logger:  a.log,
		Ready: func(url string) {
			fmt.Fprintf(a.out, "Open %s in your browser to complete the payment.\n", url)
		},
	})
	if err != nil {
		fmt.Fprintf(a.out, "Top-up unavailable: %v\n", err)
		return
	}

	operation := topup.NewOperation(a.session, a.client, surface, a.log)
	result, err := operation.Run(ctx, amount)
	switch {
	case err == nil:
		if a.notifier != nil {
			_ = a.notifier.Send(ctx, notice.Notice{
				Kind: notice.KindInfo,
				Body: "Payment successful! Your balance will be updated shortly.",
			})
		}
		a.handleBalances()
	case errors.Is(err, topup.ErrAbandoned):
		fmt.Fprintln(a.out, "Payment window closed without completing. Top-up abandoned.")
	case result.Order.OrderID == "":
		fmt.Fprintln(a.out, errMessage(err, "Could not create the payment order."))
	default:
		fmt.Fprintln(a.out, errMessage(err, "Payment verification failed."))
	}
}

func (a *App) requireSession() bool {
	if a.session.Active() {
		return true
	}
	fmt.Fprintln(a.out, "Not logged in. Use: login <email>")
	return false
}

// errMessage reduces any operation error to the single human-readable line
// the dashboard shows, preferring the server-supplied reason.
func errMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, session.ErrValidation):
		return strings.TrimPrefix(err.Error(), session.ErrValidation.Error()+": ")
	case errors.Is(err, session.ErrBusy):
		return "Another operation is still in progress. Try again in a moment."
	case errors.Is(err, topup.ErrInvalidAmount):
		return "Please enter a valid amount."
	case errors.Is(err, api.ErrTransport):
		return "Could not reach the wallet service. Please try again."
	default:
		return api.ReasonOf(err, fallback)
	}
}
