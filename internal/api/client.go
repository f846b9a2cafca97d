package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const requestIDHeader = "X-Request-Id"

// Client talks to the remote wallet service. All balance, ledger and payment
// verification logic lives behind it; the client only moves validated
// requests and typed responses across the wire.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New builds a wallet service client for the given base URL.
func New(baseURL string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

type userEnvelope struct {
	User Account `json:"user"`
}

type createUserEnvelope struct {
	NewUser Account `json:"newUser"`
}

type transactionsEnvelope struct {
	Transactions []Transaction `json:"transactions"`
}

type createUserPayload struct {
	Email string `json:"email"`
}

type createSessionPayload struct {
	AmountRequested float64 `json:"amountRequested"`
	Email           string  `json:"email"`
}

type verifyPayload struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type transferPayload struct {
	Email      string  `json:"email"`
	FromWallet string  `json:"fromWallet"`
	ToWallet   string  `json:"toWallet"`
	Balance    float64 `json:"balance"`
}

// User fetches the account registered under email. Returns ErrNotFound when
// the service knows no such account.
func (c *Client) User(ctx context.Context, email string) (Account, error) {
	var env userEnvelope
	err := c.get(ctx, "/user-info", url.Values{"email": {email}}, &env)
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) && de.Status == http.StatusNotFound {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return env.User, nil
}

// CreateUser provisions a fresh zero-balance account for email.
func (c *Client) CreateUser(ctx context.Context, email string) (Account, error) {
	var env createUserEnvelope
	if err := c.post(ctx, "/create-user", createUserPayload{Email: email}, &env); err != nil {
		return Account{}, err
	}
	return env.NewUser, nil
}

// Transactions returns the account's ledger entries as served, newest first.
// An empty slice is a valid result, not an error.
func (c *Client) Transactions(ctx context.Context, email string) ([]Transaction, error) {
	var env transactionsEnvelope
	if err := c.get(ctx, "/user-transactions", url.Values{"email": {email}}, &env); err != nil {
		return nil, err
	}
	if env.Transactions == nil {
		return []Transaction{}, nil
	}
	return env.Transactions, nil
}

// CreateOrder opens a payment order for the requested top-up amount. The
// returned order amount is authoritative and in minor units.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, email string) (Order, error) {
	var order Order
	payload := createSessionPayload{AmountRequested: amount.InexactFloat64(), Email: email}
	if err := c.post(ctx, "/create-session", payload, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// VerifyOrder submits the gateway confirmation for server-side signature
// verification. A nil return means the payment was accepted.
func (c *Client) VerifyOrder(ctx context.Context, input VerifyInput) error {
	payload := verifyPayload{
		OrderID:   input.OrderID,
		PaymentID: input.PaymentID,
		Signature: input.Signature,
	}
	return c.post(ctx, "/verify-razorpay-order", payload, nil)
}

// CreateTransfer asks the service to move funds between two segments of the
// same account. The service performs the debit and credit atomically and
// returns the resulting account in full.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (Account, error) {
	payload := transferPayload{
		Email:      req.Email,
		FromWallet: req.FromWallet,
		ToWallet:   req.ToWallet,
		Balance:    req.Amount.InexactFloat64(),
	}
	var env userEnvelope
	if err := c.post(ctx, "/create-transfer", payload, &env); err != nil {
		return Account{}, err
	}
	return env.User, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &body)
		c.log.Debug("wallet service rejection",
			"path", req.URL.Path, "status", resp.StatusCode, "reason", body.Error)
		return &DomainError{Status: resp.StatusCode, Reason: body.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}
