package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the wallet account as served by the remote service. Balances are
// denominated in Currency and split across five segments; the service owns
// every mutation, the client only caches what it is handed back.
type Account struct {
	ID                  string          `json:"id"`
	Email               string          `json:"email"`
	Balance             decimal.Decimal `json:"balance"`
	AIAvatarBalance     decimal.Decimal `json:"ai_avatar_balance"`
	BroadcastBotBalance decimal.Decimal `json:"broadcast_bot_balance"`
	DataScrapBalance    decimal.Decimal `json:"data_scrap_balance"`
	MetaAdBalance       decimal.Decimal `json:"meta_ad_balance"`
	Currency            string          `json:"currency"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Direction distinguishes ledger credits from debits.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Status is the lifecycle state of a ledger entry. PENDING is the only
// non-terminal status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Reason is the service-assigned reason code for a ledger entry.
type Reason string

const (
	ReasonTopup     Reason = "TOPUP"
	ReasonRefund    Reason = "REFUND"
	ReasonSpent     Reason = "SPENT"
	ReasonCancelled Reason = "CANCELLED"
	ReasonError     Reason = "ERROR"
	ReasonTransfer  Reason = "TRANSFER"
)

// Transaction is one immutable entry of the server-owned ledger. Wallet is
// the segment tag (AI_AVATAR, BROADCAST_BOT, META_AD, DATA_SCRAP) and is
// empty for entries against the main balance.
type Transaction struct {
	ID          string          `json:"id"`
	Type        Direction       `json:"transactionType"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ProductName string          `json:"product_name"`
	Status      Status          `json:"status"`
	Wallet      string          `json:"wallet"`
	Reason      Reason          `json:"reason"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Order is the payment order returned by create-session. Amount is the
// authoritative order amount in minor units; the client echoes it to the
// payment surface verbatim and never recomputes it from the requested value.
type Order struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// TransferRequest captures a segment-to-segment move submitted to the service.
type TransferRequest struct {
	Email      string
	FromWallet string
	ToWallet   string
	Amount     decimal.Decimal
}

// VerifyInput carries the payment gateway confirmation back to the service
// for signature verification.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
}
