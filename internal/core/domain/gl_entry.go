package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GLDirection is the side of the ledger an entry posts to.
type GLDirection string

const (
	GLDebit  GLDirection = "DEBIT"
	GLCredit GLDirection = "CREDIT"
)

// GLEntry is the immutable general-ledger record of a completed payment.
// Exactly one entry is appended per payment entering COMPLETED (refunds post
// with the opposite direction); entries are never updated or deleted.
type GLEntry struct {
	EntryID      string          `json:"entryID"` // Primary key (UUID)
	FirmID       string          `json:"firmID"`
	PaymentID    string          `json:"paymentID"`
	ClientID     string          `json:"clientID"`
	EntryNumber  string          `json:"entryNumber"` // Per-firm sequential
	Direction    GLDirection     `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Memo         string          `json:"memo,omitempty"`
	PostedAt     time.Time       `json:"postedAt"`
	CreatedBy    string          `json:"createdBy"`
}
