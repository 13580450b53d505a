package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GLEntry mirrors a row of the append-only gl_entries table.
type GLEntry struct {
	EntryID      string          `json:"entryID"`
	FirmID       string          `json:"firmID"`
	PaymentID    string          `json:"paymentID"`
	ClientID     string          `json:"clientID"`
	EntryNumber  string          `json:"entryNumber"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Memo         string          `json:"memo"`
	PostedAt     time.Time       `json:"postedAt"`
	CreatedBy    string          `json:"createdBy"`
}
