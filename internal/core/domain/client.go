package domain

import "github.com/shopspring/decimal"

// Client is a payer within a firm. OutstandingBalance is a derived aggregate:
// it is recomputed wholesale inside every payment-affecting transaction,
// never patched incrementally, so it cannot drift.
type Client struct {
	ClientID           string          `json:"clientID"` // Primary key (UUID)
	FirmID             string          `json:"firmID"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	IsActive           bool            `json:"isActive"`
	AuditFields
}
