package models

import "github.com/shopspring/decimal"

// Client mirrors a row of the clients table.
type Client struct {
	ClientID           string          `json:"clientID"`
	FirmID             string          `json:"firmID"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	IsActive           bool            `json:"isActive"`
	AuditFields
}
