package models

import "github.com/shopspring/decimal"

// InvoiceStatus is the persisted derived status of an invoice row.
type InvoiceStatus string

const (
	InvoiceDraft       InvoiceStatus = "DRAFT"
	InvoiceOutstanding InvoiceStatus = "OUTSTANDING"
	InvoicePartial     InvoiceStatus = "PARTIAL"
	InvoicePaid        InvoiceStatus = "PAID"
	InvoiceCancelled   InvoiceStatus = "CANCELLED"
)

// Invoice mirrors a row of the invoices table.
type Invoice struct {
	InvoiceID         string          `json:"invoiceID"`
	FirmID            string          `json:"firmID"`
	ClientID          string          `json:"clientID"`
	MatterID          *string         `json:"matterID,omitempty"`
	InvoiceNumber     string          `json:"invoiceNumber"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	AmountPaid        decimal.Decimal `json:"amountPaid"`
	CurrencyCode      string          `json:"currencyCode"`
	Status            InvoiceStatus   `json:"status"`
	PaymentProcessing bool            `json:"paymentProcessing"`
	AuditFields
}
