package domain

import (
	"github.com/shopspring/decimal"
)

// InvoiceStatus is derived from the invoice's balance once it is issued.
type InvoiceStatus string

const (
	InvoiceDraft       InvoiceStatus = "DRAFT"
	InvoiceOutstanding InvoiceStatus = "OUTSTANDING"
	InvoicePartial     InvoiceStatus = "PARTIAL"
	InvoicePaid        InvoiceStatus = "PAID"
	InvoiceCancelled   InvoiceStatus = "CANCELLED"
)

// Invoice is owned by billing; the payment ledger mutates only its paid
// amount, derived status, and the payment-processing guard flag.
type Invoice struct {
	InvoiceID     string  `json:"invoiceID"` // Primary key (UUID)
	FirmID        string  `json:"firmID"`
	ClientID      string  `json:"clientID"`
	MatterID      *string `json:"matterID,omitempty"`
	InvoiceNumber string  `json:"invoiceNumber"`

	TotalAmount  decimal.Decimal `json:"totalAmount"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	CurrencyCode string          `json:"currencyCode"`

	Status InvoiceStatus `json:"status"`

	// PaymentProcessing serializes concurrent one-shot payment attempts
	// against this invoice. Set and cleared via conditional updates.
	PaymentProcessing bool `json:"paymentProcessing"`

	AuditFields
}

// BalanceDue is the outstanding amount on the invoice.
func (i *Invoice) BalanceDue() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// DeriveStatus computes the status implied by the paid amount. Cancelled and
// draft invoices keep their status regardless of balance.
func (i *Invoice) DeriveStatus() InvoiceStatus {
	if i.Status == InvoiceCancelled || i.Status == InvoiceDraft {
		return i.Status
	}
	switch {
	case i.BalanceDue().LessThanOrEqual(decimal.Zero):
		return InvoicePaid
	case i.AmountPaid.GreaterThan(decimal.Zero):
		return InvoicePartial
	default:
		return InvoiceOutstanding
	}
}

// AcceptsPayment reports whether the invoice can receive an allocation.
func (i *Invoice) AcceptsPayment() bool {
	return i.Status == InvoiceOutstanding || i.Status == InvoicePartial
}
