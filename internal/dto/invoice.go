package dto

import (
	"time"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest defines the data needed to register an invoice with the ledger.
type CreateInvoiceRequest struct {
	ClientID      string          `json:"clientID" binding:"required"`
	MatterID      *string         `json:"matterID"`
	InvoiceNumber string          `json:"invoiceNumber" binding:"required"`
	TotalAmount   decimal.Decimal `json:"totalAmount" binding:"required"`
	CurrencyCode  string          `json:"currencyCode" binding:"required,len=3"`
}

// InvoiceResponse defines the data returned for an invoice.
type InvoiceResponse struct {
	InvoiceID     string               `json:"invoiceID"`
	ClientID      string               `json:"clientID"`
	MatterID      *string              `json:"matterID,omitempty"`
	InvoiceNumber string               `json:"invoiceNumber"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	AmountPaid    decimal.Decimal      `json:"amountPaid"`
	BalanceDue    decimal.Decimal      `json:"balanceDue"`
	CurrencyCode  string               `json:"currencyCode"`
	Status        domain.InvoiceStatus `json:"status"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// ListInvoicesResponse is the paginated invoice listing.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO.
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:     inv.InvoiceID,
		ClientID:      inv.ClientID,
		MatterID:      inv.MatterID,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   inv.TotalAmount,
		AmountPaid:    inv.AmountPaid,
		BalanceDue:    inv.BalanceDue(),
		CurrencyCode:  inv.CurrencyCode,
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt,
	}
}

// ToInvoiceResponses converts a slice of domain invoices.
func ToInvoiceResponses(invoices []domain.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i])
	}
	return responses
}
