package services

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// InvoiceSvcFacade is the billing glue the ledger mutates invoices through.
type InvoiceSvcFacade interface {
	// CreateInvoice registers an invoice as an allocation target.
	CreateInvoice(ctx context.Context, firmID string, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error)

	// GetInvoiceByID retrieves an invoice scoped to a firm.
	GetInvoiceByID(ctx context.Context, firmID, invoiceID, userID string) (*domain.Invoice, error)

	// ListClientInvoices retrieves a paginated list of a client's invoices.
	ListClientInvoices(ctx context.Context, firmID, clientID string, limit int, nextToken *string, userID string) (*dto.ListInvoicesResponse, error)
}
