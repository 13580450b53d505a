package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// InvoiceReader defines read operations for invoice data.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice scoped to a firm.
	FindInvoiceByID(ctx context.Context, firmID, invoiceID string) (*domain.Invoice, error)

	// FindInvoicesByIDsForUpdate locks the invoice rows for the duration of the
	// supplied transaction and returns their current balances.
	FindInvoicesByIDsForUpdate(ctx context.Context, tx pgx.Tx, firmID string, invoiceIDs []string) (map[string]domain.Invoice, error)

	// ListInvoicesByClient retrieves a paginated list of a client's invoices.
	ListInvoicesByClient(ctx context.Context, firmID, clientID string, limit int, nextToken *string) ([]domain.Invoice, *string, error)
}

// InvoiceWriter defines write operations for invoice data.
type InvoiceWriter interface {
	// SaveInvoice inserts a new invoice.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// ApplyAmountsInTx adjusts amount_paid by the given deltas (positive for
	// allocation, negative for reversal) and re-derives each invoice's status.
	// Rows must already be locked via FindInvoicesByIDsForUpdate.
	ApplyAmountsInTx(ctx context.Context, tx pgx.Tx, deltas map[string]decimal.Decimal, userID string, now time.Time) error

	// SetPaymentProcessing flips the invoice's payment-processing guard flag.
	// Enabling is conditional: a guard already held is reported as
	// apperrors.ErrConflict. Clearing is unconditional.
	SetPaymentProcessing(ctx context.Context, firmID, invoiceID string, processing bool) error
}

// InvoiceRepositoryFacade combines all invoice repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}
