package services

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// PaymentSvcFacade defines the payment-ledger core operations. Every method
// takes the firm ID and the requesting user ID explicitly; payments of other
// firms surface as not found.
type PaymentSvcFacade interface {
	// CreatePayment creates a payment in PENDING. When an idempotency key is
	// supplied and a prior payment exists for it, that payment is returned with
	// replayed=true and no new record is created.
	CreatePayment(ctx context.Context, firmID string, req dto.CreatePaymentRequest, userID string) (payment *domain.Payment, replayed bool, err error)

	// CompletePayment drives PENDING|FAILED -> PROCESSING -> COMPLETED,
	// applying allocations, posting the GL entry, and recomputing the client
	// balance in one transaction.
	CompletePayment(ctx context.Context, firmID, paymentID string, req dto.CompletePaymentRequest, userID string) (*domain.Payment, error)

	// FailPayment moves a PENDING or PROCESSING payment to FAILED.
	FailPayment(ctx context.Context, firmID, paymentID string, req dto.FailPaymentRequest, userID string) (*domain.Payment, error)

	// RetryPayment moves a FAILED payment back to PENDING.
	RetryPayment(ctx context.Context, firmID, paymentID, userID string) (*domain.Payment, error)

	// RefundPayment creates a compensating refund payment and moves the
	// original to REFUNDED, reversing invoice allocations.
	RefundPayment(ctx context.Context, firmID, paymentID string, req dto.RefundPaymentRequest, userID string) (*domain.Payment, error)

	// ReconcilePayment matches a COMPLETED payment to a bank statement line.
	ReconcilePayment(ctx context.Context, firmID, paymentID string, req dto.ReconcilePaymentRequest, userID string) (*domain.Payment, error)

	// ApplyToInvoices allocates a payment's unapplied funds across invoices.
	ApplyToInvoices(ctx context.Context, firmID, paymentID string, req dto.ApplyToInvoicesRequest, userID string) (*domain.Payment, error)

	// UnapplyFromInvoice reverses a payment's allocations against one invoice.
	UnapplyFromInvoice(ctx context.Context, firmID, paymentID, invoiceID, userID string) (*domain.Payment, error)

	// RecordInvoicePayment is the one-shot create+allocate+complete flow.
	RecordInvoicePayment(ctx context.Context, firmID, invoiceID string, req dto.RecordInvoicePaymentRequest, userID string) (*domain.Payment, error)

	// GetPaymentByID retrieves a payment with its applications.
	GetPaymentByID(ctx context.Context, firmID, paymentID, userID string) (*domain.Payment, error)

	// ListPayments retrieves a paginated, filtered payment listing.
	ListPayments(ctx context.Context, firmID string, params dto.ListPaymentsParams, userID string) (*dto.ListPaymentsResponse, error)

	// UpdatePaymentNotes updates the auxiliary notes; allowed in terminal states.
	UpdatePaymentNotes(ctx context.Context, firmID, paymentID string, req dto.UpdatePaymentNotesRequest, userID string) (*domain.Payment, error)

	// DeletePayment removes a payment still in PENDING or FAILED.
	DeletePayment(ctx context.Context, firmID, paymentID, userID string) error
}

// LedgerSvcFacade exposes the append-only general ledger.
type LedgerSvcFacade interface {
	// GetEntriesForPayment retrieves the GL entries posted for a payment.
	GetEntriesForPayment(ctx context.Context, firmID, paymentID, userID string) ([]domain.GLEntry, error)

	// ListEntries retrieves a paginated GL entry listing for a firm.
	ListEntries(ctx context.Context, firmID string, limit int, nextToken *string, userID string) (*dto.ListGLEntriesResponse, error)
}
