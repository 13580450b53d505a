package repositories

import (
	"context"
	"time"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ListPaymentsFilter narrows a payment listing. Nil fields match everything.
type ListPaymentsFilter struct {
	ClientID *string
	Status   *domain.PaymentStatus
}

// PaymentReader defines read operations for payment data.
// Every operation takes the firm ID explicitly; a payment belonging to a
// different firm is reported as not found.
type PaymentReader interface {
	// FindPaymentByID retrieves a payment with its invoice applications.
	FindPaymentByID(ctx context.Context, firmID, paymentID string) (*domain.Payment, error)

	// FindPaymentByIdempotencyKey retrieves the payment previously created with
	// the given caller-supplied key, if any.
	FindPaymentByIdempotencyKey(ctx context.Context, firmID, key string) (*domain.Payment, error)

	// ListPaymentsByFirm retrieves a paginated list of payments using token-based pagination.
	ListPaymentsByFirm(ctx context.Context, firmID string, filter ListPaymentsFilter, limit int, nextToken *string) ([]domain.Payment, *string, error)
}

// PaymentWriter defines write operations for payment data. Multi-entity writes
// (completion, refund, allocation) run inside a single database transaction.
type PaymentWriter interface {
	// SavePayment inserts a payment in its initial state, assigning the per-firm
	// sequential payment number. A violation of the idempotency-key uniqueness
	// constraint is reported as apperrors.ErrDuplicate.
	SavePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)

	// MarkPaymentProcessing conditionally moves a PENDING or FAILED payment to
	// PROCESSING. Zero matched rows is reported as apperrors.ErrConflict; the
	// caller classifies the actual cause with a follow-up read.
	MarkPaymentProcessing(ctx context.Context, firmID, paymentID, userID string, now time.Time) error

	// RevertPaymentToPending is the compensating step after a failed completion
	// transaction: PROCESSING moves back to PENDING.
	RevertPaymentToPending(ctx context.Context, firmID, paymentID, userID string, now time.Time) error

	// CompletePayment commits the completion transaction: payment PROCESSING ->
	// COMPLETED, invoice allocations applied, GL entry appended, client balance
	// recomputed. All writes commit together or none do.
	CompletePayment(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, entry domain.GLEntry, userID string, now time.Time) (*domain.Payment, error)

	// RecordInvoicePayment inserts an already-allocated payment and completes it
	// in one transaction (the one-shot invoice payment flow).
	RecordInvoicePayment(ctx context.Context, payment domain.Payment, allocation domain.InvoiceApplication, entry domain.GLEntry, now time.Time) (*domain.Payment, error)

	// FailPayment conditionally moves a PENDING or PROCESSING payment to FAILED,
	// recording the reason and bumping the retry counter.
	FailPayment(ctx context.Context, firmID, paymentID, reason, userID string, now time.Time) error

	// RetryPayment conditionally moves a FAILED payment back to PENDING.
	RetryPayment(ctx context.Context, firmID, paymentID, userID string, now time.Time) error

	// RefundPayment commits the refund transaction: refund record inserted as
	// COMPLETED, original CAS'd to REFUNDED, invoice allocations reversed,
	// reversing GL entry appended, client balance recomputed.
	RefundPayment(ctx context.Context, original domain.Payment, refund domain.Payment, reversals map[string]decimal.Decimal, entry domain.GLEntry, now time.Time) (*domain.Payment, error)

	// ReconcilePayment conditionally moves a COMPLETED payment to RECONCILED,
	// stamping the reconciler, time, and external statement reference.
	ReconcilePayment(ctx context.Context, firmID, paymentID, reconciledBy, statementRef string, now time.Time) error

	// ApplyPaymentToInvoices appends allocations to a COMPLETED payment inside
	// one transaction, updating invoice balances and the client balance.
	ApplyPaymentToInvoices(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, userID string, now time.Time) (*domain.Payment, error)

	// UnapplyPaymentFromInvoice removes a payment's allocations against one
	// invoice, restoring the invoice balance, inside one transaction.
	UnapplyPaymentFromInvoice(ctx context.Context, payment domain.Payment, invoiceID, userID string, now time.Time) (*domain.Payment, error)

	// UpdatePaymentNotes updates the notes field only; permitted in any state.
	UpdatePaymentNotes(ctx context.Context, firmID, paymentID, notes, userID string, now time.Time) error

	// DeletePayment removes a payment still in a non-terminal state
	// (PENDING or FAILED); any other state is reported as apperrors.ErrConflict.
	DeletePayment(ctx context.Context, firmID, paymentID string) error
}

// PaymentRepositoryFacade combines all payment repository interfaces.
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}

// PaymentRepositoryWithTx extends PaymentRepositoryFacade with transaction capabilities.
type PaymentRepositoryWithTx interface {
	PaymentRepositoryFacade
	TransactionManager
}
