package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	"github.com/lexledger/lexledger_backend/internal/models"
	"github.com/lexledger/lexledger_backend/internal/utils/mapping"
	"github.com/lexledger/lexledger_backend/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const paymentColumns = `payment_id, payment_number, idempotency_key, firm_id, client_id, invoice_id, matter_id,
	amount, currency_code, exchange_rate, payment_type, payment_method,
	check_number, check_date, check_bank_name, check_cleared, gateway_name, gateway_txn_id, gateway_raw_resp,
	status, failure_reason, failed_at, retry_count, total_applied,
	original_payment_id, refund_reason, reconciled, reconciled_by, reconciled_at, statement_ref,
	notes, processed_by, created_at, created_by, last_updated_at, last_updated_by`

type PgxPaymentRepository struct {
	BaseRepository
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	clientRepo  portsrepo.ClientRepositoryFacade
	ledgerRepo  portsrepo.LedgerRepositoryFacade
}

// newPgxPaymentRepository creates a new repository for payment data. The
// sibling repositories are injected so completion, refund, and allocation can
// update invoices, the client balance, and the ledger inside one transaction.
func newPgxPaymentRepository(pool *pgxpool.Pool, invoiceRepo portsrepo.InvoiceRepositoryFacade, clientRepo portsrepo.ClientRepositoryFacade, ledgerRepo portsrepo.LedgerRepositoryFacade) portsrepo.PaymentRepositoryWithTx {
	return &PgxPaymentRepository{
		BaseRepository: BaseRepository{Pool: pool},
		invoiceRepo:    invoiceRepo,
		clientRepo:     clientRepo,
		ledgerRepo:     ledgerRepo,
	}
}

// Ensure PgxPaymentRepository implements portsrepo.PaymentRepositoryWithTx
var _ portsrepo.PaymentRepositoryWithTx = (*PgxPaymentRepository)(nil)

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var m models.Payment
	err := row.Scan(
		&m.PaymentID,
		&m.PaymentNumber,
		&m.IdempotencyKey,
		&m.FirmID,
		&m.ClientID,
		&m.InvoiceID,
		&m.MatterID,
		&m.Amount,
		&m.CurrencyCode,
		&m.ExchangeRate,
		&m.PaymentType,
		&m.PaymentMethod,
		&m.CheckNumber,
		&m.CheckDate,
		&m.CheckBankName,
		&m.CheckCleared,
		&m.GatewayName,
		&m.GatewayTxnID,
		&m.GatewayRawResp,
		&m.Status,
		&m.FailureReason,
		&m.FailedAt,
		&m.RetryCount,
		&m.TotalApplied,
		&m.OriginalPaymentID,
		&m.RefundReason,
		&m.Reconciled,
		&m.ReconciledBy,
		&m.ReconciledAt,
		&m.StatementRef,
		&m.Notes,
		&m.ProcessedBy,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// assignPaymentNumberInTx bumps the firm's payment sequence and formats the
// human-readable payment number. The UPDATE also locks the firms row, which
// serializes numbering per firm.
func assignPaymentNumberInTx(ctx context.Context, tx pgx.Tx, firmID string) (string, error) {
	var seq int64
	query := `UPDATE firms SET payment_seq = payment_seq + 1 WHERE firm_id = $1 RETURNING payment_seq;`
	if err := tx.QueryRow(ctx, query, firmID).Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFoundError("firm " + firmID + " not found")
		}
		return "", apperrors.NewAppError(500, "failed to assign payment number for firm "+firmID, err)
	}
	return fmt.Sprintf("PAY-%06d", seq), nil
}

func insertPaymentInTx(ctx context.Context, tx pgx.Tx, m models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36);
	`
	_, err := tx.Exec(ctx, query,
		m.PaymentID,
		m.PaymentNumber,
		m.IdempotencyKey,
		m.FirmID,
		m.ClientID,
		m.InvoiceID,
		m.MatterID,
		m.Amount,
		m.CurrencyCode,
		m.ExchangeRate,
		m.PaymentType,
		m.PaymentMethod,
		m.CheckNumber,
		m.CheckDate,
		m.CheckBankName,
		m.CheckCleared,
		m.GatewayName,
		m.GatewayTxnID,
		m.GatewayRawResp,
		m.Status,
		m.FailureReason,
		m.FailedAt,
		m.RetryCount,
		m.TotalApplied,
		m.OriginalPaymentID,
		m.RefundReason,
		m.Reconciled,
		m.ReconciledBy,
		m.ReconciledAt,
		m.StatementRef,
		m.Notes,
		m.ProcessedBy,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert payment "+m.PaymentID, err)
	}
	return nil
}

// SavePayment inserts a payment in its initial state, assigning the per-firm
// sequential payment number. A violation of the idempotency-key uniqueness
// constraint surfaces as apperrors.ErrDuplicate; the caller resolves the race
// by re-reading the winning row.
func (r *PgxPaymentRepository) SavePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	number, err := assignPaymentNumberInTx(ctx, tx, payment.FirmID)
	if err != nil {
		return nil, err
	}
	payment.PaymentNumber = number

	if err := insertPaymentInTx(ctx, tx, mapping.ToModelPayment(payment)); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &payment, nil
}

// casStatusUpdate runs a conditional status update and maps zero matched rows
// to apperrors.ErrConflict. The caller classifies the actual cause (missing
// row vs wrong state) with a follow-up read.
func (r *PgxPaymentRepository) casStatusUpdate(ctx context.Context, query, action string, args ...interface{}) error {
	cmdTag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewAppError(500, "failed to "+action, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewAppError(409, "payment not in a state that permits "+action, apperrors.ErrConflict)
	}
	return nil
}

// MarkPaymentProcessing conditionally moves a PENDING or FAILED payment to PROCESSING.
func (r *PgxPaymentRepository) MarkPaymentProcessing(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = 'PROCESSING', last_updated_at = $3, last_updated_by = $4
		WHERE payment_id = $1 AND firm_id = $2 AND status IN ('PENDING', 'FAILED');
	`
	return r.casStatusUpdate(ctx, query, "mark processing", paymentID, firmID, now, userID)
}

// RevertPaymentToPending is the compensating step after a failed completion
// transaction: PROCESSING moves back to PENDING.
func (r *PgxPaymentRepository) RevertPaymentToPending(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = 'PENDING', last_updated_at = $3, last_updated_by = $4
		WHERE payment_id = $1 AND firm_id = $2 AND status = 'PROCESSING';
	`
	return r.casStatusUpdate(ctx, query, "revert to pending", paymentID, firmID, now, userID)
}

// FailPayment conditionally moves a PENDING or PROCESSING payment to FAILED,
// recording the reason and bumping the retry counter.
func (r *PgxPaymentRepository) FailPayment(ctx context.Context, firmID, paymentID, reason, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = 'FAILED', failure_reason = $3, failed_at = $4, retry_count = retry_count + 1,
		    last_updated_at = $4, last_updated_by = $5
		WHERE payment_id = $1 AND firm_id = $2 AND status IN ('PENDING', 'PROCESSING');
	`
	return r.casStatusUpdate(ctx, query, "fail payment", paymentID, firmID, reason, now, userID)
}

// RetryPayment conditionally moves a FAILED payment back to PENDING. The
// failure reason and retry counter are kept as history of prior attempts.
func (r *PgxPaymentRepository) RetryPayment(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = 'PENDING', last_updated_at = $3, last_updated_by = $4
		WHERE payment_id = $1 AND firm_id = $2 AND status = 'FAILED';
	`
	return r.casStatusUpdate(ctx, query, "retry payment", paymentID, firmID, now, userID)
}

// ReconcilePayment conditionally moves a COMPLETED payment to RECONCILED,
// stamping the reconciler, time, and external statement reference.
func (r *PgxPaymentRepository) ReconcilePayment(ctx context.Context, firmID, paymentID, reconciledBy, statementRef string, now time.Time) error {
	query := `
		UPDATE payments
		SET status = 'RECONCILED', reconciled = TRUE, reconciled_by = $3, reconciled_at = $4, statement_ref = $5,
		    last_updated_at = $4, last_updated_by = $3
		WHERE payment_id = $1 AND firm_id = $2 AND status = 'COMPLETED';
	`
	return r.casStatusUpdate(ctx, query, "reconcile payment", paymentID, firmID, reconciledBy, now, statementRef)
}

// UpdatePaymentNotes updates the notes field only; permitted in any state.
func (r *PgxPaymentRepository) UpdatePaymentNotes(ctx context.Context, firmID, paymentID, notes, userID string, now time.Time) error {
	query := `
		UPDATE payments
		SET notes = $3, last_updated_at = $4, last_updated_by = $5
		WHERE payment_id = $1 AND firm_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, paymentID, firmID, notes, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update notes for payment "+paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + paymentID + " not found for update")
	}
	return nil
}

// DeletePayment removes a payment still in a non-terminal state. Application
// rows cannot exist for PENDING or FAILED payments, so a single delete suffices.
func (r *PgxPaymentRepository) DeletePayment(ctx context.Context, firmID, paymentID string) error {
	query := `DELETE FROM payments WHERE payment_id = $1 AND firm_id = $2 AND status IN ('PENDING', 'FAILED');`
	cmdTag, err := r.Pool.Exec(ctx, query, paymentID, firmID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete payment "+paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, findErr := r.FindPaymentByID(ctx, firmID, paymentID); findErr != nil {
			return findErr
		}
		return apperrors.NewAppError(409, "payment "+paymentID+" is not in a deletable state", apperrors.ErrConflict)
	}
	return nil
}

// completePaymentInTx moves a PROCESSING payment to COMPLETED and fans the
// completion out to invoices, the ledger, and the client balance, all on the
// caller's transaction.
func (r *PgxPaymentRepository) completePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.Payment, allocations []domain.InvoiceApplication, entry domain.GLEntry, userID string, now time.Time) (*domain.Payment, error) {
	allocated := decimal.Zero
	for _, alloc := range allocations {
		allocated = allocated.Add(alloc.Amount)
	}

	// 1. CAS the payment to COMPLETED. Zero matched rows means a concurrent
	// transition won; the service classifies the cause from a re-read.
	casQuery := `
		UPDATE payments
		SET status = 'COMPLETED', total_applied = total_applied + $3, processed_by = $4,
		    last_updated_at = $5, last_updated_by = $4
		WHERE payment_id = $1 AND firm_id = $2 AND status = 'PROCESSING';
	`
	cmdTag, err := tx.Exec(ctx, casQuery, payment.PaymentID, payment.FirmID, allocated, userID, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to complete payment "+payment.PaymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, apperrors.NewAppError(409, "payment "+payment.PaymentID+" is not processing", apperrors.ErrConflict)
	}

	// 2. Lock target invoices and verify each allocation still fits under lock.
	if len(allocations) > 0 {
		deltas := make(map[string]decimal.Decimal)
		for _, alloc := range allocations {
			deltas[alloc.InvoiceID] = deltas[alloc.InvoiceID].Add(alloc.Amount)
		}
		invoiceIDs := make([]string, 0, len(deltas))
		for id := range deltas {
			invoiceIDs = append(invoiceIDs, id)
		}

		locked, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, payment.FirmID, invoiceIDs)
		if err != nil {
			return nil, err
		}
		for id, delta := range deltas {
			invoice := locked[id]
			if delta.GreaterThan(invoice.BalanceDue()) {
				return nil, apperrors.NewAppError(422,
					"allocation of "+delta.String()+" exceeds balance due on invoice "+invoice.InvoiceNumber,
					apperrors.ErrAllocationOverflow)
			}
		}

		// 3. Append the application rows.
		batch := &pgx.Batch{}
		appQuery := `
			INSERT INTO payment_applications (application_id, payment_id, invoice_id, amount, applied_at)
			VALUES ($1, $2, $3, $4, $5);
		`
		for _, alloc := range allocations {
			m := mapping.ToModelApplication(alloc)
			batch.Queue(appQuery, m.ApplicationID, m.PaymentID, m.InvoiceID, m.Amount, m.AppliedAt)
		}
		br := tx.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return nil, apperrors.NewAppError(500, "failed to insert applications for payment "+payment.PaymentID, err)
		}

		// 4. Move the invoice balances and re-derive their statuses.
		if err := r.invoiceRepo.ApplyAmountsInTx(ctx, tx, deltas, userID, now); err != nil {
			return nil, err
		}
	}

	// 5. Append the debit entry to the general ledger.
	if _, err := r.ledgerRepo.SaveEntryInTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	// 6. Recompute the client's cached outstanding balance.
	if _, err := r.clientRepo.RecomputeOutstandingBalanceInTx(ctx, tx, payment.FirmID, payment.ClientID, userID, now); err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentCompleted
	payment.TotalApplied = payment.TotalApplied.Add(allocated)
	payment.Applications = append(payment.Applications, allocations...)
	payment.ProcessedBy = &userID
	payment.LastUpdatedAt = now
	payment.LastUpdatedBy = userID
	return &payment, nil
}

// CompletePayment commits the completion transaction: payment PROCESSING ->
// COMPLETED, invoice allocations applied, GL entry appended, client balance
// recomputed. All writes commit together or none do.
func (r *PgxPaymentRepository) CompletePayment(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, entry domain.GLEntry, userID string, now time.Time) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	completed, err := r.completePaymentInTx(ctx, tx, payment, allocations, entry, userID, now)
	if err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return completed, nil
}

// RecordInvoicePayment inserts an already-allocated payment and completes it
// in one transaction (the one-shot invoice payment flow).
func (r *PgxPaymentRepository) RecordInvoicePayment(ctx context.Context, payment domain.Payment, allocation domain.InvoiceApplication, entry domain.GLEntry, now time.Time) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	number, err := assignPaymentNumberInTx(ctx, tx, payment.FirmID)
	if err != nil {
		return nil, err
	}
	payment.PaymentNumber = number

	// Insert as PROCESSING so the completion CAS below applies uniformly.
	payment.Status = domain.PaymentProcessing
	if err := insertPaymentInTx(ctx, tx, mapping.ToModelPayment(payment)); err != nil {
		return nil, err
	}

	completed, err := r.completePaymentInTx(ctx, tx, payment, []domain.InvoiceApplication{allocation}, entry, payment.CreatedBy, now)
	if err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return completed, nil
}

// RefundPayment commits the refund transaction: refund record inserted as
// COMPLETED, original CAS'd to REFUNDED, invoice allocations reversed,
// reversing GL entry appended, client balance recomputed.
func (r *PgxPaymentRepository) RefundPayment(ctx context.Context, original domain.Payment, refund domain.Payment, reversals map[string]decimal.Decimal, entry domain.GLEntry, now time.Time) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	userID := refund.CreatedBy

	// 1. CAS the original to REFUNDED.
	casQuery := `
		UPDATE payments
		SET status = 'REFUNDED', last_updated_at = $3, last_updated_by = $4
		WHERE payment_id = $1 AND firm_id = $2 AND status IN ('COMPLETED', 'RECONCILED');
	`
	cmdTag, err := tx.Exec(ctx, casQuery, original.PaymentID, original.FirmID, now, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to mark payment "+original.PaymentID+" refunded", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, apperrors.NewAppError(409, "payment "+original.PaymentID+" is not refundable", apperrors.ErrConflict)
	}

	// 2. Insert the refund record with its own payment number.
	number, err := assignPaymentNumberInTx(ctx, tx, refund.FirmID)
	if err != nil {
		return nil, err
	}
	refund.PaymentNumber = number
	if err := insertPaymentInTx(ctx, tx, mapping.ToModelPayment(refund)); err != nil {
		return nil, err
	}

	// 3. Reverse the invoice allocations, clamped so amount_paid never goes
	// negative even if the invoice took other payments since.
	if len(reversals) > 0 {
		invoiceIDs := make([]string, 0, len(reversals))
		for id := range reversals {
			invoiceIDs = append(invoiceIDs, id)
		}
		locked, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, original.FirmID, invoiceIDs)
		if err != nil {
			return nil, err
		}

		deltas := make(map[string]decimal.Decimal, len(reversals))
		for id, amount := range reversals {
			if paid := locked[id].AmountPaid; amount.GreaterThan(paid) {
				amount = paid
			}
			deltas[id] = amount.Neg()
		}
		if err := r.invoiceRepo.ApplyAmountsInTx(ctx, tx, deltas, userID, now); err != nil {
			return nil, err
		}
	}

	// 4. Append the reversing credit entry to the general ledger.
	if _, err := r.ledgerRepo.SaveEntryInTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	// 5. Recompute the client's cached outstanding balance.
	if _, err := r.clientRepo.RecomputeOutstandingBalanceInTx(ctx, tx, original.FirmID, original.ClientID, userID, now); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &refund, nil
}

// ApplyPaymentToInvoices appends allocations to a COMPLETED payment inside one
// transaction, updating invoice balances and the client balance.
func (r *PgxPaymentRepository) ApplyPaymentToInvoices(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, userID string, now time.Time) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	// 1. Lock the payment row and re-check state and headroom under lock.
	var status models.PaymentStatus
	var amount, totalApplied decimal.Decimal
	lockQuery := `SELECT status, amount, total_applied FROM payments WHERE payment_id = $1 AND firm_id = $2 FOR UPDATE;`
	err = tx.QueryRow(ctx, lockQuery, payment.PaymentID, payment.FirmID).Scan(&status, &amount, &totalApplied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to lock payment "+payment.PaymentID, err)
	}
	if status != models.PaymentCompleted {
		return nil, apperrors.NewAppError(409, "payment "+payment.PaymentID+" must be completed before applying to invoices", apperrors.ErrConflict)
	}

	allocated := decimal.Zero
	for _, alloc := range allocations {
		allocated = allocated.Add(alloc.Amount)
	}
	if totalApplied.Add(allocated).GreaterThan(amount) {
		return nil, apperrors.NewAppError(422,
			"allocation of "+allocated.String()+" exceeds the payment's unapplied amount of "+amount.Sub(totalApplied).String(),
			apperrors.ErrAllocationOverflow)
	}

	// 2. Lock target invoices and verify each allocation fits.
	deltas := make(map[string]decimal.Decimal)
	for _, alloc := range allocations {
		deltas[alloc.InvoiceID] = deltas[alloc.InvoiceID].Add(alloc.Amount)
	}
	invoiceIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		invoiceIDs = append(invoiceIDs, id)
	}
	locked, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, payment.FirmID, invoiceIDs)
	if err != nil {
		return nil, err
	}
	for id, delta := range deltas {
		invoice := locked[id]
		if delta.GreaterThan(invoice.BalanceDue()) {
			return nil, apperrors.NewAppError(422,
				"allocation of "+delta.String()+" exceeds balance due on invoice "+invoice.InvoiceNumber,
				apperrors.ErrAllocationOverflow)
		}
	}

	// 3. Append the application rows and move the invoice balances.
	batch := &pgx.Batch{}
	appQuery := `
		INSERT INTO payment_applications (application_id, payment_id, invoice_id, amount, applied_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, alloc := range allocations {
		m := mapping.ToModelApplication(alloc)
		batch.Queue(appQuery, m.ApplicationID, m.PaymentID, m.InvoiceID, m.Amount, m.AppliedAt)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to insert applications for payment "+payment.PaymentID, err)
	}
	if err := r.invoiceRepo.ApplyAmountsInTx(ctx, tx, deltas, userID, now); err != nil {
		return nil, err
	}

	// 4. Bump the payment's applied total.
	updateQuery := `
		UPDATE payments
		SET total_applied = total_applied + $3, last_updated_at = $4, last_updated_by = $5
		WHERE payment_id = $1 AND firm_id = $2;
	`
	if _, err := tx.Exec(ctx, updateQuery, payment.PaymentID, payment.FirmID, allocated, now, userID); err != nil {
		return nil, apperrors.NewAppError(500, "failed to update applied total for payment "+payment.PaymentID, err)
	}

	// 5. Recompute the client's cached outstanding balance.
	if _, err := r.clientRepo.RecomputeOutstandingBalanceInTx(ctx, tx, payment.FirmID, payment.ClientID, userID, now); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	payment.TotalApplied = totalApplied.Add(allocated)
	payment.Applications = append(payment.Applications, allocations...)
	payment.LastUpdatedAt = now
	payment.LastUpdatedBy = userID
	return &payment, nil
}

// UnapplyPaymentFromInvoice removes a payment's allocations against one
// invoice, restoring the invoice balance, inside one transaction.
func (r *PgxPaymentRepository) UnapplyPaymentFromInvoice(ctx context.Context, payment domain.Payment, invoiceID, userID string, now time.Time) (*domain.Payment, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	// 1. Lock the payment row; allocations on reconciled or refunded payments
	// are frozen.
	var status models.PaymentStatus
	lockQuery := `SELECT status FROM payments WHERE payment_id = $1 AND firm_id = $2 FOR UPDATE;`
	err = tx.QueryRow(ctx, lockQuery, payment.PaymentID, payment.FirmID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to lock payment "+payment.PaymentID, err)
	}
	if status == models.PaymentReconciled || status == models.PaymentRefunded {
		return nil, apperrors.NewAppError(409, "allocations on payment "+payment.PaymentID+" can no longer be changed", apperrors.ErrConflict)
	}

	// 2. Lock the invoice, then remove the application rows.
	if _, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, payment.FirmID, []string{invoiceID}); err != nil {
		return nil, err
	}

	var removed decimal.Decimal
	deleteQuery := `
		WITH deleted AS (
			DELETE FROM payment_applications
			WHERE payment_id = $1 AND invoice_id = $2
			RETURNING amount
		)
		SELECT COALESCE(SUM(amount), 0) FROM deleted;
	`
	if err := tx.QueryRow(ctx, deleteQuery, payment.PaymentID, invoiceID).Scan(&removed); err != nil {
		return nil, apperrors.NewAppError(500, "failed to remove applications for payment "+payment.PaymentID, err)
	}
	if removed.IsZero() {
		return nil, apperrors.NewNotFoundError("payment " + payment.PaymentID + " has no allocation against invoice " + invoiceID)
	}

	// 3. Restore the invoice balance and the payment's applied total.
	deltas := map[string]decimal.Decimal{invoiceID: removed.Neg()}
	if err := r.invoiceRepo.ApplyAmountsInTx(ctx, tx, deltas, userID, now); err != nil {
		return nil, err
	}
	updateQuery := `
		UPDATE payments
		SET total_applied = total_applied - $3, last_updated_at = $4, last_updated_by = $5
		WHERE payment_id = $1 AND firm_id = $2;
	`
	if _, err := tx.Exec(ctx, updateQuery, payment.PaymentID, payment.FirmID, removed, now, userID); err != nil {
		return nil, apperrors.NewAppError(500, "failed to update applied total for payment "+payment.PaymentID, err)
	}

	// 4. Recompute the client's cached outstanding balance.
	if _, err := r.clientRepo.RecomputeOutstandingBalanceInTx(ctx, tx, payment.FirmID, payment.ClientID, userID, now); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	payment.TotalApplied = payment.TotalApplied.Sub(removed)
	remaining := payment.Applications[:0]
	for _, app := range payment.Applications {
		if app.InvoiceID != invoiceID {
			remaining = append(remaining, app)
		}
	}
	payment.Applications = remaining
	payment.LastUpdatedAt = now
	payment.LastUpdatedBy = userID
	return &payment, nil
}

func (r *PgxPaymentRepository) findApplications(ctx context.Context, paymentID string) ([]domain.InvoiceApplication, error) {
	query := `
		SELECT application_id, payment_id, invoice_id, amount, applied_at
		FROM payment_applications
		WHERE payment_id = $1
		ORDER BY applied_at, application_id;
	`
	rows, err := r.Pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query applications for payment "+paymentID, err)
	}
	defer rows.Close()

	apps := []models.PaymentApplication{}
	for rows.Next() {
		var a models.PaymentApplication
		if err := rows.Scan(&a.ApplicationID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.AppliedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan application row for payment "+paymentID, err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating application rows for payment "+paymentID, err)
	}
	return mapping.ToDomainApplicationSlice(apps), nil
}

// FindPaymentByID retrieves a payment with its invoice applications.
func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, firmID, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1 AND firm_id = $2;`
	m, err := scanPayment(r.Pool.QueryRow(ctx, query, paymentID, firmID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find payment by ID "+paymentID, err)
	}

	d := mapping.ToDomainPayment(*m)
	apps, err := r.findApplications(ctx, d.PaymentID)
	if err != nil {
		return nil, err
	}
	d.Applications = apps
	return &d, nil
}

// FindPaymentByIdempotencyKey retrieves the payment previously created with
// the given caller-supplied key, if any.
func (r *PgxPaymentRepository) FindPaymentByIdempotencyKey(ctx context.Context, firmID, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE firm_id = $1 AND idempotency_key = $2;`
	m, err := scanPayment(r.Pool.QueryRow(ctx, query, firmID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find payment by idempotency key", err)
	}

	d := mapping.ToDomainPayment(*m)
	apps, err := r.findApplications(ctx, d.PaymentID)
	if err != nil {
		return nil, err
	}
	d.Applications = apps
	return &d, nil
}

// ListPaymentsByFirm retrieves a paginated list of payments using token-based pagination.
func (r *PgxPaymentRepository) ListPaymentsByFirm(ctx context.Context, firmID string, filter portsrepo.ListPaymentsFilter, limit int, nextToken *string) ([]domain.Payment, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + paymentColumns + ` FROM payments WHERE firm_id = $1`
	orderByClause := `ORDER BY created_at DESC, payment_id DESC`

	args := []interface{}{firmID}
	query := baseQuery

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += ` AND client_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastPaymentID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastCreatedAt, lastPaymentID)
		query += ` AND (created_at, payment_id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query payments for firm "+firmID, err)
	}
	defer rows.Close()

	modelPayments := make([]models.Payment, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan payment row for firm "+firmID, scanErr)
		}
		modelPayments = append(modelPayments, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating payment rows for firm "+firmID, err)
	}

	var nextTokenVal *string
	results := modelPayments
	if len(modelPayments) > limit {
		last := modelPayments[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.PaymentID)
		nextTokenVal = &token
		results = modelPayments[:limit]
	}

	domainPayments := make([]domain.Payment, len(results))
	for i, m := range results {
		domainPayments[i] = mapping.ToDomainPayment(m)
	}
	return domainPayments, nextTokenVal, nil
}
