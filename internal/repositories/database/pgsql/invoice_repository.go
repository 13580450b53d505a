package pgsql

import (
	"context"
	"errors"
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

const invoiceColumns = `invoice_id, firm_id, client_id, matter_id, invoice_number, total_amount, amount_paid, currency_code, status, payment_processing, created_at, created_by, last_updated_at, last_updated_by`

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryFacade {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryFacade
var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var m models.Invoice
	err := row.Scan(
		&m.InvoiceID,
		&m.FirmID,
		&m.ClientID,
		&m.MatterID,
		&m.InvoiceNumber,
		&m.TotalAmount,
		&m.AmountPaid,
		&m.CurrencyCode,
		&m.Status,
		&m.PaymentProcessing,
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

// SaveInvoice inserts a new invoice.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	m := mapping.ToModelInvoice(invoice)
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.InvoiceID,
		m.FirmID,
		m.ClientID,
		m.MatterID,
		m.InvoiceNumber,
		m.TotalAmount,
		m.AmountPaid,
		m.CurrencyCode,
		m.Status,
		m.PaymentProcessing,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert invoice "+m.InvoiceID, err)
	}
	return nil
}

// FindInvoiceByID retrieves an invoice scoped to a firm.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, firmID, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1 AND firm_id = $2;`
	m, err := scanInvoice(r.Pool.QueryRow(ctx, query, invoiceID, firmID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find invoice by ID "+invoiceID, err)
	}
	d := mapping.ToDomainInvoice(*m)
	return &d, nil
}

// FindInvoicesByIDsForUpdate locks the invoice rows for the duration of the
// supplied transaction and returns their current balances. Invoice IDs are
// sorted before locking so concurrent transactions acquire locks in the same
// order.
func (r *PgxInvoiceRepository) FindInvoicesByIDsForUpdate(ctx context.Context, tx pgx.Tx, firmID string, invoiceIDs []string) (map[string]domain.Invoice, error) {
	if len(invoiceIDs) == 0 {
		return map[string]domain.Invoice{}, nil
	}

	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE firm_id = $1 AND invoice_id = ANY($2)
		ORDER BY invoice_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, firmID, invoiceIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock invoices for update", err)
	}
	defer rows.Close()

	invoices := make(map[string]domain.Invoice, len(invoiceIDs))
	for rows.Next() {
		m, err := scanInvoice(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan locked invoice row", err)
		}
		invoices[m.InvoiceID] = mapping.ToDomainInvoice(*m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating locked invoice rows", err)
	}

	for _, id := range invoiceIDs {
		if _, ok := invoices[id]; !ok {
			return nil, apperrors.NewNotFoundError("invoice " + id + " not found")
		}
	}
	return invoices, nil
}

// ApplyAmountsInTx adjusts amount_paid by the given deltas and re-derives each
// invoice's status. Rows must already be locked via FindInvoicesByIDsForUpdate.
func (r *PgxInvoiceRepository) ApplyAmountsInTx(ctx context.Context, tx pgx.Tx, deltas map[string]decimal.Decimal, userID string, now time.Time) error {
	if len(deltas) == 0 {
		return nil
	}

	query := `
		UPDATE invoices
		SET amount_paid = amount_paid + $2,
		    status = CASE
		        WHEN status IN ('DRAFT', 'CANCELLED') THEN status
		        WHEN amount_paid + $2 >= total_amount THEN 'PAID'
		        WHEN amount_paid + $2 > 0 THEN 'PARTIAL'
		        ELSE 'OUTSTANDING'
		    END,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE invoice_id = $1;
	`
	batch := &pgx.Batch{}
	for invoiceID, delta := range deltas {
		batch.Queue(query, invoiceID, delta, now, userID)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to apply invoice amount deltas", err)
	}
	return nil
}

// SetPaymentProcessing flips the invoice's payment-processing guard flag.
// Enabling is conditional so only one in-flight payment can hold the guard.
func (r *PgxInvoiceRepository) SetPaymentProcessing(ctx context.Context, firmID, invoiceID string, processing bool) error {
	if processing {
		query := `
			UPDATE invoices
			SET payment_processing = TRUE
			WHERE invoice_id = $1 AND firm_id = $2 AND payment_processing = FALSE;
		`
		cmdTag, err := r.Pool.Exec(ctx, query, invoiceID, firmID)
		if err != nil {
			return apperrors.NewAppError(500, "failed to set payment processing guard on invoice "+invoiceID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			// Either the invoice is missing or another payment holds the guard.
			if _, findErr := r.FindInvoiceByID(ctx, firmID, invoiceID); findErr != nil {
				return findErr
			}
			return apperrors.NewAppError(409, "invoice "+invoiceID+" already has a payment in progress", apperrors.ErrConflict)
		}
		return nil
	}

	query := `UPDATE invoices SET payment_processing = FALSE WHERE invoice_id = $1 AND firm_id = $2;`
	if _, err := r.Pool.Exec(ctx, query, invoiceID, firmID); err != nil {
		return apperrors.NewAppError(500, "failed to clear payment processing guard on invoice "+invoiceID, err)
	}
	return nil
}

// ListInvoicesByClient retrieves a paginated list of a client's invoices using token-based pagination.
func (r *PgxInvoiceRepository) ListInvoicesByClient(ctx context.Context, firmID, clientID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + invoiceColumns + ` FROM invoices WHERE firm_id = $1 AND client_id = $2`
	orderByClause := `ORDER BY created_at DESC, invoice_id DESC`

	args := []interface{}{firmID, clientID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastInvoiceID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, invoice_id) < ($3, $4)`
		args = append(args, lastCreatedAt, lastInvoiceID)
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query invoices for client "+clientID, err)
	}
	defer rows.Close()

	modelInvoices := make([]models.Invoice, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanInvoice(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan invoice row for client "+clientID, scanErr)
		}
		modelInvoices = append(modelInvoices, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating invoice rows for client "+clientID, err)
	}

	var nextTokenVal *string
	results := modelInvoices
	if len(modelInvoices) > limit {
		last := modelInvoices[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.InvoiceID)
		nextTokenVal = &token
		results = modelInvoices[:limit]
	}

	domainInvoices := make([]domain.Invoice, len(results))
	for i, m := range results {
		domainInvoices[i] = mapping.ToDomainInvoice(m)
	}
	return domainInvoices, nextTokenVal, nil
}
