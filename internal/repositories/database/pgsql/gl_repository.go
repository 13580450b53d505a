package pgsql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	"github.com/lexledger/lexledger_backend/internal/models"
	"github.com/lexledger/lexledger_backend/internal/utils/mapping"
	"github.com/lexledger/lexledger_backend/internal/utils/pagination"
)

const glEntryColumns = `entry_id, firm_id, payment_id, client_id, entry_number, direction, amount, currency_code, memo, posted_at, created_by`

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for the general ledger.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryFacade
var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func scanGLEntry(row pgx.Row) (*models.GLEntry, error) {
	var m models.GLEntry
	err := row.Scan(
		&m.EntryID,
		&m.FirmID,
		&m.PaymentID,
		&m.ClientID,
		&m.EntryNumber,
		&m.Direction,
		&m.Amount,
		&m.CurrencyCode,
		&m.Memo,
		&m.PostedAt,
		&m.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveEntryInTx appends a ledger entry inside the caller's transaction,
// assigning the per-firm sequential entry number. The firms row is already
// locked by the sequence bump, which serializes numbering per firm.
func (r *PgxLedgerRepository) SaveEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.GLEntry) (*domain.GLEntry, error) {
	var seq int64
	seqQuery := `UPDATE firms SET gl_seq = gl_seq + 1 WHERE firm_id = $1 RETURNING gl_seq;`
	if err := tx.QueryRow(ctx, seqQuery, entry.FirmID).Scan(&seq); err != nil {
		return nil, apperrors.NewAppError(500, "failed to assign ledger entry number for firm "+entry.FirmID, err)
	}
	entry.EntryNumber = fmt.Sprintf("GL-%06d", seq)

	m := mapping.ToModelGLEntry(entry)
	query := `
		INSERT INTO gl_entries (` + glEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := tx.Exec(ctx, query,
		m.EntryID,
		m.FirmID,
		m.PaymentID,
		m.ClientID,
		m.EntryNumber,
		m.Direction,
		m.Amount,
		m.CurrencyCode,
		m.Memo,
		m.PostedAt,
		m.CreatedBy,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to insert ledger entry "+m.EntryID, err)
	}
	return &entry, nil
}

// FindEntriesByPaymentID retrieves the ledger entries cross-referenced by a payment.
func (r *PgxLedgerRepository) FindEntriesByPaymentID(ctx context.Context, firmID, paymentID string) ([]domain.GLEntry, error) {
	query := `
		SELECT ` + glEntryColumns + `
		FROM gl_entries
		WHERE firm_id = $1 AND payment_id = $2
		ORDER BY posted_at, entry_number;
	`
	rows, err := r.Pool.Query(ctx, query, firmID, paymentID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query ledger entries for payment "+paymentID, err)
	}
	defer rows.Close()

	entries := []models.GLEntry{}
	for rows.Next() {
		m, scanErr := scanGLEntry(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger entry row for payment "+paymentID, scanErr)
		}
		entries = append(entries, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating ledger entry rows for payment "+paymentID, err)
	}

	return mapping.ToDomainGLEntrySlice(entries), nil
}

// ListEntriesByFirm retrieves a paginated list of ledger entries using token-based pagination.
func (r *PgxLedgerRepository) ListEntriesByFirm(ctx context.Context, firmID string, limit int, nextToken *string) ([]domain.GLEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + glEntryColumns + ` FROM gl_entries WHERE firm_id = $1`
	orderByClause := `ORDER BY posted_at DESC, entry_id DESC`

	args := []interface{}{firmID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastPostedAt, lastEntryID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (posted_at, entry_id) < ($2, $3)`
		args = append(args, lastPostedAt, lastEntryID)
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query ledger entries for firm "+firmID, err)
	}
	defer rows.Close()

	modelEntries := make([]models.GLEntry, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanGLEntry(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan ledger entry row for firm "+firmID, scanErr)
		}
		modelEntries = append(modelEntries, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating ledger entry rows for firm "+firmID, err)
	}

	var nextTokenVal *string
	results := modelEntries
	if len(modelEntries) > limit {
		last := modelEntries[limit-1]
		token := pagination.EncodeToken(last.PostedAt, last.EntryID)
		nextTokenVal = &token
		results = modelEntries[:limit]
	}

	return mapping.ToDomainGLEntrySlice(results), nextTokenVal, nil
}
