package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	"github.com/lexledger/lexledger_backend/internal/models"
	"github.com/lexledger/lexledger_backend/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

type PgxClientRepository struct {
	BaseRepository
}

// newPgxClientRepository creates a new repository for client data.
func newPgxClientRepository(pool *pgxpool.Pool) portsrepo.ClientRepositoryFacade {
	return &PgxClientRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxClientRepository implements portsrepo.ClientRepositoryFacade
var _ portsrepo.ClientRepositoryFacade = (*PgxClientRepository)(nil)

// SaveClient inserts a new client.
func (r *PgxClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	m := mapping.ToModelClient(client)
	query := `
		INSERT INTO clients (client_id, firm_id, name, email, outstanding_balance, is_active, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.ClientID,
		m.FirmID,
		m.Name,
		m.Email,
		m.OutstandingBalance,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert client "+m.ClientID, err)
	}
	return nil
}

// FindClientByID retrieves a client scoped to a firm.
func (r *PgxClientRepository) FindClientByID(ctx context.Context, firmID, clientID string) (*domain.Client, error) {
	query := `
		SELECT client_id, firm_id, name, email, outstanding_balance, is_active, created_at, created_by, last_updated_at, last_updated_by
		FROM clients
		WHERE client_id = $1 AND firm_id = $2;
	`
	var m models.Client
	err := r.Pool.QueryRow(ctx, query, clientID, firmID).Scan(
		&m.ClientID,
		&m.FirmID,
		&m.Name,
		&m.Email,
		&m.OutstandingBalance,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find client by ID "+clientID, err)
	}
	d := mapping.ToDomainClient(m)
	return &d, nil
}

// RecomputeOutstandingBalanceInTx replaces the client's cached outstanding
// balance wholesale from current invoice and payment state. The balance is
// the sum of open invoice balances minus unapplied credits from completed
// payments (retainers included), so it is always reproducible from the ledger.
func (r *PgxClientRepository) RecomputeOutstandingBalanceInTx(ctx context.Context, tx pgx.Tx, firmID, clientID, userID string, now time.Time) (decimal.Decimal, error) {
	query := `
		UPDATE clients
		SET outstanding_balance =
		    COALESCE((
		        SELECT SUM(i.total_amount - i.amount_paid)
		        FROM invoices i
		        WHERE i.firm_id = $1 AND i.client_id = $2
		          AND i.status NOT IN ('DRAFT', 'CANCELLED')
		    ), 0)
		    - COALESCE((
		        SELECT SUM(p.amount - p.total_applied)
		        FROM payments p
		        WHERE p.firm_id = $1 AND p.client_id = $2
		          AND p.status IN ('COMPLETED', 'RECONCILED')
		          AND p.payment_type != 'REFUND'
		    ), 0),
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE firm_id = $1 AND client_id = $2
		RETURNING outstanding_balance;
	`
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, firmID, clientID, now, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperrors.NewNotFoundError("client " + clientID + " not found for balance recompute")
		}
		return decimal.Zero, apperrors.NewAppError(500, "failed to recompute balance for client "+clientID, err)
	}
	return balance, nil
}
