package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	"github.com/lexledger/lexledger_backend/internal/models"
	"github.com/lexledger/lexledger_backend/internal/utils/mapping"
)

type PgxFirmRepository struct {
	BaseRepository
}

// newPgxFirmRepository creates a new repository for firm data.
func newPgxFirmRepository(pool *pgxpool.Pool) portsrepo.FirmRepository {
	return &PgxFirmRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxFirmRepository implements portsrepo.FirmRepository
var _ portsrepo.FirmRepository = (*PgxFirmRepository)(nil)

// SaveFirm inserts a new firm. The payment and ledger sequences start at zero.
func (r *PgxFirmRepository) SaveFirm(ctx context.Context, firm domain.Firm) error {
	m := mapping.ToModelFirm(firm)
	query := `
		INSERT INTO firms (firm_id, name, default_currency_code, is_active, payment_seq, gl_seq, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.FirmID,
		m.Name,
		m.DefaultCurrencyCode,
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
		return apperrors.NewAppError(500, "failed to insert firm "+m.FirmID, err)
	}
	return nil
}

// FindFirmByID retrieves a firm by its unique identifier.
func (r *PgxFirmRepository) FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error) {
	query := `
		SELECT firm_id, name, default_currency_code, is_active, created_at, created_by, last_updated_at, last_updated_by
		FROM firms
		WHERE firm_id = $1;
	`
	var m models.Firm
	err := r.Pool.QueryRow(ctx, query, firmID).Scan(
		&m.FirmID,
		&m.Name,
		&m.DefaultCurrencyCode,
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
		return nil, apperrors.NewAppError(500, "failed to find firm by ID "+firmID, err)
	}
	d := mapping.ToDomainFirm(m)
	return &d, nil
}

// AddUserToFirm creates or updates a user's membership in a firm.
func (r *PgxFirmRepository) AddUserToFirm(ctx context.Context, membership domain.FirmMembership) error {
	query := `
		INSERT INTO firm_users (user_id, firm_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, firm_id) DO UPDATE SET role = EXCLUDED.role;
	`
	_, err := r.Pool.Exec(ctx, query,
		membership.UserID,
		membership.FirmID,
		string(membership.Role),
		membership.JoinedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to add user "+membership.UserID+" to firm "+membership.FirmID, err)
	}
	return nil
}

// FindFirmMembership retrieves a user's membership in a firm.
func (r *PgxFirmRepository) FindFirmMembership(ctx context.Context, userID, firmID string) (*domain.FirmMembership, error) {
	query := `
		SELECT user_id, firm_id, role, joined_at
		FROM firm_users
		WHERE user_id = $1 AND firm_id = $2;
	`
	var m models.FirmMembership
	err := r.Pool.QueryRow(ctx, query, userID, firmID).Scan(
		&m.UserID,
		&m.FirmID,
		&m.Role,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find membership for user "+userID+" in firm "+firmID, err)
	}
	d := mapping.ToDomainMembership(m)
	return &d, nil
}

// ListFirmsByUser retrieves all firms the user is a member of.
func (r *PgxFirmRepository) ListFirmsByUser(ctx context.Context, userID string) ([]domain.Firm, error) {
	query := `
		SELECT f.firm_id, f.name, f.default_currency_code, f.is_active, f.created_at, f.created_by, f.last_updated_at, f.last_updated_by
		FROM firms f
		JOIN firm_users fu ON f.firm_id = fu.firm_id
		WHERE fu.user_id = $1 AND fu.role != 'REMOVED'
		ORDER BY f.name;
	`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query firms for user "+userID, err)
	}
	defer rows.Close()

	firms := []domain.Firm{}
	for rows.Next() {
		var m models.Firm
		if err := rows.Scan(
			&m.FirmID,
			&m.Name,
			&m.DefaultCurrencyCode,
			&m.IsActive,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan firm row for user "+userID, err)
		}
		firms = append(firms, mapping.ToDomainFirm(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating firm rows for user "+userID, err)
	}
	return firms, nil
}
