package repositories

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
)

// FirmRepository defines persistence operations for firms and memberships.
type FirmRepository interface {
	// SaveFirm inserts a new firm.
	SaveFirm(ctx context.Context, firm domain.Firm) error

	// FindFirmByID retrieves a firm by its unique identifier.
	FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error)

	// AddUserToFirm creates or updates a user's membership in a firm.
	AddUserToFirm(ctx context.Context, membership domain.FirmMembership) error

	// FindFirmMembership retrieves a user's membership in a firm.
	FindFirmMembership(ctx context.Context, userID, firmID string) (*domain.FirmMembership, error)

	// ListFirmsByUser retrieves all firms the user is a member of.
	ListFirmsByUser(ctx context.Context, userID string) ([]domain.Firm, error)
}
