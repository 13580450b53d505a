package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
)

// firmService provides firm and membership operations.
type firmService struct {
	BaseService
	firmRepo portsrepo.FirmRepository
}

// NewFirmService creates a new FirmService.
func NewFirmService(firmRepo portsrepo.FirmRepository) portssvc.FirmSvcFacade {
	return &firmService{
		firmRepo: firmRepo,
	}
}

// Ensure firmService implements the portssvc.FirmSvcFacade interface
var _ portssvc.FirmSvcFacade = (*firmService)(nil)

// CreateFirm creates a firm and adds the creator as its initial admin.
func (s *firmService) CreateFirm(ctx context.Context, name, defaultCurrencyCode, creatorUserID string) (*domain.Firm, error) {
	now := time.Now()
	firmID := uuid.NewString()

	firm := domain.Firm{
		FirmID:   firmID,
		Name:     name,
		IsActive: true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if defaultCurrencyCode != "" {
		firm.DefaultCurrencyCode = &defaultCurrencyCode
	}

	if err := s.firmRepo.SaveFirm(ctx, firm); err != nil {
		s.LogError(ctx, err, "Failed to save firm", slog.String("firm_id", firmID))
		return nil, err
	}

	// Add creator as an admin to the new firm
	if err := s.AddUserToFirm(ctx, creatorUserID, creatorUserID, firmID, domain.RoleAdmin); err != nil {
		s.LogError(ctx, err, "Failed to add creator as admin to new firm",
			slog.String("firm_id", firmID),
			slog.String("user_id", creatorUserID))
		return nil, err
	}

	s.LogInfo(ctx, "Firm created successfully",
		slog.String("firm_id", firmID),
		slog.String("creator_id", creatorUserID))
	return &firm, nil
}

// AddUserToFirm adds a user to a firm with a specific role.
func (s *firmService) AddUserToFirm(ctx context.Context, addingUserID, targetUserID, firmID string, role domain.FirmRole) error {
	// Self-assignment is permitted only for the creator bootstrap path above;
	// everyone else needs admin rights in the firm.
	if addingUserID != targetUserID {
		if err := s.AuthorizeUserAction(ctx, addingUserID, firmID, domain.RoleAdmin); err != nil {
			s.LogWarn(ctx, "User not authorized to add members to firm",
				slog.String("adding_user_id", addingUserID),
				slog.String("firm_id", firmID))
			return err
		}
	}

	membership := domain.FirmMembership{
		UserID:   targetUserID,
		FirmID:   firmID,
		Role:     role,
		JoinedAt: time.Now(),
	}

	if err := s.firmRepo.AddUserToFirm(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to add user to firm",
			slog.String("target_user_id", targetUserID),
			slog.String("firm_id", firmID))
		return err
	}

	s.LogInfo(ctx, "User added to firm successfully",
		slog.String("target_user_id", targetUserID),
		slog.String("firm_id", firmID),
		slog.String("role", string(role)))
	return nil
}

// ListUserFirms lists the firms the user is a member of.
func (s *firmService) ListUserFirms(ctx context.Context, userID string) ([]domain.Firm, error) {
	firms, err := s.firmRepo.ListFirmsByUser(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list firms for user", slog.String("user_id", userID))
		return nil, err
	}
	return firms, nil
}

// AuthorizeUserAction checks if a user has required permissions for a firm.
// Non-membership is reported as forbidden rather than not found so callers
// cannot distinguish a hidden firm from an inaccessible one.
func (s *firmService) AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error {
	membership, err := s.firmRepo.FindFirmMembership(ctx, userID, firmID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of firm",
				slog.String("user_id", userID),
				slog.String("firm_id", firmID))
			return apperrors.ErrForbidden
		}
		s.LogError(ctx, err, "Failed to find firm membership",
			slog.String("user_id", userID),
			slog.String("firm_id", firmID))
		return err
	}

	if !hasRequiredRole(membership.Role, requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("firm_id", firmID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}

	return nil
}

// hasRequiredRole checks if the user's role meets or exceeds the required role
func hasRequiredRole(userRole, requiredRole domain.FirmRole) bool {
	if userRole == domain.RoleRemoved {
		return false
	}
	switch requiredRole {
	case domain.RoleReadOnly:
		return userRole == domain.RoleReadOnly || userRole == domain.RoleMember || userRole == domain.RoleAdmin
	case domain.RoleMember:
		return userRole == domain.RoleMember || userRole == domain.RoleAdmin
	case domain.RoleAdmin:
		return userRole == domain.RoleAdmin
	default:
		return false
	}
}
