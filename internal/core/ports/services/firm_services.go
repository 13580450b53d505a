package services

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
)

// FirmAuthorizerSvc gates every tenant-scoped service call.
type FirmAuthorizerSvc interface {
	// AuthorizeUserAction verifies the user holds at least the required role in
	// the firm. Non-membership is reported as apperrors.ErrForbidden.
	AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error
}

// FirmSvcFacade manages firms and their memberships.
type FirmSvcFacade interface {
	FirmAuthorizerSvc

	// CreateFirm creates a firm and makes the creator its initial admin.
	CreateFirm(ctx context.Context, name, defaultCurrencyCode, creatorUserID string) (*domain.Firm, error)

	// AddUserToFirm adds a user to a firm with a role; requires ADMIN.
	AddUserToFirm(ctx context.Context, addingUserID, targetUserID, firmID string, role domain.FirmRole) error

	// ListUserFirms lists the firms the user belongs to.
	ListUserFirms(ctx context.Context, userID string) ([]domain.Firm, error)
}
