package services

import (
	"context"
	"log/slog"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// ledgerService exposes read access to the append-only general ledger.
// Entries are only ever written by the payment repository's transactions.
type ledgerService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, firmAuthorizer portssvc.FirmAuthorizerSvc) portssvc.LedgerSvcFacade {
	return &ledgerService{
		BaseService: BaseService{FirmAuthorizer: firmAuthorizer},
		ledgerRepo:  ledgerRepo,
	}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// GetEntriesForPayment retrieves the GL entries posted for a payment.
func (s *ledgerService) GetEntriesForPayment(ctx context.Context, firmID, paymentID, userID string) ([]domain.GLEntry, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.FindEntriesByPaymentID(ctx, firmID, paymentID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find ledger entries for payment",
			slog.String("payment_id", paymentID),
			slog.String("firm_id", firmID))
		return nil, err
	}
	return entries, nil
}

// ListEntries retrieves a paginated GL entry listing for a firm.
func (s *ledgerService) ListEntries(ctx context.Context, firmID string, limit int, nextToken *string, userID string) (*dto.ListGLEntriesResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	entries, next, err := s.ledgerRepo.ListEntriesByFirm(ctx, firmID, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list ledger entries", slog.String("firm_id", firmID))
		return nil, err
	}

	return &dto.ListGLEntriesResponse{
		Entries:   dto.ToGLEntryResponses(entries),
		NextToken: next,
	}, nil
}
