package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// clientService manages payers within a firm.
type clientService struct {
	BaseService
	clientRepo portsrepo.ClientRepositoryFacade
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo portsrepo.ClientRepositoryFacade, firmAuthorizer portssvc.FirmAuthorizerSvc) portssvc.ClientSvcFacade {
	return &clientService{
		BaseService: BaseService{FirmAuthorizer: firmAuthorizer},
		clientRepo:  clientRepo,
	}
}

// Ensure clientService implements the portssvc.ClientSvcFacade interface
var _ portssvc.ClientSvcFacade = (*clientService)(nil)

// CreateClient creates a client in the firm.
func (s *clientService) CreateClient(ctx context.Context, firmID string, req dto.CreateClientRequest, userID string) (*domain.Client, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	client := domain.Client{
		ClientID:           uuid.NewString(),
		FirmID:             firmID,
		Name:               req.Name,
		Email:              req.Email,
		OutstandingBalance: decimal.Zero,
		IsActive:           true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.clientRepo.SaveClient(ctx, client); err != nil {
		s.LogError(ctx, err, "Failed to save client", slog.String("firm_id", firmID))
		return nil, err
	}

	s.LogInfo(ctx, "Client created",
		slog.String("client_id", client.ClientID),
		slog.String("firm_id", firmID))
	return &client, nil
}

// GetClientByID retrieves a client, including the derived outstanding balance.
func (s *clientService) GetClientByID(ctx context.Context, firmID, clientID, userID string) (*domain.Client, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.clientRepo.FindClientByID(ctx, firmID, clientID)
}
