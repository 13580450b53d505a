package services

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// ClientSvcFacade manages payers within a firm.
type ClientSvcFacade interface {
	// CreateClient creates a client in the firm.
	CreateClient(ctx context.Context, firmID string, req dto.CreateClientRequest, userID string) (*domain.Client, error)

	// GetClientByID retrieves a client, including the derived outstanding balance.
	GetClientByID(ctx context.Context, firmID, clientID, userID string) (*domain.Client, error)
}
