package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

var ErrTotalNotPositive = errors.New("invoice total must be positive")

// invoiceService registers invoices as allocation targets for the ledger.
type invoiceService struct {
	BaseService
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	clientRepo  portsrepo.ClientRepositoryFacade
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryFacade, clientRepo portsrepo.ClientRepositoryFacade, firmAuthorizer portssvc.FirmAuthorizerSvc) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		BaseService: BaseService{FirmAuthorizer: firmAuthorizer},
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
	}
}

// Ensure invoiceService implements the portssvc.InvoiceSvcFacade interface
var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// CreateInvoice registers an invoice as an allocation target. It enters the
// ledger directly as OUTSTANDING with nothing paid.
func (s *invoiceService) CreateInvoice(ctx context.Context, firmID string, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrTotalNotPositive)
	}

	if _, err := s.clientRepo.FindClientByID(ctx, firmID, req.ClientID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: client %s not found", apperrors.ErrValidation, req.ClientID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		InvoiceID:     uuid.NewString(),
		FirmID:        firmID,
		ClientID:      req.ClientID,
		MatterID:      req.MatterID,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		AmountPaid:    decimal.Zero,
		CurrencyCode:  req.CurrencyCode,
		Status:        domain.InvoiceOutstanding,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, invoice); err != nil {
		s.LogError(ctx, err, "Failed to save invoice",
			slog.String("firm_id", firmID),
			slog.String("invoice_number", req.InvoiceNumber))
		return nil, err
	}

	s.LogInfo(ctx, "Invoice created",
		slog.String("invoice_id", invoice.InvoiceID),
		slog.String("invoice_number", invoice.InvoiceNumber),
		slog.String("firm_id", firmID))
	return &invoice, nil
}

// GetInvoiceByID retrieves an invoice scoped to a firm.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, firmID, invoiceID, userID string) (*domain.Invoice, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindInvoiceByID(ctx, firmID, invoiceID)
}

// ListClientInvoices retrieves a paginated list of a client's invoices.
func (s *invoiceService) ListClientInvoices(ctx context.Context, firmID, clientID string, limit int, nextToken *string, userID string) (*dto.ListInvoicesResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	invoices, next, err := s.invoiceRepo.ListInvoicesByClient(ctx, firmID, clientID, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list invoices",
			slog.String("firm_id", firmID),
			slog.String("client_id", clientID))
		return nil, err
	}

	return &dto.ListInvoicesResponse{
		Invoices:  dto.ToInvoiceResponses(invoices),
		NextToken: next,
	}, nil
}
