package services

import (
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/platform/config"
)

// NewServiceContainer wires all services with their repository dependencies.
// The firm service doubles as the authorizer every tenant-scoped service
// consults, so it is constructed first.
func NewServiceContainer(cfg *config.Config, repos *portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	firmSvc := NewFirmService(repos.FirmRepo)

	userSvc := NewUserService(repos.UserRepo)

	return &portssvc.ServiceContainer{
		Payment: NewPaymentService(repos.PaymentRepo, repos.InvoiceRepo, repos.ClientRepo, firmSvc),
		Ledger:  NewLedgerService(repos.LedgerRepo, firmSvc),
		Invoice: NewInvoiceService(repos.InvoiceRepo, repos.ClientRepo, firmSvc),
		Client:  NewClientService(repos.ClientRepo, firmSvc),
		Firm:    firmSvc,
		User:    userSvc,
		Auth:    NewAuthService(userSvc, cfg.JWTSecret, cfg.JWTExpiryDuration, cfg.JWTIssuer),
	}
}
