package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
)

// NewRepositoryProvider wires up all pgsql-backed repositories. The payment
// repository receives the invoice, client, and ledger repositories so its
// multi-entity transactions can reuse their statement logic.
func NewRepositoryProvider(pool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	invoiceRepo := newPgxInvoiceRepository(pool)
	clientRepo := newPgxClientRepository(pool)
	ledgerRepo := newPgxLedgerRepository(pool)

	return &portsrepo.RepositoryProvider{
		PaymentRepo: newPgxPaymentRepository(pool, invoiceRepo, clientRepo, ledgerRepo),
		InvoiceRepo: invoiceRepo,
		ClientRepo:  clientRepo,
		LedgerRepo:  ledgerRepo,
		FirmRepo:    newPgxFirmRepository(pool),
		UserRepo:    newPgxUserRepository(pool),
	}
}
