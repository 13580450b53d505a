package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
)

// LedgerWriter defines write operations for the append-only general ledger.
type LedgerWriter interface {
	// SaveEntryInTx appends a ledger entry inside the caller's transaction,
	// assigning the per-firm sequential entry number. Entries are never updated
	// or deleted afterwards.
	SaveEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.GLEntry) (*domain.GLEntry, error)
}

// LedgerReader defines read operations for the general ledger.
type LedgerReader interface {
	// FindEntriesByPaymentID retrieves the ledger entries cross-referenced by a payment.
	FindEntriesByPaymentID(ctx context.Context, firmID, paymentID string) ([]domain.GLEntry, error)

	// ListEntriesByFirm retrieves a paginated list of ledger entries.
	ListEntriesByFirm(ctx context.Context, firmID string, limit int, nextToken *string) ([]domain.GLEntry, *string, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
