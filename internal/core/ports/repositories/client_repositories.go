package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ClientReader defines read operations for client data.
type ClientReader interface {
	// FindClientByID retrieves a client scoped to a firm.
	FindClientByID(ctx context.Context, firmID, clientID string) (*domain.Client, error)
}

// ClientWriter defines write operations for client data.
type ClientWriter interface {
	// SaveClient inserts a new client.
	SaveClient(ctx context.Context, client domain.Client) error

	// RecomputeOutstandingBalanceInTx replaces the client's cached outstanding
	// balance wholesale from current invoice and payment state, inside the
	// caller's transaction. Returns the recomputed balance.
	RecomputeOutstandingBalanceInTx(ctx context.Context, tx pgx.Tx, firmID, clientID, userID string, now time.Time) (decimal.Decimal, error)
}

// ClientRepositoryFacade combines all client repository interfaces.
type ClientRepositoryFacade interface {
	ClientReader
	ClientWriter
}
