package dto

import (
	"time"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GLEntryResponse defines the data returned for a general-ledger entry.
type GLEntryResponse struct {
	EntryID      string             `json:"entryID"`
	PaymentID    string             `json:"paymentID"`
	ClientID     string             `json:"clientID"`
	EntryNumber  string             `json:"entryNumber"`
	Direction    domain.GLDirection `json:"direction"`
	Amount       decimal.Decimal    `json:"amount"`
	CurrencyCode string             `json:"currencyCode"`
	Memo         string             `json:"memo,omitempty"`
	PostedAt     time.Time          `json:"postedAt"`
}

// ListGLEntriesResponse is the paginated ledger listing.
type ListGLEntriesResponse struct {
	Entries   []GLEntryResponse `json:"entries"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToGLEntryResponse converts a domain.GLEntry to GLEntryResponse DTO.
func ToGLEntryResponse(e *domain.GLEntry) GLEntryResponse {
	return GLEntryResponse{
		EntryID:      e.EntryID,
		PaymentID:    e.PaymentID,
		ClientID:     e.ClientID,
		EntryNumber:  e.EntryNumber,
		Direction:    e.Direction,
		Amount:       e.Amount,
		CurrencyCode: e.CurrencyCode,
		Memo:         e.Memo,
		PostedAt:     e.PostedAt,
	}
}

// ToGLEntryResponses converts a slice of domain GL entries.
func ToGLEntryResponses(entries []domain.GLEntry) []GLEntryResponse {
	responses := make([]GLEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToGLEntryResponse(&entries[i])
	}
	return responses
}
