package mapping

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/models"
)

// ToModelGLEntry converts a domain GLEntry to a model GLEntry
func ToModelGLEntry(d domain.GLEntry) models.GLEntry {
	return models.GLEntry{
		EntryID:      d.EntryID,
		FirmID:       d.FirmID,
		PaymentID:    d.PaymentID,
		ClientID:     d.ClientID,
		EntryNumber:  d.EntryNumber,
		Direction:    string(d.Direction),
		Amount:       d.Amount,
		CurrencyCode: d.CurrencyCode,
		Memo:         d.Memo,
		PostedAt:     d.PostedAt,
		CreatedBy:    d.CreatedBy,
	}
}

// ToDomainGLEntry converts a model GLEntry to a domain GLEntry
func ToDomainGLEntry(m models.GLEntry) domain.GLEntry {
	return domain.GLEntry{
		EntryID:      m.EntryID,
		FirmID:       m.FirmID,
		PaymentID:    m.PaymentID,
		ClientID:     m.ClientID,
		EntryNumber:  m.EntryNumber,
		Direction:    domain.GLDirection(m.Direction),
		Amount:       m.Amount,
		CurrencyCode: m.CurrencyCode,
		Memo:         m.Memo,
		PostedAt:     m.PostedAt,
		CreatedBy:    m.CreatedBy,
	}
}

// ToDomainGLEntrySlice converts a slice of model GLEntries
func ToDomainGLEntrySlice(ms []models.GLEntry) []domain.GLEntry {
	ds := make([]domain.GLEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainGLEntry(m)
	}
	return ds
}
