package mapping

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/models"
)

// ToModelFirm converts a domain Firm to a model Firm
func ToModelFirm(d domain.Firm) models.Firm {
	return models.Firm{
		FirmID:              d.FirmID,
		Name:                d.Name,
		DefaultCurrencyCode: d.DefaultCurrencyCode,
		IsActive:            d.IsActive,
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainFirm converts a model Firm to a domain Firm
func ToDomainFirm(m models.Firm) domain.Firm {
	return domain.Firm{
		FirmID:              m.FirmID,
		Name:                m.Name,
		DefaultCurrencyCode: m.DefaultCurrencyCode,
		IsActive:            m.IsActive,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainMembership converts a model FirmMembership to its domain form
func ToDomainMembership(m models.FirmMembership) domain.FirmMembership {
	return domain.FirmMembership{
		UserID:   m.UserID,
		FirmID:   m.FirmID,
		Role:     domain.FirmRole(m.Role),
		JoinedAt: m.JoinedAt,
	}
}
