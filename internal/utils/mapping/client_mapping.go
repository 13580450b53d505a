package mapping

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/models"
)

// ToModelClient converts a domain Client to a model Client
func ToModelClient(d domain.Client) models.Client {
	return models.Client{
		ClientID:           d.ClientID,
		FirmID:             d.FirmID,
		Name:               d.Name,
		Email:              d.Email,
		OutstandingBalance: d.OutstandingBalance,
		IsActive:           d.IsActive,
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainClient converts a model Client to a domain Client
func ToDomainClient(m models.Client) domain.Client {
	return domain.Client{
		ClientID:           m.ClientID,
		FirmID:             m.FirmID,
		Name:               m.Name,
		Email:              m.Email,
		OutstandingBalance: m.OutstandingBalance,
		IsActive:           m.IsActive,
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}
}
