package mapping

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/models"
)

// ToModelInvoice converts a domain Invoice to a model Invoice
func ToModelInvoice(d domain.Invoice) models.Invoice {
	return models.Invoice{
		InvoiceID:         d.InvoiceID,
		FirmID:            d.FirmID,
		ClientID:          d.ClientID,
		MatterID:          d.MatterID,
		InvoiceNumber:     d.InvoiceNumber,
		TotalAmount:       d.TotalAmount,
		AmountPaid:        d.AmountPaid,
		CurrencyCode:      d.CurrencyCode,
		Status:            models.InvoiceStatus(d.Status),
		PaymentProcessing: d.PaymentProcessing,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainInvoice converts a model Invoice to a domain Invoice
func ToDomainInvoice(m models.Invoice) domain.Invoice {
	return domain.Invoice{
		InvoiceID:         m.InvoiceID,
		FirmID:            m.FirmID,
		ClientID:          m.ClientID,
		MatterID:          m.MatterID,
		InvoiceNumber:     m.InvoiceNumber,
		TotalAmount:       m.TotalAmount,
		AmountPaid:        m.AmountPaid,
		CurrencyCode:      m.CurrencyCode,
		Status:            domain.InvoiceStatus(m.Status),
		PaymentProcessing: m.PaymentProcessing,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}
