package mapping

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/models"
)

// ToModelPayment converts a domain Payment to a model Payment, flattening the
// method-specific sub-records into their nullable column groups.
func ToModelPayment(d domain.Payment) models.Payment {
	m := models.Payment{
		PaymentID:         d.PaymentID,
		PaymentNumber:     d.PaymentNumber,
		IdempotencyKey:    d.IdempotencyKey,
		FirmID:            d.FirmID,
		ClientID:          d.ClientID,
		InvoiceID:         d.InvoiceID,
		MatterID:          d.MatterID,
		Amount:            d.Amount,
		CurrencyCode:      d.CurrencyCode,
		ExchangeRate:      d.ExchangeRate,
		PaymentType:       string(d.PaymentType),
		PaymentMethod:     string(d.PaymentMethod),
		Status:            models.PaymentStatus(d.Status),
		FailureReason:     d.FailureReason,
		FailedAt:          d.FailedAt,
		RetryCount:        d.RetryCount,
		TotalApplied:      d.TotalApplied,
		OriginalPaymentID: d.OriginalPaymentID,
		RefundReason:      d.RefundReason,
		Reconciled:        d.Reconciled,
		ReconciledBy:      d.ReconciledBy,
		ReconciledAt:      d.ReconciledAt,
		StatementRef:      d.StatementRef,
		Notes:             d.Notes,
		ProcessedBy:       d.ProcessedBy,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
	if d.CheckDetail != nil {
		m.CheckNumber = &d.CheckDetail.Number
		m.CheckDate = d.CheckDetail.Date
		if d.CheckDetail.BankName != "" {
			m.CheckBankName = &d.CheckDetail.BankName
		}
		cleared := d.CheckDetail.Cleared
		m.CheckCleared = &cleared
	}
	if d.GatewayDetail != nil {
		m.GatewayName = &d.GatewayDetail.Provider
		if d.GatewayDetail.TransactionID != "" {
			m.GatewayTxnID = &d.GatewayDetail.TransactionID
		}
		if d.GatewayDetail.RawResponse != "" {
			m.GatewayRawResp = &d.GatewayDetail.RawResponse
		}
	}
	return m
}

// ToDomainPayment converts a model Payment to a domain Payment, rebuilding the
// method-specific sub-records from their column groups.
func ToDomainPayment(m models.Payment) domain.Payment {
	d := domain.Payment{
		PaymentID:         m.PaymentID,
		PaymentNumber:     m.PaymentNumber,
		IdempotencyKey:    m.IdempotencyKey,
		FirmID:            m.FirmID,
		ClientID:          m.ClientID,
		InvoiceID:         m.InvoiceID,
		MatterID:          m.MatterID,
		Amount:            m.Amount,
		CurrencyCode:      m.CurrencyCode,
		ExchangeRate:      m.ExchangeRate,
		PaymentType:       domain.PaymentType(m.PaymentType),
		PaymentMethod:     domain.PaymentMethod(m.PaymentMethod),
		Status:            domain.PaymentStatus(m.Status),
		FailureReason:     m.FailureReason,
		FailedAt:          m.FailedAt,
		RetryCount:        m.RetryCount,
		TotalApplied:      m.TotalApplied,
		OriginalPaymentID: m.OriginalPaymentID,
		RefundReason:      m.RefundReason,
		Reconciled:        m.Reconciled,
		ReconciledBy:      m.ReconciledBy,
		ReconciledAt:      m.ReconciledAt,
		StatementRef:      m.StatementRef,
		Notes:             m.Notes,
		ProcessedBy:       m.ProcessedBy,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
	if m.CheckNumber != nil {
		detail := domain.CheckDetail{Number: *m.CheckNumber, Date: m.CheckDate}
		if m.CheckBankName != nil {
			detail.BankName = *m.CheckBankName
		}
		if m.CheckCleared != nil {
			detail.Cleared = *m.CheckCleared
		}
		d.CheckDetail = &detail
	}
	if m.GatewayName != nil {
		detail := domain.GatewayDetail{Provider: *m.GatewayName}
		if m.GatewayTxnID != nil {
			detail.TransactionID = *m.GatewayTxnID
		}
		if m.GatewayRawResp != nil {
			detail.RawResponse = *m.GatewayRawResp
		}
		d.GatewayDetail = &detail
	}
	return d
}

// ToModelApplication converts a domain InvoiceApplication to its model form.
func ToModelApplication(d domain.InvoiceApplication) models.PaymentApplication {
	return models.PaymentApplication{
		ApplicationID: d.ApplicationID,
		PaymentID:     d.PaymentID,
		InvoiceID:     d.InvoiceID,
		Amount:        d.Amount,
		AppliedAt:     d.AppliedAt,
	}
}

// ToDomainApplication converts a model PaymentApplication to its domain form.
func ToDomainApplication(m models.PaymentApplication) domain.InvoiceApplication {
	return domain.InvoiceApplication{
		ApplicationID: m.ApplicationID,
		PaymentID:     m.PaymentID,
		InvoiceID:     m.InvoiceID,
		Amount:        m.Amount,
		AppliedAt:     m.AppliedAt,
	}
}

// ToDomainApplicationSlice converts a slice of model applications.
func ToDomainApplicationSlice(ms []models.PaymentApplication) []domain.InvoiceApplication {
	ds := make([]domain.InvoiceApplication, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainApplication(m)
	}
	return ds
}
