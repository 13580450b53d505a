package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
)

func TestPaymentStatusCanTransitionTo(t *testing.T) {
	testCases := []struct {
		name    string
		from    domain.PaymentStatus
		to      domain.PaymentStatus
		allowed bool
	}{
		{"pending to processing", domain.PaymentPending, domain.PaymentProcessing, true},
		{"pending to failed", domain.PaymentPending, domain.PaymentFailed, true},
		{"pending to completed skips processing", domain.PaymentPending, domain.PaymentCompleted, false},
		{"processing to completed", domain.PaymentProcessing, domain.PaymentCompleted, true},
		{"processing to failed", domain.PaymentProcessing, domain.PaymentFailed, true},
		{"failed to pending via retry", domain.PaymentFailed, domain.PaymentPending, true},
		{"failed to processing", domain.PaymentFailed, domain.PaymentProcessing, true},
		{"failed to completed", domain.PaymentFailed, domain.PaymentCompleted, false},
		{"completed to reconciled", domain.PaymentCompleted, domain.PaymentReconciled, true},
		{"completed to refunded", domain.PaymentCompleted, domain.PaymentRefunded, true},
		{"completed back to pending", domain.PaymentCompleted, domain.PaymentPending, false},
		{"reconciled to refunded", domain.PaymentReconciled, domain.PaymentRefunded, true},
		{"reconciled to completed", domain.PaymentReconciled, domain.PaymentCompleted, false},
		{"refunded is terminal", domain.PaymentRefunded, domain.PaymentPending, false},
		{"refunded to refunded", domain.PaymentRefunded, domain.PaymentRefunded, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.False(t, domain.PaymentPending.IsTerminal())
	assert.False(t, domain.PaymentProcessing.IsTerminal())
	assert.False(t, domain.PaymentFailed.IsTerminal())
	assert.True(t, domain.PaymentCompleted.IsTerminal())
	assert.True(t, domain.PaymentReconciled.IsTerminal())
	assert.True(t, domain.PaymentRefunded.IsTerminal())
}

func TestPaymentUnappliedAmount(t *testing.T) {
	p := domain.Payment{
		Amount:       decimal.RequireFromString("500.00"),
		TotalApplied: decimal.RequireFromString("180.50"),
	}
	assert.True(t, p.UnappliedAmount().Equal(decimal.RequireFromString("319.50")))
}

func TestPaymentAppliedToInvoice(t *testing.T) {
	p := domain.Payment{
		Applications: []domain.InvoiceApplication{
			{InvoiceID: "inv-1", Amount: decimal.RequireFromString("100.00")},
			{InvoiceID: "inv-2", Amount: decimal.RequireFromString("40.00")},
			{InvoiceID: "inv-1", Amount: decimal.RequireFromString("25.00")},
		},
	}
	assert.True(t, p.AppliedToInvoice("inv-1").Equal(decimal.RequireFromString("125.00")))
	assert.True(t, p.AppliedToInvoice("inv-2").Equal(decimal.RequireFromString("40.00")))
	assert.True(t, p.AppliedToInvoice("inv-3").IsZero())
}

func TestInvoiceDeriveStatus(t *testing.T) {
	inv := domain.Invoice{
		TotalAmount: decimal.RequireFromString("200.00"),
		AmountPaid:  decimal.Zero,
		Status:      domain.InvoiceOutstanding,
	}
	assert.Equal(t, domain.InvoiceOutstanding, inv.DeriveStatus())

	inv.AmountPaid = decimal.RequireFromString("50.00")
	assert.Equal(t, domain.InvoicePartial, inv.DeriveStatus())

	inv.AmountPaid = decimal.RequireFromString("200.00")
	assert.Equal(t, domain.InvoicePaid, inv.DeriveStatus())

	// Cancelled and draft invoices keep their status regardless of balance.
	inv.Status = domain.InvoiceCancelled
	assert.Equal(t, domain.InvoiceCancelled, inv.DeriveStatus())
}

func TestInvoiceAcceptsPayment(t *testing.T) {
	inv := domain.Invoice{Status: domain.InvoiceOutstanding}
	assert.True(t, inv.AcceptsPayment())
	inv.Status = domain.InvoicePartial
	assert.True(t, inv.AcceptsPayment())
	inv.Status = domain.InvoicePaid
	assert.False(t, inv.AcceptsPayment())
	inv.Status = domain.InvoiceDraft
	assert.False(t, inv.AcceptsPayment())
	inv.Status = domain.InvoiceCancelled
	assert.False(t, inv.AcceptsPayment())
}
