package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the persisted lifecycle state of a payment row.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentReconciled PaymentStatus = "RECONCILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Payment mirrors a row of the payments table.
type Payment struct {
	PaymentID      string  `json:"paymentID"`
	PaymentNumber  string  `json:"paymentNumber"`
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`

	FirmID    string  `json:"firmID"`
	ClientID  string  `json:"clientID"`
	InvoiceID *string `json:"invoiceID,omitempty"`
	MatterID  *string `json:"matterID,omitempty"`

	Amount       decimal.Decimal  `json:"amount"`
	CurrencyCode string           `json:"currencyCode"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate,omitempty"`

	PaymentType   string `json:"paymentType"`
	PaymentMethod string `json:"paymentMethod"`

	// Method-specific details are flattened into nullable columns; at most one
	// group is populated, enforced by the service layer.
	CheckNumber    *string    `json:"checkNumber,omitempty"`
	CheckDate      *time.Time `json:"checkDate,omitempty"`
	CheckBankName  *string    `json:"checkBankName,omitempty"`
	CheckCleared   *bool      `json:"checkCleared,omitempty"`
	GatewayName    *string    `json:"gatewayName,omitempty"`
	GatewayTxnID   *string    `json:"gatewayTxnID,omitempty"`
	GatewayRawResp *string    `json:"gatewayRawResp,omitempty"`

	Status        PaymentStatus `json:"status"`
	FailureReason *string       `json:"failureReason,omitempty"`
	FailedAt      *time.Time    `json:"failedAt,omitempty"`
	RetryCount    int           `json:"retryCount"`

	TotalApplied decimal.Decimal `json:"totalApplied"`

	OriginalPaymentID *string `json:"originalPaymentID,omitempty"`
	RefundReason      *string `json:"refundReason,omitempty"`

	Reconciled   bool       `json:"reconciled"`
	ReconciledBy *string    `json:"reconciledBy,omitempty"`
	ReconciledAt *time.Time `json:"reconciledAt,omitempty"`
	StatementRef *string    `json:"statementRef,omitempty"`

	Notes       string  `json:"notes"`
	ProcessedBy *string `json:"processedBy,omitempty"`
	AuditFields
}

// PaymentApplication mirrors a row of the payment_applications table.
type PaymentApplication struct {
	ApplicationID string          `json:"applicationID"`
	PaymentID     string          `json:"paymentID"`
	InvoiceID     string          `json:"invoiceID"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAt     time.Time       `json:"appliedAt"`
}
