package dto

import (
	"time"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CheckDetailRequest carries the method-specific fields for check payments.
type CheckDetailRequest struct {
	Number   string     `json:"number" binding:"required"`
	Date     *time.Time `json:"date"`
	BankName string     `json:"bankName"`
}

// GatewayDetailRequest carries the method-specific fields for gateway/online payments.
type GatewayDetailRequest struct {
	Provider      string `json:"provider" binding:"required"`
	TransactionID string `json:"transactionID"`
	RawResponse   string `json:"rawResponse"`
}

// CreatePaymentRequest defines the data needed to create a new payment.
type CreatePaymentRequest struct {
	ClientID       string                `json:"clientID" binding:"required"`
	InvoiceID      *string               `json:"invoiceID"` // Optional implicit allocation target
	MatterID       *string               `json:"matterID"`
	Amount         decimal.Decimal       `json:"amount" binding:"required"`
	CurrencyCode   string                `json:"currencyCode" binding:"required,len=3"`
	ExchangeRate   *decimal.Decimal      `json:"exchangeRate"`
	PaymentType    domain.PaymentType    `json:"paymentType" binding:"required,oneof=CUSTOMER_PAYMENT VENDOR_PAYMENT RETAINER"`
	PaymentMethod  domain.PaymentMethod  `json:"paymentMethod" binding:"required,oneof=CASH BANK_TRANSFER CARD CHECK GATEWAY ONLINE"`
	CheckDetail    *CheckDetailRequest   `json:"checkDetail"`
	GatewayDetail  *GatewayDetailRequest `json:"gatewayDetail"`
	IdempotencyKey *string               `json:"idempotencyKey"`
	Notes          string                `json:"notes"`
}

// AllocationRequest targets one invoice with a portion of a payment's funds.
type AllocationRequest struct {
	InvoiceID string          `json:"invoiceID" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// CompletePaymentRequest defines the optional explicit allocations supplied on completion.
type CompletePaymentRequest struct {
	Allocations []AllocationRequest `json:"allocations"`
}

// FailPaymentRequest records why a payment failed.
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RefundPaymentRequest defines a refund against a completed payment.
// Amount defaults to the full original amount when omitted.
type RefundPaymentRequest struct {
	Amount *decimal.Decimal     `json:"amount"`
	Reason string               `json:"reason" binding:"required"`
	Method *domain.PaymentMethod `json:"method"`
}

// ReconcilePaymentRequest matches a completed payment to a bank statement line.
type ReconcilePaymentRequest struct {
	StatementRef string `json:"statementRef" binding:"required"`
}

// ApplyToInvoicesRequest allocates a payment's unapplied funds across invoices.
type ApplyToInvoicesRequest struct {
	Allocations []AllocationRequest `json:"allocations" binding:"required,min=1,dive"`
}

// RecordInvoicePaymentRequest is the one-shot create+allocate+complete flow
// against a single invoice.
type RecordInvoicePaymentRequest struct {
	Amount         decimal.Decimal       `json:"amount" binding:"required"`
	PaymentMethod  domain.PaymentMethod  `json:"paymentMethod" binding:"required,oneof=CASH BANK_TRANSFER CARD CHECK GATEWAY ONLINE"`
	CheckDetail    *CheckDetailRequest   `json:"checkDetail"`
	GatewayDetail  *GatewayDetailRequest `json:"gatewayDetail"`
	IdempotencyKey *string               `json:"idempotencyKey"`
	Notes          string                `json:"notes"`
}

// UpdatePaymentNotesRequest updates the auxiliary notes; allowed in any state.
type UpdatePaymentNotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// ListPaymentsParams holds parameters for listing payments.
type ListPaymentsParams struct {
	ClientID  *string               `form:"clientID"`
	Status    *domain.PaymentStatus `form:"status"`
	Limit     int                   `form:"limit"`
	NextToken *string               `form:"nextToken"`
}

// ApplicationResponse defines the data returned for one invoice application.
type ApplicationResponse struct {
	InvoiceID string          `json:"invoiceID"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"appliedAt"`
}

// PaymentResponse defines the data returned for a payment.
type PaymentResponse struct {
	PaymentID         string                `json:"paymentID"`
	PaymentNumber     string                `json:"paymentNumber"`
	ClientID          string                `json:"clientID"`
	InvoiceID         *string               `json:"invoiceID,omitempty"`
	MatterID          *string               `json:"matterID,omitempty"`
	Amount            decimal.Decimal       `json:"amount"`
	CurrencyCode      string                `json:"currencyCode"`
	PaymentType       domain.PaymentType    `json:"paymentType"`
	PaymentMethod     domain.PaymentMethod  `json:"paymentMethod"`
	Status            domain.PaymentStatus  `json:"status"`
	FailureReason     *string               `json:"failureReason,omitempty"`
	RetryCount        int                   `json:"retryCount"`
	TotalApplied      decimal.Decimal       `json:"totalApplied"`
	UnappliedAmount   decimal.Decimal       `json:"unappliedAmount"`
	Applications      []ApplicationResponse `json:"applications,omitempty"`
	OriginalPaymentID *string               `json:"originalPaymentID,omitempty"`
	RefundReason      *string               `json:"refundReason,omitempty"`
	Reconciled        bool                  `json:"reconciled"`
	StatementRef      *string               `json:"statementRef,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	CreatedBy         string                `json:"createdBy"`
}

// CreatePaymentResponse wraps a payment with the idempotency replay marker.
type CreatePaymentResponse struct {
	PaymentResponse
	AlreadyExisted bool `json:"alreadyExisted"`
}

// ListPaymentsResponse is the paginated payment listing.
type ListPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	apps := make([]ApplicationResponse, len(p.Applications))
	for i, app := range p.Applications {
		apps[i] = ApplicationResponse{
			InvoiceID: app.InvoiceID,
			Amount:    app.Amount,
			AppliedAt: app.AppliedAt,
		}
	}
	return PaymentResponse{
		PaymentID:         p.PaymentID,
		PaymentNumber:     p.PaymentNumber,
		ClientID:          p.ClientID,
		InvoiceID:         p.InvoiceID,
		MatterID:          p.MatterID,
		Amount:            p.Amount,
		CurrencyCode:      p.CurrencyCode,
		PaymentType:       p.PaymentType,
		PaymentMethod:     p.PaymentMethod,
		Status:            p.Status,
		FailureReason:     p.FailureReason,
		RetryCount:        p.RetryCount,
		TotalApplied:      p.TotalApplied,
		UnappliedAmount:   p.UnappliedAmount(),
		Applications:      apps,
		OriginalPaymentID: p.OriginalPaymentID,
		RefundReason:      p.RefundReason,
		Reconciled:        p.Reconciled,
		StatementRef:      p.StatementRef,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
		CreatedBy:         p.CreatedBy,
	}
}

// ToPaymentResponses converts a slice of domain payments.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}
