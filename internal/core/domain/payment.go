package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentReconciled PaymentStatus = "RECONCILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// validPaymentTransitions encodes the forward-only lifecycle. Refunds and
// reconciliation are one-way; a FAILED payment can only re-enter the flow via
// an explicit retry back to PENDING.
var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentFailed},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
	PaymentFailed:     {PaymentPending, PaymentProcessing},
	PaymentCompleted:  {PaymentReconciled, PaymentRefunded},
	PaymentReconciled: {PaymentRefunded},
	PaymentRefunded:   {},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to target.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range validPaymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether amount/method/party fields are frozen in this state.
// Only notes may still change on a terminal payment.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentReconciled || s == PaymentRefunded
}

// PaymentType classifies the direction and nature of the funds.
type PaymentType string

const (
	CustomerPayment PaymentType = "CUSTOMER_PAYMENT"
	VendorPayment   PaymentType = "VENDOR_PAYMENT"
	RefundPayment   PaymentType = "REFUND"
	RetainerPayment PaymentType = "RETAINER"
)

// ValidPaymentType reports whether t is a known payment type.
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case CustomerPayment, VendorPayment, RefundPayment, RetainerPayment:
		return true
	}
	return false
}

// PaymentMethod is how the funds moved.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodCheck        PaymentMethod = "CHECK"
	MethodGateway      PaymentMethod = "GATEWAY"
	MethodOnline       PaymentMethod = "ONLINE"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodCheck, MethodGateway, MethodOnline:
		return true
	}
	return false
}

// CheckDetail is the method-specific sub-record for check payments.
type CheckDetail struct {
	Number   string     `json:"number"`
	Date     *time.Time `json:"date,omitempty"`
	BankName string     `json:"bankName,omitempty"`
	Cleared  bool       `json:"cleared"`
}

// GatewayDetail is the method-specific sub-record for gateway/online payments.
type GatewayDetail struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transactionID,omitempty"`
	RawResponse   string `json:"rawResponse,omitempty"`
}

// InvoiceApplication records one allocation of a payment's funds to an invoice.
type InvoiceApplication struct {
	ApplicationID string          `json:"applicationID"` // Primary key (UUID)
	PaymentID     string          `json:"paymentID"`     // FK -> payments.payment_id
	InvoiceID     string          `json:"invoiceID"`     // FK -> invoices.invoice_id
	Amount        decimal.Decimal `json:"amount"`        // Positive, exact decimal
	AppliedAt     time.Time       `json:"appliedAt"`
}

// Payment is the aggregate root of the ledger: one record per payment attempt,
// never overwritten after reaching a terminal state except for notes.
type Payment struct {
	PaymentID      string  `json:"paymentID"`     // Primary key (UUID)
	PaymentNumber  string  `json:"paymentNumber"` // Per-firm sequential, human readable
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`

	FirmID    string  `json:"firmID"`
	ClientID  string  `json:"clientID"`
	InvoiceID *string `json:"invoiceID,omitempty"` // Implicit allocation target
	MatterID  *string `json:"matterID,omitempty"`

	Amount       decimal.Decimal  `json:"amount"` // Always positive, exact decimal
	CurrencyCode string           `json:"currencyCode"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate,omitempty"`

	PaymentType   PaymentType    `json:"paymentType"`
	PaymentMethod PaymentMethod  `json:"paymentMethod"`
	CheckDetail   *CheckDetail   `json:"checkDetail,omitempty"`   // CHECK only
	GatewayDetail *GatewayDetail `json:"gatewayDetail,omitempty"` // GATEWAY/ONLINE only

	Status        PaymentStatus `json:"status"`
	FailureReason *string       `json:"failureReason,omitempty"`
	FailedAt      *time.Time    `json:"failedAt,omitempty"`
	RetryCount    int           `json:"retryCount"`

	Applications []InvoiceApplication `json:"applications,omitempty"`
	TotalApplied decimal.Decimal      `json:"totalApplied"`

	OriginalPaymentID *string `json:"originalPaymentID,omitempty"` // Set only on refund records
	RefundReason      *string `json:"refundReason,omitempty"`

	Reconciled   bool       `json:"reconciled"`
	ReconciledBy *string    `json:"reconciledBy,omitempty"`
	ReconciledAt *time.Time `json:"reconciledAt,omitempty"`
	StatementRef *string    `json:"statementRef,omitempty"` // External bank statement line

	Notes       string  `json:"notes,omitempty"`
	ProcessedBy *string `json:"processedBy,omitempty"`
	AuditFields
}

// UnappliedAmount is the portion of the payment not yet allocated to invoices.
// Invariant: never negative, because TotalApplied <= Amount always holds.
func (p *Payment) UnappliedAmount() decimal.Decimal {
	return p.Amount.Sub(p.TotalApplied)
}

// AppliedToInvoice sums this payment's applications against a single invoice.
func (p *Payment) AppliedToInvoice(invoiceID string) decimal.Decimal {
	total := decimal.Zero
	for _, app := range p.Applications {
		if app.InvoiceID == invoiceID {
			total = total.Add(app.Amount)
		}
	}
	return total
}
