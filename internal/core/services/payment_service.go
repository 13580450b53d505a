package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/shopspring/decimal"
)

var (
	ErrAmountNotPositive    = errors.New("payment amount must be positive")
	ErrCheckDetailRequired  = errors.New("check payments require check details")
	ErrGatewayDetailMissing = errors.New("gateway and online payments require gateway details")
	ErrDetailMethodMismatch = errors.New("method-specific details do not match the payment method")
	ErrKeyParamMismatch     = errors.New("idempotency key was already used with different parameters")
	ErrRefundTooLarge       = errors.New("refund amount exceeds the original payment amount")
	ErrRefundOfRefund       = errors.New("a refund cannot itself be refunded")
	ErrInvoiceClientMismatch = errors.New("invoice does not belong to the payment's client")
	ErrInvoiceNotPayable    = errors.New("invoice does not accept payments in its current status")
)

// paymentService drives the payment lifecycle. State transitions are enforced
// twice: here against the domain transition table for early feedback, and in
// the repository via conditional updates for correctness under concurrency.
type paymentService struct {
	BaseService
	paymentRepo portsrepo.PaymentRepositoryWithTx
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	clientRepo  portsrepo.ClientRepositoryFacade
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo portsrepo.PaymentRepositoryWithTx, invoiceRepo portsrepo.InvoiceRepositoryFacade, clientRepo portsrepo.ClientRepositoryFacade, firmAuthorizer portssvc.FirmAuthorizerSvc) portssvc.PaymentSvcFacade {
	return &paymentService{
		BaseService: BaseService{FirmAuthorizer: firmAuthorizer},
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
	}
}

// Ensure paymentService implements the portssvc.PaymentSvcFacade interface
var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// validateMethodDetails checks that exactly the right sub-record accompanies
// the payment method.
func validateMethodDetails(method domain.PaymentMethod, check *dto.CheckDetailRequest, gateway *dto.GatewayDetailRequest) error {
	switch method {
	case domain.MethodCheck:
		if check == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrCheckDetailRequired)
		}
		if gateway != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrDetailMethodMismatch)
		}
	case domain.MethodGateway, domain.MethodOnline:
		if gateway == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrGatewayDetailMissing)
		}
		if check != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrDetailMethodMismatch)
		}
	default:
		if check != nil || gateway != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrDetailMethodMismatch)
		}
	}
	return nil
}

func toDomainCheckDetail(req *dto.CheckDetailRequest) *domain.CheckDetail {
	if req == nil {
		return nil
	}
	return &domain.CheckDetail{
		Number:   req.Number,
		Date:     req.Date,
		BankName: req.BankName,
	}
}

func toDomainGatewayDetail(req *dto.GatewayDetailRequest) *domain.GatewayDetail {
	if req == nil {
		return nil
	}
	return &domain.GatewayDetail{
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		RawResponse:   req.RawResponse,
	}
}

// CreatePayment creates a payment in PENDING. A supplied idempotency key makes
// the operation replay-safe: a second request with the same key returns the
// payment the first one created, regardless of its current lifecycle state.
func (s *paymentService) CreatePayment(ctx context.Context, firmID string, req dto.CreatePaymentRequest, userID string) (*domain.Payment, bool, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, false, err
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, false, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}
	if err := validateMethodDetails(req.PaymentMethod, req.CheckDetail, req.GatewayDetail); err != nil {
		return nil, false, err
	}

	// Replay check before doing any validation that could have changed since
	// the first attempt (e.g. the invoice was paid off in the meantime).
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.paymentRepo.FindPaymentByIdempotencyKey(ctx, firmID, *req.IdempotencyKey)
		if err == nil {
			if !existing.Amount.Equal(req.Amount) || existing.ClientID != req.ClientID {
				return nil, false, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrKeyParamMismatch)
			}
			s.LogInfo(ctx, "Idempotent payment creation replayed",
				slog.String("payment_id", existing.PaymentID),
				slog.String("firm_id", firmID))
			return existing, true, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, err
		}
	}

	if _, err := s.clientRepo.FindClientByID(ctx, firmID, req.ClientID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: client %s not found", apperrors.ErrValidation, req.ClientID)
		}
		return nil, false, err
	}

	// An implicit allocation target must belong to the same client.
	if req.InvoiceID != nil {
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, firmID, *req.InvoiceID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: invoice %s not found", apperrors.ErrValidation, *req.InvoiceID)
			}
			return nil, false, err
		}
		if invoice.ClientID != req.ClientID {
			return nil, false, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrInvoiceClientMismatch)
		}
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		PaymentID:      uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		FirmID:         firmID,
		ClientID:       req.ClientID,
		InvoiceID:      req.InvoiceID,
		MatterID:       req.MatterID,
		Amount:         req.Amount,
		CurrencyCode:   req.CurrencyCode,
		ExchangeRate:   req.ExchangeRate,
		PaymentType:    req.PaymentType,
		PaymentMethod:  req.PaymentMethod,
		CheckDetail:    toDomainCheckDetail(req.CheckDetail),
		GatewayDetail:  toDomainGatewayDetail(req.GatewayDetail),
		Status:         domain.PaymentPending,
		TotalApplied:   decimal.Zero,
		Notes:          req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	saved, err := s.paymentRepo.SavePayment(ctx, payment)
	if err != nil {
		// A concurrent request with the same key won the insert race; return
		// its payment as a replay.
		if errors.Is(err, apperrors.ErrDuplicate) && req.IdempotencyKey != nil {
			existing, findErr := s.paymentRepo.FindPaymentByIdempotencyKey(ctx, firmID, *req.IdempotencyKey)
			if findErr == nil {
				return existing, true, nil
			}
		}
		s.LogError(ctx, err, "Failed to save payment", slog.String("firm_id", firmID))
		return nil, false, err
	}

	s.LogInfo(ctx, "Payment created",
		slog.String("payment_id", saved.PaymentID),
		slog.String("payment_number", saved.PaymentNumber),
		slog.String("firm_id", firmID))
	return saved, false, nil
}

// resolveAllocations turns the request's explicit allocations into domain
// applications, or derives the implicit one from the payment's invoice target.
// Auto-allocation happens at most once: a payment that already carries
// applications (a failed completion retried after partial work, or a retried
// payment) never re-derives them.
func (s *paymentService) resolveAllocations(ctx context.Context, payment *domain.Payment, requested []dto.AllocationRequest, now time.Time) ([]domain.InvoiceApplication, error) {
	var allocations []domain.InvoiceApplication

	switch {
	case len(requested) > 0:
		total := decimal.Zero
		for _, alloc := range requested {
			if alloc.Amount.LessThanOrEqual(decimal.Zero) {
				return nil, fmt.Errorf("%w: allocation amount must be positive for invoice %s", apperrors.ErrValidation, alloc.InvoiceID)
			}
			total = total.Add(alloc.Amount)
			allocations = append(allocations, domain.InvoiceApplication{
				ApplicationID: uuid.NewString(),
				PaymentID:     payment.PaymentID,
				InvoiceID:     alloc.InvoiceID,
				Amount:        alloc.Amount,
				AppliedAt:     now,
			})
		}
		if total.GreaterThan(payment.UnappliedAmount()) {
			return nil, fmt.Errorf("%w: allocations total %s but only %s is unapplied",
				apperrors.ErrAllocationOverflow, total.String(), payment.UnappliedAmount().String())
		}
	case payment.InvoiceID != nil && payment.TotalApplied.IsZero():
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, payment.FirmID, *payment.InvoiceID)
		if err != nil {
			return nil, err
		}
		if !invoice.AcceptsPayment() {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrInvoiceNotPayable)
		}
		// Allocate up to the balance due; any excess stays as unapplied credit.
		amount := payment.Amount
		if due := invoice.BalanceDue(); amount.GreaterThan(due) {
			amount = due
		}
		if amount.GreaterThan(decimal.Zero) {
			allocations = append(allocations, domain.InvoiceApplication{
				ApplicationID: uuid.NewString(),
				PaymentID:     payment.PaymentID,
				InvoiceID:     *payment.InvoiceID,
				Amount:        amount,
				AppliedAt:     now,
			})
		}
	}

	return allocations, nil
}

// CompletePayment drives PENDING|FAILED -> PROCESSING -> COMPLETED. The
// PROCESSING hop is a short-lived lock: the conditional update claims the
// payment, and the completion transaction either commits or the claim is
// released by moving the payment back to PENDING.
func (s *paymentService) CompletePayment(ctx context.Context, firmID, paymentID string, req dto.CompletePaymentRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.MarkPaymentProcessing(ctx, firmID, paymentID, userID, now); err != nil {
		return nil, s.classifyTransitionConflict(ctx, firmID, paymentID, err, "complete")
	}
	payment.Status = domain.PaymentProcessing

	allocations, err := s.resolveAllocations(ctx, payment, req.Allocations, now)
	if err != nil {
		s.revertToPending(ctx, firmID, paymentID, userID)
		return nil, err
	}

	entry := domain.GLEntry{
		EntryID:      uuid.NewString(),
		FirmID:       firmID,
		PaymentID:    paymentID,
		ClientID:     payment.ClientID,
		Direction:    glDirectionForCompletion(payment.PaymentType),
		Amount:       payment.Amount,
		CurrencyCode: payment.CurrencyCode,
		Memo:         "Payment " + payment.PaymentNumber + " completed",
		PostedAt:     now,
		CreatedBy:    userID,
	}

	completed, err := s.paymentRepo.CompletePayment(ctx, *payment, allocations, entry, userID, now)
	if err != nil {
		s.revertToPending(ctx, firmID, paymentID, userID)
		s.LogError(ctx, err, "Completion transaction failed",
			slog.String("payment_id", paymentID),
			slog.String("firm_id", firmID))
		return nil, err
	}

	s.LogInfo(ctx, "Payment completed",
		slog.String("payment_id", paymentID),
		slog.String("payment_number", completed.PaymentNumber),
		slog.String("total_applied", completed.TotalApplied.String()))
	return completed, nil
}

// glDirectionForCompletion picks the ledger side for a completing payment.
// Money arriving at the firm debits the cash view; vendor payments leave it.
func glDirectionForCompletion(t domain.PaymentType) domain.GLDirection {
	if t == domain.VendorPayment {
		return domain.GLCredit
	}
	return domain.GLDebit
}

// revertToPending is the compensating step when work after the PROCESSING
// claim fails. A failed revert is logged, not returned: the original error is
// what the caller needs, and an operator can fail the stuck payment manually.
func (s *paymentService) revertToPending(ctx context.Context, firmID, paymentID, userID string) {
	if err := s.paymentRepo.RevertPaymentToPending(ctx, firmID, paymentID, userID, time.Now().UTC()); err != nil {
		s.LogError(ctx, err, "Failed to revert payment to pending after aborted completion",
			slog.String("payment_id", paymentID),
			slog.String("firm_id", firmID))
	}
}

// classifyTransitionConflict turns a bare conditional-update conflict into a
// descriptive error by re-reading the payment's actual state.
func (s *paymentService) classifyTransitionConflict(ctx context.Context, firmID, paymentID string, original error, action string) error {
	if !errors.Is(original, apperrors.ErrConflict) {
		return original
	}
	payment, err := s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
	if err != nil {
		// The payment vanished or the read failed; the not-found is the more
		// useful answer for the caller.
		return err
	}
	return apperrors.NewAppError(409,
		fmt.Sprintf("cannot %s payment %s in status %s", action, payment.PaymentNumber, payment.Status),
		apperrors.ErrConflict)
}

// FailPayment moves a PENDING or PROCESSING payment to FAILED.
func (s *paymentService) FailPayment(ctx context.Context, firmID, paymentID string, req dto.FailPaymentRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.FailPayment(ctx, firmID, paymentID, req.Reason, userID, now); err != nil {
		return nil, s.classifyTransitionConflict(ctx, firmID, paymentID, err, "fail")
	}

	s.LogInfo(ctx, "Payment failed",
		slog.String("payment_id", paymentID),
		slog.String("reason", req.Reason))
	return s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
}

// RetryPayment moves a FAILED payment back to PENDING for another attempt.
func (s *paymentService) RetryPayment(ctx context.Context, firmID, paymentID, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.RetryPayment(ctx, firmID, paymentID, userID, now); err != nil {
		return nil, s.classifyTransitionConflict(ctx, firmID, paymentID, err, "retry")
	}

	s.LogInfo(ctx, "Payment queued for retry", slog.String("payment_id", paymentID))
	return s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
}

// RefundPayment creates a compensating refund record and moves the original to
// REFUNDED. Invoice allocations are reversed proportionally to the refunded
// share of the original amount.
func (s *paymentService) RefundPayment(ctx context.Context, firmID, paymentID string, req dto.RefundPaymentRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	original, err := s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
	if err != nil {
		return nil, err
	}
	if original.PaymentType == domain.RefundPayment {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrRefundOfRefund)
	}
	if !original.Status.CanTransitionTo(domain.PaymentRefunded) {
		return nil, apperrors.NewAppError(409,
			fmt.Sprintf("cannot refund payment %s in status %s", original.PaymentNumber, original.Status),
			apperrors.ErrConflict)
	}

	refundAmount := original.Amount
	if req.Amount != nil {
		refundAmount = *req.Amount
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}
	if refundAmount.GreaterThan(original.Amount) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrRefundTooLarge)
	}

	// Reverse each invoice's share in proportion to the refunded fraction.
	// A full refund reverses every allocation exactly.
	reversals := make(map[string]decimal.Decimal)
	ratio := refundAmount.Div(original.Amount)
	for _, app := range original.Applications {
		share := app.Amount.Mul(ratio).Round(2)
		reversals[app.InvoiceID] = reversals[app.InvoiceID].Add(share)
	}

	method := original.PaymentMethod
	if req.Method != nil {
		method = *req.Method
	}

	now := time.Now().UTC()
	refund := domain.Payment{
		PaymentID:         uuid.NewString(),
		FirmID:            firmID,
		ClientID:          original.ClientID,
		MatterID:          original.MatterID,
		Amount:            refundAmount,
		CurrencyCode:      original.CurrencyCode,
		ExchangeRate:      original.ExchangeRate,
		PaymentType:       domain.RefundPayment,
		PaymentMethod:     method,
		Status:            domain.PaymentCompleted,
		TotalApplied:      decimal.Zero,
		OriginalPaymentID: &original.PaymentID,
		RefundReason:      &req.Reason,
		ProcessedBy:       &userID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	entry := domain.GLEntry{
		EntryID:      uuid.NewString(),
		FirmID:       firmID,
		PaymentID:    refund.PaymentID,
		ClientID:     original.ClientID,
		Direction:    domain.GLCredit,
		Amount:       refundAmount,
		CurrencyCode: original.CurrencyCode,
		Memo:         "Refund of payment " + original.PaymentNumber,
		PostedAt:     now,
		CreatedBy:    userID,
	}

	saved, err := s.paymentRepo.RefundPayment(ctx, *original, refund, reversals, entry, now)
	if err != nil {
		s.LogError(ctx, err, "Refund transaction failed",
			slog.String("payment_id", paymentID),
			slog.String("firm_id", firmID))
		return nil, err
	}

	s.LogInfo(ctx, "Payment refunded",
		slog.String("original_payment_id", paymentID),
		slog.String("refund_payment_id", saved.PaymentID),
		slog.String("amount", refundAmount.String()))
	return saved, nil
}

// ReconcilePayment matches a COMPLETED payment to a bank statement line.
func (s *paymentService) ReconcilePayment(ctx context.Context, firmID, paymentID string, req dto.ReconcilePaymentRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.ReconcilePayment(ctx, firmID, paymentID, userID, req.StatementRef, now); err != nil {
		return nil, s.classifyTransitionConflict(ctx, firmID, paymentID, err, "reconcile")
	}

	s.LogInfo(ctx, "Payment reconciled",
		slog.String("payment_id", paymentID),
		slog.String("statement_ref", req.StatementRef))
	return s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
}

// ApplyToInvoices allocates a completed payment's unapplied funds across invoices.
func (s *paymentService) ApplyToInvoices(ctx context.Context, firmID, paymentID string, req dto.ApplyToInvoicesRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	allocations := make([]domain.InvoiceApplication, 0, len(req.Allocations))
	for _, alloc := range req.Allocations {
		if alloc.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: allocation amount must be positive for invoice %s", apperrors.ErrValidation, alloc.InvoiceID)
		}
		allocations = append(allocations, domain.InvoiceApplication{
			ApplicationID: uuid.NewString(),
			PaymentID:     paymentID,
			InvoiceID:     alloc.InvoiceID,
			Amount:        alloc.Amount,
			AppliedAt:     now,
		})
	}

	applied, err := s.paymentRepo.ApplyPaymentToInvoices(ctx, *payment, allocations, userID, now)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Payment applied to invoices",
		slog.String("payment_id", paymentID),
		slog.Int("allocation_count", len(allocations)))
	return applied, nil
}

// UnapplyFromInvoice reverses a payment's allocations against one invoice.
func (s *paymentService) UnapplyFromInvoice(ctx context.Context, firmID, paymentID, invoiceID, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
	if err != nil {
		return nil, err
	}

	unapplied, err := s.paymentRepo.UnapplyPaymentFromInvoice(ctx, *payment, invoiceID, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Payment unapplied from invoice",
		slog.String("payment_id", paymentID),
		slog.String("invoice_id", invoiceID))
	return unapplied, nil
}

// RecordInvoicePayment is the one-shot create+allocate+complete flow against a
// single invoice. The invoice's payment-processing guard serializes concurrent
// attempts so two clerks cannot double-pay the same invoice.
func (s *paymentService) RecordInvoicePayment(ctx context.Context, firmID, invoiceID string, req dto.RecordInvoicePaymentRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAmountNotPositive)
	}
	if err := validateMethodDetails(req.PaymentMethod, req.CheckDetail, req.GatewayDetail); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.paymentRepo.FindPaymentByIdempotencyKey(ctx, firmID, *req.IdempotencyKey)
		if err == nil {
			s.LogInfo(ctx, "Idempotent invoice payment replayed", slog.String("payment_id", existing.PaymentID))
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, firmID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.AcceptsPayment() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrInvoiceNotPayable)
	}
	if req.Amount.GreaterThan(invoice.BalanceDue()) {
		return nil, fmt.Errorf("%w: amount %s exceeds balance due %s on invoice %s",
			apperrors.ErrAllocationOverflow, req.Amount.String(), invoice.BalanceDue().String(), invoice.InvoiceNumber)
	}

	// Claim the invoice guard for the duration of the flow.
	if err := s.invoiceRepo.SetPaymentProcessing(ctx, firmID, invoiceID, true); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.invoiceRepo.SetPaymentProcessing(ctx, firmID, invoiceID, false); err != nil {
			s.LogError(ctx, err, "Failed to clear payment processing guard",
				slog.String("invoice_id", invoiceID),
				slog.String("firm_id", firmID))
		}
	}()

	now := time.Now().UTC()
	payment := domain.Payment{
		PaymentID:      uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		FirmID:         firmID,
		ClientID:       invoice.ClientID,
		InvoiceID:      &invoiceID,
		MatterID:       invoice.MatterID,
		Amount:         req.Amount,
		CurrencyCode:   invoice.CurrencyCode,
		PaymentType:    domain.CustomerPayment,
		PaymentMethod:  req.PaymentMethod,
		CheckDetail:    toDomainCheckDetail(req.CheckDetail),
		GatewayDetail:  toDomainGatewayDetail(req.GatewayDetail),
		TotalApplied:   decimal.Zero,
		Notes:          req.Notes,
		ProcessedBy:    &userID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	allocation := domain.InvoiceApplication{
		ApplicationID: uuid.NewString(),
		PaymentID:     payment.PaymentID,
		InvoiceID:     invoiceID,
		Amount:        req.Amount,
		AppliedAt:     now,
	}

	entry := domain.GLEntry{
		EntryID:      uuid.NewString(),
		FirmID:       firmID,
		PaymentID:    payment.PaymentID,
		ClientID:     invoice.ClientID,
		Direction:    domain.GLDebit,
		Amount:       req.Amount,
		CurrencyCode: invoice.CurrencyCode,
		Memo:         "Payment against invoice " + invoice.InvoiceNumber,
		PostedAt:     now,
		CreatedBy:    userID,
	}

	saved, err := s.paymentRepo.RecordInvoicePayment(ctx, payment, allocation, entry, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) && req.IdempotencyKey != nil {
			existing, findErr := s.paymentRepo.FindPaymentByIdempotencyKey(ctx, firmID, *req.IdempotencyKey)
			if findErr == nil {
				return existing, nil
			}
		}
		s.LogError(ctx, err, "Invoice payment transaction failed",
			slog.String("invoice_id", invoiceID),
			slog.String("firm_id", firmID))
		return nil, err
	}

	s.LogInfo(ctx, "Invoice payment recorded",
		slog.String("payment_id", saved.PaymentID),
		slog.String("invoice_id", invoiceID),
		slog.String("amount", req.Amount.String()))
	return saved, nil
}

// GetPaymentByID retrieves a payment with its applications.
func (s *paymentService) GetPaymentByID(ctx context.Context, firmID, paymentID, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
}

// ListPayments retrieves a paginated, filtered payment listing.
func (s *paymentService) ListPayments(ctx context.Context, firmID string, params dto.ListPaymentsParams, userID string) (*dto.ListPaymentsResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	filter := portsrepo.ListPaymentsFilter{
		ClientID: params.ClientID,
		Status:   params.Status,
	}
	payments, nextToken, err := s.paymentRepo.ListPaymentsByFirm(ctx, firmID, filter, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payments", slog.String("firm_id", firmID))
		return nil, err
	}

	return &dto.ListPaymentsResponse{
		Payments:  dto.ToPaymentResponses(payments),
		NextToken: nextToken,
	}, nil
}

// UpdatePaymentNotes updates the auxiliary notes; allowed in terminal states.
func (s *paymentService) UpdatePaymentNotes(ctx context.Context, firmID, paymentID string, req dto.UpdatePaymentNotesRequest, userID string) (*domain.Payment, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.UpdatePaymentNotes(ctx, firmID, paymentID, req.Notes, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindPaymentByID(ctx, firmID, paymentID)
}

// DeletePayment removes a payment still in PENDING or FAILED. Destructive, so
// it requires admin rights in the firm.
func (s *paymentService) DeletePayment(ctx context.Context, firmID, paymentID, userID string) error {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.paymentRepo.DeletePayment(ctx, firmID, paymentID); err != nil {
		return err
	}

	s.LogInfo(ctx, "Payment deleted",
		slog.String("payment_id", paymentID),
		slog.String("firm_id", firmID),
		slog.String("deleted_by", userID))
	return nil
}
