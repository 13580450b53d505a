package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/core/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// --- Mock PaymentRepository ---
type MockPaymentRepository struct {
	mock.Mock
}

// Ensure MockPaymentRepository implements portsrepo.PaymentRepositoryWithTx
var _ portsrepo.PaymentRepositoryWithTx = (*MockPaymentRepository)(nil)

func (m *MockPaymentRepository) FindPaymentByID(ctx context.Context, firmID, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, firmID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindPaymentByIdempotencyKey(ctx context.Context, firmID, key string) (*domain.Payment, error) {
	args := m.Called(ctx, firmID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListPaymentsByFirm(ctx context.Context, firmID string, filter portsrepo.ListPaymentsFilter, limit int, nextToken *string) ([]domain.Payment, *string, error) {
	args := m.Called(ctx, firmID, filter, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Payment), returnedNextToken, args.Error(2)
}

func (m *MockPaymentRepository) SavePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkPaymentProcessing(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, userID, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) RevertPaymentToPending(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, userID, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) CompletePayment(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, entry domain.GLEntry, userID string, now time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, payment, allocations, entry, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) RecordInvoicePayment(ctx context.Context, payment domain.Payment, allocation domain.InvoiceApplication, entry domain.GLEntry, now time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, payment, allocation, entry, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FailPayment(ctx context.Context, firmID, paymentID, reason, userID string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, reason, userID, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) RetryPayment(ctx context.Context, firmID, paymentID, userID string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, userID, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) RefundPayment(ctx context.Context, original domain.Payment, refund domain.Payment, reversals map[string]decimal.Decimal, entry domain.GLEntry, now time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, original, refund, reversals, entry, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ReconcilePayment(ctx context.Context, firmID, paymentID, reconciledBy, statementRef string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, reconciledBy, statementRef, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) ApplyPaymentToInvoices(ctx context.Context, payment domain.Payment, allocations []domain.InvoiceApplication, userID string, now time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, payment, allocations, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UnapplyPaymentFromInvoice(ctx context.Context, payment domain.Payment, invoiceID, userID string, now time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, payment, invoiceID, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdatePaymentNotes(ctx context.Context, firmID, paymentID, notes, userID string, now time.Time) error {
	args := m.Called(ctx, firmID, paymentID, notes, userID, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) DeletePayment(ctx context.Context, firmID, paymentID string) error {
	args := m.Called(ctx, firmID, paymentID)
	return args.Error(0)
}

func (m *MockPaymentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockPaymentRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPaymentRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

var _ portsrepo.InvoiceRepositoryFacade = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, firmID, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, firmID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoicesByIDsForUpdate(ctx context.Context, tx pgx.Tx, firmID string, invoiceIDs []string) (map[string]domain.Invoice, error) {
	args := m.Called(ctx, tx, firmID, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoicesByClient(ctx context.Context, firmID, clientID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := m.Called(ctx, firmID, clientID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Invoice), returnedNextToken, args.Error(2)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ApplyAmountsInTx(ctx context.Context, tx pgx.Tx, deltas map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, deltas, userID, now)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetPaymentProcessing(ctx context.Context, firmID, invoiceID string, processing bool) error {
	args := m.Called(ctx, firmID, invoiceID, processing)
	return args.Error(0)
}

// --- Mock ClientRepository ---
type MockClientRepository struct {
	mock.Mock
}

var _ portsrepo.ClientRepositoryFacade = (*MockClientRepository)(nil)

func (m *MockClientRepository) FindClientByID(ctx context.Context, firmID, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, firmID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) RecomputeOutstandingBalanceInTx(ctx context.Context, tx pgx.Tx, firmID, clientID, userID string, now time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, firmID, clientID, userID, now)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- Mock FirmAuthorizer ---
type MockFirmAuthorizer struct {
	mock.Mock
}

var _ portssvc.FirmAuthorizerSvc = (*MockFirmAuthorizer)(nil)

func (m *MockFirmAuthorizer) AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error {
	args := m.Called(ctx, userID, firmID, requiredRole)
	return args.Error(0)
}

// --- Test Suite ---
type PaymentServiceTestSuite struct {
	suite.Suite
	mockPaymentRepo *MockPaymentRepository
	mockInvoiceRepo *MockInvoiceRepository
	mockClientRepo  *MockClientRepository
	mockAuthorizer  *MockFirmAuthorizer
	service         portssvc.PaymentSvcFacade
	ctx             context.Context

	firmID   string
	clientID string
	userID   string
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.mockPaymentRepo = new(MockPaymentRepository)
	s.mockInvoiceRepo = new(MockInvoiceRepository)
	s.mockClientRepo = new(MockClientRepository)
	s.mockAuthorizer = new(MockFirmAuthorizer)
	s.service = services.NewPaymentService(s.mockPaymentRepo, s.mockInvoiceRepo, s.mockClientRepo, s.mockAuthorizer)
	s.ctx = context.Background()

	s.firmID = uuid.NewString()
	s.clientID = uuid.NewString()
	s.userID = uuid.NewString()
}

func (s *PaymentServiceTestSuite) allowRole(role domain.FirmRole) {
	s.mockAuthorizer.On("AuthorizeUserAction", s.ctx, s.userID, s.firmID, role).Return(nil)
}

func (s *PaymentServiceTestSuite) newClient() *domain.Client {
	return &domain.Client{
		ClientID: s.clientID,
		FirmID:   s.firmID,
		Name:     "Meridian Holdings LLC",
		IsActive: true,
	}
}

func (s *PaymentServiceTestSuite) newPendingPayment(amount string) *domain.Payment {
	return &domain.Payment{
		PaymentID:     uuid.NewString(),
		PaymentNumber: "PAY-000042",
		FirmID:        s.firmID,
		ClientID:      s.clientID,
		Amount:        decimal.RequireFromString(amount),
		CurrencyCode:  "USD",
		PaymentType:   domain.CustomerPayment,
		PaymentMethod: domain.MethodBankTransfer,
		Status:        domain.PaymentPending,
		TotalApplied:  decimal.Zero,
	}
}

func (s *PaymentServiceTestSuite) TestCreatePayment_Success() {
	s.allowRole(domain.RoleMember)
	req := dto.CreatePaymentRequest{
		ClientID:      s.clientID,
		Amount:        decimal.RequireFromString("1500.00"),
		CurrencyCode:  "USD",
		PaymentType:   domain.CustomerPayment,
		PaymentMethod: domain.MethodBankTransfer,
	}

	s.mockClientRepo.On("FindClientByID", s.ctx, s.firmID, s.clientID).Return(s.newClient(), nil)
	s.mockPaymentRepo.On("SavePayment", s.ctx, mock.AnythingOfType("domain.Payment")).
		Run(func(args mock.Arguments) {
			saved := args.Get(1).(domain.Payment)
			s.Equal(domain.PaymentPending, saved.Status)
			s.True(saved.TotalApplied.IsZero())
			s.Equal(s.userID, saved.CreatedBy)
		}).
		Return(s.newPendingPayment("1500.00"), nil)

	payment, replayed, err := s.service.CreatePayment(s.ctx, s.firmID, req, s.userID)

	s.Require().NoError(err)
	s.False(replayed)
	s.Equal(domain.PaymentPending, payment.Status)
	s.mockPaymentRepo.AssertExpectations(s.T())
}

func (s *PaymentServiceTestSuite) TestCreatePayment_IdempotentReplay() {
	s.allowRole(domain.RoleMember)
	key := "req-7f3a"
	existing := s.newPendingPayment("1500.00")
	existing.IdempotencyKey = &key
	req := dto.CreatePaymentRequest{
		ClientID:       s.clientID,
		Amount:         decimal.RequireFromString("1500.00"),
		CurrencyCode:   "USD",
		PaymentType:    domain.CustomerPayment,
		PaymentMethod:  domain.MethodBankTransfer,
		IdempotencyKey: &key,
	}

	s.mockPaymentRepo.On("FindPaymentByIdempotencyKey", s.ctx, s.firmID, key).Return(existing, nil)

	payment, replayed, err := s.service.CreatePayment(s.ctx, s.firmID, req, s.userID)

	s.Require().NoError(err)
	s.True(replayed)
	s.Equal(existing.PaymentID, payment.PaymentID)
	s.mockPaymentRepo.AssertNotCalled(s.T(), "SavePayment", mock.Anything, mock.Anything)
}

func (s *PaymentServiceTestSuite) TestCreatePayment_KeyReuseWithDifferentAmount() {
	s.allowRole(domain.RoleMember)
	key := "req-7f3a"
	existing := s.newPendingPayment("1500.00")
	req := dto.CreatePaymentRequest{
		ClientID:       s.clientID,
		Amount:         decimal.RequireFromString("999.00"),
		CurrencyCode:   "USD",
		PaymentType:    domain.CustomerPayment,
		PaymentMethod:  domain.MethodBankTransfer,
		IdempotencyKey: &key,
	}

	s.mockPaymentRepo.On("FindPaymentByIdempotencyKey", s.ctx, s.firmID, key).Return(existing, nil)

	_, _, err := s.service.CreatePayment(s.ctx, s.firmID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PaymentServiceTestSuite) TestCreatePayment_NonPositiveAmount() {
	s.allowRole(domain.RoleMember)
	req := dto.CreatePaymentRequest{
		ClientID:      s.clientID,
		Amount:        decimal.Zero,
		CurrencyCode:  "USD",
		PaymentType:   domain.CustomerPayment,
		PaymentMethod: domain.MethodCash,
	}

	_, _, err := s.service.CreatePayment(s.ctx, s.firmID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PaymentServiceTestSuite) TestCreatePayment_CheckWithoutDetail() {
	s.allowRole(domain.RoleMember)
	req := dto.CreatePaymentRequest{
		ClientID:      s.clientID,
		Amount:        decimal.RequireFromString("250.00"),
		CurrencyCode:  "USD",
		PaymentType:   domain.CustomerPayment,
		PaymentMethod: domain.MethodCheck,
	}

	_, _, err := s.service.CreatePayment(s.ctx, s.firmID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PaymentServiceTestSuite) TestCompletePayment_WithExplicitAllocations() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("1000.00")
	invoiceID := uuid.NewString()
	completed := *payment
	completed.Status = domain.PaymentCompleted
	completed.TotalApplied = decimal.RequireFromString("600.00")

	req := dto.CompletePaymentRequest{
		Allocations: []dto.AllocationRequest{
			{InvoiceID: invoiceID, Amount: decimal.RequireFromString("600.00")},
		},
	}

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)
	s.mockPaymentRepo.On("MarkPaymentProcessing", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time")).Return(nil)
	s.mockPaymentRepo.On("CompletePayment", s.ctx, mock.AnythingOfType("domain.Payment"), mock.AnythingOfType("[]domain.InvoiceApplication"), mock.AnythingOfType("domain.GLEntry"), s.userID, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			allocations := args.Get(2).([]domain.InvoiceApplication)
			s.Require().Len(allocations, 1)
			s.Equal(invoiceID, allocations[0].InvoiceID)
			entry := args.Get(3).(domain.GLEntry)
			s.Equal(domain.GLDebit, entry.Direction)
			s.True(entry.Amount.Equal(payment.Amount))
		}).
		Return(&completed, nil)

	result, err := s.service.CompletePayment(s.ctx, s.firmID, payment.PaymentID, req, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, result.Status)
	s.mockPaymentRepo.AssertExpectations(s.T())
}

func (s *PaymentServiceTestSuite) TestCompletePayment_ConflictClassifiedByReRead() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("1000.00")
	payment.Status = domain.PaymentCompleted

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)
	s.mockPaymentRepo.On("MarkPaymentProcessing", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time")).
		Return(apperrors.NewAppError(409, "payment not in a state that permits complete", apperrors.ErrConflict))

	_, err := s.service.CompletePayment(s.ctx, s.firmID, payment.PaymentID, dto.CompletePaymentRequest{}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Contains(err.Error(), "COMPLETED")
}

func (s *PaymentServiceTestSuite) TestCompletePayment_OverAllocationReverts() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("100.00")
	req := dto.CompletePaymentRequest{
		Allocations: []dto.AllocationRequest{
			{InvoiceID: uuid.NewString(), Amount: decimal.RequireFromString("150.00")},
		},
	}

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)
	s.mockPaymentRepo.On("MarkPaymentProcessing", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time")).Return(nil)
	s.mockPaymentRepo.On("RevertPaymentToPending", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time")).Return(nil)

	_, err := s.service.CompletePayment(s.ctx, s.firmID, payment.PaymentID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrAllocationOverflow)
	s.mockPaymentRepo.AssertCalled(s.T(), "RevertPaymentToPending", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time"))
	s.mockPaymentRepo.AssertNotCalled(s.T(), "CompletePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *PaymentServiceTestSuite) TestCompletePayment_AutoAllocatesToTargetInvoice() {
	s.allowRole(domain.RoleMember)
	invoiceID := uuid.NewString()
	payment := s.newPendingPayment("500.00")
	payment.InvoiceID = &invoiceID

	invoice := &domain.Invoice{
		InvoiceID:    invoiceID,
		FirmID:       s.firmID,
		ClientID:     s.clientID,
		TotalAmount:  decimal.RequireFromString("300.00"),
		AmountPaid:   decimal.Zero,
		CurrencyCode: "USD",
		Status:       domain.InvoiceOutstanding,
	}
	completed := *payment
	completed.Status = domain.PaymentCompleted
	completed.TotalApplied = decimal.RequireFromString("300.00")

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)
	s.mockPaymentRepo.On("MarkPaymentProcessing", s.ctx, s.firmID, payment.PaymentID, s.userID, mock.AnythingOfType("time.Time")).Return(nil)
	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, s.firmID, invoiceID).Return(invoice, nil)
	s.mockPaymentRepo.On("CompletePayment", s.ctx, mock.AnythingOfType("domain.Payment"), mock.AnythingOfType("[]domain.InvoiceApplication"), mock.AnythingOfType("domain.GLEntry"), s.userID, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			// Auto-allocation caps at the invoice's balance due; the remaining
			// 200.00 stays as unapplied credit.
			allocations := args.Get(2).([]domain.InvoiceApplication)
			s.Require().Len(allocations, 1)
			s.True(allocations[0].Amount.Equal(decimal.RequireFromString("300.00")))
		}).
		Return(&completed, nil)

	result, err := s.service.CompletePayment(s.ctx, s.firmID, payment.PaymentID, dto.CompletePaymentRequest{}, s.userID)

	s.Require().NoError(err)
	s.True(result.TotalApplied.Equal(decimal.RequireFromString("300.00")))
}

func (s *PaymentServiceTestSuite) TestRefundPayment_FullRefundReversesProportionally() {
	s.allowRole(domain.RoleMember)
	invoiceID := uuid.NewString()
	original := s.newPendingPayment("1000.00")
	original.Status = domain.PaymentCompleted
	original.TotalApplied = decimal.RequireFromString("1000.00")
	original.Applications = []domain.InvoiceApplication{
		{ApplicationID: uuid.NewString(), PaymentID: original.PaymentID, InvoiceID: invoiceID, Amount: decimal.RequireFromString("1000.00")},
	}

	req := dto.RefundPaymentRequest{Reason: "client overpaid"}

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, original.PaymentID).Return(original, nil)
	s.mockPaymentRepo.On("RefundPayment", s.ctx, mock.AnythingOfType("domain.Payment"), mock.AnythingOfType("domain.Payment"), mock.Anything, mock.AnythingOfType("domain.GLEntry"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			refund := args.Get(2).(domain.Payment)
			s.Equal(domain.RefundPayment, refund.PaymentType)
			s.Equal(domain.PaymentCompleted, refund.Status)
			s.Equal(original.PaymentID, *refund.OriginalPaymentID)

			reversals := args.Get(3).(map[string]decimal.Decimal)
			s.True(reversals[invoiceID].Equal(decimal.RequireFromString("1000.00")))

			entry := args.Get(4).(domain.GLEntry)
			s.Equal(domain.GLCredit, entry.Direction)
		}).
		Return(&domain.Payment{PaymentID: uuid.NewString(), PaymentType: domain.RefundPayment, Status: domain.PaymentCompleted}, nil)

	refund, err := s.service.RefundPayment(s.ctx, s.firmID, original.PaymentID, req, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.RefundPayment, refund.PaymentType)
	s.mockPaymentRepo.AssertExpectations(s.T())
}

func (s *PaymentServiceTestSuite) TestRefundPayment_RefundOfRefundRejected() {
	s.allowRole(domain.RoleMember)
	refundRecord := s.newPendingPayment("200.00")
	refundRecord.Status = domain.PaymentCompleted
	refundRecord.PaymentType = domain.RefundPayment

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, refundRecord.PaymentID).Return(refundRecord, nil)

	_, err := s.service.RefundPayment(s.ctx, s.firmID, refundRecord.PaymentID, dto.RefundPaymentRequest{Reason: "oops"}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PaymentServiceTestSuite) TestRefundPayment_AmountExceedsOriginal() {
	s.allowRole(domain.RoleMember)
	original := s.newPendingPayment("100.00")
	original.Status = domain.PaymentCompleted
	tooMuch := decimal.RequireFromString("150.00")

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, original.PaymentID).Return(original, nil)

	_, err := s.service.RefundPayment(s.ctx, s.firmID, original.PaymentID, dto.RefundPaymentRequest{Amount: &tooMuch, Reason: "partial"}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PaymentServiceTestSuite) TestRefundPayment_PendingPaymentRejected() {
	s.allowRole(domain.RoleMember)
	original := s.newPendingPayment("100.00")

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, original.PaymentID).Return(original, nil)

	_, err := s.service.RefundPayment(s.ctx, s.firmID, original.PaymentID, dto.RefundPaymentRequest{Reason: "not yet"}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PaymentServiceTestSuite) TestReconcilePayment_WrongStateConflict() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("100.00")

	s.mockPaymentRepo.On("ReconcilePayment", s.ctx, s.firmID, payment.PaymentID, s.userID, "STMT-2026-08-31", mock.AnythingOfType("time.Time")).
		Return(apperrors.NewAppError(409, "payment not in a state that permits reconcile", apperrors.ErrConflict))
	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)

	_, err := s.service.ReconcilePayment(s.ctx, s.firmID, payment.PaymentID, dto.ReconcilePaymentRequest{StatementRef: "STMT-2026-08-31"}, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Contains(err.Error(), "PENDING")
}

func (s *PaymentServiceTestSuite) TestFailPayment_RecordsReason() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("100.00")
	failed := *payment
	failed.Status = domain.PaymentFailed
	reason := "insufficient funds"
	failed.FailureReason = &reason
	failed.RetryCount = 1

	s.mockPaymentRepo.On("FailPayment", s.ctx, s.firmID, payment.PaymentID, reason, s.userID, mock.AnythingOfType("time.Time")).Return(nil)
	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(&failed, nil)

	result, err := s.service.FailPayment(s.ctx, s.firmID, payment.PaymentID, dto.FailPaymentRequest{Reason: reason}, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentFailed, result.Status)
	s.Equal(1, result.RetryCount)
}

func (s *PaymentServiceTestSuite) TestDeletePayment_RequiresAdmin() {
	paymentID := uuid.NewString()
	s.mockAuthorizer.On("AuthorizeUserAction", s.ctx, s.userID, s.firmID, domain.RoleAdmin).Return(apperrors.ErrForbidden)

	err := s.service.DeletePayment(s.ctx, s.firmID, paymentID, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.mockPaymentRepo.AssertNotCalled(s.T(), "DeletePayment", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PaymentServiceTestSuite) TestRecordInvoicePayment_InvoiceNotPayable() {
	s.allowRole(domain.RoleMember)
	invoiceID := uuid.NewString()
	invoice := &domain.Invoice{
		InvoiceID:    invoiceID,
		FirmID:       s.firmID,
		ClientID:     s.clientID,
		TotalAmount:  decimal.RequireFromString("300.00"),
		AmountPaid:   decimal.RequireFromString("300.00"),
		CurrencyCode: "USD",
		Status:       domain.InvoicePaid,
	}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, s.firmID, invoiceID).Return(invoice, nil)

	req := dto.RecordInvoicePaymentRequest{
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: domain.MethodCash,
	}
	_, err := s.service.RecordInvoicePayment(s.ctx, s.firmID, invoiceID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PaymentServiceTestSuite) TestRecordInvoicePayment_AmountExceedsBalanceDue() {
	s.allowRole(domain.RoleMember)
	invoiceID := uuid.NewString()
	invoice := &domain.Invoice{
		InvoiceID:    invoiceID,
		FirmID:       s.firmID,
		ClientID:     s.clientID,
		TotalAmount:  decimal.RequireFromString("300.00"),
		AmountPaid:   decimal.RequireFromString("250.00"),
		CurrencyCode: "USD",
		Status:       domain.InvoicePartial,
	}

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, s.firmID, invoiceID).Return(invoice, nil)

	req := dto.RecordInvoicePaymentRequest{
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: domain.MethodCash,
	}
	_, err := s.service.RecordInvoicePayment(s.ctx, s.firmID, invoiceID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrAllocationOverflow)
}

func (s *PaymentServiceTestSuite) TestRecordInvoicePayment_GuardClearedAfterSuccess() {
	s.allowRole(domain.RoleMember)
	invoiceID := uuid.NewString()
	invoice := &domain.Invoice{
		InvoiceID:    invoiceID,
		FirmID:       s.firmID,
		ClientID:     s.clientID,
		TotalAmount:  decimal.RequireFromString("300.00"),
		AmountPaid:   decimal.Zero,
		CurrencyCode: "USD",
		Status:       domain.InvoiceOutstanding,
	}
	completed := s.newPendingPayment("300.00")
	completed.Status = domain.PaymentCompleted

	s.mockInvoiceRepo.On("FindInvoiceByID", s.ctx, s.firmID, invoiceID).Return(invoice, nil)
	s.mockInvoiceRepo.On("SetPaymentProcessing", s.ctx, s.firmID, invoiceID, true).Return(nil)
	s.mockInvoiceRepo.On("SetPaymentProcessing", s.ctx, s.firmID, invoiceID, false).Return(nil)
	s.mockPaymentRepo.On("RecordInvoicePayment", s.ctx, mock.AnythingOfType("domain.Payment"), mock.AnythingOfType("domain.InvoiceApplication"), mock.AnythingOfType("domain.GLEntry"), mock.AnythingOfType("time.Time")).
		Return(completed, nil)

	req := dto.RecordInvoicePaymentRequest{
		Amount:        decimal.RequireFromString("300.00"),
		PaymentMethod: domain.MethodCash,
	}
	result, err := s.service.RecordInvoicePayment(s.ctx, s.firmID, invoiceID, req, s.userID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, result.Status)
	s.mockInvoiceRepo.AssertCalled(s.T(), "SetPaymentProcessing", s.ctx, s.firmID, invoiceID, false)
}

func (s *PaymentServiceTestSuite) TestApplyToInvoices_DelegatesToRepository() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("500.00")
	payment.Status = domain.PaymentCompleted
	invoiceID := uuid.NewString()
	applied := *payment
	applied.TotalApplied = decimal.RequireFromString("200.00")

	req := dto.ApplyToInvoicesRequest{
		Allocations: []dto.AllocationRequest{
			{InvoiceID: invoiceID, Amount: decimal.RequireFromString("200.00")},
		},
	}

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)
	s.mockPaymentRepo.On("ApplyPaymentToInvoices", s.ctx, mock.AnythingOfType("domain.Payment"), mock.AnythingOfType("[]domain.InvoiceApplication"), s.userID, mock.AnythingOfType("time.Time")).
		Return(&applied, nil)

	result, err := s.service.ApplyToInvoices(s.ctx, s.firmID, payment.PaymentID, req, s.userID)

	s.Require().NoError(err)
	s.True(result.TotalApplied.Equal(decimal.RequireFromString("200.00")))
}

func (s *PaymentServiceTestSuite) TestApplyToInvoices_NonPositiveAllocation() {
	s.allowRole(domain.RoleMember)
	payment := s.newPendingPayment("500.00")
	payment.Status = domain.PaymentCompleted

	req := dto.ApplyToInvoicesRequest{
		Allocations: []dto.AllocationRequest{
			{InvoiceID: uuid.NewString(), Amount: decimal.Zero},
		},
	}

	s.mockPaymentRepo.On("FindPaymentByID", s.ctx, s.firmID, payment.PaymentID).Return(payment, nil)

	_, err := s.service.ApplyToInvoices(s.ctx, s.firmID, payment.PaymentID, req, s.userID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func TestRetryPayment_ReturnsRefreshedPayment(t *testing.T) {
	mockRepo := new(MockPaymentRepository)
	mockInvoices := new(MockInvoiceRepository)
	mockClients := new(MockClientRepository)
	mockAuth := new(MockFirmAuthorizer)
	svc := services.NewPaymentService(mockRepo, mockInvoices, mockClients, mockAuth)
	ctx := context.Background()

	firmID := uuid.NewString()
	userID := uuid.NewString()
	paymentID := uuid.NewString()
	pending := &domain.Payment{PaymentID: paymentID, FirmID: firmID, Status: domain.PaymentPending, RetryCount: 2}

	mockAuth.On("AuthorizeUserAction", ctx, userID, firmID, domain.RoleMember).Return(nil)
	mockRepo.On("RetryPayment", ctx, firmID, paymentID, userID, mock.AnythingOfType("time.Time")).Return(nil)
	mockRepo.On("FindPaymentByID", ctx, firmID, paymentID).Return(pending, nil)

	result, err := svc.RetryPayment(ctx, firmID, paymentID, userID)

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, result.Status)
	assert.Equal(t, 2, result.RetryCount)
}
