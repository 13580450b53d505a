package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lexledger/lexledger_backend/internal/apperrors"
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	portsrepo "github.com/lexledger/lexledger_backend/internal/core/ports/repositories"
	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/core/services"
)

// --- Mock FirmRepository ---
type MockFirmRepository struct {
	mock.Mock
}

var _ portsrepo.FirmRepository = (*MockFirmRepository)(nil)

func (m *MockFirmRepository) SaveFirm(ctx context.Context, firm domain.Firm) error {
	args := m.Called(ctx, firm)
	return args.Error(0)
}

func (m *MockFirmRepository) FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error) {
	args := m.Called(ctx, firmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Firm), args.Error(1)
}

func (m *MockFirmRepository) AddUserToFirm(ctx context.Context, membership domain.FirmMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockFirmRepository) FindFirmMembership(ctx context.Context, userID, firmID string) (*domain.FirmMembership, error) {
	args := m.Called(ctx, userID, firmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FirmMembership), args.Error(1)
}

func (m *MockFirmRepository) ListFirmsByUser(ctx context.Context, userID string) ([]domain.Firm, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Firm), args.Error(1)
}

// --- Test Suite ---
type FirmServiceTestSuite struct {
	suite.Suite
	mockFirmRepo *MockFirmRepository
	service      portssvc.FirmSvcFacade
	ctx          context.Context
}

func (s *FirmServiceTestSuite) SetupTest() {
	s.mockFirmRepo = new(MockFirmRepository)
	s.service = services.NewFirmService(s.mockFirmRepo)
	s.ctx = context.Background()
}

func (s *FirmServiceTestSuite) TestCreateFirm_CreatorBecomesAdmin() {
	creatorID := uuid.NewString()

	s.mockFirmRepo.On("SaveFirm", s.ctx, mock.AnythingOfType("domain.Firm")).Return(nil)
	s.mockFirmRepo.On("AddUserToFirm", s.ctx, mock.AnythingOfType("domain.FirmMembership")).
		Run(func(args mock.Arguments) {
			membership := args.Get(1).(domain.FirmMembership)
			s.Equal(creatorID, membership.UserID)
			s.Equal(domain.RoleAdmin, membership.Role)
		}).
		Return(nil)

	firm, err := s.service.CreateFirm(s.ctx, "Hartley & Associates", "USD", creatorID)

	s.Require().NoError(err)
	s.Equal("Hartley & Associates", firm.Name)
	s.True(firm.IsActive)
	s.Require().NotNil(firm.DefaultCurrencyCode)
	s.Equal("USD", *firm.DefaultCurrencyCode)
	s.mockFirmRepo.AssertExpectations(s.T())
}

func (s *FirmServiceTestSuite) TestAddUserToFirm_RequiresAdmin() {
	addingUserID := uuid.NewString()
	targetUserID := uuid.NewString()
	firmID := uuid.NewString()

	s.mockFirmRepo.On("FindFirmMembership", s.ctx, addingUserID, firmID).
		Return(&domain.FirmMembership{UserID: addingUserID, FirmID: firmID, Role: domain.RoleMember}, nil)

	err := s.service.AddUserToFirm(s.ctx, addingUserID, targetUserID, firmID, domain.RoleMember)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.mockFirmRepo.AssertNotCalled(s.T(), "AddUserToFirm", mock.Anything, mock.Anything)
}

func (s *FirmServiceTestSuite) TestAuthorizeUserAction_NonMemberForbidden() {
	userID := uuid.NewString()
	firmID := uuid.NewString()

	s.mockFirmRepo.On("FindFirmMembership", s.ctx, userID, firmID).
		Return(nil, apperrors.NewNotFoundError("membership not found"))

	err := s.service.AuthorizeUserAction(s.ctx, userID, firmID, domain.RoleReadOnly)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *FirmServiceTestSuite) TestAuthorizeUserAction_RoleHierarchy() {
	userID := uuid.NewString()
	firmID := uuid.NewString()

	testCases := []struct {
		name     string
		userRole domain.FirmRole
		required domain.FirmRole
		allowed  bool
	}{
		{"admin can do member work", domain.RoleAdmin, domain.RoleMember, true},
		{"admin can read", domain.RoleAdmin, domain.RoleReadOnly, true},
		{"member can read", domain.RoleMember, domain.RoleReadOnly, true},
		{"member cannot admin", domain.RoleMember, domain.RoleAdmin, false},
		{"readonly cannot write", domain.RoleReadOnly, domain.RoleMember, false},
		{"removed member has no access", domain.RoleRemoved, domain.RoleReadOnly, false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			repo := new(MockFirmRepository)
			svc := services.NewFirmService(repo)
			repo.On("FindFirmMembership", s.ctx, userID, firmID).
				Return(&domain.FirmMembership{UserID: userID, FirmID: firmID, Role: tc.userRole}, nil)

			err := svc.AuthorizeUserAction(s.ctx, userID, firmID, tc.required)
			if tc.allowed {
				s.NoError(err)
			} else {
				s.ErrorIs(err, apperrors.ErrForbidden)
			}
		})
	}
}

func TestFirmServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FirmServiceTestSuite))
}
