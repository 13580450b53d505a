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
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/utils"
)

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

var _ portsrepo.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Test Suite ---
type UserServiceTestSuite struct {
	suite.Suite
	mockUserRepo *MockUserRepository
	service      portssvc.UserSvcFacade
	ctx          context.Context
}

func (s *UserServiceTestSuite) SetupTest() {
	s.mockUserRepo = new(MockUserRepository)
	s.service = services.NewUserService(s.mockUserRepo)
	s.ctx = context.Background()
}

func (s *UserServiceTestSuite) TestRegisterUser_HashesPassword() {
	req := dto.RegisterUserRequest{
		Name:     "Dana Whitfield",
		Email:    "dana@hartleylaw.example",
		Password: "correct-horse-battery",
	}

	s.mockUserRepo.On("SaveUser", s.ctx, mock.AnythingOfType("domain.User")).
		Run(func(args mock.Arguments) {
			saved := args.Get(1).(domain.User)
			s.NotEqual(req.Password, saved.PasswordHash)
			s.True(utils.CheckPasswordHash(req.Password, saved.PasswordHash))
			s.True(saved.IsActive)
		}).
		Return(nil)

	user, err := s.service.RegisterUser(s.ctx, req)

	s.Require().NoError(err)
	s.Equal(req.Email, user.Email)
	s.mockUserRepo.AssertExpectations(s.T())
}

func (s *UserServiceTestSuite) TestRegisterUser_DuplicateEmail() {
	req := dto.RegisterUserRequest{
		Name:     "Dana Whitfield",
		Email:    "dana@hartleylaw.example",
		Password: "correct-horse-battery",
	}

	s.mockUserRepo.On("SaveUser", s.ctx, mock.AnythingOfType("domain.User")).
		Return(apperrors.NewAppError(409, "duplicate email", apperrors.ErrDuplicate))

	_, err := s.service.RegisterUser(s.ctx, req)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrDuplicate)
}

func (s *UserServiceTestSuite) TestVerifyCredentials_Success() {
	password := "correct-horse-battery"
	hash, err := utils.HashPassword(password)
	s.Require().NoError(err)

	user := &domain.User{
		UserID:       uuid.NewString(),
		Email:        "dana@hartleylaw.example",
		PasswordHash: hash,
		IsActive:     true,
	}
	s.mockUserRepo.On("FindUserByEmail", s.ctx, user.Email).Return(user, nil)

	verified, err := s.service.VerifyCredentials(s.ctx, user.Email, password)

	s.Require().NoError(err)
	s.Equal(user.UserID, verified.UserID)
}

func (s *UserServiceTestSuite) TestVerifyCredentials_WrongPassword() {
	hash, err := utils.HashPassword("the-real-password")
	s.Require().NoError(err)

	user := &domain.User{
		UserID:       uuid.NewString(),
		Email:        "dana@hartleylaw.example",
		PasswordHash: hash,
		IsActive:     true,
	}
	s.mockUserRepo.On("FindUserByEmail", s.ctx, user.Email).Return(user, nil)

	_, err = s.service.VerifyCredentials(s.ctx, user.Email, "a-guess")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *UserServiceTestSuite) TestVerifyCredentials_UnknownEmailSameError() {
	s.mockUserRepo.On("FindUserByEmail", s.ctx, "nobody@example.com").
		Return(nil, apperrors.NewNotFoundError("user not found"))

	_, err := s.service.VerifyCredentials(s.ctx, "nobody@example.com", "whatever")

	s.Require().Error(err)
	// Unknown email and wrong password are indistinguishable to the caller.
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *UserServiceTestSuite) TestVerifyCredentials_InactiveUser() {
	hash, err := utils.HashPassword("password-123")
	s.Require().NoError(err)

	user := &domain.User{
		UserID:       uuid.NewString(),
		Email:        "former@hartleylaw.example",
		PasswordHash: hash,
		IsActive:     false,
	}
	s.mockUserRepo.On("FindUserByEmail", s.ctx, user.Email).Return(user, nil)

	_, err = s.service.VerifyCredentials(s.ctx, user.Email, "password-123")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
