package services

import (
	"context"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/lexledger/lexledger_backend/internal/dto"
)

// UserSvcFacade manages operator accounts.
type UserSvcFacade interface {
	// RegisterUser creates a user with a hashed password.
	RegisterUser(ctx context.Context, req dto.RegisterUserRequest) (*domain.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// VerifyCredentials checks an email/password pair and returns the user.
	VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthSvcFacade issues tokens for authenticated users.
type AuthSvcFacade interface {
	// Login verifies credentials and returns a signed token plus the user.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}
